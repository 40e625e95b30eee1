package dte

import "github.com/shopspring/decimal"

// vatFactor is 1 + the Chilean VAT rate (19%).
var vatFactor = decimal.RequireFromString("1.19")

// VATRate is the Chilean IVA rate.
var VATRate = decimal.RequireFromString("0.19")

// PriceBasis tells the normalizer how a source price was entered.
type PriceBasis int

const (
	// TaxInclusive prices come from the order engine and include IVA.
	TaxInclusive PriceBasis = iota
	// TaxExclusive prices are entered by hand and are only rounded.
	TaxExclusive
)

func (b PriceBasis) String() string {
	if b == TaxExclusive {
		return "tax_exclusive"
	}
	return "tax_inclusive"
}

// NetAmount converts a source amount to whole tax-exclusive pesos.
// Rounding is half away from zero.
func NetAmount(amount decimal.Decimal, basis PriceBasis) int64 {
	if basis == TaxInclusive {
		amount = amount.Div(vatFactor)
	}
	return amount.Round(0).IntPart()
}

// GrossAmount adds IVA to a net amount and rounds to whole pesos.
func GrossAmount(net int64) int64 {
	return decimal.NewFromInt(net).Mul(vatFactor).Round(0).IntPart()
}

// Totals summarises the monetary content of a set of detail lines.
type Totals struct {
	Net   int64 `json:"neto"`
	VAT   int64 `json:"iva"`
	Total int64 `json:"total"`
}

// ComputeTotals derives net, IVA and total from tax-exclusive detail lines.
func ComputeTotals(lines []DetailLine) Totals {
	net := decimal.Zero
	for _, line := range lines {
		net = net.Add(decimal.NewFromInt(line.Price).Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	vat := net.Mul(VATRate).Round(0)
	return Totals{
		Net:   net.IntPart(),
		VAT:   vat.IntPart(),
		Total: net.Add(vat).IntPart(),
	}
}
