package dte

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// DefaultLineName names a line the source left unnamed.
const DefaultLineName = "Producto"

// SaleLine is a line item as supplied by the sale source. The core never modifies it.
type SaleLine struct {
	// ID is the source's stable line identifier, used to match refund lines.
	ID          string
	SKU         string
	VariantID   string
	Name        string
	Description string
	// Quantity of zero means the source did not provide one.
	Quantity  int
	UnitPrice decimal.Decimal
}

// MapLines converts sale lines into detail lines, one for one and in order.
//
// Fallback rules per field:
//
//	codigo      SKU, then VariantID, then "PROD-{n}" (n is the 1-based position)
//	nombre      Name, then "Producto"; at most 80 characters
//	cantidad    Quantity, then 1
//	precio      UnitPrice normalised with basis
//	descripcion Description, then Name; at most 1000 characters
//
// unidad is always "UN" and exento always false.
func MapLines(lines []SaleLine, basis PriceBasis) []DetailLine {
	details := make([]DetailLine, len(lines))
	for i, line := range lines {
		details[i] = MapLine(line, i+1, basis)
	}
	return details
}

// MapLine maps a single sale line; position is its 1-based index in the source.
func MapLine(line SaleLine, position int, basis PriceBasis) DetailLine {
	quantity := line.Quantity
	if quantity <= 0 {
		quantity = 1
	}

	return DetailLine{
		Code:        Truncate(lineCode(line, position), MaxCodeLength),
		Name:        Truncate(lineName(line), MaxNameLength),
		Quantity:    quantity,
		Unit:        UnitCode,
		Price:       NetAmount(line.UnitPrice, basis),
		Exempt:      false,
		Description: Truncate(lineDescription(line), MaxDescriptionLength),
	}
}

func lineCode(line SaleLine, position int) string {
	return firstNonEmpty(line.SKU, line.VariantID, fmt.Sprintf("PROD-%d", position))
}

func lineName(line SaleLine) string {
	return firstNonEmpty(line.Name, DefaultLineName)
}

func lineDescription(line SaleLine) string {
	return firstNonEmpty(line.Description, lineName(line))
}
