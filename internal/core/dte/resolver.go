package dte

import (
	"strings"
	"unicode/utf8"

	"agourmet/ms_dte_bridge/internal/core/rut"
)

const minInvoiceFieldLength = 3

// Messages returned when invoice data is incomplete on the direct path.
const (
	MsgInvalidRUT       = "RUT inválido para factura"
	MsgMissingLegalName = "Nombre de empresa requerido para factura"
	MsgMissingActivity  = "Giro empresarial requerido para factura"
)

// FiscalData is the buyer's document preference and invoice data.
type FiscalData struct {
	InvoiceRequested bool
	RUT              string
	LegalName        string
	Activity         string
}

// Resolution is the outcome of the order-path resolver.
type Resolution struct {
	Kind Kind
	// Downgraded is set when an invoice was requested but a receipt is issued.
	Downgraded bool
	Reasons    []string
}

// CheckInvoiceData lists every invoice constraint the data violates.
func CheckInvoiceData(d FiscalData) []string {
	var details []string
	if strings.TrimSpace(d.RUT) == "" || !rut.Validate(d.RUT) {
		details = append(details, MsgInvalidRUT)
	}
	if utf8.RuneCountInString(strings.TrimSpace(d.LegalName)) < minInvoiceFieldLength {
		details = append(details, MsgMissingLegalName)
	}
	if utf8.RuneCountInString(strings.TrimSpace(d.Activity)) < minInvoiceFieldLength {
		details = append(details, MsgMissingActivity)
	}
	return details
}

// ResolveForOrder picks the document kind for a paid order. Incomplete
// invoice data silently downgrades to a receipt; Reasons say why.
func ResolveForOrder(d FiscalData) Resolution {
	if !d.InvoiceRequested {
		return Resolution{Kind: Receipt}
	}

	if reasons := CheckInvoiceData(d); len(reasons) > 0 {
		return Resolution{Kind: Receipt, Downgraded: true, Reasons: reasons}
	}
	return Resolution{Kind: Invoice}
}

// ResolveForDirect picks the document kind for a direct emission request.
// Incomplete invoice data is a *ValidationError listing every violation.
func ResolveForDirect(d FiscalData) (Kind, error) {
	if !d.InvoiceRequested {
		return Receipt, nil
	}

	if err := NewValidationError(CheckInvoiceData(d)); err != nil {
		return 0, err
	}
	return Invoice, nil
}
