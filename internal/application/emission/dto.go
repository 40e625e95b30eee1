package emission

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"

	"github.com/shopspring/decimal"

	"agourmet/ms_dte_bridge/internal/core/dte"
)

// Validation messages for direct emission requests.
const (
	MsgInvalidDocType = "Tipo de documento inválido"
	MsgItemsRequired  = "Items de venta requeridos"
	MsgTotalPositive  = "Total de venta debe ser mayor a 0"
)

// FlexString decodes a JSON string or number into a string. Storefront
// scripts send ids and document types either way.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = FlexString(n.String())
	return nil
}

func (f FlexString) String() string {
	return strings.TrimSpace(string(f))
}

// DirectRequest is the body of a direct emission or validation request.
type DirectRequest struct {
	DocType     FlexString      `json:"docType"`
	RUT         string          `json:"rut"`
	Company     string          `json:"company"`
	Giro        string          `json:"giro"`
	Items       []DirectItem    `json:"items"`
	Total       decimal.Decimal `json:"total"`
	OrderNumber FlexString      `json:"orderNumber"`
	Shipping    *DirectShipping `json:"shipping,omitempty"`
	Commune     string          `json:"commune,omitempty"`
	Email       string          `json:"email,omitempty"`
	Phone       string          `json:"phone,omitempty"`
}

type DirectItem struct {
	SKU         FlexString      `json:"sku"`
	VariantID   FlexString      `json:"variant_id"`
	Title       string          `json:"title"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
}

type DirectShipping struct {
	Address1 string `json:"address1"`
	City     string `json:"city"`
}

// FiscalData returns the invoice preference and data of the request.
func (r DirectRequest) FiscalData() dte.FiscalData {
	return dte.FiscalData{
		InvoiceRequested: r.DocType.String() == dte.Invoice.Code(),
		RUT:              r.RUT,
		LegalName:        r.Company,
		Activity:         r.Giro,
	}
}

// Validate resolves the document kind, or returns a *dte.ValidationError
// listing every problem found.
func (r DirectRequest) Validate() (dte.Kind, error) {
	var details []string

	kind, ok := dte.ParseKind(r.DocType.String())
	if !ok || kind == dte.CreditNote {
		details = append(details, MsgInvalidDocType)
	}

	if ok && kind == dte.Invoice {
		if _, err := dte.ResolveForDirect(r.FiscalData()); err != nil {
			var verr *dte.ValidationError
			if !errors.As(err, &verr) {
				return 0, err
			}
			details = append(details, verr.Details...)
		}
	}

	if len(r.Items) == 0 {
		details = append(details, MsgItemsRequired)
	}
	if !r.Total.IsPositive() {
		details = append(details, MsgTotalPositive)
	}

	if err := dte.NewValidationError(details); err != nil {
		return 0, err
	}
	return kind, nil
}

// SaleLines maps request items to sale lines. The title is preferred over
// the name; the description falls back to the title.
func (r DirectRequest) SaleLines() []dte.SaleLine {
	lines := make([]dte.SaleLine, len(r.Items))
	for i, item := range r.Items {
		name := firstNonEmpty(item.Title, item.Name)
		lines[i] = dte.SaleLine{
			SKU:         item.SKU.String(),
			VariantID:   item.VariantID.String(),
			Name:        name,
			Description: firstNonEmpty(item.Description, item.Title),
			Quantity:    item.Quantity,
			UnitPrice:   item.Price,
		}
	}
	return lines
}

// Buyer returns the receiver data of the request.
func (r DirectRequest) Buyer() dte.Party {
	party := dte.Party{
		RUT:       r.RUT,
		LegalName: r.Company,
		Activity:  r.Giro,
		Commune:   r.Commune,
		Email:     r.Email,
		Phone:     r.Phone,
	}
	if r.Shipping != nil {
		party.Address = r.Shipping.Address1
		if party.Commune == "" {
			party.Commune = r.Shipping.City
		}
	}
	return party
}

// Label is the order reference printed in the observations.
func (r DirectRequest) Label() string {
	return firstNonEmpty(r.OrderNumber.String(), "N/A")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
