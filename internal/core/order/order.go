package order

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"agourmet/ms_dte_bridge/internal/core/dte"
)

// Note attribute names the storefront checkout uses to carry fiscal data.
const (
	AttrDocumentType = "billing_document_type"
	AttrRUT          = "billing_rut"
	AttrCompanyName  = "billing_company_name"
	AttrBusinessType = "billing_business_type"
)

// InvoicePreference is the AttrDocumentType value that requests an invoice.
const InvoicePreference = "factura"

// ErrNotFound is returned by a Source when the order does not exist.
var ErrNotFound = errors.New("order not found")

// Source fetches orders from the e-commerce platform.
type Source interface {
	GetOrder(ctx context.Context, orderID int64) (*Order, error)
}

// Order is a paid storefront order.
type Order struct {
	ID              int64               `json:"id"`
	OrderNumber     int64               `json:"order_number"`
	Name            string              `json:"name"`
	Email           string              `json:"email"`
	CreatedAt       time.Time           `json:"created_at"`
	Currency        string              `json:"currency"`
	TotalPrice      decimal.NullDecimal `json:"total_price"`
	NoteAttributes  []NoteAttribute     `json:"note_attributes"`
	LineItems       []LineItem          `json:"line_items"`
	ShippingAddress *Address            `json:"shipping_address"`
	Customer        *Customer           `json:"customer"`
}

type NoteAttribute struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type LineItem struct {
	ID           int64           `json:"id"`
	SKU          string          `json:"sku"`
	VariantID    *int64          `json:"variant_id"`
	Title        string          `json:"title"`
	Name         string          `json:"name"`
	VariantTitle string          `json:"variant_title"`
	Quantity     int             `json:"quantity"`
	Price        decimal.Decimal `json:"price"`
}

type Address struct {
	Address1 string `json:"address1"`
	City     string `json:"city"`
	Province string `json:"province"`
	Phone    string `json:"phone"`
}

type Customer struct {
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// Attribute returns the trimmed value of the named note attribute, or "".
func (o Order) Attribute(name string) string {
	for _, attr := range o.NoteAttributes {
		if attr.Name == name {
			return strings.TrimSpace(attr.Value)
		}
	}
	return ""
}

// FiscalData extracts the buyer's document preference from note attributes.
func (o Order) FiscalData() dte.FiscalData {
	return dte.FiscalData{
		InvoiceRequested: strings.EqualFold(o.Attribute(AttrDocumentType), InvoicePreference),
		RUT:              o.Attribute(AttrRUT),
		LegalName:        o.Attribute(AttrCompanyName),
		Activity:         o.Attribute(AttrBusinessType),
	}
}

// Buyer collects receiver data from attributes, shipping address and customer.
func (o Order) Buyer() dte.Party {
	party := dte.Party{
		RUT:       o.Attribute(AttrRUT),
		LegalName: o.Attribute(AttrCompanyName),
		Activity:  o.Attribute(AttrBusinessType),
		Email:     o.Email,
	}
	if o.ShippingAddress != nil {
		party.Address = o.ShippingAddress.Address1
		party.Commune = o.ShippingAddress.City
		party.City = o.ShippingAddress.Province
		party.Phone = o.ShippingAddress.Phone
	}
	if o.Customer != nil && o.Customer.Email != "" {
		party.Email = o.Customer.Email
	}
	return party
}

// SaleLines converts line items to the core sale-line shape.
// Name prefers the full line name over the product title; the variant
// title is used as description.
func (o Order) SaleLines() []dte.SaleLine {
	lines := make([]dte.SaleLine, len(o.LineItems))
	for i, item := range o.LineItems {
		line := dte.SaleLine{
			ID:          strconv.FormatInt(item.ID, 10),
			SKU:         strings.TrimSpace(item.SKU),
			Name:        firstNonEmpty(item.Name, item.Title),
			Description: item.VariantTitle,
			Quantity:    item.Quantity,
			UnitPrice:   item.Price,
		}
		if item.VariantID != nil {
			line.VariantID = strconv.FormatInt(*item.VariantID, 10)
		}
		lines[i] = line
	}
	return lines
}

// Label is the order number as shown to the merchant ("#1001").
func (o Order) Label() string {
	if o.OrderNumber != 0 {
		return "#" + strconv.FormatInt(o.OrderNumber, 10)
	}
	if o.Name != "" {
		return o.Name
	}
	return "#" + strconv.FormatInt(o.ID, 10)
}

// Key is the identifier used for emission records.
func (o Order) Key() string {
	return strconv.FormatInt(o.ID, 10)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
