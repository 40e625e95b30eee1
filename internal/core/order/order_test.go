package order

import (
	"encoding/json"
	"testing"

	"agourmet/ms_dte_bridge/internal/core/dte"
)

const paidOrderJSON = `{
  "id": 5551234567890,
  "order_number": 1001,
  "name": "#1001",
  "email": "order@example.cl",
  "created_at": "2024-02-10T15:04:05-03:00",
  "total_price": "3570.00",
  "note_attributes": [
    {"name": "billing_document_type", "value": "factura"},
    {"name": "billing_rut", "value": " 76.086.428-5 "},
    {"name": "billing_company_name", "value": "A Gourmet SpA"},
    {"name": "billing_business_type", "value": "Venta de alimentos"}
  ],
  "line_items": [
    {"id": 11, "sku": "A-1", "variant_id": 901, "title": "Aceite", "name": "Aceite - 500 ml", "variant_title": "500 ml", "quantity": 1, "price": "1190.00"},
    {"id": 12, "sku": "", "variant_id": null, "title": "Vinagre", "name": "", "variant_title": null, "quantity": 1, "price": "2380.00"}
  ],
  "shipping_address": {"address1": "Av. Providencia 123", "city": "Providencia", "province": "Región Metropolitana", "phone": "912345678"},
  "customer": {"email": "buyer@example.cl"}
}`

func decodeOrder(t *testing.T) Order {
	t.Helper()
	var o Order
	if err := json.Unmarshal([]byte(paidOrderJSON), &o); err != nil {
		t.Fatalf("failed to decode order: %v", err)
	}
	return o
}

func TestOrder_FiscalData(t *testing.T) {
	o := decodeOrder(t)
	data := o.FiscalData()

	if !data.InvoiceRequested {
		t.Error("expected invoice to be requested")
	}
	if data.RUT != "76.086.428-5" {
		t.Errorf("expected trimmed RUT, got %q", data.RUT)
	}
	if res := dte.ResolveForOrder(data); res.Kind != dte.Invoice {
		t.Errorf("expected invoice, got %s", res.Kind)
	}
}

func TestOrder_FiscalData_DefaultsToReceipt(t *testing.T) {
	o := Order{NoteAttributes: []NoteAttribute{{Name: AttrDocumentType, Value: "boleta"}}}
	if o.FiscalData().InvoiceRequested {
		t.Error("expected receipt preference")
	}
}

func TestOrder_SaleLines(t *testing.T) {
	o := decodeOrder(t)
	lines := o.SaleLines()

	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if lines[0].ID != "11" || lines[0].VariantID != "901" || lines[0].Name != "Aceite - 500 ml" {
		t.Errorf("unexpected first line: %+v", lines[0])
	}
	if lines[1].Name != "Vinagre" {
		t.Errorf("expected title fallback, got %q", lines[1].Name)
	}
	if lines[1].VariantID != "" {
		t.Errorf("expected empty variant id, got %q", lines[1].VariantID)
	}

	details := dte.MapLines(lines, dte.TaxInclusive)
	if details[0].Price != 1000 || details[1].Price != 2000 {
		t.Errorf("expected prices 1000 and 2000, got %d and %d", details[0].Price, details[1].Price)
	}
	if details[1].Code != "PROD-2" {
		t.Errorf("expected synthetic code PROD-2, got %s", details[1].Code)
	}
}

func TestOrder_Buyer(t *testing.T) {
	o := decodeOrder(t)
	buyer := o.Buyer()

	if buyer.Email != "buyer@example.cl" {
		t.Errorf("expected customer email, got %q", buyer.Email)
	}
	if buyer.Address != "Av. Providencia 123" {
		t.Errorf("unexpected address %q", buyer.Address)
	}
	if buyer.Phone != "912345678" {
		t.Errorf("unexpected phone %q", buyer.Phone)
	}
}

func TestOrder_Label(t *testing.T) {
	if got := (Order{OrderNumber: 1001}).Label(); got != "#1001" {
		t.Errorf("expected #1001, got %s", got)
	}
	if got := (Order{Name: "#A-7"}).Label(); got != "#A-7" {
		t.Errorf("expected #A-7, got %s", got)
	}
}

func TestRefund_Lines(t *testing.T) {
	var r Refund
	body := `{"id": 77, "order_id": 5551234567890, "refund_line_items": [{"id": 1, "line_item_id": 11, "quantity": 2}]}`
	if err := json.Unmarshal([]byte(body), &r); err != nil {
		t.Fatalf("failed to decode refund: %v", err)
	}

	lines := r.Lines()
	if len(lines) != 1 || lines[0].LineID != "11" || lines[0].Quantity != 2 {
		t.Errorf("unexpected refund lines: %+v", lines)
	}
	if r.OrderKey() != "5551234567890" {
		t.Errorf("unexpected order key %s", r.OrderKey())
	}
}
