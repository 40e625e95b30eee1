package shopify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"agourmet/ms_dte_bridge/internal/core/dte"
	"agourmet/ms_dte_bridge/internal/core/emission"
	"agourmet/ms_dte_bridge/internal/core/order"
	"agourmet/ms_dte_bridge/internal/testutil"
)

func newTestClient(server *httptest.Server) *Client {
	return NewClient(server.URL, "", "shpat_test", server.Client(), testutil.NewTestLogger())
}

func TestNewClient_BaseURL(t *testing.T) {
	tests := []struct {
		name        string
		storeDomain string
		apiVersion  string
		want        string
	}{
		{"bare domain", "agourmet.myshopify.com", "2024-01", "https://agourmet.myshopify.com/admin/api/2024-01"},
		{"full URL with slash", "http://localhost:9000/", "2024-04", "http://localhost:9000/admin/api/2024-04"},
		{"default version", "agourmet.myshopify.com", "", "https://agourmet.myshopify.com/admin/api/" + DefaultAPIVersion},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewClient(tt.storeDomain, tt.apiVersion, "token", &http.Client{}, testutil.NewTestLogger())
			if c.baseURL != tt.want {
				t.Errorf("baseURL = %q, want %q", c.baseURL, tt.want)
			}
		})
	}
}

func TestClient_GetOrder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/admin/api/2024-01/orders/5001.json" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("X-Shopify-Access-Token") != "shpat_test" {
			t.Errorf("expected access token header, got %q", r.Header.Get("X-Shopify-Access-Token"))
		}
		w.Write([]byte(`{"order":{"id":5001,"order_number":1001,"created_at":"2024-02-20T10:00:00-03:00",
			"note_attributes":[{"name":"billing_rut","value":"76.086.428-5"}],
			"line_items":[{"id":11,"sku":"QG-1","title":"Queso Gouda","quantity":2,"price":"4760.00"}]}}`))
	}))
	defer server.Close()

	o, err := newTestClient(server).GetOrder(context.Background(), 5001)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if o.ID != 5001 || o.Label() != "#1001" {
		t.Errorf("unexpected order %d %s", o.ID, o.Label())
	}
	if o.Attribute(order.AttrRUT) != "76.086.428-5" {
		t.Errorf("unexpected RUT attribute %q", o.Attribute(order.AttrRUT))
	}
	if len(o.LineItems) != 1 || o.LineItems[0].Price.String() != "4760" {
		t.Errorf("unexpected line items %+v", o.LineItems)
	}
}

func TestClient_GetOrder_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"errors":"Not Found"}`))
	}))
	defer server.Close()

	_, err := newTestClient(server).GetOrder(context.Background(), 1)
	if !errors.Is(err, order.ErrNotFound) {
		t.Fatalf("expected order.ErrNotFound, got %v", err)
	}
}

func TestClient_GetOrder_UpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	_, err := newTestClient(server).GetOrder(context.Background(), 1)
	var upstream *dte.UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatalf("expected *dte.UpstreamError, got %v", err)
	}
	if upstream.StatusCode != http.StatusTooManyRequests {
		t.Errorf("expected status 429, got %d", upstream.StatusCode)
	}
}

func TestClient_Get(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/admin/api/2024-01/orders/5001/metafields.json" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if ns := r.URL.Query().Get("namespace"); ns != "lioren_dte" {
			t.Errorf("expected namespace lioren_dte, got %q", ns)
		}
		w.Write([]byte(`{"metafields":[
			{"id":1,"namespace":"lioren_dte","key":"folio","value":"1234","created_at":"2024-03-01T12:00:00-03:00"},
			{"id":2,"namespace":"lioren_dte","key":"pdf_url","value":"https://lioren.test/pdf/1234"},
			{"id":3,"namespace":"lioren_dte","key":"xml_url","value":"https://lioren.test/xml/1234"},
			{"id":4,"namespace":"lioren_dte","key":"tipo_dte","value":"33"},
			{"id":5,"namespace":"lioren_dte","key":"fecha_emision","value":"2024-03-01"},
			{"id":6,"namespace":"other","key":"folio","value":"999"}
		]}`))
	}))
	defer server.Close()

	rec, err := newTestClient(server).Get(context.Background(), "5001", "lioren_dte")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec == nil {
		t.Fatal("expected record, got nil")
	}
	if rec.Folio != "1234" {
		t.Errorf("expected folio '1234', got %q", rec.Folio)
	}
	if rec.Kind != dte.Invoice {
		t.Errorf("expected kind 33, got %s", rec.Kind.Code())
	}
	if rec.IssueDate != "2024-03-01" {
		t.Errorf("unexpected issue date %q", rec.IssueDate)
	}
	if rec.PDFURL != "https://lioren.test/pdf/1234" || rec.XMLURL != "https://lioren.test/xml/1234" {
		t.Errorf("unexpected artifact URLs %q %q", rec.PDFURL, rec.XMLURL)
	}
	if rec.EmittedAt.IsZero() {
		t.Error("expected emitted-at from folio metafield")
	}
}

func TestClient_Get_NoFolio(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"empty list", http.StatusOK, `{"metafields":[]}`},
		{"only urls", http.StatusOK, `{"metafields":[{"namespace":"lioren_dte","key":"pdf_url","value":"x"}]}`},
		{"order not found", http.StatusNotFound, `{"errors":"Not Found"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			rec, err := newTestClient(server).Get(context.Background(), "5001", "lioren_dte")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if rec != nil {
				t.Errorf("expected nil record, got %+v", rec)
			}
		})
	}
}

func TestClient_Get_UpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	if _, err := newTestClient(server).Get(context.Background(), "5001", "lioren_dte"); err == nil {
		t.Fatal("expected error for 401")
	}
}

func TestClient_Put(t *testing.T) {
	var mu sync.Mutex
	written := map[string]metafieldInput{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.URL.Path != "/admin/api/2024-01/orders/5001/metafields.json" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}

		var req metafieldRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode metafield: %v", err)
		}
		mu.Lock()
		written[req.Metafield.Key] = req.Metafield
		mu.Unlock()

		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"metafield":{"id":1}}`))
	}))
	defer server.Close()

	err := newTestClient(server).Put(context.Background(), "5001", "lioren_refund_77", emission.Record{
		Folio:     "88",
		Kind:      dte.CreditNote,
		IssueDate: "2024-03-01",
		PDFURL:    "https://lioren.test/pdf/88",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(written) != 4 {
		t.Fatalf("expected 4 metafields (blank XML skipped), got %d", len(written))
	}
	if _, ok := written[KeyXMLURL]; ok {
		t.Error("expected blank xml_url to be skipped")
	}
	folio := written[KeyFolio]
	if folio.Value != "88" || folio.Namespace != "lioren_refund_77" || folio.Type != "single_line_text_field" {
		t.Errorf("unexpected folio metafield %+v", folio)
	}
	if written[KeyKind].Value != "61" {
		t.Errorf("expected tipo_dte '61', got %q", written[KeyKind].Value)
	}
}

func TestClient_Put_Failure(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"errors":{"value":["can't be blank"]}}`))
	}))
	defer server.Close()

	err := newTestClient(server).Put(context.Background(), "5001", "lioren_dte", emission.Record{Folio: "1", PDFURL: "x"})
	if err == nil {
		t.Fatal("expected error")
	}
	var upstream *dte.UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatalf("expected wrapped *dte.UpstreamError, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected to stop after first failure, got %d calls", calls)
	}
}

func TestClient_Ping(t *testing.T) {
	status := http.StatusOK
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/admin/api/2024-01/shop.json" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.WriteHeader(status)
		w.Write([]byte(`{"shop":{"id":1}}`))
	}))
	defer server.Close()

	c := newTestClient(server)
	if err := c.Ping(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	status = http.StatusUnauthorized
	err := c.Ping(context.Background())
	var upstream *dte.UpstreamError
	if !errors.As(err, &upstream) || upstream.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected upstream 401, got %v", err)
	}
}
