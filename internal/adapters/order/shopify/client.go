package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"agourmet/ms_dte_bridge/internal/core/dte"
	"agourmet/ms_dte_bridge/internal/core/emission"
	"agourmet/ms_dte_bridge/internal/core/order"
)

// ServiceName identifies Shopify in upstream errors and audit records.
const ServiceName = "Shopify"

// DefaultAPIVersion is the Admin REST API version used when none is configured.
const DefaultAPIVersion = "2024-01"

// Metafield keys written for every emitted document.
const (
	KeyFolio     = "folio"
	KeyPDFURL    = "pdf_url"
	KeyXMLURL    = "xml_url"
	KeyKind      = "tipo_dte"
	KeyIssueDate = "fecha_emision"
)

const metafieldType = "single_line_text_field"

// HTTPClient is satisfied by *http.Client and the traced client.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client talks to the Shopify Admin REST API. It reads orders and keeps
// emission records as order metafields.
type Client struct {
	baseURL     string
	accessToken string
	httpClient  HTTPClient
	log         *slog.Logger
}

// NewClient creates a Shopify Admin API client for a store domain
// ("my-store.myshopify.com") or a full base URL.
func NewClient(storeDomain, apiVersion, accessToken string, httpClient HTTPClient, log *slog.Logger) *Client {
	if apiVersion == "" {
		apiVersion = DefaultAPIVersion
	}
	root := strings.TrimRight(storeDomain, "/")
	if !strings.HasPrefix(root, "http://") && !strings.HasPrefix(root, "https://") {
		root = "https://" + root
	}
	return &Client{
		baseURL:     root + "/admin/api/" + apiVersion,
		accessToken: accessToken,
		httpClient:  httpClient,
		log:         log,
	}
}

var (
	_ order.Source   = (*Client)(nil)
	_ emission.Store = (*Client)(nil)
)

type metafield struct {
	ID        int64     `json:"id"`
	Namespace string    `json:"namespace"`
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	CreatedAt time.Time `json:"created_at"`
}

type metafieldInput struct {
	Namespace string `json:"namespace"`
	Key       string `json:"key"`
	Value     string `json:"value"`
	Type      string `json:"type"`
}

type metafieldsResponse struct {
	Metafields []metafield `json:"metafields"`
}

type metafieldRequest struct {
	Metafield metafieldInput `json:"metafield"`
}

type orderResponse struct {
	Order order.Order `json:"order"`
}

// GetOrder fetches an order. Returns order.ErrNotFound when Shopify answers 404.
func (c *Client) GetOrder(ctx context.Context, orderID int64) (*order.Order, error) {
	endpoint := fmt.Sprintf("%s/orders/%d.json", c.baseURL, orderID)

	body, status, err := c.do(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, order.ErrNotFound
	}
	if !success(status) {
		return nil, &dte.UpstreamError{Service: ServiceName, StatusCode: status, Body: string(body)}
	}

	var resp orderResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		c.log.Error("Failed to unmarshal Shopify order", "error", err, "order_id", orderID)
		return nil, fmt.Errorf("unmarshal order: %w", err)
	}
	return &resp.Order, nil
}

// Ping checks that the store answers with the configured credentials.
func (c *Client) Ping(ctx context.Context) error {
	body, status, err := c.do(ctx, http.MethodGet, c.baseURL+"/shop.json", nil)
	if err != nil {
		return err
	}
	if !success(status) {
		return &dte.UpstreamError{Service: ServiceName, StatusCode: status, Body: string(body)}
	}
	return nil
}

// Get reads the emission record kept in the order's metafields under namespace.
// Returns nil if no folio was recorded.
func (c *Client) Get(ctx context.Context, orderID, namespace string) (*emission.Record, error) {
	endpoint := fmt.Sprintf("%s/orders/%s/metafields.json?namespace=%s",
		c.baseURL, url.PathEscape(orderID), url.QueryEscape(namespace))

	body, status, err := c.do(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, nil
	}
	if !success(status) {
		return nil, &dte.UpstreamError{Service: ServiceName, StatusCode: status, Body: string(body)}
	}

	var resp metafieldsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("unmarshal metafields: %w", err)
	}

	rec := emission.Record{OrderID: orderID}
	for _, mf := range resp.Metafields {
		if mf.Namespace != "" && mf.Namespace != namespace {
			continue
		}
		switch mf.Key {
		case KeyFolio:
			rec.Folio = mf.Value
			rec.EmittedAt = mf.CreatedAt
		case KeyPDFURL:
			rec.PDFURL = mf.Value
		case KeyXMLURL:
			rec.XMLURL = mf.Value
		case KeyKind:
			if kind, ok := dte.ParseKind(mf.Value); ok {
				rec.Kind = kind
			}
		case KeyIssueDate:
			rec.IssueDate = mf.Value
		}
	}

	if rec.Folio == "" {
		return nil, nil
	}
	return &rec, nil
}

// Put writes the record as order metafields. Each key is posted on its own;
// blank values are skipped. The folio is written first.
func (c *Client) Put(ctx context.Context, orderID, namespace string, rec emission.Record) error {
	fields := []metafieldInput{
		{Key: KeyFolio, Value: rec.Folio},
		{Key: KeyPDFURL, Value: rec.PDFURL},
		{Key: KeyXMLURL, Value: rec.XMLURL},
		{Key: KeyIssueDate, Value: rec.IssueDate},
	}
	if rec.Kind.Valid() {
		fields = append(fields, metafieldInput{Key: KeyKind, Value: rec.Kind.Code()})
	}

	endpoint := fmt.Sprintf("%s/orders/%s/metafields.json", c.baseURL, url.PathEscape(orderID))

	for _, field := range fields {
		if field.Value == "" {
			continue
		}
		field.Namespace = namespace
		field.Type = metafieldType

		payload, err := json.Marshal(metafieldRequest{Metafield: field})
		if err != nil {
			return fmt.Errorf("marshal metafield %s: %w", field.Key, err)
		}

		body, status, err := c.do(ctx, http.MethodPost, endpoint, payload)
		if err != nil {
			return fmt.Errorf("write metafield %s: %w", field.Key, err)
		}
		if !success(status) {
			return fmt.Errorf("write metafield %s: %w", field.Key,
				&dte.UpstreamError{Service: ServiceName, StatusCode: status, Body: string(body)})
		}
	}

	c.log.Debug("Emission recorded in order metafields",
		"order_id", orderID,
		"namespace", namespace,
		"folio", rec.Folio,
	)
	return nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, payload []byte) ([]byte, int, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("X-Shopify-Access-Token", c.accessToken)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Error("Failed to execute request to Shopify", "error", err, "method", method)
		return nil, 0, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read response body: %w", err)
	}

	if !success(resp.StatusCode) {
		c.log.Warn("Shopify API returned non-success status",
			"method", method,
			"status", resp.StatusCode,
			"body", string(body),
		)
	}
	return body, resp.StatusCode, nil
}

func success(status int) bool {
	return status >= 200 && status <= 299
}
