package lioren

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"agourmet/ms_dte_bridge/internal/core/dte"
)

// ServiceName identifies Lioren in upstream errors and audit records.
const ServiceName = "Lioren"

// DefaultBaseURL is the production API root.
const DefaultBaseURL = "https://www.lioren.cl/api"

// HTTPClient is satisfied by *http.Client and the traced client.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

var endpoints = map[dte.Kind]string{
	dte.Receipt:    "/boletas",
	dte.Invoice:    "/dtes",
	dte.CreditNote: "/notas-credito",
}

// Client implements dte.Provider against the Lioren REST API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient HTTPClient
	breaker    *Breaker
	log        *slog.Logger
}

// NewClient creates a Lioren API client.
func NewClient(baseURL, apiKey string, httpClient HTTPClient, log *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: httpClient,
		log:        log,
	}
}

var _ dte.Provider = (*Client)(nil)

// WithBreaker makes Submit fail fast with dte.ErrProviderUnavailable while b
// is open.
func (c *Client) WithBreaker(b *Breaker) *Client {
	c.breaker = b
	return c
}

// EndpointURL returns the absolute URL documents of kind are posted to.
func (c *Client) EndpointURL(kind dte.Kind) string {
	return c.baseURL + endpoints[kind]
}

// Submit posts the document and decodes the assigned folio and artifact URLs.
func (c *Client) Submit(ctx context.Context, kind dte.Kind, doc dte.DocumentRequest) (*dte.EmissionResult, error) {
	if _, ok := endpoints[kind]; !ok {
		return nil, fmt.Errorf("unsupported document kind %s", kind.Code())
	}

	if c.breaker == nil {
		return c.submit(ctx, kind, doc)
	}
	if err := c.breaker.Allow(); err != nil {
		c.log.Warn("Lioren circuit open, document not submitted", "kind", kind.Code())
		return nil, err
	}
	result, err := c.submit(ctx, kind, doc)
	c.breaker.Record(err)
	return result, err
}

func (c *Client) submit(ctx context.Context, kind dte.Kind, doc dte.DocumentRequest) (*dte.EmissionResult, error) {
	payload, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}

	url := c.EndpointURL(kind)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	c.log.Debug("Submitting document to Lioren", "kind", kind.Code(), "url", url, "lines", len(doc.Details))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Error("Failed to execute request to Lioren", "error", err, "url", url)
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.log.Error("Failed to read response body from Lioren", "error", err, "status", resp.StatusCode)
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.log.Error("Lioren API returned non-success status",
			"kind", kind.Code(),
			"status", resp.StatusCode,
			"body", string(body),
		)
		return nil, &dte.UpstreamError{
			Service:    ServiceName,
			StatusCode: resp.StatusCode,
			Body:       string(body),
		}
	}

	var result dte.EmissionResult
	if err := json.Unmarshal(body, &result); err != nil {
		c.log.Error("Failed to unmarshal Lioren response", "error", err, "body", string(body))
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	c.log.Info("Document emitted by Lioren",
		"kind", kind.Code(),
		"folio", result.Folio.String(),
		"has_pdf", result.PDFURL != "",
	)

	return &result, nil
}
