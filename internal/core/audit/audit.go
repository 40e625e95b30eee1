package audit

import (
	"context"
	"encoding/json"
	"time"
)

// ProviderAuditLog is one outbound call to Lioren or Shopify, with sanitized
// request and response details.
type ProviderAuditLog struct {
	ID              int64
	CorrelationID   string
	Provider        string
	Operation       string
	RequestMethod   string
	RequestURL      string
	RequestHeaders  map[string]string
	RequestBody     json.RawMessage
	ResponseStatus  *int
	ResponseHeaders map[string]string
	ResponseBody    json.RawMessage
	DurationMs      int64
	ErrorMessage    string
	CreatedAt       time.Time
}

// Failed reports whether the call errored or got a non-2xx answer.
func (l ProviderAuditLog) Failed() bool {
	if l.ErrorMessage != "" || l.ResponseStatus == nil {
		return true
	}
	return *l.ResponseStatus < 200 || *l.ResponseStatus > 299
}

// Repository persists audit logs.
type Repository interface {
	Save(ctx context.Context, log ProviderAuditLog) error

	// FindByCorrelationID returns every call made while serving one
	// inbound request, newest first.
	FindByCorrelationID(ctx context.Context, correlationID string) ([]ProviderAuditLog, error)
}
