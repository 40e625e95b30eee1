package context

import "context"

type contextKey string

const (
	// CorrelationIDKey holds the id of the inbound request. Outbound provider
	// calls and audit records made while serving it carry the same id.
	CorrelationIDKey contextKey = "correlation_id"

	// WebhookIDKey holds the Shopify delivery id of a webhook. Redeliveries
	// of the same event share it.
	WebhookIDKey contextKey = "webhook_id"

	// SubjectKey holds the "sub" claim of a verified bearer token.
	SubjectKey contextKey = "subject"
)

// WithCorrelationID adds a correlation ID to the context.
func WithCorrelationID(ctx context.Context, correlationID string) context.Context {
	return context.WithValue(ctx, CorrelationIDKey, correlationID)
}

// GetCorrelationID returns the correlation ID, or "" if none is set.
func GetCorrelationID(ctx context.Context) string {
	if id, ok := ctx.Value(CorrelationIDKey).(string); ok {
		return id
	}
	return ""
}

// WithWebhookID adds a webhook delivery ID to the context.
func WithWebhookID(ctx context.Context, webhookID string) context.Context {
	return context.WithValue(ctx, WebhookIDKey, webhookID)
}

// GetWebhookID returns the webhook delivery ID, or "" if none is set.
func GetWebhookID(ctx context.Context) string {
	if id, ok := ctx.Value(WebhookIDKey).(string); ok {
		return id
	}
	return ""
}

// WithSubject adds the authenticated caller to the context.
func WithSubject(ctx context.Context, subject string) context.Context {
	return context.WithValue(ctx, SubjectKey, subject)
}

// GetSubject returns the authenticated caller, or "" for anonymous requests.
func GetSubject(ctx context.Context) string {
	if sub, ok := ctx.Value(SubjectKey).(string); ok {
		return sub
	}
	return ""
}

// LogAttrs returns the request identifiers present in ctx as slog key/value
// pairs.
func LogAttrs(ctx context.Context) []any {
	attrs := make([]any, 0, 6)
	if id := GetCorrelationID(ctx); id != "" {
		attrs = append(attrs, "correlation_id", id)
	}
	if id := GetWebhookID(ctx); id != "" {
		attrs = append(attrs, "webhook_id", id)
	}
	if sub := GetSubject(ctx); sub != "" {
		attrs = append(attrs, "subject", sub)
	}
	return attrs
}
