package context

import (
	"context"
	"reflect"
	"testing"
)

func TestCorrelationID(t *testing.T) {
	tests := []struct {
		name string
		ctx  context.Context
		want string
	}{
		{"missing", context.Background(), ""},
		{"set", WithCorrelationID(context.Background(), "req-123"), "req-123"},
		{"empty", WithCorrelationID(context.Background(), ""), ""},
		{"wrong type", context.WithValue(context.Background(), CorrelationIDKey, 42), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetCorrelationID(tt.ctx); got != tt.want {
				t.Errorf("GetCorrelationID() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWebhookID_Independent(t *testing.T) {
	ctx := WithCorrelationID(context.Background(), "req-1")
	ctx = WithWebhookID(ctx, "b54557e4-bdd9-4b37-8a5f-bf7d70bcd043")

	if got := GetCorrelationID(ctx); got != "req-1" {
		t.Errorf("correlation id = %q, want req-1", got)
	}
	if got := GetWebhookID(ctx); got != "b54557e4-bdd9-4b37-8a5f-bf7d70bcd043" {
		t.Errorf("webhook id = %q", got)
	}
}

func TestLogAttrs(t *testing.T) {
	tests := []struct {
		name string
		ctx  context.Context
		want []any
	}{
		{"none", context.Background(), []any{}},
		{"correlation only", WithCorrelationID(context.Background(), "req-1"), []any{"correlation_id", "req-1"}},
		{
			"both",
			WithWebhookID(WithCorrelationID(context.Background(), "req-1"), "wh-9"),
			[]any{"correlation_id", "req-1", "webhook_id", "wh-9"},
		},
		{
			"authenticated retry",
			WithSubject(WithCorrelationID(context.Background(), "req-2"), "backoffice@agourmet.cl"),
			[]any{"correlation_id", "req-2", "subject", "backoffice@agourmet.cl"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := LogAttrs(tt.ctx); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("LogAttrs() = %v, want %v", got, tt.want)
			}
		})
	}
}
