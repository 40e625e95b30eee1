package testutil

import (
	"context"

	"agourmet/ms_dte_bridge/internal/core/dte"
)

// MockProvider is a mock implementation of dte.Provider for testing.
type MockProvider struct {
	SubmitFunc      func(ctx context.Context, kind dte.Kind, req dte.DocumentRequest) (*dte.EmissionResult, error)
	EndpointURLFunc func(kind dte.Kind) string

	Submitted []dte.DocumentRequest
}

// Submit records the request and calls the mock function if set, otherwise
// returns a result with folio "1".
func (m *MockProvider) Submit(ctx context.Context, kind dte.Kind, req dte.DocumentRequest) (*dte.EmissionResult, error) {
	m.Submitted = append(m.Submitted, req)
	if m.SubmitFunc != nil {
		return m.SubmitFunc(ctx, kind, req)
	}
	return &dte.EmissionResult{Folio: "1"}, nil
}

// EndpointURL calls the mock function if set, otherwise returns a fake URL.
func (m *MockProvider) EndpointURL(kind dte.Kind) string {
	if m.EndpointURLFunc != nil {
		return m.EndpointURLFunc(kind)
	}
	return "https://dte.test/" + kind.Code()
}

// Ensure MockProvider implements dte.Provider interface.
var _ dte.Provider = (*MockProvider)(nil)
