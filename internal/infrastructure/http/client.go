package http

import (
	"net/http"
	"time"
)

// DefaultTimeout bounds every outbound call unless configured otherwise.
const DefaultTimeout = 30 * time.Second

// Doer executes HTTP requests. *http.Client and *TracedClient satisfy it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientConfig holds configuration for HTTP clients.
type ClientConfig struct {
	Timeout       time.Duration
	Transport     http.RoundTripper
	CheckRedirect func(req *http.Request, via []*http.Request) error
}

// NewClient creates an HTTP client. A nil config or zero timeout yields
// DefaultTimeout.
func NewClient(config *ClientConfig) *http.Client {
	if config == nil {
		config = &ClientConfig{}
	}

	timeout := config.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	client := &http.Client{Timeout: timeout}
	if config.Transport != nil {
		client.Transport = config.Transport
	}
	if config.CheckRedirect != nil {
		client.CheckRedirect = config.CheckRedirect
	}
	return client
}

var (
	_ Doer = (*http.Client)(nil)
	_ Doer = (*TracedClient)(nil)
)
