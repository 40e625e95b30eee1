package http

import (
	"net/http"
	"testing"
	"time"
)

func TestNewClient(t *testing.T) {
	noRedirect := func(req *http.Request, via []*http.Request) error {
		return http.ErrUseLastResponse
	}

	tests := []struct {
		name          string
		config        *ClientConfig
		wantTimeout   time.Duration
		wantTransport http.RoundTripper
		wantRedirect  bool
	}{
		{"nil config", nil, DefaultTimeout, nil, false},
		{"zero timeout", &ClientConfig{}, DefaultTimeout, nil, false},
		{"negative timeout", &ClientConfig{Timeout: -time.Second}, DefaultTimeout, nil, false},
		{"provider timeout", &ClientConfig{Timeout: 10 * time.Second}, 10 * time.Second, nil, false},
		{
			"transport and redirect policy",
			&ClientConfig{Timeout: 15 * time.Second, Transport: http.DefaultTransport, CheckRedirect: noRedirect},
			15 * time.Second, http.DefaultTransport, true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := NewClient(tt.config)
			if client.Timeout != tt.wantTimeout {
				t.Errorf("timeout = %v, want %v", client.Timeout, tt.wantTimeout)
			}
			if client.Transport != tt.wantTransport {
				t.Errorf("unexpected transport %v", client.Transport)
			}
			if (client.CheckRedirect != nil) != tt.wantRedirect {
				t.Errorf("CheckRedirect set = %v, want %v", client.CheckRedirect != nil, tt.wantRedirect)
			}
		})
	}
}
