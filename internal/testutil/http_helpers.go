package testutil

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

// SignWebhook returns the X-Shopify-Hmac-Sha256 value for body.
func SignWebhook(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// WebhookRequest builds a signed Shopify webhook delivery. An empty secret
// leaves the request unsigned.
func WebhookRequest(path, topic string, body []byte, secret string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Shopify-Topic", topic)
	if secret != "" {
		req.Header.Set("X-Shopify-Hmac-Sha256", SignWebhook(body, secret))
	}
	return req
}

// DecodeJSON unmarshals a recorded response body into a generic map.
func DecodeJSON(t testing.TB, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to unmarshal response: %v (%s)", err, w.Body.String())
	}
	return body
}
