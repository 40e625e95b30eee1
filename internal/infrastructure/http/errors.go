package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// ErrorResponse is the failure envelope returned by every endpoint.
type ErrorResponse struct {
	Success bool     `json:"success"`
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
}

// WriteError writes a failure envelope with the given status code.
// Details are omitted from the body when empty.
func WriteError(w http.ResponseWriter, statusCode int, message string, details []string, log *slog.Logger) {
	writeJSON(w, statusCode, ErrorResponse{
		Success: false,
		Error:   message,
		Details: details,
	}, log)
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any, log *slog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		// If encoding fails, log the error but don't try to write again
		// as the status code has already been written
		if log != nil {
			log.Error("failed to encode response", "error", err)
		}
	}
}
