package http

import (
	"log/slog"
	"net/http"
)

// SuccessResponse is the success envelope returned by every endpoint.
type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// WriteSuccess writes a success envelope with status 200.
func WriteSuccess(w http.ResponseWriter, message string, data any, log *slog.Logger) {
	writeJSON(w, http.StatusOK, SuccessResponse{
		Success: true,
		Message: message,
		Data:    data,
	}, log)
}
