package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// ErrorResponse is the body of every failed API call
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// respondJSON sends a JSON response with the given status code.
// If data is nil, only the status code is sent.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("Failed to encode JSON response", slog.Any("error", err))
		}
	}
}

// respondError sends a structured error response
func respondError(w http.ResponseWriter, status int, message string, details any) {
	respondJSON(w, status, ErrorResponse{Error: message, Details: details})
}
