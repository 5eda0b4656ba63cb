// Package httputil centralizes JSON response writing so every handler emits
// the same envelope. Error descriptions for internal failures are withheld to
// avoid leaking implementation detail (or PHI) to clients.
package httputil

import (
	"encoding/json"
	"net/http"
)

// ErrorResponse is the uniform JSON error envelope.
type ErrorResponse struct {
	Error       string `json:"error"`
	Description string `json:"error_description,omitempty"`
	RetryAfter  int    `json:"retry_after,omitempty"`
}

// WriteJSON serializes v with the given status. Encoding failures are not
// recoverable mid-response, so they are swallowed.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes the error envelope. 5xx responses omit the description so
// internal failure text never reaches the client.
func WriteError(w http.ResponseWriter, status int, code, description string) {
	resp := ErrorResponse{Error: code}
	if status < http.StatusInternalServerError {
		resp.Description = description
	}
	WriteJSON(w, status, resp)
}
