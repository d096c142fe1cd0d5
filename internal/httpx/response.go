package httpx

import (
	"encoding/json"
	"net/http"
)

// ErrorResponse is the uniform error body: a stable machine-readable
// code plus optional human detail.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Details any    `json:"details,omitempty"`
}

// JSON writes payload as a JSON response with the given status.
func JSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		// headers already sent; nothing useful left to do
		_ = err
	}
}

// JSONError writes a uniform error body.
func JSONError(w http.ResponseWriter, status int, code, message string) {
	JSON(w, status, ErrorResponse{Error: code, Message: message})
}

// JSONErrorDetails writes an error body with structured details
// (typically per-field validation problems).
func JSONErrorDetails(w http.ResponseWriter, status int, code string, details any) {
	JSON(w, status, ErrorResponse{Error: code, Details: details})
}

// MethodNotAllowed sets the Allow header and writes the standard body.
func MethodNotAllowed(w http.ResponseWriter, allow string) {
	w.Header().Set("Allow", allow)
	JSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", "")
}
