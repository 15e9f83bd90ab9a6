package httputil

import (
	"encoding/json"
	"net/http"
	"time"
)

// ErrorResponse is the standard JSON error response body. Type carries the
// domain error class (e.g. "ValidationError", "TokenExpiredError").
type ErrorResponse struct {
	Detail    string    `json:"detail"`
	Message   string    `json:"message"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Path      string    `json:"path"`
}

// RespondJSON writes a JSON response with the given status code.
func RespondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// RespondError writes a JSON error response.
func RespondError(w http.ResponseWriter, r *http.Request, status int, errType, message string) {
	detail := "Request failed"
	if status >= http.StatusInternalServerError {
		detail = "Internal server error"
	}
	RespondJSON(w, status, ErrorResponse{
		Detail:    detail,
		Message:   message,
		Type:      errType,
		Timestamp: time.Now().UTC(),
		Path:      r.URL.Path,
	})
}
