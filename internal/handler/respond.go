package handler

import (
	"net/http"

	"github.com/fdygg/growledger/internal/httputil"
)

// RespondJSON writes a JSON response with the given status code.
func RespondJSON(w http.ResponseWriter, status int, data interface{}) {
	httputil.RespondJSON(w, status, data)
}

// RespondError writes a JSON error response.
func RespondError(w http.ResponseWriter, r *http.Request, status int, errType, message string) {
	httputil.RespondError(w, r, status, errType, message)
}
