package middleware

import (
	"net/http"

	"github.com/fdygg/growledger/internal/httputil"
)

func respondError(w http.ResponseWriter, r *http.Request, status int, errType, message string) {
	httputil.RespondError(w, r, status, errType, message)
}
