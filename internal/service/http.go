package service

import (
	"errors"
	"net/http"

	"github.com/fdygg/growledger/internal/httputil"
)

// HTTPStatus maps an ErrorKind to its corresponding HTTP status code.
func (k ErrorKind) HTTPStatus() int {
	switch k {
	case ErrValidation:
		return http.StatusBadRequest
	case ErrAuthentication:
		return http.StatusUnauthorized
	case ErrNotFound:
		return http.StatusNotFound
	case ErrConflict, ErrInsufficientFunds:
		return http.StatusConflict
	case ErrInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// RespondError writes an appropriate HTTP error response for a service error.
// If the error is a *service.Error, it uses the error's kind/type/message.
// Otherwise, it returns a generic 500.
func RespondError(w http.ResponseWriter, r *http.Request, err error) {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		httputil.RespondError(w, r, svcErr.Kind.HTTPStatus(), svcErr.Type, svcErr.Message)
		return
	}
	httputil.RespondError(w, r, http.StatusInternalServerError, "InternalServerError", "An unexpected error occurred")
}
