package service

import (
	"errors"
	"net/http"
	"testing"
)

func asServiceError(err error, target **Error) bool {
	return errors.As(err, target)
}

func TestErrorKindHTTPStatus(t *testing.T) {
	cases := []struct {
		kind ErrorKind
		want int
	}{
		{ErrValidation, http.StatusBadRequest},
		{ErrAuthentication, http.StatusUnauthorized},
		{ErrNotFound, http.StatusNotFound},
		{ErrConflict, http.StatusConflict},
		{ErrInsufficientFunds, http.StatusConflict},
		{ErrInternal, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := tc.kind.HTTPStatus(); got != tc.want {
			t.Fatalf("kind %d: expected %d, got %d", tc.kind, tc.want, got)
		}
	}
}

func TestIsAuthFailure(t *testing.T) {
	if !IsAuthFailure(NewAuthentication("bad credentials")) {
		t.Fatal("expected authentication errors to count as auth failures")
	}
	if !IsAuthFailure(NewTokenExpired("expired")) {
		t.Fatal("expected token expiry to count as an auth failure")
	}
	if IsAuthFailure(NewInternal("store down")) {
		t.Fatal("infrastructure failures must not count as auth failures")
	}
	if IsAuthFailure(errors.New("plain error")) {
		t.Fatal("plain errors must not count as auth failures")
	}
}
