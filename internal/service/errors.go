package service

import (
	"errors"
	"fmt"
)

// Error is a domain error returned by service methods.
// Handlers map these to appropriate HTTP responses exactly once, at the
// boundary. Type is the wire-visible error class (e.g. "ValidationError").
type Error struct {
	Kind    ErrorKind
	Type    string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// ErrorKind classifies domain errors for HTTP status mapping.
type ErrorKind int

const (
	ErrValidation        ErrorKind = iota // 400
	ErrAuthentication                     // 401
	ErrNotFound                           // 404
	ErrConflict                           // 409
	ErrInsufficientFunds                  // 409
	ErrInternal                           // 500
)

func NewValidation(message string) *Error {
	return &Error{Kind: ErrValidation, Type: "ValidationError", Message: message}
}

func NewAuthentication(message string) *Error {
	return &Error{Kind: ErrAuthentication, Type: "AuthenticationError", Message: message}
}

func NewInvalidToken(message string) *Error {
	return &Error{Kind: ErrAuthentication, Type: "InvalidTokenError", Message: message}
}

func NewTokenExpired(message string) *Error {
	return &Error{Kind: ErrAuthentication, Type: "TokenExpiredError", Message: message}
}

func NewNotFound(message string) *Error {
	return &Error{Kind: ErrNotFound, Type: "NotFoundError", Message: message}
}

func NewConflict(message string) *Error {
	return &Error{Kind: ErrConflict, Type: "ConflictError", Message: message}
}

func NewInsufficientFunds(message string) *Error {
	return &Error{Kind: ErrInsufficientFunds, Type: "InsufficientFundsError", Message: message}
}

func NewInternal(message string) *Error {
	return &Error{Kind: ErrInternal, Type: "InternalServerError", Message: message}
}

// IsAuthFailure reports whether err is an authentication-class error, as
// opposed to an infrastructure failure that happened during authentication.
func IsAuthFailure(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == ErrAuthentication
}
