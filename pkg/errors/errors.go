// Package errors carries the API's error codes and the typed error that
// handlers return. The response writer maps a code to its HTTP status and
// decides how much of the error the client may see.
package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeValidation    Code = "VALIDATION_ERROR"
	CodeUnauthorized  Code = "UNAUTHORIZED"
	CodeForbidden     Code = "FORBIDDEN"
	CodeNotFound      Code = "NOT_FOUND"
	CodeConflict      Code = "CONFLICT"
	CodeUnprocessable Code = "UNPROCESSABLE_ENTITY"
	CodeRateLimit     Code = "RATE_LIMIT_EXCEEDED"
	CodeInternal      Code = "INTERNAL_ERROR"
	CodeDependency    Code = "DEPENDENCY_ERROR"
)

// clientFacing codes show the handler's own message; the rest show only the
// generic text below. Details are shown for the codes flagged here.
type codeInfo struct {
	status       int
	generic      string
	clientFacing bool
	details      bool
	retryable    bool
}

var codes = map[Code]codeInfo{
	CodeValidation:    {http.StatusBadRequest, "validation failed", true, true, false},
	CodeUnauthorized:  {http.StatusUnauthorized, "authentication required", true, false, false},
	CodeForbidden:     {http.StatusForbidden, "access denied", true, false, false},
	CodeNotFound:      {http.StatusNotFound, "resource not found", true, false, false},
	CodeConflict:      {http.StatusConflict, "conflict detected", true, true, false},
	CodeUnprocessable: {http.StatusUnprocessableEntity, "submission rejected", true, true, false},
	CodeRateLimit:     {http.StatusTooManyRequests, "rate limit exceeded", true, false, false},
	CodeInternal:      {http.StatusInternalServerError, "internal server error", false, false, true},
	CodeDependency:    {http.StatusServiceUnavailable, "dependency unavailable", false, false, true},
}

func (c Code) info() codeInfo {
	if info, ok := codes[c]; ok {
		return info
	}
	return codes[CodeInternal]
}

// Status is the HTTP status for c. Unknown codes map like CodeInternal.
func (c Code) Status() int { return c.info().status }

// Generic is the message shown when the error's own text must stay private.
func (c Code) Generic() string { return c.info().generic }

func (c Code) ClientFacing() bool { return c.info().clientFacing }

func (c Code) ShowsDetails() bool { return c.info().details }

func (c Code) Retryable() bool { return c.info().retryable }

// Error is a coded error with an optional cause and client-visible details.
type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

// Wrap attaches code and message to err; a nil err behaves like New.
func Wrap(code Code, err error, message string) *Error {
	return &Error{code: code, message: message, cause: err}
}

func (e *Error) WithDetails(details any) *Error {
	if e != nil {
		e.details = details
	}
	return e
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

func (e *Error) Error() string {
	switch {
	case e == nil:
		return ""
	case e.cause != nil:
		return fmt.Sprintf("%s: %s: %v", e.code, e.message, e.cause)
	default:
		return fmt.Sprintf("%s: %s", e.code, e.message)
	}
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// As returns the outermost *Error in err's chain, or nil.
func As(err error) *Error {
	var typed *Error
	if err != nil && stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

// IsCode reports whether the outermost *Error in err's chain has code.
func IsCode(err error, code Code) bool {
	typed := As(err)
	return typed != nil && typed.code == code
}
