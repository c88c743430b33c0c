// Package apperrors defines the coded error every component returns and the
// mapping from codes to HTTP statuses used when a request fails.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	EInternal     = "internal error"
	EInvalid      = "invalid"
	ENotFound     = "not found"
	EUnauthorized = "unauthorized"
	EUpstream     = "upstream"
	EUnavailable  = "unavailable"
)

// Error is a classified failure.
//
// Msg is safe to show to the caller. Err is the underlying cause and is only
// ever logged. Status, when set, overrides the status derived from Code; the
// token gate uses it to relay the identity service's verdict.
type Error struct {
	Code   string
	Msg    string
	Status int
	Err    error
}

func (e *Error) Error() string {
	switch {
	case e.Msg != "" && e.Err != nil:
		return e.Msg + ": " + e.Err.Error()
	case e.Msg != "":
		return e.Msg
	case e.Err != nil:
		return e.Err.Error()
	}
	return fmt.Sprintf("<%s>", e.Code)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func Invalid(msg string) *Error {
	return &Error{Code: EInvalid, Msg: msg}
}

func NotFound(msg string) *Error {
	return &Error{Code: ENotFound, Msg: msg}
}

func Unauthorized(status int, msg string) *Error {
	return &Error{Code: EUnauthorized, Status: status, Msg: msg}
}

func Upstream(msg string, err error) *Error {
	return &Error{Code: EUpstream, Msg: msg, Err: err}
}

func Unavailable(msg string, err error) *Error {
	return &Error{Code: EUnavailable, Msg: msg, Err: err}
}

func Internal(msg string, err error) *Error {
	return &Error{Code: EInternal, Msg: msg, Err: err}
}

var statusByCode = map[string]int{
	EInternal:     http.StatusInternalServerError,
	EInvalid:      http.StatusBadRequest,
	ENotFound:     http.StatusNotFound,
	EUnauthorized: http.StatusUnauthorized,
	EUpstream:     http.StatusInternalServerError,
	EUnavailable:  http.StatusServiceUnavailable,
}

// Code returns the code of the first *Error in err's chain, or EInternal.
func Code(err error) string {
	var e *Error
	if !errors.As(err, &e) || e.Code == "" {
		return EInternal
	}
	return e.Code
}

// HTTPStatus returns the response status for err.
func HTTPStatus(err error) int {
	var e *Error
	if errors.As(err, &e) && e.Status != 0 {
		return e.Status
	}
	if status, ok := statusByCode[Code(err)]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// Detail returns the caller-facing message for err. Unclassified errors and
// classified errors without a message get fallback, so internals never leak.
func Detail(err error, fallback string) string {
	var e *Error
	if errors.As(err, &e) && e.Msg != "" {
		return e.Msg
	}
	return fallback
}
