// Package apperr holds the error kinds shared by every Axiomind component and
// the single place where they are mapped to HTTP statuses and exit codes.
package apperr

import (
	"context"
	"errors"
	"net/http"
)

var (
	ErrNotFound     = errors.New("not_found")
	ErrInvalidInput = errors.New("invalid_input")
	ErrExpired      = errors.New("expired")
	ErrBusy         = errors.New("busy")
	ErrIO           = errors.New("io_error")
	ErrInternal     = errors.New("internal_error")
	ErrInterrupted  = errors.New("interrupted")
)

// Error tags an underlying error with a kind and a stable client-facing code.
type Error struct {
	Kind error
	Code string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Code
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// New returns a kind-tagged error with the given code and message.
func New(kind error, code, msg string) error {
	return &Error{Kind: kind, Code: code, Err: errors.New(msg)}
}

// Wrap tags err with kind and code. A nil err stays nil.
func Wrap(kind error, code string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Code: code, Err: err}
}

// Code returns the most specific client-facing code carried by err.
func Code(err error) string {
	var ae *Error
	if errors.As(err, &ae) && ae.Code != "" {
		return ae.Code
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return ErrNotFound.Error()
	case errors.Is(err, ErrInvalidInput):
		return ErrInvalidInput.Error()
	case errors.Is(err, ErrExpired):
		return ErrExpired.Error()
	case errors.Is(err, ErrBusy):
		return ErrBusy.Error()
	case errors.Is(err, ErrIO):
		return ErrIO.Error()
	case errors.Is(err, ErrInterrupted), errors.Is(err, context.Canceled):
		return ErrInterrupted.Error()
	default:
		return ErrInternal.Error()
	}
}

func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrExpired):
		return http.StatusGone
	case errors.Is(err, ErrBusy):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// ExitCode maps err to the CLI contract: 0 success, 130 interrupted, 2 otherwise.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrInterrupted), errors.Is(err, context.Canceled):
		return 130
	default:
		return 2
	}
}
