// Package apperr is the small error taxonomy shared by the proxy, the gateway
// client and the session shell.
package apperr

import (
	"errors"
	"net/http"
)

type Kind string

const (
	Validation    Kind = "validation"
	Transport     Kind = "transport"
	Configuration Kind = "configuration"
	Provider      Kind = "provider"
)

// Error carries a user-facing message and, optionally, the error that caused it.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Msg == "" && e.Err != nil:
		return e.Err.Error()
	case e.Err != nil:
		return e.Msg + ": " + e.Err.Error()
	default:
		return e.Msg
	}
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, msg string) *Error { return &Error{Kind: kind, Msg: msg} }

func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf reports the kind of the outermost *Error in err's chain that has one.
// Errors outside the taxonomy are treated as provider failures.
func KindOf(err error) Kind {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			break
		}
		if e.Kind != "" {
			return e.Kind
		}
		err = e.Err
	}
	return Provider
}

// Status maps a kind to the HTTP status the proxy answers with.
func Status(k Kind) int {
	switch k {
	case Validation:
		return http.StatusBadRequest
	case Configuration:
		return http.StatusInternalServerError
	default:
		return http.StatusBadGateway
	}
}
