package rag

import (
	"errors"
	"fmt"
	"strings"
)

// Failure kinds surfaced by the query client and the session layer.
var (
	// ErrValidation indicates the request was rejected before any network I/O.
	ErrValidation = errors.New("validation error")

	// ErrAlreadyInFlight indicates a request of the same kind is still pending.
	ErrAlreadyInFlight = errors.New("request already in flight")

	// ErrTransport indicates the backend was unreachable or answered with a non-success status.
	ErrTransport = errors.New("transport error")

	// ErrParse indicates the backend response did not have the expected shape.
	ErrParse = errors.New("parse error")
)

// Error describes a failed backend operation.
type Error struct {
	Op         string
	Kind       error
	StatusCode int
	Detail     string
	Err        error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	b.WriteString(": ")
	b.WriteString(e.Kind.Error())
	if e.StatusCode > 0 {
		fmt.Fprintf(&b, " (status %d)", e.StatusCode)
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func validationError(op, detail string) error {
	return &Error{Op: op, Kind: ErrValidation, Detail: detail}
}

func transportError(op string, status int, detail string, err error) error {
	return &Error{Op: op, Kind: ErrTransport, StatusCode: status, Detail: detail, Err: err}
}

func parseError(op, detail string, err error) error {
	return &Error{Op: op, Kind: ErrParse, Detail: detail, Err: err}
}

// Message returns the text a presentation layer should show in place of a
// result for the given failure.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var rerr *Error
	if errors.As(err, &rerr) {
		switch {
		case errors.Is(rerr.Kind, ErrTransport) && rerr.StatusCode > 0 && rerr.Detail != "":
			return fmt.Sprintf("Backend error (%d): %s", rerr.StatusCode, rerr.Detail)
		case errors.Is(rerr.Kind, ErrTransport) && rerr.StatusCode > 0:
			return fmt.Sprintf("Backend error (%d).", rerr.StatusCode)
		case errors.Is(rerr.Kind, ErrTransport):
			return "Unable to reach the backend: " + causeText(rerr)
		case errors.Is(rerr.Kind, ErrParse):
			return "Unexpected response from the backend: " + causeText(rerr)
		case errors.Is(rerr.Kind, ErrValidation):
			return capitalize(rerr.Detail) + "."
		}
	}
	return err.Error()
}

func causeText(e *Error) string {
	switch {
	case e.Detail != "" && e.Err != nil:
		return e.Detail + ": " + e.Err.Error()
	case e.Detail != "":
		return e.Detail
	case e.Err != nil:
		return e.Err.Error()
	default:
		return e.Kind.Error()
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
