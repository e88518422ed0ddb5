package api

import (
	"errors"
	"fmt"
	"net/http"
)

// Failure is the only error type returned by Client calls.
type Failure struct {
	Op     string // logical operation, e.g. "delete_account"
	Method string
	Path   string
	Status int    // HTTP status, 0 when no response was received
	Detail string // server-supplied detail, verbatim
	Cause  error  // transport or decode error, nil for plain non-2xx responses
}

func (f *Failure) Error() string {
	switch {
	case f.Status != 0 && f.Detail != "":
		return fmt.Sprintf("%s: %d %s", f.Op, f.Status, f.Detail)
	case f.Cause != nil:
		return fmt.Sprintf("%s: %v", f.Op, f.Cause)
	default:
		return fmt.Sprintf("%s: status %d", f.Op, f.Status)
	}
}

// Unwrap exposes the transport cause.
func (f *Failure) Unwrap() error {
	return f.Cause
}

// Message is what an operator should see: the server detail when there is
// one, otherwise the transport cause.
func (f *Failure) Message() string {
	if f.Detail != "" {
		return f.Detail
	}
	if f.Cause != nil {
		return f.Cause.Error()
	}
	if f.Status != 0 {
		return http.StatusText(f.Status)
	}
	return "unknown error"
}

// HasDetail reports whether the server sent an explanation.
func (f *Failure) HasDetail() bool {
	return f.Detail != ""
}

// IsNetwork reports whether no HTTP response was received.
func (f *Failure) IsNetwork() bool {
	return f.Status == 0
}

// AsFailure extracts a *Failure from err.
func AsFailure(err error) (*Failure, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	if f, ok := AsFailure(err); ok {
		return f.Status
	}
	return 0
}
