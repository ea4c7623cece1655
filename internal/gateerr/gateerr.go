// Package gateerr defines the gateway's typed errors. Every failure that
// crosses a component boundary carries a machine-readable Kind so the caller
// can branch on it without parsing messages.
package gateerr

import (
	"context"
	"errors"
	"fmt"
)

// Kind is a machine-readable error category.
type Kind string

const (
	// KindConnection indicates the database is unreachable or rejected the
	// configured credentials.
	KindConnection Kind = "connection"
	// KindValidation indicates malformed, multi-statement, or
	// parameter-mismatched input. Never retried.
	KindValidation Kind = "validation"
	// KindPermission indicates a statement class blocked by the current mode.
	KindPermission Kind = "permission"
	// KindExecution indicates a database-side failure during execution.
	KindExecution Kind = "execution"
	// KindResourceExhausted indicates no connection handle became free
	// within the acquire timeout.
	KindResourceExhausted Kind = "resource_exhausted"
	// KindTimeout indicates the statement exceeded its time budget.
	KindTimeout Kind = "timeout"
	// KindNotFound indicates a named object does not exist.
	KindNotFound Kind = "not_found"
)

// E wraps an error with a kind and a human-friendly message.
type E struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *E) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *E) Unwrap() error { return e.Err }

func New(kind Kind, msg string) *E                        { return &E{Kind: kind, Message: msg} }
func Newf(kind Kind, format string, args ...any) *E       { return &E{Kind: kind, Message: fmt.Sprintf(format, args...)} }
func Wrap(kind Kind, msg string, err error) *E            { return &E{Kind: kind, Message: msg, Err: err} }

// KindOf extracts the kind from err. Context deadline errors map to
// KindTimeout; anything untyped is reported as an execution failure.
func KindOf(err error) Kind {
	var e *E
	if errors.As(err, &e) {
		return e.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	return KindExecution
}

// MessageOf returns the human-friendly message without the kind prefix.
func MessageOf(err error) string {
	var e *E
	if errors.As(err, &e) {
		if e.Err != nil {
			return fmt.Sprintf("%s: %v", e.Message, e.Err)
		}
		return e.Message
	}
	return err.Error()
}
