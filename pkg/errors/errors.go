package errors

import (
	"errors"
	"fmt"
)

// ErrAlreadyRefreshing is returned when a refresh batch is requested while
// another batch is still in flight. The engine rejects the second request
// instead of queueing it; callers retry once the running batch finishes.
var ErrAlreadyRefreshing = errors.New("refresh already in progress")

// DiscoveryError records a single signal builder that failed to produce a
// conformant signal. Discovery continues past it.
type DiscoveryError struct {
	SignalID string
	Message  string
	Err      error
}

// NewDiscoveryError constructs a DiscoveryError.
func NewDiscoveryError(signalID, message string, err error) *DiscoveryError {
	return &DiscoveryError{SignalID: signalID, Message: message, Err: err}
}

func (e *DiscoveryError) Error() string {
	if e == nil {
		return ""
	}
	if e.SignalID != "" {
		return fmt.Sprintf("discovery error [%s]: %s", e.SignalID, e.Message)
	}
	return fmt.Sprintf("discovery error: %s", e.Message)
}

// Unwrap exposes the underlying error.
func (e *DiscoveryError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// PersistenceError wraps cache load/flush failures. Load failures degrade to
// an empty cache; flush failures are reported but never roll back memory.
type PersistenceError struct {
	Op   string
	Path string
	Err  error
}

// NewPersistenceError constructs a PersistenceError for the given operation.
func NewPersistenceError(op, path string, err error) *PersistenceError {
	return &PersistenceError{Op: op, Path: path, Err: err}
}

func (e *PersistenceError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("persistence error: %s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap exposes the underlying error.
func (e *PersistenceError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NotFoundError reports a missing signal, user, or cache entry.
type NotFoundError struct {
	Kind string
	ID   string
}

// NewNotFoundError constructs a NotFoundError.
func NewNotFoundError(kind, id string) *NotFoundError {
	return &NotFoundError{Kind: kind, ID: id}
}

func (e *NotFoundError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}

// IsNotFound reports whether err wraps a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// ValidationError captures configuration or contract validation issues.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

// NewValidationError constructs a ValidationError.
func NewValidationError(field, message string, err error) error {
	return &ValidationError{Field: field, Message: message, Err: err}
}

func (e *ValidationError) Error() string {
	if e == nil {
		return ""
	}
	if e.Field != "" {
		return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

// Unwrap exposes the underlying error.
func (e *ValidationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
