// Package ffcerr defines the error taxonomy shared across the engine's
// parsing and lookup boundaries. Errors are values: every boundary that
// can fail returns one of these instead of panicking, and a successful
// evaluation never produces one — the absence of a matching rule is a
// Default decision, not an error.
package ffcerr

import "fmt"

// Kind enumerates the parse/lookup error taxonomy.
type Kind string

const (
	ErrInvalidHexId    Kind = "InvalidHexId"
	ErrInvalidRollout  Kind = "InvalidRollout"
	ErrInvalidVersion  Kind = "InvalidVersion"
	ErrInvalidJSON     Kind = "InvalidJson"
	ErrInvalidSnapshot Kind = "InvalidSnapshot"
	ErrFeatureNotFound Kind = "FeatureNotFound"
	ErrFlagNotFound    Kind = "FlagNotFound"
	ErrAxisConflict    Kind = "AxisConflict"
)

// ParseError is returned by every construction/parsing boundary
// (HexId, StableId, Version, RampUp, the snapshot codec). It always
// carries a human-readable Message; Cause is set when the error wraps a
// lower-level failure (e.g. encoding/json's own error).
type ParseError struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *ParseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *ParseError) Unwrap() error { return e.Cause }

// New builds a ParseError with no wrapped cause.
func New(kind Kind, message string) *ParseError {
	return &ParseError{Kind: kind, Message: message}
}

// Wrap builds a ParseError around a lower-level cause.
func Wrap(kind Kind, message string, cause error) *ParseError {
	return &ParseError{Kind: kind, Message: message, Cause: cause}
}
