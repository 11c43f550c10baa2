package config

import (
	"errors"
	"fmt"
)

// Error codes for configuration failures (E200-E299).
const (
	// ErrCodeParse indicates an unparseable document.
	ErrCodeParse = "E200"

	// ErrCodeUnknownKey indicates an override key absent from the default document.
	ErrCodeUnknownKey = "E201"

	// ErrCodeUnknownCheck indicates a test_scope entry naming an unknown check type.
	ErrCodeUnknownCheck = "E202"

	// ErrCodeMissingField indicates a required field is absent.
	ErrCodeMissingField = "E203"

	// ErrCodeSchema indicates the document failed CUE schema validation.
	ErrCodeSchema = "E204"

	// ErrCodeSCDMetadata indicates SCD classification metadata is incomplete.
	ErrCodeSCDMetadata = "E205"
)

// Error is a configuration error tied to a document key.
//
// A config Error for a table document aborts only that table's plan. An
// Error raised while loading the default document is fatal for the whole
// invocation; callers distinguish the two through the Fatal flag.
type Error struct {
	Code    string // error category, E2xx
	Key     string // dotted key path of the offending entry, e.g. "test_scope.local.source"
	Message string
	Fatal   bool // true only for default-document failures
	Err     error
}

func (e *Error) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Key, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// NewError creates a non-fatal config error for the given key path.
func NewError(code, key, message string) *Error {
	return &Error{Code: code, Key: key, Message: message}
}

// IsFatal reports whether err is a fatal config error (default document
// unusable; the whole invocation must abort).
func IsFatal(err error) bool {
	var ce *Error
	return errors.As(err, &ce) && ce.Fatal
}
