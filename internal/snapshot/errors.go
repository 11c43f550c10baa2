package snapshot

import (
	"errors"
	"fmt"

	"github.com/datavet/datavet/internal/config"
)

// ConnectorError wraps a failure to read one layer's snapshot. The layer's
// checks are recorded as error status; sibling layers and tables proceed.
type ConnectorError struct {
	Layer config.Layer
	Table string
	Err   error
}

func (e *ConnectorError) Error() string {
	return fmt.Sprintf("connector: reading %s/%s: %v", e.Table, e.Layer, e.Err)
}

func (e *ConnectorError) Unwrap() error { return e.Err }

// IsConnectorError reports whether err is (or wraps) a ConnectorError.
func IsConnectorError(err error) bool {
	var ce *ConnectorError
	return errors.As(err, &ce)
}

// ValidationAbort means malformed data prevents any check from running on
// a layer: the layer was readable, but its shape contradicts the catalog
// (e.g. a declared business key column is missing). All checks depending
// on the layer are recorded as error.
type ValidationAbort struct {
	Layer   config.Layer
	Table   string
	Message string
}

func (e *ValidationAbort) Error() string {
	return fmt.Sprintf("validation abort: %s/%s: %s", e.Table, e.Layer, e.Message)
}

// IsValidationAbort reports whether err is (or wraps) a ValidationAbort.
func IsValidationAbort(err error) bool {
	var va *ValidationAbort
	return errors.As(err, &va)
}
