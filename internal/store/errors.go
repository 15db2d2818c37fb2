package store

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by singleton reads when the filtered collection
// comes back empty.
var ErrNotFound = errors.New("record not found")

// GatewayError reports a non-2xx response from the data store. The operation
// that produced it left no local state behind, so callers may retry on the
// next natural signal.
type GatewayError struct {
	Status int
	Op     string
	Body   string
}

// Error implements the error interface.
func (e *GatewayError) Error() string {
	return fmt.Sprintf("store: %s returned status %d", e.Op, e.Status)
}

// IsGatewayError reports whether err is (or wraps) a GatewayError, returning
// it if so.
func IsGatewayError(err error) (*GatewayError, bool) {
	var ge *GatewayError
	if errors.As(err, &ge) {
		return ge, true
	}
	return nil, false
}
