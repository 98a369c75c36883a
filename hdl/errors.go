package hdl

import (
	"github.com/pkg/errors"
)

// Error kinds. Failure sites wrap one of these with context, callers test for the kind
// with errors.Is.
var (
	// ErrConfiguration reports inconsistent signal bounds or missing construction arguments.
	ErrConfiguration = errors.New("configuration error")
	// ErrUnboundConnector reports an assignment requested on a connector without a driver.
	ErrUnboundConnector = errors.New("unbound connector")
	// ErrNotFound reports a bundle lookup miss.
	ErrNotFound = errors.New("not found")
	// ErrInvalidPayload reports a column count mismatch or a complex timestamp column.
	ErrInvalidPayload = errors.New("invalid payload")
	// ErrUnsupportedOperation reports an unsupported direction/kind combination.
	ErrUnsupportedOperation = errors.New("unsupported operation")
	// ErrMissingFile reports a read before write, or an output the simulator never produced.
	ErrMissingFile = errors.New("missing file")
	// ErrTimeout reports that polling for simulator output files was exhausted.
	ErrTimeout = errors.New("timeout")
)
