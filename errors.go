package ffhandle

import (
	"errors"
	"fmt"

	"github.com/obinnaokechukwu/ffhandle/abi"
	"github.com/obinnaokechukwu/ffhandle/internal/handles"
	"github.com/obinnaokechukwu/ffhandle/internal/mirror"
)

// Common errors
var (
	// ErrClosed indicates the context has been closed.
	ErrClosed = errors.New("ffhandle: context is closed")

	// ErrDebugDisabled indicates a debug-only operation on a production context.
	ErrDebugDisabled = errors.New("ffhandle: context was not created in debug mode")

	// ErrInvalidWord indicates a boxed word outside every encoding.
	ErrInvalidWord = errors.New("ffhandle: invalid boxed word")

	// ErrTypeMismatch indicates an object of the wrong type was passed.
	ErrTypeMismatch = errors.New("ffhandle: type mismatch")

	// ErrUnhashable indicates a dictionary key that cannot be hashed.
	ErrUnhashable = errors.New("ffhandle: unhashable key")

	// ErrKeyNotFound indicates a dictionary lookup miss.
	ErrKeyNotFound = errors.New("ffhandle: key not found")

	// ErrInvalidTracker indicates an unknown tracker id.
	ErrInvalidTracker = errors.New("ffhandle: invalid tracker")
)

// Errors re-exported from the internal packages so callers can match them
// with errors.Is.
var (
	ErrInvalidID        = handles.ErrInvalidID
	ErrCapacityOverflow = handles.ErrCapacityOverflow
	ErrInvalidField     = handles.ErrInvalidField
	ErrTrackerOverflow  = handles.ErrTrackerOverflow
	ErrCacheShrink      = mirror.ErrShrink
	ErrCacheOverflow    = mirror.ErrOverflow
)

// ArityError is returned when a dispatch entry is called with the wrong
// number of arguments.
type ArityError = abi.ArityError

// NativeError is an error raised on behalf of native code. It is what
// ctx_Err_Occurred reports.
type NativeError struct {
	Message string
	Op      string // Entry that raised it, empty for ctx_Err_SetString
	Err     error  // Underlying Go error, if any
}

// Error implements the error interface.
func (e *NativeError) Error() string {
	if e.Op == "" {
		return "ffhandle: " + e.Message
	}
	return fmt.Sprintf("ffhandle %s: %s", e.Op, e.Message)
}

// Unwrap returns the underlying error.
func (e *NativeError) Unwrap() error {
	return e.Err
}

// IsOverflow reports whether err is any of the capacity overflow errors.
func IsOverflow(err error) bool {
	return errors.Is(err, ErrCapacityOverflow) ||
		errors.Is(err, ErrTrackerOverflow) ||
		errors.Is(err, ErrCacheOverflow)
}
