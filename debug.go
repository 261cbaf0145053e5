package ffhandle

import (
	"github.com/obinnaokechukwu/ffhandle/boxing"
	"github.com/obinnaokechukwu/ffhandle/internal/debug"
)

// Misuse describes an invalid use of a handle id in debug mode.
type Misuse = debug.Misuse

// DebugHandle is the tooling view of a handle. Equal compares handle
// identity, so a view of a released handle never equals a view of the
// handle that reused its id.
type DebugHandle = debug.View

// IsDebug reports whether c was created with Options.Debug.
func (c *Context) IsDebug() bool {
	return c.dbg != nil
}

// NewGeneration starts a new handle generation and returns its number.
func (c *Context) NewGeneration() (int, error) {
	if c.dbg == nil {
		return 0, ErrDebugDisabled
	}
	return c.dbg.NewGeneration(), nil
}

// OpenHandles returns the handles allocated in generation minGeneration or
// later that are still open.
func (c *Context) OpenHandles(minGeneration int) ([]DebugHandle, error) {
	if c.dbg == nil {
		return nil, ErrDebugDisabled
	}
	return c.dbg.OpenHandles(minGeneration), nil
}

// ClosedHandles returns the most recently closed handles, oldest first.
func (c *Context) ClosedHandles() ([]DebugHandle, error) {
	if c.dbg == nil {
		return nil, ErrDebugDisabled
	}
	return c.dbg.ClosedHandles(), nil
}

// ClosedQueueMaxSize returns the bound of the closed-handle queue.
func (c *Context) ClosedQueueMaxSize() (int, error) {
	if c.dbg == nil {
		return 0, ErrDebugDisabled
	}
	return c.dbg.ClosedQueueMaxSize(), nil
}

// SetClosedQueueMaxSize changes the bound of the closed-handle queue,
// evicting the oldest entries if it shrinks.
func (c *Context) SetClosedQueueMaxSize(n int) error {
	if c.dbg == nil {
		return ErrDebugDisabled
	}
	if n < 0 {
		n = 0
	}
	c.dbg.SetClosedQueueMaxSize(n)
	return nil
}

// SetInvalidHandleCallback installs fn as the misuse callback. A nil fn
// makes misuse fatal again.
func (c *Context) SetInvalidHandleCallback(fn func(Misuse)) error {
	if c.dbg == nil {
		return ErrDebugDisabled
	}
	c.dbg.SetInvalidHandleCallback(fn)
	return nil
}

// DebugView returns the debug view of the handle w refers to.
func (c *Context) DebugView(w boxing.Word) (DebugHandle, error) {
	if c.dbg == nil {
		return DebugHandle{}, ErrDebugDisabled
	}
	h, err := c.Lookup(w)
	if err != nil {
		return DebugHandle{}, err
	}
	return c.dbg.View(h), nil
}
