package handles

import (
	"errors"
	"fmt"
	"math"
)

// ErrTrackerOverflow is returned when a tracker cannot grow its buffer.
var ErrTrackerOverflow = errors.New("ffhandle: tracker overflow")

// maxTrackerLen caps the buffer so the doubled length cannot overflow.
const maxTrackerLen = math.MaxInt32

const defaultTrackerSize = 8

// Tracker accumulates handles created during one native call and closes
// them together. Each handle must end up closed exactly once: either by
// Free, or by whoever received it after RemoveAll.
type Tracker struct {
	buf    []*Handle
	cursor int
	limit  int
}

// NewTracker creates a tracker with room for size handles before growing.
func NewTracker(size int) *Tracker {
	if size <= 0 {
		size = defaultTrackerSize
	}
	return &Tracker{buf: make([]*Handle, size), limit: maxTrackerLen}
}

// Add appends h. The buffer doubles when full.
func (t *Tracker) Add(h *Handle) error {
	if t.cursor == len(t.buf) {
		if err := t.grow(); err != nil {
			return err
		}
	}
	t.buf[t.cursor] = h
	t.cursor++
	return nil
}

func (t *Tracker) grow() error {
	n := len(t.buf)
	if n == 0 {
		n = defaultTrackerSize
	} else if n > t.limit/2 {
		return fmt.Errorf("%w: cannot grow past %d entries", ErrTrackerOverflow, n)
	} else {
		n *= 2
	}
	buf := make([]*Handle, n)
	copy(buf, t.buf[:t.cursor])
	t.buf = buf
	return nil
}

// Free calls closeOp on every tracked handle in insertion order and resets
// the tracker. Stale entries past the cursor are left in place. Errors from
// closeOp do not stop the iteration; they are joined and returned.
func (t *Tracker) Free(closeOp func(*Handle) error) error {
	var errs []error
	for i := 0; i < t.cursor; i++ {
		if err := closeOp(t.buf[i]); err != nil {
			errs = append(errs, err)
		}
	}
	t.cursor = 0
	return errors.Join(errs...)
}

// RemoveAll forgets every tracked handle without closing it.
func (t *Tracker) RemoveAll() {
	t.cursor = 0
}

// Len returns the number of tracked handles.
func (t *Tracker) Len() int {
	return t.cursor
}

// Cap returns the size of the backing buffer.
func (t *Tracker) Cap() int {
	return len(t.buf)
}
