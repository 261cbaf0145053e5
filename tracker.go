package ffhandle

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/obinnaokechukwu/ffhandle/boxing"
	"github.com/obinnaokechukwu/ffhandle/internal/handles"
)

// Tracker scopes a cohort of handles to one native call. Close releases
// every handle added since the tracker was created or last emptied.
type Tracker struct {
	ctx *Context
	t   *handles.Tracker
	id  int
}

// NewTracker creates a tracker with room for size handles before growing.
// A size of 0 uses Options.TrackerSize.
func (c *Context) NewTracker(size int) *Tracker {
	if size <= 0 {
		size = c.opts.TrackerSize
	}
	t := &Tracker{ctx: c, t: handles.NewTracker(size)}
	t.id = c.registerTracker(t.t)
	return t
}

func (c *Context) registerTracker(t *handles.Tracker) int {
	for i := 1; i < len(c.trackers); i++ {
		if c.trackers[i] == nil {
			c.trackers[i] = t
			return i
		}
	}
	c.trackers = append(c.trackers, t)
	return len(c.trackers) - 1
}

func (c *Context) tracker(id int) (*handles.Tracker, error) {
	if id <= 0 || id >= len(c.trackers) || c.trackers[id] == nil {
		return nil, fmt.Errorf("%w: %d", ErrInvalidTracker, id)
	}
	return c.trackers[id], nil
}

// ID returns the integer native code uses to refer to the tracker.
func (t *Tracker) ID() int {
	return t.id
}

// live fails once the tracker has been closed, including when its id has
// since been handed to a new tracker.
func (t *Tracker) live() error {
	cur, err := t.ctx.tracker(t.id)
	if err != nil {
		return err
	}
	if cur != t.t {
		return fmt.Errorf("%w: %d was closed", ErrInvalidTracker, t.id)
	}
	return nil
}

// Add tracks the handle w refers to. Embedded values are ignored since
// they own no table slot. Adding to a closed tracker fails.
func (t *Tracker) Add(w boxing.Word) error {
	if err := t.live(); err != nil {
		return err
	}
	return t.ctx.trackerAdd(t.t, w)
}

func (c *Context) trackerAdd(t *handles.Tracker, w boxing.Word) error {
	if !boxing.IsBoxedLocal(w) || w == boxing.Null {
		return nil
	}
	h, err := c.Lookup(w)
	if err != nil {
		return err
	}
	if err := t.Add(h); err != nil {
		c.log.Debug("tracker add failed", zap.Int("tracked", t.Len()), zap.Error(err))
		return err
	}
	return nil
}

// Len returns the number of tracked handles.
func (t *Tracker) Len() int {
	return t.t.Len()
}

// Close releases every tracked handle and unregisters the tracker.
func (t *Tracker) Close() error {
	if err := t.live(); err != nil {
		return err
	}
	return t.ctx.closeTracker(t.id)
}

func (c *Context) closeTracker(id int) error {
	t, err := c.tracker(id)
	if err != nil {
		return err
	}
	c.trackers[id] = nil
	return t.Free(c.closeTracked)
}

// ForgetAll empties the tracker without closing anything, for when the
// handles have been handed to someone else.
func (t *Tracker) ForgetAll() {
	t.t.RemoveAll()
}

func (c *Context) trackerArg(w boxing.Word) (*handles.Tracker, error) {
	id, err := intArg(c, w)
	if err != nil {
		return nil, err
	}
	return c.tracker(int(id))
}
