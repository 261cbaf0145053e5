package ffhandle

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/obinnaokechukwu/ffhandle/abi"
	"github.com/obinnaokechukwu/ffhandle/boxing"
	"github.com/obinnaokechukwu/ffhandle/internal/debug"
	"github.com/obinnaokechukwu/ffhandle/internal/handles"
	"github.com/obinnaokechukwu/ffhandle/internal/mirror"
)

// Handle is an indirection cell for a host object.
type Handle = handles.Handle

// idTable is implemented by the plain table and by its debug wrapper.
type idTable interface {
	Allocate(h *handles.Handle) (int, error)
	Lookup(id int) (*handles.Handle, error)
	Release(id int) error
}

// NativePointer is implemented by objects with a native payload that the
// mirror cache should expose to native code.
type NativePointer interface {
	NativePointer() uintptr
}

// Context is the arena that owns every handle structure for one native
// interop session. It is single-writer: exactly one goroutine may run
// native code against a Context at a time.
type Context struct {
	opts  Options
	log   *zap.Logger
	table *handles.Table
	ids   idTable
	dbg   *debug.Table
	alloc mirror.Allocator
	cache *mirror.Cache

	globals  []any
	trackers []*handles.Tracker
	dispatch *abi.Table
	err      error
	closed   bool
}

// New creates a Context.
func New(opts Options) (*Context, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	c := &Context{
		opts:     opts,
		log:      log,
		table:    handles.NewTable(opts.InitialHandles),
		globals:  make([]any, opts.Globals),
		trackers: []*handles.Tracker{nil},
	}
	c.table.OnGrow = func(oldCap, newCap int) { c.logGrowth("handle table", oldCap, newCap) }
	c.ids = c.table

	if opts.Debug {
		dopts := []debug.Option{
			debug.WithLogger(log),
			debug.WithClosedQueueSize(opts.ClosedQueueSize),
		}
		if opts.OnInvalidHandle != nil {
			dopts = append(dopts, debug.WithInvalidHandleCallback(opts.OnInvalidHandle))
		}
		c.dbg = debug.New(c.table, dopts...)
		c.ids = c.dbg
	}

	c.alloc = mirror.NewHeapAllocator()
	if opts.OffHeap {
		if a, err := mirror.NewCAllocator(); err == nil {
			c.alloc = a
		} else {
			log.Warn("C allocator unavailable, using Go heap", zap.Error(err))
		}
	}
	cache, err := mirror.New(c.alloc, c.table.Cap(), opts.Globals)
	if err != nil {
		return nil, fmt.Errorf("ffhandle: allocating mirror cache: %w", err)
	}
	c.cache = cache

	c.dispatch = abi.NewTable()
	c.bindDispatch()

	log.Debug("context created",
		zap.Bool("debug", opts.Debug),
		zap.Int("handles", c.table.Cap()),
		zap.Int("globals", opts.Globals),
	)
	return c, nil
}

// Close releases the mirror cache. Handles still open are dropped.
func (c *Context) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	if open := c.table.Count(); open > 0 {
		c.log.Debug("closing context with open handles", zap.Int("open", open))
	}
	c.cache.Close()
	return nil
}

// NewHandle wraps obj without assigning an id.
func (c *Context) NewHandle(obj any) *Handle {
	return handles.New(obj)
}

// Materialize assigns h an id if it has none and returns the id.
func (c *Context) Materialize(h *Handle) (int, error) {
	if c.closed {
		return 0, ErrClosed
	}
	if h.IsAllocated() {
		return h.ID(), nil
	}
	id, err := c.ids.Allocate(h)
	if err != nil {
		c.log.Debug("handle allocation failed", zap.Error(err))
		return 0, err
	}
	if err := c.syncCache(); err != nil {
		return 0, c.unwind(id, err)
	}
	if p, ok := h.Delegate().(NativePointer); ok {
		if err := c.cache.Put(id, p.NativePointer()); err != nil {
			return 0, c.unwind(id, err)
		}
	}
	return id, nil
}

// unwind gives back an id whose mirror entry could not be written.
func (c *Context) unwind(id int, cause error) error {
	if err := c.ids.Release(id); err != nil {
		c.log.Debug("releasing unmirrored handle failed", zap.Int("id", id), zap.Error(err))
	}
	return cause
}

// syncCache grows the mirror cache after the handle table has grown.
func (c *Context) syncCache() error {
	oldCap := c.cache.HandleCap()
	if c.table.Cap() <= oldCap {
		return nil
	}
	if err := c.cache.Grow(c.table.Cap(), c.cache.GlobalsCap()); err != nil {
		return fmt.Errorf("ffhandle: growing mirror cache: %w", err)
	}
	c.logGrowth("mirror cache", oldCap, c.table.Cap())
	return nil
}

// Box returns the boxed word for obj. Integers that fit 32 bits and
// doubles are embedded directly and never enter the table; everything else
// gets a new handle.
func (c *Context) Box(obj any) (boxing.Word, error) {
	switch v := obj.(type) {
	case nil:
		return boxing.Null, nil
	case int:
		if boxing.FitsInt32(int64(v)) {
			return boxing.BoxInt32(int32(v)), nil
		}
		obj = int64(v)
	case int32:
		return boxing.BoxInt32(v), nil
	case int64:
		if boxing.FitsInt32(v) {
			return boxing.BoxInt32(int32(v)), nil
		}
	case float64:
		if boxing.DoubleRoundTrips(v) {
			return boxing.BoxDouble(v), nil
		}
	}
	return c.boxHandle(c.NewHandle(obj))
}

func (c *Context) boxHandle(h *Handle) (boxing.Word, error) {
	id, err := c.Materialize(h)
	if err != nil {
		return boxing.Null, err
	}
	return boxing.BoxLocal(id), nil
}

// Unbox returns the object w refers to. Embedded integers come back as
// int64 and doubles as float64.
func (c *Context) Unbox(w boxing.Word) (any, error) {
	switch boxing.Classify(w) {
	case boxing.KindLocal:
		h, err := c.Lookup(w)
		if err != nil {
			return nil, err
		}
		return h.Delegate(), nil
	case boxing.KindInt:
		return int64(boxing.UnboxInt32(w)), nil
	case boxing.KindDouble:
		return boxing.UnboxDouble(w), nil
	case boxing.KindField:
		field, owner := boxing.UnboxField(w)
		o, err := c.fieldOwner(boxing.BoxLocal(owner))
		if err != nil {
			return nil, err
		}
		return handles.Read(o, field)
	default:
		return nil, fmt.Errorf("%w: %#x", ErrInvalidWord, uint64(w))
	}
}

// Lookup returns the handle for a boxed local word.
func (c *Context) Lookup(w boxing.Word) (*Handle, error) {
	if c.closed {
		return nil, ErrClosed
	}
	if !boxing.IsBoxedLocal(w) {
		return nil, fmt.Errorf("%w: %v is not a handle", ErrInvalidWord, w)
	}
	return c.ids.Lookup(boxing.UnboxLocal(w))
}

// Dup returns a new handle to the object w refers to.
func (c *Context) Dup(w boxing.Word) (boxing.Word, error) {
	if !boxing.IsBoxedLocal(w) {
		// Embedded values carry no identity; the word is its own duplicate.
		if boxing.Classify(w) == boxing.KindInvalid {
			return boxing.Null, fmt.Errorf("%w: %#x", ErrInvalidWord, uint64(w))
		}
		return w, nil
	}
	if w == boxing.Null {
		return boxing.Null, nil
	}
	h, err := c.Lookup(w)
	if err != nil {
		return boxing.Null, err
	}
	return c.boxHandle(c.NewHandle(h.Delegate()))
}

// CloseHandle releases the handle w refers to. Embedded values and the
// null handle need no release.
func (c *Context) CloseHandle(w boxing.Word) error {
	if c.closed {
		return ErrClosed
	}
	if !boxing.IsBoxedLocal(w) || w == boxing.Null {
		return nil
	}
	return c.release(boxing.UnboxLocal(w))
}

func (c *Context) release(id int) error {
	if err := c.ids.Release(id); err != nil {
		return err
	}
	if err := c.cache.Put(id, 0); err != nil {
		c.log.Debug("clearing mirror slot failed", zap.Int("id", id), zap.Error(err))
	}
	return nil
}

// closeTracked releases a handle on behalf of a tracker. A handle that is
// no longer allocated was closed behind the tracker's back; its old id may
// already belong to someone else, so nothing is released.
func (c *Context) closeTracked(h *Handle) error {
	if !h.IsAllocated() {
		err := fmt.Errorf("%w: tracked handle %v is not open", ErrInvalidID, h)
		if c.dbg != nil {
			return c.dbg.ReportClosed(h, err)
		}
		return err
	}
	return c.release(h.ID())
}

// HandleCount returns the number of open handles.
func (c *Context) HandleCount() int {
	return c.table.Count()
}

// NativeCache returns the address of the native mirror cache and the word
// offset of its globals region.
func (c *Context) NativeCache() (base uintptr, globalsOffset int) {
	return uintptr(c.cache.Base()), c.cache.GlobalsOffset()
}

// CachedPointer returns the native payload the mirror cache holds for w.
func (c *Context) CachedPointer(w boxing.Word) uintptr {
	if !boxing.IsBoxedLocal(w) {
		return 0
	}
	return c.cache.Get(boxing.UnboxLocal(w))
}

// SetGlobal stores obj in global slot, growing the globals region if needed.
func (c *Context) SetGlobal(slot int, obj any) error {
	if c.closed {
		return ErrClosed
	}
	if slot < 0 || slot > math.MaxInt32 {
		return fmt.Errorf("%w: global slot %d", ErrInvalidID, slot)
	}
	if slot >= len(c.globals) {
		n := 2 * len(c.globals)
		if n <= slot {
			n = slot + 1
		}
		if err := c.cache.Grow(c.cache.HandleCap(), n); err != nil {
			return fmt.Errorf("ffhandle: growing globals: %w", err)
		}
		c.logGrowth("globals", len(c.globals), n)
		globals := make([]any, n)
		copy(globals, c.globals)
		c.globals = globals
	}
	c.globals[slot] = obj
	var ptr uintptr
	if p, ok := obj.(NativePointer); ok {
		ptr = p.NativePointer()
	}
	return c.cache.PutGlobal(slot, ptr)
}

// Global returns the object in global slot.
func (c *Context) Global(slot int) (any, error) {
	if slot < 0 || slot >= len(c.globals) {
		return nil, fmt.Errorf("%w: global slot %d", ErrInvalidID, slot)
	}
	return c.globals[slot], nil
}

// Err returns the pending native-visible error, if any.
func (c *Context) Err() error {
	return c.err
}

// SetErr sets the pending native-visible error.
func (c *Context) SetErr(err error) {
	c.err = err
}

// ClearErr clears the pending error.
func (c *Context) ClearErr() {
	c.err = nil
}
