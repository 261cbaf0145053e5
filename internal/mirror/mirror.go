// Package mirror implements the native mirror cache: a flat off-heap array
// that shadows id -> native pointer so native code can read payloads
// without calling back into Go.
//
// Layout, in pointer-sized words:
//
//	[0]                          current handle-region capacity
//	[1, 1+handles)               handle region, indexed by handle id
//	[1+handles, 1+handles+globals) globals region, indexed by global slot
//
// The cache is not authoritative. The handle table decides liveness.
package mirror

import (
	"errors"
	"fmt"
	"math"
	"unsafe"

	"github.com/obinnaokechukwu/ffhandle/internal/platform"
)

var (
	// ErrShrink is returned when Grow is asked to make a region smaller.
	ErrShrink = errors.New("ffhandle: mirror cache cannot shrink")

	// ErrOverflow is returned when the requested size does not fit in memory arithmetic.
	ErrOverflow = errors.New("ffhandle: mirror cache size overflow")

	// ErrOutOfRange is returned for an index outside its region.
	ErrOutOfRange = errors.New("ffhandle: mirror cache index out of range")

	// ErrOutOfMemory is returned when the allocator fails.
	ErrOutOfMemory = errors.New("ffhandle: mirror cache out of memory")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("ffhandle: mirror cache is closed")
)

const header = 1

// Cache is a native mirror cache.
type Cache struct {
	mem     unsafe.Pointer
	handles int
	globals int
	alloc   Allocator
}

// New allocates a zeroed cache with the given region sizes.
func New(alloc Allocator, handles, globals int) (*Cache, error) {
	n, err := totalWords(handles, globals)
	if err != nil {
		return nil, err
	}
	mem, err := alloc.Alloc(n)
	if err != nil {
		return nil, err
	}
	c := &Cache{mem: mem, handles: handles, globals: globals, alloc: alloc}
	c.words()[0] = uintptr(handles)
	return c, nil
}

func totalWords(handles, globals int) (int, error) {
	if handles < 0 || globals < 0 {
		return 0, fmt.Errorf("%w: negative region size", ErrOverflow)
	}
	limit := int(uintptr(math.MaxInt) / platform.WordSize)
	if handles > limit-header || globals > limit-header-handles {
		return 0, fmt.Errorf("%w: %d handles + %d globals", ErrOverflow, handles, globals)
	}
	return header + handles + globals, nil
}

func (c *Cache) words() []uintptr {
	return unsafe.Slice((*uintptr)(c.mem), header+c.handles+c.globals)
}

// Base returns the address native code reads from.
func (c *Cache) Base() unsafe.Pointer {
	return c.mem
}

// HandleCap returns the size of the handle region.
func (c *Cache) HandleCap() int {
	return c.handles
}

// GlobalsCap returns the size of the globals region.
func (c *Cache) GlobalsCap() int {
	return c.globals
}

// GlobalsOffset returns the word offset of the globals region.
func (c *Cache) GlobalsOffset() int {
	return header + c.handles
}

// Put records ptr as the native payload of handle id.
func (c *Cache) Put(id int, ptr uintptr) error {
	if c.mem == nil {
		return ErrClosed
	}
	if id < 0 || id >= c.handles {
		return fmt.Errorf("%w: handle %d, capacity %d", ErrOutOfRange, id, c.handles)
	}
	c.words()[header+id] = ptr
	return nil
}

// Get returns the native payload recorded for handle id, or 0.
func (c *Cache) Get(id int) uintptr {
	if c.mem == nil || id < 0 || id >= c.handles {
		return 0
	}
	return c.words()[header+id]
}

// PutGlobal records ptr as the native payload of global slot.
func (c *Cache) PutGlobal(slot int, ptr uintptr) error {
	if c.mem == nil {
		return ErrClosed
	}
	if slot < 0 || slot >= c.globals {
		return fmt.Errorf("%w: global %d, capacity %d", ErrOutOfRange, slot, c.globals)
	}
	c.words()[c.GlobalsOffset()+slot] = ptr
	return nil
}

// Global returns the native payload recorded for global slot, or 0.
func (c *Cache) Global(slot int) uintptr {
	if c.mem == nil || slot < 0 || slot >= c.globals {
		return 0
	}
	return c.words()[c.GlobalsOffset()+slot]
}

// Grow resizes the cache. Existing handle offsets are kept; when the handle
// region grows the globals region is moved up behind it. Shrinking either
// region fails with ErrShrink.
func (c *Cache) Grow(handles, globals int) error {
	if c.mem == nil {
		return ErrClosed
	}
	if handles < c.handles || globals < c.globals {
		return fmt.Errorf("%w: (%d, %d) -> (%d, %d)", ErrShrink, c.handles, c.globals, handles, globals)
	}
	if handles == c.handles && globals == c.globals {
		return nil
	}
	n, err := totalWords(handles, globals)
	if err != nil {
		return err
	}
	oldH, oldG := c.handles, c.globals
	mem, err := c.alloc.Resize(c.mem, header+oldH+oldG, n)
	if err != nil {
		return err
	}
	c.mem, c.handles, c.globals = mem, handles, globals

	w := c.words()
	if handles > oldH {
		// copy has memmove semantics, so overlapping regions are fine.
		copy(w[header+handles:header+handles+oldG], w[header+oldH:header+oldH+oldG])
		clear(w[header+oldH : header+handles])
	}
	clear(w[header+handles+oldG:])
	w[0] = uintptr(handles)
	return nil
}

// Close releases the backing memory.
func (c *Cache) Close() {
	if c.mem == nil {
		return
	}
	c.alloc.Release(c.mem)
	c.mem = nil
}
