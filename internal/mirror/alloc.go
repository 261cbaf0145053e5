package mirror

import (
	"fmt"
	"unsafe"

	"github.com/obinnaokechukwu/ffhandle/internal/bindings"
	"github.com/obinnaokechukwu/ffhandle/internal/platform"
)

// Allocator provides the memory backing a Cache. Blocks are measured in
// pointer-sized words.
type Allocator interface {
	// Alloc returns a zeroed block of n words.
	Alloc(n int) (unsafe.Pointer, error)
	// Resize grows or shrinks a block. Words past old are uninitialized.
	Resize(p unsafe.Pointer, old, n int) (unsafe.Pointer, error)
	// Release frees a block.
	Release(p unsafe.Pointer)
}

// CAllocator allocates outside the Go heap through the C library.
type CAllocator struct{}

// NewCAllocator loads the C library and returns an allocator backed by it.
func NewCAllocator() (CAllocator, error) {
	if err := bindings.Load(); err != nil {
		return CAllocator{}, err
	}
	return CAllocator{}, nil
}

// Alloc implements Allocator.
func (CAllocator) Alloc(n int) (unsafe.Pointer, error) {
	if !bindings.IsLoaded() {
		return nil, bindings.ErrNotLoaded
	}
	p := bindings.Calloc(uintptr(n), platform.WordSize)
	if p == nil {
		return nil, fmt.Errorf("%w: calloc of %d words failed", ErrOutOfMemory, n)
	}
	return p, nil
}

// Resize implements Allocator.
func (CAllocator) Resize(p unsafe.Pointer, old, n int) (unsafe.Pointer, error) {
	if !bindings.IsLoaded() {
		return nil, bindings.ErrNotLoaded
	}
	q := bindings.Realloc(p, uintptr(n)*platform.WordSize)
	if q == nil {
		return nil, fmt.Errorf("%w: realloc to %d words failed", ErrOutOfMemory, n)
	}
	return q, nil
}

// Release implements Allocator.
func (CAllocator) Release(p unsafe.Pointer) {
	bindings.Free(p)
}

// HeapAllocator keeps blocks on the Go heap. It is used where the C library
// is unavailable; the blocks stay reachable through the allocator itself.
type HeapAllocator struct {
	blocks map[unsafe.Pointer][]uintptr
}

// NewHeapAllocator returns an empty HeapAllocator.
func NewHeapAllocator() *HeapAllocator {
	return &HeapAllocator{blocks: make(map[unsafe.Pointer][]uintptr)}
}

// Alloc implements Allocator.
func (a *HeapAllocator) Alloc(n int) (unsafe.Pointer, error) {
	if n <= 0 {
		n = 1
	}
	block := make([]uintptr, n)
	p := unsafe.Pointer(&block[0])
	a.blocks[p] = block
	return p, nil
}

// Resize implements Allocator.
func (a *HeapAllocator) Resize(p unsafe.Pointer, old, n int) (unsafe.Pointer, error) {
	block, ok := a.blocks[p]
	if !ok {
		return nil, fmt.Errorf("mirror: resize of unknown block %p", p)
	}
	q, _ := a.Alloc(n)
	copy(a.blocks[q], block)
	delete(a.blocks, p)
	return q, nil
}

// Release implements Allocator.
func (a *HeapAllocator) Release(p unsafe.Pointer) {
	delete(a.blocks, p)
}
