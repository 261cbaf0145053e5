package ffhandle

import (
	"fmt"
	"strings"
	"unsafe"

	"github.com/obinnaokechukwu/ffhandle/internal/debug"
	"github.com/obinnaokechukwu/ffhandle/internal/handles"
	"github.com/obinnaokechukwu/ffhandle/internal/platform"
	"github.com/obinnaokechukwu/ffhandle/layout"
)

// Dict is the host dictionary created by ctx_Dict_New.
type Dict struct {
	m    map[any]any
	keys []any
}

// NewDict returns an empty Dict.
func NewDict() *Dict {
	return &Dict{m: make(map[any]any)}
}

func hashable(k any) bool {
	switch k.(type) {
	case nil, bool, int64, float64, string:
		return true
	default:
		return false
	}
}

// Set stores v under k.
func (d *Dict) Set(k, v any) error {
	if !hashable(k) {
		return fmt.Errorf("%w: %T", ErrUnhashable, k)
	}
	if _, ok := d.m[k]; !ok {
		d.keys = append(d.keys, k)
	}
	d.m[k] = v
	return nil
}

// Get returns the value stored under k.
func (d *Dict) Get(k any) (any, bool) {
	if !hashable(k) {
		return nil, false
	}
	v, ok := d.m[k]
	return v, ok
}

// Len returns the number of keys.
func (d *Dict) Len() int {
	return len(d.m)
}

// Repr returns the display form, keys in insertion order.
func (d *Dict) Repr() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, k := range d.keys {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(debug.Repr(k))
		b.WriteString(": ")
		b.WriteString(debug.Repr(d.m[k]))
	}
	b.WriteByte('}')
	return b.String()
}

// List is the host list created by ctx_List_New.
type List struct {
	Items []any
}

// Append adds v to the end of the list.
func (l *List) Append(v any) {
	l.Items = append(l.Items, v)
}

// Repr returns the display form.
func (l *List) Repr() string {
	parts := make([]string, len(l.Items))
	for i, v := range l.Items {
		parts[i] = debug.Repr(v)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// NativeObject is a host object with a native struct attached. The struct
// lives in memory from the context allocator, so native code can hold a
// pointer to it; references to other objects stored in its fields go
// through the object's field slots.
type NativeObject struct {
	slots  handles.Slots
	layout *layout.Layout
	mem    unsafe.Pointer
	words  int
	ctx    *Context
}

// NewNative allocates a zeroed native struct described by l.
func (c *Context) NewNative(l *layout.Layout) (*NativeObject, error) {
	if c.closed {
		return nil, ErrClosed
	}
	words := int((l.Size() + platform.WordSize - 1) / platform.WordSize)
	mem, err := c.alloc.Alloc(words)
	if err != nil {
		return nil, fmt.Errorf("ffhandle: allocating %s: %w", l.Name(), err)
	}
	return &NativeObject{layout: l, mem: mem, words: words, ctx: c}, nil
}

// FieldSlots implements handles.FieldOwner.
func (o *NativeObject) FieldSlots() *handles.Slots {
	return &o.slots
}

// NativePointer returns the address of the native struct.
func (o *NativeObject) NativePointer() uintptr {
	return uintptr(o.mem)
}

// Base returns the native struct for use with layout accessors.
func (o *NativeObject) Base() unsafe.Pointer {
	return o.mem
}

// Layout returns the struct layout.
func (o *NativeObject) Layout() *layout.Layout {
	return o.layout
}

// Free releases the native struct. The object must not be used afterwards.
func (o *NativeObject) Free() {
	if o.mem == nil {
		return
	}
	o.ctx.alloc.Release(o.mem)
	o.mem = nil
}

// Repr returns the display form.
func (o *NativeObject) Repr() string {
	return fmt.Sprintf("<%s object at 0x%x>", o.layout.Name(), uintptr(o.mem))
}
