package debug

import (
	"fmt"
	"strconv"

	"github.com/obinnaokechukwu/ffhandle/internal/handles"
)

// Reprer is implemented by objects with a custom display form.
type Reprer interface {
	Repr() string
}

// Repr returns the display form of obj.
func Repr(obj any) string {
	switch v := obj.(type) {
	case nil:
		return "None"
	case Reprer:
		return v.Repr()
	case string:
		return strconv.Quote(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// View is the tooling-facing view of a handle. Two views are equal when
// they refer to the same underlying handle.
type View struct {
	table      *Table
	h          *handles.Handle
	id         int
	obj        any
	generation int32
	released   bool
}

// Object returns the referent.
func (v View) Object() any {
	if v.released {
		return v.obj
	}
	return v.h.Delegate()
}

// ID returns the id the handle had when the view was taken.
func (v View) ID() int {
	return v.id
}

// Generation returns the generation the handle was allocated in.
func (v View) Generation() int {
	return int(v.generation)
}

// IsClosed reports whether the handle no longer occupies its slot.
func (v View) IsClosed() bool {
	return !v.table.isOpen(v.id, v.h)
}

// Equal reports whether v and o refer to the same handle.
func (v View) Equal(o View) bool {
	return v.h == o.h
}

// String returns "<DebugHandle 0x{id} for {repr(obj)}>".
func (v View) String() string {
	return fmt.Sprintf("<DebugHandle 0x%x for %s>", v.id, Repr(v.Object()))
}
