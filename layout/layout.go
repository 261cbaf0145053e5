// Package layout describes native struct layouts with typed field
// descriptors instead of bare byte offsets.
//
// A layout is derived once from a Go struct that mirrors the native
// definition:
//
//	type pointLayout struct {
//		X    int64       `native:"x"`
//		Y    int64       `native:"y"`
//		Next boxing.Word `native:"next"`
//	}
//
//	var pointType = layout.Of[pointLayout]()
//	var pointX = layout.MustField[int64](pointType, "x")
//
// Accessors take the typed Field, so a field can only be read as the type
// it was declared with.
package layout

import (
	"errors"
	"fmt"
	"reflect"
	"unsafe"
)

var (
	// ErrNoField is returned when a layout has no field with the given name.
	ErrNoField = errors.New("ffhandle: no such field")

	// ErrTypeMismatch is returned when a field is requested with the wrong type.
	ErrTypeMismatch = errors.New("ffhandle: field type mismatch")
)

// Descriptor describes one field.
type Descriptor struct {
	Name   string
	Type   reflect.Type
	Offset uintptr
	Size   uintptr
}

// Layout is the full description of a struct.
type Layout struct {
	name   string
	size   uintptr
	align  uintptr
	fields []Descriptor
	byName map[string]int
}

// Of builds the layout of struct type S. Field names come from the
// `native` struct tag, falling back to the Go field name. Fields tagged
// `native:"-"` are skipped. It panics if S is not a struct.
func Of[S any]() *Layout {
	t := reflect.TypeOf((*S)(nil)).Elem()
	if t.Kind() != reflect.Struct {
		panic(fmt.Sprintf("layout: %s is not a struct", t))
	}
	l := &Layout{
		name:   t.Name(),
		size:   t.Size(),
		align:  uintptr(t.Align()),
		byName: make(map[string]int, t.NumField()),
	}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		name := f.Name
		if tag, ok := f.Tag.Lookup("native"); ok {
			if tag == "-" {
				continue
			}
			name = tag
		}
		l.byName[name] = len(l.fields)
		l.fields = append(l.fields, Descriptor{
			Name:   name,
			Type:   f.Type,
			Offset: f.Offset,
			Size:   f.Type.Size(),
		})
	}
	return l
}

// Name returns the Go name of the struct.
func (l *Layout) Name() string { return l.name }

// Size returns the size of the struct in bytes.
func (l *Layout) Size() uintptr { return l.size }

// Align returns the alignment of the struct.
func (l *Layout) Align() uintptr { return l.align }

// Fields returns the field descriptors in declaration order.
func (l *Layout) Fields() []Descriptor {
	out := make([]Descriptor, len(l.fields))
	copy(out, l.fields)
	return out
}

// Descriptor returns the descriptor of the named field.
func (l *Layout) Descriptor(name string) (Descriptor, bool) {
	i, ok := l.byName[name]
	if !ok {
		return Descriptor{}, false
	}
	return l.fields[i], true
}

// Field is a typed handle on one field of a layout.
type Field[T any] struct {
	name   string
	offset uintptr
}

// FieldOf returns the typed field called name. T must be the declared type.
func FieldOf[T any](l *Layout, name string) (Field[T], error) {
	d, ok := l.Descriptor(name)
	if !ok {
		return Field[T]{}, fmt.Errorf("%w: %s.%s", ErrNoField, l.name, name)
	}
	if want := reflect.TypeOf((*T)(nil)).Elem(); d.Type != want {
		return Field[T]{}, fmt.Errorf("%w: %s.%s is %s, not %s", ErrTypeMismatch, l.name, name, d.Type, want)
	}
	return Field[T]{name: name, offset: d.Offset}, nil
}

// MustField is like FieldOf but panics on error. It is meant for
// package-level field declarations.
func MustField[T any](l *Layout, name string) Field[T] {
	f, err := FieldOf[T](l, name)
	if err != nil {
		panic(err)
	}
	return f
}

// Name returns the field name.
func (f Field[T]) Name() string { return f.name }

// Offset returns the byte offset of the field.
func (f Field[T]) Offset() uintptr { return f.offset }

// Load reads the field from the struct at base.
func (f Field[T]) Load(base unsafe.Pointer) T {
	return *(*T)(unsafe.Add(base, f.offset))
}

// Store writes the field of the struct at base.
func (f Field[T]) Store(base unsafe.Pointer, v T) {
	*(*T)(unsafe.Add(base, f.offset)) = v
}
