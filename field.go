package ffhandle

import (
	"fmt"

	"github.com/obinnaokechukwu/ffhandle/boxing"
	"github.com/obinnaokechukwu/ffhandle/internal/handles"
	"github.com/obinnaokechukwu/ffhandle/layout"
)

// FieldOwner is implemented by objects that can hold field references.
type FieldOwner = handles.FieldOwner

func (c *Context) fieldOwner(owner boxing.Word) (handles.FieldOwner, error) {
	h, err := c.Lookup(owner)
	if err != nil {
		return nil, err
	}
	o, ok := h.Delegate().(handles.FieldOwner)
	if !ok {
		return nil, fmt.Errorf("%w: %T cannot hold fields", ErrTypeMismatch, h.Delegate())
	}
	return o, nil
}

// fieldLocation extracts the slot location from a stored field word. The
// null word means the field was never written. A reference into another
// owner's slots is rejected.
func fieldLocation(owner, ref boxing.Word) (int, error) {
	switch {
	case ref == boxing.Null:
		return 0, nil
	case boxing.IsBoxedField(ref):
		loc, id := boxing.UnboxField(ref)
		if id != boxing.UnboxLocal(owner) {
			return 0, fmt.Errorf("%w: %v belongs to handle %d, not %d", ErrInvalidWord, ref, id, boxing.UnboxLocal(owner))
		}
		return loc, nil
	default:
		return 0, fmt.Errorf("%w: %v is not a field reference", ErrInvalidWord, ref)
	}
}

// StoreFieldRef stores the object value refers to into owner's field
// slots and returns the field reference to keep in the native struct. ref
// is the word currently held by the field, Null if it was never written.
func (c *Context) StoreFieldRef(owner, ref, value boxing.Word) (boxing.Word, error) {
	o, err := c.fieldOwner(owner)
	if err != nil {
		return boxing.Null, err
	}
	loc, err := fieldLocation(owner, ref)
	if err != nil {
		return boxing.Null, err
	}
	referent, err := c.Unbox(value)
	if err != nil {
		return boxing.Null, err
	}
	loc, err = handles.Write(o, referent, loc)
	if err != nil {
		return boxing.Null, err
	}
	return boxing.BoxField(loc, boxing.UnboxLocal(owner)), nil
}

// LoadFieldRef returns a new boxed value for the object stored in the field
// ref of owner. The caller owns the result.
func (c *Context) LoadFieldRef(owner, ref boxing.Word) (boxing.Word, error) {
	o, err := c.fieldOwner(owner)
	if err != nil {
		return boxing.Null, err
	}
	loc, err := fieldLocation(owner, ref)
	if err != nil {
		return boxing.Null, err
	}
	if loc == 0 {
		return boxing.Null, nil
	}
	v, err := handles.Read(o, loc)
	if err != nil {
		return boxing.Null, err
	}
	return c.Box(v)
}

// StoreField writes value into field f of the native struct owned by the
// NativeObject that owner refers to.
func (c *Context) StoreField(owner boxing.Word, f layout.Field[boxing.Word], value boxing.Word) error {
	obj, err := c.nativeObject(owner)
	if err != nil {
		return err
	}
	ref, err := c.StoreFieldRef(owner, f.Load(obj.Base()), value)
	if err != nil {
		return err
	}
	f.Store(obj.Base(), ref)
	return nil
}

// LoadField reads field f of the native struct owned by the NativeObject
// that owner refers to. The caller owns the result.
func (c *Context) LoadField(owner boxing.Word, f layout.Field[boxing.Word]) (boxing.Word, error) {
	obj, err := c.nativeObject(owner)
	if err != nil {
		return boxing.Null, err
	}
	return c.LoadFieldRef(owner, f.Load(obj.Base()))
}

func (c *Context) nativeObject(owner boxing.Word) (*NativeObject, error) {
	h, err := c.Lookup(owner)
	if err != nil {
		return nil, err
	}
	obj, ok := h.Delegate().(*NativeObject)
	if !ok {
		return nil, fmt.Errorf("%w: %T has no native struct", ErrTypeMismatch, h.Delegate())
	}
	if obj.Base() == nil {
		return nil, fmt.Errorf("%w: native struct was freed", ErrClosed)
	}
	return obj, nil
}
