package handles

import (
	"errors"
	"fmt"

	"github.com/obinnaokechukwu/ffhandle/boxing"
)

// ErrInvalidField is returned when a field location was never written.
var ErrInvalidField = errors.New("ffhandle: invalid field location")

// Slots is the private slot array an object embeds to hold references
// stored in the fields of its native struct. The zero value is ready to use.
type Slots struct {
	items []any
}

// Len returns the length of the slot array, including the reserved slot 0.
func (s *Slots) Len() int {
	return len(s.items)
}

// FieldOwner is implemented by host objects that carry native struct fields.
type FieldOwner interface {
	FieldSlots() *Slots
}

// FieldHandle is a reference held in a native struct field. Its location is
// local to the owner, not an id in the global table.
type FieldHandle struct {
	Owner    FieldOwner
	Referent any
	Location int
}

// Write stores referent into owner's slot array. A location of 0 appends a
// new slot and returns its location; any other location is overwritten in
// place. Slots are never removed individually.
func Write(owner FieldOwner, referent any, location int) (int, error) {
	s := owner.FieldSlots()
	if location != 0 {
		if location < 0 || location >= len(s.items) {
			return 0, fmt.Errorf("%w: %d", ErrInvalidField, location)
		}
		s.items[location] = referent
		return location, nil
	}
	if len(s.items) == 0 {
		s.items = append(s.items, nil)
	}
	if len(s.items) > boxing.MaxFieldIndex {
		return 0, fmt.Errorf("%w: more than %d fields", ErrCapacityOverflow, boxing.MaxFieldIndex)
	}
	s.items = append(s.items, referent)
	return len(s.items) - 1, nil
}

// Read returns the referent stored at location.
func Read(owner FieldOwner, location int) (any, error) {
	s := owner.FieldSlots()
	if location <= 0 || location >= len(s.items) {
		return nil, fmt.Errorf("%w: %d", ErrInvalidField, location)
	}
	return s.items[location], nil
}

// Store writes f.Referent and records the assigned location in f.
func (f *FieldHandle) Store() error {
	loc, err := Write(f.Owner, f.Referent, f.Location)
	if err != nil {
		return err
	}
	f.Location = loc
	return nil
}

// Load refreshes f.Referent from the owner's slot array.
func (f *FieldHandle) Load() error {
	v, err := Read(f.Owner, f.Location)
	if err != nil {
		return err
	}
	f.Referent = v
	return nil
}
