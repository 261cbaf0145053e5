// Package handles provides the indirection table that lets native code hold
// stable integer references to host objects.
//
// Native code never sees a Go pointer. A host object is wrapped in a Handle;
// the first time a native representation is needed the Table assigns it an
// id, and that id is what crosses the boundary. Id 0 is permanently the null
// handle. An id becomes reusable only after it has been released.
//
// The table is single-writer: one goroutine drives native code against a
// given table at a time. Growth copies the slot array and must not race with
// readers.
package handles

import (
	"errors"
	"fmt"

	"github.com/obinnaokechukwu/ffhandle/boxing"
)

var (
	// ErrInvalidID is returned when an id is out of range or its slot is empty.
	ErrInvalidID = errors.New("ffhandle: invalid handle id")

	// ErrCapacityOverflow is returned when the table cannot grow any further.
	ErrCapacityOverflow = errors.New("ffhandle: handle table capacity overflow")
)

const (
	// Unassigned is the id of a handle that has not been materialized yet.
	Unassigned = -1

	// NullID is the id reserved for the null handle.
	NullID = 0

	// MinCapacity is the smallest capacity the table grows to.
	MinCapacity = 16

	// MaxCapacity bounds the table so every id fits a boxed local index.
	MaxCapacity = boxing.MaxLocal + 1
)

// Handle is a single indirection cell for a host object.
type Handle struct {
	delegate any
	id       int
}

// New wraps obj in a handle that has no id yet.
func New(obj any) *Handle {
	return &Handle{delegate: obj, id: Unassigned}
}

// Null returns a fresh null handle. The table keeps its own at slot 0.
func Null() *Handle {
	return &Handle{id: NullID}
}

// Delegate returns the wrapped object.
func (h *Handle) Delegate() any {
	return h.delegate
}

// ID returns the table id, or Unassigned.
func (h *Handle) ID() int {
	return h.id
}

// IsAllocated reports whether the handle currently owns a table slot.
func (h *Handle) IsAllocated() bool {
	return h.id > NullID
}

// String returns a short description for diagnostics.
func (h *Handle) String() string {
	return fmt.Sprintf("handle(%d, %T)", h.id, h.delegate)
}

// Table maps integer ids to handles.
type Table struct {
	slots []*Handle
	live  int
	// hint is a lower bound on the first empty slot.
	hint int

	// OnGrow, if set, is called after the slot array has been resized.
	OnGrow func(oldCap, newCap int)
}

// NewTable creates a table with room for capacity ids including the null slot.
func NewTable(capacity int) *Table {
	if capacity < 1 {
		capacity = 1
	}
	if capacity > MaxCapacity {
		capacity = MaxCapacity
	}
	t := &Table{slots: make([]*Handle, capacity), hint: 1}
	t.slots[NullID] = Null()
	return t
}

// Allocate stores h in the first empty slot and returns its id. The table
// doubles (minimum MinCapacity) when full, failing with ErrCapacityOverflow
// once ids would no longer fit a boxed local index.
func (t *Table) Allocate(h *Handle) (int, error) {
	if h == nil {
		return 0, fmt.Errorf("%w: nil handle", ErrInvalidID)
	}
	if h.IsAllocated() {
		return h.id, nil
	}
	id := t.scan()
	if id < 0 {
		if err := t.grow(); err != nil {
			return 0, err
		}
		if id = t.scan(); id < 0 {
			return 0, ErrCapacityOverflow
		}
	}
	t.slots[id] = h
	h.id = id
	t.live++
	t.hint = id + 1
	return id, nil
}

func (t *Table) scan() int {
	for i := t.hint; i < len(t.slots); i++ {
		if t.slots[i] == nil {
			return i
		}
	}
	return -1
}

func (t *Table) grow() error {
	oldCap := len(t.slots)
	newCap := oldCap * 2
	if newCap < MinCapacity {
		newCap = MinCapacity
	}
	if newCap > MaxCapacity {
		if oldCap >= MaxCapacity {
			return fmt.Errorf("%w: %d slots in use", ErrCapacityOverflow, t.live)
		}
		newCap = MaxCapacity
	}
	slots := make([]*Handle, newCap)
	copy(slots, t.slots)
	t.slots = slots
	if t.OnGrow != nil {
		t.OnGrow(oldCap, newCap)
	}
	return nil
}

// Lookup returns the handle stored at id.
func (t *Table) Lookup(id int) (*Handle, error) {
	if id < 0 || id >= len(t.slots) {
		return nil, fmt.Errorf("%w: %d out of range [0, %d)", ErrInvalidID, id, len(t.slots))
	}
	h := t.slots[id]
	if h == nil {
		return nil, fmt.Errorf("%w: %d is closed", ErrInvalidID, id)
	}
	return h, nil
}

// Release empties the slot at id. The handle keeps its delegate but loses
// its id, so it can be allocated again later.
func (t *Table) Release(id int) error {
	if id <= NullID || id >= len(t.slots) {
		return fmt.Errorf("%w: cannot release %d", ErrInvalidID, id)
	}
	h := t.slots[id]
	if h == nil {
		return fmt.Errorf("%w: %d already released", ErrInvalidID, id)
	}
	h.id = Unassigned
	t.slots[id] = nil
	t.live--
	if id < t.hint {
		t.hint = id
	}
	return nil
}

// IsLive reports whether id refers to an occupied slot.
func (t *Table) IsLive(id int) bool {
	return id > NullID && id < len(t.slots) && t.slots[id] != nil
}

// Cap returns the number of slots, including the null slot.
func (t *Table) Cap() int {
	return len(t.slots)
}

// Count returns the number of live handles, excluding the null handle.
// Useful for debugging and testing leaks.
func (t *Table) Count() int {
	return t.live
}
