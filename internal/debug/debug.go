// Package debug wraps a handle table with leak and misuse auditing.
//
// Every allocation is stamped with the current generation and a running
// age. Tooling calls NewGeneration to set a checkpoint and OpenHandles to
// list what was allocated since then and is still open. Releases are
// remembered in a bounded queue of closed handles.
//
// Using an id that is out of range or already closed is reported to the
// registered callback. Without a callback it is fatal: a dangling native
// reference can corrupt the object graph in ways no later check can see.
package debug

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/obinnaokechukwu/ffhandle/internal/handles"
)

// DefaultClosedQueueSize is the default bound of the closed-handle queue.
const DefaultClosedQueueSize = 1024

// Misuse describes an invalid use of a handle id.
type Misuse struct {
	Op     string
	ID     int
	Reason string
}

// Error implements the error interface.
func (m Misuse) Error() string {
	return fmt.Sprintf("ffhandle: invalid handle %d in %s: %s", m.ID, m.Op, m.Reason)
}

// ClosedHandle is an entry in the closed-handle queue.
type ClosedHandle struct {
	ID         int
	Object     any
	Generation int32
	handle     *handles.Handle
}

// Option configures a Table.
type Option func(*Table)

// WithLogger sets the logger used for diagnostics and the fatal path.
func WithLogger(log *zap.Logger) Option {
	return func(t *Table) { t.log = log }
}

// WithClosedQueueSize sets the bound of the closed-handle queue.
func WithClosedQueueSize(n int) Option {
	return func(t *Table) { t.closed = newClosedQueue(n) }
}

// WithInvalidHandleCallback installs fn as the misuse callback.
func WithInvalidHandleCallback(fn func(Misuse)) Option {
	return func(t *Table) { t.onInvalid = fn }
}

// Table decorates a handles.Table. Its methods are safe to call from more
// than one goroutine, which keeps the diagnostics reliable under accidental
// concurrent misuse; the underlying table is still single-writer.
type Table struct {
	mu         sync.Mutex
	table      *handles.Table
	records    []Record
	generation int32
	age        int32
	closed     *closedQueue
	onInvalid  func(Misuse)
	log        *zap.Logger
}

// New wraps t.
func New(t *handles.Table, opts ...Option) *Table {
	d := &Table{
		table:  t,
		closed: newClosedQueue(DefaultClosedQueueSize),
		log:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.records = make([]Record, t.Cap())
	return d
}

// Unwrap returns the underlying table.
func (d *Table) Unwrap() *handles.Table {
	return d.table
}

// Allocate delegates to the underlying table and stamps the new id with the
// current generation and age.
func (d *Table) Allocate(h *handles.Handle) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if h.IsAllocated() {
		return h.ID(), nil
	}
	id, err := d.table.Allocate(h)
	if err != nil {
		return 0, err
	}
	if id >= len(d.records) {
		n := 2 * len(d.records)
		if n < id+1 {
			n = id + 1
		}
		if n < handles.MinCapacity {
			n = handles.MinCapacity
		}
		records := make([]Record, n)
		copy(records, d.records)
		d.records = records
	}
	d.records[id] = NewRecord(d.generation, d.age)
	d.age++
	return id, nil
}

// Lookup returns the handle at id, reporting a misuse if id is out of range
// or closed.
func (d *Table) Lookup(id int) (*handles.Handle, error) {
	d.mu.Lock()
	h, err := d.table.Lookup(id)
	d.mu.Unlock()
	if err != nil {
		return nil, d.report(Misuse{Op: "lookup", ID: id, Reason: d.reason(id)}, err)
	}
	return h, nil
}

// Release records the handle in the closed queue, marks its record closed
// and releases it from the underlying table.
func (d *Table) Release(id int) error {
	d.mu.Lock()
	if !d.table.IsLive(id) {
		d.mu.Unlock()
		return d.report(Misuse{Op: "release", ID: id, Reason: d.reason(id)}, handles.ErrInvalidID)
	}
	h, _ := d.table.Lookup(id)
	gen := int32(-1)
	if id < len(d.records) {
		gen, _ = d.records[id].Decode()
		d.records[id] = closedRecord
	}
	d.closed.push(ClosedHandle{ID: id, Object: h.Delegate(), Generation: gen, handle: h})
	err := d.table.Release(id)
	d.mu.Unlock()
	return err
}

// ReportClosed reports a release of h after h was already closed. The
// misuse carries the id h held when it was closed, if the closed queue
// still remembers it.
func (d *Table) ReportClosed(h *handles.Handle, cause error) error {
	d.mu.Lock()
	id := h.ID()
	for _, c := range d.closed.items() {
		if c.handle == h {
			id = c.ID
		}
	}
	d.mu.Unlock()
	return d.report(Misuse{Op: "release", ID: id, Reason: "already closed"}, cause)
}

func (d *Table) reason(id int) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	switch {
	case id == handles.NullID:
		return "null handle"
	case id < 0 || id >= d.table.Cap():
		return "out of range"
	default:
		return "already closed"
	}
}

// report hands m to the callback, or aborts the process through the
// logger's fatal hook when there is none.
func (d *Table) report(m Misuse, cause error) error {
	d.mu.Lock()
	cb := d.onInvalid
	d.mu.Unlock()

	if cb != nil {
		cb(m)
		return fmt.Errorf("%w: %s", cause, m.Reason)
	}
	d.log.Fatal("invalid handle usage",
		zap.String("op", m.Op),
		zap.Int("id", m.ID),
		zap.String("reason", m.Reason),
	)
	return m
}

// SetInvalidHandleCallback installs fn as the misuse callback. A nil fn
// restores the fatal behavior.
func (d *Table) SetInvalidHandleCallback(fn func(Misuse)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onInvalid = fn
}

// NewGeneration starts a new generation and returns its number.
func (d *Table) NewGeneration() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.generation++
	d.age = 0
	d.log.Debug("new handle generation", zap.Int32("generation", d.generation))
	return int(d.generation)
}

// Generation returns the current generation.
func (d *Table) Generation() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return int(d.generation)
}

// Record returns the record stored for id.
func (d *Table) Record(id int) (Record, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if id <= handles.NullID || id >= len(d.records) {
		return 0, false
	}
	return d.records[id], true
}

// OpenHandles returns the handles allocated in generation minGeneration or
// later that are still open, ordered by id.
func (d *Table) OpenHandles(minGeneration int) []View {
	d.mu.Lock()
	defer d.mu.Unlock()

	var out []View
	for id := 1; id < len(d.records); id++ {
		r := d.records[id]
		gen, _ := r.Decode()
		if r.IsClosed() || int(gen) < minGeneration || !d.table.IsLive(id) {
			continue
		}
		h, _ := d.table.Lookup(id)
		out = append(out, View{table: d, h: h, id: id, generation: gen})
	}
	return out
}

// ClosedHandles returns the closed-handle queue, oldest first.
func (d *Table) ClosedHandles() []View {
	d.mu.Lock()
	defer d.mu.Unlock()

	items := d.closed.items()
	out := make([]View, len(items))
	for i, c := range items {
		out[i] = View{table: d, h: c.handle, id: c.ID, obj: c.Object, generation: c.Generation, released: true}
	}
	return out
}

// ClosedQueueMaxSize returns the bound of the closed-handle queue.
func (d *Table) ClosedQueueMaxSize() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed.max()
}

// SetClosedQueueMaxSize changes the bound, evicting the oldest entries.
func (d *Table) SetClosedQueueMaxSize(n int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed.resize(n)
}

// isOpen reports whether h still occupies slot id.
func (d *Table) isOpen(id int, h *handles.Handle) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	cur, err := d.table.Lookup(id)
	return err == nil && cur == h
}

// View returns the view of h, which must be allocated.
func (d *Table) View(h *handles.Handle) View {
	d.mu.Lock()
	defer d.mu.Unlock()
	id := h.ID()
	var gen int32
	if id > handles.NullID && id < len(d.records) {
		gen, _ = d.records[id].Decode()
	}
	return View{table: d, h: h, id: id, generation: gen}
}
