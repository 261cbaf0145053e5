package debug

// closedQueue is a bounded FIFO of recently closed handles. Pushing onto a
// full queue evicts the oldest entry.
type closedQueue struct {
	buf  []ClosedHandle
	head int
	size int
}

func newClosedQueue(max int) *closedQueue {
	if max < 0 {
		max = 0
	}
	return &closedQueue{buf: make([]ClosedHandle, max)}
}

func (q *closedQueue) push(c ClosedHandle) {
	if len(q.buf) == 0 {
		return
	}
	if q.size == len(q.buf) {
		q.buf[q.head] = c
		q.head = (q.head + 1) % len(q.buf)
		return
	}
	q.buf[(q.head+q.size)%len(q.buf)] = c
	q.size++
}

// items returns the queue contents, oldest first.
func (q *closedQueue) items() []ClosedHandle {
	out := make([]ClosedHandle, q.size)
	for i := range out {
		out[i] = q.buf[(q.head+i)%len(q.buf)]
	}
	return out
}

// resize changes the bound, evicting the oldest entries if needed.
func (q *closedQueue) resize(max int) {
	if max < 0 {
		max = 0
	}
	items := q.items()
	if len(items) > max {
		items = items[len(items)-max:]
	}
	q.buf = make([]ClosedHandle, max)
	copy(q.buf, items)
	q.head = 0
	q.size = len(items)
}

func (q *closedQueue) max() int { return len(q.buf) }
