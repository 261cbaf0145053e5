package debug

import "fmt"

// Record packs the generation and age of a handle id into one word:
// generation in the high 32 bits, age in the low 32 bits.
type Record uint64

// closedRecord marks an id whose handle has been released. Its generation
// decodes as -1, below every real generation.
const closedRecord = Record(0xFFFF_FFFF_0000_0000)

// NewRecord packs generation and age.
func NewRecord(generation, age int32) Record {
	return Record(uint64(uint32(generation))<<32 | uint64(uint32(age)))
}

// Decode returns the generation and age.
func (r Record) Decode() (generation, age int32) {
	return int32(uint32(r >> 32)), int32(uint32(r))
}

// IsClosed reports whether r is the closed sentinel.
func (r Record) IsClosed() bool {
	return r == closedRecord
}

// String returns "age@generation", or "closed".
func (r Record) String() string {
	if r.IsClosed() {
		return "closed"
	}
	gen, age := r.Decode()
	return fmt.Sprintf("%d@%d", age, gen)
}
