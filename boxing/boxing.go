// Package boxing implements the 64-bit word encoding used to pass values
// across the native boundary without allocating.
//
// A Word is a tagged union laid over IEEE-754 double bit patterns:
//
//	[0, 2^20)                    local handle index (0 is the null handle)
//	[2^20, 2^32)                 field reference: fieldIndex<<20 | ownerLocal
//	0x0001_xxxx_xxxx_xxxx        32-bit integer in the low 32 bits
//	[DoubleBase, 2^64)           double, stored as its raw bits plus DoubleBase
//
// Every other pattern is never produced and classifies as KindInvalid.
//
// Doubles are only guaranteed to round-trip when their raw bits are below
// 2^64-DoubleBase. The excluded patterns are negative NaNs with a payload
// above 0xFFF9_0000_0000_0000, which ordinary arithmetic never produces;
// BoxDouble replaces them with the canonical NaN instead of letting them
// wrap into the handle range.
package boxing

import (
	"fmt"
	"math"
)

// Word is a boxed value.
type Word uint64

const (
	// LocalBits is the width of a local handle index.
	LocalBits = 20

	// MaxLocal is the largest local handle index that can be boxed.
	MaxLocal = 1<<LocalBits - 1

	// FieldBits is the width of a field index inside a field reference.
	FieldBits = 12

	// MaxFieldIndex is the largest field index. Field index 0 is reserved.
	MaxFieldIndex = 1<<FieldBits - 1

	// IntTag marks the embedded integer band.
	IntTag Word = 0x0001_0000_0000_0000

	// TagMask selects the top 16 bits of a word.
	TagMask Word = 0xFFFF_0000_0000_0000

	// DoubleBase is the bias added to the raw bits of a double.
	DoubleBase Word = 0x0007_0000_0000_0000

	fieldLimit Word = 1 << (LocalBits + FieldBits)

	// maxDoubleBits is the largest raw double that boxes without wraparound.
	maxDoubleBits = math.MaxUint64 - uint64(DoubleBase)
)

// Null is the boxed null handle.
const Null Word = 0

// Kind classifies a Word.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindLocal
	KindField
	KindInt
	KindDouble
)

// String returns the name of the kind.
func (k Kind) String() string {
	switch k {
	case KindLocal:
		return "local"
	case KindField:
		return "field"
	case KindInt:
		return "int"
	case KindDouble:
		return "double"
	default:
		return "invalid"
	}
}

// BoxLocal boxes a local handle index. It panics if h is outside [0, MaxLocal].
func BoxLocal(h int) Word {
	if h < 0 || h > MaxLocal {
		panic(fmt.Sprintf("boxing: local handle %d out of range", h))
	}
	return Word(h)
}

// UnboxLocal returns the local handle index stored in w.
func UnboxLocal(w Word) int {
	return int(w)
}

// BoxField boxes a reference to field index field of the object held by
// local handle owner. field must be in [1, MaxFieldIndex].
func BoxField(field, owner int) Word {
	if field < 1 || field > MaxFieldIndex {
		panic(fmt.Sprintf("boxing: field index %d out of range", field))
	}
	if owner < 0 || owner > MaxLocal {
		panic(fmt.Sprintf("boxing: owner handle %d out of range", owner))
	}
	return Word(field)<<LocalBits | Word(owner)
}

// UnboxField splits a field reference into its field index and owner handle.
func UnboxField(w Word) (field, owner int) {
	return int(w >> LocalBits), int(w & MaxLocal)
}

// BoxInt32 boxes a signed 32-bit integer.
func BoxInt32(v int32) Word {
	return IntTag | Word(uint32(v))
}

// UnboxInt32 returns the signed 32-bit integer stored in w.
func UnboxInt32(w Word) int32 {
	return int32(uint32(w))
}

// BoxUint32 boxes an unsigned 32-bit integer. It shares the int band with
// BoxInt32; the caller decides the signedness when unboxing.
func BoxUint32(v uint32) Word {
	return IntTag | Word(v)
}

// UnboxUint32 returns the unsigned 32-bit integer stored in w.
func UnboxUint32(w Word) uint32 {
	return uint32(w)
}

// FitsInt32 reports whether v can be boxed with BoxInt32.
func FitsInt32(v int64) bool {
	return v >= math.MinInt32 && v <= math.MaxInt32
}

// BoxDouble boxes a double. Patterns in the reserved NaN range are
// canonicalized to math.NaN().
func BoxDouble(f float64) Word {
	bits := math.Float64bits(f)
	if bits > maxDoubleBits {
		bits = math.Float64bits(math.NaN())
	}
	return Word(bits) + DoubleBase
}

// UnboxDouble returns the double stored in w.
func UnboxDouble(w Word) float64 {
	return math.Float64frombits(uint64(w - DoubleBase))
}

// DoubleRoundTrips reports whether BoxDouble preserves the bits of f.
func DoubleRoundTrips(f float64) bool {
	return math.Float64bits(f) <= maxDoubleBits
}

// IsBoxedLocal reports whether w is a local handle index.
func IsBoxedLocal(w Word) bool {
	return w <= MaxLocal
}

// IsBoxedField reports whether w is a field reference.
func IsBoxedField(w Word) bool {
	return w > MaxLocal && w < fieldLimit
}

// IsBoxedInt reports whether w is an embedded 32-bit integer.
func IsBoxedInt(w Word) bool {
	return w&TagMask == IntTag
}

// IsBoxedDouble reports whether w is a boxed double.
func IsBoxedDouble(w Word) bool {
	return w >= DoubleBase
}

// Classify returns the kind of w. Exactly one IsBoxed predicate holds for
// every word whose kind is not KindInvalid.
func Classify(w Word) Kind {
	switch {
	case IsBoxedLocal(w):
		return KindLocal
	case IsBoxedField(w):
		return KindField
	case IsBoxedInt(w):
		return KindInt
	case IsBoxedDouble(w):
		return KindDouble
	default:
		return KindInvalid
	}
}

// String formats w with its kind and payload.
func (w Word) String() string {
	switch Classify(w) {
	case KindLocal:
		return fmt.Sprintf("local(%d)", UnboxLocal(w))
	case KindField:
		field, owner := UnboxField(w)
		return fmt.Sprintf("field(%d of %d)", field, owner)
	case KindInt:
		return fmt.Sprintf("int(%d)", UnboxInt32(w))
	case KindDouble:
		return fmt.Sprintf("double(%g)", UnboxDouble(w))
	default:
		return fmt.Sprintf("invalid(0x%016x)", uint64(w))
	}
}
