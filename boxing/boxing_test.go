package boxing

import (
	"math"
	"math/rand"
	"testing"
)

func TestLocalRoundTrip(t *testing.T) {
	for h := 0; h <= MaxLocal; h++ {
		w := BoxLocal(h)
		if got := UnboxLocal(w); got != h {
			t.Fatalf("UnboxLocal(BoxLocal(%d)) = %d", h, got)
		}
		if Classify(w) != KindLocal {
			t.Fatalf("BoxLocal(%d) classified as %s", h, Classify(w))
		}
	}
}

func TestBoxLocalOutOfRangePanics(t *testing.T) {
	for _, h := range []int{-1, MaxLocal + 1} {
		func() {
			defer func() {
				if recover() == nil {
					t.Errorf("BoxLocal(%d) should panic", h)
				}
			}()
			BoxLocal(h)
		}()
	}
}

func TestIntRoundTrip(t *testing.T) {
	values := []int32{0, 1, -1, 42, -42, math.MaxInt32, math.MinInt32, 1 << 20, -(1 << 20)}
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 10000; i++ {
		values = append(values, int32(rng.Uint32()))
	}

	for _, v := range values {
		w := BoxInt32(v)
		if got := UnboxInt32(w); got != v {
			t.Fatalf("UnboxInt32(BoxInt32(%d)) = %d", v, got)
		}
		if !IsBoxedInt(w) {
			t.Fatalf("IsBoxedInt(BoxInt32(%d)) = false", v)
		}
		if IsBoxedDouble(w) || IsBoxedLocal(w) || IsBoxedField(w) {
			t.Fatalf("BoxInt32(%d) matched another predicate", v)
		}
	}
}

func TestUintRoundTrip(t *testing.T) {
	for _, v := range []uint32{0, 1, math.MaxUint32, 1 << 31} {
		w := BoxUint32(v)
		if got := UnboxUint32(w); got != v {
			t.Errorf("UnboxUint32(BoxUint32(%d)) = %d", v, got)
		}
		if Classify(w) != KindInt {
			t.Errorf("BoxUint32(%d) classified as %s", v, Classify(w))
		}
	}
}

func TestDoubleRoundTrip(t *testing.T) {
	values := []float64{
		0, math.Copysign(0, -1), 1, -1, 0.5, math.Pi, -math.E,
		math.MaxFloat64, -math.MaxFloat64, math.SmallestNonzeroFloat64,
		math.Inf(1), math.Inf(-1), math.NaN(),
		math.Float64frombits(0xFFF8_0000_0000_0000), // negative quiet NaN
	}
	rng := rand.New(rand.NewSource(2))
	for i := 0; i < 10000; i++ {
		values = append(values, rng.NormFloat64()*1e6, math.Float64frombits(rng.Uint64()))
	}

	for _, d := range values {
		if !DoubleRoundTrips(d) {
			continue
		}
		w := BoxDouble(d)
		got := UnboxDouble(w)
		if math.Float64bits(got) != math.Float64bits(d) {
			t.Fatalf("UnboxDouble(BoxDouble(%x)) = %x", math.Float64bits(d), math.Float64bits(got))
		}
		if Classify(w) != KindDouble {
			t.Fatalf("BoxDouble(%g) classified as %s", d, Classify(w))
		}
	}
}

func TestExoticNaNIsCanonicalized(t *testing.T) {
	exotic := math.Float64frombits(0xFFFF_0000_0000_0001)
	if DoubleRoundTrips(exotic) {
		t.Fatal("exotic NaN should be outside the round-trip range")
	}
	w := BoxDouble(exotic)
	if !IsBoxedDouble(w) {
		t.Fatalf("BoxDouble(exotic NaN) = %v, want a double", w)
	}
	if !math.IsNaN(UnboxDouble(w)) {
		t.Fatalf("UnboxDouble = %g, want NaN", UnboxDouble(w))
	}
}

func TestFieldRoundTrip(t *testing.T) {
	tests := []struct {
		field, owner int
	}{
		{1, 0},
		{1, 1},
		{MaxFieldIndex, MaxLocal},
		{17, 12345},
		{4000, 1},
	}
	for _, tt := range tests {
		w := BoxField(tt.field, tt.owner)
		if !IsBoxedField(w) {
			t.Errorf("BoxField(%d, %d) = %v, not a field", tt.field, tt.owner, w)
		}
		field, owner := UnboxField(w)
		if field != tt.field || owner != tt.owner {
			t.Errorf("UnboxField(BoxField(%d, %d)) = (%d, %d)", tt.field, tt.owner, field, owner)
		}
	}
}

func TestBoxFieldRejectsReservedIndex(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("BoxField(0, 1) should panic")
		}
	}()
	BoxField(0, 1)
}

func TestPredicatesAreDisjoint(t *testing.T) {
	samples := []Word{
		Null, BoxLocal(1), BoxLocal(MaxLocal),
		BoxField(1, 0), BoxField(MaxFieldIndex, MaxLocal),
		BoxInt32(0), BoxInt32(-1), BoxUint32(math.MaxUint32),
		BoxDouble(0), BoxDouble(-1.5), BoxDouble(math.Inf(-1)), BoxDouble(math.NaN()),
	}
	rng := rand.New(rand.NewSource(3))
	for i := 0; i < 50000; i++ {
		samples = append(samples, Word(rng.Uint64()))
	}

	for _, w := range samples {
		n := 0
		for _, p := range []func(Word) bool{IsBoxedLocal, IsBoxedField, IsBoxedInt, IsBoxedDouble} {
			if p(w) {
				n++
			}
		}
		switch Classify(w) {
		case KindInvalid:
			if n != 0 {
				t.Fatalf("%#x: invalid word matched %d predicates", uint64(w), n)
			}
		default:
			if n != 1 {
				t.Fatalf("%#x: matched %d predicates, want 1", uint64(w), n)
			}
		}
	}
}

func TestBoundaries(t *testing.T) {
	tests := []struct {
		w    Word
		want Kind
	}{
		{0, KindLocal},
		{MaxLocal, KindLocal},
		{MaxLocal + 1, KindField},
		{1<<32 - 1, KindField},
		{1 << 32, KindInvalid},
		{IntTag - 1, KindInvalid},
		{IntTag, KindInt},
		{IntTag | 0xFFFF_FFFF_FFFF, KindInt},
		{IntTag << 1, KindInvalid},
		{DoubleBase - 1, KindInvalid},
		{DoubleBase, KindDouble},
		{math.MaxUint64, KindDouble},
	}
	for _, tt := range tests {
		if got := Classify(tt.w); got != tt.want {
			t.Errorf("Classify(%#x) = %s, want %s", uint64(tt.w), got, tt.want)
		}
	}
}

func TestWordString(t *testing.T) {
	tests := []struct {
		w    Word
		want string
	}{
		{BoxLocal(3), "local(3)"},
		{BoxField(2, 7), "field(2 of 7)"},
		{BoxInt32(-5), "int(-5)"},
		{BoxDouble(1.5), "double(1.5)"},
		{1 << 40, "invalid(0x0000010000000000)"},
	}
	for _, tt := range tests {
		if got := tt.w.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}
