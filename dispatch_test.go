package ffhandle

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obinnaokechukwu/ffhandle/abi"
	"github.com/obinnaokechukwu/ffhandle/boxing"
)

func call(t *testing.T, c *Context, e abi.Entry, args ...boxing.Word) boxing.Word {
	t.Helper()
	w := c.Call(e, args...)
	require.NoError(t, c.Err(), "%s", e)
	return w
}

func TestEveryEntryIsBound(t *testing.T) {
	c := newTestContext(t)
	for i := 0; i < abi.NumEntries(); i++ {
		e := abi.Entry(i)
		args := make([]boxing.Word, e.Arity())
		_, err := c.ABI().Call(e, args...)
		assert.False(t, errors.Is(err, abi.ErrNotImplemented), "%s is not bound", e)
	}
}

func TestLongRoundTrip(t *testing.T) {
	c := newTestContext(t)
	for _, v := range []int64{0, -7, math.MaxInt32, math.MinInt32, 1 << 40, math.MinInt64} {
		w := call(t, c, abi.LongFromLong, boxing.Word(v))
		got := call(t, c, abi.LongAsLong, w)
		assert.Equal(t, v, int64(got))
	}
	assert.Equal(t, boxing.BoxInt32(-7), call(t, c, abi.LongFromLong, boxing.Word(uint64(0xFFFF_FFFF_FFFF_FFF9))))
}

func TestFloatRoundTrip(t *testing.T) {
	c := newTestContext(t)
	for _, f := range []float64{0, 1.5, -2.25, math.Inf(1), math.MaxFloat64} {
		w := call(t, c, abi.FloatFromDouble, boxing.Word(math.Float64bits(f)))
		assert.True(t, boxing.IsBoxedDouble(w))
		got := call(t, c, abi.FloatAsDouble, w)
		assert.Equal(t, f, math.Float64frombits(uint64(got)))
	}

	got := call(t, c, abi.FloatAsDouble, boxing.BoxInt32(3))
	assert.Equal(t, 3.0, math.Float64frombits(uint64(got)))
}

func TestLongAsLongRejectsFloat(t *testing.T) {
	c := newTestContext(t)
	w := c.Call(abi.LongAsLong, boxing.BoxDouble(1.5))
	assert.Equal(t, boxing.Null, w)
	assert.ErrorIs(t, c.Err(), ErrTypeMismatch)

	var ne *NativeError
	require.ErrorAs(t, c.Err(), &ne)
	assert.Equal(t, "ctx_Long_AsLong", ne.Op)
}

func TestDictEntries(t *testing.T) {
	c := newTestContext(t)
	d := call(t, c, abi.DictNew)
	key := box(t, c, "answer")
	call(t, c, abi.DictSetItem, d, key, boxing.BoxInt32(42))

	got := call(t, c, abi.DictGetItem, d, key)
	assert.Equal(t, boxing.BoxInt32(42), got)

	obj, err := c.Unbox(d)
	require.NoError(t, err)
	assert.Equal(t, `{"answer": 42}`, obj.(*Dict).Repr())

	c.Call(abi.DictGetItem, d, box(t, c, "missing"))
	assert.ErrorIs(t, c.Err(), ErrKeyNotFound)
	c.ClearErr()

	c.Call(abi.DictSetItem, d, call(t, c, abi.ListNew), boxing.Null)
	assert.ErrorIs(t, c.Err(), ErrUnhashable)
}

func TestListEntries(t *testing.T) {
	c := newTestContext(t)
	l := call(t, c, abi.ListNew)
	call(t, c, abi.ListAppend, l, boxing.BoxInt32(1))
	call(t, c, abi.ListAppend, l, box(t, c, "two"))
	call(t, c, abi.ListAppend, l, boxing.Null)

	obj, err := c.Unbox(l)
	require.NoError(t, err)
	assert.Equal(t, `[1, "two", None]`, obj.(*List).Repr())

	c.Call(abi.ListAppend, box(t, c, "not a list"), boxing.Null)
	assert.ErrorIs(t, c.Err(), ErrTypeMismatch)
}

func TestArityMismatchBecomesNativeError(t *testing.T) {
	c := newTestContext(t)
	w := c.Call(abi.DictSetItem, boxing.Null)
	assert.Equal(t, boxing.Null, w)

	var ae *ArityError
	require.ErrorAs(t, c.Err(), &ae)
	assert.Equal(t, "ctx_Dict_SetItem", ae.Name)
	assert.Equal(t, 3, ae.Expected)
	assert.Equal(t, 1, ae.Got)
	assert.Equal(t, boxing.BoxInt32(1), c.Call(abi.ErrOccurred))
}

func TestErrorEntries(t *testing.T) {
	c := newTestContext(t)
	assert.Equal(t, boxing.BoxInt32(0), call(t, c, abi.ErrOccurred))

	c.Call(abi.ErrSetString, box(t, c, "boom"))
	var ne *NativeError
	require.ErrorAs(t, c.Err(), &ne)
	assert.Equal(t, "boom", ne.Message)
	assert.Equal(t, "ffhandle: boom", ne.Error())
	assert.Equal(t, boxing.BoxInt32(1), c.Call(abi.ErrOccurred))

	c.Call(abi.ErrClear)
	assert.NoError(t, c.Err())
	assert.Equal(t, boxing.BoxInt32(0), c.Call(abi.ErrOccurred))
}

func TestTrackerEntries(t *testing.T) {
	c := newTestContext(t)
	tid := call(t, c, abi.TrackerNew, boxing.BoxInt32(0))
	require.True(t, boxing.IsBoxedInt(tid))

	for i := 0; i < 5; i++ {
		call(t, c, abi.TrackerAdd, tid, box(t, c, i+1<<40))
	}
	returned := box(t, c, "result")
	assert.Equal(t, 6, c.HandleCount())

	call(t, c, abi.TrackerClose, tid)
	assert.Equal(t, 1, c.HandleCount())

	c.Call(abi.TrackerClose, tid)
	assert.ErrorIs(t, c.Err(), ErrInvalidTracker)
	c.ClearErr()

	other := call(t, c, abi.TrackerNew, boxing.BoxInt32(2))
	call(t, c, abi.TrackerAdd, other, returned)
	call(t, c, abi.TrackerForgetAll, other)
	call(t, c, abi.TrackerClose, other)
	assert.Equal(t, 1, c.HandleCount())
}

func TestFieldEntries(t *testing.T) {
	c := newTestContext(t)
	obj, owner := newNode(t, c)

	ref := call(t, c, abi.FieldStore, owner, nodeLeft.Load(obj.Base()), box(t, c, "child"))
	nodeLeft.Store(obj.Base(), ref)

	got := call(t, c, abi.FieldLoad, owner, nodeLeft.Load(obj.Base()))
	v, err := c.Unbox(got)
	require.NoError(t, err)
	assert.Equal(t, "child", v)
}

func TestGlobalEntries(t *testing.T) {
	c := newTestContext(t)
	call(t, c, abi.GlobalStore, boxing.BoxInt32(2), box(t, c, "module state"))
	got := call(t, c, abi.GlobalLoad, boxing.BoxInt32(2))
	v, err := c.Unbox(got)
	require.NoError(t, err)
	assert.Equal(t, "module state", v)

	c.Call(abi.GlobalLoad, boxing.BoxInt32(9))
	assert.ErrorIs(t, c.Err(), ErrInvalidID)
}

func TestDupAndCloseEntries(t *testing.T) {
	c := newTestContext(t)
	w := box(t, c, "x")
	d := call(t, c, abi.Dup, w)
	assert.NotEqual(t, w, d)
	call(t, c, abi.Close, w)
	call(t, c, abi.Close, d)
	assert.Equal(t, 0, c.HandleCount())
}
