package ffhandle

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/obinnaokechukwu/ffhandle/boxing"
)

func newTestContext(t *testing.T, mutate ...func(*Options)) *Context {
	t.Helper()
	opts := DefaultOptions()
	opts.InitialHandles = 4
	opts.Logger = zaptest.NewLogger(t)
	for _, m := range mutate {
		m(&opts)
	}
	c, err := New(opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func box(t *testing.T, c *Context, obj any) boxing.Word {
	t.Helper()
	w, err := c.Box(obj)
	require.NoError(t, err)
	return w
}

func TestBoxEmbedsPrimitives(t *testing.T) {
	c := newTestContext(t)

	tests := []struct {
		name string
		obj  any
		kind boxing.Kind
		want any
	}{
		{"int", 7, boxing.KindInt, int64(7)},
		{"int32", int32(-3), boxing.KindInt, int64(-3)},
		{"int64 small", int64(math.MinInt32), boxing.KindInt, int64(math.MinInt32)},
		{"double", 2.5, boxing.KindDouble, 2.5},
		{"negative zero", math.Copysign(0, -1), boxing.KindDouble, math.Copysign(0, -1)},
		{"int64 large", int64(1) << 40, boxing.KindLocal, int64(1) << 40},
		{"string", "hello", boxing.KindLocal, "hello"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := box(t, c, tt.obj)
			assert.Equal(t, tt.kind, boxing.Classify(w))
			got, err := c.Unbox(w)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEmbeddedValuesUseNoSlots(t *testing.T) {
	c := newTestContext(t)
	for i := 0; i < 100; i++ {
		box(t, c, i)
		box(t, c, float64(i)/3)
	}
	assert.Equal(t, 0, c.HandleCount())
}

func TestNullRoundTrip(t *testing.T) {
	c := newTestContext(t)
	assert.Equal(t, boxing.Null, box(t, c, nil))
	got, err := c.Unbox(boxing.Null)
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.NoError(t, c.CloseHandle(boxing.Null))
}

func TestMaterializeIsLazyAndStable(t *testing.T) {
	c := newTestContext(t)
	h := c.NewHandle("lazy")
	assert.False(t, h.IsAllocated())
	assert.Equal(t, 0, c.HandleCount())

	id, err := c.Materialize(h)
	require.NoError(t, err)
	assert.NotZero(t, id)
	again, err := c.Materialize(h)
	require.NoError(t, err)
	assert.Equal(t, id, again)
	assert.Equal(t, 1, c.HandleCount())
}

func TestDupAndClose(t *testing.T) {
	c := newTestContext(t)
	w := box(t, c, "shared")
	d, err := c.Dup(w)
	require.NoError(t, err)
	assert.NotEqual(t, w, d)

	require.NoError(t, c.CloseHandle(w))
	got, err := c.Unbox(d)
	require.NoError(t, err)
	assert.Equal(t, "shared", got)

	_, err = c.Unbox(w)
	assert.ErrorIs(t, err, ErrInvalidID)

	i := box(t, c, 5)
	di, err := c.Dup(i)
	require.NoError(t, err)
	assert.Equal(t, i, di)
}

func TestUnboxInvalidWord(t *testing.T) {
	c := newTestContext(t)
	_, err := c.Unbox(boxing.Word(boxing.IntTag + 1<<48))
	assert.ErrorIs(t, err, ErrInvalidWord)
}

func TestGrowthKeepsMirrorCacheInStep(t *testing.T) {
	c := newTestContext(t)
	var words []boxing.Word
	for i := 0; i < 50; i++ {
		words = append(words, box(t, c, i+1<<40))
	}
	assert.Equal(t, c.table.Cap(), c.cache.HandleCap())
	for i, w := range words {
		got, err := c.Unbox(w)
		require.NoError(t, err)
		assert.Equal(t, int64(i+1<<40), got)
	}
}

func TestClosedContext(t *testing.T) {
	c := newTestContext(t)
	w := box(t, c, "x")
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())

	_, err := c.Box("y")
	assert.ErrorIs(t, err, ErrClosed)
	_, err = c.Unbox(w)
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, c.CloseHandle(w), ErrClosed)
}

func TestTrackerClosesCohort(t *testing.T) {
	c := newTestContext(t)
	keep := box(t, c, "keep")

	tr := c.NewTracker(0)
	for i := 0; i < 20; i++ {
		require.NoError(t, tr.Add(box(t, c, i+1<<40)))
	}
	require.NoError(t, tr.Add(box(t, c, 3)))
	assert.Equal(t, 20, tr.Len())
	assert.Equal(t, 21, c.HandleCount())

	require.NoError(t, tr.Close())
	assert.Equal(t, 1, c.HandleCount())
	got, err := c.Unbox(keep)
	require.NoError(t, err)
	assert.Equal(t, "keep", got)

	assert.ErrorIs(t, tr.Close(), ErrInvalidTracker)
}

func TestTrackerForgetAll(t *testing.T) {
	c := newTestContext(t)
	tr := c.NewTracker(2)
	w := box(t, c, "returned")
	require.NoError(t, tr.Add(w))
	tr.ForgetAll()
	require.NoError(t, tr.Close())

	got, err := c.Unbox(w)
	require.NoError(t, err)
	assert.Equal(t, "returned", got)
}

func TestTrackerIDsAreReused(t *testing.T) {
	c := newTestContext(t)
	a := c.NewTracker(0)
	b := c.NewTracker(0)
	assert.NotEqual(t, a.ID(), b.ID())
	require.NoError(t, a.Close())
	assert.Equal(t, a.ID(), c.NewTracker(0).ID())
}

func TestClosedTrackerRejectsAdd(t *testing.T) {
	c := newTestContext(t)
	tr := c.NewTracker(0)
	require.NoError(t, tr.Close())

	w := box(t, c, "late")
	assert.ErrorIs(t, tr.Add(w), ErrInvalidTracker)
	assert.Equal(t, 0, tr.Len())
	assert.Equal(t, 1, c.HandleCount())
}

func TestClosedTrackerLeavesSuccessorAlone(t *testing.T) {
	c := newTestContext(t)
	old := c.NewTracker(0)
	require.NoError(t, old.Close())

	next := c.NewTracker(0)
	require.Equal(t, old.ID(), next.ID())
	require.NoError(t, next.Add(box(t, c, "owned by next")))

	assert.ErrorIs(t, old.Add(box(t, c, "stray")), ErrInvalidTracker)
	assert.ErrorIs(t, old.Close(), ErrInvalidTracker)
	assert.Equal(t, 1, next.Len())
	require.NoError(t, next.Close())
	assert.Equal(t, 1, c.HandleCount())
}

type fakePayload uintptr

func (p fakePayload) NativePointer() uintptr { return uintptr(p) }

func TestMaterializeGivesBackIDOnMirrorFailure(t *testing.T) {
	c := newTestContext(t)
	c.cache.Close()

	h := c.NewHandle(fakePayload(0x1000))
	_, err := c.Materialize(h)
	require.Error(t, err)
	assert.False(t, h.IsAllocated())
	assert.Equal(t, 0, c.HandleCount())
}

func TestReleaseLogsMirrorFailure(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	c := newTestContext(t, func(o *Options) { o.Logger = zap.New(core) })

	w := box(t, c, "x")
	c.cache.Close()
	require.NoError(t, c.CloseHandle(w))
	assert.Equal(t, 0, c.HandleCount())
	assert.Equal(t, 1, logs.FilterMessage("clearing mirror slot failed").Len())
}

func TestGlobals(t *testing.T) {
	c := newTestContext(t)
	require.NoError(t, c.SetGlobal(3, "three"))

	got, err := c.Global(3)
	require.NoError(t, err)
	assert.Equal(t, "three", got)
	got, err = c.Global(0)
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = c.Global(4)
	assert.ErrorIs(t, err, ErrInvalidID)
	assert.ErrorIs(t, c.SetGlobal(-1, 1), ErrInvalidID)
	assert.Equal(t, 4, c.cache.GlobalsCap())
}

func TestNativePayloadIsMirrored(t *testing.T) {
	c := newTestContext(t)
	obj, err := c.NewNative(nodeType)
	require.NoError(t, err)
	defer obj.Free()

	w := box(t, c, obj)
	assert.Equal(t, obj.NativePointer(), c.CachedPointer(w))

	require.NoError(t, c.SetGlobal(1, obj))
	assert.Equal(t, obj.NativePointer(), c.cache.Global(1))

	// Growing the handle region moves the globals region.
	for i := 0; i < 40; i++ {
		box(t, c, i+1<<40)
	}
	assert.Equal(t, obj.NativePointer(), c.cache.Global(1))
	assert.Equal(t, obj.NativePointer(), c.CachedPointer(w))

	base, off := c.NativeCache()
	assert.NotZero(t, base)
	assert.Equal(t, c.cache.HandleCap()+1, off)

	require.NoError(t, c.CloseHandle(w))
	assert.Zero(t, c.cache.Get(boxing.UnboxLocal(w)))
}
