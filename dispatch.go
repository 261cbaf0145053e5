package ffhandle

import (
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/obinnaokechukwu/ffhandle/abi"
	"github.com/obinnaokechukwu/ffhandle/boxing"
)

// Call invokes a dispatch entry the way native code does: failures,
// including arity mismatches, become the pending error and the result is
// the null word.
func (c *Context) Call(e abi.Entry, args ...boxing.Word) boxing.Word {
	w, err := c.dispatch.Call(e, args...)
	if err != nil {
		c.raise(e, err)
		return boxing.Null
	}
	return w
}

// ABI returns the dispatch table, for callers that want Go errors instead
// of the native error convention.
func (c *Context) ABI() *abi.Table {
	return c.dispatch
}

func (c *Context) raise(e abi.Entry, err error) {
	var ne *NativeError
	if errors.As(err, &ne) {
		c.err = ne
		return
	}
	c.log.Debug("dispatch failed", zap.Stringer("entry", e), zap.Error(err))
	c.err = &NativeError{Message: err.Error(), Op: e.Name(), Err: err}
}

// Raw 64-bit arguments (C long and double) travel unboxed in the word.
func rawInt(w boxing.Word) int64     { return int64(w) }
func rawDouble(w boxing.Word) float64 { return math.Float64frombits(uint64(w)) }

func intArg(c *Context, w boxing.Word) (int64, error) {
	v, err := c.Unbox(w)
	if err != nil {
		return 0, err
	}
	switch n := v.(type) {
	case int64:
		return n, nil
	case float64:
		return 0, fmt.Errorf("%w: expected an integer, got float", ErrTypeMismatch)
	default:
		return 0, fmt.Errorf("%w: expected an integer, got %T", ErrTypeMismatch, v)
	}
}

func (c *Context) bindDispatch() {
	t := c.dispatch

	t.Bind(abi.Dup, func(args []boxing.Word) (boxing.Word, error) {
		return c.Dup(args[0])
	})
	t.Bind(abi.Close, func(args []boxing.Word) (boxing.Word, error) {
		return boxing.Null, c.CloseHandle(args[0])
	})

	t.Bind(abi.LongFromLong, func(args []boxing.Word) (boxing.Word, error) {
		return c.Box(rawInt(args[0]))
	})
	t.Bind(abi.LongAsLong, func(args []boxing.Word) (boxing.Word, error) {
		v, err := intArg(c, args[0])
		return boxing.Word(v), err
	})
	t.Bind(abi.FloatFromDouble, func(args []boxing.Word) (boxing.Word, error) {
		return c.Box(rawDouble(args[0]))
	})
	t.Bind(abi.FloatAsDouble, func(args []boxing.Word) (boxing.Word, error) {
		v, err := c.Unbox(args[0])
		if err != nil {
			return boxing.Null, err
		}
		switch f := v.(type) {
		case float64:
			return boxing.Word(math.Float64bits(f)), nil
		case int64:
			return boxing.Word(math.Float64bits(float64(f))), nil
		default:
			return boxing.Null, fmt.Errorf("%w: expected a number, got %T", ErrTypeMismatch, v)
		}
	})

	t.Bind(abi.DictNew, func([]boxing.Word) (boxing.Word, error) {
		return c.Box(NewDict())
	})
	t.Bind(abi.DictSetItem, func(args []boxing.Word) (boxing.Word, error) {
		d, err := unboxAs[*Dict](c, args[0])
		if err != nil {
			return boxing.Null, err
		}
		k, err := c.Unbox(args[1])
		if err != nil {
			return boxing.Null, err
		}
		v, err := c.Unbox(args[2])
		if err != nil {
			return boxing.Null, err
		}
		return boxing.BoxInt32(0), d.Set(k, v)
	})
	t.Bind(abi.DictGetItem, func(args []boxing.Word) (boxing.Word, error) {
		d, err := unboxAs[*Dict](c, args[0])
		if err != nil {
			return boxing.Null, err
		}
		k, err := c.Unbox(args[1])
		if err != nil {
			return boxing.Null, err
		}
		v, ok := d.Get(k)
		if !ok {
			return boxing.Null, fmt.Errorf("%w: %v", ErrKeyNotFound, k)
		}
		return c.Box(v)
	})

	t.Bind(abi.ListNew, func([]boxing.Word) (boxing.Word, error) {
		return c.Box(&List{})
	})
	t.Bind(abi.ListAppend, func(args []boxing.Word) (boxing.Word, error) {
		l, err := unboxAs[*List](c, args[0])
		if err != nil {
			return boxing.Null, err
		}
		v, err := c.Unbox(args[1])
		if err != nil {
			return boxing.Null, err
		}
		l.Append(v)
		return boxing.BoxInt32(0), nil
	})

	t.Bind(abi.ErrSetString, func(args []boxing.Word) (boxing.Word, error) {
		msg, err := unboxAs[string](c, args[0])
		if err != nil {
			return boxing.Null, err
		}
		return boxing.Null, &NativeError{Message: msg}
	})
	t.Bind(abi.ErrOccurred, func([]boxing.Word) (boxing.Word, error) {
		if c.err != nil {
			return boxing.BoxInt32(1), nil
		}
		return boxing.BoxInt32(0), nil
	})
	t.Bind(abi.ErrClear, func([]boxing.Word) (boxing.Word, error) {
		c.ClearErr()
		return boxing.Null, nil
	})

	t.Bind(abi.TrackerNew, func(args []boxing.Word) (boxing.Word, error) {
		size, err := intArg(c, args[0])
		if err != nil {
			return boxing.Null, err
		}
		tr := c.NewTracker(int(size))
		return boxing.BoxInt32(int32(tr.ID())), nil
	})
	t.Bind(abi.TrackerAdd, func(args []boxing.Word) (boxing.Word, error) {
		tr, err := c.trackerArg(args[0])
		if err != nil {
			return boxing.Null, err
		}
		return boxing.BoxInt32(0), c.trackerAdd(tr, args[1])
	})
	t.Bind(abi.TrackerClose, func(args []boxing.Word) (boxing.Word, error) {
		id, err := intArg(c, args[0])
		if err != nil {
			return boxing.Null, err
		}
		return boxing.Null, c.closeTracker(int(id))
	})
	t.Bind(abi.TrackerForgetAll, func(args []boxing.Word) (boxing.Word, error) {
		tr, err := c.trackerArg(args[0])
		if err != nil {
			return boxing.Null, err
		}
		tr.RemoveAll()
		return boxing.Null, nil
	})

	t.Bind(abi.FieldStore, func(args []boxing.Word) (boxing.Word, error) {
		return c.StoreFieldRef(args[0], args[1], args[2])
	})
	t.Bind(abi.FieldLoad, func(args []boxing.Word) (boxing.Word, error) {
		return c.LoadFieldRef(args[0], args[1])
	})

	t.Bind(abi.GlobalStore, func(args []boxing.Word) (boxing.Word, error) {
		slot, err := intArg(c, args[0])
		if err != nil {
			return boxing.Null, err
		}
		v, err := c.Unbox(args[1])
		if err != nil {
			return boxing.Null, err
		}
		return boxing.Null, c.SetGlobal(int(slot), v)
	})
	t.Bind(abi.GlobalLoad, func(args []boxing.Word) (boxing.Word, error) {
		slot, err := intArg(c, args[0])
		if err != nil {
			return boxing.Null, err
		}
		v, err := c.Global(int(slot))
		if err != nil {
			return boxing.Null, err
		}
		return c.Box(v)
	})
}

func unboxAs[T any](c *Context, w boxing.Word) (T, error) {
	var zero T
	v, err := c.Unbox(w)
	if err != nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("%w: expected %T, got %T", ErrTypeMismatch, zero, v)
	}
	return t, nil
}
