package dispatch

import (
	"context"
	stderrors "errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wippyai/strffi/errors"
	"github.com/wippyai/strffi/signature"
	"go.bytecodealliance.org/wit"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func mustPlan(t *testing.T, src string) *signature.Plan {
	t.Helper()
	sigs, err := signature.ParseWIT(src)
	require.NoError(t, err)
	require.Len(t, sigs, 1)
	plan, err := signature.Analyze(sigs[0], signature.DefaultOptions())
	require.NoError(t, err)
	return plan
}

func mustDispatcher(t *testing.T, src string, h Handler, opts ...Option) *Dispatcher {
	t.Helper()
	d, err := New(mustPlan(t, src), h, opts...)
	require.NoError(t, err)
	return d
}

func addHandler(calls *atomic.Int32) Handler {
	return func(_ context.Context, args Args) (any, error) {
		calls.Add(1)
		sum := args.Int32(0)
		if b, ok := Get[int32](args, 1); ok {
			sum += b
		}
		return sum, nil
	}
}

func TestDispatcher_Add(t *testing.T) {
	var calls atomic.Int32
	d := mustDispatcher(t, "add: func(a: s32, b: s32) -> s32;", addHandler(&calls))
	ctx := context.Background()

	assert.Equal(t, "5", d.CallWire(ctx, []string{"2", "3"}))
	assert.Equal(t, "-7", d.CallWire(ctx, []string{"-10", "3"}))
	assert.Equal(t, "@@ERR@@|FFI|WRONG_ARG_COUNT|expected 2 arguments, got 1", d.CallWire(ctx, []string{"2"}))
	assert.Equal(t, "@@ERR@@|FFI|WRONG_ARG_COUNT|expected 2 arguments, got 3", d.CallWire(ctx, []string{"1", "2", "3"}))
	assert.Equal(t, int32(2), calls.Load())
}

func TestDispatcher_AddOptional(t *testing.T) {
	var calls atomic.Int32
	d := mustDispatcher(t, "add-optional: func(a: s32, b: option<s32>) -> s32;", addHandler(&calls))
	ctx := context.Background()

	assert.Equal(t, "2", d.CallWire(ctx, []string{"2"}))
	assert.Equal(t, "5", d.CallWire(ctx, []string{"2", "3"}))
	assert.Equal(t, "@@ERR@@|FFI|WRONG_ARG_COUNT|expected between 1 and 2 arguments, got 0", d.CallWire(ctx, nil))
	assert.Equal(t, int32(2), calls.Load())
}

func TestDispatcher_Greet(t *testing.T) {
	var got string
	d := mustDispatcher(t, "greet: func(name: string);", func(_ context.Context, args Args) (any, error) {
		got = "hello " + args.Text(0)
		return nil, nil
	})

	res := d.Call(context.Background(), []string{"world"})
	require.True(t, res.OK())
	assert.Equal(t, "", res.Wire())
	assert.Equal(t, "hello world", got)
}

func TestDispatcher_AbsentCount(t *testing.T) {
	src := "f: func(a: string, b: option<u8>, c: option<bool>, d: option<string>);"
	for n := 1; n <= 4; n++ {
		var args Args
		d := mustDispatcher(t, src, func(_ context.Context, a Args) (any, error) {
			args = a
			return nil, nil
		})

		in := []string{"x", "1", "true", "y"}[:n]
		require.True(t, d.Call(context.Background(), in).OK())

		require.Equal(t, 4, args.Len())
		absent := 0
		for i := 0; i < args.Len(); i++ {
			if !args.Present(i) {
				absent++
				assert.Equal(t, Absent, args.Value(i))
			}
		}
		assert.Equal(t, 4-n, absent, "n=%d", n)
	}
}

func TestDispatcher_DecodeFailure(t *testing.T) {
	var calls atomic.Int32
	d := mustDispatcher(t, "add: func(a: s32, b: s32) -> s32;", addHandler(&calls))

	res := d.Call(context.Background(), []string{"1", "x"})
	require.False(t, res.OK())
	assert.Equal(t, errors.KindDecode, res.Err.Kind)
	assert.Equal(t, 1, res.Err.Position)
	assert.Equal(t, "b", res.Err.Param)

	diag, ok := errors.ParseWire(res.Wire())
	require.True(t, ok)
	assert.Equal(t, errors.ClassFFI, diag.Class)
	assert.Equal(t, errors.TypeArgParse, diag.Type)
	assert.Contains(t, diag.Message, "argument 1 (b)")
	assert.Contains(t, diag.Message, "s32")

	// out of range for the declared width
	res = d.Call(context.Background(), []string{"2147483648", "1"})
	require.False(t, res.OK())
	assert.Equal(t, 0, res.Err.Position)

	assert.Zero(t, calls.Load())
}

func TestDispatcher_FailFastInOrder(t *testing.T) {
	d := mustDispatcher(t, "f: func(a: u8, b: u8);", func(context.Context, Args) (any, error) {
		t.Fatal("handler must not run")
		return nil, nil
	})

	res := d.Call(context.Background(), []string{"-1", "nope"})
	require.NotNil(t, res.Err)
	assert.Equal(t, 0, res.Err.Position)
}

func TestDispatcher_InvalidUTF8(t *testing.T) {
	d := mustDispatcher(t, "greet: func(name: string);", func(context.Context, Args) (any, error) {
		return nil, nil
	})

	diag, ok := errors.ParseWire(d.CallWire(context.Background(), []string{"\xff\xfe"}))
	require.True(t, ok)
	assert.Equal(t, errors.TypeBadUTF8, diag.Type)
}

func TestDispatcher_WrappedFailure(t *testing.T) {
	d := mustDispatcher(t, "divide: func(a: f64, b: f64) -> result<f64, string>;", func(_ context.Context, args Args) (any, error) {
		if args.Float64(1) == 0 {
			return nil, stderrors.New("division by zero")
		}
		return args.Float64(0) / args.Float64(1), nil
	})

	assert.Equal(t, "2.5", d.CallWire(context.Background(), []string{"5", "2"}))
	assert.Equal(t, "@@ERR@@|FN||division by zero", d.CallWire(context.Background(), []string{"5", "0"}))
}

func TestDispatcher_Panic(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	d := mustDispatcher(t, "boom: func() -> string;", func(context.Context, Args) (any, error) {
		panic("kaboom")
	}, WithLogger(zap.New(core)))

	res := d.Call(context.Background(), nil)
	require.False(t, res.OK())
	assert.Equal(t, errors.KindInternalFault, res.Err.Kind)

	diag, ok := errors.ParseWire(res.Wire())
	require.True(t, ok)
	assert.Equal(t, errors.ClassFFI, diag.Class)
	assert.Equal(t, errors.TypePanic, diag.Type)
	assert.Contains(t, diag.Message, "kaboom")
	assert.NotContains(t, diag.Message, "goroutine")

	entries := logs.FilterMessage("recovered panic at call boundary").All()
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].ContextMap()["stack"], "goroutine")
	assert.Equal(t, "boom", entries[0].ContextMap()["function"])

	// the dispatcher is still usable after a fault
	assert.False(t, d.Call(context.Background(), nil).OK())
}

func TestDispatcher_GetterMismatchIsFault(t *testing.T) {
	d := mustDispatcher(t, "f: func(a: s32) -> s32;", func(_ context.Context, args Args) (any, error) {
		return int32(args.Int64(0)), nil
	})
	res := d.Call(context.Background(), []string{"1"})
	require.NotNil(t, res.Err)
	assert.Equal(t, errors.KindInternalFault, res.Err.Kind)
}

func TestDispatcher_EncodeFailure(t *testing.T) {
	d := mustDispatcher(t, "f: func() -> u8;", func(context.Context, Args) (any, error) {
		return 300, nil
	})
	diag, ok := errors.ParseWire(d.CallWire(context.Background(), nil))
	require.True(t, ok)
	assert.Equal(t, errors.ClassFFI, diag.Class)
	assert.Equal(t, errors.TypeReturnStr, diag.Type)
}

func TestDispatcher_Structured(t *testing.T) {
	src := `
		record point { x: s32, y: s32 }
		shift: func(p: point, dx: s32) -> point;
	`
	d := mustDispatcher(t, src, func(_ context.Context, args Args) (any, error) {
		p := args.Record(0)
		return map[string]any{"x": p["x"].(int32) + args.Int32(1), "y": p["y"]}, nil
	})

	assert.JSONEq(t, `{"x":4,"y":2}`, d.CallWire(context.Background(), []string{`{"x":1,"y":2}`, "3"}))

	diag, ok := errors.ParseWire(d.CallWire(context.Background(), []string{`{"x":1}`, "3"}))
	require.True(t, ok)
	assert.Equal(t, errors.ClassJSON, diag.Class)
	assert.Equal(t, errors.TypeDeserialize, diag.Type)
	assert.True(t, strings.HasPrefix(diag.Message, "argument 0 (p)"))
}

func TestDispatcher_HeaderCollision(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	d := mustDispatcher(t, "echo: func(s: string) -> string;", func(_ context.Context, args Args) (any, error) {
		return args.Text(0), nil
	}, WithLogger(zap.New(core)))

	in := "@@ERR@@|FN||not really"
	res := d.Call(context.Background(), []string{in})
	require.True(t, res.OK())
	assert.Equal(t, in, res.Wire())
	assert.Equal(t, 1, logs.Len())
}

func TestDispatcher_Concurrent(t *testing.T) {
	var calls atomic.Int32
	d := mustDispatcher(t, "add: func(a: s32, b: s32) -> s32;", addHandler(&calls))

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				assert.Equal(t, "3", d.CallWire(context.Background(), []string{"1", "2"}))
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(3200), calls.Load())
}

func TestNew_Invalid(t *testing.T) {
	_, err := New(nil, func(context.Context, Args) (any, error) { return nil, nil })
	assert.Error(t, err)

	plan, err := signature.Analyze(signature.Signature{Name: "f"}, signature.DefaultOptions())
	require.NoError(t, err)
	_, err = New(plan, nil)
	assert.Error(t, err)
}

func TestNew_ExplicitSignature(t *testing.T) {
	sig := signature.Signature{
		Name:   "negate",
		Params: []signature.Param{{Name: "v", Type: wit.S64{}}},
		Result: wit.S64{},
	}
	plan, err := signature.Analyze(sig, signature.DefaultOptions())
	require.NoError(t, err)

	d, err := New(plan, func(_ context.Context, args Args) (any, error) {
		return -args.Int64(0), nil
	})
	require.NoError(t, err)
	assert.Equal(t, "-9223372036854775807", d.CallWire(context.Background(), []string{"9223372036854775807"}))
	assert.Same(t, plan, d.Plan())
}
