package cstr

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wippyai/strffi/dispatch"
	"github.com/wippyai/strffi/errors"
	"github.com/wippyai/strffi/runtime"
	"github.com/wippyai/strffi/signature"
	"go.bytecodealliance.org/wit"
)

func testRegistry(t *testing.T) *runtime.Registry {
	t.Helper()
	reg := runtime.NewRegistry(runtime.DefaultConfig())
	require.NoError(t, reg.Bind("add", func(a, b int32) int32 { return a + b }, "a", "b"))
	require.NoError(t, reg.Bind("greet", func(name string) {}, "name"))
	require.NoError(t, reg.Register(signature.Signature{
		Name:   "nul-inside",
		Result: wit.String{},
	}, func(context.Context, dispatch.Args) (any, error) {
		return "abc\x00def", nil
	}))
	return reg
}

func call(t *testing.T, e *runtime.Export, args ...string) string {
	t.Helper()
	argv, free := NewArgv(args)
	defer free()

	p := Call(e, len(args), argv)
	require.NotNil(t, p)
	defer Free(p)
	return GoString(p)
}

func TestCall(t *testing.T) {
	reg := testRegistry(t)
	add := MustLookup(reg, "add")

	assert.Equal(t, "5", call(t, add, "2", "3"))
	assert.Equal(t, "@@ERR@@|FFI|WRONG_ARG_COUNT|expected 2 arguments, got 1", call(t, add, "2"))

	diag, ok := errors.ParseWire(call(t, add, "2", "x"))
	require.True(t, ok)
	assert.Equal(t, errors.TypeArgParse, diag.Type)
}

func TestCall_EmptyResultIsNotNull(t *testing.T) {
	greet := MustLookup(testRegistry(t), "greet")
	argv, free := NewArgv([]string{"bob"})
	defer free()

	p := Call(greet, 1, argv)
	require.NotNil(t, p)
	defer Free(p)
	assert.Equal(t, "", GoString(p))
}

func TestCall_TruncatesAtNUL(t *testing.T) {
	e := MustLookup(testRegistry(t), "nul_inside")
	assert.Equal(t, "abc", call(t, e))
}

func TestArgs(t *testing.T) {
	argv, free := NewArgv([]string{"a", "", "héllo"})
	defer free()

	assert.Equal(t, []string{"a", "", "héllo"}, Args(3, argv))
	assert.Nil(t, Args(0, argv))
	assert.Nil(t, Args(-1, argv))
	assert.Nil(t, Args(2, nil))
	assert.Len(t, Args(MaxArgs+1, argv), MaxArgs+1)
}

func TestCall_NegativeArgc(t *testing.T) {
	add := MustLookup(testRegistry(t), "add")
	p := Call(add, -1, nil)
	defer Free(p)
	assert.Equal(t, "@@ERR@@|FFI|WRONG_ARG_COUNT|expected 2 arguments, got 0", GoString(p))
}

func TestMustLookup_Panics(t *testing.T) {
	assert.Panics(t, func() { MustLookup(testRegistry(t), "missing") })
}

func TestFree_Nil(t *testing.T) {
	assert.NotPanics(t, func() { Free(nil) })
	assert.Equal(t, "", GoString(nil))
}
