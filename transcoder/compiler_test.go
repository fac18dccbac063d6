package transcoder

import (
	"errors"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	ferrors "github.com/wippyai/strffi/errors"
	"go.bytecodealliance.org/wit"
)

func named(name string, kind wit.TypeDefKind) *wit.TypeDef {
	return &wit.TypeDef{Name: &name, Kind: kind}
}

func pointRecord() *wit.TypeDef {
	return named("point", &wit.Record{
		Fields: []wit.Field{
			{Name: "x", Type: wit.S32{}},
			{Name: "y", Type: wit.S32{}},
			{Name: "label", Type: &wit.TypeDef{Kind: &wit.Option{Type: wit.String{}}}},
		},
	})
}

func TestCompiler_Primitives(t *testing.T) {
	c := NewCompiler()
	for _, typ := range []wit.Type{
		wit.Bool{}, wit.U8{}, wit.S8{}, wit.U16{}, wit.S16{}, wit.U32{}, wit.S32{},
		wit.U64{}, wit.S64{}, wit.F32{}, wit.F64{}, wit.Char{}, wit.String{},
	} {
		ct, err := c.Compile(typ, nil)
		require.NoError(t, err)
		assert.Equal(t, StrategyPrimitive, ct.Strategy(), ct.Name)
		assert.Equal(t, TypeName(typ), ct.Name)
	}
}

func TestCompiler_Record(t *testing.T) {
	ct, err := NewCompiler().Compile(pointRecord(), nil)
	require.NoError(t, err)

	assert.Equal(t, KindRecord, ct.Kind)
	assert.Equal(t, StrategyStructured, ct.Strategy())
	assert.Equal(t, "point", ct.Name)
	require.Len(t, ct.Fields, 3)
	assert.Equal(t, "x", ct.Fields[0].Name)
	assert.Equal(t, KindS32, ct.Fields[0].Type.Kind)
	assert.Equal(t, KindOption, ct.Fields[2].Type.Kind)
	assert.Equal(t, KindString, ct.Fields[2].Type.ElemType.Kind)
}

func TestCompiler_Compound(t *testing.T) {
	tests := []struct {
		typ  wit.Type
		kind TypeKind
		name string
	}{
		{&wit.TypeDef{Kind: &wit.List{Type: wit.U8{}}}, KindList, "list<u8>"},
		{&wit.TypeDef{Kind: &wit.Tuple{Types: []wit.Type{wit.U32{}, wit.String{}}}}, KindTuple, "tuple<u32, string>"},
		{&wit.TypeDef{Kind: &wit.Option{Type: wit.F64{}}}, KindOption, "option<f64>"},
		{&wit.TypeDef{Kind: &wit.Result{OK: wit.U32{}, Err: wit.String{}}}, KindResult, "result<u32, string>"},
		{&wit.TypeDef{Kind: &wit.Result{Err: wit.String{}}}, KindResult, "result<_, string>"},
		{&wit.TypeDef{Kind: &wit.Result{}}, KindResult, "result"},
		{named("color", &wit.Enum{Cases: []wit.EnumCase{{Name: "red"}, {Name: "green"}}}), KindEnum, "color"},
		{named("perms", &wit.Flags{Flags: []wit.Flag{{Name: "read"}, {Name: "write"}}}), KindFlags, "perms"},
		{named("shape", &wit.Variant{Cases: []wit.Case{{Name: "circle", Type: wit.F64{}}, {Name: "none"}}}), KindVariant, "shape"},
	}
	c := NewCompiler()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ct, err := c.Compile(tt.typ, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.kind, ct.Kind)
			assert.Equal(t, tt.name, ct.Name)
			assert.Equal(t, StrategyStructured, ct.Strategy())
		})
	}
}

func TestCompiler_Alias(t *testing.T) {
	ct, err := NewCompiler().Compile(named("score", wit.U16{}), nil)
	require.NoError(t, err)
	assert.Equal(t, KindU16, ct.Kind)
	assert.Equal(t, StrategyPrimitive, ct.Strategy())
}

func TestCompiler_Unsupported(t *testing.T) {
	c := NewCompiler()

	_, err := c.Compile(nil, nil)
	require.Error(t, err)

	res := named("file", &wit.Resource{})
	_, err = c.Compile(&wit.TypeDef{Kind: &wit.Own{Type: res}}, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, &ferrors.Error{Phase: ferrors.PhaseAnalyze, Kind: ferrors.KindUnsupported}))

	nested := &wit.TypeDef{Kind: &wit.List{Type: &wit.TypeDef{Kind: &wit.Borrow{Type: res}}}}
	_, err = c.Compile(nested, nil)
	require.Error(t, err)
	var fe *ferrors.Error
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, []string{"[elem]"}, fe.Path)
}

func TestCompiler_NestedOptionRejected(t *testing.T) {
	c := NewCompiler()
	inner := &wit.TypeDef{Kind: &wit.Option{Type: wit.U8{}}}

	_, err := c.Compile(&wit.TypeDef{Kind: &wit.Option{Type: inner}}, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, &ferrors.Error{Phase: ferrors.PhaseAnalyze, Kind: ferrors.KindUnsupported}))

	// through an alias and inside a record
	alias := named("maybe-u8", inner)
	rec := named("holder", &wit.Record{Fields: []wit.Field{
		{Name: "v", Type: &wit.TypeDef{Kind: &wit.Option{Type: alias}}},
	}})
	_, err = c.Compile(rec, nil)
	require.Error(t, err)
	var fe *ferrors.Error
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, []string{"v"}, fe.Path)

	// option<list<option<T>>> is still representable
	_, err = c.Compile(&wit.TypeDef{Kind: &wit.Option{Type: &wit.TypeDef{Kind: &wit.List{Type: inner}}}}, nil)
	assert.NoError(t, err)
}

func TestCompiler_Cache(t *testing.T) {
	c := NewCompiler()
	rec := pointRecord()

	a, err := c.Compile(rec, nil)
	require.NoError(t, err)
	b, err := c.Compile(rec, nil)
	require.NoError(t, err)
	assert.Same(t, a, b)

	u1, err := c.Compile(wit.U32{}, nil)
	require.NoError(t, err)
	b1, err := c.Compile(wit.Bool{}, nil)
	require.NoError(t, err)
	assert.NotEqual(t, u1.Kind, b1.Kind)
}

func TestCompiler_BoundGoTypes(t *testing.T) {
	type point struct {
		X int32 `json:"x"`
		Y int32 `json:"y"`
	}

	tests := []struct {
		name   string
		typ    wit.Type
		goType reflect.Type
		ok     bool
	}{
		{"s64 int", wit.S64{}, reflect.TypeOf(0), true},
		{"u64 uint", wit.U64{}, reflect.TypeOf(uint(0)), true},
		{"char rune", wit.Char{}, reflect.TypeOf('a'), true},
		{"named string", wit.String{}, reflect.TypeOf(label("")), true},
		{"record struct", pointRecord(), reflect.TypeOf(point{}), true},
		{"list slice", &wit.TypeDef{Kind: &wit.List{Type: wit.U8{}}}, reflect.TypeOf([]byte{}), true},
		{"enum string", named("color", &wit.Enum{Cases: []wit.EnumCase{{Name: "red"}}}), reflect.TypeOf(""), true},
		{"s32 int64", wit.S32{}, reflect.TypeOf(int64(0)), false},
		{"string int", wit.String{}, reflect.TypeOf(0), false},
		{"record slice", pointRecord(), reflect.TypeOf([]int{}), false},
		{"option value", &wit.TypeDef{Kind: &wit.Option{Type: wit.U8{}}}, reflect.TypeOf(uint8(0)), false},
	}
	c := NewCompiler()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ct, err := c.Compile(tt.typ, tt.goType)
			if !tt.ok {
				require.Error(t, err)
				assert.True(t, errors.Is(err, &ferrors.Error{Phase: ferrors.PhaseAnalyze, Kind: ferrors.KindTypeMismatch}))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.goType, ct.GoType)
		})
	}
}

func TestCompiler_BoundDoesNotPolluteCanonical(t *testing.T) {
	c := NewCompiler()
	bound, err := c.Compile(wit.S64{}, reflect.TypeOf(0))
	require.NoError(t, err)
	canonical, err := c.Compile(wit.S64{}, nil)
	require.NoError(t, err)

	assert.NotNil(t, bound.GoType)
	assert.Nil(t, canonical.GoType)
}
