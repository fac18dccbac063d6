package transcoder

import (
	"math"
	"reflect"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.bytecodealliance.org/wit"
)

type count int

func TestConvertPrimitive_Range(t *testing.T) {
	tests := []struct {
		name    string
		value   any
		goType  reflect.Type
		want    any
		wantErr bool
	}{
		{"s64 into int32", int64(5), typeOf[int32](), int32(5), false},
		{"s64 over int32", int64(1 << 40), typeOf[int32](), nil, true},
		{"s64 under int32", int64(math.MinInt32 - 1), typeOf[int32](), nil, true},
		{"u64 over uint32", uint64(1 << 33), typeOf[uint32](), nil, true},
		{"u64 into uint16", uint64(math.MaxUint16), typeOf[uint16](), uint16(math.MaxUint16), false},
		{"named int", int64(7), typeOf[count](), count(7), false},
		{"same type", "x", typeOf[string](), "x", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := convertPrimitive(tt.value, tt.goType)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "out of range")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeParam_IntWidth(t *testing.T) {
	ct, err := Compile(wit.S64{}, typeOf[count]())
	require.NoError(t, err)

	v, derr := NewDecoder().DecodeParam(0, "n", ct, "5000000000")
	if strconv.IntSize == 32 {
		require.NotNil(t, derr)
		assert.True(t, strings.HasPrefix(derr.Wire(), "@@ERR@@|FFI|ARG_PARSE|"), derr.Wire())
		return
	}
	require.Nil(t, derr)
	want := int64(5000000000)
	assert.Equal(t, count(want), v)
}
