package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "full error",
			err: New(PhaseDecode, KindDecode).
				At(1, "times").
				Path("user", "address", "zip").
				GoType("string").
				WitType("u32").
				Detail("cannot convert").
				Build(),
			contains: []string{"[decode]", "decode", "argument 1 (times)", "user.address.zip", "string", "u32", "cannot convert"},
		},
		{
			name:     "minimal error",
			err:      New(PhaseArity, KindArity).Build(),
			contains: []string{"[arity]", "arity"},
		},
		{
			name:     "error with cause",
			err:      Wrap(PhaseABI, KindInvalidInput, errors.New("underlying error"), "memory full"),
			contains: []string{"[abi]", "invalid_input", "memory full", "caused by", "underlying error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				assert.Contains(t, msg, s)
			}
		})
	}
}

func TestError_NoPositionByDefault(t *testing.T) {
	err := New(PhaseInvoke, KindInternalFault).Detail("boom").Build()
	assert.NotContains(t, err.Error(), "argument")
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := Decode(0, "a", "s32", "x", false, cause)

	require.ErrorIs(t, err, cause)
	assert.Equal(t, cause, errors.Unwrap(err))
}

func TestError_Is(t *testing.T) {
	err := Decode(3, "z", "u8", "300", false, nil)

	assert.True(t, errors.Is(err, &Error{Phase: PhaseDecode, Kind: KindDecode}))
	assert.False(t, errors.Is(err, &Error{Phase: PhaseDecode, Kind: KindInvalidUTF8}))
	assert.False(t, errors.Is(err, &Error{Phase: PhaseEncode, Kind: KindDecode}))

	wrapped := fmt.Errorf("outer: %w", err)
	var target *Error
	require.True(t, errors.As(wrapped, &target))
	assert.Equal(t, 3, target.Position)
}

func TestArity(t *testing.T) {
	tests := []struct {
		name     string
		min, max int
		got      int
		want     string
	}{
		{"exact", 2, 2, 1, "expected 2 arguments, got 1"},
		{"range", 1, 3, 4, "expected between 1 and 3 arguments, got 4"},
		{"zero", 0, 0, 2, "expected 0 arguments, got 2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Arity(tt.min, tt.max, tt.got)
			assert.Equal(t, tt.want, err.Message())
			assert.Equal(t, -1, err.Position)
		})
	}
}

func TestPreview(t *testing.T) {
	short := "hello"
	assert.Equal(t, short, Preview(short))

	exact := strings.Repeat("a", MaxValuePreview)
	assert.Equal(t, exact, Preview(exact))

	long := strings.Repeat("b", 100)
	got := Preview(long)
	assert.Equal(t, strings.Repeat("b", MaxValuePreview)+"...", got)

	// 63 ASCII bytes then a 3-byte rune straddling the cut
	mixed := strings.Repeat("c", 63) + "€" + "tail"
	got = Preview(mixed)
	assert.Equal(t, strings.Repeat("c", 63)+"...", got)
}

func TestDecode_TruncatesValue(t *testing.T) {
	text := strings.Repeat("9", 200)
	err := Decode(0, "n", "u64", text, false, nil)

	preview, ok := err.Value.(string)
	require.True(t, ok)
	assert.True(t, strings.HasSuffix(preview, "..."))
	assert.LessOrEqual(t, len(preview), MaxValuePreview+3)
	assert.NotContains(t, err.Detail, text)
}

func TestInvalidUTF8(t *testing.T) {
	err := InvalidUTF8(2, "name", []byte{0xff, 0xfe})
	assert.Equal(t, KindInvalidUTF8, err.Kind)
	assert.Contains(t, err.Detail, "fffe")
	assert.Equal(t, 2, err.Position)
}

func TestGenerationErrors(t *testing.T) {
	ord := Ordering("greet", 1, "times")
	assert.Equal(t, PhaseAnalyze, ord.Phase)
	assert.Contains(t, ord.Error(), "argument 1 (times)")
	assert.Contains(t, ord.Error(), "required parameter follows an optional parameter")

	param := TransportDisabled("f", 0, "cfg", "record")
	assert.Contains(t, param.Error(), "parameter needs structured transport")

	ret := TransportDisabled("f", -1, "", "list<u8>")
	assert.Contains(t, ret.Error(), "return type needs structured transport")
	assert.Contains(t, ret.Error(), "list<u8>")
}

func TestBuilder_Detail(t *testing.T) {
	plain := New(PhaseGenerate, KindInvalidInput).Detail("100%").Build()
	assert.Equal(t, "100%", plain.Detail)

	formatted := New(PhaseGenerate, KindInvalidInput).Detail("got %d", 7).Build()
	assert.Equal(t, "got 7", formatted.Detail)
}
