package signature

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestString_RoundTrip(t *testing.T) {
	sources := []string{
		"add: func(a: s32, b: s32) -> s32;",
		"add-optional: func(a: s32, b: option<s32>) -> s32;",
		"greet: func(name: string);",
		"divide: func(a: f64, b: f64) -> result<f64, string>;",
		"check: func(v: list<string>) -> result<_, string>;",
		"pair: func() -> tuple<u32, char>;",
	}
	for _, src := range sources {
		sigs, err := ParseWIT(src)
		require.NoError(t, err, src)
		assert.Equal(t, src, String(sigs[0]))
	}
}

func TestUsage(t *testing.T) {
	sigs, err := ParseWIT("add-optional: func(a: s32, b: option<s32>) -> s32;")
	require.NoError(t, err)
	assert.Equal(t, "add_optional(a, [b])", Usage(sigs[0]))
}
