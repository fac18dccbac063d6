package types //nolint:revive // package name is used by internal consumers

import "testing"

func TestKindString(t *testing.T) {
	tests := []struct {
		want string
		kind Kind
	}{
		{"bool", KindBool},
		{"u8", KindU8},
		{"s8", KindS8},
		{"u16", KindU16},
		{"s16", KindS16},
		{"u32", KindU32},
		{"s32", KindS32},
		{"u64", KindU64},
		{"s64", KindS64},
		{"f32", KindF32},
		{"f64", KindF64},
		{"char", KindChar},
		{"string", KindString},
		{"record", KindRecord},
		{"list", KindList},
		{"variant", KindVariant},
		{"option", KindOption},
		{"result", KindResult},
		{"tuple", KindTuple},
		{"enum", KindEnum},
		{"flags", KindFlags},
		{"unknown", Kind(255)},
	}

	for _, tc := range tests {
		t.Run(tc.want, func(t *testing.T) {
			if got := tc.kind.String(); got != tc.want {
				t.Errorf("String() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestKindStrategy(t *testing.T) {
	primitives := []Kind{
		KindBool, KindU8, KindS8, KindU16, KindS16,
		KindU32, KindS32, KindU64, KindS64,
		KindF32, KindF64, KindChar, KindString,
	}
	for _, k := range primitives {
		if !k.IsPrimitive() || k.Strategy() != StrategyPrimitive {
			t.Errorf("%s should be primitive", k)
		}
	}

	structured := []Kind{
		KindRecord, KindList, KindVariant,
		KindOption, KindResult, KindTuple, KindEnum, KindFlags,
	}
	for _, k := range structured {
		if k.IsPrimitive() || k.Strategy() != StrategyStructured {
			t.Errorf("%s should be structured", k)
		}
	}
}

func TestKindBitSize(t *testing.T) {
	tests := []struct {
		kind Kind
		bits int
	}{
		{KindU8, 8}, {KindS8, 8},
		{KindU16, 16}, {KindS16, 16},
		{KindU32, 32}, {KindS32, 32}, {KindF32, 32},
		{KindU64, 64}, {KindS64, 64}, {KindF64, 64},
		{KindBool, 0}, {KindString, 0}, {KindRecord, 0},
	}
	for _, tc := range tests {
		if got := tc.kind.BitSize(); got != tc.bits {
			t.Errorf("%s.BitSize() = %d, want %d", tc.kind, got, tc.bits)
		}
	}
}

func TestKindIntegerClassification(t *testing.T) {
	if !KindS16.IsInteger() || !KindS16.IsSigned() {
		t.Error("s16 should be a signed integer")
	}
	if !KindU64.IsInteger() || KindU64.IsSigned() {
		t.Error("u64 should be an unsigned integer")
	}
	if KindF32.IsInteger() || !KindF32.IsFloat() {
		t.Error("f32 should be a float")
	}
	if KindChar.IsInteger() {
		t.Error("char should not be an integer")
	}
}

func TestStrategyString(t *testing.T) {
	if StrategyPrimitive.String() != "primitive" {
		t.Errorf("got %q", StrategyPrimitive.String())
	}
	if StrategyStructured.String() != "structured" {
		t.Errorf("got %q", StrategyStructured.String())
	}
}
