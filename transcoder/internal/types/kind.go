package types

type Kind uint8

const (
	KindBool Kind = iota
	KindU8
	KindS8
	KindU16
	KindS16
	KindU32
	KindS32
	KindU64
	KindS64
	KindF32
	KindF64
	KindChar
	KindString
	KindRecord
	KindList
	KindVariant
	KindOption
	KindResult
	KindTuple
	KindEnum
	KindFlags
)

var kindNames = [...]string{
	KindBool:    "bool",
	KindU8:      "u8",
	KindS8:      "s8",
	KindU16:     "u16",
	KindS16:     "s16",
	KindU32:     "u32",
	KindS32:     "s32",
	KindU64:     "u64",
	KindS64:     "s64",
	KindF32:     "f32",
	KindF64:     "f64",
	KindChar:    "char",
	KindString:  "string",
	KindRecord:  "record",
	KindList:    "list",
	KindVariant: "variant",
	KindOption:  "option",
	KindResult:  "result",
	KindTuple:   "tuple",
	KindEnum:    "enum",
	KindFlags:   "flags",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// IsPrimitive reports whether values of the kind travel as plain text.
// Strings are primitive here: the text is the value.
func (k Kind) IsPrimitive() bool {
	return k <= KindString
}

func (k Kind) IsInteger() bool {
	return k >= KindU8 && k <= KindS64
}

func (k Kind) IsSigned() bool {
	switch k {
	case KindS8, KindS16, KindS32, KindS64:
		return true
	}
	return false
}

func (k Kind) IsFloat() bool {
	return k == KindF32 || k == KindF64
}

// BitSize returns the width of integer and float kinds, 0 otherwise.
func (k Kind) BitSize() int {
	switch k {
	case KindU8, KindS8:
		return 8
	case KindU16, KindS16:
		return 16
	case KindU32, KindS32, KindF32:
		return 32
	case KindU64, KindS64, KindF64:
		return 64
	}
	return 0
}

// Strategy is how a value crosses the text boundary.
type Strategy uint8

const (
	StrategyPrimitive Strategy = iota
	StrategyStructured
)

func (s Strategy) String() string {
	if s == StrategyStructured {
		return "structured"
	}
	return "primitive"
}

func (k Kind) Strategy() Strategy {
	if k.IsPrimitive() {
		return StrategyPrimitive
	}
	return StrategyStructured
}
