package transcoder

import (
	stderrors "errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"unicode/utf8"

	"github.com/spf13/cast"
	"github.com/wippyai/strffi"
	"go.bytecodealliance.org/wit"
)

// Primitive is the text codec for primitive WIT types.
type Primitive struct{}

var _ strffi.PrimitiveCodec = Primitive{}

// Parse parses text as t.
func (Primitive) Parse(t wit.Type, text string) (any, error) {
	kind, ok := PrimitiveKind(t)
	if !ok {
		return nil, fmt.Errorf("%s is not a primitive type", TypeName(t))
	}
	return parsePrimitive(kind, text)
}

// Format formats v as t.
func (Primitive) Format(t wit.Type, v any) (string, error) {
	kind, ok := PrimitiveKind(t)
	if !ok {
		return "", fmt.Errorf("%s is not a primitive type", TypeName(t))
	}
	return formatPrimitive(kind, v)
}

// PrimitiveKind resolves t, following type aliases, to a primitive kind.
func PrimitiveKind(t wit.Type) (TypeKind, bool) {
	switch v := t.(type) {
	case wit.Bool:
		return KindBool, true
	case wit.U8:
		return KindU8, true
	case wit.S8:
		return KindS8, true
	case wit.U16:
		return KindU16, true
	case wit.S16:
		return KindS16, true
	case wit.U32:
		return KindU32, true
	case wit.S32:
		return KindS32, true
	case wit.U64:
		return KindU64, true
	case wit.S64:
		return KindS64, true
	case wit.F32:
		return KindF32, true
	case wit.F64:
		return KindF64, true
	case wit.Char:
		return KindChar, true
	case wit.String:
		return KindString, true
	case *wit.TypeDef:
		if v == nil {
			return 0, false
		}
		if alias, ok := v.Kind.(wit.Type); ok {
			return PrimitiveKind(alias)
		}
	}
	return 0, false
}

var (
	errNotOneRune = stderrors.New("expected exactly one character")
	errNilValue   = stderrors.New("nil value")
)

// parsePrimitive is strict: no surrounding whitespace, base-10 integers only,
// range checked against the kind's width.
func parsePrimitive(kind TypeKind, text string) (any, error) {
	switch kind {
	case KindString:
		return text, nil
	case KindBool:
		b, err := strconv.ParseBool(text)
		if err != nil {
			return nil, numErr(err)
		}
		return b, nil
	case KindChar:
		r, size := utf8.DecodeRuneInString(text)
		if size == 0 || size != len(text) || (r == utf8.RuneError && size == 1) {
			return nil, errNotOneRune
		}
		return r, nil
	case KindF32:
		f, err := strconv.ParseFloat(text, 32)
		if err != nil {
			return nil, numErr(err)
		}
		return float32(f), nil
	case KindF64:
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, numErr(err)
		}
		return f, nil
	}

	if kind.IsSigned() {
		n, err := strconv.ParseInt(text, 10, kind.BitSize())
		if err != nil {
			return nil, numErr(err)
		}
		return signedValue(kind, n), nil
	}
	if kind.IsInteger() {
		n, err := strconv.ParseUint(text, 10, kind.BitSize())
		if err != nil {
			return nil, numErr(err)
		}
		return unsignedValue(kind, n), nil
	}
	return nil, fmt.Errorf("unsupported primitive kind %s", kind)
}

// numErr drops the strconv prefix, which repeats the whole input.
func numErr(err error) error {
	var ne *strconv.NumError
	if stderrors.As(err, &ne) {
		return ne.Err
	}
	return err
}

func signedValue(kind TypeKind, n int64) any {
	switch kind {
	case KindS8:
		return int8(n)
	case KindS16:
		return int16(n)
	case KindS32:
		return int32(n)
	default:
		return n
	}
}

func unsignedValue(kind TypeKind, n uint64) any {
	switch kind {
	case KindU8:
		return uint8(n)
	case KindU16:
		return uint16(n)
	case KindU32:
		return uint32(n)
	default:
		return n
	}
}

func formatPrimitive(kind TypeKind, v any) (string, error) {
	cv, err := canonicalPrimitive(kind, v)
	if err != nil {
		return "", err
	}
	switch kind {
	case KindString:
		return cv.(string), nil
	case KindChar:
		return string(cv.(rune)), nil
	}
	return cast.ToStringE(cv)
}

// canonicalPrimitive converts any Go value whose reflect.Kind fits kind into
// the canonical Go type for kind. Integers of other widths are accepted when
// the value is in range.
func canonicalPrimitive(kind TypeKind, v any) (any, error) {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return nil, errNilValue
	}

	switch kind {
	case KindString:
		if rv.Kind() == reflect.String {
			return rv.String(), nil
		}
		if isBytes(rv.Type()) {
			return string(rv.Bytes()), nil
		}
	case KindBool:
		if rv.Kind() == reflect.Bool {
			return rv.Bool(), nil
		}
	case KindChar:
		if rv.Kind() == reflect.Int32 {
			r := rune(rv.Int())
			if !utf8.ValidRune(r) {
				return nil, fmt.Errorf("invalid character U+%04X", r)
			}
			return r, nil
		}
	case KindF32:
		if isFloat(rv.Kind()) {
			return float32(rv.Float()), nil
		}
	case KindF64:
		if isFloat(rv.Kind()) {
			return rv.Float(), nil
		}
	default:
		if kind.IsSigned() {
			n, ok := intValue(rv)
			if !ok {
				break
			}
			bits := kind.BitSize()
			if bits < 64 && (n < -(1<<(bits-1)) || n >= 1<<(bits-1)) {
				return nil, fmt.Errorf("value %d out of range for %s", n, kind)
			}
			return signedValue(kind, n), nil
		}
		if kind.IsInteger() {
			n, ok := uintValue(rv)
			if !ok {
				break
			}
			bits := kind.BitSize()
			if bits < 64 && n >= 1<<bits {
				return nil, fmt.Errorf("value %d out of range for %s", n, kind)
			}
			return unsignedValue(kind, n), nil
		}
	}
	return nil, fmt.Errorf("cannot represent Go %s as %s", rv.Type(), kind)
}

// isBytes reports whether t is []byte or a named type over it.
func isBytes(t reflect.Type) bool {
	return t.Kind() == reflect.Slice && t.Elem().Kind() == reflect.Uint8
}

func isFloat(k reflect.Kind) bool {
	return k == reflect.Float32 || k == reflect.Float64
}

func intValue(rv reflect.Value) (int64, bool) {
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return 0, false
		}
		return int64(u), true
	}
	return 0, false
}

func uintValue(rv reflect.Value) (uint64, bool) {
	switch rv.Kind() {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return rv.Uint(), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n := rv.Int()
		if n < 0 {
			return 0, false
		}
		return uint64(n), true
	}
	return 0, false
}
