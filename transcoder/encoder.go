package transcoder

import (
	"reflect"

	"github.com/wippyai/strffi"
	"github.com/wippyai/strffi/errors"
)

// Encoder turns a returned value into text. It holds no per-call state and is
// safe for concurrent use.
type Encoder struct {
	primitive  strffi.PrimitiveCodec
	structured strffi.StructuredCodec
}

func NewEncoder() *Encoder {
	return NewEncoderWithCodecs(nil, nil)
}

// NewEncoderWithCodecs uses the given codecs; nil selects the default.
func NewEncoderWithCodecs(p strffi.PrimitiveCodec, s strffi.StructuredCodec) *Encoder {
	if p == nil {
		p = Primitive{}
	}
	if s == nil {
		s = defaultStructuredCodec()
	}
	return &Encoder{primitive: p, structured: s}
}

// Encode encodes v as ct. A nil ct is a function returning nothing and
// always encodes to the empty string.
func (e *Encoder) Encode(ct *CompiledType, v any) (string, error) {
	if ct == nil {
		return "", nil
	}
	if ct.Strategy() == StrategyPrimitive {
		return e.primitive.Format(ct.Type, v)
	}

	if ct.GoType != nil {
		if v != nil && reflect.TypeOf(v) != ct.GoType {
			return "", errors.TypeMismatch(errors.PhaseEncode, nil, goTypeName(v), ct.Name)
		}
		return e.structured.Marshal(v)
	}

	lowered, err := lower(ct, v, nil)
	if err != nil {
		return "", err
	}
	return e.structured.Marshal(lowered)
}

// EncodeResult encodes a returned value, reporting failures as encode errors.
func (e *Encoder) EncodeResult(ct *CompiledType, v any) (string, *errors.Error) {
	s, err := e.Encode(ct, v)
	if err != nil {
		return "", errors.Encode(ct.Name, goTypeName(v), ct.Strategy() == StrategyStructured, err)
	}
	return s, nil
}

func goTypeName(v any) string {
	if v == nil {
		return "nil"
	}
	return reflect.TypeOf(v).String()
}
