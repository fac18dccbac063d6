package transcoder

import (
	"fmt"
	"reflect"
	"unicode/utf8"

	"github.com/wippyai/strffi"
	"github.com/wippyai/strffi/errors"
)

// Decoder turns one text argument into a typed value. It holds no per-call
// state and is safe for concurrent use.
type Decoder struct {
	primitive  strffi.PrimitiveCodec
	structured strffi.StructuredCodec
}

func NewDecoder() *Decoder {
	return NewDecoderWithCodecs(nil, nil)
}

// NewDecoderWithCodecs uses the given codecs; nil selects the default.
func NewDecoderWithCodecs(p strffi.PrimitiveCodec, s strffi.StructuredCodec) *Decoder {
	if p == nil {
		p = Primitive{}
	}
	if s == nil {
		s = defaultStructuredCodec()
	}
	return &Decoder{primitive: p, structured: s}
}

// Decode decodes text as ct. Errors are the codec's own; use DecodeParam to
// get a positioned diagnostic.
func (d *Decoder) Decode(ct *CompiledType, text string) (any, error) {
	if ct.Strategy() == StrategyPrimitive {
		return d.decodePrimitive(ct, text)
	}
	return d.decodeStructured(ct, text)
}

// DecodeParam decodes the argument at position for the named parameter.
func (d *Decoder) DecodeParam(position int, param string, ct *CompiledType, text string) (any, *errors.Error) {
	if !utf8.ValidString(text) {
		return nil, errors.InvalidUTF8(position, param, []byte(text))
	}
	v, err := d.Decode(ct, text)
	if err != nil {
		return nil, errors.Decode(position, param, ct.Name, text, ct.Strategy() == StrategyStructured, err)
	}
	return v, nil
}

func (d *Decoder) decodePrimitive(ct *CompiledType, text string) (any, error) {
	v, err := d.primitive.Parse(ct.Type, text)
	if err != nil {
		return nil, err
	}
	if ct.GoType == nil {
		return v, nil
	}
	return convertPrimitive(v, ct.GoType)
}

// convertPrimitive converts a canonical value to the bound Go type. The bound
// type may be narrower than the WIT kind (int is 32 bits on 386), so integer
// conversions are range checked.
func convertPrimitive(v any, goType reflect.Type) (any, error) {
	rv := reflect.ValueOf(v)
	if rv.Type() == goType {
		return v, nil
	}
	target := reflect.Zero(goType)
	switch {
	case rv.CanInt() && target.CanInt():
		if target.OverflowInt(rv.Int()) {
			return nil, fmt.Errorf("value %d out of range for Go %s", rv.Int(), goType)
		}
	case rv.CanUint() && target.CanUint():
		if target.OverflowUint(rv.Uint()) {
			return nil, fmt.Errorf("value %d out of range for Go %s", rv.Uint(), goType)
		}
	}
	return rv.Convert(goType).Interface(), nil
}

func (d *Decoder) decodeStructured(ct *CompiledType, text string) (any, error) {
	if ct.GoType != nil {
		ptr := reflect.New(ct.GoType)
		if err := d.structured.Unmarshal(text, ptr.Interface()); err != nil {
			return nil, err
		}
		return ptr.Elem().Interface(), nil
	}

	var raw any
	if err := d.structured.Unmarshal(text, &raw); err != nil {
		return nil, err
	}
	return lift(ct, raw, nil)
}
