package strffi

import "go.bytecodealliance.org/wit"

// PrimitiveCodec parses and formats single primitive values. Parse returns
// the canonical Go value for t (int32 for s32, rune for char, ...). Format
// accepts any Go value whose kind matches t.
type PrimitiveCodec interface {
	Parse(t wit.Type, text string) (any, error)
	Format(t wit.Type, v any) (string, error)
}

// StructuredCodec serializes composite values as text documents. Unmarshal
// must reject trailing data and, when v is not *any, unknown fields.
type StructuredCodec interface {
	Unmarshal(text string, v any) error
	Marshal(v any) (string, error)
}
