// Package types defines the compiled type structures used by the transcoder.
//
// CompiledType holds the shape of a WIT type (fields, cases, element types)
// together with the decode Strategy that follows from its Kind. Compiling once
// keeps the per-call path free of type inspection.
//
// # Key Types
//
//   - CompiledType: Cached type shape
//   - Kind: Type discriminator (primitive, record, list, variant, etc.)
//   - Strategy: Primitive or Structured
//
// This package is internal to the transcoder.
package types
