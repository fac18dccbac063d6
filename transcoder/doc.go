// Package transcoder converts between host text arguments and Go values.
//
// Every WIT type has exactly one decode Strategy, fixed by its kind:
//
//	Kind                                 Strategy     Text form
//	──────────────────────────────────────────────────────────────────
//	bool                                 primitive    strconv.ParseBool
//	u8..u64, s8..s64                     primitive    base-10, range checked
//	f32, f64                             primitive    strconv.ParseFloat
//	char                                 primitive    exactly one rune
//	string                               primitive    the text itself
//	record, list, tuple, option,
//	result, variant, enum, flags         structured   JSON document
//
// # Key Types
//
//	Compiler      - Compiles WIT types into CompiledTypes (cached)
//	CompiledType  - Type shape plus strategy
//	Decoder       - Text to value
//	Encoder       - Value to text
//	Primitive     - Primitive codec
//	JSON          - Structured transport codec
//
// # Canonical Values
//
// A type compiled without a Go type decodes to canonical values:
//
//	bool→bool  s32→int32  u64→uint64  f32→float32  char→rune  string→string
//	record→map[string]any  list, tuple→[]any  option→nil or the value
//	result→map[string]any{"ok"|"err": v}  variant→map[string]any{case: v}
//	enum→string  flags→[]string
//
// In JSON, records are objects, lists and tuples arrays, options null or the
// value, results {"ok": v} or {"err": v}, variants {"case": v} (a bare "case"
// string is accepted for cases without payload), enums strings and flags
// arrays of names. Record fields of option type may be omitted.
//
// A type compiled with a Go type decodes into that type. Primitives are
// converted; structured values are unmarshaled straight into it with unknown
// fields rejected.
//
// # Build Configuration
//
// The strffi_nojson build tag removes the JSON codec. StructuredTransport is
// then false and signature analysis rejects structured types.
//
// # Thread Safety
//
// Compiler, CompiledType, Decoder and Encoder are safe for concurrent use.
//
// # Error Handling
//
// Decode and Encode return the codec's error. DecodeParam and EncodeResult
// wrap it into the positioned errors of package errors:
//
//	[decode] decode at argument 0 (a): WIT type s32 - cannot decode "two" (caused by: invalid syntax)
package transcoder
