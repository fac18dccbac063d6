// Package errors provides structured error types for strffi.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type carries the parameter position and name, the Go/WIT type names,
// the offending value and a cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseDecode, errors.KindDecode).
//		At(1, "times").
//		WitType("u32").
//		Detail("value out of range").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.Arity(2, 2, 1)
//	err := errors.Decode(0, "a", "s32", "two", false, cause)
//
// # Wire diagnostics
//
// Runtime failures never cross the export boundary as Go errors. The dispatcher
// renders them with Error.Wire into a single string of four fields:
//
//	@@ERR@@|<CLASS>|<TYPE>|<message>
//
// CLASS is FFI for boundary failures (arity, invalid UTF-8, primitive parse,
// result formatting, recovered panics), JSON for structured transport failures
// and FN for an error returned by the wrapped function. TYPE is one of
// WRONG_ARG_COUNT, BAD_UTF8, ARG_PARSE, RETURN_STR, PANIC, DESERIALIZE and
// SERIALIZE; it is empty for the FN class. The message is free text and may
// contain the separator.
//
// A successful result that happens to start with the header cannot be told
// apart from a failure by the host. The dispatcher delivers it unchanged and
// logs a warning.
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
