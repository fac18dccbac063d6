package errors

import (
	stderrors "errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseAnalyze  Phase = "analyze"  // signature analysis (generation time)
	PhaseParse    Phase = "parse"    // WIT declaration parsing
	PhaseArity    Phase = "arity"    // argument count validation
	PhaseDecode   Phase = "decode"   // text to Go value
	PhaseInvoke   Phase = "invoke"   // wrapped function call
	PhaseEncode   Phase = "encode"   // Go value to text
	PhaseRegister Phase = "register" // export registration
	PhaseABI      Phase = "abi"      // host ABI plumbing
	PhaseGenerate Phase = "generate" // stub generation
)

// Kind categorizes the error
type Kind string

const (
	// runtime kinds, reported to the host as wire diagnostics
	KindArity          Kind = "arity"
	KindDecode         Kind = "decode"
	KindInvalidUTF8    Kind = "invalid_utf8"
	KindInternalFault  Kind = "internal_fault"
	KindWrappedFailure Kind = "wrapped_failure"
	KindEncode         Kind = "encode"

	// generation-time kinds
	KindOrdering          Kind = "ordering"
	KindTransportDisabled Kind = "transport_disabled"
	KindUnsupported       Kind = "unsupported"
	KindTypeMismatch      Kind = "type_mismatch"
	KindInvalidInput      Kind = "invalid_input"
	KindRegistration      Kind = "registration"
	KindNotFound          Kind = "not_found"
	KindSyntax            Kind = "syntax"
)

// MaxValuePreview bounds the offending text echoed back in diagnostics.
const MaxValuePreview = 64

// Error is the structured error type used throughout the module
type Error struct {
	Value    any
	Cause    error
	Phase    Phase
	Kind     Kind
	GoType   string
	WitType  string
	Param    string
	Detail   string
	Path     []string
	Position int // parameter index, -1 when not tied to a parameter

	// Structured is set when the failure happened in the structured
	// transport rather than the primitive codec.
	Structured bool
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Position >= 0 {
		b.WriteString(" at argument ")
		b.WriteString(strconv.Itoa(e.Position))
		if e.Param != "" {
			b.WriteString(" (")
			b.WriteString(e.Param)
			b.WriteByte(')')
		}
	}

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.GoType != "" || e.WitType != "" {
		b.WriteString(": ")
		if e.GoType != "" && e.WitType != "" {
			b.WriteString("Go type ")
			b.WriteString(e.GoType)
			b.WriteString(", WIT type ")
			b.WriteString(e.WitType)
		} else if e.GoType != "" {
			b.WriteString("Go type ")
			b.WriteString(e.GoType)
		} else {
			b.WriteString("WIT type ")
			b.WriteString(e.WitType)
		}
	}

	if e.Detail != "" {
		if e.GoType != "" || e.WitType != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase:    phase,
			Kind:     kind,
			Position: -1,
		},
	}
}

// Path sets the field path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// At ties the error to a parameter position and name
func (b *Builder) At(position int, param string) *Builder {
	b.err.Position = position
	b.err.Param = param
	return b
}

// GoType sets the Go type name
func (b *Builder) GoType(t string) *Builder {
	b.err.GoType = t
	return b
}

// WitType sets the WIT type name
func (b *Builder) WitType(t string) *Builder {
	b.err.WitType = t
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Structured marks the failure as a structured transport failure
func (b *Builder) Structured() *Builder {
	b.err.Structured = true
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for the runtime taxonomy

// Arity creates the error for a call outside the accepted argument range
func Arity(minArgs, maxArgs, got int) *Error {
	var detail string
	if minArgs == maxArgs {
		detail = fmt.Sprintf("expected %d arguments, got %d", minArgs, got)
	} else {
		detail = fmt.Sprintf("expected between %d and %d arguments, got %d", minArgs, maxArgs, got)
	}
	return &Error{
		Phase:    PhaseArity,
		Kind:     KindArity,
		Position: -1,
		Detail:   detail,
		Value:    got,
	}
}

// Decode creates a per-parameter decode failure. The offending text is
// truncated for diagnostics.
func Decode(position int, param, witType, text string, structured bool, cause error) *Error {
	return &Error{
		Phase:      PhaseDecode,
		Kind:       KindDecode,
		Position:   position,
		Param:      param,
		WitType:    witType,
		Value:      Preview(text),
		Detail:     fmt.Sprintf("cannot decode %q", Preview(text)),
		Cause:      cause,
		Structured: structured,
	}
}

// InvalidUTF8 creates the failure for an argument that is not valid UTF-8
func InvalidUTF8(position int, param string, data []byte) *Error {
	preview := data
	if len(preview) > 32 {
		preview = preview[:32]
	}
	return &Error{
		Phase:    PhaseDecode,
		Kind:     KindInvalidUTF8,
		Position: position,
		Param:    param,
		Detail:   fmt.Sprintf("invalid UTF-8 sequence: %x", preview),
	}
}

// InternalFault wraps a value recovered from a panic inside the wrapped function
func InternalFault(function string, recovered any) *Error {
	return &Error{
		Phase:    PhaseInvoke,
		Kind:     KindInternalFault,
		Position: -1,
		Value:    recovered,
		Detail:   fmt.Sprintf("internal fault in %s: %v", function, recovered),
	}
}

// WrappedFailure wraps an error returned by the wrapped function itself
func WrappedFailure(cause error) *Error {
	return &Error{
		Phase:    PhaseInvoke,
		Kind:     KindWrappedFailure,
		Position: -1,
		Cause:    cause,
	}
}

// Encode creates a return value encoding failure
func Encode(witType, goType string, structured bool, cause error) *Error {
	return &Error{
		Phase:      PhaseEncode,
		Kind:       KindEncode,
		Position:   -1,
		WitType:    witType,
		GoType:     goType,
		Cause:      cause,
		Structured: structured,
	}
}

// Generation-time constructors

// Ordering creates the error for a required parameter after an optional one
func Ordering(function string, position int, param string) *Error {
	return &Error{
		Phase:    PhaseAnalyze,
		Kind:     KindOrdering,
		Position: position,
		Param:    param,
		Detail:   fmt.Sprintf("%s: required parameter follows an optional parameter", function),
	}
}

// TransportDisabled creates the error for a structured type used while
// structured transport is unavailable
func TransportDisabled(function string, position int, param, witType string) *Error {
	what := "return type"
	if position >= 0 {
		what = "parameter"
	}
	return &Error{
		Phase:    PhaseAnalyze,
		Kind:     KindTransportDisabled,
		Position: position,
		Param:    param,
		WitType:  witType,
		Detail:   fmt.Sprintf("%s: %s needs structured transport, which is disabled", function, what),
	}
}

// TypeMismatch creates a type mismatch error
func TypeMismatch(phase Phase, path []string, goType, witType string) *Error {
	return &Error{
		Phase:    phase,
		Kind:     KindTypeMismatch,
		Position: -1,
		Path:     path,
		GoType:   goType,
		WitType:  witType,
	}
}

// Unsupported creates an unsupported operation error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:    phase,
		Kind:     KindUnsupported,
		Position: -1,
		Detail:   what,
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:    phase,
		Kind:     KindNotFound,
		Position: -1,
		Detail:   fmt.Sprintf("%s %q not found", what, name),
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:    phase,
		Kind:     KindInvalidInput,
		Position: -1,
		Detail:   detail,
	}
}

// Registration creates a registration error
func Registration(name string, cause error) *Error {
	return &Error{
		Phase:    PhaseRegister,
		Kind:     KindRegistration,
		Position: -1,
		Detail:   fmt.Sprintf("register %s", name),
		Cause:    cause,
	}
}

// Syntax creates a WIT parse error at a line
func Syntax(line int, format string, args ...any) *Error {
	return &Error{
		Phase:    PhaseParse,
		Kind:     KindSyntax,
		Position: -1,
		Detail:   fmt.Sprintf("line %d: %s", line, fmt.Sprintf(format, args...)),
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:    phase,
		Kind:     kind,
		Position: -1,
		Detail:   detail,
		Cause:    cause,
	}
}

// Preview truncates s to MaxValuePreview bytes on a rune boundary.
func Preview(s string) string {
	if len(s) <= MaxValuePreview {
		return s
	}
	cut := MaxValuePreview
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool {
	return stderrors.As(err, target)
}
