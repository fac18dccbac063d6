package errors

import (
	"strconv"
	"strings"
)

// WireHeader prefixes every diagnostic handed to the host.
const WireHeader = "@@ERR@@"

// wireSep separates the header, class, type and message fields.
const wireSep = "|"

// Class groups wire diagnostics by the layer that failed.
type Class string

const (
	ClassFFI  Class = "FFI"  // the boundary itself: arity, UTF-8, primitive codec, faults
	ClassJSON Class = "JSON" // structured transport
	ClassFN   Class = "FN"   // failure reported by the wrapped function
)

// Type identifies the failure within its class.
type Type string

const (
	TypeNone          Type = ""
	TypeWrongArgCount Type = "WRONG_ARG_COUNT"
	TypeBadUTF8       Type = "BAD_UTF8"
	TypeArgParse      Type = "ARG_PARSE"
	TypeReturnStr     Type = "RETURN_STR"
	TypePanic         Type = "PANIC"
	TypeDeserialize   Type = "DESERIALIZE"
	TypeSerialize     Type = "SERIALIZE"
)

// Class returns the wire class for the error kind.
func (e *Error) Class() Class {
	switch e.Kind {
	case KindWrappedFailure:
		return ClassFN
	case KindDecode, KindEncode:
		if e.Structured {
			return ClassJSON
		}
	}
	return ClassFFI
}

// Type returns the wire type for the error kind.
func (e *Error) Type() Type {
	switch e.Kind {
	case KindArity:
		return TypeWrongArgCount
	case KindInvalidUTF8:
		return TypeBadUTF8
	case KindDecode:
		if e.Structured {
			return TypeDeserialize
		}
		return TypeArgParse
	case KindEncode:
		if e.Structured {
			return TypeSerialize
		}
		return TypeReturnStr
	case KindInternalFault:
		return TypePanic
	case KindWrappedFailure:
		return TypeNone
	}
	return TypePanic
}

// Message returns the short host-displayable message. Unlike Error it leaves
// out the phase prefix and Go-side details.
func (e *Error) Message() string {
	switch e.Kind {
	case KindWrappedFailure:
		if e.Cause != nil {
			return e.Cause.Error()
		}
		return e.Detail
	case KindArity, KindInternalFault:
		return e.Detail
	}

	var b strings.Builder
	if e.Position >= 0 {
		b.WriteString("argument ")
		b.WriteString(strconv.Itoa(e.Position))
		if e.Param != "" {
			b.WriteString(" (")
			b.WriteString(e.Param)
			b.WriteByte(')')
		}
	} else if e.Kind == KindEncode {
		b.WriteString("result")
	}
	if e.WitType != "" {
		if b.Len() > 0 {
			b.WriteString(" as ")
		}
		b.WriteString(e.WitType)
	}
	if e.Detail != "" {
		if b.Len() > 0 {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}
	if e.Cause != nil {
		if b.Len() > 0 {
			b.WriteString(": ")
		}
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

// Wire renders the error as a host diagnostic:
//
//	@@ERR@@|<CLASS>|<TYPE>|<message>
func (e *Error) Wire() string {
	return FormatWire(e.Class(), e.Type(), e.Message())
}

// FormatWire builds a diagnostic from its parts.
func FormatWire(class Class, typ Type, message string) string {
	var b strings.Builder
	b.Grow(len(WireHeader) + len(class) + len(typ) + len(message) + 3)
	b.WriteString(WireHeader)
	b.WriteString(wireSep)
	b.WriteString(string(class))
	b.WriteString(wireSep)
	b.WriteString(string(typ))
	b.WriteString(wireSep)
	b.WriteString(message)
	return b.String()
}

// Diagnostic is a parsed wire diagnostic.
type Diagnostic struct {
	Class   Class
	Type    Type
	Message string
}

// IsWire reports whether s starts with the diagnostic header.
func IsWire(s string) bool {
	return strings.HasPrefix(s, WireHeader+wireSep)
}

// ParseWire splits a diagnostic into its fields. The message may itself
// contain the separator.
func ParseWire(s string) (Diagnostic, bool) {
	if !IsWire(s) {
		return Diagnostic{}, false
	}
	parts := strings.SplitN(s[len(WireHeader)+len(wireSep):], wireSep, 3)
	if len(parts) != 3 {
		return Diagnostic{}, false
	}
	return Diagnostic{
		Class:   Class(parts[0]),
		Type:    Type(parts[1]),
		Message: parts[2],
	}, true
}
