package signature

import (
	"strings"

	"github.com/wippyai/strffi/transcoder"
	"go.bytecodealliance.org/wit"
)

// TypeString renders a WIT type as written in a declaration.
func TypeString(t wit.Type) string {
	return transcoder.TypeName(t)
}

// String renders sig back to a WIT function item. Optional parameters render
// as option<T> and fallible functions as result<T, string>.
func String(sig Signature) string {
	var b strings.Builder
	b.WriteString(sig.Name)
	b.WriteString(": func(")
	for i, p := range sig.Params {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(p.Name)
		b.WriteString(": ")
		if p.Optional {
			b.WriteString("option<")
			b.WriteString(TypeString(p.Type))
			b.WriteByte('>')
		} else {
			b.WriteString(TypeString(p.Type))
		}
	}
	b.WriteByte(')')

	switch {
	case sig.Fallible && sig.Result != nil:
		b.WriteString(" -> result<")
		b.WriteString(TypeString(sig.Result))
		b.WriteString(", string>")
	case sig.Fallible:
		b.WriteString(" -> result<_, string>")
	case sig.Result != nil:
		b.WriteString(" -> ")
		b.WriteString(TypeString(sig.Result))
	}
	b.WriteByte(';')
	return b.String()
}

// Usage renders the host-facing call shape, e.g. "greet(name, [times])".
func Usage(sig Signature) string {
	var b strings.Builder
	b.WriteString(sig.Symbol())
	b.WriteByte('(')
	for i, p := range sig.Params {
		if i > 0 {
			b.WriteString(", ")
		}
		if p.Optional {
			b.WriteByte('[')
			b.WriteString(p.Name)
			b.WriteByte(']')
		} else {
			b.WriteString(p.Name)
		}
	}
	b.WriteByte(')')
	return b.String()
}
