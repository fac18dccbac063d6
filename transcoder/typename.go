package transcoder

import (
	"strings"

	"go.bytecodealliance.org/wit"
)

// TypeName renders a WIT type the way it is written in a declaration.
// Named definitions render as their name; anonymous ones structurally.
func TypeName(t wit.Type) string {
	var b strings.Builder
	writeTypeName(&b, t)
	return b.String()
}

func writeTypeName(b *strings.Builder, t wit.Type) {
	switch v := t.(type) {
	case nil:
		b.WriteString("_")
	case wit.Bool:
		b.WriteString("bool")
	case wit.U8:
		b.WriteString("u8")
	case wit.S8:
		b.WriteString("s8")
	case wit.U16:
		b.WriteString("u16")
	case wit.S16:
		b.WriteString("s16")
	case wit.U32:
		b.WriteString("u32")
	case wit.S32:
		b.WriteString("s32")
	case wit.U64:
		b.WriteString("u64")
	case wit.S64:
		b.WriteString("s64")
	case wit.F32:
		b.WriteString("f32")
	case wit.F64:
		b.WriteString("f64")
	case wit.Char:
		b.WriteString("char")
	case wit.String:
		b.WriteString("string")
	case *wit.TypeDef:
		if v == nil {
			b.WriteString("_")
			return
		}
		if v.Name != nil && *v.Name != "" {
			b.WriteString(*v.Name)
			return
		}
		writeTypeDefKind(b, v.Kind)
	default:
		b.WriteString("unknown")
	}
}

func writeTypeDefKind(b *strings.Builder, kind any) {
	switch k := kind.(type) {
	case *wit.Record:
		b.WriteString("record")
	case *wit.Variant:
		b.WriteString("variant")
	case *wit.Enum:
		b.WriteString("enum")
	case *wit.Flags:
		b.WriteString("flags")
	case *wit.List:
		b.WriteString("list<")
		writeTypeName(b, k.Type)
		b.WriteByte('>')
	case *wit.Option:
		b.WriteString("option<")
		writeTypeName(b, k.Type)
		b.WriteByte('>')
	case *wit.Tuple:
		b.WriteString("tuple<")
		for i, et := range k.Types {
			if i > 0 {
				b.WriteString(", ")
			}
			writeTypeName(b, et)
		}
		b.WriteByte('>')
	case *wit.Result:
		b.WriteString("result")
		switch {
		case k.OK != nil && k.Err != nil:
			b.WriteByte('<')
			writeTypeName(b, k.OK)
			b.WriteString(", ")
			writeTypeName(b, k.Err)
			b.WriteByte('>')
		case k.OK != nil:
			b.WriteByte('<')
			writeTypeName(b, k.OK)
			b.WriteByte('>')
		case k.Err != nil:
			b.WriteString("<_, ")
			writeTypeName(b, k.Err)
			b.WriteByte('>')
		}
	case *wit.Own:
		b.WriteString("own<")
		writeTypeName(b, k.Type)
		b.WriteByte('>')
	case *wit.Borrow:
		b.WriteString("borrow<")
		writeTypeName(b, k.Type)
		b.WriteByte('>')
	case wit.Type:
		writeTypeName(b, k)
	default:
		b.WriteString("unknown")
	}
}
