package types

import (
	"reflect"

	"go.bytecodealliance.org/wit"
)

// CompiledType describes how one WIT type is decoded from and encoded to text.
// GoType is nil for canonical values (map[string]any, []any, ...); otherwise
// values are produced as, and expected to be, of GoType.
type CompiledType struct {
	Type     wit.Type
	GoType   reflect.Type
	ElemType *CompiledType
	OkType   *CompiledType
	ErrType  *CompiledType
	Fields   []Field
	Cases    []Case
	Name     string
	Kind     Kind
}

// Field is a record field or a tuple element. Tuple elements have no name.
type Field struct {
	Type *CompiledType
	Name string
}

// Case is a variant case, enum case or flag. Type is nil when it has no payload.
type Case struct {
	Type *CompiledType
	Name string
}

func (ct *CompiledType) IsPrimitive() bool {
	return ct.Kind.IsPrimitive()
}

func (ct *CompiledType) Strategy() Strategy {
	return ct.Kind.Strategy()
}

// IsBound reports whether values are tied to a concrete Go type.
func (ct *CompiledType) IsBound() bool {
	return ct.GoType != nil
}

// CaseIndex returns the index of the named case, or -1.
func (ct *CompiledType) CaseIndex(name string) int {
	for i, c := range ct.Cases {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// FieldIndex returns the index of the named record field, or -1.
func (ct *CompiledType) FieldIndex(name string) int {
	for i, f := range ct.Fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}
