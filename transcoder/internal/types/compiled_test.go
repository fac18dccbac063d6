package types

import (
	"reflect"
	"testing"
)

func TestCompiledTypeIsPrimitive(t *testing.T) {
	primitiveType := &CompiledType{Kind: KindU32}
	if !primitiveType.IsPrimitive() {
		t.Error("u32 should be primitive")
	}

	stringType := &CompiledType{Kind: KindString}
	if !stringType.IsPrimitive() {
		t.Error("string should be primitive")
	}

	listType := &CompiledType{Kind: KindList, ElemType: primitiveType}
	if listType.IsPrimitive() || listType.Strategy() != StrategyStructured {
		t.Error("list should be structured")
	}
}

func TestCompiledTypeIsBound(t *testing.T) {
	if (&CompiledType{Kind: KindU32}).IsBound() {
		t.Error("canonical type should not be bound")
	}
	bound := &CompiledType{Kind: KindU32, GoType: reflect.TypeOf(uint32(0))}
	if !bound.IsBound() {
		t.Error("type with GoType should be bound")
	}
}

func TestCompiledTypeLookup(t *testing.T) {
	ct := &CompiledType{
		Kind: KindRecord,
		Fields: []Field{
			{Name: "x", Type: &CompiledType{Kind: KindS32}},
			{Name: "y", Type: &CompiledType{Kind: KindS32}},
		},
	}
	if got := ct.FieldIndex("y"); got != 1 {
		t.Errorf("FieldIndex(y) = %d, want 1", got)
	}
	if got := ct.FieldIndex("z"); got != -1 {
		t.Errorf("FieldIndex(z) = %d, want -1", got)
	}

	enum := &CompiledType{
		Kind:  KindEnum,
		Cases: []Case{{Name: "red"}, {Name: "green"}},
	}
	if got := enum.CaseIndex("green"); got != 1 {
		t.Errorf("CaseIndex(green) = %d, want 1", got)
	}
	if got := enum.CaseIndex("blue"); got != -1 {
		t.Errorf("CaseIndex(blue) = %d, want -1", got)
	}
}
