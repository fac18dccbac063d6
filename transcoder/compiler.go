package transcoder

import (
	"reflect"
	"strconv"
	"sync"

	"github.com/wippyai/strffi/errors"
	"go.bytecodealliance.org/wit"
)

// Compiler turns WIT types into CompiledTypes. Results are cached, so a
// Compiler is meant to be shared.
type Compiler struct {
	cache sync.Map // cacheKey -> *CompiledType
}

type cacheKey struct {
	goType  reflect.Type
	witType wit.Type
}

func NewCompiler() *Compiler {
	return &Compiler{}
}

var defaultCompiler = NewCompiler()

// Compile compiles witType with the shared compiler.
func Compile(witType wit.Type, goType reflect.Type) (*CompiledType, error) {
	return defaultCompiler.Compile(witType, goType)
}

// Compile compiles witType. A nil goType selects canonical values; otherwise
// decoded values are produced as goType and encoded values must be of it.
func (c *Compiler) Compile(witType wit.Type, goType reflect.Type) (*CompiledType, error) {
	if witType == nil {
		return nil, errors.New(errors.PhaseAnalyze, errors.KindInvalidInput).
			Detail("WIT type cannot be nil").
			Build()
	}

	key := cacheKey{witType: witType, goType: goType}
	if cached, ok := c.cache.Load(key); ok {
		return cached.(*CompiledType), nil
	}

	ct, err := c.compile(witType, nil)
	if err != nil {
		return nil, err
	}

	if goType != nil {
		if err := validateGoType(ct, goType); err != nil {
			return nil, err
		}
		bound := *ct
		bound.GoType = goType
		ct = &bound
	}

	c.cache.Store(key, ct)
	return ct, nil
}

func (c *Compiler) compile(witType wit.Type, path []string) (*CompiledType, error) {
	switch t := witType.(type) {
	case wit.Bool:
		return primitive(KindBool, t), nil
	case wit.U8:
		return primitive(KindU8, t), nil
	case wit.S8:
		return primitive(KindS8, t), nil
	case wit.U16:
		return primitive(KindU16, t), nil
	case wit.S16:
		return primitive(KindS16, t), nil
	case wit.U32:
		return primitive(KindU32, t), nil
	case wit.S32:
		return primitive(KindS32, t), nil
	case wit.U64:
		return primitive(KindU64, t), nil
	case wit.S64:
		return primitive(KindS64, t), nil
	case wit.F32:
		return primitive(KindF32, t), nil
	case wit.F64:
		return primitive(KindF64, t), nil
	case wit.Char:
		return primitive(KindChar, t), nil
	case wit.String:
		return primitive(KindString, t), nil
	case *wit.TypeDef:
		if t == nil {
			break
		}
		return c.compileTypeDef(t, path)
	}
	return nil, errors.New(errors.PhaseAnalyze, errors.KindUnsupported).
		Path(path...).
		Detail("unsupported WIT type: %T", witType).
		Build()
}

func primitive(kind TypeKind, t wit.Type) *CompiledType {
	return &CompiledType{Type: t, Kind: kind, Name: kind.String()}
}

func (c *Compiler) compileTypeDef(t *wit.TypeDef, path []string) (*CompiledType, error) {
	name := TypeName(t)

	switch kind := t.Kind.(type) {
	case *wit.Record:
		return c.compileRecord(t, kind, name, path)
	case *wit.List:
		elem, err := c.compile(kind.Type, childPath(path, "[elem]"))
		if err != nil {
			return nil, err
		}
		return &CompiledType{Type: t, Kind: KindList, Name: name, ElemType: elem}, nil
	case *wit.Tuple:
		return c.compileTuple(t, kind, name, path)
	case *wit.Option:
		elem, err := c.compile(kind.Type, childPath(path, "[some]"))
		if err != nil {
			return nil, err
		}
		if elem.Kind == KindOption {
			// both none and some(none) would travel as null
			return nil, errors.New(errors.PhaseAnalyze, errors.KindUnsupported).
				Path(path...).
				WitType(name).
				Detail("nested option has no JSON form").
				Build()
		}
		return &CompiledType{Type: t, Kind: KindOption, Name: name, ElemType: elem}, nil
	case *wit.Result:
		return c.compileResult(t, kind, name, path)
	case *wit.Variant:
		return c.compileVariant(t, kind, name, path)
	case *wit.Enum:
		cases := make([]CompiledCase, len(kind.Cases))
		for i, ec := range kind.Cases {
			cases[i] = CompiledCase{Name: ec.Name}
		}
		return &CompiledType{Type: t, Kind: KindEnum, Name: name, Cases: cases}, nil
	case *wit.Flags:
		cases := make([]CompiledCase, len(kind.Flags))
		for i, fl := range kind.Flags {
			cases[i] = CompiledCase{Name: fl.Name}
		}
		return &CompiledType{Type: t, Kind: KindFlags, Name: name, Cases: cases}, nil
	case *wit.Own, *wit.Borrow:
		return nil, errors.New(errors.PhaseAnalyze, errors.KindUnsupported).
			Path(path...).
			WitType(name).
			Detail("resource handles cannot cross a text boundary").
			Build()
	case wit.Type:
		// type alias
		return c.compile(kind, path)
	default:
		return nil, errors.New(errors.PhaseAnalyze, errors.KindUnsupported).
			Path(path...).
			Detail("unsupported TypeDef kind: %T", kind).
			Build()
	}
}

func (c *Compiler) compileRecord(t *wit.TypeDef, r *wit.Record, name string, path []string) (*CompiledType, error) {
	fields := make([]CompiledField, 0, len(r.Fields))
	for _, witField := range r.Fields {
		fieldType, err := c.compile(witField.Type, childPath(path, witField.Name))
		if err != nil {
			return nil, err
		}
		fields = append(fields, CompiledField{Name: witField.Name, Type: fieldType})
	}
	return &CompiledType{Type: t, Kind: KindRecord, Name: name, Fields: fields}, nil
}

func (c *Compiler) compileTuple(t *wit.TypeDef, tup *wit.Tuple, name string, path []string) (*CompiledType, error) {
	fields := make([]CompiledField, 0, len(tup.Types))
	for i, elemWitType := range tup.Types {
		elemType, err := c.compile(elemWitType, childPath(path, "["+strconv.Itoa(i)+"]"))
		if err != nil {
			return nil, err
		}
		fields = append(fields, CompiledField{Type: elemType})
	}
	return &CompiledType{Type: t, Kind: KindTuple, Name: name, Fields: fields}, nil
}

func (c *Compiler) compileResult(t *wit.TypeDef, r *wit.Result, name string, path []string) (*CompiledType, error) {
	ct := &CompiledType{Type: t, Kind: KindResult, Name: name}
	if r.OK != nil {
		okType, err := c.compile(r.OK, childPath(path, "[ok]"))
		if err != nil {
			return nil, err
		}
		ct.OkType = okType
	}
	if r.Err != nil {
		errType, err := c.compile(r.Err, childPath(path, "[err]"))
		if err != nil {
			return nil, err
		}
		ct.ErrType = errType
	}
	return ct, nil
}

func (c *Compiler) compileVariant(t *wit.TypeDef, v *wit.Variant, name string, path []string) (*CompiledType, error) {
	cases := make([]CompiledCase, len(v.Cases))
	for i, vc := range v.Cases {
		cases[i] = CompiledCase{Name: vc.Name}
		if vc.Type == nil {
			continue
		}
		caseType, err := c.compile(vc.Type, childPath(path, vc.Name))
		if err != nil {
			return nil, err
		}
		cases[i].Type = caseType
	}
	return &CompiledType{Type: t, Kind: KindVariant, Name: name, Cases: cases}, nil
}

// validateGoType checks that goType can hold values of ct. Primitives are
// matched by reflect.Kind; structured types only by their outer shape since
// the structured transport decodes straight into goType.
func validateGoType(ct *CompiledType, goType reflect.Type) error {
	var valid bool
	var expected string

	k := goType.Kind()
	switch ct.Kind {
	case KindBool:
		valid, expected = k == reflect.Bool, "bool"
	case KindU8:
		valid, expected = k == reflect.Uint8, "uint8"
	case KindS8:
		valid, expected = k == reflect.Int8, "int8"
	case KindU16:
		valid, expected = k == reflect.Uint16, "uint16"
	case KindS16:
		valid, expected = k == reflect.Int16, "int16"
	case KindU32:
		valid, expected = k == reflect.Uint32, "uint32"
	case KindS32:
		valid, expected = k == reflect.Int32, "int32"
	case KindU64:
		valid, expected = k == reflect.Uint64 || k == reflect.Uint, "uint64 or uint"
	case KindS64:
		valid, expected = k == reflect.Int64 || k == reflect.Int, "int64 or int"
	case KindF32:
		valid, expected = k == reflect.Float32, "float32"
	case KindF64:
		valid, expected = k == reflect.Float64, "float64"
	case KindChar:
		valid, expected = k == reflect.Int32, "rune"
	case KindString:
		valid, expected = k == reflect.String || isBytes(goType), "string or []byte"
	case KindRecord:
		valid, expected = k == reflect.Struct, "struct"
	case KindList:
		valid, expected = k == reflect.Slice || k == reflect.Array, "slice or array"
	case KindTuple:
		valid, expected = k == reflect.Slice || k == reflect.Array || k == reflect.Struct, "slice, array or struct"
	case KindOption:
		valid, expected = k == reflect.Ptr, "pointer"
	case KindEnum:
		valid, expected = k == reflect.String, "string"
	case KindFlags:
		valid, expected = k == reflect.Slice && goType.Elem().Kind() == reflect.String, "[]string"
	case KindResult, KindVariant:
		valid, expected = k == reflect.Struct || k == reflect.Map || k == reflect.Interface, "struct, map or interface"
	}

	if !valid {
		return errors.New(errors.PhaseAnalyze, errors.KindTypeMismatch).
			GoType(goType.String()).
			WitType(ct.Name).
			Detail("expected Go %s", expected).
			Build()
	}
	return nil
}

func childPath(path []string, elem string) []string {
	return append(append([]string{}, path...), elem)
}
