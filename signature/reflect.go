package signature

import (
	"context"
	"reflect"
	"strconv"
	"strings"

	"github.com/wippyai/strffi/errors"
	"go.bytecodealliance.org/wit"
)

var (
	contextType = reflect.TypeOf((*context.Context)(nil)).Elem()
	errorType   = reflect.TypeOf((*error)(nil)).Elem()
	bytesType   = reflect.TypeOf([]byte(nil))
)

// Binding calls a Go function with decoded arguments.
type Binding struct {
	fn        reflect.Value
	params    []reflect.Type
	optional  []bool
	hasCtx    bool
	hasResult bool
	fallible  bool
}

// FromFunc derives a Signature from a Go function.
//
// A leading context.Context is injected by the caller and not part of the
// signature. Pointer parameters are optional and receive nil when absent.
// Parameter names default to arg0, arg1, ... unless given. The function may
// return nothing, a value, an error, or a value and an error; a trailing
// error makes the signature fallible.
//
// Go kinds map to WIT primitives (int and uint are 64-bit, []byte is text);
// structs, slices and arrays map to records and lists and travel as JSON
// decoded straight into the Go type.
func FromFunc(name string, fn any, paramNames ...string) (Signature, *Binding, error) {
	rv := reflect.ValueOf(fn)
	if !rv.IsValid() || rv.Kind() != reflect.Func || rv.IsNil() {
		return Signature{}, nil, errors.InvalidInput(errors.PhaseAnalyze, name+": handler must be a non-nil function")
	}
	ft := rv.Type()
	if ft.IsVariadic() {
		return Signature{}, nil, errors.Unsupported(errors.PhaseAnalyze, name+": variadic functions are not supported")
	}

	b := &Binding{fn: rv}
	sig := Signature{Name: name}
	mapper := &typeMapper{records: make(map[reflect.Type]*wit.TypeDef), visiting: make(map[reflect.Type]bool)}

	start := 0
	if ft.NumIn() > 0 && ft.In(0) == contextType {
		b.hasCtx = true
		start = 1
	}

	if len(paramNames) > 0 && len(paramNames) != ft.NumIn()-start {
		return Signature{}, nil, errors.InvalidInput(errors.PhaseAnalyze,
			name+": got "+strconv.Itoa(len(paramNames))+" parameter names for "+strconv.Itoa(ft.NumIn()-start)+" parameters")
	}

	for i := start; i < ft.NumIn(); i++ {
		pos := i - start
		goType := ft.In(i)
		param := Param{Name: "arg" + strconv.Itoa(pos)}
		if len(paramNames) > 0 {
			param.Name = paramNames[pos]
		}

		if goType.Kind() == reflect.Ptr {
			param.Optional = true
			goType = goType.Elem()
		}
		witType, err := mapper.witType(goType, []string{param.Name})
		if err != nil {
			return Signature{}, nil, err
		}
		param.Type = witType
		param.GoType = goType

		sig.Params = append(sig.Params, param)
		b.params = append(b.params, ft.In(i))
		b.optional = append(b.optional, param.Optional)
	}

	switch ft.NumOut() {
	case 0:
	case 1:
		if ft.Out(0) == errorType {
			b.fallible = true
		} else {
			b.hasResult = true
		}
	case 2:
		if ft.Out(1) != errorType {
			return Signature{}, nil, errors.Unsupported(errors.PhaseAnalyze, name+": second result must be error")
		}
		b.hasResult = true
		b.fallible = true
	default:
		return Signature{}, nil, errors.Unsupported(errors.PhaseAnalyze, name+": at most a value and an error may be returned")
	}

	if b.hasResult {
		goType := ft.Out(0)
		witType, err := mapper.witType(goType, []string{"result"})
		if err != nil {
			return Signature{}, nil, err
		}
		sig.Result = witType
		sig.ResultGoType = goType
	}
	sig.Fallible = b.fallible

	return sig, b, nil
}

// Call invokes the function. values holds one decoded value per parameter;
// present marks which optional parameters were supplied.
func (b *Binding) Call(ctx context.Context, values []any, present []bool) (any, error) {
	in := make([]reflect.Value, 0, len(b.params)+1)
	if b.hasCtx {
		in = append(in, reflect.ValueOf(ctx))
	}

	for i, pt := range b.params {
		if b.optional[i] {
			if i >= len(present) || !present[i] {
				in = append(in, reflect.Zero(pt))
				continue
			}
			ptr := reflect.New(pt.Elem())
			ptr.Elem().Set(reflect.ValueOf(values[i]))
			in = append(in, ptr)
			continue
		}
		if values[i] == nil {
			in = append(in, reflect.Zero(pt))
			continue
		}
		in = append(in, reflect.ValueOf(values[i]))
	}

	out := b.fn.Call(in)

	if b.fallible {
		if errV := out[len(out)-1]; !errV.IsNil() {
			return nil, errV.Interface().(error)
		}
	}
	if b.hasResult {
		return out[0].Interface(), nil
	}
	return nil, nil
}

type typeMapper struct {
	records  map[reflect.Type]*wit.TypeDef
	visiting map[reflect.Type]bool
}

func (m *typeMapper) witType(t reflect.Type, path []string) (wit.Type, error) {
	switch t.Kind() {
	case reflect.Bool:
		return wit.Bool{}, nil
	case reflect.Int8:
		return wit.S8{}, nil
	case reflect.Int16:
		return wit.S16{}, nil
	case reflect.Int32:
		return wit.S32{}, nil
	case reflect.Int, reflect.Int64:
		return wit.S64{}, nil
	case reflect.Uint8:
		return wit.U8{}, nil
	case reflect.Uint16:
		return wit.U16{}, nil
	case reflect.Uint32:
		return wit.U32{}, nil
	case reflect.Uint, reflect.Uint64:
		return wit.U64{}, nil
	case reflect.Float32:
		return wit.F32{}, nil
	case reflect.Float64:
		return wit.F64{}, nil
	case reflect.String:
		return wit.String{}, nil
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 && t.ConvertibleTo(bytesType) {
			return wit.String{}, nil
		}
		fallthrough
	case reflect.Array:
		elem, err := m.witType(t.Elem(), append(path, "[elem]"))
		if err != nil {
			return nil, err
		}
		return &wit.TypeDef{Kind: &wit.List{Type: elem}}, nil
	case reflect.Ptr:
		elem, err := m.witType(t.Elem(), append(path, "[some]"))
		if err != nil {
			return nil, err
		}
		return &wit.TypeDef{Kind: &wit.Option{Type: elem}}, nil
	case reflect.Struct:
		return m.record(t, path)
	}
	return nil, errors.New(errors.PhaseAnalyze, errors.KindUnsupported).
		Path(path...).
		GoType(t.String()).
		Detail("no WIT equivalent").
		Build()
}

func (m *typeMapper) record(t reflect.Type, path []string) (wit.Type, error) {
	if td, ok := m.records[t]; ok {
		return td, nil
	}
	if m.visiting[t] {
		return nil, errors.New(errors.PhaseAnalyze, errors.KindUnsupported).
			Path(path...).
			GoType(t.String()).
			Detail("recursive types cannot be expressed in WIT").
			Build()
	}
	m.visiting[t] = true
	defer delete(m.visiting, t)

	rec := &wit.Record{}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		if f.Anonymous {
			return nil, errors.New(errors.PhaseAnalyze, errors.KindUnsupported).
				Path(append(path, f.Name)...).
				GoType(t.String()).
				Detail("embedded fields are not supported").
				Build()
		}
		fieldName := f.Name
		if tag := f.Tag.Get("json"); tag != "" {
			name, _, _ := strings.Cut(tag, ",")
			if name == "-" {
				continue
			}
			if name != "" {
				fieldName = name
			}
		}
		ft, err := m.witType(f.Type, append(append([]string{}, path...), fieldName))
		if err != nil {
			return nil, err
		}
		rec.Fields = append(rec.Fields, wit.Field{Name: fieldName, Type: ft})
	}

	td := &wit.TypeDef{Kind: rec}
	if t.Name() != "" {
		name := KebabCase(t.Name())
		td.Name = &name
	}
	m.records[t] = td
	return td, nil
}
