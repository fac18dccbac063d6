//go:build !strffi_nojson

package transcoder

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"

	"github.com/goccy/go-json"
	"github.com/wippyai/strffi/errors"
)

// lift converts a generic JSON value (json.Number, string, bool, nil, []any,
// map[string]any) into the canonical Go value for ct.
func lift(ct *CompiledType, raw any, path []string) (any, error) {
	switch ct.Kind {
	case KindBool:
		b, ok := raw.(bool)
		if !ok {
			return nil, shapeErr(errors.PhaseDecode, ct, path, raw, "boolean")
		}
		return b, nil
	case KindString:
		s, ok := raw.(string)
		if !ok {
			return nil, shapeErr(errors.PhaseDecode, ct, path, raw, "string")
		}
		return s, nil
	case KindChar:
		s, ok := raw.(string)
		if !ok {
			return nil, shapeErr(errors.PhaseDecode, ct, path, raw, "one-character string")
		}
		return liftPrimitive(ct, s, path)
	case KindRecord:
		return liftRecord(ct, raw, path)
	case KindList:
		items, ok := raw.([]any)
		if !ok {
			return nil, shapeErr(errors.PhaseDecode, ct, path, raw, "array")
		}
		out := make([]any, len(items))
		for i, item := range items {
			v, err := lift(ct.ElemType, item, childPath(path, "["+strconv.Itoa(i)+"]"))
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	case KindTuple:
		items, ok := raw.([]any)
		if !ok || len(items) != len(ct.Fields) {
			return nil, shapeErr(errors.PhaseDecode, ct, path, raw, fmt.Sprintf("array of %d elements", len(ct.Fields)))
		}
		out := make([]any, len(items))
		for i, f := range ct.Fields {
			v, err := lift(f.Type, items[i], childPath(path, "["+strconv.Itoa(i)+"]"))
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	case KindOption:
		if raw == nil {
			return nil, nil
		}
		return lift(ct.ElemType, raw, childPath(path, "[some]"))
	case KindResult:
		return liftResult(ct, raw, path)
	case KindVariant:
		return liftVariant(ct, raw, path)
	case KindEnum:
		s, ok := raw.(string)
		if !ok || ct.CaseIndex(s) < 0 {
			return nil, shapeErr(errors.PhaseDecode, ct, path, raw, "one of "+caseList(ct))
		}
		return s, nil
	case KindFlags:
		return liftFlags(ct, raw, path)
	}

	if ct.Kind.IsInteger() || ct.Kind.IsFloat() {
		text, ok := numberText(raw)
		if !ok {
			return nil, shapeErr(errors.PhaseDecode, ct, path, raw, "number")
		}
		return liftPrimitive(ct, text, path)
	}
	return nil, errors.Unsupported(errors.PhaseDecode, "cannot decode "+ct.Name)
}

func liftPrimitive(ct *CompiledType, text string, path []string) (any, error) {
	v, err := parsePrimitive(ct.Kind, text)
	if err != nil {
		return nil, errors.New(errors.PhaseDecode, errors.KindTypeMismatch).
			Path(path...).
			WitType(ct.Name).
			Value(text).
			Cause(err).
			Build()
	}
	return v, nil
}

func numberText(raw any) (string, bool) {
	switch n := raw.(type) {
	case json.Number:
		return n.String(), true
	case float64:
		return strconv.FormatFloat(n, 'f', -1, 64), true
	}
	return "", false
}

func liftRecord(ct *CompiledType, raw any, path []string) (any, error) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, shapeErr(errors.PhaseDecode, ct, path, raw, "object")
	}
	for key := range obj {
		if ct.FieldIndex(key) < 0 {
			return nil, errors.New(errors.PhaseDecode, errors.KindTypeMismatch).
				Path(childPath(path, key)...).
				WitType(ct.Name).
				Detail("unknown field %q", key).
				Build()
		}
	}

	out := make(map[string]any, len(ct.Fields))
	for _, f := range ct.Fields {
		fieldPath := childPath(path, f.Name)
		fv, present := obj[f.Name]
		if !present {
			if f.Type.Kind == KindOption {
				out[f.Name] = nil
				continue
			}
			return nil, errors.New(errors.PhaseDecode, errors.KindTypeMismatch).
				Path(fieldPath...).
				WitType(ct.Name).
				Detail("missing field %q", f.Name).
				Build()
		}
		v, err := lift(f.Type, fv, fieldPath)
		if err != nil {
			return nil, err
		}
		out[f.Name] = v
	}
	return out, nil
}

func liftResult(ct *CompiledType, raw any, path []string) (any, error) {
	obj, ok := raw.(map[string]any)
	if !ok || len(obj) != 1 {
		return nil, shapeErr(errors.PhaseDecode, ct, path, raw, `object with a single "ok" or "err" key`)
	}
	for key, payload := range obj {
		var payloadType *CompiledType
		switch key {
		case "ok":
			payloadType = ct.OkType
		case "err":
			payloadType = ct.ErrType
		default:
			return nil, shapeErr(errors.PhaseDecode, ct, path, raw, `object with a single "ok" or "err" key`)
		}
		v, err := liftPayload(ct, payloadType, payload, childPath(path, "["+key+"]"))
		if err != nil {
			return nil, err
		}
		return map[string]any{key: v}, nil
	}
	return nil, nil
}

func liftVariant(ct *CompiledType, raw any, path []string) (any, error) {
	if name, ok := raw.(string); ok {
		idx := ct.CaseIndex(name)
		if idx < 0 || ct.Cases[idx].Type != nil {
			return nil, shapeErr(errors.PhaseDecode, ct, path, raw, "payload-free case of "+caseList(ct))
		}
		return map[string]any{name: nil}, nil
	}

	obj, ok := raw.(map[string]any)
	if !ok || len(obj) != 1 {
		return nil, shapeErr(errors.PhaseDecode, ct, path, raw, "object with a single case key")
	}
	for name, payload := range obj {
		idx := ct.CaseIndex(name)
		if idx < 0 {
			return nil, shapeErr(errors.PhaseDecode, ct, path, raw, "one of "+caseList(ct))
		}
		v, err := liftPayload(ct, ct.Cases[idx].Type, payload, childPath(path, name))
		if err != nil {
			return nil, err
		}
		return map[string]any{name: v}, nil
	}
	return nil, nil
}

func liftPayload(ct, payloadType *CompiledType, payload any, path []string) (any, error) {
	if payloadType == nil {
		if payload != nil {
			return nil, shapeErr(errors.PhaseDecode, ct, path, payload, "null")
		}
		return nil, nil
	}
	return lift(payloadType, payload, path)
}

func liftFlags(ct *CompiledType, raw any, path []string) (any, error) {
	items, ok := raw.([]any)
	if !ok {
		return nil, shapeErr(errors.PhaseDecode, ct, path, raw, "array of flag names")
	}
	out := make([]string, 0, len(items))
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		name, ok := item.(string)
		if !ok || ct.CaseIndex(name) < 0 {
			return nil, shapeErr(errors.PhaseDecode, ct, path, item, "one of "+caseList(ct))
		}
		if seen[name] {
			return nil, errors.New(errors.PhaseDecode, errors.KindTypeMismatch).
				Path(path...).
				WitType(ct.Name).
				Detail("duplicate flag %q", name).
				Build()
		}
		seen[name] = true
		out = append(out, name)
	}
	return out, nil
}

// lower validates a canonical Go value against ct and returns a value ready
// for JSON serialization.
func lower(ct *CompiledType, v any, path []string) (any, error) {
	if ct.Kind.IsPrimitive() {
		cv, err := canonicalPrimitive(ct.Kind, v)
		if err != nil {
			return nil, errors.New(errors.PhaseEncode, errors.KindTypeMismatch).
				Path(path...).
				GoType(goTypeName(v)).
				WitType(ct.Name).
				Cause(err).
				Build()
		}
		if r, ok := cv.(rune); ok && ct.Kind == KindChar {
			return string(r), nil
		}
		return cv, nil
	}

	switch ct.Kind {
	case KindRecord:
		return lowerRecord(ct, v, path)
	case KindList:
		items, ok := sliceItems(v)
		if !ok {
			return nil, shapeErr(errors.PhaseEncode, ct, path, v, "slice")
		}
		out := make([]any, len(items))
		for i, item := range items {
			lv, err := lower(ct.ElemType, item, childPath(path, "["+strconv.Itoa(i)+"]"))
			if err != nil {
				return nil, err
			}
			out[i] = lv
		}
		return out, nil
	case KindTuple:
		items, ok := sliceItems(v)
		if !ok || len(items) != len(ct.Fields) {
			return nil, shapeErr(errors.PhaseEncode, ct, path, v, fmt.Sprintf("slice of %d elements", len(ct.Fields)))
		}
		out := make([]any, len(items))
		for i, f := range ct.Fields {
			lv, err := lower(f.Type, items[i], childPath(path, "["+strconv.Itoa(i)+"]"))
			if err != nil {
				return nil, err
			}
			out[i] = lv
		}
		return out, nil
	case KindOption:
		if isNil(v) {
			return nil, nil
		}
		if rv := reflect.ValueOf(v); rv.Kind() == reflect.Ptr {
			v = rv.Elem().Interface()
		}
		return lower(ct.ElemType, v, childPath(path, "[some]"))
	case KindResult:
		key, payload, ok := singleEntry(v)
		if !ok || (key != "ok" && key != "err") {
			return nil, shapeErr(errors.PhaseEncode, ct, path, v, `map with a single "ok" or "err" key`)
		}
		payloadType := ct.OkType
		if key == "err" {
			payloadType = ct.ErrType
		}
		lv, err := lowerPayload(ct, payloadType, payload, childPath(path, "["+key+"]"))
		if err != nil {
			return nil, err
		}
		return map[string]any{key: lv}, nil
	case KindVariant:
		if name, ok := v.(string); ok {
			idx := ct.CaseIndex(name)
			if idx < 0 || ct.Cases[idx].Type != nil {
				return nil, shapeErr(errors.PhaseEncode, ct, path, v, "payload-free case of "+caseList(ct))
			}
			return map[string]any{name: nil}, nil
		}
		name, payload, ok := singleEntry(v)
		idx := ct.CaseIndex(name)
		if !ok || idx < 0 {
			return nil, shapeErr(errors.PhaseEncode, ct, path, v, "map with a single case of "+caseList(ct))
		}
		lv, err := lowerPayload(ct, ct.Cases[idx].Type, payload, childPath(path, name))
		if err != nil {
			return nil, err
		}
		return map[string]any{name: lv}, nil
	case KindEnum:
		rv := reflect.ValueOf(v)
		if !rv.IsValid() || rv.Kind() != reflect.String || ct.CaseIndex(rv.String()) < 0 {
			return nil, shapeErr(errors.PhaseEncode, ct, path, v, "one of "+caseList(ct))
		}
		return rv.String(), nil
	case KindFlags:
		items, ok := sliceItems(v)
		if !ok {
			return nil, shapeErr(errors.PhaseEncode, ct, path, v, "slice of flag names")
		}
		out := make([]string, 0, len(items))
		seen := make(map[string]bool, len(items))
		for _, item := range items {
			rv := reflect.ValueOf(item)
			if !rv.IsValid() || rv.Kind() != reflect.String || ct.CaseIndex(rv.String()) < 0 || seen[rv.String()] {
				return nil, shapeErr(errors.PhaseEncode, ct, path, item, "distinct flags of "+caseList(ct))
			}
			seen[rv.String()] = true
			out = append(out, rv.String())
		}
		return out, nil
	}
	return nil, errors.Unsupported(errors.PhaseEncode, "cannot encode "+ct.Name)
}

func lowerRecord(ct *CompiledType, v any, path []string) (any, error) {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() || rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, shapeErr(errors.PhaseEncode, ct, path, v, "map with string keys")
	}

	iter := rv.MapRange()
	for iter.Next() {
		key := iter.Key().String()
		if ct.FieldIndex(key) < 0 {
			return nil, errors.New(errors.PhaseEncode, errors.KindTypeMismatch).
				Path(childPath(path, key)...).
				WitType(ct.Name).
				Detail("unknown field %q", key).
				Build()
		}
	}

	out := make(map[string]any, len(ct.Fields))
	for _, f := range ct.Fields {
		fieldPath := childPath(path, f.Name)
		fv := rv.MapIndex(reflect.ValueOf(f.Name).Convert(rv.Type().Key()))
		if !fv.IsValid() {
			if f.Type.Kind == KindOption {
				out[f.Name] = nil
				continue
			}
			return nil, errors.New(errors.PhaseEncode, errors.KindTypeMismatch).
				Path(fieldPath...).
				WitType(ct.Name).
				Detail("missing field %q", f.Name).
				Build()
		}
		lv, err := lower(f.Type, fv.Interface(), fieldPath)
		if err != nil {
			return nil, err
		}
		out[f.Name] = lv
	}
	return out, nil
}

func lowerPayload(ct, payloadType *CompiledType, payload any, path []string) (any, error) {
	if payloadType == nil {
		if !isNil(payload) {
			return nil, shapeErr(errors.PhaseEncode, ct, path, payload, "no payload")
		}
		return nil, nil
	}
	return lower(payloadType, payload, path)
}

func sliceItems(v any) ([]any, bool) {
	if items, ok := v.([]any); ok {
		return items, true
	}
	rv := reflect.ValueOf(v)
	if !rv.IsValid() || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
		return nil, false
	}
	items := make([]any, rv.Len())
	for i := range items {
		items[i] = rv.Index(i).Interface()
	}
	return items, true
}

func singleEntry(v any) (string, any, bool) {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() || rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String || rv.Len() != 1 {
		return "", nil, false
	}
	iter := rv.MapRange()
	iter.Next()
	return iter.Key().String(), iter.Value().Interface(), true
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

func caseList(ct *CompiledType) string {
	names := make([]string, len(ct.Cases))
	for i, c := range ct.Cases {
		names[i] = c.Name
	}
	sort.Strings(names)
	return fmt.Sprint(names)
}

func shapeErr(phase errors.Phase, ct *CompiledType, path []string, got any, expected string) error {
	return errors.New(phase, errors.KindTypeMismatch).
		Path(path...).
		GoType(goTypeName(got)).
		WitType(ct.Name).
		Detail("expected %s", expected).
		Build()
}
