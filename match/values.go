package match

import (
	"encoding/json"
	"reflect"
)

type numberKind int

const (
	numberSigned numberKind = iota
	numberUnsigned
	numberFloat
)

type number struct {
	kind numberKind
	i    int64
	u    uint64
	f    float64
}

func (n number) float() float64 {
	switch n.kind {
	case numberSigned:
		return float64(n.i)
	case numberUnsigned:
		return float64(n.u)
	default:
		return n.f
	}
}

func (n number) equal(other number) bool {
	switch {
	case n.kind == numberFloat || other.kind == numberFloat:
		return n.float() == other.float()
	case n.kind == numberSigned && other.kind == numberSigned:
		return n.i == other.i
	case n.kind == numberUnsigned && other.kind == numberUnsigned:
		return n.u == other.u
	case n.kind == numberSigned:
		return n.i >= 0 && uint64(n.i) == other.u
	default:
		return other.i >= 0 && uint64(other.i) == n.u
	}
}

func numberValue(value any) (number, bool) {
	if value == nil {
		return number{}, false
	}
	if raw, ok := value.(json.Number); ok {
		if i, err := raw.Int64(); err == nil {
			return number{kind: numberSigned, i: i}, true
		}
		if f, err := raw.Float64(); err == nil {
			return number{kind: numberFloat, f: f}, true
		}
		return number{}, false
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return number{kind: numberSigned, i: rv.Int()}, true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return number{kind: numberUnsigned, u: rv.Uint()}, true
	case reflect.Float32, reflect.Float64:
		return number{kind: numberFloat, f: rv.Float()}, true
	}
	return number{}, false
}

func stringValue(value any) (string, bool) {
	if value == nil {
		return "", false
	}
	if _, ok := value.(json.Number); ok {
		return "", false
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.String {
		return "", false
	}
	return rv.String(), true
}

// textValue is stringValue plus raw byte slices, the inputs string predicates accept.
func textValue(value any) (string, bool) {
	if raw, ok := value.([]byte); ok {
		return string(raw), true
	}
	return stringValue(value)
}

func boolValue(value any) (bool, bool) {
	if value == nil {
		return false, false
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Bool {
		return false, false
	}
	return rv.Bool(), true
}

func valuesEqual(expected any, candidate any) bool {
	if expected == nil || candidate == nil {
		return expected == nil && candidate == nil
	}
	if en, ok := numberValue(expected); ok {
		cn, ok := numberValue(candidate)
		return ok && en.equal(cn)
	}
	if _, ok := numberValue(candidate); ok {
		return false
	}
	if es, ok := stringValue(expected); ok {
		cs, ok := stringValue(candidate)
		return ok && es == cs
	}
	if eb, ok := boolValue(expected); ok {
		cb, ok := boolValue(candidate)
		return ok && eb == cb
	}
	return reflect.DeepEqual(expected, candidate)
}

// asMapping returns value as a string keyed mapping when it is one.
func asMapping(value any) (map[string]any, bool) {
	switch typed := value.(type) {
	case nil:
		return nil, false
	case map[string]any:
		return typed, true
	case Mapping:
		return typed, true
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, false
	}
	out := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		out[iter.Key().String()] = iter.Value().Interface()
	}
	return out, true
}
