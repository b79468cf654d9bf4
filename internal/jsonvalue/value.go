package jsonvalue

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
)

// Normalize converts a Go value into the JSON model.
//
// Maps with string keys become objects with sorted keys, since Go maps carry
// no order. Types the function does not know are round-tripped through
// encoding/json, so structs keep their field order.
func Normalize(v any) (any, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case *Object:
		if x == nil {
			return nil, nil
		}
		return x.Clone(), nil
	case bool, string:
		return x, nil
	case json.Number:
		if _, err := strconv.ParseFloat(string(x), 64); err != nil {
			return nil, fmt.Errorf("jsonvalue: invalid number %q", string(x))
		}
		return x, nil
	case json.RawMessage:
		return Parse(x)
	case int:
		return json.Number(strconv.FormatInt(int64(x), 10)), nil
	case int8:
		return json.Number(strconv.FormatInt(int64(x), 10)), nil
	case int16:
		return json.Number(strconv.FormatInt(int64(x), 10)), nil
	case int32:
		return json.Number(strconv.FormatInt(int64(x), 10)), nil
	case int64:
		return json.Number(strconv.FormatInt(x, 10)), nil
	case uint:
		return json.Number(strconv.FormatUint(uint64(x), 10)), nil
	case uint8:
		return json.Number(strconv.FormatUint(uint64(x), 10)), nil
	case uint16:
		return json.Number(strconv.FormatUint(uint64(x), 10)), nil
	case uint32:
		return json.Number(strconv.FormatUint(uint64(x), 10)), nil
	case uint64:
		return json.Number(strconv.FormatUint(x, 10)), nil
	case float32:
		return normalizeFloat(float64(x))
	case float64:
		return normalizeFloat(x)
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		obj := NewObject()
		for _, k := range keys {
			nv, err := Normalize(x[k])
			if err != nil {
				return nil, err
			}
			obj.Set(k, nv)
		}
		return obj, nil
	case []any:
		arr := make([]any, len(x))
		for i, e := range x {
			nv, err := Normalize(e)
			if err != nil {
				return nil, err
			}
			arr[i] = nv
		}
		return arr, nil
	}

	rv := reflect.ValueOf(v)
	if (rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface) && rv.IsNil() {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("jsonvalue: normalize %T: %w", v, err)
	}
	return Parse(data)
}

// NormalizeObject is Normalize for values that must be objects.
func NormalizeObject(v any) (*Object, error) {
	nv, err := Normalize(v)
	if err != nil {
		return nil, err
	}
	obj, ok := nv.(*Object)
	if !ok {
		return nil, fmt.Errorf("%w: got %s", ErrNotObject, TypeName(nv))
	}
	return obj, nil
}

func normalizeFloat(f float64) (any, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("jsonvalue: unsupported number %v", f)
	}
	data, err := json.Marshal(f)
	if err != nil {
		return nil, err
	}
	return json.Number(data), nil
}

// Equal reports whether a and b are the same JSON value.
// Numbers compare by numeric value; object key order is ignored.
func Equal(a, b any) bool {
	switch x := a.(type) {
	case nil:
		return b == nil
	case bool:
		y, ok := b.(bool)
		return ok && x == y
	case string:
		y, ok := b.(string)
		return ok && x == y
	case json.Number:
		y, ok := b.(json.Number)
		if !ok {
			return false
		}
		if x == y {
			return true
		}
		fx, errx := x.Float64()
		fy, erry := y.Float64()
		return errx == nil && erry == nil && fx == fy
	case []any:
		y, ok := b.([]any)
		if !ok || len(x) != len(y) {
			return false
		}
		for i := range x {
			if !Equal(x[i], y[i]) {
				return false
			}
		}
		return true
	case *Object:
		y, ok := b.(*Object)
		if !ok || x.Len() != y.Len() {
			return false
		}
		equal := true
		x.Range(func(k string, v any) bool {
			w, exists := y.Get(k)
			equal = exists && Equal(v, w)
			return equal
		})
		return equal
	default:
		return false
	}
}

// Clone returns a deep copy of v.
func Clone(v any) any {
	switch x := v.(type) {
	case *Object:
		return x.Clone()
	case []any:
		clone := make([]any, len(x))
		for i, e := range x {
			clone[i] = Clone(e)
		}
		return clone
	default:
		return v
	}
}

// TypeName returns the JSON type name of v.
func TypeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case json.Number:
		return "number"
	case string:
		return "string"
	case []any:
		return "array"
	case *Object:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}
