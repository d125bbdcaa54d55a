package mapping

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
)

// assign converts v into a reflect.Value of type rt. Nil becomes the zero
// value, numbers convert across numeric kinds when no precision is lost and
// named types convert to and from their underlying kind. A pointer and its
// element stand in for each other.
func assign(v any, rt reflect.Type) (reflect.Value, error) {
	if v == nil {
		return reflect.Zero(rt), nil
	}
	rv := reflect.ValueOf(v)
	if rv.Type() == rt {
		return rv, nil
	}
	if rv.Type().AssignableTo(rt) {
		out := reflect.New(rt).Elem()
		out.Set(rv)
		return out, nil
	}
	switch {
	case rv.Kind() == reflect.Pointer && rv.Type().Elem() == rt:
		if rv.IsNil() {
			return reflect.Zero(rt), nil
		}
		return rv.Elem(), nil
	case rt.Kind() == reflect.Pointer && rt.Elem() == rv.Type():
		p := reflect.New(rt.Elem())
		p.Elem().Set(rv)
		return p, nil
	}
	if n, ok := v.(json.Number); ok {
		if i, err := n.Int64(); err == nil {
			return assign(i, rt)
		}
		if f, err := n.Float64(); err == nil {
			return assign(f, rt)
		}
	}
	switch {
	case isInt(rv.Kind()) || isUint(rv.Kind()) || isFloat(rv.Kind()):
		if isInt(rt.Kind()) || isUint(rt.Kind()) || isFloat(rt.Kind()) {
			return convertNumber(rv, rt)
		}
	case rv.Kind() == rt.Kind() && rv.Type().ConvertibleTo(rt):
		return rv.Convert(rt), nil
	}
	return reflect.Value{}, fmt.Errorf("cannot use %v (%T) as %s", v, v, rt)
}

func convertNumber(rv reflect.Value, rt reflect.Type) (reflect.Value, error) {
	out := reflect.New(rt).Elem()
	switch {
	case isFloat(rt.Kind()):
		f, _ := toFloat64(rv.Interface())
		if out.OverflowFloat(f) {
			return reflect.Value{}, fmt.Errorf("%v overflows %s", f, rt)
		}
		out.SetFloat(f)
	case isInt(rt.Kind()):
		i, err := toInt64(rv.Interface())
		if err != nil {
			return reflect.Value{}, err
		}
		if out.OverflowInt(i) {
			return reflect.Value{}, fmt.Errorf("%d overflows %s", i, rt)
		}
		out.SetInt(i)
	default:
		i, err := toInt64(rv.Interface())
		if err != nil {
			return reflect.Value{}, err
		}
		if i < 0 || out.OverflowUint(uint64(i)) {
			return reflect.Value{}, fmt.Errorf("%d overflows %s", i, rt)
		}
		out.SetUint(uint64(i))
	}
	return out, nil
}

func toInt64(v any) (int64, error) {
	rv := reflect.ValueOf(v)
	switch {
	case rv.IsValid() && isInt(rv.Kind()):
		return rv.Int(), nil
	case rv.IsValid() && isUint(rv.Kind()):
		u := rv.Uint()
		if u > math.MaxInt64 {
			return 0, fmt.Errorf("%d overflows int64", u)
		}
		return int64(u), nil
	case rv.IsValid() && isFloat(rv.Kind()):
		f := rv.Float()
		if f != math.Trunc(f) || f >= 1<<63 || f < -1<<63 {
			return 0, fmt.Errorf("%v is not an integer", f)
		}
		return int64(f), nil
	case rv.IsValid() && rv.Kind() == reflect.String:
		return strconv.ParseInt(rv.String(), 10, 64)
	}
	if n, ok := v.(json.Number); ok {
		return n.Int64()
	}
	return 0, fmt.Errorf("%v (%T) is not an integer", v, v)
}

func toFloat64(v any) (float64, error) {
	rv := reflect.ValueOf(v)
	switch {
	case rv.IsValid() && isInt(rv.Kind()):
		return float64(rv.Int()), nil
	case rv.IsValid() && isUint(rv.Kind()):
		return float64(rv.Uint()), nil
	case rv.IsValid() && isFloat(rv.Kind()):
		return rv.Float(), nil
	}
	if n, ok := v.(json.Number); ok {
		return n.Float64()
	}
	return 0, fmt.Errorf("%v (%T) is not a number", v, v)
}

func isInt(k reflect.Kind) bool {
	return k >= reflect.Int && k <= reflect.Int64
}

func isUint(k reflect.Kind) bool {
	return k >= reflect.Uint && k <= reflect.Uintptr
}

func isFloat(k reflect.Kind) bool {
	return k == reflect.Float32 || k == reflect.Float64
}

// indirect dereferences pointers, returning nil for nil pointers.
func indirect(v any) any {
	rv := reflect.ValueOf(v)
	for rv.IsValid() && rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	if !rv.IsValid() {
		return nil
	}
	return rv.Interface()
}

// isNil reports whether v is nil or a nil pointer, slice, map, func or
// interface.
func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Slice, reflect.Map, reflect.Func, reflect.Interface, reflect.Chan:
		return rv.IsNil()
	}
	return false
}

// callValues converts args to the parameter types of fn.
func callValues(fn reflect.Type, first int, args []any) ([]reflect.Value, error) {
	in := make([]reflect.Value, len(args))
	for i, a := range args {
		v, err := assign(a, fn.In(first+i))
		if err != nil {
			return nil, fmt.Errorf("parameter %d: %w", i, err)
		}
		in[i] = v
	}
	return in, nil
}

// results splits the results of a call into value and error.
func results(out []reflect.Value, hasErr bool) (any, error) {
	if hasErr {
		if err, _ := out[1].Interface().(error); err != nil {
			return nil, err
		}
	}
	v := out[0]
	switch v.Kind() {
	case reflect.Pointer, reflect.Slice, reflect.Map, reflect.Func, reflect.Interface, reflect.Chan:
		if v.IsNil() {
			return nil, nil
		}
	}
	return v.Interface(), nil
}
