package mapping

import (
	"fmt"
	"reflect"

	"github.com/hanpama/typegraph/internal/schema"
	"github.com/hanpama/typegraph/internal/typeinfo"
)

// listResolver maps slices and arrays in both directions and single-value
// iterators (iter.Seq) as output.
type listResolver struct{}

func (listResolver) SupportsOutput(t typeinfo.Type) bool {
	switch t.Reflect().Kind() {
	case reflect.Slice, reflect.Array:
		return true
	}
	_, ok := seqElem(t.Reflect())
	return ok
}

func (listResolver) SupportsInput(t typeinfo.Type) bool {
	switch t.Reflect().Kind() {
	case reflect.Slice, reflect.Array:
		return true
	}
	return false
}

func (listResolver) ResolveOutput(e *Encounter) (Resolved, error) {
	rt := e.Type.Reflect()
	if elem, ok := seqElem(rt); ok {
		inner, err := e.ctx.ResolveOutput(e.Type.Describe(elem))
		if err != nil {
			return Resolved{}, err
		}
		return Of(schema.ListType(inner.Type)).WithConversion(func(env *Env, v any) (any, error) {
			if isNil(v) {
				return nil, nil
			}
			return collectSeq(env, reflect.ValueOf(v), inner)
		}), nil
	}

	inner, err := e.ctx.ResolveOutput(e.Type.Elem())
	if err != nil {
		return Resolved{}, err
	}
	r := Of(schema.ListType(inner.Type))
	if inner.IsIdentity() && rt.Kind() == reflect.Slice {
		return r, nil
	}
	return r.WithConversion(func(env *Env, v any) (any, error) {
		if isNil(v) {
			return nil, nil
		}
		rv := reflect.ValueOf(v)
		out := make([]any, rv.Len())
		for i := range out {
			item, err := inner.Convert(env, rv.Index(i).Interface())
			if err != nil {
				return nil, fmt.Errorf("item %d: %w", i, err)
			}
			out[i] = item
		}
		return out, nil
	}), nil
}

func (listResolver) ResolveInput(e *Encounter) (Resolved, error) {
	rt := e.Type.Reflect()
	inner, err := e.ctx.ResolveInput(e.Type.Elem())
	if err != nil {
		return Resolved{}, err
	}
	return Of(schema.ListType(inner.Type)).WithConversion(func(env *Env, v any) (any, error) {
		if v == nil {
			return reflect.Zero(rt).Interface(), nil
		}
		items, ok := v.([]any)
		if !ok {
			items = []any{v}
		}
		var out reflect.Value
		if rt.Kind() == reflect.Array {
			if len(items) > rt.Len() {
				return nil, fmt.Errorf("at most %d items are accepted, got %d", rt.Len(), len(items))
			}
			out = reflect.New(rt).Elem()
		} else {
			out = reflect.MakeSlice(rt, len(items), len(items))
		}
		for i, raw := range items {
			item, err := inner.Convert(env, raw)
			if err != nil {
				return nil, fmt.Errorf("item %d: %w", i, err)
			}
			iv, err := assign(item, rt.Elem())
			if err != nil {
				return nil, fmt.Errorf("item %d: %w", i, err)
			}
			out.Index(i).Set(iv)
		}
		return out.Interface(), nil
	}), nil
}

// seqElem returns V for func(yield func(V) bool).
func seqElem(rt reflect.Type) (reflect.Type, bool) {
	if rt.Kind() != reflect.Func || rt.NumIn() != 1 || rt.NumOut() != 0 {
		return nil, false
	}
	yield := rt.In(0)
	if yield.Kind() != reflect.Func || yield.NumIn() != 1 || yield.NumOut() != 1 || yield.Out(0).Kind() != reflect.Bool {
		return nil, false
	}
	return yield.In(0), true
}

func collectSeq(env *Env, seq reflect.Value, inner Resolved) ([]any, error) {
	var (
		out     []any
		callErr error
	)
	yieldType := seq.Type().In(0)
	yield := reflect.MakeFunc(yieldType, func(args []reflect.Value) []reflect.Value {
		item, err := inner.Convert(env, args[0].Interface())
		if err != nil {
			callErr = fmt.Errorf("item %d: %w", len(out), err)
			return []reflect.Value{reflect.ValueOf(false).Convert(yieldType.Out(0))}
		}
		out = append(out, item)
		return []reflect.Value{reflect.ValueOf(env.Ctx().Err() == nil).Convert(yieldType.Out(0))}
	})
	seq.Call([]reflect.Value{yield})
	if callErr != nil {
		return nil, callErr
	}
	if err := env.Ctx().Err(); err != nil {
		return nil, err
	}
	if out == nil {
		out = []any{}
	}
	return out, nil
}
