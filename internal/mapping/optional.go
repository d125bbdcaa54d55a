package mapping

import (
	"database/sql"
	"reflect"
	"strings"

	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/hanpama/typegraph/internal/optional"
	"github.com/hanpama/typegraph/internal/typeinfo"
)

// elemMapping resolves the wrapped type of an optional wrapper with the
// wrapper's own nullability.
func elemMapping(e *Encounter, elem reflect.Type) (Resolved, error) {
	t := e.Type.Describe(elem).WithUsage(typeinfo.Marker{Kind: typeinfo.KindNullable})
	var (
		r   Resolved
		err error
	)
	if e.Input {
		r, err = e.ctx.ResolveInput(t)
	} else {
		r, err = e.ctx.ResolveOutput(t)
	}
	if err != nil {
		return Resolved{}, err
	}
	return r.Unwrapped(), nil
}

// pointerResolver maps *T as a nullable T.
type pointerResolver struct{}

func (pointerResolver) SupportsOutput(t typeinfo.Type) bool { return t.Reflect().Kind() == reflect.Pointer }
func (pointerResolver) SupportsInput(t typeinfo.Type) bool  { return t.Reflect().Kind() == reflect.Pointer }

func (pointerResolver) ResolveOutput(e *Encounter) (Resolved, error) {
	inner, err := elemMapping(e, e.Type.Reflect().Elem())
	if err != nil {
		return Resolved{}, err
	}
	r := Of(inner.Type).Nullable()
	if inner.IsIdentity() {
		return r, nil
	}
	return r.WithConversion(func(env *Env, v any) (any, error) {
		v = indirect(v)
		if v == nil {
			return nil, nil
		}
		return inner.Convert(env, v)
	}), nil
}

func (pointerResolver) ResolveInput(e *Encounter) (Resolved, error) {
	rt := e.Type.Reflect()
	inner, err := elemMapping(e, rt.Elem())
	if err != nil {
		return Resolved{}, err
	}
	return Of(inner.Type).Nullable().WithConversion(func(env *Env, v any) (any, error) {
		if v == nil {
			return reflect.Zero(rt).Interface(), nil
		}
		x, err := inner.Convert(env, v)
		if err != nil {
			return nil, err
		}
		ev, err := assign(x, rt.Elem())
		if err != nil {
			return nil, err
		}
		p := reflect.New(rt.Elem())
		p.Elem().Set(ev)
		return p.Interface(), nil
	}), nil
}

// optionalResolver maps optional.Value[T]. As an argument, omission, null
// and a value produce distinct states.
type optionalResolver struct{}

func (optionalResolver) SupportsOutput(t typeinfo.Type) bool { return optional.Is(t.Reflect()) }
func (optionalResolver) SupportsInput(t typeinfo.Type) bool  { return optional.Is(t.Reflect()) }

func optionalElem(rt reflect.Type) reflect.Type {
	return reflect.Zero(rt).Interface().(optional.Wrapper).Elem()
}

func (optionalResolver) ResolveOutput(e *Encounter) (Resolved, error) {
	inner, err := elemMapping(e, optionalElem(e.Type.Reflect()))
	if err != nil {
		return Resolved{}, err
	}
	return Of(inner.Type).Nullable().WithConversion(func(env *Env, v any) (any, error) {
		w, ok := v.(optional.Wrapper)
		if !ok {
			return nil, nil
		}
		x := w.Unwrap()
		if x == nil {
			return nil, nil
		}
		return inner.Convert(env, x)
	}), nil
}

func (optionalResolver) ResolveInput(e *Encounter) (Resolved, error) {
	rt := e.Type.Reflect()
	elem := optionalElem(rt)
	inner, err := elemMapping(e, elem)
	if err != nil {
		return Resolved{}, err
	}
	return Of(inner.Type).Nullable().
		WithConversion(func(env *Env, v any) (any, error) {
			if v == nil {
				return optional.Make(rt, nil, false), nil
			}
			x, err := inner.Convert(env, v)
			if err != nil {
				return nil, err
			}
			ev, err := assign(x, elem)
			if err != nil {
				return nil, err
			}
			return optional.Make(rt, ev.Interface(), false), nil
		}).
		WithDefault(func(*Env) (any, error) {
			return optional.Make(rt, nil, true), nil
		}), nil
}

var nullStructs = map[reflect.Type]string{
	reflect.TypeOf(sql.NullString{}):  "String",
	reflect.TypeOf(sql.NullInt64{}):   "Int64",
	reflect.TypeOf(sql.NullInt32{}):   "Int32",
	reflect.TypeOf(sql.NullInt16{}):   "Int16",
	reflect.TypeOf(sql.NullByte{}):    "Byte",
	reflect.TypeOf(sql.NullFloat64{}): "Float64",
	reflect.TypeOf(sql.NullBool{}):    "Bool",
	reflect.TypeOf(sql.NullTime{}):    "Time",
}

// nullStructField returns the value field of sql.Null[T] and the
// specialized sql.Null* types.
func nullStructField(rt reflect.Type) (reflect.StructField, bool) {
	if rt.Kind() != reflect.Struct || rt.PkgPath() != "database/sql" {
		return reflect.StructField{}, false
	}
	name, ok := nullStructs[rt]
	if !ok {
		if !strings.HasPrefix(rt.Name(), "Null[") {
			return reflect.StructField{}, false
		}
		name = "V"
	}
	if _, ok := rt.FieldByName("Valid"); !ok {
		return reflect.StructField{}, false
	}
	return rt.FieldByName(name)
}

// nullStructResolver maps database/sql null wrappers. Omission and null both
// produce the invalid state.
type nullStructResolver struct{}

func (nullStructResolver) SupportsOutput(t typeinfo.Type) bool {
	_, ok := nullStructField(t.Reflect())
	return ok
}

func (r nullStructResolver) SupportsInput(t typeinfo.Type) bool { return r.SupportsOutput(t) }

func (nullStructResolver) ResolveOutput(e *Encounter) (Resolved, error) {
	f, _ := nullStructField(e.Type.Reflect())
	inner, err := elemMapping(e, f.Type)
	if err != nil {
		return Resolved{}, err
	}
	return Of(inner.Type).Nullable().WithConversion(func(env *Env, v any) (any, error) {
		v = indirect(v)
		if v == nil {
			return nil, nil
		}
		rv := reflect.ValueOf(v)
		if !rv.FieldByName("Valid").Bool() {
			return nil, nil
		}
		return inner.Convert(env, rv.FieldByIndex(f.Index).Interface())
	}), nil
}

func (nullStructResolver) ResolveInput(e *Encounter) (Resolved, error) {
	rt := e.Type.Reflect()
	f, _ := nullStructField(rt)
	inner, err := elemMapping(e, f.Type)
	if err != nil {
		return Resolved{}, err
	}
	return Of(inner.Type).Nullable().WithConversion(func(env *Env, v any) (any, error) {
		out := reflect.New(rt).Elem()
		if v == nil {
			return out.Interface(), nil
		}
		x, err := inner.Convert(env, v)
		if err != nil {
			return nil, err
		}
		ev, err := assign(x, f.Type)
		if err != nil {
			return nil, err
		}
		out.FieldByIndex(f.Index).Set(ev)
		out.FieldByName("Valid").SetBool(true)
		return out.Interface(), nil
	}).WithDefault(func(*Env) (any, error) {
		return reflect.Zero(rt).Interface(), nil
	}), nil
}

var wrapperMessages = map[reflect.Type]bool{
	reflect.TypeOf(&wrapperspb.StringValue{}): true,
	reflect.TypeOf(&wrapperspb.BoolValue{}):   true,
	reflect.TypeOf(&wrapperspb.Int32Value{}):  true,
	reflect.TypeOf(&wrapperspb.Int64Value{}):  true,
	reflect.TypeOf(&wrapperspb.UInt32Value{}): true,
	reflect.TypeOf(&wrapperspb.UInt64Value{}): true,
	reflect.TypeOf(&wrapperspb.FloatValue{}):  true,
	reflect.TypeOf(&wrapperspb.DoubleValue{}): true,
	reflect.TypeOf(&wrapperspb.BytesValue{}):  true,
}

// wrapperResolver maps the protobuf well-known wrapper messages as nullable
// values of their wrapped type.
type wrapperResolver struct{}

func (wrapperResolver) SupportsOutput(t typeinfo.Type) bool { return wrapperMessages[t.Reflect()] }
func (wrapperResolver) SupportsInput(t typeinfo.Type) bool  { return wrapperMessages[t.Reflect()] }

func wrapperField(rt reflect.Type) reflect.StructField {
	f, _ := rt.Elem().FieldByName("Value")
	return f
}

func (wrapperResolver) ResolveOutput(e *Encounter) (Resolved, error) {
	f := wrapperField(e.Type.Reflect())
	inner, err := elemMapping(e, f.Type)
	if err != nil {
		return Resolved{}, err
	}
	return Of(inner.Type).Nullable().WithConversion(func(env *Env, v any) (any, error) {
		if isNil(v) {
			return nil, nil
		}
		return inner.Convert(env, reflect.ValueOf(v).Elem().FieldByIndex(f.Index).Interface())
	}), nil
}

func (wrapperResolver) ResolveInput(e *Encounter) (Resolved, error) {
	rt := e.Type.Reflect()
	f := wrapperField(rt)
	inner, err := elemMapping(e, f.Type)
	if err != nil {
		return Resolved{}, err
	}
	return Of(inner.Type).Nullable().WithConversion(func(env *Env, v any) (any, error) {
		if v == nil {
			return reflect.Zero(rt).Interface(), nil
		}
		x, err := inner.Convert(env, v)
		if err != nil {
			return nil, err
		}
		ev, err := assign(x, f.Type)
		if err != nil {
			return nil, err
		}
		p := reflect.New(rt.Elem())
		p.Elem().FieldByIndex(f.Index).Set(ev)
		return p.Interface(), nil
	}), nil
}
