package mapping

import (
	"reflect"
	"time"

	"google.golang.org/protobuf/types/known/durationpb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/timestamppb"

	"github.com/hanpama/typegraph/internal/typeinfo"
)

type convertResolver[S, T any] struct {
	to   func(S) (T, error)
	from func(T) (S, error)
}

// Converting maps S as if it were T. to runs on output values, from on input
// values; a nil from makes S output only.
func Converting[S, T any](to func(S) (T, error), from func(T) (S, error)) Resolver {
	return &convertResolver[S, T]{to: to, from: from}
}

func (c *convertResolver[S, T]) SupportsOutput(t typeinfo.Type) bool {
	return c.to != nil && t.Reflect() == typeinfo.TypeOf[S]()
}

func (c *convertResolver[S, T]) SupportsInput(t typeinfo.Type) bool {
	return c.from != nil && t.Reflect() == typeinfo.TypeOf[S]()
}

func (c *convertResolver[S, T]) target(e *Encounter) (typeinfo.Type, bool) {
	src := typeinfo.TypeOf[S]()
	t := e.Type.Describe(typeinfo.TypeOf[T]())
	nillable := isNillableKind(src.Kind())
	if nillable {
		t = t.WithUsage(typeinfo.Marker{Kind: typeinfo.KindNullable})
	}
	return t, nillable
}

func (c *convertResolver[S, T]) ResolveOutput(e *Encounter) (Resolved, error) {
	t, nillable := c.target(e)
	inner, err := e.ctx.ResolveOutput(t)
	if err != nil {
		return Resolved{}, err
	}
	r := Of(inner.Unwrapped().Type)
	if nillable {
		r = r.Nullable()
	}
	return r.WithConversion(func(env *Env, v any) (any, error) {
		if isNil(v) {
			return nil, nil
		}
		x, err := c.to(v.(S))
		if err != nil {
			return nil, err
		}
		return inner.Convert(env, x)
	}), nil
}

func (c *convertResolver[S, T]) ResolveInput(e *Encounter) (Resolved, error) {
	t, nillable := c.target(e)
	inner, err := e.ctx.ResolveInput(t)
	if err != nil {
		return Resolved{}, err
	}
	r := Of(inner.Unwrapped().Type)
	if nillable {
		r = r.Nullable()
	}
	return r.WithConversion(func(env *Env, v any) (any, error) {
		if v == nil {
			var zero S
			return zero, nil
		}
		x, err := inner.Convert(env, v)
		if err != nil {
			return nil, err
		}
		tv, err := assign(x, typeinfo.TypeOf[T]())
		if err != nil {
			return nil, err
		}
		return c.from(tv.Interface().(T))
	}), nil
}

func isNillableKind(k reflect.Kind) bool {
	switch k {
	case reflect.Pointer, reflect.Interface, reflect.Slice, reflect.Map, reflect.Func, reflect.Chan:
		return true
	}
	return false
}

// wellKnownConversions map protobuf well-known types onto the Go types the
// builtin scalars handle.
func wellKnownConversions() []Resolver {
	return []Resolver{
		Converting(
			func(ts *timestamppb.Timestamp) (time.Time, error) { return ts.AsTime(), ts.CheckValid() },
			func(t time.Time) (*timestamppb.Timestamp, error) { return timestamppb.New(t), nil },
		),
		Converting(
			func(d *durationpb.Duration) (time.Duration, error) { return d.AsDuration(), d.CheckValid() },
			func(d time.Duration) (*durationpb.Duration, error) { return durationpb.New(d), nil },
		),
		Converting(
			func(s *structpb.Struct) (map[string]any, error) { return s.AsMap(), nil },
			structpb.NewStruct,
		),
	}
}
