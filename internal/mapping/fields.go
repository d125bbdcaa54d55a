package mapping

import (
	"fmt"
	"reflect"

	"github.com/hanpama/typegraph/internal/naming"
	"github.com/hanpama/typegraph/internal/typeinfo"
)

// receiver supplies the value a member is read from.
type receiver func(env *Env) (any, error)

func sourceReceiver(env *Env) (any, error) { return env.Source, nil }

func fixedReceiver(v any) receiver {
	return func(*Env) (any, error) { return v, nil }
}

// mixin contributes a method of root as a field of the type named by the
// method's @source parameter.
type mixin struct {
	root   any
	member typeinfo.Member
}

// memberField maps one marked struct field or method to a schema field.
func (c *Context) memberField(b *TypeBuilder, m typeinfo.Member, recv receiver) error {
	return c.Breadcrumb(MemberCrumb(m), func() error {
		if !m.Exported {
			return c.Errorf("%s must be exported to back a field", m)
		}
		if m.IsMethod && m.Out == nil {
			return c.Errorf("%s is declared but the type has no such method", m)
		}
		f := b.Field(naming.MemberName(m.Name, m.Markers)).WithMarkers(m.Markers)
		f.Description(m.Markers.Value(typeinfo.KindDescription))
		if mk, ok := m.Markers.Get(typeinfo.KindDeprecated); ok {
			f.Deprecate(mk.Value)
		}
		f.Async(m.Markers.Has(typeinfo.KindAsync))

		if !m.IsMethod {
			r, err := c.ResolveOutput(c.UsageType(m.Field, m.Markers))
			if err != nil {
				return err
			}
			index := m.Index
			f.Type(r.Type).SetSupplier(func(env *Env) (any, error) {
				src, err := recv(env)
				if err != nil {
					return nil, err
				}
				v, ok := fieldByIndex(src, index)
				if !ok {
					return nil, nil
				}
				return r.Convert(env, v)
			})
			return f.Done()
		}

		rt, hasErr, err := m.Result()
		if err != nil {
			return c.Wrap(err)
		}
		params, err := m.Params(c.universe)
		if err != nil {
			return c.Wrap(err)
		}
		r, err := c.ResolveOutput(c.UsageType(rt, m.Markers))
		if err != nil {
			return err
		}
		suppliers := make([]Supplier, len(params))
		for i, p := range params {
			if suppliers[i], err = c.paramSupplier(f, p); err != nil {
				return err
			}
		}
		name := m.Name
		f.Type(r.Type).SetSupplier(func(env *Env) (any, error) {
			src, err := recv(env)
			if err != nil {
				return nil, err
			}
			fn, err := methodValue(src, name)
			if err != nil {
				return nil, err
			}
			args := make([]any, len(suppliers))
			for i, s := range suppliers {
				if args[i], err = s(env); err != nil {
					return nil, err
				}
			}
			in, err := callValues(fn.Type(), 0, args)
			if err != nil {
				return nil, err
			}
			v, err := results(fn.Call(in), hasErr)
			if err != nil {
				return nil, err
			}
			return r.Convert(env, v)
		})
		return f.Done()
	})
}

// paramSupplier resolves how a parameter is filled at invocation time. f is
// nil for factory parameters, which cannot declare arguments.
func (c *Context) paramSupplier(f *FieldBuilder, p typeinfo.Param) (Supplier, error) {
	var s Supplier
	err := c.Breadcrumb(ParamCrumb(p), func() error {
		var err error
		s, err = c.resolveParam(f, p)
		return err
	})
	return s, err
}

func (c *Context) resolveParam(f *FieldBuilder, p typeinfo.Param) (Supplier, error) {
	switch {
	case p.Markers.Has(typeinfo.KindContext):
		return func(env *Env) (any, error) { return env.Ctx(), nil }, nil
	case p.Markers.Has(typeinfo.KindEnv):
		return func(env *Env) (any, error) { return env, nil }, nil
	case p.Markers.Has(typeinfo.KindSource):
		return func(env *Env) (any, error) { return env.Source, nil }, nil
	}
	for _, pr := range c.params {
		if pr.SupportsParameter(p) {
			s, err := pr.ResolveParameter(c, p)
			return s, c.Wrap(err)
		}
	}
	if name := p.Markers.Value(typeinfo.KindArgument); name != "" {
		if f == nil {
			return nil, c.Errorf("%s names argument %q but only fields take arguments", p, name)
		}
		r, err := c.ResolveInput(c.UsageType(p.Type, p.Markers))
		if err != nil {
			return nil, err
		}
		if err := f.Argument(name).Type(r.Type).Done(); err != nil {
			return nil, err
		}
		return func(env *Env) (any, error) {
			raw, ok := env.Args[name]
			if !ok {
				return r.Default(env)
			}
			v, err := r.Convert(env, raw)
			if err != nil {
				return nil, fmt.Errorf("argument %q: %w", name, err)
			}
			return v, nil
		}, nil
	}
	if len(p.Markers) > 0 {
		return nil, c.Errorf("no parameter resolver handles @%s on %s", p.Markers[0].Kind, p)
	}
	if f == nil && c.instances != nil {
		if sup, ok := c.instances.Supplier(p.Type, p.Markers); ok {
			return func(*Env) (any, error) { return sup() }, nil
		}
	}
	return nil, c.Errorf("%s has no name; list it in the args tag", p)
}

// methodValue binds the named method to src, addressing src when the
// method has a pointer receiver.
func methodValue(src any, name string) (reflect.Value, error) {
	v := reflect.ValueOf(src)
	if !v.IsValid() || (v.Kind() == reflect.Pointer && v.IsNil()) {
		return reflect.Value{}, fmt.Errorf("cannot call %s on a nil value", name)
	}
	if m := v.MethodByName(name); m.IsValid() {
		return m, nil
	}
	if v.Kind() != reflect.Pointer {
		p := reflect.New(v.Type())
		p.Elem().Set(v)
		if m := p.MethodByName(name); m.IsValid() {
			return m, nil
		}
	}
	return reflect.Value{}, fmt.Errorf("%s has no method %s", v.Type(), name)
}

// fieldByIndex reads a possibly promoted struct field, reporting false when
// src or an embedded pointer on the way is nil.
func fieldByIndex(src any, index []int) (any, bool) {
	v := reflect.ValueOf(src)
	for v.IsValid() && (v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface) {
		if v.IsNil() {
			return nil, false
		}
		v = v.Elem()
	}
	if !v.IsValid() || v.Kind() != reflect.Struct {
		return nil, false
	}
	fv, err := v.FieldByIndexErr(index)
	if err != nil {
		return nil, false
	}
	return fv.Interface(), true
}
