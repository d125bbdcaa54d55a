package mapping

import (
	"fmt"
	"reflect"

	"github.com/hanpama/typegraph/internal/typeinfo"
)

type invoker func(env *Env, src any) (any, error)

// factoryResolver maps a factory's source type by converting values with
// the factory and mapping its output type.
type factoryResolver struct {
	f   typeinfo.Factory
	inv invoker
}

func (r *factoryResolver) SupportsOutput(t typeinfo.Type) bool { return t.Reflect() == r.f.Input }

func (r *factoryResolver) String() string { return r.f.String() }

func (r *factoryResolver) invoker(c *Context) (invoker, error) {
	if r.inv != nil {
		return r.inv, nil
	}
	suppliers := make([]Supplier, len(r.f.Params))
	for i, p := range r.f.Params {
		if i == r.f.Source {
			continue
		}
		s, err := c.paramSupplier(nil, p)
		if err != nil {
			return nil, err
		}
		suppliers[i] = s
	}
	f := r.f
	trail := c.trail
	r.inv = func(env *Env, src any) (out any, err error) {
		defer func() {
			if p := recover(); p != nil {
				out, err = nil, &MappingError{Message: fmt.Sprintf("%s panicked: %v", f, p), Trail: trail}
			}
		}()
		args := make([]any, len(f.Params))
		for i, s := range suppliers {
			if i == f.Source {
				args[i] = src
				continue
			}
			if args[i], err = s(env); err != nil {
				return nil, &MappingError{Message: fmt.Sprintf("%s parameter %d", f, i), Trail: trail, Cause: err}
			}
		}
		in, err := callValues(f.Func.Type(), 0, args)
		if err != nil {
			return nil, &MappingError{Message: fmt.Sprintf("%s arguments", f), Trail: trail, Cause: err}
		}
		v, err := results(f.Func.Call(in), f.HasErr)
		if err != nil {
			return nil, &MappingError{Message: fmt.Sprintf("%s failed", f), Trail: trail, Cause: err}
		}
		return v, nil
	}
	return r.inv, nil
}

func (r *factoryResolver) output(c *Context) (Resolved, error) {
	out, err := c.ResolveOutput(c.Describe(r.f.Output).WithUsage(typeinfo.Marker{Kind: typeinfo.KindNullable}))
	if err != nil {
		return Resolved{}, err
	}
	return out.Unwrapped(), nil
}

func (r *factoryResolver) ResolveOutput(e *Encounter) (Resolved, error) {
	ctx := e.ctx
	var (
		inv invoker
		out Resolved
	)
	err := ctx.Breadcrumb(Crumb(r.f.String()), func() error {
		var err error
		if inv, err = r.invoker(ctx); err != nil {
			return err
		}
		out, err = r.output(ctx)
		return err
	})
	if err != nil {
		return Resolved{}, err
	}
	res := Of(out.Type)
	if isNillableKind(r.f.Input.Kind()) {
		res = res.Nullable()
	}
	return res.WithConversion(func(env *Env, v any) (any, error) {
		if isNil(v) {
			return nil, nil
		}
		x, err := inv(env, v)
		if err != nil || x == nil {
			return nil, err
		}
		return out.Convert(env, x)
	}), nil
}

// abstractConversion maps a supertype shared by the sources of several
// factories whose outputs implement one interface or union. Values are
// routed to the factory accepting their dynamic type.
type abstractConversion struct {
	super     reflect.Type
	target    reflect.Type
	factories []*factoryResolver
}

func (a *abstractConversion) SupportsOutput(t typeinfo.Type) bool { return t.Reflect() == a.super }

func (a *abstractConversion) String() string {
	return fmt.Sprintf("conversion of %s to %s", a.super, a.target)
}

type branch struct {
	input reflect.Type
	inv   invoker
	out   Resolved
}

func (a *abstractConversion) ResolveOutput(e *Encounter) (Resolved, error) {
	ctx := e.ctx
	abs, err := ctx.ResolveOutput(ctx.Describe(a.target).WithUsage(typeinfo.Marker{Kind: typeinfo.KindNullable}))
	if err != nil {
		return Resolved{}, err
	}
	branches := make([]branch, 0, len(a.factories))
	for _, fr := range a.factories {
		err := ctx.Breadcrumb(Crumb(fr.f.String()), func() error {
			inv, err := fr.invoker(ctx)
			if err != nil {
				return err
			}
			out, err := fr.output(ctx)
			if err != nil {
				return err
			}
			branches = append(branches, branch{input: fr.f.Input, inv: inv, out: out})
			return nil
		})
		if err != nil {
			return Resolved{}, err
		}
	}
	target := a.target
	return Of(abs.Unwrapped().Type).Nullable().WithConversion(func(env *Env, v any) (any, error) {
		if isNil(v) {
			return nil, nil
		}
		b, src, ok := pickBranch(branches, reflect.ValueOf(v))
		if !ok {
			dt := reflect.TypeOf(v)
			if dt.Implements(target) {
				return v, nil
			}
			return nil, fmt.Errorf("no factory converts %s to %s", dt, target)
		}
		x, err := b.inv(env, src)
		if err != nil || x == nil {
			return nil, err
		}
		return b.out.Convert(env, x)
	}), nil
}

// pickBranch chooses the branch for the dynamic value rv and the value to
// pass as its source. The exact type wins, then its pointer or value form,
// then the nearest embedded struct, then the most derived interface rv
// implements.
func pickBranch(branches []branch, rv reflect.Value) (branch, any, bool) {
	if b, src, ok := pickForm(branches, rv); ok {
		return b, src, true
	}
	if b, src, ok := pickEmbedded(branches, rv); ok {
		return b, src, true
	}
	var best *branch
	for i := range branches {
		b := &branches[i]
		if b.input.Kind() != reflect.Interface || !rv.Type().Implements(b.input) {
			continue
		}
		if best == nil || (b.input.Implements(best.input) && !best.input.Implements(b.input)) {
			best = b
		}
	}
	if best == nil {
		return branch{}, nil, false
	}
	return *best, rv.Interface(), true
}

// pickForm matches the type of rv exactly, then its pointer or value form.
func pickForm(branches []branch, rv reflect.Value) (branch, any, bool) {
	dt := rv.Type()
	for _, b := range branches {
		if b.input == dt {
			return b, rv.Interface(), true
		}
	}
	for _, b := range branches {
		switch {
		case dt.Kind() == reflect.Pointer && b.input == dt.Elem():
			if rv.IsNil() {
				continue
			}
			return b, rv.Elem().Interface(), true
		case b.input == reflect.PointerTo(dt):
			if rv.CanAddr() {
				return b, rv.Addr().Interface(), true
			}
			p := reflect.New(dt)
			p.Elem().Set(rv)
			return b, p.Interface(), true
		}
	}
	return branch{}, nil, false
}

// pickEmbedded walks the exported embedded structs of rv breadth-first.
func pickEmbedded(branches []branch, rv reflect.Value) (branch, any, bool) {
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return branch{}, nil, false
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return branch{}, nil, false
	}
	level := []reflect.Value{rv}
	seen := map[reflect.Type]bool{rv.Type(): true}
	for len(level) > 0 {
		var next []reflect.Value
		for _, sv := range level {
			for i := 0; i < sv.NumField(); i++ {
				if f := sv.Type().Field(i); !f.Anonymous || !f.IsExported() {
					continue
				}
				fv := sv.Field(i)
				if fv.Kind() == reflect.Pointer {
					if fv.IsNil() {
						continue
					}
					fv = fv.Elem()
				}
				if fv.Kind() != reflect.Struct || seen[fv.Type()] {
					continue
				}
				seen[fv.Type()] = true
				if b, src, ok := pickForm(branches, fv); ok {
					return b, src, true
				}
				next = append(next, fv)
			}
		}
		level = next
	}
	return branch{}, nil, false
}

// discoverConversions registers an abstractConversion for every supertype
// shared by the sources of the factories producing implementors of a
// declared interface or union.
func discoverConversions(u *typeinfo.Universe, factories []*factoryResolver) []*abstractConversion {
	var out []*abstractConversion
	for _, rt := range u.Declared() {
		if rt.Kind() != reflect.Interface {
			continue
		}
		target := u.Describe(rt)
		if !target.Has(typeinfo.KindInterface) && !target.Has(typeinfo.KindUnion) {
			continue
		}
		var matching []*factoryResolver
		for _, fr := range factories {
			if fr.f.Output == rt || u.Describe(fr.f.Output).Implements(target) {
				matching = append(matching, fr)
			}
		}
		if len(matching) == 0 {
			continue
		}
		for _, super := range sharedSupertypes(u, matching) {
			if super == rt || super.Kind() != reflect.Interface {
				continue
			}
			if st := u.Describe(super); st.Has(typeinfo.KindInterface) || st.Has(typeinfo.KindUnion) {
				continue
			}
			out = append(out, &abstractConversion{super: super, target: rt, factories: matching})
		}
	}
	return out
}

// sharedSupertypes intersects the supertypes of the factories' sources,
// keeping the order of the first.
func sharedSupertypes(u *typeinfo.Universe, fs []*factoryResolver) []reflect.Type {
	var shared []reflect.Type
	for i, fr := range fs {
		var sup []reflect.Type
		for _, s := range u.Describe(fr.f.Input).Supertypes() {
			sup = append(sup, s.Reflect())
		}
		if i == 0 {
			shared = sup
			continue
		}
		set := make(map[reflect.Type]bool, len(sup))
		for _, s := range sup {
			set[s] = true
		}
		kept := shared[:0]
		for _, s := range shared {
			if set[s] {
				kept = append(kept, s)
			}
		}
		shared = kept
	}
	return shared
}
