package mapping

import (
	"fmt"
	"reflect"

	"github.com/hanpama/typegraph/internal/naming"
	"github.com/hanpama/typegraph/internal/schema"
	"github.com/hanpama/typegraph/internal/typeinfo"
)

// inputResolver maps structs carrying an input or object marker to input
// object types. Coerced values are validated with the struct's validate
// tags.
type inputResolver struct{}

func (inputResolver) SupportsInput(t typeinfo.Type) bool {
	return t.Reflect().Kind() == reflect.Struct && (t.Has(typeinfo.KindInput) || t.Has(typeinfo.KindObject))
}

type inputField struct {
	name  string
	index []int
	typ   reflect.Type
	r     Resolved
}

func (inputResolver) ResolveInput(e *Encounter) (Resolved, error) {
	ctx := e.ctx
	rt := e.Type.Reflect()
	typ, self, err := e.Shell(schema.TypeKindInputObject, e.Type.Markers().Value(typeinfo.KindDescription))
	if err != nil {
		return Resolved{}, err
	}
	b := ctx.InputFields(typ)
	var fields []inputField
	for _, m := range e.Type.Members() {
		if m.IsMethod || !m.Markers.Has(typeinfo.KindField) {
			continue
		}
		err := ctx.Breadcrumb(MemberCrumb(m), func() error {
			if m.Markers.Has(typeinfo.KindReadOnly) {
				return ctx.Errorf("%s is read-only and cannot be part of input type %s", m, typ.Name)
			}
			if !m.Exported {
				return ctx.Errorf("%s must be exported to be part of input type %s", m, typ.Name)
			}
			r, err := ctx.ResolveInput(ctx.UsageType(m.Field, m.Markers))
			if err != nil {
				return err
			}
			name := naming.MemberName(m.Name, m.Markers)
			a := b.Field(name).Type(r.Type).Description(m.Markers.Value(typeinfo.KindDescription))
			if mk, ok := m.Markers.Get(typeinfo.KindDeprecated); ok && !r.Type.IsNonNull() {
				a.Deprecate(mk.Value)
			}
			if err := a.Done(); err != nil {
				return err
			}
			fields = append(fields, inputField{name: name, index: m.Index, typ: m.Field, r: r})
			return nil
		})
		if err != nil {
			return Resolved{}, err
		}
	}
	if err := b.Done(); err != nil {
		return Resolved{}, err
	}

	validate := hasValidateTags(rt, map[reflect.Type]bool{})
	v := ctx.validate
	name := typ.Name
	return self.WithConversion(func(env *Env, raw any) (any, error) {
		out := reflect.New(rt).Elem()
		if raw == nil {
			return out.Interface(), nil
		}
		values, ok := raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%s expects an object, got %T", name, raw)
		}
		for _, f := range fields {
			x, present := values[f.name]
			var err error
			if present {
				x, err = f.r.Convert(env, x)
			} else {
				x, err = f.r.Default(env)
			}
			if err != nil {
				return nil, fmt.Errorf("%s.%s: %w", name, f.name, err)
			}
			if x == nil && !present {
				continue
			}
			fv, err := assign(x, f.typ)
			if err != nil {
				return nil, fmt.Errorf("%s.%s: %w", name, f.name, err)
			}
			settable(out, f.index).Set(fv)
		}
		if validate {
			if err := v.StructCtx(env.Ctx(), out.Interface()); err != nil {
				return nil, &InputError{Type: name, Cause: err}
			}
		}
		return out.Interface(), nil
	}), nil
}

// settable walks index from v, allocating nil embedded pointers.
func settable(v reflect.Value, index []int) reflect.Value {
	for i, x := range index {
		if i > 0 && v.Kind() == reflect.Pointer {
			if v.IsNil() {
				v.Set(reflect.New(v.Type().Elem()))
			}
			v = v.Elem()
		}
		v = v.Field(x)
	}
	return v
}

func hasValidateTags(rt reflect.Type, seen map[reflect.Type]bool) bool {
	for rt.Kind() == reflect.Pointer {
		rt = rt.Elem()
	}
	if rt.Kind() != reflect.Struct || seen[rt] {
		return false
	}
	seen[rt] = true
	for i := 0; i < rt.NumField(); i++ {
		f := rt.Field(i)
		if _, ok := f.Tag.Lookup("validate"); ok {
			return true
		}
		if f.Anonymous && hasValidateTags(f.Type, seen) {
			return true
		}
	}
	return false
}
