package mapping

import (
	"fmt"

	"github.com/hanpama/typegraph/internal/naming"
	"github.com/hanpama/typegraph/internal/schema"
	"github.com/hanpama/typegraph/internal/typeinfo"
)

type enumBinding struct {
	byValue map[any]string
	byName  map[string]any
}

func (b *enumBinding) serialize(v any) (any, error) {
	name, ok := b.byValue[v]
	if !ok {
		return nil, fmt.Errorf("%v is not a declared enum value", v)
	}
	return name, nil
}

// enumResolver maps types carrying an enum marker. Values come from the
// declaration's constants or a Values method. Both directions share one
// schema type.
type enumResolver struct{}

func (enumResolver) SupportsOutput(t typeinfo.Type) bool { return t.Has(typeinfo.KindEnum) }
func (enumResolver) SupportsInput(t typeinfo.Type) bool  { return t.Has(typeinfo.KindEnum) }

func (r enumResolver) ResolveOutput(e *Encounter) (Resolved, error) {
	name, _, err := r.enum(e)
	if err != nil {
		return Resolved{}, err
	}
	return Named(name), nil
}

func (r enumResolver) ResolveInput(e *Encounter) (Resolved, error) {
	name, binding, err := r.enum(e)
	if err != nil {
		return Resolved{}, err
	}
	return Named(name).WithConversion(func(_ *Env, v any) (any, error) {
		if v == nil {
			return nil, nil
		}
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("enum %s expects a name, got %T", name, v)
		}
		val, ok := binding.byName[s]
		if !ok {
			return nil, fmt.Errorf("%q is not a value of enum %s", s, name)
		}
		return val, nil
	}), nil
}

func (enumResolver) enum(e *Encounter) (string, *enumBinding, error) {
	ctx := e.ctx
	name, err := ctx.TypeName(e.Type, false)
	if err != nil {
		return "", nil, err
	}
	if b, ok := ctx.runtime.enums[name]; ok {
		return name, b, nil
	}
	rt := e.Type.Reflect()
	consts := e.Type.Constants()
	if len(consts) == 0 {
		return "", nil, ctx.Errorf("enum %s declares no constants", rt)
	}
	ms := e.Type.Markers()
	typ := schema.NewType(name, schema.TypeKindEnum, ms.Value(typeinfo.KindDescription))
	values := ctx.EnumValues(typ)
	binding := &enumBinding{byValue: make(map[any]string), byName: make(map[string]any)}
	for _, c := range consts {
		rv, err := assign(c.Value, rt)
		if err != nil {
			return "", nil, ctx.ErrorAt(err, "enum constant of %s", rt)
		}
		val := rv.Interface()
		cms := e.Type.ConstantMarkers(c)
		ev := schema.NewEnumValue(naming.EnumValueName(val, cms), cms.Value(typeinfo.KindDescription))
		if mk, ok := cms.Get(typeinfo.KindDeprecated); ok {
			ev.Deprecate(mk.Value)
		}
		if _, dup := binding.byValue[val]; dup {
			return "", nil, ctx.Errorf("enum %s declares %v twice", rt, val)
		}
		if err := values.Value(ev); err != nil {
			return "", nil, err
		}
		binding.byValue[val] = ev.Name
		binding.byName[ev.Name] = val
	}
	if err := values.Done(); err != nil {
		return "", nil, err
	}
	ctx.AddType(typ)
	ctx.runtime.bindEnum(name, binding)
	return name, binding, nil
}
