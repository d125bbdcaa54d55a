package mapping

import (
	"reflect"

	"github.com/hanpama/typegraph/internal/schema"
	"github.com/hanpama/typegraph/internal/typeinfo"
)

// objectResolver maps structs carrying an object marker. Marked fields and
// methods become fields; mixins contribute more. The object is linked to
// every marked interface and union its Go type implements.
type objectResolver struct{}

func (objectResolver) SupportsOutput(t typeinfo.Type) bool {
	return t.Reflect().Kind() == reflect.Struct && t.Has(typeinfo.KindObject)
}

func (objectResolver) ResolveOutput(e *Encounter) (Resolved, error) {
	ctx := e.ctx
	typ, self, err := e.Shell(schema.TypeKindObject, e.Type.Markers().Value(typeinfo.KindDescription))
	if err != nil {
		return Resolved{}, err
	}
	ctx.Discover(e.Type)
	ctx.runtime.bindObject(typ.Name, e.Type.Reflect())

	b := ctx.Fields(typ)
	recv := objectReceiver(e.Type.Reflect())
	for _, m := range e.Type.Members() {
		if !m.Markers.Has(typeinfo.KindField) {
			continue
		}
		if err := ctx.memberField(b, m, recv); err != nil {
			return Resolved{}, err
		}
	}
	for _, mx := range ctx.mixins[e.Type.Reflect()] {
		if err := ctx.memberField(b, mx.member, fixedReceiver(mx.root)); err != nil {
			return Resolved{}, err
		}
	}
	if len(typ.Fields) == 0 {
		return Resolved{}, ctx.Errorf("object %s has no fields", typ.Name)
	}
	if err := ctx.linkAbstracts(e.Type, typ); err != nil {
		return Resolved{}, err
	}
	return self.WithConversion(nil), nil
}

// objectReceiver narrows a source whose type embeds rt, as accepted by
// Runtime.ResolveType, to the embedded rt value.
func objectReceiver(rt reflect.Type) receiver {
	return func(env *Env) (any, error) {
		src := env.Source
		v := reflect.ValueOf(src)
		for v.IsValid() && v.Kind() == reflect.Pointer && !v.IsNil() {
			if v.Elem().Type() == rt {
				return src, nil
			}
			v = v.Elem()
		}
		if !v.IsValid() || v.Type() == rt || v.Kind() != reflect.Struct {
			return src, nil
		}
		if inner, ok := embeddedValue(v, rt); ok {
			return inner.Interface(), nil
		}
		return src, nil
	}
}

func embeddedValue(v reflect.Value, rt reflect.Type) (reflect.Value, bool) {
	level := []reflect.Value{v}
	for len(level) > 0 {
		var next []reflect.Value
		for _, cur := range level {
			for i := 0; i < cur.NumField(); i++ {
				if !cur.Type().Field(i).Anonymous {
					continue
				}
				f := cur.Field(i)
				if f.Kind() == reflect.Pointer {
					if f.IsNil() {
						continue
					}
					f = f.Elem()
				}
				if f.Kind() != reflect.Struct {
					continue
				}
				if f.Type() == rt {
					return f, true
				}
				next = append(next, f)
			}
		}
		level = next
	}
	return reflect.Value{}, false
}

// linkAbstracts links typ to the declared interfaces and unions t
// implements, mapping them when needed.
func (c *Context) linkAbstracts(t typeinfo.Type, typ *schema.Type) error {
	for _, rt := range c.universe.Declared() {
		if rt.Kind() != reflect.Interface || rt == t.Reflect() {
			continue
		}
		abs := c.Describe(rt)
		if !abs.Has(typeinfo.KindInterface) && !abs.Has(typeinfo.KindUnion) {
			continue
		}
		if !t.Implements(abs) {
			continue
		}
		r, err := c.ResolveOutput(abs)
		if err != nil {
			return err
		}
		absType := c.Type(r.Type.GetNamedType())
		if absType == nil {
			continue
		}
		if typ.Kind == schema.TypeKindInterface {
			if absType.Kind == schema.TypeKindInterface {
				typ.AddInterface(absType.Name)
			}
			continue
		}
		if err := c.Link(absType, typ); err != nil {
			return err
		}
	}
	return nil
}

// interfaceResolver maps Go interface types declared with an interface
// marker. Its tagged methods become fields, and every discovered type
// implementing it becomes a possible type.
type interfaceResolver struct{}

func (interfaceResolver) SupportsOutput(t typeinfo.Type) bool {
	return t.Reflect().Kind() == reflect.Interface && t.Has(typeinfo.KindInterface)
}

func (interfaceResolver) ResolveOutput(e *Encounter) (Resolved, error) {
	ctx := e.ctx
	typ, self, err := e.Shell(schema.TypeKindInterface, e.Type.Markers().Value(typeinfo.KindDescription))
	if err != nil {
		return Resolved{}, err
	}
	b := ctx.Fields(typ)
	for _, m := range e.Type.Members() {
		if !m.Markers.Has(typeinfo.KindField) {
			continue
		}
		if err := ctx.memberField(b, m, sourceReceiver); err != nil {
			return Resolved{}, err
		}
	}
	if len(typ.Fields) == 0 {
		return Resolved{}, ctx.Errorf("interface %s declares no fields", typ.Name)
	}
	if err := ctx.linkAbstracts(e.Type, typ); err != nil {
		return Resolved{}, err
	}
	for _, impl := range ctx.FindExtendingTypes(e.Type) {
		r, err := ctx.ResolveOutput(impl)
		if err != nil {
			return Resolved{}, err
		}
		if obj := ctx.Type(r.Type.GetNamedType()); obj != nil {
			if err := ctx.Link(typ, obj); err != nil {
				return Resolved{}, err
			}
		}
	}
	return self.WithConversion(nil), nil
}

// unionResolver maps Go interface types declared with a union marker. Every
// discovered object type implementing it becomes a member.
type unionResolver struct{}

func (unionResolver) SupportsOutput(t typeinfo.Type) bool {
	return t.Reflect().Kind() == reflect.Interface && t.Has(typeinfo.KindUnion)
}

func (unionResolver) ResolveOutput(e *Encounter) (Resolved, error) {
	ctx := e.ctx
	typ, self, err := e.Shell(schema.TypeKindUnion, e.Type.Markers().Value(typeinfo.KindDescription))
	if err != nil {
		return Resolved{}, err
	}
	for _, member := range ctx.FindExtendingTypes(e.Type) {
		r, err := ctx.MaybeResolveOutput(member)
		if err != nil {
			return Resolved{}, err
		}
		if !r.Present() {
			continue
		}
		obj := ctx.Type(r.Type.GetNamedType())
		if obj == nil {
			return Resolved{}, ctx.Errorf("union %s member %s is not a named type", typ.Name, member)
		}
		if err := ctx.Link(typ, obj); err != nil {
			return Resolved{}, err
		}
	}
	return self.WithConversion(nil), nil
}
