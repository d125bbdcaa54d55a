package mapping

import (
	"github.com/hanpama/typegraph/internal/naming"
	"github.com/hanpama/typegraph/internal/schema"
	"github.com/hanpama/typegraph/internal/typeinfo"
)

// TypeBuilder adds fields to an object or interface type registered with
// Encounter.Shell or Context.AddType.
type TypeBuilder struct {
	ctx *Context
	typ *schema.Type
}

// Fields returns a builder for typ. A nil typ makes every Done fail.
func (c *Context) Fields(typ *schema.Type) *TypeBuilder {
	return &TypeBuilder{ctx: c, typ: typ}
}

func (b *TypeBuilder) Type() *schema.Type { return b.typ }

// Field starts a field named name.
func (b *TypeBuilder) Field(name string) *FieldBuilder {
	return &FieldBuilder{ctx: b.ctx, parent: b, name: name}
}

// FieldBuilder accumulates one field. Done validates it, applies directives
// and binds the supplier into the runtime.
type FieldBuilder struct {
	ctx         *Context
	parent      *TypeBuilder
	name        string
	description string
	deprecated  bool
	reason      string
	typ         *schema.TypeRef
	args        []*schema.InputValue
	supplier    Supplier
	async       bool
	markers     typeinfo.Markers
}

func (f *FieldBuilder) Name() string              { return f.name }
func (f *FieldBuilder) Markers() typeinfo.Markers { return f.markers }
func (f *FieldBuilder) TypeRef() *schema.TypeRef  { return f.typ }
func (f *FieldBuilder) Supplier() Supplier        { return f.supplier }
func (f *FieldBuilder) Context() *Context         { return f.ctx }
func (f *FieldBuilder) ObjectType() *schema.Type  { return f.parent.typ }
func (f *FieldBuilder) IsAsync() bool             { return f.async }

func (f *FieldBuilder) Description(d string) *FieldBuilder            { f.description = d; return f }
func (f *FieldBuilder) Type(t *schema.TypeRef) *FieldBuilder          { f.typ = t; return f }
func (f *FieldBuilder) Async(async bool) *FieldBuilder                { f.async = async; return f }
func (f *FieldBuilder) SetSupplier(s Supplier) *FieldBuilder          { f.supplier = s; return f }
func (f *FieldBuilder) WithMarkers(ms typeinfo.Markers) *FieldBuilder { f.markers = ms; return f }

func (f *FieldBuilder) Deprecate(reason string) *FieldBuilder {
	f.deprecated = true
	f.reason = reason
	return f
}

// Argument starts an argument of the field.
func (f *FieldBuilder) Argument(name string) *ArgumentBuilder {
	return &ArgumentBuilder{ctx: f.ctx, field: f, name: name}
}

func (f *FieldBuilder) Done() error {
	if f.parent.typ == nil {
		return f.ctx.Errorf("field %q is not attached to a type", f.name)
	}
	owner := f.parent.typ.Name
	if err := naming.Validate(f.name); err != nil {
		return f.ctx.ErrorAt(err, "invalid field name on type %s", owner)
	}
	if f.parent.typ.FieldByName(f.name) != nil {
		return f.ctx.Errorf("duplicate field %q on type %s", f.name, owner)
	}
	if f.typ == nil {
		return f.ctx.Errorf("field %s.%s has no type", owner, f.name)
	}
	for _, mk := range f.markers {
		d, ok := f.ctx.directives[string(mk.Kind)]
		if !ok {
			continue
		}
		if err := d.Apply(f.ctx, f, mk); err != nil {
			return f.ctx.Wrap(err)
		}
	}
	if f.supplier == nil {
		return f.ctx.Errorf("field %s.%s has no value supplier", owner, f.name)
	}
	field := schema.NewField(f.name, f.description, f.typ).SetAsync(f.async)
	for _, a := range f.args {
		field.AddArgument(a)
	}
	if f.deprecated {
		field.Deprecate(f.reason)
	}
	f.parent.typ.AddField(field)
	f.ctx.runtime.bindField(owner, f.name, f.supplier)
	return nil
}

// ArgumentBuilder accumulates a field argument or an input object field.
type ArgumentBuilder struct {
	ctx         *Context
	field       *FieldBuilder
	input       *schema.Type
	name        string
	description string
	deprecated  bool
	reason      string
	typ         *schema.TypeRef
	def         any
}

func (a *ArgumentBuilder) Description(d string) *ArgumentBuilder   { a.description = d; return a }
func (a *ArgumentBuilder) Type(t *schema.TypeRef) *ArgumentBuilder { a.typ = t; return a }
func (a *ArgumentBuilder) Default(v any) *ArgumentBuilder          { a.def = v; return a }

func (a *ArgumentBuilder) Deprecate(reason string) *ArgumentBuilder {
	a.deprecated = true
	a.reason = reason
	return a
}

func (a *ArgumentBuilder) Done() error {
	if err := naming.Validate(a.name); err != nil {
		return a.ctx.ErrorAt(err, "invalid argument name")
	}
	if a.typ == nil {
		return a.ctx.Errorf("argument %q has no type", a.name)
	}
	v := schema.NewInputValue(a.name, a.description, a.typ).SetDefault(a.def)
	if a.deprecated {
		v.Deprecate(a.reason)
	}
	if a.input != nil {
		for _, existing := range a.input.InputFields {
			if existing.Name == a.name {
				return a.ctx.Errorf("duplicate field %q on input type %s", a.name, a.input.Name)
			}
		}
		a.input.AddInputField(v)
		return nil
	}
	for _, existing := range a.field.args {
		if existing.Name == a.name {
			return a.ctx.Errorf("duplicate argument %q on field %s", a.name, a.field.name)
		}
	}
	a.field.args = append(a.field.args, v)
	return nil
}

// InputBuilder adds fields to an input object type.
type InputBuilder struct {
	ctx *Context
	typ *schema.Type
}

func (c *Context) InputFields(typ *schema.Type) *InputBuilder {
	return &InputBuilder{ctx: c, typ: typ}
}

func (b *InputBuilder) Field(name string) *ArgumentBuilder {
	return &ArgumentBuilder{ctx: b.ctx, input: b.typ, name: name}
}

// Done checks that the input type ended up with at least one field.
func (b *InputBuilder) Done() error {
	if b.typ == nil {
		return b.ctx.Errorf("input fields added without a type")
	}
	if len(b.typ.InputFields) == 0 {
		return b.ctx.Errorf("input type %s has no fields", b.typ.Name)
	}
	return nil
}

// EnumBuilder adds values to an enum type.
type EnumBuilder struct {
	ctx *Context
	typ *schema.Type
}

func (c *Context) EnumValues(typ *schema.Type) *EnumBuilder {
	return &EnumBuilder{ctx: c, typ: typ}
}

func (b *EnumBuilder) Value(v *schema.EnumValue) error {
	if err := naming.Validate(v.Name); err != nil {
		return b.ctx.ErrorAt(err, "invalid value of enum %s", b.typ.Name)
	}
	switch v.Name {
	case "true", "false", "null":
		return b.ctx.Errorf("enum %s cannot have a value named %s", b.typ.Name, v.Name)
	}
	for _, existing := range b.typ.EnumValues {
		if existing.Name == v.Name {
			return b.ctx.Errorf("duplicate value %q on enum %s", v.Name, b.typ.Name)
		}
	}
	b.typ.AddEnumValue(v)
	return nil
}

func (b *EnumBuilder) Done() error {
	if len(b.typ.EnumValues) == 0 {
		return b.ctx.Errorf("enum %s has no values", b.typ.Name)
	}
	return nil
}

// Link registers obj as a possible type of the interface or union
// abstract. Interfaces are also recorded on the object.
func (c *Context) Link(abstract, obj *schema.Type) error {
	if obj.Kind != schema.TypeKindObject {
		return c.Errorf("%s can only include object types, but %s is %s", abstract.Name, obj.Name, obj.Kind)
	}
	abstract.AddPossibleType(obj.Name)
	if abstract.Kind == schema.TypeKindInterface {
		obj.AddInterface(abstract.Name)
	}
	return nil
}
