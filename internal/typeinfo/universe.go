package typeinfo

import (
	"context"
	"reflect"
	"strings"
)

// Declaration states markers for a type that cannot carry them itself: Go
// interfaces, named scalars and enums, and the methods of any type.
type Declaration struct {
	// Tag holds the type-level markers, e.g. `graphql:"Node" kind:"interface"`.
	Tag reflect.StructTag
	// Methods maps a method name to its member tag.
	Methods map[string]reflect.StructTag
	// Constants lists the values of an enum type.
	Constants []Constant
}

// Constant is one enum value with its markers.
type Constant struct {
	Value any
	Tag   reflect.StructTag
}

// FactoryDecl registers a conversion function. Args holds one token per
// parameter that is neither a context.Context nor an ambient type: "@source"
// marks the value being converted, "@name" a custom marker, and any other
// token names the parameter.
type FactoryDecl struct {
	Func any
	Args string
}

// Tagger lets a type declare its own type-level markers.
type Tagger interface {
	GraphQLTag() reflect.StructTag
}

// MethodTagger lets a type declare the member tags of its methods.
type MethodTagger interface {
	GraphQLMethods() map[string]reflect.StructTag
}

// Universe holds every declaration a schema build can see. It is populated
// before a build and read-only during it.
type Universe struct {
	decls     map[reflect.Type]*Declaration
	order     []reflect.Type
	aliases   map[string]Markers
	factories []FactoryDecl
	ambient   map[reflect.Type]MarkerKind
}

var contextType = reflect.TypeOf((*context.Context)(nil)).Elem()

func NewUniverse() *Universe {
	return &Universe{
		decls:   make(map[reflect.Type]*Declaration),
		aliases: make(map[string]Markers),
		ambient: map[reflect.Type]MarkerKind{contextType: KindContext},
	}
}

// TypeOf returns the reflect.Type of T, including interface types.
func TypeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// Declare records d for t. Declaring the same type again merges method tags
// and constants and replaces a non-empty tag.
func (u *Universe) Declare(t reflect.Type, d Declaration) *Universe {
	existing, ok := u.decls[t]
	if !ok {
		cp := d
		cp.Methods = make(map[string]reflect.StructTag, len(d.Methods))
		for k, v := range d.Methods {
			cp.Methods[k] = v
		}
		u.decls[t] = &cp
		u.order = append(u.order, t)
		return u
	}
	if d.Tag != "" {
		existing.Tag = d.Tag
	}
	for k, v := range d.Methods {
		existing.Methods[k] = v
	}
	existing.Constants = append(existing.Constants, d.Constants...)
	return u
}

// Known registers t without markers so that it takes part in supertype
// discovery, e.g. a plain Go interface shared by factory sources.
func (u *Universe) Known(t reflect.Type) *Universe {
	return u.Declare(t, Declaration{})
}

// Alias registers option as a tag option expanding to the comma separated
// markers in expansion, e.g. Alias("required", "nonnull").
func (u *Universe) Alias(option, expansion string) *Universe {
	var ms Markers
	for _, part := range strings.Split(expansion, ",") {
		if part = strings.TrimSpace(part); part != "" {
			ms = append(ms, parseOption(part))
		}
	}
	u.aliases[option] = ms
	return u
}

// Factory registers a conversion function.
func (u *Universe) Factory(fn any, args string) *Universe {
	u.factories = append(u.factories, FactoryDecl{Func: fn, Args: args})
	return u
}

// Ambient marks parameters of type t as injected with the given marker kind
// rather than named by an args tag.
func (u *Universe) Ambient(t reflect.Type, kind MarkerKind) *Universe {
	u.ambient[t] = kind
	return u
}

func (u *Universe) Factories() []FactoryDecl { return u.factories }

// Declared returns declared types in declaration order.
func (u *Universe) Declared() []reflect.Type { return u.order }

func (u *Universe) Declaration(t reflect.Type) (*Declaration, bool) {
	d, ok := u.decls[t]
	return d, ok
}

// Describe returns the descriptor of t without usage-site markers.
func (u *Universe) Describe(t reflect.Type) Type {
	return Type{rt: t, u: u}
}

// declaredInterfaces returns declared interface types in declaration order.
func (u *Universe) declaredInterfaces() []reflect.Type {
	var out []reflect.Type
	for _, t := range u.order {
		if t.Kind() == reflect.Interface {
			out = append(out, t)
		}
	}
	return out
}

// methodTags merges the method tags visible on t: its own declaration, a
// MethodTagger implementation, embedded types and declared interfaces t
// implements. Earlier sources win.
func (u *Universe) methodTags(t reflect.Type) map[string]reflect.StructTag {
	out := make(map[string]reflect.StructTag)
	add := func(m map[string]reflect.StructTag) {
		for k, v := range m {
			if _, ok := out[k]; !ok {
				out[k] = v
			}
		}
	}
	base := t
	if base.Kind() == reflect.Pointer {
		base = base.Elem()
	}
	if d, ok := u.decls[base]; ok {
		add(d.Methods)
	}
	if mt, ok := selfValue[MethodTagger](base); ok {
		add(mt.GraphQLMethods())
	}
	if base.Kind() == reflect.Struct {
		for _, emb := range embeddedStructs(base) {
			if d, ok := u.decls[emb]; ok {
				add(d.Methods)
			}
			if mt, ok := selfValue[MethodTagger](emb); ok {
				add(mt.GraphQLMethods())
			}
		}
	}
	for _, iface := range u.declaredInterfaces() {
		if iface != base && implements(base, iface) {
			add(u.decls[iface].Methods)
		}
	}
	return out
}

// selfValue returns the zero value of t (or of *t) as an I when either
// implements it. Interface and pointer types never do.
func selfValue[I any](t reflect.Type) (I, bool) {
	var zero I
	if t.Kind() == reflect.Interface || t.Kind() == reflect.Pointer {
		return zero, false
	}
	if v, ok := reflect.Zero(t).Interface().(I); ok {
		return v, true
	}
	if v, ok := reflect.New(t).Interface().(I); ok {
		return v, true
	}
	return zero, false
}

// implements reports whether t or *t implements the interface iface.
func implements(t, iface reflect.Type) bool {
	if iface.Kind() != reflect.Interface {
		return false
	}
	if t.Implements(iface) {
		return true
	}
	if t.Kind() != reflect.Pointer && t.Kind() != reflect.Interface {
		return reflect.PointerTo(t).Implements(iface)
	}
	return false
}

// embeddedStructs lists the struct types embedded in t, breadth first,
// excluding marker structs.
func embeddedStructs(t reflect.Type) []reflect.Type {
	var out []reflect.Type
	seen := map[reflect.Type]bool{t: true}
	queue := []reflect.Type{t}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for i := 0; i < cur.NumField(); i++ {
			f := cur.Field(i)
			if !f.Anonymous || isMarkerField(f) {
				continue
			}
			ft := f.Type
			if ft.Kind() == reflect.Pointer {
				ft = ft.Elem()
			}
			if ft.Kind() != reflect.Struct || seen[ft] {
				continue
			}
			seen[ft] = true
			out = append(out, ft)
			queue = append(queue, ft)
		}
	}
	return out
}
