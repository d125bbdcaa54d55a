package typeinfo

import (
	"reflect"
	"strings"
	"unicode"
)

// Type describes a Go type as seen from one usage site. The erased identity
// is the reflect.Type; usage markers such as non-null come from the field or
// parameter that referenced it and are stripped by Canonical.
type Type struct {
	rt    reflect.Type
	usage Markers
	u     *Universe
}

func (t Type) Reflect() reflect.Type { return t.rt }
func (t Type) Universe() *Universe    { return t.u }
func (t Type) Usage() Markers         { return t.usage }
func (t Type) IsZero() bool           { return t.rt == nil }

func (t Type) String() string {
	if t.rt == nil {
		return "<nil>"
	}
	return t.rt.String()
}

// WithUsage returns t with additional usage-site markers.
func (t Type) WithUsage(ms ...Marker) Type {
	t.usage = t.usage.With(ms...)
	return t
}

// Canonical strips usage-site markers.
func (t Type) Canonical() Type {
	return Type{rt: t.rt, u: t.u}
}

// Describe returns a descriptor for another reflect.Type in the same universe.
func (t Type) Describe(rt reflect.Type) Type {
	return Type{rt: rt, u: t.u}
}

// Elem describes the element type of a pointer, slice, array or channel.
func (t Type) Elem() Type {
	return t.Describe(t.rt.Elem())
}

// NonNull reports whether the usage site demands a non-null schema type:
// either an explicit nonnull marker, or a Go kind that cannot hold nil.
func (t Type) NonNull() bool {
	if t.usage.Has(KindNonNull) {
		return true
	}
	if t.usage.Has(KindNullable) {
		return false
	}
	switch t.rt.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Slice, reflect.Map, reflect.Func, reflect.Chan:
		return false
	}
	return true
}

// Markers returns the declared type-level markers: universe declaration
// first, then a Tagger implementation, then embedded marker structs.
func (t Type) Markers() Markers {
	if t.rt == nil || t.u == nil {
		return nil
	}
	var out Markers
	if d, ok := t.u.decls[t.rt]; ok && d.Tag != "" {
		out = append(out, t.u.parseTypeTag(d.Tag, "")...)
	}
	if tg, ok := selfValue[Tagger](t.rt); ok {
		out = append(out, t.u.parseTypeTag(tg.GraphQLTag(), "")...)
	}
	return append(out, t.u.embeddedMarkers(t.rt)...)
}

func (t Type) Marker(kind MarkerKind) (Marker, bool) {
	return t.Markers().Get(kind)
}

func (t Type) Has(kind MarkerKind) bool {
	return t.Markers().Has(kind)
}

// Constants returns the declared enum constants.
func (t Type) Constants() []Constant {
	if d, ok := t.u.decls[t.rt]; ok && len(d.Constants) > 0 {
		return d.Constants
	}
	m, ok := t.rt.MethodByName("Values")
	if !ok || m.Type.NumIn() != 1 || m.Type.NumOut() != 1 || m.Type.Out(0) != reflect.SliceOf(t.rt) {
		return nil
	}
	vals := m.Func.Call([]reflect.Value{reflect.Zero(t.rt)})[0]
	out := make([]Constant, vals.Len())
	for i := range out {
		out[i] = Constant{Value: vals.Index(i).Interface()}
	}
	return out
}

// ConstantMarkers reads the markers of an enum constant.
func (t Type) ConstantMarkers(c Constant) Markers {
	return t.u.parseMemberTag(c.Tag)
}

// GoName is the Go type name with type arguments folded in, e.g. Page[pkg.User]
// becomes PageUser. Unnamed types have no name.
func (t Type) GoName() string {
	base, args := splitGeneric(t.rt.Name())
	if base == "" {
		return ""
	}
	var b strings.Builder
	b.WriteString(base)
	for _, a := range args {
		b.WriteString(simpleName(a))
	}
	return b.String()
}

// BaseName is the Go type name without type arguments.
func (t Type) BaseName() string {
	base, _ := splitGeneric(t.rt.Name())
	return base
}

// TypeArgs returns the type arguments of a generic instantiation as written
// by the runtime, e.g. ["github.com/x/y.User"].
func (t Type) TypeArgs() []string {
	_, args := splitGeneric(t.rt.Name())
	return args
}

// Implements reports whether t, or a pointer to t, implements iface, or
// whether iface is a struct embedded in t.
func (t Type) Implements(iface Type) bool {
	if iface.rt == t.rt {
		return false
	}
	if iface.rt.Kind() == reflect.Interface {
		return implements(t.rt, iface.rt)
	}
	if base := deref(t.rt); base.Kind() == reflect.Struct {
		for _, emb := range embeddedStructs(base) {
			if emb == iface.rt {
				return true
			}
		}
	}
	return false
}

// Supertypes lists embedded structs, breadth first, then the declared
// interfaces t implements in declaration order, and finally the empty
// interface every type implements.
func (t Type) Supertypes() []Type {
	var out []Type
	if base := deref(t.rt); base.Kind() == reflect.Struct {
		for _, emb := range embeddedStructs(base) {
			out = append(out, t.Describe(emb))
		}
	}
	for _, iface := range t.u.declaredInterfaces() {
		if iface != t.rt && iface != anyType && implements(t.rt, iface) {
			out = append(out, t.Describe(iface))
		}
	}
	if t.rt != anyType {
		out = append(out, t.Describe(anyType))
	}
	return out
}

var anyType = reflect.TypeOf((*any)(nil)).Elem()

func deref(rt reflect.Type) reflect.Type {
	for rt.Kind() == reflect.Pointer {
		rt = rt.Elem()
	}
	return rt
}

func splitGeneric(name string) (string, []string) {
	i := strings.IndexByte(name, '[')
	if i < 0 || !strings.HasSuffix(name, "]") {
		return name, nil
	}
	return name[:i], splitTopLevel(name[i+1 : len(name)-1])
}

func splitTopLevel(s string) []string {
	var out []string
	depth, start := 0, 0
	for i, r := range s {
		switch r {
		case '[':
			depth++
		case ']':
			depth--
		case ',':
			if depth == 0 {
				out = append(out, strings.TrimSpace(s[start:i]))
				start = i + 1
			}
		}
	}
	return append(out, strings.TrimSpace(s[start:]))
}

// simpleName reduces a type expression as printed by reflect to an
// identifier fragment.
func simpleName(expr string) string {
	switch {
	case strings.HasPrefix(expr, "*"):
		return simpleName(expr[1:])
	case strings.HasPrefix(expr, "[]"):
		return simpleName(expr[2:]) + "List"
	case strings.HasPrefix(expr, "map["):
		depth := 0
		for i, r := range expr {
			if r == '[' {
				depth++
			} else if r == ']' {
				depth--
				if depth == 0 {
					return "Map" + simpleName(expr[4:i]) + simpleName(expr[i+1:])
				}
			}
		}
	}
	base, args := splitGeneric(expr)
	if i := strings.LastIndexByte(base, '/'); i >= 0 {
		base = base[i+1:]
	}
	if i := strings.IndexByte(base, '.'); i >= 0 {
		base = base[i+1:]
	}
	var b strings.Builder
	b.WriteString(capitalize(base))
	for _, a := range args {
		b.WriteString(simpleName(a))
	}
	return b.String()
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
