package typeinfo

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// Member is a struct field or method of a type.
type Member struct {
	Name     string
	Owner    reflect.Type
	Markers  Markers
	Exported bool

	// Struct fields.
	Index []int
	Field reflect.Type

	// Methods. In excludes the receiver.
	IsMethod bool
	In       []reflect.Type
	Out      []reflect.Type
	ArgsTag  string
}

func (m Member) String() string {
	owner := "<nil>"
	if m.Owner != nil {
		owner = m.Owner.String()
	}
	if m.IsMethod {
		return owner + "." + m.Name + "()"
	}
	return owner + "." + m.Name
}

// key deduplicates members by name and parameter signature.
func (m Member) key() string {
	if !m.IsMethod {
		return m.Name
	}
	parts := make([]string, len(m.In))
	for i, in := range m.In {
		parts[i] = in.String()
	}
	return m.Name + "(" + strings.Join(parts, ",") + ")"
}

// Members walks the declared members of t, most derived first: own fields,
// fields promoted from embedded structs level by level, then methods. Each
// name+signature is visited once. Members of pointer types are those of the
// element.
func (t Type) Members() []Member {
	rt := deref(t.rt)
	seen := make(map[string]bool)
	var out []Member
	add := func(m Member) {
		k := m.key()
		if seen[k] {
			return
		}
		seen[k] = true
		out = append(out, m)
	}
	if rt.Kind() == reflect.Struct {
		for _, m := range t.u.fieldMembers(rt) {
			add(m)
		}
	}
	for _, m := range t.u.methodMembers(rt) {
		add(m)
	}
	return out
}

type fieldLevel struct {
	typ      reflect.Type
	index    []int
	exported bool
}

func (u *Universe) fieldMembers(rt reflect.Type) []Member {
	var out []Member
	level := []fieldLevel{{typ: rt, exported: true}}
	visited := map[reflect.Type]bool{rt: true}
	for len(level) > 0 {
		var next []fieldLevel
		for _, cur := range level {
			for i := 0; i < cur.typ.NumField(); i++ {
				f := cur.typ.Field(i)
				index := append(append([]int{}, cur.index...), i)
				if f.Anonymous {
					if isMarkerField(f) {
						continue
					}
					ft := deref(f.Type)
					if ft.Kind() == reflect.Struct && !visited[ft] && f.Tag.Get(TagName) == "" {
						visited[ft] = true
						next = append(next, fieldLevel{typ: ft, index: index, exported: cur.exported && f.IsExported()})
						continue
					}
				}
				out = append(out, Member{
					Name:     f.Name,
					Owner:    cur.typ,
					Markers:  u.parseMemberTag(f.Tag),
					Exported: cur.exported && f.IsExported(),
					Index:    index,
					Field:    f.Type,
				})
			}
		}
		level = next
	}
	return out
}

func (u *Universe) methodMembers(rt reflect.Type) []Member {
	tags := u.methodTags(rt)
	holder := rt
	if rt.Kind() != reflect.Interface {
		holder = reflect.PointerTo(rt)
	}
	var out []Member
	for i := 0; i < holder.NumMethod(); i++ {
		m := holder.Method(i)
		tag, ok := tags[m.Name]
		if !ok {
			continue
		}
		mt := m.Type
		first := 1
		if rt.Kind() == reflect.Interface {
			first = 0
		}
		in := make([]reflect.Type, 0, mt.NumIn()-first)
		for j := first; j < mt.NumIn(); j++ {
			in = append(in, mt.In(j))
		}
		outs := make([]reflect.Type, mt.NumOut())
		for j := range outs {
			outs[j] = mt.Out(j)
		}
		out = append(out, Member{
			Name:     m.Name,
			Owner:    rt,
			Markers:  u.parseMemberTag(tag),
			Exported: m.IsExported(),
			IsMethod: true,
			In:       in,
			Out:      outs,
			ArgsTag:  tag.Get(TagArgs),
		})
	}
	// tags naming methods the type does not have are reported as unexported
	// members so resolvers can point at them
	names := make([]string, 0, len(tags))
	for name := range tags {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if _, ok := holder.MethodByName(name); !ok && declaresMethod(u, rt, name) {
			out = append(out, Member{Name: name, Owner: rt, Markers: u.parseMemberTag(tags[name]), IsMethod: true})
		}
	}
	return out
}

// declaresMethod reports whether rt's own declaration or self declaration
// names the method, as opposed to tags inherited from interfaces.
func declaresMethod(u *Universe, rt reflect.Type, name string) bool {
	if d, ok := u.decls[rt]; ok {
		if _, ok := d.Methods[name]; ok {
			return true
		}
	}
	if mt, ok := selfValue[MethodTagger](rt); ok {
		_, ok := mt.GraphQLMethods()[name]
		return ok
	}
	return false
}

// Result splits a method's results into the value type and whether a
// trailing error is returned.
func (m Member) Result() (reflect.Type, bool, error) {
	if !m.IsMethod {
		return m.Field, false, nil
	}
	switch len(m.Out) {
	case 1:
		if m.Out[0] == errorType {
			return nil, false, fmt.Errorf("method %s returns only an error", m)
		}
		return m.Out[0], false, nil
	case 2:
		if m.Out[1] != errorType {
			return nil, false, fmt.Errorf("second result of %s must be an error", m)
		}
		return m.Out[0], true, nil
	}
	return nil, false, fmt.Errorf("method %s must return a value, optionally followed by an error", m)
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// Param is a method or function parameter.
type Param struct {
	Index   int
	Type    reflect.Type
	Name    string
	Markers Markers
}

func (p Param) String() string {
	if p.Name != "" {
		return fmt.Sprintf("parameter %d (%s %s)", p.Index, p.Name, p.Type)
	}
	return fmt.Sprintf("parameter %d (%s)", p.Index, p.Type)
}

// Params describes the method's parameters using its args tag.
func (m Member) Params(u *Universe) ([]Param, error) {
	return u.params(m.In, m.ArgsTag)
}

// params aligns the comma separated tokens of an args tag with the
// parameters in. Parameters of ambient types take no token.
func (u *Universe) params(in []reflect.Type, args string) ([]Param, error) {
	var tokens []string
	if strings.TrimSpace(args) != "" {
		for _, tok := range strings.Split(args, ",") {
			tokens = append(tokens, strings.TrimSpace(tok))
		}
	}
	out := make([]Param, len(in))
	next := 0
	for i, t := range in {
		out[i] = Param{Index: i, Type: t}
		if kind, ok := u.ambient[t]; ok {
			out[i].Markers = Markers{{Kind: kind}}
			continue
		}
		if next >= len(tokens) {
			continue
		}
		tok := tokens[next]
		next++
		switch {
		case tok == "" || tok == "_":
		case strings.HasPrefix(tok, "@"):
			out[i].Markers = Markers{parseOption(tok[1:])}
		default:
			name := strings.TrimSuffix(tok, "!")
			out[i].Name = name
			out[i].Markers = Markers{{Kind: KindArgument, Value: name}}
			if name != tok {
				out[i].Markers = append(out[i].Markers, Marker{Kind: KindNonNull})
			}
		}
	}
	if next < len(tokens) {
		return nil, fmt.Errorf("args tag %q names %d parameters but only %d are available", args, len(tokens), next)
	}
	return out, nil
}

// Factory is a parsed conversion function.
type Factory struct {
	Func   reflect.Value
	Params []Param
	Source int
	Input  reflect.Type
	Output reflect.Type
	HasErr bool
}

func (f Factory) String() string {
	return fmt.Sprintf("factory %s", f.Func.Type())
}

// ParseFactory validates a factory declaration: a function with exactly one
// @source parameter returning a value and optionally an error.
func (u *Universe) ParseFactory(d FactoryDecl) (Factory, error) {
	fv := reflect.ValueOf(d.Func)
	if fv.Kind() != reflect.Func {
		return Factory{}, fmt.Errorf("factory must be a function, got %T", d.Func)
	}
	ft := fv.Type()
	in := make([]reflect.Type, ft.NumIn())
	for i := range in {
		in[i] = ft.In(i)
	}
	params, err := u.params(in, d.Args)
	if err != nil {
		return Factory{}, err
	}
	f := Factory{Func: fv, Params: params, Source: -1}
	for _, p := range params {
		if !p.Markers.Has(KindSource) {
			continue
		}
		if f.Source >= 0 {
			return Factory{}, fmt.Errorf("factory %s declares more than one @source parameter", ft)
		}
		f.Source = p.Index
		f.Input = p.Type
	}
	if f.Source < 0 {
		return Factory{}, fmt.Errorf("factory %s declares no @source parameter", ft)
	}
	res := Member{IsMethod: true, Name: "factory", Out: make([]reflect.Type, ft.NumOut())}
	for i := range res.Out {
		res.Out[i] = ft.Out(i)
	}
	f.Output, f.HasErr, err = res.Result()
	if err != nil {
		return Factory{}, err
	}
	return f, nil
}
