package typeinfo

import (
	"reflect"
	"strings"
)

// MarkerKind identifies a declarative marker.
type MarkerKind string

const (
	KindObject    MarkerKind = "object"
	KindInterface MarkerKind = "interface"
	KindUnion     MarkerKind = "union"
	KindEnum      MarkerKind = "enum"
	KindScalar    MarkerKind = "scalar"
	KindInput     MarkerKind = "input"

	KindField       MarkerKind = "field"
	KindDescription MarkerKind = "desc"
	KindDeprecated  MarkerKind = "deprecated"
	KindSpecifiedBy MarkerKind = "specifiedBy"
	KindNonNull     MarkerKind = "nonnull"
	KindNullable    MarkerKind = "nullable"
	KindAsync       MarkerKind = "async"
	KindReadOnly    MarkerKind = "readonly"

	KindArgument MarkerKind = "arg"
	KindSource   MarkerKind = "source"
	KindContext  MarkerKind = "context"
	KindEnv      MarkerKind = "env"
)

// Tag keys read from struct tags and declarations.
const (
	TagName        = "graphql"
	TagKind        = "kind"
	TagDescription = "desc"
	TagDeprecated  = "deprecated"
	TagSpecifiedBy = "specifiedBy"
	TagArgs        = "args"
)

// Marker is a single declarative annotation. Value carries the marker's
// payload, e.g. the schema name for KindField or the reason for KindDeprecated.
type Marker struct {
	Kind  MarkerKind
	Value string
}

// Markers is an ordered marker list; lookups return the first match.
type Markers []Marker

func (m Markers) Get(kind MarkerKind) (Marker, bool) {
	for _, mk := range m {
		if mk.Kind == kind {
			return mk, true
		}
	}
	return Marker{}, false
}

func (m Markers) Has(kind MarkerKind) bool {
	_, ok := m.Get(kind)
	return ok
}

// Value returns the payload of the first marker of kind, or "".
func (m Markers) Value(kind MarkerKind) string {
	mk, _ := m.Get(kind)
	return mk.Value
}

func (m Markers) With(more ...Marker) Markers {
	out := make(Markers, 0, len(m)+len(more))
	out = append(out, m...)
	return append(out, more...)
}

func (m Markers) Without(kinds ...MarkerKind) Markers {
	out := make(Markers, 0, len(m))
outer:
	for _, mk := range m {
		for _, k := range kinds {
			if mk.Kind == k {
				continue outer
			}
		}
		out = append(out, mk)
	}
	return out
}

// Object marks the embedding struct as a schema object type. The tag on the
// embedded field carries the type-level markers:
//
//	type User struct {
//		typeinfo.Object `graphql:"User" desc:"A registered user"`
//		Name string `graphql:"name"`
//	}
type Object struct{}

// Input marks the embedding struct as an input object type.
type Input struct{}

var (
	objectMarkerType = reflect.TypeOf(Object{})
	inputMarkerType  = reflect.TypeOf(Input{})
)

func builtinMarkerKind(t reflect.Type) (MarkerKind, bool) {
	switch t {
	case objectMarkerType:
		return KindObject, true
	case inputMarkerType:
		return KindInput, true
	}
	return "", false
}

// parseMemberTag reads the markers of a struct field or method tag. Options
// after the name are markers of their own; an option registered as an alias
// expands to the alias' markers, which are not expanded again.
func (u *Universe) parseMemberTag(tag reflect.StructTag) Markers {
	var out Markers
	if v, ok := tag.Lookup(TagName); ok && v != "-" {
		parts := strings.Split(v, ",")
		out = append(out, Marker{Kind: KindField, Value: strings.TrimSpace(parts[0])})
		for _, opt := range parts[1:] {
			out = append(out, u.option(opt)...)
		}
	}
	return append(out, descriptive(tag)...)
}

// parseTypeTag reads type-level markers. implied is the kind stated by an
// embedded marker, overridden by an explicit kind key.
func (u *Universe) parseTypeTag(tag reflect.StructTag, implied MarkerKind) Markers {
	var out Markers
	name := ""
	var opts []string
	if v, ok := tag.Lookup(TagName); ok {
		parts := strings.Split(v, ",")
		name = strings.TrimSpace(parts[0])
		opts = parts[1:]
	}
	kind := implied
	if k, ok := tag.Lookup(TagKind); ok {
		kind = MarkerKind(strings.TrimSpace(k))
	}
	if kind != "" {
		out = append(out, Marker{Kind: kind, Value: name})
	}
	for _, opt := range opts {
		out = append(out, u.option(opt)...)
	}
	if v, ok := tag.Lookup(TagSpecifiedBy); ok {
		out = append(out, Marker{Kind: KindSpecifiedBy, Value: v})
	}
	return append(out, descriptive(tag)...)
}

func (u *Universe) option(opt string) Markers {
	opt = strings.TrimSpace(opt)
	if opt == "" {
		return nil
	}
	if u != nil {
		if exp, ok := u.aliases[opt]; ok {
			return exp
		}
	}
	return Markers{parseOption(opt)}
}

func parseOption(opt string) Marker {
	if k, v, ok := strings.Cut(opt, "="); ok {
		return Marker{Kind: MarkerKind(strings.TrimSpace(k)), Value: strings.TrimSpace(v)}
	}
	return Marker{Kind: MarkerKind(opt)}
}

func descriptive(tag reflect.StructTag) Markers {
	var out Markers
	if v, ok := tag.Lookup(TagDescription); ok {
		out = append(out, Marker{Kind: KindDescription, Value: v})
	}
	if v, ok := tag.Lookup(TagDeprecated); ok {
		out = append(out, Marker{Kind: KindDeprecated, Value: v})
	}
	return out
}

// embeddedMarkers finds a marker struct embedded in t, either a builtin
// marker or a zero-size struct that itself embeds one. The outer tag wins
// over the alias' own tag.
func (u *Universe) embeddedMarkers(t reflect.Type) Markers {
	if t.Kind() != reflect.Struct {
		return nil
	}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.Anonymous {
			continue
		}
		if kind, ok := builtinMarkerKind(f.Type); ok {
			return u.parseTypeTag(f.Tag, kind)
		}
		if f.Type.Kind() != reflect.Struct || f.Type.Size() != 0 {
			continue
		}
		for j := 0; j < f.Type.NumField(); j++ {
			inner := f.Type.Field(j)
			kind, ok := builtinMarkerKind(inner.Type)
			if !inner.Anonymous || !ok {
				continue
			}
			outer := u.parseTypeTag(f.Tag, kind)
			return mergeTypeMarkers(outer, u.parseTypeTag(inner.Tag, kind))
		}
	}
	return nil
}

// isMarkerField reports whether an embedded field only carries markers.
func isMarkerField(f reflect.StructField) bool {
	if _, ok := builtinMarkerKind(f.Type); ok {
		return true
	}
	if f.Type.Kind() != reflect.Struct || f.Type.Size() != 0 {
		return false
	}
	for j := 0; j < f.Type.NumField(); j++ {
		if _, ok := builtinMarkerKind(f.Type.Field(j).Type); ok {
			return true
		}
	}
	return false
}

// mergeTypeMarkers keeps outer markers and fills in kinds only present in
// inner. An empty outer name inherits the inner one.
func mergeTypeMarkers(outer, inner Markers) Markers {
	out := append(Markers{}, outer...)
	for _, mk := range inner {
		existing, ok := out.Get(mk.Kind)
		if !ok {
			out = append(out, mk)
			continue
		}
		if existing.Value == "" && mk.Value != "" {
			for i := range out {
				if out[i].Kind == mk.Kind {
					out[i].Value = mk.Value
					break
				}
			}
		}
	}
	return out
}
