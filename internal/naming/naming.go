// Package naming assigns schema names to Go types and members and guards
// their uniqueness within one schema build.
package naming

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/hanpama/typegraph/internal/typeinfo"
)

var nameRegExp = regexp.MustCompile(`^[_a-zA-Z][_a-zA-Z0-9]*$`)

// Validate checks a schema name against the GraphQL name grammar and the
// reserved "__" prefix.
func Validate(name string) error {
	if !nameRegExp.MatchString(name) {
		return fmt.Errorf("names must match /^[_a-zA-Z][_a-zA-Z0-9]*$/ but %q does not", name)
	}
	if strings.HasPrefix(name, "__") {
		return fmt.Errorf("name %q must not begin with \"__\", which is reserved", name)
	}
	return nil
}

// TypeName derives the schema name of t in the output or input direction.
// A marker name wins over the Go name; type arguments of generic types are
// appended to either. Object types used as inputs get an "Input" suffix
// unless the input marker names them.
func TypeName(t typeinfo.Type, input bool) string {
	ms := t.Markers()
	if input {
		if mk, ok := ms.Get(typeinfo.KindInput); ok && mk.Value != "" {
			return withTypeArgs(mk.Value, t)
		}
		if ms.Has(typeinfo.KindObject) {
			return TypeName(t, false) + "Input"
		}
	}
	for _, kind := range []typeinfo.MarkerKind{
		typeinfo.KindObject, typeinfo.KindInterface, typeinfo.KindUnion,
		typeinfo.KindEnum, typeinfo.KindScalar, typeinfo.KindInput,
	} {
		if mk, ok := ms.Get(kind); ok && mk.Value != "" {
			return withTypeArgs(mk.Value, t)
		}
	}
	return t.GoName()
}

func withTypeArgs(name string, t typeinfo.Type) string {
	if len(t.TypeArgs()) == 0 {
		return name
	}
	return name + strings.TrimPrefix(t.GoName(), t.BaseName())
}

// MemberName is the display name of a field or argument: the name given by
// its marker, or the Go name with a lower-cased initial word.
func MemberName(goName string, ms typeinfo.Markers) string {
	if v := ms.Value(typeinfo.KindField); v != "" {
		return v
	}
	if v := ms.Value(typeinfo.KindArgument); v != "" {
		return v
	}
	return LowerCamel(goName)
}

// LowerCamel lower-cases the leading word of an identifier: Name -> name,
// ID -> id, URLPath -> urlPath.
func LowerCamel(s string) string {
	r := []rune(s)
	n := 0
	for n < len(r) && unicode.IsUpper(r[n]) {
		n++
	}
	if n > 1 && n < len(r) {
		n--
	}
	for i := 0; i < n; i++ {
		r[i] = unicode.ToLower(r[i])
	}
	return string(r)
}

// EnumValueName is the schema name of an enum constant: its marker name,
// else its String form upper-cased with separators turned into underscores.
func EnumValueName(v any, ms typeinfo.Markers) string {
	if name := ms.Value(typeinfo.KindField); name != "" {
		return name
	}
	s := fmt.Sprint(v)
	var b strings.Builder
	for i, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_':
			if i > 0 && unicode.IsUpper(r) && unicode.IsLower(prevRune(s, i)) {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToUpper(r))
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

func prevRune(s string, i int) rune {
	r := []rune(s[:i])
	return r[len(r)-1]
}
