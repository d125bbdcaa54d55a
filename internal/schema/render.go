package schema

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Render prints s as SDL. Types and directives appear sorted by name; the
// builtin scalars and the skip/include directives are left out.
func Render(s *Schema) string {
	if s == nil {
		return ""
	}
	w := &sdlWriter{}
	w.schemaBlock(s)

	for _, name := range sortedKeys(s.Types) {
		t := s.Types[name]
		if isBuiltinType(t) {
			continue
		}
		w.typeDef(t)
	}
	for _, name := range sortedKeys(s.Directives) {
		d := s.Directives[name]
		if d == includeDirective || d == skipDirective {
			continue
		}
		w.directiveDef(d)
	}
	return strings.TrimRight(w.String(), "\n") + "\n"
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

type sdlWriter struct{ strings.Builder }

func (w *sdlWriter) put(parts ...string) {
	for _, p := range parts {
		w.WriteString(p)
	}
}

func (w *sdlWriter) description(desc string) {
	if desc != "" {
		w.put(`"""`, "\n", strings.ReplaceAll(desc, `"""`, `\"""`), "\n", `"""`, "\n")
	}
}

func (w *sdlWriter) deprecation(deprecated bool, reason string) {
	if !deprecated {
		return
	}
	w.put(" @deprecated")
	if reason != "" {
		w.put(`(reason: "`, reason, `")`)
	}
}

func (w *sdlWriter) joined(prefix, sep string, names []string) {
	if len(names) > 0 {
		w.put(prefix, strings.Join(names, sep))
	}
}

func (w *sdlWriter) inputValue(v *InputValue) {
	w.put(v.Name, ": ", renderTypeRef(v.Type))
	if v.DefaultValue != nil {
		w.put(" = ", renderValue(v.DefaultValue))
	}
}

func (w *sdlWriter) arguments(args []*InputValue) {
	if len(args) == 0 {
		return
	}
	w.put("(")
	for i, arg := range args {
		if i > 0 {
			w.put(", ")
		}
		w.inputValue(arg)
	}
	w.put(")")
}

func (w *sdlWriter) schemaBlock(s *Schema) {
	if s.QueryType == "" {
		return
	}
	w.description(s.Description)
	w.put("schema {\n")
	roots := []struct{ op, name string }{
		{"query", s.QueryType},
		{"mutation", s.MutationType},
		{"subscription", s.SubscriptionType},
	}
	for _, r := range roots {
		if r.name != "" {
			w.put("  ", r.op, ": ", r.name, "\n")
		}
	}
	w.put("}\n\n")
}

func (w *sdlWriter) typeDef(t *Type) {
	w.description(t.Description)
	switch t.Kind {
	case TypeKindScalar:
		w.put("scalar ", t.Name)
		if t.SpecifiedByURL != nil {
			w.put(` @specifiedBy(url: "`, *t.SpecifiedByURL, `")`)
		}
		w.put("\n\n")

	case TypeKindUnion:
		w.put("union ", t.Name, " = ", strings.Join(t.PossibleTypes, " | "), "\n\n")

	case TypeKindEnum:
		w.put("enum ", t.Name, " {\n")
		for _, v := range t.EnumValues {
			w.description(v.Description)
			w.put("  ", v.Name)
			w.deprecation(v.IsDeprecated, v.DeprecationReason)
			w.put("\n")
		}
		w.put("}\n\n")

	case TypeKindInputObject:
		w.put("input ", t.Name)
		if t.OneOf {
			w.put(" @oneOf")
		}
		w.put(" {\n")
		for _, f := range t.InputFields {
			w.description(f.Description)
			w.put("  ")
			w.inputValue(f)
			w.deprecation(f.IsDeprecated, f.DeprecationReason)
			w.put("\n")
		}
		w.put("}\n\n")

	case TypeKindObject, TypeKindInterface:
		keyword := "type "
		if t.Kind == TypeKindInterface {
			keyword = "interface "
		}
		w.put(keyword, t.Name)
		w.joined(" implements ", " & ", t.Interfaces)
		w.put(" {\n")
		for _, f := range t.Fields {
			w.description(f.Description)
			w.put("  ", f.Name)
			w.arguments(f.Arguments)
			w.put(": ", renderTypeRef(f.Type))
			w.deprecation(f.IsDeprecated, f.DeprecationReason)
			w.put("\n")
		}
		w.put("}\n\n")
	}
}

func (w *sdlWriter) directiveDef(d *Directive) {
	w.description(d.Description)
	w.put("directive @", d.Name)
	w.arguments(d.Arguments)
	if d.IsRepeatable {
		w.put(" repeatable")
	}
	w.put(" on ", strings.Join(d.Locations, " | "), "\n\n")
}

func renderTypeRef(ref *TypeRef) string {
	if ref == nil {
		return ""
	}
	switch ref.Kind {
	case TypeRefKindNamed:
		return ref.Named
	case TypeRefKindList:
		return "[" + renderTypeRef(ref.OfType) + "]"
	case TypeRefKindNonNull:
		return renderTypeRef(ref.OfType) + "!"
	}
	return ""
}

// RenderValue renders value as a GraphQL literal.
func RenderValue(value any) string { return renderValue(value) }

func renderValue(value any) string {
	switch v := value.(type) {
	case nil:
		return "null"
	case string:
		return strconv.Quote(v)
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.Itoa(v)
	case int32:
		return strconv.FormatInt(int64(v), 10)
	case int64:
		return strconv.FormatInt(v, 10)
	case float32:
		return strconv.FormatFloat(float64(v), 'g', -1, 32)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case []any:
		parts := make([]string, len(v))
		for i, item := range v {
			parts[i] = renderValue(item)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case map[string]any:
		keys := sortedKeys(v)
		for i, k := range keys {
			keys[i] = k + ": " + renderValue(v[k])
		}
		return "{" + strings.Join(keys, ", ") + "}"
	}
	// enum values and other bare literals
	return fmt.Sprint(value)
}
