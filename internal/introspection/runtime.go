// Package introspection answers __schema and __type over a built schema by
// wrapping the runtime that executes it.
package introspection

import (
	"context"
	"fmt"
	"sort"
	"strings"

	executor "github.com/hanpama/typegraph/internal/executor"
	schema "github.com/hanpama/typegraph/internal/schema"
)

// Wrap returns a runtime answering introspection fields over s, and the
// copy of s the executor needs to run them. Everything else goes to base.
func Wrap(base executor.Runtime, s *schema.Schema) (executor.Runtime, *schema.Schema) {
	return &runtime{base: base, schema: s}, extend(s)
}

type runtime struct {
	base   executor.Runtime
	schema *schema.Schema
}

func (r *runtime) ResolveSync(ctx context.Context, objectType, field string, source any, args map[string]any) (any, error) {
	if objectType == r.schema.QueryType {
		switch field {
		case "__schema":
			return r.schema, nil
		case "__type":
			name, _ := args["name"].(string)
			if _, ok := r.schema.Types[name]; !ok {
				return nil, nil
			}
			return schema.NamedType(name), nil
		}
	}
	if strings.HasPrefix(objectType, "__") {
		return r.resolveMeta(objectType, field, source, args)
	}
	return r.base.ResolveSync(ctx, objectType, field, source, args)
}

func (r *runtime) BatchResolveAsync(ctx context.Context, tasks []executor.AsyncResolveTask) []executor.AsyncResolveResult {
	return r.base.BatchResolveAsync(ctx, tasks)
}

func (r *runtime) ResolveType(ctx context.Context, abstractType string, value any) (string, error) {
	return r.base.ResolveType(ctx, abstractType, value)
}

func (r *runtime) SerializeLeafValue(ctx context.Context, typ string, value any) (any, error) {
	switch typ {
	case "__TypeKind", "__DirectiveLocation":
		return fmt.Sprint(value), nil
	}
	return r.base.SerializeLeafValue(ctx, typ, value)
}

func (r *runtime) resolveMeta(objectType, field string, source any, args map[string]any) (any, error) {
	var v any
	ok := false
	switch src := source.(type) {
	case *schema.Schema:
		v, ok = r.schemaField(src, field)
	case *schema.TypeRef:
		v, ok = r.typeField(src, field, boolArg(args, "includeDeprecated"))
	case *schema.Field:
		v, ok = fieldField(src, field, boolArg(args, "includeDeprecated"))
	case *schema.InputValue:
		v, ok = inputValueField(src, field)
	case *schema.EnumValue:
		v, ok = enumValueField(src, field)
	case *schema.Directive:
		v, ok = directiveField(src, field, boolArg(args, "includeDeprecated"))
	}
	if !ok {
		return nil, fmt.Errorf("%s.%s cannot be resolved from %T", objectType, field, source)
	}
	return v, nil
}

func (r *runtime) schemaField(s *schema.Schema, field string) (any, bool) {
	switch field {
	case "description":
		return optionalString(s.Description), true
	case "types":
		names := make([]string, 0, len(s.Types))
		for name := range s.Types {
			names = append(names, name)
		}
		names = append(names, metaTypeNames...)
		sort.Strings(names)
		return namedRefs(names), true
	case "queryType":
		return schema.NamedType(s.QueryType), true
	case "mutationType":
		return rootRef(s.MutationType), true
	case "subscriptionType":
		return rootRef(s.SubscriptionType), true
	case "directives":
		out := make([]*schema.Directive, 0, len(s.Directives))
		for _, d := range s.Directives {
			out = append(out, d)
		}
		sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
		return out, true
	}
	return nil, false
}

var metaTypeNames = func() []string {
	var names []string
	for _, t := range metaTypes() {
		names = append(names, t.Name)
	}
	return names
}()

// typeField resolves a __Type field. Named types are represented by their
// named reference and resolved against the schema; wrappers only know their
// kind and ofType.
func (r *runtime) typeField(ref *schema.TypeRef, field string, deprecated bool) (any, bool) {
	if ref.Kind != schema.TypeRefKindNamed {
		switch field {
		case "kind":
			return string(ref.Kind), true
		case "ofType":
			return ref.OfType, true
		case "name", "description", "specifiedByURL", "fields", "interfaces",
			"possibleTypes", "enumValues", "inputFields", "isOneOf":
			return nil, true
		}
		return nil, false
	}

	t := r.lookup(ref.Named)
	if t == nil {
		return nil, false
	}
	switch field {
	case "kind":
		return string(t.Kind), true
	case "name":
		return t.Name, true
	case "description":
		return optionalString(t.Description), true
	case "specifiedByURL":
		return t.SpecifiedByURL, true
	case "ofType":
		return nil, true
	case "isOneOf":
		if t.Kind != schema.TypeKindInputObject {
			return nil, true
		}
		return t.OneOf, true
	case "fields":
		if t.Kind != schema.TypeKindObject && t.Kind != schema.TypeKindInterface {
			return nil, true
		}
		out := make([]*schema.Field, 0, len(t.Fields))
		for _, f := range t.Fields {
			if !strings.HasPrefix(f.Name, "__") && (deprecated || !f.IsDeprecated) {
				out = append(out, f)
			}
		}
		return out, true
	case "interfaces":
		if t.Kind != schema.TypeKindObject && t.Kind != schema.TypeKindInterface {
			return nil, true
		}
		return namedRefs(t.Interfaces), true
	case "possibleTypes":
		if t.Kind != schema.TypeKindInterface && t.Kind != schema.TypeKindUnion {
			return nil, true
		}
		return namedRefs(t.PossibleTypes), true
	case "enumValues":
		if t.Kind != schema.TypeKindEnum {
			return nil, true
		}
		out := make([]*schema.EnumValue, 0, len(t.EnumValues))
		for _, v := range t.EnumValues {
			if deprecated || !v.IsDeprecated {
				out = append(out, v)
			}
		}
		return out, true
	case "inputFields":
		if t.Kind != schema.TypeKindInputObject {
			return nil, true
		}
		return inputValues(t.InputFields, deprecated), true
	}
	return nil, false
}

// lookup finds a named type in the schema or among the introspection types.
func (r *runtime) lookup(name string) *schema.Type {
	if t, ok := r.schema.Types[name]; ok {
		return t
	}
	for _, t := range metaTypes() {
		if t.Name == name {
			return t
		}
	}
	return nil
}

func fieldField(f *schema.Field, field string, deprecated bool) (any, bool) {
	switch field {
	case "name":
		return f.Name, true
	case "description":
		return optionalString(f.Description), true
	case "args":
		return inputValues(f.Arguments, deprecated), true
	case "type":
		return f.Type, true
	case "isDeprecated":
		return f.IsDeprecated, true
	case "deprecationReason":
		return reason(f.IsDeprecated, f.DeprecationReason), true
	}
	return nil, false
}

func inputValueField(v *schema.InputValue, field string) (any, bool) {
	switch field {
	case "name":
		return v.Name, true
	case "description":
		return optionalString(v.Description), true
	case "type":
		return v.Type, true
	case "defaultValue":
		if v.DefaultValue == nil {
			return nil, true
		}
		return schema.RenderValue(v.DefaultValue), true
	case "isDeprecated":
		return v.IsDeprecated, true
	case "deprecationReason":
		return reason(v.IsDeprecated, v.DeprecationReason), true
	}
	return nil, false
}

func enumValueField(v *schema.EnumValue, field string) (any, bool) {
	switch field {
	case "name":
		return v.Name, true
	case "description":
		return optionalString(v.Description), true
	case "isDeprecated":
		return v.IsDeprecated, true
	case "deprecationReason":
		return reason(v.IsDeprecated, v.DeprecationReason), true
	}
	return nil, false
}

func directiveField(d *schema.Directive, field string, deprecated bool) (any, bool) {
	switch field {
	case "name":
		return d.Name, true
	case "description":
		return optionalString(d.Description), true
	case "isRepeatable":
		return d.IsRepeatable, true
	case "locations":
		return d.Locations, true
	case "args":
		return inputValues(d.Arguments, deprecated), true
	}
	return nil, false
}

func inputValues(in []*schema.InputValue, deprecated bool) []*schema.InputValue {
	out := make([]*schema.InputValue, 0, len(in))
	for _, v := range in {
		if deprecated || !v.IsDeprecated {
			out = append(out, v)
		}
	}
	return out
}

func namedRefs(names []string) []*schema.TypeRef {
	out := make([]*schema.TypeRef, len(names))
	for i, n := range names {
		out[i] = schema.NamedType(n)
	}
	return out
}

func rootRef(name string) any {
	if name == "" {
		return nil
	}
	return schema.NamedType(name)
}

func optionalString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func reason(deprecated bool, why string) any {
	if !deprecated {
		return nil
	}
	return why
}

func boolArg(args map[string]any, name string) bool {
	b, _ := args[name].(bool)
	return b
}
