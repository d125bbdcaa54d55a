package introspection

import (
	schema "github.com/hanpama/typegraph/internal/schema"
)

func named(name string) *schema.TypeRef   { return schema.NamedType(name) }
func nonNull(name string) *schema.TypeRef { return schema.NonNullType(schema.NamedType(name)) }

// listOf is [name!], nullable when the list itself may be absent.
func listOf(name string, nullable bool) *schema.TypeRef {
	l := schema.ListType(nonNull(name))
	if nullable {
		return l
	}
	return schema.NonNullType(l)
}

func includeDeprecated() *schema.InputValue {
	return schema.NewInputValue("includeDeprecated", "", named("Boolean")).SetDefault(false)
}

// extend returns a copy of s holding the introspection types, with __schema
// and __type added to a copy of its query type. s itself is not modified.
func extend(s *schema.Schema) *schema.Schema {
	out := &schema.Schema{
		QueryType:        s.QueryType,
		MutationType:     s.MutationType,
		SubscriptionType: s.SubscriptionType,
		Types:            make(map[string]*schema.Type, len(s.Types)+8),
		Directives:       s.Directives,
		Description:      s.Description,
	}
	for name, t := range s.Types {
		out.Types[name] = t
	}
	for _, t := range metaTypes() {
		out.Types[t.Name] = t
	}

	if q := s.GetQueryType(); q != nil {
		cp := *q
		cp.Fields = append(append([]*schema.Field(nil), q.Fields...),
			schema.NewField("__schema", "Access the current type schema of this server.", nonNull("__Schema")),
			schema.NewField("__type", "Request the type information of a single type.", named("__Type")).
				AddArgument(schema.NewInputValue("name", "", nonNull("String"))),
		)
		out.Types[cp.Name] = &cp
	}
	return out
}

func metaTypes() []*schema.Type {
	sch := schema.NewType("__Schema", schema.TypeKindObject,
		"A GraphQL Schema defines the capabilities of a GraphQL server.")
	sch.AddField(schema.NewField("description", "", named("String"))).
		AddField(schema.NewField("types", "A list of all types supported by this server.", listOf("__Type", false))).
		AddField(schema.NewField("queryType", "The type that query operations will be rooted at.", nonNull("__Type"))).
		AddField(schema.NewField("mutationType", "", named("__Type"))).
		AddField(schema.NewField("subscriptionType", "", named("__Type"))).
		AddField(schema.NewField("directives", "A list of all directives supported by this server.", listOf("__Directive", false)))

	typ := schema.NewType("__Type", schema.TypeKindObject,
		"The fundamental unit of any GraphQL Schema is the type.")
	typ.AddField(schema.NewField("kind", "", nonNull("__TypeKind"))).
		AddField(schema.NewField("name", "", named("String"))).
		AddField(schema.NewField("description", "", named("String"))).
		AddField(schema.NewField("specifiedByURL", "", named("String"))).
		AddField(schema.NewField("fields", "", listOf("__Field", true)).AddArgument(includeDeprecated())).
		AddField(schema.NewField("interfaces", "", listOf("__Type", true))).
		AddField(schema.NewField("possibleTypes", "", listOf("__Type", true))).
		AddField(schema.NewField("enumValues", "", listOf("__EnumValue", true)).AddArgument(includeDeprecated())).
		AddField(schema.NewField("inputFields", "", listOf("__InputValue", true)).AddArgument(includeDeprecated())).
		AddField(schema.NewField("ofType", "", named("__Type"))).
		AddField(schema.NewField("isOneOf", "", named("Boolean")))

	field := schema.NewType("__Field", schema.TypeKindObject, "")
	field.AddField(schema.NewField("name", "", nonNull("String"))).
		AddField(schema.NewField("description", "", named("String"))).
		AddField(schema.NewField("args", "", listOf("__InputValue", false)).AddArgument(includeDeprecated())).
		AddField(schema.NewField("type", "", nonNull("__Type"))).
		AddField(schema.NewField("isDeprecated", "", nonNull("Boolean"))).
		AddField(schema.NewField("deprecationReason", "", named("String")))

	input := schema.NewType("__InputValue", schema.TypeKindObject, "")
	input.AddField(schema.NewField("name", "", nonNull("String"))).
		AddField(schema.NewField("description", "", named("String"))).
		AddField(schema.NewField("type", "", nonNull("__Type"))).
		AddField(schema.NewField("defaultValue", "", named("String"))).
		AddField(schema.NewField("isDeprecated", "", nonNull("Boolean"))).
		AddField(schema.NewField("deprecationReason", "", named("String")))

	value := schema.NewType("__EnumValue", schema.TypeKindObject, "")
	value.AddField(schema.NewField("name", "", nonNull("String"))).
		AddField(schema.NewField("description", "", named("String"))).
		AddField(schema.NewField("isDeprecated", "", nonNull("Boolean"))).
		AddField(schema.NewField("deprecationReason", "", named("String")))

	directive := schema.NewType("__Directive", schema.TypeKindObject, "")
	directive.AddField(schema.NewField("name", "", nonNull("String"))).
		AddField(schema.NewField("description", "", named("String"))).
		AddField(schema.NewField("isRepeatable", "", nonNull("Boolean"))).
		AddField(schema.NewField("locations", "", listOf("__DirectiveLocation", false))).
		AddField(schema.NewField("args", "", listOf("__InputValue", false)).AddArgument(includeDeprecated()))

	return []*schema.Type{
		sch, typ, field, input, value, directive,
		enum("__TypeKind", typeKinds),
		enum("__DirectiveLocation", directiveLocations),
	}
}

var typeKinds = []string{
	"SCALAR", "OBJECT", "INTERFACE", "UNION", "ENUM", "INPUT_OBJECT", "LIST", "NON_NULL",
}

var directiveLocations = []string{
	"QUERY", "MUTATION", "SUBSCRIPTION", "FIELD", "FRAGMENT_DEFINITION", "FRAGMENT_SPREAD",
	"INLINE_FRAGMENT", "VARIABLE_DEFINITION", "SCHEMA", "SCALAR", "OBJECT", "FIELD_DEFINITION",
	"ARGUMENT_DEFINITION", "INTERFACE", "UNION", "ENUM", "ENUM_VALUE", "INPUT_OBJECT",
	"INPUT_FIELD_DEFINITION",
}

func enum(name string, values []string) *schema.Type {
	t := schema.NewType(name, schema.TypeKindEnum, "")
	for _, v := range values {
		t.AddEnumValue(schema.NewEnumValue(v, ""))
	}
	return t
}
