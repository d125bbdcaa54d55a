package schema

func builtinScalar(name, description string) *Type {
	return &Type{Name: name, Kind: TypeKindScalar, Description: description}
}

var (
	stringType  = builtinScalar("String", "The `String` scalar type represents textual data, represented as UTF-8 character sequences.")
	intType     = builtinScalar("Int", "The `Int` scalar type represents non-fractional signed whole numeric values.")
	floatType   = builtinScalar("Float", "The `Float` scalar type represents signed double-precision fractional values.")
	booleanType = builtinScalar("Boolean", "The `Boolean` scalar type represents `true` or `false`.")
	idType      = builtinScalar("ID", "The `ID` scalar type represents a unique identifier, often used to refetch an object or as a key for caching.")
)

var builtinTypes = []*Type{stringType, intType, floatType, booleanType, idType}

// conditionDirective builds @skip and @include, which share a single
// Boolean! argument and the same locations.
func conditionDirective(name, description, ifDescription string) *Directive {
	return &Directive{
		Name:        name,
		Description: description,
		Arguments:   []*InputValue{NewInputValue("if", ifDescription, NonNullType(NamedType("Boolean")))},
		Locations:   []string{"FIELD", "FRAGMENT_SPREAD", "INLINE_FRAGMENT"},
	}
}

var (
	includeDirective = conditionDirective("include",
		"Directs the executor to include this field or fragment only when the `if` argument is true.",
		"Included when true.")
	skipDirective = conditionDirective("skip",
		"Directs the executor to skip this field or fragment when the `if` argument is true.",
		"Skipped when true.")
)

// IsBuiltinScalar reports whether name is one of the scalars every schema
// carries.
func IsBuiltinScalar(name string) bool {
	for _, t := range builtinTypes {
		if t.Name == name {
			return true
		}
	}
	return false
}

func isBuiltinType(t *Type) bool {
	for _, b := range builtinTypes {
		if b == t {
			return true
		}
	}
	return false
}
