package schema

// Schema represents the complete GraphQL schema. Named types live in an arena
// keyed by name and are referenced through TypeRef, so recursive type graphs
// never hold direct pointers to each other.
type Schema struct {
	QueryType        string
	MutationType     string
	SubscriptionType string
	Types            map[string]*Type
	Directives       map[string]*Directive
	Description      string
}

// Root type lookups return nil when the operation type is not configured.

func (s *Schema) GetQueryType() *Type        { return s.Types[s.QueryType] }
func (s *Schema) GetMutationType() *Type     { return s.Types[s.MutationType] }
func (s *Schema) GetSubscriptionType() *Type { return s.Types[s.SubscriptionType] }

// Type is a named type. Which member slices are used depends on Kind.
type Type struct {
	Name          string
	Kind          TypeKind
	Description   string
	Fields        []*Field // objects and interfaces
	Interfaces    []string
	PossibleTypes []string // unions, and the implementors of an interface
	EnumValues    []*EnumValue
	InputFields   []*InputValue

	SpecifiedByURL *string
	OneOf          bool
}

// Field represents a field on an object or interface. Async fields are
// resolved in per-depth batches through Runtime.BatchResolveAsync.
type Field struct {
	Name              string
	Description       string
	Type              *TypeRef
	Arguments         []*InputValue
	Async             bool
	IsDeprecated      bool
	DeprecationReason string
}

type TypeKind string

const (
	TypeKindScalar      TypeKind = "SCALAR"
	TypeKindObject      TypeKind = "OBJECT"
	TypeKindInterface   TypeKind = "INTERFACE"
	TypeKindUnion       TypeKind = "UNION"
	TypeKindEnum        TypeKind = "ENUM"
	TypeKindInputObject TypeKind = "INPUT_OBJECT"
)

// TypeRef points at a named type, optionally wrapped in list and non-null
// layers. Named is set only on the innermost reference.
type TypeRef struct {
	Kind   TypeRefKind
	OfType *TypeRef
	Named  string
}

type TypeRefKind string

const (
	TypeRefKindNamed   TypeRefKind = "NAMED"
	TypeRefKindList    TypeRefKind = "LIST"
	TypeRefKindNonNull TypeRefKind = "NON_NULL"
)

func (t *TypeRef) IsNonNull() bool { return t != nil && t.Kind == TypeRefKindNonNull }

// IsList looks through one non-null layer.
func (t *TypeRef) IsList() bool {
	if t.IsNonNull() {
		t = t.OfType
	}
	return t != nil && t.Kind == TypeRefKindList
}

func (t *TypeRef) Unwrap() *TypeRef {
	if t != nil && t.Kind != TypeRefKindNamed {
		return t.OfType
	}
	return t
}

func (t *TypeRef) GetNamedType() string {
	for t != nil && t.Kind != TypeRefKindNamed {
		t = t.OfType
	}
	if t == nil {
		return ""
	}
	return t.Named
}

type EnumValue struct {
	Name              string
	Description       string
	IsDeprecated      bool
	DeprecationReason string
}

type InputValue struct {
	Name              string
	Description       string
	Type              *TypeRef
	DefaultValue      any
	IsDeprecated      bool
	DeprecationReason string
}

type Directive struct {
	Name         string
	Description  string
	Locations    []string
	Arguments    []*InputValue
	IsRepeatable bool
}

func NonNullType(t *TypeRef) *TypeRef { return &TypeRef{Kind: TypeRefKindNonNull, OfType: t} }
func ListType(t *TypeRef) *TypeRef    { return &TypeRef{Kind: TypeRefKindList, OfType: t} }
func NamedType(name string) *TypeRef  { return &TypeRef{Kind: TypeRefKindNamed, Named: name} }

// Nil-safe forms of the TypeRef methods.

func IsNonNull(t *TypeRef) bool      { return t.IsNonNull() }
func IsList(t *TypeRef) bool         { return t != nil && t.IsList() }
func Unwrap(t *TypeRef) *TypeRef     { return t.Unwrap() }
func GetNamedType(t *TypeRef) string { return t.GetNamedType() }
