package schema

// NewSchema returns an empty schema with the builtin scalars and directives
// already registered.
func NewSchema(description string) *Schema {
	s := &Schema{
		Types:       make(map[string]*Type),
		Directives:  make(map[string]*Directive),
		Description: description,
	}
	s.AddType(stringType).
		AddType(intType).
		AddType(floatType).
		AddType(booleanType).
		AddType(idType)
	s.AddDirective(includeDirective).
		AddDirective(skipDirective)
	return s
}

func (s *Schema) SetQueryType(name string) *Schema        { s.QueryType = name; return s }
func (s *Schema) SetMutationType(name string) *Schema     { s.MutationType = name; return s }
func (s *Schema) SetSubscriptionType(name string) *Schema { s.SubscriptionType = name; return s }

// AddType registers t under its name, replacing any previous entry.
func (s *Schema) AddType(t *Type) *Schema {
	if s.Types == nil {
		s.Types = make(map[string]*Type)
	}
	s.Types[t.Name] = t
	return s
}

func (s *Schema) AddDirective(d *Directive) *Schema {
	if s.Directives == nil {
		s.Directives = make(map[string]*Directive)
	}
	s.Directives[d.Name] = d
	return s
}

// NewType creates a named type of the given kind without members.
func NewType(name string, kind TypeKind, description string) *Type {
	return &Type{Name: name, Kind: kind, Description: description}
}

// NewFieldMap collects fields in declaration order.
func NewFieldMap(fields ...*Field) []*Field { return append([]*Field(nil), fields...) }

func (t *Type) AddField(f *Field) *Type { t.Fields = append(t.Fields, f); return t }

// FieldByName returns the field with the given name or nil.
func (t *Type) FieldByName(name string) *Field {
	for _, f := range t.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

func (t *Type) InputFieldByName(name string) *InputValue { return inputValueByName(t.InputFields, name) }

// AddInterface links an implemented interface; repeated names are ignored.
func (t *Type) AddInterface(name string) *Type {
	if !contains(t.Interfaces, name) {
		t.Interfaces = append(t.Interfaces, name)
	}
	return t
}

// AddPossibleType registers a member of a union or an implementor of an
// interface; repeated names are ignored.
func (t *Type) AddPossibleType(name string) *Type {
	if !contains(t.PossibleTypes, name) {
		t.PossibleTypes = append(t.PossibleTypes, name)
	}
	return t
}

func (t *Type) AddEnumValue(v *EnumValue) *Type   { t.EnumValues = append(t.EnumValues, v); return t }
func (t *Type) AddInputField(v *InputValue) *Type { t.InputFields = append(t.InputFields, v); return t }
func (t *Type) SetOneOf(oneOf bool) *Type         { t.OneOf = oneOf; return t }

func (t *Type) SetSpecifiedByURL(url string) *Type {
	if url != "" {
		t.SpecifiedByURL = &url
	}
	return t
}

func NewField(name, description string, typ *TypeRef) *Field {
	return &Field{Name: name, Description: description, Type: typ}
}

func (f *Field) SetAsync(async bool) *Field         { f.Async = async; return f }
func (f *Field) AddArgument(arg *InputValue) *Field { f.Arguments = append(f.Arguments, arg); return f }
func (f *Field) Deprecate(reason string) *Field     { f.IsDeprecated = true; f.DeprecationReason = reason; return f }

func (f *Field) ArgumentByName(name string) *InputValue { return inputValueByName(f.Arguments, name) }

func inputValueByName(values []*InputValue, name string) *InputValue {
	for _, v := range values {
		if v.Name == name {
			return v
		}
	}
	return nil
}

func NewEnumValue(name, description string) *EnumValue { return &EnumValue{Name: name, Description: description} }

func (e *EnumValue) Deprecate(reason string) *EnumValue {
	e.IsDeprecated = true
	e.DeprecationReason = reason
	return e
}

func NewInputValue(name, description string, typ *TypeRef) *InputValue {
	return &InputValue{Name: name, Description: description, Type: typ}
}

func (v *InputValue) SetDefault(value any) *InputValue { v.DefaultValue = value; return v }

func (v *InputValue) Deprecate(reason string) *InputValue {
	v.IsDeprecated = true
	v.DeprecationReason = reason
	return v
}

func NewDirective(name, description string) *Directive {
	return &Directive{Name: name, Description: description}
}

func (d *Directive) SetRepeatable(repeatable bool) *Directive { d.IsRepeatable = repeatable; return d }
func (d *Directive) AddLocation(loc string) *Directive        { d.Locations = append(d.Locations, loc); return d }
func (d *Directive) AddArgument(arg *InputValue) *Directive   { d.Arguments = append(d.Arguments, arg); return d }

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
