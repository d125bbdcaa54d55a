package mapping

import (
	"context"

	"github.com/hanpama/typegraph/internal/schema"
)

// Env is the per-invocation environment handed to conversions, defaults and
// field suppliers.
type Env struct {
	Context    context.Context
	ObjectType string
	Field      string
	Source     any
	Args       map[string]any
}

// Ctx returns the request context, never nil.
func (e *Env) Ctx() context.Context {
	if e == nil || e.Context == nil {
		return context.Background()
	}
	return e.Context
}

// Conversion turns a value of the mapped Go type into the shape the schema
// expects (output), or a coerced input value into the Go type (input).
type Conversion func(env *Env, v any) (any, error)

// DefaultFunc supplies the value of an omitted argument.
type DefaultFunc func(env *Env) (any, error)

// Resolved is the mapping of one Go type in one direction. A nil Type means
// the resolver had nothing to contribute. A nil conversion is the identity.
type Resolved struct {
	Type     *schema.TypeRef
	convert  Conversion
	def      DefaultFunc
	nullable bool
}

// Of returns a mapping to t with identity conversion.
func Of(t *schema.TypeRef) Resolved { return Resolved{Type: t} }

// Named is Of(schema.NamedType(name)).
func Named(name string) Resolved { return Of(schema.NamedType(name)) }

func Absent() Resolved { return Resolved{} }

func (r Resolved) Present() bool { return r.Type != nil }

// IsIdentity reports whether values pass through unchanged.
func (r Resolved) IsIdentity() bool { return r.convert == nil }

// Conversion returns the conversion, nil for identity.
func (r Resolved) Conversion() Conversion { return r.convert }

// Convert applies the conversion to v.
func (r Resolved) Convert(env *Env, v any) (any, error) {
	if r.convert == nil {
		return v, nil
	}
	return r.convert(env, v)
}

// Then appends c to the conversion chain.
func (r Resolved) Then(c Conversion) Resolved {
	if c == nil {
		return r
	}
	prev := r.convert
	if prev == nil {
		r.convert = c
		return r
	}
	r.convert = func(env *Env, v any) (any, error) {
		v, err := prev(env, v)
		if err != nil {
			return nil, err
		}
		return c(env, v)
	}
	return r
}

// WithConversion replaces the conversion chain.
func (r Resolved) WithConversion(c Conversion) Resolved {
	r.convert = c
	return r
}

// WithDefault sets the supplier used when an argument of this type is omitted.
func (r Resolved) WithDefault(d DefaultFunc) Resolved {
	r.def = d
	return r
}

// Default returns the omitted-argument value, nil when no default is set.
func (r Resolved) Default(env *Env) (any, error) {
	if r.def == nil {
		return nil, nil
	}
	return r.def(env)
}

func (r Resolved) HasDefault() bool { return r.def != nil }

// Nullable marks the mapping as able to represent null, which suppresses the
// implicit non-null wrapping of non-nillable Go kinds.
func (r Resolved) Nullable() Resolved {
	r.nullable = true
	return r
}

func (r Resolved) IsNullable() bool { return r.nullable }

// NonNull wraps the type in NON_NULL unless it already is.
func (r Resolved) NonNull() Resolved {
	if r.Type != nil && !r.Type.IsNonNull() {
		r.Type = schema.NonNullType(r.Type)
	}
	return r
}

// Unwrapped strips an outer NON_NULL.
func (r Resolved) Unwrapped() Resolved {
	if r.Type != nil && r.Type.IsNonNull() {
		r.Type = r.Type.OfType
	}
	return r
}
