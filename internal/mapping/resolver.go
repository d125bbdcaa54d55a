package mapping

import (
	"fmt"
	"reflect"

	"github.com/hanpama/typegraph/internal/schema"
	"github.com/hanpama/typegraph/internal/typeinfo"
)

// Encounter is a resolver's view of the type being mapped.
type Encounter struct {
	ctx   *Context
	Type  typeinfo.Type
	Input bool
}

func (e *Encounter) Context() *Context { return e.ctx }

// Shell registers the named schema type for the encountered Go type before
// its members are mapped, so that references back to it resolve to the same
// node. The returned mapping forwards to the final conversion once the
// resolver returns.
func (e *Encounter) Shell(kind schema.TypeKind, description string) (*schema.Type, Resolved, error) {
	return e.ctx.shell(e, kind, description)
}

// OutputResolver maps Go types to output schema types.
type OutputResolver interface {
	SupportsOutput(t typeinfo.Type) bool
	ResolveOutput(e *Encounter) (Resolved, error)
}

// InputResolver maps Go types to input schema types.
type InputResolver interface {
	SupportsInput(t typeinfo.Type) bool
	ResolveInput(e *Encounter) (Resolved, error)
}

// Resolver handles both directions.
type Resolver interface {
	OutputResolver
	InputResolver
}

// Supplier produces a value from the invocation environment.
type Supplier func(env *Env) (any, error)

// ParameterResolver supplies method parameters carrying a custom marker.
type ParameterResolver interface {
	SupportsParameter(p typeinfo.Param) bool
	ResolveParameter(ctx *Context, p typeinfo.Param) (Supplier, error)
}

// DirectiveResolver is triggered by a field option of its name. Apply runs
// once the field is otherwise complete and may replace its supplier.
type DirectiveResolver interface {
	Name() string
	Definition() *schema.Directive
	Apply(ctx *Context, f *FieldBuilder, m typeinfo.Marker) error
}

type funcResolver struct {
	rt    reflect.Type
	input bool
	fn    func(*Encounter) (Resolved, error)
}

// OutputFor returns a resolver handling exactly rt in the output direction.
func OutputFor(rt reflect.Type, fn func(*Encounter) (Resolved, error)) OutputResolver {
	return &funcResolver{rt: rt, fn: fn}
}

// InputFor returns a resolver handling exactly rt in the input direction.
func InputFor(rt reflect.Type, fn func(*Encounter) (Resolved, error)) InputResolver {
	return &funcResolver{rt: rt, input: true, fn: fn}
}

func (r *funcResolver) SupportsOutput(t typeinfo.Type) bool { return !r.input && t.Reflect() == r.rt }
func (r *funcResolver) SupportsInput(t typeinfo.Type) bool  { return r.input && t.Reflect() == r.rt }

func (r *funcResolver) ResolveOutput(e *Encounter) (Resolved, error) { return r.fn(e) }
func (r *funcResolver) ResolveInput(e *Encounter) (Resolved, error)  { return r.fn(e) }

func (r *funcResolver) String() string { return fmt.Sprintf("resolver for %s", r.rt) }
