package mapping

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"

	"github.com/hanpama/typegraph/internal/eventbus"
	"github.com/hanpama/typegraph/internal/events"
	"github.com/hanpama/typegraph/internal/executor"
	"github.com/hanpama/typegraph/internal/introspection"
	"github.com/hanpama/typegraph/internal/language"
	"github.com/hanpama/typegraph/internal/schema"
	"github.com/hanpama/typegraph/internal/typeinfo"
)

// Root type names.
const (
	QueryTypeName        = "Query"
	MutationTypeName     = "Mutation"
	SubscriptionTypeName = "Subscription"
)

type options struct {
	log           logrus.FieldLogger
	instances     typeinfo.Instances
	description   string
	context       context.Context
	introspection bool
}

type Option func(*options)

var envType = reflect.TypeOf((*Env)(nil))

func WithLogger(l logrus.FieldLogger) Option    { return func(o *options) { o.log = l } }
func WithInstances(i typeinfo.Instances) Option { return func(o *options) { o.instances = i } }
func WithDescription(d string) Option           { return func(o *options) { o.description = d } }
func WithContext(ctx context.Context) Option    { return func(o *options) { o.context = ctx } }

// WithIntrospection controls whether __schema and __type can be queried.
// It is on by default.
func WithIntrospection(enabled bool) Option { return func(o *options) { o.introspection = enabled } }

// SchemaBuilder collects roots, explicit types and extensions, then builds
// a schema in one pass. A SchemaBuilder is used for a single Build.
type SchemaBuilder struct {
	universe *typeinfo.Universe
	opt      options

	roots      [3]any
	types      []reflect.Type
	mixins     []any
	scalars    []Resolver
	resolvers  []any
	params     []ParameterResolver
	directives []DirectiveResolver
	errs       []error
}

// New starts a schema build over the declarations of u.
func New(u *typeinfo.Universe, opts ...Option) *SchemaBuilder {
	o := options{
		log:           logrus.StandardLogger(),
		instances:     typeinfo.ZeroInstances{},
		context:       context.Background(),
		introspection: true,
	}
	for _, f := range opts {
		f(&o)
	}
	u.Ambient(envType, typeinfo.KindEnv)
	return &SchemaBuilder{universe: u, opt: o}
}

// Query sets the value whose marked fields and methods form the query root.
func (b *SchemaBuilder) Query(root any) *SchemaBuilder        { b.roots[0] = root; return b }
func (b *SchemaBuilder) Mutation(root any) *SchemaBuilder     { b.roots[1] = root; return b }
func (b *SchemaBuilder) Subscription(root any) *SchemaBuilder { b.roots[2] = root; return b }

// Type adds rt to the schema even when no root reaches it, typically an
// implementor of an interface.
func (b *SchemaBuilder) Type(rt reflect.Type) *SchemaBuilder {
	b.types = append(b.types, rt)
	return b
}

// Mixin registers root's marked methods as fields of the type named by
// each method's @source parameter.
func (b *SchemaBuilder) Mixin(root any) *SchemaBuilder {
	b.mixins = append(b.mixins, root)
	return b
}

// Scalar maps rt to def in both directions, ahead of every builtin mapping.
func (b *SchemaBuilder) Scalar(rt reflect.Type, def ScalarDef) *SchemaBuilder {
	d := def
	b.scalars = append(b.scalars, Scalar(rt, &d))
	return b
}

// Resolver registers an OutputResolver, an InputResolver or both. User
// resolvers are consulted before the builtin ones, in registration order.
func (b *SchemaBuilder) Resolver(r any) *SchemaBuilder {
	_, out := r.(OutputResolver)
	_, in := r.(InputResolver)
	if !out && !in {
		b.errs = append(b.errs, &MappingError{Message: fmt.Sprintf("%T is neither an output nor an input resolver", r)})
		return b
	}
	b.resolvers = append(b.resolvers, r)
	return b
}

func (b *SchemaBuilder) Parameter(p ParameterResolver) *SchemaBuilder {
	b.params = append(b.params, p)
	return b
}

func (b *SchemaBuilder) Directive(d DirectiveResolver) *SchemaBuilder {
	b.directives = append(b.directives, d)
	return b
}

// builtinScalars binds Go types with a fixed scalar, ahead of the kind
// based fallback.
func builtinScalars() []Resolver {
	return []Resolver{
		Scalar(reflect.TypeOf(typeinfo.ID("")), IDScalar),
		Scalar(reflect.TypeOf(time.Time{}), DateTimeScalar),
		Scalar(reflect.TypeOf(time.Duration(0)), DurationScalar),
		Scalar(reflect.TypeOf(uuid.UUID{}), UUIDScalar),
		Scalar(reflect.TypeOf([]byte(nil)), BytesScalar),
		Scalar(reflect.TypeOf(map[string]any(nil)), JSONScalar),
	}
}

// registry orders resolvers so that the first match wins: user resolvers,
// fixed scalars, declared kinds, wrappers, lists, factories, discovered
// conversions, and the kind based scalars last.
func (b *SchemaBuilder) registry(factories []*factoryResolver, conversions []*abstractConversion) (*Registry, error) {
	reg := &Registry{}
	var all []any
	for _, r := range b.scalars {
		all = append(all, r)
	}
	all = append(all, b.resolvers...)
	for _, r := range builtinScalars() {
		all = append(all, r)
	}
	all = append(all,
		&declaredScalarResolver{defs: make(map[reflect.Type]*ScalarDef)},
		enumResolver{},
		objectResolver{},
		interfaceResolver{},
		unionResolver{},
		inputResolver{},
	)
	for _, r := range wellKnownConversions() {
		all = append(all, r)
	}
	all = append(all,
		nullStructResolver{},
		wrapperResolver{},
		optionalResolver{},
		pointerResolver{},
		listResolver{},
	)
	for _, f := range factories {
		all = append(all, f)
	}
	for _, c := range conversions {
		all = append(all, c)
	}
	all = append(all, kindResolver{})
	for _, r := range all {
		if err := reg.Add(r); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

var buildSeq atomic.Uint64

// Build maps the roots and every type they reach. Any failure aborts the
// build with a MappingError naming where it happened.
func (b *SchemaBuilder) Build() (built *Built, err error) {
	start := time.Now()
	goCtx := b.opt.context
	id := buildSeq.Add(1)
	eventbus.Publish(goCtx, events.SchemaBuildStart{ID: id, Roots: b.rootCount(), Types: len(b.types)})
	var types int
	defer func() {
		eventbus.Publish(goCtx, events.SchemaBuildFinish{ID: id, Types: types, Err: err, Duration: time.Since(start)})
	}()

	if len(b.errs) > 0 {
		return nil, errors.Join(b.errs...)
	}
	if b.roots[0] == nil {
		return nil, &MappingError{Message: "a schema needs a query root"}
	}

	var factories []*factoryResolver
	for _, d := range b.universe.Factories() {
		f, err := b.universe.ParseFactory(d)
		if err != nil {
			return nil, &MappingError{Message: "invalid factory", Cause: err}
		}
		factories = append(factories, &factoryResolver{f: f})
	}
	reg, err := b.registry(factories, discoverConversions(b.universe, factories))
	if err != nil {
		return nil, err
	}

	ctx := newContext(goCtx, b.universe, reg, b.opt.log)
	ctx.instances = b.opt.instances
	ctx.params = b.params
	for _, d := range b.directives {
		if _, dup := ctx.directives[d.Name()]; dup {
			return nil, &MappingError{Message: fmt.Sprintf("directive @%s is registered twice", d.Name())}
		}
		ctx.directives[d.Name()] = d
	}
	for _, def := range []*ScalarDef{StringScalar, IntScalar, FloatScalar, BooleanScalar, IDScalar} {
		ctx.runtime.bindScalar(def)
	}
	for _, root := range b.mixins {
		if err := ctx.addMixin(root); err != nil {
			return nil, err
		}
	}

	for _, rt := range b.types {
		ctx.Discover(ctx.Describe(rt))
	}
	for _, rt := range b.universe.Declared() {
		if t := ctx.Describe(rt); rt.Kind() == reflect.Struct && t.Has(typeinfo.KindObject) {
			ctx.Discover(t)
		}
	}

	names := [3]string{QueryTypeName, MutationTypeName, SubscriptionTypeName}
	for i, root := range b.roots {
		if root == nil {
			continue
		}
		if err := ctx.rootType(names[i], root); err != nil {
			return nil, err
		}
	}
	for _, rt := range b.types {
		if _, err := ctx.ResolveOutput(ctx.Describe(rt)); err != nil {
			return nil, err
		}
	}

	s := schema.NewSchema(b.opt.description)
	for _, name := range ctx.typeOrder {
		typ := ctx.types[name]
		if typ.Kind == schema.TypeKindUnion && len(typ.PossibleTypes) == 0 {
			return nil, &MappingError{Message: fmt.Sprintf("union %s has no member types", name)}
		}
		s.AddType(typ)
	}
	s.SetQueryType(QueryTypeName)
	if b.roots[1] != nil {
		s.SetMutationType(MutationTypeName)
	}
	if b.roots[2] != nil {
		s.SetSubscriptionType(SubscriptionTypeName)
	}
	for _, d := range b.directives {
		if def := d.Definition(); def != nil {
			s.AddDirective(def)
		}
	}
	types = len(ctx.typeOrder)

	parsed, err := schema.Validate(s)
	if err != nil {
		return nil, &MappingError{Message: "built schema is invalid", Cause: err}
	}
	ctx.runtime.schema = s
	ctx.log.WithFields(logrus.Fields{"types": types, "duration": time.Since(start)}).Info("schema built")

	var rt executor.Runtime = ctx.runtime
	execSchema := s
	if b.opt.introspection {
		rt, execSchema = introspection.Wrap(ctx.runtime, s)
	}
	return &Built{
		Schema:  s,
		Runtime: ctx.runtime,
		AST:     parsed,
		exec:    executor.NewExecutor(rt, execSchema),
	}, nil
}

func (b *SchemaBuilder) rootCount() int {
	n := 0
	for _, r := range b.roots {
		if r != nil {
			n++
		}
	}
	return n
}

// rootType maps the marked members of root to the fields of a root type
// called name. Root members are always read from root itself.
func (c *Context) rootType(name string, root any) error {
	rt := reflect.TypeOf(root)
	return c.Breadcrumb(Crumbf("root %s (%s)", name, rt), func() error {
		if err := c.RequestTypeName(name); err != nil {
			return err
		}
		typ := schema.NewType(name, schema.TypeKindObject, "")
		c.AddType(typ)
		fb := c.Fields(typ)
		for _, m := range c.Describe(rt).Members() {
			if !m.Markers.Has(typeinfo.KindField) {
				continue
			}
			if err := c.memberField(fb, m, fixedReceiver(root)); err != nil {
				return err
			}
		}
		if len(typ.Fields) == 0 {
			return c.Errorf("root %s has no marked fields", name)
		}
		return nil
	})
}

// addMixin files each marked method of root under the struct type its
// @source parameter names.
func (c *Context) addMixin(root any) error {
	rt := reflect.TypeOf(root)
	return c.Breadcrumb(Crumbf("mixin %s", rt), func() error {
		n := 0
		for _, m := range c.Describe(rt).Members() {
			if !m.IsMethod || !m.Markers.Has(typeinfo.KindField) {
				continue
			}
			params, err := m.Params(c.universe)
			if err != nil {
				return c.ErrorAt(err, "%s", m)
			}
			var target reflect.Type
			for _, p := range params {
				if p.Markers.Has(typeinfo.KindSource) {
					target = p.Type
					break
				}
			}
			if target == nil {
				return c.Errorf("%s contributes to no type; mark one parameter @source", m)
			}
			for target.Kind() == reflect.Pointer {
				target = target.Elem()
			}
			c.mixins[target] = append(c.mixins[target], mixin{root: root, member: m})
			n++
		}
		if n == 0 {
			return c.Errorf("mixin %s has no marked methods", rt)
		}
		return nil
	})
}

// Built is a finished schema with the runtime executing it.
type Built struct {
	Schema  *schema.Schema
	Runtime *Runtime
	AST     *ast.Schema

	exec *executor.Executor
}

// SDL renders the schema.
func (b *Built) SDL() string { return schema.Render(b.Schema) }

// Execute parses, validates and runs one operation.
func (b *Built) Execute(ctx context.Context, query, operationName string, variables map[string]any) *executor.ExecutionResult {
	doc, err := language.LoadQuery(b.AST, query)
	if err != nil {
		return &executor.ExecutionResult{Errors: queryErrors(err)}
	}
	return b.exec.ExecuteRequest(ctx, doc, operationName, variables, nil)
}

func queryErrors(err error) []executor.GraphQLError {
	var list gqlerror.List
	if errors.As(err, &list) {
		out := make([]executor.GraphQLError, len(list))
		for i, e := range list {
			out[i] = executor.GraphQLError{Message: e.Message}
		}
		return out
	}
	return []executor.GraphQLError{{Message: err.Error()}}
}
