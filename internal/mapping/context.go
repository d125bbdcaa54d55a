package mapping

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync/atomic"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/hanpama/typegraph/internal/eventbus"
	"github.com/hanpama/typegraph/internal/events"
	"github.com/hanpama/typegraph/internal/naming"
	"github.com/hanpama/typegraph/internal/schema"
	"github.com/hanpama/typegraph/internal/typeinfo"
)

// Context is the state of one schema build: the resolver registry, the name
// registry, memoized mappings per Go type and direction, and the arena of
// named schema types. It is not safe for concurrent use.
type Context struct {
	goCtx      context.Context
	universe   *typeinfo.Universe
	registry   *Registry
	names      *naming.Registry
	log        logrus.FieldLogger
	instances  typeinfo.Instances
	params     []ParameterResolver
	directives map[string]DirectiveResolver
	validate   *validator.Validate
	runtime    *Runtime

	outputs map[reflect.Type]Resolved
	inputs  map[reflect.Type]Resolved
	pending map[cacheKey]*pending

	types     map[string]*schema.Type
	typeOrder []string
	known     []typeinfo.Type
	knownSet  map[reflect.Type]bool
	mixins    map[reflect.Type][]mixin

	trail      *Breadcrumb
	resolvedBy any
}

type cacheKey struct {
	rt    reflect.Type
	input bool
}

type nameOwner struct {
	rt    reflect.Type
	input bool
}

// pending forwards to a conversion published after the resolver of a
// recursive type returns.
type pending struct {
	conv atomic.Pointer[Conversion]
}

func (p *pending) publish(c Conversion) { p.conv.Store(&c) }

func (p *pending) call(env *Env, v any) (any, error) {
	c := p.conv.Load()
	if c == nil || *c == nil {
		return v, nil
	}
	return (*c)(env, v)
}

func newContext(ctx context.Context, u *typeinfo.Universe, reg *Registry, log logrus.FieldLogger) *Context {
	return &Context{
		goCtx:      ctx,
		universe:   u,
		registry:   reg,
		names:      naming.NewRegistry(),
		log:        log,
		instances:  typeinfo.ZeroInstances{},
		directives: make(map[string]DirectiveResolver),
		validate:   validator.New(),
		runtime:    newRuntime(log),
		outputs:    make(map[reflect.Type]Resolved),
		inputs:     make(map[reflect.Type]Resolved),
		pending:    make(map[cacheKey]*pending),
		types:      make(map[string]*schema.Type),
		knownSet:   make(map[reflect.Type]bool),
		mixins:     make(map[reflect.Type][]mixin),
	}
}

func (c *Context) Universe() *typeinfo.Universe { return c.universe }
func (c *Context) Logger() logrus.FieldLogger   { return c.log }
func (c *Context) Runtime() *Runtime            { return c.runtime }

// Describe returns the descriptor of rt in the build's universe.
func (c *Context) Describe(rt reflect.Type) typeinfo.Type { return c.universe.Describe(rt) }

// UsageType describes rt as referenced by a member with markers ms.
func (c *Context) UsageType(rt reflect.Type, ms typeinfo.Markers) typeinfo.Type {
	t := c.universe.Describe(rt)
	for _, mk := range ms {
		if mk.Kind == typeinfo.KindNonNull || mk.Kind == typeinfo.KindNullable {
			t = t.WithUsage(mk)
		}
	}
	return t
}

// ResolveOutput maps t to an output type. It fails when no resolver
// produces a mapping.
func (c *Context) ResolveOutput(t typeinfo.Type) (Resolved, error) {
	r, err := c.resolve(t, false)
	if err != nil {
		return Resolved{}, err
	}
	if !r.Present() {
		return Resolved{}, c.Errorf("no output mapping for Go type %s", t)
	}
	return r, nil
}

// MaybeResolveOutput is ResolveOutput for callers that tolerate types with
// no schema representation; it returns Absent instead of failing.
func (c *Context) MaybeResolveOutput(t typeinfo.Type) (Resolved, error) {
	return c.resolve(t, false)
}

func (c *Context) ResolveInput(t typeinfo.Type) (Resolved, error) {
	r, err := c.resolve(t, true)
	if err != nil {
		return Resolved{}, err
	}
	if !r.Present() {
		return Resolved{}, c.Errorf("no input mapping for Go type %s", t)
	}
	return r, nil
}

func (c *Context) MaybeResolveInput(t typeinfo.Type) (Resolved, error) {
	return c.resolve(t, true)
}

func (c *Context) resolve(t typeinfo.Type, input bool) (Resolved, error) {
	if t.IsZero() {
		return Resolved{}, c.Errorf("cannot map a nil type")
	}
	key := t.Canonical()
	cache := c.outputs
	if input {
		cache = c.inputs
	}
	if r, ok := cache[key.Reflect()]; ok {
		return c.applyUsage(t, r), nil
	}

	var r Resolved
	err := c.Breadcrumb(TypeCrumb(key), func() error {
		enc := &Encounter{ctx: c, Type: key, Input: input}
		var err error
		if input {
			if res := c.registry.Input(key); res != nil {
				r, err = res.ResolveInput(enc)
			}
		} else {
			if res := c.registry.Output(key); res != nil {
				r, err = res.ResolveOutput(enc)
			}
		}
		return err
	})
	if err != nil {
		return Resolved{}, err
	}

	ck := cacheKey{rt: key.Reflect(), input: input}
	if p, ok := c.pending[ck]; ok {
		delete(c.pending, ck)
		if !r.Present() {
			return Resolved{}, c.Errorf("resolver registered a schema type for %s but produced no mapping", key)
		}
		p.publish(r.convert)
	}
	if !r.Present() {
		return Absent(), nil
	}
	cache[key.Reflect()] = r

	by := fmt.Sprintf("%T", c.resolvedBy)
	c.log.WithFields(logrus.Fields{
		"goType":   key.String(),
		"input":    input,
		"graphql":  r.Type.GetNamedType(),
		"resolver": by,
	}).Debug("mapped type")
	eventbus.Publish(c.goCtx, events.TypeResolved{
		GoType:   key.String(),
		Input:    input,
		GraphQL:  r.Type.GetNamedType(),
		Resolver: by,
	})
	return c.applyUsage(t, r), nil
}

// applyUsage wraps r in NON_NULL when the usage site demands it: always for
// an explicit nonnull marker, and for non-nillable Go kinds unless the
// mapping can represent null itself.
func (c *Context) applyUsage(t typeinfo.Type, r Resolved) Resolved {
	if t.Usage().Has(typeinfo.KindNonNull) || (t.NonNull() && !r.nullable) {
		return r.NonNull()
	}
	return r
}

func (c *Context) shell(e *Encounter, kind schema.TypeKind, description string) (*schema.Type, Resolved, error) {
	name, err := c.TypeName(e.Type, e.Input)
	if err != nil {
		return nil, Resolved{}, err
	}
	ck := cacheKey{rt: e.Type.Reflect(), input: e.Input}
	cache := c.outputs
	if e.Input {
		cache = c.inputs
	}
	if typ, ok := c.types[name]; ok {
		if ph, ok := cache[ck.rt]; ok {
			return typ, ph, nil
		}
		return nil, Resolved{}, c.Errorf("schema type %s is already registered", name)
	}
	typ := schema.NewType(name, kind, description)
	c.AddType(typ)
	p := &pending{}
	ph := Named(name).WithConversion(p.call)
	cache[ck.rt] = ph
	c.pending[ck] = p
	return typ, ph, nil
}

// TypeName claims the schema name of t in the given direction.
func (c *Context) TypeName(t typeinfo.Type, input bool) (string, error) {
	name := naming.TypeName(t, input)
	if name == "" {
		return "", c.Errorf("cannot derive a schema name for Go type %s", t)
	}
	if err := c.ClaimTypeName(name, nameOwner{rt: t.Reflect(), input: input}); err != nil {
		return "", err
	}
	return name, nil
}

// ClaimTypeName claims name for an arbitrary comparable owner.
func (c *Context) ClaimTypeName(name string, owner any) error {
	if err := c.names.Claim(name, owner, c.trail); err != nil {
		return c.Wrap(err)
	}
	return nil
}

// RequestTypeName claims a name no Go type owns, such as a root type name.
func (c *Context) RequestTypeName(name string) error {
	if err := c.names.Request(name, c.trail); err != nil {
		return c.Wrap(err)
	}
	return nil
}

func (c *Context) HasTypeName(name string) bool { return c.names.Has(name) }

// Type returns the named schema type registered so far, or nil.
func (c *Context) Type(name string) *schema.Type { return c.types[name] }

// AddType registers a named schema type in the arena.
func (c *Context) AddType(t *schema.Type) {
	if _, ok := c.types[t.Name]; !ok {
		c.typeOrder = append(c.typeOrder, t.Name)
	}
	c.types[t.Name] = t
}

// Discover records t as a candidate implementor of interfaces and unions.
func (c *Context) Discover(t typeinfo.Type) {
	t = t.Canonical()
	if c.knownSet[t.Reflect()] {
		return
	}
	c.knownSet[t.Reflect()] = true
	c.known = append(c.known, t)
}

// FindExtendingTypes lists the discovered types that implement t, in the
// order they were registered or discovered.
func (c *Context) FindExtendingTypes(t typeinfo.Type) []typeinfo.Type {
	var out []typeinfo.Type
	for _, k := range c.known {
		if k.Implements(t) {
			out = append(out, k)
		}
	}
	return out
}

// Breadcrumb runs fn with crumb pushed onto the trail.
func (c *Context) Breadcrumb(crumb Crumb, fn func() error) error {
	saved := c.trail
	c.trail = c.trail.Push(crumb)
	defer func() { c.trail = saved }()
	return fn()
}

// Trail returns the current breadcrumb trail.
func (c *Context) Trail() *Breadcrumb { return c.trail }

// Errorf returns a MappingError at the current trail.
func (c *Context) Errorf(format string, args ...any) error {
	return &MappingError{Message: fmt.Sprintf(format, args...), Trail: c.trail}
}

// ErrorAt returns a MappingError at the current trail wrapping cause.
func (c *Context) ErrorAt(cause error, format string, args ...any) error {
	return &MappingError{Message: fmt.Sprintf(format, args...), Trail: c.trail, Cause: cause}
}

// Wrap attaches the current trail to err unless it already carries one.
func (c *Context) Wrap(err error) error {
	if err == nil {
		return nil
	}
	var me *MappingError
	if errors.As(err, &me) {
		return err
	}
	return &MappingError{Trail: c.trail, Cause: err}
}
