package mapping

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/hanpama/typegraph/internal/eventbus"
	"github.com/hanpama/typegraph/internal/events"
	"github.com/hanpama/typegraph/internal/executor"
	"github.com/hanpama/typegraph/internal/schema"
)

// Runtime executes the field suppliers and value hooks of a built schema.
// It implements executor.Runtime and is safe for concurrent use once the
// build has finished.
type Runtime struct {
	log     logrus.FieldLogger
	schema  *schema.Schema
	fields  map[string]map[string]Supplier
	objects map[string]reflect.Type
	scalars map[string]*ScalarDef
	enums   map[string]*enumBinding

	dispatch sync.Map // dispatchKey -> string
	seq      atomic.Uint64
}

var _ executor.Runtime = (*Runtime)(nil)

type dispatchKey struct {
	abstract string
	rt       reflect.Type
}

func newRuntime(log logrus.FieldLogger) *Runtime {
	return &Runtime{
		log:     log,
		fields:  make(map[string]map[string]Supplier),
		objects: make(map[string]reflect.Type),
		scalars: make(map[string]*ScalarDef),
		enums:   make(map[string]*enumBinding),
	}
}

func (r *Runtime) bindField(typeName, field string, s Supplier) {
	m, ok := r.fields[typeName]
	if !ok {
		m = make(map[string]Supplier)
		r.fields[typeName] = m
	}
	m[field] = s
}

func (r *Runtime) bindObject(name string, rt reflect.Type) { r.objects[name] = rt }
func (r *Runtime) bindScalar(def *ScalarDef)               { r.scalars[def.Name] = def }
func (r *Runtime) bindEnum(name string, b *enumBinding)    { r.enums[name] = b }

func (r *Runtime) ResolveSync(ctx context.Context, objectType string, field string, source any, args map[string]any) (any, error) {
	return r.invoke(ctx, objectType, field, source, args, false)
}

// BatchResolveAsync resolves the tasks of one depth concurrently.
func (r *Runtime) BatchResolveAsync(ctx context.Context, tasks []executor.AsyncResolveTask) []executor.AsyncResolveResult {
	results := make([]executor.AsyncResolveResult, len(tasks))
	var wg sync.WaitGroup
	for i, t := range tasks {
		wg.Add(1)
		go func(i int, t executor.AsyncResolveTask) {
			defer wg.Done()
			v, err := r.invoke(ctx, t.ObjectType, t.Field, t.Source, t.Args, true)
			results[i] = executor.AsyncResolveResult{Value: v, Error: err}
		}(i, t)
	}
	wg.Wait()
	return results
}

func (r *Runtime) invoke(ctx context.Context, objectType, field string, source any, args map[string]any, async bool) (v any, err error) {
	s, ok := r.fields[objectType][field]
	if !ok {
		return nil, fmt.Errorf("no supplier bound for %s.%s", objectType, field)
	}
	id := r.seq.Add(1)
	start := time.Now()
	eventbus.Publish(ctx, events.FieldResolveStart{ID: id, ObjectType: objectType, Field: field, Async: async})
	defer func() {
		if p := recover(); p != nil {
			r.log.WithFields(logrus.Fields{"type": objectType, "field": field, "panic": p}).Error("field supplier panicked")
			v, err = nil, fmt.Errorf("resolving %s.%s panicked: %v", objectType, field, p)
		}
		eventbus.Publish(ctx, events.FieldResolveFinish{
			ID:         id,
			ObjectType: objectType,
			Field:      field,
			Async:      async,
			Err:        err,
			Duration:   time.Since(start),
		})
	}()
	return s(&Env{Context: ctx, ObjectType: objectType, Field: field, Source: source, Args: args})
}

// ResolveType finds the object type of value among the possible types of
// abstractType: the exact Go type first, then its pointer or value form,
// then the most shallowly embedded struct.
func (r *Runtime) ResolveType(ctx context.Context, abstractType string, value any) (string, error) {
	if value == nil {
		return "", fmt.Errorf("cannot resolve the type of a nil %s", abstractType)
	}
	rt := reflect.TypeOf(value)
	key := dispatchKey{abstract: abstractType, rt: rt}
	if name, ok := r.dispatch.Load(key); ok {
		return name.(string), nil
	}
	abs, ok := r.schema.Types[abstractType]
	if !ok {
		return "", fmt.Errorf("unknown abstract type %s", abstractType)
	}
	name, ok := r.match(abs, rt)
	if !ok {
		return "", fmt.Errorf("Go type %s is not a possible type of %s", rt, abstractType)
	}
	r.dispatch.Store(key, name)
	return name, nil
}

func (r *Runtime) match(abs *schema.Type, rt reflect.Type) (string, bool) {
	base := rt
	for base.Kind() == reflect.Pointer {
		base = base.Elem()
	}
	for _, name := range abs.PossibleTypes {
		if r.objects[name] == base {
			return name, true
		}
	}
	if base.Kind() != reflect.Struct {
		return "", false
	}
	level := []reflect.Type{base}
	seen := map[reflect.Type]bool{base: true}
	for len(level) > 0 {
		var next []reflect.Type
		for _, t := range level {
			for i := 0; i < t.NumField(); i++ {
				f := t.Field(i)
				if !f.Anonymous {
					continue
				}
				ft := f.Type
				if ft.Kind() == reflect.Pointer {
					ft = ft.Elem()
				}
				if ft.Kind() != reflect.Struct || seen[ft] {
					continue
				}
				seen[ft] = true
				for _, name := range abs.PossibleTypes {
					if r.objects[name] == ft {
						return name, true
					}
				}
				next = append(next, ft)
			}
		}
		level = next
	}
	return "", false
}

// SerializeLeafValue applies the scalar or enum hooks of typeName.
func (r *Runtime) SerializeLeafValue(ctx context.Context, typeName string, value any) (any, error) {
	v := indirect(value)
	if v == nil {
		return nil, nil
	}
	if def, ok := r.scalars[typeName]; ok {
		return def.Serialize(v)
	}
	if b, ok := r.enums[typeName]; ok {
		return b.serialize(v)
	}
	return nil, fmt.Errorf("%s is not a leaf type", typeName)
}
