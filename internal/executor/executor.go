package executor

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	language "github.com/hanpama/typegraph/internal/language"
	schema "github.com/hanpama/typegraph/internal/schema"
)

type Executor struct {
	runtime Runtime
	schema  *schema.Schema
}

func NewExecutor(runtime Runtime, schema *schema.Schema) *Executor {
	return &Executor{runtime: runtime, schema: schema}
}

// execution is the state of one request.
type execution struct {
	ctx      context.Context
	runtime  Runtime
	schema   *schema.Schema
	document *language.QueryDocument
	vars     map[string]any

	pending []pendingField
	errors  []GraphQLError
	// errored holds the keys of paths with a recorded error.
	errored map[string]bool
	// nulled holds the keys of paths set to null after they were queued
	// under; pending fields below them are dropped.
	nulled map[string]bool
}

// pendingField is an async field waiting for the next batch.
type pendingField struct {
	task     AsyncResolveTask
	path     Path
	boundary Path
	typ      *schema.TypeRef
	fields   []*language.Field
}

// pending marks a response slot filled by a later batch.
type pending struct{}

// ExecuteRequest runs one operation of document. Synchronous fields expand
// immediately; async fields are collected per depth and handed to
// Runtime.BatchResolveAsync in one call before the next depth starts.
func (x *Executor) ExecuteRequest(
	ctx context.Context,
	document *language.QueryDocument,
	operationName string,
	variableValues map[string]any,
	initialValue any,
) *ExecutionResult {
	op, err := selectOperation(document, operationName)
	if err != nil {
		return requestError(err)
	}
	vars, err := coercer{x.schema}.variables(op, variableValues)
	if err != nil {
		return requestError(err)
	}
	root, err := x.rootType(op.Operation)
	if err != nil {
		return requestError(err)
	}

	e := &execution{
		ctx:      ctx,
		runtime:  x.runtime,
		schema:   x.schema,
		document: document,
		vars:     vars,
		errored:  make(map[string]bool),
		nulled:   make(map[string]bool),
	}
	data := e.selectionSet(root, op.SelectionSet, initialValue, nil, nil)
	for len(e.pending) > 0 {
		e.flush(data)
	}
	return &ExecutionResult{Data: data, Errors: e.errors}
}

func requestError(err error) *ExecutionResult {
	return &ExecutionResult{Errors: []GraphQLError{{Message: err.Error()}}}
}

func (x *Executor) rootType(op language.Operation) (*schema.Type, error) {
	var t *schema.Type
	switch op {
	case language.Query:
		t = x.schema.GetQueryType()
	case language.Mutation:
		t = x.schema.GetMutationType()
	case language.Subscription:
		t = x.schema.GetSubscriptionType()
	default:
		return nil, fmt.Errorf("unsupported operation type: %s", op)
	}
	if t == nil {
		return nil, fmt.Errorf("root type not found for %s operation", op)
	}
	return t, nil
}

func selectOperation(document *language.QueryDocument, name string) (*language.OperationDefinition, error) {
	if name == "" && len(document.Operations) == 1 {
		return document.Operations[0], nil
	}
	for _, op := range document.Operations {
		if op.Name == name {
			return op, nil
		}
	}
	return nil, errors.New("operation not found")
}

// selectionSet executes the selection set of one object. It returns nil when
// a non-null field below the object is null; root fields are the exception
// and only null themselves. boundary is the nearest nullable position at or
// above the object.
func (e *execution) selectionSet(objectType *schema.Type, set language.SelectionSet, source any, path, boundary Path) map[string]any {
	out := make(map[string]any)
	for _, group := range e.collect(objectType, set) {
		name := group.fields[0].Name
		fieldPath := path.With(group.responseName)
		if name == "__typename" {
			out[group.responseName] = objectType.Name
			continue
		}
		def := objectType.FieldByName(name)
		if def == nil {
			e.fail(fieldPath, fmt.Errorf("Cannot query field '%s' on type '%s'", name, objectType.Name))
			continue
		}

		fieldBoundary := boundary
		if len(path) == 0 || !schema.IsNonNull(def.Type) {
			fieldBoundary = fieldPath
		}
		v := e.field(objectType, def, source, group.fields, fieldPath, fieldBoundary)
		if isNullish(v) {
			if len(path) > 0 && schema.IsNonNull(def.Type) {
				e.nulled[path.String()] = true
				return nil
			}
			v = nil
		}
		out[group.responseName] = v
	}
	return out
}

// field resolves and completes one field, or queues it when it is async.
func (e *execution) field(objectType *schema.Type, def *schema.Field, source any, fields []*language.Field, path, boundary Path) any {
	args := e.arguments(def, fields[0].Arguments, path)
	if def.Async {
		e.pending = append(e.pending, pendingField{
			task: AsyncResolveTask{
				ObjectType: objectType.Name,
				Field:      def.Name,
				Source:     source,
				Args:       args,
			},
			path:     path,
			boundary: boundary,
			typ:      def.Type,
			fields:   fields,
		})
		return pending{}
	}
	v, err := e.resolve(objectType.Name, def.Name, source, args)
	if err != nil {
		e.fail(path, err)
		v = nil
	}
	return e.complete(def.Type, fields, v, path, boundary)
}

func (e *execution) resolve(objectType, field string, source any, args map[string]any) (v any, err error) {
	if err := e.ctx.Err(); err != nil {
		return nil, err
	}
	defer func() {
		if p := recover(); p != nil {
			v, err = nil, fmt.Errorf("panic resolving %s.%s: %v", objectType, field, p)
		}
	}()
	return e.runtime.ResolveSync(e.ctx, objectType, field, source, args)
}

// flush resolves every queued async field in one batch and completes the
// results into data. Completion may queue the next depth.
func (e *execution) flush(data map[string]any) {
	queued := make([]pendingField, 0, len(e.pending))
	for _, p := range e.pending {
		if !e.isNulled(p.path) {
			queued = append(queued, p)
		}
	}
	e.pending = nil
	if len(queued) == 0 {
		return
	}

	results := e.batch(queued)
	for i, p := range queued {
		if e.isNulled(p.path) {
			continue
		}
		r := results[i]
		var v any
		if r.Error != nil {
			e.fail(p.path, r.Error)
		} else {
			v = e.complete(p.typ, p.fields, r.Value, p.path, p.boundary)
		}
		if isNullish(v) && schema.IsNonNull(p.typ) {
			setAt(data, p.boundary, nil)
			e.nulled[p.boundary.String()] = true
			continue
		}
		if isNullish(v) {
			v = nil
		}
		setAt(data, p.path, v)
	}
}

// batch calls the runtime once for queued. A cancelled context, a panic or a
// short result slice fails every task of the batch.
func (e *execution) batch(queued []pendingField) (results []AsyncResolveResult) {
	failAll := func(err error) []AsyncResolveResult {
		out := make([]AsyncResolveResult, len(queued))
		for i := range out {
			out[i].Error = err
		}
		return out
	}
	if err := e.ctx.Err(); err != nil {
		return failAll(err)
	}
	defer func() {
		if p := recover(); p != nil {
			results = failAll(fmt.Errorf("panic resolving batch: %v", p))
		}
	}()

	tasks := make([]AsyncResolveTask, len(queued))
	for i, p := range queued {
		tasks[i] = p.task
	}
	results = e.runtime.BatchResolveAsync(e.ctx, tasks)
	if len(results) != len(tasks) {
		return failAll(fmt.Errorf("runtime returned %d results for %d tasks", len(results), len(tasks)))
	}
	return results
}

// complete turns a resolved value into its response shape for typ.
// boundary is the path nulled when a non-null position below ends up null.
func (e *execution) complete(typ *schema.TypeRef, fields []*language.Field, v any, path, boundary Path) any {
	if schema.IsNonNull(typ) {
		if isNullish(v) {
			if !e.errored[path.String()] {
				e.fail(path, fmt.Errorf("Cannot return null for non-nullable field %s", path))
			}
			return nil
		}
		return e.complete(schema.Unwrap(typ), fields, v, path, boundary)
	}
	if isNullish(v) {
		return nil
	}
	if schema.IsList(typ) {
		return e.completeList(typ, fields, v, path, boundary)
	}

	name := schema.GetNamedType(typ)
	t := e.schema.Types[name]
	if t == nil {
		e.fail(path, fmt.Errorf("Unknown type: %s", name))
		return nil
	}
	switch t.Kind {
	case schema.TypeKindScalar, schema.TypeKindEnum:
		out, err := e.runtime.SerializeLeafValue(e.ctx, name, v)
		if err != nil {
			e.fail(path, err)
			return nil
		}
		return out
	case schema.TypeKindObject:
		return e.selectionSet(t, mergeSelections(fields), v, path, boundary)
	case schema.TypeKindInterface, schema.TypeKindUnion:
		concrete, err := e.runtime.ResolveType(e.ctx, name, v)
		if err != nil {
			e.fail(path, err)
			return nil
		}
		ot := e.schema.Types[concrete]
		if ot == nil || ot.Kind != schema.TypeKindObject {
			e.fail(path, fmt.Errorf("Abstract type %s must resolve to an Object type at runtime. Got: %s", name, concrete))
			return nil
		}
		return e.selectionSet(ot, mergeSelections(fields), v, path, boundary)
	}
	e.fail(path, fmt.Errorf("Cannot complete value of unexpected type: %s", t.Kind))
	return nil
}

func (e *execution) completeList(typ *schema.TypeRef, fields []*language.Field, v any, path, boundary Path) any {
	items, ok := v.([]any)
	if !ok {
		rv := reflect.ValueOf(v)
		if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
			e.fail(path, fmt.Errorf("Expected list value, got %T", v))
			return nil
		}
		items = make([]any, rv.Len())
		for i := range items {
			items[i] = rv.Index(i).Interface()
		}
	}

	elem := schema.Unwrap(typ)
	out := make([]any, len(items))
	for i, item := range items {
		itemPath := path.With(i)
		itemBoundary := boundary
		if !schema.IsNonNull(elem) {
			itemBoundary = itemPath
		}
		c := e.complete(elem, fields, item, itemPath, itemBoundary)
		if isNullish(c) {
			if schema.IsNonNull(elem) {
				e.nulled[path.String()] = true
				return nil
			}
			c = nil
		}
		out[i] = c
	}
	return out
}

// fail records err at path. Errors exposing Extensions() carry them over.
func (e *execution) fail(path Path, err error) {
	ge := GraphQLError{Message: err.Error(), Path: path}
	var gqlErr GraphQLError
	var ext interface{ Extensions() map[string]any }
	switch {
	case errors.As(err, &gqlErr):
		ge.Message, ge.Extensions = gqlErr.Message, gqlErr.Extensions
	case errors.As(err, &ext):
		ge.Extensions = ext.Extensions()
	}
	e.errors = append(e.errors, ge)
	e.errored[path.String()] = true
}

func (e *execution) isNulled(p Path) bool {
	if len(e.nulled) == 0 {
		return false
	}
	for i := 1; i <= len(p); i++ {
		if e.nulled[p[:i].String()] {
			return true
		}
	}
	return false
}

// setAt writes v at path inside data. Writes below a slot that is no longer
// an object or list are dropped.
func setAt(data map[string]any, path Path, v any) {
	if len(path) == 0 {
		return
	}
	var cur any = data
	for _, elem := range path[:len(path)-1] {
		switch k := elem.(type) {
		case string:
			m, ok := cur.(map[string]any)
			if !ok {
				return
			}
			cur = m[k]
		case int:
			s, ok := cur.([]any)
			if !ok || k >= len(s) {
				return
			}
			cur = s[k]
		}
	}
	switch k := path[len(path)-1].(type) {
	case string:
		if m, ok := cur.(map[string]any); ok {
			m[k] = v
		}
	case int:
		if s, ok := cur.([]any); ok && k < len(s) {
			s[k] = v
		}
	}
}

// isNullish is true for nil and for typed nil pointers, maps, slices,
// interfaces, funcs and channels.
func isNullish(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Interface, reflect.Pointer, reflect.Slice, reflect.Map, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
