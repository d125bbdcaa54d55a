package executor_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	executor "github.com/hanpama/typegraph/internal/executor"
	language "github.com/hanpama/typegraph/internal/language"
	schema "github.com/hanpama/typegraph/internal/schema"
)

type resolver func(ctx context.Context, source any, args map[string]any) (any, error)

func value(v any) resolver {
	return func(context.Context, any, map[string]any) (any, error) { return v, nil }
}

func failing(err error) resolver {
	return func(context.Context, any, map[string]any) (any, error) { return nil, err }
}

// fakeRuntime resolves "Type.field" through its resolvers, projecting
// map sources for fields without one. It records every call.
type fakeRuntime struct {
	resolvers map[string]resolver
	typeOf    func(abstract string, v any) (string, error)
	serialize func(typ string, v any) (any, error)

	mu        sync.Mutex
	syncCalls []string
	batches   [][]string
	tasks     []executor.AsyncResolveTask
}

func newRuntime(resolvers map[string]resolver) *fakeRuntime {
	if resolvers == nil {
		resolvers = map[string]resolver{}
	}
	return &fakeRuntime{resolvers: resolvers}
}

func (r *fakeRuntime) call(ctx context.Context, objectType, field string, source any, args map[string]any) (any, error) {
	if res, ok := r.resolvers[objectType+"."+field]; ok {
		return res(ctx, source, args)
	}
	if m, ok := source.(map[string]any); ok {
		return m[field], nil
	}
	return nil, fmt.Errorf("no resolver for %s.%s", objectType, field)
}

func (r *fakeRuntime) ResolveSync(ctx context.Context, objectType, field string, source any, args map[string]any) (any, error) {
	r.mu.Lock()
	r.syncCalls = append(r.syncCalls, objectType+"."+field)
	r.mu.Unlock()
	return r.call(ctx, objectType, field, source, args)
}

func (r *fakeRuntime) BatchResolveAsync(ctx context.Context, tasks []executor.AsyncResolveTask) []executor.AsyncResolveResult {
	keys := make([]string, len(tasks))
	out := make([]executor.AsyncResolveResult, len(tasks))
	for i, task := range tasks {
		keys[i] = task.ObjectType + "." + task.Field
		out[i].Value, out[i].Error = r.call(ctx, task.ObjectType, task.Field, task.Source, task.Args)
	}
	r.mu.Lock()
	r.batches = append(r.batches, keys)
	r.tasks = append(r.tasks, tasks...)
	r.mu.Unlock()
	return out
}

func (r *fakeRuntime) ResolveType(_ context.Context, abstract string, v any) (string, error) {
	if r.typeOf != nil {
		return r.typeOf(abstract, v)
	}
	if m, ok := v.(map[string]any); ok {
		if name, ok := m["__typename"].(string); ok {
			return name, nil
		}
	}
	return "", fmt.Errorf("cannot tell the type of %v", v)
}

func (r *fakeRuntime) SerializeLeafValue(_ context.Context, typ string, v any) (any, error) {
	if r.serialize != nil {
		return r.serialize(typ, v)
	}
	return v, nil
}

func named(name string) *schema.TypeRef         { return schema.NamedType(name) }
func nonNull(t *schema.TypeRef) *schema.TypeRef { return schema.NonNullType(t) }
func listOf(t *schema.TypeRef) *schema.TypeRef  { return schema.ListType(t) }

func field(name string, typ *schema.TypeRef) *schema.Field { return schema.NewField(name, "", typ) }

func asyncField(name string, typ *schema.TypeRef) *schema.Field {
	return schema.NewField(name, "", typ).SetAsync(true)
}

func object(name string, fields ...*schema.Field) *schema.Type {
	t := schema.NewType(name, schema.TypeKindObject, "")
	for _, f := range fields {
		t.AddField(f)
	}
	return t
}

func newSchema(query *schema.Type, types ...*schema.Type) *schema.Schema {
	s := schema.NewSchema("").AddType(query).SetQueryType(query.Name)
	for _, t := range types {
		s.AddType(t)
	}
	return s
}

func execute(t *testing.T, ctx context.Context, s *schema.Schema, rt executor.Runtime, query string, vars map[string]any) *executor.ExecutionResult {
	t.Helper()
	doc, err := language.ParseQuery(query)
	require.NoError(t, err)
	return executor.NewExecutor(rt, s).ExecuteRequest(ctx, doc, "", vars, nil)
}

func run(t *testing.T, s *schema.Schema, rt executor.Runtime, query string) *executor.ExecutionResult {
	t.Helper()
	return execute(t, t.Context(), s, rt, query, nil)
}

func requireData(t *testing.T, want any, res *executor.ExecutionResult) {
	t.Helper()
	require.Empty(t, res.Errors)
	if diff := cmp.Diff(want, res.Data); diff != "" {
		t.Fatalf("data mismatch (-want +got):\n%s", diff)
	}
}

func messages(res *executor.ExecutionResult) []string {
	out := make([]string, len(res.Errors))
	for i, e := range res.Errors {
		out[i] = e.Message
	}
	return out
}
