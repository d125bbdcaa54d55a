package executor_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	executor "github.com/hanpama/typegraph/internal/executor"
	language "github.com/hanpama/typegraph/internal/language"
	schema "github.com/hanpama/typegraph/internal/schema"
)

// echoSchema has Query.echo returning its coerced arguments.
func echoSchema() (*schema.Schema, *fakeRuntime) {
	size := schema.NewType("Size", schema.TypeKindEnum, "")
	size.AddEnumValue(schema.NewEnumValue("SMALL", "")).AddEnumValue(schema.NewEnumValue("LARGE", ""))
	filter := schema.NewType("Filter", schema.TypeKindInputObject, "")
	filter.AddInputField(schema.NewInputValue("term", "", nonNull(named("String")))).
		AddInputField(schema.NewInputValue("limit", "", named("Int")).SetDefault(10)).
		AddInputField(schema.NewInputValue("size", "", named("Size")))

	echo := field("echo", named("JSON")).
		AddArgument(schema.NewInputValue("n", "", named("Int"))).
		AddArgument(schema.NewInputValue("f", "", named("Float"))).
		AddArgument(schema.NewInputValue("id", "", named("ID"))).
		AddArgument(schema.NewInputValue("ids", "", listOf(named("ID")))).
		AddArgument(schema.NewInputValue("size", "", named("Size")).SetDefault("SMALL")).
		AddArgument(schema.NewInputValue("filter", "", named("Filter")))
	s := newSchema(object("Query", echo), size, filter, schema.NewType("JSON", schema.TypeKindScalar, ""))
	return s, newRuntime(map[string]resolver{
		"Query.echo": func(_ context.Context, _ any, args map[string]any) (any, error) { return args, nil },
	})
}

func TestArgumentCoercion(t *testing.T) {
	cases := map[string]struct {
		query string
		vars  map[string]any
		want  map[string]any
	}{
		"defaults only": {
			query: `{ echo }`,
			want:  map[string]any{"size": "SMALL"},
		},
		"literals": {
			query: `{ echo(n: 3, f: 2, id: 7, ids: "a", size: LARGE, filter: {term: "x"}) }`,
			want: map[string]any{
				"n": 3, "f": 2.0, "id": "7", "ids": []any{"a"}, "size": "LARGE",
				"filter": map[string]any{"term": "x", "limit": 10},
			},
		},
		"variables": {
			query: `query($n: Int, $filter: Filter) { echo(n: $n, filter: $filter) }`,
			vars: map[string]any{
				"n":      json.Number("4"),
				"filter": map[string]any{"term": "y", "limit": 2.0, "size": "LARGE"},
			},
			want: map[string]any{
				"n": 4, "size": "SMALL",
				"filter": map[string]any{"term": "y", "limit": 2, "size": "LARGE"},
			},
		},
		"omitted variable leaves the argument out": {
			query: `query($size: Size, $n: Int) { echo(size: $size, n: $n) }`,
			want:  map[string]any{"size": "SMALL"},
		},
		"large int literal as float": {
			query: `{ echo(f: 100000000000000000000) }`,
			want:  map[string]any{"f": 1e20, "size": "SMALL"},
		},
		"variable default": {
			query: `query($n: Int = 5) { echo(n: $n) }`,
			want:  map[string]any{"n": 5, "size": "SMALL"},
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			s, rt := echoSchema()
			res := execute(t, t.Context(), s, rt, tc.query, tc.vars)
			requireData(t, map[string]any{"echo": tc.want}, res)
		})
	}
}

func TestArgumentErrors(t *testing.T) {
	cases := map[string]struct {
		query string
		want  string
	}{
		"unknown enum value":       {`{ echo(size: HUGE) }`, `argument 'size' cannot be coerced: "HUGE" is not a value of enum Size`},
		"fractional int":           {`{ echo(n: 1.5) }`, `argument 'n' cannot be coerced: cannot coerce 1.5 (float64) to int`},
		"missing required field":   {`{ echo(filter: {limit: 1}) }`, `argument 'filter' cannot be coerced: required field 'term' of input object Filter was not provided`},
		"unknown input field":      {`{ echo(filter: {term: "x", page: 2}) }`, `argument 'filter' cannot be coerced: field 'page' is not defined by input object Filter`},
		"wrong input object shape": {`{ echo(filter: "x") }`, `argument 'filter' cannot be coerced: input object Filter expects an object, got string`},
		"int literal out of range": {`{ echo(n: 99999999999999999999) }`, `argument 'n' cannot be coerced: cannot coerce 99999999999999999999 (json.Number) to int`},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			s, rt := echoSchema()
			res := run(t, s, rt, tc.query)
			require.Equal(t, []string{tc.want}, messages(res))
			require.Equal(t, executor.Path{"echo"}, res.Errors[0].Path)
		})
	}
}

func TestRequiredArgument(t *testing.T) {
	s := newSchema(object("Query",
		field("get", named("String")).AddArgument(schema.NewInputValue("id", "", nonNull(named("ID")))),
	))
	rt := newRuntime(map[string]resolver{"Query.get": value("x")})
	res := run(t, s, rt, `{ get }`)
	require.Equal(t, []string{"argument 'id' of required type was not provided"}, messages(res))
}

func TestVariableErrors(t *testing.T) {
	cases := map[string]struct {
		query string
		vars  map[string]any
		want  string
	}{
		"missing required": {
			query: `query($n: Int!) { echo(n: $n) }`,
			want:  "variable $n of required type Int! was not provided",
		},
		"null for non-null": {
			query: `query($n: Int!) { echo(n: $n) }`,
			vars:  map[string]any{"n": nil},
			want:  "variable $n of type Int! cannot be null",
		},
		"type mismatch": {
			query: `query($n: Int) { echo(n: $n) }`,
			vars:  map[string]any{"n": "three"},
			want:  "variable $n of type Int cannot be coerced: cannot coerce three (string) to int",
		},
		"null list item": {
			query: `query($ids: [ID!]) { echo(ids: $ids) }`,
			vars:  map[string]any{"ids": []any{"a", nil}},
			want:  "variable $ids of type [ID!] cannot be coerced: cannot provide null for non-null type",
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			s, rt := echoSchema()
			res := execute(t, t.Context(), s, rt, tc.query, tc.vars)
			require.Nil(t, res.Data)
			require.Equal(t, []executor.GraphQLError{{Message: tc.want}}, res.Errors)
			require.Empty(t, rt.syncCalls)
		})
	}
}

func TestOperationSelection(t *testing.T) {
	s := newSchema(object("Query", field("who", named("String"))),
		object("Mutation", field("rename", named("String"))))
	s.SetMutationType("Mutation")
	rt := newRuntime(map[string]resolver{
		"Query.who":       value("query"),
		"Mutation.rename": value("mutation"),
	})
	doc, err := language.ParseQuery(`query A { who } mutation B { rename }`)
	require.NoError(t, err)
	x := executor.NewExecutor(rt, s)

	cases := map[string]struct {
		name string
		data any
		err  string
	}{
		"by name":         {name: "B", data: map[string]any{"rename": "mutation"}},
		"other name":      {name: "A", data: map[string]any{"who": "query"}},
		"unknown name":    {name: "C", err: "operation not found"},
		"ambiguous blank": {name: "", err: "operation not found"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			res := x.ExecuteRequest(t.Context(), doc, tc.name, nil, nil)
			if tc.err != "" {
				require.Equal(t, []string{tc.err}, messages(res))
				return
			}
			requireData(t, tc.data, res)
		})
	}

	t.Run("missing root type", func(t *testing.T) {
		doc, err := language.ParseQuery(`subscription { ticks }`)
		require.NoError(t, err)
		res := x.ExecuteRequest(t.Context(), doc, "", nil, nil)
		require.Equal(t, []string{"root type not found for subscription operation"}, messages(res))
	})

	t.Run("initial value is the root source", func(t *testing.T) {
		doc, err := language.ParseQuery(`{ who }`)
		require.NoError(t, err)
		plain := executor.NewExecutor(newRuntime(nil), s)
		res := plain.ExecuteRequest(t.Context(), doc, "", nil, map[string]any{"who": "root"})
		requireData(t, map[string]any{"who": "root"}, res)
	})
}

func TestPathString(t *testing.T) {
	cases := []struct {
		path executor.Path
		want string
	}{
		{nil, ""},
		{executor.Path{"a"}, "a"},
		{executor.Path{"a", 0, "b"}, "a[0].b"},
		{executor.Path{"a", 1, 2}, "a[1][2]"},
	}
	for _, tc := range cases {
		if diff := cmp.Diff(tc.want, tc.path.String()); diff != "" {
			t.Errorf("Path%v (-want +got):\n%s", []executor.PathElement(tc.path), diff)
		}
	}

	p := executor.Path{"a"}
	q := p.With("b")
	r := p.With("c")
	require.Equal(t, executor.Path{"a", "b"}, q)
	require.Equal(t, executor.Path{"a", "c"}, r)
}
