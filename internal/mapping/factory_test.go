package mapping_test

import (
	"errors"
	"reflect"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/hanpama/typegraph/internal/mapping"
	"github.com/hanpama/typegraph/internal/schema"
	"github.com/hanpama/typegraph/internal/typeinfo"
)

type Entity interface{ EntityID() string }

type ImplA struct {
	typeinfo.Object `graphql:"ImplA"`
	ID              string
}

func (a ImplA) EntityID() string { return a.ID }

type ImplB struct {
	typeinfo.Object `graphql:"ImplB"`
	ID              string
	Extra           int `graphql:"extra"`
}

func (b ImplB) EntityID() string { return b.ID }

// TypeA and TypeB share no supertype but any.
type TypeA string
type TypeB string

func NewImplA(src TypeA) ImplA  { return ImplA{ID: string(src)} }
func NewImplB(src TypeB) *ImplB { return &ImplB{ID: string(src), Extra: 10} }

type entityQuery struct{}

func (entityQuery) Entity(id string) any { return TypeA(id) }
func (entityQuery) Entities() []any      { return []any{TypeA("v0"), TypeB("v1")} }

func (entityQuery) GraphQLMethods() map[string]reflect.StructTag {
	return map[string]reflect.StructTag{
		"Entity":   `graphql:"entity" args:"id"`,
		"Entities": `graphql:"entities"`,
	}
}

func entityUniverse() *typeinfo.Universe {
	return typeinfo.NewUniverse().
		Declare(typeinfo.TypeOf[Entity](), typeinfo.Declaration{
			Tag:     `graphql:"Entity" kind:"interface"`,
			Methods: map[string]reflect.StructTag{"EntityID": `graphql:"id"`},
		}).
		Factory(NewImplA, "@source").
		Factory(NewImplB, "@source")
}

func TestInterfaceFactories(t *testing.T) {
	built := build(t, mapping.New(entityUniverse(), mapping.WithLogger(quietLogger())).Query(entityQuery{}))

	entity := built.Schema.Types["Entity"]
	require.NotNil(t, entity)
	require.Equal(t, schema.TypeKindInterface, entity.Kind)
	require.ElementsMatch(t, []string{"ImplA", "ImplB"}, entity.PossibleTypes)
	require.Equal(t, []string{"Entity"}, built.Schema.Types["ImplB"].Interfaces)

	query := built.Schema.Types[mapping.QueryTypeName]
	if diff := cmp.Diff(schema.NamedType("Entity"), query.FieldByName("entity").Type); diff != "" {
		t.Errorf("entity type mismatch (-want +got):\n%s", diff)
	}

	t.Run("single source", func(t *testing.T) {
		got := run(t, built, `{ entity(id: "test") { id } }`, nil)
		if diff := cmp.Diff(map[string]any{"entity": map[string]any{"id": "test"}}, got); diff != "" {
			t.Fatalf("result mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("mixed list", func(t *testing.T) {
		got := run(t, built, `{ entities { id ... on ImplB { extra } } }`, nil)
		want := map[string]any{"entities": []any{
			map[string]any{"id": "v0"},
			map[string]any{"id": "v1", "extra": 10},
		}}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("result mismatch (-want +got):\n%s", diff)
		}
	})
}

func TestUserResolverPrecedesDiscoveredConversion(t *testing.T) {
	anyType := typeinfo.TypeOf[any]()
	built := build(t, mapping.New(entityUniverse(), mapping.WithLogger(quietLogger())).
		Query(entityQuery{}).
		Resolver(mapping.Scalar(anyType, mapping.StringScalar)))

	query := built.Schema.Types[mapping.QueryTypeName]
	if diff := cmp.Diff(schema.NamedType("String"), query.FieldByName("entity").Type); diff != "" {
		t.Fatalf("entity type mismatch (-want +got):\n%s", diff)
	}
	got := run(t, built, `{ entity(id: "test") entities }`, nil)
	want := map[string]any{"entity": "test", "entities": []any{"v0", "v1"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("result mismatch (-want +got):\n%s", diff)
	}
}

type Animal interface{ Name() string }

type Dog interface {
	Animal
	Bark() string
}

type poodle struct{ name string }

func (p poodle) Name() string { return p.name }
func (poodle) Bark() string   { return "yap" }

type cat struct{}

func (cat) Name() string { return "tom" }

type Tag struct{ Label string }

type Badge struct {
	Tag
	Color string
}

func NewFromAnimal(a Animal) ImplA { return ImplA{ID: "animal:" + a.Name()} }
func NewFromDog(d Dog) *ImplB      { return &ImplB{ID: "dog:" + d.Name(), Extra: 1} }
func NewFromTag(t *Tag) ImplA      { return ImplA{ID: "tag:" + t.Label} }

type petQuery struct{}

func (petQuery) Pets() []any {
	return []any{poodle{name: "fifi"}, cat{}, &Badge{Tag: Tag{Label: "gold"}}, Tag{Label: "plain"}}
}

func (petQuery) GraphQLMethods() map[string]reflect.StructTag {
	return map[string]reflect.StructTag{"Pets": `graphql:"pets"`}
}

func TestConversionPicksMostSpecificFactory(t *testing.T) {
	u := typeinfo.NewUniverse().
		Declare(typeinfo.TypeOf[Entity](), typeinfo.Declaration{
			Tag:     `graphql:"Entity" kind:"interface"`,
			Methods: map[string]reflect.StructTag{"EntityID": `graphql:"id"`},
		}).
		Factory(NewFromAnimal, "@source").
		Factory(NewFromDog, "@source").
		Factory(NewFromTag, "@source")
	built := build(t, mapping.New(u, mapping.WithLogger(quietLogger())).Query(petQuery{}))

	got := run(t, built, `{ pets { __typename id } }`, nil)
	want := map[string]any{"pets": []any{
		map[string]any{"__typename": "ImplB", "id": "dog:fifi"},
		map[string]any{"__typename": "ImplA", "id": "animal:tom"},
		map[string]any{"__typename": "ImplA", "id": "tag:gold"},
		map[string]any{"__typename": "ImplA", "id": "tag:plain"},
	}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("result mismatch (-want +got):\n%s", diff)
	}
}

type pointerQuery struct{}

func (pointerQuery) Entities() []any {
	a := TypeA("v0")
	return []any{&a, TypeB("v1")}
}

func (pointerQuery) GraphQLMethods() map[string]reflect.StructTag {
	return map[string]reflect.StructTag{"Entities": `graphql:"entities"`}
}

func TestConversionAcceptsPointerSources(t *testing.T) {
	built := build(t, mapping.New(entityUniverse(), mapping.WithLogger(quietLogger())).Query(pointerQuery{}))

	got := run(t, built, `{ entities { id } }`, nil)
	want := map[string]any{"entities": []any{
		map[string]any{"id": "v0"},
		map[string]any{"id": "v1"},
	}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("result mismatch (-want +got):\n%s", diff)
	}
}

type SearchResult interface{ isSearchResult() }

type Hit struct {
	typeinfo.Object `graphql:"Hit"`
	Label           string       `graphql:"label"`
	Next            SearchResult `graphql:"next"`
}

func (Hit) isSearchResult() {}

type searchQuery struct {
	Search SearchResult `graphql:"search"`
}

func TestSelfReferencingUnion(t *testing.T) {
	u := typeinfo.NewUniverse().Declare(typeinfo.TypeOf[SearchResult](), typeinfo.Declaration{
		Tag: `graphql:"SearchResult" kind:"union"`,
	})
	root := searchQuery{Search: Hit{Label: "outer", Next: Hit{Label: "inner"}}}
	built := build(t, mapping.New(u, mapping.WithLogger(quietLogger())).
		Query(root).
		Type(reflect.TypeOf(Hit{})))

	union := built.Schema.Types["SearchResult"]
	require.NotNil(t, union)
	require.Equal(t, []string{"Hit"}, union.PossibleTypes)

	got := run(t, built, `{ search { ... on Hit { label next { ... on Hit { label } } } } }`, nil)
	want := map[string]any{"search": map[string]any{
		"label": "outer",
		"next":  map[string]any{"label": "inner"},
	}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("result mismatch (-want +got):\n%s", diff)
	}
}

func TestEmptyUnionFails(t *testing.T) {
	u := typeinfo.NewUniverse().Declare(typeinfo.TypeOf[SearchResult](), typeinfo.Declaration{
		Tag: `graphql:"SearchResult" kind:"union"`,
	})
	_, err := mapping.New(u).Query(searchQuery{}).Build()
	require.ErrorContains(t, err, "union SearchResult has no member types")
}

func TestInvalidFactory(t *testing.T) {
	u := typeinfo.NewUniverse().Factory(func(a, b TypeA) ImplA { return ImplA{} }, "@source,@source")
	_, err := mapping.New(u).Query(entityQuery{}).Build()
	var me *mapping.MappingError
	require.True(t, errors.As(err, &me))
	require.Equal(t, "invalid factory", me.Message)
	require.ErrorContains(t, err, "more than one @source")
}

func NewFailing(src TypeB) (*ImplB, error) { return nil, errors.New("boom") }

type failingQuery struct{}

func (failingQuery) Item() TypeB { return "x" }

func (failingQuery) GraphQLMethods() map[string]reflect.StructTag {
	return map[string]reflect.StructTag{"Item": `graphql:"item"`}
}

func TestFactoryFailureKeepsCause(t *testing.T) {
	u := typeinfo.NewUniverse().Factory(NewFailing, "@source")
	built := build(t, mapping.New(u, mapping.WithLogger(quietLogger())).Query(failingQuery{}))

	res := built.Execute(t.Context(), `{ item { extra } }`, "", nil)
	require.NotEmpty(t, res.Errors)
	require.Contains(t, res.Errors[0].Message, "boom")
}
