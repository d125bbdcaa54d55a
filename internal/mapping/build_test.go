package mapping_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/hanpama/typegraph/internal/mapping"
	"github.com/hanpama/typegraph/internal/naming"
	"github.com/hanpama/typegraph/internal/optional"
	"github.com/hanpama/typegraph/internal/schema"
	"github.com/hanpama/typegraph/internal/typeinfo"
)

type Genre string

const (
	GenreSciFi   Genre = "sciFi"
	GenreFantasy Genre = "fantasy"
)

func (Genre) GraphQLTag() reflect.StructTag { return `kind:"enum" desc:"Shelf section"` }
func (Genre) Values() []Genre               { return []Genre{GenreSciFi, GenreFantasy} }

type Book struct {
	typeinfo.Object `desc:"A book on the shelf"`
	Title           string   `graphql:"title"`
	Pages           int      `graphql:"pages"`
	Tags            []string `graphql:"tags"`
	Genre           Genre    `graphql:"genre"`
	Secret          string
}

func (b Book) Summary(prefix string) string { return prefix + b.Title }

func (Book) GraphQLMethods() map[string]reflect.StructTag {
	return map[string]reflect.StructTag{"Summary": `graphql:"summary" args:"prefix"`}
}

type NewBook struct {
	typeinfo.Input `graphql:"NewBook"`
	Title          string `graphql:"title" validate:"required"`
	Pages          int    `graphql:"pages" validate:"gte=1"`
}

type shelf struct {
	books []Book
}

func (s *shelf) Book(title string) *Book {
	for i := range s.books {
		if s.books[i].Title == title {
			return &s.books[i]
		}
	}
	return nil
}

func (s *shelf) Books(genre *Genre) []Book {
	var out []Book
	for _, b := range s.books {
		if genre == nil || b.Genre == *genre {
			out = append(out, b)
		}
	}
	return out
}

func (s *shelf) DoStuff(input int) string { return fmt.Sprintf("stuff %d", input) }

func (s *shelf) GraphQLMethods() map[string]reflect.StructTag {
	return map[string]reflect.StructTag{
		"Book":    `graphql:"book" args:"title"`,
		"Books":   `graphql:"books" args:"genre"`,
		"DoStuff": `graphql:"doStuff" args:"input"`,
	}
}

type shelfMutation struct{ s *shelf }

func (m shelfMutation) AddBook(in NewBook) (*Book, error) {
	b := Book{Title: in.Title, Pages: in.Pages}
	m.s.books = append(m.s.books, b)
	return &b, nil
}

func (shelfMutation) GraphQLMethods() map[string]reflect.StructTag {
	return map[string]reflect.StructTag{"AddBook": `graphql:"addBook" args:"input"`}
}

func newShelf() *shelf {
	return &shelf{books: []Book{
		{Title: "Dune", Pages: 412, Tags: []string{"classic", "sf"}, Genre: GenreSciFi, Secret: "spice"},
		{Title: "Earthsea", Pages: 183, Genre: GenreFantasy},
	}}
}

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetLevel(logrus.WarnLevel)
	return l
}

func build(t *testing.T, b *mapping.SchemaBuilder) *mapping.Built {
	t.Helper()
	built, err := b.Build()
	require.NoError(t, err)
	return built
}

func run(t *testing.T, built *mapping.Built, query string, vars map[string]any) any {
	t.Helper()
	res := built.Execute(context.Background(), query, "", vars)
	require.Empty(t, res.Errors)
	return res.Data
}

func TestRoundTrip(t *testing.T) {
	s := newShelf()
	built := build(t, mapping.New(typeinfo.NewUniverse(), mapping.WithLogger(quietLogger())).Query(s))

	got := run(t, built, `{ book(title: "Dune") { title pages tags genre summary(prefix: "Read ") } }`, nil)
	dune := s.books[0]
	want := map[string]any{"book": map[string]any{
		"title":   dune.Title,
		"pages":   dune.Pages,
		"tags":    []any{"classic", "sf"},
		"genre":   "SCI_FI",
		"summary": dune.Summary("Read "),
	}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("result mismatch (-want +got):\n%s", diff)
	}

	book := built.Schema.Types["Book"]
	require.NotNil(t, book)
	require.Equal(t, "A book on the shelf", book.Description)
	require.Nil(t, book.FieldByName("secret"))

	cases := map[string]*schema.TypeRef{
		"title":   schema.NonNullType(schema.NamedType("String")),
		"pages":   schema.NonNullType(schema.NamedType("Int")),
		"tags":    schema.ListType(schema.NonNullType(schema.NamedType("String"))),
		"genre":   schema.NonNullType(schema.NamedType("Genre")),
		"summary": schema.NonNullType(schema.NamedType("String")),
	}
	for name, want := range cases {
		f := book.FieldByName(name)
		require.NotNil(t, f, name)
		if diff := cmp.Diff(want, f.Type); diff != "" {
			t.Errorf("type of %s mismatch (-want +got):\n%s", name, diff)
		}
	}
	prefix := book.FieldByName("summary").Arguments
	require.Len(t, prefix, 1)
	require.Equal(t, "prefix", prefix[0].Name)

	query := built.Schema.Types[mapping.QueryTypeName]
	if diff := cmp.Diff(schema.NamedType("Book"), query.FieldByName("book").Type); diff != "" {
		t.Errorf("pointer result should stay nullable (-want +got):\n%s", diff)
	}
}

func TestDoStuff(t *testing.T) {
	built := build(t, mapping.New(typeinfo.NewUniverse(), mapping.WithLogger(quietLogger())).Query(newShelf()))

	res := built.Execute(context.Background(), `{ doStuff(input: 10) }`, "", nil)
	require.Empty(t, res.Errors)
	if diff := cmp.Diff(map[string]any{"doStuff": "stuff 10"}, res.Data); diff != "" {
		t.Fatalf("result mismatch (-want +got):\n%s", diff)
	}
}

func TestEnumArgument(t *testing.T) {
	built := build(t, mapping.New(typeinfo.NewUniverse(), mapping.WithLogger(quietLogger())).Query(newShelf()))

	got := run(t, built, `{ fantasy: books(genre: FANTASY) { title } all: books { title } }`, nil)
	want := map[string]any{
		"fantasy": []any{map[string]any{"title": "Earthsea"}},
		"all":     []any{map[string]any{"title": "Dune"}, map[string]any{"title": "Earthsea"}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("result mismatch (-want +got):\n%s", diff)
	}

	genre := built.Schema.Types["Genre"]
	require.NotNil(t, genre)
	require.Equal(t, schema.TypeKindEnum, genre.Kind)
	var names []string
	for _, v := range genre.EnumValues {
		names = append(names, v.Name)
	}
	require.Equal(t, []string{"SCI_FI", "FANTASY"}, names)
}

func TestInputValidation(t *testing.T) {
	s := newShelf()
	built := build(t, mapping.New(typeinfo.NewUniverse(), mapping.WithLogger(quietLogger())).
		Query(s).
		Mutation(shelfMutation{s: s}))

	in := built.Schema.Types["NewBook"]
	require.NotNil(t, in)
	require.Equal(t, schema.TypeKindInputObject, in.Kind)

	t.Run("valid input", func(t *testing.T) {
		got := run(t, built, `mutation { addBook(input: {title: "Emma", pages: 474}) { title pages } }`, nil)
		want := map[string]any{"addBook": map[string]any{"title": "Emma", "pages": 474}}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("result mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("validate tags reject the value", func(t *testing.T) {
		res := built.Execute(context.Background(), `mutation($in: NewBook!) { addBook(input: $in) { title } }`, "",
			map[string]any{"in": map[string]any{"title": "Persuasion", "pages": 0}})
		require.Len(t, res.Errors, 1)
		require.Contains(t, res.Errors[0].Message, "invalid NewBook")
	})
}

type counter struct{}

func (counter) Count(n sql.NullInt64) string {
	if !n.Valid {
		return "invalid"
	}
	return fmt.Sprintf("valid %d", n.Int64)
}

func (counter) Limit(n optional.Value[int]) string { return n.String() }

func (counter) GraphQLMethods() map[string]reflect.StructTag {
	return map[string]reflect.StructTag{
		"Count": `graphql:"count" args:"n"`,
		"Limit": `graphql:"limit" args:"n"`,
	}
}

func TestOptionalArguments(t *testing.T) {
	built := build(t, mapping.New(typeinfo.NewUniverse(), mapping.WithLogger(quietLogger())).Query(counter{}))

	got := run(t, built, `{
		a: count b: count(n: null) c: count(n: 4)
		x: limit y: limit(n: null) z: limit(n: 4)
	}`, nil)
	want := map[string]any{
		"a": "invalid", "b": "invalid", "c": "valid 4",
		"x": "Omitted", "y": "Null", "z": "Some(4)",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("result mismatch (-want +got):\n%s", diff)
	}

	count := built.Schema.Types[mapping.QueryTypeName].FieldByName("count")
	if diff := cmp.Diff(schema.NamedType("Long"), count.Arguments[0].Type); diff != "" {
		t.Errorf("null struct argument should be nullable (-want +got):\n%s", diff)
	}
}

type ReviewInput struct {
	typeinfo.Input
	Note  string        `graphql:"note"`
	Stars sql.NullInt64 `graphql:"stars"`
}

type reviewer struct{}

func (reviewer) Review(in ReviewInput) string {
	if !in.Stars.Valid {
		return in.Note + ": unrated"
	}
	return fmt.Sprintf("%s: %d stars", in.Note, in.Stars.Int64)
}

func (reviewer) GraphQLMethods() map[string]reflect.StructTag {
	return map[string]reflect.StructTag{"Review": `graphql:"review" args:"in"`}
}

func TestNullStructInputField(t *testing.T) {
	built := build(t, mapping.New(typeinfo.NewUniverse(), mapping.WithLogger(quietLogger())).Query(reviewer{}))

	got := run(t, built, `{
		a: review(in: {note: "omitted"})
		b: review(in: {note: "null", stars: null})
		c: review(in: {note: "set", stars: 4})
	}`, nil)
	want := map[string]any{"a": "omitted: unrated", "b": "null: unrated", "c": "set: 4 stars"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("result mismatch (-want +got):\n%s", diff)
	}

	stars := built.Schema.Types["ReviewInput"].InputFields
	require.Len(t, stars, 2)
	if diff := cmp.Diff(schema.NamedType("Long"), stars[1].Type); diff != "" {
		t.Errorf("null struct field should be nullable (-want +got):\n%s", diff)
	}
}

type Category struct {
	typeinfo.Object
	Name     string     `graphql:"name"`
	Children []Category `graphql:"children"`
}

type catalog struct {
	Root Category `graphql:"catalog"`
}

func TestSelfReferencingList(t *testing.T) {
	root := catalog{Root: Category{Name: "root", Children: []Category{
		{Name: "a"},
		{Name: "b", Children: []Category{{Name: "b1"}}},
	}}}
	built := build(t, mapping.New(typeinfo.NewUniverse(), mapping.WithLogger(quietLogger())).Query(root))

	n := 0
	for name := range built.Schema.Types {
		if strings.HasPrefix(name, "Category") {
			n++
		}
	}
	require.Equal(t, 1, n)
	children := built.Schema.Types["Category"].FieldByName("children")
	if diff := cmp.Diff(schema.ListType(schema.NonNullType(schema.NamedType("Category"))), children.Type); diff != "" {
		t.Fatalf("children type mismatch (-want +got):\n%s", diff)
	}

	got := run(t, built, `{ catalog { name children { name children { name } } } }`, nil)
	want := map[string]any{"catalog": map[string]any{
		"name": "root",
		"children": []any{
			map[string]any{"name": "a", "children": nil},
			map[string]any{"name": "b", "children": []any{map[string]any{"name": "b1"}}},
		},
	}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("result mismatch (-want +got):\n%s", diff)
	}
}

type Alpha struct {
	typeinfo.Object `graphql:"Thing"`
	X               string `graphql:"x"`
}

type Beta struct {
	typeinfo.Object `graphql:"Thing"`
	Y               string `graphql:"y"`
}

type alphaRoot struct {
	A Alpha `graphql:"a"`
}

type clashRoot struct {
	A Alpha `graphql:"a"`
	B Beta  `graphql:"b"`
}

func TestTypeNames(t *testing.T) {
	t.Run("two types claiming one name conflict", func(t *testing.T) {
		_, err := mapping.New(typeinfo.NewUniverse(), mapping.WithLogger(quietLogger())).Query(clashRoot{}).Build()
		require.Error(t, err)
		var me *mapping.MappingError
		require.True(t, errors.As(err, &me))
		var conflict *naming.ConflictError
		require.True(t, errors.As(err, &conflict))
		require.Equal(t, "Thing", conflict.Name)
	})

	t.Run("registering a type twice is idempotent", func(t *testing.T) {
		built := build(t, mapping.New(typeinfo.NewUniverse(), mapping.WithLogger(quietLogger())).
			Query(alphaRoot{A: Alpha{X: "x"}}).
			Type(reflect.TypeOf(Alpha{})).
			Type(reflect.TypeOf(Alpha{})))
		require.NotNil(t, built.Schema.Types["Thing"])
		require.Len(t, built.Schema.Types["Thing"].Fields, 1)
	})
}

type stamp struct {
	At   time.Time     `graphql:"at"`
	Took time.Duration `graphql:"took"`
	Key  uuid.UUID     `graphql:"key"`
	Raw  []byte        `graphql:"raw"`
	ID   typeinfo.ID   `graphql:"id"`
	Size uint64        `graphql:"size"`
}

func TestBuiltinScalars(t *testing.T) {
	key := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	root := stamp{
		At:   time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		Took: 90 * time.Second,
		Key:  key,
		Raw:  []byte("hi"),
		ID:   "b-1",
		Size: 1 << 40,
	}
	built := build(t, mapping.New(typeinfo.NewUniverse(), mapping.WithLogger(quietLogger())).Query(root))

	got := run(t, built, `{ at took key raw id size }`, nil)
	want := map[string]any{
		"at":   "2024-03-01T12:00:00Z",
		"took": "1m30s",
		"key":  key.String(),
		"raw":  "aGk=",
		"id":   "b-1",
		"size": int64(1 << 40),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("result mismatch (-want +got):\n%s", diff)
	}
	for _, name := range []string{"DateTime", "Duration", "UUID", "Bytes", "Long"} {
		typ := built.Schema.Types[name]
		require.NotNil(t, typ, name)
		require.Equal(t, schema.TypeKindScalar, typ.Kind)
	}
	require.Equal(t, "https://tools.ietf.org/html/rfc4122", *built.Schema.Types["UUID"].SpecifiedByURL)
}

type upper struct{}

func (upper) Name() string { return "upper" }

func (upper) Definition() *schema.Directive {
	return schema.NewDirective("upper", "Upper-cases a string field.").AddLocation("FIELD_DEFINITION")
}

func (upper) Apply(_ *mapping.Context, f *mapping.FieldBuilder, _ typeinfo.Marker) error {
	next := f.Supplier()
	f.SetSupplier(func(env *mapping.Env) (any, error) {
		v, err := next(env)
		if s, ok := v.(string); ok {
			return strings.ToUpper(s), err
		}
		return v, err
	})
	return nil
}

type greeter struct {
	Plain string `graphql:"plain"`
	Loud  string `graphql:"loud,upper"`
}

func TestDirectiveReplacesSupplier(t *testing.T) {
	built := build(t, mapping.New(typeinfo.NewUniverse(), mapping.WithLogger(quietLogger())).
		Query(greeter{Plain: "hello", Loud: "hello"}).
		Directive(upper{}))

	got := run(t, built, `{ plain loud }`, nil)
	if diff := cmp.Diff(map[string]any{"plain": "hello", "loud": "HELLO"}, got); diff != "" {
		t.Fatalf("result mismatch (-want +got):\n%s", diff)
	}
	require.Contains(t, built.SDL(), "directive @upper")

	_, err := mapping.New(typeinfo.NewUniverse()).Query(greeter{}).Directive(upper{}).Directive(upper{}).Build()
	require.ErrorContains(t, err, "registered twice")
}

type bookExtras struct{}

func (bookExtras) ShelfLabel(b Book) string { return "shelf-" + string(b.Genre) }

func (bookExtras) GraphQLMethods() map[string]reflect.StructTag {
	return map[string]reflect.StructTag{"ShelfLabel": `graphql:"shelfLabel" args:"@source"`}
}

func TestMixin(t *testing.T) {
	built := build(t, mapping.New(typeinfo.NewUniverse(), mapping.WithLogger(quietLogger())).
		Query(newShelf()).
		Mixin(bookExtras{}))

	got := run(t, built, `{ book(title: "Dune") { title shelfLabel } }`, nil)
	want := map[string]any{"book": map[string]any{"title": "Dune", "shelfLabel": "shelf-sciFi"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("result mismatch (-want +got):\n%s", diff)
	}
}

type envProbe struct{}

func (envProbe) Where(ctx context.Context, env *mapping.Env) string {
	return fmt.Sprintf("%s.%s %v", env.ObjectType, env.Field, ctx != nil)
}

func (envProbe) GraphQLMethods() map[string]reflect.StructTag {
	return map[string]reflect.StructTag{"Where": `graphql:"where"`}
}

func TestAmbientParameters(t *testing.T) {
	built := build(t, mapping.New(typeinfo.NewUniverse(), mapping.WithLogger(quietLogger())).Query(envProbe{}))

	got := run(t, built, `{ where }`, nil)
	if diff := cmp.Diff(map[string]any{"where": "Query.where true"}, got); diff != "" {
		t.Fatalf("result mismatch (-want +got):\n%s", diff)
	}
	where := built.Schema.Types[mapping.QueryTypeName].FieldByName("where")
	require.Empty(t, where.Arguments)
}

type badRoot struct {
	Ch chan int `graphql:"ch"`
}

type hidden struct {
	typeinfo.Object
	name string `graphql:"name"`
}

type hiddenRoot struct {
	H hidden `graphql:"h"`
}

func TestMappingErrors(t *testing.T) {
	t.Run("missing query root", func(t *testing.T) {
		_, err := mapping.New(typeinfo.NewUniverse()).Build()
		require.ErrorContains(t, err, "query root")
	})

	t.Run("unmappable type names the trail", func(t *testing.T) {
		_, err := mapping.New(typeinfo.NewUniverse()).Query(badRoot{}).Build()
		var me *mapping.MappingError
		require.True(t, errors.As(err, &me))
		require.Contains(t, me.Message, "no output mapping for Go type chan int")
		crumbs := me.Trail.Crumbs()
		require.Len(t, crumbs, 2)
		require.Equal(t, mapping.Crumb("root Query (mapping_test.badRoot)"), crumbs[0])
		require.Equal(t, mapping.Crumb("field mapping_test.badRoot.Ch"), crumbs[1])
		require.Contains(t, err.Error(), "\n\tat field mapping_test.badRoot.Ch")
	})

	t.Run("unexported field source", func(t *testing.T) {
		_, err := mapping.New(typeinfo.NewUniverse()).Query(hiddenRoot{}).Build()
		require.ErrorContains(t, err, "must be exported")
	})

	t.Run("root without fields", func(t *testing.T) {
		_, err := mapping.New(typeinfo.NewUniverse()).Query(struct{}{}).Build()
		require.ErrorContains(t, err, "has no marked fields")
	})
}

func TestIntrospection(t *testing.T) {
	built := build(t, mapping.New(typeinfo.NewUniverse(), mapping.WithLogger(quietLogger())).Query(newShelf()))

	got := run(t, built, `{ __type(name: "Genre") { kind enumValues { name } } }`, nil)
	want := map[string]any{"__type": map[string]any{
		"kind":       "ENUM",
		"enumValues": []any{map[string]any{"name": "SCI_FI"}, map[string]any{"name": "FANTASY"}},
	}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("result mismatch (-want +got):\n%s", diff)
	}
	require.Nil(t, built.Schema.Types["__Type"], "the built schema stays free of meta types")

	closed := build(t, mapping.New(typeinfo.NewUniverse(), mapping.WithLogger(quietLogger()), mapping.WithIntrospection(false)).
		Query(newShelf()))
	res := closed.Execute(t.Context(), `{ __schema { queryType { name } } }`, "", nil)
	require.NotEmpty(t, res.Errors)
	require.Contains(t, res.Errors[0].Message, "__schema")
}
