package typeinfo

import (
	"context"
	"reflect"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

type Named interface{ Name() string }

type Base struct {
	ID      string `graphql:"id,nonnull" desc:"Primary key"`
	Created int64  `graphql:"created" deprecated:"use updated"`
}

type Person struct {
	Object `graphql:"Human" desc:"A person"`
	Base
	First string `graphql:"first,required"`
	Age   int    `graphql:"age"`
	note  string
}

func (p Person) Name() string { return p.First }

func (p *Person) Greet(ctx context.Context, greeting string, loud bool) string { return greeting }

func (Person) GraphQLMethods() map[string]reflect.StructTag {
	return map[string]reflect.StructTag{
		"Greet": `graphql:"greet" args:"greeting!,loud"`,
		"Wave":  `graphql:"wave"`,
	}
}

// Entity is a marker alias: embedding it marks an object.
type Entity struct {
	Object `graphql:"" desc:"An entity"`
}

type Account struct {
	Entity `graphql:"Acct"`
	Owner  string `graphql:"owner"`
}

type Level int

func (Level) GraphQLTag() reflect.StructTag { return `graphql:"Severity" kind:"enum"` }
func (Level) Values() []Level               { return []Level{1, 2} }

type Page[T any] struct{ Items []T }

func TestTypeMarkers(t *testing.T) {
	u := NewUniverse()

	person := u.Describe(reflect.TypeOf(Person{}))
	want := Markers{
		{Kind: KindObject, Value: "Human"},
		{Kind: KindDescription, Value: "A person"},
	}
	if diff := cmp.Diff(want, person.Markers()); diff != "" {
		t.Fatalf("markers mismatch (-want +got):\n%s", diff)
	}

	acct := u.Describe(reflect.TypeOf(Account{}))
	mk, ok := acct.Marker(KindObject)
	require.True(t, ok)
	require.Equal(t, "Acct", mk.Value)
	require.Equal(t, "An entity", acct.Markers().Value(KindDescription))

	level := u.Describe(reflect.TypeOf(Level(0)))
	require.True(t, level.Has(KindEnum))
	require.Equal(t, "Severity", level.Markers().Value(KindEnum))
	require.Len(t, level.Constants(), 2)

	u.Declare(reflect.TypeOf(Level(0)), Declaration{Constants: []Constant{{Value: 3, Tag: `graphql:"HIGH"`}}})
	consts := level.Constants()
	require.Len(t, consts, 1)
	require.Equal(t, "HIGH", level.ConstantMarkers(consts[0]).Value(KindField))
}

func TestDeclarationsMerge(t *testing.T) {
	u := NewUniverse()
	rt := TypeOf[Named]()
	u.Declare(rt, Declaration{Tag: `kind:"interface"`, Methods: map[string]reflect.StructTag{"Name": `graphql:"name"`}})
	u.Declare(rt, Declaration{Methods: map[string]reflect.StructTag{"Other": `graphql:"other"`}})

	d, ok := u.Declaration(rt)
	require.True(t, ok)
	require.Equal(t, reflect.StructTag(`kind:"interface"`), d.Tag)
	require.Len(t, d.Methods, 2)
	require.Equal(t, []reflect.Type{rt}, u.Declared())
}

func TestMembers(t *testing.T) {
	u := NewUniverse().Alias("required", "nonnull")
	members := u.Describe(reflect.TypeOf(Person{})).Members()

	var names []string
	for _, m := range members {
		names = append(names, m.String())
	}
	want := []string{
		"typeinfo.Person.First",
		"typeinfo.Person.Age",
		"typeinfo.Person.note",
		"typeinfo.Base.ID",
		"typeinfo.Base.Created",
		"typeinfo.Person.Greet()",
		"typeinfo.Person.Wave()",
	}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Fatalf("members mismatch (-want +got):\n%s", diff)
	}

	first := members[0]
	require.True(t, first.Markers.Has(KindNonNull), "alias expands to nonnull")
	require.Equal(t, "first", first.Markers.Value(KindField))
	require.False(t, members[2].Exported)

	id := members[3]
	require.Equal(t, []int{1, 0}, id.Index)
	require.True(t, id.Markers.Has(KindNonNull))
	require.Equal(t, "Primary key", id.Markers.Value(KindDescription))
	require.Equal(t, "use updated", members[4].Markers.Value(KindDeprecated))

	greet := members[5]
	require.True(t, greet.IsMethod)
	params, err := greet.Params(u)
	require.NoError(t, err)
	require.Len(t, params, 3)
	require.True(t, params[0].Markers.Has(KindContext))
	require.Equal(t, "greeting", params[1].Name)
	require.True(t, params[1].Markers.Has(KindNonNull))
	require.Equal(t, "loud", params[2].Name)
	require.False(t, params[2].Markers.Has(KindNonNull))

	res, hasErr, err := greet.Result()
	require.NoError(t, err)
	require.False(t, hasErr)
	require.Equal(t, reflect.TypeOf(""), res)

	wave := members[6]
	require.Nil(t, wave.Out, "declared method the type lacks")
}

func TestMethodTagsFromInterfaces(t *testing.T) {
	u := NewUniverse().Declare(TypeOf[Named](), Declaration{
		Tag:     `kind:"interface"`,
		Methods: map[string]reflect.StructTag{"Name": `graphql:"displayName"`},
	})
	var found bool
	for _, m := range u.Describe(reflect.TypeOf(Person{})).Members() {
		if m.Name == "Name" {
			found = true
			require.Equal(t, "displayName", m.Markers.Value(KindField))
		}
	}
	require.True(t, found)
}

func TestParamsRejectExtraTokens(t *testing.T) {
	u := NewUniverse()
	_, err := u.params([]reflect.Type{reflect.TypeOf("")}, "a, b")
	require.ErrorContains(t, err, "names 2 parameters")
}

func TestParseFactory(t *testing.T) {
	u := NewUniverse()

	f, err := u.ParseFactory(FactoryDecl{
		Func: func(ctx context.Context, src Level, scale int) (Person, error) { return Person{}, nil },
		Args: "@source,scale",
	})
	require.NoError(t, err)
	require.Equal(t, 1, f.Source)
	require.Equal(t, reflect.TypeOf(Level(0)), f.Input)
	require.Equal(t, reflect.TypeOf(Person{}), f.Output)
	require.True(t, f.HasErr)

	_, err = u.ParseFactory(FactoryDecl{Func: func(a Level) Person { return Person{} }, Args: "a"})
	require.ErrorContains(t, err, "no @source")

	_, err = u.ParseFactory(FactoryDecl{Func: 42})
	require.ErrorContains(t, err, "must be a function")

	_, err = u.ParseFactory(FactoryDecl{Func: func(a Level) error { return nil }, Args: "@source"})
	require.ErrorContains(t, err, "returns only an error")
}

func TestSupertypes(t *testing.T) {
	u := NewUniverse().Known(TypeOf[Named]())
	person := u.Describe(reflect.TypeOf(Person{}))

	var got []reflect.Type
	for _, s := range person.Supertypes() {
		got = append(got, s.Reflect())
	}
	require.Equal(t, []reflect.Type{reflect.TypeOf(Base{}), TypeOf[Named](), TypeOf[any]()}, got)

	require.True(t, person.Implements(u.Describe(reflect.TypeOf(Base{}))))
	require.True(t, person.Implements(u.Describe(TypeOf[Named]())))
	require.False(t, u.Describe(reflect.TypeOf(Base{})).Implements(u.Describe(TypeOf[Named]())))
}

func TestNonNullUsage(t *testing.T) {
	u := NewUniverse()
	cases := []struct {
		typ   reflect.Type
		usage Markers
		want  bool
	}{
		{reflect.TypeOf(""), nil, true},
		{reflect.TypeOf(Person{}), nil, true},
		{reflect.TypeOf(&Person{}), nil, false},
		{reflect.TypeOf([]int{}), nil, false},
		{reflect.TypeOf([]int{}), Markers{{Kind: KindNonNull}}, true},
		{reflect.TypeOf(""), Markers{{Kind: KindNullable}}, false},
	}
	for _, c := range cases {
		require.Equal(t, c.want, u.Describe(c.typ).WithUsage(c.usage...).NonNull(), "%s %v", c.typ, c.usage)
	}
	require.Empty(t, u.Describe(reflect.TypeOf("")).WithUsage(Marker{Kind: KindNonNull}).Canonical().Usage())
}

func TestGenericNames(t *testing.T) {
	u := NewUniverse()
	page := u.Describe(reflect.TypeOf(Page[Person]{}))
	require.Equal(t, "Page", page.BaseName())
	require.Equal(t, "PagePerson", page.GoName())
	require.Len(t, page.TypeArgs(), 1)
	require.Equal(t, "", u.Describe(reflect.TypeOf([]int{})).GoName())
}

func TestInstances(t *testing.T) {
	sup, ok := ZeroInstances{}.Supplier(reflect.TypeOf(&Person{}), nil)
	require.True(t, ok)
	v, err := sup()
	require.NoError(t, err)
	require.IsType(t, &Person{}, v)

	m := InstanceMap{Values: map[reflect.Type]any{reflect.TypeOf(0): 7}, Next: ZeroInstances{}}
	sup, ok = m.Supplier(reflect.TypeOf(0), nil)
	require.True(t, ok)
	v, _ = sup()
	require.Equal(t, 7, v)

	sup, ok = m.Supplier(reflect.TypeOf(""), nil)
	require.True(t, ok)
	v, _ = sup()
	require.Equal(t, "", v)

	_, ok = InstanceMap{}.Supplier(reflect.TypeOf(""), nil)
	require.False(t, ok)
}
