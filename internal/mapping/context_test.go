package mapping

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/hanpama/typegraph/internal/schema"
	"github.com/hanpama/typegraph/internal/typeinfo"
)

type money int64

type broken struct {
	typeinfo.Object
	Ch chan int `graphql:"ch"`
}

func testContext(t *testing.T, resolvers ...any) *Context {
	t.Helper()
	reg := &Registry{}
	for _, r := range append(resolvers, objectResolver{}, pointerResolver{}, listResolver{}, kindResolver{}) {
		require.NoError(t, reg.Add(r))
	}
	log := logrus.New()
	log.SetLevel(logrus.WarnLevel)
	return newContext(context.Background(), typeinfo.NewUniverse(), reg, log)
}

func TestResolveIsMemoized(t *testing.T) {
	moneyType := reflect.TypeOf(money(0))
	calls := 0
	ctx := testContext(t, OutputFor(moneyType, func(e *Encounter) (Resolved, error) {
		calls++
		return scalarMapping(e.Context(), LongScalar, moneyType, false)
	}))

	a, err := ctx.ResolveOutput(ctx.Describe(moneyType))
	require.NoError(t, err)
	b, err := ctx.ResolveOutput(ctx.Describe(moneyType))
	require.NoError(t, err)
	require.Equal(t, 1, calls)
	require.True(t, a.Type.IsNonNull())
	require.Same(t, a.Type.OfType, b.Type.OfType)

	nullable := ctx.Describe(moneyType).WithUsage(typeinfo.Marker{Kind: typeinfo.KindNullable})
	c, err := ctx.ResolveOutput(nullable)
	require.NoError(t, err)
	d, err := ctx.ResolveOutput(nullable)
	require.NoError(t, err)
	require.Same(t, c.Type, d.Type)
	require.Same(t, a.Type.OfType, c.Type)
	require.Equal(t, 1, calls)
}

func TestRegistryOrder(t *testing.T) {
	moneyType := reflect.TypeOf(money(0))

	t.Run("first present mapping wins", func(t *testing.T) {
		ctx := testContext(t,
			OutputFor(moneyType, func(*Encounter) (Resolved, error) { return Absent(), nil }),
			OutputFor(moneyType, func(e *Encounter) (Resolved, error) {
				return scalarMapping(e.Context(), IDScalar, moneyType, false)
			}),
			OutputFor(moneyType, func(e *Encounter) (Resolved, error) {
				return scalarMapping(e.Context(), StringScalar, moneyType, false)
			}),
		)
		r, err := ctx.ResolveOutput(ctx.Describe(moneyType))
		require.NoError(t, err)
		require.Equal(t, "ID", r.Type.GetNamedType())
	})

	t.Run("registered resolvers precede the kind fallback", func(t *testing.T) {
		ctx := testContext(t)
		r, err := ctx.ResolveOutput(ctx.Describe(moneyType))
		require.NoError(t, err)
		require.Equal(t, "Long", r.Type.GetNamedType())
	})

	t.Run("absent everywhere is not an error for maybe", func(t *testing.T) {
		ctx := testContext(t)
		r, err := ctx.MaybeResolveOutput(ctx.Describe(reflect.TypeOf(make(chan int))))
		require.NoError(t, err)
		require.False(t, r.Present())
	})

	t.Run("a resolver error stops the fan-out", func(t *testing.T) {
		boom := errors.New("boom")
		ctx := testContext(t,
			OutputFor(moneyType, func(*Encounter) (Resolved, error) { return Resolved{}, boom }),
		)
		_, err := ctx.ResolveOutput(ctx.Describe(moneyType))
		require.ErrorIs(t, err, boom)
	})
}

func TestBreadcrumbTrail(t *testing.T) {
	ctx := testContext(t)
	_, err := ctx.ResolveOutput(ctx.Describe(reflect.TypeOf(broken{})))

	var me *MappingError
	require.True(t, errors.As(err, &me))
	require.Equal(t, "no output mapping for Go type chan int", me.Message)
	require.Equal(t, []Crumb{"type mapping.broken", "field mapping.broken.Ch"}, me.Trail.Crumbs())
	require.Equal(t, "no output mapping for Go type chan int\n\tat field mapping.broken.Ch\n\tat type mapping.broken", err.Error())
	require.Nil(t, ctx.Trail())
}

func TestShellRejectsSecondOwner(t *testing.T) {
	ctx := testContext(t)
	ctx.AddType(schema.NewType("broken", schema.TypeKindObject, ""))
	_, err := ctx.ResolveOutput(ctx.Describe(reflect.TypeOf(broken{})))
	require.ErrorContains(t, err, "schema type broken is already registered")
}
