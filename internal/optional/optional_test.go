package optional

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStates(t *testing.T) {
	var omittedInt Value[int]
	require.True(t, omittedInt.IsOmitted())
	require.Equal(t, 7, omittedInt.OrElse(7))

	n := Null[int]()
	require.True(t, n.IsNull())
	_, ok := n.Get()
	require.False(t, ok)

	s := Some(4)
	v, ok := s.Get()
	require.True(t, ok)
	require.Equal(t, 4, v)
	require.Equal(t, "Some(4)", s.String())
}

func TestMake(t *testing.T) {
	typ := reflect.TypeOf(Value[string]{})
	require.True(t, Is(typ))
	require.False(t, Is(reflect.TypeOf(struct{}{})))

	require.Equal(t, Value[string]{}, Make(typ, nil, true))
	require.Equal(t, Null[string](), Make(typ, nil, false))
	require.Equal(t, Some("x"), Make(typ, "x", false))

	w := Make(typ, "x", false).(Wrapper)
	require.Equal(t, reflect.TypeOf(""), w.Elem())
	require.Equal(t, "x", w.Unwrap())
}
