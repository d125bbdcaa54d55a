package mapping

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAssignNumbers(t *testing.T) {
	cases := []struct {
		in   any
		to   reflect.Type
		want any
		err  bool
	}{
		{json.Number("9007199254740993"), reflect.TypeOf(int64(0)), int64(9007199254740993), false},
		{json.Number("-9223372036854775808"), reflect.TypeOf(int64(0)), int64(-9223372036854775808), false},
		{json.Number("2.5"), reflect.TypeOf(float64(0)), 2.5, false},
		{json.Number("4.0"), reflect.TypeOf(int32(0)), int32(4), false},
		{json.Number("300"), reflect.TypeOf(int8(0)), nil, true},
		{float64(1 << 63), reflect.TypeOf(int64(0)), nil, true},
		{float64(-1 << 63), reflect.TypeOf(int64(0)), int64(-1 << 63), false},
		{2.5, reflect.TypeOf(0), nil, true},
	}
	for _, tc := range cases {
		got, err := assign(tc.in, tc.to)
		if tc.err {
			require.Error(t, err, "%v (%T) to %s", tc.in, tc.in, tc.to)
			continue
		}
		require.NoError(t, err, "%v (%T) to %s", tc.in, tc.in, tc.to)
		require.Equal(t, tc.want, got.Interface())
	}
}
