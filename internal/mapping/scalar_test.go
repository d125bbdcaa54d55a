package mapping

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestScalarHooks(t *testing.T) {
	t.Run("int bounds", func(t *testing.T) {
		_, err := IntScalar.Serialize(int64(1) << 40)
		require.Error(t, err)
		v, err := IntScalar.Parse(float64(12))
		require.NoError(t, err)
		require.EqualValues(t, 12, v)
		_, err = IntScalar.Parse(1.5)
		require.Error(t, err)
	})

	t.Run("date time", func(t *testing.T) {
		at := time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)
		s, err := DateTimeScalar.Serialize(at)
		require.NoError(t, err)
		require.Equal(t, "2024-05-01T12:30:00Z", s)
		back, err := DateTimeScalar.Parse(s)
		require.NoError(t, err)
		require.True(t, at.Equal(back.(time.Time)))
	})

	t.Run("uuid", func(t *testing.T) {
		id := uuid.New()
		s, err := UUIDScalar.Serialize(id)
		require.NoError(t, err)
		back, err := UUIDScalar.Parse(s)
		require.NoError(t, err)
		require.Equal(t, id, back)
		_, err = UUIDScalar.Parse("not-a-uuid")
		require.Error(t, err)
	})

	t.Run("json accepts objects and encoded strings", func(t *testing.T) {
		v, err := JSONScalar.Parse(map[string]any{"a": 1})
		require.NoError(t, err)
		require.Equal(t, map[string]any{"a": 1}, v)

		v, err = JSONScalar.Parse(`{"a":[1,2],"b":"x"}`)
		require.NoError(t, err)
		require.Equal(t, map[string]any{"a": []any{float64(1), float64(2)}, "b": "x"}, v)

		_, err = JSONScalar.Parse(`[1,2]`)
		require.Error(t, err)
		_, err = JSONScalar.Parse(42)
		require.Error(t, err)
	})

	t.Run("bytes", func(t *testing.T) {
		s, err := BytesScalar.Serialize([]byte("hi"))
		require.NoError(t, err)
		require.Equal(t, "aGk=", s)
		b, err := BytesScalar.Parse("aGk=")
		require.NoError(t, err)
		require.Equal(t, []byte("hi"), b)
	})
}
