package logging

import (
	"bytes"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	var buf bytes.Buffer
	l, err := New("debug", "json", &buf)
	require.NoError(t, err)
	require.Equal(t, logrus.DebugLevel, l.GetLevel())

	l.WithField("types", 3).Info("schema built")
	require.Contains(t, buf.String(), `"msg":"schema built"`)
	require.Contains(t, buf.String(), `"types":3`)

	buf.Reset()
	l, err = New("warn", "text", &buf)
	require.NoError(t, err)
	l.Info("hidden")
	l.Warn("shown")
	require.NotContains(t, buf.String(), "hidden")
	require.Contains(t, buf.String(), "msg=shown")
}

func TestNewRejectsUnknownSettings(t *testing.T) {
	_, err := New("loud", "text", &bytes.Buffer{})
	require.ErrorContains(t, err, "unknown log level loud")
	_, err = New("info", "xml", &bytes.Buffer{})
	require.ErrorContains(t, err, "unsupported log format")
}
