package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	if diff := cmp.Diff(Default(), cfg); diff != "" {
		t.Fatalf("defaults mismatch (-want +got):\n%s", diff)
	}
}

func TestParseOverridesDefaults(t *testing.T) {
	cfg, err := Parse(strings.NewReader(`
server:
  addr: 127.0.0.1:9000
  timeout: 2s
  cors: ["*"]
  forwardHeaders: [Authorization]
log:
  level: debug
  format: json
telemetry:
  endpoint: collector:4317
`))
	require.NoError(t, err)

	want := Default()
	want.Server.Addr = "127.0.0.1:9000"
	want.Server.Timeout = 2 * time.Second
	want.Server.CORS = []string{"*"}
	want.Server.ForwardHeaders = []string{"Authorization"}
	want.Log = Log{Level: "debug", Format: "json"}
	want.Telemetry.Endpoint = "collector:4317"
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestParseEmpty(t *testing.T) {
	cfg, err := Parse(strings.NewReader(""))
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

func TestValidation(t *testing.T) {
	cases := map[string]string{
		"log:\n  level: loud\n":         "Config.Log.Level failed on 'oneof'",
		"log:\n  format: xml\n":         "Config.Log.Format failed on 'oneof'",
		"server:\n  addr: \"\"\n":       "Config.Server.Addr failed on 'required'",
		"server:\n  timeout: -1s\n":     "Config.Server.Timeout failed on 'gte'",
		"server:\n  path: graphql\n":    "server.path must start with /",
		"telemetry:\n  service: \"\"\n": "Config.Telemetry.Service failed on 'required'",
		"server:\n  cors: [\"\"]\n":     "Config.Server.CORS[0] failed on 'required'",
		"server:\n  unknownKey: true\n": "field unknownKey not found",
	}
	for in, want := range cases {
		_, err := Parse(strings.NewReader(in))
		require.ErrorContains(t, err, want, "input %q", in)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "typegraph.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  pretty: true\n"), 0o644))
	cfg, err := Load(path)
	require.NoError(t, err)
	require.True(t, cfg.Server.Pretty)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorContains(t, err, "failed to read config file")
}
