package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/hanpama/typegraph/internal/config"
)

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(t.Context())
	return out.String(), err
}

func TestSDL(t *testing.T) {
	out, err := runCmd(t, "sdl")
	require.NoError(t, err)
	require.Contains(t, out, "type Book")
	require.Contains(t, out, "union SearchResult")

	file := filepath.Join(t.TempDir(), "schema.graphql")
	_, err = runCmd(t, "sdl", "--out", file)
	require.NoError(t, err)
	written, err := os.ReadFile(file)
	require.NoError(t, err)
	require.Equal(t, out, string(written))
}

func TestProto(t *testing.T) {
	out, err := runCmd(t, "proto", "--package", "shop.v1", "--service", "shop")
	require.NoError(t, err)
	require.Contains(t, out, "package shop.v1;")
	require.Contains(t, out, "message Book {")
	require.Contains(t, out, "service ShopService {")

	dir := t.TempDir()
	_, err = runCmd(t, "proto", "--out", dir)
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "typegraph", "v1.proto"))
	require.NoError(t, err)

	_, err = runCmd(t, "proto", "--package", "")
	require.Error(t, err)
}

func TestExec(t *testing.T) {
	out, err := runCmd(t, "exec", `query($id: ID!) { book(id: $id) { title } }`, "--variables", `{"id":"book-2"}`)
	require.NoError(t, err)
	require.JSONEq(t, `{"data":{"book":{"title":"Persuasion"}}}`, out)

	out, err = runCmd(t, "exec", `{ nope }`)
	require.ErrorContains(t, err, "operation failed")
	require.Contains(t, out, `"errors"`)

	_, err = runCmd(t, "exec", `{ books { title } }`, "--variables", `[1]`)
	require.ErrorContains(t, err, "invalid --variables")
}

func TestRootFlags(t *testing.T) {
	_, err := runCmd(t, "--log-level", "loud", "sdl")
	require.ErrorContains(t, err, "unknown log level")

	_, err = runCmd(t, "sdl", "extra")
	require.Error(t, err)
}

func TestServeHandler(t *testing.T) {
	cfg := config.Default()
	cfg.Server.Path = "/api/graphql"
	cfg.Server.CORS = []string{"*"}
	log := logrus.New()
	log.SetLevel(logrus.WarnLevel)
	a := &app{log: log, now: func() time.Time { return time.Unix(0, 0) }}

	h, err := a.handler(cfg)
	require.NoError(t, err)
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/graphql",
		strings.NewReader(`{"query":"{ authors { name } }"}`))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Origin", "https://shop.example")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	var body bytes.Buffer
	_, err = body.ReadFrom(resp.Body)
	require.NoError(t, err)
	require.JSONEq(t, `{"data":{"authors":[{"name":"Edward Gibbon"},{"name":"Jane Austen"}]}}`, body.String())

	miss, err := http.Get(srv.URL + "/graphql")
	require.NoError(t, err)
	miss.Body.Close()
	require.Equal(t, http.StatusNotFound, miss.StatusCode)
}

func TestServeRejectsBadConfig(t *testing.T) {
	file := filepath.Join(t.TempDir(), "typegraph.yaml")
	require.NoError(t, os.WriteFile(file, []byte("server:\n  path: graphql\n"), 0o644))
	_, err := runCmd(t, "serve", "--config", file)
	require.ErrorContains(t, err, "path")
}
