package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearSimEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"BROWSERSTACK_USERNAME", "BROWSERSTACK_ACCESS_KEY",
		"GRIDSIM_ADDR", "GRIDSIM_DELAY", "GRIDSIM_IDLE_TIMEOUT",
		"GRIDSIM_REQUESTS_PER_MINUTE", "GRIDSIM_ACCOUNTS",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
	t.Setenv("LOG_LEVEL", "error")
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gridstatus.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// runSim executes the root command and returns the server it would have served
func runSim(t *testing.T, args ...string) (*http.Server, error) {
	t.Helper()
	var got *http.Server
	capture := func(_ context.Context, srv *http.Server, _ zerolog.Logger) error {
		got = srv
		return nil
	}

	var out bytes.Buffer
	cmd := newRootCmd(capture)
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return got, err
}

func buildStatus(srv *http.Server, user, key string) int {
	req := httptest.NewRequest(http.MethodGet, "/automate/builds/missing/sessions.json", nil)
	req.SetBasicAuth(user, key)
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)
	return rec.Code
}

func TestParseAccounts(t *testing.T) {
	assert.Equal(t, map[string]string{"alice": "k1", "bob": "k:2"}, parseAccounts("alice:k1, bob:k:2"))
	assert.Empty(t, parseAccounts(""))
	assert.Empty(t, parseAccounts("nokey,:x,y:"))
}

func TestRootCmdFlagsOverrideConfig(t *testing.T) {
	clearSimEnv(t)
	cfg := writeConfig(t, `
sim:
  addr: ":7000"
  accounts: "carol:c1"
`)

	srv, err := runSim(t, "--config", cfg, "--addr", "127.0.0.1:9000", "--accounts", "alice:k1, bob:k2", "--rpm", "0")
	require.NoError(t, err)
	require.NotNil(t, srv)

	assert.Equal(t, "127.0.0.1:9000", srv.Addr)
	assert.Equal(t, http.StatusNotFound, buildStatus(srv, "alice", "k1"), "authenticated, unknown build")
	assert.Equal(t, http.StatusNotFound, buildStatus(srv, "bob", "k2"))
	assert.Equal(t, http.StatusUnauthorized, buildStatus(srv, "carol", "c1"), "flag replaces configured accounts")
}

func TestRootCmdUsesConfigFile(t *testing.T) {
	clearSimEnv(t)
	cfg := writeConfig(t, `
sim:
  addr: ":7000"
  accounts: "carol:c1"
`)

	srv, err := runSim(t, "--config", cfg)
	require.NoError(t, err)

	assert.Equal(t, ":7000", srv.Addr)
	assert.Equal(t, http.StatusNotFound, buildStatus(srv, "carol", "c1"))
}

func TestRootCmdFallsBackToGridAccount(t *testing.T) {
	clearSimEnv(t)
	t.Setenv("BROWSERSTACK_USERNAME", "alice")
	t.Setenv("BROWSERSTACK_ACCESS_KEY", "secret")

	srv, err := runSim(t, "--config", writeConfig(t, "{}\n"))
	require.NoError(t, err)

	assert.Equal(t, ":8080", srv.Addr)
	assert.Equal(t, http.StatusNotFound, buildStatus(srv, "alice", "secret"))
	assert.Equal(t, http.StatusUnauthorized, buildStatus(srv, "alice", "wrong"))
}

func TestRootCmdRequiresAccounts(t *testing.T) {
	clearSimEnv(t)

	srv, err := runSim(t, "--config", writeConfig(t, "{}\n"))
	assert.ErrorIs(t, err, errNoAccounts)
	assert.Nil(t, srv)
}

func TestRootCmdRejectsNegativeDelay(t *testing.T) {
	clearSimEnv(t)

	_, err := runSim(t, "--config", writeConfig(t, "{}\n"), "--accounts", "alice:k1", "--delay", "-1s")
	assert.ErrorContains(t, err, "sim.delay")
}

func TestServeStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	srv := &http.Server{Addr: "127.0.0.1:0", Handler: http.NotFoundHandler()}

	done := make(chan error, 1)
	go func() { done <- serve(ctx, srv, zerolog.Nop()) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return after cancel")
	}
}
