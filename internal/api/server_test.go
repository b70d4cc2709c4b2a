package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shehryarbajwa/gridstatus/internal/ratelimit"
	"github.com/shehryarbajwa/gridstatus/internal/session"
	"github.com/shehryarbajwa/gridstatus/pkg/models"
)

func newTestServer(t *testing.T, limiter *ratelimit.Limiter) *httptest.Server {
	t.Helper()
	handler := NewHandler(session.NewManager(session.Options{}))
	router := handler.SetupRoutes(RouterConfig{
		Accounts:          map[string]string{"alice": "secret"},
		Limiter:           limiter,
		RequestsPerMinute: 60,
		Registry:          prometheus.NewRegistry(),
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func doRequest(t *testing.T, method, url, body string, auth bool) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	if auth {
		req.SetBasicAuth("alice", "secret")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeSession(t *testing.T, resp *http.Response) models.SessionDetails {
	t.Helper()
	var env models.SessionEnvelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return env.AutomationSession
}

func TestSessionLifecycle(t *testing.T) {
	srv := newTestServer(t, nil)
	base := srv.URL + "/automate"

	resp := doRequest(t, http.MethodPost, base+"/sessions.json", `{"name":"checkout","build":"nightly"}`, true)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decodeSession(t, resp)
	require.NotEmpty(t, created.HashedID)

	resp = doRequest(t, http.MethodGet, base+"/sessions/"+created.HashedID+".json", "", true)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "checkout", decodeSession(t, resp).Name)

	resp = doRequest(t, http.MethodPut, base+"/sessions/"+created.HashedID+".json", `{"status":"failed","reason":"price mismatch"}`, true)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	updated := decodeSession(t, resp)
	assert.Equal(t, "failed", updated.Status)
	assert.Equal(t, "price mismatch", updated.Reason)

	resp = doRequest(t, http.MethodGet, base+"/builds/"+created.BuildHashedID+"/sessions.json", "", true)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var envs []models.SessionEnvelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envs))
	require.Len(t, envs, 1)
	assert.Equal(t, created.HashedID, envs[0].AutomationSession.HashedID)

	resp = doRequest(t, http.MethodDelete, base+"/sessions/"+created.HashedID+".json", "", true)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = doRequest(t, http.MethodPut, base+"/sessions/"+created.HashedID+".json", `{"status":"passed"}`, true)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestUnknownSessionIs404(t *testing.T) {
	srv := newTestServer(t, nil)

	resp := doRequest(t, http.MethodGet, srv.URL+"/automate/sessions/nope.json", "", true)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = doRequest(t, http.MethodPut, srv.URL+"/automate/sessions/nope.json", `{"status":"passed"}`, true)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestBadRequests(t *testing.T) {
	srv := newTestServer(t, nil)
	base := srv.URL + "/automate"

	resp := doRequest(t, http.MethodPost, base+"/sessions.json", `{`, true)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = doRequest(t, http.MethodPost, base+"/sessions.json", `{}`, true)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = doRequest(t, http.MethodPost, base+"/sessions.json", `{"name":"x"}`, true)
	id := decodeSession(t, resp).HashedID

	resp = doRequest(t, http.MethodPut, base+"/sessions/"+id+".json", `{"status":"maybe"}`, true)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestAuthRequired(t *testing.T) {
	srv := newTestServer(t, nil)

	resp := doRequest(t, http.MethodGet, srv.URL+"/automate/sessions/abc.json", "", false)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("WWW-Authenticate"))

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/automate/sessions/abc.json", nil)
	req.SetBasicAuth("alice", "wrong")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRateLimit(t *testing.T) {
	srv := newTestServer(t, ratelimit.NewLimiter(1, 1))

	resp := doRequest(t, http.MethodGet, srv.URL+"/automate/sessions/abc.json", "", true)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "60", resp.Header.Get("X-RateLimit-Limit"))

	resp = doRequest(t, http.MethodGet, srv.URL+"/automate/sessions/abc.json", "", true)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "0", resp.Header.Get("X-RateLimit-Remaining"))
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t, nil)

	doRequest(t, http.MethodGet, srv.URL+"/automate/sessions/abc.json", "", true)

	resp := doRequest(t, http.MethodGet, srv.URL+"/metrics", "", false)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `gridsim_requests_total{code="404",route="GET /automate/sessions/{id}.json"} 1`)
}
