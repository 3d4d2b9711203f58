package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/content-ledger/pkg/ledger/config"
)

func newTestServer(t *testing.T, opts ...config.Option) (*HTTPServer, *config.Runtime) {
	t.Helper()
	cfg, err := config.Load(append([]config.Option{
		config.WithEnvironment("testing"),
		config.WithJWTSecret("test-secret"),
		config.WithEventLogging(false),
	}, opts...)...)
	require.NoError(t, err)

	rt, err := cfg.Build(nil)
	require.NoError(t, err)
	t.Cleanup(func() { rt.Close() })

	return NewHTTPServer(rt, cfg), rt
}

func doJSON(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		buf = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)

	rr := doJSON(t, srv.Routes(), http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var health healthResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &health))
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, "memory", health.Database)
}

func TestAPIMountedWithMetrics(t *testing.T) {
	srv, rt := newTestServer(t)
	h := srv.Routes()

	_, token, err := rt.TokenAuth.Encode(map[string]interface{}{"sub": "creator-a"})
	require.NoError(t, err)

	rr := doJSON(t, h, http.MethodPost, "/api/v1/contents", token, map[string]any{"id": "c1", "price": "1"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = doJSON(t, h, http.MethodGet, "/api/v1/stats", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"content_count":1,"payment_count":0}`, rr.Body.String())

	rr = doJSON(t, h, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.True(t, strings.Contains(body, "content_ledger_content_registrations_total 1"), body)
	assert.Contains(t, body, "content_ledger_contents 1")
}

func TestMetricsDisabled(t *testing.T) {
	srv, _ := newTestServer(t, config.WithMetrics(false))

	rr := doJSON(t, srv.Routes(), http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestCORSInDevelopment(t *testing.T) {
	srv, _ := newTestServer(t, config.WithEnvironment("development"))

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/stats", nil)
	rr := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
}
