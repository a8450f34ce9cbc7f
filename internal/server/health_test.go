package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inboxpilot/inboxpilot/internal/storage"
)

func newTestHealthChecker(t *testing.T) (*HealthChecker, *ServerContext, *storage.Store) {
	t.Helper()
	store := storage.OpenMemory(t)
	sc, err := NewServerContext(context.Background(), testConfig(t), store, nil)
	require.NoError(t, err)
	return NewHealthChecker(sc), sc, store
}

func readiness(h *HealthChecker) (int, HealthResponse) {
	rec := httptest.NewRecorder()
	h.ReadinessHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	var resp HealthResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	return rec.Code, resp
}

func TestLivenessHandler(t *testing.T) {
	h, _, _ := newTestHealthChecker(t)

	// Liveness holds even before the server is ready.
	rec := httptest.NewRecorder()
	h.LivenessHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadinessLifecycle(t *testing.T) {
	h, sc, _ := newTestHealthChecker(t)

	// Not ready until registration finished.
	code, resp := readiness(h)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, healthStatusNotReady, resp.Status)
	assert.Equal(t, healthStatusNotReady, resp.Checks["ready"])

	h.SetReady(true)
	code, resp = readiness(h)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, healthStatusOK, resp.Status)
	assert.Equal(t, healthStatusOK, resp.Checks["storage"])

	require.NoError(t, sc.Shutdown())
	code, resp = readiness(h)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, healthStatusShuttingDown, resp.Checks["shutdown"])
}

func TestReadinessReportsStorageFailure(t *testing.T) {
	h, _, store := newTestHealthChecker(t)
	h.SetReady(true)

	require.NoError(t, store.Close())

	code, resp := readiness(h)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, healthStatusUnavailable, resp.Checks["storage"])
}

func TestRegisterHealthEndpoints(t *testing.T) {
	h, _, _ := newTestHealthChecker(t)
	h.SetReady(true)

	mux := http.NewServeMux()
	h.RegisterHealthEndpoints(mux)

	for _, path := range []string{"/healthz", "/readyz"} {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, "GET %s", path)
	}
}
