package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"
)

// Health status constants for health check responses.
const (
	healthStatusOK           = "ok"
	healthStatusNotReady     = "not ready"
	healthStatusShuttingDown = "shutting down"
	healthStatusUnavailable  = "unavailable"
)

// storagePingTimeout bounds the readiness ping so a wedged database cannot
// hang the endpoint.
const storagePingTimeout = 2 * time.Second

// HealthChecker serves the liveness and readiness endpoints on the metrics
// listener. Liveness only proves the process is up. Readiness additionally
// requires that tool registration has finished, the server context is not
// shutting down, and the SQLite store still answers a ping.
type HealthChecker struct {
	// ready flips to true once all MCP tools and resources are registered.
	ready atomic.Bool
	// serverContext provides the shutdown state and the store to ping. May be
	// nil, in which case only the ready flag is checked.
	serverContext *ServerContext
}

// NewHealthChecker creates a HealthChecker that reports not-ready until
// SetReady(true) is called after registration.
func NewHealthChecker(sc *ServerContext) *HealthChecker {
	return &HealthChecker{serverContext: sc}
}

// SetReady sets the readiness state of the server.
func (h *HealthChecker) SetReady(ready bool) {
	h.ready.Store(ready)
}

// IsReady returns whether the server reports itself ready.
func (h *HealthChecker) IsReady() bool {
	return h.ready.Load()
}

// HealthResponse is the JSON body of the health endpoints.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// LivenessHandler returns the handler for /healthz. It answers ok whenever
// the process can serve HTTP at all; dependency state is readiness business.
func (h *HealthChecker) LivenessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(HealthResponse{Status: healthStatusOK})
	})
}

// ReadinessHandler returns the handler for /readyz. Every failed check is
// named in the response so a 503 explains itself.
func (h *HealthChecker) ReadinessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		checks := make(map[string]string)
		allOk := true

		if h.ready.Load() {
			checks["ready"] = healthStatusOK
		} else {
			checks["ready"] = healthStatusNotReady
			allOk = false
		}

		if h.serverContext != nil {
			if h.serverContext.IsShutdown() {
				checks["shutdown"] = healthStatusShuttingDown
				allOk = false
			} else {
				checks["shutdown"] = healthStatusOK
			}

			if store := h.serverContext.Store(); store != nil {
				ctx, cancel := context.WithTimeout(r.Context(), storagePingTimeout)
				defer cancel()
				if err := store.Ping(ctx); err != nil {
					checks["storage"] = healthStatusUnavailable
					allOk = false
				} else {
					checks["storage"] = healthStatusOK
				}
			}
		}

		response := HealthResponse{Checks: checks}
		if allOk {
			response.Status = healthStatusOK
			w.WriteHeader(http.StatusOK)
		} else {
			response.Status = healthStatusNotReady
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(response)
	})
}

// RegisterHealthEndpoints registers the health endpoints on the given mux.
func (h *HealthChecker) RegisterHealthEndpoints(mux *http.ServeMux) {
	mux.Handle("/healthz", h.LivenessHandler())
	mux.Handle("/readyz", h.ReadinessHandler())
}
