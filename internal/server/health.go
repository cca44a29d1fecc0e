package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// HealthChecker is anything that can report its own connectivity.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	store HealthChecker
	cache HealthChecker
}

// NewHealthHandler checks store on every request. cache may be nil; a failing
// cache is reported but does not fail the check, since sessions fall back to
// the store.
func NewHealthHandler(store, cache HealthChecker) *HealthHandler {
	return &HealthHandler{store: store, cache: cache}
}

type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := map[string]string{}
	status := http.StatusOK
	resp := HealthResponse{Status: "ok", Checks: checks}

	if err := h.store.Ping(ctx); err != nil {
		checks["store"] = "error: " + err.Error()
		resp.Status = "unavailable"
		status = http.StatusServiceUnavailable
	} else {
		checks["store"] = "ok"
	}

	if h.cache != nil {
		if err := h.cache.Ping(ctx); err != nil {
			checks["cache"] = "error: " + err.Error()
		} else {
			checks["cache"] = "ok"
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}
