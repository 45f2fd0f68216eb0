// AngelaMos | 2026
// handler.go

package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
)

const checkTimeout = 3 * time.Second

type Checker interface {
	Ping(ctx context.Context) error
}

// Dependency is a backend the readiness probe pings. A failing Optional
// dependency marks the report degraded but keeps the instance in rotation.
type Dependency struct {
	Name     string
	Checker  Checker
	Optional bool
}

type Handler struct {
	deps     []Dependency
	shutdown atomic.Bool
}

// NewHandler drops dependencies without a checker, so backends that are
// switched off are not reported at all.
func NewHandler(deps ...Dependency) *Handler {
	h := &Handler{}
	for _, d := range deps {
		if d.Checker != nil {
			h.deps = append(h.deps, d)
		}
	}
	return h
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/healthz", h.Liveness)
	r.Get("/livez", h.Liveness)
	r.Get("/readyz", h.Readiness)
}

// SetShutdown fails both probes from now on.
func (h *Handler) SetShutdown(shutdown bool) { h.shutdown.Store(shutdown) }

func (h *Handler) Liveness(w http.ResponseWriter, _ *http.Request) {
	if h.shutdown.Load() {
		writeStatus(w, http.StatusServiceUnavailable, StatusResponse{Status: "shutting_down"})
		return
	}
	writeStatus(w, http.StatusOK, StatusResponse{Status: "ok"})
}

func (h *Handler) Readiness(w http.ResponseWriter, r *http.Request) {
	if h.shutdown.Load() {
		writeStatus(w, http.StatusServiceUnavailable, StatusResponse{Status: "shutting_down"})
		return
	}

	checks := h.probe(r.Context())

	resp := ReadinessResponse{Status: "ok", Checks: checks}
	code := http.StatusOK
	for i, c := range checks {
		if c.Healthy {
			continue
		}
		if h.deps[i].Optional {
			if resp.Status == "ok" {
				resp.Status = "degraded"
			}
			continue
		}
		resp.Status = "unavailable"
		code = http.StatusServiceUnavailable
	}

	writeStatus(w, code, resp)
}

// probe pings every dependency concurrently; results keep dependency order.
func (h *Handler) probe(ctx context.Context) []HealthCheck {
	checks := make([]HealthCheck, len(h.deps))

	var wg sync.WaitGroup
	for i, dep := range h.deps {
		wg.Go(func() {
			ctx, cancel := context.WithTimeout(ctx, checkTimeout)
			defer cancel()

			start := time.Now()
			err := dep.Checker.Ping(ctx)

			checks[i] = HealthCheck{
				Name:     dep.Name,
				Healthy:  err == nil,
				Optional: dep.Optional,
				Latency:  time.Since(start).Round(time.Microsecond).String(),
			}
			if err != nil {
				checks[i].Message = "ping failed"
			}
		})
	}
	wg.Wait()

	return checks
}

func writeStatus(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	//nolint:errcheck // best-effort response
	_ = json.NewEncoder(w).Encode(data)
}

type StatusResponse struct {
	Status string `json:"status"`
}

type ReadinessResponse struct {
	Status string        `json:"status"`
	Checks []HealthCheck `json:"checks"`
}

type HealthCheck struct {
	Name     string `json:"name"`
	Healthy  bool   `json:"healthy"`
	Optional bool   `json:"optional,omitempty"`
	Latency  string `json:"latency,omitempty"`
	Message  string `json:"message,omitempty"`
}
