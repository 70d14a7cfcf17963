package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/upb/travel-agent/utils"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	statusOK       = "ok"
	statusReady    = "ready"
	statusNotReady = "not_ready"
	checkHealthy   = "healthy"
)

// Check reports whether one dependency can serve traffic
type Check func(ctx context.Context) error

type namedCheck struct {
	name  string
	check Check
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// HealthHandler serves liveness and readiness probes
type HealthHandler struct {
	checks  []namedCheck
	timeout time.Duration
	logger  *zap.Logger
}

// NewHealthHandler creates a new HealthHandler with no readiness checks
func NewHealthHandler(logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		timeout: 2 * time.Second,
		logger:  logger,
	}
}

// WithCheck adds a named readiness check
func (h *HealthHandler) WithCheck(name string, check Check) *HealthHandler {
	h.checks = append(h.checks, namedCheck{name: name, check: check})
	return h
}

// WithTimeout bounds the time all readiness checks may take together
func (h *HealthHandler) WithTimeout(timeout time.Duration) *HealthHandler {
	h.timeout = timeout
	return h
}

// HandleHealth handles GET /healthz
// Liveness only: it never touches a dependency
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	_ = utils.WriteJSON(w, http.StatusOK, HealthResponse{
		Status:    statusOK,
		Timestamp: time.Now().UTC(),
	})
}

// HandleReadiness handles GET /readyz
func (h *HealthHandler) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	response := HealthResponse{
		Status:    statusReady,
		Timestamp: time.Now().UTC(),
		Checks:    make(map[string]string, len(h.checks)),
	}

	var mu sync.Mutex
	var g errgroup.Group
	for _, c := range h.checks {
		g.Go(func() error {
			err := c.check(ctx)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				response.Status = statusNotReady
				response.Checks[c.name] = err.Error()
				h.logger.Warn("readiness check failed",
					zap.String("check", c.name),
					zap.Error(err))
				return nil
			}
			response.Checks[c.name] = checkHealthy
			return nil
		})
	}
	_ = g.Wait()

	if response.Status != statusReady {
		_ = utils.WriteServiceUnavailable(w, response)
		return
	}
	_ = utils.WriteJSON(w, http.StatusOK, response)
}
