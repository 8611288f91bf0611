package rest

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/fraudscope/transaction-scoring-backend/internal/domain/transaction"
	"github.com/fraudscope/transaction-scoring-backend/internal/service/scoring"
)

// HealthChecker probes one dependency of the service.
type HealthChecker interface {
	Name() string
	Check(ctx context.Context) error
}

// HealthService aggregates dependency checks into liveness and
// readiness endpoints.
type HealthService struct {
	mu       sync.RWMutex
	checkers []HealthChecker
}

// NewHealthService creates an empty health registry.
func NewHealthService() *HealthService {
	return &HealthService{}
}

// Register adds a dependency checker.
func (h *HealthService) Register(checker HealthChecker) {
	h.mu.Lock()
	h.checkers = append(h.checkers, checker)
	h.mu.Unlock()
}

// LivenessHandler reports that the process is up. It never checks
// dependencies: a live but degraded process should be kept, not killed.
func (h *HealthService) LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// ReadinessHandler runs every registered check and reports 503 if any
// dependency is unhealthy.
func (h *HealthService) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		h.mu.RLock()
		checkers := make([]HealthChecker, len(h.checkers))
		copy(checkers, h.checkers)
		h.mu.RUnlock()

		status := http.StatusOK
		checks := make(map[string]string, len(checkers))
		for _, c := range checkers {
			if err := c.Check(ctx); err != nil {
				checks[c.Name()] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			checks[c.Name()] = "ok"
		}

		overall := "ready"
		if status != http.StatusOK {
			overall = "not_ready"
		}
		writeJSON(w, status, map[string]any{
			"status": overall,
			"checks": checks,
		})
	}
}

// modelHealthChecker verifies the scoring pipeline end to end with a
// synthetic probe against a reserved entity key. The probe key keeps a
// tiny aggregate of its own, which is harmless and invisible to real
// entities.
type modelHealthChecker struct {
	scoring scoring.Service
}

// NewModelHealthChecker creates the scoring readiness probe.
func NewModelHealthChecker(svc scoring.Service) HealthChecker {
	return &modelHealthChecker{scoring: svc}
}

func (m *modelHealthChecker) Name() string { return "scoring" }

func (m *modelHealthChecker) Check(ctx context.Context) error {
	_, err := m.scoring.Score(ctx, probeTransaction())
	return err
}

func probeTransaction() *transaction.Transaction {
	return &transaction.Transaction{
		EntityKey:  "__healthcheck__",
		Amount:     1,
		LocationID: 0,
		HourOfDay:  0,
	}
}
