// Package handlers implements the HTTP handlers of the harvester API:
// job submission and inspection, results export, and health probes.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	apperrors "github.com/vihaankulkarni29/NCBI-MetadataHarvester/internal/errors"
)

// HealthChecker probes one dependency.
type HealthChecker interface {
	CheckHealth(ctx context.Context) error
}

// HealthResponse is the body returned by the health endpoints.
type HealthResponse struct {
	Status  string            `json:"status"`
	Version string            `json:"version"`
	Checks  map[string]string `json:"checks,omitempty"`
}

// checkTimeout bounds each individual health probe.
const checkTimeout = 2 * time.Second

// HealthManager runs registered checkers and aggregates their status.
type HealthManager struct {
	version string

	mu       sync.RWMutex
	checkers map[string]HealthChecker
}

// NewHealthManager creates a manager reporting the given version.
func NewHealthManager(version string) *HealthManager {
	return &HealthManager{
		version:  version,
		checkers: make(map[string]HealthChecker),
	}
}

// RegisterChecker adds a named dependency probe.
func (m *HealthManager) RegisterChecker(name string, checker HealthChecker) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checkers[name] = checker
}

// runChecks probes every registered checker and returns per-check status:
// healthy, unhealthy, or timeout.
func (m *HealthManager) runChecks(ctx context.Context) map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	results := make(map[string]string, len(m.checkers))
	for name, checker := range m.checkers {
		checkCtx, cancel := context.WithTimeout(ctx, checkTimeout)
		err := checker.CheckHealth(checkCtx)
		cancel()

		switch {
		case err == nil:
			results[name] = "healthy"
		case errors.Is(err, context.DeadlineExceeded):
			results[name] = "timeout"
		default:
			results[name] = "unhealthy"
		}
	}
	return results
}

// determineOverallStatus folds per-check results into one status.
// Any unhealthy check wins over timeouts; timeouts degrade the service
// without failing it.
func (m *HealthManager) determineOverallStatus(checks map[string]string) string {
	status := "healthy"
	for _, s := range checks {
		switch s {
		case "unhealthy":
			return "unhealthy"
		case "timeout":
			status = "degraded"
		}
	}
	return status
}

// HealthHandler serves the full health report.
func (m *HealthManager) HealthHandler(w http.ResponseWriter, r *http.Request) {
	checks := m.runChecks(r.Context())
	status := m.determineOverallStatus(checks)

	if status == "unhealthy" {
		details := map[string]any{"checks": checks}
		apperrors.WriteErrorDetail(w, http.StatusServiceUnavailable, apperrors.ErrorDetail{
			Code:    "SERVICE_UNAVAILABLE",
			Message: "one or more health checks failed",
			Details: details,
		})
		return
	}

	writeJSON(w, http.StatusOK, HealthResponse{
		Status:  status,
		Version: m.version,
		Checks:  checks,
	})
}

// LivenessHandler reports process liveness without probing dependencies.
func (m *HealthManager) LivenessHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "healthy", Version: m.version})
}

// ReadinessHandler reports whether the service can take traffic.
func (m *HealthManager) ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	m.HealthHandler(w, r)
}

// StartupHandler reports whether startup completed.
func (m *HealthManager) StartupHandler(w http.ResponseWriter, r *http.Request) {
	m.HealthHandler(w, r)
}

// Global manager wiring. The server registers package-level handlers so
// route setup does not need to thread the manager through.
var globalHealthManager *HealthManager

// InitHealthManager installs the global health manager.
func InitHealthManager(version string) {
	globalHealthManager = NewHealthManager(version)
}

// GetHealthManager returns the global manager, or nil before init.
func GetHealthManager() *HealthManager {
	return globalHealthManager
}

func globalHandler(method func(*HealthManager, http.ResponseWriter, *http.Request)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if globalHealthManager == nil {
			apperrors.WriteError(w, http.StatusServiceUnavailable,
				"SERVICE_UNAVAILABLE", "health manager not initialized")
			return
		}
		method(globalHealthManager, w, r)
	}
}

// HealthHandler serves the global health report.
func HealthHandler(w http.ResponseWriter, r *http.Request) {
	globalHandler((*HealthManager).HealthHandler)(w, r)
}

// LivenessHandler serves the global liveness probe.
func LivenessHandler(w http.ResponseWriter, r *http.Request) {
	globalHandler((*HealthManager).LivenessHandler)(w, r)
}

// ReadinessHandler serves the global readiness probe.
func ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	globalHandler((*HealthManager).ReadinessHandler)(w, r)
}

// StartupHandler serves the global startup probe.
func StartupHandler(w http.ResponseWriter, r *http.Request) {
	globalHandler((*HealthManager).StartupHandler)(w, r)
}

// HealthzHandler is the minimal probe used by simple load balancers.
func HealthzHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
