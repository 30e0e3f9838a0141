package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/identity-service/internal/core/ports"
)

const readinessTimeout = 3 * time.Second

const (
	statusOK        = "ok"
	statusDegraded  = "degraded"
	statusUnhealthy = "unhealthy"
)

// HealthHandler serves the GET /health liveness probe.
// Returns 200 immediately; confirms the process is alive.
type HealthHandler struct{}

func NewHealthHandler() *HealthHandler {
	return &HealthHandler{}
}

func (h *HealthHandler) Liveness(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": statusOK,
	})
}

// Pinger is any dependency that can report reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthDependenciesHandler serves the GET /health/ready readiness probe.
// The credential store and its seeded roles gate readiness; the login
// limiter is optional and only degrades the report.
type HealthDependenciesHandler struct {
	store   ports.StoreHealth
	limiter Pinger
}

// NewHealthDependenciesHandler builds the readiness probe. limiter may be nil.
func NewHealthDependenciesHandler(store ports.StoreHealth, limiter Pinger) *HealthDependenciesHandler {
	return &HealthDependenciesHandler{store: store, limiter: limiter}
}

type dependencyStatus struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type readinessResponse struct {
	Status       string                      `json:"status"`
	Dependencies map[string]dependencyStatus `json:"dependencies"`
}

func (h *HealthDependenciesHandler) Readiness(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), readinessTimeout)
	defer cancel()

	deps := make(map[string]dependencyStatus)
	ready := true
	degraded := false

	// --- Credential store ping ---
	if err := h.store.Ping(ctx); err != nil {
		deps["credential_store"] = dependencyStatus{Status: statusUnhealthy, Error: err.Error()}
		ready = false
	} else {
		deps["credential_store"] = dependencyStatus{Status: statusOK}
	}

	// --- Roles seeded ---
	if ready {
		n, err := h.store.CountRoles(ctx)
		switch {
		case err != nil:
			deps["roles"] = dependencyStatus{Status: statusUnhealthy, Error: err.Error()}
			ready = false
		case n == 0:
			deps["roles"] = dependencyStatus{Status: statusDegraded, Error: "no roles seeded"}
			ready = false
		default:
			deps["roles"] = dependencyStatus{Status: statusOK}
		}
	}

	// --- Login limiter ping ---
	if h.limiter != nil {
		if err := h.limiter.Ping(ctx); err != nil {
			deps["redis"] = dependencyStatus{Status: statusUnhealthy, Error: err.Error()}
			degraded = true
		} else {
			deps["redis"] = dependencyStatus{Status: statusOK}
		}
	}

	status := statusOK
	httpStatus := http.StatusOK
	switch {
	case !ready:
		status = statusDegraded
		httpStatus = http.StatusServiceUnavailable
	case degraded:
		status = statusDegraded
	}

	return c.JSON(httpStatus, readinessResponse{
		Status:       status,
		Dependencies: deps,
	})
}
