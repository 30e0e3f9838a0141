package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

type stubStoreHealth struct {
	pingErr  error
	roles    int64
	countErr error
}

func (s *stubStoreHealth) Ping(ctx context.Context) error { return s.pingErr }

func (s *stubStoreHealth) CountRoles(ctx context.Context) (int64, error) {
	return s.roles, s.countErr
}

type stubPinger struct{ err error }

func (p *stubPinger) Ping(ctx context.Context) error { return p.err }

func readiness(t *testing.T, h *HealthDependenciesHandler) (int, readinessResponse) {
	t.Helper()
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/health/ready", nil), rec)

	if err := h.Readiness(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	var resp readinessResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	return rec.Code, resp
}

func TestLiveness(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/health", nil), rec)

	if err := NewHealthHandler().Liveness(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestReadiness_AllHealthy(t *testing.T) {
	code, resp := readiness(t, NewHealthDependenciesHandler(&stubStoreHealth{roles: 4}, &stubPinger{}))
	if code != http.StatusOK || resp.Status != statusOK {
		t.Fatalf("expected ok, got %d %+v", code, resp)
	}
	if resp.Dependencies["redis"].Status != statusOK {
		t.Fatalf("expected redis ok: %+v", resp.Dependencies)
	}
}

func TestReadiness_NoRolesSeeded(t *testing.T) {
	code, resp := readiness(t, NewHealthDependenciesHandler(&stubStoreHealth{roles: 0}, nil))
	if code != http.StatusServiceUnavailable || resp.Status != statusDegraded {
		t.Fatalf("expected degraded 503, got %d %+v", code, resp)
	}
	if resp.Dependencies["roles"].Status != statusDegraded {
		t.Fatalf("unexpected roles status: %+v", resp.Dependencies["roles"])
	}
}

func TestReadiness_StoreDown(t *testing.T) {
	code, resp := readiness(t, NewHealthDependenciesHandler(&stubStoreHealth{pingErr: errors.New("no reachable servers")}, nil))
	if code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", code)
	}
	if resp.Dependencies["credential_store"].Status != statusUnhealthy {
		t.Fatalf("unexpected store status: %+v", resp.Dependencies)
	}
	if _, ok := resp.Dependencies["roles"]; ok {
		t.Fatalf("roles should not be checked when the store is down")
	}
}

func TestReadiness_RedisDownStillServes(t *testing.T) {
	code, resp := readiness(t, NewHealthDependenciesHandler(&stubStoreHealth{roles: 4}, &stubPinger{err: errors.New("dial tcp: refused")}))
	if code != http.StatusOK || resp.Status != statusDegraded {
		t.Fatalf("expected degraded 200, got %d %+v", code, resp)
	}
}
