package httpserver

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func healthOK(_ context.Context) error { return nil }

func healthErr(msg string) func(context.Context) error {
	return func(_ context.Context) error { return errors.New(msg) }
}

func TestHealthProbes(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		checks     []HealthCheck
		wantStatus int
		wantBody   []string
	}{
		{
			name: "startup all healthy",
			path: "/health/startup",
			checks: []HealthCheck{
				{Name: "redis", Check: healthOK},
				{Name: "backend", Check: healthOK},
			},
			wantStatus: http.StatusOK,
			wantBody:   []string{`"status":"ready"`},
		},
		{
			name: "startup redis down",
			path: "/health/startup",
			checks: []HealthCheck{
				{Name: "redis", Check: healthErr("connection refused")},
				{Name: "backend", Check: healthOK},
			},
			wantStatus: http.StatusServiceUnavailable,
			wantBody:   []string{`"status":"unhealthy"`, `"redis":"connection refused"`, `"backend":"ok"`},
		},
		{
			name: "readiness breaker open",
			path: "/health/ready",
			checks: []HealthCheck{
				{Name: "redis", Check: healthOK},
				{Name: "backend", Check: healthErr("backend unavailable")},
			},
			wantStatus: http.StatusServiceUnavailable,
			wantBody:   []string{`"status":"unhealthy"`, `"backend":"backend unavailable"`},
		},
		{
			name:       "readiness without checks",
			path:       "/health/ready",
			wantStatus: http.StatusOK,
			wantBody:   []string{`"status":"ready"`},
		},
		{
			name: "liveness ignores failing dependencies",
			path: "/health/live",
			checks: []HealthCheck{
				{Name: "backend", Check: healthErr("backend unavailable")},
			},
			wantStatus: http.StatusOK,
			wantBody:   []string{`"status":"ok"`, `"uptime"`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, withHealthChecks(tt.checks...))

			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			rec := httptest.NewRecorder()
			env.srv.echo.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			for _, want := range tt.wantBody {
				assert.Contains(t, rec.Body.String(), want)
			}
		})
	}
}

func TestReadiness_RunsEveryCheck(t *testing.T) {
	called := false
	env := newTestEnv(t, withHealthChecks(
		HealthCheck{Name: "redis", Check: healthErr("connection refused")},
		HealthCheck{Name: "backend", Check: func(context.Context) error {
			called = true
			return errors.New("circuit breaker is open")
		}},
	))

	rec := httptest.NewRecorder()
	env.srv.echo.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.True(t, called)
	assert.JSONEq(t, `{
		"status": "unhealthy",
		"checks": {"redis": "connection refused", "backend": "circuit breaker is open"}
	}`, rec.Body.String())
}

func TestReadiness_ReportsStatusAge(t *testing.T) {
	env := newTestEnv(t, withStatus(twoServers(), nil))
	env.status.at = env.clock.Now().Add(-45 * time.Second)

	rec := httptest.NewRecorder()
	env.srv.echo.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ready","checks":{},"status_age_seconds":45}`, rec.Body.String())
}

func TestHandleLiveness_UptimeFollowsClock(t *testing.T) {
	env := newTestEnv(t)
	env.clock.Advance(90 * time.Second)

	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/health/live", nil), rec)

	require.NoError(t, env.srv.handleLiveness(c))
	assert.JSONEq(t, `{"status":"ok","uptime":90}`, rec.Body.String())
}

func TestHandleVersion(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/version", nil)
	rec := httptest.NewRecorder()
	env.srv.echo.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `"version"`)
	assert.Contains(t, body, `"commit"`)
	assert.Contains(t, body, `"build_time"`)
	assert.Contains(t, body, `"go_version"`)
}
