package httpserver

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pscheid92/hxzd-portal/internal/platform/version"
)

const (
	startupProbeTimeout   = 2 * time.Second
	readinessProbeTimeout = 5 * time.Second
)

// HealthCheck is a named dependency probe, such as the Redis ping or the
// backend circuit breaker state.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

type readinessReport struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
	// Seconds since the last successful status poll; absent before the first.
	StatusAge *float64 `json:"status_age_seconds,omitempty"`
}

func (s *Server) registerHealthRoutes() {
	s.echo.GET("/health/startup", s.probe(startupProbeTimeout))
	s.echo.GET("/health/live", s.handleLiveness)
	s.echo.GET("/health/ready", s.probe(readinessProbeTimeout))
	s.echo.GET("/version", s.handleVersion)
}

// handleLiveness never consults dependencies: a down backend must not get the
// portal restarted, since it still serves cached status and error pages.
func (s *Server) handleLiveness(c echo.Context) error {
	response := map[string]any{
		"status": "ok",
		"uptime": s.clock.Since(s.startTime).Seconds(),
	}
	if err := c.JSON(http.StatusOK, response); err != nil {
		return fmt.Errorf("failed to write liveness response: %w", err)
	}
	return nil
}

func (s *Server) probe(timeout time.Duration) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), timeout)
		defer cancel()

		report := s.checkDependencies(ctx)
		code := http.StatusOK
		if report.Status != "ready" {
			code = http.StatusServiceUnavailable
		}
		if err := c.JSON(code, report); err != nil {
			return fmt.Errorf("failed to write probe response: %w", err)
		}
		return nil
	}
}

// checkDependencies runs every check so one report names all broken
// dependencies at once.
func (s *Server) checkDependencies(ctx context.Context) readinessReport {
	report := readinessReport{Status: "ready", Checks: make(map[string]string, len(s.healthChecks))}
	for _, hc := range s.healthChecks {
		if err := hc.Check(ctx); err != nil {
			slog.WarnContext(ctx, "Health check failed", "check", hc.Name, "error", err)
			report.Checks[hc.Name] = err.Error()
			report.Status = "unhealthy"
			continue
		}
		report.Checks[hc.Name] = "ok"
	}

	if s.status != nil {
		if fetched := s.status.Snapshot().FetchedAt; !fetched.IsZero() {
			age := s.clock.Since(fetched).Seconds()
			report.StatusAge = &age
		}
	}
	return report
}

func (s *Server) handleVersion(c echo.Context) error {
	if err := c.JSON(http.StatusOK, version.Get()); err != nil {
		return fmt.Errorf("failed to write version response: %w", err)
	}
	return nil
}
