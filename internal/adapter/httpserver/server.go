package httpserver

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	"github.com/pscheid92/hxzd-portal/internal/adapter/backend"
	"github.com/pscheid92/hxzd-portal/internal/adapter/metrics"
	"github.com/pscheid92/hxzd-portal/internal/app"
	"github.com/pscheid92/hxzd-portal/internal/domain"
	"github.com/pscheid92/hxzd-portal/internal/platform/config"
	"github.com/pscheid92/hxzd-portal/internal/session"
	"github.com/pscheid92/hxzd-portal/internal/view"
	"github.com/pscheid92/hxzd-portal/web"
)

// StatusView serves the polled server status overview.
type StatusView interface {
	Snapshot() app.StatusSnapshot
	Current(ctx context.Context) (*domain.StatusOverview, error)
}

// SettingsProvider serves the cached site settings.
type SettingsProvider interface {
	Get(ctx context.Context) (domain.SiteSettings, error)
	Invalidate(ctx context.Context) error
}

type Deps struct {
	Backend          *backend.Client
	Sessions         *session.Store
	Status           StatusView
	Settings         SettingsProvider
	Rotation         app.Rotation
	WebsocketHandler http.Handler
	MetricsHandler   http.Handler
	HTTPMetrics      *metrics.HTTPMetrics
	HealthChecks     []HealthCheck
	Clock            clockwork.Clock
}

type Server struct {
	echo   *echo.Echo
	config *config.Config

	backend  *backend.Client
	sessions *session.Store
	status   StatusView
	settings SettingsProvider
	rotation app.Rotation

	websocketHandler http.Handler
	metricsHandler   http.Handler
	httpMetrics      *metrics.HTTPMetrics

	views        *renderer
	static       fs.FS
	healthChecks []HealthCheck
	clock        clockwork.Clock
	startTime    time.Time
}

func NewServer(cfg *config.Config, deps Deps) (*Server, error) {
	views, err := newRenderer(web.TemplateFiles, view.Funcs(time.Local))
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	static, err := fs.Sub(web.StaticFiles, "static")
	if err != nil {
		return nil, fmt.Errorf("failed to open static files: %w", err)
	}

	clock := deps.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	srv := &Server{
		echo:             e,
		config:           cfg,
		backend:          deps.Backend,
		sessions:         deps.Sessions,
		status:           deps.Status,
		settings:         deps.Settings,
		rotation:         deps.Rotation,
		websocketHandler: deps.WebsocketHandler,
		metricsHandler:   deps.MetricsHandler,
		httpMetrics:      deps.HTTPMetrics,
		views:            views,
		static:           static,
		healthChecks:     deps.HealthChecks,
		clock:            clock,
		startTime:        clock.Now(),
	}

	e.HTTPErrorHandler = srv.handleHTTPError
	srv.registerRoutes()

	return srv, nil
}

func (s *Server) Start() error {
	slog.Info("Starting server", "port", s.config.Port)
	if err := s.echo.Start(":" + s.config.Port); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}

func (s *Server) renderTemplate(c echo.Context, status int, name string, data any) error {
	var buf bytes.Buffer
	if err := s.views.execute(&buf, name, data); err != nil {
		slog.ErrorContext(c.Request().Context(), "Template execution failed", "path", c.Request().URL.Path, "template", name, "error", err)
		if err := c.String(http.StatusInternalServerError, "Failed to render page"); err != nil {
			return fmt.Errorf("failed to send error response: %w", err)
		}
		return nil
	}
	if err := c.HTMLBlob(status, buf.Bytes()); err != nil {
		return fmt.Errorf("failed to send HTML response: %w", err)
	}
	return nil
}

func (s *Server) render(c echo.Context, name string, data any) error {
	return s.renderTemplate(c, http.StatusOK, name, data)
}

func (s *Server) renderFragment(c echo.Context, name string, data any) error {
	var buf bytes.Buffer
	if err := s.views.fragment(&buf, name, data); err != nil {
		slog.ErrorContext(c.Request().Context(), "Fragment execution failed", "fragment", name, "error", err)
		return c.NoContent(http.StatusInternalServerError)
	}
	if err := c.HTMLBlob(http.StatusOK, buf.Bytes()); err != nil {
		return fmt.Errorf("failed to send HTML response: %w", err)
	}
	return nil
}

func (s *Server) redirect(c echo.Context, to string) error {
	if err := c.Redirect(http.StatusSeeOther, to); err != nil {
		return fmt.Errorf("failed to redirect: %w", err)
	}
	return nil
}

// redirectWithFlash queues a one-shot message and sends the visitor to another page.
func (s *Server) redirectWithFlash(c echo.Context, kind, message, to string) error {
	sessionFrom(c).AddFlash(kind, message)
	return s.redirect(c, to)
}

func (s *Server) siteSettings(ctx context.Context) domain.SiteSettings {
	if s.settings == nil {
		return domain.SiteSettings{}
	}
	settings, err := s.settings.Get(ctx)
	if err != nil {
		slog.WarnContext(ctx, "Site settings unavailable, using defaults", "error", err)
	}
	return settings
}
