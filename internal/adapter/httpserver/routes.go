package httpserver

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const (
	authRatePerSecond = 0.5
	authBurst         = 10
)

func (s *Server) registerRoutes() {
	s.echo.Use(correlationMiddleware)
	s.echo.Use(s.setupRequestLoggerMiddleware())
	s.echo.Use(middleware.Recover())
	if s.httpMetrics != nil {
		s.echo.Use(s.httpMetrics.Middleware())
	}
	s.echo.Use(ErrorHandlingMiddleware(s.renderErrorPage))
	s.echo.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:      "",
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      "DENY",
		HSTSMaxAge:         63072000, // 2 years; only sent over HTTPS
		HSTSPreloadEnabled: true,
		ContentSecurityPolicy: "default-src 'self'; " +
			"script-src 'self' 'unsafe-inline'; " +
			"style-src 'self' 'unsafe-inline' https://fonts.googleapis.com; " +
			"font-src 'self' https://fonts.gstatic.com; " +
			"img-src 'self' data: https: http:; " +
			"frame-src https: http:; " +
			"connect-src 'self'; " +
			"frame-ancestors 'none'",
		ReferrerPolicy: "strict-origin-when-cross-origin",
	}))
	s.echo.Use(s.sessionMiddleware)
	s.echo.Use(s.setupCSRFMiddleware())
	s.echo.Use(s.expiredSessionMiddleware)

	s.echo.StaticFS("/static", s.static)

	s.registerHealthRoutes()
	if s.metricsHandler != nil {
		s.echo.GET("/metrics", echo.WrapHandler(s.metricsHandler))
	}

	s.registerPublicRoutes()
	s.registerAuthRoutes(newRateLimiter(authRatePerSecond, authBurst))
	s.registerForumRoutes()
	s.registerAdminRoutes()
}

func (s *Server) registerPublicRoutes() {
	s.echo.GET("/", s.handleHome)
	s.echo.GET("/announcements", s.handleAnnouncements)
	s.echo.GET("/pages/:slug", s.handlePage)
	s.echo.GET("/map", s.handleMap)
	s.echo.GET("/status", s.handleStatus)
	s.echo.GET("/status.json", s.handleStatusJSON)
	s.echo.GET("/fragments/server-card", s.handleServerCard)
	if s.websocketHandler != nil {
		s.echo.GET("/ws/status", echo.WrapHandler(s.websocketHandler))
	}
}

func (s *Server) setupRequestLoggerMiddleware() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:  true,
		LogURI:     true,
		LogMethod:  true,
		LogLatency: true,
		LogError:   true,
		Skipper: func(c echo.Context) bool {
			return strings.HasPrefix(c.Path(), "/static") || strings.HasPrefix(c.Path(), "/health/")
		},
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
			}
			if v.Error != nil {
				attrs = append(attrs, "error", v.Error)
			}
			slog.InfoContext(c.Request().Context(), "Request", attrs...)
			return nil
		},
	})
}

func (s *Server) setupCSRFMiddleware() echo.MiddlewareFunc {
	return middleware.CSRFWithConfig(middleware.CSRFConfig{
		Skipper: func(c echo.Context) bool {
			p := c.Request().URL.Path
			return strings.HasPrefix(p, "/static/") ||
				strings.HasPrefix(p, "/health/") ||
				strings.HasPrefix(p, "/ws/") ||
				p == "/metrics" || p == "/version"
		},
		TokenLookup:    "form:csrf_token,header:X-CSRF-Token",
		CookieName:     csrfCookieName,
		CookiePath:     "/",
		CookieMaxAge:   int(s.config.SessionMaxAge.Seconds()),
		CookieHTTPOnly: true,
		CookieSecure:   s.config.IsProduction(),
		CookieSameSite: http.SameSiteStrictMode,
	})
}
