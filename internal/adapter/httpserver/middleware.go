package httpserver

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pscheid92/hxzd-portal/internal/adapter/backend"
	"github.com/pscheid92/hxzd-portal/internal/platform/correlation"
	apperrors "github.com/pscheid92/hxzd-portal/internal/platform/errors"
	"github.com/pscheid92/hxzd-portal/internal/session"
)

const (
	contextKeySession = "session"
	csrfCookieName    = "csrf_token"

	msgLoginRequired  = "请先登录"
	msgAdminRequired  = "需要管理员登录"
	msgSessionExpired = "登录已过期，请重新登录"
)

func correlationMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := correlation.FromRequest(c.Request())
		ctx := correlation.WithID(c.Request().Context(), id)
		c.SetRequest(c.Request().WithContext(ctx))
		c.Response().Header().Set(correlation.Header, id)
		return next(c)
	}
}

// sessionMiddleware opens the visitor's session once per request.
func (s *Server) sessionMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		c.Set(contextKeySession, s.sessions.Open(c.Response(), c.Request()))
		return next(c)
	}
}

func sessionFrom(c echo.Context) *session.Session {
	sess, _ := c.Get(contextKeySession).(*session.Session)
	return sess
}

func csrfToken(c echo.Context) string {
	token, _ := c.Get(middleware.DefaultCSRFConfig.ContextKey).(string)
	return token
}

// expiredSessionMiddleware turns a backend 401 anywhere below it into a
// redirect to the login page. The gateway has already cleared the session.
func (s *Server) expiredSessionMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		err := next(c)
		if err == nil || !backend.IsUnauthorized(err) {
			return err
		}

		slog.InfoContext(c.Request().Context(), "Backend rejected session", "path", c.Request().URL.Path)
		sess := sessionFrom(c)
		if clearErr := sess.Clear(c.Request().Context()); clearErr != nil {
			slog.WarnContext(c.Request().Context(), "Failed to clear session", "error", clearErr)
		}
		return s.redirectWithFlash(c, session.FlashError, msgSessionExpired, "/login")
	}
}

func (s *Server) requireLogin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		sess := sessionFrom(c)
		if !sess.IsLoggedIn(c.Request().Context()) {
			return s.redirectWithFlash(c, session.FlashInfo, msgLoginRequired, "/login")
		}
		c.Set("userID", sess.User(c.Request().Context()).ID)
		return next(c)
	}
}

func (s *Server) requireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		sess := sessionFrom(c)
		if !sess.IsAdmin(c.Request().Context()) {
			return s.redirectWithFlash(c, session.FlashError, msgAdminRequired, "/login")
		}
		c.Set("userID", sess.User(c.Request().Context()).ID)
		return next(c)
	}
}

type errorPageFunc func(c echo.Context, err *apperrors.Error) error

// ErrorHandlingMiddleware logs handler errors and answers with an HTML error
// page for browsers or a JSON body for everything else.
func ErrorHandlingMiddleware(page errorPageFunc) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)
			if err == nil {
				return nil
			}

			var httpErr *echo.HTTPError
			if errors.As(err, &httpErr) {
				return err
			}

			return HandleError(c, err, page)
		}
	}
}

func wantsHTML(c echo.Context) bool {
	return strings.Contains(c.Request().Header.Get(echo.HeaderAccept), echo.MIMETextHTML)
}

func logError(c echo.Context, err *apperrors.Error) {
	ctx := c.Request().Context()
	attrs := []any{
		"error_type", err.Type,
		"message", err.Message,
		"path", c.Request().URL.Path,
		"method", c.Request().Method,
		"status", err.HTTPStatus(),
	}

	for k, v := range err.Context {
		attrs = append(attrs, k, v)
	}

	if userID := c.Get("userID"); userID != nil {
		attrs = append(attrs, "user_id", userID)
	}

	switch err.Type {
	case apperrors.TypeValidation, apperrors.TypeUnauthorized, apperrors.TypeForbidden:
		slog.InfoContext(ctx, "Request rejected", attrs...)
	case apperrors.TypeNotFound:
		slog.InfoContext(ctx, "Not found", attrs...)
	case apperrors.TypeConflict:
		slog.WarnContext(ctx, "Conflict", attrs...)
	case apperrors.TypeInternal:
		if err.Cause != nil {
			attrs = append(attrs, "cause", err.Cause)
		}
		slog.ErrorContext(ctx, "Internal error", attrs...)
	case apperrors.TypeExternal:
		if err.Cause != nil {
			attrs = append(attrs, "cause", err.Cause)
		}
		slog.ErrorContext(ctx, "Backend error", attrs...)
	default:
		slog.ErrorContext(ctx, "Unknown error type", attrs...)
	}
}

// HandleError logs err and writes the error response. page may be nil.
func HandleError(c echo.Context, err error, page errorPageFunc) error {
	if err == nil {
		return nil
	}

	structuredErr := classify(err)
	logError(c, structuredErr)

	if page != nil && wantsHTML(c) {
		return page(c, structuredErr)
	}
	if err := c.JSON(structuredErr.HTTPStatus(), structuredErr.ToResponse()); err != nil {
		return fmt.Errorf("failed to write error response: %w", err)
	}
	return nil
}

// classify maps handler errors onto structured errors, treating transport
// failures towards the backend as external rather than internal.
func classify(err error) *apperrors.Error {
	structuredErr := apperrors.AsStructuredError(err)
	if structuredErr.Type == apperrors.TypeInternal && isBackendTransportError(err) {
		return apperrors.ExternalError(msgBackendUnavailable, err)
	}
	return structuredErr
}

// visitorMessage is the error page text for rejections raised by echo
// itself: routing misses, CSRF failures and rate limiting.
func visitorMessage(httpErr *echo.HTTPError) string {
	switch httpErr.Code {
	case http.StatusNotFound, http.StatusMethodNotAllowed:
		return "页面不存在"
	case http.StatusForbidden:
		return "页面已过期，请刷新后重试"
	case http.StatusTooManyRequests:
		return msgRateLimited
	case http.StatusBadRequest:
		return "请求无效"
	}
	if httpErr.Code >= http.StatusInternalServerError {
		return msgBackendUnavailable
	}
	if msg, ok := httpErr.Message.(string); ok && msg != "" {
		return msg
	}
	return http.StatusText(httpErr.Code)
}
