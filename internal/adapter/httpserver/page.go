package httpserver

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pscheid92/hxzd-portal/internal/adapter/backend"
	"github.com/pscheid92/hxzd-portal/internal/domain"
	apperrors "github.com/pscheid92/hxzd-portal/internal/platform/errors"
	"github.com/pscheid92/hxzd-portal/internal/session"
)

const (
	msgLoadFailed         = "加载失败"
	msgNetworkError       = "网络错误"
	msgBackendUnavailable = "服务暂时不可用，请稍后再试"
	msgInternalError      = "服务器内部错误"
	msgSaved              = "已保存"
	msgDeleted            = "已删除"
)

// layout is embedded by every page model.
type layout struct {
	Settings  domain.SiteSettings
	User      *domain.User
	Flashes   []session.Flash
	CSRFToken string
	Nav       string
	Title     string
}

func (l layout) PageTitle() string {
	if l.Title != "" {
		return l.Title + " - " + l.Settings.DisplayTitle()
	}
	if l.Settings.SiteTitle != "" {
		return l.Settings.SiteTitle
	}
	return l.Settings.DisplayTitle()
}

func (l layout) LoggedIn() bool { return l.User != nil }

func (l layout) IsAdmin() bool { return l.User != nil && l.User.IsAdmin() }

func (s *Server) newLayout(c echo.Context, nav, title string) layout {
	ctx := c.Request().Context()
	sess := sessionFrom(c)
	return layout{
		Settings:  s.siteSettings(ctx),
		User:      sess.User(ctx),
		Flashes:   sess.Flashes(),
		CSRFToken: csrfToken(c),
		Nav:       nav,
		Title:     title,
	}
}

type errorPage struct {
	layout
	Status  int
	Message string
}

func (s *Server) renderErrorPage(c echo.Context, err *apperrors.Error) error {
	status := err.HTTPStatus()
	message := err.Message
	switch err.Type {
	case apperrors.TypeInternal:
		message = msgInternalError
	case apperrors.TypeExternal:
		message = backend.ErrorMessage(err, msgLoadFailed)
		if errors.Is(err, domain.ErrBackendUnavailable) || isBackendTransportError(err) {
			message = msgBackendUnavailable
		}
	}
	return s.renderTemplate(c, status, "error.html", errorPage{
		layout:  s.newLayout(c, "", strconv.Itoa(status)),
		Status:  status,
		Message: message,
	})
}

// handleHTTPError renders framework errors (unknown routes, CSRF rejections)
// as pages for browsers and defers to echo otherwise.
func (s *Server) handleHTTPError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	var httpErr *echo.HTTPError
	if !errors.As(err, &httpErr) || !wantsHTML(c) || sessionFrom(c) == nil {
		s.echo.DefaultHTTPErrorHandler(err, c)
		return
	}
	if renderErr := s.renderTemplate(c, httpErr.Code, "error.html", errorPage{
		layout:  s.newLayout(c, "", strconv.Itoa(httpErr.Code)),
		Status:  httpErr.Code,
		Message: visitorMessage(httpErr),
	}); renderErr != nil {
		s.echo.DefaultHTTPErrorHandler(err, c)
	}
}

func isBackendTransportError(err error) bool {
	if errors.Is(err, domain.ErrBackendUnavailable) {
		return true
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}

// failureText is the visitor-facing text for a failed backend call: the
// backend's own {error} text when it sent one, otherwise fallback.
func failureText(err error, fallback string) string {
	if isBackendTransportError(err) {
		return msgNetworkError
	}
	return backend.ErrorMessage(err, fallback)
}

func paramID(c echo.Context, name string) (uint, error) {
	return parseID(name, c.Param(name))
}

func parseID(name, raw string) (uint, error) {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, apperrors.ValidationError(fmt.Sprintf("invalid %s", name)).WithField(name, raw)
	}
	return uint(id), nil
}

func queryInt(c echo.Context, name string, def int) int {
	v, err := strconv.Atoi(c.QueryParam(name))
	if err != nil || v < 1 {
		return def
	}
	return v
}

func formInt(c echo.Context, name string) int {
	v, _ := strconv.Atoi(c.FormValue(name))
	return v
}

func formBool(c echo.Context, name string) bool {
	switch c.FormValue(name) {
	case "on", "true", "1":
		return true
	default:
		return false
	}
}
