package httpserver

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pscheid92/hxzd-portal/internal/adapter/backend"
	"github.com/pscheid92/hxzd-portal/internal/app"
	"github.com/pscheid92/hxzd-portal/internal/domain"
	apperrors "github.com/pscheid92/hxzd-portal/internal/platform/errors"
	"github.com/pscheid92/hxzd-portal/internal/view"
)

const latestAnnouncements = 3

type homePage struct {
	layout
	Overview       *domain.StatusOverview
	StatusFailed   bool
	MOTD           string
	Card           view.ServerCard
	RotationMillis int64

	Announcements       []domain.Announcement
	AnnouncementsFailed bool
}

func (s *Server) handleHome(c echo.Context) error {
	ctx := c.Request().Context()
	data := homePage{
		layout:         s.newLayout(c, "home", ""),
		RotationMillis: s.rotation.Interval().Milliseconds(),
	}

	overview, err := s.status.Current(ctx)
	if err != nil {
		slog.WarnContext(ctx, "Server status unavailable", "error", err)
		data.StatusFailed = true
		data.Card = view.OfflineCard()
	} else {
		data.Overview = overview
		if first, ok := overview.FirstOnline(); ok {
			data.MOTD = first.MOTD
		}
		data.Card = s.currentCard(overview)
	}

	anns, err := s.backend.LatestAnnouncements(ctx, backend.Anonymous{}, latestAnnouncements)
	if err != nil {
		slog.WarnContext(ctx, "Failed to load latest announcements", "error", err)
		data.AnnouncementsFailed = true
	}
	data.Announcements = anns

	return s.render(c, "home.html", data)
}

func (s *Server) currentCard(overview *domain.StatusOverview) view.ServerCard {
	_, idx, ok := app.Pick(s.rotation, overview.Servers)
	if !ok {
		return view.NewServerCard(nil, -1)
	}
	return view.NewServerCard(overview.Servers, idx)
}

// handleServerCard renders the rotating home page card for the current rotation slot.
func (s *Server) handleServerCard(c echo.Context) error {
	overview, err := s.status.Current(c.Request().Context())
	card := view.OfflineCard()
	if err == nil {
		card = s.currentCard(overview)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "no-store")
	return s.renderFragment(c, "server_card", card)
}

type announcementsPage struct {
	layout
	Announcements []domain.Announcement
	LoadError     string
}

func (s *Server) handleAnnouncements(c echo.Context) error {
	data := announcementsPage{layout: s.newLayout(c, "announcements", "公告")}

	anns, err := s.backend.Announcements(c.Request().Context(), backend.Anonymous{})
	if err != nil {
		slog.WarnContext(c.Request().Context(), "Failed to load announcements", "error", err)
		data.LoadError = msgLoadFailed
	}
	data.Announcements = anns

	return s.render(c, "announcements.html", data)
}

type contentPage struct {
	layout
	Page *domain.Page
}

func (s *Server) handlePage(c echo.Context) error {
	slug := c.Param("slug")
	page, err := s.backend.Page(c.Request().Context(), backend.Anonymous{}, slug)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return apperrors.NotFoundError("页面不存在").WithField("slug", slug)
		}
		return fmt.Errorf("failed to load page %q: %w", slug, err)
	}

	title := page.Title
	if title == "" {
		title = page.Slug
	}
	return s.render(c, "page.html", contentPage{layout: s.newLayout(c, "page:"+slug, title), Page: page})
}

type mapPage struct {
	layout
	Maps      []domain.WorldMap
	LoadError string
}

func (s *Server) handleMap(c echo.Context) error {
	data := mapPage{layout: s.newLayout(c, "map", "世界地图")}

	maps, err := s.backend.WorldMaps(c.Request().Context(), backend.Anonymous{})
	if err != nil {
		slog.WarnContext(c.Request().Context(), "Failed to load world maps", "error", err)
		data.LoadError = msgLoadFailed
	}
	for _, m := range maps {
		if m.Enabled {
			data.Maps = append(data.Maps, m)
		}
	}

	return s.render(c, "map.html", data)
}

type statusPage struct {
	layout
	Overview  *domain.StatusOverview
	FetchedAt time.Time
	LoadError string
	EmbedURL  string
}

func (s *Server) handleStatus(c echo.Context) error {
	ctx := c.Request().Context()
	data := statusPage{layout: s.newLayout(c, "status", "服务器状态")}

	overview, err := s.status.Current(ctx)
	if err != nil {
		slog.WarnContext(ctx, "Server status unavailable", "error", err)
		data.LoadError = msgLoadFailed
	} else {
		data.Overview = overview
		data.FetchedAt = s.status.Snapshot().FetchedAt
	}

	// The embed is optional; a failure here never affects the rest of the page.
	if cfg, err := s.backend.StatusConfig(ctx); err == nil {
		data.EmbedURL = cfg.EmbedURL
	} else {
		slog.DebugContext(ctx, "Status embed config unavailable", "error", err)
	}

	return s.render(c, "status.html", data)
}

type statusJSON struct {
	*domain.StatusOverview
	FetchedAt string `json:"fetched_at,omitempty"`
}

// handleStatusJSON is the polling fallback for browsers without websockets.
func (s *Server) handleStatusJSON(c echo.Context) error {
	overview, err := s.status.Current(c.Request().Context())
	if err != nil {
		return apperrors.ExternalError(backend.ErrorMessage(err, msgLoadFailed), err)
	}
	body := statusJSON{StatusOverview: overview}
	if at := s.status.Snapshot().FetchedAt; !at.IsZero() {
		body.FetchedAt = at.UTC().Format(time.RFC3339)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "no-store")
	return c.JSON(http.StatusOK, body)
}
