package httpserver

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/labstack/echo/v4"
	"github.com/pscheid92/hxzd-portal/internal/adapter/backend"
	"github.com/pscheid92/hxzd-portal/internal/app/admin"
	"github.com/pscheid92/hxzd-portal/internal/domain"
	apperrors "github.com/pscheid92/hxzd-portal/internal/platform/errors"
	"github.com/pscheid92/hxzd-portal/internal/session"
)

const adminForumPageSize = 50

func (s *Server) registerAdminRoutes() {
	g := s.echo.Group("/admin", s.requireAdmin)

	g.GET("", s.handleDashboard)

	registerSection(s, g, sectionSpec[domain.Announcement]{
		name:     "announcements",
		title:    "公告管理",
		template: "admin_announcements.html",
		saved:    msgSaved,
		store:    func() admin.Store[domain.Announcement] { return s.backend.AnnouncementCollection() },
		parse:    parseAnnouncement,
	})
	g.POST("/announcements/:id/pin", s.handleToggleAnnouncementPin)

	g.GET("/forum", s.handleAdminForum)
	g.POST("/forum/:id/pin", s.handleAdminTogglePostPin)
	g.POST("/forum/:id/delete", s.handleAdminDeletePost)

	g.GET("/users", s.handleUsers)
	g.POST("/users/:id/role", s.handleUserRole)
	g.POST("/users/:id/password", s.handleUserPassword)
	g.POST("/users/:id/delete", s.handleDeleteUser)

	g.GET("/pages", s.handleAdminPages)
	g.POST("/pages/:slug", s.handleSavePage)

	g.GET("/settings", s.handleSettings)
	g.POST("/settings", s.handleSaveSettings)

	registerSection(s, g, sectionSpec[domain.ServerEntry]{
		name:     "servers",
		title:    "服务器管理",
		template: "admin_servers.html",
		saved:    "服务器已保存",
		store:    func() admin.Store[domain.ServerEntry] { return s.backend.ServerCollection() },
		parse:    parseServerEntry,
		decorate: s.joinServerStatus,
	})
	g.POST("/servers/refresh", s.handleRefreshServers)

	registerSection(s, g, sectionSpec[domain.WorldMap]{
		name:     "maps",
		title:    "地图管理",
		template: "admin_maps.html",
		saved:    "地图已保存",
		store:    func() admin.Store[domain.WorldMap] { return s.backend.WorldMapCollection() },
		parse:    parseWorldMap,
	})

	g.GET("/status", s.handleStatusConfig)
	g.POST("/status", s.handleSaveStatusConfig)
}

type dashboardPage struct {
	layout
	Stats     admin.DashboardStats
	LoadError string
}

func (s *Server) handleDashboard(c echo.Context) error {
	ctx := c.Request().Context()
	stats, err := admin.LoadDashboard(ctx, s.backend, s.status, sessionFrom(c))
	data := dashboardPage{Stats: stats}
	if err != nil {
		if backend.IsUnauthorized(err) {
			return err
		}
		slog.WarnContext(ctx, "Dashboard counters unavailable", "error", err)
		data.LoadError = msgLoadFailed
	}
	data.layout = s.newLayout(c, "admin:dashboard", "管理面板")
	return s.render(c, "admin_dashboard.html", data)
}

// sectionSpec describes one list-plus-form admin section backed by a collection.
type sectionSpec[T admin.Item] struct {
	name     string
	title    string
	template string
	saved    string
	store    func() admin.Store[T]
	parse    func(c echo.Context) (T, error)
	decorate func(ctx context.Context, page *sectionPage[T])
}

func (spec sectionSpec[T]) path() string { return "/admin/" + spec.name }

type sectionPage[T admin.Item] struct {
	layout
	Items     []T
	Form      *T
	EditID    uint
	FormOpen  bool
	LoadError string
	FormError string
	Extra     any
}

func registerSection[T admin.Item](s *Server, g *echo.Group, spec sectionSpec[T]) {
	base := "/" + spec.name
	g.GET(base, func(c echo.Context) error { return showSection(s, c, spec) })
	g.POST(base, func(c echo.Context) error { return saveSection(s, c, spec, 0) })
	g.POST(base+"/:id", func(c echo.Context) error {
		id, err := paramID(c, "id")
		if err != nil {
			return err
		}
		return saveSection(s, c, spec, id)
	})
	g.POST(base+"/:id/delete", func(c echo.Context) error { return deleteFromSection(s, c, spec) })
}

// showSection renders the list, opening the edit form for ?edit={id} or an
// empty create form for ?new=1.
func showSection[T admin.Item](s *Server, c echo.Context, spec sectionSpec[T]) error {
	ctx := c.Request().Context()
	sec := admin.NewSection(spec.name, spec.store(), sessionFrom(c))

	var data sectionPage[T]
	if err := sec.Load(ctx); err != nil {
		if backend.IsUnauthorized(err) {
			return err
		}
		slog.WarnContext(ctx, "Admin section load failed", "section", spec.name, "error", err)
		data.LoadError = failureText(err, msgLoadFailed)
	} else {
		var openErr error
		if raw := c.QueryParam("edit"); raw != "" {
			id, err := parseID("edit", raw)
			if err != nil {
				return err
			}
			openErr = sec.OpenForm(ctx, id)
		} else if c.QueryParam("new") == "1" {
			openErr = sec.OpenForm(ctx, 0)
		}
		if openErr != nil {
			if backend.IsUnauthorized(openErr) {
				return openErr
			}
			data.FormError = failureText(openErr, msgLoadFailed)
		}
	}

	data.Items = sec.Items
	data.Form = sec.Editing
	data.EditID = sec.EditID
	data.FormOpen = sec.State() == admin.FormOpen
	return renderSection(s, c, spec, data)
}

func renderSection[T admin.Item](s *Server, c echo.Context, spec sectionSpec[T], data sectionPage[T]) error {
	if spec.decorate != nil {
		spec.decorate(c.Request().Context(), &data)
	}
	data.layout = s.newLayout(c, "admin:"+spec.name, spec.title)
	return s.render(c, spec.template, data)
}

// saveSection creates (id 0) or updates an item. A rejected form is shown
// again with the submitted values and the reason.
func saveSection[T admin.Item](s *Server, c echo.Context, spec sectionSpec[T], id uint) error {
	ctx := c.Request().Context()
	item, err := spec.parse(c)
	if err == nil {
		sec := admin.NewSection(spec.name, spec.store(), sessionFrom(c))
		if err = sec.Save(ctx, id, item); err == nil {
			return s.redirectWithFlash(c, session.FlashSuccess, spec.saved, spec.path())
		}
		if backend.IsUnauthorized(err) {
			return err
		}
	}

	data := sectionPage[T]{Form: &item, EditID: id, FormOpen: true, FormError: formFailure(err)}
	list := admin.NewSection(spec.name, spec.store(), sessionFrom(c))
	if loadErr := list.Load(ctx); loadErr != nil {
		data.LoadError = failureText(loadErr, msgLoadFailed)
	}
	data.Items = list.Items
	return renderSection(s, c, spec, data)
}

func formFailure(err error) string {
	var appErr *apperrors.Error
	if errors.As(err, &appErr) && appErr.Type == apperrors.TypeValidation {
		return appErr.Message
	}
	return failureText(err, "保存失败")
}

func deleteFromSection[T admin.Item](s *Server, c echo.Context, spec sectionSpec[T]) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	sec := admin.NewSection(spec.name, spec.store(), sessionFrom(c))
	if err := sec.Delete(c.Request().Context(), id); err != nil {
		if backend.IsUnauthorized(err) {
			return err
		}
		return s.redirectWithFlash(c, session.FlashError, failureText(err, "删除失败"), spec.path())
	}
	return s.redirectWithFlash(c, session.FlashSuccess, msgDeleted, spec.path())
}

func parseAnnouncement(c echo.Context) (domain.Announcement, error) {
	a := domain.Announcement{
		Title:    strings.TrimSpace(c.FormValue("title")),
		Content:  c.FormValue("content"),
		IsPinned: formBool(c, "is_pinned"),
	}
	if a.Title == "" {
		return a, apperrors.ValidationError("标题不能为空")
	}
	return a, nil
}

func parseServerEntry(c echo.Context) (domain.ServerEntry, error) {
	srv := domain.ServerEntry{
		Name:       strings.TrimSpace(c.FormValue("name")),
		Address:    strings.TrimSpace(c.FormValue("address")),
		ServerType: strings.TrimSpace(c.FormValue("server_type")),
		SortOrder:  formInt(c, "sort_order"),
		Enabled:    formBool(c, "enabled"),
	}
	if srv.Name == "" || srv.Address == "" {
		return srv, apperrors.ValidationError("名称和地址不能为空")
	}
	return srv, nil
}

func parseWorldMap(c echo.Context) (domain.WorldMap, error) {
	m := domain.WorldMap{
		Name:      strings.TrimSpace(c.FormValue("name")),
		EmbedURL:  strings.TrimSpace(c.FormValue("embed_url")),
		SortOrder: formInt(c, "sort_order"),
		Enabled:   formBool(c, "enabled"),
	}
	if m.Name == "" {
		return m, apperrors.ValidationError("名称不能为空")
	}
	return m, nil
}

// joinServerStatus attaches the last polled status to each configured server.
func (s *Server) joinServerStatus(ctx context.Context, page *sectionPage[domain.ServerEntry]) {
	statuses := map[uint]domain.ServerStatus{}
	if overview, err := s.status.Current(ctx); err == nil {
		statuses = overview.ByServerID()
	} else {
		slog.DebugContext(ctx, "Server status unavailable for admin list", "error", err)
	}
	page.Extra = statuses
}

func (s *Server) handleToggleAnnouncementPin(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	pinned := formBool(c, "pinned")
	sec := admin.NewSection("announcements", s.backend.AnnouncementCollection(), sessionFrom(c))
	if err := sec.Patch(c.Request().Context(), id, map[string]any{"is_pinned": pinned}); err != nil {
		if backend.IsUnauthorized(err) {
			return err
		}
		return s.redirectWithFlash(c, session.FlashError, failureText(err, "保存失败"), "/admin/announcements")
	}
	return s.redirectWithFlash(c, session.FlashSuccess, pinMessage(pinned), "/admin/announcements")
}

func pinMessage(pinned bool) string {
	if pinned {
		return "已置顶"
	}
	return "已取消置顶"
}

type adminForumPage struct {
	layout
	Posts     []domain.ForumPost
	LoadError string
}

func (s *Server) handleAdminForum(c echo.Context) error {
	ctx := c.Request().Context()
	data := adminForumPage{}
	result, err := s.backend.Posts(ctx, sessionFrom(c), domain.PostQuery{Page: 1, Size: adminForumPageSize})
	if err != nil {
		if backend.IsUnauthorized(err) {
			return err
		}
		slog.WarnContext(ctx, "Admin forum list failed", "error", err)
		data.LoadError = msgLoadFailed
	} else {
		data.Posts = result.Posts
	}
	data.layout = s.newLayout(c, "admin:forum", "论坛管理")
	return s.render(c, "admin_forum.html", data)
}

func (s *Server) handleAdminTogglePostPin(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	pinned := formBool(c, "pinned")
	if _, err := s.backend.UpdatePost(c.Request().Context(), sessionFrom(c), id, domain.PostInput{IsPinned: &pinned}); err != nil {
		if backend.IsUnauthorized(err) {
			return err
		}
		return s.redirectWithFlash(c, session.FlashError, failureText(err, "保存失败"), "/admin/forum")
	}
	return s.redirectWithFlash(c, session.FlashSuccess, pinMessage(pinned), "/admin/forum")
}

func (s *Server) handleAdminDeletePost(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if err := s.backend.DeletePost(c.Request().Context(), sessionFrom(c), id); err != nil {
		if backend.IsUnauthorized(err) {
			return err
		}
		return s.redirectWithFlash(c, session.FlashError, failureText(err, "删除失败"), "/admin/forum")
	}
	return s.redirectWithFlash(c, session.FlashSuccess, msgDeleted, "/admin/forum")
}

type usersPage struct {
	layout
	Users     []domain.User
	LoadError string
}

func (s *Server) handleUsers(c echo.Context) error {
	ctx := c.Request().Context()
	data := usersPage{}
	users, err := s.backend.Users(ctx, sessionFrom(c))
	if err != nil {
		if backend.IsUnauthorized(err) {
			return err
		}
		slog.WarnContext(ctx, "User list failed", "error", err)
		data.LoadError = msgLoadFailed
	}
	data.Users = users
	data.layout = s.newLayout(c, "admin:users", "用户管理")
	return s.render(c, "admin_users.html", data)
}

func (s *Server) handleUserRole(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	role := domain.Role(c.FormValue("role"))
	if role != domain.RoleAdmin && role != domain.RoleUser {
		return apperrors.ValidationError("invalid role").WithField("role", string(role))
	}
	if err := s.backend.SetUserRole(c.Request().Context(), sessionFrom(c), id, role); err != nil {
		if backend.IsUnauthorized(err) {
			return err
		}
		return s.redirectWithFlash(c, session.FlashError, failureText(err, "更新失败"), "/admin/users")
	}
	return s.redirectWithFlash(c, session.FlashSuccess, "角色已更新", "/admin/users")
}

func (s *Server) handleUserPassword(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	password := c.FormValue("new_password")
	if utf8.RuneCountInString(password) < minPasswordLen {
		return s.redirectWithFlash(c, session.FlashError, "密码至少6位", "/admin/users")
	}
	if err := s.backend.ResetUserPassword(c.Request().Context(), sessionFrom(c), id, password); err != nil {
		if backend.IsUnauthorized(err) {
			return err
		}
		return s.redirectWithFlash(c, session.FlashError, failureText(err, "重置失败"), "/admin/users")
	}
	return s.redirectWithFlash(c, session.FlashSuccess, "密码已重置", "/admin/users")
}

// handleDeleteUser surfaces the backend's reason when it refuses, e.g. for
// the last admin account.
func (s *Server) handleDeleteUser(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if err := s.backend.DeleteUser(c.Request().Context(), sessionFrom(c), id); err != nil {
		if backend.IsUnauthorized(err) {
			return err
		}
		return s.redirectWithFlash(c, session.FlashError, failureText(err, "删除失败"), "/admin/users")
	}
	return s.redirectWithFlash(c, session.FlashSuccess, msgDeleted, "/admin/users")
}

type adminPagesPage struct {
	layout
	Pages     []domain.Page
	LoadError string
}

func (s *Server) handleAdminPages(c echo.Context) error {
	ctx := c.Request().Context()
	data := adminPagesPage{}
	pages, err := s.backend.AdminPages(ctx, sessionFrom(c))
	if err != nil {
		if backend.IsUnauthorized(err) {
			return err
		}
		slog.WarnContext(ctx, "Page list failed", "error", err)
		data.LoadError = msgLoadFailed
	}
	data.Pages = pages
	data.layout = s.newLayout(c, "admin:pages", "页面管理")
	return s.render(c, "admin_pages.html", data)
}

func (s *Server) handleSavePage(c echo.Context) error {
	slug := c.Param("slug")
	_, err := s.backend.UpdatePage(c.Request().Context(), sessionFrom(c), slug, c.FormValue("title"), c.FormValue("content"))
	if err != nil {
		if backend.IsUnauthorized(err) {
			return err
		}
		return s.redirectWithFlash(c, session.FlashError, failureText(err, "保存失败"), "/admin/pages#page-"+slug)
	}
	return s.redirectWithFlash(c, session.FlashSuccess, "页面已保存", "/admin/pages#page-"+slug)
}

type settingsPage struct {
	layout
	Form      domain.SiteSettings
	LoadError string
}

func (s *Server) handleSettings(c echo.Context) error {
	ctx := c.Request().Context()
	data := settingsPage{}
	current, err := s.backend.AdminSettings(ctx, sessionFrom(c))
	if err != nil {
		if backend.IsUnauthorized(err) {
			return err
		}
		slog.WarnContext(ctx, "Settings load failed", "error", err)
		data.LoadError = msgLoadFailed
	} else {
		data.Form = *current
	}
	data.layout = s.newLayout(c, "admin:settings", "网站设置")
	return s.render(c, "admin_settings.html", data)
}

func (s *Server) handleSaveSettings(c echo.Context) error {
	ctx := c.Request().Context()
	form := domain.SiteSettings{
		MainTitle:       strings.TrimSpace(c.FormValue("main_title")),
		SiteTitle:       strings.TrimSpace(c.FormValue("site_title")),
		SiteSubtitle:    strings.TrimSpace(c.FormValue("site_subtitle")),
		SiteDescription: c.FormValue("site_description"),
		BackgroundURL:   strings.TrimSpace(c.FormValue("background_url")),
		FaviconURL:      strings.TrimSpace(c.FormValue("favicon_url")),
		FooterText:      c.FormValue("footer_text"),
	}
	if err := s.backend.UpdateSettings(ctx, sessionFrom(c), form); err != nil {
		if backend.IsUnauthorized(err) {
			return err
		}
		return s.redirectWithFlash(c, session.FlashError, failureText(err, "保存失败"), "/admin/settings")
	}
	if s.settings != nil {
		if err := s.settings.Invalidate(ctx); err != nil {
			slog.WarnContext(ctx, "Failed to invalidate settings cache", "error", err)
		}
	}
	return s.redirectWithFlash(c, session.FlashSuccess, "设置已保存", "/admin/settings")
}

func (s *Server) handleRefreshServers(c echo.Context) error {
	if err := s.backend.RefreshStatus(c.Request().Context(), sessionFrom(c)); err != nil {
		if backend.IsUnauthorized(err) {
			return err
		}
		return s.redirectWithFlash(c, session.FlashError, failureText(err, "刷新失败"), "/admin/servers")
	}
	return s.redirectWithFlash(c, session.FlashInfo, "刷新已触发，请等待几秒后刷新页面", "/admin/servers")
}

type statusConfigPage struct {
	layout
	Config    domain.StatusEmbedConfig
	Overview  *domain.StatusOverview
	LoadError string
}

func (s *Server) handleStatusConfig(c echo.Context) error {
	ctx := c.Request().Context()
	data := statusConfigPage{}
	cfg, err := s.backend.AdminStatusConfig(ctx, sessionFrom(c))
	if err != nil {
		if backend.IsUnauthorized(err) {
			return err
		}
		slog.WarnContext(ctx, "Status config load failed", "error", err)
		data.LoadError = msgLoadFailed
	} else {
		data.Config = *cfg
	}
	if overview, err := s.status.Current(ctx); err == nil {
		data.Overview = overview
	}
	data.layout = s.newLayout(c, "admin:status", "监控配置")
	return s.render(c, "admin_status.html", data)
}

func (s *Server) handleSaveStatusConfig(c echo.Context) error {
	cfg := domain.StatusEmbedConfig{EmbedURL: strings.TrimSpace(c.FormValue("embed_url"))}
	if _, err := s.backend.UpdateStatusConfig(c.Request().Context(), sessionFrom(c), cfg); err != nil {
		if backend.IsUnauthorized(err) {
			return err
		}
		return s.redirectWithFlash(c, session.FlashError, failureText(err, "保存失败"), "/admin/status")
	}
	return s.redirectWithFlash(c, session.FlashSuccess, "配置已保存", "/admin/status")
}
