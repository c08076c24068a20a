package httpserver

import (
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/labstack/echo/v4"
	"github.com/pscheid92/hxzd-portal/internal/adapter/backend"
	"github.com/pscheid92/hxzd-portal/internal/domain"
	"github.com/pscheid92/hxzd-portal/internal/session"
	"github.com/pscheid92/hxzd-portal/internal/view"
)

const (
	minPasswordLen = 6
	minUsernameLen = 2
	maxUsernameLen = 32

	tabLogin    = "login"
	tabRegister = "register"
)

func (s *Server) registerAuthRoutes(rateLimiter echo.MiddlewareFunc) {
	s.echo.GET("/login", s.handleLoginPage)
	s.echo.POST("/login", s.handleLogin, rateLimiter)
	s.echo.POST("/register", s.handleRegister, rateLimiter)
	s.echo.POST("/logout", s.handleLogout)

	s.echo.GET("/profile", s.handleProfile, s.requireLogin)
	s.echo.POST("/profile", s.handleUpdateProfile, s.requireLogin)
	s.echo.POST("/profile/password", s.handleChangePassword, s.requireLogin)
	s.echo.POST("/profile/username", s.handleChangeUsername, s.requireLogin)
}

type loginPage struct {
	layout
	Tab           string
	LoginError    string
	RegisterError string
	Username      string
	Registration  domain.Registration
}

func (s *Server) handleLoginPage(c echo.Context) error {
	if sessionFrom(c).IsLoggedIn(c.Request().Context()) {
		return s.redirect(c, "/profile")
	}

	tab := tabLogin
	if c.QueryParam("tab") == tabRegister {
		tab = tabRegister
	}
	return s.render(c, "login.html", loginPage{layout: s.newLayout(c, "login", "登录"), Tab: tab})
}

func (s *Server) handleLogin(c echo.Context) error {
	ctx := c.Request().Context()
	username := strings.TrimSpace(c.FormValue("username"))
	password := c.FormValue("password")

	result, err := s.backend.Login(ctx, backend.Anonymous{}, username, password)
	if err != nil {
		slog.InfoContext(ctx, "Login rejected", "username", username, "error", err)
		return s.render(c, "login.html", loginPage{
			layout:     s.newLayout(c, "login", "登录"),
			Tab:        tabLogin,
			LoginError: failureText(err, "登录失败"),
			Username:   username,
		})
	}

	if err := sessionFrom(c).Save(ctx, result.Token, result.User); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	slog.InfoContext(ctx, "User logged in", "user_id", result.User.ID)
	return s.redirectWithFlash(c, session.FlashSuccess, "登录成功！", "/profile")
}

func (s *Server) handleRegister(c echo.Context) error {
	ctx := c.Request().Context()
	reg := domain.Registration{
		Username:    strings.TrimSpace(c.FormValue("username")),
		Password:    c.FormValue("password"),
		Email:       strings.TrimSpace(c.FormValue("email")),
		MinecraftID: strings.TrimSpace(c.FormValue("minecraft_id")),
	}

	rejected := func(message string) error {
		form := reg
		form.Password = ""
		return s.render(c, "login.html", loginPage{
			layout:        s.newLayout(c, "login", "注册"),
			Tab:           tabRegister,
			RegisterError: message,
			Registration:  form,
		})
	}

	if reg.Password != c.FormValue("password_confirm") {
		return rejected("两次密码不一致")
	}

	result, err := s.backend.Register(ctx, backend.Anonymous{}, reg)
	if err != nil {
		slog.InfoContext(ctx, "Registration rejected", "username", reg.Username, "error", err)
		return rejected(failureText(err, "注册失败"))
	}

	if err := sessionFrom(c).Save(ctx, result.Token, result.User); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	slog.InfoContext(ctx, "User registered", "user_id", result.User.ID)
	return s.redirectWithFlash(c, session.FlashSuccess, "注册成功！", "/profile")
}

func (s *Server) handleLogout(c echo.Context) error {
	if err := sessionFrom(c).Clear(c.Request().Context()); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return s.redirectWithFlash(c, session.FlashInfo, "已退出登录", "/login")
}

type profilePage struct {
	layout
	Profile   domain.User
	AvatarURL string
	Initial   string
	Stale     bool
}

// handleProfile refreshes the cached user from the backend. A rejected
// refresh ends the session; an unreachable backend falls back to the cache.
func (s *Server) handleProfile(c echo.Context) error {
	ctx := c.Request().Context()
	sess := sessionFrom(c)
	cached := sess.User(ctx)

	data := profilePage{Profile: *cached}
	user, err := s.backend.Me(ctx, sess)
	switch {
	case err == nil:
		if err := sess.Save(ctx, sess.Token(ctx), *user); err != nil {
			slog.WarnContext(ctx, "Failed to refresh cached user", "error", err)
		}
		data.Profile = *user
	case isBackendTransportError(err):
		slog.WarnContext(ctx, "Profile refresh failed, showing cached user", "error", err)
		data.Stale = true
	default:
		if !backend.IsUnauthorized(err) {
			if clearErr := sess.Clear(ctx); clearErr != nil {
				slog.WarnContext(ctx, "Failed to clear session", "error", clearErr)
			}
		}
		return fmt.Errorf("failed to refresh profile: %w", domain.ErrUnauthorized)
	}

	data.layout = s.newLayout(c, "profile", "个人资料")
	if data.Stale {
		data.Flashes = append(data.Flashes, session.Flash{Kind: session.FlashError, Message: msgNetworkError})
	}
	data.AvatarURL = view.MCHeadsURL(data.Profile.MinecraftID)
	data.Initial = view.AvatarInitial(data.Profile.Username)
	return s.render(c, "profile.html", data)
}

func (s *Server) handleUpdateProfile(c echo.Context) error {
	email := strings.TrimSpace(c.FormValue("email"))
	mcID := strings.TrimSpace(c.FormValue("minecraft_id"))
	avatar := view.MCHeadsURL(mcID)

	return s.saveProfile(c, domain.ProfileUpdate{Email: &email, MinecraftID: &mcID, AvatarURL: &avatar}, "资料已更新", "更新失败")
}

func (s *Server) handleChangeUsername(c echo.Context) error {
	name := strings.TrimSpace(c.FormValue("username"))
	if name == "" {
		return s.redirectWithFlash(c, session.FlashError, "请输入新用户名", "/profile")
	}
	if n := utf8.RuneCountInString(name); n < minUsernameLen || n > maxUsernameLen {
		return s.redirectWithFlash(c, session.FlashError, fmt.Sprintf("用户名需要%d-%d个字符", minUsernameLen, maxUsernameLen), "/profile")
	}
	return s.saveProfile(c, domain.ProfileUpdate{Username: &name}, "用户名已修改", "修改失败")
}

func (s *Server) saveProfile(c echo.Context, update domain.ProfileUpdate, success, fallback string) error {
	ctx := c.Request().Context()
	sess := sessionFrom(c)
	user, err := s.backend.UpdateProfile(ctx, sess, update)
	if err != nil {
		if backend.IsUnauthorized(err) {
			return err
		}
		return s.redirectWithFlash(c, session.FlashError, failureText(err, fallback), "/profile")
	}
	if err := sess.Save(ctx, sess.Token(ctx), *user); err != nil {
		return fmt.Errorf("failed to refresh cached user: %w", err)
	}
	return s.redirectWithFlash(c, session.FlashSuccess, success, "/profile")
}

func (s *Server) handleChangePassword(c echo.Context) error {
	ctx := c.Request().Context()
	oldPassword := c.FormValue("old_password")
	newPassword := c.FormValue("new_password")

	if oldPassword == "" || newPassword == "" {
		return s.redirectWithFlash(c, session.FlashError, "请填写密码", "/profile")
	}
	if utf8.RuneCountInString(newPassword) < minPasswordLen {
		return s.redirectWithFlash(c, session.FlashError, fmt.Sprintf("新密码至少%d位", minPasswordLen), "/profile")
	}

	if err := s.backend.ChangePassword(ctx, sessionFrom(c), oldPassword, newPassword); err != nil {
		if backend.IsUnauthorized(err) {
			return err
		}
		return s.redirectWithFlash(c, session.FlashError, failureText(err, "修改失败"), "/profile")
	}
	return s.redirectWithFlash(c, session.FlashSuccess, "密码已修改", "/profile")
}
