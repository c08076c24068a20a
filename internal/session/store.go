package session

import (
	"context"
	"encoding/gob"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"github.com/pscheid92/hxzd-portal/internal/domain"
)

const (
	cookieName   = "hxzd-portal"
	keyVisitorID = "vid"
	flashesKey   = "_flash"
	FlashSuccess = "success"
	FlashError   = "error"
	FlashInfo    = "info"
)

// Flash is a one-shot message shown on the next rendered page.
type Flash struct {
	Kind    string
	Message string
}

func init() {
	gob.Register(Flash{})
}

type Options struct {
	Secret string
	Secure bool
	MaxAge time.Duration
}

type Store struct {
	cookies *sessions.CookieStore
	repo    domain.CredentialRepository
	ttl     time.Duration
}

func NewStore(repo domain.CredentialRepository, opts Options) *Store {
	cookies := sessions.NewCookieStore([]byte(opts.Secret))
	cookies.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(opts.MaxAge.Seconds()),
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	return &Store{cookies: cookies, repo: repo, ttl: opts.MaxAge}
}

// Open returns the session handle for one request. A tampered or stale cookie
// yields an empty session rather than an error.
func (s *Store) Open(w http.ResponseWriter, r *http.Request) *Session {
	cookie, err := s.cookies.Get(r, cookieName)
	if err != nil {
		slog.Debug("Discarding unreadable session cookie", "error", err)
		cookie, _ = s.cookies.New(r, cookieName)
	}
	return &Session{store: s, cookie: cookie, w: w, r: r}
}

// Session is one visitor's view of the Session Store. Not safe for concurrent use.
type Session struct {
	store  *Store
	cookie *sessions.Session
	w      http.ResponseWriter
	r      *http.Request

	loaded bool
	creds  *domain.Credentials
}

func (s *Session) visitorID() string {
	id, _ := s.cookie.Values[keyVisitorID].(string)
	return id
}

// Get returns the stored credentials, if any.
func (s *Session) Get(ctx context.Context) (*domain.Credentials, bool) {
	if s.loaded {
		return s.creds, s.creds != nil
	}
	s.loaded = true

	id := s.visitorID()
	if id == "" {
		return nil, false
	}
	creds, err := s.store.repo.Get(ctx, id)
	if err != nil {
		if !errors.Is(err, domain.ErrSessionNotFound) {
			slog.WarnContext(ctx, "Failed to load credentials", "error", err)
		}
		return nil, false
	}
	s.creds = creds
	return creds, true
}

// Save persists token and user, replacing whatever was stored.
func (s *Session) Save(ctx context.Context, token string, user domain.User) error {
	id := s.visitorID()
	if id == "" {
		id = uuid.NewString()
		s.cookie.Values[keyVisitorID] = id
		if err := s.writeCookie(); err != nil {
			return err
		}
	}

	creds := domain.Credentials{Token: token, User: user}
	if err := s.store.repo.Put(ctx, id, creds, s.store.ttl); err != nil {
		return err
	}
	s.loaded = true
	s.creds = &creds
	return nil
}

// Clear removes the stored credentials. Clearing an empty session is a no-op.
func (s *Session) Clear(ctx context.Context) error {
	s.loaded = true
	s.creds = nil

	id := s.visitorID()
	if id == "" {
		return nil
	}
	delete(s.cookie.Values, keyVisitorID)
	if err := s.writeCookie(); err != nil {
		return err
	}
	return s.store.repo.Delete(ctx, id)
}

func (s *Session) IsLoggedIn(ctx context.Context) bool {
	creds, ok := s.Get(ctx)
	return ok && creds.Token != ""
}

func (s *Session) IsAdmin(ctx context.Context) bool {
	creds, ok := s.Get(ctx)
	return ok && creds.Token != "" && creds.User.IsAdmin()
}

func (s *Session) Token(ctx context.Context) string {
	if creds, ok := s.Get(ctx); ok {
		return creds.Token
	}
	return ""
}

// User returns the cached user record of a logged-in visitor.
func (s *Session) User(ctx context.Context) *domain.User {
	if !s.IsLoggedIn(ctx) {
		return nil
	}
	u := s.creds.User
	return &u
}

func (s *Session) AddFlash(kind, message string) {
	s.cookie.AddFlash(Flash{Kind: kind, Message: message}, flashesKey)
	if err := s.writeCookie(); err != nil {
		slog.Warn("Failed to store flash message", "error", err)
	}
}

// Flashes drains pending flash messages.
func (s *Session) Flashes() []Flash {
	raw := s.cookie.Flashes(flashesKey)
	if len(raw) == 0 {
		return nil
	}
	if err := s.writeCookie(); err != nil {
		slog.Warn("Failed to drain flash messages", "error", err)
	}
	flashes := make([]Flash, 0, len(raw))
	for _, v := range raw {
		if f, ok := v.(Flash); ok {
			flashes = append(flashes, f)
		}
	}
	return flashes
}

func (s *Session) writeCookie() error {
	return s.cookie.Save(s.r, s.w)
}
