package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/hxzd-portal/internal/adapter/backend"
	"github.com/pscheid92/hxzd-portal/internal/adapter/metrics"
	"github.com/pscheid92/hxzd-portal/internal/app"
	"github.com/pscheid92/hxzd-portal/internal/domain"
	"github.com/pscheid92/hxzd-portal/internal/platform/config"
	"github.com/pscheid92/hxzd-portal/internal/session"
	"github.com/stretchr/testify/require"
)

const testSessionSecret = "0123456789abcdef0123456789abcdef"

type fakeStatus struct {
	overview *domain.StatusOverview
	err      error
	at       time.Time
}

func (f *fakeStatus) Snapshot() app.StatusSnapshot {
	return app.StatusSnapshot{Overview: f.overview, FetchedAt: f.at, Err: f.err}
}

func (f *fakeStatus) Current(context.Context) (*domain.StatusOverview, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.overview == nil {
		return &domain.StatusOverview{}, nil
	}
	return f.overview, nil
}

type fakeSettings struct {
	mu          sync.Mutex
	settings    domain.SiteSettings
	invalidated int
}

func (f *fakeSettings) Get(context.Context) (domain.SiteSettings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.settings, nil
}

func (f *fakeSettings) Invalidate(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invalidated++
	return nil
}

type backendCall struct {
	Method string
	Path   string
	Query  string
	Auth   string
	Body   map[string]any
}

// fakeBackend is the REST backend as seen by the portal: routes keyed by
// "METHOD /path" patterns and a log of every call.
type fakeBackend struct {
	mu    sync.Mutex
	calls []backendCall
}

func (b *fakeBackend) record(c backendCall) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, c)
}

func (b *fakeBackend) all() []backendCall {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]backendCall(nil), b.calls...)
}

// find returns the last call matching method and path.
func (b *fakeBackend) find(method, path string) (backendCall, bool) {
	calls := b.all()
	for i := len(calls) - 1; i >= 0; i-- {
		if calls[i].Method == method && calls[i].Path == path {
			return calls[i], true
		}
	}
	return backendCall{}, false
}

type testEnv struct {
	t        *testing.T
	srv      *Server
	portal   *httptest.Server
	client   *http.Client
	backend  *fakeBackend
	status   *fakeStatus
	settings *fakeSettings
	clock    *clockwork.FakeClock
}

type testOptions struct {
	routes       map[string]http.HandlerFunc
	healthChecks []HealthCheck
	status       *fakeStatus
	settings     domain.SiteSettings
}

type testOption func(*testOptions)

func withHealthChecks(checks ...HealthCheck) testOption {
	return func(o *testOptions) { o.healthChecks = append(o.healthChecks, checks...) }
}

func withRoutes(routes map[string]http.HandlerFunc) testOption {
	return func(o *testOptions) {
		for k, v := range routes {
			o.routes[k] = v
		}
	}
}

func withStatus(overview *domain.StatusOverview, err error) testOption {
	return func(o *testOptions) { o.status = &fakeStatus{overview: overview, err: err} }
}

func withSiteSettings(s domain.SiteSettings) testOption {
	return func(o *testOptions) { o.settings = s }
}

func newTestServer(t *testing.T, opts ...testOption) *Server {
	return newTestEnv(t, opts...).srv
}

func newTestEnv(t *testing.T, opts ...testOption) *testEnv {
	t.Helper()

	o := testOptions{routes: map[string]http.HandlerFunc{}, status: &fakeStatus{}}
	for _, opt := range opts {
		opt(&o)
	}

	fb := &fakeBackend{}
	mux := http.NewServeMux()
	for pattern, h := range o.routes {
		mux.HandleFunc(pattern, h)
	}
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		call := backendCall{Method: r.Method, Path: r.URL.Path, Query: r.URL.RawQuery, Auth: r.Header.Get("Authorization")}
		if r.Body != nil {
			_ = json.NewDecoder(r.Body).Decode(&call.Body)
		}
		fb.record(call)
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(upstream.Close)

	registry := metrics.NewRegistry()
	gw := backend.NewGateway(backend.GatewayConfig{
		BaseURL: upstream.URL,
		Timeout: 5 * time.Second,
		Metrics: metrics.NewBackendMetrics(registry),
	})

	clock := clockwork.NewFakeClockAt(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	cfg := &config.Config{AppEnv: "test", Port: "0", SessionMaxAge: time.Hour}
	settings := &fakeSettings{settings: o.settings}

	srv, err := NewServer(cfg, Deps{
		Backend:      backend.NewClient(gw),
		Sessions:     session.NewStore(session.NewMemoryRepository(clock), session.Options{Secret: testSessionSecret, MaxAge: time.Hour}),
		Status:       o.status,
		Settings:     settings,
		Rotation:     app.NewRotation(clock, 5*time.Second),
		HealthChecks: o.healthChecks,
		Clock:        clock,
	})
	require.NoError(t, err)

	portal := httptest.NewServer(srv.echo)
	t.Cleanup(portal.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	client := &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	return &testEnv{
		t:        t,
		srv:      srv,
		portal:   portal,
		client:   client,
		backend:  fb,
		status:   o.status,
		settings: settings,
		clock:    clock,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func jsonHandler(v any) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) { writeJSON(w, http.StatusOK, v) }
}

func errorHandler(status int, message string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, status, map[string]string{"error": message})
	}
}

type response struct {
	Status   int
	Location string
	Body     string
}

// get fetches path as a browser would, without following redirects.
func (e *testEnv) get(path string) response {
	e.t.Helper()
	req, err := http.NewRequest(http.MethodGet, e.portal.URL+path, nil)
	require.NoError(e.t, err)
	req.Header.Set("Accept", "text/html")
	return e.do(req)
}

// post submits a form carrying the visitor's CSRF token.
func (e *testEnv) post(path string, form url.Values) response {
	e.t.Helper()
	if form == nil {
		form = url.Values{}
	}
	form.Set("csrf_token", e.csrfToken())
	return e.postRaw(path, form)
}

func (e *testEnv) postRaw(path string, form url.Values) response {
	e.t.Helper()
	req, err := http.NewRequest(http.MethodPost, e.portal.URL+path, strings.NewReader(form.Encode()))
	require.NoError(e.t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "text/html")
	return e.do(req)
}

func (e *testEnv) do(req *http.Request) response {
	e.t.Helper()
	resp, err := e.client.Do(req)
	require.NoError(e.t, err)
	defer func() { _ = resp.Body.Close() }()

	var body bytes.Buffer
	_, err = body.ReadFrom(resp.Body)
	require.NoError(e.t, err)
	return response{Status: resp.StatusCode, Location: resp.Header.Get("Location"), Body: body.String()}
}

// csrfToken returns the visitor's CSRF cookie, fetching a page first if the
// visitor has none yet.
func (e *testEnv) csrfToken() string {
	e.t.Helper()
	u, err := url.Parse(e.portal.URL)
	require.NoError(e.t, err)
	for attempt := 0; attempt < 2; attempt++ {
		for _, c := range e.client.Jar.Cookies(u) {
			if c.Name == csrfCookieName {
				return c.Value
			}
		}
		e.get("/login")
	}
	e.t.Fatal("no CSRF cookie issued")
	return ""
}

// loginAs signs the visitor in through the login form against a backend that
// accepts any password for user.
func (e *testEnv) loginAs(user domain.User) {
	e.t.Helper()
	resp := e.post("/login", url.Values{"username": {user.Username}, "password": {"secret"}})
	require.Equal(e.t, http.StatusSeeOther, resp.Status, "login failed: %s", resp.Body)
}

// authRoutes answers login and the profile refresh for user.
func authRoutes(user domain.User, token string) map[string]http.HandlerFunc {
	return map[string]http.HandlerFunc{
		"POST /auth/login": jsonHandler(map[string]any{"token": token, "user": user}),
		"GET /auth/me":     jsonHandler(user),
	}
}

var (
	testUser  = domain.User{ID: 5, Username: "alex", Role: domain.RoleUser}
	testAdmin = domain.User{ID: 1, Username: "root", Role: domain.RoleAdmin}
)
