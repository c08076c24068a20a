// Package backend is the only path from the portal to the REST backend.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pscheid92/hxzd-portal/internal/adapter/metrics"
	"github.com/pscheid92/hxzd-portal/internal/domain"
	"github.com/pscheid92/hxzd-portal/internal/platform/correlation"
	"github.com/pscheid92/hxzd-portal/internal/platform/version"
	"github.com/sony/gobreaker"
)

// CredentialHolder supplies the bearer token and is cleared when the backend answers 401.
type CredentialHolder interface {
	Token(ctx context.Context) string
	Clear(ctx context.Context) error
}

// Anonymous is a holder without credentials, used for public reads and background polling.
type Anonymous struct{}

func (Anonymous) Token(context.Context) string { return "" }
func (Anonymous) Clear(context.Context) error  { return nil }

// Request describes one backend call. Body may be nil, []byte, io.Reader or
// any JSON-serialisable value.
type Request struct {
	Method      string
	Path        string
	Query       url.Values
	Body        any
	ContentType string
}

type GatewayConfig struct {
	BaseURL string
	Timeout time.Duration
	Metrics *metrics.BackendMetrics
	// HTTPClient overrides the default client; Timeout is ignored when set.
	HTTPClient *http.Client
}

type Gateway struct {
	baseURL string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
	metrics *metrics.BackendMetrics
}

// serverFailure carries a 5xx response through the breaker so it counts as a failure.
type serverFailure struct {
	resp *http.Response
}

func (e *serverFailure) Error() string {
	return fmt.Sprintf("backend returned %d", e.resp.StatusCode)
}

func NewGateway(cfg GatewayConfig) *Gateway {
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	g := &Gateway{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    client,
		metrics: cfg.Metrics,
	}
	g.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "backend",
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.Requests >= 5 && float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("Circuit breaker state changed", "component", name, "from", from.String(), "to", to.String())
			g.metrics.BreakerChanges.WithLabelValues(to.String()).Inc()
			g.metrics.BreakerState.Set(stateToFloat(to))
		},
	})
	return g
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

// State reports the circuit breaker state.
func (g *Gateway) State() gobreaker.State {
	return g.breaker.State()
}

// CheckAvailable fails while the breaker is open. Used as a readiness check.
func (g *Gateway) CheckAvailable(context.Context) error {
	if g.breaker.State() == gobreaker.StateOpen {
		return domain.ErrBackendUnavailable
	}
	return nil
}

// Do sends req with holder's bearer token and returns the raw response. A 401
// clears holder before returning; redirecting is left to the caller.
func (g *Gateway) Do(ctx context.Context, holder CredentialHolder, req Request) (*http.Response, error) {
	httpReq, err := g.newRequest(ctx, holder, req)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	result, err := g.breaker.Execute(func() (any, error) {
		resp, err := g.http.Do(httpReq)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			return nil, &serverFailure{resp: resp}
		}
		return resp, nil
	})

	var resp *http.Response
	var failure *serverFailure
	switch {
	case err == nil:
		resp = result.(*http.Response)
	case errors.As(err, &failure):
		resp = failure.resp
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		g.observe(req.Method, "open", start)
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.Path, domain.ErrBackendUnavailable)
	default:
		g.observe(req.Method, "error", start)
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.Path, err)
	}

	g.observe(req.Method, fmt.Sprintf("%dxx", resp.StatusCode/100), start)

	if resp.StatusCode == http.StatusUnauthorized {
		g.metrics.SessionClears.Inc()
		if err := holder.Clear(ctx); err != nil {
			slog.WarnContext(ctx, "Failed to clear session after 401", "error", err)
		} else {
			slog.InfoContext(ctx, "Backend rejected credentials, session cleared", "path", req.Path)
		}
	}
	return resp, nil
}

func (g *Gateway) newRequest(ctx context.Context, holder CredentialHolder, req Request) (*http.Request, error) {
	target := g.baseURL + req.Path
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}

	var body io.Reader
	contentType := req.ContentType
	switch b := req.Body.(type) {
	case nil:
	case []byte:
		body = bytes.NewReader(b)
	case io.Reader:
		body = b
	default:
		encoded, err := json.Marshal(b)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		body = bytes.NewReader(encoded)
		contentType = "application/json"
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", version.UserAgent())
	if token := holder.Token(ctx); token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}
	correlation.Inject(ctx, httpReq.Header)
	return httpReq, nil
}

func (g *Gateway) observe(method, class string, start time.Time) {
	g.metrics.RequestDuration.WithLabelValues(method, class).Observe(time.Since(start).Seconds())
}
