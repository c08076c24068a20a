package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/hxzd-portal/internal/adapter/metrics"
	"github.com/pscheid92/hxzd-portal/internal/domain"
	"github.com/pscheid92/hxzd-portal/internal/platform/correlation"
	apperrors "github.com/pscheid92/hxzd-portal/internal/platform/errors"
	"github.com/pscheid92/hxzd-portal/internal/platform/retry"
	"golang.org/x/sync/singleflight"
)

const (
	defaultPollInterval = 60 * time.Second
	pollAttempts        = 3
	pollBackoff         = 2 * time.Second
	// Bounds one shared fetch, retries included. The fetch outlives the
	// caller that started it.
	fetchTimeout = 20 * time.Second
)

// StatusSource fetches the aggregated server status overview.
type StatusSource interface {
	StatusOverview(ctx context.Context) (*domain.StatusOverview, error)
}

// StatusSnapshot is the last good overview, when it was fetched, and the most
// recent poll error (nil after a success).
type StatusSnapshot struct {
	Overview  *domain.StatusOverview
	FetchedAt time.Time
	Err       error
}

type StatusPollerConfig struct {
	Source    StatusSource
	Publisher domain.StatusPublisher
	Clock     clockwork.Clock
	Interval  time.Duration
	Metrics   *metrics.StatusMetrics
}

// StatusPoller refreshes the status overview on a fixed interval. Refreshes
// never overlap: concurrent callers share the in-flight request.
type StatusPoller struct {
	source    StatusSource
	publisher domain.StatusPublisher
	clock     clockwork.Clock
	interval  time.Duration
	metrics   *metrics.StatusMetrics
	group     singleflight.Group

	mu   sync.RWMutex
	snap StatusSnapshot
}

func NewStatusPoller(cfg StatusPollerConfig) *StatusPoller {
	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	interval := cfg.Interval
	if interval <= 0 {
		interval = defaultPollInterval
	}
	return &StatusPoller{
		source:    cfg.Source,
		publisher: cfg.Publisher,
		clock:     clock,
		interval:  interval,
		metrics:   cfg.Metrics,
	}
}

// Run polls once immediately and then every interval. It blocks until ctx is cancelled.
func (p *StatusPoller) Run(ctx context.Context) {
	ticker := p.clock.NewTicker(p.interval)
	defer ticker.Stop()

	p.poll(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			p.poll(ctx)
		}
	}
}

func (p *StatusPoller) poll(ctx context.Context) {
	pollCtx := correlation.WithID(ctx, correlation.NewID())
	if _, err := p.Refresh(pollCtx); err != nil && ctx.Err() == nil {
		slog.WarnContext(pollCtx, "Status poll failed", "error", err)
	}
}

// Refresh fetches a fresh overview, retrying transient failures. On failure
// the previous overview is kept and the error recorded.
func (p *StatusPoller) Refresh(ctx context.Context) (*domain.StatusOverview, error) {
	return p.shared(ctx, pollAttempts)
}

// shared joins or starts the single in-flight fetch. The fetch runs detached
// from ctx, so a caller that gives up does not fail it for everyone else;
// the caller still returns as soon as ctx is done.
func (p *StatusPoller) shared(ctx context.Context, attempts int) (*domain.StatusOverview, error) {
	ch := p.group.DoChan("status", func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), fetchTimeout)
		defer cancel()
		return p.fetch(fetchCtx, attempts)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*domain.StatusOverview), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (p *StatusPoller) fetch(ctx context.Context, attempts int) (*domain.StatusOverview, error) {
	start := p.clock.Now()
	policy := retry.Policy{
		MaxAttempts:    attempts,
		InitialBackoff: pollBackoff,
		Clock:          p.clock,
		OnRetry: func(attempt int, err error, backoff time.Duration) {
			slog.DebugContext(ctx, "Retrying status poll", "attempt", attempt, "backoff", backoff, "error", err)
		},
	}
	overview, err := retry.Do(ctx, policy, classifyPollError, p.source.StatusOverview)
	p.observe(start, overview, err)

	p.mu.Lock()
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			p.snap.Err = err
		}
		p.mu.Unlock()
		return nil, err
	}
	p.snap = StatusSnapshot{Overview: overview, FetchedAt: p.clock.Now()}
	p.mu.Unlock()

	if p.publisher != nil {
		if err := p.publisher.PublishStatus(ctx, overview); err != nil {
			slog.WarnContext(ctx, "Failed to publish status overview", "error", err)
		}
	}
	return overview, nil
}

// classifyPollError retries transport failures and 5xx answers, and backs off
// longer on 429.
func classifyPollError(err error) retry.Action {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return retry.Stop
	}
	if errors.Is(err, domain.ErrBackendUnavailable) {
		return retry.Stop
	}
	var upstream apperrors.Upstream
	if errors.As(err, &upstream) {
		switch {
		case upstream.StatusCode() == http.StatusTooManyRequests:
			return retry.After
		case upstream.StatusCode() < http.StatusInternalServerError:
			return retry.Stop
		}
	}
	return retry.Retry
}

func (p *StatusPoller) observe(start time.Time, overview *domain.StatusOverview, err error) {
	if p.metrics == nil {
		return
	}
	p.metrics.PollDuration.Observe(p.clock.Since(start).Seconds())
	if err != nil {
		p.metrics.Polls.WithLabelValues("failure").Inc()
		return
	}
	p.metrics.Polls.WithLabelValues("success").Inc()
	p.metrics.PlayersOnline.Set(float64(overview.TotalOnline))
	p.metrics.LastSuccess.Set(float64(p.clock.Now().Unix()))
}

// Snapshot returns the current state without touching the backend.
func (p *StatusPoller) Snapshot() StatusSnapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.snap
}

// Current returns the last good overview. When nothing has been fetched yet
// it makes one attempt on the caller's behalf; retries are left to the
// background loop.
func (p *StatusPoller) Current(ctx context.Context) (*domain.StatusOverview, error) {
	snap := p.Snapshot()
	if snap.Overview != nil {
		return snap.Overview, nil
	}
	if snap.Err != nil {
		return nil, snap.Err
	}
	return p.shared(ctx, 1)
}
