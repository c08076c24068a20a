package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/hxzd-portal/internal/adapter/metrics"
	"github.com/pscheid92/hxzd-portal/internal/domain"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const settingsCacheKey = "portal:settings"

// SettingsSource loads the settings resource from the backend.
type SettingsSource interface {
	SiteSettings(ctx context.Context) (*domain.SiteSettings, error)
}

// SettingsCacheRepo serves site settings from memory, then Redis, then the
// backend. Concurrent misses share one backend fetch. A nil Redis client
// disables the Redis layer.
type SettingsCacheRepo struct {
	rdb     goredis.Cmdable
	source  SettingsSource
	clock   clockwork.Clock
	ttl     time.Duration
	metrics *metrics.CacheMetrics
	group   singleflight.Group
	origin  string

	mu        sync.RWMutex
	value     *domain.SiteSettings
	expiresAt time.Time
	// generation is bumped by every invalidation. A load started under an
	// older generation must not store what it read.
	generation uint64
}

func NewSettingsCacheRepo(rdb goredis.Cmdable, source SettingsSource, ttl time.Duration, clock clockwork.Clock, m *metrics.CacheMetrics) *SettingsCacheRepo {
	return &SettingsCacheRepo{rdb: rdb, source: source, ttl: ttl, clock: clock, metrics: m, origin: uuid.NewString()}
}

// Get returns the current settings. When the backend fails, a stale value is
// preferred over an error.
func (r *SettingsCacheRepo) Get(ctx context.Context) (domain.SiteSettings, error) {
	// Layer 1: in-memory
	if s, ok := r.memGet(); ok {
		r.hit("memory")
		return s, nil
	}
	r.miss("memory")

	v, err, _ := r.group.Do(settingsCacheKey, func() (any, error) {
		return r.load(context.WithoutCancel(ctx))
	})
	if err != nil {
		if stale, ok := r.memStale(); ok {
			slog.WarnContext(ctx, "Serving stale site settings", "error", err)
			return stale, nil
		}
		return domain.SiteSettings{}, err
	}
	return v.(domain.SiteSettings), nil
}

func (r *SettingsCacheRepo) load(ctx context.Context) (domain.SiteSettings, error) {
	if s, ok := r.memGet(); ok {
		return s, nil
	}
	gen := r.currentGeneration()

	// Layer 2: Redis
	if r.rdb != nil {
		if s, ok := r.getCached(ctx); ok {
			r.hit("redis")
			r.memSet(gen, s)
			return s, nil
		}
		r.miss("redis")
	}

	// Layer 3: backend
	s, err := r.source.SiteSettings(ctx)
	if err != nil {
		return domain.SiteSettings{}, fmt.Errorf("settings lookup failed: %w", err)
	}
	if r.memSet(gen, *s) {
		r.writeCache(ctx, gen, *s)
	}
	return *s, nil
}

// Invalidate evicts settings from both layers and tells the other replicas
// to drop their memory layer. Redis is cleared before memory, so a load that begins in between cannot
// refill memory from the old Redis copy.
func (r *SettingsCacheRepo) Invalidate(ctx context.Context) error {
	var delErr error
	if r.rdb != nil {
		delErr = r.rdb.Del(ctx, settingsCacheKey).Err()
	}
	r.dropLocal()
	if r.metrics != nil {
		r.metrics.Invalidations.Inc()
	}

	if r.rdb == nil {
		return nil
	}
	if delErr != nil {
		return fmt.Errorf("failed to invalidate settings cache: %w", delErr)
	}
	if err := publishSettingsInvalidation(ctx, r.rdb, r.origin); err != nil {
		slog.WarnContext(ctx, "Other replicas keep their settings until TTL", "error", err)
	}
	return nil
}

// dropLocal expires the memory copy but keeps it as the stale fallback, and
// detaches any in-flight load so the next Get reads afresh.
func (r *SettingsCacheRepo) dropLocal() {
	r.mu.Lock()
	r.generation++
	r.expiresAt = time.Time{}
	r.mu.Unlock()
	r.group.Forget(settingsCacheKey)
}

func (r *SettingsCacheRepo) currentGeneration() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.generation
}

func (r *SettingsCacheRepo) writeCache(ctx context.Context, gen uint64, s domain.SiteSettings) {
	if r.rdb == nil {
		return
	}
	encoded, err := json.Marshal(s)
	if err != nil {
		slog.Warn("Failed to marshal settings for Redis cache", "error", err)
		return
	}
	if err := r.rdb.Set(ctx, settingsCacheKey, encoded, r.ttl).Err(); err != nil {
		slog.Warn("Failed to populate Redis settings cache", "error", err)
		return
	}
	// An invalidation that landed during the SET may have deleted the key
	// before the old value was written.
	if r.currentGeneration() != gen {
		if err := r.rdb.Del(ctx, settingsCacheKey).Err(); err != nil {
			slog.Warn("Failed to drop superseded Redis settings", "error", err)
		}
	}
}

func (r *SettingsCacheRepo) getCached(ctx context.Context) (domain.SiteSettings, bool) {
	data, err := r.rdb.Get(ctx, settingsCacheKey).Bytes()
	if err != nil {
		if !errors.Is(err, goredis.Nil) {
			slog.Warn("Redis settings cache GET failed", "error", err)
		}
		return domain.SiteSettings{}, false
	}
	var s domain.SiteSettings
	if err := json.Unmarshal(data, &s); err != nil {
		slog.Warn("Failed to unmarshal cached settings", "error", err)
		return domain.SiteSettings{}, false
	}
	return s, true
}

func (r *SettingsCacheRepo) memGet() (domain.SiteSettings, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.value == nil || !r.clock.Now().Before(r.expiresAt) {
		return domain.SiteSettings{}, false
	}
	return *r.value, true
}

func (r *SettingsCacheRepo) memStale() (domain.SiteSettings, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.value == nil {
		return domain.SiteSettings{}, false
	}
	return *r.value, true
}

// memSet stores s unless an invalidation happened since gen was read.
func (r *SettingsCacheRepo) memSet(gen uint64, s domain.SiteSettings) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if gen != r.generation {
		return false
	}
	r.value = &s
	r.expiresAt = r.clock.Now().Add(r.ttl)
	return true
}

func (r *SettingsCacheRepo) hit(layer string) {
	if r.metrics != nil {
		r.metrics.Hits.WithLabelValues(layer).Inc()
	}
}

func (r *SettingsCacheRepo) miss(layer string) {
	if r.metrics != nil {
		r.metrics.Misses.WithLabelValues(layer).Inc()
	}
}
