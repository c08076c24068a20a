package redis

import (
	"context"
	"fmt"
	"log/slog"

	goredis "github.com/redis/go-redis/v9"
)

const settingsInvalidateChannel = "portal:settings:invalidate"

// SettingsInvalidator listens for settings changes made on other replicas and
// drops the local memory layer, so an admin save shows up everywhere without
// waiting for the TTL.
type SettingsInvalidator struct {
	rdb   *goredis.Client
	cache *SettingsCacheRepo
}

func NewSettingsInvalidator(rdb *goredis.Client, cache *SettingsCacheRepo) *SettingsInvalidator {
	return &SettingsInvalidator{rdb: rdb, cache: cache}
}

// Start blocks until ctx is cancelled or the subscription closes.
func (s *SettingsInvalidator) Start(ctx context.Context) {
	pubsub := s.rdb.Subscribe(ctx, settingsInvalidateChannel)
	defer func() {
		_ = pubsub.Close()
	}()

	ch := pubsub.Channel()
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			s.handle(msg.Payload)
		case <-ctx.Done():
			return
		}
	}
}

// handle ignores messages this replica published itself.
func (s *SettingsInvalidator) handle(origin string) {
	if origin == s.cache.origin {
		return
	}
	s.cache.dropLocal()
	if s.cache.metrics != nil {
		s.cache.metrics.RemoteInvalidations.Inc()
	}
	slog.Debug("Settings cache invalidated by another replica", "origin", origin)
}

func publishSettingsInvalidation(ctx context.Context, rdb goredis.Cmdable, origin string) error {
	if err := rdb.Publish(ctx, settingsInvalidateChannel, origin).Err(); err != nil {
		return fmt.Errorf("failed to publish settings invalidation: %w", err)
	}
	return nil
}
