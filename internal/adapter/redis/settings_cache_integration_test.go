package redis

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/hxzd-portal/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettingsCache_RedisLayerSharedAcrossInstances(t *testing.T) {
	client := setupTestClient(t)
	ctx := context.Background()

	firstSource := constantSource("shared")
	first := NewSettingsCacheRepo(client, firstSource, time.Minute, clockwork.NewFakeClock(), nil)
	_, err := first.Get(ctx)
	require.NoError(t, err)

	secondSource := constantSource("other")
	second := NewSettingsCacheRepo(client, secondSource, time.Minute, clockwork.NewFakeClock(), nil)
	s, err := second.Get(ctx)
	require.NoError(t, err)

	assert.Equal(t, "shared", s.MainTitle)
	assert.Equal(t, int32(0), secondSource.calls.Load())
}

func TestSettingsCache_InvalidateClearsRedis(t *testing.T) {
	client := setupTestClient(t)
	ctx := context.Background()

	cache := NewSettingsCacheRepo(client, constantSource("x"), time.Minute, clockwork.NewFakeClock(), nil)
	_, err := cache.Get(ctx)
	require.NoError(t, err)

	require.NoError(t, cache.Invalidate(ctx))

	n, err := client.Exists(ctx, settingsCacheKey).Result()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSettingsInvalidator_DropsOtherReplicasMemory(t *testing.T) {
	client := setupTestClient(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	title := "before"
	source := &fakeSettingsSource{fn: func() (*domain.SiteSettings, error) {
		return &domain.SiteSettings{MainTitle: title}, nil
	}}
	writer := NewSettingsCacheRepo(client, constantSource("unused"), time.Hour, clockwork.NewFakeClock(), nil)
	reader := NewSettingsCacheRepo(client, source, time.Hour, clockwork.NewFakeClock(), nil)

	s, err := reader.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, "before", s.MainTitle)

	go NewSettingsInvalidator(client, reader).Start(ctx)
	require.Eventually(t, func() bool {
		n, err := client.PubSubNumSub(ctx, settingsInvalidateChannel).Result()
		return err == nil && n[settingsInvalidateChannel] == 1
	}, 5*time.Second, 20*time.Millisecond)

	title = "after"
	require.NoError(t, writer.Invalidate(ctx))

	assert.Eventually(t, func() bool {
		s, err := reader.Get(ctx)
		return err == nil && s.MainTitle == "after"
	}, 5*time.Second, 20*time.Millisecond)
}
