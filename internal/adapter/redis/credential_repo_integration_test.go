package redis

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/pscheid92/hxzd-portal/internal/domain"
	"github.com/pscheid92/hxzd-portal/internal/platform/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func TestCredentialRepo_RoundTrip(t *testing.T) {
	client := setupTestClient(t)
	repo := NewCredentialRepo(client, nil)
	ctx := context.Background()

	creds := domain.Credentials{Token: "tok", User: domain.User{ID: 3, Username: "alex", Role: domain.RoleAdmin}}
	require.NoError(t, repo.Put(ctx, "visitor-1", creds, time.Hour))

	got, err := repo.Get(ctx, "visitor-1")
	require.NoError(t, err)
	assert.Equal(t, creds, *got)

	ttl, err := client.TTL(ctx, credentialKey("visitor-1")).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, 59*time.Minute)
}

func TestCredentialRepo_Missing(t *testing.T) {
	repo := NewCredentialRepo(setupTestClient(t), nil)

	_, err := repo.Get(context.Background(), "nobody")
	require.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestCredentialRepo_Delete(t *testing.T) {
	repo := NewCredentialRepo(setupTestClient(t), nil)
	ctx := context.Background()

	require.NoError(t, repo.Put(ctx, "v", domain.Credentials{Token: "t"}, time.Hour))
	require.NoError(t, repo.Delete(ctx, "v"))
	require.NoError(t, repo.Delete(ctx, "v"))

	_, err := repo.Get(ctx, "v")
	require.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestCredentialRepo_SealedAtRest(t *testing.T) {
	client := setupTestClient(t)
	sealer, err := crypto.NewAESGCMSealer(testKey)
	require.NoError(t, err)
	repo := NewCredentialRepo(client, sealer)
	ctx := context.Background()

	require.NoError(t, repo.Put(ctx, "v", domain.Credentials{Token: "secret-token"}, time.Hour))

	raw, err := client.Get(ctx, credentialKey("v")).Bytes()
	require.NoError(t, err)
	assert.False(t, strings.Contains(string(raw), "secret-token"))

	got, err := repo.Get(ctx, "v")
	require.NoError(t, err)
	assert.Equal(t, "secret-token", got.Token)
}
