package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/pscheid92/hxzd-portal/internal/domain"
	"github.com/pscheid92/hxzd-portal/internal/platform/crypto"
	goredis "github.com/redis/go-redis/v9"
)

// CredentialRepo stores visitor credentials as sealed JSON under a TTL.
type CredentialRepo struct {
	rdb    goredis.Cmdable
	sealer crypto.Sealer
}

var _ domain.CredentialRepository = (*CredentialRepo)(nil)

func NewCredentialRepo(rdb goredis.Cmdable, sealer crypto.Sealer) *CredentialRepo {
	if sealer == nil {
		sealer = crypto.NoopSealer{}
	}
	return &CredentialRepo{rdb: rdb, sealer: sealer}
}

func (r *CredentialRepo) Get(ctx context.Context, visitorID string) (*domain.Credentials, error) {
	data, err := r.rdb.Get(ctx, credentialKey(visitorID)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to read credentials: %w", err)
	}

	plain, err := r.sealer.Open(data)
	if err != nil {
		return nil, fmt.Errorf("failed to open credentials: %w", err)
	}

	var creds domain.Credentials
	if err := json.Unmarshal(plain, &creds); err != nil {
		return nil, fmt.Errorf("failed to unmarshal credentials: %w", err)
	}
	return &creds, nil
}

func (r *CredentialRepo) Put(ctx context.Context, visitorID string, creds domain.Credentials, ttl time.Duration) error {
	plain, err := json.Marshal(creds)
	if err != nil {
		return fmt.Errorf("failed to marshal credentials: %w", err)
	}
	sealed, err := r.sealer.Seal(plain)
	if err != nil {
		return fmt.Errorf("failed to seal credentials: %w", err)
	}
	if err := r.rdb.Set(ctx, credentialKey(visitorID), sealed, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store credentials: %w", err)
	}
	return nil
}

func (r *CredentialRepo) Delete(ctx context.Context, visitorID string) error {
	if err := r.rdb.Del(ctx, credentialKey(visitorID)).Err(); err != nil {
		return fmt.Errorf("failed to delete credentials: %w", err)
	}
	return nil
}

func credentialKey(visitorID string) string {
	return "portal:credentials:" + visitorID
}
