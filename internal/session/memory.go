package session

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/hxzd-portal/internal/domain"
)

type memoryEntry struct {
	creds     domain.Credentials
	expiresAt time.Time
}

// MemoryRepository keeps credentials in process memory. Used when no Redis is configured.
type MemoryRepository struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	clock   clockwork.Clock
}

func NewMemoryRepository(clock clockwork.Clock) *MemoryRepository {
	return &MemoryRepository{entries: make(map[string]memoryEntry), clock: clock}
}

func (m *MemoryRepository) Get(_ context.Context, visitorID string) (*domain.Credentials, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[visitorID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	if !e.expiresAt.IsZero() && !m.clock.Now().Before(e.expiresAt) {
		delete(m.entries, visitorID)
		return nil, domain.ErrSessionNotFound
	}
	creds := e.creds
	return &creds, nil
}

func (m *MemoryRepository) Put(_ context.Context, visitorID string, creds domain.Credentials, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = m.clock.Now().Add(ttl)
	}
	m.entries[visitorID] = memoryEntry{creds: creds, expiresAt: expiresAt}
	return nil
}

func (m *MemoryRepository) Delete(_ context.Context, visitorID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, visitorID)
	return nil
}

// Sweep drops expired entries and returns how many were removed.
func (m *MemoryRepository) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()
	removed := 0
	for id, e := range m.entries {
		if !e.expiresAt.IsZero() && !now.Before(e.expiresAt) {
			delete(m.entries, id)
			removed++
		}
	}
	return removed
}

// StartSweeper runs Sweep every interval until ctx is done.
func (m *MemoryRepository) StartSweeper(ctx context.Context, interval time.Duration) {
	ticker := m.clock.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.Chan():
				m.Sweep()
			}
		}
	}()
}
