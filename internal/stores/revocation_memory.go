package stores

import (
	"context"
	"sync"
	"time"
)

// MemoryRevocationList is the process-local blacklist backend. Each Revoke
// sweeps entries whose token could no longer validate anyway, bounding
// memory growth without a background timer.
type MemoryRevocationList struct {
	mu      sync.Mutex
	entries map[string]int64
	now     func() time.Time
}

func NewMemoryRevocationList() *MemoryRevocationList {
	return &MemoryRevocationList{
		entries: make(map[string]int64),
		now:     time.Now,
	}
}

func (l *MemoryRevocationList) Revoke(ctx context.Context, token string, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now().Unix()
	for key, expiresAt := range l.entries {
		if now > expiresAt {
			delete(l.entries, key)
		}
	}

	l.entries[revocationKey(token)] = l.now().Add(ttl).Unix()
	return nil
}

func (l *MemoryRevocationList) IsRevoked(ctx context.Context, token string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	expiresAt, ok := l.entries[revocationKey(token)]
	if !ok {
		return false, nil
	}
	if l.now().Unix() > expiresAt {
		delete(l.entries, revocationKey(token))
		return false, nil
	}
	return true, nil
}
