package stores

import (
	"context"
	"crypto/subtle"
	"sync"
	"time"
)

// MemoryResetStore is the process-local reset-grant backend. Same locking
// and sweep discipline as MemoryOTPStore.
type MemoryResetStore struct {
	mu      sync.Mutex
	records map[string]*ResetRecord
	now     func() time.Time
}

func NewMemoryResetStore() *MemoryResetStore {
	return &MemoryResetStore{
		records: make(map[string]*ResetRecord),
		now:     time.Now,
	}
}

func (s *MemoryResetStore) Save(ctx context.Context, accountKey string, record *ResetRecord, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().Unix()
	for key, rec := range s.records {
		if now > rec.ExpiresAt {
			delete(s.records, key)
		}
	}

	clone := *record
	s.records[accountKey] = &clone
	return nil
}

func (s *MemoryResetStore) Consume(ctx context.Context, accountKey string, providedHash [32]byte, maxAttempts int) (*ResetRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[accountKey]
	if !ok {
		return nil, ErrResetNotFound
	}

	if s.now().Unix() > record.ExpiresAt {
		delete(s.records, accountKey)
		return nil, ErrResetExpired
	}

	if subtle.ConstantTimeCompare(record.SecretHash[:], providedHash[:]) != 1 {
		record.Attempts++
		if int(record.Attempts) >= maxAttempts {
			delete(s.records, accountKey)
			return nil, ErrResetAttemptsExceeded
		}
		return nil, ErrResetMismatch
	}

	delete(s.records, accountKey)
	matched := *record
	return &matched, nil
}
