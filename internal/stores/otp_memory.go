package stores

import (
	"context"
	"crypto/subtle"
	"sync"
	"time"
)

// MemoryOTPStore keeps outstanding codes in a process-local map guarded by a
// single mutex. Expired records are deleted when touched, and every Save
// sweeps the whole map so abandoned codes do not accumulate between logins.
type MemoryOTPStore struct {
	mu      sync.Mutex
	records map[string]*OTPRecord
	now     func() time.Time
}

func NewMemoryOTPStore() *MemoryOTPStore {
	return &MemoryOTPStore{
		records: make(map[string]*OTPRecord),
		now:     time.Now,
	}
}

func (s *MemoryOTPStore) Save(ctx context.Context, accountKey string, record *OTPRecord, ttl time.Duration) error {
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

func (s *MemoryOTPStore) Consume(ctx context.Context, accountKey, code string, maxAttempts int) (*OTPRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[accountKey]
	if !ok {
		return nil, ErrOTPNotFound
	}

	if s.now().Unix() > record.ExpiresAt {
		delete(s.records, accountKey)
		return nil, ErrOTPExpired
	}

	if subtle.ConstantTimeCompare([]byte(record.Code), []byte(code)) != 1 {
		record.Attempts++
		if int(record.Attempts) >= maxAttempts {
			delete(s.records, accountKey)
			return nil, ErrOTPAttemptsExceeded
		}
		return nil, ErrOTPMismatch
	}

	delete(s.records, accountKey)
	matched := *record
	return &matched, nil
}
