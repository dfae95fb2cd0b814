package stores

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func memOTPRecord(subject, code string, ttl time.Duration, at time.Time) *OTPRecord {
	return &OTPRecord{
		SubjectID: subject,
		Code:      code,
		IssuedAt:  at.Unix(),
		ExpiresAt: at.Add(ttl).Unix(),
	}
}

func TestMemoryOTPConsumeSingleUse(t *testing.T) {
	s := NewMemoryOTPStore()
	ctx := context.Background()
	now := time.Now()

	if err := s.Save(ctx, "a@b.com", memOTPRecord("u1", "123456", 30*time.Second, now), 30*time.Second); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if _, err := s.Consume(ctx, "a@b.com", "999999", 5); !errors.Is(err, ErrOTPMismatch) {
		t.Fatalf("expected mismatch for wrong code, got %v", err)
	}

	record, err := s.Consume(ctx, "a@b.com", "123456", 5)
	if err != nil {
		t.Fatalf("Consume failed: %v", err)
	}
	if record.SubjectID != "u1" {
		t.Fatalf("expected bound subject u1, got %q", record.SubjectID)
	}

	if _, err := s.Consume(ctx, "a@b.com", "123456", 5); !errors.Is(err, ErrOTPNotFound) {
		t.Fatalf("expected not found on second consume, got %v", err)
	}
}

func TestMemoryOTPReissueOverwrites(t *testing.T) {
	s := NewMemoryOTPStore()
	ctx := context.Background()
	now := time.Now()

	if err := s.Save(ctx, "a@b.com", memOTPRecord("u1", "111111", time.Minute, now), time.Minute); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := s.Save(ctx, "a@b.com", memOTPRecord("u1", "222222", time.Minute, now), time.Minute); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if _, err := s.Consume(ctx, "a@b.com", "111111", 5); !errors.Is(err, ErrOTPMismatch) {
		t.Fatalf("expected old code to fail after overwrite, got %v", err)
	}
	if _, err := s.Consume(ctx, "a@b.com", "222222", 5); err != nil {
		t.Fatalf("expected newest code to verify, got %v", err)
	}
}

func TestMemoryOTPExpiry(t *testing.T) {
	s := NewMemoryOTPStore()
	ctx := context.Background()

	issuedAt := time.Now()
	current := issuedAt
	s.now = func() time.Time { return current }

	if err := s.Save(ctx, "a@b.com", memOTPRecord("u1", "123456", 30*time.Second, issuedAt), 30*time.Second); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	current = issuedAt.Add(31 * time.Second)
	if _, err := s.Consume(ctx, "a@b.com", "123456", 5); !errors.Is(err, ErrOTPExpired) {
		t.Fatalf("expected expired past the window, got %v", err)
	}

	// Expired record was deleted as a side effect.
	if _, err := s.Consume(ctx, "a@b.com", "123456", 5); !errors.Is(err, ErrOTPNotFound) {
		t.Fatalf("expected not found after stale delete, got %v", err)
	}
}

func TestMemoryOTPAttemptsExceeded(t *testing.T) {
	s := NewMemoryOTPStore()
	ctx := context.Background()
	now := time.Now()

	if err := s.Save(ctx, "a@b.com", memOTPRecord("u1", "123456", time.Minute, now), time.Minute); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if _, err := s.Consume(ctx, "a@b.com", "000000", 2); !errors.Is(err, ErrOTPMismatch) {
		t.Fatalf("expected mismatch on first wrong attempt, got %v", err)
	}
	if _, err := s.Consume(ctx, "a@b.com", "000000", 2); !errors.Is(err, ErrOTPAttemptsExceeded) {
		t.Fatalf("expected attempts exceeded, got %v", err)
	}
	if _, err := s.Consume(ctx, "a@b.com", "123456", 2); !errors.Is(err, ErrOTPNotFound) {
		t.Fatalf("expected record deleted after exceeding attempts, got %v", err)
	}
}

func TestMemoryOTPSaveSweepsExpired(t *testing.T) {
	s := NewMemoryOTPStore()
	ctx := context.Background()

	issuedAt := time.Now()
	current := issuedAt
	s.now = func() time.Time { return current }

	if err := s.Save(ctx, "stale@b.com", memOTPRecord("u1", "111111", 10*time.Second, issuedAt), 10*time.Second); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	current = issuedAt.Add(time.Minute)
	if err := s.Save(ctx, "fresh@b.com", memOTPRecord("u2", "222222", time.Minute, current), time.Minute); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	s.mu.Lock()
	_, staleAlive := s.records["stale@b.com"]
	s.mu.Unlock()
	if staleAlive {
		t.Fatal("expected expired record to be swept on issuance")
	}
}

func TestMemoryOTPConcurrentConsumeSingleWinner(t *testing.T) {
	s := NewMemoryOTPStore()
	ctx := context.Background()
	now := time.Now()

	if err := s.Save(ctx, "a@b.com", memOTPRecord("u1", "123456", time.Minute, now), time.Minute); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	const workers = 32
	var wg sync.WaitGroup
	var mu sync.Mutex
	successes := 0

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Consume(ctx, "a@b.com", "123456", 5); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if successes != 1 {
		t.Fatalf("expected exactly one successful consume, got %d", successes)
	}
}
