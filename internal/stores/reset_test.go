package stores

import (
	"context"
	"crypto/sha256"
	"errors"
	"strings"
	"testing"
	"time"
)

func resetHash(token string) [32]byte {
	return sha256.Sum256([]byte(token))
}

func TestMemoryResetConsumeSingleUse(t *testing.T) {
	s := NewMemoryResetStore()
	ctx := context.Background()

	record := &ResetRecord{
		SubjectID:  "u1",
		SecretHash: resetHash("the-plaintext-token"),
		ExpiresAt:  time.Now().Add(15 * time.Minute).Unix(),
	}
	if err := s.Save(ctx, "a@b.com", record, 15*time.Minute); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if _, err := s.Consume(ctx, "a@b.com", resetHash("wrong-token"), 5); !errors.Is(err, ErrResetMismatch) {
		t.Fatalf("expected mismatch, got %v", err)
	}

	got, err := s.Consume(ctx, "a@b.com", resetHash("the-plaintext-token"), 5)
	if err != nil {
		t.Fatalf("Consume failed: %v", err)
	}
	if got.SubjectID != "u1" {
		t.Fatalf("expected subject u1, got %q", got.SubjectID)
	}

	if _, err := s.Consume(ctx, "a@b.com", resetHash("the-plaintext-token"), 5); !errors.Is(err, ErrResetNotFound) {
		t.Fatalf("expected not found after consume, got %v", err)
	}
}

func TestMemoryResetExpiry(t *testing.T) {
	s := NewMemoryResetStore()
	ctx := context.Background()

	issuedAt := time.Now()
	current := issuedAt
	s.now = func() time.Time { return current }

	record := &ResetRecord{
		SubjectID:  "u1",
		SecretHash: resetHash("tok"),
		ExpiresAt:  issuedAt.Add(15 * time.Minute).Unix(),
	}
	if err := s.Save(ctx, "a@b.com", record, 15*time.Minute); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	current = issuedAt.Add(16 * time.Minute)
	if _, err := s.Consume(ctx, "a@b.com", resetHash("tok"), 5); !errors.Is(err, ErrResetExpired) {
		t.Fatalf("expected expired, got %v", err)
	}
}

func TestRedisResetConsumeAndOverwrite(t *testing.T) {
	_, client := newTestRedis(t)
	s := NewRedisResetStore(client, "")
	ctx := context.Background()

	first := &ResetRecord{
		SubjectID:  "u1",
		SecretHash: resetHash("first-token"),
		ExpiresAt:  time.Now().Add(15 * time.Minute).Unix(),
	}
	second := &ResetRecord{
		SubjectID:  "u1",
		SecretHash: resetHash("second-token"),
		ExpiresAt:  time.Now().Add(15 * time.Minute).Unix(),
	}

	if err := s.Save(ctx, "a@b.com", first, 15*time.Minute); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := s.Save(ctx, "a@b.com", second, 15*time.Minute); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if _, err := s.Consume(ctx, "a@b.com", resetHash("first-token"), 5); !errors.Is(err, ErrResetMismatch) {
		t.Fatalf("expected first token to be invalidated by overwrite, got %v", err)
	}
	if _, err := s.Consume(ctx, "a@b.com", resetHash("second-token"), 5); err != nil {
		t.Fatalf("expected second token to verify, got %v", err)
	}
}

func TestRedisResetNeverStoresPlaintext(t *testing.T) {
	mr, client := newTestRedis(t)
	s := NewRedisResetStore(client, "")
	ctx := context.Background()

	const plaintext = "high-entropy-plaintext-reset-token"
	record := &ResetRecord{
		SubjectID:  "u1",
		SecretHash: resetHash(plaintext),
		ExpiresAt:  time.Now().Add(15 * time.Minute).Unix(),
	}
	if err := s.Save(ctx, "a@b.com", record, 15*time.Minute); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	for _, key := range mr.Keys() {
		value, err := mr.Get(key)
		if err != nil {
			t.Fatalf("failed to read key %q: %v", key, err)
		}
		if strings.Contains(value, plaintext) {
			t.Fatalf("stored value for %q contains the plaintext token", key)
		}
	}
}

func TestResetRecordEncodeDecodeRoundTrip(t *testing.T) {
	record := &ResetRecord{
		SubjectID:  "subject-42",
		SecretHash: resetHash("anything"),
		ExpiresAt:  1700000900,
		Attempts:   1,
	}

	encoded, err := encodeResetRecord(record)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	decoded, err := decodeResetRecord(encoded)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	if *decoded != *record {
		t.Fatalf("round trip mismatch: got %+v want %+v", decoded, record)
	}
}
