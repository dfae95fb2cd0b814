package stores

import (
	"context"
	"errors"
	"time"
)

var (
	ErrResetNotFound         = errors.New("reset record not found")
	ErrResetExpired          = errors.New("reset record expired")
	ErrResetMismatch         = errors.New("reset secret mismatch")
	ErrResetAttemptsExceeded = errors.New("reset attempts exceeded")
	ErrResetBackend          = errors.New("reset backend unavailable")
)

// ResetRecord is one outstanding password-reset grant, keyed by account.
// Only the SHA-256 digest of the issued token is kept; a read-only compromise
// of the store yields nothing usable.
type ResetRecord struct {
	SubjectID  string
	SecretHash [32]byte
	ExpiresAt  int64
	Attempts   uint16
}

// ResetStore persists outstanding reset grants. Save overwrites any prior
// grant for the account; Consume deletes the record on a digest match.
type ResetStore interface {
	Save(ctx context.Context, accountKey string, record *ResetRecord, ttl time.Duration) error
	Consume(ctx context.Context, accountKey string, providedHash [32]byte, maxAttempts int) (*ResetRecord, error)
}
