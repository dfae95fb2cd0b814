package stores

import (
	"context"
	"errors"
	"time"
)

var (
	ErrOTPNotFound         = errors.New("otp record not found")
	ErrOTPExpired          = errors.New("otp record expired")
	ErrOTPMismatch         = errors.New("otp code mismatch")
	ErrOTPAttemptsExceeded = errors.New("otp attempts exceeded")
	ErrOTPBackend          = errors.New("otp backend unavailable")
)

// OTPRecord is one outstanding one-time code, keyed by account. At most one
// live record exists per account key: Save overwrites unconditionally.
type OTPRecord struct {
	SubjectID string
	Code      string
	IssuedAt  int64
	ExpiresAt int64
	Attempts  uint16
}

// OTPStore persists outstanding one-time codes. Consume is single-use: a
// matching code deletes the record before returning it, so a second call
// with the same code reports ErrOTPNotFound.
type OTPStore interface {
	Save(ctx context.Context, accountKey string, record *OTPRecord, ttl time.Duration) error
	Consume(ctx context.Context, accountKey, code string, maxAttempts int) (*OTPRecord, error)
}
