package stores

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"
)

var ErrRevocationBackend = errors.New("revocation backend unavailable")

// RevocationList records tokens that must no longer be honored. Revoke is
// idempotent; IsRevoked is a plain membership check. Entries are keyed by the
// SHA-256 digest of the token, so the list never retains a usable bearer
// string, and they expire once the token itself could no longer validate.
type RevocationList interface {
	Revoke(ctx context.Context, token string, ttl time.Duration) error
	IsRevoked(ctx context.Context, token string) (bool, error)
}

func revocationKey(token string) string {
	digest := sha256.Sum256([]byte(token))
	return hex.EncodeToString(digest[:])
}
