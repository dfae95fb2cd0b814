package signon

import (
	"context"
	"strings"
	"time"
)

// UserRecord is the minimal account view the engine needs from the host
// application: a stable subject identifier and the address ephemeral
// credentials are bound to.
type UserRecord struct {
	SubjectID string
	Email     string
}

// UserProvider is the account lookup capability supplied by the host
// application. Returning (nil, nil) means no account matches the identifier;
// the engine treats that silently to avoid confirming account existence.
type UserProvider interface {
	GetUserByIdentifier(ctx context.Context, identifier string) (*UserRecord, error)
}

// MessageKind distinguishes the payloads the engine asks the host to deliver.
type MessageKind string

const (
	MessageLoginOTP      MessageKind = "login_otp"
	MessagePasswordReset MessageKind = "password_reset"
)

// Message is an out-of-band delivery request: a one-time code or reset token
// plus how long the recipient has to use it.
type Message struct {
	Kind      MessageKind
	Code      string
	ExpiresIn time.Duration
}

// Messenger is the outbound delivery capability (email, SMS, queue) supplied
// by the host application. A failed Deliver surfaces to the engine caller as
// ErrDeliveryFailed; it is never swallowed.
type Messenger interface {
	Deliver(ctx context.Context, accountKey string, msg Message) error
}

// TokenPair is the result of a completed login: one access token and one
// refresh token for the same subject.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// normalizeAccountKey canonicalizes an email into the key used by every
// ephemeral store: trimmed and lowercased.
func normalizeAccountKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}
