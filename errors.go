package signon

import "errors"

// Verification failures deliberately collapse to one opaque sentinel per
// credential family. Callers cannot tell a missing record from a wrong code
// from an expired one; the finer-grained store errors feed audit and metrics
// only.
var (
	// ErrEngineNotReady is returned when methods are called on a nil or
	// unbuilt Engine.
	ErrEngineNotReady = errors.New("engine not initialized")
	// ErrOTPInvalid covers every one-time-code verification failure.
	ErrOTPInvalid = errors.New("invalid or expired code")
	// ErrResetInvalid covers every reset-token verification failure.
	ErrResetInvalid = errors.New("invalid or expired reset token")
	// ErrTokenInvalid covers every access-token verification failure,
	// including revoked tokens.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrRefreshInvalid covers every refresh failure, including revoked
	// refresh tokens.
	ErrRefreshInvalid = errors.New("invalid refresh token")
	// ErrDeliveryFailed wraps a Messenger failure. Unlike verification
	// errors it is surfaced verbatim: the caller can act on it and it leaks
	// nothing beyond what the request already implied.
	ErrDeliveryFailed = errors.New("delivery failed")
	// ErrLookupFailed wraps a UserProvider failure.
	ErrLookupFailed = errors.New("account lookup failed")
	// ErrStoreUnavailable wraps a backend outage in one of the ephemeral
	// stores.
	ErrStoreUnavailable = errors.New("credential store unavailable")
)
