// Package signon implements the ephemeral credential and session lifecycle
// for login flows: one-time-password issuance and verification, password
// reset tokens, signed access/refresh token issuance, and logout revocation.
//
// The package is a library, not a service. The host application keeps
// ownership of routing, persistence, and outbound messaging, and hands the
// engine two capabilities: a [UserProvider] for account lookup and a
// [Messenger] for delivering codes. Code generation, expiry, single-use
// consumption, token signing, and the revocation list all live behind
// [Engine], built once through [Builder.Build] and safe for concurrent use.
//
// # Architecture boundaries
//
// signon is the public surface. It exposes [Engine], [Builder], [Config],
// the collaborator interfaces, and value types. Store backends and
// randomness helpers live under internal/ and are never exported; the token
// service lives in the jwt sub-package because its [jwt.Claims] type is part
// of the public contract.
//
// # Failure discipline
//
// Every verification failure collapses to one opaque sentinel per credential
// family (ErrOTPInvalid, ErrResetInvalid, ErrTokenInvalid, ErrRefreshInvalid)
// so responses cannot reveal whether an account has a pending flow. The
// finer-grained causes feed audit events and metrics only. Delivery failures
// are the deliberate exception: they surface verbatim as ErrDeliveryFailed.
package signon
