package signon

import (
	"context"
	"fmt"
	"time"

	"github.com/davrx/signon/jwt"
)

// IssueTokens mints one access token and one refresh token for the subject.
// Tokens are self-contained; nothing is stored server-side at issuance.
func (e *Engine) IssueTokens(ctx context.Context, subjectID, email string) (TokenPair, error) {
	if e == nil {
		return TokenPair{}, ErrEngineNotReady
	}
	key := normalizeAccountKey(email)

	access, err := e.tokens.CreateAccess(subjectID, key)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := e.tokens.CreateRefresh(subjectID, key)
	if err != nil {
		return TokenPair{}, err
	}

	e.metricInc(MetricTokensIssued)
	e.emitAudit(ctx, auditEventTokensIssued, key, subjectID, true, nil)
	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// VerifyAccess accepts a token only if it is structurally valid, unexpired,
// tagged as an access token, and absent from the revocation list. Every
// rejection collapses to ErrTokenInvalid.
func (e *Engine) VerifyAccess(ctx context.Context, token string) (*jwt.Claims, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	start := time.Now()

	claims, err := e.tokens.ParseAccess(token)
	if err != nil {
		e.metricInc(MetricAccessVerifyFailure)
		e.emitAudit(ctx, auditEventAccessRejected, "", "", false, err)
		return nil, ErrTokenInvalid
	}

	revoked, err := e.revocations.IsRevoked(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if revoked {
		e.metricInc(MetricAccessRevokedRejected)
		e.emitAudit(ctx, auditEventAccessRejected, claims.Email, claims.SubjectID, false, errRevoked)
		return nil, ErrTokenInvalid
	}

	e.metricInc(MetricAccessVerifySuccess)
	e.metricObserve(time.Since(start))
	return claims, nil
}

// Refresh verifies the refresh token, checks it against the revocation list
// (a logged-out refresh token must not mint new access tokens), and returns
// a fresh access token. The refresh token itself is not rotated; it stays
// valid until its own expiry or revocation.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (string, error) {
	if e == nil {
		return "", ErrEngineNotReady
	}

	claims, err := e.tokens.ParseRefresh(refreshToken)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshRejected, "", "", false, err)
		return "", ErrRefreshInvalid
	}

	revoked, err := e.revocations.IsRevoked(ctx, refreshToken)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if revoked {
		e.metricInc(MetricRefreshRevokedRejected)
		e.emitAudit(ctx, auditEventRefreshRejected, claims.Email, claims.SubjectID, false, errRevoked)
		return "", ErrRefreshInvalid
	}

	access, err := e.tokens.CreateAccess(claims.SubjectID, claims.Email)
	if err != nil {
		return "", err
	}

	e.metricInc(MetricRefreshSuccess)
	e.emitAudit(ctx, auditEventRefreshSuccess, claims.Email, claims.SubjectID, true, nil)
	return access, nil
}

// Revoke places a token on the revocation list. Idempotent: revoking an
// already-revoked token is a no-op. The entry lives exactly as long as the
// token could still validate, then falls out of the list.
func (e *Engine) Revoke(ctx context.Context, token string) error {
	if e == nil {
		return ErrEngineNotReady
	}

	if err := e.revocations.Revoke(ctx, token, e.revocationTTL(token)); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	e.metricInc(MetricRevocation)
	e.emitAudit(ctx, auditEventTokenRevoked, "", "", true, nil)
	return nil
}

// Logout revokes the presented access token and, when supplied, the paired
// refresh token. Tokens that no longer parse are revoked anyway.
func (e *Engine) Logout(ctx context.Context, accessToken, refreshToken string) error {
	if e == nil {
		return ErrEngineNotReady
	}

	if err := e.Revoke(ctx, accessToken); err != nil {
		return err
	}
	if refreshToken != "" {
		if err := e.Revoke(ctx, refreshToken); err != nil {
			return err
		}
	}

	e.metricInc(MetricLogout)
	e.emitAudit(ctx, auditEventLogout, "", "", true, nil)
	return nil
}

// revocationTTL bounds a blacklist entry by the token's own remaining
// lifetime. Unparseable tokens get the refresh TTL, the longest any token
// issued here can live.
func (e *Engine) revocationTTL(token string) time.Duration {
	var expiresAt time.Time
	if claims, err := e.tokens.ParseAccess(token); err == nil && claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	} else if claims, err := e.tokens.ParseRefresh(token); err == nil && claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	} else {
		return e.config.JWT.RefreshTTL
	}

	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		ttl = time.Minute
	}
	return ttl
}
