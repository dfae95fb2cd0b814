package signon

import (
	"context"
	"errors"
	"fmt"

	"github.com/davrx/signon/internal"
	"github.com/davrx/signon/internal/stores"
)

// IssueOTP generates a numeric one-time code bound to subjectID, stores it
// under the normalized account key, and returns the plaintext for
// out-of-band delivery. Any prior outstanding code for the account is
// overwritten: only the newest code can verify.
func (e *Engine) IssueOTP(ctx context.Context, accountKey, subjectID string) (string, error) {
	if e == nil {
		return "", ErrEngineNotReady
	}
	key := normalizeAccountKey(accountKey)

	code, err := internal.NewOTP(e.config.OTP.Digits)
	if err != nil {
		return "", err
	}

	now := nowUnix()
	record := &stores.OTPRecord{
		SubjectID: subjectID,
		Code:      code,
		IssuedAt:  now,
		ExpiresAt: now + int64(e.config.OTP.TTL.Seconds()),
	}
	if err := e.otpStore.Save(ctx, key, record, e.config.OTP.TTL); err != nil {
		return "", fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	e.metricInc(MetricOTPIssued)
	e.emitAudit(ctx, auditEventOTPIssued, key, subjectID, true, nil)
	return code, nil
}

// VerifyOTP consumes an outstanding code. On a match the record is deleted
// before returning, so the same code can never verify twice. Every failure
// collapses to ErrOTPInvalid; the caller cannot tell a missing record from
// a wrong or expired code.
func (e *Engine) VerifyOTP(ctx context.Context, accountKey, code string) (string, error) {
	if e == nil {
		return "", ErrEngineNotReady
	}
	key := normalizeAccountKey(accountKey)

	record, err := e.otpStore.Consume(ctx, key, code, e.config.OTP.MaxAttempts)
	if err != nil {
		switch {
		case errors.Is(err, stores.ErrOTPNotFound),
			errors.Is(err, stores.ErrOTPExpired),
			errors.Is(err, stores.ErrOTPMismatch):
			e.metricInc(MetricOTPVerifyFailure)
			e.emitAudit(ctx, auditEventOTPVerifyFailure, key, "", false, err)
			return "", ErrOTPInvalid
		case errors.Is(err, stores.ErrOTPAttemptsExceeded):
			e.metricInc(MetricOTPAttemptsExceeded)
			e.emitAudit(ctx, auditEventOTPVerifyFailure, key, "", false, err)
			return "", ErrOTPInvalid
		default:
			return "", fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
	}

	e.metricInc(MetricOTPVerifySuccess)
	e.emitAudit(ctx, auditEventOTPVerifySuccess, key, record.SubjectID, true, nil)
	return record.SubjectID, nil
}

// BeginLogin looks up the account, issues a login OTP, and hands it to the
// Messenger. Unknown identifiers return nil so callers cannot probe for
// account existence; delivery failures surface verbatim because the user is
// otherwise stuck waiting for a code that will never arrive.
func (e *Engine) BeginLogin(ctx context.Context, identifier string) error {
	if e == nil {
		return ErrEngineNotReady
	}

	user, err := e.userProvider.GetUserByIdentifier(ctx, identifier)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLookupFailed, err)
	}
	if user == nil {
		e.emitAudit(ctx, auditEventLoginUnknownAccount, normalizeAccountKey(identifier), "", false, nil)
		return nil
	}

	key := normalizeAccountKey(user.Email)
	code, err := e.IssueOTP(ctx, key, user.SubjectID)
	if err != nil {
		return err
	}

	// Delivery runs outside any store critical section.
	if err := e.messenger.Deliver(ctx, key, Message{
		Kind:      MessageLoginOTP,
		Code:      code,
		ExpiresIn: e.config.OTP.TTL,
	}); err != nil {
		e.metricInc(MetricOTPDeliveryFailure)
		e.emitAudit(ctx, auditEventOTPDeliveryFailure, key, user.SubjectID, false, err)
		return fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}

	return nil
}

// CompleteLogin verifies the presented code and, on success, mints one
// access token and one refresh token for the bound subject.
func (e *Engine) CompleteLogin(ctx context.Context, accountKey, code string) (TokenPair, error) {
	if e == nil {
		return TokenPair{}, ErrEngineNotReady
	}
	key := normalizeAccountKey(accountKey)

	subjectID, err := e.VerifyOTP(ctx, key, code)
	if err != nil {
		return TokenPair{}, err
	}

	return e.IssueTokens(ctx, subjectID, key)
}
