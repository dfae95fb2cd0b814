package signon

import (
	"context"
	"errors"
	"fmt"

	"github.com/davrx/signon/internal"
	"github.com/davrx/signon/internal/stores"
)

// IssueResetToken generates a high-entropy reset token bound to subjectID
// and returns the plaintext exactly once. Only the SHA-256 digest is stored;
// reading the store afterwards yields nothing usable.
func (e *Engine) IssueResetToken(ctx context.Context, accountKey, subjectID string) (string, error) {
	if e == nil {
		return "", ErrEngineNotReady
	}
	key := normalizeAccountKey(accountKey)

	token, hash, err := internal.NewResetToken()
	if err != nil {
		return "", err
	}

	record := &stores.ResetRecord{
		SubjectID:  subjectID,
		SecretHash: hash,
		ExpiresAt:  nowUnix() + int64(e.config.Reset.TTL.Seconds()),
	}
	if err := e.resetStore.Save(ctx, key, record, e.config.Reset.TTL); err != nil {
		return "", fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	e.metricInc(MetricResetIssued)
	e.emitAudit(ctx, auditEventResetIssued, key, subjectID, true, nil)
	return token, nil
}

// VerifyResetToken consumes an outstanding reset grant. Single-use: success
// deletes the record. Failures collapse to ErrResetInvalid.
func (e *Engine) VerifyResetToken(ctx context.Context, accountKey, token string) (string, error) {
	if e == nil {
		return "", ErrEngineNotReady
	}
	key := normalizeAccountKey(accountKey)

	record, err := e.resetStore.Consume(ctx, key, internal.HashResetToken(token), e.config.Reset.MaxAttempts)
	if err != nil {
		switch {
		case errors.Is(err, stores.ErrResetNotFound),
			errors.Is(err, stores.ErrResetExpired),
			errors.Is(err, stores.ErrResetMismatch):
			e.metricInc(MetricResetVerifyFailure)
			e.emitAudit(ctx, auditEventResetVerifyFailure, key, "", false, err)
			return "", ErrResetInvalid
		case errors.Is(err, stores.ErrResetAttemptsExceeded):
			e.metricInc(MetricResetAttemptsExceeded)
			e.emitAudit(ctx, auditEventResetVerifyFailure, key, "", false, err)
			return "", ErrResetInvalid
		default:
			return "", fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
	}

	e.metricInc(MetricResetVerifySuccess)
	e.emitAudit(ctx, auditEventResetVerifySuccess, key, record.SubjectID, true, nil)
	return record.SubjectID, nil
}

// BeginPasswordReset looks up the account, issues a reset token, and hands
// it to the Messenger. Same enumeration and delivery semantics as
// BeginLogin.
func (e *Engine) BeginPasswordReset(ctx context.Context, identifier string) error {
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
	token, err := e.IssueResetToken(ctx, key, user.SubjectID)
	if err != nil {
		return err
	}

	if err := e.messenger.Deliver(ctx, key, Message{
		Kind:      MessagePasswordReset,
		Code:      token,
		ExpiresIn: e.config.Reset.TTL,
	}); err != nil {
		e.metricInc(MetricResetDeliveryFailure)
		e.emitAudit(ctx, auditEventResetDeliveryFailure, key, user.SubjectID, false, err)
		return fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}

	return nil
}
