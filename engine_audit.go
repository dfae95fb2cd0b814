package signon

import (
	"context"
	"time"
)

const (
	auditEventOTPIssued            = "otp_issued"
	auditEventOTPDeliveryFailure   = "otp_delivery_failure"
	auditEventOTPVerifySuccess     = "otp_verify_success"
	auditEventOTPVerifyFailure     = "otp_verify_failure"
	auditEventLoginUnknownAccount  = "login_unknown_account"
	auditEventResetIssued          = "reset_token_issued"
	auditEventResetDeliveryFailure = "reset_delivery_failure"
	auditEventResetVerifySuccess   = "reset_verify_success"
	auditEventResetVerifyFailure   = "reset_verify_failure"
	auditEventTokensIssued         = "tokens_issued"
	auditEventAccessRejected       = "access_rejected"
	auditEventRefreshSuccess       = "refresh_success"
	auditEventRefreshRejected      = "refresh_rejected"
	auditEventTokenRevoked         = "token_revoked"
	auditEventLogout               = "logout"
)

func (e *Engine) emitAudit(ctx context.Context, eventType, accountKey, subjectID string, success bool, cause error) {
	if e == nil || e.audit == nil {
		return
	}

	event := AuditEvent{
		Timestamp:  time.Now(),
		EventType:  eventType,
		AccountKey: accountKey,
		SubjectID:  subjectID,
		IP:         clientIPFromContext(ctx),
		Success:    success,
	}
	if cause != nil {
		event.Error = cause.Error()
	}

	e.audit.Dispatch(event)
}
