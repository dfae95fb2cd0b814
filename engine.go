package signon

import (
	"errors"
	"time"

	"github.com/davrx/signon/internal/stores"
	"github.com/davrx/signon/jwt"
)

// errRevoked is the internal failure kind recorded on audit events when an
// otherwise valid token is rejected by the revocation list. It never reaches
// callers; they see the collapsed sentinel for the token family.
var errRevoked = errors.New("token revoked")

func nowUnix() int64 {
	return time.Now().Unix()
}

// Engine is the session façade: it owns the three ephemeral stores, the
// token service, and the collaborator interfaces, and exposes the full
// login → OTP → tokens → refresh → logout lifecycle. Engines are built
// through [Builder.Build] and are safe for concurrent use afterwards.
//
// "Authenticated" is not a stored state: it is the property of holding a
// currently valid, non-revoked access token. The only server-side state is
// the outstanding OTP/reset records and the revocation list.
type Engine struct {
	config       Config
	otpStore     stores.OTPStore
	resetStore   stores.ResetStore
	revocations  stores.RevocationList
	tokens       *jwt.Manager
	userProvider UserProvider
	messenger    Messenger
	audit        *auditDispatcher
	metrics      *Metrics
}

// Close flushes the audit pipeline. The engine must not be used afterwards.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped reports how many audit events were discarded because the
// buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a point-in-time copy of the engine counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) metricObserve(d time.Duration) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.ObserveLatency(d)
}
