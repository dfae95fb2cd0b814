package signon

import (
	"sync/atomic"
	"time"
)

// MetricID indexes one engine counter.
type MetricID uint16

const (
	MetricOTPIssued MetricID = iota
	MetricOTPVerifySuccess
	MetricOTPVerifyFailure
	MetricOTPAttemptsExceeded
	MetricOTPDeliveryFailure
	MetricResetIssued
	MetricResetVerifySuccess
	MetricResetVerifyFailure
	MetricResetAttemptsExceeded
	MetricResetDeliveryFailure
	MetricTokensIssued
	MetricAccessVerifySuccess
	MetricAccessVerifyFailure
	MetricAccessRevokedRejected
	MetricRefreshSuccess
	MetricRefreshFailure
	MetricRefreshRevokedRejected
	MetricRevocation
	MetricLogout
	MetricVerifyLatency
	metricIDCount
)

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

type metricHistogram struct {
	buckets [histBucketCount]uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics holds the engine's in-process counters. Counters are cache-line
// padded so hot-path increments from different cores do not false-share.
type Metrics struct {
	enabled    bool
	histograms bool
	counters   [metricIDCount]paddedCounter
	latency    metricHistogram
}

// MetricsSnapshot is a point-in-time copy of every counter, safe to retain.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

func NewMetrics(cfg MetricsConfig) *Metrics {
	if !cfg.Enabled {
		return nil
	}
	return &Metrics{
		enabled:    true,
		histograms: cfg.EnableLatencyHistograms,
	}
}

func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// ObserveLatency records a VerifyAccess duration in exponential buckets:
// <1µs, <10µs, <100µs, <1ms, <10ms, <100ms, <1s, and everything above.
func (m *Metrics) ObserveLatency(d time.Duration) {
	if m == nil || !m.enabled || !m.histograms {
		return
	}

	bucket := 0
	threshold := time.Microsecond
	for bucket < histBucketCount-1 && d >= threshold {
		bucket++
		threshold *= 10
	}
	atomic.AddUint64(&m.latency.buckets[bucket], 1)
}

func (m *Metrics) Snapshot() MetricsSnapshot {
	snapshot := MetricsSnapshot{
		Counters:   make(map[MetricID]uint64, metricIDCount),
		Histograms: make(map[MetricID][]uint64),
	}
	if m == nil || !m.enabled {
		return snapshot
	}

	for id := MetricID(0); id < metricIDCount; id++ {
		snapshot.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}
	if m.histograms {
		buckets := make([]uint64, histBucketCount)
		for i := range buckets {
			buckets[i] = atomic.LoadUint64(&m.latency.buckets[i])
		}
		snapshot.Histograms[MetricVerifyLatency] = buckets
	}
	return snapshot
}
