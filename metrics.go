package jobAuth

import (
	"sync/atomic"
	"time"
)

// MetricID identifies one in-process counter.
type MetricID uint16

const (
	MetricLoginSuccess MetricID = iota
	MetricLoginFailure
	MetricLoginRateLimited
	MetricLoginNotActivated
	MetricPasswordRehashed
	MetricRefreshSuccess
	MetricRefreshFailure
	MetricVerifyFailure
	MetricRevocationReadFailed
	MetricRevocationWriteFailed
	MetricLogout
	MetricRegisterSuccess
	MetricRegisterDuplicate
	MetricRegisterFailure
	MetricActivationSuccess
	MetricActivationFailure
	MetricActivationResent
	MetricActivationResendThrottled
	MetricPasswordResetRequest
	MetricPasswordResetSuccess
	MetricPasswordResetFailure
	MetricPasswordChangeSuccess
	MetricPasswordChangeInvalidOld
	MetricSSOLoginSuccess
	MetricSSOLoginFailure
	MetricSSOAccountCreated
	MetricSSOProviderConflict
	MetricSSOPasswordSet
	MetricEmailChangeSuccess
	MetricEmailChangeFailure
	MetricOTPSent
	MetricOTPFailure
	MetricRateLimitHit
	MetricServiceTokenVerified
	MetricMailerFailure
	MetricVerifyLatency
	metricIDCount
)

// verifyLatencyBounds are the inclusive upper bounds of the Verify latency
// buckets. Anything slower lands in the final overflow bucket.
var verifyLatencyBounds = [...]time.Duration{
	5 * time.Millisecond,
	10 * time.Millisecond,
	25 * time.Millisecond,
	50 * time.Millisecond,
	100 * time.Millisecond,
	250 * time.Millisecond,
	500 * time.Millisecond,
}

const latencyBucketCount = len(verifyLatencyBounds) + 1

// counterSlot keeps each hot counter on its own cache line so parallel
// logins and refreshes do not contend.
type counterSlot struct {
	n atomic.Uint64
	_ [56]byte
}

// Metrics holds the engine's lock-free counters and the Verify latency
// histogram. A nil *Metrics is valid and records nothing.
type Metrics struct {
	enabled bool
	latency bool
	slots   [metricIDCount]counterSlot
	verify  [latencyBucketCount]atomic.Uint64
}

// MetricsSnapshot is a point-in-time copy of all counters.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics allocates counters according to cfg.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled: cfg.Enabled,
		latency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

func (m *Metrics) Enabled() bool { return m != nil && m.enabled }

func (m *Metrics) LatencyEnabled() bool { return m != nil && m.latency }

// Inc adds one to the counter id.
func (m *Metrics) Inc(id MetricID) {
	if !m.Enabled() || id >= metricIDCount {
		return
	}
	m.slots[id].n.Add(1)
}

// Observe records d. Only MetricVerifyLatency carries a histogram; other ids
// are ignored.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if id != MetricVerifyLatency || !m.LatencyEnabled() {
		return
	}
	m.verify[latencyBucket(d)].Add(1)
}

// Value returns the current counter for id.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return m.slots[id].n.Load()
}

// Snapshot copies every counter. Disabled metrics return empty maps.
func (m *Metrics) Snapshot() MetricsSnapshot {
	snap := MetricsSnapshot{
		Counters:   map[MetricID]uint64{},
		Histograms: map[MetricID][]uint64{},
	}
	if !m.Enabled() {
		return snap
	}

	for id := range m.slots {
		snap.Counters[MetricID(id)] = m.slots[id].n.Load()
	}
	if m.latency {
		buckets := make([]uint64, latencyBucketCount)
		for i := range m.verify {
			buckets[i] = m.verify[i].Load()
		}
		snap.Histograms[MetricVerifyLatency] = buckets
	}
	return snap
}

func latencyBucket(d time.Duration) int {
	// bounds are compared at millisecond precision so 5.4ms counts as 5ms
	d = d.Truncate(time.Millisecond)
	for i, bound := range verifyLatencyBounds {
		if d <= bound {
			return i
		}
	}
	return len(verifyLatencyBounds)
}
