package authgate

import (
	"sync/atomic"
	"time"
)

// MetricID identifies one counter or histogram in [Metrics].
type MetricID uint16

const (
	MetricGatewayForwarded MetricID = iota
	MetricGatewayRejected
	MetricCurrentUserResolved
	MetricCurrentUserAbsent
	MetricCurrentUserFailed
	MetricSignInSuccess
	MetricSignInFailure
	MetricSignOut
	MetricSessionCreated
	MetricRateLimited
	MetricGuardRejected
	MetricSignupRejected
	MetricUserCreated
	MetricPasswordResetRequest
	MetricPasswordResetConfirm
	MetricVerificationSent
	MetricEmailVerified
	// MetricGatewayLatency is the only histogram.
	MetricGatewayLatency
	metricIDCount
)

// LatencyBounds are the inclusive upper bounds of the latency buckets. A final
// bucket catches everything slower.
var LatencyBounds = [...]time.Duration{
	5 * time.Millisecond,
	10 * time.Millisecond,
	25 * time.Millisecond,
	50 * time.Millisecond,
	100 * time.Millisecond,
	250 * time.Millisecond,
	500 * time.Millisecond,
}

const (
	histBucketCount = len(LatencyBounds) + 1
	cacheLineSize   = 64
)

type latencyHistogram struct {
	buckets  [histBucketCount]atomic.Uint64
	sumNanos atomic.Int64
}

func (h *latencyHistogram) observe(d time.Duration) {
	i := 0
	for i < len(LatencyBounds) && d > LatencyBounds[i] {
		i++
	}
	h.buckets[i].Add(1)
	h.sumNanos.Add(int64(d))
}

// paddedCounter keeps each counter on its own cache line.
type paddedCounter struct {
	atomic.Uint64
	_ [cacheLineSize - 8]byte
}

// Metrics is a fixed set of lock-free counters plus the gateway latency histogram.
// A nil or disabled *Metrics ignores every call.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	latency       latencyHistogram
}

// MetricsSnapshot is a point-in-time copy. Histogram buckets are non-cumulative and
// HistogramSums holds the total observed time per histogram.
type MetricsSnapshot struct {
	Counters      map[MetricID]uint64
	Histograms    map[MetricID][]uint64
	HistogramSums map[MetricID]time.Duration
}

// NewMetrics returns a registry. A disabled registry ignores every write.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

// Enabled reports whether counters are recorded. Safe on a nil *Metrics.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// Inc adds one to counter id.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= MetricGatewayLatency {
		return
	}
	m.counters[id].Add(1)
}

// Observe records d for id. Only MetricGatewayLatency is a histogram.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enableLatency || id != MetricGatewayLatency {
		return
	}
	m.latency.observe(d)
}

// Value reads counter id. Histogram ids read as 0.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= MetricGatewayLatency {
		return 0
	}
	return m.counters[id].Load()
}

// Snapshot copies every counter and, when latency histograms are on, the
// gateway histogram. A disabled registry yields empty maps.
func (m *Metrics) Snapshot() MetricsSnapshot {
	s := MetricsSnapshot{
		Counters:      map[MetricID]uint64{},
		Histograms:    map[MetricID][]uint64{},
		HistogramSums: map[MetricID]time.Duration{},
	}
	if m == nil || !m.enabled {
		return s
	}

	for id := MetricID(0); id < MetricGatewayLatency; id++ {
		s.Counters[id] = m.counters[id].Load()
	}
	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := range buckets {
			buckets[i] = m.latency.buckets[i].Load()
		}
		s.Histograms[MetricGatewayLatency] = buckets
		s.HistogramSums[MetricGatewayLatency] = time.Duration(m.latency.sumNanos.Load())
	}
	return s
}
