package prometheus

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/MrEthical07/authgate"
	"github.com/prometheus/client_golang/prometheus"
)

type fakeSource struct {
	snapshot authgate.MetricsSnapshot
	dropped  uint64
}

func (f fakeSource) MetricsSnapshot() authgate.MetricsSnapshot { return f.snapshot }
func (f fakeSource) AuditDropped() uint64                      { return f.dropped }

func scrape(t *testing.T, e *Exporter) string {
	t.Helper()
	rec := httptest.NewRecorder()
	e.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	return rec.Body.String()
}

func TestCollectEmptyWhenMetricsDisabled(t *testing.T) {
	e := NewExporter(fakeSource{snapshot: authgate.MetricsSnapshot{
		Counters:   map[authgate.MetricID]uint64{},
		Histograms: map[authgate.MetricID][]uint64{},
	}})

	reg := prometheus.NewRegistry()
	reg.MustRegister(e)
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	if len(families) != 0 {
		t.Fatalf("expected no families, got %d", len(families))
	}
}

func TestScrapeIncludesCountersAndHistogram(t *testing.T) {
	out := scrape(t, NewExporter(fakeSource{
		snapshot: authgate.MetricsSnapshot{
			Counters: map[authgate.MetricID]uint64{
				authgate.MetricSignInSuccess: 7,
			},
			Histograms: map[authgate.MetricID][]uint64{
				authgate.MetricGatewayLatency: {1, 2, 3, 4, 5, 6, 7, 8},
			},
			HistogramSums: map[authgate.MetricID]time.Duration{
				authgate.MetricGatewayLatency: 1500 * time.Millisecond,
			},
		},
		dropped: 2,
	}))

	for _, want := range []string{
		"authgate_sign_in_success_total 7",
		"authgate_gateway_forwarded_total 0",
		`authgate_gateway_latency_seconds_bucket{le="0.005"} 1`,
		`authgate_gateway_latency_seconds_bucket{le="+Inf"} 36`,
		"authgate_gateway_latency_seconds_count 36",
		"authgate_gateway_latency_seconds_sum 1.5",
		"authgate_audit_dropped_total 2",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
}

func TestScrapeFromAuthMetrics(t *testing.T) {
	m := authgate.NewMetrics(authgate.MetricsConfig{Enabled: true})
	m.Inc(authgate.MetricGatewayRejected)
	m.Inc(authgate.MetricGatewayRejected)

	out := scrape(t, NewExporter(metricsOnly{m}))
	if !strings.Contains(out, "authgate_gateway_rejected_total 2") {
		t.Fatalf("unexpected output:\n%s", out)
	}
	if strings.Contains(out, "authgate_gateway_latency_seconds") {
		t.Fatal("latency histogram exported while disabled")
	}
}

type metricsOnly struct{ m *authgate.Metrics }

func (s metricsOnly) MetricsSnapshot() authgate.MetricsSnapshot { return s.m.Snapshot() }
func (metricsOnly) AuditDropped() uint64                        { return 0 }
