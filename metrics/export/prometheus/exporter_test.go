package prometheus

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	jobAuth "github.com/MrEthical07/jobAuth"
	"github.com/MrEthical07/jobAuth/metrics/export/internaldefs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	snapshot jobAuth.MetricsSnapshot
	dropped  uint64
}

func (f fakeSource) MetricsSnapshot() jobAuth.MetricsSnapshot { return f.snapshot }
func (f fakeSource) AuditDropped() uint64                     { return f.dropped }

func gather(t *testing.T, c *Collector) map[string]*dto.MetricFamily {
	t.Helper()
	reg := prometheus.NewPedanticRegistry()
	require.NoError(t, reg.Register(c))
	families, err := reg.Gather()
	require.NoError(t, err)

	out := make(map[string]*dto.MetricFamily, len(families))
	for _, f := range families {
		out[f.GetName()] = f
	}
	return out
}

func TestCollectorCountersAndHistogram(t *testing.T) {
	c := NewCollectorFromSource(fakeSource{
		snapshot: jobAuth.MetricsSnapshot{
			Counters: map[jobAuth.MetricID]uint64{
				jobAuth.MetricLoginSuccess:     7,
				jobAuth.MetricLoginRateLimited: 2,
			},
			Histograms: map[jobAuth.MetricID][]uint64{
				jobAuth.MetricVerifyLatency: {1, 2, 3, 4, 5, 6, 7, 8},
			},
		},
		dropped: 3,
	})

	families := gather(t, c)
	assert.Len(t, families, len(internaldefs.CounterDefs)+len(internaldefs.HistogramDefs)+1)

	assert.Equal(t, 7.0, families["jobauth_login_success_total"].GetMetric()[0].GetCounter().GetValue())
	assert.Equal(t, 2.0, families["jobauth_login_rate_limited_total"].GetMetric()[0].GetCounter().GetValue())
	assert.Equal(t, 0.0, families["jobauth_logout_total"].GetMetric()[0].GetCounter().GetValue())
	assert.Equal(t, 3.0, families["jobauth_audit_dropped_total"].GetMetric()[0].GetCounter().GetValue())

	h := families["jobauth_verify_latency_seconds"].GetMetric()[0].GetHistogram()
	assert.Equal(t, uint64(36), h.GetSampleCount())
	require.Len(t, h.GetBucket(), 7)
	assert.Equal(t, 0.005, h.GetBucket()[0].GetUpperBound())
	assert.Equal(t, uint64(1), h.GetBucket()[0].GetCumulativeCount())
	assert.Equal(t, uint64(28), h.GetBucket()[6].GetCumulativeCount())
}

func TestCollectorLintClean(t *testing.T) {
	c := NewCollectorFromSource(fakeSource{snapshot: jobAuth.MetricsSnapshot{}})
	problems, err := testutil.CollectAndLint(c)
	require.NoError(t, err)
	assert.Empty(t, problems)
}

func TestHandlerServesExposition(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(NewCollectorFromSource(fakeSource{
		snapshot: jobAuth.MetricsSnapshot{Counters: map[jobAuth.MetricID]uint64{jobAuth.MetricLoginSuccess: 1}},
	})))

	rec := httptest.NewRecorder()
	promhttp.HandlerFor(reg, promhttp.HandlerOpts{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "jobauth_login_success_total 1"))
}

func BenchmarkCollect(b *testing.B) {
	c := NewCollectorFromSource(fakeSource{
		snapshot: jobAuth.MetricsSnapshot{
			Counters: map[jobAuth.MetricID]uint64{
				jobAuth.MetricLoginSuccess:   1000,
				jobAuth.MetricLoginFailure:   40,
				jobAuth.MetricRefreshSuccess: 800,
			},
			Histograms: map[jobAuth.MetricID][]uint64{
				jobAuth.MetricVerifyLatency: {10, 20, 30, 40, 50, 60, 70, 80},
			},
		},
	})
	reg := prometheus.NewRegistry()
	if err := reg.Register(c); err != nil {
		b.Fatal(err)
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := reg.Gather(); err != nil {
			b.Fatal(err)
		}
	}
}
