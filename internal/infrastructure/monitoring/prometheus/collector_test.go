package prometheus

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/claimscope/claimscope/internal/infrastructure/monitoring/logging"
)

func newTestCollector(t *testing.T) MetricsCollector {
	t.Helper()
	c, err := NewMetricsCollector(CollectorConfig{Namespace: "claimscope"}, logging.NewNopLogger())
	require.NoError(t, err)
	return c
}

func TestNewMetricsCollector_RequiresNamespace(t *testing.T) {
	_, err := NewMetricsCollector(CollectorConfig{}, logging.NewNopLogger())
	assert.Error(t, err)
}

func TestRegisterCounter_IncrementVisibleOnHandler(t *testing.T) {
	c := newTestCollector(t)

	vec := c.RegisterCounter("search_requests_total", "Hybrid search requests", "mode", "status")
	vec.WithLabelValues("hybrid", "success").Inc()
	vec.WithLabelValues("hybrid", "success").Add(2)

	body := scrape(t, c)
	assert.Contains(t, body, "claimscope_search_requests_total")
	assert.Contains(t, body, `mode="hybrid"`)
}

func TestRegisterCounter_DuplicateNameReturnsSameMetric(t *testing.T) {
	c := newTestCollector(t)

	first := c.RegisterCounter("dup_total", "dup", "label")
	second := c.RegisterCounter("dup_total", "dup", "label")

	first.WithLabelValues("a").Inc()
	second.WithLabelValues("a").Inc()

	body := scrape(t, c)
	assert.Contains(t, body, `claimscope_dup_total{label="a"} 2`)
}

func TestRegisterGauge_SetAndDec(t *testing.T) {
	c := newTestCollector(t)

	vec := c.RegisterGauge("http_active_requests", "Active HTTP requests", "method", "path")
	g := vec.WithLabelValues("GET", "/api/v1/patents/search")
	g.Set(5)
	g.Dec()

	body := scrape(t, c)
	assert.Contains(t, body, "claimscope_http_active_requests")
	assert.Contains(t, body, "} 4")
}

func TestRegisterHistogram_ObservesWithCustomBuckets(t *testing.T) {
	c := newTestCollector(t)

	vec := c.RegisterHistogram("search_duration_seconds", "Search duration", []float64{0.1, 1}, "mode")
	vec.WithLabelValues("hybrid").Observe(0.05)

	body := scrape(t, c)
	assert.Contains(t, body, `claimscope_search_duration_seconds_bucket{mode="hybrid",le="0.1"} 1`)
}

func TestRegisterHistogram_NilBucketsUseDefaults(t *testing.T) {
	c := newTestCollector(t)

	vec := c.RegisterHistogram("default_buckets_seconds", "uses defaults", nil)
	vec.WithLabelValues().Observe(0.3)

	body := scrape(t, c)
	assert.Contains(t, body, `le="0.5"`)
}

func TestTimer_ObservesElapsed(t *testing.T) {
	c := newTestCollector(t)

	vec := c.RegisterHistogram("timer_seconds", "timer", []float64{10})
	timer := NewTimer(vec.WithLabelValues())
	time.Sleep(time.Millisecond)
	timer.ObserveDuration()

	body := scrape(t, c)
	assert.Contains(t, body, `claimscope_timer_seconds_bucket{le="10"} 1`)
}

func TestTimer_NilHistogramIsSafe(t *testing.T) {
	timer := NewTimer(nil)
	assert.NotPanics(t, timer.ObserveDuration)
}

func TestNewAppMetrics_AllMetricsRegistered(t *testing.T) {
	c := newTestCollector(t)

	m := NewAppMetrics(c)
	require.NotNil(t, m)

	RecordHTTPRequest(m, "POST", "/api/v1/patents/compare", 200, 40*time.Millisecond)
	RecordSearch(m, "hybrid", 7, 120*time.Millisecond, nil)
	RecordLLMCall(m, "gpt-4o-mini", "explain_comparison", time.Second, nil)
	RecordCacheAccess(m, "result", true)
	RecordCacheAccess(m, "result", false)
	RecordError(m, "engine", "ENG_003")

	body := scrape(t, c)
	for _, metric := range []string{
		"claimscope_http_requests_total",
		"claimscope_search_requests_total",
		"claimscope_search_result_count",
		"claimscope_llm_requests_total",
		"claimscope_cache_hits_total",
		"claimscope_cache_misses_total",
		"claimscope_errors_total",
	} {
		assert.Contains(t, body, metric, "missing %s", metric)
	}
	assert.Contains(t, body, `error_code="ENG_003"`)
}

func scrape(t *testing.T, c MetricsCollector) string {
	t.Helper()
	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	require.True(t, strings.Contains(body, "claimscope_") || body == "", "unexpected scrape output")
	return body
}
