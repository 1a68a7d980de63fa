package prometheus

import (
	"strconv"
	"time"
)

// AppMetrics holds all application metrics.
type AppMetrics struct {
	// HTTP layer
	HTTPRequestsTotal   CounterVec
	HTTPRequestDuration HistogramVec
	HTTPActiveRequests  GaugeVec

	// Engine layer
	SearchRequestsTotal     CounterVec
	SearchDuration          HistogramVec
	SearchResultCount       HistogramVec
	CompareRequestsTotal    CounterVec
	CompareDuration         HistogramVec
	ClaimMatchCellsTotal    CounterVec
	PriorArtRequestsTotal   CounterVec
	PriorArtDuration        HistogramVec
	ResultCacheHitsTotal    CounterVec
	ResultCacheMissesTotal  CounterVec
	DegradedResponsesTotal  CounterVec
	ExplanationFailuresTotal CounterVec

	// Model layer
	EmbeddingRequestsTotal CounterVec
	EmbeddingDuration      HistogramVec
	LLMRequestsTotal       CounterVec
	LLMRequestDuration     HistogramVec

	// Infrastructure layer
	DBQueryDuration     HistogramVec
	VectorSearchDuration HistogramVec
	CacheHitsTotal      CounterVec
	CacheMissesTotal    CounterVec

	// System health
	HealthCheckStatus GaugeVec
	ErrorsTotal       CounterVec
}

// Default buckets per concern.
var (
	DefaultHTTPDurationBuckets  = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}
	DefaultModelDurationBuckets = []float64{.05, .1, .25, .5, 1, 2, 5, 10, 30, 60}
	DefaultDBDurationBuckets    = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 5}
	DefaultResultCountBuckets   = []float64{0, 1, 5, 10, 20, 50, 100}
)

// NewAppMetrics registers all metrics and returns the populated AppMetrics.
func NewAppMetrics(collector MetricsCollector) *AppMetrics {
	m := &AppMetrics{}

	// HTTP
	m.HTTPRequestsTotal = collector.RegisterCounter("http_requests_total", "Total HTTP requests", "method", "path", "status_code")
	m.HTTPRequestDuration = collector.RegisterHistogram("http_request_duration_seconds", "HTTP request duration", DefaultHTTPDurationBuckets, "method", "path")
	m.HTTPActiveRequests = collector.RegisterGauge("http_active_requests", "Active HTTP requests", "method", "path")

	// Engine
	m.SearchRequestsTotal = collector.RegisterCounter("search_requests_total", "Hybrid search requests", "mode", "status")
	m.SearchDuration = collector.RegisterHistogram("search_duration_seconds", "Hybrid search duration", DefaultHTTPDurationBuckets, "mode")
	m.SearchResultCount = collector.RegisterHistogram("search_result_count", "Hybrid search result count", DefaultResultCountBuckets, "mode")
	m.CompareRequestsTotal = collector.RegisterCounter("compare_requests_total", "Patent comparison requests", "kind", "status")
	m.CompareDuration = collector.RegisterHistogram("compare_duration_seconds", "Patent comparison duration", DefaultModelDurationBuckets, "kind")
	m.ClaimMatchCellsTotal = collector.RegisterCounter("claim_match_cells_total", "Claim similarity matrix cells computed")
	m.PriorArtRequestsTotal = collector.RegisterCounter("priorart_requests_total", "Prior-art search requests", "status")
	m.PriorArtDuration = collector.RegisterHistogram("priorart_duration_seconds", "Prior-art search duration", DefaultModelDurationBuckets)
	m.ResultCacheHitsTotal = collector.RegisterCounter("result_cache_hits_total", "Result cache hits", "operation")
	m.ResultCacheMissesTotal = collector.RegisterCounter("result_cache_misses_total", "Result cache misses", "operation")
	m.DegradedResponsesTotal = collector.RegisterCounter("degraded_responses_total", "Responses served in degraded mode", "operation", "reason")
	m.ExplanationFailuresTotal = collector.RegisterCounter("explanation_failures_total", "Explanation generation failures", "operation")

	// Models
	m.EmbeddingRequestsTotal = collector.RegisterCounter("embedding_requests_total", "Embedding requests", "status")
	m.EmbeddingDuration = collector.RegisterHistogram("embedding_duration_seconds", "Embedding request duration", DefaultModelDurationBuckets)
	m.LLMRequestsTotal = collector.RegisterCounter("llm_requests_total", "LLM requests", "model", "operation", "status")
	m.LLMRequestDuration = collector.RegisterHistogram("llm_request_duration_seconds", "LLM request duration", DefaultModelDurationBuckets, "model", "operation")

	// Infrastructure
	m.DBQueryDuration = collector.RegisterHistogram("db_query_duration_seconds", "Database query duration", DefaultDBDurationBuckets, "operation")
	m.VectorSearchDuration = collector.RegisterHistogram("vector_search_duration_seconds", "Vector index search duration", DefaultDBDurationBuckets, "collection")
	m.CacheHitsTotal = collector.RegisterCounter("cache_hits_total", "Cache hits", "cache")
	m.CacheMissesTotal = collector.RegisterCounter("cache_misses_total", "Cache misses", "cache")

	// Health
	m.HealthCheckStatus = collector.RegisterGauge("health_check_status", "Health check status (1=up, 0=down)", "component")
	m.ErrorsTotal = collector.RegisterCounter("errors_total", "Total errors", "component", "error_code")

	return m
}

// Helpers

func RecordHTTPRequest(metrics *AppMetrics, method, path string, statusCode int, duration time.Duration) {
	status := strconv.Itoa(statusCode)
	metrics.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	metrics.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

func RecordSearch(metrics *AppMetrics, mode string, resultCount int, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	metrics.SearchRequestsTotal.WithLabelValues(mode, status).Inc()
	metrics.SearchDuration.WithLabelValues(mode).Observe(duration.Seconds())
	if err == nil {
		metrics.SearchResultCount.WithLabelValues(mode).Observe(float64(resultCount))
	}
}

func RecordLLMCall(metrics *AppMetrics, model, operation string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	metrics.LLMRequestsTotal.WithLabelValues(model, operation, status).Inc()
	metrics.LLMRequestDuration.WithLabelValues(model, operation).Observe(duration.Seconds())
}

func RecordCacheAccess(metrics *AppMetrics, cache string, hit bool) {
	if hit {
		metrics.CacheHitsTotal.WithLabelValues(cache).Inc()
	} else {
		metrics.CacheMissesTotal.WithLabelValues(cache).Inc()
	}
}

func RecordError(metrics *AppMetrics, component, errorCode string) {
	metrics.ErrorsTotal.WithLabelValues(component, errorCode).Inc()
}
