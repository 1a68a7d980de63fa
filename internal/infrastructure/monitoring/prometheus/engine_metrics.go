package prometheus

import "time"

// EngineMetrics adapts AppMetrics to the observation hooks the retrieval
// engine calls. It satisfies the engine's Metrics contract.
type EngineMetrics struct {
	m *AppMetrics
}

// NewEngineMetrics wraps registered application metrics for engine use.
func NewEngineMetrics(m *AppMetrics) *EngineMetrics {
	return &EngineMetrics{m: m}
}

func (e *EngineMetrics) SearchObserved(mode string, resultCount int, d time.Duration, err error) {
	RecordSearch(e.m, mode, resultCount, d, err)
}

func (e *EngineMetrics) CompareObserved(kind string, d time.Duration, err error) {
	e.m.CompareRequestsTotal.WithLabelValues(kind, statusOf(err)).Inc()
	e.m.CompareDuration.WithLabelValues(kind).Observe(d.Seconds())
}

func (e *EngineMetrics) PriorArtObserved(d time.Duration, err error) {
	e.m.PriorArtRequestsTotal.WithLabelValues(statusOf(err)).Inc()
	e.m.PriorArtDuration.WithLabelValues().Observe(d.Seconds())
}

func (e *EngineMetrics) CacheAccess(op string, hit bool) {
	if hit {
		e.m.ResultCacheHitsTotal.WithLabelValues(op).Inc()
	} else {
		e.m.ResultCacheMissesTotal.WithLabelValues(op).Inc()
	}
}

func (e *EngineMetrics) Degraded(op string) {
	e.m.DegradedResponsesTotal.WithLabelValues(op, "collaborator_unavailable").Inc()
}

func (e *EngineMetrics) ExplanationFailed() {
	e.m.ExplanationFailuresTotal.WithLabelValues("explain").Inc()
}

func statusOf(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}
