package engine

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/claimscope/claimscope/internal/engine/risk"
)

// EmbeddingService produces fixed-dimension text embeddings. The dimension
// is agreed at deployment time; the engine never inspects vector contents
// beyond their length.
type EmbeddingService interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}

// PatentHit is one approximate-nearest-neighbour result at patent
// granularity. Score is cosine similarity already mapped into [0,1].
type PatentHit struct {
	PatentID uuid.UUID
	Score    float64
}

// ClaimHit is one ANN result at claim granularity.
type ClaimHit struct {
	PatentID    uuid.UUID
	ClaimNumber int
	Score       float64
}

// VectorIndex is the ANN lookup collaborator.
type VectorIndex interface {
	SearchPatents(ctx context.Context, vector []float32, topK int) ([]PatentHit, error)
	SearchClaims(ctx context.Context, vector []float32, topK int) ([]ClaimHit, error)
}

// ExplainRequest carries the texts of one matched claim pair for free-text
// overlap assessment.
type ExplainRequest struct {
	SourceClaim string
	TargetClaim string
	Similarity  float64
	RiskLevel   string
	KeyElements []string
}

// PriorArtRequest asks for a narrative analysis of an invention against the
// blocking patents found for it.
type PriorArtRequest struct {
	InventionDescription string
	BlockingSummaries    []string
}

// Analysis is the explanation collaborator's structured answer for a
// prior-art request. FreedomToOperate is the model's own verdict; the
// numeric verdict on PriorArtReport is computed independently.
type Analysis struct {
	Summary                 string   `json:"summary"`
	FreedomToOperate        risk.FTO `json:"freedomToOperate"`
	KeyRisks                []string `json:"keyRisks,omitempty"`
	DesignAroundSuggestions []string `json:"designAroundSuggestions,omitempty"`
	Recommendation          string   `json:"recommendation,omitempty"`
}

// ExplanationService is the optional LLM-backed enrichment collaborator.
// Every numeric result must be complete and correct with this service
// absent or failing.
type ExplanationService interface {
	ExplainComparison(ctx context.Context, req ExplainRequest) (string, error)
	AnalyzePriorArt(ctx context.Context, req PriorArtRequest) (*Analysis, error)
}

// ResultCache memoizes serialized responses. Get misses are reported via
// the boolean, not an error; errors are reserved for transport problems,
// which callers treat as misses anyway.
type ResultCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Metrics receives engine-level observations. The engine calls it on every
// request path; a no-op implementation keeps the engine usable without a
// metrics backend.
type Metrics interface {
	SearchObserved(mode string, resultCount int, d time.Duration, err error)
	CompareObserved(kind string, d time.Duration, err error)
	PriorArtObserved(d time.Duration, err error)
	CacheAccess(op string, hit bool)
	Degraded(op string)
	ExplanationFailed()
}

type nopMetrics struct{}

func (nopMetrics) SearchObserved(string, int, time.Duration, error) {}
func (nopMetrics) CompareObserved(string, time.Duration, error)     {}
func (nopMetrics) PriorArtObserved(time.Duration, error)            {}
func (nopMetrics) CacheAccess(string, bool)                         {}
func (nopMetrics) Degraded(string)                                  {}
func (nopMetrics) ExplanationFailed()                               {}

// NopMetrics returns a Metrics implementation that discards everything.
func NopMetrics() Metrics { return nopMetrics{} }
