package engine

import (
	"github.com/google/uuid"

	"github.com/claimscope/claimscope/internal/domain/patent"
	"github.com/claimscope/claimscope/internal/engine/risk"
)

// SearchResult ranks one patent against a query. CombinedScore is always
// recomputed from the two component scores and the request weight, never
// stored independently of them.
type SearchResult struct {
	Patent        patent.Patent `json:"patent"`
	VectorScore   float64       `json:"vectorScore"`
	FuzzyScore    float64       `json:"fuzzyScore"`
	CombinedScore float64       `json:"combinedScore"`
}

// SearchResponse is the ordered result list plus degradation bookkeeping.
type SearchResponse struct {
	Query   string         `json:"query"`
	Results []SearchResult `json:"results"`

	// Degraded is set when the semantic layer was unavailable and the
	// ranking fell back to fuzzy-only scoring.
	Degraded bool `json:"degraded,omitempty"`
}

// ClaimMatch is a scored claim pair with its risk grade and optional
// free-text overlap assessment.
type ClaimMatch struct {
	SourceClaim patent.Claim `json:"sourceClaim"`
	TargetClaim patent.Claim `json:"targetClaim"`

	VectorScore float64 `json:"vectorScore"`
	FuzzyScore  float64 `json:"fuzzyScore"`
	Similarity  float64 `json:"similarity"`

	RiskLevel risk.Level `json:"riskLevel"`

	// OverlapAssessment is filled by the explanation collaborator when
	// requested and available; empty otherwise.
	OverlapAssessment string `json:"overlapAssessment,omitempty"`
}

// ComparisonReport is the full verdict for one source/target patent pair.
type ComparisonReport struct {
	SourcePatentID uuid.UUID `json:"sourcePatentId"`
	TargetPatentID uuid.UUID `json:"targetPatentId"`

	// TopMatches is ordered by descending similarity and one-to-one: no
	// claim appears in more than one match.
	TopMatches []ClaimMatch `json:"topMatches"`

	OverallRisk             risk.Level `json:"overallRisk"`
	IndependentClaimsAtRisk int        `json:"independentClaimsAtRisk"`
	HighestSimilarity       float64    `json:"highestSimilarity"`
	FreedomToOperate        risk.FTO   `json:"freedomToOperate"`

	Summary        string `json:"summary"`
	Recommendation string `json:"recommendation"`

	// Degraded is set when claim embeddings were unavailable and matching
	// fell back to fuzzy-only scoring.
	Degraded bool `json:"degraded,omitempty"`
}

// BlockingPatent is one prior-art candidate whose claims overlap the
// invention description.
type BlockingPatent struct {
	Patent         patent.Patent `json:"patent"`
	BlockingClaims []ClaimMatch  `json:"blockingClaims"`
	OverallRisk    risk.Level    `json:"overallRisk"`
}

// PriorArtReport summarizes a freedom-to-operate scan for an invention
// description.
type PriorArtReport struct {
	PatentsSearched int              `json:"patentsSearched"`
	BlockingPatents []BlockingPatent `json:"blockingPatents"`

	OverallRisk      risk.Level `json:"overallRisk"`
	FreedomToOperate risk.FTO   `json:"freedomToOperate"`

	// Analysis is present only when requested and the explanation
	// collaborator answered.
	Analysis *Analysis `json:"analysis,omitempty"`

	Degraded bool `json:"degraded,omitempty"`
}
