package client

import (
	"context"
)

// AnalysisClient covers the search, comparison, and prior-art endpoints.
type AnalysisClient struct {
	client *Client
}

// SearchRequest is a hybrid patent search. A nil VectorWeight takes the
// server default.
type SearchRequest struct {
	Query        string   `json:"query"`
	Limit        int      `json:"limit,omitempty"`
	VectorWeight *float64 `json:"vectorWeight,omitempty"`
}

// SearchResult ranks one patent against the query.
type SearchResult struct {
	Patent        Patent  `json:"patent"`
	VectorScore   float64 `json:"vectorScore"`
	FuzzyScore    float64 `json:"fuzzyScore"`
	CombinedScore float64 `json:"combinedScore"`
}

// SearchResponse is the ordered result list. Degraded marks fuzzy-only
// rankings produced while the semantic layer was unavailable.
type SearchResponse struct {
	Query    string         `json:"query"`
	Results  []SearchResult `json:"results"`
	Degraded bool           `json:"degraded,omitempty"`
}

// CompareRequest identifies the two patents of a comparison.
type CompareRequest struct {
	SourcePatentID string `json:"sourcePatentId"`
	TargetPatentID string `json:"targetPatentId"`
}

// CompareClaimsRequest additionally asks for per-match explanations.
type CompareClaimsRequest struct {
	SourcePatentID     string `json:"sourcePatentId"`
	TargetPatentID     string `json:"targetPatentId"`
	IncludeExplanation bool   `json:"includeExplanation,omitempty"`
}

// ClaimMatch is one scored claim pair of a comparison.
type ClaimMatch struct {
	SourceClaim       Claim   `json:"sourceClaim"`
	TargetClaim       Claim   `json:"targetClaim"`
	VectorScore       float64 `json:"vectorScore"`
	FuzzyScore        float64 `json:"fuzzyScore"`
	Similarity        float64 `json:"similarity"`
	RiskLevel         string  `json:"riskLevel"`
	OverlapAssessment string  `json:"overlapAssessment,omitempty"`
}

// ComparisonReport is the verdict for one source/target patent pair.
type ComparisonReport struct {
	SourcePatentID          string       `json:"sourcePatentId"`
	TargetPatentID          string       `json:"targetPatentId"`
	TopMatches              []ClaimMatch `json:"topMatches"`
	OverallRisk             string       `json:"overallRisk"`
	IndependentClaimsAtRisk int          `json:"independentClaimsAtRisk"`
	HighestSimilarity       float64      `json:"highestSimilarity"`
	FreedomToOperate        string       `json:"freedomToOperate"`
	Summary                 string       `json:"summary"`
	Recommendation          string       `json:"recommendation"`
	Degraded                bool         `json:"degraded,omitempty"`
}

// PriorArtRequest scans stored patents against an invention description.
type PriorArtRequest struct {
	InventionDescription string `json:"inventionDescription"`
	Limit                int    `json:"limit,omitempty"`
	IncludeAnalysis      bool   `json:"includeAnalysis,omitempty"`
}

// BlockingPatent is one prior-art candidate with its overlapping claims.
type BlockingPatent struct {
	Patent         Patent       `json:"patent"`
	BlockingClaims []ClaimMatch `json:"blockingClaims"`
	OverallRisk    string       `json:"overallRisk"`
}

// PriorArtAnalysis is the optional free-text assessment of a scan.
type PriorArtAnalysis struct {
	Summary                 string   `json:"summary"`
	FreedomToOperate        string   `json:"freedomToOperate"`
	KeyRisks                []string `json:"keyRisks,omitempty"`
	DesignAroundSuggestions []string `json:"designAroundSuggestions,omitempty"`
	Recommendation          string   `json:"recommendation,omitempty"`
}

// PriorArtReport summarizes a freedom-to-operate scan.
type PriorArtReport struct {
	PatentsSearched  int               `json:"patentsSearched"`
	BlockingPatents  []BlockingPatent  `json:"blockingPatents"`
	OverallRisk      string            `json:"overallRisk"`
	FreedomToOperate string            `json:"freedomToOperate"`
	Analysis         *PriorArtAnalysis `json:"analysis,omitempty"`
	Degraded         bool              `json:"degraded,omitempty"`
}

// Search runs a hybrid semantic plus fuzzy patent search.
func (ac *AnalysisClient) Search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	var out SearchResponse
	if err := ac.client.post(ctx, "/api/v1/patents/search", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Compare produces the patent-level risk report for a source/target pair.
func (ac *AnalysisClient) Compare(ctx context.Context, req CompareRequest) (*ComparisonReport, error) {
	var out ComparisonReport
	if err := ac.client.post(ctx, "/api/v1/patents/compare", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CompareClaims produces the claim-level report, optionally with per-match
// overlap explanations.
func (ac *AnalysisClient) CompareClaims(ctx context.Context, req CompareClaimsRequest) (*ComparisonReport, error) {
	var out ComparisonReport
	if err := ac.client.post(ctx, "/api/v1/claims/compare", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PriorArt scans the corpus for patents blocking an invention description.
func (ac *AnalysisClient) PriorArt(ctx context.Context, req PriorArtRequest) (*PriorArtReport, error) {
	var out PriorArtReport
	if err := ac.client.post(ctx, "/api/v1/priorart/search", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
