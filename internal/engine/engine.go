// Package engine is the hybrid retrieval and claim-risk core. It combines
// vector and lexical similarity for search, matches claim sets pairwise for
// comparisons, and grades the results into risk and freedom-to-operate
// verdicts. External collaborators (embedding, vector index, explanation,
// cache) are injected ports; the engine degrades gracefully when the
// optional ones are absent or failing.
package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/claimscope/claimscope/internal/config"
	"github.com/claimscope/claimscope/internal/domain/patent"
	"github.com/claimscope/claimscope/internal/engine/claimparse"
	"github.com/claimscope/claimscope/internal/engine/matcher"
	"github.com/claimscope/claimscope/internal/engine/risk"
	"github.com/claimscope/claimscope/internal/engine/similarity"
	"github.com/claimscope/claimscope/internal/infrastructure/monitoring/logging"
	"github.com/claimscope/claimscope/pkg/errors"
)

// fuzzyScanLimit bounds the candidate pool when the semantic layer is down
// and search falls back to scanning stored patents lexically.
const fuzzyScanLimit = 200

// explainMatchLimit caps the number of matches enriched with free-text
// overlap assessments per comparison; explanation calls are the most
// expensive leg of a comparison.
const explainMatchLimit = 5

// claimHitMultiplier widens the claim-level ANN lookup so that prior-art
// grouping by patent still fills the requested limit.
const claimHitMultiplier = 5

// Engine is the request-scoped orchestrator. It is safe for concurrent use;
// all state is read-only after construction.
type Engine struct {
	cfg     config.EngineConfig
	repo    patent.Repository
	embed   EmbeddingService
	index   VectorIndex
	explain ExplanationService
	cache   ResultCache
	logger  logging.Logger
	metrics Metrics
}

// Option customizes an Engine at construction.
type Option func(*Engine)

// WithExplanation attaches the optional explanation collaborator.
func WithExplanation(s ExplanationService) Option {
	return func(e *Engine) { e.explain = s }
}

// WithCache attaches the optional result cache.
func WithCache(c ResultCache) Option {
	return func(e *Engine) { e.cache = c }
}

// WithLogger overrides the default logger.
func WithLogger(l logging.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithMetrics attaches a metrics sink.
func WithMetrics(m Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// New builds an Engine around the mandatory collaborators. The explanation
// service and cache are optional and attached via options.
func New(cfg config.EngineConfig, repo patent.Repository, embed EmbeddingService, index VectorIndex, opts ...Option) *Engine {
	e := &Engine{
		cfg:     cfg,
		repo:    repo,
		embed:   embed,
		index:   index,
		logger:  logging.Default().Named("engine"),
		metrics: NopMetrics(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Search ranks stored patents against a free-text query by hybrid
// vector/fuzzy similarity. When the embedding service or vector index is
// unavailable the ranking degrades to fuzzy-only scoring instead of
// failing; the response is flagged accordingly.
func (e *Engine) Search(ctx context.Context, query string, limit int, vectorWeight float64) (*SearchResponse, error) {
	start := time.Now()

	if strings.TrimSpace(query) == "" {
		return nil, errors.InvalidInput("search query must not be empty")
	}
	if limit < 1 {
		return nil, errors.InvalidInput(fmt.Sprintf("search limit must be >= 1, got %d", limit))
	}
	weight := clamp01(vectorWeight)

	key := searchCacheKey(query, limit, weight)
	var cached SearchResponse
	if e.cacheGet(ctx, key, &cached) {
		e.metrics.SearchObserved(searchMode(cached.Degraded), len(cached.Results), time.Since(start), nil)
		return &cached, nil
	}

	resp, err := e.searchFresh(ctx, query, limit, weight)
	e.metrics.SearchObserved(searchModeOf(resp), resultCount(resp), time.Since(start), err)
	if err != nil {
		return nil, err
	}

	// Degraded results are transient; caching them would keep serving
	// fuzzy-only scores after the embedding path recovers.
	if !resp.Degraded {
		e.cacheSet(ctx, key, resp)
	}
	return resp, nil
}

func (e *Engine) searchFresh(ctx context.Context, query string, limit int, weight float64) (*SearchResponse, error) {
	resp := &SearchResponse{Query: query}

	vector, err := e.embedWithRetry(ctx, query)
	var hits []PatentHit
	if err == nil {
		err = e.withRetry(ctx, "vector search", func(ctx context.Context) error {
			var serr error
			hits, serr = e.index.SearchPatents(ctx, vector, max(limit, e.cfg.TopK))
			return serr
		})
	}
	if err != nil {
		if ctx.Err() != nil {
			return nil, errors.Wrap(ctx.Err(), errors.CodeTimeout, "search cancelled")
		}
		e.logger.Warn("semantic search unavailable, falling back to fuzzy scoring", logging.Err(err))
		e.metrics.Degraded("search")
		resp.Degraded = true
		resp.Results, err = e.fuzzyOnlySearch(ctx, query, limit)
		if err != nil {
			return nil, err
		}
		return resp, nil
	}

	ids := make([]uuid.UUID, len(hits))
	scores := make(map[uuid.UUID]float64, len(hits))
	for i, h := range hits {
		ids[i] = h.PatentID
		scores[h.PatentID] = h.Score
	}
	patents, err := e.repo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "loading search candidates")
	}

	results := make([]SearchResult, 0, len(patents))
	for _, p := range patents {
		vec := scores[p.ID]
		fuzzy := similarity.Fuzzy(query, p.SearchText())
		results = append(results, SearchResult{
			Patent:        *p,
			VectorScore:   vec,
			FuzzyScore:    fuzzy,
			CombinedScore: similarity.Combined(vec, fuzzy, weight),
		})
	}
	resp.Results = rankAndTruncate(results, limit)
	return resp, nil
}

// fuzzyOnlySearch scans a bounded slice of the corpus lexically. Vector
// scores are zero and the combined score is the fuzzy score alone, so the
// ranking stays meaningful without the semantic layer.
func (e *Engine) fuzzyOnlySearch(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	patents, err := e.repo.List(ctx, patent.ListFilter{Limit: fuzzyScanLimit})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "loading fuzzy search candidates")
	}
	results := make([]SearchResult, 0, len(patents))
	for _, p := range patents {
		fuzzy := similarity.Fuzzy(query, p.SearchText())
		if fuzzy <= 0 {
			continue
		}
		results = append(results, SearchResult{
			Patent:        *p,
			FuzzyScore:    fuzzy,
			CombinedScore: fuzzy,
		})
	}
	return rankAndTruncate(results, limit), nil
}

// rankAndTruncate orders by descending combined score with deterministic
// tie-breaking, then applies the limit.
func rankAndTruncate(results []SearchResult, limit int) []SearchResult {
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.CombinedScore != b.CombinedScore {
			return a.CombinedScore > b.CombinedScore
		}
		if a.VectorScore != b.VectorScore {
			return a.VectorScore > b.VectorScore
		}
		return a.Patent.ID.String() < b.Patent.ID.String()
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results
}

// Compare produces a patent-level comparison from whole-document
// similarity: the two patents' search texts are scored as if each were a
// single independent claim. Claim granularity is CompareClaims' job.
func (e *Engine) Compare(ctx context.Context, sourceID, targetID uuid.UUID) (*ComparisonReport, error) {
	start := time.Now()

	key := compareCacheKey(sourceID, targetID)
	var cached ComparisonReport
	if e.cacheGet(ctx, key, &cached) {
		e.metrics.CompareObserved("patent", time.Since(start), nil)
		return &cached, nil
	}

	report, err := e.compareFresh(ctx, sourceID, targetID)
	e.metrics.CompareObserved("patent", time.Since(start), err)
	if err != nil {
		return nil, err
	}
	if !report.Degraded {
		e.cacheSet(ctx, key, report)
	}
	return report, nil
}

func (e *Engine) compareFresh(ctx context.Context, sourceID, targetID uuid.UUID) (*ComparisonReport, error) {
	source, target, err := e.loadPair(ctx, sourceID, targetID)
	if err != nil {
		return nil, err
	}

	sourceText := source.SearchText()
	targetText := target.SearchText()
	fuzzy := similarity.Fuzzy(sourceText, targetText)

	degraded := false
	var vec float64
	embeddings, err := e.embedBatchWithRetry(ctx, []string{sourceText, targetText})
	if err != nil {
		if ctx.Err() != nil {
			return nil, errors.Wrap(ctx.Err(), errors.CodeTimeout, "comparison cancelled")
		}
		e.logger.Warn("embedding unavailable, comparing lexically only", logging.Err(err))
		e.metrics.Degraded("compare")
		degraded = true
	} else if vec, err = similarity.Cosine(embeddings[0], embeddings[1]); err != nil {
		return nil, err
	}

	combined := fuzzy
	if !degraded {
		combined = similarity.Combined(vec, fuzzy, e.cfg.VectorWeight)
	}

	docMatch := matcher.Match{
		Source:      patent.Claim{PatentID: sourceID, Number: 1, Text: sourceText, IsIndependent: true},
		Target:      patent.Claim{PatentID: targetID, Number: 1, Text: targetText, IsIndependent: true},
		VectorScore: vec,
		FuzzyScore:  fuzzy,
		Similarity:  combined,
	}
	assessment := risk.Aggregate([]matcher.Match{docMatch}, e.riskThresholds())

	report := &ComparisonReport{
		SourcePatentID:          sourceID,
		TargetPatentID:          targetID,
		TopMatches:              []ClaimMatch{},
		OverallRisk:             assessment.OverallRisk,
		IndependentClaimsAtRisk: assessment.IndependentClaimsAtRisk,
		HighestSimilarity:       assessment.HighestSimilarity,
		FreedomToOperate:        assessment.FreedomToOperate,
		Degraded:                degraded,
	}
	report.Summary = comparisonSummary(source, target, assessment, 0)
	report.Recommendation = recommendationFor(assessment.OverallRisk)
	return report, nil
}

// CompareClaims produces the claim-level comparison: both claim sets are
// matched one-to-one on hybrid similarity, each match is risk-graded, and
// the set is aggregated into an overall verdict. With includeExplanation
// the top matches are enriched with free-text overlap assessments; any
// explanation failure leaves the numeric result intact.
func (e *Engine) CompareClaims(ctx context.Context, sourceID, targetID uuid.UUID, includeExplanation bool) (*ComparisonReport, error) {
	start := time.Now()

	key := compareClaimsCacheKey(sourceID, targetID, includeExplanation)
	var cached ComparisonReport
	if e.cacheGet(ctx, key, &cached) {
		e.metrics.CompareObserved("claims", time.Since(start), nil)
		return &cached, nil
	}

	report, err := e.compareClaimsFresh(ctx, sourceID, targetID, includeExplanation)
	e.metrics.CompareObserved("claims", time.Since(start), err)
	if err != nil {
		return nil, err
	}
	if !report.Degraded {
		e.cacheSet(ctx, key, report)
	}
	return report, nil
}

func (e *Engine) compareClaimsFresh(ctx context.Context, sourceID, targetID uuid.UUID, includeExplanation bool) (*ComparisonReport, error) {
	source, target, err := e.loadPair(ctx, sourceID, targetID)
	if err != nil {
		return nil, err
	}

	sourceClaims := e.loadClaims(ctx, source)
	targetClaims := e.loadClaims(ctx, target)

	sourceVectors, targetVectors, degraded, err := e.embedClaims(ctx, sourceClaims, targetClaims)
	if err != nil {
		return nil, err
	}

	matches, err := matcher.Best(ctx, sourceVectors, targetVectors, matcher.Options{
		VectorWeight: e.cfg.VectorWeight,
		MatchFloor:   e.cfg.MatchFloor,
		TopK:         e.cfg.TopK,
		Concurrency:  e.cfg.MatcherConcurrency,
	})
	if err != nil {
		return nil, err
	}

	assessment := risk.Aggregate(matches, e.riskThresholds())

	top := make([]ClaimMatch, len(matches))
	for i, m := range matches {
		top[i] = ClaimMatch{
			SourceClaim: m.Source,
			TargetClaim: m.Target,
			VectorScore: m.VectorScore,
			FuzzyScore:  m.FuzzyScore,
			Similarity:  m.Similarity,
			RiskLevel:   risk.Classify(m.Similarity, e.riskThresholds()),
		}
	}
	if includeExplanation {
		e.explainMatches(ctx, top)
	}

	report := &ComparisonReport{
		SourcePatentID:          sourceID,
		TargetPatentID:          targetID,
		TopMatches:              top,
		OverallRisk:             assessment.OverallRisk,
		IndependentClaimsAtRisk: assessment.IndependentClaimsAtRisk,
		HighestSimilarity:       assessment.HighestSimilarity,
		FreedomToOperate:        assessment.FreedomToOperate,
		Degraded:                degraded,
	}
	report.Summary = comparisonSummary(source, target, assessment, len(matches))
	report.Recommendation = recommendationFor(assessment.OverallRisk)
	return report, nil
}

// embedClaims embeds both claim sets in one batch. An embedding failure
// degrades matching to fuzzy-only rather than failing the comparison.
func (e *Engine) embedClaims(ctx context.Context, sourceClaims, targetClaims patent.ClaimSet) ([]matcher.ClaimVector, []matcher.ClaimVector, bool, error) {
	texts := make([]string, 0, len(sourceClaims)+len(targetClaims))
	for _, c := range sourceClaims {
		texts = append(texts, c.Text)
	}
	for _, c := range targetClaims {
		texts = append(texts, c.Text)
	}

	embeddings, err := e.embedBatchWithRetry(ctx, texts)
	degraded := false
	if err != nil {
		if ctx.Err() != nil {
			return nil, nil, false, errors.Wrap(ctx.Err(), errors.CodeTimeout, "comparison cancelled")
		}
		e.logger.Warn("claim embedding unavailable, matching lexically only", logging.Err(err))
		e.metrics.Degraded("compare_claims")
		degraded = true
		embeddings = make([][]float32, len(texts))
	}

	sourceVectors := make([]matcher.ClaimVector, len(sourceClaims))
	for i, c := range sourceClaims {
		sourceVectors[i] = matcher.ClaimVector{Claim: c, Embedding: embeddings[i]}
	}
	targetVectors := make([]matcher.ClaimVector, len(targetClaims))
	for i, c := range targetClaims {
		targetVectors[i] = matcher.ClaimVector{Claim: c, Embedding: embeddings[len(sourceClaims)+i]}
	}
	return sourceVectors, targetVectors, degraded, nil
}

// explainMatches fills OverlapAssessment on the leading matches. The calls
// fan out concurrently; failures are logged and counted, never propagated.
func (e *Engine) explainMatches(ctx context.Context, matches []ClaimMatch) {
	if e.explain == nil {
		return
	}
	limit := len(matches)
	if limit > explainMatchLimit {
		limit = explainMatchLimit
	}

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < limit; i++ {
		m := &matches[i]
		g.Go(func() error {
			text, err := e.explain.ExplainComparison(ctx, ExplainRequest{
				SourceClaim: m.SourceClaim.Text,
				TargetClaim: m.TargetClaim.Text,
				Similarity:  m.Similarity,
				RiskLevel:   m.RiskLevel.String(),
				KeyElements: m.SourceClaim.KeyElements,
			})
			if err != nil {
				e.logger.Warn("overlap explanation failed",
					logging.Int("source_claim", m.SourceClaim.Number),
					logging.Int("target_claim", m.TargetClaim.Number),
					logging.Err(err))
				e.metrics.ExplanationFailed()
				return nil
			}
			m.OverlapAssessment = text
			return nil
		})
	}
	_ = g.Wait()
}

// PriorArtSearch scans the corpus for patents whose claims anticipate an
// invention description. The description must carry enough substance to
// embed meaningfully; short input is rejected outright rather than
// producing a low-quality verdict.
func (e *Engine) PriorArtSearch(ctx context.Context, description string, limit int, includeAnalysis bool) (*PriorArtReport, error) {
	start := time.Now()

	if utf8.RuneCountInString(description) < e.cfg.MinDescriptionLength {
		return nil, errors.InvalidInput(fmt.Sprintf(
			"invention description must be at least %d characters, got %d",
			e.cfg.MinDescriptionLength, utf8.RuneCountInString(description)))
	}
	if limit < 1 {
		return nil, errors.InvalidInput(fmt.Sprintf("prior-art limit must be >= 1, got %d", limit))
	}

	key := priorArtCacheKey(description, limit, includeAnalysis)
	var cached PriorArtReport
	if e.cacheGet(ctx, key, &cached) {
		e.metrics.PriorArtObserved(time.Since(start), nil)
		return &cached, nil
	}

	report, err := e.priorArtFresh(ctx, description, limit, includeAnalysis)
	e.metrics.PriorArtObserved(time.Since(start), err)
	if err != nil {
		return nil, err
	}
	if !report.Degraded {
		e.cacheSet(ctx, key, report)
	}
	return report, nil
}

func (e *Engine) priorArtFresh(ctx context.Context, description string, limit int, includeAnalysis bool) (*PriorArtReport, error) {
	report := &PriorArtReport{BlockingPatents: []BlockingPatent{}}

	vector, err := e.embedWithRetry(ctx, description)
	var hits []ClaimHit
	if err == nil {
		err = e.withRetry(ctx, "claim vector search", func(ctx context.Context) error {
			var serr error
			hits, serr = e.index.SearchClaims(ctx, vector, limit*claimHitMultiplier)
			return serr
		})
	}
	if err != nil {
		if ctx.Err() != nil {
			return nil, errors.Wrap(ctx.Err(), errors.CodeTimeout, "prior-art search cancelled")
		}
		e.logger.Warn("semantic prior-art search unavailable, scanning lexically", logging.Err(err))
		e.metrics.Degraded("prior_art")
		report.Degraded = true
		if err := e.priorArtFuzzyScan(ctx, description, limit, report); err != nil {
			return nil, err
		}
	} else if err := e.priorArtFromHits(ctx, description, limit, hits, report); err != nil {
		return nil, err
	}

	e.finishPriorArt(ctx, description, includeAnalysis, report)
	return report, nil
}

// priorArtFromHits groups claim-level ANN hits by patent and keeps the
// patents whose best claim clears the floor.
func (e *Engine) priorArtFromHits(ctx context.Context, description string, limit int, hits []ClaimHit, report *PriorArtReport) error {
	byPatent := make(map[uuid.UUID][]ClaimHit)
	order := make([]uuid.UUID, 0, len(hits))
	for _, h := range hits {
		if _, seen := byPatent[h.PatentID]; !seen {
			order = append(order, h.PatentID)
		}
		byPatent[h.PatentID] = append(byPatent[h.PatentID], h)
	}

	patents, err := e.repo.GetByIDs(ctx, order)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "loading prior-art candidates")
	}

	for _, p := range patents {
		claims := e.loadClaims(ctx, p)
		var blocking []ClaimMatch
		for _, h := range byPatent[p.ID] {
			c := claims.ByNumber(h.ClaimNumber)
			if c == nil {
				continue
			}
			if m, ok := e.blockingClaim(description, *c, h.Score); ok {
				blocking = append(blocking, m)
			}
		}
		e.addBlockingPatent(report, p, blocking)
	}
	e.sortAndTruncateBlocking(report, limit)
	return nil
}

// priorArtFuzzyScan is the degraded path: a bounded lexical scan of stored
// claims with zero vector scores.
func (e *Engine) priorArtFuzzyScan(ctx context.Context, description string, limit int, report *PriorArtReport) error {
	patents, err := e.repo.List(ctx, patent.ListFilter{Limit: fuzzyScanLimit})
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "loading prior-art candidates")
	}
	for _, p := range patents {
		if ctx.Err() != nil {
			return errors.Wrap(ctx.Err(), errors.CodeTimeout, "prior-art search cancelled")
		}
		var blocking []ClaimMatch
		for _, c := range e.loadClaims(ctx, p) {
			if m, ok := e.fuzzyBlockingClaim(description, c); ok {
				blocking = append(blocking, m)
			}
		}
		e.addBlockingPatent(report, p, blocking)
	}
	e.sortAndTruncateBlocking(report, limit)
	return nil
}

// blockingClaim scores one candidate claim against the description using
// the ANN vector score plus local fuzzy similarity.
func (e *Engine) blockingClaim(description string, c patent.Claim, vectorScore float64) (ClaimMatch, bool) {
	fuzzy := similarity.Fuzzy(description, c.Text)
	combined := similarity.Combined(vectorScore, fuzzy, e.cfg.VectorWeight)
	if combined < e.cfg.PriorArtPatentFloor {
		return ClaimMatch{}, false
	}
	return ClaimMatch{
		SourceClaim: pseudoClaim(description),
		TargetClaim: c,
		VectorScore: vectorScore,
		FuzzyScore:  fuzzy,
		Similarity:  combined,
		RiskLevel:   risk.Classify(combined, e.priorArtThresholds()),
	}, true
}

func (e *Engine) fuzzyBlockingClaim(description string, c patent.Claim) (ClaimMatch, bool) {
	fuzzy := similarity.Fuzzy(description, c.Text)
	if fuzzy < e.cfg.PriorArtPatentFloor {
		return ClaimMatch{}, false
	}
	return ClaimMatch{
		SourceClaim: pseudoClaim(description),
		TargetClaim: c,
		FuzzyScore:  fuzzy,
		Similarity:  fuzzy,
		RiskLevel:   risk.Classify(fuzzy, e.priorArtThresholds()),
	}, true
}

// pseudoClaim wraps an invention description as a claim-shaped value for
// match reporting. Number 0 marks it as synthetic.
func pseudoClaim(description string) patent.Claim {
	return patent.Claim{Text: description, IsIndependent: true}
}

func (e *Engine) addBlockingPatent(report *PriorArtReport, p *patent.Patent, blocking []ClaimMatch) {
	if len(blocking) == 0 {
		return
	}
	sort.SliceStable(blocking, func(i, j int) bool {
		if blocking[i].Similarity != blocking[j].Similarity {
			return blocking[i].Similarity > blocking[j].Similarity
		}
		return blocking[i].TargetClaim.Number < blocking[j].TargetClaim.Number
	})
	report.BlockingPatents = append(report.BlockingPatents, BlockingPatent{
		Patent:         *p,
		BlockingClaims: blocking,
		OverallRisk:    risk.Classify(blocking[0].Similarity, e.priorArtThresholds()),
	})
}

func (e *Engine) sortAndTruncateBlocking(report *PriorArtReport, limit int) {
	sort.SliceStable(report.BlockingPatents, func(i, j int) bool {
		a, b := report.BlockingPatents[i], report.BlockingPatents[j]
		if a.BlockingClaims[0].Similarity != b.BlockingClaims[0].Similarity {
			return a.BlockingClaims[0].Similarity > b.BlockingClaims[0].Similarity
		}
		return a.Patent.ID.String() < b.Patent.ID.String()
	})
	if len(report.BlockingPatents) > limit {
		report.BlockingPatents = report.BlockingPatents[:limit]
	}
}

// finishPriorArt derives the aggregate verdict and optionally attaches the
// narrative analysis.
func (e *Engine) finishPriorArt(ctx context.Context, description string, includeAnalysis bool, report *PriorArtReport) {
	if total, err := e.repo.Count(ctx); err == nil {
		report.PatentsSearched = int(total)
	} else {
		e.logger.Debug("patent count unavailable", logging.Err(err))
		report.PatentsSearched = len(report.BlockingPatents)
	}

	report.OverallRisk = risk.LevelLow
	for _, bp := range report.BlockingPatents {
		if bp.OverallRisk > report.OverallRisk {
			report.OverallRisk = bp.OverallRisk
		}
	}
	switch {
	case report.OverallRisk == risk.LevelHigh:
		report.FreedomToOperate = risk.FTOUnlikely
	case report.OverallRisk == risk.LevelMedium:
		report.FreedomToOperate = risk.FTOUncertain
	case len(report.BlockingPatents) == 0:
		report.FreedomToOperate = risk.FTOLikely
	default:
		report.FreedomToOperate = risk.FTOUncertain
	}

	if !includeAnalysis || e.explain == nil || len(report.BlockingPatents) == 0 {
		return
	}
	summaries := make([]string, len(report.BlockingPatents))
	for i, bp := range report.BlockingPatents {
		summaries[i] = fmt.Sprintf("%s (%s): best claim similarity %.2f, %d overlapping claims",
			bp.Patent.PatentNumber, bp.Patent.Title,
			bp.BlockingClaims[0].Similarity, len(bp.BlockingClaims))
	}
	analysis, err := e.explain.AnalyzePriorArt(ctx, PriorArtRequest{
		InventionDescription: description,
		BlockingSummaries:    summaries,
	})
	if err != nil {
		e.logger.Warn("prior-art analysis failed", logging.Err(err))
		e.metrics.ExplanationFailed()
		return
	}
	report.Analysis = analysis
}

func (e *Engine) loadPair(ctx context.Context, sourceID, targetID uuid.UUID) (*patent.Patent, *patent.Patent, error) {
	source, err := e.repo.GetByID(ctx, sourceID)
	if err != nil {
		return nil, nil, errors.Wrap(err, errors.CodeUnknown,
			fmt.Sprintf("loading source patent %s", sourceID))
	}
	target, err := e.repo.GetByID(ctx, targetID)
	if err != nil {
		return nil, nil, errors.Wrap(err, errors.CodeUnknown,
			fmt.Sprintf("loading target patent %s", targetID))
	}
	return source, target, nil
}

// loadClaims returns a patent's structured claims, extracting them from raw
// claims text when none are stored. A patent that yields no claims at all
// still participates as a single pseudo-claim over its search text, so a
// comparison never fails on missing structure.
func (e *Engine) loadClaims(ctx context.Context, p *patent.Patent) patent.ClaimSet {
	claims, err := e.repo.GetClaims(ctx, p.ID)
	if err == nil && len(claims) > 0 {
		return claims
	}
	if err != nil {
		e.logger.Debug("stored claims unavailable, extracting from text",
			logging.String("patent", p.PatentNumber), logging.Err(err))
	}
	claims = claimparse.Parse(p.ClaimsText)
	for i := range claims {
		claims[i].PatentID = p.ID
	}
	if len(claims) == 0 {
		claims = patent.ClaimSet{{
			PatentID:      p.ID,
			Number:        1,
			Text:          p.SearchText(),
			IsIndependent: true,
		}}
	}
	return claims
}

func (e *Engine) embedWithRetry(ctx context.Context, text string) ([]float32, error) {
	var vector []float32
	err := e.withRetry(ctx, "embedding", func(ctx context.Context) error {
		var eerr error
		vector, eerr = e.embed.Embed(ctx, text)
		return eerr
	})
	if err != nil {
		return nil, err
	}
	return vector, nil
}

func (e *Engine) embedBatchWithRetry(ctx context.Context, texts []string) ([][]float32, error) {
	var vectors [][]float32
	err := e.withRetry(ctx, "batch embedding", func(ctx context.Context) error {
		var eerr error
		vectors, eerr = e.embed.EmbedBatch(ctx, texts)
		return eerr
	})
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(texts) {
		return nil, errors.New(errors.ErrCodeEmbeddingUnavailable,
			fmt.Sprintf("embedding service returned %d vectors for %d texts", len(vectors), len(texts)))
	}
	return vectors, nil
}

// withRetry runs fn up to 1+Retries times with exponential backoff,
// honouring context cancellation between attempts.
func (e *Engine) withRetry(ctx context.Context, op string, fn func(context.Context) error) error {
	backoff := e.cfg.RetryBackoff
	var err error
	for attempt := 0; ; attempt++ {
		err = fn(ctx)
		if err == nil || attempt >= e.cfg.Retries || ctx.Err() != nil {
			return err
		}
		e.logger.Debug("retrying "+op,
			logging.Int("attempt", attempt+1), logging.Err(err))
		select {
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), errors.CodeTimeout, op+" cancelled")
		case <-time.After(backoff):
		}
		backoff *= 2
	}
}

// cacheGet attempts to load and decode a cached response. Any cache error
// is treated as a miss.
func (e *Engine) cacheGet(ctx context.Context, key string, out any) bool {
	if e.cache == nil {
		return false
	}
	data, ok, err := e.cache.Get(ctx, key)
	if err != nil {
		e.logger.Debug("cache get failed", logging.String("key", key), logging.Err(err))
		e.metrics.CacheAccess("get", false)
		return false
	}
	e.metrics.CacheAccess("get", ok)
	if !ok {
		return false
	}
	if err := json.Unmarshal(data, out); err != nil {
		e.logger.Warn("discarding undecodable cache entry", logging.String("key", key), logging.Err(err))
		return false
	}
	return true
}

func (e *Engine) cacheSet(ctx context.Context, key string, value any) {
	if e.cache == nil {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		e.logger.Warn("cache encode failed", logging.String("key", key), logging.Err(err))
		return
	}
	if err := e.cache.Set(ctx, key, data, e.cfg.CacheTTL); err != nil {
		e.logger.Debug("cache set failed", logging.String("key", key), logging.Err(err))
	}
}

func (e *Engine) riskThresholds() risk.Thresholds {
	return risk.Thresholds{High: e.cfg.HighRiskThreshold, Medium: e.cfg.MediumRiskThreshold}
}

func (e *Engine) priorArtThresholds() risk.Thresholds {
	return risk.Thresholds{High: e.cfg.PriorArtHighThreshold, Medium: e.cfg.PriorArtMediumThreshold}
}

func comparisonSummary(source, target *patent.Patent, a risk.Assessment, matchCount int) string {
	return fmt.Sprintf(
		"Comparison of %s against %s: overall risk %s, highest similarity %.2f, %d matched claim pairs, %d independent claims at risk.",
		source.PatentNumber, target.PatentNumber,
		a.OverallRisk, a.HighestSimilarity, matchCount, a.IndependentClaimsAtRisk)
}

func recommendationFor(level risk.Level) string {
	switch level {
	case risk.LevelHigh:
		return "Substantial claim overlap detected. Obtain a formal freedom-to-operate opinion before proceeding; consider design-around or licensing options."
	case risk.LevelMedium:
		return "Partial claim overlap detected. Review the matched claims with counsel and monitor the patent's prosecution and maintenance status."
	default:
		return "No significant claim overlap detected. Routine monitoring of new filings in this area is sufficient."
	}
}

func searchMode(degraded bool) string {
	if degraded {
		return "fuzzy_only"
	}
	return "hybrid"
}

func searchModeOf(resp *SearchResponse) string {
	if resp == nil {
		return "hybrid"
	}
	return searchMode(resp.Degraded)
}

func resultCount(resp *SearchResponse) int {
	if resp == nil {
		return 0
	}
	return len(resp.Results)
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
