package engine_test

import (
	"context"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/claimscope/claimscope/internal/config"
	"github.com/claimscope/claimscope/internal/domain/patent"
	"github.com/claimscope/claimscope/internal/engine"
	"github.com/claimscope/claimscope/internal/engine/risk"
	"github.com/claimscope/claimscope/pkg/errors"
)

// ---------------------------------------------------------------------------
// fakes
// ---------------------------------------------------------------------------

type fakeRepo struct {
	mu      sync.Mutex
	patents map[uuid.UUID]*patent.Patent
	claims  map[uuid.UUID]patent.ClaimSet

	listErr error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		patents: make(map[uuid.UUID]*patent.Patent),
		claims:  make(map[uuid.UUID]patent.ClaimSet),
	}
}

func (r *fakeRepo) add(p *patent.Patent, claims patent.ClaimSet) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.patents[p.ID] = p
	if claims != nil {
		r.claims[p.ID] = claims
	}
}

func (r *fakeRepo) Create(_ context.Context, p *patent.Patent) error {
	r.add(p, p.Claims)
	return nil
}

func (r *fakeRepo) GetByID(_ context.Context, id uuid.UUID) (*patent.Patent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.patents[id]
	if !ok {
		return nil, errors.New(errors.ErrCodePatentNotFound, "patent not found")
	}
	return p, nil
}

func (r *fakeRepo) GetByIDs(_ context.Context, ids []uuid.UUID) ([]*patent.Patent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*patent.Patent, 0, len(ids))
	for _, id := range ids {
		if p, ok := r.patents[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *fakeRepo) GetByNumber(_ context.Context, number string) (*patent.Patent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.patents {
		if p.PatentNumber == number {
			return p, nil
		}
	}
	return nil, errors.New(errors.ErrCodePatentNotFound, "patent not found")
}

func (r *fakeRepo) List(_ context.Context, filter patent.ListFilter) ([]*patent.Patent, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*patent.Patent, 0, len(r.patents))
	for _, p := range r.patents {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r *fakeRepo) SaveClaims(_ context.Context, patentID uuid.UUID, claims patent.ClaimSet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.claims[patentID] = claims
	return nil
}

func (r *fakeRepo) GetClaims(_ context.Context, patentID uuid.UUID) (patent.ClaimSet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.claims[patentID], nil
}

func (r *fakeRepo) Count(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.patents)), nil
}

// fakeEmbedder embeds text as a bag-of-words count vector over a fixed
// vocabulary, so semantically overlapping texts genuinely score high.
type fakeEmbedder struct {
	mu       sync.Mutex
	calls    int
	failnext int
	err      error
}

var vocab = []string{
	"video", "compressing", "motion", "vectors", "streams", "predicted",
	"audio", "decoding", "apparatus", "sensor", "processor", "display",
	"method", "system", "battery", "antenna",
}

func embedText(text string) []float32 {
	v := make([]float32, len(vocab))
	words := strings.Fields(strings.ToLower(text))
	for i, term := range vocab {
		for _, w := range words {
			if strings.Trim(w, ".,;:") == term {
				v[i]++
			}
		}
	}
	return v
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.failnextTake() {
		return nil, errors.Unavailable("embedding service down")
	}
	return embedText(text), nil
}

func (f *fakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.failnextTake() {
		return nil, errors.Unavailable("embedding service down")
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = embedText(t)
	}
	return out, nil
}

// failnextTake consumes one scheduled failure; callers must hold mu.
func (f *fakeEmbedder) failnextTake() bool {
	if f.failnext > 0 {
		f.failnext--
		return true
	}
	return false
}

func (f *fakeEmbedder) Dimension() int { return len(vocab) }

// fakeIndex brute-forces cosine similarity over registered vectors.
type fakeIndex struct {
	patentVecs map[uuid.UUID][]float32
	claimVecs  []indexedClaim

	patentErr error
	claimErr  error
}

type indexedClaim struct {
	patentID uuid.UUID
	number   int
	vec      []float32
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{patentVecs: make(map[uuid.UUID][]float32)}
}

func (f *fakeIndex) indexPatent(p *patent.Patent) {
	f.patentVecs[p.ID] = embedText(p.SearchText())
}

func (f *fakeIndex) indexClaim(patentID uuid.UUID, c patent.Claim) {
	f.claimVecs = append(f.claimVecs, indexedClaim{patentID: patentID, number: c.Number, vec: embedText(c.Text)})
}

func normalizedCosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	cos := dot / (sqrt(na) * sqrt(nb))
	return (cos + 1) / 2
}

func sqrt(v float64) float64 {
	if v <= 0 {
		return 0
	}
	x := v
	for i := 0; i < 64; i++ {
		x = (x + v/x) / 2
	}
	return x
}

func (f *fakeIndex) SearchPatents(_ context.Context, vector []float32, topK int) ([]engine.PatentHit, error) {
	if f.patentErr != nil {
		return nil, f.patentErr
	}
	hits := make([]engine.PatentHit, 0, len(f.patentVecs))
	for id, v := range f.patentVecs {
		hits = append(hits, engine.PatentHit{PatentID: id, Score: normalizedCosine(vector, v)})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].PatentID.String() < hits[j].PatentID.String()
	})
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

func (f *fakeIndex) SearchClaims(_ context.Context, vector []float32, topK int) ([]engine.ClaimHit, error) {
	if f.claimErr != nil {
		return nil, f.claimErr
	}
	hits := make([]engine.ClaimHit, 0, len(f.claimVecs))
	for _, ic := range f.claimVecs {
		hits = append(hits, engine.ClaimHit{PatentID: ic.patentID, ClaimNumber: ic.number, Score: normalizedCosine(vector, ic.vec)})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ClaimNumber < hits[j].ClaimNumber
	})
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

type fakeExplainer struct {
	explainFn  func(context.Context, engine.ExplainRequest) (string, error)
	analyzeFn  func(context.Context, engine.PriorArtRequest) (*engine.Analysis, error)
	explainGot int
}

func (f *fakeExplainer) ExplainComparison(ctx context.Context, req engine.ExplainRequest) (string, error) {
	f.explainGot++
	if f.explainFn == nil {
		return "claims overlap on shared elements", nil
	}
	return f.explainFn(ctx, req)
}

func (f *fakeExplainer) AnalyzePriorArt(ctx context.Context, req engine.PriorArtRequest) (*engine.Analysis, error) {
	if f.analyzeFn == nil {
		return &engine.Analysis{Summary: "prior art found"}, nil
	}
	return f.analyzeFn(ctx, req)
}

type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
	sets int
	gets int
}

func newMemCache() *memCache {
	return &memCache{data: make(map[string][]byte)}
}

func (c *memCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	v, ok := c.data[key]
	return v, ok, nil
}

func (c *memCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets++
	c.data[key] = value
	return nil
}

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

func testConfig() config.EngineConfig {
	return config.EngineConfig{
		VectorWeight:            0.7,
		MatchFloor:              0.3,
		TopK:                    20,
		HighRiskThreshold:       0.8,
		MediumRiskThreshold:     0.6,
		PriorArtHighThreshold:   0.75,
		PriorArtMediumThreshold: 0.55,
		PriorArtPatentFloor:     0.4,
		MinDescriptionLength:    50,
		MatcherConcurrency:      2,
		Retries:                 2,
		RetryBackoff:            time.Millisecond,
		CacheTTL:                time.Minute,
	}
}

func newPatent(t *testing.T, number, title, abstract string) *patent.Patent {
	t.Helper()
	p, err := patent.NewPatent(number, title, abstract)
	require.NoError(t, err)
	return p
}

func claimsFor(p *patent.Patent, texts ...string) patent.ClaimSet {
	claims := make(patent.ClaimSet, len(texts))
	for i, text := range texts {
		claims[i] = patent.Claim{
			PatentID:      p.ID,
			Number:        i + 1,
			Text:          text,
			IsIndependent: true,
		}
	}
	return claims
}

// ---------------------------------------------------------------------------
// Search
// ---------------------------------------------------------------------------

func TestSearch_RanksByHybridScore(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	index := newFakeIndex()

	video := newPatent(t, "US1000001A", "Video compression", "A system for compressing video using motion vectors")
	audio := newPatent(t, "US1000002A", "Audio decoding", "A method for decoding audio streams")
	repo.add(video, nil)
	repo.add(audio, nil)
	index.indexPatent(video)
	index.indexPatent(audio)

	e := engine.New(testConfig(), repo, &fakeEmbedder{}, index)

	resp, err := e.Search(context.Background(), "compressing video with motion vectors", 10, 0.7)
	require.NoError(t, err)
	require.Len(t, resp.Results, 2)

	assert.False(t, resp.Degraded)
	assert.Equal(t, video.ID, resp.Results[0].Patent.ID)
	assert.Greater(t, resp.Results[0].CombinedScore, resp.Results[1].CombinedScore)
	assert.Greater(t, resp.Results[0].VectorScore, 0.5)
}

func TestSearch_RejectsBadInput(t *testing.T) {
	t.Parallel()

	e := engine.New(testConfig(), newFakeRepo(), &fakeEmbedder{}, newFakeIndex())

	_, err := e.Search(context.Background(), "   ", 10, 0.7)
	require.Error(t, err)
	assert.True(t, errors.IsInvalidInput(err))

	_, err = e.Search(context.Background(), "valid query", 0, 0.7)
	require.Error(t, err)
	assert.True(t, errors.IsInvalidInput(err))
}

func TestSearch_DegradesToFuzzyWhenEmbeddingDown(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	video := newPatent(t, "US1000001A", "Video compression", "A system for compressing video using motion vectors")
	other := newPatent(t, "US1000002A", "Shoe lace", "An improved lace for athletic footwear")
	repo.add(video, nil)
	repo.add(other, nil)

	embed := &fakeEmbedder{err: errors.Unavailable("embedding service down")}
	e := engine.New(testConfig(), repo, embed, newFakeIndex())

	resp, err := e.Search(context.Background(), "compressing video using motion vectors", 10, 0.7)
	require.NoError(t, err)

	assert.True(t, resp.Degraded)
	require.NotEmpty(t, resp.Results)
	assert.Equal(t, video.ID, resp.Results[0].Patent.ID)
	for _, r := range resp.Results {
		assert.Zero(t, r.VectorScore)
		assert.InDelta(t, r.FuzzyScore, r.CombinedScore, 1e-12)
	}
}

func TestSearch_RetriesTransientEmbeddingFailure(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	index := newFakeIndex()
	video := newPatent(t, "US1000001A", "Video compression", "A system for compressing video using motion vectors")
	repo.add(video, nil)
	index.indexPatent(video)

	embed := &fakeEmbedder{failnext: 1}
	e := engine.New(testConfig(), repo, embed, index)

	resp, err := e.Search(context.Background(), "compressing video", 5, 0.7)
	require.NoError(t, err)
	assert.False(t, resp.Degraded, "one transient failure must be retried, not degraded")
	assert.GreaterOrEqual(t, embed.calls, 2)
}

func TestSearch_CacheIdempotence(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	index := newFakeIndex()
	video := newPatent(t, "US1000001A", "Video compression", "A system for compressing video using motion vectors")
	repo.add(video, nil)
	index.indexPatent(video)

	cache := newMemCache()
	embed := &fakeEmbedder{}
	e := engine.New(testConfig(), repo, embed, index, engine.WithCache(cache))

	first, err := e.Search(context.Background(), "compressing video", 5, 0.7)
	require.NoError(t, err)
	second, err := e.Search(context.Background(), "compressing video", 5, 0.7)
	require.NoError(t, err)

	assert.Equal(t, first.Results, second.Results)
	assert.Equal(t, 1, embed.calls, "second call must be served from cache")
	assert.Equal(t, 1, cache.sets)
}

func TestSearch_DegradedResultNotCached(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	index := newFakeIndex()
	video := newPatent(t, "US1000001A", "Video compression", "A system for compressing video using motion vectors")
	repo.add(video, nil)
	index.indexPatent(video)

	cache := newMemCache()
	embed := &fakeEmbedder{failnext: 3}
	e := engine.New(testConfig(), repo, embed, index, engine.WithCache(cache))

	first, err := e.Search(context.Background(), "compressing video", 5, 0.7)
	require.NoError(t, err)
	require.True(t, first.Degraded)
	assert.Zero(t, cache.sets, "degraded result must not be cached")

	// Embedding service recovered; the same request must compute fresh
	// hybrid scores instead of replaying the fuzzy-only result.
	second, err := e.Search(context.Background(), "compressing video", 5, 0.7)
	require.NoError(t, err)
	assert.False(t, second.Degraded)
	require.NotEmpty(t, second.Results)
	assert.Positive(t, second.Results[0].VectorScore)
	assert.Equal(t, 1, cache.sets, "healthy result is cached")
}

// ---------------------------------------------------------------------------
// Compare
// ---------------------------------------------------------------------------

func TestCompare_VideoCompressionScenario(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	source := newPatent(t, "US2000001A", "Video compression system",
		"A system for compressing video using motion vectors")
	target := newPatent(t, "US2000002A", "Video compression method",
		"A method for compressing video streams using predicted motion vectors")
	repo.add(source, nil)
	repo.add(target, nil)

	e := engine.New(testConfig(), repo, &fakeEmbedder{}, newFakeIndex())

	report, err := e.Compare(context.Background(), source.ID, target.ID)
	require.NoError(t, err)

	assert.Greater(t, report.HighestSimilarity, 0.5)
	assert.GreaterOrEqual(t, report.OverallRisk, risk.LevelMedium)
	assert.Empty(t, report.TopMatches, "patent-level comparison carries no claim matches")
	assert.NotEmpty(t, report.Summary)
	assert.NotEmpty(t, report.Recommendation)
}

func TestCompare_UnknownPatent(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	source := newPatent(t, "US2000001A", "Video compression system",
		"A system for compressing video using motion vectors")
	repo.add(source, nil)

	e := engine.New(testConfig(), repo, &fakeEmbedder{}, newFakeIndex())

	_, err := e.Compare(context.Background(), source.ID, uuid.New())
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestCompare_DegradesWithoutEmbeddings(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	source := newPatent(t, "US2000001A", "Video compression system",
		"A system for compressing video using motion vectors")
	target := newPatent(t, "US2000002A", "Video compression method",
		"A method for compressing video streams using predicted motion vectors")
	repo.add(source, nil)
	repo.add(target, nil)

	embed := &fakeEmbedder{err: errors.Unavailable("embedding service down")}
	e := engine.New(testConfig(), repo, embed, newFakeIndex())

	report, err := e.Compare(context.Background(), source.ID, target.ID)
	require.NoError(t, err)
	assert.True(t, report.Degraded)
	assert.Greater(t, report.HighestSimilarity, 0.0)
}

// ---------------------------------------------------------------------------
// CompareClaims
// ---------------------------------------------------------------------------

func TestCompareClaims_IdenticalClaimSets(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	source := newPatent(t, "US3000001A", "Sensor apparatus", "An apparatus with a sensor and processor")
	target := newPatent(t, "US3000002A", "Sensor apparatus clone", "An apparatus with a sensor and processor")

	texts := []string{
		"An apparatus comprising a sensor and a processor",
		"A method for sampling the sensor at fixed intervals",
	}
	repo.add(source, claimsFor(source, texts...))
	repo.add(target, claimsFor(target, texts...))

	e := engine.New(testConfig(), repo, &fakeEmbedder{}, newFakeIndex())

	report, err := e.CompareClaims(context.Background(), source.ID, target.ID, false)
	require.NoError(t, err)

	require.Len(t, report.TopMatches, 2)
	for _, m := range report.TopMatches {
		assert.InDelta(t, 1.0, m.Similarity, 1e-9)
		assert.Equal(t, risk.LevelHigh, m.RiskLevel)
		assert.Equal(t, m.SourceClaim.Number, m.TargetClaim.Number)
		assert.Empty(t, m.OverlapAssessment)
	}
	assert.Equal(t, risk.LevelHigh, report.OverallRisk)
	assert.Equal(t, risk.FTOUnlikely, report.FreedomToOperate)
	assert.Equal(t, 2, report.IndependentClaimsAtRisk)
	assert.InDelta(t, 1.0, report.HighestSimilarity, 1e-9)
}

func TestCompareClaims_ExtractsClaimsFromRawText(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	source := newPatent(t, "US3000001A", "Sensor apparatus", "An apparatus with a sensor")
	target := newPatent(t, "US3000002A", "Sensor apparatus variant", "An apparatus with a sensor")
	source.ClaimsText = "1. An apparatus comprising a sensor and a processor unit.\n" +
		"2. The apparatus of claim 1, further comprising a display."
	target.ClaimsText = source.ClaimsText
	repo.add(source, nil)
	repo.add(target, nil)

	e := engine.New(testConfig(), repo, &fakeEmbedder{}, newFakeIndex())

	report, err := e.CompareClaims(context.Background(), source.ID, target.ID, false)
	require.NoError(t, err)

	require.Len(t, report.TopMatches, 2)
	numbers := []int{report.TopMatches[0].SourceClaim.Number, report.TopMatches[1].SourceClaim.Number}
	sort.Ints(numbers)
	assert.Equal(t, []int{1, 2}, numbers)
	assert.False(t, report.TopMatches[0].SourceClaim.PatentID == uuid.Nil)
}

func TestCompareClaims_ExplanationEnrichment(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	source := newPatent(t, "US3000001A", "Sensor apparatus", "An apparatus with a sensor")
	target := newPatent(t, "US3000002A", "Sensor apparatus clone", "An apparatus with a sensor")
	texts := []string{"An apparatus comprising a sensor and a processor"}
	repo.add(source, claimsFor(source, texts...))
	repo.add(target, claimsFor(target, texts...))

	explain := &fakeExplainer{}
	e := engine.New(testConfig(), repo, &fakeEmbedder{}, newFakeIndex(), engine.WithExplanation(explain))

	report, err := e.CompareClaims(context.Background(), source.ID, target.ID, true)
	require.NoError(t, err)
	require.Len(t, report.TopMatches, 1)
	assert.Equal(t, "claims overlap on shared elements", report.TopMatches[0].OverlapAssessment)
}

func TestCompareClaims_ExplanationFailureLeavesNumbersIntact(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	source := newPatent(t, "US3000001A", "Sensor apparatus", "An apparatus with a sensor")
	target := newPatent(t, "US3000002A", "Sensor apparatus clone", "An apparatus with a sensor")
	texts := []string{"An apparatus comprising a sensor and a processor"}
	repo.add(source, claimsFor(source, texts...))
	repo.add(target, claimsFor(target, texts...))

	explain := &fakeExplainer{
		explainFn: func(context.Context, engine.ExplainRequest) (string, error) {
			return "", errors.Unavailable("llm down")
		},
	}
	e := engine.New(testConfig(), repo, &fakeEmbedder{}, newFakeIndex(), engine.WithExplanation(explain))

	report, err := e.CompareClaims(context.Background(), source.ID, target.ID, true)
	require.NoError(t, err, "explanation failure must not fail the comparison")
	require.Len(t, report.TopMatches, 1)
	assert.Empty(t, report.TopMatches[0].OverlapAssessment)
	assert.Equal(t, risk.LevelHigh, report.TopMatches[0].RiskLevel)
}

func TestCompareClaims_DegradedMatchingIsFuzzyOnly(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	source := newPatent(t, "US3000001A", "Sensor apparatus", "An apparatus with a sensor")
	target := newPatent(t, "US3000002A", "Sensor apparatus clone", "An apparatus with a sensor")
	texts := []string{"An apparatus comprising a sensor and a processor"}
	repo.add(source, claimsFor(source, texts...))
	repo.add(target, claimsFor(target, texts...))

	embed := &fakeEmbedder{err: errors.Unavailable("embedding service down")}
	e := engine.New(testConfig(), repo, embed, newFakeIndex())

	report, err := e.CompareClaims(context.Background(), source.ID, target.ID, false)
	require.NoError(t, err)
	assert.True(t, report.Degraded)
	require.Len(t, report.TopMatches, 1)
	assert.Zero(t, report.TopMatches[0].VectorScore)
	assert.InDelta(t, 1.0, report.TopMatches[0].FuzzyScore, 1e-9)
}

// ---------------------------------------------------------------------------
// PriorArtSearch
// ---------------------------------------------------------------------------

func TestPriorArtSearch_DescriptionLengthGate(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	e := engine.New(testConfig(), repo, &fakeEmbedder{}, newFakeIndex())

	short := strings.Repeat("x", 40)
	_, err := e.PriorArtSearch(context.Background(), short, 5, false)
	require.Error(t, err)
	assert.True(t, errors.IsInvalidInput(err))

	exact := strings.Repeat("x", 50)
	report, err := e.PriorArtSearch(context.Background(), exact, 5, false)
	require.NoError(t, err, "exactly the minimum length must be accepted")
	assert.NotNil(t, report)
}

func TestPriorArtSearch_FindsBlockingPatents(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	index := newFakeIndex()

	blocker := newPatent(t, "US4000001A", "Video compression",
		"A system for compressing video using motion vectors")
	blockerClaims := claimsFor(blocker,
		"A system for compressing video streams using predicted motion vectors and a reference frame buffer")
	repo.add(blocker, blockerClaims)
	index.indexClaim(blocker.ID, blockerClaims[0])

	unrelated := newPatent(t, "US4000002A", "Shoe lace", "An improved lace for athletic footwear")
	unrelatedClaims := claimsFor(unrelated, "A lace comprising a woven core and an abrasion resistant sheath")
	repo.add(unrelated, unrelatedClaims)
	index.indexClaim(unrelated.ID, unrelatedClaims[0])

	e := engine.New(testConfig(), repo, &fakeEmbedder{}, index, engine.WithExplanation(&fakeExplainer{}))

	description := "A system for compressing video streams using predicted motion vectors and frame buffering"
	report, err := e.PriorArtSearch(context.Background(), description, 5, true)
	require.NoError(t, err)

	assert.Equal(t, 2, report.PatentsSearched)
	require.NotEmpty(t, report.BlockingPatents)
	assert.Equal(t, blocker.ID, report.BlockingPatents[0].Patent.ID)
	require.NotEmpty(t, report.BlockingPatents[0].BlockingClaims)
	assert.GreaterOrEqual(t, report.BlockingPatents[0].BlockingClaims[0].Similarity, 0.4)

	require.NotNil(t, report.Analysis)
	assert.Equal(t, "prior art found", report.Analysis.Summary)
}

func TestPriorArtSearch_AnalysisFailureOmitted(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	index := newFakeIndex()
	blocker := newPatent(t, "US4000001A", "Video compression",
		"A system for compressing video using motion vectors")
	blockerClaims := claimsFor(blocker,
		"A system for compressing video streams using predicted motion vectors and a reference frame buffer")
	repo.add(blocker, blockerClaims)
	index.indexClaim(blocker.ID, blockerClaims[0])

	explain := &fakeExplainer{
		analyzeFn: func(context.Context, engine.PriorArtRequest) (*engine.Analysis, error) {
			return nil, errors.Unavailable("llm down")
		},
	}
	e := engine.New(testConfig(), repo, &fakeEmbedder{}, index, engine.WithExplanation(explain))

	description := "A system for compressing video streams using predicted motion vectors and frame buffering"
	report, err := e.PriorArtSearch(context.Background(), description, 5, true)
	require.NoError(t, err)
	assert.Nil(t, report.Analysis)
	assert.NotEmpty(t, report.BlockingPatents, "numeric result must survive analysis failure")
}

func TestPriorArtSearch_DegradedScan(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	blocker := newPatent(t, "US4000001A", "Video compression",
		"A system for compressing video using motion vectors")
	repo.add(blocker, claimsFor(blocker,
		"A system for compressing video streams using predicted motion vectors and a reference frame buffer"))

	embed := &fakeEmbedder{err: errors.Unavailable("embedding service down")}
	e := engine.New(testConfig(), repo, embed, newFakeIndex())

	description := "A system for compressing video streams using predicted motion vectors and frame buffering"
	report, err := e.PriorArtSearch(context.Background(), description, 5, false)
	require.NoError(t, err)
	assert.True(t, report.Degraded)
	require.NotEmpty(t, report.BlockingPatents)
	assert.Zero(t, report.BlockingPatents[0].BlockingClaims[0].VectorScore)
}

func TestPriorArtSearch_CacheIdempotence(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	index := newFakeIndex()
	blocker := newPatent(t, "US4000001A", "Video compression",
		"A system for compressing video using motion vectors")
	blockerClaims := claimsFor(blocker,
		"A system for compressing video streams using predicted motion vectors and a reference frame buffer")
	repo.add(blocker, blockerClaims)
	index.indexClaim(blocker.ID, blockerClaims[0])

	cache := newMemCache()
	embed := &fakeEmbedder{}
	e := engine.New(testConfig(), repo, embed, index, engine.WithCache(cache))

	description := "A system for compressing video streams using predicted motion vectors and frame buffering"
	first, err := e.PriorArtSearch(context.Background(), description, 5, false)
	require.NoError(t, err)
	second, err := e.PriorArtSearch(context.Background(), description, 5, false)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, embed.calls)
}

func TestPriorArtSearch_DegradedResultNotCached(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	index := newFakeIndex()
	blocker := newPatent(t, "US4000001A", "Video compression",
		"A system for compressing video using motion vectors")
	blockerClaims := claimsFor(blocker,
		"A system for compressing video streams using predicted motion vectors and a reference frame buffer")
	repo.add(blocker, blockerClaims)
	index.indexClaim(blocker.ID, blockerClaims[0])

	cache := newMemCache()
	embed := &fakeEmbedder{failnext: 3}
	e := engine.New(testConfig(), repo, embed, index, engine.WithCache(cache))

	description := "A system for compressing video streams using predicted motion vectors and frame buffering"
	first, err := e.PriorArtSearch(context.Background(), description, 5, false)
	require.NoError(t, err)
	require.True(t, first.Degraded)
	assert.Zero(t, cache.sets, "degraded report must not be cached")

	second, err := e.PriorArtSearch(context.Background(), description, 5, false)
	require.NoError(t, err)
	assert.False(t, second.Degraded)
	require.NotEmpty(t, second.BlockingPatents)
	assert.Positive(t, second.BlockingPatents[0].BlockingClaims[0].VectorScore)
	assert.Equal(t, 1, cache.sets)
}
