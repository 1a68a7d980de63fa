package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/claimscope/claimscope/internal/domain/patent"
	"github.com/claimscope/claimscope/internal/engine"
	"github.com/claimscope/claimscope/internal/infrastructure/monitoring/logging"
	"github.com/claimscope/claimscope/pkg/errors"
)

type memoryRepo struct {
	patents map[uuid.UUID]*patent.Patent
	created []*patent.Patent

	createErr error
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{patents: make(map[uuid.UUID]*patent.Patent)}
}

func (r *memoryRepo) Create(_ context.Context, p *patent.Patent) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.patents[p.ID] = p
	r.created = append(r.created, p)
	return nil
}

func (r *memoryRepo) GetByID(_ context.Context, id uuid.UUID) (*patent.Patent, error) {
	p, ok := r.patents[id]
	if !ok {
		return nil, errors.New(errors.ErrCodePatentNotFound, "patent not found")
	}
	return p, nil
}

func (r *memoryRepo) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*patent.Patent, error) {
	out := make([]*patent.Patent, 0, len(ids))
	for _, id := range ids {
		if p, ok := r.patents[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *memoryRepo) GetByNumber(_ context.Context, number string) (*patent.Patent, error) {
	for _, p := range r.patents {
		if p.PatentNumber == number {
			return p, nil
		}
	}
	return nil, errors.New(errors.ErrCodePatentNotFound, "patent not found")
}

func (r *memoryRepo) List(_ context.Context, filter patent.ListFilter) ([]*patent.Patent, error) {
	out := make([]*patent.Patent, 0, len(r.patents))
	for _, p := range r.patents {
		if filter.Assignee != "" && p.Assignee != filter.Assignee {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (r *memoryRepo) SaveClaims(_ context.Context, patentID uuid.UUID, claims patent.ClaimSet) error {
	p, ok := r.patents[patentID]
	if !ok {
		return errors.New(errors.ErrCodePatentNotFound, "patent not found")
	}
	p.Claims = claims
	return nil
}

func (r *memoryRepo) GetClaims(_ context.Context, patentID uuid.UUID) (patent.ClaimSet, error) {
	p, ok := r.patents[patentID]
	if !ok {
		return nil, errors.New(errors.ErrCodePatentNotFound, "patent not found")
	}
	return p.Claims, nil
}

func (r *memoryRepo) Count(_ context.Context) (int64, error) {
	return int64(len(r.patents)), nil
}

type stubEmbedder struct {
	dim int
	err error
}

func (s *stubEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	return make([]float32, s.dim), nil
}

func (s *stubEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = make([]float32, s.dim)
	}
	return out, nil
}

func (s *stubEmbedder) Dimension() int { return s.dim }

type recordingWriter struct {
	patentUpserts []uuid.UUID
	claimUpserts  map[uuid.UUID][]int
	deletes       []uuid.UUID

	upsertErr error
}

func newRecordingWriter() *recordingWriter {
	return &recordingWriter{claimUpserts: make(map[uuid.UUID][]int)}
}

func (w *recordingWriter) UpsertPatent(_ context.Context, patentID uuid.UUID, _ []float32) error {
	if w.upsertErr != nil {
		return w.upsertErr
	}
	w.patentUpserts = append(w.patentUpserts, patentID)
	return nil
}

func (w *recordingWriter) UpsertClaims(_ context.Context, patentID uuid.UUID, numbers []int, _ [][]float32) error {
	if w.upsertErr != nil {
		return w.upsertErr
	}
	w.claimUpserts[patentID] = numbers
	return nil
}

func (w *recordingWriter) DeletePatent(_ context.Context, patentID uuid.UUID) error {
	w.deletes = append(w.deletes, patentID)
	return nil
}

type recordingInvalidator struct {
	prefixes []string
}

func (i *recordingInvalidator) Invalidate(_ context.Context, subPrefix string) (int64, error) {
	i.prefixes = append(i.prefixes, subPrefix)
	return 1, nil
}

func patentRouter(repo patent.Repository, embed *stubEmbedder, writer VectorWriter) *gin.Engine {
	return patentRouterWithCache(repo, embed, writer, nil)
}

func patentRouterWithCache(repo patent.Repository, embed *stubEmbedder, writer VectorWriter, cache CacheInvalidator) *gin.Engine {
	var svc engine.EmbeddingService
	if embed != nil {
		svc = embed
	}
	h := NewPatentHandler(repo, svc, writer, cache, logging.NewNopLogger())
	r := gin.New()
	r.POST("/patents", h.Create)
	r.GET("/patents", h.List)
	r.GET("/patents/:id", h.Get)
	r.GET("/patents/:id/claims", h.GetClaims)
	r.POST("/patents/:id/claims/parse", h.ParseClaims)
	return r
}

const sampleClaimsText = `1. A video encoder comprising a bitrate controller and a segment buffer.
2. The encoder of claim 1, wherein the bitrate controller adapts to measured throughput.`

func TestPatentHandler_Create(t *testing.T) {
	t.Parallel()

	repo := newMemoryRepo()
	writer := newRecordingWriter()
	r := patentRouter(repo, &stubEmbedder{dim: 4}, writer)

	w := postJSON(t, r, "/patents", gin.H{
		"patentNumber":   "us1234567",
		"title":          "Adaptive bitrate encoder",
		"abstract":       "An encoder that adapts bitrate to throughput.",
		"assignee":       "StreamCo",
		"classification": "H04N 19/146",
		"filingDate":     "2021-06-15",
		"claimsText":     sampleClaimsText,
	})

	require.Equal(t, http.StatusCreated, w.Code)
	require.Len(t, repo.created, 1)

	stored := repo.created[0]
	assert.Equal(t, "US1234567", stored.PatentNumber, "number should be normalized to upper case")
	assert.Equal(t, "StreamCo", stored.Assignee)
	assert.Equal(t, "H04N 19/146", stored.Classification)
	assert.Equal(t, 2021, stored.FilingDate.Year())
	require.Len(t, stored.Claims, 2)
	assert.True(t, stored.Claims[0].IsIndependent)
	assert.False(t, stored.Claims[1].IsIndependent)

	require.Len(t, writer.patentUpserts, 1, "ingest should push the document embedding")
	assert.Equal(t, stored.ID, writer.patentUpserts[0])
	assert.Equal(t, []int{1, 2}, writer.claimUpserts[stored.ID])
}

func TestPatentHandler_CreateWithoutIndexing(t *testing.T) {
	t.Parallel()

	repo := newMemoryRepo()
	r := patentRouter(repo, nil, nil)

	w := postJSON(t, r, "/patents", gin.H{
		"patentNumber": "EP9876543",
		"title":        "Widget",
	})

	require.Equal(t, http.StatusCreated, w.Code)
	require.Len(t, repo.created, 1)
}

func TestPatentHandler_CreateIndexFailureIsNotFatal(t *testing.T) {
	t.Parallel()

	repo := newMemoryRepo()
	writer := newRecordingWriter()
	writer.upsertErr = errors.New(errors.ErrCodeVectorIndexUnavailable, "milvus down")
	r := patentRouter(repo, &stubEmbedder{dim: 4}, writer)

	w := postJSON(t, r, "/patents", gin.H{
		"patentNumber": "US1234567",
		"title":        "Adaptive bitrate encoder",
		"claimsText":   sampleClaimsText,
	})

	require.Equal(t, http.StatusCreated, w.Code, "a dead index must not block ingest")
	require.Len(t, repo.created, 1)
}

func TestPatentHandler_CreateInvalidNumber(t *testing.T) {
	t.Parallel()

	r := patentRouter(newMemoryRepo(), nil, nil)

	w := postJSON(t, r, "/patents", gin.H{
		"patentNumber": "1234567",
		"title":        "Widget",
	})

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, string(errors.ErrCodePatentNumberInvalid), decodeError(t, w).Code)
}

func TestPatentHandler_CreateWithoutNumber(t *testing.T) {
	t.Parallel()

	repo := newMemoryRepo()
	r := patentRouter(repo, nil, nil)

	w := postJSON(t, r, "/patents", gin.H{
		"title":    "Unpublished filing",
		"abstract": "An invention awaiting publication.",
	})

	require.Equal(t, http.StatusCreated, w.Code)
	require.Len(t, repo.created, 1)
	assert.Empty(t, repo.created[0].PatentNumber)
}

func TestPatentHandler_CreateInvalidatesResultCache(t *testing.T) {
	t.Parallel()

	repo := newMemoryRepo()
	inv := &recordingInvalidator{}
	r := patentRouterWithCache(repo, nil, nil, inv)

	w := postJSON(t, r, "/patents", gin.H{
		"patentNumber": "US1234567",
		"title":        "Adaptive bitrate encoder",
		"claimsText":   sampleClaimsText,
	})

	require.Equal(t, http.StatusCreated, w.Code)
	require.Len(t, inv.prefixes, 1, "a stored patent must clear cached results")
}

func TestPatentHandler_CreateRejectedDoesNotInvalidate(t *testing.T) {
	t.Parallel()

	inv := &recordingInvalidator{}
	r := patentRouterWithCache(newMemoryRepo(), nil, nil, inv)

	w := postJSON(t, r, "/patents", gin.H{"patentNumber": "US1234567"})

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, inv.prefixes)
}

func TestPatentHandler_CreateBadFilingDate(t *testing.T) {
	t.Parallel()

	r := patentRouter(newMemoryRepo(), nil, nil)

	w := postJSON(t, r, "/patents", gin.H{
		"patentNumber": "US1234567",
		"title":        "Widget",
		"filingDate":   "15/06/2021",
	})

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPatentHandler_Get(t *testing.T) {
	t.Parallel()

	repo := newMemoryRepo()
	p, err := patent.NewPatent("US1234567", "Widget", "A widget.")
	require.NoError(t, err)
	repo.patents[p.ID] = p

	r := patentRouter(repo, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/patents/"+p.ID.String(), nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var got patent.Patent
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, p.PatentNumber, got.PatentNumber)
}

func TestPatentHandler_GetNotFound(t *testing.T) {
	t.Parallel()

	r := patentRouter(newMemoryRepo(), nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/patents/"+uuid.NewString(), nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, string(errors.ErrCodePatentNotFound), decodeError(t, w).Code)
}

func TestPatentHandler_GetBadID(t *testing.T) {
	t.Parallel()

	r := patentRouter(newMemoryRepo(), nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/patents/abc", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPatentHandler_ListFiltersByAssignee(t *testing.T) {
	t.Parallel()

	repo := newMemoryRepo()
	for _, tc := range []struct{ number, assignee string }{
		{"US1000001", "StreamCo"},
		{"US1000002", "StreamCo"},
		{"US1000003", "Acme"},
	} {
		p, err := patent.NewPatent(tc.number, "Widget", "")
		require.NoError(t, err)
		p.Assignee = tc.assignee
		repo.patents[p.ID] = p
	}

	r := patentRouter(repo, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/patents?assignee=StreamCo", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Patents []patent.Patent `json:"patents"`
		Count   int             `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Count)
}

func TestPatentHandler_ParseClaims(t *testing.T) {
	t.Parallel()

	repo := newMemoryRepo()
	writer := newRecordingWriter()
	p, err := patent.NewPatent("US1234567", "Adaptive bitrate encoder", "")
	require.NoError(t, err)
	p.ClaimsText = sampleClaimsText
	repo.patents[p.ID] = p

	inv := &recordingInvalidator{}
	r := patentRouterWithCache(repo, &stubEmbedder{dim: 4}, writer, inv)

	req := httptest.NewRequest(http.MethodPost, "/patents/"+p.ID.String()+"/claims/parse", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Claims patent.ClaimSet `json:"claims"`
		Count  int             `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Count)

	stored, err := repo.GetClaims(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Len(t, stored, 2)
	assert.Equal(t, []int{1, 2}, writer.claimUpserts[p.ID], "re-parse should refresh claim embeddings")
	assert.Len(t, inv.prefixes, 1, "a replaced claim set must clear cached results")
}

func TestPatentHandler_GetClaims(t *testing.T) {
	t.Parallel()

	repo := newMemoryRepo()
	p, err := patent.NewPatent("US1234567", "Encoder", "")
	require.NoError(t, err)
	require.NoError(t, p.SetClaims(patent.ClaimSet{
		{Number: 1, Text: "1. A widget.", IsIndependent: true},
	}))
	repo.patents[p.ID] = p

	r := patentRouter(repo, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/patents/"+p.ID.String()+"/claims", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Count)
}
