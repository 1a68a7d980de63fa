package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/claimscope/claimscope/internal/domain/patent"
	"github.com/claimscope/claimscope/internal/engine"
	"github.com/claimscope/claimscope/internal/engine/claimparse"
	"github.com/claimscope/claimscope/internal/infrastructure/monitoring/logging"
)

// VectorWriter is the write side of the vector index. Nil disables
// indexing; stored patents then surface through the lexical fallback only.
type VectorWriter interface {
	UpsertPatent(ctx context.Context, patentID uuid.UUID, vector []float32) error
	UpsertClaims(ctx context.Context, patentID uuid.UUID, numbers []int, vectors [][]float32) error
	DeletePatent(ctx context.Context, patentID uuid.UUID) error
}

// CacheInvalidator drops cached analysis results whose key starts with the
// given sub-prefix. Nil disables invalidation.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, subPrefix string) (int64, error)
}

// PatentHandler serves the patent ingest and lookup endpoints. On ingest it
// extracts claims from the raw claims text, persists everything, and pushes
// embeddings to the vector index best-effort.
type PatentHandler struct {
	repo   patent.Repository
	embed  engine.EmbeddingService
	writer VectorWriter
	cache  CacheInvalidator
	logger logging.Logger
}

// NewPatentHandler wires the handler. embed, writer and cache may be nil;
// ingest then skips vector indexing and cache invalidation.
func NewPatentHandler(repo patent.Repository, embed engine.EmbeddingService, writer VectorWriter, cache CacheInvalidator, log logging.Logger) *PatentHandler {
	return &PatentHandler{
		repo:   repo,
		embed:  embed,
		writer: writer,
		cache:  cache,
		logger: log.Named("patents"),
	}
}

type createPatentRequest struct {
	PatentNumber   string `json:"patentNumber"`
	Title          string `json:"title" binding:"required"`
	Abstract       string `json:"abstract"`
	Assignee       string `json:"assignee"`
	Classification string `json:"classification"`
	FilingDate     string `json:"filingDate"`
	ClaimsText     string `json:"claimsText"`
}

// Create handles POST /api/v1/patents.
func (h *PatentHandler) Create(c *gin.Context) {
	var req createPatentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	p, err := patent.NewPatent(req.PatentNumber, req.Title, req.Abstract)
	if err != nil {
		respondError(c, err)
		return
	}
	p.Assignee = req.Assignee
	p.Classification = req.Classification
	p.ClaimsText = req.ClaimsText
	if req.FilingDate != "" {
		filed, err := time.Parse("2006-01-02", req.FilingDate)
		if err != nil {
			respondBindError(c, err)
			return
		}
		p.FilingDate = filed
	}
	if req.ClaimsText != "" {
		if err := p.SetClaims(claimparse.Parse(req.ClaimsText)); err != nil {
			respondError(c, err)
			return
		}
	}

	if err := h.repo.Create(c.Request.Context(), p); err != nil {
		respondError(c, err)
		return
	}
	h.indexPatent(c.Request.Context(), p)
	h.invalidateResults(c.Request.Context())

	c.JSON(http.StatusCreated, p)
}

// Get handles GET /api/v1/patents/:id.
func (h *PatentHandler) Get(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	p, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// List handles GET /api/v1/patents.
func (h *PatentHandler) List(c *gin.Context) {
	filter := patent.ListFilter{Assignee: c.Query("assignee")}
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			filter.Limit = n
		}
	}
	if v := c.Query("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			filter.Offset = n
		}
	}

	patents, err := h.repo.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"patents": patents, "count": len(patents)})
}

// GetClaims handles GET /api/v1/patents/:id/claims.
func (h *PatentHandler) GetClaims(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	claims, err := h.repo.GetClaims(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"claims": claims, "count": len(claims)})
}

// ParseClaims handles POST /api/v1/patents/:id/claims/parse. It re-runs
// extraction over the stored claims text, replaces the stored claim set,
// and refreshes the claim embeddings.
func (h *PatentHandler) ParseClaims(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()

	p, err := h.repo.GetByID(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}

	source := p.ClaimsText
	if source == "" {
		source = p.Title + ". " + p.Abstract
	}
	claims := claimparse.Parse(source)
	if err := p.SetClaims(claims); err != nil {
		respondError(c, err)
		return
	}
	if err := h.repo.SaveClaims(ctx, id, p.Claims); err != nil {
		respondError(c, err)
		return
	}
	h.indexClaims(ctx, p)
	h.invalidateResults(ctx)

	c.JSON(http.StatusOK, gin.H{"claims": p.Claims, "count": len(p.Claims)})
}

// invalidateResults clears every cached analysis result after a write.
// Cached search and comparison responses embed claim sets, so leaving them
// live for the TTL would keep serving the pre-write corpus.
func (h *PatentHandler) invalidateResults(ctx context.Context) {
	if h.cache == nil {
		return
	}
	if _, err := h.cache.Invalidate(ctx, ""); err != nil {
		h.logger.Warn("result cache invalidation failed", logging.Err(err))
	}
}

// indexPatent pushes the document and claim embeddings. Index failures are
// logged, not surfaced: the patent is persisted and searchable through the
// lexical fallback.
func (h *PatentHandler) indexPatent(ctx context.Context, p *patent.Patent) {
	if h.embed == nil || h.writer == nil {
		return
	}
	vec, err := h.embed.Embed(ctx, p.SearchText())
	if err != nil {
		h.logger.Warn("patent embedding failed, index skipped",
			logging.String("patent", p.PatentNumber), logging.Err(err))
		return
	}
	if err := h.writer.UpsertPatent(ctx, p.ID, vec); err != nil {
		h.logger.Warn("patent index write failed",
			logging.String("patent", p.PatentNumber), logging.Err(err))
		return
	}
	h.indexClaims(ctx, p)
}

func (h *PatentHandler) indexClaims(ctx context.Context, p *patent.Patent) {
	if h.embed == nil || h.writer == nil || len(p.Claims) == 0 {
		return
	}
	texts := make([]string, len(p.Claims))
	numbers := make([]int, len(p.Claims))
	for i, cl := range p.Claims {
		texts[i] = cl.Text
		numbers[i] = cl.Number
	}
	vecs, err := h.embed.EmbedBatch(ctx, texts)
	if err != nil {
		h.logger.Warn("claim embedding failed, index skipped",
			logging.String("patent", p.PatentNumber), logging.Err(err))
		return
	}
	if err := h.writer.UpsertClaims(ctx, p.ID, numbers, vecs); err != nil {
		h.logger.Warn("claim index write failed",
			logging.String("patent", p.PatentNumber), logging.Err(err))
	}
}
