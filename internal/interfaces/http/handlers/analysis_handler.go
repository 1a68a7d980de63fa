package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/claimscope/claimscope/internal/engine"
	"github.com/claimscope/claimscope/pkg/errors"
)

// AnalysisService is the slice of the engine the analysis endpoints need.
type AnalysisService interface {
	Search(ctx context.Context, query string, limit int, vectorWeight float64) (*engine.SearchResponse, error)
	Compare(ctx context.Context, sourceID, targetID uuid.UUID) (*engine.ComparisonReport, error)
	CompareClaims(ctx context.Context, sourceID, targetID uuid.UUID, includeExplanation bool) (*engine.ComparisonReport, error)
	PriorArtSearch(ctx context.Context, description string, limit int, includeAnalysis bool) (*engine.PriorArtReport, error)
}

// AnalysisHandler serves the search, comparison, and prior-art endpoints.
type AnalysisHandler struct {
	svc                 AnalysisService
	defaultVectorWeight float64
	defaultLimit        int
}

// NewAnalysisHandler wires the handler. defaultVectorWeight fills requests
// that omit the weight; defaultLimit fills requests that omit the limit.
func NewAnalysisHandler(svc AnalysisService, defaultVectorWeight float64, defaultLimit int) *AnalysisHandler {
	if defaultLimit <= 0 {
		defaultLimit = 10
	}
	return &AnalysisHandler{
		svc:                 svc,
		defaultVectorWeight: defaultVectorWeight,
		defaultLimit:        defaultLimit,
	}
}

type searchRequest struct {
	Query        string   `json:"query" binding:"required"`
	Limit        int      `json:"limit"`
	VectorWeight *float64 `json:"vectorWeight"`
}

// Search handles POST /api/v1/patents/search.
func (h *AnalysisHandler) Search(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	if req.Limit <= 0 {
		req.Limit = h.defaultLimit
	}
	weight := h.defaultVectorWeight
	if req.VectorWeight != nil {
		weight = *req.VectorWeight
	}

	resp, err := h.svc.Search(c.Request.Context(), req.Query, req.Limit, weight)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

type compareRequest struct {
	SourcePatentID uuid.UUID `json:"sourcePatentId" binding:"required"`
	TargetPatentID uuid.UUID `json:"targetPatentId" binding:"required"`
}

// Compare handles POST /api/v1/patents/compare.
func (h *AnalysisHandler) Compare(c *gin.Context) {
	var req compareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	if err := validatePair(req.SourcePatentID, req.TargetPatentID); err != nil {
		respondError(c, err)
		return
	}

	report, err := h.svc.Compare(c.Request.Context(), req.SourcePatentID, req.TargetPatentID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

type compareClaimsRequest struct {
	SourcePatentID     uuid.UUID `json:"sourcePatentId" binding:"required"`
	TargetPatentID     uuid.UUID `json:"targetPatentId" binding:"required"`
	IncludeExplanation bool      `json:"includeExplanation"`
}

// CompareClaims handles POST /api/v1/claims/compare.
func (h *AnalysisHandler) CompareClaims(c *gin.Context) {
	var req compareClaimsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	if err := validatePair(req.SourcePatentID, req.TargetPatentID); err != nil {
		respondError(c, err)
		return
	}

	report, err := h.svc.CompareClaims(c.Request.Context(),
		req.SourcePatentID, req.TargetPatentID, req.IncludeExplanation)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

type priorArtRequest struct {
	InventionDescription string `json:"inventionDescription" binding:"required"`
	Limit                int    `json:"limit"`
	IncludeAnalysis      bool   `json:"includeAnalysis"`
}

// PriorArt handles POST /api/v1/priorart/search.
func (h *AnalysisHandler) PriorArt(c *gin.Context) {
	var req priorArtRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	if req.Limit <= 0 {
		req.Limit = h.defaultLimit
	}

	report, err := h.svc.PriorArtSearch(c.Request.Context(),
		req.InventionDescription, req.Limit, req.IncludeAnalysis)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func validatePair(source, target uuid.UUID) error {
	if source == uuid.Nil || target == uuid.Nil {
		return errors.New(errors.CodeInvalidParam, "both patent ids are required")
	}
	if source == target {
		return errors.New(errors.CodeInvalidParam, "source and target patent must differ")
	}
	return nil
}
