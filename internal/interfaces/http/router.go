// Package http assembles the gin route tree and the HTTP server around the
// retrieval engine.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/claimscope/claimscope/internal/infrastructure/monitoring/logging"
	"github.com/claimscope/claimscope/internal/interfaces/http/handlers"
	"github.com/claimscope/claimscope/internal/interfaces/http/middleware"
)

// RouterConfig aggregates the handlers and cross-cutting dependencies of
// the route tree.
type RouterConfig struct {
	AnalysisHandler *handlers.AnalysisHandler
	PatentHandler   *handlers.PatentHandler
	HealthHandler   *handlers.HealthHandler

	// MetricsHandler serves GET /metrics when non-nil (promhttp).
	MetricsHandler http.Handler

	Logger logging.Logger

	// Mode is the gin mode: debug, release, or test.
	Mode string
}

// NewRouter builds the complete route tree: global middleware, public
// probes, the metrics endpoint, and the /api/v1 resource groups.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Mode != "" {
		gin.SetMode(cfg.Mode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	if cfg.Logger != nil {
		r.Use(middleware.RequestLogging(cfg.Logger, middleware.DefaultLoggingConfig()))
	}

	if cfg.HealthHandler != nil {
		r.GET("/healthz", cfg.HealthHandler.Liveness)
		r.GET("/readyz", cfg.HealthHandler.Readiness)
	}
	if cfg.MetricsHandler != nil {
		r.GET("/metrics", gin.WrapH(cfg.MetricsHandler))
	}

	api := r.Group("/api/v1")
	registerAnalysisRoutes(api, cfg.AnalysisHandler)
	registerPatentRoutes(api, cfg.PatentHandler)

	return r
}

func registerAnalysisRoutes(api *gin.RouterGroup, h *handlers.AnalysisHandler) {
	if h == nil {
		return
	}
	api.POST("/patents/search", h.Search)
	api.POST("/patents/compare", h.Compare)
	api.POST("/claims/compare", h.CompareClaims)
	api.POST("/priorart/search", h.PriorArt)
}

func registerPatentRoutes(api *gin.RouterGroup, h *handlers.PatentHandler) {
	if h == nil {
		return
	}
	patents := api.Group("/patents")
	patents.POST("", h.Create)
	patents.GET("", h.List)
	patents.GET("/:id", h.Get)
	patents.GET("/:id/claims", h.GetClaims)
	patents.POST("/:id/claims/parse", h.ParseClaims)
}
