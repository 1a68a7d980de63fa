package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/claimscope/claimscope/pkg/errors"
)

func healthRouter(h *HealthHandler) *gin.Engine {
	r := gin.New()
	r.GET("/healthz", h.Liveness)
	r.GET("/readyz", h.Readiness)
	return r
}

func getPath(r *gin.Engine, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealthHandler_Liveness(t *testing.T) {
	t.Parallel()

	r := healthRouter(NewHealthHandler("1.2.3"))
	w := getPath(r, "/healthz")

	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "alive", resp["status"])
	assert.Equal(t, "1.2.3", resp["version"])
}

func TestHealthHandler_ReadinessNoCheckers(t *testing.T) {
	t.Parallel()

	r := healthRouter(NewHealthHandler("dev"))
	w := getPath(r, "/readyz")

	require.Equal(t, http.StatusOK, w.Code)
}

func TestHealthHandler_ReadinessAllHealthy(t *testing.T) {
	t.Parallel()

	h := NewHealthHandler("dev",
		CheckFunc{Component: "postgres", Fn: func(context.Context) error { return nil }},
		CheckFunc{Component: "redis", Fn: func(context.Context) error { return nil }},
	)
	w := getPath(healthRouter(h), "/readyz")

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Status     string                    `json:"status"`
		Components map[string]ComponentCheck `json:"components"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ready", resp.Status)
	assert.Len(t, resp.Components, 2)
	assert.Equal(t, "healthy", resp.Components["postgres"].Status)
}

func TestHealthHandler_ReadinessOneUnhealthy(t *testing.T) {
	t.Parallel()

	h := NewHealthHandler("dev",
		CheckFunc{Component: "postgres", Fn: func(context.Context) error { return nil }},
		CheckFunc{Component: "milvus", Fn: func(context.Context) error {
			return errors.New(errors.ErrCodeVectorIndexUnavailable, "connection refused")
		}},
	)
	w := getPath(healthRouter(h), "/readyz")

	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	var resp struct {
		Status     string                    `json:"status"`
		Components map[string]ComponentCheck `json:"components"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "not_ready", resp.Status)
	assert.Equal(t, "unhealthy", resp.Components["milvus"].Status)
	assert.Contains(t, resp.Components["milvus"].Error, "connection refused")
}
