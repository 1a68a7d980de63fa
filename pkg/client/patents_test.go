package client

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPatentsClient_Create(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/patents", r.URL.Path)

		var req CreatePatentRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "US1234567", req.PatentNumber)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(Patent{
			ID:           "8a6e0804-2bd0-4672-b79d-d97027f9071a",
			PatentNumber: req.PatentNumber,
			Title:        req.Title,
		})
	})

	p, err := c.Patents().Create(context.Background(), CreatePatentRequest{
		PatentNumber: "US1234567",
		Title:        "Adaptive bitrate encoder",
	})
	require.NoError(t, err)
	assert.Equal(t, "US1234567", p.PatentNumber)
	assert.NotEmpty(t, p.ID)
}

func TestPatentsClient_Get(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/patents/abc-123", r.URL.Path)
		_ = json.NewEncoder(w).Encode(Patent{ID: "abc-123", PatentNumber: "EP7654321"})
	})

	p, err := c.Patents().Get(context.Background(), "abc-123")
	require.NoError(t, err)
	assert.Equal(t, "EP7654321", p.PatentNumber)
}

func TestPatentsClient_GetNotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"code": "PAT_001", "message": "patent not found",
		})
	})

	_, err := c.Patents().Get(context.Background(), "missing")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.IsNotFound())
}

func TestPatentsClient_List(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/patents", r.URL.Path)
		assert.Equal(t, "StreamCo", r.URL.Query().Get("assignee"))
		assert.Equal(t, "5", r.URL.Query().Get("limit"))
		assert.Equal(t, "10", r.URL.Query().Get("offset"))

		_ = json.NewEncoder(w).Encode(PatentList{
			Patents: []Patent{{PatentNumber: "US1000001"}, {PatentNumber: "US1000002"}},
			Count:   2,
		})
	})

	list, err := c.Patents().List(context.Background(), ListPatentsRequest{
		Assignee: "StreamCo",
		Limit:    5,
		Offset:   10,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, list.Count)
	assert.Len(t, list.Patents, 2)
}

func TestPatentsClient_Claims(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/v1/patents/abc-123/claims", r.URL.Path)
		_ = json.NewEncoder(w).Encode(ClaimList{
			Claims: []Claim{
				{Number: 1, Text: "1. A widget.", IsIndependent: true, Kind: "apparatus"},
				{Number: 2, Text: "2. The widget of claim 1.", ParentNumber: 1},
			},
			Count: 2,
		})
	})

	claims, err := c.Patents().Claims(context.Background(), "abc-123")
	require.NoError(t, err)
	require.Equal(t, 2, claims.Count)
	assert.True(t, claims.Claims[0].IsIndependent)
	assert.Equal(t, 1, claims.Claims[1].ParentNumber)
}

func TestPatentsClient_ParseClaims(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/patents/abc-123/claims/parse", r.URL.Path)
		_ = json.NewEncoder(w).Encode(ClaimList{
			Claims: []Claim{{Number: 1, Text: "1. A widget.", IsIndependent: true}},
			Count:  1,
		})
	})

	claims, err := c.Patents().ParseClaims(context.Background(), "abc-123")
	require.NoError(t, err)
	assert.Equal(t, 1, claims.Count)
}
