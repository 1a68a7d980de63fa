package client

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// PatentsClient covers the patent ingest and lookup endpoints.
type PatentsClient struct {
	client *Client
}

// Patent is the API representation of a stored patent.
type Patent struct {
	ID             string  `json:"id"`
	PatentNumber   string  `json:"patentNumber,omitempty"`
	Title          string  `json:"title"`
	Abstract       string  `json:"abstract"`
	Assignee       string  `json:"assignee"`
	Classification string  `json:"classification,omitempty"`
	FilingDate     string  `json:"filingDate"`
	ClaimsText     string  `json:"claimsText"`
	Claims         []Claim `json:"claims,omitempty"`
	CreatedAt      string  `json:"createdAt"`
	UpdatedAt      string  `json:"updatedAt"`
}

// Claim is one numbered claim of a patent.
type Claim struct {
	PatentID      string   `json:"patentId"`
	Number        int      `json:"number"`
	Text          string   `json:"text"`
	Kind          string   `json:"kind"`
	IsIndependent bool     `json:"isIndependent"`
	ParentNumber  int      `json:"parentNumber,omitempty"`
	KeyElements   []string `json:"keyElements,omitempty"`
}

// CreatePatentRequest registers a patent. Only Title is required; the
// publication number may be omitted for unpublished applications.
// ClaimsText, when present, is parsed into claims on ingest.
type CreatePatentRequest struct {
	PatentNumber   string `json:"patentNumber,omitempty"`
	Title          string `json:"title"`
	Abstract       string `json:"abstract,omitempty"`
	Assignee       string `json:"assignee,omitempty"`
	Classification string `json:"classification,omitempty"`
	FilingDate     string `json:"filingDate,omitempty"`
	ClaimsText     string `json:"claimsText,omitempty"`
}

// ListPatentsRequest narrows and pages the patent listing.
type ListPatentsRequest struct {
	Assignee string
	Limit    int
	Offset   int
}

// PatentList is the listing envelope.
type PatentList struct {
	Patents []Patent `json:"patents"`
	Count   int      `json:"count"`
}

// ClaimList is the claims envelope.
type ClaimList struct {
	Claims []Claim `json:"claims"`
	Count  int     `json:"count"`
}

// Create registers a new patent.
func (pc *PatentsClient) Create(ctx context.Context, req CreatePatentRequest) (*Patent, error) {
	var out Patent
	if err := pc.client.post(ctx, "/api/v1/patents", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Get loads one patent by id.
func (pc *PatentsClient) Get(ctx context.Context, id string) (*Patent, error) {
	var out Patent
	if err := pc.client.get(ctx, "/api/v1/patents/"+url.PathEscape(id), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// List returns stored patents, newest first.
func (pc *PatentsClient) List(ctx context.Context, req ListPatentsRequest) (*PatentList, error) {
	q := url.Values{}
	if req.Assignee != "" {
		q.Set("assignee", req.Assignee)
	}
	if req.Limit > 0 {
		q.Set("limit", strconv.Itoa(req.Limit))
	}
	if req.Offset > 0 {
		q.Set("offset", strconv.Itoa(req.Offset))
	}
	path := "/api/v1/patents"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var out PatentList
	if err := pc.client.get(ctx, path, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Claims loads a patent's claim set in number order.
func (pc *PatentsClient) Claims(ctx context.Context, id string) (*ClaimList, error) {
	var out ClaimList
	path := fmt.Sprintf("/api/v1/patents/%s/claims", url.PathEscape(id))
	if err := pc.client.get(ctx, path, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ParseClaims re-runs claim extraction over the patent's stored claims
// text and returns the refreshed claim set.
func (pc *PatentsClient) ParseClaims(ctx context.Context, id string) (*ClaimList, error) {
	var out ClaimList
	path := fmt.Sprintf("/api/v1/patents/%s/claims/parse", url.PathEscape(id))
	if err := pc.client.post(ctx, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
