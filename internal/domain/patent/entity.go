// Package patent implements the patent aggregate, claim value objects, and
// invariant enforcement for ClaimScope.  All business rules that concern
// patents and their claim sets live here; infrastructure concerns
// (persistence, vector search) are handled by separate adapter layers.
package patent

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/claimscope/claimscope/pkg/errors"
)

// rePatentNumber matches the publication-number formats accepted on ingest:
// a two-letter jurisdiction code followed by digits and an optional kind
// code, e.g. US10452974B1, EP1234567A1, CN202310001234A, WO2023123456.
var rePatentNumber = regexp.MustCompile(`^[A-Z]{2}\d{6,}[A-Z]?\d?$`)

// Patent is the aggregate root.  A Patent owns its claim set; claims are
// never persisted or retrieved independently of their patent.
type Patent struct {
	ID           uuid.UUID `json:"id"`
	PatentNumber string    `json:"patentNumber,omitempty"`
	Title        string    `json:"title"`
	Abstract     string    `json:"abstract"`
	Assignee     string    `json:"assignee"`

	// Classification is the IPC/CPC code, free-form and optional.
	Classification string `json:"classification,omitempty"`

	FilingDate time.Time `json:"filingDate"`
	ClaimsText string    `json:"claimsText"`
	Claims     ClaimSet  `json:"claims,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// NewPatent constructs a Patent, validating the fields that every ingest
// path must supply.  The publication number is optional (unpublished
// applications have none) but must be well-formed when present.  The claim
// set may be attached later via SetClaims once extraction has run.
func NewPatent(number, title, abstract string) (*Patent, error) {
	number = strings.ToUpper(strings.TrimSpace(number))
	if number != "" && !rePatentNumber.MatchString(number) {
		return nil, errors.New(errors.ErrCodePatentNumberInvalid,
			"patent number must be a jurisdiction code followed by digits").
			WithDetail("got " + number)
	}
	if strings.TrimSpace(title) == "" {
		return nil, errors.InvalidParam("patent title must not be empty")
	}

	now := time.Now().UTC()
	return &Patent{
		ID:           uuid.New(),
		PatentNumber: number,
		Title:        strings.TrimSpace(title),
		Abstract:     strings.TrimSpace(abstract),
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// SetClaims attaches an extracted claim set after validating it.
func (p *Patent) SetClaims(claims ClaimSet) error {
	if err := claims.Validate(); err != nil {
		return err
	}
	for i := range claims {
		claims[i].PatentID = p.ID
	}
	p.Claims = claims
	p.UpdatedAt = time.Now().UTC()
	return nil
}

// IndependentClaims returns the subset of claims with no parent.
func (p *Patent) IndependentClaims() ClaimSet {
	return p.Claims.Independent()
}

// SearchText returns the text used for embedding and fuzzy matching: the
// title and abstract joined, falling back to claims text when the abstract
// is empty.
func (p *Patent) SearchText() string {
	var sb strings.Builder
	sb.WriteString(p.Title)
	if p.Abstract != "" {
		sb.WriteString(". ")
		sb.WriteString(p.Abstract)
	} else if p.ClaimsText != "" {
		sb.WriteString(". ")
		sb.WriteString(p.ClaimsText)
	}
	return sb.String()
}
