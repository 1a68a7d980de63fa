package patent

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/claimscope/claimscope/pkg/errors"
)

// ClaimKind classifies the subject matter of a claim, derived from the
// claim's opening words during extraction.
type ClaimKind uint8

const (
	KindUnspecified ClaimKind = iota
	KindApparatus
	KindMethod
	KindSystem
)

func (k ClaimKind) String() string {
	switch k {
	case KindApparatus:
		return "apparatus"
	case KindMethod:
		return "method"
	case KindSystem:
		return "system"
	default:
		return "unspecified"
	}
}

// MarshalJSON emits the kind as its lowercase string form.
func (k ClaimKind) MarshalJSON() ([]byte, error) {
	return []byte(`"` + k.String() + `"`), nil
}

// UnmarshalJSON accepts the lowercase string form; unknown values map to
// KindUnspecified rather than failing, matching extraction behaviour.
func (k *ClaimKind) UnmarshalJSON(data []byte) error {
	switch strings.Trim(string(data), `"`) {
	case "apparatus":
		*k = KindApparatus
	case "method":
		*k = KindMethod
	case "system":
		*k = KindSystem
	default:
		*k = KindUnspecified
	}
	return nil
}

// Claim is a single numbered claim extracted from a patent's claims text.
type Claim struct {
	PatentID uuid.UUID `json:"patentId"`

	// Number is the claim's position in the patent, starting at 1.
	Number int `json:"number"`

	Text string    `json:"text"`
	Kind ClaimKind `json:"kind"`

	// IsIndependent is true when the claim does not reference another claim.
	IsIndependent bool `json:"isIndependent"`

	// ParentNumber is the smallest claim number referenced by a dependent
	// claim's back-reference; zero for independent claims.
	ParentNumber int `json:"parentNumber,omitempty"`

	// KeyElements are the technical features extracted from the claim body,
	// used to enrich explanation prompts.
	KeyElements []string `json:"keyElements,omitempty"`
}

// Validate checks the claim's internal consistency.
func (c *Claim) Validate() error {
	if c.Number < 1 {
		return errors.New(errors.ErrCodeClaimSetInvalid,
			fmt.Sprintf("claim number must be >= 1, got %d", c.Number))
	}
	if strings.TrimSpace(c.Text) == "" {
		return errors.New(errors.ErrCodeClaimSetInvalid,
			fmt.Sprintf("claim %d has empty text", c.Number))
	}
	if c.IsIndependent && c.ParentNumber != 0 {
		return errors.New(errors.ErrCodeClaimSetInvalid,
			fmt.Sprintf("independent claim %d must not carry a parent reference", c.Number))
	}
	if !c.IsIndependent && c.ParentNumber < 1 {
		return errors.New(errors.ErrCodeClaimSetInvalid,
			fmt.Sprintf("dependent claim %d is missing its parent reference", c.Number))
	}
	return nil
}

// ClaimSet is a patent's ordered collection of claims.
type ClaimSet []Claim

// Validate enforces set-level invariants: unique positive numbers, and every
// dependent claim's parent must exist earlier in the set.
func (s ClaimSet) Validate() error {
	seen := make(map[int]bool, len(s))
	for i := range s {
		c := &s[i]
		if err := c.Validate(); err != nil {
			return err
		}
		if seen[c.Number] {
			return errors.New(errors.ErrCodeClaimSetInvalid,
				fmt.Sprintf("duplicate claim number %d", c.Number))
		}
		seen[c.Number] = true
	}
	for i := range s {
		c := &s[i]
		if c.IsIndependent {
			continue
		}
		if c.ParentNumber >= c.Number {
			return errors.New(errors.ErrCodeClaimSetInvalid,
				fmt.Sprintf("claim %d references claim %d, which does not precede it",
					c.Number, c.ParentNumber))
		}
		if !seen[c.ParentNumber] {
			return errors.New(errors.ErrCodeClaimSetInvalid,
				fmt.Sprintf("claim %d references missing claim %d", c.Number, c.ParentNumber))
		}
	}
	return nil
}

// Independent returns the independent claims in number order.
func (s ClaimSet) Independent() ClaimSet {
	out := make(ClaimSet, 0, len(s))
	for _, c := range s {
		if c.IsIndependent {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out
}

// ByNumber returns the claim with the given number, or nil.
func (s ClaimSet) ByNumber(number int) *Claim {
	for i := range s {
		if s[i].Number == number {
			return &s[i]
		}
	}
	return nil
}

// Root resolves the independent claim a dependent claim ultimately hangs
// from, following parent references.  For an independent claim it returns
// the claim itself.  Returns nil if the chain is broken.
func (s ClaimSet) Root(number int) *Claim {
	c := s.ByNumber(number)
	for c != nil && !c.IsIndependent {
		c = s.ByNumber(c.ParentNumber)
	}
	return c
}
