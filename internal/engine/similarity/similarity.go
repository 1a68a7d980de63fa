// Package similarity implements the scoring primitives of the retrieval
// engine: cosine similarity over embeddings, token-set fuzzy matching over
// raw text, and the weighted combination of the two.
package similarity

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/agext/levenshtein"

	"github.com/claimscope/claimscope/pkg/errors"
)

// Cosine returns the cosine similarity of two embeddings mapped from
// [-1, 1] into [0, 1] via (cos + 1) / 2, so that all engine scores share a
// single scale.  A zero vector on either side yields 0.  Vectors of
// different lengths produce an ErrCodeDimensionMismatch error.
func Cosine(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, errors.DimensionMismatch(
			fmt.Sprintf("vectors have dimensions %d and %d", len(a), len(b)))
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0, nil
	}

	cos := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	// Guard against floating-point drift outside [-1, 1].
	if cos > 1 {
		cos = 1
	} else if cos < -1 {
		cos = -1
	}
	return (cos + 1) / 2, nil
}

// tokenize lowercases s and splits it into a sorted, de-duplicated token
// set.  Punctuation acts as a separator so "claim 1," and "claim 1" agree.
func tokenize(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	seen := make(map[string]bool, len(fields))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	sort.Strings(out)
	return out
}

// Fuzzy computes a token-set similarity of two strings in [0, 1].  The
// strings are tokenized into sets; the score is the maximum normalised
// edit-distance similarity over combinations of the shared tokens with each
// side's remainder, so reordered or partially overlapping phrasing still
// scores high.  Either input empty (or all punctuation) yields 0; equal
// token sets yield exactly 1.
func Fuzzy(a, b string) float64 {
	tokensA := tokenize(a)
	tokensB := tokenize(b)
	if len(tokensA) == 0 || len(tokensB) == 0 {
		return 0
	}

	setB := make(map[string]bool, len(tokensB))
	for _, t := range tokensB {
		setB[t] = true
	}

	var shared, onlyA []string
	for _, t := range tokensA {
		if setB[t] {
			shared = append(shared, t)
		} else {
			onlyA = append(onlyA, t)
		}
	}
	setShared := make(map[string]bool, len(shared))
	for _, t := range shared {
		setShared[t] = true
	}
	var onlyB []string
	for _, t := range tokensB {
		if !setShared[t] {
			onlyB = append(onlyB, t)
		}
	}

	if len(onlyA) == 0 && len(onlyB) == 0 {
		return 1
	}

	base := strings.Join(shared, " ")
	full1 := strings.TrimSpace(base + " " + strings.Join(onlyA, " "))
	full2 := strings.TrimSpace(base + " " + strings.Join(onlyB, " "))

	params := levenshtein.NewParams()
	score := levenshtein.Similarity(full1, full2, params)
	if base != "" {
		if s := levenshtein.Similarity(base, full1, params); s > score {
			score = s
		}
		if s := levenshtein.Similarity(base, full2, params); s > score {
			score = s
		}
	}
	return score
}

// Combined merges a vector score and a fuzzy score using the configured
// vector weight: weight·vector + (1−weight)·fuzzy.  The weight is clamped
// to [0, 1].  The arithmetic is arranged as fuzzy + w·(vector − fuzzy),
// which is the same value but returns the inputs exactly when they agree.
func Combined(vector, fuzzy, weight float64) float64 {
	if weight < 0 {
		weight = 0
	} else if weight > 1 {
		weight = 1
	}
	return fuzzy + weight*(vector-fuzzy)
}
