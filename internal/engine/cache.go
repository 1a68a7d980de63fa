package engine

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Cache keys are stable hashes of the normalized request, so identical
// requests within the TTL resolve to the same entry across instances.

func searchCacheKey(query string, limit int, weight float64) string {
	return "search:" + hashFields(
		normalizeQuery(query),
		strconv.Itoa(limit),
		formatWeight(weight),
	)
}

func compareCacheKey(source, target uuid.UUID) string {
	return "compare:" + hashFields(source.String(), target.String())
}

func compareClaimsCacheKey(source, target uuid.UUID, includeExplanation bool) string {
	return "compareclaims:" + hashFields(
		source.String(),
		target.String(),
		strconv.FormatBool(includeExplanation),
	)
}

func priorArtCacheKey(description string, limit int, includeAnalysis bool) string {
	return "priorart:" + hashFields(
		normalizeQuery(description),
		strconv.Itoa(limit),
		strconv.FormatBool(includeAnalysis),
	)
}

// normalizeQuery collapses whitespace and case so trivially different
// spellings of the same query share a cache entry.
func normalizeQuery(q string) string {
	return strings.ToLower(strings.Join(strings.Fields(q), " "))
}

func formatWeight(w float64) string {
	return strconv.FormatFloat(w, 'f', -1, 64)
}

func hashFields(fields ...string) string {
	h := sha256.New()
	for _, f := range fields {
		h.Write([]byte(f))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
