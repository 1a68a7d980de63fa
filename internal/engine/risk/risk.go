// Package risk maps claim-match similarity onto infringement risk levels
// and aggregates a match set into a patent-level verdict.
package risk

import (
	"strings"

	"github.com/claimscope/claimscope/internal/engine/matcher"
)

// Level grades the infringement risk carried by a match or a comparison.
type Level uint8

const (
	LevelLow Level = iota
	LevelMedium
	LevelHigh
)

func (l Level) String() string {
	switch l {
	case LevelHigh:
		return "high"
	case LevelMedium:
		return "medium"
	default:
		return "low"
	}
}

func (l Level) MarshalJSON() ([]byte, error) {
	return []byte(`"` + l.String() + `"`), nil
}

func (l *Level) UnmarshalJSON(data []byte) error {
	switch strings.Trim(string(data), `"`) {
	case "high":
		*l = LevelHigh
	case "medium":
		*l = LevelMedium
	default:
		*l = LevelLow
	}
	return nil
}

// FTO is the freedom-to-operate verdict derived from the overall risk.
type FTO uint8

const (
	FTOLikely FTO = iota
	FTOUncertain
	FTOUnlikely
)

func (f FTO) String() string {
	switch f {
	case FTOUnlikely:
		return "unlikely"
	case FTOUncertain:
		return "uncertain"
	default:
		return "likely"
	}
}

func (f FTO) MarshalJSON() ([]byte, error) {
	return []byte(`"` + f.String() + `"`), nil
}

func (f *FTO) UnmarshalJSON(data []byte) error {
	switch strings.Trim(string(data), `"`) {
	case "likely":
		*f = FTOLikely
	case "unlikely":
		*f = FTOUnlikely
	default:
		// Unknown verdicts (typically free-form model output) read as
		// uncertain rather than an optimistic likely.
		*f = FTOUncertain
	}
	return nil
}

// Thresholds are the similarity cut-offs for per-match classification.
type Thresholds struct {
	High   float64
	Medium float64
}

// DefaultThresholds mirror the engine configuration defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{High: 0.8, Medium: 0.6}
}

// Classify grades a single similarity score.
func Classify(similarity float64, t Thresholds) Level {
	switch {
	case similarity >= t.High:
		return LevelHigh
	case similarity >= t.Medium:
		return LevelMedium
	default:
		return LevelLow
	}
}

// Assessment is the aggregate over a whole match set. It is a pure function
// of the matches and thresholds, fully re-derivable.
type Assessment struct {
	OverallRisk Level `json:"overallRisk"`

	// IndependentClaimsAtRisk counts distinct source independent claims
	// appearing in high-risk matches. Independent claims dominate the
	// verdict: avoiding a dependent claim alone does not avoid its
	// independent parent.
	IndependentClaimsAtRisk int `json:"independentClaimsAtRisk"`

	HighestSimilarity float64 `json:"highestSimilarity"`
	FreedomToOperate  FTO     `json:"freedomToOperate"`
}

// Aggregate folds a match set into a patent-level assessment.
func Aggregate(matches []matcher.Match, t Thresholds) Assessment {
	var a Assessment

	independentAtRisk := make(map[int]bool)
	anyMedium := false
	anyHigh := false
	for _, m := range matches {
		if m.Similarity > a.HighestSimilarity {
			a.HighestSimilarity = m.Similarity
		}
		switch Classify(m.Similarity, t) {
		case LevelHigh:
			anyHigh = true
			if m.Source.IsIndependent {
				independentAtRisk[m.Source.Number] = true
			}
		case LevelMedium:
			anyMedium = true
		}
	}
	a.IndependentClaimsAtRisk = len(independentAtRisk)

	switch {
	case a.IndependentClaimsAtRisk > 0:
		a.OverallRisk = LevelHigh
	case anyHigh || anyMedium:
		a.OverallRisk = LevelMedium
	default:
		a.OverallRisk = LevelLow
	}

	switch {
	case a.OverallRisk == LevelHigh:
		a.FreedomToOperate = FTOUnlikely
	case a.OverallRisk == LevelMedium:
		a.FreedomToOperate = FTOUncertain
	case len(matches) == 0:
		a.FreedomToOperate = FTOLikely
	default:
		// Matches exist but none carry signal. Not a clean bill.
		a.FreedomToOperate = FTOUncertain
	}
	return a
}
