// Package matcher computes claim-to-claim similarity matrices and selects
// the highest-value non-conflicting claim pairs.
package matcher

import (
	"context"
	"sort"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/claimscope/claimscope/internal/domain/patent"
	"github.com/claimscope/claimscope/internal/engine/similarity"
	"github.com/claimscope/claimscope/pkg/errors"
)

// ClaimVector pairs a claim with its text embedding. A nil or empty
// embedding is legal and drops the cell back to fuzzy-only scoring, so a
// comparison stays available when the embedding service is down.
type ClaimVector struct {
	Claim     patent.Claim
	Embedding []float32
}

// Match is one scored source/target claim pair.
type Match struct {
	Source patent.Claim `json:"sourceClaim"`
	Target patent.Claim `json:"targetClaim"`

	VectorScore float64 `json:"vectorScore"`
	FuzzyScore  float64 `json:"fuzzyScore"`

	// Similarity is the hybrid score the pair was ranked by.
	Similarity float64 `json:"similarity"`
}

// Options controls scoring weight, selection floor and parallelism.
type Options struct {
	// VectorWeight is the share of the vector score in the hybrid score,
	// clamped to [0,1].
	VectorWeight float64

	// MatchFloor discards pairs scoring below it; they carry no signal.
	MatchFloor float64

	// TopK caps the number of returned matches. Zero or negative means
	// no cap.
	TopK int

	// Concurrency bounds the worker pool for matrix rows. Values below 1
	// force serial computation.
	Concurrency int
}

// parallelCellThreshold is the matrix size below which the pool overhead
// outweighs row parallelism.
const parallelCellThreshold = 256

// Best computes the full |source|x|target| hybrid similarity matrix and
// greedily selects pairs in descending score order, excluding any claim
// already used (one-to-one matching). Results are sorted by descending
// similarity, deterministically tie-broken by vector score then claim
// numbers.
func Best(ctx context.Context, source, target []ClaimVector, opts Options) ([]Match, error) {
	if len(source) == 0 || len(target) == 0 {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, errors.CodeTimeout, "claim matching cancelled")
	}

	cells := scoreMatrix(ctx, source, target, opts)
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, errors.CodeTimeout, "claim matching cancelled")
	}

	sort.SliceStable(cells, func(i, j int) bool {
		a, b := cells[i], cells[j]
		if a.Similarity != b.Similarity {
			return a.Similarity > b.Similarity
		}
		if a.VectorScore != b.VectorScore {
			return a.VectorScore > b.VectorScore
		}
		if a.Source.Number != b.Source.Number {
			return a.Source.Number < b.Source.Number
		}
		return a.Target.Number < b.Target.Number
	})

	usedSource := make(map[int]bool, len(source))
	usedTarget := make(map[int]bool, len(target))
	matches := make([]Match, 0, min(len(source), len(target)))
	for _, c := range cells {
		if c.Similarity < opts.MatchFloor {
			break // sorted descending, nothing below passes either
		}
		if usedSource[c.Source.Number] || usedTarget[c.Target.Number] {
			continue
		}
		usedSource[c.Source.Number] = true
		usedTarget[c.Target.Number] = true
		matches = append(matches, c)
		if opts.TopK > 0 && len(matches) >= opts.TopK {
			break
		}
	}
	return matches, nil
}

// scoreMatrix fills every source/target cell. Rows are distributed over an
// ants pool when the matrix is large enough for parallelism to pay off;
// each row writes a disjoint slice segment, so no synchronization beyond
// the wait group is needed.
func scoreMatrix(ctx context.Context, source, target []ClaimVector, opts Options) []Match {
	cells := make([]Match, len(source)*len(target))

	scoreRow := func(row int) {
		base := row * len(target)
		for col := range target {
			cells[base+col] = scoreCell(source[row], target[col], opts.VectorWeight)
		}
	}

	if opts.Concurrency <= 1 || len(cells) < parallelCellThreshold {
		for row := range source {
			if ctx.Err() != nil {
				return cells
			}
			scoreRow(row)
		}
		return cells
	}

	pool, err := ants.NewPool(opts.Concurrency)
	if err != nil {
		for row := range source {
			scoreRow(row)
		}
		return cells
	}
	defer pool.Release()

	var wg sync.WaitGroup
	for row := range source {
		row := row
		wg.Add(1)
		if err := pool.Submit(func() {
			defer wg.Done()
			if ctx.Err() == nil {
				scoreRow(row)
			}
		}); err != nil {
			wg.Done()
			scoreRow(row)
		}
	}
	wg.Wait()
	return cells
}

func scoreCell(src, tgt ClaimVector, weight float64) Match {
	m := Match{
		Source:     src.Claim,
		Target:     tgt.Claim,
		FuzzyScore: similarity.Fuzzy(src.Claim.Text, tgt.Claim.Text),
	}
	if len(src.Embedding) > 0 && len(tgt.Embedding) > 0 {
		if vec, err := similarity.Cosine(src.Embedding, tgt.Embedding); err == nil {
			m.VectorScore = vec
			m.Similarity = similarity.Combined(vec, m.FuzzyScore, weight)
			return m
		}
	}
	// No usable embedding pair: the fuzzy score carries the cell alone.
	m.Similarity = m.FuzzyScore
	return m
}
