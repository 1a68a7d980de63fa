package similarity

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/claimscope/claimscope/pkg/errors"
)

func TestCosine_IdenticalVectors(t *testing.T) {
	v := []float32{0.5, -0.3, 0.8, 0.1}
	got, err := Cosine(v, v)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, got, 1e-9)
}

func TestCosine_OppositeVectors(t *testing.T) {
	a := []float32{1, 2, 3}
	b := []float32{-1, -2, -3}
	got, err := Cosine(a, b)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, got, 1e-9)
}

func TestCosine_OrthogonalVectors(t *testing.T) {
	a := []float32{1, 0}
	b := []float32{0, 1}
	got, err := Cosine(a, b)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, got, 1e-9)
}

func TestCosine_ZeroVector(t *testing.T) {
	a := []float32{0, 0, 0}
	b := []float32{1, 2, 3}

	got, err := Cosine(a, b)
	require.NoError(t, err)
	assert.Equal(t, 0.0, got)

	got, err = Cosine(b, a)
	require.NoError(t, err)
	assert.Equal(t, 0.0, got)
}

func TestCosine_DimensionMismatch(t *testing.T) {
	_, err := Cosine([]float32{1, 2}, []float32{1, 2, 3})
	assert.True(t, errors.IsCode(err, errors.ErrCodeDimensionMismatch))
}

func TestCosine_ScaleInvariant(t *testing.T) {
	a := []float32{0.2, 0.7, 0.1}
	b := []float32{0.4, 1.4, 0.2} // 2a
	got, err := Cosine(a, b)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, got, 1e-6)
}

func TestCosine_RangeAlwaysUnitInterval(t *testing.T) {
	vectors := [][]float32{
		{1, 0, 0}, {0, 1, 0}, {-1, 0, 0}, {0.3, -0.9, 0.2}, {5, 5, 5},
	}
	for _, a := range vectors {
		for _, b := range vectors {
			got, err := Cosine(a, b)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, got, 0.0)
			assert.LessOrEqual(t, got, 1.0)
		}
	}
}

func TestFuzzy_IdenticalText(t *testing.T) {
	s := "A method for encoding video frames using adaptive quantization"
	assert.Equal(t, 1.0, Fuzzy(s, s))
}

func TestFuzzy_TokenOrderIrrelevant(t *testing.T) {
	a := "adaptive quantization for video encoding"
	b := "video encoding for adaptive quantization"
	assert.Equal(t, 1.0, Fuzzy(a, b))
}

func TestFuzzy_CaseAndPunctuationInsensitive(t *testing.T) {
	a := "An apparatus, comprising: a sensor."
	b := "an apparatus comprising a sensor"
	assert.Equal(t, 1.0, Fuzzy(a, b))
}

func TestFuzzy_EmptyInputs(t *testing.T) {
	assert.Equal(t, 0.0, Fuzzy("", "anything"))
	assert.Equal(t, 0.0, Fuzzy("anything", ""))
	assert.Equal(t, 0.0, Fuzzy("", ""))
	assert.Equal(t, 0.0, Fuzzy("...", "anything")) // punctuation only
}

func TestFuzzy_PartialOverlapScoresBetween(t *testing.T) {
	a := "adaptive bitrate streaming over cellular networks"
	b := "adaptive bitrate streaming with buffer control"
	got := Fuzzy(a, b)
	assert.Greater(t, got, 0.5)
	assert.Less(t, got, 1.0)
}

func TestFuzzy_DisjointTextScoresLow(t *testing.T) {
	a := "pharmaceutical composition comprising an antibody"
	b := "wireless communication network handover protocol"
	assert.Less(t, Fuzzy(a, b), 0.5)
}

func TestFuzzy_Symmetric(t *testing.T) {
	a := "a transform unit performing discrete cosine transforms"
	b := "discrete wavelet transform for image compression"
	assert.InDelta(t, Fuzzy(a, b), Fuzzy(b, a), 1e-12)
}

func TestFuzzy_SubsetScoresHigh(t *testing.T) {
	a := "adaptive quantization"
	b := "a method for encoding video frames using adaptive quantization in real time"
	assert.Greater(t, Fuzzy(a, b), 0.9)
}

func TestCombined_Weighting(t *testing.T) {
	assert.InDelta(t, 0.7, Combined(1.0, 0.0, 0.7), 1e-12)
	assert.InDelta(t, 0.3, Combined(0.0, 1.0, 0.7), 1e-12)
	assert.InDelta(t, 0.5, Combined(0.5, 0.5, 0.7), 1e-12)
}

func TestCombined_IdenticalInputsReturnedExactly(t *testing.T) {
	for _, v := range []float64{0, 0.123456789, 1.0 / 3.0, 0.999, 1} {
		for _, w := range []float64{0, 0.3, 0.7, 1} {
			assert.Equal(t, v, Combined(v, v, w), "v=%v w=%v", v, w)
		}
	}
}

func TestCombined_WeightClamped(t *testing.T) {
	assert.Equal(t, Combined(0.9, 0.1, 1), Combined(0.9, 0.1, 3.5))
	assert.Equal(t, Combined(0.9, 0.1, 0), Combined(0.9, 0.1, -2))
}

func TestCombined_MonotonicInVector(t *testing.T) {
	prev := -1.0
	for v := 0.0; v <= 1.0; v += 0.1 {
		got := Combined(v, 0.4, 0.7)
		assert.Greater(t, got, prev)
		prev = got
	}
}

func TestCombined_BoundedByInputs(t *testing.T) {
	for _, pair := range [][2]float64{{0.2, 0.8}, {0.9, 0.1}, {0.5, 0.5}} {
		got := Combined(pair[0], pair[1], 0.7)
		lo := math.Min(pair[0], pair[1])
		hi := math.Max(pair[0], pair[1])
		assert.GreaterOrEqual(t, got, lo)
		assert.LessOrEqual(t, got, hi)
	}
}
