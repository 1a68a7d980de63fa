package claimparse_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/claimscope/claimscope/internal/domain/patent"
	"github.com/claimscope/claimscope/internal/engine/claimparse"
)

func TestParse_NumberedBlocks(t *testing.T) {
	t.Parallel()

	text := "1. An apparatus comprising a sensor and a processor.\n" +
		"2. The apparatus of claim 1, further comprising a display unit."

	claims := claimparse.Parse(text)
	require.Len(t, claims, 2)
	require.NoError(t, claims.Validate())

	assert.Equal(t, 1, claims[0].Number)
	assert.True(t, claims[0].IsIndependent)
	assert.Equal(t, patent.KindApparatus, claims[0].Kind)

	assert.Equal(t, 2, claims[1].Number)
	assert.False(t, claims[1].IsIndependent)
	assert.Equal(t, 1, claims[1].ParentNumber)
}

func TestParse_WordedBlocks(t *testing.T) {
	t.Parallel()

	text := "Claim 1: A method for encoding video frames using motion estimation.\n" +
		"Claim 2: The method according to claim 1, wherein frames are buffered."

	claims := claimparse.Parse(text)
	require.Len(t, claims, 2)
	require.NoError(t, claims.Validate())

	assert.Equal(t, patent.KindMethod, claims[0].Kind)
	assert.True(t, claims[0].IsIndependent)
	assert.Equal(t, 1, claims[1].ParentNumber)
}

func TestParse_BlankInput(t *testing.T) {
	t.Parallel()

	assert.Empty(t, claimparse.Parse(""))
	assert.Empty(t, claimparse.Parse("   \n\t\n  "))
}

func TestParse_UnstructuredFallsBackToSingleClaim(t *testing.T) {
	t.Parallel()

	text := "A system for routing packets across heterogeneous networks without numbered claims."

	claims := claimparse.Parse(text)
	require.Len(t, claims, 1)
	require.NoError(t, claims.Validate())

	assert.Equal(t, 1, claims[0].Number)
	assert.True(t, claims[0].IsIndependent)
	assert.Equal(t, patent.KindSystem, claims[0].Kind)
	assert.Contains(t, claims[0].Text, "routing packets")
}

func TestParse_SmallestReferencedNumberWins(t *testing.T) {
	t.Parallel()

	text := "1. A device comprising a battery and a controller.\n" +
		"2. The device of claim 1, wherein the battery is rechargeable.\n" +
		"3. The device of claim 2 or claim 1, wherein the controller sleeps."

	claims := claimparse.Parse(text)
	require.Len(t, claims, 3)
	require.NoError(t, claims.Validate())

	assert.Equal(t, 1, claims[2].ParentNumber)
}

func TestParse_UnresolvableReferenceBecomesIndependent(t *testing.T) {
	t.Parallel()

	// Forward and dangling references cannot anchor a dependency chain.
	text := "1. The widget of claim 9, wherein the housing is sealed against moisture.\n" +
		"2. A widget comprising a sealed housing and a vibration dampener."

	claims := claimparse.Parse(text)
	require.Len(t, claims, 2)
	require.NoError(t, claims.Validate())

	assert.True(t, claims[0].IsIndependent)
	assert.Zero(t, claims[0].ParentNumber)
}

func TestParse_DependencyPhrasings(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		second string
	}{
		{"according to", "The method according to claim 1, wherein the signal is filtered."},
		{"as claimed in", "A method as claimed in claim 1, wherein the signal is amplified."},
		{"as set forth in", "The method as set forth in claim 1, further comprising logging."},
		{"of claim", "The method of claim 1, wherein sampling is adaptive."},
		{"claim then wherein", "A filter for use with claim 1, wherein coefficients are tuned."},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			text := "1. A method for filtering a noisy input signal digitally.\n2. " + tt.second
			claims := claimparse.Parse(text)
			require.Len(t, claims, 2)
			assert.False(t, claims[1].IsIndependent, "claim 2 should be dependent")
			assert.Equal(t, 1, claims[1].ParentNumber)
		})
	}
}

func TestParse_KindDetection(t *testing.T) {
	t.Parallel()

	tests := []struct {
		text string
		want patent.ClaimKind
	}{
		{"A method for compressing sensor telemetry in real time.", patent.KindMethod},
		{"A process for annealing a semiconductor wafer under vacuum.", patent.KindMethod},
		{"An apparatus comprising a heat exchanger and a pump assembly.", patent.KindApparatus},
		{"A device comprising an antenna array and a tuner circuit.", patent.KindApparatus},
		{"A system for managing distributed cache invalidation events.", patent.KindSystem},
		{"A composition of matter comprising polymer chains and a binder.", patent.KindUnspecified},
	}

	for _, tt := range tests {
		claims := claimparse.Parse("1. " + tt.text)
		require.Len(t, claims, 1)
		assert.Equal(t, tt.want, claims[0].Kind, "text: %s", tt.text)
	}
}

func TestParse_KeyElements(t *testing.T) {
	t.Parallel()

	text := `1. An apparatus comprising a pressure sensor, a microcontroller unit, and a wireless transceiver; wherein the sensor samples continuously.`

	claims := claimparse.Parse(text)
	require.Len(t, claims, 1)

	assert.Contains(t, claims[0].KeyElements, "pressure sensor")
	assert.Contains(t, claims[0].KeyElements, "microcontroller unit")
	assert.Contains(t, claims[0].KeyElements, "wireless transceiver")
}

func TestParse_StripsPageNumbersAndDuplicates(t *testing.T) {
	t.Parallel()

	text := "1. A method for indexing documents by semantic fingerprint.\n" +
		" -2- \n" +
		"2. The method of claim 1, wherein fingerprints are hashed.\n" +
		"2. The method of claim 1, wherein fingerprints are salted.\n" +
		"3. The method of claim 2, wherein hashes are truncated."

	claims := claimparse.Parse(text)
	require.NoError(t, claims.Validate())
	require.Len(t, claims, 3)

	assert.Equal(t, []int{1, 2, 3}, []int{claims[0].Number, claims[1].Number, claims[2].Number})
	assert.Equal(t, 2, claims[2].ParentNumber)
}

func TestParse_ShortBlocksAreDropped(t *testing.T) {
	t.Parallel()

	text := "1. Too short.\n2. A method for balancing load across worker processes dynamically."

	claims := claimparse.Parse(text)
	require.Len(t, claims, 1)
	assert.Equal(t, 2, claims[0].Number)
	assert.True(t, claims[0].IsIndependent)
}

func TestParse_MultilineClaimBody(t *testing.T) {
	t.Parallel()

	text := "1. An apparatus comprising:\n" +
		"a first electrode disposed on a substrate;\n" +
		"a second electrode spaced apart from the first electrode.\n" +
		"2. The apparatus of claim 1, wherein the substrate is flexible."

	claims := claimparse.Parse(text)
	require.Len(t, claims, 2)
	assert.Contains(t, claims[0].Text, "second electrode")
	assert.Equal(t, 1, claims[1].ParentNumber)
}
