package retrieval

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeScore_Monotonic(t *testing.T) {
	samples := []float32{0, 0.1, 0.3, 0.59, 0.60, 0.65, 0.74, 0.75, 0.80, 0.9, 1.0}
	for i := 1; i < len(samples); i++ {
		prev := NormalizeScore(samples[i-1])
		cur := NormalizeScore(samples[i])
		assert.LessOrEqualf(t, prev, cur, "NormalizeScore(%v)=%v should be <= NormalizeScore(%v)=%v", samples[i-1], prev, samples[i], cur)
	}
}

func TestNormalizeScore_PassThroughBelow60(t *testing.T) {
	assert.Equal(t, float32(0.3), NormalizeScore(0.3))
	assert.Equal(t, float32(0.59), NormalizeScore(0.59))
}

func TestNormalizeScore_StretchedRange(t *testing.T) {
	assert.InDelta(t, 0.90, NormalizeScore(0.60), 1e-6)
	assert.InDelta(t, 0.95, NormalizeScore(0.75), 1e-6)
	assert.InDelta(t, 1.00, NormalizeScore(1.0), 1e-6)
}

func TestGroundingScore_EmptyAnswer(t *testing.T) {
	assert.Equal(t, float32(0), GroundingScore("", nil))
	assert.Equal(t, float32(0), GroundingScore("a an or", nil))
}

func TestGroundingScore_FullyGrounded(t *testing.T) {
	chunks := []Chunk{
		{ChunkID: "c1", Text: "Cancellations made within four hours receive a full refund."},
	}
	score := GroundingScore("cancellations made within four hours receive a full refund", chunks)
	assert.Equal(t, float32(1.0), score)
}

func TestGroundingScore_UngroundedTermsLowerScore(t *testing.T) {
	chunks := []Chunk{
		{ChunkID: "c1", Text: "Cancellations made within four hours receive a full refund."},
	}
	grounded := GroundingScore("cancellations made within four hours receive a full refund", chunks)
	partial := GroundingScore("spaceships teleport wizards through quantum portals", chunks)
	assert.Less(t, partial, grounded)
}

func TestGroundingScore_BoostOnHighNormalizedScore(t *testing.T) {
	lowScoreChunk := []Chunk{
		{ChunkID: "c1", Text: "Refund policy covers cancellations.", NormalizedScore: 0.5},
	}
	highScoreChunk := []Chunk{
		{ChunkID: "c1", Text: "Refund policy covers cancellations.", NormalizedScore: 0.95},
	}
	// Partially grounded answer so the 1.1x boost has room to move the
	// score without saturating at the 1.0 cap.
	answer := "refund policy extra unmatched"
	assert.Less(t, GroundingScore(answer, lowScoreChunk), GroundingScore(answer, highScoreChunk))
}

func TestFuseRRF_CombinesRankings(t *testing.T) {
	a := []string{"doc1", "doc2", "doc3"}
	b := []string{"doc3", "doc1", "doc4"}

	fused := FuseRRF(a, b)

	assert.Len(t, fused, 4)
	assert.Equal(t, "doc1", fused[0])
}
