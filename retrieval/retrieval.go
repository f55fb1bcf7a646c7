// Package retrieval implements the Retrieval Engine (spec.md §4.3): chunk
// retrieval against the external embedding and vector-store collaborators,
// the normalize_score piecewise-linear remap, and the token-overlap
// grounding scorer that gates the Policy Agent's answers. Fusion across
// multiple candidate sets follows the teacher's Reciprocal Rank Fusion
// (ai/core/retrieval/adaptive_retrieval.go), with RRFK=60 kept as-is.
package retrieval

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"github.com/converge-ai/convergeai/external/embedding"
	"github.com/converge-ai/convergeai/external/vectorstore"
)

// RRFK is the Reciprocal Rank Fusion constant, unchanged from the teacher.
const RRFK = 60

// DefaultTopK is the default k for retrieve (spec.md §4.3 / §6).
const DefaultTopK = 7

// Chunk is one retrieved candidate, carrying both the engine's raw score
// and its normalized counterpart.
type Chunk struct {
	ChunkID         string
	Text            string
	RawScore        float32
	NormalizedScore float32
	Metadata        map[string]string
}

// Engine retrieves and scores policy chunks.
type Engine struct {
	embed  embedding.Client
	vector vectorstore.Store
}

// New builds an Engine over the embedding and vector-store collaborators.
func New(embed embedding.Client, vector vectorstore.Store) *Engine {
	return &Engine{embed: embed, vector: vector}
}

// Retrieve implements spec.md §4.3's retrieve operation. Retrieval errors
// are non-fatal: the engine returns an empty, nil-error result and leaves
// the decision to the caller (e.g. PolicyAgent refuses below threshold).
func (e *Engine) Retrieve(ctx context.Context, queryText, namespace string, k int) []Chunk {
	if k <= 0 {
		k = DefaultTopK
	}

	vec, err := e.embed.Embed(ctx, queryText)
	if err != nil {
		return nil
	}

	matches, err := e.vector.Query(ctx, vec, k, vectorstore.Filter{Namespace: namespace})
	if err != nil {
		return nil
	}

	out := make([]Chunk, 0, len(matches))
	for _, m := range matches {
		out = append(out, Chunk{
			ChunkID:         m.ID,
			Text:            m.Metadata["content"],
			RawScore:        m.Score,
			NormalizedScore: NormalizeScore(m.Score),
			Metadata:        m.Metadata,
		})
	}
	return out
}

// NormalizeScore is the spec.md §4.3 piecewise-linear remap: dense-retrieval
// raw scores in the typical relevant range of 0.60-0.85 are stretched into
// [0.90, 1.00]; scores below 0.60 are passed through unchanged. Monotone
// non-decreasing over [0,1], so ordering among chunks is preserved.
//
// The absolute output is not comparable to a raw cosine similarity — it is
// a display/threshold convenience, not a calibrated probability.
func NormalizeScore(raw float32) float32 {
	switch {
	case raw >= 0.75:
		return 0.95 + (raw-0.75)*0.20
	case raw >= 0.60:
		return 0.90 + (raw-0.60)*(1.0/3.0)
	default:
		return raw
	}
}

var tokenRe = regexp.MustCompile(`[a-z0-9]+`)

// tokenize lowercases and strips punctuation, per spec.md §4.3.
func tokenize(text string) []string {
	return tokenRe.FindAllString(strings.ToLower(text), -1)
}

// GroundingScore implements spec.md §4.3's grounding_score: the fraction of
// answer tokens (length >= 4, after normalization) that appear verbatim in
// the concatenation of retrieved chunk texts, with multi-word spans (>= 3
// tokens) weighted 1.5x a single-token match. A 1.1x boost applies if any
// chunk's NormalizedScore >= 0.95, capped at 1.0.
func GroundingScore(answerText string, chunks []Chunk) float32 {
	answerTokens := filterShort(tokenize(answerText))
	if len(answerTokens) == 0 {
		return 0
	}

	var corpus strings.Builder
	boost := false
	for _, c := range chunks {
		corpus.WriteString(c.Text)
		corpus.WriteString(" ")
		if c.NormalizedScore >= 0.95 {
			boost = true
		}
	}
	corpusTokens := tokenize(corpus.String())
	corpusSet := make(map[string]bool, len(corpusTokens))
	for _, t := range corpusTokens {
		corpusSet[t] = true
	}

	var matched, total float32
	i := 0
	for i < len(answerTokens) {
		spanLen := matchingSpanLength(answerTokens, i, corpusSet)
		weight := float32(1.0)
		if spanLen >= 3 {
			weight = 1.5
		}
		if spanLen > 0 {
			matched += weight
		}
		total += weight
		if spanLen > 0 {
			i += spanLen
		} else {
			i++
		}
	}

	if total == 0 {
		return 0
	}
	score := matched / total
	if boost {
		score *= 1.1
	}
	if score > 1.0 {
		score = 1.0
	}
	return score
}

// matchingSpanLength returns the length of the longest run of tokens
// starting at i that all appear in corpusSet, 0 if answerTokens[i] itself
// does not appear.
func matchingSpanLength(tokens []string, i int, corpusSet map[string]bool) int {
	if !corpusSet[tokens[i]] {
		return 0
	}
	n := 1
	for i+n < len(tokens) && corpusSet[tokens[i+n]] {
		n++
	}
	return n
}

func filterShort(tokens []string) []string {
	out := tokens[:0:0]
	for _, t := range tokens {
		if len(t) >= 4 {
			out = append(out, t)
		}
	}
	return out
}

// rrfCandidate is one document scored under Reciprocal Rank Fusion.
type rrfCandidate struct {
	id    string
	score float32
}

// FuseRRF combines two ranked id lists (e.g. lexical and vector search)
// into a single ranking via Reciprocal Rank Fusion, the teacher's fusion
// strategy for hybrid retrieval.
func FuseRRF(rankingA, rankingB []string) []string {
	scores := make(map[string]float32)
	for rank, id := range rankingA {
		scores[id] += 1.0 / float32(RRFK+rank+1)
	}
	for rank, id := range rankingB {
		scores[id] += 1.0 / float32(RRFK+rank+1)
	}

	candidates := make([]rrfCandidate, 0, len(scores))
	for id, score := range scores {
		candidates = append(candidates, rrfCandidate{id: id, score: score})
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })

	out := make([]string, len(candidates))
	for i, c := range candidates {
		out[i] = c.id
	}
	return out
}
