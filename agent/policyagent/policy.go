// Package policyagent implements the Policy Agent (spec.md §4.9):
// retrieve policy chunks, prompt the LLM grounded on them, score the
// answer's grounding, and refuse rather than answer ungrounded.
package policyagent

import (
	"context"
	"sort"
	"strconv"

	"github.com/converge-ai/convergeai/agent"
	"github.com/converge-ai/convergeai/external/llm"
	"github.com/converge-ai/convergeai/metrics"
	"github.com/converge-ai/convergeai/retrieval"
)

// groundingFloor is spec.md §4.9's refusal threshold: answers scoring
// below this are not returned to the user.
const groundingFloor = 0.60

// provenanceTopN is the number of retrieved chunks cited alongside a
// grounded answer.
const provenanceTopN = 3

// policyNamespace scopes retrieval to the policy document corpus.
const policyNamespace = "policy"

const systemPrompt = `You are a customer-service assistant for a home-services marketplace.
Answer only using the provided policy context. If the context does not
contain the answer, say you don't have that information.`

// Agent implements agent.Handler for policy_inquiry.
type Agent struct {
	Retrieval *retrieval.Engine
	LLM       llm.Client
	Metrics   *metrics.Exporter
}

var _ agent.Handler = (*Agent)(nil)

func (a *Agent) Execute(ctx context.Context, in agent.Input) agent.Outcome {
	chunks := a.Retrieval.Retrieve(ctx, in.Text, policyNamespace, retrieval.DefaultTopK)
	if len(chunks) == 0 {
		a.recordRefusal("no_retrieval")
		return agent.Outcome{ReplyText: refusalReply(), ActionTaken: "policy_refused"}
	}

	prompt := buildPrompt(in.Text, chunks)
	answer, err := a.LLM.Generate(ctx, systemPrompt, []llm.Message{{Role: "user", Content: prompt}}, 400)
	if err != nil {
		return agent.Outcome{ReplyText: "I'm having trouble answering that right now. Please try again shortly.", Err: err}
	}

	score := retrieval.GroundingScore(answer, chunks)
	if a.Metrics != nil {
		a.Metrics.RecordGroundingScore(score)
	}
	if score < groundingFloor {
		a.recordRefusal("low_grounding")
		return agent.Outcome{ReplyText: refusalReply(), ActionTaken: "policy_refused", Metadata: map[string]string{"grounding_score": formatScore(score)}}
	}

	provenance := topProvenance(chunks, provenanceTopN)
	return agent.Outcome{
		ReplyText:   answer,
		ActionTaken: "policy_answered",
		Metadata:    provenanceMetadata(score, provenance),
	}
}

func (a *Agent) recordRefusal(reason string) {
	if a.Metrics != nil {
		a.Metrics.RecordRefusal(reason)
	}
}

func refusalReply() string {
	return "I don't have reliable information to answer that. I'd recommend checking with our support team directly."
}

func buildPrompt(question string, chunks []retrieval.Chunk) string {
	out := "Context:\n"
	for _, c := range chunks {
		out += "- " + c.Text + "\n"
	}
	out += "\nQuestion: " + question
	return out
}

func topProvenance(chunks []retrieval.Chunk, n int) []retrieval.Chunk {
	sorted := make([]retrieval.Chunk, len(chunks))
	copy(sorted, chunks)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].NormalizedScore > sorted[j].NormalizedScore })
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

func provenanceMetadata(score float32, top []retrieval.Chunk) map[string]string {
	m := map[string]string{"grounding_score": formatScore(score)}
	for i, c := range top {
		m["provenance_"+strconv.Itoa(i)] = c.ChunkID
	}
	return m
}

func formatScore(f float32) string {
	return strconv.FormatFloat(float64(f), 'f', 3, 32)
}
