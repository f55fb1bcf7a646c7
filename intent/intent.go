// Package intent implements the Intent Classifier (spec.md §4.2): a
// layered keyword/regex matcher in the style of the teacher's
// ai/routing.RuleMatcher, trimmed to a single rule layer since
// ConvergeAI has no semantic-routing fallback to wire it to.
package intent

import (
	"context"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/converge-ai/convergeai/store"
)

// Intent is the enumerated tag spec.md §9 requires in place of dynamic
// agent discovery: a closed set, matched at compile time by the
// dispatch table in package agent.
type Intent string

const (
	IntentGreeting       Intent = "greeting"
	IntentBooking        Intent = "booking"
	IntentReschedule     Intent = "reschedule"
	IntentCancellation   Intent = "cancellation"
	IntentComplaint      Intent = "complaint"
	IntentServiceInquiry Intent = "service_inquiry"
	IntentPolicyInquiry  Intent = "policy_inquiry"
	IntentPriceInquiry   Intent = "price_inquiry"
	IntentStatusInquiry  Intent = "status_inquiry"
	IntentOther          Intent = "other"
	intentWorkflowCancel Intent = "cancellation_of_workflow"
)

// lowConfidenceThreshold is spec.md §4.2's floor: below it, the intent is
// forced to "other" with LowConfidence set.
const lowConfidenceThreshold = 0.5

// Result is the Intent Classifier's contract output.
type Result struct {
	Intent        Intent
	Confidence    float32
	Entities      map[string]string
	LowConfidence bool
}

type rule struct {
	intent   Intent
	patterns []*regexp.Regexp
	score    float32
}

// Classifier is a layered keyword/regex matcher, stateless across calls.
type Classifier struct {
	rules          []rule
	workflowCancel []*regexp.Regexp
	entityPatterns map[string]*regexp.Regexp
}

// New builds a Classifier with the spec.md §4.2 intent vocabulary.
func New() *Classifier {
	return &Classifier{
		rules: []rule{
			{IntentGreeting, compileAll(`^\s*(hi|hello|hey|good morning|good afternoon|good evening)\b`), 0.9},
			{IntentCancellation, compileAll(`\bcancel\b.*\b(booking|order|appointment)\b`, `\bcancel my\b`), 0.85},
			{IntentReschedule, compileAll(`\breschedule\b`, `\bmove my\b.*\b(booking|appointment)\b`, `\bchange the (date|time)\b`), 0.85},
			{IntentComplaint, compileAll(`\bcomplain`, `\bterrible\b`, `\bawful\b`, `\bnot happy\b`, `\bdidn'?t show up\b`, `\bpoor service\b`, `\brefund\b.*\bbad\b`), 0.8},
			{IntentStatusInquiry, compileAll(`\bwhere is my\b`, `\bstatus of\b`, `\btrack my\b`, `\bbooking status\b`), 0.8},
			{IntentPriceInquiry, compileAll(`\bhow much\b`, `\bprice of\b`, `\bcost of\b`, `\brate for\b`), 0.75},
			{IntentPolicyInquiry, compileAll(`\bpolicy\b`, `\brefund policy\b`, `\bterms\b`, `\bcancellation policy\b`), 0.75},
			{IntentServiceInquiry, compileAll(`\bwhat services\b`, `\bdo you (offer|have)\b`, `\bcategories\b`, `\brecommend`), 0.7},
			{IntentBooking, compileAll(`\bbook\b`, `\bneed\b.*\b(repair|cleaning|service|technician|plumber|electrician)\b`, `\bschedule a\b`, `\bi need\b`), 0.8},
		},
		workflowCancel: compileAll(`^\s*(cancel|stop|never\s*mind)\s*$`),
		entityPatterns: map[string]*regexp.Regexp{
			"pincode":  regexp.MustCompile(`\b\d{6}\b`),
			"date":     regexp.MustCompile(`\b(today|tomorrow|\d{4}-\d{2}-\d{2})\b`),
			"time":     regexp.MustCompile(`\b([01]?\d|2[0-3])(:[0-5]\d)?\s*(am|pm)?\b`),
			"quantity": regexp.MustCompile(`\b(\d{1,2})\s*(units?|items?)?\b`),
			"booking_id": regexp.MustCompile(`\b(?:booking|order)\s*#?(\d+)\b`),
			"category_id":    regexp.MustCompile(`\bcategory\s*#?(\d+)\b`),
			"subcategory_id": regexp.MustCompile(`\bsubcategory\s*#?(\d+)\b`),
			"rate_card_id":   regexp.MustCompile(`\brate[\s-]?card\s*#?(\d+)\b`),
			"max_price":      regexp.MustCompile(`(?:under|below|less than)\s*\$?(\d+(?:\.\d+)?)`),
			"min_price":      regexp.MustCompile(`(?:over|above|more than)\s*\$?(\d+(?:\.\d+)?)`),
		},
	}
}

func compileAll(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile(`(?i)` + p)
	}
	return out
}

// IsWorkflowCancelPattern reports whether text matches the high-confidence
// "cancel the current workflow" utterance spec.md §4.2 carves out from the
// normal active-workflow skip rule.
func (c *Classifier) IsWorkflowCancelPattern(text string) bool {
	for _, re := range c.workflowCancel {
		if re.MatchString(strings.TrimSpace(text)) {
			return true
		}
	}
	return false
}

// Classify implements the spec.md §4.2 contract.
func (c *Classifier) Classify(text string) Result {
	entities := c.extractEntities(text)

	var best rule
	var bestScore float32
	for _, r := range c.rules {
		for _, re := range r.patterns {
			if re.MatchString(text) && r.score > bestScore {
				best = r
				bestScore = r.score
			}
		}
	}

	if bestScore < lowConfidenceThreshold {
		return Result{Intent: IntentOther, Confidence: bestScore, Entities: entities, LowConfidence: true}
	}
	return Result{Intent: best.intent, Confidence: bestScore, Entities: entities}
}

func (c *Classifier) extractEntities(text string) map[string]string {
	out := make(map[string]string)
	for name, re := range c.entityPatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			if len(m) > 1 && m[1] != "" {
				out[name] = m[1]
			} else {
				out[name] = m[0]
			}
		}
	}
	out["query"] = strings.TrimSpace(text)
	return out
}

// IsAffirmative matches the confirmation-step token set of spec.md §4.5.
func IsAffirmative(text string) bool {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "yes", "y", "confirm", "ok", "sure", "go ahead":
		return true
	default:
		return false
	}
}

// ParseQuantity parses a free-text quantity entity into an int, used by the
// booking workflow's quantity slot extractor.
func ParseQuantity(s string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, false
	}
	return n, true
}

// FeedbackOutcome tags a routing decision with whether the user went along
// with it.
type FeedbackOutcome string

const (
	// FeedbackPositive means the routed reply was not immediately abandoned.
	FeedbackPositive FeedbackOutcome = "positive"
	// FeedbackSwitch means the very next turn cancelled the workflow the
	// routing decision had just started.
	FeedbackSwitch FeedbackOutcome = "switch"
)

// FeedbackRecorder persists the Classifier's implicit routing feedback.
// Grounded on the teacher's ai/routing.FeedbackCollector, trimmed to
// recording only: this classifier's rule set is a fixed regex table
// (New's doc comment), so there are no per-user weights to adjust.
type FeedbackRecorder struct {
	Repo store.RouterFeedbackRepo
}

// RecordOutcome persists one feedback event. A nil receiver or nil Repo is
// a no-op, so callers that don't care about feedback (tests, offline
// tools) can leave it unset.
func (r *FeedbackRecorder) RecordOutcome(ctx context.Context, userRef uint64, input string, predicted Intent, outcome FeedbackOutcome) {
	if r == nil || r.Repo == nil {
		return
	}
	_, err := r.Repo.CreateRouterFeedback(ctx, store.CreateRouterFeedback{
		UserRef:   userRef,
		Input:     input,
		Predicted: string(predicted),
		Feedback:  string(outcome),
		Source:    "rule",
	})
	if err != nil {
		slog.Warn("intent: failed to record router feedback", "error", err)
	}
}
