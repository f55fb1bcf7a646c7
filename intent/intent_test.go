package intent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/converge-ai/convergeai/store"
)

func TestClassify_Greeting(t *testing.T) {
	c := New()
	r := c.Classify("hello there")
	assert.Equal(t, IntentGreeting, r.Intent)
	assert.False(t, r.LowConfidence)
}

func TestClassify_Booking(t *testing.T) {
	c := New()
	r := c.Classify("I need to book a plumber")
	assert.Equal(t, IntentBooking, r.Intent)
}

func TestClassify_LowConfidenceFallsBackToOther(t *testing.T) {
	c := New()
	r := c.Classify("xyzzy plugh")
	assert.Equal(t, IntentOther, r.Intent)
	assert.True(t, r.LowConfidence)
}

func TestClassify_ExtractsEntities(t *testing.T) {
	c := New()
	r := c.Classify("what's the status of booking #482, pincode 560034")
	assert.Equal(t, "482", r.Entities["booking_id"])
	assert.Equal(t, "560034", r.Entities["pincode"])
}

func TestIsWorkflowCancelPattern(t *testing.T) {
	c := New()
	assert.True(t, c.IsWorkflowCancelPattern("never mind"))
	assert.True(t, c.IsWorkflowCancelPattern("  Cancel  "))
	assert.False(t, c.IsWorkflowCancelPattern("cancel my booking"))
}

func TestIsAffirmative(t *testing.T) {
	assert.True(t, IsAffirmative("yes"))
	assert.True(t, IsAffirmative(" Go Ahead "))
	assert.False(t, IsAffirmative("no thanks"))
}

func TestParseQuantity(t *testing.T) {
	n, ok := ParseQuantity("3")
	assert.True(t, ok)
	assert.Equal(t, 3, n)

	_, ok = ParseQuantity("three")
	assert.False(t, ok)
}

type fakeFeedbackRepo struct {
	store.RouterFeedbackRepo
	recorded []store.CreateRouterFeedback
}

func (f *fakeFeedbackRepo) CreateRouterFeedback(ctx context.Context, c store.CreateRouterFeedback) (store.RouterFeedback, error) {
	f.recorded = append(f.recorded, c)
	return store.RouterFeedback{}, nil
}

func TestFeedbackRecorder_RecordOutcome(t *testing.T) {
	repo := &fakeFeedbackRepo{}
	r := &FeedbackRecorder{Repo: repo}

	r.RecordOutcome(context.Background(), 1, "book a cleaning", IntentBooking, FeedbackPositive)

	require.Len(t, repo.recorded, 1)
	assert.Equal(t, "booking", repo.recorded[0].Predicted)
	assert.Equal(t, "positive", repo.recorded[0].Feedback)
}

func TestFeedbackRecorder_NilIsNoop(t *testing.T) {
	var r *FeedbackRecorder
	assert.NotPanics(t, func() {
		r.RecordOutcome(context.Background(), 1, "hi", IntentGreeting, FeedbackPositive)
	})

	r = &FeedbackRecorder{}
	assert.NotPanics(t, func() {
		r.RecordOutcome(context.Background(), 1, "hi", IntentGreeting, FeedbackPositive)
	})
}
