package complaint

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/converge-ai/convergeai/store"
)

func TestDerivePriority(t *testing.T) {
	sentimentBad := float32(-0.9)
	sentimentModeratelyBad := float32(-0.6)
	sentimentMild := float32(-0.2)

	tests := []struct {
		name        string
		issueType   store.ComplaintType
		description string
		sentiment   *float32
		want        store.ComplaintPriority
	}{
		{"legal keyword wins regardless of sentiment", store.ComplaintTypeOther, "I will pursue legal action", &sentimentMild, store.ComplaintPriorityCritical},
		{"very negative sentiment bumps to critical", store.ComplaintTypeOther, "this is bad", &sentimentBad, store.ComplaintPriorityCritical},
		{"urgent keyword bumps to high", store.ComplaintTypeOther, "this is urgent please help", nil, store.ComplaintPriorityHigh},
		{"immediately keyword bumps to high", store.ComplaintTypeBilling, "need this fixed immediately", nil, store.ComplaintPriorityHigh},
		{"emergency keyword bumps to high", store.ComplaintTypeOther, "this is an emergency", nil, store.ComplaintPriorityHigh},
		{"refund_issue always bumps to high", store.ComplaintTypeRefundIssue, "please refund me", nil, store.ComplaintPriorityHigh},
		{"service_quality with bad sentiment bumps to high", store.ComplaintTypeServiceQuality, "not great service", &sentimentModeratelyBad, store.ComplaintPriorityHigh},
		{"service_quality with mild sentiment stays medium", store.ComplaintTypeServiceQuality, "not great service", &sentimentMild, store.ComplaintPriorityMedium},
		{"service_quality with no sentiment stays medium", store.ComplaintTypeServiceQuality, "the cleaner missed a spot", nil, store.ComplaintPriorityMedium},
		{"provider_behavior with bad sentiment does not bump to high", store.ComplaintTypeProviderBehavior, "the provider was rude", &sentimentModeratelyBad, store.ComplaintPriorityLow},
		{"cancellation_issue defaults to medium", store.ComplaintTypeCancellationIssue, "my booking got cancelled", nil, store.ComplaintPriorityMedium},
		{"billing with no signals defaults to low", store.ComplaintTypeBilling, "my invoice looks off", nil, store.ComplaintPriorityLow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := derivePriority(tt.issueType, tt.description, tt.sentiment)
			assert.Equal(t, tt.want, got)
		})
	}
}
