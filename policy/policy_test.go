package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRefundPercent_Boundaries(t *testing.T) {
	tables := Default()

	tests := []struct {
		name  string
		hours float64
		want  int
	}{
		{"well under 2 hours", 0, 0},
		{"just under 2 hours", 1.99, 0},
		{"exactly 2 hours", 2, 50},
		{"between 2 and 4", 3, 50},
		{"just under 4 hours", 3.99, 50},
		{"exactly 4 hours", 4, 100},
		{"well over 4 hours", 48, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tables.RefundPercent(tt.hours))
		})
	}
}

func TestLoad_MissingFile_FallsBackToDefault(t *testing.T) {
	tables, err := Load("")
	assert.NoError(t, err)
	assert.Equal(t, Default(), tables)

	tables, err = Load("/nonexistent/path/policy.yaml")
	assert.NoError(t, err)
	assert.Equal(t, Default(), tables)
}

func TestSLAFor(t *testing.T) {
	tables := Default()

	tier, ok := tables.SLAFor("critical")
	assert.True(t, ok)
	assert.Equal(t, tier.ResponseWithin.Hours(), 1.0)

	_, ok = tables.SLAFor("nonexistent")
	assert.False(t, ok)
}
