package alert

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/converge-ai/convergeai/store"
)

type fakeAlertRepo struct {
	store.AlertRepo
	recent []store.Alert
}

func (f *fakeAlertRepo) FindRecent(ctx context.Context, q store.FindRecentAlerts) ([]store.Alert, error) {
	var out []store.Alert
	for _, a := range f.recent {
		if a.Type == q.Type && a.ResourceKind == q.ResourceKind && a.ResourceID == q.ResourceID && a.CreatedAt.After(q.Since) {
			out = append(out, a)
		}
	}
	return out, nil
}

func TestDeduplicator_NoRedis_FallsThroughToDB(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	repo := &fakeAlertRepo{recent: []store.Alert{
		{Type: store.AlertTypeSLABreach, ResourceKind: store.AlertResourceComplaint, ResourceID: 1, CreatedAt: now.Add(-1 * time.Hour)},
	}}
	d := NewDeduplicator(nil, repo)

	dup, err := d.IsDuplicate(context.Background(), store.AlertTypeSLABreach, store.AlertResourceComplaint, 1, 24*time.Hour, now)
	require.NoError(t, err)
	assert.True(t, dup)
}

func TestDeduplicator_OutsideWindowIsNotDuplicate(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	repo := &fakeAlertRepo{recent: []store.Alert{
		{Type: store.AlertTypeSLABreach, ResourceKind: store.AlertResourceComplaint, ResourceID: 1, CreatedAt: now.Add(-25 * time.Hour)},
	}}
	d := NewDeduplicator(nil, repo)

	dup, err := d.IsDuplicate(context.Background(), store.AlertTypeSLABreach, store.AlertResourceComplaint, 1, 24*time.Hour, now)
	require.NoError(t, err)
	assert.False(t, dup)
}

func TestDeduplicator_DifferentResourceIsNotDuplicate(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	repo := &fakeAlertRepo{recent: []store.Alert{
		{Type: store.AlertTypeSLABreach, ResourceKind: store.AlertResourceComplaint, ResourceID: 1, CreatedAt: now},
	}}
	d := NewDeduplicator(nil, repo)

	dup, err := d.IsDuplicate(context.Background(), store.AlertTypeSLABreach, store.AlertResourceComplaint, 2, 24*time.Hour, now)
	require.NoError(t, err)
	assert.False(t, dup)
}
