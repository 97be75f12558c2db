package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/od-tracker-api/internal/models"
)

type mockEscalationStore struct {
	candidates []models.ODRequest
	listErr    error
	markErrs   map[string]error
	marked     []string
	cutoffs    []time.Time
}

func (m *mockEscalationStore) ListEscalationCandidates(_ context.Context, cutoff time.Time) ([]models.ODRequest, error) {
	m.cutoffs = append(m.cutoffs, cutoff)
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.candidates, nil
}

func (m *mockEscalationStore) MarkEscalated(_ context.Context, id, reason string, _ time.Time) error {
	if err, ok := m.markErrs[id]; ok {
		return err
	}
	m.marked = append(m.marked, id)
	return nil
}

func TestSweepEscalatesOverdueRequests(t *testing.T) {
	store := &mockEscalationStore{candidates: []models.ODRequest{
		{ID: "req-1", Status: models.StatusSubmitted},
		{ID: "req-2", Status: models.StatusSubmitted},
	}}
	notifier := &mockNotifier{}
	metrics := &mockTransitionRecorder{}
	svc := NewEscalationService(store, notifier, metrics, zap.NewNop(), 24*time.Hour)
	fixed := time.Date(2025, time.September, 15, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	escalated, err := svc.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, escalated)
	assert.Equal(t, []string{"req-1", "req-2"}, store.marked)

	require.Len(t, store.cutoffs, 1)
	assert.Equal(t, fixed.Add(-24*time.Hour), store.cutoffs[0])
	assert.Equal(t, 2, metrics.escalations)

	// one aggregate notification, not one per request
	require.Len(t, notifier.daily["escalated"], 1)
	assert.Contains(t, notifier.daily["escalated"][0].Description, "2 OD requests")
}

func TestSweepSkipsConcurrentlySettledRequests(t *testing.T) {
	store := &mockEscalationStore{
		candidates: []models.ODRequest{
			{ID: "req-1", Status: models.StatusSubmitted},
			{ID: "req-2", Status: models.StatusSubmitted},
		},
		markErrs: map[string]error{"req-1": sql.ErrNoRows},
	}
	notifier := &mockNotifier{}
	svc := NewEscalationService(store, notifier, nil, zap.NewNop(), 24*time.Hour)

	escalated, err := svc.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, escalated)
	assert.Equal(t, []string{"req-2"}, store.marked)
}

func TestSweepNothingOverdue(t *testing.T) {
	store := &mockEscalationStore{}
	notifier := &mockNotifier{}
	metrics := &mockTransitionRecorder{}
	svc := NewEscalationService(store, notifier, metrics, zap.NewNop(), 24*time.Hour)

	escalated, err := svc.Sweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, escalated)
	assert.Empty(t, notifier.daily)
	assert.Zero(t, metrics.escalations)
}

func TestSweepListError(t *testing.T) {
	store := &mockEscalationStore{listErr: assert.AnError}
	svc := NewEscalationService(store, &mockNotifier{}, nil, zap.NewNop(), 24*time.Hour)

	_, err := svc.Sweep(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)
}

func TestNewEscalationServiceDefaultsThreshold(t *testing.T) {
	svc := NewEscalationService(&mockEscalationStore{}, &mockNotifier{}, nil, zap.NewNop(), 0)
	assert.Equal(t, 24*time.Hour, svc.threshold)
}

func TestRunStopsOnContextCancel(t *testing.T) {
	svc := NewEscalationService(&mockEscalationStore{}, &mockNotifier{}, nil, zap.NewNop(), 24*time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		svc.Run(ctx, time.Hour)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after context cancellation")
	}
}
