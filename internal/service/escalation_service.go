package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/od-tracker-api/internal/models"
)

// escalationReason is the fixed text recorded on every auto-escalation.
const escalationReason = "Mentor did not act within 24 hours"

type escalationRequestStore interface {
	ListEscalationCandidates(ctx context.Context, cutoff time.Time) ([]models.ODRequest, error)
	MarkEscalated(ctx context.Context, id, reason string, at time.Time) error
}

type escalationNotifier interface {
	EmitDaily(ctx context.Context, guardKey string, n models.Notification) bool
}

type escalationRecorder interface {
	ObserveEscalations(count int)
}

// EscalationService sweeps for submitted requests the mentor has not acted on
// within the threshold. The sweep is best effort: a missed tick is not an
// error, the next tick picks up whatever is currently overdue.
type EscalationService struct {
	requests  escalationRequestStore
	notifier  escalationNotifier
	metrics   escalationRecorder
	logger    *zap.Logger
	threshold time.Duration
	now       func() time.Time
}

// NewEscalationService constructs the service. threshold <= 0 defaults to 24h.
func NewEscalationService(requests escalationRequestStore, notifier escalationNotifier, metrics escalationRecorder, logger *zap.Logger, threshold time.Duration) *EscalationService {
	if threshold <= 0 {
		threshold = 24 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EscalationService{
		requests:  requests,
		notifier:  notifier,
		metrics:   metrics,
		logger:    logger,
		threshold: threshold,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Sweep escalates every currently overdue request and emits at most one
// aggregate notification per calendar day. Returns the number escalated in
// this pass.
func (s *EscalationService) Sweep(ctx context.Context) (int, error) {
	now := s.now()
	cutoff := now.Add(-s.threshold)

	candidates, err := s.requests.ListEscalationCandidates(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("list escalation candidates: %w", err)
	}

	escalated := 0
	for _, request := range candidates {
		if err := s.requests.MarkEscalated(ctx, request.ID, escalationReason, now); err != nil {
			// a concurrent mentor action or sweep already settled this one
			if errors.Is(err, sql.ErrNoRows) {
				continue
			}
			s.logger.Warn("failed to escalate request",
				zap.String("request_id", request.ID), zap.Error(err))
			continue
		}
		escalated++
	}

	if s.metrics != nil && escalated > 0 {
		s.metrics.ObserveEscalations(escalated)
	}
	if escalated > 0 {
		s.notifier.EmitDaily(ctx, "escalated", models.Notification{
			Severity:    models.SeverityWarning,
			Title:       "OD requests escalated",
			Description: fmt.Sprintf("%d OD requests were escalated because the mentor did not act within %s", escalated, s.threshold),
		})
		s.logger.Info("escalation sweep complete",
			zap.Int("escalated", escalated), zap.Time("cutoff", cutoff))
	}
	return escalated, nil
}

// Run drives periodic sweeps until the context is cancelled. Intended to be
// launched from main as a goroutine.
func (s *EscalationService) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("escalation monitor stopped")
			return
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil {
				s.logger.Warn("escalation sweep failed", zap.Error(err))
			}
		}
	}
}
