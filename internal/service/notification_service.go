package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/od-tracker-api/internal/models"
	appErrors "github.com/noah-isme/od-tracker-api/pkg/errors"
	"github.com/noah-isme/od-tracker-api/pkg/jobs"
)

type notificationStore interface {
	Create(ctx context.Context, n *models.Notification) error
	List(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, error)
	MarkRead(ctx context.Context, id string, at time.Time) error
}

type dailyGuard interface {
	AcquireDailyGuard(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// NotificationService emits workflow events and serves the notification feed.
// Emission goes through the background queue so a slow insert never blocks an
// approval action.
type NotificationService struct {
	store  notificationStore
	guard  dailyGuard
	queue  *jobs.Queue
	logger *zap.Logger
}

// NewNotificationService constructs the service. The queue is optional; when
// nil, notifications are written synchronously.
func NewNotificationService(store notificationStore, guard dailyGuard, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{store: store, guard: guard, logger: logger}
}

// AttachQueue wires the background dispatch queue after construction, which
// breaks the construction cycle between the service and its handler.
func (s *NotificationService) AttachQueue(queue *jobs.Queue) {
	s.queue = queue
}

// DispatchHandler is the queue handler persisting queued notifications.
func (s *NotificationService) DispatchHandler(ctx context.Context, job jobs.Job) error {
	n, ok := job.Payload.(*models.Notification)
	if !ok {
		return fmt.Errorf("unexpected payload type %T for job %s", job.Payload, job.ID)
	}
	return s.store.Create(ctx, n)
}

// Emit records one notification event.
func (s *NotificationService) Emit(ctx context.Context, n models.Notification) {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	if s.queue != nil {
		if err := s.queue.Enqueue(jobs.Job{ID: n.ID, Type: "notification", Payload: &n}); err == nil {
			return
		}
		// fall through to synchronous write when the queue is unavailable
	}
	if err := s.store.Create(ctx, &n); err != nil {
		s.logger.Warn("failed to persist notification",
			zap.String("title", n.Title), zap.Error(err))
	}
}

// EmitDaily records a notification at most once per guard key per day.
// Returns true when this call won the guard and emitted.
func (s *NotificationService) EmitDaily(ctx context.Context, guardKey string, n models.Notification) bool {
	key := fmt.Sprintf("%s-%s", guardKey, time.Now().UTC().Format("2006-01-02"))
	acquired, err := s.guard.AcquireDailyGuard(ctx, key, 48*time.Hour)
	if err != nil {
		s.logger.Warn("daily guard unavailable, emitting anyway",
			zap.String("key", key), zap.Error(err))
		acquired = true
	}
	if !acquired {
		return false
	}
	n.DedupKey = &key
	s.Emit(ctx, n)
	return true
}

// List returns the notification feed for a recipient or department.
func (s *NotificationService) List(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, error) {
	items, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list notifications")
	}
	return items, nil
}

// MarkRead flags one notification as read.
func (s *NotificationService) MarkRead(ctx context.Context, id string) error {
	if err := s.store.MarkRead(ctx, id, time.Now().UTC()); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark notification read")
	}
	return nil
}
