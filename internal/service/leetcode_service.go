package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/od-tracker-api/internal/dto"
	"github.com/noah-isme/od-tracker-api/internal/models"
	appErrors "github.com/noah-isme/od-tracker-api/pkg/errors"
)

type leetCodeStore interface {
	Upsert(ctx context.Context, week *models.LeetCodeWeek) error
	ListByStudent(ctx context.Context, studentID string) ([]models.LeetCodeWeek, error)
}

// LeetCodeService manages the student-owned weekly practice records consumed
// by the submission gate.
type LeetCodeService struct {
	store     leetCodeStore
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewLeetCodeService constructs the service.
func NewLeetCodeService(store leetCodeStore, validate *validator.Validate, logger *zap.Logger) *LeetCodeService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LeetCodeService{
		store:     store,
		validator: validate,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Upsert creates or replaces the student's record for one practice week.
func (s *LeetCodeService) Upsert(ctx context.Context, studentID string, req dto.UpsertLeetCodeWeekRequest) (*models.LeetCodeWeek, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid practice week payload")
	}

	startDate, err := parseDate(req.StartDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "startDate must be formatted as YYYY-MM-DD")
	}
	endDate, err := parseDate(req.EndDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "endDate must be formatted as YYYY-MM-DD")
	}
	if endDate.Before(startDate) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "endDate is before startDate")
	}

	status := models.WeekStatus(req.Status)
	if req.Status == "" {
		status = models.WeekNotStarted
		if req.EasySolved+req.MediumSolved+req.HardSolved > 0 {
			status = models.WeekInProgress
		}
	}

	week := &models.LeetCodeWeek{
		StudentID:      studentID,
		WeekNumber:     req.WeekNumber,
		StartDate:      startDate,
		EndDate:        endDate,
		EasySolved:     req.EasySolved,
		MediumSolved:   req.MediumSolved,
		HardSolved:     req.HardSolved,
		TargetProblems: req.TargetProblems,
		Status:         status,
	}
	if req.Notes != "" {
		week.Notes = &req.Notes
	}
	if status == models.WeekCompleted {
		completedAt := s.now()
		week.CompletedAt = &completedAt
	}

	if err := s.store.Upsert(ctx, week); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save practice week")
	}
	return week, nil
}

// ListByStudent returns all practice weeks for a student, latest first.
func (s *LeetCodeService) ListByStudent(ctx context.Context, studentID string) ([]models.LeetCodeWeek, error) {
	weeks, err := s.store.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list practice weeks")
	}
	return weeks, nil
}
