package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/od-tracker-api/internal/dto"
	"github.com/noah-isme/od-tracker-api/internal/models"
	"github.com/noah-isme/od-tracker-api/internal/repository"
	appErrors "github.com/noah-isme/od-tracker-api/pkg/errors"
)

// DefaultMaxODsPerSemester is the policy cap on non-rejected requests per
// student per semester.
const DefaultMaxODsPerSemester = 5

// exceptionKeywords mark special-case reasons eligible for HOD exception
// review when the student is at or over the semester cap.
var exceptionKeywords = []string{"prize", "hackathon", "competition", "conference", "award"}

// SemesterFor buckets a date into its academic semester label. July through
// December map to "Odd {y}-{y+1}"; January through June map to
// "Even {y-1}-{y}".
func SemesterFor(t time.Time) string {
	year := t.Year()
	if t.Month() >= time.July {
		return fmt.Sprintf("Odd %d-%d", year, year+1)
	}
	return fmt.Sprintf("Even %d-%d", year-1, year)
}

// SemesterWindowFor returns the half-open [start, end) window of the semester
// containing the given date, in UTC.
func SemesterWindowFor(t time.Time) (time.Time, time.Time) {
	year := t.Year()
	if t.Month() >= time.July {
		return time.Date(year, time.July, 1, 0, 0, 0, 0, time.UTC),
			time.Date(year+1, time.January, 1, 0, 0, 0, 0, time.UTC)
	}
	return time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC),
		time.Date(year, time.July, 1, 0, 0, 0, 0, time.UTC)
}

// ClassifyUsage maps a non-rejected request count onto a limit status.
func ClassifyUsage(total, max int) models.LimitStatus {
	switch {
	case total < max:
		return models.LimitWithin
	case total == max:
		return models.LimitAt
	default:
		return models.LimitExceeded
	}
}

type limitRequestStore interface {
	GetByID(ctx context.Context, id string) (*models.ODRequest, error)
	List(ctx context.Context, filter models.ODRequestFilter) ([]models.ODRequest, error)
	CountNonRejected(ctx context.Context, studentID string, from, to time.Time) (int, error)
	ApplyException(ctx context.Context, params repository.ExceptionParams) error
}

type limitAuditStore interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type limitNotifier interface {
	Emit(ctx context.Context, n models.Notification)
	EmitDaily(ctx context.Context, guardKey string, n models.Notification) bool
}

// LimitService computes per-student semester usage against the policy cap and
// drives the over-limit exception review flow.
type LimitService struct {
	requests  limitRequestStore
	audit     limitAuditStore
	notifier  limitNotifier
	validator *validator.Validate
	logger    *zap.Logger
	maxODs    int
	now       func() time.Time
}

// NewLimitService constructs the service. maxODs <= 0 falls back to the
// default policy cap.
func NewLimitService(requests limitRequestStore, audit limitAuditStore, notifier limitNotifier, validate *validator.Validate, logger *zap.Logger, maxODs int) *LimitService {
	if maxODs <= 0 {
		maxODs = DefaultMaxODsPerSemester
	}
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LimitService{
		requests:  requests,
		audit:     audit,
		notifier:  notifier,
		validator: validate,
		logger:    logger,
		maxODs:    maxODs,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Snapshot computes the student's usage for the semester containing the
// reference date. The snapshot is derived on demand and never persisted.
func (s *LimitService) Snapshot(ctx context.Context, studentID string, at time.Time) (*models.ODLimitSnapshot, error) {
	if at.IsZero() {
		at = s.now()
	}
	from, to := SemesterWindowFor(at)
	total, err := s.requests.CountNonRejected(ctx, studentID, from, to)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count semester requests")
	}

	remaining := s.maxODs - total
	if remaining < 0 {
		remaining = 0
	}
	return &models.ODLimitSnapshot{
		StudentID: studentID,
		Semester:  SemesterFor(at),
		TotalODs:  total,
		MaxLimit:  s.maxODs,
		Remaining: remaining,
		Status:    ClassifyUsage(total, s.maxODs),
	}, nil
}

// MatchesExceptionKeywords reports whether a request's reason text (or prize
// flag) marks it as a special case.
func MatchesExceptionKeywords(request *models.ODRequest) bool {
	if request.WonPrize {
		return true
	}
	text := strings.ToLower(request.Reason + " " + request.DetailedReason)
	for _, keyword := range exceptionKeywords {
		if strings.Contains(text, keyword) {
			return true
		}
	}
	return false
}

// ListExceptionCandidates returns unreviewed special-case requests from
// students currently at or over the semester cap, scoped to a department.
func (s *LimitService) ListExceptionCandidates(ctx context.Context, department string) ([]models.ODRequest, error) {
	requests, err := s.requests.List(ctx, models.ODRequestFilter{
		Department: department,
		Status:     []models.ODStatus{models.StatusSubmitted, models.StatusMentorRejected},
		Limit:      200,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list requests")
	}

	snapshots := make(map[string]*models.ODLimitSnapshot)
	candidates := make([]models.ODRequest, 0)
	for _, request := range requests {
		if request.ExceptionReviewed || !MatchesExceptionKeywords(&request) {
			continue
		}
		snapshot, ok := snapshots[request.StudentID]
		if !ok {
			snapshot, err = s.Snapshot(ctx, request.StudentID, request.SubmittedAt)
			if err != nil {
				return nil, err
			}
			snapshots[request.StudentID] = snapshot
		}
		if snapshot.Status == models.LimitWithin {
			continue
		}
		candidates = append(candidates, request)
	}
	return candidates, nil
}

// ExceptionDecision resolves one over-limit special case. Approval moves the
// request to mentor_approved; denial moves it to mentor_rejected. Remarks are
// mandatory either way. A request already reviewed yields a conflict.
func (s *LimitService) ExceptionDecision(ctx context.Context, requestID string, reviewer *models.User, req dto.ExceptionDecisionRequest) (*models.ODRequest, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "remarks are required")
	}
	if strings.TrimSpace(req.Remarks) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "remarks must not be empty")
	}

	request, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load request")
	}
	if request.ExceptionReviewed {
		return nil, appErrors.Clone(appErrors.ErrConflict, "request exception already reviewed")
	}
	if !MatchesExceptionKeywords(request) {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "request is not an exception candidate")
	}

	next := models.StatusMentorApproved
	if !req.Approve {
		next = models.StatusMentorRejected
	}
	now := s.now()
	err = s.requests.ApplyException(ctx, repository.ExceptionParams{
		ID:         requestID,
		Approved:   req.Approve,
		Remarks:    req.Remarks,
		ReviewedBy: reviewer.FullName,
		ReviewedAt: now,
		Next:       next,
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrStaleWrite, "request was reviewed concurrently")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to apply exception decision")
	}

	s.recordAudit(ctx, reviewer.ID, requestID, req.Approve, req.Remarks)
	s.notifyDecision(ctx, request, req.Approve)

	updated, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reload request")
	}
	return updated, nil
}

// AlertDepartmentIfOverLimit emits at most one department-level alert per day
// when a student crosses the semester cap.
func (s *LimitService) AlertDepartmentIfOverLimit(ctx context.Context, request *models.ODRequest, snapshot *models.ODLimitSnapshot) {
	if snapshot.Status == models.LimitWithin {
		return
	}
	guardKey := fmt.Sprintf("hod-limit-alert-%s", request.Department)
	s.notifier.EmitDaily(ctx, guardKey, models.Notification{
		Severity:    models.SeverityWarning,
		Title:       "OD limit threshold crossed",
		Description: fmt.Sprintf("%s (%s) has used %d of %d ODs for %s", request.StudentName, request.RollNumber, snapshot.TotalODs, snapshot.MaxLimit, snapshot.Semester),
		Department:  &request.Department,
	})
}

func (s *LimitService) recordAudit(ctx context.Context, reviewerID, requestID string, approved bool, remarks string) {
	payload, _ := json.Marshal(map[string]interface{}{"approved": approved, "remarks": remarks})
	if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &reviewerID,
		Action:     models.AuditActionExceptionDecision,
		Resource:   "od_request",
		ResourceID: &requestID,
		NewValues:  payload,
	}); err != nil {
		s.logger.Warn("failed to record exception audit log", zap.Error(err))
	}
}

func (s *LimitService) notifyDecision(ctx context.Context, request *models.ODRequest, approved bool) {
	severity := models.SeveritySuccess
	title := "Exception approved"
	description := fmt.Sprintf("Over-limit OD request for %s was approved as a special case", request.StudentName)
	if !approved {
		severity = models.SeverityError
		title = "Exception denied"
		description = fmt.Sprintf("Over-limit OD request for %s was denied", request.StudentName)
	}
	s.notifier.Emit(ctx, models.Notification{
		Severity:    severity,
		Title:       title,
		Description: description,
		RecipientID: &request.StudentID,
	})
}
