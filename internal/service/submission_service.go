package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/od-tracker-api/internal/dto"
	"github.com/noah-isme/od-tracker-api/internal/models"
	appErrors "github.com/noah-isme/od-tracker-api/pkg/errors"
)

// maxElapsedDays is how long after the event end a submission stays valid.
const maxElapsedDays = 3

type submissionRequestStore interface {
	Create(ctx context.Context, request *models.ODRequest) error
}

type submissionUserStore interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type practiceStore interface {
	FindWeekFor(ctx context.Context, studentID string, date time.Time) (*models.LeetCodeWeek, error)
}

type submissionLimitPolicy interface {
	Snapshot(ctx context.Context, studentID string, at time.Time) (*models.ODLimitSnapshot, error)
	AlertDepartmentIfOverLimit(ctx context.Context, request *models.ODRequest, snapshot *models.ODLimitSnapshot)
}

type submissionNotifier interface {
	Emit(ctx context.Context, n models.Notification)
}

// SubmissionService gate-keeps the creation of OD requests. Rules run in a
// fixed order and the first failure wins; a request is only ever created
// after every rule passes.
type SubmissionService struct {
	requests  submissionRequestStore
	users     submissionUserStore
	practice  practiceStore
	limits    submissionLimitPolicy
	notifier  submissionNotifier
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewSubmissionService constructs the service.
func NewSubmissionService(requests submissionRequestStore, users submissionUserStore, practice practiceStore, limits submissionLimitPolicy, notifier submissionNotifier, validate *validator.Validate, logger *zap.Logger) *SubmissionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubmissionService{
		requests:  requests,
		users:     users,
		practice:  practice,
		limits:    limits,
		notifier:  notifier,
		validator: validate,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// RequiredDifficulties maps an academic year onto the practice tiers a
// student must have progress in. The year field is free text ("2nd Year",
// "III"); the first digit found decides.
func RequiredDifficulties(year string) []models.Difficulty {
	switch parseYearNumber(year) {
	case 1:
		return []models.Difficulty{models.DifficultyEasy}
	case 2:
		return []models.Difficulty{models.DifficultyEasy, models.DifficultyMedium}
	default:
		return []models.Difficulty{models.DifficultyEasy, models.DifficultyMedium, models.DifficultyHard}
	}
}

func parseYearNumber(year string) int {
	for _, r := range year {
		if r >= '1' && r <= '9' {
			return int(r - '0')
		}
	}
	// roman numerals appear in some records
	switch {
	case strings.Contains(year, "IV"):
		return 4
	case strings.Contains(year, "III"):
		return 3
	case strings.Contains(year, "II"):
		return 2
	case strings.Contains(year, "I"):
		return 1
	}
	return 4
}

// Submit validates and creates a new OD request for the student.
func (s *SubmissionService) Submit(ctx context.Context, studentID string, req dto.SubmitODRequest) (*models.ODRequest, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid submission payload")
	}

	student, err := s.loadStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}

	fromDate, err := parseDate(req.FromDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "fromDate must be formatted as YYYY-MM-DD")
	}
	toDate, err := parseDate(req.ToDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "toDate must be formatted as YYYY-MM-DD")
	}

	now := s.now()
	if err := s.validateDates(fromDate, toDate, now); err != nil {
		return nil, err
	}
	if err := s.validatePractice(ctx, student, now); err != nil {
		return nil, err
	}

	request := &models.ODRequest{
		StudentID:      student.ID,
		StudentName:    student.FullName,
		RollNumber:     req.RollNumber,
		Department:     student.Department,
		Year:           student.Year,
		FromDate:       fromDate,
		ToDate:         toDate,
		ODPeriods:      req.ODPeriods,
		Reason:         req.Reason,
		DetailedReason: req.DetailedReason,
		Description:    req.Description,
		Status:         models.StatusSubmitted,
		SubmittedAt:    now,
		LastUpdated:    now,
		PrizeInfo: models.PrizeInfo{
			WonPrize:  req.PrizeInfo.WonPrize,
			Position:  req.PrizeInfo.Position,
			CashPrize: req.PrizeInfo.CashPrize,
		},
	}
	for _, entry := range req.Attendance {
		request.Attendance = append(request.Attendance, models.SubjectAttendance{
			SubjectCode: entry.SubjectCode,
			SubjectName: entry.SubjectName,
			Percentage:  entry.Percentage,
		})
	}

	if err := s.requests.Create(ctx, request); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create request")
	}

	s.notifier.Emit(ctx, models.Notification{
		Severity:    models.SeverityInfo,
		Title:       "OD request submitted",
		Description: fmt.Sprintf("%s submitted an OD request for %s", student.FullName, req.Reason),
		Department:  &student.Department,
	})

	snapshot, err := s.limits.Snapshot(ctx, student.ID, now)
	if err != nil {
		s.logger.Warn("failed to compute limit snapshot after submission",
			zap.String("student_id", student.ID), zap.Error(err))
	} else {
		s.limits.AlertDepartmentIfOverLimit(ctx, request, snapshot)
	}

	return request, nil
}

// PracticeStatus reports the practice gate state for a student without
// submitting anything, mirroring the checks Submit performs.
func (s *SubmissionService) PracticeStatus(ctx context.Context, studentID string) (*dto.PracticeStatusResponse, error) {
	student, err := s.loadStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	required := RequiredDifficulties(student.Year)
	requiredNames := difficultyNames(required)

	week, err := s.practice.FindWeekFor(ctx, student.ID, s.now())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &dto.PracticeStatusResponse{
				HasData:  false,
				Required: requiredNames,
				Missing:  requiredNames,
				Message:  "no tracking data found for this week",
			}, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load practice record")
	}

	completed := make([]string, 0, len(required))
	missing := make([]string, 0, len(required))
	for _, tier := range required {
		if week.SolvedFor(tier) > 0 {
			completed = append(completed, string(tier))
		} else {
			missing = append(missing, string(tier))
		}
	}

	resp := &dto.PracticeStatusResponse{
		HasData:    true,
		WeekNumber: week.WeekNumber,
		Required:   requiredNames,
		Completed:  completed,
		Missing:    missing,
		Satisfied:  len(missing) == 0,
	}
	if resp.Satisfied {
		resp.Message = "weekly practice requirement satisfied"
	} else {
		resp.Message = fmt.Sprintf("missing progress in: %s", strings.Join(missing, ", "))
	}
	return resp, nil
}

func (s *SubmissionService) loadStudent(ctx context.Context, studentID string) (*models.User, error) {
	student, err := s.users.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

func (s *SubmissionService) validateDates(fromDate, toDate, now time.Time) error {
	if toDate.Before(fromDate) {
		return appErrors.Clone(appErrors.ErrValidation, "invalid date range: toDate is before fromDate")
	}

	today := truncateToDay(now)
	if !truncateToDay(toDate).Before(today) {
		return appErrors.Clone(appErrors.ErrValidation, "event not yet completed: requests can only be submitted after the event ends")
	}

	elapsed := int(today.Sub(truncateToDay(toDate)).Hours() / 24)
	if elapsed > maxElapsedDays {
		return appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("late submission: event ended %d days ago, limit is %d", elapsed, maxElapsedDays))
	}
	return nil
}

func (s *SubmissionService) validatePractice(ctx context.Context, student *models.User, now time.Time) error {
	week, err := s.practice.FindWeekFor(ctx, student.ID, now)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrValidation, "no tracking data: record your weekly practice before submitting OD requests")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load practice record")
	}

	missing := make([]string, 0, 3)
	for _, tier := range RequiredDifficulties(student.Year) {
		if week.SolvedFor(tier) == 0 {
			missing = append(missing, string(tier))
		}
	}
	if len(missing) > 0 {
		return appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("weekly practice incomplete: missing progress in %s", strings.Join(missing, ", ")))
	}
	return nil
}

func difficultyNames(tiers []models.Difficulty) []string {
	names := make([]string, len(tiers))
	for i, tier := range tiers {
		names[i] = string(tier)
	}
	return names
}

func parseDate(value string) (time.Time, error) {
	return time.Parse("2006-01-02", value)
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
