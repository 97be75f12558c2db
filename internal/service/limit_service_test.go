package service

import (
	"context"
	"database/sql"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/od-tracker-api/internal/dto"
	"github.com/noah-isme/od-tracker-api/internal/models"
	"github.com/noah-isme/od-tracker-api/internal/repository"
	appErrors "github.com/noah-isme/od-tracker-api/pkg/errors"
)

type mockLimitStore struct {
	requests     []models.ODRequest
	counts       map[string]int
	getErr       error
	exceptionErr error
	exceptions   []repository.ExceptionParams
}

func (m *mockLimitStore) GetByID(_ context.Context, id string) (*models.ODRequest, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	for i := range m.requests {
		if m.requests[i].ID == id {
			copied := m.requests[i]
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockLimitStore) List(_ context.Context, _ models.ODRequestFilter) ([]models.ODRequest, error) {
	return m.requests, nil
}

func (m *mockLimitStore) CountNonRejected(_ context.Context, studentID string, _, _ time.Time) (int, error) {
	return m.counts[studentID], nil
}

func (m *mockLimitStore) ApplyException(_ context.Context, params repository.ExceptionParams) error {
	if m.exceptionErr != nil {
		return m.exceptionErr
	}
	m.exceptions = append(m.exceptions, params)
	for i := range m.requests {
		if m.requests[i].ID == params.ID {
			m.requests[i].Status = params.Next
			m.requests[i].ExceptionReviewed = true
		}
	}
	return nil
}

func TestSemesterFor(t *testing.T) {
	cases := []struct {
		date time.Time
		want string
	}{
		{time.Date(2025, time.July, 1, 0, 0, 0, 0, time.UTC), "Odd 2025-2026"},
		{time.Date(2025, time.December, 31, 23, 59, 59, 0, time.UTC), "Odd 2025-2026"},
		{time.Date(2025, time.June, 30, 0, 0, 0, 0, time.UTC), "Even 2024-2025"},
		{time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC), "Even 2025-2026"},
	}
	for _, tc := range cases {
		assert.Equalf(t, tc.want, SemesterFor(tc.date), "date %s", tc.date)
	}
}

func TestSemesterWindowFor(t *testing.T) {
	start, end := SemesterWindowFor(time.Date(2025, time.September, 15, 12, 0, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2025, time.July, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC), end)

	start, end = SemesterWindowFor(time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2025, time.July, 1, 0, 0, 0, 0, time.UTC), end)
}

func TestClassifyUsage(t *testing.T) {
	assert.Equal(t, models.LimitWithin, ClassifyUsage(4, 5))
	assert.Equal(t, models.LimitAt, ClassifyUsage(5, 5))
	assert.Equal(t, models.LimitExceeded, ClassifyUsage(6, 5))
	assert.Equal(t, models.LimitWithin, ClassifyUsage(0, 5))
}

func TestSnapshot(t *testing.T) {
	store := &mockLimitStore{counts: map[string]int{"student-1": 3}}
	svc := NewLimitService(store, &mockAuditStore{}, &mockNotifier{}, nil, zap.NewNop(), 5)

	snapshot, err := svc.Snapshot(context.Background(), "student-1", time.Date(2025, time.September, 15, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "Odd 2025-2026", snapshot.Semester)
	assert.Equal(t, 3, snapshot.TotalODs)
	assert.Equal(t, 5, snapshot.MaxLimit)
	assert.Equal(t, 2, snapshot.Remaining)
	assert.Equal(t, models.LimitWithin, snapshot.Status)
}

func TestSnapshotRemainingNeverNegative(t *testing.T) {
	store := &mockLimitStore{counts: map[string]int{"student-1": 7}}
	svc := NewLimitService(store, &mockAuditStore{}, &mockNotifier{}, nil, zap.NewNop(), 5)

	snapshot, err := svc.Snapshot(context.Background(), "student-1", time.Date(2025, time.September, 15, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 0, snapshot.Remaining)
	assert.Equal(t, models.LimitExceeded, snapshot.Status)
}

func TestMatchesExceptionKeywords(t *testing.T) {
	cases := []struct {
		reason   string
		detailed string
		wonPrize bool
		want     bool
	}{
		{"Hackathon", "national level event", false, true},
		{"Symposium", "paper presentation at a Conference", false, true},
		{"Medical leave", "fever", false, false},
		{"Sports meet", "district athletics", true, true},
		{"Coding contest", "won first prize", false, true},
		{"Workshop", "AI workshop", false, false},
	}
	for _, tc := range cases {
		request := &models.ODRequest{Reason: tc.reason, DetailedReason: tc.detailed}
		request.WonPrize = tc.wonPrize
		assert.Equalf(t, tc.want, MatchesExceptionKeywords(request), "reason %q", tc.reason)
	}
}

func TestListExceptionCandidates(t *testing.T) {
	submittedAt := time.Date(2025, time.September, 10, 0, 0, 0, 0, time.UTC)
	overLimit := models.ODRequest{ID: "req-over", StudentID: "student-over", Reason: "Hackathon", Status: models.StatusSubmitted, SubmittedAt: submittedAt}
	withinLimit := models.ODRequest{ID: "req-within", StudentID: "student-within", Reason: "Competition", Status: models.StatusSubmitted, SubmittedAt: submittedAt}
	noKeyword := models.ODRequest{ID: "req-plain", StudentID: "student-over", Reason: "Medical", Status: models.StatusSubmitted, SubmittedAt: submittedAt}
	reviewed := models.ODRequest{ID: "req-reviewed", StudentID: "student-over", Reason: "Conference", Status: models.StatusSubmitted, SubmittedAt: submittedAt, ExceptionReviewed: true}

	store := &mockLimitStore{
		requests: []models.ODRequest{overLimit, withinLimit, noKeyword, reviewed},
		counts:   map[string]int{"student-over": 6, "student-within": 2},
	}
	svc := NewLimitService(store, &mockAuditStore{}, &mockNotifier{}, nil, zap.NewNop(), 5)

	candidates, err := svc.ListExceptionCandidates(context.Background(), "CSE")
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "req-over", candidates[0].ID)
}

func TestExceptionDecisionApprove(t *testing.T) {
	store := &mockLimitStore{
		requests: []models.ODRequest{{
			ID: "req-1", StudentID: "student-1", StudentName: "Priya Raman",
			Reason: "Hackathon", Status: models.StatusSubmitted,
		}},
		counts: map[string]int{"student-1": 6},
	}
	audit := &mockAuditStore{}
	notifier := &mockNotifier{}
	svc := NewLimitService(store, audit, notifier, nil, zap.NewNop(), 5)

	updated, err := svc.ExceptionDecision(context.Background(), "req-1", hod(), dto.ExceptionDecisionRequest{
		Approve: true, Remarks: "national hackathon winner, approved as special case",
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusMentorApproved, updated.Status)
	assert.True(t, updated.ExceptionReviewed)

	require.Len(t, store.exceptions, 1)
	assert.Equal(t, "Dr. Lakshmi", store.exceptions[0].ReviewedBy)
	assert.True(t, store.exceptions[0].Approved)
	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionExceptionDecision, audit.logs[0].Action)
	require.Len(t, notifier.emitted, 1)
	assert.Equal(t, models.SeveritySuccess, notifier.emitted[0].Severity)
}

func TestExceptionDecisionDeny(t *testing.T) {
	store := &mockLimitStore{
		requests: []models.ODRequest{{
			ID: "req-1", StudentID: "student-1", Reason: "Hackathon", Status: models.StatusSubmitted,
		}},
	}
	notifier := &mockNotifier{}
	svc := NewLimitService(store, &mockAuditStore{}, notifier, nil, zap.NewNop(), 5)

	updated, err := svc.ExceptionDecision(context.Background(), "req-1", hod(), dto.ExceptionDecisionRequest{
		Approve: false, Remarks: "limit already stretched this semester",
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusMentorRejected, updated.Status)
	require.Len(t, notifier.emitted, 1)
	assert.Equal(t, models.SeverityError, notifier.emitted[0].Severity)
}

func TestExceptionDecisionRequiresRemarks(t *testing.T) {
	store := &mockLimitStore{requests: []models.ODRequest{{ID: "req-1", Reason: "Hackathon"}}}
	svc := NewLimitService(store, &mockAuditStore{}, &mockNotifier{}, nil, zap.NewNop(), 5)

	_, err := svc.ExceptionDecision(context.Background(), "req-1", hod(), dto.ExceptionDecisionRequest{Approve: true})
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, appErrors.FromError(err).Status)
	assert.Empty(t, store.exceptions)
}

func TestExceptionDecisionAlreadyReviewed(t *testing.T) {
	store := &mockLimitStore{requests: []models.ODRequest{{
		ID: "req-1", Reason: "Hackathon", ExceptionReviewed: true,
	}}}
	svc := NewLimitService(store, &mockAuditStore{}, &mockNotifier{}, nil, zap.NewNop(), 5)

	_, err := svc.ExceptionDecision(context.Background(), "req-1", hod(), dto.ExceptionDecisionRequest{Approve: true, Remarks: "again"})
	require.Error(t, err)
	assert.Equal(t, http.StatusConflict, appErrors.FromError(err).Status)
}

func TestExceptionDecisionNonCandidate(t *testing.T) {
	store := &mockLimitStore{requests: []models.ODRequest{{ID: "req-1", Reason: "Medical leave"}}}
	svc := NewLimitService(store, &mockAuditStore{}, &mockNotifier{}, nil, zap.NewNop(), 5)

	_, err := svc.ExceptionDecision(context.Background(), "req-1", hod(), dto.ExceptionDecisionRequest{Approve: true, Remarks: "ok"})
	require.Error(t, err)
	assert.Equal(t, http.StatusPreconditionFailed, appErrors.FromError(err).Status)
}

func TestExceptionDecisionConcurrentReview(t *testing.T) {
	store := &mockLimitStore{
		requests:     []models.ODRequest{{ID: "req-1", Reason: "Hackathon"}},
		exceptionErr: sql.ErrNoRows,
	}
	svc := NewLimitService(store, &mockAuditStore{}, &mockNotifier{}, nil, zap.NewNop(), 5)

	_, err := svc.ExceptionDecision(context.Background(), "req-1", hod(), dto.ExceptionDecisionRequest{Approve: true, Remarks: "ok"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrStaleWrite.Code, appErrors.FromError(err).Code)
}

func TestAlertDepartmentIfOverLimit(t *testing.T) {
	notifier := &mockNotifier{}
	svc := NewLimitService(&mockLimitStore{}, &mockAuditStore{}, notifier, nil, zap.NewNop(), 5)

	request := &models.ODRequest{StudentName: "Priya Raman", RollNumber: "21CS042", Department: "CSE"}
	svc.AlertDepartmentIfOverLimit(context.Background(), request, &models.ODLimitSnapshot{Status: models.LimitWithin})
	assert.Empty(t, notifier.daily)

	svc.AlertDepartmentIfOverLimit(context.Background(), request, &models.ODLimitSnapshot{
		TotalODs: 5, MaxLimit: 5, Semester: "Odd 2025-2026", Status: models.LimitAt,
	})
	require.Len(t, notifier.daily["hod-limit-alert-CSE"], 1)
	alert := notifier.daily["hod-limit-alert-CSE"][0]
	assert.Equal(t, models.SeverityWarning, alert.Severity)
	require.NotNil(t, alert.Department)
	assert.Equal(t, "CSE", *alert.Department)
}

func TestNewLimitServiceDefaultsCap(t *testing.T) {
	store := &mockLimitStore{counts: map[string]int{"student-1": DefaultMaxODsPerSemester}}
	svc := NewLimitService(store, &mockAuditStore{}, &mockNotifier{}, nil, zap.NewNop(), 0)

	snapshot, err := svc.Snapshot(context.Background(), "student-1", time.Date(2025, time.October, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, DefaultMaxODsPerSemester, snapshot.MaxLimit)
	assert.Equal(t, models.LimitAt, snapshot.Status)
}
