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
	appErrors "github.com/noah-isme/od-tracker-api/pkg/errors"
)

type mockCreateStore struct {
	created []models.ODRequest
	err     error
}

func (m *mockCreateStore) Create(_ context.Context, request *models.ODRequest) error {
	if m.err != nil {
		return m.err
	}
	request.ID = "req-new"
	m.created = append(m.created, *request)
	return nil
}

type mockUserStore struct {
	users map[string]*models.User
}

func (m *mockUserStore) FindByID(_ context.Context, id string) (*models.User, error) {
	user, ok := m.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *user
	return &copied, nil
}

type mockPracticeStore struct {
	week *models.LeetCodeWeek
	err  error
}

func (m *mockPracticeStore) FindWeekFor(_ context.Context, _ string, _ time.Time) (*models.LeetCodeWeek, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.week == nil {
		return nil, sql.ErrNoRows
	}
	copied := *m.week
	return &copied, nil
}

type mockLimitPolicy struct {
	snapshot *models.ODLimitSnapshot
	err      error
	alerts   int
}

func (m *mockLimitPolicy) Snapshot(_ context.Context, studentID string, _ time.Time) (*models.ODLimitSnapshot, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.snapshot == nil {
		return &models.ODLimitSnapshot{StudentID: studentID, Status: models.LimitWithin}, nil
	}
	return m.snapshot, nil
}

func (m *mockLimitPolicy) AlertDepartmentIfOverLimit(_ context.Context, _ *models.ODRequest, snapshot *models.ODLimitSnapshot) {
	if snapshot.Status != models.LimitWithin {
		m.alerts++
	}
}

var submissionNow = time.Date(2025, time.September, 15, 10, 0, 0, 0, time.UTC)

func thirdYearStudent() *models.User {
	return &models.User{
		ID: "student-1", FullName: "Priya Raman", Role: models.RoleStudent,
		Department: "CSE", Year: "3rd Year", RollNumber: "21CS042",
	}
}

func fullPracticeWeek() *models.LeetCodeWeek {
	return &models.LeetCodeWeek{
		ID: "week-1", StudentID: "student-1", WeekNumber: 37,
		EasySolved: 3, MediumSolved: 2, HardSolved: 1,
	}
}

func newSubmissionFixture(t *testing.T, practice *mockPracticeStore, limits *mockLimitPolicy) (*SubmissionService, *mockCreateStore, *mockNotifier) {
	t.Helper()
	store := &mockCreateStore{}
	users := &mockUserStore{users: map[string]*models.User{"student-1": thirdYearStudent()}}
	if limits == nil {
		limits = &mockLimitPolicy{}
	}
	notifier := &mockNotifier{}
	svc := NewSubmissionService(store, users, practice, limits, notifier, nil, zap.NewNop())
	svc.now = func() time.Time { return submissionNow }
	return svc, store, notifier
}

func validSubmission() dto.SubmitODRequest {
	return dto.SubmitODRequest{
		RollNumber:     "21CS042",
		FromDate:       "2025-09-12",
		ToDate:         "2025-09-13",
		ODPeriods:      []string{"1", "2", "3"},
		Reason:         "Hackathon",
		DetailedReason: "National level hackathon at IIT Madras",
	}
}

func TestSubmitCreatesRequest(t *testing.T) {
	svc, store, notifier := newSubmissionFixture(t, &mockPracticeStore{week: fullPracticeWeek()}, nil)

	request, err := svc.Submit(context.Background(), "student-1", validSubmission())
	require.NoError(t, err)
	require.Len(t, store.created, 1)

	assert.Equal(t, models.StatusSubmitted, request.Status)
	assert.Equal(t, "student-1", request.StudentID)
	assert.Equal(t, "Priya Raman", request.StudentName)
	assert.Equal(t, "CSE", request.Department)
	assert.Equal(t, "3rd Year", request.Year)
	assert.Equal(t, submissionNow, request.SubmittedAt)
	assert.False(t, request.ERPLogged)

	require.Len(t, notifier.emitted, 1)
	require.NotNil(t, notifier.emitted[0].Department)
	assert.Equal(t, "CSE", *notifier.emitted[0].Department)
}

func TestSubmitRejectsInvertedDateRange(t *testing.T) {
	svc, store, _ := newSubmissionFixture(t, &mockPracticeStore{week: fullPracticeWeek()}, nil)

	req := validSubmission()
	req.FromDate = "2025-09-13"
	req.ToDate = "2025-09-12"
	_, err := svc.Submit(context.Background(), "student-1", req)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, http.StatusBadRequest, appErr.Status)
	assert.Contains(t, appErr.Message, "invalid date range")
	assert.Empty(t, store.created)
}

func TestSubmitRejectsOngoingEvent(t *testing.T) {
	svc, _, _ := newSubmissionFixture(t, &mockPracticeStore{week: fullPracticeWeek()}, nil)

	for _, toDate := range []string{"2025-09-15", "2025-09-20"} {
		req := validSubmission()
		req.FromDate = "2025-09-14"
		req.ToDate = toDate
		_, err := svc.Submit(context.Background(), "student-1", req)
		require.Errorf(t, err, "toDate %s", toDate)
		assert.Contains(t, appErrors.FromError(err).Message, "not yet completed")
	}
}

func TestSubmitElapsedWindow(t *testing.T) {
	svc, _, _ := newSubmissionFixture(t, &mockPracticeStore{week: fullPracticeWeek()}, nil)

	// event ended exactly 3 days ago: still allowed
	req := validSubmission()
	req.FromDate = "2025-09-11"
	req.ToDate = "2025-09-12"
	_, err := svc.Submit(context.Background(), "student-1", req)
	require.NoError(t, err)

	// 4 days ago: too late
	req.FromDate = "2025-09-10"
	req.ToDate = "2025-09-11"
	_, err = svc.Submit(context.Background(), "student-1", req)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Contains(t, appErr.Message, "late submission")
	assert.Contains(t, appErr.Message, "4 days ago")
}

func TestSubmitNoPracticeData(t *testing.T) {
	svc, store, _ := newSubmissionFixture(t, &mockPracticeStore{}, nil)

	_, err := svc.Submit(context.Background(), "student-1", validSubmission())
	require.Error(t, err)
	assert.Contains(t, appErrors.FromError(err).Message, "no tracking data")
	assert.Empty(t, store.created)
}

func TestSubmitIncompletePractice(t *testing.T) {
	week := fullPracticeWeek()
	week.MediumSolved = 0
	week.HardSolved = 0
	svc, store, _ := newSubmissionFixture(t, &mockPracticeStore{week: week}, nil)

	_, err := svc.Submit(context.Background(), "student-1", validSubmission())
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Contains(t, appErr.Message, "weekly practice incomplete")
	assert.Contains(t, appErr.Message, "medium")
	assert.Contains(t, appErr.Message, "hard")
	assert.Empty(t, store.created)
}

func TestSubmitAlertsWhenOverLimit(t *testing.T) {
	limits := &mockLimitPolicy{snapshot: &models.ODLimitSnapshot{
		StudentID: "student-1", TotalODs: 5, MaxLimit: 5, Status: models.LimitAt,
	}}
	svc, store, _ := newSubmissionFixture(t, &mockPracticeStore{week: fullPracticeWeek()}, limits)

	_, err := svc.Submit(context.Background(), "student-1", validSubmission())
	require.NoError(t, err)
	require.Len(t, store.created, 1)
	assert.Equal(t, 1, limits.alerts)
}

func TestSubmitUnknownStudent(t *testing.T) {
	svc, _, _ := newSubmissionFixture(t, &mockPracticeStore{week: fullPracticeWeek()}, nil)

	_, err := svc.Submit(context.Background(), "nobody", validSubmission())
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, appErrors.FromError(err).Status)
}

func TestSubmitValidatesPayload(t *testing.T) {
	svc, _, _ := newSubmissionFixture(t, &mockPracticeStore{week: fullPracticeWeek()}, nil)

	req := validSubmission()
	req.Reason = ""
	_, err := svc.Submit(context.Background(), "student-1", req)
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, appErrors.FromError(err).Status)
}

func TestRequiredDifficulties(t *testing.T) {
	cases := []struct {
		year string
		want []models.Difficulty
	}{
		{"1st Year", []models.Difficulty{models.DifficultyEasy}},
		{"2nd Year", []models.Difficulty{models.DifficultyEasy, models.DifficultyMedium}},
		{"3rd Year", []models.Difficulty{models.DifficultyEasy, models.DifficultyMedium, models.DifficultyHard}},
		{"4th Year", []models.Difficulty{models.DifficultyEasy, models.DifficultyMedium, models.DifficultyHard}},
		{"II", []models.Difficulty{models.DifficultyEasy, models.DifficultyMedium}},
		{"III", []models.Difficulty{models.DifficultyEasy, models.DifficultyMedium, models.DifficultyHard}},
		{"I", []models.Difficulty{models.DifficultyEasy}},
		{"", []models.Difficulty{models.DifficultyEasy, models.DifficultyMedium, models.DifficultyHard}},
	}
	for _, tc := range cases {
		assert.Equalf(t, tc.want, RequiredDifficulties(tc.year), "year %q", tc.year)
	}
}

func TestPracticeStatusNoData(t *testing.T) {
	svc, _, _ := newSubmissionFixture(t, &mockPracticeStore{}, nil)

	status, err := svc.PracticeStatus(context.Background(), "student-1")
	require.NoError(t, err)
	assert.False(t, status.HasData)
	assert.False(t, status.Satisfied)
	assert.Equal(t, []string{"easy", "medium", "hard"}, status.Missing)
	assert.Contains(t, status.Message, "no tracking data")
}

func TestPracticeStatusPartialProgress(t *testing.T) {
	week := fullPracticeWeek()
	week.HardSolved = 0
	svc, _, _ := newSubmissionFixture(t, &mockPracticeStore{week: week}, nil)

	status, err := svc.PracticeStatus(context.Background(), "student-1")
	require.NoError(t, err)
	assert.True(t, status.HasData)
	assert.False(t, status.Satisfied)
	assert.Equal(t, []string{"easy", "medium"}, status.Completed)
	assert.Equal(t, []string{"hard"}, status.Missing)
}

func TestPracticeStatusSatisfied(t *testing.T) {
	svc, _, _ := newSubmissionFixture(t, &mockPracticeStore{week: fullPracticeWeek()}, nil)

	status, err := svc.PracticeStatus(context.Background(), "student-1")
	require.NoError(t, err)
	assert.True(t, status.Satisfied)
	assert.Empty(t, status.Missing)
}
