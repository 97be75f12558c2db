package service

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/od-tracker-api/internal/dto"
	"github.com/noah-isme/od-tracker-api/internal/models"
	"github.com/noah-isme/od-tracker-api/internal/repository"
	appErrors "github.com/noah-isme/od-tracker-api/pkg/errors"
	"github.com/noah-isme/od-tracker-api/pkg/jobs"
	"github.com/noah-isme/od-tracker-api/pkg/storage"
)

type mockReportJobStore struct {
	jobs    map[string]*models.ReportJob
	updates []repository.UpdateReportJobParams
}

func newMockReportJobStore() *mockReportJobStore {
	return &mockReportJobStore{jobs: make(map[string]*models.ReportJob)}
}

func (m *mockReportJobStore) Create(_ context.Context, job *models.ReportJob) error {
	copied := *job
	m.jobs[job.ID] = &copied
	return nil
}

func (m *mockReportJobStore) GetByID(_ context.Context, id string) (*models.ReportJob, error) {
	job, ok := m.jobs[id]
	if !ok {
		return nil, os.ErrNotExist
	}
	copied := *job
	return &copied, nil
}

func (m *mockReportJobStore) Update(_ context.Context, params repository.UpdateReportJobParams) error {
	m.updates = append(m.updates, params)
	job := m.jobs[params.ID]
	job.Status = params.Status
	if params.FilePath != nil {
		job.FilePath = params.FilePath
	}
	if params.ErrorText != nil {
		job.ErrorText = params.ErrorText
	}
	if params.FinishedAt != nil {
		job.FinishedAt = params.FinishedAt
	}
	return nil
}

type mockReportRequestStore struct {
	requests []models.ODRequest
}

func (m *mockReportRequestStore) List(_ context.Context, _ models.ODRequestFilter) ([]models.ODRequest, error) {
	return m.requests, nil
}

func newReportFixture(t *testing.T) (*ReportService, *mockReportJobStore, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewLocalStorage(dir)
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("test-secret", time.Hour)
	reports := newMockReportJobStore()
	requests := &mockReportRequestStore{requests: []models.ODRequest{{
		RollNumber:  "21CS042",
		StudentName: "Priya Raman",
		Department:  "CSE",
		FromDate:    time.Date(2025, time.September, 12, 0, 0, 0, 0, time.UTC),
		ToDate:      time.Date(2025, time.September, 13, 0, 0, 0, 0, time.UTC),
		Reason:      "Hackathon",
		Status:      models.StatusCompleted,
		SubmittedAt: time.Date(2025, time.September, 14, 9, 0, 0, 0, time.UTC),
		ERPLogged:   true,
	}}}
	svc := NewReportService(reports, requests, store, signer, nil, zap.NewNop())
	return svc, reports, dir
}

func startedReportQueue(t *testing.T, svc *ReportService) *jobs.Queue {
	t.Helper()
	queue := jobs.NewQueue("reports", svc.RenderHandler, jobs.QueueConfig{Workers: 1})
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	queue.Start(ctx)
	t.Cleanup(queue.Stop)
	svc.AttachQueue(queue)
	return queue
}

func TestReportEnqueueAndRenderCSV(t *testing.T) {
	svc, reports, dir := newReportFixture(t)
	startedReportQueue(t, svc)

	job, err := svc.Enqueue(context.Background(), "hod-1", dto.CreateReportRequest{
		Department: "CSE", Semester: "Odd 2025-2026", Format: "csv",
	})
	require.NoError(t, err)
	assert.Equal(t, models.ReportQueued, job.Status)

	require.Eventually(t, func() bool {
		current, err := reports.GetByID(context.Background(), job.ID)
		return err == nil && current.Status == models.ReportDone
	}, 2*time.Second, 10*time.Millisecond)

	current, err := reports.GetByID(context.Background(), job.ID)
	require.NoError(t, err)
	require.NotNil(t, current.FilePath)
	content, err := os.ReadFile(filepath.Join(dir, *current.FilePath))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(content), "Roll Number,"))
	assert.Contains(t, string(content),
		"21CS042,Priya Raman,CSE,2025-09-12,2025-09-13,Hackathon,completed,2025-09-14 09:00,true")
}

func TestReportEnqueueRejectsBadSemester(t *testing.T) {
	svc, _, _ := newReportFixture(t)
	startedReportQueue(t, svc)

	_, err := svc.Enqueue(context.Background(), "hod-1", dto.CreateReportRequest{
		Department: "CSE", Semester: "Summer 2025", Format: "csv",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestReportEnqueueRejectsBadFormat(t *testing.T) {
	svc, _, _ := newReportFixture(t)
	startedReportQueue(t, svc)

	_, err := svc.Enqueue(context.Background(), "hod-1", dto.CreateReportRequest{
		Department: "CSE", Semester: "Odd 2025-2026", Format: "xlsx",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestReportEnqueueWithoutQueue(t *testing.T) {
	svc, _, _ := newReportFixture(t)

	_, err := svc.Enqueue(context.Background(), "hod-1", dto.CreateReportRequest{
		Department: "CSE", Semester: "Odd 2025-2026", Format: "csv",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
}

func TestReportStatusSignsDownloadWhenDone(t *testing.T) {
	svc, reports, _ := newReportFixture(t)
	startedReportQueue(t, svc)

	job, err := svc.Enqueue(context.Background(), "hod-1", dto.CreateReportRequest{
		Department: "CSE", Semester: "Odd 2025-2026", Format: "csv",
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		current, err := reports.GetByID(context.Background(), job.ID)
		return err == nil && current.Status == models.ReportDone
	}, 2*time.Second, 10*time.Millisecond)

	current, token, err := svc.Status(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReportDone, current.Status)
	assert.NotEmpty(t, token)

	downloaded, path, err := svc.OpenDownload(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, job.ID, downloaded.ID)
	_, err = os.Stat(path)
	require.NoError(t, err)
}

func TestReportStatusNoTokenWhileQueued(t *testing.T) {
	svc, reports, _ := newReportFixture(t)
	reports.jobs["job-1"] = &models.ReportJob{ID: "job-1", Status: models.ReportQueued}

	_, token, err := svc.Status(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Empty(t, token)
}

func TestReportOpenDownloadRejectsGarbageToken(t *testing.T) {
	svc, _, _ := newReportFixture(t)

	_, _, err := svc.OpenDownload(context.Background(), "not-a-token")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}
