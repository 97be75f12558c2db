package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/od-tracker-api/internal/dto"
	"github.com/noah-isme/od-tracker-api/internal/models"
	"github.com/noah-isme/od-tracker-api/internal/repository"
	appErrors "github.com/noah-isme/od-tracker-api/pkg/errors"
	"github.com/noah-isme/od-tracker-api/pkg/export"
	"github.com/noah-isme/od-tracker-api/pkg/jobs"
	"github.com/noah-isme/od-tracker-api/pkg/storage"
)

var odRegisterHeaders = []string{
	"Roll Number", "Student", "Department", "From", "To", "Reason", "Status", "Submitted", "ERP Logged",
}

type reportJobStore interface {
	Create(ctx context.Context, job *models.ReportJob) error
	GetByID(ctx context.Context, id string) (*models.ReportJob, error)
	Update(ctx context.Context, params repository.UpdateReportJobParams) error
}

type reportRequestStore interface {
	List(ctx context.Context, filter models.ODRequestFilter) ([]models.ODRequest, error)
}

// ReportService renders OD-register exports as background jobs. Files are
// written to local storage and served through HMAC-signed download tokens.
type ReportService struct {
	reports   reportJobStore
	requests  reportRequestStore
	storage   *storage.LocalStorage
	signer    *storage.SignedURLSigner
	csv       *export.CSVExporter
	pdf       *export.PDFExporter
	queue     *jobs.Queue
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewReportService constructs the service.
func NewReportService(reports reportJobStore, requests reportRequestStore, store *storage.LocalStorage, signer *storage.SignedURLSigner, validate *validator.Validate, logger *zap.Logger) *ReportService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{
		reports:   reports,
		requests:  requests,
		storage:   store,
		signer:    signer,
		csv:       export.NewCSVExporter(),
		pdf:       export.NewPDFExporter(),
		validator: validate,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// AttachQueue wires the background render queue after construction.
func (s *ReportService) AttachQueue(queue *jobs.Queue) {
	s.queue = queue
}

// Enqueue validates and queues one export job.
func (s *ReportService) Enqueue(ctx context.Context, requestedBy string, req dto.CreateReportRequest) (*models.ReportJob, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid report payload")
	}
	if _, _, err := ParseSemesterWindow(req.Semester); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}

	job := &models.ReportJob{
		ID:          uuid.NewString(),
		RequestedBy: requestedBy,
		Department:  req.Department,
		Semester:    req.Semester,
		Format:      models.ReportFormat(req.Format),
		Status:      models.ReportQueued,
		CreatedAt:   s.now(),
	}
	if err := s.reports.Create(ctx, job); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create report job")
	}

	if s.queue == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "report queue is not running")
	}
	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: "report", Payload: job.ID}); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue report job")
	}
	return job, nil
}

// RenderHandler is the queue handler producing the export file.
func (s *ReportService) RenderHandler(ctx context.Context, job jobs.Job) error {
	jobID, ok := job.Payload.(string)
	if !ok {
		return fmt.Errorf("unexpected payload type %T for job %s", job.Payload, job.ID)
	}
	return s.render(ctx, jobID)
}

func (s *ReportService) render(ctx context.Context, jobID string) error {
	job, err := s.reports.GetByID(ctx, jobID)
	if err != nil {
		return fmt.Errorf("load report job: %w", err)
	}
	if job.Status != models.ReportQueued {
		return nil
	}

	if err := s.reports.Update(ctx, repository.UpdateReportJobParams{
		ID: jobID, Status: models.ReportProcessing,
	}); err != nil {
		return fmt.Errorf("mark report processing: %w", err)
	}

	data, renderErr := s.build(ctx, job)
	finished := s.now()
	if renderErr != nil {
		errText := renderErr.Error()
		if err := s.reports.Update(ctx, repository.UpdateReportJobParams{
			ID: jobID, Status: models.ReportFailed, ErrorText: &errText, FinishedAt: &finished,
		}); err != nil {
			s.logger.Warn("failed to mark report failed", zap.String("job_id", jobID), zap.Error(err))
		}
		return renderErr
	}

	filename := fmt.Sprintf("od-register-%s.%s", jobID, job.Format)
	if _, err := s.storage.Save(filename, data); err != nil {
		return fmt.Errorf("store report file: %w", err)
	}
	if err := s.reports.Update(ctx, repository.UpdateReportJobParams{
		ID: jobID, Status: models.ReportDone, FilePath: &filename, FinishedAt: &finished,
	}); err != nil {
		return fmt.Errorf("mark report done: %w", err)
	}
	s.logger.Info("report rendered",
		zap.String("job_id", jobID), zap.String("format", string(job.Format)))
	return nil
}

func (s *ReportService) build(ctx context.Context, job *models.ReportJob) ([]byte, error) {
	from, to, err := ParseSemesterWindow(job.Semester)
	if err != nil {
		return nil, err
	}
	requests, err := s.requests.List(ctx, models.ODRequestFilter{
		Department:    job.Department,
		SubmittedFrom: &from,
		SubmittedTo:   &to,
		Limit:         200,
	})
	if err != nil {
		return nil, fmt.Errorf("list requests for report: %w", err)
	}

	dataset := export.Dataset{Headers: odRegisterHeaders}
	for _, request := range requests {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Roll Number": request.RollNumber,
			"Student":     request.StudentName,
			"Department":  request.Department,
			"From":        request.FromDate.Format("2006-01-02"),
			"To":          request.ToDate.Format("2006-01-02"),
			"Reason":      request.Reason,
			"Status":      string(request.Status),
			"Submitted":   request.SubmittedAt.Format("2006-01-02 15:04"),
			"ERP Logged":  fmt.Sprintf("%t", request.ERPLogged),
		})
	}

	switch job.Format {
	case models.ReportFormatCSV:
		return s.csv.Render(dataset)
	case models.ReportFormatPDF:
		title := fmt.Sprintf("OD Register - %s (%s)", job.Department, job.Semester)
		return s.pdf.Render(dataset, title)
	}
	return nil, fmt.Errorf("unsupported report format %q", job.Format)
}

// Status returns the job together with a signed download URL once done.
func (s *ReportService) Status(ctx context.Context, jobID string) (*models.ReportJob, string, error) {
	job, err := s.reports.GetByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", appErrors.Clone(appErrors.ErrNotFound, "report job not found")
		}
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load report job")
	}

	var downloadToken string
	if job.Status == models.ReportDone && job.FilePath != nil {
		token, _, err := s.signer.Generate(job.ID, *job.FilePath)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download URL")
		}
		downloadToken = token
	}
	return job, downloadToken, nil
}

// OpenDownload validates a signed token and opens the underlying file.
func (s *ReportService) OpenDownload(ctx context.Context, token string) (*models.ReportJob, string, error) {
	resourceID, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, "", appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download token")
	}
	if strings.Contains(relPath, "..") {
		return nil, "", appErrors.Clone(appErrors.ErrForbidden, "invalid download path")
	}

	job, err := s.reports.GetByID(ctx, resourceID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", appErrors.Clone(appErrors.ErrNotFound, "report job not found")
		}
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load report job")
	}
	if job.FilePath == nil || *job.FilePath != relPath {
		return nil, "", appErrors.Clone(appErrors.ErrForbidden, "token does not match the report file")
	}
	return job, s.storage.Path(relPath), nil
}
