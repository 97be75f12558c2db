package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/od-tracker-api/internal/models"
)

// ReportRepository persists OD register export jobs.
type ReportRepository struct {
	db *sqlx.DB
}

// NewReportRepository constructs the repository.
func NewReportRepository(db *sqlx.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// Create inserts a queued export job.
func (r *ReportRepository) Create(ctx context.Context, job *models.ReportJob) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.Status == "" {
		job.Status = models.ReportQueued
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO report_jobs
	(id, requested_by, department, semester, format, status, file_path, error_text, created_at, finished_at)
	VALUES (:id, :requested_by, :department, :semester, :format, :status, :file_path, :error_text, :created_at, :finished_at)`
	if _, err := r.db.NamedExecContext(ctx, query, job); err != nil {
		return fmt.Errorf("create report job: %w", err)
	}
	return nil
}

// GetByID fetches a job by identifier.
func (r *ReportRepository) GetByID(ctx context.Context, id string) (*models.ReportJob, error) {
	const query = `SELECT id, requested_by, department, semester, format, status, file_path, error_text, created_at, finished_at
	FROM report_jobs WHERE id = $1`
	var job models.ReportJob
	if err := r.db.GetContext(ctx, &job, query, id); err != nil {
		return nil, err
	}
	return &job, nil
}

// UpdateReportJobParams groups mutable job columns.
type UpdateReportJobParams struct {
	ID         string
	Status     models.ReportStatus
	FilePath   *string
	ErrorText  *string
	FinishedAt *time.Time
}

// Update persists job progress.
func (r *ReportRepository) Update(ctx context.Context, params UpdateReportJobParams) error {
	setParts := []string{"status = :status"}
	if params.FilePath != nil {
		setParts = append(setParts, "file_path = :file_path")
	}
	if params.ErrorText != nil {
		setParts = append(setParts, "error_text = :error_text")
	}
	if params.FinishedAt != nil {
		setParts = append(setParts, "finished_at = :finished_at")
	}
	query := fmt.Sprintf("UPDATE report_jobs SET %s WHERE id = :id", strings.Join(setParts, ", "))
	result, err := r.db.NamedExecContext(ctx, query, map[string]interface{}{
		"id":          params.ID,
		"status":      params.Status,
		"file_path":   params.FilePath,
		"error_text":  params.ErrorText,
		"finished_at": params.FinishedAt,
	})
	if err != nil {
		return fmt.Errorf("update report job: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check report job update rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
