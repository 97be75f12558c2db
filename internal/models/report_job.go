package models

import "time"

// ReportFormat names a supported export encoding.
type ReportFormat string

const (
	ReportFormatCSV ReportFormat = "csv"
	ReportFormatPDF ReportFormat = "pdf"
)

// ReportStatus tracks export job progress.
type ReportStatus string

const (
	ReportQueued     ReportStatus = "QUEUED"
	ReportProcessing ReportStatus = "PROCESSING"
	ReportDone       ReportStatus = "DONE"
	ReportFailed     ReportStatus = "FAILED"
)

// ReportJob is an asynchronous OD register export request.
type ReportJob struct {
	ID          string       `db:"id" json:"id"`
	RequestedBy string       `db:"requested_by" json:"requestedBy"`
	Department  string       `db:"department" json:"department"`
	Semester    string       `db:"semester" json:"semester"`
	Format      ReportFormat `db:"format" json:"format"`
	Status      ReportStatus `db:"status" json:"status"`
	FilePath    *string      `db:"file_path" json:"-"`
	ErrorText   *string      `db:"error_text" json:"error,omitempty"`
	CreatedAt   time.Time    `db:"created_at" json:"createdAt"`
	FinishedAt  *time.Time   `db:"finished_at" json:"finishedAt,omitempty"`
}
