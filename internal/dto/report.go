package dto

// CreateReportRequest queues an OD register export.
type CreateReportRequest struct {
	Department string `json:"department" validate:"required"`
	Semester   string `json:"semester" validate:"required"`
	Format     string `json:"format" validate:"required,oneof=csv pdf"`
}
