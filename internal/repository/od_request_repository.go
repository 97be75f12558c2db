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

const odRequestColumns = `id, student_id, student_name, roll_number, department, year,
       from_date, to_date, od_periods, reason, detailed_reason, description,
       status, submitted_at, last_updated, erp_logged,
       mentor_feedback, mentor_name, mentor_acted_at,
       hod_feedback, hod_name, hod_acted_at, rejection_reason,
       auto_escalated, escalated_at, escalation_reason,
       overridden_by, overridden_at, override_justification, original_status, original_rejection_reason,
       exception_reviewed, exception_approved, exception_remarks, exception_reviewed_by, exception_reviewed_at,
       won_prize, prize_position, cash_prize`

// ODRequestRepository persists the OD request workflow data. Requests are
// append-only at the row level: there is no delete operation.
type ODRequestRepository struct {
	db *sqlx.DB
}

// NewODRequestRepository constructs the repository.
func NewODRequestRepository(db *sqlx.DB) *ODRequestRepository {
	return &ODRequestRepository{db: db}
}

// Create inserts a new request row together with its attendance snapshot.
func (r *ODRequestRepository) Create(ctx context.Context, request *models.ODRequest) error {
	if request.ID == "" {
		request.ID = uuid.NewString()
	}
	if request.Status == "" {
		request.Status = models.StatusSubmitted
	}
	now := time.Now().UTC()
	if request.SubmittedAt.IsZero() {
		request.SubmittedAt = now
	}
	if request.LastUpdated.IsZero() {
		request.LastUpdated = request.SubmittedAt
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create od request: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const query = `INSERT INTO od_requests
	(id, student_id, student_name, roll_number, department, year,
	 from_date, to_date, od_periods, reason, detailed_reason, description,
	 status, submitted_at, last_updated, erp_logged,
	 won_prize, prize_position, cash_prize)
	VALUES (:id, :student_id, :student_name, :roll_number, :department, :year,
	 :from_date, :to_date, :od_periods, :reason, :detailed_reason, :description,
	 :status, :submitted_at, :last_updated, :erp_logged,
	 :won_prize, :prize_position, :cash_prize)`
	if _, err := tx.NamedExecContext(ctx, query, request); err != nil {
		return fmt.Errorf("create od request: %w", err)
	}

	for i := range request.Attendance {
		entry := &request.Attendance[i]
		if entry.ID == "" {
			entry.ID = uuid.NewString()
		}
		entry.RequestID = request.ID
		const attQuery = `INSERT INTO od_request_attendance
		(id, request_id, subject_code, subject_name, percentage)
		VALUES (:id, :request_id, :subject_code, :subject_name, :percentage)`
		if _, err := tx.NamedExecContext(ctx, attQuery, entry); err != nil {
			return fmt.Errorf("create attendance snapshot: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create od request: %w", err)
	}
	return nil
}

// GetByID fetches a request with its attendance and attachment rows.
func (r *ODRequestRepository) GetByID(ctx context.Context, id string) (*models.ODRequest, error) {
	query := fmt.Sprintf(`SELECT %s FROM od_requests WHERE id = $1`, odRequestColumns)
	var request models.ODRequest
	if err := r.db.GetContext(ctx, &request, query, id); err != nil {
		return nil, err
	}

	const attQuery = `SELECT id, request_id, subject_code, subject_name, percentage
	FROM od_request_attendance WHERE request_id = $1 ORDER BY subject_code`
	if err := r.db.SelectContext(ctx, &request.Attendance, attQuery, id); err != nil {
		return nil, fmt.Errorf("load attendance snapshot: %w", err)
	}

	const fileQuery = `SELECT id, request_id, file_name, mime_type, size_bytes, stored_path, uploaded_at
	FROM od_request_attachments WHERE request_id = $1 ORDER BY uploaded_at`
	if err := r.db.SelectContext(ctx, &request.Attachments, fileQuery, id); err != nil {
		return nil, fmt.Errorf("load attachments: %w", err)
	}

	return &request, nil
}

// List returns requests matching the filter (latest submissions first).
func (r *ODRequestRepository) List(ctx context.Context, filter models.ODRequestFilter) ([]models.ODRequest, error) {
	builder := strings.Builder{}
	args := make([]interface{}, 0, 6)
	builder.WriteString(fmt.Sprintf("SELECT %s FROM od_requests", odRequestColumns))

	conditions := make([]string, 0, 5)
	if filter.StudentID != "" {
		args = append(args, filter.StudentID)
		conditions = append(conditions, fmt.Sprintf("student_id = $%d", len(args)))
	}
	if filter.Department != "" {
		args = append(args, filter.Department)
		conditions = append(conditions, fmt.Sprintf("department = $%d", len(args)))
	}
	if len(filter.Status) > 0 {
		placeholders := make([]string, len(filter.Status))
		for i, status := range filter.Status {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		conditions = append(conditions, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.AutoEscalated != nil {
		args = append(args, *filter.AutoEscalated)
		conditions = append(conditions, fmt.Sprintf("auto_escalated = $%d", len(args)))
	}
	if filter.SubmittedFrom != nil {
		args = append(args, *filter.SubmittedFrom)
		conditions = append(conditions, fmt.Sprintf("submitted_at >= $%d", len(args)))
	}
	if filter.SubmittedTo != nil {
		args = append(args, *filter.SubmittedTo)
		conditions = append(conditions, fmt.Sprintf("submitted_at < $%d", len(args)))
	}
	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}
	builder.WriteString(" ORDER BY submitted_at DESC")

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	builder.WriteString(fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset))

	var requests []models.ODRequest
	if err := r.db.SelectContext(ctx, &requests, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list od requests: %w", err)
	}
	return requests, nil
}

// TransitionParams groups the mutable columns for one status transition.
// Expected carries the status the caller read; the UPDATE is conditional on
// it so a concurrent transition surfaces as sql.ErrNoRows.
type TransitionParams struct {
	ID              string
	Expected        models.ODStatus
	Next            models.ODStatus
	MentorFeedback  *string
	MentorName      *string
	MentorActedAt   *time.Time
	HODFeedback     *string
	HODName         *string
	HODActedAt      *time.Time
	RejectionReason *string
	ERPLogged       bool
}

// Transition applies one conditional status transition.
func (r *ODRequestRepository) Transition(ctx context.Context, params TransitionParams) error {
	setParts := []string{
		"status = :status",
		"last_updated = :last_updated",
	}
	if params.MentorFeedback != nil {
		setParts = append(setParts, "mentor_feedback = :mentor_feedback")
	}
	if params.MentorName != nil {
		setParts = append(setParts, "mentor_name = :mentor_name", "mentor_acted_at = :mentor_acted_at")
	}
	if params.HODFeedback != nil {
		setParts = append(setParts, "hod_feedback = :hod_feedback")
	}
	if params.HODName != nil {
		setParts = append(setParts, "hod_name = :hod_name", "hod_acted_at = :hod_acted_at")
	}
	if params.RejectionReason != nil {
		setParts = append(setParts, "rejection_reason = :rejection_reason")
	}
	if params.ERPLogged {
		setParts = append(setParts, "erp_logged = TRUE")
	}

	query := fmt.Sprintf("UPDATE od_requests SET %s WHERE id = :id AND status = :expected",
		strings.Join(setParts, ", "))
	result, err := r.db.NamedExecContext(ctx, query, map[string]interface{}{
		"id":               params.ID,
		"expected":         params.Expected,
		"status":           params.Next,
		"last_updated":     time.Now().UTC(),
		"mentor_feedback":  params.MentorFeedback,
		"mentor_name":      params.MentorName,
		"mentor_acted_at":  params.MentorActedAt,
		"hod_feedback":     params.HODFeedback,
		"hod_name":         params.HODName,
		"hod_acted_at":     params.HODActedAt,
		"rejection_reason": params.RejectionReason,
	})
	if err != nil {
		return fmt.Errorf("transition od request: %w", err)
	}
	return requireRowsAffected(result)
}

// OverrideParams captures the HOD override of a mentor rejection.
type OverrideParams struct {
	ID                      string
	OverriddenBy            string
	OverriddenAt            time.Time
	Justification           string
	OriginalStatus          models.ODStatus
	OriginalRejectionReason *string
}

// ApplyOverride moves a mentor_rejected request back to mentor_approved and
// records the override audit trail. The original rejection text is preserved.
func (r *ODRequestRepository) ApplyOverride(ctx context.Context, params OverrideParams) error {
	const query = `UPDATE od_requests SET
		status = :status,
		last_updated = :last_updated,
		overridden_by = :overridden_by,
		overridden_at = :overridden_at,
		override_justification = :override_justification,
		original_status = :original_status,
		original_rejection_reason = :original_rejection_reason,
		rejection_reason = NULL
	WHERE id = :id AND status = :expected`
	result, err := r.db.NamedExecContext(ctx, query, map[string]interface{}{
		"id":                        params.ID,
		"expected":                  models.StatusMentorRejected,
		"status":                    models.StatusMentorApproved,
		"last_updated":              time.Now().UTC(),
		"overridden_by":             params.OverriddenBy,
		"overridden_at":             params.OverriddenAt,
		"override_justification":    params.Justification,
		"original_status":           params.OriginalStatus,
		"original_rejection_reason": params.OriginalRejectionReason,
	})
	if err != nil {
		return fmt.Errorf("apply override: %w", err)
	}
	return requireRowsAffected(result)
}

// ExceptionParams captures the HOD decision on an over-limit special case.
type ExceptionParams struct {
	ID         string
	Approved   bool
	Remarks    string
	ReviewedBy string
	ReviewedAt time.Time
	Next       models.ODStatus
}

// ApplyException records the exception review outcome. Conditional on the
// request not having been reviewed before.
func (r *ODRequestRepository) ApplyException(ctx context.Context, params ExceptionParams) error {
	const query = `UPDATE od_requests SET
		status = :status,
		last_updated = :last_updated,
		exception_reviewed = TRUE,
		exception_approved = :exception_approved,
		exception_remarks = :exception_remarks,
		exception_reviewed_by = :exception_reviewed_by,
		exception_reviewed_at = :exception_reviewed_at
	WHERE id = :id AND exception_reviewed = FALSE`
	result, err := r.db.NamedExecContext(ctx, query, map[string]interface{}{
		"id":                    params.ID,
		"status":                params.Next,
		"last_updated":          time.Now().UTC(),
		"exception_approved":    params.Approved,
		"exception_remarks":     params.Remarks,
		"exception_reviewed_by": params.ReviewedBy,
		"exception_reviewed_at": params.ReviewedAt,
	})
	if err != nil {
		return fmt.Errorf("apply exception decision: %w", err)
	}
	return requireRowsAffected(result)
}

// ListEscalationCandidates returns submitted, not yet escalated requests older
// than the cutoff.
func (r *ODRequestRepository) ListEscalationCandidates(ctx context.Context, cutoff time.Time) ([]models.ODRequest, error) {
	query := fmt.Sprintf(`SELECT %s FROM od_requests
	WHERE status = $1 AND auto_escalated = FALSE AND submitted_at < $2
	ORDER BY submitted_at ASC`, odRequestColumns)
	var requests []models.ODRequest
	if err := r.db.SelectContext(ctx, &requests, query, models.StatusSubmitted, cutoff); err != nil {
		return nil, fmt.Errorf("list escalation candidates: %w", err)
	}
	return requests, nil
}

// MarkEscalated flags one overdue request. The guard on status and the
// auto_escalated flag makes the sweep idempotent per request.
func (r *ODRequestRepository) MarkEscalated(ctx context.Context, id, reason string, at time.Time) error {
	const query = `UPDATE od_requests SET
		auto_escalated = TRUE,
		escalated_at = $2,
		escalation_reason = $3,
		last_updated = $4
	WHERE id = $1 AND status = $5 AND auto_escalated = FALSE`
	result, err := r.db.ExecContext(ctx, query, id, at, reason, time.Now().UTC(), models.StatusSubmitted)
	if err != nil {
		return fmt.Errorf("mark escalated: %w", err)
	}
	return requireRowsAffected(result)
}

// CountNonRejected counts a student's requests submitted inside [from, to)
// excluding every rejection state.
func (r *ODRequestRepository) CountNonRejected(ctx context.Context, studentID string, from, to time.Time) (int, error) {
	const query = `SELECT COUNT(*) FROM od_requests
	WHERE student_id = $1 AND submitted_at >= $2 AND submitted_at < $3
	AND status NOT IN ($4, $5, $6)`
	var count int
	err := r.db.GetContext(ctx, &count, query, studentID, from, to,
		models.StatusMentorRejected, models.StatusHODRejected, models.StatusPrincipalRejected)
	if err != nil {
		return 0, fmt.Errorf("count non-rejected od requests: %w", err)
	}
	return count, nil
}

// AddAttachment stores an attachment reference for a request.
func (r *ODRequestRepository) AddAttachment(ctx context.Context, attachment *models.Attachment) error {
	if attachment.ID == "" {
		attachment.ID = uuid.NewString()
	}
	if attachment.UploadedAt.IsZero() {
		attachment.UploadedAt = time.Now().UTC()
	}
	const query = `INSERT INTO od_request_attachments
	(id, request_id, file_name, mime_type, size_bytes, stored_path, uploaded_at)
	VALUES (:id, :request_id, :file_name, :mime_type, :size_bytes, :stored_path, :uploaded_at)`
	if _, err := r.db.NamedExecContext(ctx, query, attachment); err != nil {
		return fmt.Errorf("add attachment: %w", err)
	}
	return nil
}

func requireRowsAffected(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
