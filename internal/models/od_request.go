package models

import (
	"time"

	"github.com/lib/pq"
)

// ODStatus enumerates the closed set of request lifecycle states.
type ODStatus string

const (
	StatusSubmitted           ODStatus = "submitted"
	StatusMentorApproved      ODStatus = "mentor_approved"
	StatusMentorRejected      ODStatus = "mentor_rejected"
	StatusHODApproved         ODStatus = "hod_approved"
	StatusHODRejected         ODStatus = "hod_rejected"
	StatusPrincipalApproved   ODStatus = "principal_approved"
	StatusPrincipalRejected   ODStatus = "principal_rejected"
	StatusCertificateUploaded ODStatus = "certificate_uploaded"
	StatusCertificateApproved ODStatus = "certificate_approved"
	StatusCompleted           ODStatus = "completed"
)

// Valid reports whether the value belongs to the closed status set.
func (s ODStatus) Valid() bool {
	switch s {
	case StatusSubmitted, StatusMentorApproved, StatusMentorRejected,
		StatusHODApproved, StatusHODRejected,
		StatusPrincipalApproved, StatusPrincipalRejected,
		StatusCertificateUploaded, StatusCertificateApproved, StatusCompleted:
		return true
	}
	return false
}

// Terminal reports whether the status ends the forward flow. A rejection is
// terminal for ordinary transitions; only the HOD override and the limit
// exception flow may move a request out of mentor_rejected.
func (s ODStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusCertificateApproved,
		StatusMentorRejected, StatusHODRejected, StatusPrincipalRejected:
		return true
	}
	return false
}

// Rejected reports whether the status is any of the rejection states.
func (s ODStatus) Rejected() bool {
	switch s {
	case StatusMentorRejected, StatusHODRejected, StatusPrincipalRejected:
		return true
	}
	return false
}

// PrizeInfo records optional award details attached to a request.
type PrizeInfo struct {
	WonPrize  bool   `db:"won_prize" json:"wonPrize"`
	Position  string `db:"prize_position" json:"position,omitempty"`
	CashPrize int    `db:"cash_prize" json:"cashPrize,omitempty"`
}

// SubjectAttendance captures per-subject attendance at submission time.
type SubjectAttendance struct {
	ID          string  `db:"id" json:"id"`
	RequestID   string  `db:"request_id" json:"-"`
	SubjectCode string  `db:"subject_code" json:"subjectCode"`
	SubjectName string  `db:"subject_name" json:"subjectName"`
	Percentage  float64 `db:"percentage" json:"currentPercentage"`
}

// Attachment references an uploaded proof document.
type Attachment struct {
	ID         string    `db:"id" json:"id"`
	RequestID  string    `db:"request_id" json:"-"`
	FileName   string    `db:"file_name" json:"fileName"`
	MIMEType   string    `db:"mime_type" json:"mimeType"`
	SizeBytes  int64     `db:"size_bytes" json:"sizeBytes"`
	StoredPath string    `db:"stored_path" json:"-"`
	UploadedAt time.Time `db:"uploaded_at" json:"uploadedAt"`
}

// ODRequest is the central approval workflow entity. Requests are never
// deleted; fields mutate in place as the request moves through the chain.
type ODRequest struct {
	ID string `db:"id" json:"id"`

	StudentID   string `db:"student_id" json:"studentId"`
	StudentName string `db:"student_name" json:"studentName"`
	RollNumber  string `db:"roll_number" json:"rollNumber"`
	Department  string `db:"department" json:"department"`
	Year        string `db:"year" json:"year"`

	FromDate       time.Time      `db:"from_date" json:"fromDate"`
	ToDate         time.Time      `db:"to_date" json:"toDate"`
	ODPeriods      pq.StringArray `db:"od_periods" json:"odPeriods"`
	Reason         string         `db:"reason" json:"reason"`
	DetailedReason string         `db:"detailed_reason" json:"detailedReason"`
	Description    string         `db:"description" json:"description,omitempty"`

	Status      ODStatus  `db:"status" json:"status"`
	SubmittedAt time.Time `db:"submitted_at" json:"submittedAt"`
	LastUpdated time.Time `db:"last_updated" json:"lastUpdated"`
	ERPLogged   bool      `db:"erp_logged" json:"erpLogged"`

	MentorFeedback  *string    `db:"mentor_feedback" json:"mentorFeedback,omitempty"`
	MentorName      *string    `db:"mentor_name" json:"mentorName,omitempty"`
	MentorActedAt   *time.Time `db:"mentor_acted_at" json:"mentorActedAt,omitempty"`
	HODFeedback     *string    `db:"hod_feedback" json:"hodFeedback,omitempty"`
	HODName         *string    `db:"hod_name" json:"hodName,omitempty"`
	HODActedAt      *time.Time `db:"hod_acted_at" json:"hodActedAt,omitempty"`
	RejectionReason *string    `db:"rejection_reason" json:"rejectionReason,omitempty"`

	AutoEscalated    bool       `db:"auto_escalated" json:"autoEscalated"`
	EscalatedAt      *time.Time `db:"escalated_at" json:"escalatedAt,omitempty"`
	EscalationReason *string    `db:"escalation_reason" json:"escalationReason,omitempty"`

	OverriddenBy            *string    `db:"overridden_by" json:"overriddenBy,omitempty"`
	OverriddenAt            *time.Time `db:"overridden_at" json:"overriddenAt,omitempty"`
	OverrideJustification   *string    `db:"override_justification" json:"overrideJustification,omitempty"`
	OriginalStatus          *ODStatus  `db:"original_status" json:"originalStatus,omitempty"`
	OriginalRejectionReason *string    `db:"original_rejection_reason" json:"originalRejectionReason,omitempty"`

	ExceptionReviewed   bool       `db:"exception_reviewed" json:"exceptionReviewed"`
	ExceptionApproved   *bool      `db:"exception_approved" json:"exceptionApproved,omitempty"`
	ExceptionRemarks    *string    `db:"exception_remarks" json:"exceptionRemarks,omitempty"`
	ExceptionReviewedBy *string    `db:"exception_reviewed_by" json:"exceptionReviewedBy,omitempty"`
	ExceptionReviewedAt *time.Time `db:"exception_reviewed_at" json:"exceptionReviewedAt,omitempty"`

	PrizeInfo `json:"prizeInfo"`

	Attendance  []SubjectAttendance `db:"-" json:"attendanceInfo,omitempty"`
	Attachments []Attachment        `db:"-" json:"attachments,omitempty"`
}

// ODRequestFilter constrains listing queries.
type ODRequestFilter struct {
	StudentID     string
	Department    string
	Status        []ODStatus
	AutoEscalated *bool
	SubmittedFrom *time.Time
	SubmittedTo   *time.Time
	Limit         int
	Offset        int
}
