package dto

// SubjectAttendanceInput mirrors the attendance snapshot captured at submission.
type SubjectAttendanceInput struct {
	SubjectCode string  `json:"subjectCode" validate:"required"`
	SubjectName string  `json:"subjectName" validate:"required"`
	Percentage  float64 `json:"currentPercentage" validate:"gte=0,lte=100"`
}

// PrizeInfoInput carries optional award details.
type PrizeInfoInput struct {
	WonPrize  bool   `json:"wonPrize"`
	Position  string `json:"position"`
	CashPrize int    `json:"cashPrize"`
}

// SubmitODRequest is the student submission payload.
type SubmitODRequest struct {
	RollNumber     string                   `json:"rollNumber" validate:"required"`
	FromDate       string                   `json:"fromDate" validate:"required"`
	ToDate         string                   `json:"toDate" validate:"required"`
	ODPeriods      []string                 `json:"odPeriods" validate:"required,min=1"`
	Reason         string                   `json:"reason" validate:"required"`
	DetailedReason string                   `json:"detailedReason" validate:"required"`
	Description    string                   `json:"description"`
	PrizeInfo      PrizeInfoInput           `json:"prizeInfo"`
	Attendance     []SubjectAttendanceInput `json:"attendanceInfo"`
}

// MentorDecision enumerates mentor actions on a submitted request.
type MentorDecision string

const (
	MentorApprove MentorDecision = "approve"
	MentorReject  MentorDecision = "reject"
	MentorReturn  MentorDecision = "return"
)

// MentorActionRequest is the mentor's decision payload.
type MentorActionRequest struct {
	Decision MentorDecision `json:"decision" validate:"required,oneof=approve reject return"`
	Feedback string         `json:"feedback"`
}

// HODActionRequest is the HOD's decision payload on a mentor-approved request.
type HODActionRequest struct {
	Approve  bool   `json:"approve"`
	Feedback string `json:"feedback"`
}

// OverrideRequest reverses a mentor rejection at HOD level.
type OverrideRequest struct {
	Justification string `json:"justification" validate:"required"`
}

// ExceptionDecisionRequest resolves an over-limit special-case request.
type ExceptionDecisionRequest struct {
	Approve bool   `json:"approve"`
	Remarks string `json:"remarks" validate:"required"`
}

// ODRequestQuery filters listing endpoints.
type ODRequestQuery struct {
	StudentID  string
	Department string
	Status     []string
	Escalated  *bool
	Limit      int
	Offset     int
}
