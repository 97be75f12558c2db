package models

// LimitStatus classifies a student's OD usage against the semester cap.
type LimitStatus string

const (
	LimitWithin   LimitStatus = "within-limit"
	LimitAt       LimitStatus = "at-limit"
	LimitExceeded LimitStatus = "exceeded"
)

// ODLimitSnapshot is a derived, on-demand view of a student's usage for one
// semester. It is never persisted.
type ODLimitSnapshot struct {
	StudentID string      `json:"studentId"`
	Semester  string      `json:"semester"`
	TotalODs  int         `json:"totalODs"`
	MaxLimit  int         `json:"maxLimit"`
	Remaining int         `json:"remaining"`
	Status    LimitStatus `json:"status"`
}
