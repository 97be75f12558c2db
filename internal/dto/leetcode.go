package dto

// UpsertLeetCodeWeekRequest creates or updates one weekly practice record.
type UpsertLeetCodeWeekRequest struct {
	WeekNumber     int    `json:"weekNumber" validate:"required,gte=1"`
	StartDate      string `json:"startDate" validate:"required"`
	EndDate        string `json:"endDate" validate:"required"`
	EasySolved     int    `json:"easySolved" validate:"gte=0"`
	MediumSolved   int    `json:"mediumSolved" validate:"gte=0"`
	HardSolved     int    `json:"hardSolved" validate:"gte=0"`
	TargetProblems int    `json:"targetProblems" validate:"gte=0"`
	Status         string `json:"status" validate:"omitempty,oneof=not-started in-progress completed"`
	Notes          string `json:"notes"`
}

// PracticeStatusResponse summarises the practice gate for a student.
type PracticeStatusResponse struct {
	HasData    bool     `json:"hasData"`
	WeekNumber int      `json:"weekNumber,omitempty"`
	Required   []string `json:"requiredDifficulties"`
	Completed  []string `json:"completedDifficulties"`
	Missing    []string `json:"missingDifficulties"`
	Satisfied  bool     `json:"satisfied"`
	Message    string   `json:"message"`
}
