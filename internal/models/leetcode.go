package models

import "time"

// WeekStatus tracks the student's own progress marker for a practice week.
type WeekStatus string

const (
	WeekNotStarted WeekStatus = "not-started"
	WeekInProgress WeekStatus = "in-progress"
	WeekCompleted  WeekStatus = "completed"
)

// Difficulty names a LeetCode problem tier.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// LeetCodeWeek is a per-student weekly practice record. It is owned and
// mutated entirely by the student and read-only to submission validation.
type LeetCodeWeek struct {
	ID             string     `db:"id" json:"id"`
	StudentID      string     `db:"student_id" json:"studentId"`
	WeekNumber     int        `db:"week_number" json:"weekNumber"`
	StartDate      time.Time  `db:"start_date" json:"startDate"`
	EndDate        time.Time  `db:"end_date" json:"endDate"`
	EasySolved     int        `db:"easy_solved" json:"easySolved"`
	MediumSolved   int        `db:"medium_solved" json:"mediumSolved"`
	HardSolved     int        `db:"hard_solved" json:"hardSolved"`
	TargetProblems int        `db:"target_problems" json:"targetProblems"`
	Status         WeekStatus `db:"status" json:"status"`
	Notes          *string    `db:"notes" json:"notes,omitempty"`
	CompletedAt    *time.Time `db:"completed_at" json:"completedAt,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updatedAt"`
}

// TotalSolved sums solved problems across tiers.
func (w LeetCodeWeek) TotalSolved() int {
	return w.EasySolved + w.MediumSolved + w.HardSolved
}

// SolvedFor returns the solved count for a tier.
func (w LeetCodeWeek) SolvedFor(d Difficulty) int {
	switch d {
	case DifficultyEasy:
		return w.EasySolved
	case DifficultyMedium:
		return w.MediumSolved
	case DifficultyHard:
		return w.HardSolved
	}
	return 0
}
