package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/od-tracker-api/internal/models"
)

const leetCodeColumns = `id, student_id, week_number, start_date, end_date,
       easy_solved, medium_solved, hard_solved, target_problems,
       status, notes, completed_at, created_at, updated_at`

// LeetCodeRepository persists weekly practice records.
type LeetCodeRepository struct {
	db *sqlx.DB
}

// NewLeetCodeRepository constructs the repository.
func NewLeetCodeRepository(db *sqlx.DB) *LeetCodeRepository {
	return &LeetCodeRepository{db: db}
}

// Upsert inserts or replaces the record for (student, week number).
func (r *LeetCodeRepository) Upsert(ctx context.Context, week *models.LeetCodeWeek) error {
	if week.ID == "" {
		week.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if week.CreatedAt.IsZero() {
		week.CreatedAt = now
	}
	week.UpdatedAt = now
	const query = `INSERT INTO leetcode_weeks
	(id, student_id, week_number, start_date, end_date,
	 easy_solved, medium_solved, hard_solved, target_problems,
	 status, notes, completed_at, created_at, updated_at)
	VALUES (:id, :student_id, :week_number, :start_date, :end_date,
	 :easy_solved, :medium_solved, :hard_solved, :target_problems,
	 :status, :notes, :completed_at, :created_at, :updated_at)
	ON CONFLICT (student_id, week_number) DO UPDATE SET
	 start_date = EXCLUDED.start_date,
	 end_date = EXCLUDED.end_date,
	 easy_solved = EXCLUDED.easy_solved,
	 medium_solved = EXCLUDED.medium_solved,
	 hard_solved = EXCLUDED.hard_solved,
	 target_problems = EXCLUDED.target_problems,
	 status = EXCLUDED.status,
	 notes = EXCLUDED.notes,
	 completed_at = EXCLUDED.completed_at,
	 updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, week); err != nil {
		return fmt.Errorf("upsert leetcode week: %w", err)
	}
	return nil
}

// ListByStudent returns all weeks for a student, most recent week first.
func (r *LeetCodeRepository) ListByStudent(ctx context.Context, studentID string) ([]models.LeetCodeWeek, error) {
	query := fmt.Sprintf(`SELECT %s FROM leetcode_weeks
	WHERE student_id = $1 ORDER BY week_number DESC`, leetCodeColumns)
	var weeks []models.LeetCodeWeek
	if err := r.db.SelectContext(ctx, &weeks, query, studentID); err != nil {
		return nil, fmt.Errorf("list leetcode weeks: %w", err)
	}
	return weeks, nil
}

// FindWeekFor returns the record whose window contains the given date, or,
// when none matches, the most recent record by week number. sql.ErrNoRows
// when the student has no records at all.
func (r *LeetCodeRepository) FindWeekFor(ctx context.Context, studentID string, date time.Time) (*models.LeetCodeWeek, error) {
	query := fmt.Sprintf(`SELECT %s FROM leetcode_weeks
	WHERE student_id = $1 AND start_date <= $2 AND end_date >= $2
	ORDER BY week_number DESC LIMIT 1`, leetCodeColumns)
	var week models.LeetCodeWeek
	err := r.db.GetContext(ctx, &week, query, studentID, date)
	if err == nil {
		return &week, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("find leetcode week: %w", err)
	}

	fallback := fmt.Sprintf(`SELECT %s FROM leetcode_weeks
	WHERE student_id = $1 ORDER BY week_number DESC LIMIT 1`, leetCodeColumns)
	if err := r.db.GetContext(ctx, &week, fallback, studentID); err != nil {
		return nil, err
	}
	return &week, nil
}
