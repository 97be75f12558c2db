package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/od-tracker-api/internal/models"
)

func newLeetCodeMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestLeetCodeRepositoryUpsert(t *testing.T) {
	db, mock, cleanup := newLeetCodeMock(t)
	defer cleanup()
	repo := NewLeetCodeRepository(db)

	mock.ExpectExec("INSERT INTO leetcode_weeks").
		WillReturnResult(sqlmock.NewResult(1, 1))

	week := &models.LeetCodeWeek{
		StudentID:  "student-1",
		WeekNumber: 37,
		StartDate:  time.Date(2025, time.September, 8, 0, 0, 0, 0, time.UTC),
		EndDate:    time.Date(2025, time.September, 14, 0, 0, 0, 0, time.UTC),
		EasySolved: 3,
		Status:     models.WeekInProgress,
	}
	err := repo.Upsert(context.Background(), week)
	require.NoError(t, err)
	assert.NotEmpty(t, week.ID)
	assert.False(t, week.UpdatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLeetCodeRepositoryListByStudent(t *testing.T) {
	db, mock, cleanup := newLeetCodeMock(t)
	defer cleanup()
	repo := NewLeetCodeRepository(db)

	rows := sqlmock.NewRows([]string{"id", "student_id", "week_number", "easy_solved", "medium_solved", "hard_solved", "status"}).
		AddRow("week-2", "student-1", 38, 2, 1, 0, string(models.WeekInProgress)).
		AddRow("week-1", "student-1", 37, 3, 2, 1, string(models.WeekCompleted))
	mock.ExpectQuery("SELECT (.+) FROM leetcode_weeks").
		WithArgs("student-1").
		WillReturnRows(rows)

	weeks, err := repo.ListByStudent(context.Background(), "student-1")
	require.NoError(t, err)
	require.Len(t, weeks, 2)
	assert.Equal(t, 38, weeks[0].WeekNumber)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLeetCodeRepositoryFindWeekForMatchingWindow(t *testing.T) {
	db, mock, cleanup := newLeetCodeMock(t)
	defer cleanup()
	repo := NewLeetCodeRepository(db)

	date := time.Date(2025, time.September, 10, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "student_id", "week_number"}).
		AddRow("week-1", "student-1", 37)
	mock.ExpectQuery("SELECT (.+) FROM leetcode_weeks").
		WithArgs("student-1", date).
		WillReturnRows(rows)

	week, err := repo.FindWeekFor(context.Background(), "student-1", date)
	require.NoError(t, err)
	assert.Equal(t, 37, week.WeekNumber)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLeetCodeRepositoryFindWeekForFallsBackToLatest(t *testing.T) {
	db, mock, cleanup := newLeetCodeMock(t)
	defer cleanup()
	repo := NewLeetCodeRepository(db)

	date := time.Date(2025, time.September, 20, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT (.+) FROM leetcode_weeks").
		WithArgs("student-1", date).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery("SELECT (.+) FROM leetcode_weeks").
		WithArgs("student-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "student_id", "week_number"}).
			AddRow("week-1", "student-1", 37))

	week, err := repo.FindWeekFor(context.Background(), "student-1", date)
	require.NoError(t, err)
	assert.Equal(t, 37, week.WeekNumber)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLeetCodeRepositoryFindWeekForQueryFailure(t *testing.T) {
	db, mock, cleanup := newLeetCodeMock(t)
	defer cleanup()
	repo := NewLeetCodeRepository(db)

	date := time.Date(2025, time.September, 20, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT (.+) FROM leetcode_weeks").
		WithArgs("student-1", date).
		WillReturnError(errors.New("connection reset"))

	_, err := repo.FindWeekFor(context.Background(), "student-1", date)
	require.Error(t, err)
	assert.NotErrorIs(t, err, sql.ErrNoRows)
	assert.Contains(t, err.Error(), "connection reset")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLeetCodeRepositoryFindWeekForNoRecords(t *testing.T) {
	db, mock, cleanup := newLeetCodeMock(t)
	defer cleanup()
	repo := NewLeetCodeRepository(db)

	date := time.Date(2025, time.September, 20, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT (.+) FROM leetcode_weeks").
		WithArgs("student-1", date).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery("SELECT (.+) FROM leetcode_weeks").
		WithArgs("student-1").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindWeekFor(context.Background(), "student-1", date)
	require.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
