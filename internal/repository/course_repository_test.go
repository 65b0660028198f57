package repository

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

func TestCourseRepositoryCreateDuplicateCode(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO courses")).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "courses_code_key"})

	err := repo.Create(context.Background(), &models.Course{Name: "Math", Code: "MATH-10", Active: true})
	assert.ErrorIs(t, err, ErrDuplicateCode)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDashboardRepositoryStats(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewDashboardRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("AS total_users")).
		WillReturnRows(sqlmock.NewRows([]string{"total_users", "teaching_staff", "student_enrollment", "active_courses", "scheduled_slots"}).
			AddRow(40, 8, 30, 6, 52))

	stats, err := repo.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 40, stats.TotalUsers)
	assert.Equal(t, 8, stats.TeachingStaff)
	assert.Equal(t, 52, stats.ScheduledSlots)
	assert.NoError(t, mock.ExpectationsWereMet())
}
