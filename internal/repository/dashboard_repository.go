package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

// DashboardRepository aggregates counts for the admin dashboard.
type DashboardRepository struct {
	db *sqlx.DB
}

// NewDashboardRepository constructs the repository.
func NewDashboardRepository(db *sqlx.DB) *DashboardRepository {
	return &DashboardRepository{db: db}
}

// Stats computes all dashboard counters in one round trip.
func (r *DashboardRepository) Stats(ctx context.Context) (*models.DashboardStats, error) {
	const query = `SELECT
    (SELECT COUNT(*) FROM users) AS total_users,
    (SELECT COUNT(*) FROM users WHERE role = 'TEACHER' AND active = TRUE) AS teaching_staff,
    (SELECT COUNT(*) FROM users WHERE role = 'STUDENT' AND active = TRUE) AS student_enrollment,
    (SELECT COUNT(*) FROM courses WHERE active = TRUE) AS active_courses,
    (SELECT COUNT(*) FROM schedules) AS scheduled_slots`
	var stats models.DashboardStats
	if err := r.db.GetContext(ctx, &stats, query); err != nil {
		return nil, fmt.Errorf("load dashboard stats: %w", err)
	}
	return &stats, nil
}
