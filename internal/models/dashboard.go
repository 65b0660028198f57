package models

import "time"

// DashboardStats holds the aggregate counts shown on the admin dashboard.
type DashboardStats struct {
	TotalUsers        int       `db:"total_users" json:"totalUsers"`
	TeachingStaff     int       `db:"teaching_staff" json:"teachingStaff"`
	StudentEnrollment int       `db:"student_enrollment" json:"studentEnrollment"`
	ActiveCourses     int       `db:"active_courses" json:"activeCourses"`
	ScheduledSlots    int       `db:"scheduled_slots" json:"scheduledSlots"`
	GeneratedAt       time.Time `db:"-" json:"generatedAt"`
}
