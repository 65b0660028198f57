package models

import "time"

// Schedule is one committed teacher-to-class-slot assignment. It is the
// source of truth for teacher occupancy.
type Schedule struct {
	ID        string    `db:"id" json:"id"`
	ClassID   string    `db:"class_id" json:"classId"`
	TeacherID string    `db:"teacher_id" json:"teacherId"`
	Day       Weekday   `db:"day" json:"day"`
	Period    int       `db:"period" json:"period"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// Slot returns the (day, period) pair of the entry.
func (s Schedule) Slot() Slot {
	return Slot{Day: s.Day, Period: s.Period}
}

// ScheduleDetail enriches a schedule entry with display names.
type ScheduleDetail struct {
	Schedule
	ClassName   string `db:"class_name" json:"className"`
	ClassCode   string `db:"class_code" json:"classCode"`
	TeacherName string `db:"teacher_name" json:"teacherName"`
}

// ScheduleFilter describes query params for listing schedules.
type ScheduleFilter struct {
	ClassID   string
	TeacherID string
	Day       Weekday
	Page      int
	PageSize  int
}
