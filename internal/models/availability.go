package models

import "time"

// AvailabilityEntry is one stored (teacher, day, period) availability flag.
type AvailabilityEntry struct {
	TeacherID   string    `db:"teacher_id" json:"teacherId"`
	Day         Weekday   `db:"day" json:"day"`
	Period      int       `db:"period" json:"period"`
	IsAvailable bool      `db:"is_available" json:"isAvailable"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt"`
}

// Slot returns the (day, period) pair of the entry.
func (e AvailabilityEntry) Slot() Slot {
	return Slot{Day: e.Day, Period: e.Period}
}

// AssignedSchedule is the denormalized back-reference kept per teacher.
type AssignedSchedule struct {
	TeacherID string    `db:"teacher_id" json:"-"`
	ClassID   string    `db:"class_id" json:"classId"`
	Day       Weekday   `db:"day" json:"day"`
	Period    int       `db:"period" json:"period"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// Slot returns the (day, period) pair of the back-reference.
func (a AssignedSchedule) Slot() Slot {
	return Slot{Day: a.Day, Period: a.Period}
}

// PeriodAvailability is a single period flag inside a day.
type PeriodAvailability struct {
	Period      int  `json:"period"`
	IsAvailable bool `json:"isAvailable"`
}

// DayAvailability groups period flags for one weekday.
type DayAvailability struct {
	Day     Weekday              `json:"day"`
	Periods []PeriodAvailability `json:"periods"`
}

// TeacherAvailability is the per-teacher availability record.
type TeacherAvailability struct {
	TeacherID         string             `json:"teacherId"`
	Available         []DayAvailability  `json:"available"`
	AssignedSchedules []AssignedSchedule `json:"assignedSchedules"`
	Retained          []Slot             `json:"retained,omitempty"`
}

// AvailabilityStatus explains an availability query result.
type AvailabilityStatus string

const (
	AvailabilityStatusAvailable   AvailabilityStatus = "AVAILABLE"
	AvailabilityStatusAllBusy     AvailabilityStatus = "ALL_BUSY"
	AvailabilityStatusRosterEmpty AvailabilityStatus = "ROSTER_EMPTY"
)

// AvailableTeachers is the answer to "who is free at this slot".
type AvailableTeachers struct {
	Day           Weekday            `json:"day"`
	Period        int                `json:"period"`
	Teachers      []RosterTeacher    `json:"teachers"`
	Status        AvailabilityStatus `json:"status"`
	RosterSize    int                `json:"rosterSize"`
	BusyCount     int                `json:"busyCount"`
	UnmatchedBusy int                `json:"unmatchedBusy"`
}
