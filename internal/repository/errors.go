package repository

import (
	"errors"

	"github.com/lib/pq"
)

// Constraint names declared by the timetable migration.
const (
	constraintClassSlot    = "schedules_class_slot_key"
	constraintTeacherSlot  = "schedules_teacher_slot_key"
	constraintAssignedSlot = "teacher_assigned_schedules_slot_key"
	constraintCourseCode   = "courses_code_key"
)

var (
	// ErrClassSlotTaken reports a unique violation on (class_id, day, period).
	ErrClassSlotTaken = errors.New("class slot already scheduled")
	// ErrTeacherSlotTaken reports a unique violation on (teacher_id, day, period).
	ErrTeacherSlotTaken = errors.New("teacher slot already scheduled")
	// ErrAssignedSlotTaken reports an existing back-reference for the teacher slot.
	ErrAssignedSlotTaken = errors.New("assigned schedule already recorded")
	// ErrDuplicateCode reports a course code collision.
	ErrDuplicateCode = errors.New("course code already exists")
	// ErrUnknownReference reports a foreign key violation.
	ErrUnknownReference = errors.New("referenced record does not exist")
)

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

// translatePQ maps constraint violations onto repository sentinels. Other
// errors are returned unchanged.
func translatePQ(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}
	switch string(pqErr.Code) {
	case pqUniqueViolation:
		switch pqErr.Constraint {
		case constraintClassSlot:
			return ErrClassSlotTaken
		case constraintTeacherSlot:
			return ErrTeacherSlotTaken
		case constraintAssignedSlot:
			return ErrAssignedSlotTaken
		case constraintCourseCode:
			return ErrDuplicateCode
		}
	case pqForeignKeyViolation:
		return ErrUnknownReference
	}
	return err
}
