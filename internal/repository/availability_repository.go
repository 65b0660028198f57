package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

const (
	availabilityColumns = `teacher_id, day, period, is_available, updated_at`
	assignedColumns     = `teacher_id, class_id, day, period, created_at`
	availabilityOrder   = `array_position(ARRAY['MONDAY','TUESDAY','WEDNESDAY','THURSDAY','FRIDAY','SATURDAY'], day), period`
)

// AvailabilityRepository stores teacher availability flags and the assigned
// schedule back-references derived from schedules.
type AvailabilityRepository struct {
	db *sqlx.DB
}

// NewAvailabilityRepository constructs the repository.
func NewAvailabilityRepository(db *sqlx.DB) *AvailabilityRepository {
	return &AvailabilityRepository{db: db}
}

func (r *AvailabilityRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// FindEntry returns the availability flag for a teacher slot.
func (r *AvailabilityRepository) FindEntry(ctx context.Context, teacherID string, slot models.Slot) (*models.AvailabilityEntry, error) {
	const query = `SELECT ` + availabilityColumns + ` FROM teacher_availability WHERE teacher_id = $1 AND day = $2 AND period = $3`
	var entry models.AvailabilityEntry
	if err := r.db.GetContext(ctx, &entry, query, teacherID, slot.Day, slot.Period); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find availability entry: %w", err)
	}
	return &entry, nil
}

// ListByTeacher returns all entries for a teacher in week order.
func (r *AvailabilityRepository) ListByTeacher(ctx context.Context, exec sqlx.ExtContext, teacherID string) ([]models.AvailabilityEntry, error) {
	const query = `SELECT ` + availabilityColumns + ` FROM teacher_availability WHERE teacher_id = $1 ORDER BY ` + availabilityOrder
	var entries []models.AvailabilityEntry
	if err := sqlx.SelectContext(ctx, r.exec(exec), &entries, query, teacherID); err != nil {
		return nil, fmt.Errorf("list availability: %w", err)
	}
	return entries, nil
}

// LockByTeacher loads a teacher's entries holding row locks until the
// transaction ends. Concurrent flips on the same rows wait behind it.
func (r *AvailabilityRepository) LockByTeacher(ctx context.Context, exec sqlx.ExtContext, teacherID string) ([]models.AvailabilityEntry, error) {
	const query = `SELECT ` + availabilityColumns + ` FROM teacher_availability WHERE teacher_id = $1 ORDER BY ` + availabilityOrder + ` FOR UPDATE`
	var entries []models.AvailabilityEntry
	if err := sqlx.SelectContext(ctx, r.exec(exec), &entries, query, teacherID); err != nil {
		return nil, fmt.Errorf("lock availability: %w", err)
	}
	return entries, nil
}

// MarkOccupied flips a free entry to occupied. It reports false when no free
// entry matched, either because it is missing or another writer took it.
func (r *AvailabilityRepository) MarkOccupied(ctx context.Context, exec sqlx.ExtContext, teacherID string, slot models.Slot) (bool, error) {
	const query = `UPDATE teacher_availability SET is_available = FALSE, updated_at = $4
WHERE teacher_id = $1 AND day = $2 AND period = $3 AND is_available = TRUE`
	return r.flip(ctx, exec, query, teacherID, slot, "mark availability occupied")
}

// MarkFree flips an occupied entry back to free. It reports false when no
// occupied entry matched.
func (r *AvailabilityRepository) MarkFree(ctx context.Context, exec sqlx.ExtContext, teacherID string, slot models.Slot) (bool, error) {
	const query = `UPDATE teacher_availability SET is_available = TRUE, updated_at = $4
WHERE teacher_id = $1 AND day = $2 AND period = $3 AND is_available = FALSE`
	return r.flip(ctx, exec, query, teacherID, slot, "mark availability free")
}

func (r *AvailabilityRepository) flip(ctx context.Context, exec sqlx.ExtContext, query, teacherID string, slot models.Slot, op string) (bool, error) {
	res, err := r.exec(exec).ExecContext(ctx, query, teacherID, slot.Day, slot.Period, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s rows: %w", op, err)
	}
	return affected == 1, nil
}

// Set upserts an entry with the given flag.
func (r *AvailabilityRepository) Set(ctx context.Context, exec sqlx.ExtContext, teacherID string, slot models.Slot, available bool) error {
	const query = `INSERT INTO teacher_availability (teacher_id, day, period, is_available, updated_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (teacher_id, day, period) DO UPDATE
SET is_available = EXCLUDED.is_available,
    updated_at = EXCLUDED.updated_at`
	if _, err := r.exec(exec).ExecContext(ctx, query, teacherID, slot.Day, slot.Period, available, time.Now().UTC()); err != nil {
		return fmt.Errorf("set availability: %w", translatePQ(err))
	}
	return nil
}

// DeleteEntry removes a slot from the teacher's offered set.
func (r *AvailabilityRepository) DeleteEntry(ctx context.Context, exec sqlx.ExtContext, teacherID string, slot models.Slot) error {
	const query = `DELETE FROM teacher_availability WHERE teacher_id = $1 AND day = $2 AND period = $3`
	if _, err := r.exec(exec).ExecContext(ctx, query, teacherID, slot.Day, slot.Period); err != nil {
		return fmt.Errorf("delete availability: %w", err)
	}
	return nil
}

// AddAssigned records a back-reference. A stale reference already holding
// the teacher slot surfaces as ErrAssignedSlotTaken.
func (r *AvailabilityRepository) AddAssigned(ctx context.Context, exec sqlx.ExtContext, ref models.AssignedSchedule) error {
	if ref.CreatedAt.IsZero() {
		ref.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO teacher_assigned_schedules (teacher_id, class_id, day, period, created_at)
VALUES (:teacher_id, :class_id, :day, :period, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, ref); err != nil {
		return fmt.Errorf("add assigned schedule: %w", translatePQ(err))
	}
	return nil
}

// RemoveAssigned deletes the matching back-reference and reports whether one existed.
func (r *AvailabilityRepository) RemoveAssigned(ctx context.Context, exec sqlx.ExtContext, teacherID, classID string, slot models.Slot) (bool, error) {
	const query = `DELETE FROM teacher_assigned_schedules WHERE teacher_id = $1 AND class_id = $2 AND day = $3 AND period = $4`
	res, err := r.exec(exec).ExecContext(ctx, query, teacherID, classID, slot.Day, slot.Period)
	if err != nil {
		return false, fmt.Errorf("remove assigned schedule: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("remove assigned schedule rows: %w", err)
	}
	return affected > 0, nil
}

// ListAssigned returns a teacher's back-references in week order.
func (r *AvailabilityRepository) ListAssigned(ctx context.Context, exec sqlx.ExtContext, teacherID string) ([]models.AssignedSchedule, error) {
	const query = `SELECT ` + assignedColumns + ` FROM teacher_assigned_schedules WHERE teacher_id = $1 ORDER BY ` + availabilityOrder
	var refs []models.AssignedSchedule
	if err := sqlx.SelectContext(ctx, r.exec(exec), &refs, query, teacherID); err != nil {
		return nil, fmt.Errorf("list assigned schedules: %w", err)
	}
	return refs, nil
}

// TeacherIDs returns every teacher referenced by schedules, availability or
// back-references.
func (r *AvailabilityRepository) TeacherIDs(ctx context.Context) ([]string, error) {
	const query = `SELECT teacher_id FROM schedules
UNION SELECT teacher_id FROM teacher_availability
UNION SELECT teacher_id FROM teacher_assigned_schedules
ORDER BY 1`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query); err != nil {
		return nil, fmt.Errorf("list reconcilable teachers: %w", err)
	}
	return ids, nil
}
