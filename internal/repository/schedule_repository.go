package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

const (
	scheduleColumns = `id, class_id, teacher_id, day, period, created_at`

	scheduleDetailSelect = `SELECT s.id, s.class_id, s.teacher_id, s.day, s.period, s.created_at,
c.name AS class_name, c.code AS class_code, u.full_name AS teacher_name
FROM schedules s
JOIN courses c ON c.id = s.class_id
JOIN users u ON u.id = s.teacher_id`

	dayOrderSQL = `array_position(ARRAY['MONDAY','TUESDAY','WEDNESDAY','THURSDAY','FRIDAY','SATURDAY'], s.day)`
)

// ScheduleRepository persists schedule entries, the source of truth for occupancy.
type ScheduleRepository struct {
	db *sqlx.DB
}

// NewScheduleRepository constructs a schedule repository.
func NewScheduleRepository(db *sqlx.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

func (r *ScheduleRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// Insert stores a new entry. Slot collisions surface as ErrClassSlotTaken or
// ErrTeacherSlotTaken; an unknown class or teacher as ErrUnknownReference.
func (r *ScheduleRepository) Insert(ctx context.Context, exec sqlx.ExtContext, schedule *models.Schedule) error {
	if schedule.ID == "" {
		schedule.ID = uuid.NewString()
	}
	if schedule.CreatedAt.IsZero() {
		schedule.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO schedules (id, class_id, teacher_id, day, period, created_at)
VALUES (:id, :class_id, :teacher_id, :day, :period, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, schedule); err != nil {
		return fmt.Errorf("insert schedule: %w", translatePQ(err))
	}
	return nil
}

// FindBySlot returns the entry occupying the class slot.
func (r *ScheduleRepository) FindBySlot(ctx context.Context, classID string, slot models.Slot) (*models.Schedule, error) {
	const query = `SELECT ` + scheduleColumns + ` FROM schedules WHERE class_id = $1 AND day = $2 AND period = $3 LIMIT 1`
	var schedule models.Schedule
	if err := r.db.GetContext(ctx, &schedule, query, classID, slot.Day, slot.Period); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find schedule by slot: %w", err)
	}
	return &schedule, nil
}

// FindByID returns a single entry.
func (r *ScheduleRepository) FindByID(ctx context.Context, id string) (*models.Schedule, error) {
	const query = `SELECT ` + scheduleColumns + ` FROM schedules WHERE id = $1`
	var schedule models.Schedule
	if err := r.db.GetContext(ctx, &schedule, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find schedule: %w", err)
	}
	return &schedule, nil
}

// LockByID loads an entry with a row lock held until the transaction ends.
func (r *ScheduleRepository) LockByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Schedule, error) {
	const query = `SELECT ` + scheduleColumns + ` FROM schedules WHERE id = $1 FOR UPDATE`
	var schedule models.Schedule
	if err := sqlx.GetContext(ctx, r.exec(exec), &schedule, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("lock schedule: %w", err)
	}
	return &schedule, nil
}

// Delete removes an entry.
func (r *ScheduleRepository) Delete(ctx context.Context, exec sqlx.ExtContext, id string) error {
	const query = `DELETE FROM schedules WHERE id = $1`
	res, err := r.exec(exec).ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete schedule: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// UpdateTeacher moves an entry to another teacher.
func (r *ScheduleRepository) UpdateTeacher(ctx context.Context, exec sqlx.ExtContext, id, teacherID string) error {
	const query = `UPDATE schedules SET teacher_id = $2 WHERE id = $1`
	if _, err := r.exec(exec).ExecContext(ctx, query, id, teacherID); err != nil {
		return fmt.Errorf("update schedule teacher: %w", translatePQ(err))
	}
	return nil
}

// BusyTeacherIDs returns teachers holding any entry at the slot.
func (r *ScheduleRepository) BusyTeacherIDs(ctx context.Context, slot models.Slot) ([]string, error) {
	const query = `SELECT DISTINCT teacher_id FROM schedules WHERE day = $1 AND period = $2`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, slot.Day, slot.Period); err != nil {
		return nil, fmt.Errorf("list busy teachers: %w", err)
	}
	return ids, nil
}

// ListForTeacher returns raw entries for a teacher, optionally inside a transaction.
func (r *ScheduleRepository) ListForTeacher(ctx context.Context, exec sqlx.ExtContext, teacherID string) ([]models.Schedule, error) {
	const query = `SELECT ` + scheduleColumns + ` FROM schedules WHERE teacher_id = $1`
	var schedules []models.Schedule
	if err := sqlx.SelectContext(ctx, r.exec(exec), &schedules, query, teacherID); err != nil {
		return nil, fmt.Errorf("list teacher schedules: %w", err)
	}
	return schedules, nil
}

// ListByTeacher returns a teacher's timetable in week order.
func (r *ScheduleRepository) ListByTeacher(ctx context.Context, teacherID string) ([]models.ScheduleDetail, error) {
	query := scheduleDetailSelect + ` WHERE s.teacher_id = $1 ORDER BY ` + dayOrderSQL + `, s.period`
	var schedules []models.ScheduleDetail
	if err := r.db.SelectContext(ctx, &schedules, query, teacherID); err != nil {
		return nil, fmt.Errorf("list schedules by teacher: %w", err)
	}
	return schedules, nil
}

// ListByClass returns a class timetable in week order.
func (r *ScheduleRepository) ListByClass(ctx context.Context, classID string) ([]models.ScheduleDetail, error) {
	query := scheduleDetailSelect + ` WHERE s.class_id = $1 ORDER BY ` + dayOrderSQL + `, s.period`
	var schedules []models.ScheduleDetail
	if err := r.db.SelectContext(ctx, &schedules, query, classID); err != nil {
		return nil, fmt.Errorf("list schedules by class: %w", err)
	}
	return schedules, nil
}

// List returns a filtered page of entries with the total count.
func (r *ScheduleRepository) List(ctx context.Context, filter models.ScheduleFilter) ([]models.ScheduleDetail, int, error) {
	var conditions []string
	var args []interface{}

	if filter.ClassID != "" {
		conditions = append(conditions, fmt.Sprintf("s.class_id = $%d", len(args)+1))
		args = append(args, filter.ClassID)
	}
	if filter.TeacherID != "" {
		conditions = append(conditions, fmt.Sprintf("s.teacher_id = $%d", len(args)+1))
		args = append(args, filter.TeacherID)
	}
	if filter.Day != "" {
		conditions = append(conditions, fmt.Sprintf("s.day = $%d", len(args)+1))
		args = append(args, filter.Day)
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 50
	}
	offset := (page - 1) * pageSize

	listQuery := fmt.Sprintf("%s%s ORDER BY %s, s.period, c.code LIMIT %d OFFSET %d", scheduleDetailSelect, where, dayOrderSQL, pageSize, offset)
	var schedules []models.ScheduleDetail
	if err := r.db.SelectContext(ctx, &schedules, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list schedules: %w", err)
	}

	countQuery := "SELECT COUNT(*) FROM schedules s" + where
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count schedules: %w", err)
	}

	return schedules, total, nil
}
