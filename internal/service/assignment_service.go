package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/internal/repository"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

const dashboardCachePattern = "dash:*"

type unitOfWork interface {
	WithinTx(ctx context.Context, fn func(exec sqlx.ExtContext) error) error
}

type slotScheduleStore interface {
	Insert(ctx context.Context, exec sqlx.ExtContext, schedule *models.Schedule) error
	FindBySlot(ctx context.Context, classID string, slot models.Slot) (*models.Schedule, error)
	FindByID(ctx context.Context, id string) (*models.Schedule, error)
	LockByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Schedule, error)
	Delete(ctx context.Context, exec sqlx.ExtContext, id string) error
	UpdateTeacher(ctx context.Context, exec sqlx.ExtContext, id, teacherID string) error
}

type slotAvailabilityStore interface {
	FindEntry(ctx context.Context, teacherID string, slot models.Slot) (*models.AvailabilityEntry, error)
	MarkOccupied(ctx context.Context, exec sqlx.ExtContext, teacherID string, slot models.Slot) (bool, error)
	MarkFree(ctx context.Context, exec sqlx.ExtContext, teacherID string, slot models.Slot) (bool, error)
	Set(ctx context.Context, exec sqlx.ExtContext, teacherID string, slot models.Slot, available bool) error
	AddAssigned(ctx context.Context, exec sqlx.ExtContext, ref models.AssignedSchedule) error
	RemoveAssigned(ctx context.Context, exec sqlx.ExtContext, teacherID, classID string, slot models.Slot) (bool, error)
}

type reconcileScheduler interface {
	ScheduleTeacher(teacherID string) error
}

// errSlotNotFree marks a conditional availability flip that matched no free entry.
var errSlotNotFree = errors.New("availability entry not free")

// AssignmentServiceParams groups constructor dependencies.
type AssignmentServiceParams struct {
	Schedules     slotScheduleStore
	Availability  slotAvailabilityStore
	Tx            unitOfWork
	Reconciler    reconcileScheduler
	Cache         *CacheService
	Metrics       *MetricsService
	Validator     *validator.Validate
	Logger        *zap.Logger
	Rules         models.SlotRules
	CommitTimeout time.Duration
}

// AssignmentService commits single slot assignments and their reciprocal
// unassign and reassign paths. Schedule rows and availability rows change in
// one transaction.
type AssignmentService struct {
	schedules     slotScheduleStore
	availability  slotAvailabilityStore
	tx            unitOfWork
	reconciler    reconcileScheduler
	cache         *CacheService
	metrics       *MetricsService
	validator     *validator.Validate
	logger        *zap.Logger
	rules         models.SlotRules
	commitTimeout time.Duration
	now           func() time.Time
}

// NewAssignmentService constructs an AssignmentService.
func NewAssignmentService(params AssignmentServiceParams) *AssignmentService {
	validate := params.Validator
	if validate == nil {
		validate = validator.New()
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	rules := params.Rules
	if len(rules.Days) == 0 || rules.PeriodsPerDay <= 0 {
		rules = models.DefaultSlotRules()
	}
	timeout := params.CommitTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &AssignmentService{
		schedules:     params.Schedules,
		availability:  params.Availability,
		tx:            params.Tx,
		reconciler:    params.Reconciler,
		cache:         params.Cache,
		metrics:       params.Metrics,
		validator:     validate,
		logger:        logger,
		rules:         rules,
		commitTimeout: timeout,
		now:           time.Now,
	}
}

// Assign places a teacher into a class slot.
func (s *AssignmentService) Assign(ctx context.Context, req dto.AssignSlotRequest) (schedule *models.Schedule, err error) {
	defer func() { s.metrics.RecordSlotOperation("assign", outcome(err)) }()

	req.ClassID = strings.TrimSpace(req.ClassID)
	req.TeacherID = strings.TrimSpace(req.TeacherID)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload")
	}
	slot, err := s.rules.Resolve(req.Day, req.Period)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}

	// A taken class slot outranks a busy teacher so a repeated request
	// reports the collision the caller can act on.
	availErr := s.ensureTeacherFree(ctx, req.TeacherID, slot)
	if availErr != nil && !appErrors.Is(availErr, appErrors.ErrTeacherUnavailable) {
		return nil, availErr
	}

	existing, err := s.schedules.FindBySlot(ctx, req.ClassID, slot)
	switch {
	case err == nil && existing != nil:
		return nil, appErrors.Clone(appErrors.ErrSlotAlreadyAssigned, "class already has a teacher for this slot")
	case err != nil && !errors.Is(err, sql.ErrNoRows):
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check class slot")
	}
	if availErr != nil {
		return nil, availErr
	}

	if err := ctx.Err(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "request cancelled before commit")
	}

	schedule = &models.Schedule{
		ID:        uuid.NewString(),
		ClassID:   req.ClassID,
		TeacherID: req.TeacherID,
		Day:       slot.Day,
		Period:    slot.Period,
		CreatedAt: s.now().UTC(),
	}

	err = s.commit(ctx, "assign", func(commitCtx context.Context, exec sqlx.ExtContext) error {
		if err := s.schedules.Insert(commitCtx, exec, schedule); err != nil {
			return err
		}
		occupied, err := s.availability.MarkOccupied(commitCtx, exec, schedule.TeacherID, slot)
		if err != nil {
			return err
		}
		if !occupied {
			return errSlotNotFree
		}
		return s.availability.AddAssigned(commitCtx, exec, models.AssignedSchedule{
			TeacherID: schedule.TeacherID,
			ClassID:   schedule.ClassID,
			Day:       slot.Day,
			Period:    slot.Period,
			CreatedAt: schedule.CreatedAt,
		})
	})
	if err != nil {
		return nil, s.mapCommitError(schedule.TeacherID, "assign", err)
	}

	s.afterCommit(ctx)
	s.logger.Info("slot assigned",
		zap.String("schedule_id", schedule.ID),
		zap.String("class_id", schedule.ClassID),
		zap.String("teacher_id", schedule.TeacherID),
		zap.String("slot", slot.String()),
	)
	return schedule, nil
}

// Unassign deletes a schedule entry and frees the teacher slot.
func (s *AssignmentService) Unassign(ctx context.Context, scheduleID string) (removed *models.Schedule, err error) {
	defer func() { s.metrics.RecordSlotOperation("unassign", outcome(err)) }()

	scheduleID = strings.TrimSpace(scheduleID)
	if scheduleID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "schedule id is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "request cancelled before commit")
	}

	drift := false
	err = s.commit(ctx, "unassign", func(commitCtx context.Context, exec sqlx.ExtContext) error {
		current, err := s.schedules.LockByID(commitCtx, exec, scheduleID)
		if err != nil {
			return err
		}
		if err := s.schedules.Delete(commitCtx, exec, current.ID); err != nil {
			return err
		}
		repaired, err := s.release(commitCtx, exec, current)
		if err != nil {
			return err
		}
		drift = repaired
		removed = current
		return nil
	})
	if err != nil {
		return nil, s.mapCommitError("", "unassign", err)
	}

	if drift {
		s.reportDrift(removed.TeacherID, "unassign")
	}
	s.afterCommit(ctx)
	s.logger.Info("slot unassigned",
		zap.String("schedule_id", removed.ID),
		zap.String("teacher_id", removed.TeacherID),
		zap.String("slot", removed.Slot().String()),
	)
	return removed, nil
}

// Reassign moves an existing entry to another teacher at the same slot.
func (s *AssignmentService) Reassign(ctx context.Context, scheduleID string, req dto.ReassignSlotRequest) (updated *models.Schedule, err error) {
	defer func() { s.metrics.RecordSlotOperation("reassign", outcome(err)) }()

	scheduleID = strings.TrimSpace(scheduleID)
	req.TeacherID = strings.TrimSpace(req.TeacherID)
	if scheduleID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "schedule id is required")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid reassignment payload")
	}

	current, err := s.schedules.FindByID(ctx, scheduleID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
	}
	if current.TeacherID == req.TeacherID {
		return current, nil
	}
	if err := s.ensureTeacherFree(ctx, req.TeacherID, current.Slot()); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "request cancelled before commit")
	}

	var previousTeacher string
	drift := false
	err = s.commit(ctx, "reassign", func(commitCtx context.Context, exec sqlx.ExtContext) error {
		locked, err := s.schedules.LockByID(commitCtx, exec, scheduleID)
		if err != nil {
			return err
		}
		if locked.TeacherID == req.TeacherID {
			updated = locked
			return nil
		}
		slot := locked.Slot()
		if err := s.schedules.UpdateTeacher(commitCtx, exec, locked.ID, req.TeacherID); err != nil {
			return err
		}
		repaired, err := s.release(commitCtx, exec, locked)
		if err != nil {
			return err
		}
		occupied, err := s.availability.MarkOccupied(commitCtx, exec, req.TeacherID, slot)
		if err != nil {
			return err
		}
		if !occupied {
			return errSlotNotFree
		}
		if err := s.availability.AddAssigned(commitCtx, exec, models.AssignedSchedule{
			TeacherID: req.TeacherID,
			ClassID:   locked.ClassID,
			Day:       slot.Day,
			Period:    slot.Period,
			CreatedAt: s.now().UTC(),
		}); err != nil {
			return err
		}
		previousTeacher = locked.TeacherID
		drift = repaired
		moved := *locked
		moved.TeacherID = req.TeacherID
		updated = &moved
		return nil
	})
	if err != nil {
		return nil, s.mapCommitError(req.TeacherID, "reassign", err)
	}

	if drift {
		s.reportDrift(previousTeacher, "reassign")
	}
	if previousTeacher != "" {
		s.afterCommit(ctx)
		s.logger.Info("slot reassigned",
			zap.String("schedule_id", updated.ID),
			zap.String("from_teacher_id", previousTeacher),
			zap.String("to_teacher_id", updated.TeacherID),
			zap.String("slot", updated.Slot().String()),
		)
	}
	return updated, nil
}

// ensureTeacherFree rejects teachers without a free entry for the slot. A
// missing teacher and a busy teacher produce the same error.
func (s *AssignmentService) ensureTeacherFree(ctx context.Context, teacherID string, slot models.Slot) error {
	entry, err := s.availability.FindEntry(ctx, teacherID, slot)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrTeacherUnavailable, "teacher is not available for this slot")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check teacher availability")
	}
	if !entry.IsAvailable {
		return appErrors.Clone(appErrors.ErrTeacherUnavailable, "teacher is not available for this slot")
	}
	return nil
}

// release frees the teacher slot held by schedule and drops its
// back-reference. It reports true when the stored state had drifted and was
// repaired in place.
func (s *AssignmentService) release(ctx context.Context, exec sqlx.ExtContext, schedule *models.Schedule) (bool, error) {
	slot := schedule.Slot()
	drift := false
	freed, err := s.availability.MarkFree(ctx, exec, schedule.TeacherID, slot)
	if err != nil {
		return false, err
	}
	if !freed {
		drift = true
		if err := s.availability.Set(ctx, exec, schedule.TeacherID, slot, true); err != nil {
			return false, err
		}
	}
	removed, err := s.availability.RemoveAssigned(ctx, exec, schedule.TeacherID, schedule.ClassID, slot)
	if err != nil {
		return false, err
	}
	if !removed {
		drift = true
	}
	return drift, nil
}

// commit runs fn in a transaction detached from caller cancellation so a
// started commit always finishes or rolls back on its own terms.
func (s *AssignmentService) commit(ctx context.Context, op string, fn func(context.Context, sqlx.ExtContext) error) error {
	commitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.commitTimeout)
	defer cancel()
	start := time.Now()
	err := s.tx.WithinTx(commitCtx, func(exec sqlx.ExtContext) error {
		return fn(commitCtx, exec)
	})
	s.metrics.ObserveDBQuery(op+"_commit", time.Since(start))
	return err
}

func (s *AssignmentService) mapCommitError(teacherID, source string, err error) error {
	switch {
	case errors.Is(err, repository.ErrClassSlotTaken):
		return appErrors.Clone(appErrors.ErrSlotAlreadyAssigned, "class already has a teacher for this slot")
	case errors.Is(err, repository.ErrTeacherSlotTaken), errors.Is(err, errSlotNotFree):
		return appErrors.Clone(appErrors.ErrTeacherUnavailable, "teacher is not available for this slot")
	case errors.Is(err, repository.ErrUnknownReference):
		return appErrors.Clone(appErrors.ErrValidation, "class does not exist")
	case errors.Is(err, sql.ErrNoRows):
		return appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
	case errors.Is(err, repository.ErrAssignedSlotTaken):
		s.reportDrift(teacherID, source)
		return appErrors.Wrap(err, appErrors.ErrConsistency.Code, appErrors.ErrConsistency.Status, "assigned schedules out of sync with schedules; reconciliation scheduled")
	case errors.Is(err, context.DeadlineExceeded):
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "commit timed out")
	default:
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit "+source)
	}
}

// reportDrift raises the consistency alert and queues a repair for the teacher.
func (s *AssignmentService) reportDrift(teacherID, source string) {
	s.metrics.RecordDrift(source)
	s.logger.Error("availability drift detected",
		zap.String("alert", "consistency_drift"),
		zap.String("source", source),
		zap.String("teacher_id", teacherID),
	)
	if s.reconciler == nil || teacherID == "" {
		return
	}
	if err := s.reconciler.ScheduleTeacher(teacherID); err != nil {
		s.logger.Error("failed to schedule reconciliation", zap.String("teacher_id", teacherID), zap.Error(err))
	}
}

func (s *AssignmentService) afterCommit(ctx context.Context) {
	s.cache.Invalidate(context.WithoutCancel(ctx), dashboardCachePattern)
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return appErrors.FromError(err).Code
}
