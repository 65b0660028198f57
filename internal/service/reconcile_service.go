package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

// errDryRun rolls back a verification pass after drift has been measured.
var errDryRun = errors.New("dry run")

type reconcileScheduleReader interface {
	ListForTeacher(ctx context.Context, exec sqlx.ExtContext, teacherID string) ([]models.Schedule, error)
}

type reconcileAvailabilityStore interface {
	LockByTeacher(ctx context.Context, exec sqlx.ExtContext, teacherID string) ([]models.AvailabilityEntry, error)
	Set(ctx context.Context, exec sqlx.ExtContext, teacherID string, slot models.Slot, available bool) error
	ListAssigned(ctx context.Context, exec sqlx.ExtContext, teacherID string) ([]models.AssignedSchedule, error)
	AddAssigned(ctx context.Context, exec sqlx.ExtContext, ref models.AssignedSchedule) error
	RemoveAssigned(ctx context.Context, exec sqlx.ExtContext, teacherID, classID string, slot models.Slot) (bool, error)
	TeacherIDs(ctx context.Context) ([]string, error)
}

// ReconcileService rebuilds availability flags and assigned-schedule
// back-references from the schedules table.
type ReconcileService struct {
	schedules    reconcileScheduleReader
	availability reconcileAvailabilityStore
	tx           unitOfWork
	cache        *CacheService
	metrics      *MetricsService
	logger       *zap.Logger
}

// NewReconcileService constructs a ReconcileService.
func NewReconcileService(schedules reconcileScheduleReader, availability reconcileAvailabilityStore, tx unitOfWork, cache *CacheService, metrics *MetricsService, logger *zap.Logger) *ReconcileService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReconcileService{
		schedules:    schedules,
		availability: availability,
		tx:           tx,
		cache:        cache,
		metrics:      metrics,
		logger:       logger,
	}
}

// ReconcileTeacher repairs one teacher and reports what changed.
func (s *ReconcileService) ReconcileTeacher(ctx context.Context, teacherID string) (*models.ReconcileReport, error) {
	teacherID = strings.TrimSpace(teacherID)
	if teacherID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "teacher id is required")
	}
	report, err := s.reconcile(ctx, teacherID, false)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reconcile teacher")
	}
	if report.Drift() > 0 {
		s.cache.Invalidate(context.WithoutCancel(ctx), dashboardCachePattern)
	}
	return report, nil
}

// ReconcileAll repairs every teacher that has availability, back-references
// or schedule entries. Per-teacher failures are collected, not fatal.
func (s *ReconcileService) ReconcileAll(ctx context.Context) ([]models.ReconcileReport, error) {
	reports, err := s.sweep(ctx, false)
	if err != nil {
		return reports, err
	}
	for _, report := range reports {
		if report.Drift() > 0 {
			s.cache.Invalidate(context.WithoutCancel(ctx), dashboardCachePattern)
			break
		}
	}
	return reports, nil
}

// Verify measures drift without writing. It returns a consistency error
// alongside the reports when any teacher is out of sync.
func (s *ReconcileService) Verify(ctx context.Context) ([]models.ReconcileReport, error) {
	reports, err := s.sweep(ctx, true)
	if err != nil {
		return reports, err
	}
	drifted := 0
	for _, report := range reports {
		if report.Drift() > 0 {
			drifted++
		}
	}
	if drifted > 0 {
		return reports, appErrors.Clone(appErrors.ErrConsistency, fmt.Sprintf("%d teacher(s) out of sync with schedules", drifted))
	}
	return reports, nil
}

func (s *ReconcileService) sweep(ctx context.Context, dryRun bool) ([]models.ReconcileReport, error) {
	ids, err := s.availability.TeacherIDs(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list teachers for reconciliation")
	}
	reports := make([]models.ReconcileReport, 0, len(ids))
	var errs []error
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		report, err := s.reconcile(ctx, id, dryRun)
		if err != nil {
			s.logger.Error("reconcile teacher failed", zap.String("teacher_id", id), zap.Error(err))
			errs = append(errs, fmt.Errorf("teacher %s: %w", id, err))
			continue
		}
		if report.Drift() > 0 {
			reports = append(reports, *report)
		}
	}
	if len(errs) > 0 {
		return reports, appErrors.Wrap(errors.Join(errs...), appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "reconciliation incomplete")
	}
	return reports, nil
}

func (s *ReconcileService) reconcile(ctx context.Context, teacherID string, dryRun bool) (*models.ReconcileReport, error) {
	report := &models.ReconcileReport{TeacherID: teacherID, DryRun: dryRun}
	err := s.tx.WithinTx(ctx, func(exec sqlx.ExtContext) error {
		entries, err := s.availability.LockByTeacher(ctx, exec, teacherID)
		if err != nil {
			return err
		}
		scheduled, err := s.schedules.ListForTeacher(ctx, exec, teacherID)
		if err != nil {
			return err
		}

		occupied := make(map[models.Slot]string, len(scheduled))
		slots := make([]models.Slot, 0, len(scheduled))
		for _, item := range scheduled {
			occupied[item.Slot()] = item.ClassID
			slots = append(slots, item.Slot())
		}
		sort.Slice(slots, func(i, j int) bool { return slots[i].Less(slots[j]) })

		stored := make(map[models.Slot]struct{}, len(entries))
		for _, entry := range entries {
			slot := entry.Slot()
			stored[slot] = struct{}{}
			_, busy := occupied[slot]
			if entry.IsAvailable == !busy {
				continue
			}
			report.AvailabilityFixed++
			if err := s.availability.Set(ctx, exec, teacherID, slot, !busy); err != nil {
				return err
			}
		}
		for _, slot := range slots {
			if _, ok := stored[slot]; ok {
				continue
			}
			report.EntriesCreated++
			if err := s.availability.Set(ctx, exec, teacherID, slot, false); err != nil {
				return err
			}
		}

		refs, err := s.availability.ListAssigned(ctx, exec, teacherID)
		if err != nil {
			return err
		}
		linked := make(map[models.Slot]struct{}, len(refs))
		for _, ref := range refs {
			slot := ref.Slot()
			if classID, ok := occupied[slot]; ok && classID == ref.ClassID {
				linked[slot] = struct{}{}
				continue
			}
			report.BackRefsRemoved++
			if _, err := s.availability.RemoveAssigned(ctx, exec, teacherID, ref.ClassID, slot); err != nil {
				return err
			}
		}
		for _, slot := range slots {
			if _, ok := linked[slot]; ok {
				continue
			}
			report.BackRefsAdded++
			if err := s.availability.AddAssigned(ctx, exec, models.AssignedSchedule{
				TeacherID: teacherID,
				ClassID:   occupied[slot],
				Day:       slot.Day,
				Period:    slot.Period,
			}); err != nil {
				return err
			}
		}

		if dryRun {
			return errDryRun
		}
		return nil
	})
	if err != nil && !errors.Is(err, errDryRun) {
		return nil, err
	}

	if drift := report.Drift(); drift > 0 {
		if dryRun {
			s.logger.Warn("availability drift found",
				zap.String("teacher_id", teacherID),
				zap.Int("drift", drift),
			)
		} else {
			s.metrics.RecordReconcileFixes(drift)
			s.logger.Warn("availability drift repaired",
				zap.String("teacher_id", teacherID),
				zap.Int("availability_fixed", report.AvailabilityFixed),
				zap.Int("entries_created", report.EntriesCreated),
				zap.Int("back_refs_added", report.BackRefsAdded),
				zap.Int("back_refs_removed", report.BackRefsRemoved),
			)
		}
	}
	return report, nil
}
