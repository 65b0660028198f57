package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

type rosterReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	ListTeachers(ctx context.Context) ([]models.RosterTeacher, error)
}

type availabilityScheduleReader interface {
	BusyTeacherIDs(ctx context.Context, slot models.Slot) ([]string, error)
	ListForTeacher(ctx context.Context, exec sqlx.ExtContext, teacherID string) ([]models.Schedule, error)
}

type availabilityStore interface {
	ListByTeacher(ctx context.Context, exec sqlx.ExtContext, teacherID string) ([]models.AvailabilityEntry, error)
	LockByTeacher(ctx context.Context, exec sqlx.ExtContext, teacherID string) ([]models.AvailabilityEntry, error)
	Set(ctx context.Context, exec sqlx.ExtContext, teacherID string, slot models.Slot, available bool) error
	DeleteEntry(ctx context.Context, exec sqlx.ExtContext, teacherID string, slot models.Slot) error
	ListAssigned(ctx context.Context, exec sqlx.ExtContext, teacherID string) ([]models.AssignedSchedule, error)
}

// AvailabilityServiceParams groups constructor dependencies.
type AvailabilityServiceParams struct {
	Users        rosterReader
	Schedules    availabilityScheduleReader
	Availability availabilityStore
	Tx           unitOfWork
	Cache        *CacheService
	Validator    *validator.Validate
	Logger       *zap.Logger
	Rules        models.SlotRules
}

// AvailabilityService answers free-teacher queries and maintains teacher
// availability grids.
type AvailabilityService struct {
	users        rosterReader
	schedules    availabilityScheduleReader
	availability availabilityStore
	tx           unitOfWork
	cache        *CacheService
	validator    *validator.Validate
	logger       *zap.Logger
	rules        models.SlotRules
}

// NewAvailabilityService constructs an AvailabilityService.
func NewAvailabilityService(params AvailabilityServiceParams) *AvailabilityService {
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
	return &AvailabilityService{
		users:        params.Users,
		schedules:    params.Schedules,
		availability: params.Availability,
		tx:           params.Tx,
		cache:        params.Cache,
		validator:    validate,
		logger:       logger,
		rules:        rules,
	}
}

// Query returns the roster teachers with no schedule entry at the slot.
// Occupancy comes from schedules alone; an empty result is never replaced
// by the full roster.
func (s *AvailabilityService) Query(ctx context.Context, q dto.AvailabilityQuery) (*models.AvailableTeachers, error) {
	if err := s.validator.Struct(q); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid availability query")
	}
	slot, err := s.rules.Resolve(q.Day, q.Period)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}

	busy, err := s.schedules.BusyTeacherIDs(ctx, slot)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load busy teachers")
	}
	roster, err := s.users.ListTeachers(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher roster")
	}

	busySet := make(map[string]struct{}, len(busy))
	for _, id := range busy {
		busySet[id] = struct{}{}
	}

	free := make([]models.RosterTeacher, 0, len(roster))
	matched := make(map[string]struct{}, len(busySet))
	for _, teacher := range roster {
		if _, isBusy := busySet[teacher.ID]; isBusy {
			matched[teacher.ID] = struct{}{}
			continue
		}
		free = append(free, teacher)
	}

	result := &models.AvailableTeachers{
		Day:        slot.Day,
		Period:     slot.Period,
		Teachers:   free,
		RosterSize: len(roster),
		BusyCount:  len(matched),
	}
	switch {
	case len(roster) == 0:
		result.Status = models.AvailabilityStatusRosterEmpty
	case len(free) == 0:
		result.Status = models.AvailabilityStatusAllBusy
	default:
		result.Status = models.AvailabilityStatusAvailable
	}

	if unmatched := len(busySet) - len(matched); unmatched > 0 {
		result.UnmatchedBusy = unmatched
		ids := make([]string, 0, unmatched)
		for id := range busySet {
			if _, ok := matched[id]; !ok {
				ids = append(ids, id)
			}
		}
		sort.Strings(ids)
		s.logger.Warn("busy teachers missing from roster",
			zap.String("slot", slot.String()),
			zap.Strings("teacher_ids", ids),
		)
	}
	return result, nil
}

// Get returns the stored availability grid and back-references for a teacher.
func (s *AvailabilityService) Get(ctx context.Context, teacherID string) (*models.TeacherAvailability, error) {
	teacherID = strings.TrimSpace(teacherID)
	if err := s.ensureTeacher(ctx, teacherID); err != nil {
		return nil, err
	}
	entries, err := s.availability.ListByTeacher(ctx, nil, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load availability")
	}
	assigned, err := s.availability.ListAssigned(ctx, nil, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assigned schedules")
	}
	if assigned == nil {
		assigned = []models.AssignedSchedule{}
	}
	return &models.TeacherAvailability{
		TeacherID:         teacherID,
		Available:         groupByDay(entries),
		AssignedSchedules: assigned,
	}, nil
}

// Provision replaces the offered slots of a teacher. Offered slots that are
// already scheduled are stored as unavailable; unoffered slots that are
// scheduled stay in place and are reported as retained.
func (s *AvailabilityService) Provision(ctx context.Context, teacherID string, req dto.ProvisionAvailabilityRequest) (*models.TeacherAvailability, error) {
	teacherID = strings.TrimSpace(teacherID)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid availability payload")
	}
	offered, err := s.offeredSlots(req)
	if err != nil {
		return nil, err
	}
	if err := s.ensureTeacher(ctx, teacherID); err != nil {
		return nil, err
	}

	var retained []models.Slot
	err = s.tx.WithinTx(ctx, func(exec sqlx.ExtContext) error {
		current, err := s.availability.LockByTeacher(ctx, exec, teacherID)
		if err != nil {
			return err
		}
		scheduled, err := s.schedules.ListForTeacher(ctx, exec, teacherID)
		if err != nil {
			return err
		}
		occupied := make(map[models.Slot]struct{}, len(scheduled))
		for _, item := range scheduled {
			occupied[item.Slot()] = struct{}{}
		}

		for _, slot := range offered {
			_, busy := occupied[slot]
			if err := s.availability.Set(ctx, exec, teacherID, slot, !busy); err != nil {
				return err
			}
		}

		offeredSet := make(map[models.Slot]struct{}, len(offered))
		for _, slot := range offered {
			offeredSet[slot] = struct{}{}
		}
		for _, entry := range current {
			slot := entry.Slot()
			if _, keep := offeredSet[slot]; keep {
				continue
			}
			if _, busy := occupied[slot]; busy {
				retained = append(retained, slot)
				continue
			}
			if err := s.availability.DeleteEntry(ctx, exec, teacherID, slot); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update availability")
	}

	if len(retained) > 0 {
		s.logger.Info("scheduled slots retained in availability",
			zap.String("teacher_id", teacherID),
			zap.Int("retained", len(retained)),
		)
	}
	s.cache.Invalidate(context.WithoutCancel(ctx), dashboardCachePattern)

	result, err := s.Get(ctx, teacherID)
	if err != nil {
		return nil, err
	}
	result.Retained = retained
	return result, nil
}

func (s *AvailabilityService) offeredSlots(req dto.ProvisionAvailabilityRequest) ([]models.Slot, error) {
	seen := make(map[models.Slot]struct{})
	var slots []models.Slot
	for _, day := range req.Available {
		for _, period := range day.Periods {
			slot, err := s.rules.Resolve(day.Day, period)
			if err != nil {
				return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
			}
			if _, dup := seen[slot]; dup {
				continue
			}
			seen[slot] = struct{}{}
			slots = append(slots, slot)
		}
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i].Less(slots[j]) })
	return slots, nil
}

func (s *AvailabilityService) ensureTeacher(ctx context.Context, teacherID string) error {
	if teacherID == "" {
		return appErrors.Clone(appErrors.ErrValidation, "teacher id is required")
	}
	user, err := s.users.FindByID(ctx, teacherID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}
	if user.Role != models.RoleTeacher {
		return appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
	}
	return nil
}

func groupByDay(entries []models.AvailabilityEntry) []models.DayAvailability {
	sorted := append([]models.AvailabilityEntry(nil), entries...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Slot().Less(sorted[j].Slot()) })

	days := make([]models.DayAvailability, 0)
	for _, entry := range sorted {
		if len(days) == 0 || days[len(days)-1].Day != entry.Day {
			days = append(days, models.DayAvailability{Day: entry.Day})
		}
		last := &days[len(days)-1]
		last.Periods = append(last.Periods, models.PeriodAvailability{Period: entry.Period, IsAvailable: entry.IsAvailable})
	}
	return days
}
