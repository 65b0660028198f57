package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/internal/repository"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

type teacherSlot struct {
	teacherID string
	slot      models.Slot
}

type memoryState struct {
	schedules    map[string]models.Schedule
	availability map[teacherSlot]bool
	assigned     map[teacherSlot]string
}

func (s memoryState) clone() memoryState {
	out := memoryState{
		schedules:    make(map[string]models.Schedule, len(s.schedules)),
		availability: make(map[teacherSlot]bool, len(s.availability)),
		assigned:     make(map[teacherSlot]string, len(s.assigned)),
	}
	for k, v := range s.schedules {
		out.schedules[k] = v
	}
	for k, v := range s.availability {
		out.availability[k] = v
	}
	for k, v := range s.assigned {
		out.assigned[k] = v
	}
	return out
}

// memoryStore mimics the Postgres schema: unique class and teacher slots on
// schedules, one back-reference per teacher slot, and all-or-nothing
// transactions. Transactions are serialized.
type memoryStore struct {
	txMu  sync.Mutex
	mu    sync.Mutex
	state memoryState

	users   map[string]models.User
	courses map[string]models.Course

	commits   int
	rollbacks int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		state: memoryState{
			schedules:    map[string]models.Schedule{},
			availability: map[teacherSlot]bool{},
			assigned:     map[teacherSlot]string{},
		},
		users:   map[string]models.User{},
		courses: map[string]models.Course{},
	}
}

func (m *memoryStore) addTeacher(id, name string) {
	m.users[id] = models.User{ID: id, FullName: name, Email: id + "@school.test", Role: models.RoleTeacher, Active: true}
}

func (m *memoryStore) addCourse(id, code, name string) {
	m.courses[id] = models.Course{ID: id, Code: code, Name: name, Active: true}
}

func (m *memoryStore) offer(teacherID string, day models.Weekday, periods ...int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range periods {
		m.state.availability[teacherSlot{teacherID, models.Slot{Day: day, Period: p}}] = true
	}
}

func (m *memoryStore) flag(teacherID string, slot models.Slot) (bool, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.state.availability[teacherSlot{teacherID, slot}]
	return v, ok
}

func (m *memoryStore) backRef(teacherID string, slot models.Slot) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.state.assigned[teacherSlot{teacherID, slot}]
	return v, ok
}

func (m *memoryStore) scheduleCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.state.schedules)
}

func (m *memoryStore) WithinTx(ctx context.Context, fn func(exec sqlx.ExtContext) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	m.mu.Lock()
	snapshot := m.state.clone()
	m.mu.Unlock()

	if err := fn(nil); err != nil {
		m.mu.Lock()
		m.state = snapshot
		m.rollbacks++
		m.mu.Unlock()
		return err
	}
	if err := ctx.Err(); err != nil {
		m.mu.Lock()
		m.state = snapshot
		m.rollbacks++
		m.mu.Unlock()
		return fmt.Errorf("commit transaction: %w", err)
	}
	m.mu.Lock()
	m.commits++
	m.mu.Unlock()
	return nil
}

type memorySchedules struct{ *memoryStore }

func (m memorySchedules) Insert(ctx context.Context, exec sqlx.ExtContext, schedule *models.Schedule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.courses[schedule.ClassID]; !ok {
		return fmt.Errorf("insert schedule: %w", repository.ErrUnknownReference)
	}
	for _, existing := range m.state.schedules {
		if existing.Slot() != schedule.Slot() {
			continue
		}
		if existing.ClassID == schedule.ClassID {
			return fmt.Errorf("insert schedule: %w", repository.ErrClassSlotTaken)
		}
		if existing.TeacherID == schedule.TeacherID {
			return fmt.Errorf("insert schedule: %w", repository.ErrTeacherSlotTaken)
		}
	}
	m.state.schedules[schedule.ID] = *schedule
	return nil
}

func (m memorySchedules) FindBySlot(ctx context.Context, classID string, slot models.Slot) (*models.Schedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.state.schedules {
		if existing.ClassID == classID && existing.Slot() == slot {
			item := existing
			return &item, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m memorySchedules) FindByID(ctx context.Context, id string) (*models.Schedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.state.schedules[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &item, nil
}

func (m memorySchedules) LockByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Schedule, error) {
	return m.FindByID(ctx, id)
}

func (m memorySchedules) Delete(ctx context.Context, exec sqlx.ExtContext, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.state.schedules[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.state.schedules, id)
	return nil
}

func (m memorySchedules) UpdateTeacher(ctx context.Context, exec sqlx.ExtContext, id, teacherID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.state.schedules[id]
	if !ok {
		return sql.ErrNoRows
	}
	for otherID, other := range m.state.schedules {
		if otherID != id && other.TeacherID == teacherID && other.Slot() == item.Slot() {
			return fmt.Errorf("update schedule teacher: %w", repository.ErrTeacherSlotTaken)
		}
	}
	item.TeacherID = teacherID
	m.state.schedules[id] = item
	return nil
}

func (m memorySchedules) BusyTeacherIDs(ctx context.Context, slot models.Slot) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := []string{}
	for _, item := range m.state.schedules {
		if item.Slot() == slot {
			ids = append(ids, item.TeacherID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (m memorySchedules) ListForTeacher(ctx context.Context, exec sqlx.ExtContext, teacherID string) ([]models.Schedule, error) {
	return m.filter(func(s models.Schedule) bool { return s.TeacherID == teacherID }), nil
}

func (m memorySchedules) ListByTeacher(ctx context.Context, teacherID string) ([]models.ScheduleDetail, error) {
	return m.details(m.filter(func(s models.Schedule) bool { return s.TeacherID == teacherID })), nil
}

func (m memorySchedules) ListByClass(ctx context.Context, classID string) ([]models.ScheduleDetail, error) {
	return m.details(m.filter(func(s models.Schedule) bool { return s.ClassID == classID })), nil
}

func (m memorySchedules) List(ctx context.Context, filter models.ScheduleFilter) ([]models.ScheduleDetail, int, error) {
	all := m.filter(func(s models.Schedule) bool {
		return (filter.ClassID == "" || s.ClassID == filter.ClassID) &&
			(filter.TeacherID == "" || s.TeacherID == filter.TeacherID) &&
			(filter.Day == "" || s.Day == filter.Day)
	})
	start := (filter.Page - 1) * filter.PageSize
	if start > len(all) {
		start = len(all)
	}
	end := start + filter.PageSize
	if end > len(all) {
		end = len(all)
	}
	return m.details(all[start:end]), len(all), nil
}

func (m memorySchedules) filter(keep func(models.Schedule) bool) []models.Schedule {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Schedule{}
	for _, item := range m.state.schedules {
		if keep(item) {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Slot() != out[j].Slot() {
			return out[i].Slot().Less(out[j].Slot())
		}
		return out[i].ClassID < out[j].ClassID
	})
	return out
}

func (m memorySchedules) details(items []models.Schedule) []models.ScheduleDetail {
	out := make([]models.ScheduleDetail, 0, len(items))
	for _, item := range items {
		course := m.courses[item.ClassID]
		out = append(out, models.ScheduleDetail{
			Schedule:    item,
			ClassName:   course.Name,
			ClassCode:   course.Code,
			TeacherName: m.users[item.TeacherID].FullName,
		})
	}
	return out
}

type memoryAvailability struct{ *memoryStore }

func (m memoryAvailability) FindEntry(ctx context.Context, teacherID string, slot models.Slot) (*models.AvailabilityEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	available, ok := m.state.availability[teacherSlot{teacherID, slot}]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &models.AvailabilityEntry{TeacherID: teacherID, Day: slot.Day, Period: slot.Period, IsAvailable: available}, nil
}

func (m memoryAvailability) ListByTeacher(ctx context.Context, exec sqlx.ExtContext, teacherID string) ([]models.AvailabilityEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.AvailabilityEntry
	for key, available := range m.state.availability {
		if key.teacherID == teacherID {
			out = append(out, models.AvailabilityEntry{TeacherID: teacherID, Day: key.slot.Day, Period: key.slot.Period, IsAvailable: available})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slot().Less(out[j].Slot()) })
	return out, nil
}

func (m memoryAvailability) LockByTeacher(ctx context.Context, exec sqlx.ExtContext, teacherID string) ([]models.AvailabilityEntry, error) {
	return m.ListByTeacher(ctx, exec, teacherID)
}

func (m memoryAvailability) MarkOccupied(ctx context.Context, exec sqlx.ExtContext, teacherID string, slot models.Slot) (bool, error) {
	return m.flip(teacherID, slot, true), nil
}

func (m memoryAvailability) MarkFree(ctx context.Context, exec sqlx.ExtContext, teacherID string, slot models.Slot) (bool, error) {
	return m.flip(teacherID, slot, false), nil
}

func (m memoryAvailability) flip(teacherID string, slot models.Slot, from bool) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := teacherSlot{teacherID, slot}
	current, ok := m.state.availability[key]
	if !ok || current != from {
		return false
	}
	m.state.availability[key] = !from
	return true
}

func (m memoryAvailability) Set(ctx context.Context, exec sqlx.ExtContext, teacherID string, slot models.Slot, available bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.availability[teacherSlot{teacherID, slot}] = available
	return nil
}

func (m memoryAvailability) DeleteEntry(ctx context.Context, exec sqlx.ExtContext, teacherID string, slot models.Slot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.state.availability, teacherSlot{teacherID, slot})
	return nil
}

func (m memoryAvailability) AddAssigned(ctx context.Context, exec sqlx.ExtContext, ref models.AssignedSchedule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := teacherSlot{ref.TeacherID, ref.Slot()}
	if _, taken := m.state.assigned[key]; taken {
		return fmt.Errorf("add assigned schedule: %w", repository.ErrAssignedSlotTaken)
	}
	m.state.assigned[key] = ref.ClassID
	return nil
}

func (m memoryAvailability) RemoveAssigned(ctx context.Context, exec sqlx.ExtContext, teacherID, classID string, slot models.Slot) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := teacherSlot{teacherID, slot}
	if current, ok := m.state.assigned[key]; !ok || current != classID {
		return false, nil
	}
	delete(m.state.assigned, key)
	return true, nil
}

func (m memoryAvailability) ListAssigned(ctx context.Context, exec sqlx.ExtContext, teacherID string) ([]models.AssignedSchedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.AssignedSchedule
	for key, classID := range m.state.assigned {
		if key.teacherID == teacherID {
			out = append(out, models.AssignedSchedule{TeacherID: teacherID, ClassID: classID, Day: key.slot.Day, Period: key.slot.Period})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slot().Less(out[j].Slot()) })
	return out, nil
}

func (m memoryAvailability) TeacherIDs(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := map[string]struct{}{}
	for _, item := range m.state.schedules {
		seen[item.TeacherID] = struct{}{}
	}
	for key := range m.state.availability {
		seen[key.teacherID] = struct{}{}
	}
	for key := range m.state.assigned {
		seen[key.teacherID] = struct{}{}
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

type memoryUsers struct{ *memoryStore }

func (m memoryUsers) FindByID(ctx context.Context, id string) (*models.User, error) {
	user, ok := m.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &user, nil
}

func (m memoryUsers) ListTeachers(ctx context.Context) ([]models.RosterTeacher, error) {
	out := []models.RosterTeacher{}
	for _, user := range m.users {
		if user.Role == models.RoleTeacher && user.Active {
			out = append(out, models.RosterTeacher{ID: user.ID, FullName: user.FullName})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FullName < out[j].FullName })
	return out, nil
}

type recordingReconciler struct {
	mu       sync.Mutex
	teachers []string
}

func (r *recordingReconciler) ScheduleTeacher(teacherID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.teachers = append(r.teachers, teacherID)
	return nil
}

func (r *recordingReconciler) scheduled() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.teachers...)
}

type memoryCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	deleted []string
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: map[string][]byte{}}
}

func (c *memoryCache) Get(ctx context.Context, key string, dest interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, ok := c.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (c *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = raw
	return nil
}

func (c *memoryCache) DeleteByPattern(ctx context.Context, pattern string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	prefix := strings.TrimSuffix(pattern, "*")
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
		}
	}
	c.deleted = append(c.deleted, pattern)
	return nil
}

func (c *memoryCache) has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[key]
	return ok
}
