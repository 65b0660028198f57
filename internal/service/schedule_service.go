package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
	"github.com/noah-isme/sma-timetable-api/pkg/export"
)

const (
	defaultSchedulePageSize = 20
	maxSchedulePageSize     = 200
)

type scheduleViewReader interface {
	ListByTeacher(ctx context.Context, teacherID string) ([]models.ScheduleDetail, error)
	ListByClass(ctx context.Context, classID string) ([]models.ScheduleDetail, error)
	List(ctx context.Context, filter models.ScheduleFilter) ([]models.ScheduleDetail, int, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type gridRenderer interface {
	RenderGrid(grid export.Grid) ([]byte, error)
}

// ExportScope selects whose timetable is exported.
type ExportScope string

const (
	ExportScopeTeacher ExportScope = "teacher"
	ExportScopeClass   ExportScope = "class"
)

// ScheduleExport is a rendered timetable document.
type ScheduleExport struct {
	Filename    string
	ContentType string
	Body        []byte
}

// ScheduleService serves read views over committed schedule entries.
type ScheduleService struct {
	repo  scheduleViewReader
	rules models.SlotRules
	csv   csvRenderer
	pdf   gridRenderer
	now   func() time.Time
}

// NewScheduleService constructs a ScheduleService. Nil renderers fall back
// to the export package defaults.
func NewScheduleService(repo scheduleViewReader, rules models.SlotRules, csv csvRenderer, pdf gridRenderer) *ScheduleService {
	if len(rules.Days) == 0 || rules.PeriodsPerDay <= 0 {
		rules = models.DefaultSlotRules()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ScheduleService{repo: repo, rules: rules, csv: csv, pdf: pdf, now: time.Now}
}

// ByTeacher lists the entries a teacher is committed to, in week order.
func (s *ScheduleService) ByTeacher(ctx context.Context, teacherID string) ([]models.ScheduleDetail, error) {
	teacherID = strings.TrimSpace(teacherID)
	if teacherID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "teacher id is required")
	}
	items, err := s.repo.ListByTeacher(ctx, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher schedule")
	}
	if items == nil {
		items = []models.ScheduleDetail{}
	}
	return items, nil
}

// ByClass lists the entries of a class, in week order.
func (s *ScheduleService) ByClass(ctx context.Context, classID string) ([]models.ScheduleDetail, error) {
	classID = strings.TrimSpace(classID)
	if classID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "class id is required")
	}
	items, err := s.repo.ListByClass(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class schedule")
	}
	if items == nil {
		items = []models.ScheduleDetail{}
	}
	return items, nil
}

// List returns a filtered page of schedule entries.
func (s *ScheduleService) List(ctx context.Context, q dto.ScheduleListQuery) ([]models.ScheduleDetail, *models.Pagination, error) {
	filter := models.ScheduleFilter{
		ClassID:   strings.TrimSpace(q.ClassID),
		TeacherID: strings.TrimSpace(q.TeacherID),
		Page:      q.Page,
		PageSize:  q.Limit,
	}
	if raw := strings.TrimSpace(q.Day); raw != "" {
		day, err := models.ParseWeekday(raw)
		if err != nil {
			return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
		}
		filter.Day = day
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = defaultSchedulePageSize
	}
	if filter.PageSize > maxSchedulePageSize {
		filter.PageSize = maxSchedulePageSize
	}

	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list schedules")
	}
	if items == nil {
		items = []models.ScheduleDetail{}
	}
	return items, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// Export renders the timetable of a teacher or class as csv or pdf.
func (s *ScheduleService) Export(ctx context.Context, scope ExportScope, id, format string) (*ScheduleExport, error) {
	var (
		items []models.ScheduleDetail
		err   error
	)
	switch scope {
	case ExportScopeTeacher:
		items, err = s.ByTeacher(ctx, id)
	case ExportScopeClass:
		items, err = s.ByClass(ctx, id)
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export scope %q", scope))
	}
	if err != nil {
		return nil, err
	}

	stamp := s.now().UTC().Format("20060102_150405")
	base := fmt.Sprintf("timetable_%s_%s_%s", scope, sanitizeFilename(strings.TrimSpace(id)), stamp)

	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "csv":
		body, err := s.csv.Render(scheduleDataset(items))
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return &ScheduleExport{Filename: base + ".csv", ContentType: "text/csv", Body: body}, nil
	case "pdf":
		body, err := s.pdf.RenderGrid(s.scheduleGrid(scope, id, items))
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return &ScheduleExport{Filename: base + ".pdf", ContentType: "application/pdf", Body: body}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
}

func scheduleDataset(items []models.ScheduleDetail) export.Dataset {
	data := export.Dataset{
		Headers: []string{"Day", "Period", "Class Code", "Class", "Teacher"},
		Rows:    make([][]string, 0, len(items)),
	}
	for _, item := range items {
		data.Rows = append(data.Rows, []string{
			string(item.Day),
			strconv.Itoa(item.Period),
			item.ClassCode,
			item.ClassName,
			item.TeacherName,
		})
	}
	return data
}

func (s *ScheduleService) scheduleGrid(scope ExportScope, id string, items []models.ScheduleDetail) export.Grid {
	grid := export.Grid{
		Corner:    "Period",
		Columns:   make([]string, len(s.rules.Days)),
		RowLabels: make([]string, s.rules.PeriodsPerDay),
		Cells:     make([][]string, s.rules.PeriodsPerDay),
	}
	column := make(map[models.Weekday]int, len(s.rules.Days))
	for i, day := range s.rules.Days {
		grid.Columns[i] = day.Label()
		column[day] = i
	}
	for p := range grid.RowLabels {
		grid.RowLabels[p] = strconv.Itoa(p + 1)
		grid.Cells[p] = make([]string, len(s.rules.Days))
	}

	subject := id
	for _, item := range items {
		c, ok := column[item.Day]
		if !ok || item.Period < 1 || item.Period > s.rules.PeriodsPerDay {
			continue
		}
		var cell string
		if scope == ExportScopeTeacher {
			cell = strings.TrimSpace(item.ClassCode + "\n" + item.ClassName)
			if item.TeacherName != "" {
				subject = item.TeacherName
			}
		} else {
			cell = item.TeacherName
			if item.ClassName != "" {
				subject = item.ClassName
			}
		}
		grid.Cells[item.Period-1][c] = cell
	}

	if scope == ExportScopeTeacher {
		grid.Title = "Teacher Timetable"
	} else {
		grid.Title = "Class Timetable"
	}
	grid.Subtitle = fmt.Sprintf("%s  |  generated %s", subject, s.now().UTC().Format(time.RFC1123))
	return grid
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".")
	result := replacer.Replace(raw)
	if len(result) > 64 {
		return result[:64]
	}
	return result
}
