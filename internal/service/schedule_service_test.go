package service

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

func newScheduleFixture(t *testing.T) (*timetableFixture, *ScheduleService) {
	t.Helper()
	f := newTimetableFixture(t)
	f.store.addTeacher("t-1", "Ani")
	f.store.addTeacher("t-2", "Budi")
	f.store.addCourse("c-1", "X-A", "Class X-A")
	f.store.addCourse("c-2", "X-B", "Class X-B")
	f.store.offer("t-1", models.Monday, 1, 2)
	f.store.offer("t-1", models.Wednesday, 1)
	f.store.offer("t-2", models.Monday, 1)

	for _, req := range []dto.AssignSlotRequest{
		assignReq("c-1", "t-1", "Wednesday", 1),
		assignReq("c-2", "t-1", "Monday", 2),
		assignReq("c-1", "t-1", "Monday", 1),
		assignReq("c-2", "t-2", "Monday", 1),
	} {
		_, err := f.assign.Assign(context.Background(), req)
		require.NoError(t, err)
	}

	svc := NewScheduleService(memorySchedules{f.store}, models.DefaultSlotRules(), nil, nil)
	svc.now = func() time.Time { return time.Date(2024, 7, 15, 8, 0, 0, 0, time.UTC) }
	return f, svc
}

func TestScheduleByTeacherInWeekOrder(t *testing.T) {
	_, svc := newScheduleFixture(t)

	items, err := svc.ByTeacher(context.Background(), "t-1")
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, models.Slot{Day: models.Monday, Period: 1}, items[0].Slot())
	assert.Equal(t, models.Slot{Day: models.Monday, Period: 2}, items[1].Slot())
	assert.Equal(t, models.Slot{Day: models.Wednesday, Period: 1}, items[2].Slot())
	assert.Equal(t, "Class X-A", items[0].ClassName)
	assert.Equal(t, "Ani", items[0].TeacherName)

	empty, err := svc.ByTeacher(context.Background(), "nobody")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	_, err = svc.ByTeacher(context.Background(), "")
	assert.Equal(t, appErrors.ErrValidation.Code, errCode(err))
}

func TestScheduleByClass(t *testing.T) {
	_, svc := newScheduleFixture(t)

	items, err := svc.ByClass(context.Background(), "c-2")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "t-2", items[0].TeacherID)
	assert.Equal(t, "t-1", items[1].TeacherID)
}

func TestScheduleListFiltersAndPaginates(t *testing.T) {
	_, svc := newScheduleFixture(t)

	items, page, err := svc.List(context.Background(), dto.ScheduleListQuery{Day: "mon", Limit: 2})
	require.NoError(t, err)
	assert.Len(t, items, 2)
	assert.Equal(t, &models.Pagination{Page: 1, PageSize: 2, TotalCount: 3}, page)

	items, page, err = svc.List(context.Background(), dto.ScheduleListQuery{Day: "mon", Limit: 2, Page: 2})
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Equal(t, 2, page.Page)

	_, _, err = svc.List(context.Background(), dto.ScheduleListQuery{Day: "noday"})
	assert.Equal(t, appErrors.ErrValidation.Code, errCode(err))

	_, page, err = svc.List(context.Background(), dto.ScheduleListQuery{Limit: 5000})
	require.NoError(t, err)
	assert.Equal(t, maxSchedulePageSize, page.PageSize)
}

func TestScheduleExportCSV(t *testing.T) {
	_, svc := newScheduleFixture(t)

	out, err := svc.Export(context.Background(), ExportScopeTeacher, "t-1", "csv")
	require.NoError(t, err)
	assert.Equal(t, "text/csv", out.ContentType)
	assert.Equal(t, "timetable_teacher_t-1_20240715_080000.csv", out.Filename)
	assert.Equal(t, "Day,Period,Class Code,Class,Teacher\n"+
		"MONDAY,1,X-A,Class X-A,Ani\n"+
		"MONDAY,2,X-B,Class X-B,Ani\n"+
		"WEDNESDAY,1,X-A,Class X-A,Ani\n", string(out.Body))
}

func TestScheduleExportPDF(t *testing.T) {
	_, svc := newScheduleFixture(t)

	out, err := svc.Export(context.Background(), ExportScopeClass, "c-1", "PDF")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", out.ContentType)
	assert.True(t, bytes.HasPrefix(out.Body, []byte("%PDF")))
}

func TestScheduleExportRejectsUnknownFormatAndScope(t *testing.T) {
	_, svc := newScheduleFixture(t)

	_, err := svc.Export(context.Background(), ExportScopeTeacher, "t-1", "xlsx")
	assert.Equal(t, appErrors.ErrValidation.Code, errCode(err))

	_, err = svc.Export(context.Background(), ExportScope("room"), "r-1", "csv")
	assert.Equal(t, appErrors.ErrValidation.Code, errCode(err))
}

func TestScheduleGridPlacesEntriesByDayAndPeriod(t *testing.T) {
	_, svc := newScheduleFixture(t)
	items, err := svc.ByTeacher(context.Background(), "t-1")
	require.NoError(t, err)

	grid := svc.scheduleGrid(ExportScopeTeacher, "t-1", items)
	assert.Equal(t, []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday"}, grid.Columns)
	assert.Len(t, grid.RowLabels, 8)
	assert.Equal(t, "X-A\nClass X-A", grid.Cells[0][0])
	assert.Equal(t, "X-B\nClass X-B", grid.Cells[1][0])
	assert.Equal(t, "X-A\nClass X-A", grid.Cells[0][2])
	assert.Equal(t, "", grid.Cells[0][1])
	assert.Contains(t, grid.Subtitle, "Ani")
}
