package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/internal/service"
	"github.com/noah-isme/sma-timetable-api/pkg/response"
)

type scheduleService interface {
	ByTeacher(ctx context.Context, teacherID string) ([]models.ScheduleDetail, error)
	ByClass(ctx context.Context, classID string) ([]models.ScheduleDetail, error)
	List(ctx context.Context, q dto.ScheduleListQuery) ([]models.ScheduleDetail, *models.Pagination, error)
	Export(ctx context.Context, scope service.ExportScope, id, format string) (*service.ScheduleExport, error)
}

// ScheduleHandler serves timetable views.
type ScheduleHandler struct {
	service scheduleService
}

// NewScheduleHandler constructs handler.
func NewScheduleHandler(svc scheduleService) *ScheduleHandler {
	return &ScheduleHandler{service: svc}
}

// List godoc
// @Summary List schedule entries
// @Tags Schedules
// @Produce json
// @Security BearerAuth
// @Param classId query string false "Filter by class"
// @Param teacherId query string false "Filter by teacher"
// @Param day query string false "Filter by day"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /schedules [get]
func (h *ScheduleHandler) List(c *gin.Context) {
	var q dto.ScheduleListQuery
	if !bindQuery(c, &q, "invalid schedule filter") {
		return
	}

	items, pagination, err := h.service.List(c.Request.Context(), q)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// ByTeacher godoc
// @Summary Timetable of one teacher
// @Tags Schedules
// @Produce json
// @Security BearerAuth
// @Param id path string true "Teacher ID"
// @Success 200 {object} response.Envelope
// @Router /teachers/{id}/schedule [get]
func (h *ScheduleHandler) ByTeacher(c *gin.Context) {
	items, err := h.service.ByTeacher(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// ByClass godoc
// @Summary Timetable of one class
// @Tags Schedules
// @Produce json
// @Security BearerAuth
// @Param id path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Router /classes/{id}/schedule [get]
func (h *ScheduleHandler) ByClass(c *gin.Context) {
	items, err := h.service.ByClass(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// ExportTeacher godoc
// @Summary Download a teacher timetable
// @Tags Schedules
// @Produce text/csv
// @Produce application/pdf
// @Security BearerAuth
// @Param id path string true "Teacher ID"
// @Param format query string false "csv or pdf"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /teachers/{id}/schedule/export [get]
func (h *ScheduleHandler) ExportTeacher(c *gin.Context) {
	h.export(c, service.ExportScopeTeacher)
}

// ExportClass godoc
// @Summary Download a class timetable
// @Tags Schedules
// @Produce text/csv
// @Produce application/pdf
// @Security BearerAuth
// @Param id path string true "Class ID"
// @Param format query string false "csv or pdf"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /classes/{id}/schedule/export [get]
func (h *ScheduleHandler) ExportClass(c *gin.Context) {
	h.export(c, service.ExportScopeClass)
}

func (h *ScheduleHandler) export(c *gin.Context, scope service.ExportScope) {
	doc, err := h.service.Export(c.Request.Context(), scope, c.Param("id"), c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, doc.Filename, doc.ContentType, doc.Body)
}
