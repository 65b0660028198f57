package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/pkg/response"
)

type assignmentService interface {
	Assign(ctx context.Context, req dto.AssignSlotRequest) (*models.Schedule, error)
	Unassign(ctx context.Context, scheduleID string) (*models.Schedule, error)
	Reassign(ctx context.Context, scheduleID string, req dto.ReassignSlotRequest) (*models.Schedule, error)
}

// AssignmentHandler exposes the slot mutation endpoints.
type AssignmentHandler struct {
	service assignmentService
}

// NewAssignmentHandler constructs the handler.
func NewAssignmentHandler(svc assignmentService) *AssignmentHandler {
	return &AssignmentHandler{service: svc}
}

// Assign godoc
// @Summary Assign a teacher to a class slot
// @Description Books the teacher into the class slot. Fails with TEACHER_UNAVAILABLE or SLOT_ALREADY_ASSIGNED when the slot is contested.
// @Tags Schedules
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.AssignSlotRequest true "Assignment"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 500 {object} response.Envelope
// @Router /schedules [post]
func (h *AssignmentHandler) Assign(c *gin.Context) {
	var req dto.AssignSlotRequest
	if !bindJSON(c, &req, "invalid assignment payload") {
		return
	}

	schedule, err := h.service.Assign(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, schedule)
}

// Unassign godoc
// @Summary Remove a schedule entry
// @Description Deletes the entry and frees the teacher's slot.
// @Tags Schedules
// @Produce json
// @Security BearerAuth
// @Param id path string true "Schedule ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /schedules/{id} [delete]
func (h *AssignmentHandler) Unassign(c *gin.Context) {
	removed, err := h.service.Unassign(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, removed, nil)
}

// Reassign godoc
// @Summary Move a schedule entry to another teacher
// @Tags Schedules
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Schedule ID"
// @Param payload body dto.ReassignSlotRequest true "New teacher"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /schedules/{id}/teacher [put]
func (h *AssignmentHandler) Reassign(c *gin.Context) {
	var req dto.ReassignSlotRequest
	if !bindJSON(c, &req, "invalid reassignment payload") {
		return
	}

	updated, err := h.service.Reassign(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, updated, nil)
}
