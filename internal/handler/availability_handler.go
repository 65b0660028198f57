package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/pkg/response"
)

type availabilityService interface {
	Query(ctx context.Context, q dto.AvailabilityQuery) (*models.AvailableTeachers, error)
	Get(ctx context.Context, teacherID string) (*models.TeacherAvailability, error)
	Provision(ctx context.Context, teacherID string, req dto.ProvisionAvailabilityRequest) (*models.TeacherAvailability, error)
}

// AvailabilityHandler serves teacher availability lookups and provisioning.
type AvailabilityHandler struct {
	service availabilityService
}

// NewAvailabilityHandler constructs the handler.
func NewAvailabilityHandler(svc availabilityService) *AvailabilityHandler {
	return &AvailabilityHandler{service: svc}
}

// Query godoc
// @Summary List teachers free at a slot
// @Description Returns roster teachers without a schedule entry at the slot. The status field distinguishes ALL_BUSY from ROSTER_EMPTY when the list is empty.
// @Tags Availability
// @Produce json
// @Security BearerAuth
// @Param day query string true "Day (Monday or MON)"
// @Param period query int true "Period"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /availability [get]
func (h *AvailabilityHandler) Query(c *gin.Context) {
	var q dto.AvailabilityQuery
	if !bindQuery(c, &q, "invalid availability query") {
		return
	}

	result, err := h.service.Query(c.Request.Context(), q)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Get godoc
// @Summary Get a teacher's availability record
// @Tags Availability
// @Produce json
// @Security BearerAuth
// @Param id path string true "Teacher ID"
// @Success 200 {object} response.Envelope
// @Router /teachers/{id}/availability [get]
func (h *AvailabilityHandler) Get(c *gin.Context) {
	result, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Provision godoc
// @Summary Replace the slots a teacher offers
// @Description Scheduled slots stay recorded as occupied even when no longer offered.
// @Tags Availability
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Teacher ID"
// @Param payload body dto.ProvisionAvailabilityRequest true "Offered slots"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /teachers/{id}/availability [put]
func (h *AvailabilityHandler) Provision(c *gin.Context) {
	var req dto.ProvisionAvailabilityRequest
	if !bindJSON(c, &req, "invalid availability payload") {
		return
	}

	result, err := h.service.Provision(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
