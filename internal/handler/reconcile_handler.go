package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-timetable-api/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
	"github.com/noah-isme/sma-timetable-api/pkg/response"
)

type reconcileService interface {
	ReconcileTeacher(ctx context.Context, teacherID string) (*models.ReconcileReport, error)
	ReconcileAll(ctx context.Context) ([]models.ReconcileReport, error)
	Verify(ctx context.Context) ([]models.ReconcileReport, error)
}

// ReconcileHandler exposes availability repair and verification.
type ReconcileHandler struct {
	service reconcileService
}

// NewReconcileHandler constructs the handler.
func NewReconcileHandler(svc reconcileService) *ReconcileHandler {
	return &ReconcileHandler{service: svc}
}

type verifyResult struct {
	Consistent bool                     `json:"consistent"`
	Teachers   []models.ReconcileReport `json:"teachers"`
}

// All godoc
// @Summary Rebuild every availability record from schedules
// @Tags Reconcile
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /reconcile [post]
func (h *ReconcileHandler) All(c *gin.Context) {
	reports, err := h.service.ReconcileAll(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	if reports == nil {
		reports = []models.ReconcileReport{}
	}
	response.JSON(c, http.StatusOK, reports, nil)
}

// Teacher godoc
// @Summary Rebuild one teacher's availability record
// @Tags Reconcile
// @Produce json
// @Security BearerAuth
// @Param id path string true "Teacher ID"
// @Success 200 {object} response.Envelope
// @Router /teachers/{id}/reconcile [post]
func (h *ReconcileHandler) Teacher(c *gin.Context) {
	report, err := h.service.ReconcileTeacher(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// Verify godoc
// @Summary Report drift without repairing it
// @Tags Reconcile
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /reconcile/verify [get]
func (h *ReconcileHandler) Verify(c *gin.Context) {
	reports, err := h.service.Verify(c.Request.Context())
	if err != nil && !appErrors.Is(err, appErrors.ErrConsistency) {
		response.Error(c, err)
		return
	}
	if reports == nil {
		reports = []models.ReconcileReport{}
	}
	response.JSON(c, http.StatusOK, verifyResult{Consistent: err == nil, Teachers: reports}, nil)
}
