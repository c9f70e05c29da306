package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sped-tools/iep-progress-api/internal/models"
	"github.com/sped-tools/iep-progress-api/internal/service"
	appErrors "github.com/sped-tools/iep-progress-api/pkg/errors"
	"github.com/sped-tools/iep-progress-api/pkg/response"
)

// ObservationHandler exposes data-point endpoints.
type ObservationHandler struct {
	observations *service.ObservationService
	mastery      *service.MasteryService
}

// NewObservationHandler constructs ObservationHandler.
func NewObservationHandler(observations *service.ObservationService, mastery *service.MasteryService) *ObservationHandler {
	return &ObservationHandler{observations: observations, mastery: mastery}
}

// List godoc
// @Summary List a student's observations
// @Tags Observations
// @Produce json
// @Param id path string true "Student ID"
// @Param goal_id query string false "Filter by goal"
// @Param objective_id query string false "Filter by objective"
// @Param from query string false "From date (YYYY-MM-DD)"
// @Param to query string false "To date (YYYY-MM-DD)"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/observations [get]
func (h *ObservationHandler) List(c *gin.Context) {
	var filter models.ObservationFilter
	filter.GoalID = c.Query("goal_id")
	filter.ObjectiveID = c.Query("objective_id")
	if from := c.Query("from"); from != "" {
		if ts, err := time.Parse("2006-01-02", from); err == nil {
			filter.From = &ts
		}
	}
	if to := c.Query("to"); to != "" {
		if ts, err := time.Parse("2006-01-02", to); err == nil {
			filter.To = &ts
		}
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "50")); err == nil {
		filter.PageSize = size
	}

	observations, pagination, err := h.observations.List(c.Request.Context(), c.Param("id"), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, observations, pagination)
}

// Create godoc
// @Summary Record an observation
// @Tags Observations
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param payload body service.CreateObservationRequest true "Observation payload"
// @Success 201 {object} response.Envelope
// @Router /students/{id}/observations [post]
func (h *ObservationHandler) Create(c *gin.Context) {
	var req service.CreateObservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	studentID := c.Param("id")
	observation, err := h.observations.Create(c.Request.Context(), studentID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.mastery.Invalidate(c.Request.Context(), studentID)
	response.Created(c, observation)
}

// Reject godoc
// @Summary Reject observation edits
// @Description Observations are immutable once recorded
// @Tags Observations
// @Produce json
// @Success 409 {object} response.Envelope
// @Router /observations/{id} [put]
func (h *ObservationHandler) Reject(c *gin.Context) {
	response.Error(c, appErrors.ErrImmutable)
}

// Delete godoc
// @Summary Delete an observation
// @Tags Observations
// @Produce json
// @Param id path string true "Student ID"
// @Param observationId path string true "Observation ID"
// @Success 204 {object} response.Envelope
// @Router /students/{id}/observations/{observationId} [delete]
func (h *ObservationHandler) Delete(c *gin.Context) {
	studentID := c.Param("id")
	if err := h.observations.Delete(c.Request.Context(), studentID, c.Param("observationId")); err != nil {
		response.Error(c, err)
		return
	}
	h.mastery.Invalidate(c.Request.Context(), studentID)
	response.NoContent(c)
}
