package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sped-tools/iep-progress-api/internal/service"
	appErrors "github.com/sped-tools/iep-progress-api/pkg/errors"
	"github.com/sped-tools/iep-progress-api/pkg/response"
)

// MasteryHandler exposes mastery detection endpoints.
type MasteryHandler struct {
	mastery *service.MasteryService
}

// NewMasteryHandler constructs MasteryHandler.
func NewMasteryHandler(mastery *service.MasteryService) *MasteryHandler {
	return &MasteryHandler{mastery: mastery}
}

// Alerts godoc
// @Summary Active mastery alerts for a student
// @Description Runs a detection pass over the student's goals and observations
// @Tags Mastery
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/mastery/alerts [get]
func (h *MasteryHandler) Alerts(c *gin.Context) {
	alerts, err := h.mastery.Alerts(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, alerts, nil)
}

// Dismiss godoc
// @Summary Dismiss mastery alerts
// @Description Hides the named alerts for the rest of the session; with review_later they are kept in the review list
// @Tags Mastery
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param payload body service.DismissAlertsRequest true "Dismissal payload"
// @Success 204 {object} response.Envelope
// @Router /students/{id}/mastery/dismiss [post]
func (h *MasteryHandler) Dismiss(c *gin.Context) {
	var req service.DismissAlertsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.mastery.Dismiss(c.Request.Context(), c.Param("id"), req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Review godoc
// @Summary Pending review items for a student
// @Tags Mastery
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/mastery/review [get]
func (h *MasteryHandler) Review(c *gin.Context) {
	items, err := h.mastery.Review(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}
