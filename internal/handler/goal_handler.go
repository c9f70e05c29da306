package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sped-tools/iep-progress-api/internal/service"
	appErrors "github.com/sped-tools/iep-progress-api/pkg/errors"
	"github.com/sped-tools/iep-progress-api/pkg/response"
)

// GoalHandler exposes goal and objective endpoints.
type GoalHandler struct {
	goals *service.GoalService
}

// NewGoalHandler constructs GoalHandler.
func NewGoalHandler(goals *service.GoalService) *GoalHandler {
	return &GoalHandler{goals: goals}
}

// ListByStudent godoc
// @Summary List a student's goals with objectives
// @Tags Goals
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/goals [get]
func (h *GoalHandler) ListByStudent(c *gin.Context) {
	details, err := h.goals.ListByStudent(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, details, nil)
}

// Get godoc
// @Summary Get goal detail
// @Tags Goals
// @Produce json
// @Param id path string true "Goal ID"
// @Success 200 {object} response.Envelope
// @Router /goals/{id} [get]
func (h *GoalHandler) Get(c *gin.Context) {
	detail, err := h.goals.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// Create godoc
// @Summary Create goal for student
// @Tags Goals
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param payload body service.CreateGoalRequest true "Goal payload"
// @Success 201 {object} response.Envelope
// @Router /students/{id}/goals [post]
func (h *GoalHandler) Create(c *gin.Context) {
	var req service.CreateGoalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	goal, err := h.goals.Create(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, goal)
}

// Update godoc
// @Summary Update goal
// @Tags Goals
// @Accept json
// @Produce json
// @Param id path string true "Goal ID"
// @Param payload body service.UpdateGoalRequest true "Goal payload"
// @Success 200 {object} response.Envelope
// @Router /goals/{id} [put]
func (h *GoalHandler) Update(c *gin.Context) {
	var req service.UpdateGoalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	goal, err := h.goals.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, goal, nil)
}

// UpdateStatus godoc
// @Summary Flip goal lifecycle status
// @Tags Goals
// @Accept json
// @Produce json
// @Param id path string true "Goal ID"
// @Param payload body service.UpdateStatusRequest true "Status payload"
// @Success 200 {object} response.Envelope
// @Router /goals/{id}/status [patch]
func (h *GoalHandler) UpdateStatus(c *gin.Context) {
	var req service.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	goal, err := h.goals.UpdateStatus(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, goal, nil)
}

// CreateObjective godoc
// @Summary Create objective under goal
// @Tags Goals
// @Accept json
// @Produce json
// @Param id path string true "Goal ID"
// @Param payload body service.CreateObjectiveRequest true "Objective payload"
// @Success 201 {object} response.Envelope
// @Router /goals/{id}/objectives [post]
func (h *GoalHandler) CreateObjective(c *gin.Context) {
	var req service.CreateObjectiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	objective, err := h.goals.CreateObjective(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, objective)
}

// UpdateObjective godoc
// @Summary Update objective
// @Tags Goals
// @Accept json
// @Produce json
// @Param id path string true "Objective ID"
// @Param payload body service.UpdateObjectiveRequest true "Objective payload"
// @Success 200 {object} response.Envelope
// @Router /objectives/{id} [put]
func (h *GoalHandler) UpdateObjective(c *gin.Context) {
	var req service.UpdateObjectiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	objective, err := h.goals.UpdateObjective(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, objective, nil)
}

// UpdateObjectiveStatus godoc
// @Summary Flip objective lifecycle status
// @Tags Goals
// @Accept json
// @Produce json
// @Param id path string true "Objective ID"
// @Param payload body service.UpdateStatusRequest true "Status payload"
// @Success 200 {object} response.Envelope
// @Router /objectives/{id}/status [patch]
func (h *GoalHandler) UpdateObjectiveStatus(c *gin.Context) {
	var req service.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	objective, err := h.goals.UpdateObjectiveStatus(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, objective, nil)
}
