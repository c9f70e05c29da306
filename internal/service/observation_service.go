package service

import (
	"context"
	"database/sql"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/sped-tools/iep-progress-api/internal/models"
	appErrors "github.com/sped-tools/iep-progress-api/pkg/errors"
)

type observationRepository interface {
	List(ctx context.Context, studentID string, filter models.ObservationFilter) ([]models.Observation, int, error)
	FindByID(ctx context.Context, id string) (*models.Observation, error)
	Create(ctx context.Context, observation *models.Observation) error
	Delete(ctx context.Context, id string) error
}

type observationGoalRepository interface {
	FindByID(ctx context.Context, id string) (*models.Goal, error)
	FindObjectiveByID(ctx context.Context, id string) (*models.Objective, error)
}

// CreateObservationRequest holds payload for recording a data point.
type CreateObservationRequest struct {
	GoalID         string                `json:"goal_id" validate:"required"`
	ObjectiveID    *string               `json:"objective_id"`
	ObservedAt     string                `json:"observed_at" validate:"required"`
	ProgressValue  string                `json:"progress_value" validate:"required"`
	ProgressFormat models.ProgressFormat `json:"progress_format" validate:"required,oneof=percentage fraction frequency duration"`
	Note           string                `json:"note"`
}

// ObservationService handles data-point recording and retrieval.
// Observations are immutable: record, list, delete, never edit.
type ObservationService struct {
	repo      observationRepository
	goals     observationGoalRepository
	students  studentChecker
	validator *validator.Validate
	logger    *zap.Logger
}

// NewObservationService constructs the observation service.
func NewObservationService(repo observationRepository, goals observationGoalRepository, students studentChecker, validate *validator.Validate, logger *zap.Logger) *ObservationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ObservationService{repo: repo, goals: goals, students: students, validator: validate, logger: logger}
}

// List returns a filtered page of a student's observations.
func (s *ObservationService) List(ctx context.Context, studentID string, filter models.ObservationFilter) ([]models.Observation, *models.Pagination, error) {
	exists, err := s.students.Exists(ctx, studentID)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check student")
	}
	if !exists {
		return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	observations, total, err := s.repo.List(ctx, studentID, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list observations")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 50
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return observations, pagination, nil
}

// Create records a new observation after validating the date, the numeric
// value, and that the goal (and objective, if given) belong to the student.
func (s *ObservationService) Create(ctx context.Context, studentID string, req CreateObservationRequest) (*models.Observation, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid observation payload")
	}

	observedAt, err := time.Parse("2006-01-02", req.ObservedAt)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "observed_at must be a YYYY-MM-DD date")
	}
	if _, err := strconv.ParseFloat(req.ProgressValue, 64); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "progress_value must be numeric")
	}

	goal, err := s.goals.FindByID(ctx, req.GoalID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "goal not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load goal")
	}
	if goal.StudentID != studentID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "goal does not belong to student")
	}

	if req.ObjectiveID != nil {
		objective, err := s.goals.FindObjectiveByID(ctx, *req.ObjectiveID)
		if err != nil {
			if err == sql.ErrNoRows {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "objective not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load objective")
		}
		if objective.GoalID != goal.ID {
			return nil, appErrors.Clone(appErrors.ErrValidation, "objective does not belong to goal")
		}
	}

	observation := &models.Observation{
		StudentID:      studentID,
		GoalID:         req.GoalID,
		ObjectiveID:    req.ObjectiveID,
		ObservedAt:     observedAt,
		ProgressValue:  req.ProgressValue,
		ProgressFormat: req.ProgressFormat,
		Note:           req.Note,
	}
	if err := s.repo.Create(ctx, observation); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record observation")
	}
	return observation, nil
}

// Delete removes a recorded observation.
func (s *ObservationService) Delete(ctx context.Context, studentID, id string) error {
	observation, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "observation not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load observation")
	}
	if observation.StudentID != studentID {
		return appErrors.Clone(appErrors.ErrNotFound, "observation not found")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete observation")
	}
	return nil
}
