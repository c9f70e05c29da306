package service

import (
	"context"
	"database/sql"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/sped-tools/iep-progress-api/internal/mastery"
	"github.com/sped-tools/iep-progress-api/internal/models"
	appErrors "github.com/sped-tools/iep-progress-api/pkg/errors"
)

type goalRepository interface {
	ListByStudent(ctx context.Context, studentID string) ([]models.Goal, error)
	FindByID(ctx context.Context, id string) (*models.Goal, error)
	Create(ctx context.Context, goal *models.Goal) error
	Update(ctx context.Context, goal *models.Goal) error
	UpdateStatus(ctx context.Context, id string, status models.GoalStatus) error
	ListObjectives(ctx context.Context, goalID string) ([]models.Objective, error)
	FindObjectiveByID(ctx context.Context, id string) (*models.Objective, error)
	CreateObjective(ctx context.Context, objective *models.Objective) error
	UpdateObjective(ctx context.Context, objective *models.Objective) error
	UpdateObjectiveStatus(ctx context.Context, id string, status models.GoalStatus) error
}

type studentChecker interface {
	Exists(ctx context.Context, id string) (bool, error)
}

type reviewResolver interface {
	Remove(ctx context.Context, itemType models.AlertType, itemID string) error
}

// CreateGoalRequest holds payload for creating a goal.
type CreateGoalRequest struct {
	Title              string                    `json:"title" validate:"required"`
	Description        string                    `json:"description"`
	TargetCriteria     string                    `json:"target_criteria"`
	DataCollectionType models.DataCollectionType `json:"data_collection_type" validate:"required,oneof=percentage frequency duration"`
}

// UpdateGoalRequest holds payload for updating a goal.
type UpdateGoalRequest struct {
	Title              string                    `json:"title" validate:"required"`
	Description        string                    `json:"description"`
	TargetCriteria     string                    `json:"target_criteria"`
	DataCollectionType models.DataCollectionType `json:"data_collection_type" validate:"required,oneof=percentage frequency duration"`
}

// CreateObjectiveRequest holds payload for creating an objective under a goal.
type CreateObjectiveRequest struct {
	Description    string `json:"description" validate:"required"`
	TargetCriteria string `json:"target_criteria"`
}

// UpdateObjectiveRequest holds payload for updating an objective.
type UpdateObjectiveRequest struct {
	Description    string `json:"description" validate:"required"`
	TargetCriteria string `json:"target_criteria"`
}

// UpdateStatusRequest flips a goal or objective lifecycle status.
type UpdateStatusRequest struct {
	Status models.GoalStatus `json:"status" validate:"required,oneof=active mastered discontinued"`
}

// GoalService handles goal and objective use-cases.
type GoalService struct {
	repo      goalRepository
	students  studentChecker
	review    reviewResolver
	validator *validator.Validate
	logger    *zap.Logger
}

// NewGoalService constructs the goal service.
func NewGoalService(repo goalRepository, students studentChecker, review reviewResolver, validate *validator.Validate, logger *zap.Logger) *GoalService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GoalService{repo: repo, students: students, review: review, validator: validate, logger: logger}
}

// ListByStudent returns the student's goals, each with its objectives.
func (s *GoalService) ListByStudent(ctx context.Context, studentID string) ([]models.GoalDetail, error) {
	exists, err := s.students.Exists(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check student")
	}
	if !exists {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	goals, err := s.repo.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list goals")
	}
	details := make([]models.GoalDetail, 0, len(goals))
	for _, goal := range goals {
		objectives, err := s.repo.ListObjectives(ctx, goal.ID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list objectives")
		}
		details = append(details, models.GoalDetail{Goal: goal, Objectives: objectives})
	}
	return details, nil
}

// Get returns a goal with its objectives.
func (s *GoalService) Get(ctx context.Context, id string) (*models.GoalDetail, error) {
	goal, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "goal not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load goal")
	}
	objectives, err := s.repo.ListObjectives(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list objectives")
	}
	return &models.GoalDetail{Goal: *goal, Objectives: objectives}, nil
}

// Create adds a goal under a student.
func (s *GoalService) Create(ctx context.Context, studentID string, req CreateGoalRequest) (*models.Goal, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid goal payload")
	}
	exists, err := s.students.Exists(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check student")
	}
	if !exists {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	s.warnUnparseableCriteria(req.TargetCriteria, "goal", req.Title)
	goal := &models.Goal{
		StudentID:          studentID,
		Title:              req.Title,
		Description:        req.Description,
		TargetCriteria:     req.TargetCriteria,
		DataCollectionType: req.DataCollectionType,
		Status:             models.StatusActive,
	}
	if err := s.repo.Create(ctx, goal); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create goal")
	}
	return goal, nil
}

// Update modifies an existing goal.
func (s *GoalService) Update(ctx context.Context, id string, req UpdateGoalRequest) (*models.Goal, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid goal payload")
	}
	goal, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "goal not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load goal")
	}
	s.warnUnparseableCriteria(req.TargetCriteria, "goal", req.Title)
	goal.Title = req.Title
	goal.Description = req.Description
	goal.TargetCriteria = req.TargetCriteria
	goal.DataCollectionType = req.DataCollectionType
	if err := s.repo.Update(ctx, goal); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update goal")
	}
	return goal, nil
}

// UpdateStatus flips a goal's status. Marking a goal mastered resolves its
// pending review entry, if any.
func (s *GoalService) UpdateStatus(ctx context.Context, id string, req UpdateStatusRequest) (*models.Goal, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid status payload")
	}
	goal, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "goal not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load goal")
	}
	if err := s.repo.UpdateStatus(ctx, id, req.Status); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update goal status")
	}
	if req.Status == models.StatusMastered {
		if err := s.review.Remove(ctx, models.AlertGoal, id); err != nil {
			s.logger.Warn("failed to resolve review entry for mastered goal", zap.String("goal_id", id), zap.Error(err))
		}
	}
	goal.Status = req.Status
	return goal, nil
}

// CreateObjective adds an objective under a goal.
func (s *GoalService) CreateObjective(ctx context.Context, goalID string, req CreateObjectiveRequest) (*models.Objective, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid objective payload")
	}
	if _, err := s.repo.FindByID(ctx, goalID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "goal not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load goal")
	}
	s.warnUnparseableCriteria(req.TargetCriteria, "objective", req.Description)
	objective := &models.Objective{
		GoalID:         goalID,
		Description:    req.Description,
		TargetCriteria: req.TargetCriteria,
		Status:         models.StatusActive,
	}
	if err := s.repo.CreateObjective(ctx, objective); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create objective")
	}
	return objective, nil
}

// UpdateObjective modifies an existing objective.
func (s *GoalService) UpdateObjective(ctx context.Context, id string, req UpdateObjectiveRequest) (*models.Objective, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid objective payload")
	}
	objective, err := s.repo.FindObjectiveByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "objective not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load objective")
	}
	s.warnUnparseableCriteria(req.TargetCriteria, "objective", req.Description)
	objective.Description = req.Description
	objective.TargetCriteria = req.TargetCriteria
	if err := s.repo.UpdateObjective(ctx, objective); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update objective")
	}
	return objective, nil
}

// UpdateObjectiveStatus flips an objective's status. Marking an objective
// mastered resolves its pending review entry, if any.
func (s *GoalService) UpdateObjectiveStatus(ctx context.Context, id string, req UpdateStatusRequest) (*models.Objective, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid status payload")
	}
	objective, err := s.repo.FindObjectiveByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "objective not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load objective")
	}
	if err := s.repo.UpdateObjectiveStatus(ctx, id, req.Status); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update objective status")
	}
	if req.Status == models.StatusMastered {
		if err := s.review.Remove(ctx, models.AlertObjective, id); err != nil {
			s.logger.Warn("failed to resolve review entry for mastered objective", zap.String("objective_id", id), zap.Error(err))
		}
	}
	objective.Status = req.Status
	return objective, nil
}

// warnUnparseableCriteria flags criteria text that the detector will skip, so
// a typo is visible at authoring time instead of silently disabling checks.
func (s *GoalService) warnUnparseableCriteria(text, kind, title string) {
	if text == "" {
		return
	}
	if _, ok := mastery.Parse(text); !ok {
		s.logger.Warn("target criteria will not be checked for mastery",
			zap.String("kind", kind),
			zap.String("title", title),
			zap.String("criteria", text))
	}
}
