package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/sped-tools/iep-progress-api/internal/models"
)

// GoalRepository manages persistence for goals and their objectives.
type GoalRepository struct {
	db *sqlx.DB
}

// NewGoalRepository constructs a GoalRepository.
func NewGoalRepository(db *sqlx.DB) *GoalRepository {
	return &GoalRepository{db: db}
}

const goalColumns = `id, student_id, title, description, target_criteria, data_collection_type, status, created_at, updated_at`

// ListByStudent returns all goals for a student in creation order.
func (r *GoalRepository) ListByStudent(ctx context.Context, studentID string) ([]models.Goal, error) {
	query := fmt.Sprintf(`SELECT %s FROM goals WHERE student_id = $1 ORDER BY created_at ASC`, goalColumns)
	var goals []models.Goal
	if err := r.db.SelectContext(ctx, &goals, query, studentID); err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	return goals, nil
}

// FindByID fetches a goal by ID.
func (r *GoalRepository) FindByID(ctx context.Context, id string) (*models.Goal, error) {
	query := fmt.Sprintf(`SELECT %s FROM goals WHERE id = $1`, goalColumns)
	var goal models.Goal
	if err := r.db.GetContext(ctx, &goal, query, id); err != nil {
		return nil, err
	}
	return &goal, nil
}

// Create inserts a new goal record.
func (r *GoalRepository) Create(ctx context.Context, goal *models.Goal) error {
	if goal.ID == "" {
		goal.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if goal.CreatedAt.IsZero() {
		goal.CreatedAt = now
	}
	goal.UpdatedAt = now
	const query = `INSERT INTO goals (id, student_id, title, description, target_criteria, data_collection_type, status, created_at, updated_at)
        VALUES (:id, :student_id, :title, :description, :target_criteria, :data_collection_type, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, goal); err != nil {
		return fmt.Errorf("create goal: %w", err)
	}
	return nil
}

// Update modifies an existing goal.
func (r *GoalRepository) Update(ctx context.Context, goal *models.Goal) error {
	goal.UpdatedAt = time.Now().UTC()
	const query = `UPDATE goals SET title = :title, description = :description, target_criteria = :target_criteria, data_collection_type = :data_collection_type, status = :status, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, goal); err != nil {
		return fmt.Errorf("update goal: %w", err)
	}
	return nil
}

// UpdateStatus flips a goal's lifecycle status.
func (r *GoalRepository) UpdateStatus(ctx context.Context, id string, status models.GoalStatus) error {
	const query = `UPDATE goals SET status = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, time.Now().UTC()); err != nil {
		return fmt.Errorf("update goal status: %w", err)
	}
	return nil
}

const objectiveColumns = `id, goal_id, description, target_criteria, status, created_at, updated_at`

// ListObjectivesByStudent returns every objective under the student's goals.
func (r *GoalRepository) ListObjectivesByStudent(ctx context.Context, studentID string) ([]models.Objective, error) {
	const query = `SELECT o.id, o.goal_id, o.description, o.target_criteria, o.status, o.created_at, o.updated_at
        FROM objectives o JOIN goals g ON g.id = o.goal_id WHERE g.student_id = $1 ORDER BY o.created_at ASC`
	var objectives []models.Objective
	if err := r.db.SelectContext(ctx, &objectives, query, studentID); err != nil {
		return nil, fmt.Errorf("list objectives for student: %w", err)
	}
	return objectives, nil
}

// ListObjectives returns objectives for a goal in creation order.
func (r *GoalRepository) ListObjectives(ctx context.Context, goalID string) ([]models.Objective, error) {
	query := fmt.Sprintf(`SELECT %s FROM objectives WHERE goal_id = $1 ORDER BY created_at ASC`, objectiveColumns)
	var objectives []models.Objective
	if err := r.db.SelectContext(ctx, &objectives, query, goalID); err != nil {
		return nil, fmt.Errorf("list objectives: %w", err)
	}
	return objectives, nil
}

// FindObjectiveByID fetches an objective by ID.
func (r *GoalRepository) FindObjectiveByID(ctx context.Context, id string) (*models.Objective, error) {
	query := fmt.Sprintf(`SELECT %s FROM objectives WHERE id = $1`, objectiveColumns)
	var objective models.Objective
	if err := r.db.GetContext(ctx, &objective, query, id); err != nil {
		return nil, err
	}
	return &objective, nil
}

// CreateObjective inserts a new objective under a goal.
func (r *GoalRepository) CreateObjective(ctx context.Context, objective *models.Objective) error {
	if objective.ID == "" {
		objective.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if objective.CreatedAt.IsZero() {
		objective.CreatedAt = now
	}
	objective.UpdatedAt = now
	const query = `INSERT INTO objectives (id, goal_id, description, target_criteria, status, created_at, updated_at)
        VALUES (:id, :goal_id, :description, :target_criteria, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, objective); err != nil {
		return fmt.Errorf("create objective: %w", err)
	}
	return nil
}

// UpdateObjective modifies an existing objective.
func (r *GoalRepository) UpdateObjective(ctx context.Context, objective *models.Objective) error {
	objective.UpdatedAt = time.Now().UTC()
	const query = `UPDATE objectives SET description = :description, target_criteria = :target_criteria, status = :status, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, objective); err != nil {
		return fmt.Errorf("update objective: %w", err)
	}
	return nil
}

// UpdateObjectiveStatus flips an objective's lifecycle status.
func (r *GoalRepository) UpdateObjectiveStatus(ctx context.Context, id string, status models.GoalStatus) error {
	const query = `UPDATE objectives SET status = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, time.Now().UTC()); err != nil {
		return fmt.Errorf("update objective status: %w", err)
	}
	return nil
}
