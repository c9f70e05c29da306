package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/sped-tools/iep-progress-api/internal/models"
)

// ObservationRepository manages persistence for recorded data points.
// Observations are append-only: there is deliberately no Update method.
type ObservationRepository struct {
	db *sqlx.DB
}

// NewObservationRepository constructs an ObservationRepository.
func NewObservationRepository(db *sqlx.DB) *ObservationRepository {
	return &ObservationRepository{db: db}
}

const observationColumns = `id, student_id, goal_id, objective_id, observed_at, progress_value, progress_format, note, created_at`

// ListByStudent returns every observation recorded for a student, ordered by
// observation date. This feeds the detection pass, which needs the full
// history in one read.
func (r *ObservationRepository) ListByStudent(ctx context.Context, studentID string) ([]models.Observation, error) {
	query := fmt.Sprintf(`SELECT %s FROM observations WHERE student_id = $1 ORDER BY observed_at ASC, created_at ASC`, observationColumns)
	var observations []models.Observation
	if err := r.db.SelectContext(ctx, &observations, query, studentID); err != nil {
		return nil, fmt.Errorf("list observations: %w", err)
	}
	return observations, nil
}

// List returns a filtered page of observations for a student.
func (r *ObservationRepository) List(ctx context.Context, studentID string, filter models.ObservationFilter) ([]models.Observation, int, error) {
	base := "FROM observations WHERE student_id = $1"
	args := []interface{}{studentID}

	var conditions []string
	if filter.GoalID != "" {
		conditions = append(conditions, fmt.Sprintf("goal_id = $%d", len(args)+1))
		args = append(args, filter.GoalID)
	}
	if filter.ObjectiveID != "" {
		conditions = append(conditions, fmt.Sprintf("objective_id = $%d", len(args)+1))
		args = append(args, filter.ObjectiveID)
	}
	if filter.From != nil {
		conditions = append(conditions, fmt.Sprintf("observed_at >= $%d", len(args)+1))
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		conditions = append(conditions, fmt.Sprintf("observed_at <= $%d", len(args)+1))
		args = append(args, *filter.To)
	}
	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY observed_at DESC, created_at DESC LIMIT %d OFFSET %d", observationColumns, base, size, offset)
	var observations []models.Observation
	if err := r.db.SelectContext(ctx, &observations, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list observations: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count observations: %w", err)
	}
	return observations, total, nil
}

// FindByID fetches a single observation.
func (r *ObservationRepository) FindByID(ctx context.Context, id string) (*models.Observation, error) {
	query := fmt.Sprintf(`SELECT %s FROM observations WHERE id = $1`, observationColumns)
	var observation models.Observation
	if err := r.db.GetContext(ctx, &observation, query, id); err != nil {
		return nil, err
	}
	return &observation, nil
}

// Create inserts a new observation row.
func (r *ObservationRepository) Create(ctx context.Context, observation *models.Observation) error {
	if observation.ID == "" {
		observation.ID = uuid.NewString()
	}
	if observation.CreatedAt.IsZero() {
		observation.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO observations (id, student_id, goal_id, objective_id, observed_at, progress_value, progress_format, note, created_at)
        VALUES (:id, :student_id, :goal_id, :objective_id, :observed_at, :progress_value, :progress_format, :note, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, observation); err != nil {
		return fmt.Errorf("create observation: %w", err)
	}
	return nil
}

// Delete removes an observation row.
func (r *ObservationRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM observations WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete observation: %w", err)
	}
	return nil
}
