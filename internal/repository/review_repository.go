package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/sped-tools/iep-progress-api/internal/models"
)

// ReviewRepository persists the "needs review" ledger: mastery alerts the
// teacher dismissed for later follow-up. Rows survive reloads and sessions;
// they are removed only when the underlying item is explicitly resolved.
type ReviewRepository struct {
	db *sqlx.DB
}

// NewReviewRepository constructs a ReviewRepository.
func NewReviewRepository(db *sqlx.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

const reviewColumns = `id, student_id, item_type, item_id, title, target_criteria, mastery_date, created_at`

// Append inserts ledger rows for a dismissed alert batch. Re-appending an
// item already pending review refreshes its recorded mastery date.
func (r *ReviewRepository) Append(ctx context.Context, items []models.ReviewItem) error {
	const query = `INSERT INTO review_items (id, student_id, item_type, item_id, title, target_criteria, mastery_date, created_at)
        VALUES (:id, :student_id, :item_type, :item_id, :title, :target_criteria, :mastery_date, :created_at)
        ON CONFLICT (student_id, item_type, item_id)
        DO UPDATE SET title = EXCLUDED.title, target_criteria = EXCLUDED.target_criteria, mastery_date = EXCLUDED.mastery_date`
	for i := range items {
		if items[i].ID == "" {
			items[i].ID = uuid.NewString()
		}
		if items[i].CreatedAt.IsZero() {
			items[i].CreatedAt = time.Now().UTC()
		}
		if _, err := r.db.NamedExecContext(ctx, query, items[i]); err != nil {
			return fmt.Errorf("append review item: %w", err)
		}
	}
	return nil
}

// ListByStudent returns pending review items for a student.
func (r *ReviewRepository) ListByStudent(ctx context.Context, studentID string) ([]models.ReviewItem, error) {
	query := fmt.Sprintf(`SELECT %s FROM review_items WHERE student_id = $1 ORDER BY created_at ASC`, reviewColumns)
	var items []models.ReviewItem
	if err := r.db.SelectContext(ctx, &items, query, studentID); err != nil {
		return nil, fmt.Errorf("list review items: %w", err)
	}
	return items, nil
}

// Exists reports whether an item is pending review.
func (r *ReviewRepository) Exists(ctx context.Context, studentID string, itemType models.AlertType, itemID string) (bool, error) {
	const query = `SELECT 1 FROM review_items WHERE student_id = $1 AND item_type = $2 AND item_id = $3 LIMIT 1`
	var one int
	if err := r.db.GetContext(ctx, &one, query, studentID, itemType, itemID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check review item: %w", err)
	}
	return true, nil
}

// Remove deletes the ledger row for a resolved item. Removing an absent row
// is a no-op.
func (r *ReviewRepository) Remove(ctx context.Context, itemType models.AlertType, itemID string) error {
	const query = `DELETE FROM review_items WHERE item_type = $1 AND item_id = $2`
	if _, err := r.db.ExecContext(ctx, query, itemType, itemID); err != nil {
		return fmt.Errorf("remove review item: %w", err)
	}
	return nil
}
