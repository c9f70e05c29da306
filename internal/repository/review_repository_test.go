package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sped-tools/iep-progress-api/internal/models"
)

func TestReviewRepositoryAppend(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewReviewRepository(db)

	mock.ExpectExec("INSERT INTO review_items").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	items := []models.ReviewItem{{
		StudentID:      "s1",
		ItemType:       models.AlertGoal,
		ItemID:         "g1",
		Title:          "Reading fluency",
		TargetCriteria: "80% over 3 sessions",
		MasteryDate:    time.Date(2025, 9, 3, 0, 0, 0, 0, time.UTC),
	}}
	err := repo.Append(context.Background(), items)
	require.NoError(t, err)
	assert.NotEmpty(t, items[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRepositoryListByStudent(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewReviewRepository(db)

	rows := sqlmock.NewRows([]string{"id", "student_id", "item_type", "item_id", "title", "target_criteria", "mastery_date", "created_at"}).
		AddRow("r1", "s1", "objective", "obj1", "Decode CVC words", "90% in 4/5 trials", time.Now(), time.Now())
	mock.ExpectQuery("SELECT .+ FROM review_items WHERE student_id = \\$1 ORDER BY created_at ASC").
		WithArgs("s1").
		WillReturnRows(rows)

	items, err := repo.ListByStudent(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, models.AlertObjective, items[0].ItemType)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRepositoryExists(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewReviewRepository(db)

	mock.ExpectQuery("SELECT 1 FROM review_items").
		WithArgs("s1", models.AlertGoal, "g1").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	exists, err := repo.Exists(context.Background(), "s1", models.AlertGoal, "g1")
	require.NoError(t, err)
	assert.True(t, exists)

	mock.ExpectQuery("SELECT 1 FROM review_items").
		WithArgs("s1", models.AlertGoal, "g2").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}))

	exists, err = repo.Exists(context.Background(), "s1", models.AlertGoal, "g2")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRepositoryRemove(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewReviewRepository(db)

	mock.ExpectExec("DELETE FROM review_items WHERE item_type = \\$1 AND item_id = \\$2").
		WithArgs(models.AlertGoal, "g1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.Remove(context.Background(), models.AlertGoal, "g1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
