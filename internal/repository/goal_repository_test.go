package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sped-tools/iep-progress-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func goalRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "student_id", "title", "description", "target_criteria", "data_collection_type", "status", "created_at", "updated_at"}).
		AddRow("g1", "s1", "Reading fluency", "Read grade-level text", "80% over 3 consecutive sessions", "percentage", "active", time.Now(), time.Now())
}

func TestGoalRepositoryListByStudent(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewGoalRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, student_id, title, description, target_criteria, data_collection_type, status, created_at, updated_at FROM goals WHERE student_id = $1 ORDER BY created_at ASC")).
		WithArgs("s1").
		WillReturnRows(goalRows())

	goals, err := repo.ListByStudent(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, goals, 1)
	assert.Equal(t, "Reading fluency", goals[0].Title)
	assert.Equal(t, models.CollectPercentage, goals[0].DataCollectionType)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGoalRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewGoalRepository(db)

	mock.ExpectExec("INSERT INTO goals").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	goal := &models.Goal{
		StudentID:          "s1",
		Title:              "Reading fluency",
		TargetCriteria:     "80% over 3 sessions",
		DataCollectionType: models.CollectPercentage,
		Status:             models.StatusActive,
	}
	err := repo.Create(context.Background(), goal)
	require.NoError(t, err)
	assert.NotEmpty(t, goal.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGoalRepositoryUpdateStatus(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewGoalRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE goals SET status = $2, updated_at = $3 WHERE id = $1")).
		WithArgs("g1", models.StatusMastered, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateStatus(context.Background(), "g1", models.StatusMastered)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGoalRepositoryListObjectivesByStudent(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewGoalRepository(db)

	rows := sqlmock.NewRows([]string{"id", "goal_id", "description", "target_criteria", "status", "created_at", "updated_at"}).
		AddRow("obj1", "g1", "Decode CVC words", "90% in 4/5 trials", "active", time.Now(), time.Now()).
		AddRow("obj2", "g1", "Blend sounds", "", "active", time.Now(), time.Now())
	mock.ExpectQuery("SELECT o.id, o.goal_id, o.description, o.target_criteria, o.status, o.created_at, o.updated_at").
		WithArgs("s1").
		WillReturnRows(rows)

	objectives, err := repo.ListObjectivesByStudent(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, objectives, 2)
	assert.Equal(t, "g1", objectives[0].GoalID)
	assert.Empty(t, objectives[1].TargetCriteria)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGoalRepositoryCreateObjective(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewGoalRepository(db)

	mock.ExpectExec("INSERT INTO objectives").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	objective := &models.Objective{GoalID: "g1", Description: "Decode CVC words", Status: models.StatusActive}
	err := repo.CreateObjective(context.Background(), objective)
	require.NoError(t, err)
	assert.NotEmpty(t, objective.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
