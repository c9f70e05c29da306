package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sped-tools/iep-progress-api/internal/models"
)

type mockObservationStore struct {
	observations map[string]models.Observation
	deleted      []string
}

func newMockObservationStore() *mockObservationStore {
	return &mockObservationStore{observations: make(map[string]models.Observation)}
}

func (m *mockObservationStore) List(ctx context.Context, studentID string, filter models.ObservationFilter) ([]models.Observation, int, error) {
	var out []models.Observation
	for _, o := range m.observations {
		if o.StudentID == studentID {
			out = append(out, o)
		}
	}
	return out, len(out), nil
}

func (m *mockObservationStore) FindByID(ctx context.Context, id string) (*models.Observation, error) {
	if o, ok := m.observations[id]; ok {
		return &o, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockObservationStore) Create(ctx context.Context, observation *models.Observation) error {
	if observation.ID == "" {
		observation.ID = "generated"
	}
	observation.CreatedAt = time.Now().UTC()
	m.observations[observation.ID] = *observation
	return nil
}

func (m *mockObservationStore) Delete(ctx context.Context, id string) error {
	delete(m.observations, id)
	m.deleted = append(m.deleted, id)
	return nil
}

func newObservationService(store *mockObservationStore, goals *mockGoalRepo) *ObservationService {
	students := &mockStudentChecker{known: map[string]bool{"s1": true}}
	return NewObservationService(store, goals, students, validator.New(), zap.NewNop())
}

func observationFixtureGoals() *mockGoalRepo {
	repo := newMockGoalRepo()
	repo.goals["g1"] = models.Goal{ID: "g1", StudentID: "s1", Title: "Reading fluency", DataCollectionType: models.CollectPercentage}
	repo.goals["g2"] = models.Goal{ID: "g2", StudentID: "other", Title: "Not ours"}
	repo.objectives["obj1"] = models.Objective{ID: "obj1", GoalID: "g1", Description: "Decode CVC words"}
	repo.objectives["obj2"] = models.Objective{ID: "obj2", GoalID: "g2", Description: "Other goal's objective"}
	return repo
}

func TestObservationServiceCreate(t *testing.T) {
	store := newMockObservationStore()
	svc := newObservationService(store, observationFixtureGoals())

	obs, err := svc.Create(context.Background(), "s1", CreateObservationRequest{
		GoalID:         "g1",
		ObservedAt:     "2025-09-01",
		ProgressValue:  "85",
		ProgressFormat: models.FormatPercentage,
	})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC), obs.ObservedAt)
	assert.Equal(t, "s1", obs.StudentID)
}

func TestObservationServiceCreateRejectsBadDate(t *testing.T) {
	store := newMockObservationStore()
	svc := newObservationService(store, observationFixtureGoals())

	_, err := svc.Create(context.Background(), "s1", CreateObservationRequest{
		GoalID:         "g1",
		ObservedAt:     "09/01/2025",
		ProgressValue:  "85",
		ProgressFormat: models.FormatPercentage,
	})
	require.Error(t, err)
}

func TestObservationServiceCreateRejectsNonNumericValue(t *testing.T) {
	store := newMockObservationStore()
	svc := newObservationService(store, observationFixtureGoals())

	_, err := svc.Create(context.Background(), "s1", CreateObservationRequest{
		GoalID:         "g1",
		ObservedAt:     "2025-09-01",
		ProgressValue:  "often",
		ProgressFormat: models.FormatFrequency,
	})
	require.Error(t, err)
}

func TestObservationServiceCreateRejectsForeignGoal(t *testing.T) {
	store := newMockObservationStore()
	svc := newObservationService(store, observationFixtureGoals())

	_, err := svc.Create(context.Background(), "s1", CreateObservationRequest{
		GoalID:         "g2",
		ObservedAt:     "2025-09-01",
		ProgressValue:  "85",
		ProgressFormat: models.FormatPercentage,
	})
	require.Error(t, err)
}

func TestObservationServiceCreateRejectsMismatchedObjective(t *testing.T) {
	store := newMockObservationStore()
	svc := newObservationService(store, observationFixtureGoals())

	objectiveID := "obj2"
	_, err := svc.Create(context.Background(), "s1", CreateObservationRequest{
		GoalID:         "g1",
		ObjectiveID:    &objectiveID,
		ObservedAt:     "2025-09-01",
		ProgressValue:  "85",
		ProgressFormat: models.FormatPercentage,
	})
	require.Error(t, err)
}

func TestObservationServiceDelete(t *testing.T) {
	store := newMockObservationStore()
	store.observations["o1"] = models.Observation{ID: "o1", StudentID: "s1", GoalID: "g1"}
	svc := newObservationService(store, observationFixtureGoals())

	require.NoError(t, svc.Delete(context.Background(), "s1", "o1"))
	assert.Equal(t, []string{"o1"}, store.deleted)
}

func TestObservationServiceDeleteForeignStudent(t *testing.T) {
	store := newMockObservationStore()
	store.observations["o1"] = models.Observation{ID: "o1", StudentID: "other", GoalID: "g1"}
	svc := newObservationService(store, observationFixtureGoals())

	err := svc.Delete(context.Background(), "s1", "o1")
	require.Error(t, err)
	assert.Empty(t, store.deleted)
}
