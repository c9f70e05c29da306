package service

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sped-tools/iep-progress-api/internal/models"
)

type mockMasteryGoalRepo struct {
	goals      []models.Goal
	objectives []models.Objective
}

func (m *mockMasteryGoalRepo) ListByStudent(ctx context.Context, studentID string) ([]models.Goal, error) {
	return m.goals, nil
}

func (m *mockMasteryGoalRepo) ListObjectivesByStudent(ctx context.Context, studentID string) ([]models.Objective, error) {
	return m.objectives, nil
}

type mockObservationRepo struct {
	observations []models.Observation
}

func (m *mockObservationRepo) ListByStudent(ctx context.Context, studentID string) ([]models.Observation, error) {
	return m.observations, nil
}

type mockStudentChecker struct {
	known map[string]bool
}

func (m *mockStudentChecker) Exists(ctx context.Context, id string) (bool, error) {
	return m.known[id], nil
}

type mockDismissalStore struct {
	members map[models.AlertKey]struct{}
	added   []models.AlertKey
}

func (m *mockDismissalStore) Add(ctx context.Context, studentID string, keys []models.AlertKey) error {
	if m.members == nil {
		m.members = make(map[models.AlertKey]struct{})
	}
	for _, k := range keys {
		m.members[k] = struct{}{}
		m.added = append(m.added, k)
	}
	return nil
}

func (m *mockDismissalStore) Members(ctx context.Context, studentID string) (map[models.AlertKey]struct{}, error) {
	return m.members, nil
}

type mockReviewLedger struct {
	items   []models.ReviewItem
	removed []models.AlertKey
}

func (m *mockReviewLedger) Append(ctx context.Context, items []models.ReviewItem) error {
	m.items = append(m.items, items...)
	return nil
}

func (m *mockReviewLedger) ListByStudent(ctx context.Context, studentID string) ([]models.ReviewItem, error) {
	return m.items, nil
}

func (m *mockReviewLedger) Remove(ctx context.Context, itemType models.AlertType, itemID string) error {
	m.removed = append(m.removed, models.AlertKey{Type: itemType, ItemID: itemID})
	return nil
}

func masteryFixtureDay(n int) time.Time {
	return time.Date(2025, 9, n, 0, 0, 0, 0, time.UTC)
}

func masteryFixture() (*mockMasteryGoalRepo, *mockObservationRepo) {
	goals := &mockMasteryGoalRepo{
		goals: []models.Goal{{
			ID:                 "g1",
			StudentID:          "s1",
			Title:              "Reading fluency",
			TargetCriteria:     "80% over 3 consecutive sessions",
			DataCollectionType: models.CollectPercentage,
			Status:             models.StatusActive,
		}},
	}
	observations := &mockObservationRepo{}
	for i := 1; i <= 3; i++ {
		observations.observations = append(observations.observations, models.Observation{
			ID:             string(rune('a' + i - 1)),
			StudentID:      "s1",
			GoalID:         "g1",
			ObservedAt:     masteryFixtureDay(i),
			ProgressValue:  "85",
			ProgressFormat: models.FormatPercentage,
		})
	}
	return goals, observations
}

func newMasteryService(goals *mockMasteryGoalRepo, observations *mockObservationRepo, dismissals *mockDismissalStore, review *mockReviewLedger) *MasteryService {
	students := &mockStudentChecker{known: map[string]bool{"s1": true}}
	return NewMasteryService(goals, observations, students, dismissals, review, nil, time.Minute, validator.New(), zap.NewNop())
}

func TestMasteryServiceAlerts(t *testing.T) {
	goals, observations := masteryFixture()
	svc := newMasteryService(goals, observations, &mockDismissalStore{}, &mockReviewLedger{})

	alerts, err := svc.Alerts(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, models.AlertGoal, alerts[0].Key.Type)
	assert.Equal(t, "g1", alerts[0].Key.ItemID)
	assert.Equal(t, masteryFixtureDay(3), alerts[0].MasteryDate)
	assert.Equal(t, []string{"a", "b", "c"}, alerts[0].ObservationIDs)
}

func TestMasteryServiceAlertsUnknownStudent(t *testing.T) {
	goals, observations := masteryFixture()
	svc := newMasteryService(goals, observations, &mockDismissalStore{}, &mockReviewLedger{})

	_, err := svc.Alerts(context.Background(), "missing")
	require.Error(t, err)
}

func TestMasteryServiceDismissSuppressesAlert(t *testing.T) {
	goals, observations := masteryFixture()
	dismissals := &mockDismissalStore{}
	svc := newMasteryService(goals, observations, dismissals, &mockReviewLedger{})

	key := models.AlertKey{Type: models.AlertGoal, ItemID: "g1"}
	err := svc.Dismiss(context.Background(), "s1", DismissAlertsRequest{Items: []models.AlertKey{key}})
	require.NoError(t, err)
	assert.Equal(t, []models.AlertKey{key}, dismissals.added)

	alerts, err := svc.Alerts(context.Background(), "s1")
	require.NoError(t, err)
	assert.Empty(t, alerts)
}

func TestMasteryServiceDismissWithReviewLater(t *testing.T) {
	goals, observations := masteryFixture()
	review := &mockReviewLedger{}
	svc := newMasteryService(goals, observations, &mockDismissalStore{}, review)

	key := models.AlertKey{Type: models.AlertGoal, ItemID: "g1"}
	err := svc.Dismiss(context.Background(), "s1", DismissAlertsRequest{Items: []models.AlertKey{key}, ReviewLater: true})
	require.NoError(t, err)

	require.Len(t, review.items, 1)
	assert.Equal(t, "s1", review.items[0].StudentID)
	assert.Equal(t, models.AlertGoal, review.items[0].ItemType)
	assert.Equal(t, "g1", review.items[0].ItemID)
	assert.Equal(t, "Reading fluency", review.items[0].Title)
	assert.Equal(t, masteryFixtureDay(3), review.items[0].MasteryDate)
}

func TestMasteryServiceDismissReviewLaterIgnoresInactiveKeys(t *testing.T) {
	goals, observations := masteryFixture()
	review := &mockReviewLedger{}
	svc := newMasteryService(goals, observations, &mockDismissalStore{}, review)

	// "g2" has no active alert, so no ledger row should be written for it.
	keys := []models.AlertKey{
		{Type: models.AlertGoal, ItemID: "g1"},
		{Type: models.AlertGoal, ItemID: "g2"},
	}
	err := svc.Dismiss(context.Background(), "s1", DismissAlertsRequest{Items: keys, ReviewLater: true})
	require.NoError(t, err)
	require.Len(t, review.items, 1)
	assert.Equal(t, "g1", review.items[0].ItemID)
}

func TestMasteryServiceDismissRejectsEmptyBatch(t *testing.T) {
	goals, observations := masteryFixture()
	svc := newMasteryService(goals, observations, &mockDismissalStore{}, &mockReviewLedger{})

	err := svc.Dismiss(context.Background(), "s1", DismissAlertsRequest{})
	require.Error(t, err)
}

func TestMasteryServiceReview(t *testing.T) {
	goals, observations := masteryFixture()
	review := &mockReviewLedger{items: []models.ReviewItem{{ID: "r1", StudentID: "s1", ItemType: models.AlertObjective, ItemID: "obj1"}}}
	svc := newMasteryService(goals, observations, &mockDismissalStore{}, review)

	items, err := svc.Review(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "obj1", items[0].ItemID)
}
