package mastery

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sped-tools/iep-progress-api/internal/models"
)

const studentID = "student-1"

func percentGoal(id, criteria string) models.Goal {
	return models.Goal{
		ID:                 id,
		StudentID:          studentID,
		Title:              "Goal " + id,
		TargetCriteria:     criteria,
		DataCollectionType: models.CollectPercentage,
		Status:             models.StatusActive,
	}
}

func objective(id, goalID, criteria string) models.Objective {
	return models.Objective{
		ID:             id,
		GoalID:         goalID,
		Description:    "Objective " + id,
		TargetCriteria: criteria,
		Status:         models.StatusActive,
	}
}

func goalObservations(goalID string, values ...string) []models.Observation {
	obs := make([]models.Observation, len(values))
	for i, v := range values {
		obs[i] = models.Observation{
			ID:            goalID + "-o" + string(rune('1'+i)),
			StudentID:     studentID,
			GoalID:        goalID,
			ObservedAt:    day(i + 1),
			ProgressValue: v,
		}
	}
	return obs
}

func objectiveObservations(goalID, objectiveID string, values ...string) []models.Observation {
	obs := goalObservations(goalID, values...)
	for i := range obs {
		obs[i].ID = objectiveID + "-o" + string(rune('1'+i))
		id := objectiveID
		obs[i].ObjectiveID = &id
	}
	return obs
}

func TestDetectGoalWithoutObjectives(t *testing.T) {
	goal := percentGoal("g1", "80% over 3 consecutive trials")

	alerts := Detect(Input{
		StudentID:    studentID,
		Goals:        []models.Goal{goal},
		Objectives:   map[string][]models.Objective{},
		Observations: goalObservations("g1", "85", "82", "90"),
	})

	require.Len(t, alerts, 1)
	assert.Equal(t, models.AlertKey{Type: models.AlertGoal, ItemID: "g1"}, alerts[0].Key)
	assert.Equal(t, studentID, alerts[0].StudentID)
	assert.Equal(t, day(3), alerts[0].MasteryDate)
	assert.Len(t, alerts[0].ObservationIDs, 3)
}

func TestDetectObjectiveGatesGoal(t *testing.T) {
	goal := percentGoal("g1", "80% over 3 trials")
	objA := objective("obj-a", "g1", "80% over 2 sessions")
	objB := objective("obj-b", "g1", "80% over 2 sessions")

	// Only objective A has passing data; the goal must not alert.
	observations := append(
		objectiveObservations("g1", "obj-a", "85", "90"),
		objectiveObservations("g1", "obj-b", "40", "50")...,
	)

	alerts := Detect(Input{
		StudentID:    studentID,
		Goals:        []models.Goal{goal},
		Objectives:   map[string][]models.Objective{"g1": {objA, objB}},
		Observations: observations,
	})

	require.Len(t, alerts, 1)
	assert.Equal(t, models.AlertObjective, alerts[0].Key.Type)
	assert.Equal(t, "obj-a", alerts[0].Key.ItemID)

	// Once objective B passes too, exactly one goal alert joins the batch.
	observations = append(
		objectiveObservations("g1", "obj-a", "85", "90"),
		objectiveObservations("g1", "obj-b", "85", "95")...,
	)
	alerts = Detect(Input{
		StudentID:    studentID,
		Goals:        []models.Goal{goal},
		Objectives:   map[string][]models.Objective{"g1": {objA, objB}},
		Observations: observations,
	})

	require.Len(t, alerts, 3)
	assert.Equal(t, models.AlertObjective, alerts[0].Key.Type)
	assert.Equal(t, models.AlertObjective, alerts[1].Key.Type)
	assert.Equal(t, models.AlertGoal, alerts[2].Key.Type)
	assert.Equal(t, "g1", alerts[2].Key.ItemID)
	// Goal mastery date rolls up the latest contributing objective date.
	assert.Equal(t, day(2), alerts[2].MasteryDate)
	assert.Len(t, alerts[2].ObservationIDs, 4)
}

func TestDetectAlreadyMasteredObjectivesProduceNoAlerts(t *testing.T) {
	goal := percentGoal("g1", "80% over 3 trials")
	objA := objective("obj-a", "g1", "80% over 2 sessions")
	objA.Status = models.StatusMastered
	objB := objective("obj-b", "g1", "80% over 2 sessions")
	objB.Status = models.StatusMastered

	now := day(20)
	alerts := Detect(Input{
		StudentID:  studentID,
		Goals:      []models.Goal{goal},
		Objectives: map[string][]models.Objective{"g1": {objA, objB}},
		Now:        now,
	})

	// No objective alerts (already known); goal alert falls back to "today"
	// because no contributing objective carries a fresh mastery date.
	require.Len(t, alerts, 1)
	assert.Equal(t, models.AlertGoal, alerts[0].Key.Type)
	assert.Equal(t, now, alerts[0].MasteryDate)
	assert.Empty(t, alerts[0].ObservationIDs)
}

func TestDetectObjectivesWithoutCriteriaDoNotGate(t *testing.T) {
	goal := percentGoal("g1", "80% over 3 trials")
	withCriteria := objective("obj-a", "g1", "80% over 2 sessions")
	noCriteria := objective("obj-b", "g1", "")

	alerts := Detect(Input{
		StudentID:    studentID,
		Goals:        []models.Goal{goal},
		Objectives:   map[string][]models.Objective{"g1": {withCriteria, noCriteria}},
		Observations: objectiveObservations("g1", "obj-a", "85", "90"),
	})

	// obj-b never blocks: one objective alert plus the goal roll-up.
	require.Len(t, alerts, 2)
	assert.Equal(t, "obj-a", alerts[0].Key.ItemID)
	assert.Equal(t, "g1", alerts[1].Key.ItemID)
}

func TestDetectGoalLevelFallbackWhenNoObjectiveHasCriteria(t *testing.T) {
	goal := percentGoal("g1", "80% over 3 trials")
	bare := objective("obj-a", "g1", "")

	alerts := Detect(Input{
		StudentID:    studentID,
		Goals:        []models.Goal{goal},
		Objectives:   map[string][]models.Objective{"g1": {bare}},
		Observations: goalObservations("g1", "85", "82", "90"),
	})

	require.Len(t, alerts, 1)
	assert.Equal(t, models.AlertGoal, alerts[0].Key.Type)
}

func TestDetectSkipsUnparseableCriteria(t *testing.T) {
	goal := percentGoal("g1", "make good progress")

	alerts := Detect(Input{
		StudentID:    studentID,
		Goals:        []models.Goal{goal},
		Objectives:   map[string][]models.Objective{},
		Observations: goalObservations("g1", "100", "100", "100"),
	})
	assert.Empty(t, alerts)
}

func TestDetectSkipsMasteredAndCriterialessGoals(t *testing.T) {
	mastered := percentGoal("g1", "80% over 3 trials")
	mastered.Status = models.StatusMastered
	noCriteria := percentGoal("g2", "")

	observations := append(
		goalObservations("g1", "90", "90", "90"),
		goalObservations("g2", "90", "90", "90")...,
	)
	alerts := Detect(Input{
		StudentID:    studentID,
		Goals:        []models.Goal{mastered, noCriteria},
		Objectives:   map[string][]models.Objective{},
		Observations: observations,
	})
	assert.Empty(t, alerts)
}

func TestDetectDismissalSuppressesButStillComputes(t *testing.T) {
	goal := percentGoal("g1", "80% over 3 trials")
	obj := objective("obj-a", "g1", "80% over 2 sessions")

	input := Input{
		StudentID:    studentID,
		Goals:        []models.Goal{goal},
		Objectives:   map[string][]models.Objective{"g1": {obj}},
		Observations: objectiveObservations("g1", "obj-a", "85", "90"),
	}

	alerts := Detect(input)
	require.Len(t, alerts, 2)

	// Dismissing the objective hides its alert, yet the goal roll-up still
	// sees the objective as mastered.
	input.Dismissed = map[models.AlertKey]struct{}{
		{Type: models.AlertObjective, ItemID: "obj-a"}: {},
	}
	alerts = Detect(input)
	require.Len(t, alerts, 1)
	assert.Equal(t, models.AlertGoal, alerts[0].Key.Type)

	// Dismissing both yields an empty batch on the second identical run.
	input.Dismissed[models.AlertKey{Type: models.AlertGoal, ItemID: "g1"}] = struct{}{}
	assert.Empty(t, Detect(input))
}

func TestDetectFiltersNonNumericValues(t *testing.T) {
	goal := percentGoal("g1", "80% over 3 trials")
	observations := goalObservations("g1", "85", "n/a", "82", "90")

	alerts := Detect(Input{
		StudentID:    studentID,
		Goals:        []models.Goal{goal},
		Objectives:   map[string][]models.Objective{},
		Observations: observations,
	})

	// The unparseable value is dropped, leaving a clean run of three.
	require.Len(t, alerts, 1)
	assert.Equal(t, day(4), alerts[0].MasteryDate)
}

func TestDetectFrequencyReductionObjective(t *testing.T) {
	goal := models.Goal{
		ID:                 "g1",
		StudentID:          studentID,
		Title:              "Reduce call-outs",
		TargetCriteria:     "reduce to under 2 per hour for 3 days",
		DataCollectionType: models.CollectFrequency,
		Status:             models.StatusActive,
	}

	alerts := Detect(Input{
		StudentID:    studentID,
		Goals:        []models.Goal{goal},
		Objectives:   map[string][]models.Objective{},
		Observations: goalObservations("g1", "3", "1", "1", "1"),
	})

	require.Len(t, alerts, 1)
	assert.Equal(t, day(4), alerts[0].MasteryDate)
}
