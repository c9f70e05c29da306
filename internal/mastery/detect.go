package mastery

import (
	"strconv"
	"time"

	"github.com/sped-tools/iep-progress-api/internal/models"
)

// Input is a snapshot of one student's goal tree plus the session-scoped
// dismissal set. Detection is a pure function over this snapshot; nothing is
// carried between runs.
type Input struct {
	StudentID    string
	Goals        []models.Goal
	Objectives   map[string][]models.Objective // keyed by goal ID
	Observations []models.Observation
	Dismissed    map[models.AlertKey]struct{}
	// Now supplies "today" for goal alerts whose contributing objectives
	// were all previously mastered and carry no fresh mastery date. Zero
	// means time.Now.
	Now time.Time
}

type objectiveState struct {
	mastered bool
	fresh    bool
	outcome  Outcome
}

// Detect runs the mastery evaluation across a student's full goal tree and
// returns newly achieved mastery alerts: objective alerts first, then goal
// alerts, in processing order.
//
// Objectives are always evaluated before goals. A goal that has been
// decomposed into objectives with criteria is a roll-up: it masters only
// when every such objective is mastered, regardless of its own aggregate
// measurements. Objectives without criteria never gate their goal.
//
// Alerts whose key is in the dismissed set are still computed (the state
// feeds the goal pass) but excluded from the returned slice.
func Detect(in Input) []models.MasteryAlert {
	states := make(map[string]objectiveState)
	var alerts []models.MasteryAlert

	for _, goal := range in.Goals {
		for _, obj := range in.Objectives[goal.ID] {
			if obj.Status == models.StatusMastered {
				states[obj.ID] = objectiveState{mastered: true}
				continue
			}
			if obj.TargetCriteria == "" {
				continue
			}
			criterion, ok := Parse(obj.TargetCriteria)
			if !ok {
				continue
			}
			points := collectPoints(in.Observations, func(o models.Observation) bool {
				return o.ObjectiveID != nil && *o.ObjectiveID == obj.ID
			})
			outcome := Evaluate(points, criterion, goal.DataCollectionType)
			if !outcome.Mastered {
				continue
			}
			states[obj.ID] = objectiveState{mastered: true, fresh: true, outcome: outcome}

			alert := models.MasteryAlert{
				Key:            models.AlertKey{Type: models.AlertObjective, ItemID: obj.ID},
				StudentID:      in.StudentID,
				Title:          goal.Title,
				Description:    obj.Description,
				TargetCriteria: obj.TargetCriteria,
				MasteryDate:    outcome.MasteryDate,
				ObservationIDs: outcome.ObservationIDs,
			}
			if _, dismissed := in.Dismissed[alert.Key]; !dismissed {
				alerts = append(alerts, alert)
			}
		}
	}

	for _, goal := range in.Goals {
		if goal.Status == models.StatusMastered || goal.TargetCriteria == "" {
			continue
		}

		objectives := in.Objectives[goal.ID]
		withCriteria := make([]models.Objective, 0, len(objectives))
		for _, obj := range objectives {
			if obj.TargetCriteria != "" {
				withCriteria = append(withCriteria, obj)
			}
		}

		var alert models.MasteryAlert
		if len(withCriteria) > 0 {
			allMastered := true
			for _, obj := range withCriteria {
				if !states[obj.ID].mastered {
					allMastered = false
					break
				}
			}
			if !allMastered {
				continue
			}

			var masteryDate time.Time
			var ids []string
			for _, obj := range withCriteria {
				st := states[obj.ID]
				if !st.fresh {
					continue
				}
				if st.outcome.MasteryDate.After(masteryDate) {
					masteryDate = st.outcome.MasteryDate
				}
				ids = append(ids, st.outcome.ObservationIDs...)
			}
			if masteryDate.IsZero() {
				masteryDate = in.now()
			}
			alert = models.MasteryAlert{
				Key:            models.AlertKey{Type: models.AlertGoal, ItemID: goal.ID},
				StudentID:      in.StudentID,
				Title:          goal.Title,
				Description:    goal.Description,
				TargetCriteria: goal.TargetCriteria,
				MasteryDate:    masteryDate,
				ObservationIDs: ids,
			}
		} else {
			criterion, ok := Parse(goal.TargetCriteria)
			if !ok {
				continue
			}
			points := collectPoints(in.Observations, func(o models.Observation) bool {
				return o.ObjectiveID == nil && o.GoalID == goal.ID
			})
			outcome := Evaluate(points, criterion, goal.DataCollectionType)
			if !outcome.Mastered {
				continue
			}
			alert = models.MasteryAlert{
				Key:            models.AlertKey{Type: models.AlertGoal, ItemID: goal.ID},
				StudentID:      in.StudentID,
				Title:          goal.Title,
				Description:    goal.Description,
				TargetCriteria: goal.TargetCriteria,
				MasteryDate:    outcome.MasteryDate,
				ObservationIDs: outcome.ObservationIDs,
			}
		}

		if _, dismissed := in.Dismissed[alert.Key]; !dismissed {
			alerts = append(alerts, alert)
		}
	}

	return alerts
}

func (in Input) now() time.Time {
	if !in.Now.IsZero() {
		return in.Now
	}
	return time.Now().UTC().Truncate(24 * time.Hour)
}

// collectPoints converts matching observations to clean data points,
// silently dropping values that do not parse as numbers.
func collectPoints(observations []models.Observation, match func(models.Observation) bool) []DataPoint {
	points := make([]DataPoint, 0, len(observations))
	for _, o := range observations {
		if !match(o) {
			continue
		}
		value, err := strconv.ParseFloat(o.ProgressValue, 64)
		if err != nil {
			continue
		}
		points = append(points, DataPoint{ID: o.ID, Date: o.ObservedAt, Value: value})
	}
	return points
}
