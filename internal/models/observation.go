package models

import "time"

// ProgressFormat tags how a recorded value was entered.
type ProgressFormat string

const (
	FormatPercentage ProgressFormat = "percentage"
	FormatFraction   ProgressFormat = "fraction"
	FormatFrequency  ProgressFormat = "frequency"
	FormatDuration   ProgressFormat = "duration"
)

// Observation is one recorded data point against a goal or, when ObjectiveID
// is set, a specific objective under that goal. Observations are immutable
// once created; they are only ever deleted.
type Observation struct {
	ID             string         `db:"id" json:"id"`
	StudentID      string         `db:"student_id" json:"student_id"`
	GoalID         string         `db:"goal_id" json:"goal_id"`
	ObjectiveID    *string        `db:"objective_id" json:"objective_id,omitempty"`
	ObservedAt     time.Time      `db:"observed_at" json:"observed_at"`
	ProgressValue  string         `db:"progress_value" json:"progress_value"`
	ProgressFormat ProgressFormat `db:"progress_format" json:"progress_format"`
	Note           string         `db:"note" json:"note"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
}

// ObservationFilter narrows observation listings.
type ObservationFilter struct {
	GoalID      string
	ObjectiveID string
	From        *time.Time
	To          *time.Time
	Page        int
	PageSize    int
}
