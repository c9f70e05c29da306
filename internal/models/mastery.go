package models

import (
	"fmt"
	"time"
)

// AlertType distinguishes goal-level from objective-level mastery alerts.
type AlertType string

const (
	AlertGoal      AlertType = "goal"
	AlertObjective AlertType = "objective"
)

// AlertKey identifies a mastery alert within a detection pass. At most one
// alert per key is produced per pass.
type AlertKey struct {
	Type   AlertType `json:"type"`
	ItemID string    `json:"item_id"`
}

// String renders the key in the "type:id" form used for dismissal-set members.
func (k AlertKey) String() string {
	return fmt.Sprintf("%s:%s", k.Type, k.ItemID)
}

// MasteryAlert is a derived read model: "this goal or objective has just been
// determined to meet its mastery criteria." It is recomputed on every
// detection pass and never persisted.
type MasteryAlert struct {
	Key            AlertKey  `json:"key"`
	StudentID      string    `json:"student_id"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	TargetCriteria string    `json:"target_criteria"`
	MasteryDate    time.Time `json:"mastery_date"`
	ObservationIDs []string  `json:"observation_ids"`
}

// ReviewItem is a persisted ledger row recording that a mastery alert was
// dismissed for later review. It is removed when the underlying goal or
// objective is explicitly marked mastered.
type ReviewItem struct {
	ID             string    `db:"id" json:"id"`
	StudentID      string    `db:"student_id" json:"student_id"`
	ItemType       AlertType `db:"item_type" json:"item_type"`
	ItemID         string    `db:"item_id" json:"item_id"`
	Title          string    `db:"title" json:"title"`
	TargetCriteria string    `db:"target_criteria" json:"target_criteria"`
	MasteryDate    time.Time `db:"mastery_date" json:"mastery_date"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}
