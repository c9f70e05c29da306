package models

import "time"

// GoalStatus enumerates the lifecycle states of a goal or objective.
type GoalStatus string

const (
	StatusActive       GoalStatus = "active"
	StatusMastered     GoalStatus = "mastered"
	StatusDiscontinued GoalStatus = "discontinued"
)

// DataCollectionType describes how progress against a goal is measured.
type DataCollectionType string

const (
	CollectPercentage DataCollectionType = "percentage"
	CollectFrequency  DataCollectionType = "frequency"
	CollectDuration   DataCollectionType = "duration"
)

// Goal is a top-level IEP goal belonging to a student. TargetCriteria is the
// free-text mastery rule; an empty string disables mastery checking.
type Goal struct {
	ID                 string             `db:"id" json:"id"`
	StudentID          string             `db:"student_id" json:"student_id"`
	Title              string             `db:"title" json:"title"`
	Description        string             `db:"description" json:"description"`
	TargetCriteria     string             `db:"target_criteria" json:"target_criteria"`
	DataCollectionType DataCollectionType `db:"data_collection_type" json:"data_collection_type"`
	Status             GoalStatus         `db:"status" json:"status"`
	CreatedAt          time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time          `db:"updated_at" json:"updated_at"`
}

// Objective is a measurable sub-component of exactly one goal.
type Objective struct {
	ID             string     `db:"id" json:"id"`
	GoalID         string     `db:"goal_id" json:"goal_id"`
	Description    string     `db:"description" json:"description"`
	TargetCriteria string     `db:"target_criteria" json:"target_criteria"`
	Status         GoalStatus `db:"status" json:"status"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

// GoalDetail bundles a goal with its objectives for detail responses.
type GoalDetail struct {
	Goal
	Objectives []Objective `json:"objectives"`
}
