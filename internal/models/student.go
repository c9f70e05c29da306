package models

import "time"

// Student represents a learner on a special-education caseload.
type Student struct {
	ID                 string    `db:"id" json:"id"`
	FirstName          string    `db:"first_name" json:"first_name"`
	LastName           string    `db:"last_name" json:"last_name"`
	GradeLevel         string    `db:"grade_level" json:"grade_level"`
	DisabilityCategory string    `db:"disability_category" json:"disability_category"`
	Active             bool      `db:"active" json:"active"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time `db:"updated_at" json:"updated_at"`
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Search    string
	Grade     string
	Active    *bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// StudentDetail contains student information with caseload context.
type StudentDetail struct {
	Student
	ActiveGoalCount   int `db:"active_goal_count" json:"active_goal_count"`
	MasteredGoalCount int `db:"mastered_goal_count" json:"mastered_goal_count"`
}
