package models

import "time"

// AcademicCriterion maps a GPA band to a human-readable level label.
type AcademicCriterion struct {
	ID          string    `db:"id" json:"id"`
	Level       string    `db:"level" json:"level"`
	MinGPA      float64   `db:"min_gpa" json:"min_gpa"`
	MaxGPA      float64   `db:"max_gpa" json:"max_gpa"`
	Description *string   `db:"description" json:"description,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}
