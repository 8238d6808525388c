package models

import "time"

// Class is a reference table row. Names follow the pattern
// grade digits + letter block + sequence number, e.g. "10A1".
type Class struct {
	ID           string    `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	Grade        string    `db:"grade" json:"grade"`
	AcademicYear string    `db:"academic_year" json:"academic_year"`
	IsActive     bool      `db:"is_active" json:"is_active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}
