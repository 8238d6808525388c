package models

import "time"

// ScoreEntry holds the graded components for one student, subject, semester
// and academic year. At most one entry exists per that tuple. WeightedAvg is
// derived on every write and is nil only when all three components are nil.
type ScoreEntry struct {
	ID            string     `db:"id" json:"id"`
	StudentID     string     `db:"student_id" json:"student_id"`
	SubjectName   string     `db:"subject_name" json:"subject_name"`
	SubjectWeight float64    `db:"subject_weight" json:"subject_weight"`
	QuizScore     *float64   `db:"quiz_score" json:"quiz_score,omitempty"`
	PeriodicScore *float64   `db:"periodic_score" json:"periodic_score,omitempty"`
	FinalScore    *float64   `db:"final_score" json:"final_score,omitempty"`
	WeightedAvg   *float64   `db:"weighted_avg" json:"weighted_avg,omitempty"`
	Semester      int        `db:"semester" json:"semester"`
	AcademicYear  string     `db:"academic_year" json:"academic_year"`
	EnteredBy     string     `db:"entered_by" json:"entered_by"`
	EnteredAt     time.Time  `db:"entered_at" json:"entered_at"`
	UpdatedBy     *string    `db:"updated_by" json:"updated_by,omitempty"`
	UpdatedAt     *time.Time `db:"updated_at" json:"updated_at,omitempty"`
}

// ScoreKey identifies the unique score tuple.
type ScoreKey struct {
	StudentID    string
	SubjectName  string
	Semester     int
	AcademicYear string
}

// ScoreScope selects score entries for a class, subject, semester and year.
type ScoreScope struct {
	ClassName    string
	SubjectName  string
	Semester     int
	AcademicYear string
}

// SubjectAverage is the per-subject input to the GPA computation.
type SubjectAverage struct {
	WeightedAvg   *float64 `db:"weighted_avg" json:"weighted_avg,omitempty"`
	SubjectWeight float64  `db:"subject_weight" json:"subject_weight"`
}
