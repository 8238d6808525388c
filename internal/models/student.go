package models

import "time"

// StudentProfile links an account to its student record. Profiles are kept
// when the owning account is deleted so historical scores stay attributable.
type StudentProfile struct {
	ID           string     `db:"id" json:"id"`
	AccountID    string     `db:"account_id" json:"account_id"`
	StudentCode  string     `db:"student_code" json:"student_code"`
	ClassName    string     `db:"class_name" json:"class_name"`
	Grade        string     `db:"grade" json:"grade"`
	DateOfBirth  *time.Time `db:"date_of_birth" json:"date_of_birth,omitempty"`
	AcademicYear string     `db:"academic_year" json:"academic_year"`
}

// StudentRow is the student projection joined with the owning account.
type StudentRow struct {
	StudentID   string `db:"student_id" json:"student_id"`
	StudentName string `db:"student_name" json:"student_name"`
	StudentCode string `db:"student_code" json:"student_code"`
	ClassName   string `db:"class_name" json:"class_name"`
}
