package models

// RankEntry is one row of a class or school ranking. Rank is purely
// positional in descending-GPA order; equal GPAs receive consecutive ranks.
type RankEntry struct {
	Rank          int     `json:"rank"`
	StudentID     string  `json:"student_id"`
	StudentName   string  `json:"student_name"`
	ClassName     string  `json:"class_name"`
	GPA           float64 `json:"gpa"`
	AcademicLevel string  `json:"academic_level"`
}
