package models

// TeacherProfile links an account to its teacher record.
type TeacherProfile struct {
	ID          string `db:"id" json:"id"`
	AccountID   string `db:"account_id" json:"account_id"`
	TeacherCode string `db:"teacher_code" json:"teacher_code"`
}
