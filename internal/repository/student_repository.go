package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/minhtran-dev/gradebook-api/internal/models"
)

// StudentRepository manages persistence for student profiles.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// ListRows returns student rows joined with account names, optionally
// filtered to a class. Students whose account was deleted surface with an
// empty name rather than being dropped.
func (r *StudentRepository) ListRows(ctx context.Context, className string) ([]models.StudentRow, error) {
	query := `SELECT s.id AS student_id, COALESCE(a.full_name, '') AS student_name, s.student_code, s.class_name
        FROM students s
        LEFT JOIN accounts a ON a.id = s.account_id`
	var args []interface{}
	if className != "" {
		query += " WHERE s.class_name = $1"
		args = append(args, className)
	}
	query += " ORDER BY s.student_code"

	var rows []models.StudentRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list student rows: %w", err)
	}
	return rows, nil
}

// ListProfiles returns raw student profiles, optionally scoped to a class.
func (r *StudentRepository) ListProfiles(ctx context.Context, className string) ([]models.StudentProfile, error) {
	query := `SELECT id, account_id, student_code, class_name, grade, date_of_birth, academic_year FROM students`
	var args []interface{}
	if className != "" {
		query += " WHERE class_name = $1"
		args = append(args, className)
	}

	var profiles []models.StudentProfile
	if err := r.db.SelectContext(ctx, &profiles, query, args...); err != nil {
		return nil, fmt.Errorf("list student profiles: %w", err)
	}
	return profiles, nil
}

// FindByID fetches a student profile by ID.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.StudentProfile, error) {
	const query = `SELECT id, account_id, student_code, class_name, grade, date_of_birth, academic_year FROM students WHERE id = $1`
	var profile models.StudentProfile
	if err := r.db.GetContext(ctx, &profile, query, id); err != nil {
		return nil, err
	}
	return &profile, nil
}

// ExistsByCode reports whether a student code is already taken.
func (r *StudentRepository) ExistsByCode(ctx context.Context, code string) (bool, error) {
	var exists int
	if err := r.db.GetContext(ctx, &exists, `SELECT 1 FROM students WHERE student_code = $1 LIMIT 1`, code); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check student code: %w", err)
	}
	return true, nil
}

// Create inserts a student profile.
func (r *StudentRepository) Create(ctx context.Context, profile *models.StudentProfile) error {
	if profile.ID == "" {
		profile.ID = uuid.NewString()
	}
	const query = `INSERT INTO students (id, account_id, student_code, class_name, grade, date_of_birth, academic_year) VALUES (:id, :account_id, :student_code, :class_name, :grade, :date_of_birth, :academic_year)`
	if _, err := r.db.NamedExecContext(ctx, query, profile); err != nil {
		return fmt.Errorf("create student profile: %w", err)
	}
	return nil
}
