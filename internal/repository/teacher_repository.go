package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/minhtran-dev/gradebook-api/internal/models"
)

// TeacherRepository manages persistence for teacher profiles.
type TeacherRepository struct {
	db *sqlx.DB
}

// NewTeacherRepository constructs a TeacherRepository.
func NewTeacherRepository(db *sqlx.DB) *TeacherRepository {
	return &TeacherRepository{db: db}
}

// FindByAccount returns the teacher profile owned by an account.
func (r *TeacherRepository) FindByAccount(ctx context.Context, accountID string) (*models.TeacherProfile, error) {
	const query = `SELECT id, account_id, teacher_code FROM teachers WHERE account_id = $1 LIMIT 1`
	var profile models.TeacherProfile
	if err := r.db.GetContext(ctx, &profile, query, accountID); err != nil {
		return nil, err
	}
	return &profile, nil
}

// ExistsByCode reports whether a teacher code is already taken.
func (r *TeacherRepository) ExistsByCode(ctx context.Context, code string) (bool, error) {
	var exists int
	if err := r.db.GetContext(ctx, &exists, `SELECT 1 FROM teachers WHERE teacher_code = $1 LIMIT 1`, code); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check teacher code: %w", err)
	}
	return true, nil
}

// Create inserts a teacher profile.
func (r *TeacherRepository) Create(ctx context.Context, profile *models.TeacherProfile) error {
	if profile.ID == "" {
		profile.ID = uuid.NewString()
	}
	const query = `INSERT INTO teachers (id, account_id, teacher_code) VALUES (:id, :account_id, :teacher_code)`
	if _, err := r.db.NamedExecContext(ctx, query, profile); err != nil {
		return fmt.Errorf("create teacher profile: %w", err)
	}
	return nil
}
