package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/minhtran-dev/gradebook-api/internal/models"
)

// AcademicYearRepository handles persistence for academic years.
type AcademicYearRepository struct {
	db *sqlx.DB
}

// NewAcademicYearRepository instantiates an academic year repository.
func NewAcademicYearRepository(db *sqlx.DB) *AcademicYearRepository {
	return &AcademicYearRepository{db: db}
}

// List returns all academic years ordered by start date.
func (r *AcademicYearRepository) List(ctx context.Context) ([]models.AcademicYear, error) {
	const query = `SELECT id, name, start_date, end_date, is_current, created_at FROM academic_years ORDER BY start_date DESC`
	var years []models.AcademicYear
	if err := r.db.SelectContext(ctx, &years, query); err != nil {
		return nil, fmt.Errorf("list academic years: %w", err)
	}
	return years, nil
}

// FindByID loads an academic year by identifier.
func (r *AcademicYearRepository) FindByID(ctx context.Context, id string) (*models.AcademicYear, error) {
	const query = `SELECT id, name, start_date, end_date, is_current, created_at FROM academic_years WHERE id = $1`
	var year models.AcademicYear
	if err := r.db.GetContext(ctx, &year, query, id); err != nil {
		return nil, err
	}
	return &year, nil
}

// FindCurrent returns the academic year flagged as current.
func (r *AcademicYearRepository) FindCurrent(ctx context.Context) (*models.AcademicYear, error) {
	const query = `SELECT id, name, start_date, end_date, is_current, created_at FROM academic_years WHERE is_current = TRUE LIMIT 1`
	var year models.AcademicYear
	if err := r.db.GetContext(ctx, &year, query); err != nil {
		return nil, err
	}
	return &year, nil
}

// Create inserts a new academic year.
func (r *AcademicYearRepository) Create(ctx context.Context, year *models.AcademicYear) error {
	if year.ID == "" {
		year.ID = uuid.NewString()
	}
	if year.CreatedAt.IsZero() {
		year.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO academic_years (id, name, start_date, end_date, is_current, created_at) VALUES (:id, :name, :start_date, :end_date, :is_current, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, year); err != nil {
		return fmt.Errorf("create academic year: %w", err)
	}
	return nil
}

// Update modifies an existing academic year.
func (r *AcademicYearRepository) Update(ctx context.Context, year *models.AcademicYear) error {
	const query = `UPDATE academic_years SET name = :name, start_date = :start_date, end_date = :end_date, is_current = :is_current WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, year); err != nil {
		return fmt.Errorf("update academic year: %w", err)
	}
	return nil
}

// SetCurrent marks the provided year as current and resets the rest. The
// reset and the set run inside one transaction so an interruption can never
// leave zero or two current years.
func (r *AcademicYearRepository) SetCurrent(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin set current tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `UPDATE academic_years SET is_current = FALSE WHERE is_current = TRUE AND id <> $1`, id); err != nil {
		return fmt.Errorf("reset current years: %w", err)
	}

	if _, err = tx.ExecContext(ctx, `UPDATE academic_years SET is_current = TRUE WHERE id = $1`, id); err != nil {
		return fmt.Errorf("set current year: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit set current tx: %w", err)
	}
	return nil
}

// Delete removes an academic year permanently.
func (r *AcademicYearRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM academic_years WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete academic year: %w", err)
	}
	return nil
}
