package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/minhtran-dev/gradebook-api/internal/models"
)

// ClassRepository handles persistence for classes.
type ClassRepository struct {
	db *sqlx.DB
}

// NewClassRepository instantiates a class repository.
func NewClassRepository(db *sqlx.DB) *ClassRepository {
	return &ClassRepository{db: db}
}

// List returns all classes. Display ordering is applied by the service,
// which understands the grade/letter/sequence naming pattern.
func (r *ClassRepository) List(ctx context.Context) ([]models.Class, error) {
	const query = `SELECT id, name, grade, academic_year, is_active, created_at FROM classes`
	var classes []models.Class
	if err := r.db.SelectContext(ctx, &classes, query); err != nil {
		return nil, fmt.Errorf("list classes: %w", err)
	}
	return classes, nil
}

// FindByID loads a class by identifier.
func (r *ClassRepository) FindByID(ctx context.Context, id string) (*models.Class, error) {
	const query = `SELECT id, name, grade, academic_year, is_active, created_at FROM classes WHERE id = $1`
	var class models.Class
	if err := r.db.GetContext(ctx, &class, query, id); err != nil {
		return nil, err
	}
	return &class, nil
}

// Create inserts a new class.
func (r *ClassRepository) Create(ctx context.Context, class *models.Class) error {
	if class.ID == "" {
		class.ID = uuid.NewString()
	}
	if class.CreatedAt.IsZero() {
		class.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO classes (id, name, grade, academic_year, is_active, created_at) VALUES (:id, :name, :grade, :academic_year, :is_active, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, class); err != nil {
		return fmt.Errorf("create class: %w", err)
	}
	return nil
}

// Update modifies an existing class.
func (r *ClassRepository) Update(ctx context.Context, class *models.Class) error {
	const query = `UPDATE classes SET name = :name, grade = :grade, academic_year = :academic_year, is_active = :is_active WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, class); err != nil {
		return fmt.Errorf("update class: %w", err)
	}
	return nil
}

// Delete removes a class permanently.
func (r *ClassRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM classes WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete class: %w", err)
	}
	return nil
}

// DeleteByYear removes every class belonging to an academic year.
func (r *ClassRepository) DeleteByYear(ctx context.Context, academicYear string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM classes WHERE academic_year = $1`, academicYear); err != nil {
		return fmt.Errorf("delete classes by year: %w", err)
	}
	return nil
}

// ReplaceForYear deletes all classes of an academic year and inserts the
// provided replacements inside one transaction, so a failed batch leaves the
// previous class set intact.
func (r *ClassRepository) ReplaceForYear(ctx context.Context, academicYear string, classes []models.Class) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace classes tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM classes WHERE academic_year = $1`, academicYear); err != nil {
		return fmt.Errorf("clear classes for year: %w", err)
	}

	const insert = `INSERT INTO classes (id, name, grade, academic_year, is_active, created_at) VALUES (:id, :name, :grade, :academic_year, :is_active, :created_at)`
	now := time.Now().UTC()
	for i := range classes {
		if classes[i].ID == "" {
			classes[i].ID = uuid.NewString()
		}
		if classes[i].CreatedAt.IsZero() {
			classes[i].CreatedAt = now
		}
		if _, err = tx.NamedExecContext(ctx, insert, classes[i]); err != nil {
			return fmt.Errorf("insert generated class: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit replace classes tx: %w", err)
	}
	return nil
}
