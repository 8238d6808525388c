package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/minhtran-dev/gradebook-api/internal/models"
)

// CriterionRepository handles persistence for academic level criteria.
type CriterionRepository struct {
	db *sqlx.DB
}

// NewCriterionRepository instantiates a criterion repository.
func NewCriterionRepository(db *sqlx.DB) *CriterionRepository {
	return &CriterionRepository{db: db}
}

// List returns all criteria ordered by descending minimum GPA, so the first
// matching band during classification is the highest one.
func (r *CriterionRepository) List(ctx context.Context) ([]models.AcademicCriterion, error) {
	const query = `SELECT id, level, min_gpa, max_gpa, description, created_at, updated_at FROM academic_criteria ORDER BY min_gpa DESC`
	var criteria []models.AcademicCriterion
	if err := r.db.SelectContext(ctx, &criteria, query); err != nil {
		return nil, fmt.Errorf("list criteria: %w", err)
	}
	return criteria, nil
}

// Create inserts a new criterion.
func (r *CriterionRepository) Create(ctx context.Context, criterion *models.AcademicCriterion) error {
	if criterion.ID == "" {
		criterion.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if criterion.CreatedAt.IsZero() {
		criterion.CreatedAt = now
	}
	criterion.UpdatedAt = now
	const query = `INSERT INTO academic_criteria (id, level, min_gpa, max_gpa, description, created_at, updated_at) VALUES (:id, :level, :min_gpa, :max_gpa, :description, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, criterion); err != nil {
		return fmt.Errorf("create criterion: %w", err)
	}
	return nil
}

// Update modifies an existing criterion.
func (r *CriterionRepository) Update(ctx context.Context, criterion *models.AcademicCriterion) error {
	criterion.UpdatedAt = time.Now().UTC()
	const query = `UPDATE academic_criteria SET level = :level, min_gpa = :min_gpa, max_gpa = :max_gpa, description = :description, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, criterion); err != nil {
		return fmt.Errorf("update criterion: %w", err)
	}
	return nil
}

// Delete removes a criterion permanently.
func (r *CriterionRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM academic_criteria WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete criterion: %w", err)
	}
	return nil
}
