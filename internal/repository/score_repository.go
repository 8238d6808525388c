package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/minhtran-dev/gradebook-api/internal/models"
)

// ScoreRepository manages persistence for score entries.
type ScoreRepository struct {
	db *sqlx.DB
}

// NewScoreRepository constructs a ScoreRepository.
func NewScoreRepository(db *sqlx.DB) *ScoreRepository {
	return &ScoreRepository{db: db}
}

const scoreColumns = "id, student_id, subject_name, subject_weight, quiz_score, periodic_score, final_score, weighted_avg, semester, academic_year, entered_by, entered_at, updated_by, updated_at"

// FindByKey returns the score entry for the unique tuple, or sql.ErrNoRows.
func (r *ScoreRepository) FindByKey(ctx context.Context, key models.ScoreKey) (*models.ScoreEntry, error) {
	query := fmt.Sprintf("SELECT %s FROM scores WHERE student_id = $1 AND subject_name = $2 AND semester = $3 AND academic_year = $4 LIMIT 1", scoreColumns)
	var entry models.ScoreEntry
	if err := r.db.GetContext(ctx, &entry, query, key.StudentID, key.SubjectName, key.Semester, key.AcademicYear); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find score by key: %w", err)
	}
	return &entry, nil
}

// ListByScope returns entries for a subject, semester and year. When a class
// name is given the result is narrowed through the students table.
func (r *ScoreRepository) ListByScope(ctx context.Context, scope models.ScoreScope) ([]models.ScoreEntry, error) {
	query := `SELECT sc.id, sc.student_id, sc.subject_name, sc.subject_weight, sc.quiz_score, sc.periodic_score, sc.final_score, sc.weighted_avg, sc.semester, sc.academic_year, sc.entered_by, sc.entered_at, sc.updated_by, sc.updated_at
        FROM scores sc`
	args := []interface{}{scope.SubjectName, scope.Semester, scope.AcademicYear}
	where := " WHERE sc.subject_name = $1 AND sc.semester = $2 AND sc.academic_year = $3"
	if scope.ClassName != "" {
		query += " JOIN students st ON st.id = sc.student_id"
		where += " AND st.class_name = $4"
		args = append(args, scope.ClassName)
	}

	var entries []models.ScoreEntry
	if err := r.db.SelectContext(ctx, &entries, query+where, args...); err != nil {
		return nil, fmt.Errorf("list scores by scope: %w", err)
	}
	return entries, nil
}

// ListByStudent returns a student's entries for a semester and year.
func (r *ScoreRepository) ListByStudent(ctx context.Context, studentID string, semester int, academicYear string) ([]models.ScoreEntry, error) {
	query := fmt.Sprintf("SELECT %s FROM scores WHERE student_id = $1 AND semester = $2 AND academic_year = $3", scoreColumns)
	var entries []models.ScoreEntry
	if err := r.db.SelectContext(ctx, &entries, query, studentID, semester, academicYear); err != nil {
		return nil, fmt.Errorf("list scores by student: %w", err)
	}
	return entries, nil
}

// Insert stores a new score entry.
func (r *ScoreRepository) Insert(ctx context.Context, entry *models.ScoreEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	const query = `INSERT INTO scores (id, student_id, subject_name, subject_weight, quiz_score, periodic_score, final_score, weighted_avg, semester, academic_year, entered_by, entered_at, updated_by, updated_at) VALUES (:id, :student_id, :subject_name, :subject_weight, :quiz_score, :periodic_score, :final_score, :weighted_avg, :semester, :academic_year, :entered_by, :entered_at, :updated_by, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("insert score: %w", err)
	}
	return nil
}

// Update rewrites the component scores and derived average of an entry.
func (r *ScoreRepository) Update(ctx context.Context, entry *models.ScoreEntry) error {
	const query = `UPDATE scores SET quiz_score = :quiz_score, periodic_score = :periodic_score, final_score = :final_score, weighted_avg = :weighted_avg, updated_by = :updated_by, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("update score: %w", err)
	}
	return nil
}

// BulkUpsert applies many entries as one transaction using the unique
// (student_id, subject_name, semester, academic_year) constraint. Either all
// rows land or none do.
func (r *ScoreRepository) BulkUpsert(ctx context.Context, entries []models.ScoreEntry) error {
	if len(entries) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin bulk upsert tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const query = `INSERT INTO scores (id, student_id, subject_name, subject_weight, quiz_score, periodic_score, final_score, weighted_avg, semester, academic_year, entered_by, entered_at, updated_by, updated_at)
        VALUES (:id, :student_id, :subject_name, :subject_weight, :quiz_score, :periodic_score, :final_score, :weighted_avg, :semester, :academic_year, :entered_by, :entered_at, :updated_by, :updated_at)
        ON CONFLICT (student_id, subject_name, semester, academic_year) DO UPDATE SET
            quiz_score = EXCLUDED.quiz_score,
            periodic_score = EXCLUDED.periodic_score,
            final_score = EXCLUDED.final_score,
            weighted_avg = EXCLUDED.weighted_avg,
            updated_by = EXCLUDED.entered_by,
            updated_at = EXCLUDED.entered_at`
	for i := range entries {
		if entries[i].ID == "" {
			entries[i].ID = uuid.NewString()
		}
		if _, err = tx.NamedExecContext(ctx, query, entries[i]); err != nil {
			return fmt.Errorf("bulk upsert score: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit bulk upsert tx: %w", err)
	}
	return nil
}
