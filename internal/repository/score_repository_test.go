package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minhtran-dev/gradebook-api/internal/models"
)

func newScoreMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func scoreRows() *sqlmock.Rows {
	avg := 8.17
	return sqlmock.NewRows([]string{"id", "student_id", "subject_name", "subject_weight", "quiz_score", "periodic_score", "final_score", "weighted_avg", "semester", "academic_year", "entered_by", "entered_at", "updated_by", "updated_at"}).
		AddRow("score-1", "st-1", "Math", 2.0, 8.0, 7.0, 9.0, avg, 1, "2025-2026", "teacher-1", time.Now(), nil, nil)
}

func TestScoreRepositoryFindByKey(t *testing.T) {
	db, mock, cleanup := newScoreMock(t)
	defer cleanup()
	repo := NewScoreRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, student_id, subject_name, subject_weight, quiz_score, periodic_score, final_score, weighted_avg, semester, academic_year, entered_by, entered_at, updated_by, updated_at FROM scores WHERE student_id = $1 AND subject_name = $2 AND semester = $3 AND academic_year = $4 LIMIT 1")).
		WithArgs("st-1", "Math", 1, "2025-2026").
		WillReturnRows(scoreRows())

	entry, err := repo.FindByKey(context.Background(), models.ScoreKey{StudentID: "st-1", SubjectName: "Math", Semester: 1, AcademicYear: "2025-2026"})
	require.NoError(t, err)
	assert.Equal(t, "score-1", entry.ID)
	require.NotNil(t, entry.WeightedAvg)
	assert.InDelta(t, 8.17, *entry.WeightedAvg, 0.001)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScoreRepositoryFindByKeyMissing(t *testing.T) {
	db, mock, cleanup := newScoreMock(t)
	defer cleanup()
	repo := NewScoreRepository(db)

	mock.ExpectQuery("SELECT .+ FROM scores WHERE student_id").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByKey(context.Background(), models.ScoreKey{StudentID: "ghost", SubjectName: "Math", Semester: 1, AcademicYear: "2025-2026"})
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestScoreRepositoryListByScopeJoinsClassFilter(t *testing.T) {
	db, mock, cleanup := newScoreMock(t)
	defer cleanup()
	repo := NewScoreRepository(db)

	mock.ExpectQuery("JOIN students st ON st.id = sc.student_id").
		WithArgs("Math", 1, "2025-2026", "10A1").
		WillReturnRows(scoreRows())

	entries, err := repo.ListByScope(context.Background(), models.ScoreScope{ClassName: "10A1", SubjectName: "Math", Semester: 1, AcademicYear: "2025-2026"})
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScoreRepositoryBulkUpsertCommitsTransaction(t *testing.T) {
	db, mock, cleanup := newScoreMock(t)
	defer cleanup()
	repo := NewScoreRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO scores").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO scores").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := repo.BulkUpsert(context.Background(), []models.ScoreEntry{
		{StudentID: "st-1", SubjectName: "Math", SubjectWeight: 2, Semester: 1, AcademicYear: "2025-2026", EnteredBy: "t", EnteredAt: time.Now()},
		{StudentID: "st-2", SubjectName: "Math", SubjectWeight: 2, Semester: 1, AcademicYear: "2025-2026", EnteredBy: "t", EnteredAt: time.Now()},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScoreRepositoryBulkUpsertRollsBackOnFailure(t *testing.T) {
	db, mock, cleanup := newScoreMock(t)
	defer cleanup()
	repo := NewScoreRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO scores").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO scores").WillReturnError(sql.ErrConnDone)
	mock.ExpectRollback()

	err := repo.BulkUpsert(context.Background(), []models.ScoreEntry{
		{StudentID: "st-1", SubjectName: "Math", SubjectWeight: 2, Semester: 1, AcademicYear: "2025-2026", EnteredBy: "t", EnteredAt: time.Now()},
		{StudentID: "st-2", SubjectName: "Math", SubjectWeight: 2, Semester: 1, AcademicYear: "2025-2026", EnteredBy: "t", EnteredAt: time.Now()},
	})
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
