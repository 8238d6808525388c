package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minhtran-dev/gradebook-api/internal/models"
)

func newYearMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestAcademicYearRepositorySetCurrentResetsOthersFirst(t *testing.T) {
	db, mock, cleanup := newYearMock(t)
	defer cleanup()
	repo := NewAcademicYearRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE academic_years SET is_current = FALSE WHERE is_current = TRUE AND id <> $1")).
		WithArgs("year-2").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE academic_years SET is_current = TRUE WHERE id = $1")).
		WithArgs("year-2").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.SetCurrent(context.Background(), "year-2"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAcademicYearRepositorySetCurrentRollsBackOnFailure(t *testing.T) {
	db, mock, cleanup := newYearMock(t)
	defer cleanup()
	repo := NewAcademicYearRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE academic_years SET is_current = FALSE").
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	require.Error(t, repo.SetCurrent(context.Background(), "year-2"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAcademicYearRepositoryFindCurrent(t *testing.T) {
	db, mock, cleanup := newYearMock(t)
	defer cleanup()
	repo := NewAcademicYearRepository(db)

	rows := sqlmock.NewRows([]string{"id", "name", "start_date", "end_date", "is_current", "created_at"}).
		AddRow("year-1", "2025-2026", time.Now(), time.Now(), true, time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, start_date, end_date, is_current, created_at FROM academic_years WHERE is_current = TRUE LIMIT 1")).
		WillReturnRows(rows)

	year, err := repo.FindCurrent(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2025-2026", year.Name)
	assert.True(t, year.IsCurrent)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAcademicYearRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newYearMock(t)
	defer cleanup()
	repo := NewAcademicYearRepository(db)

	mock.ExpectExec("INSERT INTO academic_years").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	year := &models.AcademicYear{Name: "2026-2027", StartDate: time.Now(), EndDate: time.Now().AddDate(1, 0, 0)}
	require.NoError(t, repo.Create(context.Background(), year))
	assert.NotEmpty(t, year.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
