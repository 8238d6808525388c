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

func newAccountMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func accountRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "username", "password_hash", "full_name", "role", "is_super_admin", "is_verified", "is_active", "verified_by", "verified_at", "created_at", "updated_at"}).
		AddRow("acc-1", "teacher01", "$2a$hash", "Teacher One", "teacher", false, true, true, nil, nil, time.Now(), time.Now())
}

func TestAccountRepositoryFindByUsername(t *testing.T) {
	db, mock, cleanup := newAccountMock(t)
	defer cleanup()
	repo := NewAccountRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, username, password_hash, full_name, role, is_super_admin, is_verified, is_active, verified_by, verified_at, created_at, updated_at FROM accounts WHERE username = $1 LIMIT 1")).
		WithArgs("teacher01").
		WillReturnRows(accountRows())

	account, err := repo.FindByUsername(context.Background(), "teacher01")
	require.NoError(t, err)
	assert.Equal(t, "acc-1", account.ID)
	assert.Equal(t, models.RoleTeacher, account.Role)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepositoryFindByUsernameMissing(t *testing.T) {
	db, mock, cleanup := newAccountMock(t)
	defer cleanup()
	repo := NewAccountRepository(db)

	mock.ExpectQuery("SELECT .+ FROM accounts WHERE username").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByUsername(context.Background(), "ghost")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestAccountRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newAccountMock(t)
	defer cleanup()
	repo := NewAccountRepository(db)

	mock.ExpectExec("INSERT INTO accounts").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	account := &models.Account{Username: "new01", PasswordHash: "hash", FullName: "New", Role: models.RoleStudent, IsActive: true, IsVerified: true}
	require.NoError(t, repo.Create(context.Background(), account))
	assert.NotEmpty(t, account.ID)
	assert.False(t, account.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepositoryListWithFilters(t *testing.T) {
	db, mock, cleanup := newAccountMock(t)
	defer cleanup()
	repo := NewAccountRepository(db)

	role := models.RoleTeacher
	mock.ExpectQuery("SELECT .+ FROM accounts WHERE 1=1 AND role = \\$1").
		WithArgs(role).
		WillReturnRows(accountRows())
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM accounts WHERE 1=1 AND role = \$1`).
		WithArgs(role).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	accounts, total, err := repo.List(context.Background(), models.AccountFilter{Role: &role})
	require.NoError(t, err)
	assert.Len(t, accounts, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepositoryVerify(t *testing.T) {
	db, mock, cleanup := newAccountMock(t)
	defer cleanup()
	repo := NewAccountRepository(db)

	now := time.Now().UTC()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE accounts SET is_verified = TRUE, verified_by = $2, verified_at = $3, updated_at = $3 WHERE id = $1")).
		WithArgs("acc-1", "super-1", now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Verify(context.Background(), "acc-1", "super-1", now))
	assert.NoError(t, mock.ExpectationsWereMet())
}
