package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minhtran-dev/gradebook-api/internal/models"
	appErrors "github.com/minhtran-dev/gradebook-api/pkg/errors"
)

type mockAccountRepo struct {
	accounts map[string]models.Account
	active   map[string]bool
	deleted  []string
	verified []string
	revoked  []string
	audits   []models.AuditLog
}

func newMockAccountRepo() *mockAccountRepo {
	return &mockAccountRepo{
		accounts: make(map[string]models.Account),
		active:   make(map[string]bool),
	}
}

func (m *mockAccountRepo) FindByUsername(ctx context.Context, username string) (*models.Account, error) {
	for _, a := range m.accounts {
		if a.Username == username {
			copy := a
			return &copy, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockAccountRepo) FindByID(ctx context.Context, id string) (*models.Account, error) {
	if a, ok := m.accounts[id]; ok {
		copy := a
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAccountRepo) List(ctx context.Context, filter models.AccountFilter) ([]models.Account, int, error) {
	var out []models.Account
	for _, a := range m.accounts {
		out = append(out, a)
	}
	return out, len(out), nil
}

func (m *mockAccountRepo) Create(ctx context.Context, account *models.Account) error {
	if account.ID == "" {
		account.ID = "generated"
	}
	m.accounts[account.ID] = *account
	return nil
}

func (m *mockAccountRepo) SetActive(ctx context.Context, id string, active bool) error {
	a := m.accounts[id]
	a.IsActive = active
	m.accounts[id] = a
	m.active[id] = active
	return nil
}

func (m *mockAccountRepo) Verify(ctx context.Context, id, verifiedBy string, verifiedAt time.Time) error {
	a := m.accounts[id]
	a.IsVerified = true
	m.accounts[id] = a
	m.verified = append(m.verified, id)
	return nil
}

func (m *mockAccountRepo) Delete(ctx context.Context, id string) error {
	delete(m.accounts, id)
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *mockAccountRepo) RevokeAccountRefreshTokens(ctx context.Context, accountID string) error {
	m.revoked = append(m.revoked, accountID)
	return nil
}

func (m *mockAccountRepo) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.audits = append(m.audits, *log)
	return nil
}

type mockStudentProfiles struct {
	created []models.StudentProfile
	taken   map[string]bool
}

func (m *mockStudentProfiles) ExistsByCode(ctx context.Context, code string) (bool, error) {
	return m.taken[code], nil
}

func (m *mockStudentProfiles) Create(ctx context.Context, profile *models.StudentProfile) error {
	m.created = append(m.created, *profile)
	return nil
}

type mockTeacherProfiles struct {
	created []models.TeacherProfile
}

func (m *mockTeacherProfiles) ExistsByCode(ctx context.Context, code string) (bool, error) {
	return false, nil
}

func (m *mockTeacherProfiles) Create(ctx context.Context, profile *models.TeacherProfile) error {
	m.created = append(m.created, *profile)
	return nil
}

type mockCurrentYear struct {
	year *models.AcademicYear
}

func (m *mockCurrentYear) FindCurrent(ctx context.Context) (*models.AcademicYear, error) {
	if m.year == nil {
		return nil, sql.ErrNoRows
	}
	return m.year, nil
}

func newAccountFixture() (*mockAccountRepo, *mockStudentProfiles, *mockTeacherProfiles, *AccountService) {
	accounts := newMockAccountRepo()
	students := &mockStudentProfiles{taken: map[string]bool{}}
	teachers := &mockTeacherProfiles{}
	years := &mockCurrentYear{year: &models.AcademicYear{Name: "2025-2026", IsCurrent: true}}
	svc := NewAccountService(accounts, students, teachers, years, nil, nil)
	return accounts, students, teachers, svc
}

func TestAccountServiceCreateStudent(t *testing.T) {
	accounts, students, _, svc := newAccountFixture()

	summary, err := svc.Create(context.Background(), CreateAccountRequest{
		Username:  "student01",
		Password:  "secret123",
		FullName:  "Student One",
		Role:      models.RoleStudent,
		ClassName: "10A1",
	})
	require.NoError(t, err)
	assert.True(t, summary.IsVerified)
	assert.True(t, summary.IsActive)

	require.Len(t, students.created, 1)
	profile := students.created[0]
	assert.Equal(t, "10A1", profile.ClassName)
	assert.Equal(t, "10", profile.Grade)
	assert.Equal(t, "2025-2026", profile.AcademicYear)
	assert.Regexp(t, `^HS\d{6}$`, profile.StudentCode)

	stored := accounts.accounts[summary.ID]
	assert.NotEqual(t, "secret123", stored.PasswordHash)
}

func TestAccountServiceCreateTeacher(t *testing.T) {
	_, _, teachers, svc := newAccountFixture()

	summary, err := svc.Create(context.Background(), CreateAccountRequest{
		Username: "teacher01",
		Password: "secret123",
		FullName: "Teacher One",
		Role:     models.RoleTeacher,
	})
	require.NoError(t, err)
	assert.True(t, summary.IsVerified)
	require.Len(t, teachers.created, 1)
	assert.Regexp(t, `^GV\d{6}$`, teachers.created[0].TeacherCode)
}

func TestAccountServiceCreateAdminStartsUnverified(t *testing.T) {
	_, _, _, svc := newAccountFixture()

	summary, err := svc.Create(context.Background(), CreateAccountRequest{
		Username: "admin02",
		Password: "secret123",
		FullName: "Admin Two",
		Role:     models.RoleAdmin,
	})
	require.NoError(t, err)
	assert.False(t, summary.IsVerified)
	assert.True(t, summary.IsActive)
}

func TestAccountServiceCreateDuplicateUsername(t *testing.T) {
	accounts, _, _, svc := newAccountFixture()
	accounts.accounts["acc-1"] = models.Account{ID: "acc-1", Username: "taken"}

	_, err := svc.Create(context.Background(), CreateAccountRequest{
		Username: "taken",
		Password: "secret123",
		FullName: "Dup",
		Role:     models.RoleTeacher,
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
}

func TestAccountServiceToggleLock(t *testing.T) {
	accounts, _, _, svc := newAccountFixture()
	accounts.accounts["acc-1"] = models.Account{ID: "acc-1", Role: models.RoleStudent, IsActive: true}
	requester := &models.Account{ID: "admin-1", Role: models.RoleAdmin}

	summary, err := svc.ToggleLock(context.Background(), requester, "acc-1")
	require.NoError(t, err)
	assert.False(t, summary.IsActive)
	// Locking revokes outstanding sessions.
	assert.Contains(t, accounts.revoked, "acc-1")

	summary, err = svc.ToggleLock(context.Background(), requester, "acc-1")
	require.NoError(t, err)
	assert.True(t, summary.IsActive)
}

func TestAccountServiceProtectionRules(t *testing.T) {
	accounts, _, _, svc := newAccountFixture()
	accounts.accounts["super-1"] = models.Account{ID: "super-1", Role: models.RoleAdmin, IsSuperAdmin: true, IsActive: true}
	accounts.accounts["admin-2"] = models.Account{ID: "admin-2", Role: models.RoleAdmin, IsActive: true}

	admin := &models.Account{ID: "admin-1", Role: models.RoleAdmin}
	super := &models.Account{ID: "super-1", Role: models.RoleAdmin, IsSuperAdmin: true}

	t.Run("super admin target is protected from everyone", func(t *testing.T) {
		_, err := svc.ToggleLock(context.Background(), super, "super-1")
		assert.ErrorIs(t, err, appErrors.ErrProtectedAccount)

		err = svc.Delete(context.Background(), admin, "super-1")
		assert.ErrorIs(t, err, appErrors.ErrProtectedAccount)
	})

	t.Run("admin target requires super admin requester", func(t *testing.T) {
		_, err := svc.ToggleLock(context.Background(), admin, "admin-2")
		assert.ErrorIs(t, err, appErrors.ErrInsufficientRole)

		err = svc.Delete(context.Background(), admin, "admin-2")
		assert.ErrorIs(t, err, appErrors.ErrInsufficientRole)

		_, err = svc.ToggleLock(context.Background(), super, "admin-2")
		assert.NoError(t, err)
	})

	t.Run("missing target", func(t *testing.T) {
		_, err := svc.ToggleLock(context.Background(), super, "ghost")
		appErr := appErrors.FromError(err)
		assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
	})
}

func TestAccountServiceDeleteRetainsProfiles(t *testing.T) {
	accounts, students, _, svc := newAccountFixture()
	accounts.accounts["acc-1"] = models.Account{ID: "acc-1", Role: models.RoleStudent, IsActive: true}
	students.created = append(students.created, models.StudentProfile{ID: "st-1", AccountID: "acc-1"})

	requester := &models.Account{ID: "admin-1", Role: models.RoleAdmin}
	require.NoError(t, svc.Delete(context.Background(), requester, "acc-1"))

	assert.Contains(t, accounts.deleted, "acc-1")
	// The profile list is untouched: only the account row goes away.
	assert.Len(t, students.created, 1)
}

func TestAccountServiceVerify(t *testing.T) {
	accounts, _, _, svc := newAccountFixture()
	accounts.accounts["admin-2"] = models.Account{ID: "admin-2", Role: models.RoleAdmin}

	admin := &models.Account{ID: "admin-1", Role: models.RoleAdmin}
	super := &models.Account{ID: "super-1", Role: models.RoleAdmin, IsSuperAdmin: true}

	_, err := svc.Verify(context.Background(), admin, "admin-2")
	assert.ErrorIs(t, err, appErrors.ErrInsufficientRole)

	summary, err := svc.Verify(context.Background(), super, "admin-2")
	require.NoError(t, err)
	assert.True(t, summary.IsVerified)

	_, err = svc.Verify(context.Background(), super, "admin-2")
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
}

func TestGradeFromClassName(t *testing.T) {
	assert.Equal(t, "10", gradeFromClassName("10A1"))
	assert.Equal(t, "12", gradeFromClassName("12C3"))
	assert.Equal(t, "", gradeFromClassName("A1"))
}
