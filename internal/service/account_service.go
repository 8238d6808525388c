package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/minhtran-dev/gradebook-api/internal/models"
	appErrors "github.com/minhtran-dev/gradebook-api/pkg/errors"
)

const (
	studentCodePrefix = "HS"
	teacherCodePrefix = "GV"
	codeMaxAttempts   = 10
)

type accountRepo interface {
	FindByUsername(ctx context.Context, username string) (*models.Account, error)
	FindByID(ctx context.Context, id string) (*models.Account, error)
	List(ctx context.Context, filter models.AccountFilter) ([]models.Account, int, error)
	Create(ctx context.Context, account *models.Account) error
	SetActive(ctx context.Context, id string, active bool) error
	Verify(ctx context.Context, id, verifiedBy string, verifiedAt time.Time) error
	Delete(ctx context.Context, id string) error
	RevokeAccountRefreshTokens(ctx context.Context, accountID string) error
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type studentProfileRepo interface {
	ExistsByCode(ctx context.Context, code string) (bool, error)
	Create(ctx context.Context, profile *models.StudentProfile) error
}

type teacherProfileRepo interface {
	ExistsByCode(ctx context.Context, code string) (bool, error)
	Create(ctx context.Context, profile *models.TeacherProfile) error
}

type currentYearRepo interface {
	FindCurrent(ctx context.Context) (*models.AcademicYear, error)
}

// CreateAccountRequest carries the payload for account registration.
type CreateAccountRequest struct {
	Username    string      `json:"username" validate:"required,min=3,max=50"`
	Password    string      `json:"password" validate:"required,min=6"`
	FullName    string      `json:"full_name" validate:"required"`
	Role        models.Role `json:"role" validate:"required,oneof=student teacher admin"`
	ClassName   string      `json:"class_name" validate:"required_if=Role student"`
	DateOfBirth *time.Time  `json:"date_of_birth"`
}

// AccountService implements account administration flows.
type AccountService struct {
	accounts  accountRepo
	students  studentProfileRepo
	teachers  teacherProfileRepo
	years     currentYearRepo
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAccountService constructs an AccountService.
func NewAccountService(accounts accountRepo, students studentProfileRepo, teachers teacherProfileRepo, years currentYearRepo, validate *validator.Validate, logger *zap.Logger) *AccountService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AccountService{
		accounts:  accounts,
		students:  students,
		teachers:  teachers,
		years:     years,
		validator: validate,
		logger:    logger,
	}
}

// List returns account summaries for the provided filter.
func (s *AccountService) List(ctx context.Context, filter models.AccountFilter) ([]models.AccountSummary, *models.Pagination, error) {
	accounts, total, err := s.accounts.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list accounts")
	}

	summaries := make([]models.AccountSummary, 0, len(accounts))
	for i := range accounts {
		summaries = append(summaries, accounts[i].Summary())
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	return summaries, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// Create registers a new account. Student and teacher accounts are active
// and verified immediately and get a generated profile; admin accounts start
// unverified and must be verified by an existing admin before first login.
func (s *AccountService) Create(ctx context.Context, req CreateAccountRequest) (*models.AccountSummary, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid account payload")
	}

	if _, err := s.accounts.FindByUsername(ctx, req.Username); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "username already exists")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check username")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	account := &models.Account{
		Username:     req.Username,
		PasswordHash: string(hash),
		FullName:     req.FullName,
		Role:         req.Role,
		IsActive:     true,
		IsVerified:   req.Role != models.RoleAdmin,
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create account")
	}

	switch req.Role {
	case models.RoleStudent:
		if err := s.createStudentProfile(ctx, account.ID, req); err != nil {
			return nil, err
		}
	case models.RoleTeacher:
		if err := s.createTeacherProfile(ctx, account.ID); err != nil {
			return nil, err
		}
	}

	s.audit(ctx, models.AuditActionAccountCreate, account.ID)

	summary := account.Summary()
	return &summary, nil
}

// ToggleLock flips the active flag on the target account. Super admin
// accounts cannot be locked, and only a super admin may lock another admin.
func (s *AccountService) ToggleLock(ctx context.Context, requester *models.Account, targetID string) (*models.AccountSummary, error) {
	target, err := s.loadTarget(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if err := authorizeAccountChange(requester, target); err != nil {
		return nil, err
	}

	nowActive := !target.IsActive
	if err := s.accounts.SetActive(ctx, target.ID, nowActive); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to toggle lock")
	}
	if !nowActive {
		// Locked accounts lose their sessions immediately.
		if err := s.accounts.RevokeAccountRefreshTokens(ctx, target.ID); err != nil {
			s.logger.Warn("failed to revoke tokens of locked account", zap.String("account_id", target.ID), zap.Error(err))
		}
	}
	target.IsActive = nowActive

	s.audit(ctx, models.AuditActionAccountLock, target.ID)

	summary := target.Summary()
	return &summary, nil
}

// Delete removes the account. The student or teacher profile and any score
// entries are retained. Super admin accounts cannot be deleted, and only a
// super admin may delete another admin.
func (s *AccountService) Delete(ctx context.Context, requester *models.Account, targetID string) error {
	target, err := s.loadTarget(ctx, targetID)
	if err != nil {
		return err
	}
	if err := authorizeAccountChange(requester, target); err != nil {
		return err
	}

	if err := s.accounts.RevokeAccountRefreshTokens(ctx, target.ID); err != nil {
		s.logger.Warn("failed to revoke tokens of deleted account", zap.String("account_id", target.ID), zap.Error(err))
	}
	if err := s.accounts.Delete(ctx, target.ID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete account")
	}

	s.audit(ctx, models.AuditActionAccountDelete, target.ID)
	return nil
}

// Verify marks a pending admin account as verified.
func (s *AccountService) Verify(ctx context.Context, requester *models.Account, targetID string) (*models.AccountSummary, error) {
	target, err := s.loadTarget(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if target.IsVerified {
		return nil, appErrors.Clone(appErrors.ErrConflict, "account is already verified")
	}
	if target.Role == models.RoleAdmin && !requester.IsSuperAdmin {
		return nil, appErrors.ErrInsufficientRole
	}

	now := time.Now().UTC()
	if err := s.accounts.Verify(ctx, target.ID, requester.ID, now); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to verify account")
	}
	target.IsVerified = true
	target.VerifiedBy = &requester.ID
	target.VerifiedAt = &now

	s.audit(ctx, models.AuditActionAccountVerify, target.ID)

	summary := target.Summary()
	return &summary, nil
}

func (s *AccountService) loadTarget(ctx context.Context, id string) (*models.Account, error) {
	target, err := s.accounts.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "account not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load account")
	}
	return target, nil
}

// authorizeAccountChange enforces the protection rules for destructive
// account operations: super admins are untouchable, admin targets require a
// super admin requester.
func authorizeAccountChange(requester, target *models.Account) error {
	if target.IsSuperAdmin {
		return appErrors.ErrProtectedAccount
	}
	if target.Role == models.RoleAdmin && !requester.IsSuperAdmin {
		return appErrors.ErrInsufficientRole
	}
	return nil
}

func (s *AccountService) createStudentProfile(ctx context.Context, accountID string, req CreateAccountRequest) error {
	year := ""
	current, err := s.years.FindCurrent(ctx)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load current academic year")
		}
	} else {
		year = current.Name
	}

	code, err := s.generateCode(ctx, studentCodePrefix, s.students.ExistsByCode)
	if err != nil {
		return err
	}

	profile := &models.StudentProfile{
		AccountID:    accountID,
		StudentCode:  code,
		ClassName:    req.ClassName,
		Grade:        gradeFromClassName(req.ClassName),
		DateOfBirth:  req.DateOfBirth,
		AcademicYear: year,
	}
	if err := s.students.Create(ctx, profile); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student profile")
	}
	return nil
}

func (s *AccountService) createTeacherProfile(ctx context.Context, accountID string) error {
	code, err := s.generateCode(ctx, teacherCodePrefix, s.teachers.ExistsByCode)
	if err != nil {
		return err
	}
	profile := &models.TeacherProfile{AccountID: accountID, TeacherCode: code}
	if err := s.teachers.Create(ctx, profile); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create teacher profile")
	}
	return nil
}

// generateCode produces a prefixed 6-digit code, retrying on collision.
func (s *AccountService) generateCode(ctx context.Context, prefix string, exists func(context.Context, string) (bool, error)) (string, error) {
	for attempt := 0; attempt < codeMaxAttempts; attempt++ {
		code := fmt.Sprintf("%s%06d", prefix, rand.Intn(1000000))
		taken, err := exists(ctx, code)
		if err != nil {
			return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check code")
		}
		if !taken {
			return code, nil
		}
	}
	return "", appErrors.Clone(appErrors.ErrInternal, "could not generate a unique code")
}

// gradeFromClassName extracts the leading digits of a class name, so "10A1"
// yields "10". Names without a leading digit yield an empty grade.
func gradeFromClassName(name string) string {
	i := 0
	for i < len(name) && name[i] >= '0' && name[i] <= '9' {
		i++
	}
	return name[:i]
}

func (s *AccountService) audit(ctx context.Context, action, accountID string) {
	id := accountID
	entry := &models.AuditLog{
		AccountID:  &id,
		Action:     action,
		Resource:   "accounts",
		ResourceID: &id,
	}
	if err := s.accounts.CreateAuditLog(ctx, entry); err != nil {
		s.logger.Warn("failed to write audit log", zap.String("action", action), zap.Error(err))
	}
}
