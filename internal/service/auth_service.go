package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/minhtran-dev/gradebook-api/internal/models"
	appErrors "github.com/minhtran-dev/gradebook-api/pkg/errors"
)

type authAccountRepo interface {
	FindByUsername(ctx context.Context, username string) (*models.Account, error)
	FindByID(ctx context.Context, id string) (*models.Account, error)
	CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error
	FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error)
	RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error
	RevokeAccountRefreshTokens(ctx context.Context, accountID string) error
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// AuthService implements login, token issuance and rotation.
type AuthService struct {
	accounts          authAccountRepo
	jwtSecret         []byte
	jwtExpiration     time.Duration
	refreshExpiration time.Duration
	issuer            string
	validator         *validator.Validate
	logger            *zap.Logger
}

// NewAuthService constructs an AuthService.
func NewAuthService(accounts authAccountRepo, secret string, expiration, refreshExpiration time.Duration, issuer string, validate *validator.Validate, logger *zap.Logger) *AuthService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		accounts:          accounts,
		jwtSecret:         []byte(secret),
		jwtExpiration:     expiration,
		refreshExpiration: refreshExpiration,
		issuer:            issuer,
		validator:         validate,
		logger:            logger,
	}
}

// Login authenticates credentials and issues an access plus refresh token
// pair. Checks run in a fixed order: unknown username, then locked, then
// unverified, and only then the password itself.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login payload")
	}

	account, err := s.accounts.FindByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrAccountNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load account")
	}

	if !account.IsActive {
		return nil, appErrors.ErrAccountLocked
	}
	if !account.IsVerified {
		return nil, appErrors.ErrAccountUnverified
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(req.Password)); err != nil {
		return nil, appErrors.ErrInvalidCredentials
	}

	now := time.Now().UTC()
	accessToken, err := s.signAccessToken(account, now)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign token")
	}

	refreshToken, err := s.issueRefreshToken(ctx, account.ID, req.IP, req.UserAgent, now)
	if err != nil {
		return nil, err
	}

	s.audit(ctx, models.AuditActionLogin, account.ID, req.IP, req.UserAgent)

	return &models.LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(s.jwtExpiration.Seconds()),
		User:         account.Summary(),
		IssuedAt:     now,
	}, nil
}

// Refresh rotates the refresh token: the presented token is revoked and a
// fresh pair is issued. Revoked or expired tokens are rejected.
func (s *AuthService) Refresh(ctx context.Context, req models.RefreshTokenRequest) (*models.RefreshTokenResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid refresh payload")
	}

	stored, err := s.accounts.FindRefreshToken(ctx, req.RefreshToken)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrUnauthorized
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load refresh token")
	}

	now := time.Now().UTC()
	if stored.Revoked || now.After(stored.ExpiresAt) {
		return nil, appErrors.ErrUnauthorized
	}

	account, err := s.accounts.FindByID(ctx, stored.AccountID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrUnauthorized
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load account")
	}
	if !account.IsActive {
		return nil, appErrors.ErrAccountLocked
	}

	if err := s.accounts.RevokeRefreshToken(ctx, stored.ID, now); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to revoke refresh token")
	}

	accessToken, err := s.signAccessToken(account, now)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign token")
	}

	refreshToken, err := s.issueRefreshToken(ctx, account.ID, req.IP, req.UserAgent, now)
	if err != nil {
		return nil, err
	}

	return &models.RefreshTokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(s.jwtExpiration.Seconds()),
		IssuedAt:     now,
	}, nil
}

// Logout revokes every outstanding refresh token for the account.
func (s *AuthService) Logout(ctx context.Context, accountID, ip, userAgent string) error {
	if err := s.accounts.RevokeAccountRefreshTokens(ctx, accountID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to revoke refresh tokens")
	}
	s.audit(ctx, models.AuditActionLogout, accountID, ip, userAgent)
	return nil
}

// ValidateToken parses and verifies an access token.
func (s *AuthService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	claims := &models.JWTClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return nil, appErrors.ErrUnauthorized
	}
	return claims, nil
}

func (s *AuthService) signAccessToken(account *models.Account, now time.Time) (string, error) {
	claims := models.JWTClaims{
		AccountID:    account.ID,
		Role:         account.Role,
		Username:     account.Username,
		FullName:     account.FullName,
		IsSuperAdmin: account.IsSuperAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   account.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.jwtExpiration)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

func (s *AuthService) issueRefreshToken(ctx context.Context, accountID, ip, userAgent string, now time.Time) (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate refresh token")
	}
	tokenString := hex.EncodeToString(raw)

	token := &models.RefreshToken{
		AccountID: accountID,
		Token:     tokenString,
		ExpiresAt: now.Add(s.refreshExpiration),
		CreatedAt: now,
		IPAddress: ip,
		UserAgent: userAgent,
	}
	if err := s.accounts.CreateRefreshToken(ctx, token); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist refresh token")
	}
	return tokenString, nil
}

func (s *AuthService) audit(ctx context.Context, action, accountID, ip, userAgent string) {
	entry := &models.AuditLog{
		AccountID: &accountID,
		Action:    action,
		Resource:  "auth",
		IPAddress: ip,
		UserAgent: userAgent,
	}
	if err := s.accounts.CreateAuditLog(ctx, entry); err != nil {
		s.logger.Warn("failed to write audit log", zap.String("action", action), zap.Error(err))
	}
}
