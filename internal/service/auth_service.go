// Package service implements the authentication use cases: registration of a
// business with its owner, login, access-token refresh, logout and email
// verification.
//
// Refresh tokens are deliberately not rotated on use: the persisted session
// record stays valid under its original jti until its own expiry or an
// explicit logout. Revoking a session does not invalidate access tokens
// already issued under it; those stay usable until their natural expiry,
// a known tradeoff of stateless access tokens bounded by the access TTL.
package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/kalamna/auth-api/internal/models"
	"github.com/kalamna/auth-api/internal/repository"
	"github.com/kalamna/auth-api/internal/security"
	"github.com/kalamna/auth-api/internal/token"
	appErrors "github.com/kalamna/auth-api/pkg/errors"
)

type authRepository interface {
	FindBusinessByEmail(ctx context.Context, email string) (*models.Business, error)
	FindBusinessByDomain(ctx context.Context, domainURL string) (*models.Business, error)
	FindEmployeeByEmail(ctx context.Context, email string) (*models.Employee, error)
	FindEmployeeByID(ctx context.Context, id string) (*models.Employee, error)
	CreateBusinessAndOwner(ctx context.Context, business *models.Business, owner *models.Employee) error
	MarkEmployeeVerified(ctx context.Context, id string, verifiedAt time.Time) error
	CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error
	FindRefreshToken(ctx context.Context, jti string) (*models.RefreshToken, error)
	RevokeRefreshToken(ctx context.Context, jti string, revokedAt time.Time) error
}

// VerificationSender delivers the activation email after registration.
type VerificationSender interface {
	SendVerification(employee *models.Employee, business *models.Business, verifyToken string) error
}

// AuthService orchestrates the session lifecycle over the credential store,
// the password hasher and the token codec.
type AuthService struct {
	repo      authRepository
	codec     *token.Codec
	hasher    *security.PasswordHasher
	mailer    VerificationSender
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAuthService constructs an AuthService instance. mailer and metrics are
// optional collaborators.
func NewAuthService(repo authRepository, codec *token.Codec, hasher *security.PasswordHasher, mailer VerificationSender, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &AuthService{
		repo:      repo,
		codec:     codec,
		hasher:    hasher,
		mailer:    mailer,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
	}
}

// Register creates a business and its owner employee in a single atomic
// operation. The application-level duplicate checks are advisory fast-paths;
// the store's unique constraints decide races. The owner is created inactive
// and must complete email verification before login succeeds.
func (s *AuthService) Register(ctx context.Context, req models.RegisterRequest) (*models.RegisterResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid registration payload")
	}

	var industry *models.Industry
	if req.Business.Industry != "" {
		value := models.Industry(req.Business.Industry)
		if !value.Valid() {
			return nil, appErrors.Clone(appErrors.ErrValidation, "unknown industry")
		}
		industry = &value
	}

	if err := ValidatePasswordStrength(req.Owner.Password); err != nil {
		return nil, err
	}

	if _, err := s.repo.FindBusinessByEmail(ctx, req.Business.Email); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "business email already exists")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check business email")
	}

	if req.Business.DomainURL != "" {
		if _, err := s.repo.FindBusinessByDomain(ctx, req.Business.DomainURL); err == nil {
			return nil, appErrors.Clone(appErrors.ErrConflict, "business domain already exists")
		} else if !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check business domain")
		}
	}

	if _, err := s.repo.FindEmployeeByEmail(ctx, req.Owner.Email); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "employee email already exists")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check employee email")
	}

	passwordHash, err := s.hasher.Hash(ctx, req.Owner.Password)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	business := &models.Business{
		Name:        req.Business.Name,
		Email:       req.Business.Email,
		Industry:    industry,
		Description: req.Business.Description,
	}
	if req.Business.DomainURL != "" {
		domainURL := req.Business.DomainURL
		business.DomainURL = &domainURL
	}

	owner := &models.Employee{
		FullName:     req.Owner.FullName,
		Email:        req.Owner.Email,
		PasswordHash: passwordHash,
		Role:         models.RoleOwner,
		IsActive:     false,
		IsVerified:   false,
	}

	if err := s.repo.CreateBusinessAndOwner(ctx, business, owner); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicateBusinessEmail):
			return nil, appErrors.Clone(appErrors.ErrConflict, "business email already exists")
		case errors.Is(err, repository.ErrDuplicateBusinessDomain):
			return nil, appErrors.Clone(appErrors.ErrConflict, "business domain already exists")
		case errors.Is(err, repository.ErrDuplicateEmployeeEmail):
			return nil, appErrors.Clone(appErrors.ErrConflict, "employee email already exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create business and owner")
	}

	s.metrics.IncRegistration()
	s.sendVerificationEmail(owner, business)

	return &models.RegisterResponse{
		BusinessID: business.ID,
		EmployeeID: owner.ID,
		Message:    "Account created successfully. Please check your email to verify your account.",
	}, nil
}

// sendVerificationEmail enqueues the activation email. Delivery is best
// effort: a failure is logged and the registration still succeeds.
func (s *AuthService) sendVerificationEmail(owner *models.Employee, business *models.Business) {
	if s.mailer == nil {
		return
	}

	verifyToken, err := s.codec.IssueVerification(owner.ID)
	if err != nil {
		s.logger.Warn("failed to issue verification token", zap.Error(err))
		return
	}
	if err := s.mailer.SendVerification(owner, business, verifyToken); err != nil {
		s.logger.Warn("failed to enqueue verification email", zap.Error(err))
	}
}

// Login authenticates an employee and opens a new session. Unknown email and
// wrong password produce the identical error so callers cannot enumerate
// accounts.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login payload")
	}

	employee, err := s.repo.FindEmployeeByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.metrics.IncLogin("invalid_credentials")
			return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid email or password")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch employee")
	}

	if !s.hasher.Verify(req.Password, employee.PasswordHash) {
		s.metrics.IncLogin("invalid_credentials")
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid email or password")
	}

	if !employee.IsActive || !employee.IsVerified {
		s.metrics.IncLogin("account_disabled")
		return nil, appErrors.Clone(appErrors.ErrAccountDisabled, "account is not active or not verified")
	}

	accessToken, err := s.codec.IssueAccess(employee.ID, employee.Role)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create access token")
	}

	refreshToken, err := s.codec.IssueRefresh(employee.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create refresh token")
	}

	// Decode our own freshly minted token to obtain the jti and expiry the
	// session record must carry.
	claims, err := s.codec.Decode(refreshToken, token.AudienceRefresh)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to decode refresh token")
	}

	session := &models.RefreshToken{
		JTI:        claims.ID,
		EmployeeID: employee.ID,
		ExpiresAt:  claims.ExpiresAt.Time,
	}
	if err := s.repo.CreateRefreshToken(ctx, session); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist refresh token")
	}

	s.metrics.IncLogin("success")
	s.metrics.IncTokenIssued(token.AudienceAccess)
	s.metrics.IncTokenIssued(token.AudienceRefresh)

	return &models.LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "bearer",
		ExpiresIn:    int64(s.codec.AccessTTL().Seconds()),
		Role:         employee.Role,
	}, nil
}

// Refresh exchanges a live refresh token for a new access token. Every
// failure mode collapses to the same invalid-or-expired error: decode
// failures, unknown or revoked or expired sessions, and vanished employees
// are indistinguishable to the caller.
func (s *AuthService) Refresh(ctx context.Context, req models.RefreshRequest) (*models.RefreshResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid refresh payload")
	}

	claims, err := s.codec.Decode(req.RefreshToken, token.AudienceRefresh)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidOrExpiredToken, "")
	}
	if claims.ID == "" || claims.Subject == "" {
		return nil, appErrors.Clone(appErrors.ErrInvalidOrExpiredToken, "")
	}

	session, err := s.repo.FindRefreshToken(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidOrExpiredToken, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch refresh token")
	}

	if !session.ValidAt(time.Now().UTC()) {
		return nil, appErrors.Clone(appErrors.ErrInvalidOrExpiredToken, "")
	}

	employee, err := s.repo.FindEmployeeByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidOrExpiredToken, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load employee")
	}

	accessToken, err := s.codec.IssueAccess(employee.ID, employee.Role)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create access token")
	}

	s.metrics.IncTokenIssued(token.AudienceAccess)

	return &models.RefreshResponse{
		AccessToken: accessToken,
		TokenType:   "bearer",
		ExpiresIn:   int64(s.codec.AccessTTL().Seconds()),
	}, nil
}

// Logout revokes the session behind a refresh token. Logout is single-use:
// revoking an already-revoked or unknown session is an error, not a no-op.
func (s *AuthService) Logout(ctx context.Context, req models.LogoutRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid logout payload")
	}

	claims, err := s.codec.Decode(req.RefreshToken, token.AudienceRefresh)
	if err != nil {
		return appErrors.Clone(appErrors.ErrInvalidOrExpiredToken, "")
	}
	if claims.ID == "" {
		return appErrors.Clone(appErrors.ErrInvalidOrExpiredToken, "")
	}

	session, err := s.repo.FindRefreshToken(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrInvalidOrExpiredToken, "")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load refresh token")
	}
	if session.Revoked() {
		return appErrors.Clone(appErrors.ErrInvalidOrExpiredToken, "")
	}

	if err := s.repo.RevokeRefreshToken(ctx, claims.ID, time.Now().UTC()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Lost the race against a concurrent logout on the same jti.
			return appErrors.Clone(appErrors.ErrInvalidOrExpiredToken, "")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to revoke refresh token")
	}

	s.metrics.IncSessionRevoked()
	return nil
}

// VerifyEmail completes the activation flow started at registration,
// flipping is_active and is_verified. Verifying an already-active account
// succeeds without changes.
func (s *AuthService) VerifyEmail(ctx context.Context, req models.VerifyEmailRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid verification payload")
	}

	claims, err := s.codec.Decode(req.Token, token.AudienceVerify)
	if err != nil {
		return appErrors.Clone(appErrors.ErrInvalidOrExpiredToken, "")
	}

	employee, err := s.repo.FindEmployeeByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrInvalidOrExpiredToken, "")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load employee")
	}

	if employee.IsActive && employee.IsVerified {
		return nil
	}

	if err := s.repo.MarkEmployeeVerified(ctx, employee.ID, time.Now().UTC()); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to verify employee")
	}

	return nil
}
