package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/luct-edu/lecture-reporting-service/internal/auth"
	"github.com/luct-edu/lecture-reporting-service/internal/models"
	"github.com/luct-edu/lecture-reporting-service/internal/repositories"
	"github.com/luct-edu/lecture-reporting-service/internal/validator"
)

type authService struct {
	repo      repositories.Repository
	tokens    *auth.TokenManager
	hasher    auth.PasswordHasher
	identity  repositories.IdentityProvider
	logger    *slog.Logger
	validator *validator.Validator
	now       func() time.Time
}

// NewAuthService builds the auth service; identity may be nil when SSO is not configured
func NewAuthService(
	repo repositories.Repository,
	tokens *auth.TokenManager,
	hasher auth.PasswordHasher,
	identity repositories.IdentityProvider,
	logger *slog.Logger,
	validator *validator.Validator,
) AuthService {
	return &authService{
		repo:      repo,
		tokens:    tokens,
		hasher:    hasher,
		identity:  identity,
		logger:    logger,
		validator: validator,
		now:       time.Now,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *authService) Register(ctx context.Context, req *RegisterRequest) (*models.AuthResponse, error) {
	s.logger.Info("Registering user", "email", req.Email, "role", req.Role)

	if errs := s.validator.GetBusinessValidator().Validate(req); len(errs) > 0 {
		return nil, errs
	}

	email := normalizeEmail(req.Email)
	exists, err := s.repo.User().ExistsByEmail(ctx, nil, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if exists {
		return nil, ErrEmailTaken
	}

	if req.FacultyID != nil {
		if _, err := s.repo.Faculty().GetByID(ctx, nil, *req.FacultyID); err != nil {
			if repositories.IsNotFoundError(err) {
				return nil, fieldError("faculty_id", "does not exist", *req.FacultyID)
			}
			return nil, fmt.Errorf("failed to get faculty: %w", err)
		}
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		FullName:     strings.TrimSpace(req.FullName),
		Email:        email,
		PasswordHash: hash,
		Role:         req.Role,
		FacultyID:    req.FacultyID,
		IsActive:     true,
	}
	if req.Role == models.RoleStudent {
		user.StudentNumber = req.StudentNumber
	}

	if err := s.repo.User().Create(ctx, nil, user); err != nil {
		if repositories.IsDuplicateError(err) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("User registered", "user_id", user.ID, "role", user.Role)
	return s.issue(user)
}

func (s *authService) Login(ctx context.Context, req *LoginRequest) (*models.AuthResponse, error) {
	if errs := s.validator.GetBusinessValidator().Validate(req); len(errs) > 0 {
		return nil, errs
	}

	user, err := s.repo.User().GetByEmail(ctx, nil, normalizeEmail(req.Email))
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if err := s.hasher.Compare(user.PasswordHash, req.Password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			s.logger.Warn("Login failed", "user_id", user.ID)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to compare password: %w", err)
	}

	if !user.IsActive {
		return nil, ErrAccountDisabled
	}

	now := s.now()
	if err := s.repo.User().TouchLastLogin(ctx, nil, user.ID, now); err != nil {
		s.logger.Warn("Failed to update last login", "user_id", user.ID, "error", err)
	} else {
		user.LastLoginAt = &now
	}

	s.logger.Info("User logged in", "user_id", user.ID, "role", user.Role)
	return s.issue(user)
}

func (s *authService) SSOEnabled() bool {
	return s.identity != nil
}

// LoginWithSSO exchanges a Casdoor authorization code and logs in the matching
// local account, creating it on first sign-in.
func (s *authService) LoginWithSSO(ctx context.Context, req *SSOLoginRequest) (*models.AuthResponse, error) {
	if s.identity == nil {
		return nil, ErrSSODisabled
	}
	if errs := s.validator.GetBusinessValidator().Validate(req); len(errs) > 0 {
		return nil, errs
	}

	identity, err := s.identity.ExchangeCode(ctx, req.Code, req.State)
	if err != nil {
		if errors.Is(err, repositories.ErrIdentityProviderDisabled) {
			return nil, ErrSSODisabled
		}
		s.logger.Warn("SSO code exchange failed", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	user, err := s.repo.User().GetByEmail(ctx, nil, normalizeEmail(identity.Email))
	switch {
	case err == nil:
	case repositories.IsNotFoundError(err):
		user, err = s.createSSOUser(ctx, identity)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if !user.IsActive {
		return nil, ErrAccountDisabled
	}

	now := s.now()
	if err := s.repo.User().TouchLastLogin(ctx, nil, user.ID, now); err != nil {
		s.logger.Warn("Failed to update last login", "user_id", user.ID, "error", err)
	} else {
		user.LastLoginAt = &now
	}

	s.logger.Info("User logged in via SSO", "user_id", user.ID, "subject", identity.Subject)
	return s.issue(user)
}

func (s *authService) createSSOUser(ctx context.Context, identity *repositories.ExternalIdentity) (*models.User, error) {
	role := identity.Role
	if !role.IsValid() {
		role = models.RoleStudent
	}

	// SSO accounts get an unusable random password
	hash, err := s.hasher.Hash(uuid.NewString())
	if err != nil {
		return nil, err
	}

	fullName := strings.TrimSpace(identity.FullName)
	if fullName == "" {
		fullName = identity.Email
	}

	user := &models.User{
		FullName:     fullName,
		Email:        normalizeEmail(identity.Email),
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
	}
	if err := s.repo.User().Create(ctx, nil, user); err != nil {
		return nil, fmt.Errorf("failed to create SSO user: %w", err)
	}

	s.logger.Info("Created user from SSO", "user_id", user.ID, "role", role)
	return user, nil
}

func (s *authService) Authenticate(ctx context.Context, token string) (*models.User, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	userID, err := claims.UserID()
	if err != nil {
		return nil, ErrInvalidToken
	}

	user, err := s.repo.User().GetByID(ctx, nil, userID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if !user.IsActive {
		return nil, ErrAccountDisabled
	}

	return user, nil
}

func (s *authService) Me(ctx context.Context, userID uint) (*models.User, error) {
	user, err := s.repo.User().GetByID(ctx, nil, userID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

func (s *authService) ChangePassword(ctx context.Context, userID uint, req *ChangePasswordRequest) error {
	if errs := s.validator.GetBusinessValidator().Validate(req); len(errs) > 0 {
		return errs
	}

	user, err := s.repo.User().GetCredentials(ctx, nil, userID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to get user: %w", err)
	}

	if err := s.hasher.Compare(user.PasswordHash, req.OldPassword); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return ValidationErrors{{Field: "old_password", Message: "is incorrect", Rule: "password_match"}}
		}
		return fmt.Errorf("failed to compare password: %w", err)
	}

	hash, err := s.hasher.Hash(req.NewPassword)
	if err != nil {
		return err
	}
	if err := s.repo.User().UpdatePassword(ctx, nil, userID, hash); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	s.logger.Info("Password changed", "user_id", userID)
	return nil
}

func (s *authService) issue(user *models.User) (*models.AuthResponse, error) {
	token, expiresAt, err := s.tokens.Issue(user)
	if err != nil {
		return nil, err
	}
	return &models.AuthResponse{
		Token:     token,
		TokenType: "Bearer",
		ExpiresAt: expiresAt,
		User:      user,
	}, nil
}
