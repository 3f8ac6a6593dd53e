package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/luct-edu/lecture-reporting-service/internal/auth"
	"github.com/luct-edu/lecture-reporting-service/internal/models"
	"github.com/luct-edu/lecture-reporting-service/internal/repositories"
	"github.com/luct-edu/lecture-reporting-service/internal/validator"
)

type userService struct {
	repo      repositories.Repository
	hasher    auth.PasswordHasher
	logger    *slog.Logger
	validator *validator.Validator
}

func NewUserService(repo repositories.Repository, hasher auth.PasswordHasher, logger *slog.Logger, validator *validator.Validator) UserService {
	return &userService{
		repo:      repo,
		hasher:    hasher,
		logger:    logger,
		validator: validator,
	}
}

func (s *userService) List(ctx context.Context, actor Actor, params models.ListUsersParams) (*models.PaginatedResponse, error) {
	if !actor.HasRole(models.RolePL, models.RolePRL) {
		return nil, NewPermissionError(actor.ID, 0, "user", "list", "only reviewers and admins can list users")
	}

	page, size, offset := pageParams(params.Page, params.Size)
	filters := repositories.UserFilters{
		FacultyID: actor.facultyFilter(params.FacultyID),
		Query:     strings.TrimSpace(params.Search),
		Limit:     size,
		Offset:    offset,
	}
	if params.Role != "" {
		if !params.Role.IsValid() {
			return nil, fieldError("role", "is not a valid role", params.Role)
		}
		role := params.Role
		filters.Role = &role
	}

	users, total, err := s.repo.User().List(ctx, nil, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	return models.NewPaginatedResponse(users, total, page, size, len(users)), nil
}

func (s *userService) GetByID(ctx context.Context, actor Actor, id uint) (*models.User, error) {
	if actor.ID != id && !actor.HasRole(models.RolePL, models.RolePRL) {
		return nil, NewPermissionError(actor.ID, id, "user", "view", "users can only view their own profile")
	}

	user, err := s.repo.User().GetByID(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

func (s *userService) Create(ctx context.Context, actor Actor, req *CreateUserRequest) (*models.User, error) {
	if !actor.IsAdmin() {
		return nil, NewPermissionError(actor.ID, 0, "user", "create", "only admins can create users")
	}
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
	if err := s.checkFaculty(ctx, req.FacultyID); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		FullName:      strings.TrimSpace(req.FullName),
		Email:         email,
		PasswordHash:  hash,
		Role:          req.Role,
		FacultyID:     req.FacultyID,
		StudentNumber: req.StudentNumber,
		IsActive:      true,
	}
	if err := s.repo.User().Create(ctx, nil, user); err != nil {
		if repositories.IsDuplicateError(err) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("User created", "user_id", user.ID, "role", user.Role, "created_by", actor.ID)
	return user, nil
}

func (s *userService) Update(ctx context.Context, actor Actor, id uint, req *UpdateUserRequest) (*models.User, error) {
	if !actor.IsAdmin() {
		return nil, NewPermissionError(actor.ID, id, "user", "update", "only admins can update users")
	}
	if errs := s.validator.GetBusinessValidator().Validate(req); len(errs) > 0 {
		return nil, errs
	}

	user, err := s.repo.User().GetByID(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if req.FullName != nil {
		user.FullName = strings.TrimSpace(*req.FullName)
	}
	if req.Role != nil {
		if id == actor.ID && *req.Role != models.RoleAdmin {
			return nil, NewBusinessRuleError("self_demotion", "admins cannot remove their own admin role", map[string]interface{}{"user_id": id})
		}
		user.Role = *req.Role
	}
	if req.ClearFaculty {
		user.FacultyID = nil
		user.Faculty = nil
	} else if req.FacultyID != nil {
		if err := s.checkFaculty(ctx, req.FacultyID); err != nil {
			return nil, err
		}
		user.FacultyID = req.FacultyID
		user.Faculty = nil
	}
	if req.StudentNumber != nil {
		user.StudentNumber = req.StudentNumber
	}
	if req.IsActive != nil {
		if id == actor.ID && !*req.IsActive {
			return nil, NewBusinessRuleError("self_deactivation", "admins cannot deactivate themselves", map[string]interface{}{"user_id": id})
		}
		user.IsActive = *req.IsActive
	}

	if err := s.repo.User().Update(ctx, nil, user); err != nil {
		if repositories.IsDuplicateError(err) {
			return nil, fieldError("student_number", "is already in use", user.StudentNumber)
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	s.logger.Info("User updated", "user_id", id, "updated_by", actor.ID)
	return user, nil
}

func (s *userService) Delete(ctx context.Context, actor Actor, id uint) error {
	if !actor.IsAdmin() {
		return NewPermissionError(actor.ID, id, "user", "delete", "only admins can delete users")
	}
	if id == actor.ID {
		return NewBusinessRuleError("self_delete", "admins cannot delete their own account", map[string]interface{}{"user_id": id})
	}

	if _, err := s.repo.User().GetByID(ctx, nil, id); err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to get user: %w", err)
	}

	if err := s.repo.User().Delete(ctx, nil, id); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	s.logger.Info("User deleted", "user_id", id, "deleted_by", actor.ID)
	return nil
}

func (s *userService) checkFaculty(ctx context.Context, facultyID *uint) error {
	if facultyID == nil {
		return nil
	}
	if _, err := s.repo.Faculty().GetByID(ctx, nil, *facultyID); err != nil {
		if repositories.IsNotFoundError(err) {
			return fieldError("faculty_id", "does not exist", *facultyID)
		}
		return fmt.Errorf("failed to get faculty: %w", err)
	}
	return nil
}
