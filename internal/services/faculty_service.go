package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/luct-edu/lecture-reporting-service/internal/models"
	"github.com/luct-edu/lecture-reporting-service/internal/repositories"
	"github.com/luct-edu/lecture-reporting-service/internal/validator"
)

type facultyService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
}

func NewFacultyService(repo repositories.Repository, logger *slog.Logger, validator *validator.Validator) FacultyService {
	return &facultyService{repo: repo, logger: logger, validator: validator}
}

func (s *facultyService) List(ctx context.Context, search string, page, size int) (*models.PaginatedResponse, error) {
	page, size, offset := pageParams(page, size)

	faculties, total, err := s.repo.Faculty().List(ctx, nil, repositories.FacultyFilters{
		Search: strings.TrimSpace(search),
		Limit:  size,
		Offset: offset,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list faculties: %w", err)
	}

	return models.NewPaginatedResponse(faculties, total, page, size, len(faculties)), nil
}

func (s *facultyService) GetByID(ctx context.Context, id uint) (*models.Faculty, error) {
	faculty, err := s.repo.Faculty().GetByID(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrFacultyNotFound
		}
		return nil, fmt.Errorf("failed to get faculty: %w", err)
	}
	return faculty, nil
}

func (s *facultyService) Create(ctx context.Context, actor Actor, req *FacultyRequest) (*models.Faculty, error) {
	if !actor.IsAdmin() {
		return nil, NewPermissionError(actor.ID, 0, "faculty", "create", "only admins can manage faculties")
	}
	if errs := s.validator.GetBusinessValidator().Validate(req); len(errs) > 0 {
		return nil, errs
	}

	faculty := &models.Faculty{
		Name: strings.TrimSpace(req.Name),
		Code: req.Code,
	}
	if err := s.repo.Faculty().Create(ctx, nil, faculty); err != nil {
		if repositories.IsDuplicateError(err) {
			return nil, ErrCodeTaken
		}
		return nil, fmt.Errorf("failed to create faculty: %w", err)
	}

	s.logger.Info("Faculty created", "faculty_id", faculty.ID, "code", faculty.Code)
	return faculty, nil
}

func (s *facultyService) Update(ctx context.Context, actor Actor, id uint, req *FacultyRequest) (*models.Faculty, error) {
	if !actor.IsAdmin() {
		return nil, NewPermissionError(actor.ID, id, "faculty", "update", "only admins can manage faculties")
	}
	if errs := s.validator.GetBusinessValidator().Validate(req); len(errs) > 0 {
		return nil, errs
	}

	faculty, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	faculty.Name = strings.TrimSpace(req.Name)
	faculty.Code = req.Code
	if err := s.repo.Faculty().Update(ctx, nil, faculty); err != nil {
		if repositories.IsDuplicateError(err) {
			return nil, ErrCodeTaken
		}
		return nil, fmt.Errorf("failed to update faculty: %w", err)
	}

	s.logger.Info("Faculty updated", "faculty_id", id)
	return faculty, nil
}

func (s *facultyService) Delete(ctx context.Context, actor Actor, id uint) error {
	if !actor.IsAdmin() {
		return NewPermissionError(actor.ID, id, "faculty", "delete", "only admins can manage faculties")
	}

	if _, err := s.GetByID(ctx, id); err != nil {
		return err
	}

	hasCourses, err := s.repo.Faculty().HasCourses(ctx, nil, id)
	if err != nil {
		return fmt.Errorf("failed to check courses: %w", err)
	}
	if hasCourses {
		return ErrFacultyInUse
	}

	if err := s.repo.Faculty().Delete(ctx, nil, id); err != nil {
		return fmt.Errorf("failed to delete faculty: %w", err)
	}

	s.logger.Info("Faculty deleted", "faculty_id", id)
	return nil
}
