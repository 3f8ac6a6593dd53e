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

type courseService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
}

func NewCourseService(repo repositories.Repository, logger *slog.Logger, validator *validator.Validator) CourseService {
	return &courseService{repo: repo, logger: logger, validator: validator}
}

func (s *courseService) List(ctx context.Context, params models.ListCoursesParams) (*models.PaginatedResponse, error) {
	page, size, offset := pageParams(params.Page, params.Size)

	courses, total, err := s.repo.Course().List(ctx, nil, repositories.CourseFilters{
		FacultyID: params.FacultyID,
		Search:    strings.TrimSpace(params.Search),
		Limit:     size,
		Offset:    offset,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list courses: %w", err)
	}

	return models.NewPaginatedResponse(courses, total, page, size, len(courses)), nil
}

func (s *courseService) GetByID(ctx context.Context, id uint) (*models.Course, error) {
	course, err := s.repo.Course().GetByID(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrCourseNotFound
		}
		return nil, fmt.Errorf("failed to get course: %w", err)
	}
	return course, nil
}

func (s *courseService) Create(ctx context.Context, actor Actor, req *CourseRequest) (*models.Course, error) {
	if !actor.HasRole(models.RolePL) {
		return nil, NewPermissionError(actor.ID, 0, "course", "create", "only program leaders and admins can manage courses")
	}
	if err := s.validateRequest(ctx, actor, req, nil); err != nil {
		return nil, err
	}

	course := &models.Course{
		Code:            strings.TrimSpace(req.Code),
		Name:            strings.TrimSpace(req.Name),
		FacultyID:       req.FacultyID,
		ProgramLeaderID: req.ProgramLeaderID,
	}
	if err := s.repo.Course().Create(ctx, nil, course); err != nil {
		if repositories.IsDuplicateError(err) {
			return nil, ErrCodeTaken
		}
		return nil, fmt.Errorf("failed to create course: %w", err)
	}

	s.logger.Info("Course created", "course_id", course.ID, "code", course.Code, "created_by", actor.ID)
	return course, nil
}

func (s *courseService) Update(ctx context.Context, actor Actor, id uint, req *CourseRequest) (*models.Course, error) {
	if !actor.HasRole(models.RolePL) {
		return nil, NewPermissionError(actor.ID, id, "course", "update", "only program leaders and admins can manage courses")
	}

	course, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.inFaculty(course.FacultyID) {
		return nil, NewPermissionError(actor.ID, id, "course", "update", "course belongs to another faculty")
	}
	if err := s.validateRequest(ctx, actor, req, &id); err != nil {
		return nil, err
	}

	course.Code = strings.TrimSpace(req.Code)
	course.Name = strings.TrimSpace(req.Name)
	course.FacultyID = req.FacultyID
	course.ProgramLeaderID = req.ProgramLeaderID
	course.Faculty = nil
	course.ProgramLeader = nil

	if err := s.repo.Course().Update(ctx, nil, course); err != nil {
		if repositories.IsDuplicateError(err) {
			return nil, ErrCodeTaken
		}
		return nil, fmt.Errorf("failed to update course: %w", err)
	}

	s.logger.Info("Course updated", "course_id", id, "updated_by", actor.ID)
	return course, nil
}

func (s *courseService) Delete(ctx context.Context, actor Actor, id uint) error {
	if !actor.HasRole(models.RolePL) {
		return NewPermissionError(actor.ID, id, "course", "delete", "only program leaders and admins can manage courses")
	}

	course, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !actor.inFaculty(course.FacultyID) {
		return NewPermissionError(actor.ID, id, "course", "delete", "course belongs to another faculty")
	}

	hasClasses, err := s.repo.Course().HasClasses(ctx, nil, id)
	if err != nil {
		return fmt.Errorf("failed to check classes: %w", err)
	}
	if hasClasses {
		return ErrCourseInUse
	}

	if err := s.repo.Course().Delete(ctx, nil, id); err != nil {
		return fmt.Errorf("failed to delete course: %w", err)
	}

	s.logger.Info("Course deleted", "course_id", id, "deleted_by", actor.ID)
	return nil
}

// validateRequest checks tags, code uniqueness and the referenced faculty and program leader
func (s *courseService) validateRequest(ctx context.Context, actor Actor, req *CourseRequest, excludeID *uint) error {
	if errs := s.validator.GetBusinessValidator().Validate(req); len(errs) > 0 {
		return errs
	}

	if !actor.inFaculty(req.FacultyID) {
		return NewPermissionError(actor.ID, req.FacultyID, "faculty", "manage courses", "program leaders manage their own faculty only")
	}
	if _, err := s.repo.Faculty().GetByID(ctx, nil, req.FacultyID); err != nil {
		if repositories.IsNotFoundError(err) {
			return fieldError("faculty_id", "does not exist", req.FacultyID)
		}
		return fmt.Errorf("failed to get faculty: %w", err)
	}

	exists, err := s.repo.Course().ExistsByCode(ctx, nil, strings.TrimSpace(req.Code), excludeID)
	if err != nil {
		return fmt.Errorf("failed to check course code: %w", err)
	}
	if exists {
		return ErrCodeTaken
	}

	if req.ProgramLeaderID != nil {
		leader, err := s.repo.User().GetByID(ctx, nil, *req.ProgramLeaderID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return fieldError("program_leader_id", "does not exist", *req.ProgramLeaderID)
			}
			return fmt.Errorf("failed to get program leader: %w", err)
		}
		if leader.Role != models.RolePL {
			return fieldError("program_leader_id", "must be a program leader", *req.ProgramLeaderID)
		}
	}

	return nil
}
