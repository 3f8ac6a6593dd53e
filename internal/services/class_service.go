package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/luct-edu/lecture-reporting-service/internal/models"
	"github.com/luct-edu/lecture-reporting-service/internal/repositories"
	"github.com/luct-edu/lecture-reporting-service/internal/validator"
)

type classService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
}

func NewClassService(repo repositories.Repository, logger *slog.Logger, validator *validator.Validator) ClassService {
	return &classService{repo: repo, logger: logger, validator: validator}
}

func (s *classService) List(ctx context.Context, actor Actor, params models.ListClassesParams) (*models.PaginatedResponse, error) {
	page, size, offset := pageParams(params.Page, params.Size)

	classes, total, err := s.repo.Class().List(ctx, nil, repositories.ClassFilters{
		Scope:      actor.Scope(),
		CourseID:   params.CourseID,
		LecturerID: params.LecturerID,
		Search:     strings.TrimSpace(params.Search),
		Limit:      size,
		Offset:     offset,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list classes: %w", err)
	}

	return models.NewPaginatedResponse(classes, total, page, size, len(classes)), nil
}

func (s *classService) GetByID(ctx context.Context, actor Actor, id uint) (*models.Class, error) {
	class, err := s.getClass(ctx, id)
	if err != nil {
		return nil, err
	}

	ok, err := canViewClass(ctx, s.repo, actor, class)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, NewPermissionError(actor.ID, id, "class", "view", "class is outside your scope")
	}

	return class, nil
}

func (s *classService) Create(ctx context.Context, actor Actor, req *ClassRequest) (*models.Class, error) {
	if !actor.HasRole(models.RolePL) {
		return nil, NewPermissionError(actor.ID, 0, "class", "create", "only program leaders and admins can manage classes")
	}
	if err := s.validateRequest(ctx, actor, req, nil); err != nil {
		return nil, err
	}

	class := &models.Class{
		ClassCode:       req.ClassCode,
		CourseID:        req.CourseID,
		LecturerID:      req.LecturerID,
		Venue:           strings.TrimSpace(req.Venue),
		ScheduledTime:   strings.TrimSpace(req.ScheduledTime),
		TotalRegistered: req.TotalRegistered,
	}
	if err := s.repo.Class().Create(ctx, nil, class); err != nil {
		if repositories.IsDuplicateError(err) {
			return nil, ErrCodeTaken
		}
		return nil, fmt.Errorf("failed to create class: %w", err)
	}

	s.logger.Info("Class created", "class_id", class.ID, "class_code", class.ClassCode, "created_by", actor.ID)
	return class, nil
}

func (s *classService) Update(ctx context.Context, actor Actor, id uint, req *ClassRequest) (*models.Class, error) {
	if !actor.HasRole(models.RolePL) {
		return nil, NewPermissionError(actor.ID, id, "class", "update", "only program leaders and admins can manage classes")
	}

	class, err := s.getClass(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkManage(actor, class, "update"); err != nil {
		return nil, err
	}
	if err := s.validateRequest(ctx, actor, req, &id); err != nil {
		return nil, err
	}

	class.ClassCode = req.ClassCode
	class.CourseID = req.CourseID
	class.LecturerID = req.LecturerID
	class.Venue = strings.TrimSpace(req.Venue)
	class.ScheduledTime = strings.TrimSpace(req.ScheduledTime)
	class.TotalRegistered = req.TotalRegistered
	class.Course = nil
	class.Lecturer = nil

	if err := s.repo.Class().Update(ctx, nil, class); err != nil {
		if repositories.IsDuplicateError(err) {
			return nil, ErrCodeTaken
		}
		return nil, fmt.Errorf("failed to update class: %w", err)
	}

	s.logger.Info("Class updated", "class_id", id, "updated_by", actor.ID)
	return class, nil
}

func (s *classService) Delete(ctx context.Context, actor Actor, id uint) error {
	if !actor.HasRole(models.RolePL) {
		return NewPermissionError(actor.ID, id, "class", "delete", "only program leaders and admins can manage classes")
	}

	class, err := s.getClass(ctx, id)
	if err != nil {
		return err
	}
	if err := s.checkManage(actor, class, "delete"); err != nil {
		return err
	}

	hasReports, err := s.repo.Class().HasReports(ctx, nil, id)
	if err != nil {
		return fmt.Errorf("failed to check reports: %w", err)
	}
	if hasReports {
		return ErrClassInUse
	}

	if err := s.repo.Class().Delete(ctx, nil, id); err != nil {
		return fmt.Errorf("failed to delete class: %w", err)
	}

	s.logger.Info("Class deleted", "class_id", id, "deleted_by", actor.ID)
	return nil
}

// ===== ENROLLMENT =====

func (s *classService) Enroll(ctx context.Context, actor Actor, classID uint, req *EnrollmentRequest) (*models.EnrollmentResult, error) {
	if !actor.HasRole(models.RolePL) {
		return nil, NewPermissionError(actor.ID, classID, "class", "enroll", "only program leaders and admins can enroll students")
	}
	if errs := s.validator.GetBusinessValidator().Validate(req); len(errs) > 0 {
		return nil, errs
	}

	class, err := s.getClass(ctx, classID)
	if err != nil {
		return nil, err
	}
	if err := s.checkManage(actor, class, "enroll"); err != nil {
		return nil, err
	}

	ids := uniqueIDs(req.StudentIDs)
	users, err := s.repo.User().GetByIDs(ctx, nil, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load students: %w", err)
	}
	found := make(map[uint]*models.User, len(users))
	for _, u := range users {
		found[u.ID] = u
	}

	var errs ValidationErrors
	for _, id := range ids {
		u, ok := found[id]
		switch {
		case !ok:
			errs = append(errs, ValidationError{Field: "student_ids", Message: "does not exist", Value: id, Rule: "exists"})
		case u.Role != models.RoleStudent:
			errs = append(errs, ValidationError{Field: "student_ids", Message: "is not a student", Value: id, Rule: "student_role"})
		}
	}
	if len(errs) > 0 {
		return nil, errs
	}

	result := &models.EnrollmentResult{ClassID: classID, Enrolled: []uint{}}
	err = s.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
		for _, id := range ids {
			added, err := txRepo.Class().Enroll(ctx, nil, classID, id)
			if err != nil {
				return err
			}
			if added {
				result.Enrolled = append(result.Enrolled, id)
			} else {
				result.Already = append(result.Already, id)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to enroll students: %w", err)
	}

	s.logger.Info("Students enrolled", "class_id", classID, "enrolled", len(result.Enrolled), "already", len(result.Already))
	return result, nil
}

func (s *classService) Unenroll(ctx context.Context, actor Actor, classID, studentID uint) error {
	if !actor.HasRole(models.RolePL) {
		return NewPermissionError(actor.ID, classID, "class", "unenroll", "only program leaders and admins can manage enrollments")
	}

	class, err := s.getClass(ctx, classID)
	if err != nil {
		return err
	}
	if err := s.checkManage(actor, class, "unenroll"); err != nil {
		return err
	}

	if err := s.repo.Class().Unenroll(ctx, nil, classID, studentID); err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrEnrollmentNotFound
		}
		return fmt.Errorf("failed to unenroll student: %w", err)
	}

	s.logger.Info("Student unenrolled", "class_id", classID, "student_id", studentID)
	return nil
}

// ImportEnrollments reads student emails from the first column of the first sheet.
// Row 1 is a header; blank rows are ignored.
func (s *classService) ImportEnrollments(ctx context.Context, actor Actor, classID uint, file io.Reader) (*models.EnrollmentImportResult, error) {
	if !actor.HasRole(models.RolePL) {
		return nil, NewPermissionError(actor.ID, classID, "class", "import", "only program leaders and admins can enroll students")
	}

	class, err := s.getClass(ctx, classID)
	if err != nil {
		return nil, err
	}
	if err := s.checkManage(actor, class, "import"); err != nil {
		return nil, err
	}

	wb, err := excelize.OpenReader(file)
	if err != nil {
		return nil, fieldError("file", "is not a valid Excel workbook", nil)
	}
	defer wb.Close()

	sheets := wb.GetSheetList()
	if len(sheets) == 0 {
		return nil, fieldError("file", "workbook has no sheets", nil)
	}
	rows, err := wb.GetRows(sheets[0])
	if err != nil {
		return nil, fieldError("file", "could not read the first sheet", nil)
	}

	result := &models.EnrollmentImportResult{ClassID: classID, Skipped: []models.ImportSkip{}}
	for i, row := range rows {
		if i == 0 || len(row) == 0 {
			continue
		}
		email := normalizeEmail(row[0])
		if email == "" {
			continue
		}
		rowNum := i + 1

		user, err := s.repo.User().GetByEmail(ctx, nil, email)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				result.Skipped = append(result.Skipped, models.ImportSkip{Row: rowNum, Value: email, Reason: "unknown email"})
				continue
			}
			return nil, fmt.Errorf("failed to look up %s: %w", email, err)
		}
		if user.Role != models.RoleStudent {
			result.Skipped = append(result.Skipped, models.ImportSkip{Row: rowNum, Value: email, Reason: "not a student"})
			continue
		}

		added, err := s.repo.Class().Enroll(ctx, nil, classID, user.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to enroll %s: %w", email, err)
		}
		if !added {
			result.Skipped = append(result.Skipped, models.ImportSkip{Row: rowNum, Value: email, Reason: "already enrolled"})
			continue
		}
		result.Enrolled++
	}

	s.logger.Info("Enrollment import finished", "class_id", classID, "enrolled", result.Enrolled, "skipped", len(result.Skipped))
	return result, nil
}

func (s *classService) ListStudents(ctx context.Context, actor Actor, classID uint) ([]*models.User, error) {
	if !actor.HasRole(models.RoleLecturer, models.RolePRL, models.RolePL) {
		return nil, NewPermissionError(actor.ID, classID, "class", "list students", "students cannot list classmates")
	}

	class, err := s.GetByID(ctx, actor, classID)
	if err != nil {
		return nil, err
	}

	students, err := s.repo.Class().ListStudents(ctx, nil, class.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list students: %w", err)
	}
	return students, nil
}

// ===== HELPERS =====

func (s *classService) getClass(ctx context.Context, id uint) (*models.Class, error) {
	class, err := s.repo.Class().GetByID(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrClassNotFound
		}
		return nil, fmt.Errorf("failed to get class: %w", err)
	}
	return class, nil
}

func (s *classService) checkManage(actor Actor, class *models.Class, action string) error {
	if class.Course != nil && !actor.inFaculty(class.Course.FacultyID) {
		return NewPermissionError(actor.ID, class.ID, "class", action, "class belongs to another faculty")
	}
	return nil
}

func (s *classService) validateRequest(ctx context.Context, actor Actor, req *ClassRequest, excludeID *uint) error {
	if errs := s.validator.GetBusinessValidator().Validate(req); len(errs) > 0 {
		return errs
	}

	course, err := s.repo.Course().GetByID(ctx, nil, req.CourseID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return fieldError("course_id", "does not exist", req.CourseID)
		}
		return fmt.Errorf("failed to get course: %w", err)
	}
	if !actor.inFaculty(course.FacultyID) {
		return NewPermissionError(actor.ID, course.ID, "course", "manage classes", "course belongs to another faculty")
	}

	exists, err := s.repo.Class().ExistsByCode(ctx, nil, req.ClassCode, excludeID)
	if err != nil {
		return fmt.Errorf("failed to check class code: %w", err)
	}
	if exists {
		return ErrCodeTaken
	}

	if req.LecturerID != nil {
		lecturer, err := s.repo.User().GetByID(ctx, nil, *req.LecturerID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return fieldError("lecturer_id", "does not exist", *req.LecturerID)
			}
			return fmt.Errorf("failed to get lecturer: %w", err)
		}
		if lecturer.Role != models.RoleLecturer {
			return fieldError("lecturer_id", "must be a lecturer", *req.LecturerID)
		}
	}

	return nil
}

func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]bool, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
