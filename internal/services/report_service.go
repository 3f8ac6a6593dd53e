package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"gorm.io/datatypes"

	"github.com/luct-edu/lecture-reporting-service/internal/events"
	"github.com/luct-edu/lecture-reporting-service/internal/metrics"
	"github.com/luct-edu/lecture-reporting-service/internal/models"
	"github.com/luct-edu/lecture-reporting-service/internal/repositories"
	"github.com/luct-edu/lecture-reporting-service/internal/validator"
)

type reportService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
	metrics   *metrics.Metrics
	events    eventEmitter
}

func NewReportService(
	repo repositories.Repository,
	logger *slog.Logger,
	validator *validator.Validator,
	publisher events.EventPublisher,
	m *metrics.Metrics,
) ReportService {
	return &reportService{
		repo:      repo,
		logger:    logger,
		validator: validator,
		metrics:   m,
		events:    eventEmitter{publisher: publisher, metrics: m, logger: logger},
	}
}

func (s *reportService) Create(ctx context.Context, actor Actor, req *CreateReportRequest) (*models.Report, error) {
	s.logger.Info("Creating report", "class_id", req.ClassID, "week", req.Week, "lecturer_id", actor.ID)

	if actor.Role != models.RoleLecturer {
		return nil, NewPermissionError(actor.ID, 0, "report", "create", "only lecturers submit reports")
	}

	req.Normalize()
	bv := s.validator.GetBusinessValidator()
	if errs := bv.Validate(req); len(errs) > 0 {
		return nil, errs
	}

	class, err := s.repo.Class().GetByID(ctx, nil, req.ClassID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, fieldError("class_id", "does not exist", req.ClassID)
		}
		return nil, fmt.Errorf("failed to get class: %w", err)
	}
	if class.LecturerID == nil || *class.LecturerID != actor.ID {
		return nil, NewPermissionError(actor.ID, class.ID, "class", "report", "class is not assigned to you")
	}
	if errs := bv.ValidateReportCreate(req, class); len(errs) > 0 {
		return nil, errs
	}

	course := class.Course
	if course == nil {
		if course, err = s.repo.Course().GetByID(ctx, nil, class.CourseID); err != nil {
			return nil, fmt.Errorf("failed to get course: %w", err)
		}
	}

	lectureDate, err := validator.ParseDate(req.LectureDate)
	if err != nil {
		return nil, fieldError("lecture_date", "must be a date in YYYY-MM-DD format", req.LectureDate)
	}

	report := &models.Report{
		FacultyID:        course.FacultyID,
		ClassID:          class.ID,
		CourseID:         course.ID,
		LecturerID:       actor.ID,
		Week:             req.Week,
		LectureDate:      datatypes.Date(lectureDate),
		StudentsPresent:  *req.StudentsPresent,
		TotalRegistered:  class.TotalRegistered,
		Venue:            class.Venue,
		ScheduledTime:    class.ScheduledTime,
		Topic:            strings.TrimSpace(req.Topic),
		LearningOutcomes: strings.TrimSpace(req.LearningOutcomes),
		Recommendations:  trimmed(req.Recommendations),
		Status:           models.ReportPending,
	}
	if req.Venue != nil {
		report.Venue = strings.TrimSpace(*req.Venue)
	}
	if req.ScheduledTime != nil {
		report.ScheduledTime = strings.TrimSpace(*req.ScheduledTime)
	}

	err = s.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
		exists, err := txRepo.Report().ExistsForWeek(ctx, nil, class.ID, req.Week, nil)
		if err != nil {
			return err
		}
		if exists {
			return ErrDuplicateReport
		}
		return txRepo.Report().Create(ctx, nil, report)
	})
	if err != nil {
		if errors.Is(err, ErrDuplicateReport) || repositories.IsDuplicateError(err) {
			return nil, ErrDuplicateReport
		}
		return nil, fmt.Errorf("failed to create report: %w", err)
	}

	s.metrics.ReportTransition(string(models.ReportPending))
	s.events.emit(ctx, events.ReportSubmitted, reportEvent(report, actor, ""))

	s.logger.Info("Report submitted", "report_id", report.ID, "class_id", class.ID, "week", report.Week)
	return report, nil
}

func (s *reportService) List(ctx context.Context, actor Actor, params models.ListReportsParams) (*models.PaginatedResponse, error) {
	filters, err := s.buildFilters(actor, params)
	if err != nil {
		return nil, err
	}

	page, size, offset := pageParams(params.Page, params.Size)
	filters.Limit = size
	filters.Offset = offset

	reports, total, err := s.repo.Report().List(ctx, nil, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}

	return models.NewPaginatedResponse(reports, total, page, size, len(reports)), nil
}

func (s *reportService) GetByID(ctx context.Context, actor Actor, id uint) (*models.Report, error) {
	report, err := s.repo.Report().GetByIDWithDetails(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrReportNotFound
		}
		return nil, fmt.Errorf("failed to get report: %w", err)
	}

	ok, err := s.canView(ctx, actor, report)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, NewPermissionError(actor.ID, id, "report", "view", "report is outside your scope")
	}

	return report, nil
}

func (s *reportService) Update(ctx context.Context, actor Actor, id uint, req *UpdateReportRequest) (*models.Report, error) {
	report, err := s.getReport(ctx, id)
	if err != nil {
		return nil, err
	}

	if actor.Role != models.RoleLecturer || report.LecturerID != actor.ID {
		return nil, NewPermissionError(actor.ID, id, "report", "update", "only the submitting lecturer can edit a report")
	}
	if !report.Editable() {
		return nil, ErrReportLocked
	}
	req.Normalize()
	if errs := s.validator.GetBusinessValidator().ValidateReportUpdate(req, report); len(errs) > 0 {
		return nil, errs
	}

	if req.Week != nil && *req.Week != report.Week {
		exists, err := s.repo.Report().ExistsForWeek(ctx, nil, report.ClassID, *req.Week, &report.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to check report week: %w", err)
		}
		if exists {
			return nil, ErrDuplicateReport
		}
		report.Week = *req.Week
	}
	if req.LectureDate != nil {
		date, err := validator.ParseDate(*req.LectureDate)
		if err != nil {
			return nil, fieldError("lecture_date", "must be a date in YYYY-MM-DD format", *req.LectureDate)
		}
		report.LectureDate = datatypes.Date(date)
	}
	if req.StudentsPresent != nil {
		report.StudentsPresent = *req.StudentsPresent
	}
	if req.Topic != nil {
		report.Topic = strings.TrimSpace(*req.Topic)
	}
	if req.LearningOutcomes != nil {
		report.LearningOutcomes = strings.TrimSpace(*req.LearningOutcomes)
	}
	if req.Recommendations != nil {
		report.Recommendations = trimmed(req.Recommendations)
	}
	if req.Venue != nil {
		report.Venue = strings.TrimSpace(*req.Venue)
	}
	if req.ScheduledTime != nil {
		report.ScheduledTime = strings.TrimSpace(*req.ScheduledTime)
	}

	if err := s.repo.Report().Update(ctx, nil, report); err != nil {
		if repositories.IsDuplicateError(err) {
			return nil, ErrDuplicateReport
		}
		return nil, fmt.Errorf("failed to update report: %w", err)
	}

	s.logger.Info("Report updated", "report_id", id, "lecturer_id", actor.ID)
	return report, nil
}

func (s *reportService) Delete(ctx context.Context, actor Actor, id uint) error {
	report, err := s.getReport(ctx, id)
	if err != nil {
		return err
	}

	if !actor.IsAdmin() {
		if actor.Role != models.RoleLecturer || report.LecturerID != actor.ID {
			return NewPermissionError(actor.ID, id, "report", "delete", "only the submitting lecturer or an admin can delete a report")
		}
		if !report.Editable() {
			return ErrReportLocked
		}
	}

	err = s.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
		return txRepo.Report().Delete(ctx, nil, id)
	})
	if err != nil {
		return fmt.Errorf("failed to delete report: %w", err)
	}

	s.logger.Info("Report deleted", "report_id", id, "deleted_by", actor.ID)
	return nil
}

// ===== FEEDBACK WORKFLOW =====

func (s *reportService) AddFeedback(ctx context.Context, actor Actor, id uint, req *FeedbackRequest) (*models.Feedback, error) {
	if !actor.Role.IsReviewer() {
		return nil, NewPermissionError(actor.ID, id, "report", "review", "only PRL, PL and admins give feedback")
	}
	if errs := s.validator.GetBusinessValidator().Validate(req); len(errs) > 0 {
		return nil, errs
	}
	comment := strings.TrimSpace(req.Comment)
	if comment == "" {
		return nil, fieldError("comment", "is required", req.Comment)
	}

	report, err := s.getReport(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.inFaculty(report.FacultyID) {
		return nil, NewPermissionError(actor.ID, id, "report", "review", "report belongs to another faculty")
	}
	if report.Status == models.ReportApproved {
		return nil, ErrReportApproved
	}
	if errs := s.validator.GetBusinessValidator().ValidateStatusTransition(report.Status, models.ReportReviewed); len(errs) > 0 {
		return nil, errs
	}

	feedback := &models.Feedback{
		ReportID:     report.ID,
		ReviewerID:   actor.ID,
		ReviewerRole: actor.Role,
		Comment:      comment,
	}
	transitioned := report.Status == models.ReportPending

	err = s.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
		if err := txRepo.Report().AddFeedback(ctx, nil, feedback); err != nil {
			return err
		}
		if transitioned {
			return txRepo.Report().UpdateStatus(ctx, nil, report.ID, models.ReportReviewed)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add feedback: %w", err)
	}

	report.Status = models.ReportReviewed
	if transitioned {
		s.metrics.ReportTransition(string(models.ReportReviewed))
	}
	s.events.emit(ctx, events.ReportReviewed, reportEvent(report, actor, comment))

	s.logger.Info("Feedback added", "report_id", id, "reviewer_id", actor.ID, "status_changed", transitioned)
	return feedback, nil
}

func (s *reportService) ListFeedback(ctx context.Context, actor Actor, id uint) ([]*models.Feedback, error) {
	if _, err := s.GetByID(ctx, actor, id); err != nil {
		return nil, err
	}

	feedback, err := s.repo.Report().ListFeedback(ctx, nil, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list feedback: %w", err)
	}
	return feedback, nil
}

func (s *reportService) Approve(ctx context.Context, actor Actor, id uint) (*models.Report, error) {
	if !actor.HasRole(models.RolePL) {
		return nil, NewPermissionError(actor.ID, id, "report", "approve", "only program leaders and admins approve reports")
	}

	report, err := s.getReport(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.inFaculty(report.FacultyID) {
		return nil, NewPermissionError(actor.ID, id, "report", "approve", "report belongs to another faculty")
	}

	switch report.Status {
	case models.ReportPending:
		return nil, NewBusinessRuleError("feedback_required", "a report needs feedback before it can be approved",
			map[string]interface{}{"report_id": id, "status": report.Status})
	case models.ReportApproved:
		return nil, NewBusinessRuleError("already_approved", "report is already approved",
			map[string]interface{}{"report_id": id, "status": report.Status})
	}
	if errs := s.validator.GetBusinessValidator().ValidateStatusTransition(report.Status, models.ReportApproved); len(errs) > 0 {
		return nil, errs
	}

	if err := s.repo.Report().UpdateStatus(ctx, nil, id, models.ReportApproved); err != nil {
		return nil, fmt.Errorf("failed to approve report: %w", err)
	}
	report.Status = models.ReportApproved

	s.metrics.ReportTransition(string(models.ReportApproved))
	s.events.emit(ctx, events.ReportApproved, reportEvent(report, actor, ""))

	s.logger.Info("Report approved", "report_id", id, "approved_by", actor.ID)
	return report, nil
}

// ===== HELPERS =====

func (s *reportService) getReport(ctx context.Context, id uint) (*models.Report, error) {
	report, err := s.repo.Report().GetByID(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrReportNotFound
		}
		return nil, fmt.Errorf("failed to get report: %w", err)
	}
	return report, nil
}

func (s *reportService) canView(ctx context.Context, actor Actor, report *models.Report) (bool, error) {
	switch actor.Role {
	case models.RoleAdmin:
		return true, nil
	case models.RoleLecturer:
		return report.LecturerID == actor.ID, nil
	case models.RolePRL, models.RolePL:
		return actor.inFaculty(report.FacultyID), nil
	case models.RoleStudent:
		enrolled, err := s.repo.Class().IsEnrolled(ctx, nil, report.ClassID, actor.ID)
		if err != nil {
			return false, fmt.Errorf("failed to check enrollment: %w", err)
		}
		return enrolled, nil
	}
	return false, nil
}

func (s *reportService) buildFilters(actor Actor, params models.ListReportsParams) (repositories.ReportFilters, error) {
	filters := repositories.ReportFilters{
		Scope:      actor.Scope(),
		Week:       params.Week,
		ClassID:    params.ClassID,
		CourseID:   params.CourseID,
		LecturerID: params.LecturerID,
		FacultyID:  params.FacultyID,
		DateFrom:   params.DateFrom,
		DateTo:     params.DateTo,
		Search:     strings.TrimSpace(params.Search),
		SortBy:     params.SortBy,
		SortOrder:  params.SortDir,
	}
	if params.Status != "" {
		if !params.Status.IsValid() {
			return filters, fieldError("status", "must be one of pending, reviewed, approved", params.Status)
		}
		status := params.Status
		filters.Status = &status
	}
	return filters, nil
}

func reportEvent(r *models.Report, actor Actor, comment string) events.ReportEventData {
	return events.ReportEventData{
		ReportID:   r.ID,
		ClassID:    r.ClassID,
		FacultyID:  r.FacultyID,
		LecturerID: r.LecturerID,
		Week:       r.Week,
		Status:     string(r.Status),
		ActorID:    actor.ID,
		ActorRole:  string(actor.Role),
		Comment:    comment,
	}
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
