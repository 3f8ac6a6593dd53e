package services

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/luct-edu/lecture-reporting-service/internal/models"
	"github.com/luct-edu/lecture-reporting-service/internal/repositories"
	"github.com/luct-edu/lecture-reporting-service/internal/validator"
)

type studentService struct {
	repo   repositories.Repository
	logger *slog.Logger
}

func NewStudentService(repo repositories.Repository, logger *slog.Logger) StudentService {
	return &studentService{
		repo:   repo,
		logger: logger,
	}
}

func (s *studentService) requireStudent(actor Actor) error {
	if actor.Role != models.RoleStudent {
		return NewPermissionError(actor.ID, actor.ID, "student", "view", "only students have enrollments")
	}
	return nil
}

func (s *studentService) GetMyClasses(ctx context.Context, actor Actor) ([]*models.Class, error) {
	if err := s.requireStudent(actor); err != nil {
		return nil, err
	}

	classes, err := s.repo.Class().ListByStudent(ctx, nil, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list classes: %w", err)
	}
	if classes == nil {
		classes = []*models.Class{}
	}
	return classes, nil
}

// GetMyAttendance groups the reports of every enrolled class. The overall
// average is taken over all reports, not over the per-class averages.
func (s *studentService) GetMyAttendance(ctx context.Context, actor Actor) (*models.StudentAttendance, error) {
	s.logger.Info("Getting student attendance", "student_id", actor.ID)

	classes, err := s.GetMyClasses(ctx, actor)
	if err != nil {
		return nil, err
	}

	result := &models.StudentAttendance{StudentID: actor.ID, Classes: []models.ClassAttendance{}}
	if len(classes) == 0 {
		return result, nil
	}

	ids := make([]uint, len(classes))
	for i, c := range classes {
		ids[i] = c.ID
	}
	reports, err := s.repo.Report().ListByClasses(ctx, nil, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}

	byClass := make(map[uint][]*models.Report, len(classes))
	for _, r := range reports {
		byClass[r.ClassID] = append(byClass[r.ClassID], r)
	}

	var total float64
	var count int
	for _, c := range classes {
		entry := models.ClassAttendance{
			ClassID:   c.ID,
			ClassCode: c.ClassCode,
			Reports:   []models.AttendanceEntry{},
		}
		if c.Course != nil {
			entry.CourseName = c.Course.Name
		}

		var classTotal float64
		for _, r := range byClass[c.ID] {
			rate := r.AttendanceRate()
			entry.Reports = append(entry.Reports, models.AttendanceEntry{
				ReportID:        r.ID,
				Week:            r.Week,
				LectureDate:     time.Time(r.LectureDate).Format(validator.DateLayout),
				Topic:           r.Topic,
				StudentsPresent: r.StudentsPresent,
				TotalRegistered: r.TotalRegistered,
				AttendanceRate:  round2(rate),
				Status:          r.Status,
			})
			classTotal += rate
		}

		entry.LecturesLogged = len(entry.Reports)
		if entry.LecturesLogged > 0 {
			entry.AverageRate = round2(classTotal / float64(entry.LecturesLogged))
		}
		total += classTotal
		count += entry.LecturesLogged

		result.Classes = append(result.Classes, entry)
	}

	if count > 0 {
		result.OverallAverage = round2(total / float64(count))
	}
	return result, nil
}

func (s *studentService) GetMyRatings(ctx context.Context, actor Actor, params models.ListRatingsParams) (*models.PaginatedResponse, error) {
	if err := s.requireStudent(actor); err != nil {
		return nil, err
	}

	page, size, offset := pageParams(params.Page, params.Size)
	studentID := actor.ID
	ratings, total, err := s.repo.Rating().List(ctx, nil, repositories.RatingFilters{
		Scope:   repositories.Scope{StudentID: &studentID},
		ClassID: params.ClassID,
		Limit:   size,
		Offset:  offset,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list ratings: %w", err)
	}

	return models.NewPaginatedResponse(ratings, total, page, size, len(ratings)), nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
