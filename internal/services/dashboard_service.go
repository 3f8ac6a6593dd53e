package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/luct-edu/lecture-reporting-service/internal/cache"
	"github.com/luct-edu/lecture-reporting-service/internal/models"
	"github.com/luct-edu/lecture-reporting-service/internal/repositories"
)

const (
	defaultStatsPeriod = 7
	maxStatsPeriod     = 365
	defaultRecentLimit = 10
	maxRecentLimit     = 50
)

type dashboardService struct {
	repo   repositories.Repository
	cache  *cache.CacheHelper
	logger *slog.Logger
	now    func() time.Time
}

// NewDashboardService builds the monitoring service; stats are cached in the Stats
// helper of cm when Redis is configured.
func NewDashboardService(repo repositories.Repository, cm *cache.CacheManager, logger *slog.Logger) DashboardService {
	var stats *cache.CacheHelper
	if cm != nil {
		stats = cm.Stats
	}
	return &dashboardService{
		repo:   repo,
		cache:  stats,
		logger: logger,
		now:    time.Now,
	}
}

func (s *dashboardService) authorize(actor Actor) error {
	if !actor.HasRole(models.RolePRL, models.RolePL) {
		return NewPermissionError(actor.ID, 0, "dashboard", "view", "only PRL, PL and admins view monitoring data")
	}
	return nil
}

func (s *dashboardService) GetStats(ctx context.Context, actor Actor, facultyID *uint, period int) (*models.DashboardStats, error) {
	if err := s.authorize(actor); err != nil {
		return nil, err
	}

	if period <= 0 {
		period = defaultStatsPeriod
	}
	if period > maxStatsPeriod {
		period = maxStatsPeriod
	}
	facultyID = actor.facultyFilter(facultyID)

	s.logger.Info("Getting dashboard stats", "period", period, "faculty_id", facultyID)

	var stats models.DashboardStats
	key := fmt.Sprintf("dashboard:%s:%d", facultyKey(facultyID), period)
	err := s.cache.CacheOrExecute(ctx, key, &stats, cache.StatsCacheConfig.TTL, func() (interface{}, error) {
		return s.computeStats(ctx, facultyID, period)
	})
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

func (s *dashboardService) computeStats(ctx context.Context, facultyID *uint, period int) (*models.DashboardStats, error) {
	dash := s.repo.Dashboard()

	totalReports, err := dash.CountReports(ctx, nil, facultyID)
	if err != nil {
		return nil, fmt.Errorf("failed to count reports: %w", err)
	}

	totalCourses, err := dash.CountCourses(ctx, nil, facultyID)
	if err != nil {
		return nil, fmt.Errorf("failed to count courses: %w", err)
	}

	totalClasses, err := dash.CountClasses(ctx, nil, facultyID)
	if err != nil {
		return nil, fmt.Errorf("failed to count classes: %w", err)
	}

	totalLecturers, err := dash.CountLecturers(ctx, nil, facultyID)
	if err != nil {
		return nil, fmt.Errorf("failed to count lecturers: %w", err)
	}

	byStatus, err := dash.ReportsByStatus(ctx, nil, facultyID)
	if err != nil {
		return nil, fmt.Errorf("failed to group reports by status: %w", err)
	}
	for _, st := range []models.ReportStatus{models.ReportPending, models.ReportReviewed, models.ReportApproved} {
		if _, ok := byStatus[st]; !ok {
			byStatus[st] = 0
		}
	}

	attendance, err := dash.AverageAttendanceRate(ctx, nil, facultyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get attendance rate: %w", err)
	}

	rating, err := dash.AverageRating(ctx, nil, facultyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get average rating: %w", err)
	}

	now := s.now().UTC()
	recent, err := dash.CountReportsSince(ctx, nil, facultyID, now.AddDate(0, 0, -period))
	if err != nil {
		return nil, fmt.Errorf("failed to count recent reports: %w", err)
	}

	return &models.DashboardStats{
		TotalReports:          totalReports,
		TotalCourses:          totalCourses,
		TotalClasses:          totalClasses,
		TotalLecturers:        totalLecturers,
		ReportsByStatus:       byStatus,
		AverageAttendanceRate: attendance,
		AverageRating:         rating,
		RecentReports:         recent,
		PeriodDays:            period,
		FacultyID:             facultyID,
		GeneratedAt:           now,
	}, nil
}

func (s *dashboardService) GetAttendanceTrends(ctx context.Context, actor Actor, facultyID *uint) ([]models.AttendanceTrend, error) {
	if err := s.authorize(actor); err != nil {
		return nil, err
	}

	trends, err := s.repo.Dashboard().AttendanceTrends(ctx, nil, actor.facultyFilter(facultyID))
	if err != nil {
		return nil, fmt.Errorf("failed to get attendance trends: %w", err)
	}
	if trends == nil {
		trends = []models.AttendanceTrend{}
	}
	return trends, nil
}

func (s *dashboardService) GetLecturerPerformance(ctx context.Context, actor Actor, facultyID *uint) ([]models.LecturerPerformance, error) {
	if err := s.authorize(actor); err != nil {
		return nil, err
	}

	perf, err := s.repo.Dashboard().LecturerPerformance(ctx, nil, actor.facultyFilter(facultyID))
	if err != nil {
		return nil, fmt.Errorf("failed to get lecturer performance: %w", err)
	}
	if perf == nil {
		perf = []models.LecturerPerformance{}
	}
	return perf, nil
}

func (s *dashboardService) GetRecentReports(ctx context.Context, actor Actor, facultyID *uint, limit int) ([]*models.Report, error) {
	if err := s.authorize(actor); err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = defaultRecentLimit
	}
	if limit > maxRecentLimit {
		limit = maxRecentLimit
	}

	reports, err := s.repo.Dashboard().RecentReports(ctx, nil, actor.facultyFilter(facultyID), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent reports: %w", err)
	}
	if reports == nil {
		reports = []*models.Report{}
	}
	return reports, nil
}

func facultyKey(facultyID *uint) string {
	if facultyID == nil {
		return "all"
	}
	return fmt.Sprintf("%d", *facultyID)
}
