package repositories

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/luct-edu/lecture-reporting-service/internal/models"
)

// DashboardRepository interface for monitoring aggregates. A nil facultyID means all faculties.
type DashboardRepository interface {
	// Totals
	CountReports(ctx context.Context, tx *gorm.DB, facultyID *uint) (int64, error)
	CountCourses(ctx context.Context, tx *gorm.DB, facultyID *uint) (int64, error)
	CountClasses(ctx context.Context, tx *gorm.DB, facultyID *uint) (int64, error)
	CountLecturers(ctx context.Context, tx *gorm.DB, facultyID *uint) (int64, error)
	CountReportsSince(ctx context.Context, tx *gorm.DB, facultyID *uint, since time.Time) (int64, error)
	ReportsByStatus(ctx context.Context, tx *gorm.DB, facultyID *uint) (map[models.ReportStatus]int64, error)

	// Metrics
	AverageAttendanceRate(ctx context.Context, tx *gorm.DB, facultyID *uint) (float64, error)
	AverageRating(ctx context.Context, tx *gorm.DB, facultyID *uint) (float64, error)

	// Trends
	AttendanceTrends(ctx context.Context, tx *gorm.DB, facultyID *uint) ([]models.AttendanceTrend, error)
	LecturerPerformance(ctx context.Context, tx *gorm.DB, facultyID *uint) ([]models.LecturerPerformance, error)
	RecentReports(ctx context.Context, tx *gorm.DB, facultyID *uint, limit int) ([]*models.Report, error)
}
