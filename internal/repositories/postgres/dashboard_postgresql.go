package postgres

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/luct-edu/lecture-reporting-service/internal/models"
	"github.com/luct-edu/lecture-reporting-service/internal/repositories"
)

const attendanceRateExpr = "students_present * 100.0 / NULLIF(total_registered, 0)"

type dashboardRepository struct {
	db *gorm.DB
}

func NewDashboardRepository(db *gorm.DB) repositories.DashboardRepository {
	return &dashboardRepository{db: db}
}

func (r *dashboardRepository) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

// ===== TOTALS =====

func (r *dashboardRepository) CountReports(ctx context.Context, tx *gorm.DB, facultyID *uint) (int64, error) {
	var count int64
	query := applyFacultyScope(r.getDB(tx).WithContext(ctx).Model(&models.Report{}), "faculty_id", facultyID)
	if err := query.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to get total reports: %w", err)
	}
	return count, nil
}

func (r *dashboardRepository) CountCourses(ctx context.Context, tx *gorm.DB, facultyID *uint) (int64, error) {
	var count int64
	query := applyFacultyScope(r.getDB(tx).WithContext(ctx).Model(&models.Course{}), "faculty_id", facultyID)
	if err := query.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to get total courses: %w", err)
	}
	return count, nil
}

func (r *dashboardRepository) CountClasses(ctx context.Context, tx *gorm.DB, facultyID *uint) (int64, error) {
	var count int64
	query := r.getDB(tx).WithContext(ctx).Model(&models.Class{}).
		Joins("JOIN courses ON courses.id = classes.course_id")
	query = applyFacultyScope(query, "courses.faculty_id", facultyID)
	if err := query.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to get total classes: %w", err)
	}
	return count, nil
}

func (r *dashboardRepository) CountLecturers(ctx context.Context, tx *gorm.DB, facultyID *uint) (int64, error) {
	var count int64
	query := r.getDB(tx).WithContext(ctx).Model(&models.User{}).Where("role = ?", models.RoleLecturer)
	query = applyFacultyScope(query, "faculty_id", facultyID)
	if err := query.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to get total lecturers: %w", err)
	}
	return count, nil
}

func (r *dashboardRepository) CountReportsSince(ctx context.Context, tx *gorm.DB, facultyID *uint, since time.Time) (int64, error) {
	var count int64
	query := r.getDB(tx).WithContext(ctx).Model(&models.Report{}).Where("created_at >= ?", since)
	query = applyFacultyScope(query, "faculty_id", facultyID)
	if err := query.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to get recent report count: %w", err)
	}
	return count, nil
}

func (r *dashboardRepository) ReportsByStatus(ctx context.Context, tx *gorm.DB, facultyID *uint) (map[models.ReportStatus]int64, error) {
	var rows []struct {
		Status models.ReportStatus
		Count  int64
	}
	query := r.getDB(tx).WithContext(ctx).Model(&models.Report{}).Select("status, COUNT(*) AS count")
	query = applyFacultyScope(query, "faculty_id", facultyID)
	if err := query.Group("status").Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to get reports by status: %w", err)
	}

	result := map[models.ReportStatus]int64{
		models.ReportPending:  0,
		models.ReportReviewed: 0,
		models.ReportApproved: 0,
	}
	for _, row := range rows {
		result[row.Status] = row.Count
	}
	return result, nil
}

// ===== METRICS =====

func (r *dashboardRepository) AverageAttendanceRate(ctx context.Context, tx *gorm.DB, facultyID *uint) (float64, error) {
	var result struct {
		Rate float64
	}
	query := r.getDB(tx).WithContext(ctx).Model(&models.Report{}).
		Select("COALESCE(AVG(" + attendanceRateExpr + "), 0) AS rate")
	query = applyFacultyScope(query, "faculty_id", facultyID)
	if err := query.Scan(&result).Error; err != nil {
		return 0, fmt.Errorf("failed to get average attendance: %w", err)
	}
	return result.Rate, nil
}

func (r *dashboardRepository) AverageRating(ctx context.Context, tx *gorm.DB, facultyID *uint) (float64, error) {
	var result struct {
		Avg float64
	}
	query := r.getDB(tx).WithContext(ctx).Table("ratings").
		Select("COALESCE(AVG(ratings.score), 0) AS avg").
		Joins("JOIN classes ON classes.id = ratings.class_id").
		Joins("JOIN courses ON courses.id = classes.course_id")
	query = applyFacultyScope(query, "courses.faculty_id", facultyID)
	if err := query.Scan(&result).Error; err != nil {
		return 0, fmt.Errorf("failed to get average rating: %w", err)
	}
	return result.Avg, nil
}

// ===== TRENDS =====

func (r *dashboardRepository) AttendanceTrends(ctx context.Context, tx *gorm.DB, facultyID *uint) ([]models.AttendanceTrend, error) {
	var trends []models.AttendanceTrend
	query := r.getDB(tx).WithContext(ctx).Model(&models.Report{}).
		Select("week, COUNT(*) AS reports, COALESCE(AVG(" + attendanceRateExpr + "), 0) AS attendance_rate")
	query = applyFacultyScope(query, "faculty_id", facultyID)
	if err := query.Group("week").Order("week ASC").Scan(&trends).Error; err != nil {
		return nil, fmt.Errorf("failed to get attendance trends: %w", err)
	}
	return trends, nil
}

// LecturerPerformance aggregates reports and ratings per lecturer. With a faculty
// scope only that faculty's reports and ratings count, like every other stat, and a
// lecturer is listed when they belong to the faculty or reported in it.
func (r *dashboardRepository) LecturerPerformance(ctx context.Context, tx *gorm.DB, facultyID *uint) ([]models.LecturerPerformance, error) {
	db := r.getDB(tx).WithContext(ctx)
	sub := func() *gorm.DB { return db.Session(&gorm.Session{NewDB: true}) }

	ratingSub := sub().Table("ratings").
		Select("classes.lecturer_id AS lecturer_id, AVG(ratings.score) AS avg_rating").
		Joins("JOIN classes ON classes.id = ratings.class_id").
		Joins("JOIN courses ON courses.id = classes.course_id")
	ratingSub = applyFacultyScope(ratingSub, "courses.faculty_id", facultyID).Group("classes.lecturer_id")

	reportJoin := "LEFT JOIN reports ON reports.lecturer_id = users.id AND reports.deleted_at IS NULL"
	var joinArgs []interface{}
	if facultyID != nil {
		reportJoin += " AND reports.faculty_id = ?"
		joinArgs = append(joinArgs, *facultyID)
	}

	query := db.Table("users").
		Select(`users.id AS lecturer_id, users.full_name AS full_name,
			COUNT(reports.id) AS report_count,
			COALESCE(AVG(reports.students_present * 100.0 / NULLIF(reports.total_registered, 0)), 0) AS attendance_rate,
			COALESCE(MAX(rr.avg_rating), 0) AS average_rating,
			COALESCE(SUM(CASE WHEN reports.status = ? THEN 1 ELSE 0 END), 0) AS pending_reports`, models.ReportPending).
		Joins(reportJoin, joinArgs...).
		Joins("LEFT JOIN (?) AS rr ON rr.lecturer_id = users.id", ratingSub).
		Where("users.role = ? AND users.deleted_at IS NULL", models.RoleLecturer)
	if facultyID != nil {
		reportedIn := sub().Model(&models.Report{}).Select("lecturer_id").Where("faculty_id = ?", *facultyID)
		query = query.Where("(users.faculty_id = ? OR users.id IN (?))", *facultyID, reportedIn)
	}

	var rows []models.LecturerPerformance
	if err := query.Group("users.id, users.full_name").Order("report_count DESC, users.full_name ASC").Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to get lecturer performance: %w", err)
	}
	return rows, nil
}

func (r *dashboardRepository) RecentReports(ctx context.Context, tx *gorm.DB, facultyID *uint, limit int) ([]*models.Report, error) {
	if limit <= 0 {
		limit = 10
	}
	var reports []*models.Report
	query := r.getDB(tx).WithContext(ctx).Model(&models.Report{}).
		Preload("Class").Preload("Course").Preload("Lecturer")
	query = applyFacultyScope(query, "faculty_id", facultyID)
	if err := query.Order("created_at DESC").Limit(limit).Find(&reports).Error; err != nil {
		return nil, fmt.Errorf("failed to get recent reports: %w", err)
	}
	return reports, nil
}
