package postgres

import (
	"context"
	"crypto/sha1"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/luct-edu/lecture-reporting-service/internal/cache"
	"github.com/luct-edu/lecture-reporting-service/internal/models"
	"github.com/luct-edu/lecture-reporting-service/internal/repositories"
)

type ReportPostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
	inv          *invalidations
}

func NewReportPostgreSQL(db *gorm.DB, cm *cache.CacheManager) repositories.ReportRepository {
	return &ReportPostgreSQL{db: db, cacheManager: cm, inv: immediateInvalidations(cm)}
}

func (r *ReportPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

// Create inserts a report; the (class_id, week) unique index surfaces as ErrDuplicate
func (r *ReportPostgreSQL) Create(ctx context.Context, tx *gorm.DB, report *models.Report) error {
	if err := r.getDB(tx).WithContext(ctx).Omit("Faculty", "Class", "Course", "Lecturer", "Feedback").Create(report).Error; err != nil {
		return wrapWriteError("failed to create report", err)
	}
	r.inv.report(ctx, 0)
	return nil
}

func (r *ReportPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Report, error) {
	var report models.Report
	if err := r.getDB(tx).WithContext(ctx).First(&report, id).Error; err != nil {
		return nil, fmt.Errorf("failed to get report: %w", err)
	}
	return &report, nil
}

// GetByIDWithDetails loads the report with class, course, lecturer and feedback, cached
func (r *ReportPostgreSQL) GetByIDWithDetails(ctx context.Context, tx *gorm.DB, id uint) (*models.Report, error) {
	var report models.Report
	err := r.cacheManager.Report.CacheOrExecute(ctx, fmt.Sprintf("id:%d", id), &report, cache.ReportCacheConfig.TTL, func() (interface{}, error) {
		var dbReport models.Report
		err := r.getDB(tx).WithContext(ctx).
			Preload("Faculty").
			Preload("Class").
			Preload("Course").
			Preload("Lecturer").
			Preload("Feedback", func(db *gorm.DB) *gorm.DB {
				return db.Order("feedback.created_at ASC")
			}).
			Preload("Feedback.Reviewer").
			First(&dbReport, id).Error
		if err != nil {
			return nil, fmt.Errorf("failed to get report details: %w", err)
		}
		return &dbReport, nil
	})
	if err != nil {
		return nil, err
	}
	return &report, nil
}

func (r *ReportPostgreSQL) Update(ctx context.Context, tx *gorm.DB, report *models.Report) error {
	err := r.getDB(tx).WithContext(ctx).Model(&models.Report{}).Where("id = ?", report.ID).Updates(map[string]interface{}{
		"week":              report.Week,
		"lecture_date":      report.LectureDate,
		"students_present":  report.StudentsPresent,
		"total_registered":  report.TotalRegistered,
		"venue":             report.Venue,
		"scheduled_time":    report.ScheduledTime,
		"topic":             report.Topic,
		"learning_outcomes": report.LearningOutcomes,
		"recommendations":   report.Recommendations,
		"updated_at":        time.Now(),
	}).Error
	if err != nil {
		return wrapWriteError("failed to update report", err)
	}
	r.inv.report(ctx, report.ID)
	return nil
}

func (r *ReportPostgreSQL) UpdateStatus(ctx context.Context, tx *gorm.DB, id uint, status models.ReportStatus) error {
	err := r.getDB(tx).WithContext(ctx).Model(&models.Report{}).Where("id = ?", id).
		Updates(map[string]interface{}{"status": status, "updated_at": time.Now()}).Error
	if err != nil {
		return fmt.Errorf("failed to update report status: %w", err)
	}
	r.inv.report(ctx, id)
	return nil
}

// Delete hard deletes a report with its feedback and ratings
func (r *ReportPostgreSQL) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	db := r.getDB(tx).WithContext(ctx)
	if err := db.Where("report_id = ?", id).Delete(&models.Feedback{}).Error; err != nil {
		return fmt.Errorf("failed to delete report feedback: %w", err)
	}
	if err := db.Where("report_id = ?", id).Delete(&models.Rating{}).Error; err != nil {
		return fmt.Errorf("failed to delete report ratings: %w", err)
	}
	result := db.Unscoped().Delete(&models.Report{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete report: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("failed to delete report: %w", gorm.ErrRecordNotFound)
	}
	r.inv.report(ctx, id)
	return nil
}

type reportPage struct {
	Items []*models.Report `json:"items"`
	Total int64            `json:"total"`
}

// List retrieves reports with filters and pagination. Pages are cached under report:list:<hash>.
func (r *ReportPostgreSQL) List(ctx context.Context, tx *gorm.DB, filters repositories.ReportFilters) ([]*models.Report, int64, error) {
	var page reportPage
	err := r.cacheManager.Report.CacheOrExecute(ctx, "list:"+filterKey(filters), &page, cache.ReportCacheConfig.TTL, func() (interface{}, error) {
		items, total, err := r.list(ctx, tx, filters)
		if err != nil {
			return nil, err
		}
		return &reportPage{Items: items, Total: total}, nil
	})
	if err != nil {
		return nil, 0, err
	}
	return page.Items, page.Total, nil
}

func (r *ReportPostgreSQL) list(ctx context.Context, tx *gorm.DB, filters repositories.ReportFilters) ([]*models.Report, int64, error) {
	query := r.getDB(tx).WithContext(ctx).Model(&models.Report{})
	query = r.applyFilters(query, filters)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count reports: %w", err)
	}

	var reports []*models.Report
	query = query.Preload("Faculty").Preload("Class").Preload("Course").Preload("Lecturer")
	query = ApplyPaginationAndSort(query, "reports", filters.SortBy, filters.SortOrder, filters.Limit, filters.Offset)
	if err := query.Find(&reports).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list reports: %w", err)
	}
	return reports, total, nil
}

func (r *ReportPostgreSQL) applyFilters(query *gorm.DB, filters repositories.ReportFilters) *gorm.DB {
	scope := filters.Scope
	if scope.LecturerID != nil {
		query = query.Where("reports.lecturer_id = ?", *scope.LecturerID)
	}
	query = applyFacultyScope(query, "reports.faculty_id", scope.FacultyID)
	if scope.StudentID != nil {
		query = query.Where("reports.class_id IN (?)",
			r.db.Model(&models.Enrollment{}).Select("class_id").Where("student_id = ?", *scope.StudentID))
	}

	if filters.Status != nil {
		query = query.Where("reports.status = ?", *filters.Status)
	}
	if filters.Week != nil {
		query = query.Where("reports.week = ?", *filters.Week)
	}
	if filters.ClassID != nil {
		query = query.Where("reports.class_id = ?", *filters.ClassID)
	}
	if filters.CourseID != nil {
		query = query.Where("reports.course_id = ?", *filters.CourseID)
	}
	if filters.LecturerID != nil {
		query = query.Where("reports.lecturer_id = ?", *filters.LecturerID)
	}
	query = applyFacultyScope(query, "reports.faculty_id", filters.FacultyID)
	if filters.DateFrom != nil {
		query = query.Where("reports.lecture_date >= ?", filters.DateFrom.Format("2006-01-02"))
	}
	if filters.DateTo != nil {
		query = query.Where("reports.lecture_date <= ?", filters.DateTo.Format("2006-01-02"))
	}
	if q := strings.TrimSpace(filters.Search); q != "" {
		p := likePattern(q)
		query = query.
			Joins("JOIN classes ON classes.id = reports.class_id").
			Joins("JOIN courses ON courses.id = reports.course_id").
			Where("reports.topic ILIKE ? OR classes.class_code ILIKE ? OR courses.name ILIKE ?", p, p, p)
	}
	return query
}

func (r *ReportPostgreSQL) ExistsForWeek(ctx context.Context, tx *gorm.DB, classID uint, week int, excludeID *uint) (bool, error) {
	query := r.getDB(tx).WithContext(ctx).Model(&models.Report{}).Where("class_id = ? AND week = ?", classID, week)
	if excludeID != nil {
		query = query.Where("id <> ?", *excludeID)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check report week: %w", err)
	}
	return count > 0, nil
}

func (r *ReportPostgreSQL) ListByClasses(ctx context.Context, tx *gorm.DB, classIDs []uint) ([]*models.Report, error) {
	if len(classIDs) == 0 {
		return []*models.Report{}, nil
	}
	var reports []*models.Report
	err := r.getDB(tx).WithContext(ctx).
		Where("class_id IN ?", classIDs).
		Order("class_id ASC, week ASC").
		Find(&reports).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list class reports: %w", err)
	}
	return reports, nil
}

// ===== FEEDBACK =====

func (r *ReportPostgreSQL) AddFeedback(ctx context.Context, tx *gorm.DB, feedback *models.Feedback) error {
	if err := r.getDB(tx).WithContext(ctx).Omit("Reviewer").Create(feedback).Error; err != nil {
		return fmt.Errorf("failed to add feedback: %w", err)
	}
	r.inv.report(ctx, feedback.ReportID)
	return nil
}

func (r *ReportPostgreSQL) ListFeedback(ctx context.Context, tx *gorm.DB, reportID uint) ([]*models.Feedback, error) {
	var feedback []*models.Feedback
	err := r.getDB(tx).WithContext(ctx).
		Preload("Reviewer").
		Where("report_id = ?", reportID).
		Order("created_at ASC").
		Find(&feedback).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list feedback: %w", err)
	}
	return feedback, nil
}

func (r *ReportPostgreSQL) CountFeedback(ctx context.Context, tx *gorm.DB, reportIDs []uint) (map[uint]int64, error) {
	counts := make(map[uint]int64, len(reportIDs))
	if len(reportIDs) == 0 {
		return counts, nil
	}

	var rows []struct {
		ReportID uint
		Count    int64
	}
	err := r.getDB(tx).WithContext(ctx).Model(&models.Feedback{}).
		Select("report_id, COUNT(*) AS count").
		Where("report_id IN ?", reportIDs).
		Group("report_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count feedback: %w", err)
	}
	for _, row := range rows {
		counts[row.ReportID] = row.Count
	}
	return counts, nil
}

// filterKey hashes a filter struct into a stable cache key
func filterKey(v interface{}) string {
	data, _ := json.Marshal(v)
	return fmt.Sprintf("%x", sha1.Sum(data))
}
