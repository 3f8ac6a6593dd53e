package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/luct-edu/lecture-reporting-service/internal/cache"
	"github.com/luct-edu/lecture-reporting-service/internal/models"
	"github.com/luct-edu/lecture-reporting-service/internal/repositories"
)

type RatingPostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
	inv          *invalidations
}

func NewRatingPostgreSQL(db *gorm.DB, cm *cache.CacheManager) repositories.RatingRepository {
	return &RatingPostgreSQL{db: db, cacheManager: cm, inv: immediateInvalidations(cm)}
}

func (r *RatingPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *RatingPostgreSQL) Create(ctx context.Context, tx *gorm.DB, rating *models.Rating) error {
	if err := r.getDB(tx).WithContext(ctx).Omit("Class", "Student", "Report").Create(rating).Error; err != nil {
		return wrapWriteError("failed to create rating", err)
	}
	r.inv.stats(ctx)
	return nil
}

// Exists checks for a rating by the same student on the same class and report.
// A nil reportID matches only class-level ratings.
func (r *RatingPostgreSQL) Exists(ctx context.Context, tx *gorm.DB, classID, studentID uint, reportID *uint) (bool, error) {
	query := r.getDB(tx).WithContext(ctx).Model(&models.Rating{}).
		Where("class_id = ? AND student_id = ?", classID, studentID)
	if reportID != nil {
		query = query.Where("report_id = ?", *reportID)
	} else {
		query = query.Where("report_id IS NULL")
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check rating: %w", err)
	}
	return count > 0, nil
}

func (r *RatingPostgreSQL) List(ctx context.Context, tx *gorm.DB, filters repositories.RatingFilters) ([]*models.Rating, int64, error) {
	query := r.getDB(tx).WithContext(ctx).Model(&models.Rating{})

	scope := filters.Scope
	if scope.StudentID != nil {
		query = query.Where("ratings.student_id = ?", *scope.StudentID)
	}
	if scope.LecturerID != nil {
		query = query.Where("ratings.class_id IN (?)",
			r.db.Model(&models.Class{}).Select("id").Where("lecturer_id = ?", *scope.LecturerID))
	}
	if scope.FacultyID != nil {
		query = query.Where("ratings.class_id IN (?)",
			r.db.Model(&models.Class{}).Select("classes.id").
				Joins("JOIN courses ON courses.id = classes.course_id").
				Where("courses.faculty_id = ?", *scope.FacultyID))
	}
	if filters.ClassID != nil {
		query = query.Where("ratings.class_id = ?", *filters.ClassID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count ratings: %w", err)
	}

	var ratings []*models.Rating
	query = ApplyPaginationAndSort(query.Preload("Class").Preload("Student"), "ratings", "created_at", "desc", filters.Limit, filters.Offset)
	if err := query.Find(&ratings).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list ratings: %w", err)
	}
	return ratings, total, nil
}

func (r *RatingPostgreSQL) Summary(ctx context.Context, tx *gorm.DB, classID uint) (*models.RatingSummary, error) {
	var rows []struct {
		Score int
		Count int64
	}
	err := r.getDB(tx).WithContext(ctx).Model(&models.Rating{}).
		Select("score, COUNT(*) AS count").
		Where("class_id = ?", classID).
		Group("score").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to summarise ratings: %w", err)
	}

	summary := &models.RatingSummary{ClassID: classID, Distribution: make(map[int]int64, models.MaxRatingScore)}
	for s := models.MinRatingScore; s <= models.MaxRatingScore; s++ {
		summary.Distribution[s] = 0
	}

	var sum int64
	for _, row := range rows {
		summary.Distribution[row.Score] = row.Count
		summary.Count += row.Count
		sum += int64(row.Score) * row.Count
	}
	if summary.Count > 0 {
		summary.Average = float64(sum) / float64(summary.Count)
	}
	return summary, nil
}
