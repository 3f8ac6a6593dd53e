package postgres

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/luct-edu/lecture-reporting-service/internal/cache"
	"github.com/luct-edu/lecture-reporting-service/internal/models"
	"github.com/luct-edu/lecture-reporting-service/internal/repositories"
)

type ClassPostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
	inv          *invalidations
}

func NewClassPostgreSQL(db *gorm.DB, cm *cache.CacheManager) repositories.ClassRepository {
	return &ClassPostgreSQL{db: db, cacheManager: cm, inv: immediateInvalidations(cm)}
}

func (c *ClassPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return c.db
}

func (c *ClassPostgreSQL) Create(ctx context.Context, tx *gorm.DB, class *models.Class) error {
	if err := c.getDB(tx).WithContext(ctx).Create(class).Error; err != nil {
		return wrapWriteError("failed to create class", err)
	}
	c.inv.class(ctx, class.ID)
	return nil
}

// GetByID retrieves a class with its course and lecturer, cached
func (c *ClassPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Class, error) {
	var class models.Class
	err := c.cacheManager.Class.CacheOrExecute(ctx, fmt.Sprintf("id:%d", id), &class, cache.ClassCacheConfig.TTL, func() (interface{}, error) {
		var dbClass models.Class
		err := c.getDB(tx).WithContext(ctx).
			Preload("Course").
			Preload("Lecturer").
			First(&dbClass, id).Error
		if err != nil {
			return nil, fmt.Errorf("failed to get class: %w", err)
		}
		return &dbClass, nil
	})
	if err != nil {
		return nil, err
	}
	return &class, nil
}

func (c *ClassPostgreSQL) Update(ctx context.Context, tx *gorm.DB, class *models.Class) error {
	err := c.getDB(tx).WithContext(ctx).Model(&models.Class{}).Where("id = ?", class.ID).Updates(map[string]interface{}{
		"class_code":       class.ClassCode,
		"course_id":        class.CourseID,
		"lecturer_id":      class.LecturerID,
		"venue":            class.Venue,
		"scheduled_time":   class.ScheduledTime,
		"total_registered": class.TotalRegistered,
	}).Error
	if err != nil {
		return wrapWriteError("failed to update class", err)
	}
	c.inv.class(ctx, class.ID)
	return nil
}

func (c *ClassPostgreSQL) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	result := c.getDB(tx).WithContext(ctx).Delete(&models.Class{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete class: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("failed to delete class: %w", gorm.ErrRecordNotFound)
	}
	c.inv.class(ctx, id)
	return nil
}

func (c *ClassPostgreSQL) List(ctx context.Context, tx *gorm.DB, filters repositories.ClassFilters) ([]*models.Class, int64, error) {
	query := c.getDB(tx).WithContext(ctx).Model(&models.Class{}).
		Joins("JOIN courses ON courses.id = classes.course_id AND courses.deleted_at IS NULL")

	query = c.applyScope(query, filters.Scope)
	if filters.CourseID != nil {
		query = query.Where("classes.course_id = ?", *filters.CourseID)
	}
	if filters.LecturerID != nil {
		query = query.Where("classes.lecturer_id = ?", *filters.LecturerID)
	}
	if q := strings.TrimSpace(filters.Search); q != "" {
		p := likePattern(q)
		query = query.Where("classes.class_code ILIKE ? OR courses.name ILIKE ?", p, p)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count classes: %w", err)
	}

	var classes []*models.Class
	query = ApplyPaginationAndSort(query.Preload("Course").Preload("Lecturer"), "classes", "class_code", "asc", filters.Limit, filters.Offset)
	if err := query.Find(&classes).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list classes: %w", err)
	}
	return classes, total, nil
}

func (c *ClassPostgreSQL) applyScope(query *gorm.DB, scope repositories.Scope) *gorm.DB {
	if scope.LecturerID != nil {
		query = query.Where("classes.lecturer_id = ?", *scope.LecturerID)
	}
	if scope.FacultyID != nil {
		query = query.Where("courses.faculty_id = ?", *scope.FacultyID)
	}
	if scope.StudentID != nil {
		query = query.Where("classes.id IN (?)",
			c.db.Model(&models.Enrollment{}).Select("class_id").Where("student_id = ?", *scope.StudentID))
	}
	return query
}

func (c *ClassPostgreSQL) ExistsByCode(ctx context.Context, tx *gorm.DB, code string, excludeID *uint) (bool, error) {
	query := c.getDB(tx).WithContext(ctx).Model(&models.Class{}).Where("class_code = ?", code)
	if excludeID != nil {
		query = query.Where("id <> ?", *excludeID)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check class code: %w", err)
	}
	return count > 0, nil
}

func (c *ClassPostgreSQL) HasReports(ctx context.Context, tx *gorm.DB, id uint) (bool, error) {
	var count int64
	if err := c.getDB(tx).WithContext(ctx).Model(&models.Report{}).Where("class_id = ?", id).Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to count class reports: %w", err)
	}
	return count > 0, nil
}

// Enroll adds a student to a class; false means the student was already enrolled.
// total_registered never drops below the enrolled head count.
func (c *ClassPostgreSQL) Enroll(ctx context.Context, tx *gorm.DB, classID, studentID uint) (bool, error) {
	db := c.getDB(tx).WithContext(ctx)
	result := db.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.Enrollment{ClassID: classID, StudentID: studentID})
	if result.Error != nil {
		return false, fmt.Errorf("failed to enroll student: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return false, nil
	}

	headCount := db.Session(&gorm.Session{NewDB: true}).Model(&models.Enrollment{}).
		Select("COUNT(*)").Where("class_id = ?", classID)
	err := db.Model(&models.Class{}).
		Where("id = ? AND total_registered < (?)", classID, headCount).
		UpdateColumn("total_registered", headCount).Error
	if err != nil {
		return false, fmt.Errorf("failed to update class registration: %w", err)
	}

	c.inv.enrollment(ctx, classID)
	return true, nil
}

func (c *ClassPostgreSQL) Unenroll(ctx context.Context, tx *gorm.DB, classID, studentID uint) error {
	result := c.getDB(tx).WithContext(ctx).
		Where("class_id = ? AND student_id = ?", classID, studentID).
		Delete(&models.Enrollment{})
	if result.Error != nil {
		return fmt.Errorf("failed to unenroll student: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("enrollment not found: %w", gorm.ErrRecordNotFound)
	}
	c.inv.enrollment(ctx, classID)
	return nil
}

func (c *ClassPostgreSQL) IsEnrolled(ctx context.Context, tx *gorm.DB, classID, studentID uint) (bool, error) {
	var count int64
	err := c.getDB(tx).WithContext(ctx).Model(&models.Enrollment{}).
		Where("class_id = ? AND student_id = ?", classID, studentID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check enrollment: %w", err)
	}
	return count > 0, nil
}

func (c *ClassPostgreSQL) ListStudents(ctx context.Context, tx *gorm.DB, classID uint) ([]*models.User, error) {
	var students []*models.User
	err := c.getDB(tx).WithContext(ctx).
		Joins("JOIN enrollments ON enrollments.student_id = users.id").
		Where("enrollments.class_id = ?", classID).
		Order("users.full_name ASC").
		Find(&students).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list class students: %w", err)
	}
	return students, nil
}

func (c *ClassPostgreSQL) ListByStudent(ctx context.Context, tx *gorm.DB, studentID uint) ([]*models.Class, error) {
	var classes []*models.Class
	err := c.getDB(tx).WithContext(ctx).
		Joins("JOIN enrollments ON enrollments.class_id = classes.id").
		Where("enrollments.student_id = ?", studentID).
		Preload("Course").
		Preload("Lecturer").
		Order("classes.class_code ASC").
		Find(&classes).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list student classes: %w", err)
	}
	return classes, nil
}
