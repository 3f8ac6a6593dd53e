package postgres

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/luct-edu/lecture-reporting-service/internal/models"
	"github.com/luct-edu/lecture-reporting-service/internal/repositories"
)

type CoursePostgreSQL struct {
	db *gorm.DB
}

func NewCoursePostgreSQL(db *gorm.DB) repositories.CourseRepository {
	return &CoursePostgreSQL{db: db}
}

func (c *CoursePostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return c.db
}

func (c *CoursePostgreSQL) Create(ctx context.Context, tx *gorm.DB, course *models.Course) error {
	return wrapWriteError("failed to create course", c.getDB(tx).WithContext(ctx).Create(course).Error)
}

func (c *CoursePostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Course, error) {
	var course models.Course
	err := c.getDB(tx).WithContext(ctx).
		Preload("Faculty").
		Preload("ProgramLeader").
		First(&course, id).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get course: %w", err)
	}
	return &course, nil
}

func (c *CoursePostgreSQL) Update(ctx context.Context, tx *gorm.DB, course *models.Course) error {
	err := c.getDB(tx).WithContext(ctx).Model(&models.Course{}).Where("id = ?", course.ID).Updates(map[string]interface{}{
		"code":              course.Code,
		"name":              course.Name,
		"faculty_id":        course.FacultyID,
		"program_leader_id": course.ProgramLeaderID,
	}).Error
	return wrapWriteError("failed to update course", err)
}

func (c *CoursePostgreSQL) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	result := c.getDB(tx).WithContext(ctx).Delete(&models.Course{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete course: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("failed to delete course: %w", gorm.ErrRecordNotFound)
	}
	return nil
}

func (c *CoursePostgreSQL) List(ctx context.Context, tx *gorm.DB, filters repositories.CourseFilters) ([]*models.Course, int64, error) {
	query := c.getDB(tx).WithContext(ctx).Model(&models.Course{})
	query = applyFacultyScope(query, "faculty_id", filters.FacultyID)
	if q := strings.TrimSpace(filters.Search); q != "" {
		p := likePattern(q)
		query = query.Where("name ILIKE ? OR code ILIKE ?", p, p)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count courses: %w", err)
	}

	var courses []*models.Course
	query = ApplyPaginationAndSort(query.Preload("Faculty").Preload("ProgramLeader"), "", "code", "asc", filters.Limit, filters.Offset)
	if err := query.Find(&courses).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list courses: %w", err)
	}
	return courses, total, nil
}

func (c *CoursePostgreSQL) ExistsByCode(ctx context.Context, tx *gorm.DB, code string, excludeID *uint) (bool, error) {
	query := c.getDB(tx).WithContext(ctx).Model(&models.Course{}).Where("UPPER(code) = UPPER(?)", code)
	if excludeID != nil {
		query = query.Where("id <> ?", *excludeID)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check course code: %w", err)
	}
	return count > 0, nil
}

func (c *CoursePostgreSQL) HasClasses(ctx context.Context, tx *gorm.DB, id uint) (bool, error) {
	var count int64
	if err := c.getDB(tx).WithContext(ctx).Model(&models.Class{}).Where("course_id = ?", id).Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to count course classes: %w", err)
	}
	return count > 0, nil
}
