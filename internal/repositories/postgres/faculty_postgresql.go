package postgres

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/luct-edu/lecture-reporting-service/internal/models"
	"github.com/luct-edu/lecture-reporting-service/internal/repositories"
)

type FacultyPostgreSQL struct {
	db *gorm.DB
}

func NewFacultyPostgreSQL(db *gorm.DB) repositories.FacultyRepository {
	return &FacultyPostgreSQL{db: db}
}

func (f *FacultyPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return f.db
}

func (f *FacultyPostgreSQL) Create(ctx context.Context, tx *gorm.DB, faculty *models.Faculty) error {
	return wrapWriteError("failed to create faculty", f.getDB(tx).WithContext(ctx).Create(faculty).Error)
}

func (f *FacultyPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Faculty, error) {
	var faculty models.Faculty
	if err := f.getDB(tx).WithContext(ctx).First(&faculty, id).Error; err != nil {
		return nil, fmt.Errorf("failed to get faculty: %w", err)
	}
	return &faculty, nil
}

func (f *FacultyPostgreSQL) Update(ctx context.Context, tx *gorm.DB, faculty *models.Faculty) error {
	err := f.getDB(tx).WithContext(ctx).Model(&models.Faculty{}).Where("id = ?", faculty.ID).
		Updates(map[string]interface{}{"name": faculty.Name, "code": faculty.Code}).Error
	return wrapWriteError("failed to update faculty", err)
}

func (f *FacultyPostgreSQL) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	result := f.getDB(tx).WithContext(ctx).Delete(&models.Faculty{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete faculty: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("failed to delete faculty: %w", gorm.ErrRecordNotFound)
	}
	return nil
}

func (f *FacultyPostgreSQL) List(ctx context.Context, tx *gorm.DB, filters repositories.FacultyFilters) ([]*models.Faculty, int64, error) {
	query := f.getDB(tx).WithContext(ctx).Model(&models.Faculty{})
	if q := strings.TrimSpace(filters.Search); q != "" {
		p := likePattern(q)
		query = query.Where("name ILIKE ? OR code ILIKE ?", p, p)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count faculties: %w", err)
	}

	var faculties []*models.Faculty
	if err := ApplyPaginationAndSort(query, "", "name", "asc", filters.Limit, filters.Offset).Find(&faculties).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list faculties: %w", err)
	}
	return faculties, total, nil
}

func (f *FacultyPostgreSQL) HasCourses(ctx context.Context, tx *gorm.DB, id uint) (bool, error) {
	var count int64
	if err := f.getDB(tx).WithContext(ctx).Model(&models.Course{}).Where("faculty_id = ?", id).Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to count faculty courses: %w", err)
	}
	return count > 0, nil
}
