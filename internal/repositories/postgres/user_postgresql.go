package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/luct-edu/lecture-reporting-service/internal/cache"
	"github.com/luct-edu/lecture-reporting-service/internal/models"
	"github.com/luct-edu/lecture-reporting-service/internal/repositories"
)

type UserPostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
	inv          *invalidations
}

func NewUserPostgreSQL(db *gorm.DB, cm *cache.CacheManager) repositories.UserRepository {
	return &UserPostgreSQL{db: db, cacheManager: cm, inv: immediateInvalidations(cm)}
}

// getDB returns the transaction DB if provided, otherwise returns the default DB
func (u *UserPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return u.db
}

func (u *UserPostgreSQL) Create(ctx context.Context, tx *gorm.DB, user *models.User) error {
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	return wrapWriteError("failed to create user", u.getDB(tx).WithContext(ctx).Create(user).Error)
}

// GetByID retrieves a user with caching; the auth middleware calls this on every request
func (u *UserPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.User, error) {
	var user models.User
	err := u.cacheManager.User.CacheOrExecute(ctx, fmt.Sprintf("id:%d", id), &user, cache.UserCacheConfig.TTL, func() (interface{}, error) {
		var dbUser models.User
		if err := u.getDB(tx).WithContext(ctx).First(&dbUser, id).Error; err != nil {
			return nil, fmt.Errorf("failed to get user: %w", err)
		}
		return &dbUser, nil
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetCredentials bypasses the cache; cached users are JSON and drop the hash
func (u *UserPostgreSQL) GetCredentials(ctx context.Context, tx *gorm.DB, id uint) (*models.User, error) {
	var user models.User
	if err := u.getDB(tx).WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, fmt.Errorf("failed to get user credentials: %w", err)
	}
	return &user, nil
}

func (u *UserPostgreSQL) GetByEmail(ctx context.Context, tx *gorm.DB, email string) (*models.User, error) {
	var user models.User
	err := u.getDB(tx).WithContext(ctx).
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&user).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return &user, nil
}

func (u *UserPostgreSQL) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uint) ([]*models.User, error) {
	if len(ids) == 0 {
		return []*models.User{}, nil
	}
	var users []*models.User
	if err := u.getDB(tx).WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to get users: %w", err)
	}
	return users, nil
}

func (u *UserPostgreSQL) Update(ctx context.Context, tx *gorm.DB, user *models.User) error {
	err := u.getDB(tx).WithContext(ctx).Model(&models.User{}).Where("id = ?", user.ID).Updates(map[string]interface{}{
		"full_name":      user.FullName,
		"role":           user.Role,
		"faculty_id":     user.FacultyID,
		"student_number": user.StudentNumber,
		"is_active":      user.IsActive,
		"updated_at":     time.Now(),
	}).Error
	if err != nil {
		return wrapWriteError("failed to update user", err)
	}

	u.inv.user(ctx, user.ID)
	return nil
}

func (u *UserPostgreSQL) UpdatePassword(ctx context.Context, tx *gorm.DB, id uint, passwordHash string) error {
	if err := u.getDB(tx).WithContext(ctx).Model(&models.User{}).Where("id = ?", id).
		Update("password_hash", passwordHash).Error; err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	u.inv.user(ctx, id)
	return nil
}

func (u *UserPostgreSQL) TouchLastLogin(ctx context.Context, tx *gorm.DB, id uint, at time.Time) error {
	if err := u.getDB(tx).WithContext(ctx).Model(&models.User{}).Where("id = ?", id).
		UpdateColumn("last_login_at", at).Error; err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}
	u.inv.user(ctx, id)
	return nil
}

// Delete soft deletes a user
func (u *UserPostgreSQL) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	result := u.getDB(tx).WithContext(ctx).Delete(&models.User{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete user: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("failed to delete user: %w", gorm.ErrRecordNotFound)
	}
	u.inv.user(ctx, id)
	return nil
}

func (u *UserPostgreSQL) List(ctx context.Context, tx *gorm.DB, filters repositories.UserFilters) ([]*models.User, int64, error) {
	query := u.getDB(tx).WithContext(ctx).Model(&models.User{})

	if filters.Role != nil {
		query = query.Where("role = ?", *filters.Role)
	}
	if filters.FacultyID != nil {
		query = query.Where("faculty_id = ?", *filters.FacultyID)
	}
	if q := strings.TrimSpace(filters.Query); q != "" {
		p := likePattern(q)
		query = query.Where("full_name ILIKE ? OR email ILIKE ? OR student_number ILIKE ?", p, p, p)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	var users []*models.User
	query = ApplyPaginationAndSort(query, "", "full_name", "asc", filters.Limit, filters.Offset)
	if err := query.Find(&users).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}

	return users, total, nil
}

func (u *UserPostgreSQL) ExistsByEmail(ctx context.Context, tx *gorm.DB, email string) (bool, error) {
	var count int64
	err := u.getDB(tx).WithContext(ctx).Unscoped().Model(&models.User{}).
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check email: %w", err)
	}
	return count > 0, nil
}

func (u *UserPostgreSQL) CountByRole(ctx context.Context, tx *gorm.DB, role models.UserRole) (int64, error) {
	var count int64
	if err := u.getDB(tx).WithContext(ctx).Model(&models.User{}).Where("role = ?", role).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count users by role: %w", err)
	}
	return count, nil
}
