package repositories

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/luct-edu/lecture-reporting-service/internal/models"
)

// UserFilters defines filters for user queries
type UserFilters struct {
	Role      *models.UserRole // Exact role match
	FacultyID *uint
	Query     string // Search query for name, email or student number
	Limit     int    // Page size
	Offset    int    // Offset for pagination
}

// UserRepository is the store of local accounts
type UserRepository interface {
	Create(ctx context.Context, tx *gorm.DB, user *models.User) error
	// GetByID may be served from cache and never carries PasswordHash
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.User, error)
	// GetCredentials always reads the row, hash included
	GetCredentials(ctx context.Context, tx *gorm.DB, id uint) (*models.User, error)
	GetByEmail(ctx context.Context, tx *gorm.DB, email string) (*models.User, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, ids []uint) ([]*models.User, error)
	Update(ctx context.Context, tx *gorm.DB, user *models.User) error
	UpdatePassword(ctx context.Context, tx *gorm.DB, id uint, passwordHash string) error
	TouchLastLogin(ctx context.Context, tx *gorm.DB, id uint, at time.Time) error
	Delete(ctx context.Context, tx *gorm.DB, id uint) error

	List(ctx context.Context, tx *gorm.DB, filters UserFilters) ([]*models.User, int64, error)

	// Validation and checks
	ExistsByEmail(ctx context.Context, tx *gorm.DB, email string) (bool, error)
	CountByRole(ctx context.Context, tx *gorm.DB, role models.UserRole) (int64, error)
}
