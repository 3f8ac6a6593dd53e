package repositories

import (
	"context"

	"gorm.io/gorm"
)

// Repository aggregates every store the services use
type Repository interface {
	// People
	User() UserRepository

	// Academic structure
	Faculty() FacultyRepository
	Course() CourseRepository
	Class() ClassRepository

	// Reporting
	Report() ReportRepository
	Rating() RatingRepository

	// Monitoring
	Dashboard() DashboardRepository
	DomainEvent() DomainEventRepository

	// DB returns the underlying handle, a transaction inside WithTransaction
	DB() *gorm.DB

	// Transaction support
	WithTransaction(ctx context.Context, fn func(Repository) error) error

	// Health check
	Ping(ctx context.Context) error

	// Close connections
	Close() error
}

// RepositoryManager interface for managing repository lifecycle
type RepositoryManager interface {
	// Initialize repositories with database connections
	Initialize() error

	// Get repository instance
	GetRepository() Repository

	// Health check for all repositories
	HealthCheck(ctx context.Context) error

	// Graceful shutdown
	Shutdown(ctx context.Context) error
}
