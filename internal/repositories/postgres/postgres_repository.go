package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/luct-edu/lecture-reporting-service/internal/cache"
	"github.com/luct-edu/lecture-reporting-service/internal/repositories"
)

const connectTimeout = 5 * time.Second

// RepositoryConfig carries the connections the stores are built on
type RepositoryConfig struct {
	DB          *gorm.DB
	RedisClient *redis.Client

	// Shared with the services when set; built from RedisClient otherwise
	Cache *cache.CacheManager
}

// PostgreSQLRepository is the gorm-backed Repository. Inside WithTransaction
// a copy bound to the transaction handle is passed to the callback.
type PostgreSQLRepository struct {
	db     *gorm.DB
	redis  *redis.Client
	caches *cache.CacheManager
	inv    *invalidations

	users       repositories.UserRepository
	faculties   repositories.FacultyRepository
	courses     repositories.CourseRepository
	classes     repositories.ClassRepository
	reports     repositories.ReportRepository
	ratings     repositories.RatingRepository
	dashboard   repositories.DashboardRepository
	domainEvent repositories.DomainEventRepository
}

func NewPostgreSQLRepository(config RepositoryConfig) repositories.Repository {
	caches := config.Cache
	if caches == nil {
		caches = cache.NewCacheManager(config.RedisClient)
	}
	return bind(config.DB, config.RedisClient, caches, immediateInvalidations(caches))
}

// bind builds the stores over db. Transaction-bound stores read straight from
// the database and hold their invalidations until commit.
func bind(db *gorm.DB, rdb *redis.Client, caches *cache.CacheManager, inv *invalidations) *PostgreSQLRepository {
	reads := caches
	if inv.held {
		reads = cache.NewCacheManager(nil)
	}
	return &PostgreSQLRepository{
		db:          db,
		redis:       rdb,
		caches:      caches,
		inv:         inv,
		users:       &UserPostgreSQL{db: db, cacheManager: reads, inv: inv},
		faculties:   NewFacultyPostgreSQL(db),
		courses:     NewCoursePostgreSQL(db),
		classes:     &ClassPostgreSQL{db: db, cacheManager: reads, inv: inv},
		reports:     &ReportPostgreSQL{db: db, cacheManager: reads, inv: inv},
		ratings:     &RatingPostgreSQL{db: db, cacheManager: reads, inv: inv},
		dashboard:   NewDashboardRepository(db),
		domainEvent: NewDomainEventPostgreSQL(db),
	}
}

func (r *PostgreSQLRepository) User() repositories.UserRepository               { return r.users }
func (r *PostgreSQLRepository) Faculty() repositories.FacultyRepository         { return r.faculties }
func (r *PostgreSQLRepository) Course() repositories.CourseRepository           { return r.courses }
func (r *PostgreSQLRepository) Class() repositories.ClassRepository             { return r.classes }
func (r *PostgreSQLRepository) Report() repositories.ReportRepository           { return r.reports }
func (r *PostgreSQLRepository) Rating() repositories.RatingRepository           { return r.ratings }
func (r *PostgreSQLRepository) Dashboard() repositories.DashboardRepository     { return r.dashboard }
func (r *PostgreSQLRepository) DomainEvent() repositories.DomainEventRepository { return r.domainEvent }
func (r *PostgreSQLRepository) DB() *gorm.DB                                    { return r.db }

// WithTransaction runs fn in a transaction and applies the cache invalidations
// it queued once the outermost transaction commits.
func (r *PostgreSQLRepository) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	inv := r.inv
	if !inv.held {
		inv = heldInvalidations(r.caches)
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(bind(tx, r.redis, r.caches, inv))
	})
	if err != nil {
		return err
	}

	if inv != r.inv {
		inv.flush(ctx)
	}
	return nil
}

// Ping checks only the database; /health probes Redis on its own
func (r *PostgreSQLRepository) Ping(ctx context.Context) error {
	return pingDB(ctx, r.db)
}

// Close releases the pool and, when present, the Redis client
func (r *PostgreSQLRepository) Close() error {
	sqlDB, err := sqlHandle(r.db)
	if err != nil {
		return err
	}

	var errs []error
	if err := sqlDB.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close postgres: %w", err))
	}
	if r.redis != nil {
		if err := r.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	return errors.Join(errs...)
}

func sqlHandle(db *gorm.DB) (*sql.DB, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("postgres handle: %w", err)
	}
	return sqlDB, nil
}

func pingDB(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := sqlHandle(db)
	if err != nil {
		return err
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("postgres ping: %w", err)
	}
	return nil
}

// RepositoryManager owns the repository lifecycle for main
type RepositoryManager struct {
	config RepositoryConfig
	repo   repositories.Repository
}

func NewRepositoryManager(config RepositoryConfig) repositories.RepositoryManager {
	return &RepositoryManager{config: config}
}

// Initialize verifies the database answers before building the stores.
// Redis is optional and was already probed when its client was created.
func (rm *RepositoryManager) Initialize() error {
	if rm.config.DB == nil {
		return errors.New("repository: database connection is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := pingDB(ctx, rm.config.DB); err != nil {
		return err
	}

	rm.repo = NewPostgreSQLRepository(rm.config)
	return nil
}

func (rm *RepositoryManager) GetRepository() repositories.Repository {
	return rm.repo
}

func (rm *RepositoryManager) HealthCheck(ctx context.Context) error {
	if rm.repo == nil {
		return errors.New("repository: not initialized")
	}
	return rm.repo.Ping(ctx)
}

func (rm *RepositoryManager) Shutdown(ctx context.Context) error {
	if rm.repo == nil {
		return nil
	}
	return rm.repo.Close()
}
