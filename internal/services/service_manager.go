package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/luct-edu/lecture-reporting-service/internal/auth"
	"github.com/luct-edu/lecture-reporting-service/internal/cache"
	"github.com/luct-edu/lecture-reporting-service/internal/events"
	"github.com/luct-edu/lecture-reporting-service/internal/metrics"
	"github.com/luct-edu/lecture-reporting-service/internal/repositories"
	"github.com/luct-edu/lecture-reporting-service/internal/validator"
)

// Dependencies are the collaborators shared by every service
type Dependencies struct {
	Repo      repositories.Repository
	Logger    *slog.Logger
	Validator *validator.Validator
	Tokens    *auth.TokenManager
	Hasher    auth.PasswordHasher

	// Optional
	Identity  repositories.IdentityProvider
	Publisher events.EventPublisher
	Metrics   *metrics.Metrics
	Cache     *cache.CacheManager
}

// serviceManager implements ServiceManager interface
type serviceManager struct {
	deps   Dependencies
	logger *slog.Logger

	// Service instances
	authService      AuthService
	userService      UserService
	facultyService   FacultyService
	courseService    CourseService
	classService     ClassService
	reportService    ReportService
	ratingService    RatingService
	dashboardService DashboardService
	studentService   StudentService

	// Lifecycle management
	initialized bool
	shutdown    bool
	mu          sync.RWMutex
}

// NewServiceManager creates a new service manager with all dependencies
func NewServiceManager(deps Dependencies) ServiceManager {
	return &serviceManager{
		deps:   deps,
		logger: deps.Logger,
	}
}

func (sm *serviceManager) Initialize(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.initialized {
		return nil
	}

	sm.logger.Info("Initializing service manager")

	if err := sm.initializeServices(); err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}

	sm.initialized = true
	sm.logger.Info("Service manager initialized successfully", "sso_enabled", sm.deps.Identity != nil)

	return nil
}

func (sm *serviceManager) initializeServices() error {
	d := sm.deps
	switch {
	case d.Repo == nil:
		return fmt.Errorf("repository is required")
	case d.Validator == nil:
		return fmt.Errorf("validator is required")
	case d.Tokens == nil:
		return fmt.Errorf("token manager is required")
	case d.Hasher == nil:
		return fmt.Errorf("password hasher is required")
	}

	sm.authService = NewAuthService(d.Repo, d.Tokens, d.Hasher, d.Identity, d.Logger, d.Validator)
	sm.userService = NewUserService(d.Repo, d.Hasher, d.Logger, d.Validator)
	sm.facultyService = NewFacultyService(d.Repo, d.Logger, d.Validator)
	sm.courseService = NewCourseService(d.Repo, d.Logger, d.Validator)
	sm.classService = NewClassService(d.Repo, d.Logger, d.Validator)
	sm.reportService = NewReportService(d.Repo, d.Logger, d.Validator, d.Publisher, d.Metrics)
	sm.ratingService = NewRatingService(d.Repo, d.Logger, d.Validator, d.Publisher, d.Metrics)
	sm.dashboardService = NewDashboardService(d.Repo, d.Cache, d.Logger)
	sm.studentService = NewStudentService(d.Repo, d.Logger)

	return nil
}

// get guards every getter; using a service before Initialize is a programming error
func (sm *serviceManager) get(name string) {
	if !sm.initialized {
		panic(fmt.Sprintf("service manager not initialized: %s service requested", name))
	}
}

func (sm *serviceManager) Auth() AuthService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.get("auth")
	return sm.authService
}

func (sm *serviceManager) User() UserService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.get("user")
	return sm.userService
}

func (sm *serviceManager) Faculty() FacultyService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.get("faculty")
	return sm.facultyService
}

func (sm *serviceManager) Course() CourseService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.get("course")
	return sm.courseService
}

func (sm *serviceManager) Class() ClassService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.get("class")
	return sm.classService
}

func (sm *serviceManager) Report() ReportService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.get("report")
	return sm.reportService
}

func (sm *serviceManager) Rating() RatingService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.get("rating")
	return sm.ratingService
}

func (sm *serviceManager) Dashboard() DashboardService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.get("dashboard")
	return sm.dashboardService
}

func (sm *serviceManager) Student() StudentService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.get("student")
	return sm.studentService
}

func (sm *serviceManager) HealthCheck(ctx context.Context) error {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		return fmt.Errorf("service manager not initialized")
	}

	if sm.shutdown {
		return fmt.Errorf("service manager is shut down")
	}

	if err := sm.deps.Repo.Ping(ctx); err != nil {
		return fmt.Errorf("repository health check failed: %w", err)
	}

	return nil
}

// Shutdown closes the event publisher. The repository is owned by the caller.
func (sm *serviceManager) Shutdown(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.shutdown {
		return nil
	}

	sm.logger.Info("Shutting down service manager")

	var err error
	if sm.deps.Publisher != nil {
		if cerr := sm.deps.Publisher.Close(); cerr != nil {
			sm.logger.Error("Failed to close event publisher", "error", cerr)
			err = fmt.Errorf("failed to close event publisher: %w", cerr)
		}
	}

	sm.shutdown = true
	sm.logger.Info("Service manager shut down completed")

	return err
}
