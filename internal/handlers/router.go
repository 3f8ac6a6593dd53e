package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/luct-edu/lecture-reporting-service/internal/cache"
	"github.com/luct-edu/lecture-reporting-service/internal/metrics"
	"github.com/luct-edu/lecture-reporting-service/internal/models"
	"github.com/luct-edu/lecture-reporting-service/internal/services"
	"github.com/luct-edu/lecture-reporting-service/internal/utils"
)

// RouterOptions carries the optional collaborators of the route tree
type RouterOptions struct {
	// Stricter limiter for /auth/login and /auth/register; nil disables it
	LoginLimiter RateLimiter
	Metrics      *metrics.Metrics
	Cache        *cache.CacheManager
}

type HandlerManager struct {
	authHandler      *AuthHandler
	userHandler      *UserHandler
	facultyHandler   *FacultyHandler
	courseHandler    *CourseHandler
	classHandler     *ClassHandler
	reportHandler    *ReportHandler
	ratingHandler    *RatingHandler
	dashboardHandler *DashboardHandler
	studentHandler   *StudentHandler
	authMiddleware   *AuthMiddleware

	serviceManager services.ServiceManager
	logger         utils.Logger
	opts           RouterOptions
}

func NewHandlerManager(serviceManager services.ServiceManager, logger utils.Logger, opts RouterOptions) *HandlerManager {
	return &HandlerManager{
		authHandler:      NewAuthHandler(serviceManager.Auth(), logger),
		userHandler:      NewUserHandler(serviceManager.User(), logger),
		facultyHandler:   NewFacultyHandler(serviceManager.Faculty(), logger),
		courseHandler:    NewCourseHandler(serviceManager.Course(), logger),
		classHandler:     NewClassHandler(serviceManager.Class(), serviceManager.Rating(), logger),
		reportHandler:    NewReportHandler(serviceManager.Report(), logger),
		ratingHandler:    NewRatingHandler(serviceManager.Rating(), logger),
		dashboardHandler: NewDashboardHandler(serviceManager.Dashboard(), logger),
		studentHandler:   NewStudentHandler(serviceManager.Student(), logger),
		authMiddleware:   NewAuthMiddleware(serviceManager.Auth()),
		serviceManager:   serviceManager,
		logger:           logger,
		opts:             opts,
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	router.GET("/health", hm.health)
	if hm.opts.Metrics != nil {
		router.GET("/metrics", gin.WrapH(hm.opts.Metrics.Handler()))
	}

	role := hm.authMiddleware.RequireRoleMiddleware
	reviewers := role(models.RolePRL, models.RolePL)
	leaders := role(models.RolePL)
	adminOnly := role(models.RoleAdmin)

	v1 := router.Group("/api/v1")

	// Public auth routes
	public := v1.Group("/auth")
	if hm.opts.LoginLimiter != nil {
		public.Use(RateLimitMiddleware(hm.opts.LoginLimiter, "login", hm.opts.Metrics, hm.logger))
	}
	{
		public.POST("/register", hm.authHandler.Register)
		public.POST("/login", hm.authHandler.Login)
		public.POST("/sso/casdoor", hm.authHandler.LoginWithCasdoor)
	}

	api := v1.Group("")
	api.Use(hm.authMiddleware.Authenticate()) // Apply authentication to everything below
	{
		api.GET("/auth/me", hm.authHandler.Me)
		api.PUT("/auth/password", hm.authHandler.ChangePassword)

		// User administration
		users := api.Group("/users")
		{
			users.GET("", reviewers, hm.userHandler.ListUsers)
			users.GET("/:id", reviewers, hm.userHandler.GetUser)
			users.POST("", adminOnly, hm.userHandler.CreateUser)
			users.PUT("/:id", adminOnly, hm.userHandler.UpdateUser)
			users.DELETE("/:id", adminOnly, hm.userHandler.DeleteUser)
		}

		faculties := api.Group("/faculties")
		{
			faculties.GET("", hm.facultyHandler.ListFaculties)
			faculties.GET("/:id", hm.facultyHandler.GetFaculty)
			faculties.POST("", adminOnly, hm.facultyHandler.CreateFaculty)
			faculties.PUT("/:id", adminOnly, hm.facultyHandler.UpdateFaculty)
			faculties.DELETE("/:id", adminOnly, hm.facultyHandler.DeleteFaculty)
		}

		courses := api.Group("/courses")
		{
			courses.GET("", hm.courseHandler.ListCourses)
			courses.GET("/:id", hm.courseHandler.GetCourse)
			courses.POST("", leaders, hm.courseHandler.CreateCourse)
			courses.PUT("/:id", leaders, hm.courseHandler.UpdateCourse)
			courses.DELETE("/:id", leaders, hm.courseHandler.DeleteCourse)
		}

		// Class routes; visibility is scoped in the service
		classes := api.Group("/classes")
		{
			classes.GET("", hm.classHandler.ListClasses)
			classes.GET("/:id", hm.classHandler.GetClass)
			classes.POST("", leaders, hm.classHandler.CreateClass)
			classes.PUT("/:id", leaders, hm.classHandler.UpdateClass)
			classes.DELETE("/:id", leaders, hm.classHandler.DeleteClass)

			// Enrollment management - Program leaders and Admins only
			classes.POST("/:id/enrollments", leaders, hm.classHandler.Enroll)
			classes.POST("/:id/enrollments/import", leaders, hm.classHandler.ImportEnrollments)
			classes.DELETE("/:id/enrollments/:student_id", leaders, hm.classHandler.Unenroll)

			classes.GET("/:id/students", role(models.RoleLecturer, models.RolePRL, models.RolePL), hm.classHandler.ListStudents)
			classes.GET("/:id/ratings/summary", hm.classHandler.RatingSummary)
		}

		reports := api.Group("/reports")
		{
			reports.POST("", role(models.RoleLecturer), hm.reportHandler.CreateReport)
			reports.GET("", hm.reportHandler.ListReports)
			reports.GET("/export", reviewers, hm.reportHandler.ExportReports)
			reports.GET("/:id", hm.reportHandler.GetReport)
			reports.PUT("/:id", role(models.RoleLecturer), hm.reportHandler.UpdateReport)
			reports.DELETE("/:id", role(models.RoleLecturer), hm.reportHandler.DeleteReport)

			// Feedback workflow
			reports.GET("/:id/feedback", hm.reportHandler.ListFeedback)
			reports.POST("/:id/feedback", reviewers, hm.reportHandler.AddFeedback)
			reports.POST("/:id/approve", leaders, hm.reportHandler.ApproveReport)
		}

		ratings := api.Group("/ratings")
		{
			ratings.POST("", role(models.RoleStudent), hm.ratingHandler.CreateRating)
			ratings.GET("", hm.ratingHandler.ListRatings)
		}

		// Dashboard routes - Reviewers and Admins only
		dashboard := api.Group("/dashboard")
		dashboard.Use(reviewers)
		{
			dashboard.GET("/stats", hm.dashboardHandler.GetDashboardStats)
			dashboard.GET("/attendance-trends", hm.dashboardHandler.GetAttendanceTrends)
			dashboard.GET("/lecturers", hm.dashboardHandler.GetLecturerPerformance)
			dashboard.GET("/recent-reports", hm.dashboardHandler.GetRecentReports)
		}

		// Student routes - Students only
		students := api.Group("/students")
		students.Use(role(models.RoleStudent))
		{
			students.GET("/me/classes", hm.studentHandler.GetMyClasses)
			students.GET("/me/attendance", hm.studentHandler.GetMyAttendance)
			students.GET("/me/ratings", hm.studentHandler.GetMyRatings)
		}
	}
}

// health pings the database and, when configured, Redis
func (hm *HandlerManager) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	status := http.StatusOK
	checks := gin.H{"database": "up", "redis": "disabled"}

	if err := hm.serviceManager.HealthCheck(ctx); err != nil {
		utils.GetLogger(c, hm.logger).Warn("Database health check failed", "error", err)
		checks["database"] = "down"
		status = http.StatusServiceUnavailable
	}

	if hm.opts.Cache != nil {
		err := hm.opts.Cache.HealthCheck(ctx)
		switch {
		case errors.Is(err, cache.ErrCacheNotAvailable):
		case err != nil:
			utils.GetLogger(c, hm.logger).Warn("Redis health check failed", "error", err)
			checks["redis"] = "down"
			status = http.StatusServiceUnavailable
		default:
			checks["redis"] = "up"
			checks["cached_keys"] = hm.opts.Cache.KeyCounts(ctx)
		}
	}

	state := "healthy"
	if status != http.StatusOK {
		state = "unhealthy"
	}
	c.JSON(status, gin.H{
		"status":  state,
		"service": "lecture-reporting-service",
		"checks":  checks,
	})
}
