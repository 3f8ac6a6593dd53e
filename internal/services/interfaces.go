package services

import (
	"context"
	"io"

	"github.com/luct-edu/lecture-reporting-service/internal/models"
	"github.com/luct-edu/lecture-reporting-service/internal/validator"
)

// ===== REQUEST DTOs =====

// Request types live in the validator package next to their rules
type RegisterRequest = validator.RegisterRequest
type LoginRequest = validator.LoginRequest
type SSOLoginRequest = validator.SSOLoginRequest
type ChangePasswordRequest = validator.ChangePasswordRequest
type CreateUserRequest = validator.UserCreateRequest
type UpdateUserRequest = validator.UserUpdateRequest
type FacultyRequest = validator.FacultyRequest
type CourseRequest = validator.CourseRequest
type ClassRequest = validator.ClassRequest
type EnrollmentRequest = validator.EnrollmentRequest
type CreateReportRequest = validator.ReportCreateRequest
type UpdateReportRequest = validator.ReportUpdateRequest
type FeedbackRequest = validator.FeedbackRequest
type RatingRequest = validator.RatingRequest

// ===== SERVICES =====

type AuthService interface {
	Register(ctx context.Context, req *RegisterRequest) (*models.AuthResponse, error)
	Login(ctx context.Context, req *LoginRequest) (*models.AuthResponse, error)
	LoginWithSSO(ctx context.Context, req *SSOLoginRequest) (*models.AuthResponse, error)
	SSOEnabled() bool

	// Authenticate resolves a bearer token to an active user
	Authenticate(ctx context.Context, token string) (*models.User, error)
	Me(ctx context.Context, userID uint) (*models.User, error)
	ChangePassword(ctx context.Context, userID uint, req *ChangePasswordRequest) error
}

type UserService interface {
	List(ctx context.Context, actor Actor, params models.ListUsersParams) (*models.PaginatedResponse, error)
	GetByID(ctx context.Context, actor Actor, id uint) (*models.User, error)
	Create(ctx context.Context, actor Actor, req *CreateUserRequest) (*models.User, error)
	Update(ctx context.Context, actor Actor, id uint, req *UpdateUserRequest) (*models.User, error)
	Delete(ctx context.Context, actor Actor, id uint) error
}

type FacultyService interface {
	List(ctx context.Context, search string, page, size int) (*models.PaginatedResponse, error)
	GetByID(ctx context.Context, id uint) (*models.Faculty, error)
	Create(ctx context.Context, actor Actor, req *FacultyRequest) (*models.Faculty, error)
	Update(ctx context.Context, actor Actor, id uint, req *FacultyRequest) (*models.Faculty, error)
	Delete(ctx context.Context, actor Actor, id uint) error
}

type CourseService interface {
	List(ctx context.Context, params models.ListCoursesParams) (*models.PaginatedResponse, error)
	GetByID(ctx context.Context, id uint) (*models.Course, error)
	Create(ctx context.Context, actor Actor, req *CourseRequest) (*models.Course, error)
	Update(ctx context.Context, actor Actor, id uint, req *CourseRequest) (*models.Course, error)
	Delete(ctx context.Context, actor Actor, id uint) error
}

type ClassService interface {
	List(ctx context.Context, actor Actor, params models.ListClassesParams) (*models.PaginatedResponse, error)
	GetByID(ctx context.Context, actor Actor, id uint) (*models.Class, error)
	Create(ctx context.Context, actor Actor, req *ClassRequest) (*models.Class, error)
	Update(ctx context.Context, actor Actor, id uint, req *ClassRequest) (*models.Class, error)
	Delete(ctx context.Context, actor Actor, id uint) error

	// Enrollment
	Enroll(ctx context.Context, actor Actor, classID uint, req *EnrollmentRequest) (*models.EnrollmentResult, error)
	Unenroll(ctx context.Context, actor Actor, classID, studentID uint) error
	ImportEnrollments(ctx context.Context, actor Actor, classID uint, file io.Reader) (*models.EnrollmentImportResult, error)
	ListStudents(ctx context.Context, actor Actor, classID uint) ([]*models.User, error)
}

type ReportService interface {
	Create(ctx context.Context, actor Actor, req *CreateReportRequest) (*models.Report, error)
	List(ctx context.Context, actor Actor, params models.ListReportsParams) (*models.PaginatedResponse, error)
	GetByID(ctx context.Context, actor Actor, id uint) (*models.Report, error)
	Update(ctx context.Context, actor Actor, id uint, req *UpdateReportRequest) (*models.Report, error)
	Delete(ctx context.Context, actor Actor, id uint) error

	// Feedback workflow
	AddFeedback(ctx context.Context, actor Actor, id uint, req *FeedbackRequest) (*models.Feedback, error)
	ListFeedback(ctx context.Context, actor Actor, id uint) ([]*models.Feedback, error)
	Approve(ctx context.Context, actor Actor, id uint) (*models.Report, error)

	// Export writes an .xlsx workbook of every report matching params
	Export(ctx context.Context, actor Actor, params models.ListReportsParams, w io.Writer) error
}

type RatingService interface {
	Create(ctx context.Context, actor Actor, req *RatingRequest) (*models.Rating, error)
	List(ctx context.Context, actor Actor, params models.ListRatingsParams) (*models.PaginatedResponse, error)
	Summary(ctx context.Context, actor Actor, classID uint) (*models.RatingSummary, error)
}

type DashboardService interface {
	GetStats(ctx context.Context, actor Actor, facultyID *uint, period int) (*models.DashboardStats, error)
	GetAttendanceTrends(ctx context.Context, actor Actor, facultyID *uint) ([]models.AttendanceTrend, error)
	GetLecturerPerformance(ctx context.Context, actor Actor, facultyID *uint) ([]models.LecturerPerformance, error)
	GetRecentReports(ctx context.Context, actor Actor, facultyID *uint, limit int) ([]*models.Report, error)
}

type StudentService interface {
	GetMyClasses(ctx context.Context, actor Actor) ([]*models.Class, error)
	GetMyAttendance(ctx context.Context, actor Actor) (*models.StudentAttendance, error)
	GetMyRatings(ctx context.Context, actor Actor, params models.ListRatingsParams) (*models.PaginatedResponse, error)
}

// ===== SERVICE MANAGER =====

type ServiceManager interface {
	// Service getters
	Auth() AuthService
	User() UserService
	Faculty() FacultyService
	Course() CourseService
	Class() ClassService
	Report() ReportService
	Rating() RatingService
	Dashboard() DashboardService
	Student() StudentService

	// Health and lifecycle
	Initialize(ctx context.Context) error
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
