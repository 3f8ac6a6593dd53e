package repositories

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/luct-edu/lecture-reporting-service/internal/models"
)

// ===== SHARED FILTER STRUCTS =====

// Scope narrows queries to what a viewer is allowed to see. Zero value means unrestricted.
type Scope struct {
	FacultyID  *uint `json:"faculty_id"`
	LecturerID *uint `json:"lecturer_id"`
	StudentID  *uint `json:"student_id"`
}

type ReportFilters struct {
	Scope      Scope                `json:"scope"`
	Status     *models.ReportStatus `json:"status"`
	Week       *int                 `json:"week"`
	ClassID    *uint                `json:"class_id"`
	CourseID   *uint                `json:"course_id"`
	LecturerID *uint                `json:"lecturer_id"`
	FacultyID  *uint                `json:"faculty_id"`
	DateFrom   *time.Time           `json:"date_from"`
	DateTo     *time.Time           `json:"date_to"`
	Search     string               `json:"q"`
	Limit      int                  `json:"limit"`
	Offset     int                  `json:"offset"`
	SortBy     string               `json:"sort_by"`    // "created_at", "week", "lecture_date", "status"
	SortOrder  string               `json:"sort_order"` // "asc", "desc"
}

type FacultyFilters struct {
	Search string `json:"q"`
	Limit  int    `json:"limit"`
	Offset int    `json:"offset"`
}

type CourseFilters struct {
	FacultyID *uint  `json:"faculty_id"`
	Search    string `json:"q"`
	Limit     int    `json:"limit"`
	Offset    int    `json:"offset"`
}

type ClassFilters struct {
	Scope      Scope  `json:"scope"`
	CourseID   *uint  `json:"course_id"`
	LecturerID *uint  `json:"lecturer_id"`
	Search     string `json:"q"`
	Limit      int    `json:"limit"`
	Offset     int    `json:"offset"`
}

type RatingFilters struct {
	Scope   Scope `json:"scope"`
	ClassID *uint `json:"class_id"`
	Limit   int   `json:"limit"`
	Offset  int   `json:"offset"`
}

// ===== REPOSITORIES =====

type FacultyRepository interface {
	Create(ctx context.Context, tx *gorm.DB, faculty *models.Faculty) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Faculty, error)
	Update(ctx context.Context, tx *gorm.DB, faculty *models.Faculty) error
	Delete(ctx context.Context, tx *gorm.DB, id uint) error
	List(ctx context.Context, tx *gorm.DB, filters FacultyFilters) ([]*models.Faculty, int64, error)
	HasCourses(ctx context.Context, tx *gorm.DB, id uint) (bool, error)
}

type CourseRepository interface {
	Create(ctx context.Context, tx *gorm.DB, course *models.Course) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Course, error)
	Update(ctx context.Context, tx *gorm.DB, course *models.Course) error
	Delete(ctx context.Context, tx *gorm.DB, id uint) error
	List(ctx context.Context, tx *gorm.DB, filters CourseFilters) ([]*models.Course, int64, error)
	ExistsByCode(ctx context.Context, tx *gorm.DB, code string, excludeID *uint) (bool, error)
	HasClasses(ctx context.Context, tx *gorm.DB, id uint) (bool, error)
}

type ClassRepository interface {
	Create(ctx context.Context, tx *gorm.DB, class *models.Class) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Class, error)
	Update(ctx context.Context, tx *gorm.DB, class *models.Class) error
	Delete(ctx context.Context, tx *gorm.DB, id uint) error
	List(ctx context.Context, tx *gorm.DB, filters ClassFilters) ([]*models.Class, int64, error)
	ExistsByCode(ctx context.Context, tx *gorm.DB, code string, excludeID *uint) (bool, error)
	HasReports(ctx context.Context, tx *gorm.DB, id uint) (bool, error)

	// Enrollment
	Enroll(ctx context.Context, tx *gorm.DB, classID, studentID uint) (bool, error)
	Unenroll(ctx context.Context, tx *gorm.DB, classID, studentID uint) error
	IsEnrolled(ctx context.Context, tx *gorm.DB, classID, studentID uint) (bool, error)
	ListStudents(ctx context.Context, tx *gorm.DB, classID uint) ([]*models.User, error)
	ListByStudent(ctx context.Context, tx *gorm.DB, studentID uint) ([]*models.Class, error)
}

type ReportRepository interface {
	Create(ctx context.Context, tx *gorm.DB, report *models.Report) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Report, error)
	GetByIDWithDetails(ctx context.Context, tx *gorm.DB, id uint) (*models.Report, error)
	Update(ctx context.Context, tx *gorm.DB, report *models.Report) error
	UpdateStatus(ctx context.Context, tx *gorm.DB, id uint, status models.ReportStatus) error
	Delete(ctx context.Context, tx *gorm.DB, id uint) error
	List(ctx context.Context, tx *gorm.DB, filters ReportFilters) ([]*models.Report, int64, error)
	ExistsForWeek(ctx context.Context, tx *gorm.DB, classID uint, week int, excludeID *uint) (bool, error)
	ListByClasses(ctx context.Context, tx *gorm.DB, classIDs []uint) ([]*models.Report, error)

	// Feedback
	AddFeedback(ctx context.Context, tx *gorm.DB, feedback *models.Feedback) error
	ListFeedback(ctx context.Context, tx *gorm.DB, reportID uint) ([]*models.Feedback, error)
	CountFeedback(ctx context.Context, tx *gorm.DB, reportIDs []uint) (map[uint]int64, error)
}

type RatingRepository interface {
	Create(ctx context.Context, tx *gorm.DB, rating *models.Rating) error
	Exists(ctx context.Context, tx *gorm.DB, classID, studentID uint, reportID *uint) (bool, error)
	List(ctx context.Context, tx *gorm.DB, filters RatingFilters) ([]*models.Rating, int64, error)
	Summary(ctx context.Context, tx *gorm.DB, classID uint) (*models.RatingSummary, error)
}

type DomainEventRepository interface {
	Record(ctx context.Context, tx *gorm.DB, record *models.DomainEventRecord) error
}
