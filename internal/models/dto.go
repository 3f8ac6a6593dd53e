package models

import "time"

// ===== PAGINATION & FILTERING =====

type ListReportsParams struct {
	Page       int          `json:"page"`
	Size       int          `json:"size"`
	Status     ReportStatus `json:"status"`
	Week       *int         `json:"week"`
	ClassID    *uint        `json:"class_id"`
	CourseID   *uint        `json:"course_id"`
	LecturerID *uint        `json:"lecturer_id"`
	FacultyID  *uint        `json:"faculty_id"`
	DateFrom   *time.Time   `json:"date_from"`
	DateTo     *time.Time   `json:"date_to"`
	Search     string       `json:"q"`
	SortBy     string       `json:"sort_by"`
	SortDir    string       `json:"sort_order"`
}

type ListUsersParams struct {
	Page      int      `json:"page"`
	Size      int      `json:"size"`
	Role      UserRole `json:"role"`
	FacultyID *uint    `json:"faculty_id"`
	Search    string   `json:"q"`
}

type ListCoursesParams struct {
	Page      int    `json:"page"`
	Size      int    `json:"size"`
	FacultyID *uint  `json:"faculty_id"`
	Search    string `json:"q"`
}

type ListClassesParams struct {
	Page       int    `json:"page"`
	Size       int    `json:"size"`
	CourseID   *uint  `json:"course_id"`
	LecturerID *uint  `json:"lecturer_id"`
	Search     string `json:"q"`
}

type ListRatingsParams struct {
	Page    int   `json:"page"`
	Size    int   `json:"size"`
	ClassID *uint `json:"class_id"`
}

// Normalize clamps page/size to sane defaults and returns the SQL offset
func Normalize(page, size int) (int, int, int) {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 20
	}
	if size > 100 {
		size = 100
	}
	return page, size, (page - 1) * size
}

type PaginatedResponse struct {
	Content          interface{} `json:"content"`
	TotalElements    int64       `json:"total_elements"`
	TotalPages       int         `json:"total_pages"`
	Size             int         `json:"size"`
	Page             int         `json:"page"`
	First            bool        `json:"first"`
	Last             bool        `json:"last"`
	NumberOfElements int         `json:"number_of_elements"`
	Empty            bool        `json:"empty"`
}

func NewPaginatedResponse(content interface{}, total int64, page, size, count int) *PaginatedResponse {
	totalPages := 0
	if size > 0 {
		totalPages = int((total + int64(size) - 1) / int64(size))
	}
	return &PaginatedResponse{
		Content:          content,
		TotalElements:    total,
		TotalPages:       totalPages,
		Size:             size,
		Page:             page,
		First:            page <= 1,
		Last:             page >= totalPages,
		NumberOfElements: count,
		Empty:            count == 0,
	}
}

// ===== AUTH =====

type AuthResponse struct {
	Token     string    `json:"token"`
	TokenType string    `json:"token_type"`
	ExpiresAt time.Time `json:"expires_at"`
	User      *User     `json:"user"`
}

// ===== CLASSES =====

type EnrollmentResult struct {
	ClassID  uint   `json:"class_id"`
	Enrolled []uint `json:"enrolled"`
	Already  []uint `json:"already_enrolled,omitempty"`
}

type ImportSkip struct {
	Row    int    `json:"row"`
	Value  string `json:"value"`
	Reason string `json:"reason"`
}

type EnrollmentImportResult struct {
	ClassID  uint         `json:"class_id"`
	Enrolled int          `json:"enrolled"`
	Skipped  []ImportSkip `json:"skipped"`
}

// ===== STUDENT VIEWS =====

type AttendanceEntry struct {
	ReportID        uint         `json:"report_id"`
	Week            int          `json:"week"`
	LectureDate     string       `json:"lecture_date"`
	Topic           string       `json:"topic"`
	StudentsPresent int          `json:"students_present"`
	TotalRegistered int          `json:"total_registered"`
	AttendanceRate  float64      `json:"attendance_rate"`
	Status          ReportStatus `json:"status"`
}

type ClassAttendance struct {
	ClassID        uint              `json:"class_id"`
	ClassCode      string            `json:"class_code"`
	CourseName     string            `json:"course_name"`
	Reports        []AttendanceEntry `json:"reports"`
	AverageRate    float64           `json:"average_rate"`
	LecturesLogged int               `json:"lectures_logged"`
}

type StudentAttendance struct {
	StudentID      uint              `json:"student_id"`
	Classes        []ClassAttendance `json:"classes"`
	OverallAverage float64           `json:"overall_average"`
}

// ===== DASHBOARD =====

type DashboardStats struct {
	TotalReports          int64                  `json:"total_reports"`
	TotalCourses          int64                  `json:"total_courses"`
	TotalClasses          int64                  `json:"total_classes"`
	TotalLecturers        int64                  `json:"total_lecturers"`
	ReportsByStatus       map[ReportStatus]int64 `json:"reports_by_status"`
	AverageAttendanceRate float64                `json:"average_attendance_rate"`
	AverageRating         float64                `json:"average_rating"`
	RecentReports         int64                  `json:"recent_reports"`
	PeriodDays            int                    `json:"period_days"`
	FacultyID             *uint                  `json:"faculty_id,omitempty"`
	GeneratedAt           time.Time              `json:"generated_at"`
}

type AttendanceTrend struct {
	Week           int     `json:"week"`
	Reports        int64   `json:"reports"`
	AttendanceRate float64 `json:"attendance_rate"`
}

type LecturerPerformance struct {
	LecturerID     uint    `json:"lecturer_id"`
	FullName       string  `json:"full_name"`
	ReportCount    int64   `json:"report_count"`
	AttendanceRate float64 `json:"attendance_rate"`
	AverageRating  float64 `json:"average_rating"`
	PendingReports int64   `json:"pending_reports"`
}

// ===== ERROR RESPONSES =====

type ErrorResponse struct {
	Error   string      `json:"error"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}
