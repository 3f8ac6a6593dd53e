package validator

import (
	"strings"

	"github.com/luct-edu/lecture-reporting-service/internal/models"
)

// ===== AUTH =====

type RegisterRequest struct {
	FullName      string          `json:"full_name" validate:"required,min=2,max=100"`
	Email         string          `json:"email" validate:"required,email,max=255"`
	Password      string          `json:"password" validate:"required,min=8,max=72"`
	Role          models.UserRole `json:"role" validate:"required,self_register_role"`
	FacultyID     *uint           `json:"faculty_id"`
	StudentNumber *string         `json:"student_number" validate:"omitempty,min=3,max=50"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type SSOLoginRequest struct {
	Code  string `json:"code" validate:"required"`
	State string `json:"state"`
}

type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8,max=72,nefield=OldPassword"`
}

// ===== USERS =====

type UserCreateRequest struct {
	FullName      string          `json:"full_name" validate:"required,min=2,max=100"`
	Email         string          `json:"email" validate:"required,email,max=255"`
	Password      string          `json:"password" validate:"required,min=8,max=72"`
	Role          models.UserRole `json:"role" validate:"required,user_role"`
	FacultyID     *uint           `json:"faculty_id"`
	StudentNumber *string         `json:"student_number" validate:"omitempty,min=3,max=50"`
}

type UserUpdateRequest struct {
	FullName      *string          `json:"full_name" validate:"omitempty,min=2,max=100"`
	Role          *models.UserRole `json:"role" validate:"omitempty,user_role"`
	FacultyID     *uint            `json:"faculty_id"`
	ClearFaculty  bool             `json:"clear_faculty"`
	StudentNumber *string          `json:"student_number" validate:"omitempty,min=3,max=50"`
	IsActive      *bool            `json:"is_active"`
}

// ===== ACADEMIC STRUCTURE =====

type FacultyRequest struct {
	Name string `json:"name" validate:"required,min=2,max=150"`
	Code string `json:"code" validate:"required,faculty_code"`
}

type CourseRequest struct {
	Code            string `json:"code" validate:"required,min=2,max=30"`
	Name            string `json:"name" validate:"required,min=2,max=200"`
	FacultyID       uint   `json:"faculty_id" validate:"required"`
	ProgramLeaderID *uint  `json:"program_leader_id"`
}

type ClassRequest struct {
	ClassCode       string `json:"class_code" validate:"required,max=50,class_code"`
	CourseID        uint   `json:"course_id" validate:"required"`
	LecturerID      *uint  `json:"lecturer_id"`
	Venue           string `json:"venue" validate:"max=100"`
	ScheduledTime   string `json:"scheduled_time" validate:"max=50"`
	TotalRegistered int    `json:"total_registered" validate:"gte=0,max=5000"`
}

type EnrollmentRequest struct {
	StudentIDs []uint `json:"student_ids" validate:"required,min=1,max=500,dive,required"`
}

// ===== REPORTS =====

type ReportCreateRequest struct {
	ClassID          uint    `json:"class_id" validate:"required"`
	Week             int     `json:"week" validate:"required,report_week"`
	LectureDate      string  `json:"lecture_date" validate:"required,lecture_date,not_future_date"`
	StudentsPresent  *int    `json:"students_present" validate:"required,gte=0"`
	Topic            string  `json:"topic" validate:"required,min=3,max=255"`
	LearningOutcomes string  `json:"learning_outcomes" validate:"required,max=5000"`
	Recommendations  *string `json:"recommendations" validate:"omitempty,max=5000"`
	Venue            *string `json:"venue" validate:"omitempty,max=100"`
	ScheduledTime    *string `json:"scheduled_time" validate:"omitempty,max=50"`
}

type ReportUpdateRequest struct {
	Week             *int    `json:"week" validate:"omitempty,report_week"`
	LectureDate      *string `json:"lecture_date" validate:"omitempty,lecture_date,not_future_date"`
	StudentsPresent  *int    `json:"students_present" validate:"omitempty,gte=0"`
	Topic            *string `json:"topic" validate:"omitempty,min=3,max=255"`
	LearningOutcomes *string `json:"learning_outcomes" validate:"omitempty,min=1,max=5000"`
	Recommendations  *string `json:"recommendations" validate:"omitempty,max=5000"`
	Venue            *string `json:"venue" validate:"omitempty,max=100"`
	ScheduledTime    *string `json:"scheduled_time" validate:"omitempty,max=50"`
}

// Normalize trims the free-text fields so length rules see what gets stored
func (r *ReportCreateRequest) Normalize() {
	r.Topic = strings.TrimSpace(r.Topic)
	r.LearningOutcomes = strings.TrimSpace(r.LearningOutcomes)
	trimPtr(r.Recommendations, r.Venue, r.ScheduledTime)
}

func (r *ReportUpdateRequest) Normalize() {
	trimPtr(r.Topic, r.LearningOutcomes, r.Recommendations, r.Venue, r.ScheduledTime)
}

func trimPtr(fields ...*string) {
	for _, f := range fields {
		if f != nil {
			*f = strings.TrimSpace(*f)
		}
	}
}

type FeedbackRequest struct {
	Comment string `json:"comment" validate:"required,min=2,max=2000"`
}

// ===== RATINGS =====

type RatingRequest struct {
	ClassID  uint    `json:"class_id" validate:"required"`
	ReportID *uint   `json:"report_id"`
	Score    int     `json:"score" validate:"required,rating_score"`
	Comment  *string `json:"comment" validate:"omitempty,max=1000"`
}
