package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ReportStatus string

const (
	ReportPending  ReportStatus = "pending"
	ReportReviewed ReportStatus = "reviewed"
	ReportApproved ReportStatus = "approved"
)

func (s ReportStatus) IsValid() bool {
	switch s {
	case ReportPending, ReportReviewed, ReportApproved:
		return true
	}
	return false
}

// Report is a lecturer's weekly record of one lecture
type Report struct {
	ID uint `json:"id" gorm:"primaryKey"`

	FacultyID  uint `json:"faculty_id" gorm:"not null;index"`
	ClassID    uint `json:"class_id" gorm:"not null;uniqueIndex:idx_report_class_week"`
	CourseID   uint `json:"course_id" gorm:"not null;index"`
	LecturerID uint `json:"lecturer_id" gorm:"not null;index"`

	Faculty  *Faculty `json:"faculty,omitempty" gorm:"foreignKey:FacultyID;constraint:OnDelete:RESTRICT"`
	Class    *Class   `json:"class,omitempty" gorm:"foreignKey:ClassID;constraint:OnDelete:RESTRICT"`
	Course   *Course  `json:"course,omitempty" gorm:"foreignKey:CourseID;constraint:OnDelete:RESTRICT"`
	Lecturer *User    `json:"lecturer,omitempty" gorm:"foreignKey:LecturerID;constraint:OnDelete:RESTRICT"`

	Week            int            `json:"week" gorm:"not null;uniqueIndex:idx_report_class_week"`
	LectureDate     datatypes.Date `json:"lecture_date" gorm:"not null;index"`
	StudentsPresent int            `json:"students_present" gorm:"not null"`
	TotalRegistered int            `json:"total_registered" gorm:"not null"`
	Venue           string         `json:"venue" gorm:"size:100"`
	ScheduledTime   string         `json:"scheduled_time" gorm:"size:50"`

	Topic            string  `json:"topic" gorm:"not null;size:255"`
	LearningOutcomes string  `json:"learning_outcomes" gorm:"type:text;not null"`
	Recommendations  *string `json:"recommendations,omitempty" gorm:"type:text"`

	Status ReportStatus `json:"status" gorm:"not null;size:20;default:pending;index"`

	Feedback []Feedback `json:"feedback,omitempty" gorm:"foreignKey:ReportID"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

func (Report) TableName() string {
	return "reports"
}

// AttendanceRate returns present/registered as a percentage, 0 when nobody is registered
func (r *Report) AttendanceRate() float64 {
	return AttendanceRate(r.StudentsPresent, r.TotalRegistered)
}

func AttendanceRate(present, registered int) float64 {
	if registered <= 0 {
		return 0
	}
	return float64(present) * 100 / float64(registered)
}

// Editable reports whether the owning lecturer may still change the report
func (r *Report) Editable() bool {
	return r.Status == ReportPending
}

// Feedback is a reviewer's comment on a report
type Feedback struct {
	ID           uint     `json:"id" gorm:"primaryKey"`
	ReportID     uint     `json:"report_id" gorm:"not null;index"`
	ReviewerID   uint     `json:"reviewer_id" gorm:"not null;index"`
	Reviewer     *User    `json:"reviewer,omitempty" gorm:"foreignKey:ReviewerID;constraint:OnDelete:RESTRICT"`
	ReviewerRole UserRole `json:"reviewer_role" gorm:"not null;size:20"`
	Comment      string   `json:"comment" gorm:"type:text;not null"`

	CreatedAt time.Time `json:"created_at"`
}

func (Feedback) TableName() string {
	return "feedback"
}
