package models

import (
	"time"

	"gorm.io/gorm"
)

// Class is a scheduled group of a course, identified by a code such as BSCSEM1-A
type Class struct {
	ID        uint    `json:"id" gorm:"primaryKey"`
	ClassCode string  `json:"class_code" gorm:"uniqueIndex;not null;size:50"`
	CourseID  uint    `json:"course_id" gorm:"not null;index"`
	Course    *Course `json:"course,omitempty" gorm:"foreignKey:CourseID;constraint:OnDelete:RESTRICT"`

	LecturerID *uint `json:"lecturer_id,omitempty" gorm:"index"`
	Lecturer   *User `json:"lecturer,omitempty" gorm:"foreignKey:LecturerID;constraint:OnDelete:SET NULL"`

	Venue           string `json:"venue" gorm:"size:100"`
	ScheduledTime   string `json:"scheduled_time" gorm:"size:50"`
	TotalRegistered int    `json:"total_registered" gorm:"not null;default:0"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

func (Class) TableName() string {
	return "classes"
}

// Enrollment joins a student to a class
type Enrollment struct {
	ClassID   uint      `json:"class_id" gorm:"primaryKey"`
	StudentID uint      `json:"student_id" gorm:"primaryKey;index"`
	Class     *Class    `json:"class,omitempty" gorm:"foreignKey:ClassID;constraint:OnDelete:CASCADE"`
	Student   *User     `json:"student,omitempty" gorm:"foreignKey:StudentID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time `json:"created_at"`
}

func (Enrollment) TableName() string {
	return "enrollments"
}
