package models

import (
	"time"

	"gorm.io/gorm"
)

type Faculty struct {
	ID   uint   `json:"id" gorm:"primaryKey"`
	Name string `json:"name" gorm:"uniqueIndex;not null;size:150"`
	Code string `json:"code" gorm:"uniqueIndex;not null;size:20"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

func (Faculty) TableName() string {
	return "faculties"
}

type Course struct {
	ID        uint     `json:"id" gorm:"primaryKey"`
	Code      string   `json:"code" gorm:"uniqueIndex;not null;size:30"`
	Name      string   `json:"name" gorm:"not null;size:200"`
	FacultyID uint     `json:"faculty_id" gorm:"not null;index"`
	Faculty   *Faculty `json:"faculty,omitempty" gorm:"foreignKey:FacultyID;constraint:OnDelete:RESTRICT"`

	ProgramLeaderID *uint `json:"program_leader_id,omitempty" gorm:"index"`
	ProgramLeader   *User `json:"program_leader,omitempty" gorm:"foreignKey:ProgramLeaderID;constraint:OnDelete:SET NULL"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

func (Course) TableName() string {
	return "courses"
}
