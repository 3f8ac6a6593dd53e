package models

import "time"

const (
	MinRatingScore = 1
	MaxRatingScore = 5
)

// Rating is a student's 1..5 score for a class, optionally tied to one lecture report.
// NULLs are distinct in idx_rating_unique, so idx_rating_class_level covers the
// one class-level rating per student.
type Rating struct {
	ID        uint    `json:"id" gorm:"primaryKey"`
	ClassID   uint    `json:"class_id" gorm:"not null;uniqueIndex:idx_rating_unique;uniqueIndex:idx_rating_class_level,where:report_id IS NULL"`
	StudentID uint    `json:"student_id" gorm:"not null;uniqueIndex:idx_rating_unique;uniqueIndex:idx_rating_class_level,where:report_id IS NULL;index"`
	ReportID  *uint   `json:"report_id,omitempty" gorm:"uniqueIndex:idx_rating_unique"`
	Score     int     `json:"score" gorm:"not null;check:score >= 1 AND score <= 5"`
	Comment   *string `json:"comment,omitempty" gorm:"type:text"`

	Class   *Class  `json:"class,omitempty" gorm:"foreignKey:ClassID;constraint:OnDelete:CASCADE"`
	Student *User   `json:"student,omitempty" gorm:"foreignKey:StudentID;constraint:OnDelete:CASCADE"`
	Report  *Report `json:"report,omitempty" gorm:"foreignKey:ReportID;constraint:OnDelete:CASCADE"`

	CreatedAt time.Time `json:"created_at"`
}

func (Rating) TableName() string {
	return "ratings"
}

// RatingSummary aggregates the ratings of one class
type RatingSummary struct {
	ClassID      uint          `json:"class_id"`
	Average      float64       `json:"average"`
	Count        int64         `json:"count"`
	Distribution map[int]int64 `json:"distribution"`
}
