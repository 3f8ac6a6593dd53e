package models

import (
	"time"

	"gorm.io/datatypes"
)

// DomainEventRecord is the audit copy of every published domain event
type DomainEventRecord struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	EventID   string         `json:"event_id" gorm:"uniqueIndex;not null;size:64"`
	Type      string         `json:"type" gorm:"not null;size:100;index"`
	Source    string         `json:"source" gorm:"size:100"`
	Payload   datatypes.JSON `json:"payload" gorm:"type:jsonb"`
	CreatedAt time.Time      `json:"created_at" gorm:"index"`
}

func (DomainEventRecord) TableName() string {
	return "domain_events"
}

// AllModels is the AutoMigrate list, in dependency order
func AllModels() []interface{} {
	return []interface{}{
		&Faculty{},
		&User{},
		&Course{},
		&Class{},
		&Enrollment{},
		&Report{},
		&Feedback{},
		&Rating{},
		&DomainEventRecord{},
	}
}
