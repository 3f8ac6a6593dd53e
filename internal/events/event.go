package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	EventSource  = "lecture-reporting-service"
	EventVersion = "1.0"
)

// Domain event types
const (
	ReportSubmitted = "report.submitted"
	ReportReviewed  = "report.reviewed"
	ReportApproved  = "report.approved"
	RatingSubmitted = "rating.submitted"
)

// Event is the envelope of every published domain event
type Event struct {
	ID        string      `json:"id"`
	Type      string      `json:"type"`
	Source    string      `json:"source"`
	Version   string      `json:"version"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// NewEvent stamps a fresh id and the current time
func NewEvent(eventType string, data interface{}) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Source:    EventSource,
		Version:   EventVersion,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

// EventPublisher publishes domain events to a broker
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// ReportEventData is the payload of report.* events
type ReportEventData struct {
	ReportID   uint   `json:"report_id"`
	ClassID    uint   `json:"class_id"`
	FacultyID  uint   `json:"faculty_id"`
	LecturerID uint   `json:"lecturer_id"`
	Week       int    `json:"week"`
	Status     string `json:"status"`
	ActorID    uint   `json:"actor_id"`
	ActorRole  string `json:"actor_role"`
	Comment    string `json:"comment,omitempty"`
}

// RatingEventData is the payload of rating.submitted
type RatingEventData struct {
	RatingID  uint  `json:"rating_id"`
	ClassID   uint  `json:"class_id"`
	ReportID  *uint `json:"report_id,omitempty"`
	StudentID uint  `json:"student_id"`
	Score     int   `json:"score"`
}
