package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/luct-edu/lecture-reporting-service/internal/events"
	"github.com/luct-edu/lecture-reporting-service/internal/metrics"
	"github.com/luct-edu/lecture-reporting-service/internal/models"
	"github.com/luct-edu/lecture-reporting-service/internal/repositories"
)

// Actor is the authenticated caller of a service operation
type Actor struct {
	ID        uint
	Role      models.UserRole
	FacultyID *uint
}

func ActorFromUser(u *models.User) Actor {
	return Actor{ID: u.ID, Role: u.Role, FacultyID: u.FacultyID}
}

func (a Actor) IsAdmin() bool { return a.Role == models.RoleAdmin }

// HasRole reports whether the actor holds one of roles; admin always does
func (a Actor) HasRole(roles ...models.UserRole) bool {
	if a.IsAdmin() {
		return true
	}
	for _, r := range roles {
		if a.Role == r {
			return true
		}
	}
	return false
}

// Scope is what the actor may read:
// lecturers their own classes, PRL/PL their faculty (everything without one),
// students their enrolled classes, admins everything.
func (a Actor) Scope() repositories.Scope {
	switch a.Role {
	case models.RoleLecturer:
		id := a.ID
		return repositories.Scope{LecturerID: &id}
	case models.RolePRL, models.RolePL:
		return repositories.Scope{FacultyID: a.FacultyID}
	case models.RoleStudent:
		id := a.ID
		return repositories.Scope{StudentID: &id}
	default:
		return repositories.Scope{}
	}
}

// inFaculty reports whether a faculty-bound actor covers facultyID
func (a Actor) inFaculty(facultyID uint) bool {
	if a.IsAdmin() || a.FacultyID == nil {
		return true
	}
	return *a.FacultyID == facultyID
}

// facultyFilter resolves the faculty a dashboard-style query runs against.
// Faculty-bound actors are pinned to their own faculty.
func (a Actor) facultyFilter(requested *uint) *uint {
	if !a.IsAdmin() && a.FacultyID != nil {
		return a.FacultyID
	}
	return requested
}

// canViewClass applies the read scope of Actor.Scope to a single class.
// class.Course must be loaded for the faculty check to apply.
func canViewClass(ctx context.Context, repo repositories.Repository, actor Actor, class *models.Class) (bool, error) {
	switch actor.Role {
	case models.RoleAdmin:
		return true, nil
	case models.RoleLecturer:
		return class.LecturerID != nil && *class.LecturerID == actor.ID, nil
	case models.RolePRL, models.RolePL:
		return class.Course == nil || actor.inFaculty(class.Course.FacultyID), nil
	case models.RoleStudent:
		enrolled, err := repo.Class().IsEnrolled(ctx, nil, class.ID, actor.ID)
		if err != nil {
			return false, fmt.Errorf("failed to check enrollment: %w", err)
		}
		return enrolled, nil
	}
	return false, nil
}

// eventEmitter publishes after commit; failures are logged and counted, never returned
type eventEmitter struct {
	publisher events.EventPublisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

func (e eventEmitter) emit(ctx context.Context, eventType string, data interface{}) {
	if e.publisher == nil {
		return
	}

	event := events.NewEvent(eventType, data)
	err := e.publisher.Publish(ctx, event)
	e.metrics.EventPublished(eventType, err)
	if err != nil {
		e.logger.Error("Failed to publish event", "type", eventType, "event_id", event.ID, "error", err)
	}
}

func pageParams(page, size int) (int, int, int) {
	return models.Normalize(page, size)
}
