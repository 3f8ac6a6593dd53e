package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"gorm.io/datatypes"

	"github.com/luct-edu/lecture-reporting-service/internal/models"
	"github.com/luct-edu/lecture-reporting-service/internal/repositories"
)

// RecordingPublisher stores every event in domain_events before handing it to the broker
type RecordingPublisher struct {
	next   EventPublisher
	store  repositories.DomainEventRepository
	logger *slog.Logger
}

func NewRecordingPublisher(next EventPublisher, store repositories.DomainEventRepository, logger *slog.Logger) *RecordingPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &RecordingPublisher{next: next, store: store, logger: logger}
}

// Publish records then forwards. A failed record is logged and does not block the broker.
func (p *RecordingPublisher) Publish(ctx context.Context, event Event) error {
	if err := p.record(ctx, event); err != nil {
		p.logger.Error("Failed to record domain event", "event_id", event.ID, "type", event.Type, "error", err)
	}
	return p.next.Publish(ctx, event)
}

func (p *RecordingPublisher) record(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event.Data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	return p.store.Record(ctx, nil, &models.DomainEventRecord{
		EventID:   event.ID,
		Type:      event.Type,
		Source:    event.Source,
		Payload:   datatypes.JSON(payload),
		CreatedAt: event.Timestamp,
	})
}

func (p *RecordingPublisher) Close() error {
	return p.next.Close()
}
