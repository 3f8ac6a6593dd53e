package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v2/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

const DefaultTopicPrefix = "lecture-reporting"

// watermillPublisher turns events into watermill messages on <prefix>.<type>
type watermillPublisher struct {
	publisher   message.Publisher
	topicPrefix string
	logger      *slog.Logger
}

func newWatermillPublisher(publisher message.Publisher, topicPrefix string, logger *slog.Logger) watermillPublisher {
	if topicPrefix == "" {
		topicPrefix = DefaultTopicPrefix
	}
	if logger == nil {
		logger = slog.Default()
	}
	return watermillPublisher{publisher: publisher, topicPrefix: strings.TrimSuffix(topicPrefix, "."), logger: logger}
}

// Topic returns the broker topic of an event type
func (p *watermillPublisher) Topic(eventType string) string {
	return p.topicPrefix + "." + eventType
}

func (p *watermillPublisher) Publish(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event %s: %w", event.Type, err)
	}

	msg := message.NewMessage(event.ID, payload)
	msg.Metadata.Set("event_type", event.Type)
	msg.Metadata.Set("source", event.Source)
	msg.Metadata.Set("version", event.Version)
	msg.SetContext(ctx)

	topic := p.Topic(event.Type)
	if err := p.publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("failed to publish %s to %s: %w", event.Type, topic, err)
	}

	p.logger.Debug("Event published", "event_id", event.ID, "type", event.Type, "topic", topic)
	return nil
}

func (p *watermillPublisher) Close() error {
	return p.publisher.Close()
}

// KafkaEventPublisher publishes events to Kafka
type KafkaEventPublisher struct {
	watermillPublisher
}

func NewKafkaEventPublisher(brokers []string, topicPrefix string, logger *slog.Logger) (*KafkaEventPublisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers are required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	publisher, err := kafka.NewPublisher(
		kafka.PublisherConfig{
			Brokers:               brokers,
			Marshaler:             kafka.DefaultMarshaler{},
			OverwriteSaramaConfig: kafka.DefaultSaramaSyncPublisherConfig(),
		},
		watermill.NewSlogLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka publisher: %w", err)
	}

	return &KafkaEventPublisher{watermillPublisher: newWatermillPublisher(publisher, topicPrefix, logger)}, nil
}

// ChannelEventPublisher publishes events on an in-process gochannel pub/sub
type ChannelEventPublisher struct {
	watermillPublisher
	pubSub *gochannel.GoChannel
}

func NewChannelEventPublisher(topicPrefix string, logger *slog.Logger) *ChannelEventPublisher {
	if logger == nil {
		logger = slog.Default()
	}

	pubSub := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 64},
		watermill.NewSlogLogger(logger),
	)

	return &ChannelEventPublisher{
		watermillPublisher: newWatermillPublisher(pubSub, topicPrefix, logger),
		pubSub:             pubSub,
	}
}

// Subscribe returns the message stream of one event type
func (p *ChannelEventPublisher) Subscribe(ctx context.Context, eventType string) (<-chan *message.Message, error) {
	return p.pubSub.Subscribe(ctx, p.Topic(eventType))
}

// NewEventPublisher picks Kafka when brokers are configured, gochannel otherwise
func NewEventPublisher(brokers []string, topicPrefix string, logger *slog.Logger) (EventPublisher, error) {
	if len(brokers) > 0 {
		return NewKafkaEventPublisher(brokers, topicPrefix, logger)
	}
	return NewChannelEventPublisher(topicPrefix, logger), nil
}
