package notification

import (
	"context"
	"fmt"

	"github.com/smukkama/weather-index-server/internal/alert"
	"github.com/smukkama/weather-index-server/internal/protocol"
	"github.com/smukkama/weather-index-server/internal/queue"
)

// Publisher forwards alert-created events to the alerts topic, where the
// notification service picks them up for delivery.
type Publisher struct {
	producer *queue.Producer
}

// NewPublisher creates a Kafka-backed alert notifier.
func NewPublisher(producer *queue.Producer) *Publisher {
	return &Publisher{producer: producer}
}

// AlertCreated implements alert.Notifier.
func (p *Publisher) AlertCreated(ctx context.Context, a *alert.Alert) error {
	event := &protocol.AlertEvent{
		AlertID:    a.ID,
		Region:     a.Region,
		Level:      string(a.Level),
		LevelName:  alert.LevelName(a.Level),
		IndexValue: a.IndexValue,
		Message:    a.Message,
		CreatedAt:  a.CreatedAt,
	}

	data, err := protocol.EncodeAlertEvent(event)
	if err != nil {
		return fmt.Errorf("failed to encode alert event: %w", err)
	}

	return p.producer.Publish(ctx, a.Region, data)
}
