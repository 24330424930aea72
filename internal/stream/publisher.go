package stream

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aquawatch/notification-service/internal/alert"
)

// Producer writes keyed messages to a topic.
type Producer interface {
	Publish(ctx context.Context, key string, value []byte) error
}

// KafkaPublisher forwards created alerts to the alert topic keyed by alert id.
type KafkaPublisher struct {
	producer Producer
}

func NewKafkaPublisher(producer Producer) *KafkaPublisher {
	return &KafkaPublisher{producer: producer}
}

func (p *KafkaPublisher) AlertCreated(ctx context.Context, a *alert.Alert) error {
	value, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("failed to marshal alert: %w", err)
	}
	return p.producer.Publish(ctx, a.ID, value)
}
