package ingest

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/aquawatch/notification-service/internal/alert"
	"github.com/aquawatch/notification-service/pkg/messaging"
)

// AlertCreator turns an anomaly event into a dispatched alert.
type AlertCreator interface {
	CreateAlertFromAnomaly(ctx context.Context, req alert.AnomalyRequest) (*alert.Alert, error)
}

// Handler decodes anomaly events from the message bus. dedup may be nil.
type Handler struct {
	alerts AlertCreator
	dedup  *Deduper
	logger *zap.Logger
}

func NewHandler(alerts AlertCreator, dedup *Deduper, logger *zap.Logger) *Handler {
	return &Handler{alerts: alerts, dedup: dedup, logger: logger}
}

func (h *Handler) Handle(ctx context.Context, payload []byte) error {
	var req alert.AnomalyRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return fmt.Errorf("failed to decode anomaly event: %w", err)
	}
	if err := req.Validate(); err != nil {
		return fmt.Errorf("invalid anomaly event: %w", err)
	}

	if h.dedup != nil && !h.dedup.Claim(ctx, req.ID) {
		h.logger.Info("anomaly already alerted", zap.String("anomaly_id", req.ID))
		return nil
	}

	a, err := h.alerts.CreateAlertFromAnomaly(ctx, req)
	if err != nil {
		if h.dedup != nil {
			h.dedup.Release(ctx, req.ID)
		}
		return fmt.Errorf("failed to create alert for anomaly %s: %w", req.ID, err)
	}

	h.logger.Info("alert created from anomaly",
		zap.String("anomaly_id", req.ID),
		zap.String("alert_id", a.ID),
		zap.String("severity", string(a.Severity)),
	)
	return nil
}

// ConsumeKafka feeds anomaly events from the consumer until ctx is done.
func (h *Handler) ConsumeKafka(ctx context.Context, consumer *messaging.KafkaConsumer) {
	consumer.Consume(ctx, func(ctx context.Context, _ string, value []byte) error {
		return h.Handle(ctx, value)
	})
}

// SubscribeMQTT feeds anomaly events published on topic. Messages are handled
// with ctx, so cancelling it stops in-flight work.
func (h *Handler) SubscribeMQTT(ctx context.Context, client *messaging.MQTTClient, topic string) error {
	return client.Subscribe(topic, 1, func(_ string, payload []byte) error {
		return h.Handle(ctx, payload)
	})
}
