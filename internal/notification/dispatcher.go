package notification

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/aquawatch/notification-service/pkg/database"
)

var tracer = otel.Tracer("notification")

// Route picks the gateway for the next send. A nil gateway means the channel
// is unconfigured and reason is recorded on the PENDING log.
type Route func() (gw Gateway, reason string)

// Dispatcher sends notifications over one channel and writes exactly one
// NotificationLog per Send.
type Dispatcher struct {
	channel Type
	route   Route
	logs    LogRepository
	logger  *zap.Logger
	now     func() time.Time
}

func NewDispatcher(channel Type, route Route, logs LogRepository, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		channel: channel,
		route:   route,
		logs:    logs,
		logger:  logger.With(zap.String("channel", string(channel))),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (d *Dispatcher) Channel() Type {
	return d.channel
}

// Send reports whether the provider accepted the notification.
// The error is a *TransportError when the gateway could not be reached and a
// *database.StorageError when the log could not be written.
func (d *Dispatcher) Send(ctx context.Context, req Request) (bool, error) {
	ctx, span := tracer.Start(ctx, "notification.send")
	span.SetAttributes(attribute.String("notification.channel", string(d.channel)))
	defer span.End()

	timer := prometheus.NewTimer(NotificationLatency.WithLabelValues(string(d.channel)))
	defer timer.ObserveDuration()

	entry := &NotificationLog{
		ID:        uuid.New().String(),
		Type:      d.channel,
		Recipient: req.Recipient,
		Subject:   optional(req.Subject),
		Message:   req.Body,
		Timestamp: d.now(),
		AlertID:   optional(req.AlertID),
	}

	gw, reason := d.route()
	if gw == nil {
		d.logger.Warn("channel not configured, notification left pending",
			zap.String("recipient", req.Recipient), zap.String("reason", reason))
		return false, d.record(ctx, entry, StatusPending, reason)
	}
	span.SetAttributes(attribute.String("notification.provider", gw.Name()))

	outcome, err := gw.Send(ctx, Message{To: req.Recipient, Subject: req.Subject, Body: req.Body})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport failure")
		d.logger.Error("provider call failed",
			zap.String("provider", gw.Name()), zap.String("recipient", req.Recipient), zap.Error(err))
		if rerr := d.record(ctx, entry, StatusFailed, err.Error()); rerr != nil {
			return false, rerr
		}
		return false, &TransportError{Channel: d.channel, Provider: gw.Name(), Err: err}
	}

	if !outcome.Accepted {
		span.SetStatus(codes.Error, "rejected")
		d.logger.Warn("provider rejected notification",
			zap.String("provider", gw.Name()), zap.String("recipient", req.Recipient), zap.String("detail", outcome.Detail))
		return false, d.record(ctx, entry, StatusFailed, outcome.Detail)
	}

	d.logger.Info("notification sent",
		zap.String("provider", gw.Name()), zap.String("recipient", req.Recipient), zap.String("provider_id", outcome.ProviderID))
	return true, d.record(ctx, entry, StatusSuccess, "")
}

func (d *Dispatcher) record(ctx context.Context, entry *NotificationLog, status Status, detail string) error {
	entry.Status = status
	entry.ErrorMessage = optional(detail)
	NotificationsTotal.WithLabelValues(string(d.channel), string(status)).Inc()

	if err := d.logs.Save(ctx, entry); err != nil {
		d.logger.Error("failed to save notification log", zap.String("log_id", entry.ID), zap.Error(err))
		return database.Wrap("save notification log", err)
	}
	return nil
}
