package alert

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/aquawatch/notification-service/internal/config"
	"github.com/aquawatch/notification-service/internal/notification"
	"github.com/aquawatch/notification-service/pkg/database"
)

var tracer = otel.Tracer("alert")

// Sender dispatches one notification over a single channel.
type Sender interface {
	Send(ctx context.Context, req notification.Request) (bool, error)
}

// Listener is told about every persisted alert.
type Listener interface {
	AlertCreated(ctx context.Context, a *Alert) error
}

type Service struct {
	repo      Repository
	sms       Sender
	email     Sender
	cfg       config.AlertConfig
	listeners []Listener
	logger    *zap.Logger
	now       func() time.Time
}

func NewService(repo Repository, sms, email Sender, cfg config.AlertConfig, logger *zap.Logger, listeners ...Listener) *Service {
	return &Service{
		repo:      repo,
		sms:       sms,
		email:     email,
		cfg:       cfg,
		listeners: listeners,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// CreateAlert persists a new alert after fanning it out to the enabled channels.
// Channel failures are recorded on the alert; only validation, transport and
// storage errors are returned.
func (s *Service) CreateAlert(ctx context.Context, req Request) (*Alert, error) {
	return s.create(ctx, req, nil)
}

// CreateAlertFromAnomaly synthesizes an ANOMALY alert from a detector event.
// The event timestamp, when present, replaces the creation time.
func (s *Service) CreateAlertFromAnomaly(ctx context.Context, req AnomalyRequest) (*Alert, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	return s.create(ctx, Request{
		AlertType:      TypeAnomaly,
		Severity:       SeverityFor(req.Type),
		Title:          anomalyTitle(req.Type),
		Message:        anomalyMessage(req),
		SensorID:       req.SensorID,
		AnomalyID:      req.ID,
		RecipientPhone: req.RecipientPhone,
		RecipientEmail: req.RecipientEmail,
	}, req.Timestamp)
}

func (s *Service) create(ctx context.Context, req Request, occurredAt *time.Time) (*Alert, error) {
	req.AlertType = Type(strings.ToUpper(strings.TrimSpace(string(req.AlertType))))
	req.Severity = Severity(strings.ToUpper(strings.TrimSpace(string(req.Severity))))
	if err := req.Validate(); err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "alert.create")
	defer span.End()

	a := &Alert{
		ID:             uuid.New().String(),
		AlertType:      req.AlertType,
		Severity:       req.Severity,
		Title:          req.Title,
		Message:        req.Message,
		SensorID:       optional(req.SensorID),
		AnomalyID:      optional(req.AnomalyID),
		Timestamp:      s.now(),
		RecipientPhone: firstNonEmpty(req.RecipientPhone, s.cfg.DefaultPhone),
		RecipientEmail: firstNonEmpty(req.RecipientEmail, s.cfg.DefaultEmail),
	}
	span.SetAttributes(
		attribute.String("alert.id", a.ID),
		attribute.String("alert.severity", string(a.Severity)),
	)

	if err := s.fanOut(ctx, a); err != nil {
		span.RecordError(err)
		return nil, err
	}

	if occurredAt != nil {
		a.Timestamp = occurredAt.UTC()
	}

	if err := s.repo.Save(ctx, a); err != nil {
		span.RecordError(err)
		return nil, database.Wrap("save alert", err)
	}

	AlertsCreated.WithLabelValues(string(a.AlertType), string(a.Severity)).Inc()
	s.logger.Info("alert created",
		zap.String("alert_id", a.ID),
		zap.String("title", a.Title),
		zap.String("sms_status", string(a.SMSStatus)),
		zap.String("email_status", string(a.EmailStatus)),
	)

	s.notifyListeners(ctx, a)
	return a, nil
}

// fanOut runs the SMS and email legs concurrently. Each leg writes only its own fields.
func (s *Service) fanOut(ctx context.Context, a *Alert) error {
	smsOn := s.cfg.EnableSMS && a.RecipientPhone != ""
	emailOn := s.cfg.EnableEmail && a.RecipientEmail != ""

	var body string
	if emailOn {
		var err error
		if body, err = emailBody(a); err != nil {
			return err
		}
	}

	var g errgroup.Group

	a.SentSMS, a.SMSStatus = false, ChannelSkipped
	if smsOn {
		req := notification.Request{Recipient: a.RecipientPhone, Body: smsText(a), AlertID: a.ID}
		g.Go(func() error {
			sent, err := s.leg(ctx, s.sms, req)
			a.SentSMS, a.SMSStatus = sent, channelStatus(sent)
			return err
		})
	}

	a.SentEmail, a.EmailStatus = false, ChannelSkipped
	if emailOn {
		req := notification.Request{Recipient: a.RecipientEmail, Subject: emailSubject(a), Body: body, AlertID: a.ID}
		g.Go(func() error {
			sent, err := s.leg(ctx, s.email, req)
			a.SentEmail, a.EmailStatus = sent, channelStatus(sent)
			return err
		})
	}

	return g.Wait()
}

func (s *Service) leg(ctx context.Context, sender Sender, req notification.Request) (bool, error) {
	sent, err := sender.Send(ctx, req)
	if err == nil {
		return sent, nil
	}

	var terr *notification.TransportError
	if s.cfg.IsolateTransportErrors && errors.As(err, &terr) {
		s.logger.Warn("transport failure isolated to its channel",
			zap.String("channel", string(terr.Channel)), zap.Error(err))
		return false, nil
	}
	return false, err
}

func (s *Service) notifyListeners(ctx context.Context, a *Alert) {
	for _, l := range s.listeners {
		if err := l.AlertCreated(ctx, a); err != nil {
			s.logger.Warn("alert listener failed", zap.String("alert_id", a.ID), zap.Error(err))
		}
	}
}

func (s *Service) GetAll(ctx context.Context) ([]*Alert, error) {
	alerts, err := s.repo.FindAll(ctx)
	return alerts, database.Wrap("list alerts", err)
}

func (s *Service) GetBySensor(ctx context.Context, sensorID string) ([]*Alert, error) {
	alerts, err := s.repo.FindBySensor(ctx, sensorID)
	return alerts, database.Wrap("list alerts by sensor", err)
}

func (s *Service) GetBySeverity(ctx context.Context, severity Severity) ([]*Alert, error) {
	alerts, err := s.repo.FindBySeverity(ctx, severity)
	return alerts, database.Wrap("list alerts by severity", err)
}

func (s *Service) GetByType(ctx context.Context, t Type) ([]*Alert, error) {
	alerts, err := s.repo.FindByType(ctx, t)
	return alerts, database.Wrap("list alerts by type", err)
}

func (s *Service) GetBetween(ctx context.Context, from, to time.Time) ([]*Alert, error) {
	alerts, err := s.repo.FindBetween(ctx, from, to)
	return alerts, database.Wrap("list alerts by time range", err)
}

func (s *Service) GetByID(ctx context.Context, id string) (*Alert, error) {
	a, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, database.Wrap("get alert", err)
	}
	if a == nil {
		return nil, ErrNotFound
	}
	return a, nil
}

func channelStatus(sent bool) ChannelStatus {
	if sent {
		return ChannelSuccess
	}
	return ChannelFailed
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
