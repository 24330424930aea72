package main

import (
	"go.uber.org/zap"

	"github.com/aquawatch/notification-service/internal/config"
	"github.com/aquawatch/notification-service/internal/notification"
)

// newDispatchers builds the SMS and email dispatch cores over their configured gateways.
func newDispatchers(cfg config.Config, logs notification.LogRepository, logger *zap.Logger) (sms, email *notification.Dispatcher) {
	sms = notification.NewSMSDispatcher(cfg.Twilio, notification.NewTwilioGateway(cfg.Twilio), logs, logger)

	from := cfg.Email.From
	if from == "" {
		from = cfg.SMTP.From
	}
	email = notification.NewEmailDispatcher(cfg.Email, cfg.SMTP,
		notification.NewResendGateway(cfg.Email.APIKey, from),
		notification.NewSMTPGateway(cfg.SMTP),
		logs, logger)

	logger.Info("dispatch cores ready",
		zap.Bool("twilio_configured", cfg.Twilio.Configured()),
		zap.String("email_provider", cfg.Email.Provider),
	)
	return sms, email
}
