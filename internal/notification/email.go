package notification

import (
	"context"
	"errors"
	"net/url"

	"github.com/resend/resend-go/v2"
	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"github.com/aquawatch/notification-service/internal/config"
)

const emailNotConfigured = "Email provider not configured"

// NewEmailDispatcher routes email to the provider named in cfg.Provider.
// There is no fallback between providers.
func NewEmailDispatcher(cfg config.EmailConfig, smtp config.SMTPConfig, api, relay Gateway, logs LogRepository, logger *zap.Logger) *Dispatcher {
	var route Route
	switch cfg.Provider {
	case config.EmailProviderSMTP:
		ready := smtp.Host != ""
		route = func() (Gateway, string) {
			if !ready || relay == nil {
				return nil, emailNotConfigured
			}
			return relay, ""
		}
	case config.EmailProviderAPI:
		ready := cfg.APIKey != ""
		route = func() (Gateway, string) {
			if !ready || api == nil {
				return nil, emailNotConfigured
			}
			return api, ""
		}
	default:
		route = func() (Gateway, string) {
			return nil, emailNotConfigured
		}
	}
	return NewDispatcher(Email, route, logs, logger)
}

// ResendGateway sends HTML email through the Resend API.
type ResendGateway struct {
	client *resend.Client
	from   string
}

func NewResendGateway(apiKey, from string) *ResendGateway {
	return &ResendGateway{client: resend.NewClient(apiKey), from: from}
}

func (g *ResendGateway) Name() string {
	return "resend"
}

func (g *ResendGateway) Send(ctx context.Context, msg Message) (Outcome, error) {
	params := &resend.SendEmailRequest{
		From:    g.from,
		To:      []string{msg.To},
		Subject: msg.Subject,
		Html:    msg.Body,
	}

	sent, err := g.client.Emails.SendWithContext(ctx, params)
	if err != nil {
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			return Outcome{}, err
		}
		return Outcome{Detail: err.Error()}, nil
	}

	return Outcome{Accepted: true, ProviderID: sent.Id}, nil
}

// SMTPGateway relays HTML email through an SMTP server.
type SMTPGateway struct {
	dialer *gomail.Dialer
	from   string
}

func NewSMTPGateway(cfg config.SMTPConfig) *SMTPGateway {
	return &SMTPGateway{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
	}
}

func (g *SMTPGateway) Name() string {
	return "smtp"
}

// Send has no rejected outcome: any SMTP error surfaces as a transport failure.
func (g *SMTPGateway) Send(_ context.Context, msg Message) (Outcome, error) {
	m := gomail.NewMessage()
	m.SetHeader("From", g.from)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/html", msg.Body)

	if err := g.dialer.DialAndSend(m); err != nil {
		return Outcome{}, err
	}
	return Outcome{Accepted: true}, nil
}
