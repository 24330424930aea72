package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/aquawatch/notification-service/internal/config"
)

const smsNotConfigured = "Twilio credentials not configured"

// NewSMSDispatcher routes SMS through Twilio when credentials are present.
func NewSMSDispatcher(cfg config.TwilioConfig, gw Gateway, logs LogRepository, logger *zap.Logger) *Dispatcher {
	configured := cfg.Configured()
	return NewDispatcher(SMS, func() (Gateway, string) {
		if !configured || gw == nil {
			return nil, smsNotConfigured
		}
		return gw, ""
	}, logs, logger)
}

// TwilioGateway sends SMS through the Twilio Messages REST API.
type TwilioGateway struct {
	client *resty.Client
	sid    string
	from   string
}

type twilioMessage struct {
	SID    string `json:"sid"`
	Status string `json:"status"`
}

type twilioError struct {
	Code     int    `json:"code"`
	Message  string `json:"message"`
	MoreInfo string `json:"more_info"`
	Status   int    `json:"status"`
}

func NewTwilioGateway(cfg config.TwilioConfig) *TwilioGateway {
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetBasicAuth(cfg.AccountSID, cfg.AuthToken).
		SetTimeout(15 * time.Second)

	return &TwilioGateway{client: client, sid: cfg.AccountSID, from: cfg.FromNumber}
}

func (g *TwilioGateway) Name() string {
	return "twilio"
}

func (g *TwilioGateway) Send(ctx context.Context, msg Message) (Outcome, error) {
	var sent twilioMessage
	var apiErr twilioError

	resp, err := g.client.R().
		SetContext(ctx).
		SetPathParam("sid", g.sid).
		SetFormData(map[string]string{
			"To":   msg.To,
			"From": g.from,
			"Body": msg.Body,
		}).
		SetResult(&sent).
		SetError(&apiErr).
		Post("/2010-04-01/Accounts/{sid}/Messages.json")
	if err != nil {
		return Outcome{}, err
	}

	if resp.IsError() {
		detail := apiErr.Message
		if detail == "" {
			detail = fmt.Sprintf("Twilio returned status %d", resp.StatusCode())
		}
		return Outcome{Detail: detail}, nil
	}

	return Outcome{Accepted: true, ProviderID: sent.SID}, nil
}
