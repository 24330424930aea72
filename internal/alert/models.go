package alert

import (
	"strings"
	"time"
)

type Type string

const (
	TypeAnomaly Type = "ANOMALY"
	TypeSystem  Type = "SYSTEM"
	TypeCustom  Type = "CUSTOM"
)

type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityHigh     Severity = "HIGH"
	SeverityMedium   Severity = "MEDIUM"
	SeverityLow      Severity = "LOW"
)

// ChannelStatus is the per-channel outcome stored on an Alert.
type ChannelStatus string

const (
	ChannelSuccess ChannelStatus = "SUCCESS"
	ChannelFailed  ChannelStatus = "FAILED"
	ChannelSkipped ChannelStatus = "SKIPPED"
)

// Alert is created once per dispatch and never deleted.
type Alert struct {
	ID             string        `json:"id"`
	AlertType      Type          `json:"alert_type"`
	Severity       Severity      `json:"severity"`
	Title          string        `json:"title"`
	Message        string        `json:"message"`
	SensorID       *string       `json:"sensor_id,omitempty"`
	AnomalyID      *string       `json:"anomaly_id,omitempty"`
	Timestamp      time.Time     `json:"timestamp"`
	RecipientPhone string        `json:"recipient_phone"`
	RecipientEmail string        `json:"recipient_email"`
	SentSMS        bool          `json:"sent_sms"`
	SentEmail      bool          `json:"sent_email"`
	SMSStatus      ChannelStatus `json:"sms_status"`
	EmailStatus    ChannelStatus `json:"email_status"`
}

// Request asks for an alert to be created and dispatched.
type Request struct {
	AlertType      Type     `json:"alert_type"`
	Severity       Severity `json:"severity"`
	Title          string   `json:"title"`
	Message        string   `json:"message"`
	SensorID       string   `json:"sensor_id,omitempty"`
	AnomalyID      string   `json:"anomaly_id,omitempty"`
	RecipientPhone string   `json:"recipient_phone,omitempty"`
	RecipientEmail string   `json:"recipient_email,omitempty"`
}

func (r Request) Validate() error {
	switch {
	case strings.TrimSpace(string(r.AlertType)) == "":
		return &ValidationError{Field: "alert_type", Reason: "is required"}
	case strings.TrimSpace(string(r.Severity)) == "":
		return &ValidationError{Field: "severity", Reason: "is required"}
	case strings.TrimSpace(r.Title) == "":
		return &ValidationError{Field: "title", Reason: "is required"}
	case strings.TrimSpace(r.Message) == "":
		return &ValidationError{Field: "message", Reason: "is required"}
	}

	switch r.AlertType {
	case TypeAnomaly, TypeSystem, TypeCustom:
	default:
		return &ValidationError{Field: "alert_type", Reason: "must be one of ANOMALY, SYSTEM, CUSTOM"}
	}
	switch r.Severity {
	case SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow:
	default:
		return &ValidationError{Field: "severity", Reason: "must be one of CRITICAL, HIGH, MEDIUM, LOW"}
	}
	return nil
}

// AnomalyRequest is an anomaly event emitted by the upstream detector.
type AnomalyRequest struct {
	ID             string     `json:"id"`
	Type           string     `json:"type"`
	Parameter      string     `json:"parameter"`
	Value          *float64   `json:"value,omitempty"`
	Message        string     `json:"message"`
	SensorID       string     `json:"sensor_id"`
	Latitude       *float64   `json:"latitude,omitempty"`
	Longitude      *float64   `json:"longitude,omitempty"`
	Timestamp      *time.Time `json:"timestamp,omitempty"`
	RecipientPhone string     `json:"recipient_phone,omitempty"`
	RecipientEmail string     `json:"recipient_email,omitempty"`
}

func (r AnomalyRequest) Validate() error {
	required := []struct {
		field, value string
	}{
		{"id", r.ID},
		{"type", r.Type},
		{"parameter", r.Parameter},
		{"message", r.Message},
		{"sensor_id", r.SensorID},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return &ValidationError{Field: f.field, Reason: "is required"}
		}
	}
	return nil
}
