package notification

import (
	"time"
)

// Type is the delivery channel of a notification.
type Type string

const (
	SMS   Type = "SMS"
	Email Type = "EMAIL"
)

// Status is the terminal outcome of one send attempt.
type Status string

const (
	StatusSuccess Status = "SUCCESS"
	StatusFailed  Status = "FAILED"
	StatusPending Status = "PENDING"
)

// NotificationLog records exactly one send attempt.
type NotificationLog struct {
	ID           string    `json:"id"`
	Type         Type      `json:"notification_type"`
	Recipient    string    `json:"recipient"`
	Subject      *string   `json:"subject,omitempty"`
	Message      string    `json:"message"`
	Status       Status    `json:"status"`
	ErrorMessage *string   `json:"error_message,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
	AlertID      *string   `json:"alert_id,omitempty"`
}

// Request is one notification to dispatch. Empty Subject and AlertID mean absent.
type Request struct {
	Recipient string
	Subject   string
	Body      string
	AlertID   string
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
