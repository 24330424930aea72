package notification

import (
	"context"
	"sync"
	"time"
)

// MockGateway is a Gateway whose behaviour is set per test.
type MockGateway struct {
	NameValue string
	SendFunc  func(ctx context.Context, msg Message) (Outcome, error)

	mu   sync.Mutex
	sent []Message
}

func (m *MockGateway) Name() string {
	if m.NameValue == "" {
		return "mock"
	}
	return m.NameValue
}

func (m *MockGateway) Send(ctx context.Context, msg Message) (Outcome, error) {
	m.mu.Lock()
	m.sent = append(m.sent, msg)
	m.mu.Unlock()
	if m.SendFunc == nil {
		return Outcome{Accepted: true, ProviderID: "mock-id"}, nil
	}
	return m.SendFunc(ctx, msg)
}

// Sent returns the messages the gateway was asked to deliver.
func (m *MockGateway) Sent() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Message(nil), m.sent...)
}

// MockLogRepository keeps logs in memory unless SaveFunc overrides Save.
type MockLogRepository struct {
	SaveFunc func(ctx context.Context, entry *NotificationLog) error

	mu   sync.Mutex
	logs []*NotificationLog
}

func (m *MockLogRepository) Save(ctx context.Context, entry *NotificationLog) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, entry)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *entry
	m.logs = append(m.logs, &copied)
	return nil
}

func (m *MockLogRepository) FindAll(ctx context.Context) ([]*NotificationLog, error) {
	return m.filter(func(*NotificationLog) bool { return true }), nil
}

func (m *MockLogRepository) FindByType(ctx context.Context, t Type) ([]*NotificationLog, error) {
	return m.filter(func(l *NotificationLog) bool { return l.Type == t }), nil
}

func (m *MockLogRepository) FindByStatus(ctx context.Context, status Status) ([]*NotificationLog, error) {
	return m.filter(func(l *NotificationLog) bool { return l.Status == status }), nil
}

func (m *MockLogRepository) FindByAlert(ctx context.Context, alertID string) ([]*NotificationLog, error) {
	return m.filter(func(l *NotificationLog) bool { return l.AlertID != nil && *l.AlertID == alertID }), nil
}

func (m *MockLogRepository) FindBetween(ctx context.Context, from, to time.Time) ([]*NotificationLog, error) {
	return m.filter(func(l *NotificationLog) bool {
		return !l.Timestamp.Before(from) && !l.Timestamp.After(to)
	}), nil
}

func (m *MockLogRepository) filter(keep func(*NotificationLog) bool) []*NotificationLog {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*NotificationLog{}
	for _, l := range m.logs {
		if keep(l) {
			out = append(out, l)
		}
	}
	return out
}
