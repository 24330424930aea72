package alert

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/aquawatch/notification-service/internal/notification"
)

// MockRepository keeps alerts in memory. SaveFunc and FindByIDFunc override the defaults.
type MockRepository struct {
	SaveFunc     func(ctx context.Context, a *Alert) error
	FindByIDFunc func(ctx context.Context, id string) (*Alert, error)

	mu     sync.Mutex
	alerts map[string]Alert
}

func (m *MockRepository) Save(ctx context.Context, a *Alert) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, a)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.alerts == nil {
		m.alerts = make(map[string]Alert)
	}
	m.alerts[a.ID] = *a
	return nil
}

func (m *MockRepository) FindByID(ctx context.Context, id string) (*Alert, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.alerts[id]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (m *MockRepository) FindAll(ctx context.Context) ([]*Alert, error) {
	return m.filter(func(*Alert) bool { return true }), nil
}

func (m *MockRepository) FindBySensor(ctx context.Context, sensorID string) ([]*Alert, error) {
	return m.filter(func(a *Alert) bool { return a.SensorID != nil && *a.SensorID == sensorID }), nil
}

func (m *MockRepository) FindBySeverity(ctx context.Context, severity Severity) ([]*Alert, error) {
	return m.filter(func(a *Alert) bool { return a.Severity == severity }), nil
}

func (m *MockRepository) FindByType(ctx context.Context, t Type) ([]*Alert, error) {
	return m.filter(func(a *Alert) bool { return a.AlertType == t }), nil
}

func (m *MockRepository) FindBetween(ctx context.Context, from, to time.Time) ([]*Alert, error) {
	return m.filter(func(a *Alert) bool {
		return !a.Timestamp.Before(from) && !a.Timestamp.After(to)
	}), nil
}

func (m *MockRepository) filter(keep func(*Alert) bool) []*Alert {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*Alert{}
	for _, a := range m.alerts {
		a := a
		if keep(&a) {
			out = append(out, &a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out
}

// MockSender records requests and answers with SendFunc, or success when unset.
type MockSender struct {
	SendFunc func(ctx context.Context, req notification.Request) (bool, error)

	mu       sync.Mutex
	requests []notification.Request
}

func (m *MockSender) Send(ctx context.Context, req notification.Request) (bool, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()
	if m.SendFunc == nil {
		return true, nil
	}
	return m.SendFunc(ctx, req)
}

func (m *MockSender) Requests() []notification.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]notification.Request(nil), m.requests...)
}

// MockListener records alerts it is told about.
type MockListener struct {
	Err error

	mu     sync.Mutex
	alerts []*Alert
}

func (m *MockListener) AlertCreated(ctx context.Context, a *Alert) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alerts = append(m.alerts, a)
	return m.Err
}

func (m *MockListener) Alerts() []*Alert {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*Alert(nil), m.alerts...)
}
