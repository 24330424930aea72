package notification

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/aquawatch/notification-service/internal/config"
)

func newTestWorker(t *testing.T, smsGW, emailGW *MockGateway) (*Worker, *MockLogRepository, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	logs := &MockLogRepository{}
	registry := NewRegistry(
		NewSMSDispatcher(twilioReady, smsGW, logs, zap.NewNop()),
		NewEmailDispatcher(config.EmailConfig{Provider: "api", APIKey: "re_1"}, config.SMTPConfig{}, emailGW, nil, logs, zap.NewNop()),
	)
	return NewWorker(registry, rdb, zap.NewNop()), logs, mr
}

func TestWorker_ProcessTask(t *testing.T) {
	smsGW, emailGW := &MockGateway{}, &MockGateway{}
	w, logs, mr := newTestWorker(t, smsGW, emailGW)

	err := w.ProcessTask(context.Background(), []byte(`{"id":"task-1","type":"email","to":"ops@example.com","subject":"Hi","body":"<p>x</p>"}`))
	require.NoError(t, err)
	require.Len(t, emailGW.Sent(), 1)
	assert.Equal(t, "Hi", emailGW.Sent()[0].Subject)
	assert.Empty(t, smsGW.Sent())
	assert.True(t, mr.Exists("notif:sent:task-1"))

	all, _ := logs.FindByType(context.Background(), Email)
	assert.Len(t, all, 1)
}

func TestWorker_ProcessTask_Idempotent(t *testing.T) {
	smsGW := &MockGateway{}
	w, logs, _ := newTestWorker(t, smsGW, &MockGateway{})

	body := []byte(`{"id":"task-2","type":"SMS","to":"+15551234567","body":"hello"}`)
	require.NoError(t, w.ProcessTask(context.Background(), body))
	require.NoError(t, w.ProcessTask(context.Background(), body))

	assert.Len(t, smsGW.Sent(), 1)
	all, _ := logs.FindAll(context.Background())
	assert.Len(t, all, 1)
}

func TestWorker_ProcessTask_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
		gw   *MockGateway
	}{
		{"malformed json", `{"type":`, &MockGateway{}},
		{"unknown type", `{"type":"PAGER","to":"x","body":"y"}`, &MockGateway{}},
		{"missing recipient", `{"type":"SMS","body":"y"}`, &MockGateway{}},
		{"transport failure goes to the dead letter queue", `{"type":"SMS","to":"+1","body":"y"}`, &MockGateway{
			SendFunc: func(context.Context, Message) (Outcome, error) { return Outcome{}, errors.New("dial tcp: refused") },
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, _, _ := newTestWorker(t, tt.gw, &MockGateway{})
			assert.Error(t, w.ProcessTask(context.Background(), []byte(tt.body)))
		})
	}
}

func TestWorker_ProcessTask_RejectedIsAcknowledged(t *testing.T) {
	gw := &MockGateway{SendFunc: func(context.Context, Message) (Outcome, error) {
		return Outcome{Detail: "unsubscribed"}, nil
	}}
	w, logs, _ := newTestWorker(t, gw, &MockGateway{})

	require.NoError(t, w.ProcessTask(context.Background(), []byte(`{"type":"SMS","to":"+1","body":"y"}`)))
	failed, _ := logs.FindByStatus(context.Background(), StatusFailed)
	require.Len(t, failed, 1)
	assert.Equal(t, "unsubscribed", *failed[0].ErrorMessage)
}

func TestWorker_ProcessTask_RedisWriteFailureIsLogged(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { rdb.Close() })

	core, recorded := observer.New(zap.WarnLevel)
	smsGW := &MockGateway{}
	registry := NewRegistry(NewSMSDispatcher(twilioReady, smsGW, &MockLogRepository{}, zap.NewNop()))
	w := NewWorker(registry, rdb, zap.New(core))

	mr.SetError("READONLY replica")
	err := w.ProcessTask(context.Background(), []byte(`{"id":"task-9","type":"sms","to":"+15551234567","body":"hello"}`))
	require.NoError(t, err)
	assert.Len(t, smsGW.Sent(), 1)

	marked := recorded.FilterMessage("failed to mark task as processed").All()
	require.Len(t, marked, 1)
	assert.Equal(t, "task-9", marked[0].ContextMap()["task_id"])
}
