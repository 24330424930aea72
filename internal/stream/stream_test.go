package stream

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aquawatch/notification-service/internal/alert"
)

func TestHub_BroadcastsAlerts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub(zap.NewNop())
	go hub.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	a := &alert.Alert{ID: "alert-1", Severity: alert.SeverityCritical, Title: "Anomaly Detected: DROPOUT"}
	require.NoError(t, hub.AlertCreated(context.Background(), a))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)

	var got struct {
		Type    string      `json:"type"`
		Payload alert.Alert `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(msg, &got))
	assert.Equal(t, "alert", got.Type)
	assert.Equal(t, "alert-1", got.Payload.ID)
	assert.Equal(t, alert.SeverityCritical, got.Payload.Severity)
}

func TestHub_AlertCreatedDoesNotBlock(t *testing.T) {
	hub := NewHub(zap.NewNop())
	a := &alert.Alert{ID: "x"}

	var err error
	for i := 0; i < cap(hub.broadcast)+1; i++ {
		err = hub.AlertCreated(context.Background(), a)
	}
	assert.Error(t, err)
}

type fakeProducer struct {
	key   string
	value []byte
	err   error
}

func (f *fakeProducer) Publish(_ context.Context, key string, value []byte) error {
	f.key, f.value = key, value
	return f.err
}

func TestKafkaPublisher(t *testing.T) {
	p := &fakeProducer{}
	pub := NewKafkaPublisher(p)

	require.NoError(t, pub.AlertCreated(context.Background(), &alert.Alert{ID: "alert-7", Title: "t"}))
	assert.Equal(t, "alert-7", p.key)

	var decoded alert.Alert
	require.NoError(t, json.Unmarshal(p.value, &decoded))
	assert.Equal(t, "t", decoded.Title)

	p.err = errors.New("leader not available")
	assert.Error(t, pub.AlertCreated(context.Background(), &alert.Alert{ID: "alert-8"}))
}
