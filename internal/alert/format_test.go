package alert

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeverityFor(t *testing.T) {
	tests := []struct {
		anomalyType string
		want        Severity
	}{
		{"SPIKE", SeverityHigh},
		{"spike", SeverityHigh},
		{"DRIFT", SeverityMedium},
		{"Drift", SeverityMedium},
		{"DROPOUT", SeverityCritical},
		{"dropOut", SeverityCritical},
		{"FLATLINE", SeverityMedium},
		{"", SeverityMedium},
	}

	for _, tt := range tests {
		t.Run(tt.anomalyType, func(t *testing.T) {
			assert.Equal(t, tt.want, SeverityFor(tt.anomalyType))
		})
	}
}

func float(v float64) *float64 { return &v }

func TestAnomalyMessage(t *testing.T) {
	tests := []struct {
		name string
		req  AnomalyRequest
		want string
	}{
		{
			name: "all fields",
			req: AnomalyRequest{
				Type: "SPIKE", Parameter: "ph", Value: float(9.25), Message: "pH above threshold",
				Latitude: float(36.8), Longitude: float(10.18),
			},
			want: "Anomaly Type: SPIKE\nParameter: ph\nValue: 9.25\nMessage: pH above threshold\nLocation: 36.8, 10.18\n",
		},
		{
			name: "no value and partial location",
			req:  AnomalyRequest{Type: "DROPOUT", Parameter: "turbidity", Message: "sensor silent", Latitude: float(1)},
			want: "Anomaly Type: DROPOUT\nParameter: turbidity\nMessage: sensor silent\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, anomalyMessage(tt.req))
		})
	}
}

func TestChannelFormats(t *testing.T) {
	ts := time.Date(2026, 5, 4, 10, 30, 0, 0, time.UTC)
	a := &Alert{
		Severity:  SeverityHigh,
		Title:     "Anomaly Detected: SPIKE",
		Message:   "pH high",
		SensorID:  optional("sensor-7"),
		Timestamp: ts,
	}

	assert.Equal(t, "[HIGH] Anomaly Detected: SPIKE: pH high", smsText(a))
	assert.Equal(t, "[AquaWatch] HIGH - Anomaly Detected: SPIKE", emailSubject(a))

	body, err := emailBody(a)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(body, "<html><body><h2>Anomaly Detected: SPIKE</h2>"))
	assert.Contains(t, body, "<p><strong>Sensor ID:</strong> sensor-7</p>")
	assert.NotContains(t, body, "Anomaly ID")
	assert.Contains(t, body, "<p><strong>Timestamp:</strong> 2026-05-04T10:30:00Z</p>")

	order := []string{"Severity:", "Message:", "Sensor ID:", "Timestamp:"}
	last := -1
	for _, label := range order {
		idx := strings.Index(body, label)
		require.Greater(t, idx, last, label)
		last = idx
	}
}

func TestEmailBody_EscapesMarkup(t *testing.T) {
	body, err := emailBody(&Alert{Title: "<script>", Severity: SeverityLow, Message: "a & b"})
	require.NoError(t, err)
	assert.NotContains(t, body, "<script>")
	assert.Contains(t, body, "a &amp; b")
}
