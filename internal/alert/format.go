package alert

import (
	"bytes"
	"fmt"
	"html/template"
	"strconv"
	"strings"
	"time"
)

// SeverityFor maps an anomaly type to a severity, ignoring case.
func SeverityFor(anomalyType string) Severity {
	switch strings.ToUpper(anomalyType) {
	case "SPIKE":
		return SeverityHigh
	case "DRIFT":
		return SeverityMedium
	case "DROPOUT":
		return SeverityCritical
	default:
		return SeverityMedium
	}
}

func anomalyTitle(anomalyType string) string {
	return "Anomaly Detected: " + anomalyType
}

func anomalyMessage(r AnomalyRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Anomaly Type: %s\n", r.Type)
	fmt.Fprintf(&b, "Parameter: %s\n", r.Parameter)
	if r.Value != nil {
		fmt.Fprintf(&b, "Value: %s\n", formatFloat(*r.Value))
	}
	fmt.Fprintf(&b, "Message: %s\n", r.Message)
	if r.Latitude != nil && r.Longitude != nil {
		fmt.Fprintf(&b, "Location: %s, %s\n", formatFloat(*r.Latitude), formatFloat(*r.Longitude))
	}
	return b.String()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func smsText(a *Alert) string {
	return fmt.Sprintf("[%s] %s: %s", a.Severity, a.Title, a.Message)
}

func emailSubject(a *Alert) string {
	return fmt.Sprintf("[AquaWatch] %s - %s", a.Severity, a.Title)
}

var emailTemplate = template.Must(template.New("alert").Parse(
	`<html><body>` +
		`<h2>{{.Title}}</h2>` +
		`<p><strong>Severity:</strong> {{.Severity}}</p>` +
		`<p><strong>Message:</strong> {{.Message}}</p>` +
		`{{with .SensorID}}<p><strong>Sensor ID:</strong> {{.}}</p>{{end}}` +
		`{{with .AnomalyID}}<p><strong>Anomaly ID:</strong> {{.}}</p>{{end}}` +
		`<p><strong>Timestamp:</strong> {{.Timestamp}}</p>` +
		`</body></html>`))

func emailBody(a *Alert) (string, error) {
	data := struct {
		Title, Severity, Message, SensorID, AnomalyID, Timestamp string
	}{
		Title:     a.Title,
		Severity:  string(a.Severity),
		Message:   a.Message,
		SensorID:  deref(a.SensorID),
		AnomalyID: deref(a.AnomalyID),
		Timestamp: a.Timestamp.Format(time.RFC3339),
	}

	var buf bytes.Buffer
	if err := emailTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render email body: %w", err)
	}
	return buf.String(), nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
