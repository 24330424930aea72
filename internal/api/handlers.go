package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/aquawatch/notification-service/internal/alert"
	"github.com/aquawatch/notification-service/internal/notification"
	"github.com/aquawatch/notification-service/pkg/database"
	"github.com/aquawatch/notification-service/pkg/jsonutil"
)

// AlertService is the alert dispatch core as seen by HTTP clients.
type AlertService interface {
	CreateAlert(ctx context.Context, req alert.Request) (*alert.Alert, error)
	CreateAlertFromAnomaly(ctx context.Context, req alert.AnomalyRequest) (*alert.Alert, error)
	GetAll(ctx context.Context) ([]*alert.Alert, error)
	GetBySensor(ctx context.Context, sensorID string) ([]*alert.Alert, error)
	GetBySeverity(ctx context.Context, severity alert.Severity) ([]*alert.Alert, error)
	GetByType(ctx context.Context, t alert.Type) ([]*alert.Alert, error)
	GetBetween(ctx context.Context, from, to time.Time) ([]*alert.Alert, error)
	GetByID(ctx context.Context, id string) (*alert.Alert, error)
}

type Handler struct {
	alerts AlertService
	sms    alert.Sender
	email  alert.Sender
	logs   notification.LogRepository
	logger *zap.Logger
}

func NewHandler(alerts AlertService, sms, email alert.Sender, logs notification.LogRepository, logger *zap.Logger) *Handler {
	return &Handler{alerts: alerts, sms: sms, email: email, logs: logs, logger: logger}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	jsonutil.WriteJSON(w, http.StatusOK, map[string]string{
		"status":  "UP",
		"service": "notification-service",
	})
}

func (h *Handler) CreateAlert(w http.ResponseWriter, r *http.Request) {
	var req alert.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonutil.WriteErrorJSON(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	h.logger.Info("alert creation request",
		zap.String("alert_type", string(req.AlertType)), zap.String("severity", string(req.Severity)),
		zap.String("caller", Subject(r.Context())))
	a, err := h.alerts.CreateAlert(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	jsonutil.WriteJSON(w, http.StatusOK, a)
}

func (h *Handler) CreateAlertFromAnomaly(w http.ResponseWriter, r *http.Request) {
	var req alert.AnomalyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonutil.WriteErrorJSON(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	h.logger.Info("anomaly alert request", zap.String("anomaly_id", req.ID), zap.String("type", req.Type))
	a, err := h.alerts.CreateAlertFromAnomaly(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	jsonutil.WriteJSON(w, http.StatusOK, a)
}

// ListAlerts returns every alert, or those inside ?from=&to= when both are given.
func (h *Handler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	from, to, ranged, err := timeRange(r)
	if err != nil {
		jsonutil.WriteErrorJSON(w, http.StatusBadRequest, err.Error())
		return
	}

	var alerts []*alert.Alert
	if ranged {
		alerts, err = h.alerts.GetBetween(r.Context(), from, to)
	} else {
		alerts, err = h.alerts.GetAll(r.Context())
	}
	h.writeList(w, alerts, err)
}

func (h *Handler) GetAlert(w http.ResponseWriter, r *http.Request) {
	a, err := h.alerts.GetByID(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, err)
		return
	}
	jsonutil.WriteJSON(w, http.StatusOK, a)
}

func (h *Handler) AlertsBySensor(w http.ResponseWriter, r *http.Request) {
	alerts, err := h.alerts.GetBySensor(r.Context(), mux.Vars(r)["sensorId"])
	h.writeList(w, alerts, err)
}

func (h *Handler) AlertsBySeverity(w http.ResponseWriter, r *http.Request) {
	severity := alert.Severity(strings.ToUpper(mux.Vars(r)["severity"]))
	alerts, err := h.alerts.GetBySeverity(r.Context(), severity)
	h.writeList(w, alerts, err)
}

func (h *Handler) AlertsByType(w http.ResponseWriter, r *http.Request) {
	t := alert.Type(strings.ToUpper(mux.Vars(r)["alertType"]))
	alerts, err := h.alerts.GetByType(r.Context(), t)
	h.writeList(w, alerts, err)
}

type smsRequest struct {
	To      string `json:"to"`
	Message string `json:"message"`
}

type emailRequest struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

type sendResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	Recipient string `json:"recipient"`
}

func (h *Handler) SendSMS(w http.ResponseWriter, r *http.Request) {
	var req smsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonutil.WriteErrorJSON(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.To) == "" || strings.TrimSpace(req.Message) == "" {
		jsonutil.WriteErrorJSON(w, http.StatusBadRequest, "to and message are required")
		return
	}

	h.logger.Info("sms request received", zap.String("to", req.To), zap.String("caller", Subject(r.Context())))
	sent, err := h.sms.Send(r.Context(), notification.Request{Recipient: req.To, Body: req.Message})
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeSendResult(w, sent, req.To, "SMS sent successfully", "Failed to send SMS")
}

func (h *Handler) SendEmail(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonutil.WriteErrorJSON(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.To) == "" || strings.TrimSpace(req.Subject) == "" || strings.TrimSpace(req.Message) == "" {
		jsonutil.WriteErrorJSON(w, http.StatusBadRequest, "to, subject and message are required")
		return
	}

	h.logger.Info("email request received",
		zap.String("to", req.To), zap.String("subject", req.Subject), zap.String("caller", Subject(r.Context())))
	sent, err := h.email.Send(r.Context(), notification.Request{Recipient: req.To, Subject: req.Subject, Body: req.Message})
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeSendResult(w, sent, req.To, "Email sent successfully", "Failed to send email")
}

func (h *Handler) writeSendResult(w http.ResponseWriter, sent bool, recipient, okMsg, failMsg string) {
	if sent {
		jsonutil.WriteJSON(w, http.StatusOK, sendResponse{Success: true, Message: okMsg, Recipient: recipient})
		return
	}
	jsonutil.WriteJSON(w, http.StatusInternalServerError, sendResponse{Message: failMsg, Recipient: recipient})
}

func (h *Handler) ListLogs(w http.ResponseWriter, r *http.Request) {
	from, to, ranged, err := timeRange(r)
	if err != nil {
		jsonutil.WriteErrorJSON(w, http.StatusBadRequest, err.Error())
		return
	}

	var logs []*notification.NotificationLog
	if ranged {
		logs, err = h.logs.FindBetween(r.Context(), from, to)
	} else {
		logs, err = h.logs.FindAll(r.Context())
	}
	h.writeLogs(w, logs, err)
}

func (h *Handler) LogsByType(w http.ResponseWriter, r *http.Request) {
	t := notification.Type(strings.ToUpper(mux.Vars(r)["type"]))
	if t != notification.SMS && t != notification.Email {
		jsonutil.WriteErrorJSON(w, http.StatusBadRequest, "type must be SMS or EMAIL")
		return
	}
	logs, err := h.logs.FindByType(r.Context(), t)
	h.writeLogs(w, logs, err)
}

func (h *Handler) LogsByStatus(w http.ResponseWriter, r *http.Request) {
	status := notification.Status(strings.ToUpper(mux.Vars(r)["status"]))
	switch status {
	case notification.StatusSuccess, notification.StatusFailed, notification.StatusPending:
	default:
		jsonutil.WriteErrorJSON(w, http.StatusBadRequest, "status must be SUCCESS, FAILED or PENDING")
		return
	}
	logs, err := h.logs.FindByStatus(r.Context(), status)
	h.writeLogs(w, logs, err)
}

func (h *Handler) LogsByAlert(w http.ResponseWriter, r *http.Request) {
	logs, err := h.logs.FindByAlert(r.Context(), mux.Vars(r)["alertId"])
	h.writeLogs(w, logs, err)
}

func (h *Handler) writeList(w http.ResponseWriter, alerts []*alert.Alert, err error) {
	if err != nil {
		h.writeError(w, err)
		return
	}
	jsonutil.WriteJSON(w, http.StatusOK, alerts)
}

func (h *Handler) writeLogs(w http.ResponseWriter, logs []*notification.NotificationLog, err error) {
	if err != nil {
		h.writeError(w, database.Wrap("list notification logs", err))
		return
	}
	jsonutil.WriteJSON(w, http.StatusOK, logs)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var verr *alert.ValidationError
	var terr *notification.TransportError
	var serr *database.StorageError

	switch {
	case errors.As(err, &verr):
		jsonutil.WriteErrorJSON(w, http.StatusBadRequest, verr.Error())
	case errors.Is(err, alert.ErrNotFound):
		jsonutil.WriteErrorJSON(w, http.StatusNotFound, "Alert not found")
	case errors.As(err, &serr):
		h.logger.Error("storage failure", zap.Error(err))
		jsonutil.WriteErrorJSON(w, http.StatusInternalServerError, "Storage unavailable")
	case errors.As(err, &terr):
		h.logger.Error("notification provider unreachable", zap.Error(err))
		jsonutil.WriteErrorJSON(w, http.StatusBadGateway, "Notification provider unreachable")
	default:
		h.logger.Error("request failed", zap.Error(err))
		jsonutil.WriteErrorJSON(w, http.StatusInternalServerError, "Internal Server Error")
	}
}

func timeRange(r *http.Request) (from, to time.Time, ok bool, err error) {
	q := r.URL.Query()
	rawFrom, rawTo := q.Get("from"), q.Get("to")
	if rawFrom == "" && rawTo == "" {
		return time.Time{}, time.Time{}, false, nil
	}
	if rawFrom == "" || rawTo == "" {
		return time.Time{}, time.Time{}, false, errors.New("from and to must be given together")
	}
	if from, err = time.Parse(time.RFC3339, rawFrom); err != nil {
		return time.Time{}, time.Time{}, false, errors.New("from must be an RFC3339 timestamp")
	}
	if to, err = time.Parse(time.RFC3339, rawTo); err != nil {
		return time.Time{}, time.Time{}, false, errors.New("to must be an RFC3339 timestamp")
	}
	return from, to, true, nil
}
