package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter wires every route. auth may be nil, which leaves the API open.
func NewRouter(h *Handler, auth *Authenticator, ws http.Handler) *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/health", h.Health).Methods("GET")
	r.HandleFunc("/api/alerts/health", h.Health).Methods("GET")
	r.Handle("/metrics", promhttp.Handler())

	if ws != nil {
		if auth != nil {
			ws = auth.Middleware(ws)
		}
		r.Handle("/ws/alerts", ws)
	}

	api := r.PathPrefix("/api").Subrouter()
	if auth != nil {
		api.Use(auth.Middleware)
	}

	api.HandleFunc("/alerts", h.CreateAlert).Methods("POST")
	api.HandleFunc("/alerts/anomaly", h.CreateAlertFromAnomaly).Methods("POST")
	api.HandleFunc("/alerts", h.ListAlerts).Methods("GET")
	api.HandleFunc("/alerts/sensor/{sensorId}", h.AlertsBySensor).Methods("GET")
	api.HandleFunc("/alerts/severity/{severity}", h.AlertsBySeverity).Methods("GET")
	api.HandleFunc("/alerts/type/{alertType}", h.AlertsByType).Methods("GET")
	api.HandleFunc("/alerts/{id}", h.GetAlert).Methods("GET")

	api.HandleFunc("/notifications/sms", h.SendSMS).Methods("POST")
	api.HandleFunc("/notifications/email", h.SendEmail).Methods("POST")

	api.HandleFunc("/logs", h.ListLogs).Methods("GET")
	api.HandleFunc("/logs/type/{type}", h.LogsByType).Methods("GET")
	api.HandleFunc("/logs/status/{status}", h.LogsByStatus).Methods("GET")
	api.HandleFunc("/logs/alert/{alertId}", h.LogsByAlert).Methods("GET")

	return r
}
