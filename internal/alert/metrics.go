package alert

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var AlertsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "aquawatch_alerts_created_total",
	Help: "Total number of alerts persisted by type and severity.",
}, []string{"type", "severity"})
