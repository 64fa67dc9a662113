package notify

import "github.com/prometheus/client_golang/prometheus"

// Outcome label values for alertsTotal.
const (
	outcomeForwarded  = "forwarded"
	outcomeSuppressed = "suppressed"
	outcomeDropped    = "dropped"
	outcomeFailed     = "failed"
)

var (
	alertsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cctv_notify_alerts_total",
			Help: "Alerts received by the webhook receiver, by platform and outcome.",
		},
		[]string{"platform", "outcome"},
	)
	dispatchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cctv_notify_dispatch_duration_seconds",
			Help:    "Duration of outbound robot webhook calls.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"platform"},
	)
)

func init() {
	prometheus.MustRegister(alertsTotal)
	prometheus.MustRegister(dispatchDuration)
}
