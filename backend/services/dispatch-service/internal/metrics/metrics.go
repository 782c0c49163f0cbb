package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	once sync.Once

	Broadcasts = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dispatch_broadcasts_total", Help: "Jobs moved to BROADCAST by the admin gate",
	})
	InvitesIssued = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dispatch_invites_issued_total", Help: "Invites minted",
	})
	Notifications = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dispatch_notifications_total", Help: "Notification attempts by template and status",
	}, []string{"template", "status"})
	Responses = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dispatch_responses_total", Help: "Invite responses by action and outcome",
	}, []string{"action", "outcome"})
	NoShowReports = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dispatch_no_show_reports_total", Help: "No-show reports by tier",
	}, []string{"tier"})
	InvitesExpiredBySweep = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dispatch_invites_expired_total", Help: "Pending invites expired by the sweep",
	})
	ExhaustedBroadcasts = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "dispatch_exhausted_broadcast_jobs", Help: "BROADCAST jobs with no pending invite left",
	})
)

// Handler exposes /metrics HTTP handler with a singleton registry.
func Handler() http.Handler {
	once.Do(func() {
		prometheus.MustRegister(
			Broadcasts,
			InvitesIssued,
			Notifications,
			Responses,
			NoShowReports,
			InvitesExpiredBySweep,
			ExhaustedBroadcasts,
		)
	})
	return promhttp.Handler()
}
