package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	OrdersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "devis_orders_total",
			Help: "Quote submissions by outcome",
		},
		[]string{"outcome"}, // success|partial|failure
	)

	UploadFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "devis_upload_failures_total",
			Help: "Attachment uploads that ended in a warning",
		},
	)

	AuthTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "devis_admin_auth_total",
			Help: "Admin authentication attempts by result",
		},
		[]string{"result"}, // ok|invalid|rate_limited
	)
)

func MustRegister(r prometheus.Registerer) {
	r.MustRegister(
		OrdersTotal,
		UploadFailuresTotal,
		AuthTotal,
	)
}
