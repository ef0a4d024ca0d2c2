package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	pendingRequests = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "opsboard_staff_pending_requests",
		Help: "Pending staff requests as last reported by the remote API.",
	})
	nationalIDReveals = promauto.NewCounter(prometheus.CounterOpts{
		Name: "opsboard_staff_national_id_reveals_total",
		Help: "National id numbers revealed to operators.",
	})
)
