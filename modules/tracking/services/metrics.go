package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	activeTechnicians = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "opsboard_technicians_active",
		Help: "Technicians whose last location report is recent.",
	})
	locationPolls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "opsboard_location_polls_total",
		Help: "Location feed polls by outcome.",
	}, []string{"outcome"})
)
