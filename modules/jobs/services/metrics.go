package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	jobSubmissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "opsboard_job_submissions_total",
			Help: "Job dialog submissions by job type, mode and outcome.",
		},
		[]string{"job_type", "mode", "outcome"},
	)
	openDialogs = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "opsboard_job_dialogs_open",
			Help: "Job dialogs currently held in memory.",
		},
	)
)
