package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var documentExpands = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "opsboard_document_expands_total",
		Help: "Documents tree expands by result (hit, fetch, error).",
	},
	[]string{"result"},
)
