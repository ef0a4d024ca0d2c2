package apiclient

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "opsboard",
		Subsystem: "api_client",
		Name:      "requests_total",
		Help:      "Total number of remote API calls broken down by method and status.",
	}, []string{"method", "status"})

	requestLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "opsboard",
		Subsystem: "api_client",
		Name:      "latency_seconds",
		Help:      "Latency distribution for remote API calls.",
		Buckets: []float64{
			0.005, 0.01, 0.02, 0.05,
			0.1, 0.2, 0.5, 1,
			2, 5, 10, 30,
		},
	}, []string{"method"})
)

func recordRequest(method string, status int, latency time.Duration) {
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	requestsTotal.With(prometheus.Labels{"method": method, "status": label}).Inc()
	requestLatency.With(prometheus.Labels{"method": method}).Observe(latency.Seconds())
}
