package middleware

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var requestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "adminkit_http_request_duration_seconds",
		Help:    "HTTP request latency by method and status.",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"method", "status"},
)

func observeRequest(method string, status int, duration time.Duration) {
	requestDuration.WithLabelValues(method, strconv.Itoa(status)).Observe(duration.Seconds())
}
