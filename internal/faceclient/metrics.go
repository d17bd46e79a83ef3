package faceclient

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "faceclient_requests_total",
		Help: "Face service calls by operation and outcome.",
	}, []string{"op", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "faceclient_request_duration_seconds",
		Help:    "Face service call latency by operation.",
		Buckets: prometheus.DefBuckets,
	}, []string{"op"})
)

func observe(op string, resp *http.Response, err error, elapsed time.Duration) {
	status := "error"
	if err == nil && resp != nil {
		status = strconv.Itoa(resp.StatusCode)
	}
	requestsTotal.WithLabelValues(op, status).Inc()
	requestDuration.WithLabelValues(op).Observe(elapsed.Seconds())
}
