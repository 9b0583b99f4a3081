package listener

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// metrics holds the counters the gateway listener exposes on /metrics. Each
// Listener owns its own registry rather than registering into the global
// default one, so multiple Listeners (as in tests) never collide.
type metrics struct {
	registry       *prometheus.Registry
	requests       *prometheus.CounterVec
	duration       *prometheus.HistogramVec
	sessionsActive prometheus.Gauge
}

func newMetrics() *metrics {
	registry := prometheus.NewRegistry()
	m := &metrics{
		registry: registry,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "agentrun_gateway_http_requests_total",
			Help: "Total HTTP requests served by the gateway listener.",
		}, []string{"path", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name: "agentrun_gateway_http_request_duration_seconds",
			Help: "HTTP request latency observed by the gateway listener.",
		}, []string{"path"}),
		sessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "agentrun_gateway_sessions_active",
			Help: "Number of currently open client sessions (including long-lived ones).",
		}),
	}
	registry.MustRegister(m.requests, m.duration, m.sessionsActive)
	return m
}

// instrument wraps next, recording a request count and latency observation
// per call and tracking how many of the wrapped handler's calls are
// currently in flight (used for the session-stream endpoint, where one
// call lives for the lifetime of the connection).
func (m *metrics) instrument(path string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.sessionsActive.Inc()
		defer m.sessionsActive.Dec()

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		m.duration.WithLabelValues(path).Observe(time.Since(start).Seconds())
		m.requests.WithLabelValues(path, strconv.Itoa(rec.status)).Inc()
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Hijack lets the websocket upgrade reach through the recorder to the
// underlying connection; gorilla/websocket requires the ResponseWriter
// passed to Upgrade to satisfy http.Hijacker.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("listener: underlying response writer does not support hijacking")
	}
	return hijacker.Hijack()
}
