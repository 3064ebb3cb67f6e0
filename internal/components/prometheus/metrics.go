package prometheus

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ServerMetrics are the counters the TLS listener and request handler feed.
type ServerMetrics struct {
	connections *prometheus.CounterVec
	acceptErrs  *prometheus.CounterVec
	requests    *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	rotations   *prometheus.CounterVec
}

func newServerMetrics(c *Component) *ServerMetrics {
	return &ServerMetrics{
		connections: c.NewCounter("connections_total",
			"Accepted connections by dispatch result.", []string{"result"}),
		acceptErrs: c.NewCounter("accept_errors_total",
			"Accept failures other than the periodic wait timeout.", []string{"kind"}),
		requests: c.NewCounter("requests_total",
			"Handled requests by method and response status.", []string{"method", "status"}),
		duration: c.NewHistogram("request_duration_seconds",
			"Time from dispatch to connection close.", []string{"method"}, prometheus.DefBuckets),
		rotations: c.NewCounter("log_rotations_total",
			"Log destinations emptied after passing the line threshold.", []string{"path"}),
	}
}

// ConnectionDispatched counts an accepted connection; ok is false when no
// worker could take it.
func (m *ServerMetrics) ConnectionDispatched(ok bool) {
	if m == nil {
		return
	}
	result := "dispatched"
	if !ok {
		result = "rejected"
	}
	m.connections.WithLabelValues(result).Inc()
}

func (m *ServerMetrics) AcceptError(kind string) {
	if m == nil {
		return
	}
	m.acceptErrs.WithLabelValues(kind).Inc()
}

// RequestServed records one finished exchange. status 0 means nothing was sent.
func (m *ServerMetrics) RequestServed(method string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	switch method {
	case "GET", "HEAD", "POST":
	case "":
		method = "none"
	default:
		method = "other"
	}
	m.requests.WithLabelValues(method, strconv.Itoa(status)).Inc()
	m.duration.WithLabelValues(method).Observe(elapsed.Seconds())
}

func (m *ServerMetrics) LogRotated(path string) {
	if m == nil {
		return
	}
	m.rotations.WithLabelValues(path).Inc()
}
