package server

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/theroutercompany/routedoc/pkg/metrics"
)

type requestMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	reloads  prometheus.Gauge
}

func newRequestMetrics(reg *metrics.Registry) *requestMetrics {
	if reg == nil {
		return nil
	}

	return &requestMetrics{
		requests: reg.CounterVec("http_requests_total", "Count of preview server requests labelled by route and outcome.", "route", "outcome"),
		duration: reg.HistogramVec("http_request_duration_seconds", "Preview server request duration by route.", "route"),
		reloads:  reg.Gauge("livereload_clients", "Current number of pages connected for live reload."),
	}
}

func (m *requestMetrics) track(r *http.Request) func(status int, elapsed time.Duration) {
	if m == nil || r == nil {
		return nil
	}

	route := routeLabel(r.URL.Path)
	return func(status int, elapsed time.Duration) {
		if status == http.StatusSwitchingProtocols {
			return
		}
		outcome := "success"
		if status >= 400 {
			outcome = "error"
		}
		m.requests.WithLabelValues(route, outcome).Inc()
		m.duration.WithLabelValues(route).Observe(elapsed.Seconds())
	}
}

func (m *requestMetrics) connected(delta int) {
	if m == nil {
		return
	}
	m.reloads.Add(float64(delta))
}

func routeLabel(path string) string {
	switch path {
	case "/", "/api.md", "/openapi.json", "/openapi.yaml", "/health", "/readyz", "/metrics", LiveReloadPath:
		return path
	default:
		return "other"
	}
}
