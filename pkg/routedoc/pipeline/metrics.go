package pipeline

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/theroutercompany/routedoc/pkg/metrics"
)

// Metrics holds the extraction collectors.
type Metrics struct {
	files    *prometheus.CounterVec
	routes   prometheus.Counter
	runs     prometheus.Counter
	duration prometheus.Histogram
}

// NewMetrics registers the extraction collectors on reg. A nil registry
// yields nil, which disables recording.
func NewMetrics(reg *metrics.Registry) *Metrics {
	if reg == nil {
		return nil
	}

	return &Metrics{
		files:    reg.CounterVec("files_processed_total", "Count of source files processed labelled by outcome.", "outcome"),
		routes:   reg.Counter("routes_extracted_total", "Count of route descriptors produced."),
		runs:     reg.Counter("runs_total", "Count of completed extraction runs."),
		duration: reg.Histogram("run_duration_seconds", "Wall time of extraction runs."),
	}
}

func (m *Metrics) observeRun(files, warnings, routes int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.files.WithLabelValues("parsed").Add(float64(files - warnings))
	m.files.WithLabelValues("skipped").Add(float64(warnings))
	m.routes.Add(float64(routes))
	m.runs.Inc()
	m.duration.Observe(elapsed.Seconds())
}
