// Package metrics owns the Prometheus registry that routedoc components
// record into. Collector names are prefixed with the registry namespace so a
// preview server embedded in a larger process does not collide with the
// host's own metrics.
package metrics

import (
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
)

// Option configures a Registry.
type Option func(*Registry)

// WithNamespace sets the prefix of every collector built by the registry.
// Characters Prometheus does not accept in metric names become underscores.
func WithNamespace(namespace string) Option {
	return func(r *Registry) {
		r.namespace = sanitize(namespace)
	}
}

// WithoutDefaultCollectors skips the Go runtime and process collectors.
func WithoutDefaultCollectors() Option {
	return func(r *Registry) {
		r.runtime = false
	}
}

// Registry builds namespaced collectors and serves them over HTTP. A nil
// *Registry is valid: constructors return nil and Handler answers 404.
type Registry struct {
	namespace string
	runtime   bool
	gatherer  *prometheus.Registry
}

// NewRegistry creates a registry. Go runtime and process collectors are
// included unless WithoutDefaultCollectors is given.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{runtime: true, gatherer: prometheus.NewRegistry()}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	if r.runtime {
		r.gatherer.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	return r
}

// Namespace returns the collector name prefix.
func (r *Registry) Namespace() string {
	if r == nil {
		return ""
	}
	return r.namespace
}

// Name returns the fully qualified metric name for name.
func (r *Registry) Name(name string) string {
	return prometheus.BuildFQName(r.Namespace(), "", name)
}

// Counter registers a counter.
func (r *Registry) Counter(name, help string) prometheus.Counter {
	if r == nil {
		return nil
	}
	c := prometheus.NewCounter(prometheus.CounterOpts{Name: r.Name(name), Help: help})
	r.gatherer.MustRegister(c)
	return c
}

// CounterVec registers a counter partitioned by labels.
func (r *Registry) CounterVec(name, help string, labels ...string) *prometheus.CounterVec {
	if r == nil {
		return nil
	}
	c := prometheus.NewCounterVec(prometheus.CounterOpts{Name: r.Name(name), Help: help}, labels)
	r.gatherer.MustRegister(c)
	return c
}

// Gauge registers a gauge.
func (r *Registry) Gauge(name, help string) prometheus.Gauge {
	if r == nil {
		return nil
	}
	g := prometheus.NewGauge(prometheus.GaugeOpts{Name: r.Name(name), Help: help})
	r.gatherer.MustRegister(g)
	return g
}

// Histogram registers a histogram with the default second-scale buckets.
func (r *Registry) Histogram(name, help string) prometheus.Histogram {
	if r == nil {
		return nil
	}
	h := prometheus.NewHistogram(prometheus.HistogramOpts{Name: r.Name(name), Help: help, Buckets: prometheus.DefBuckets})
	r.gatherer.MustRegister(h)
	return h
}

// HistogramVec registers a histogram partitioned by labels.
func (r *Registry) HistogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	if r == nil {
		return nil
	}
	h := prometheus.NewHistogramVec(prometheus.HistogramOpts{Name: r.Name(name), Help: help, Buckets: prometheus.DefBuckets}, labels)
	r.gatherer.MustRegister(h)
	return h
}

// Handler serves the registered collectors in the Prometheus text format.
func (r *Registry) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{})
}

// Gather returns the current metric families.
func (r *Registry) Gather() ([]*dto.MetricFamily, error) {
	if r == nil {
		return nil, nil
	}
	return r.gatherer.Gather()
}

func sanitize(namespace string) string {
	namespace = strings.TrimSpace(namespace)
	var b strings.Builder
	for i, c := range namespace {
		switch {
		case c == '_' || c == ':',
			c >= 'a' && c <= 'z',
			c >= 'A' && c <= 'Z',
			c >= '0' && c <= '9' && i > 0:
			b.WriteRune(c)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
