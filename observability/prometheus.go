package observability

import (
	"errors"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// DefaultNamespace prefixes every metric built by PrometheusFactory.
const DefaultNamespace = "heroes"

// PrometheusFactory is a MetricFactory backed by Prometheus collectors.
// Dotted names become underscores; "heroes.tradein.value" is exported as
// heroes_tradein_value. Asking twice for a name returns the same collector.
type PrometheusFactory struct {
	registerer prometheus.Registerer
	namespace  string
	buckets    []float64

	mu         sync.Mutex
	collectors map[string]prometheus.Collector
}

// PrometheusOption configures a PrometheusFactory.
type PrometheusOption func(*PrometheusFactory)

// WithNamespace replaces the metric namespace.
func WithNamespace(ns string) PrometheusOption {
	return func(f *PrometheusFactory) { f.namespace = ns }
}

// WithBuckets sets histogram buckets.
func WithBuckets(buckets []float64) PrometheusOption {
	return func(f *PrometheusFactory) { f.buckets = buckets }
}

// NewPrometheusFactory registers collectors with reg. A nil reg means
// prometheus.DefaultRegisterer.
func NewPrometheusFactory(reg prometheus.Registerer, opts ...PrometheusOption) *PrometheusFactory {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := &PrometheusFactory{
		registerer: reg,
		namespace:  DefaultNamespace,
		// Trade values run from tens to a little over a thousand units.
		buckets:    prometheus.ExponentialBuckets(25, 2, 8),
		collectors: make(map[string]prometheus.Collector),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Counter implements MetricFactory.
func (f *PrometheusFactory) Counter(name string) Counter {
	return register(f, name, func(metric string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: f.namespace,
			Name:      metric + "_total",
			Help:      "Count of " + name + " events.",
		})
	})
}

// Histogram implements MetricFactory.
func (f *PrometheusFactory) Histogram(name string) Histogram {
	return register(f, name, func(metric string) prometheus.Histogram {
		return prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: f.namespace,
			Name:      metric,
			Help:      "Distribution of " + name + ".",
			Buckets:   f.buckets,
		})
	})
}

// Gauge implements MetricFactory.
func (f *PrometheusFactory) Gauge(name string) Gauge {
	return register(f, name, func(metric string) prometheus.Gauge {
		return prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: f.namespace,
			Name:      metric,
			Help:      "Current value of " + name + ".",
		})
	})
}

func register[C prometheus.Collector](f *PrometheusFactory, name string, build func(metric string) C) C {
	f.mu.Lock()
	defer f.mu.Unlock()

	if c, ok := f.collectors[name]; ok {
		if typed, ok := c.(C); ok {
			return typed
		}
	}

	c := build(metricName(f.namespace, name))
	if err := f.registerer.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				c = existing
			}
		}
	}
	f.collectors[name] = c
	return c
}

// metricName strips the namespace prefix and turns dots into underscores.
func metricName(namespace, name string) string {
	name = strings.TrimPrefix(name, namespace+".")
	return strings.NewReplacer(".", "_", "-", "_").Replace(name)
}
