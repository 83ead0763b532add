package prommetrics

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/goliatone/go-hooks/core"
	"github.com/prometheus/client_golang/prometheus"
)

// DefaultBuckets covers millisecond durations and small attempt counts.
var DefaultBuckets = []float64{1, 2, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000}

// Recorder implements core.MetricsRecorder on top of a Prometheus registerer.
//
// Vectors are created on first use. The label set of a metric is fixed by the
// tags of its first observation; later tags outside that set are dropped and
// missing ones are recorded as empty strings.
type Recorder struct {
	registerer prometheus.Registerer
	namespace  string
	buckets    []float64

	mu         sync.Mutex
	counters   map[string]*counterVec
	histograms map[string]*histogramVec
}

type counterVec struct {
	labels []string
	vec    *prometheus.CounterVec
}

type histogramVec struct {
	labels []string
	vec    *prometheus.HistogramVec
}

type Option func(*Recorder)

func WithNamespace(namespace string) Option {
	return func(r *Recorder) {
		r.namespace = sanitizeName(namespace)
	}
}

func WithBuckets(buckets []float64) Option {
	return func(r *Recorder) {
		if len(buckets) > 0 {
			r.buckets = append([]float64(nil), buckets...)
		}
	}
}

func NewRecorder(registerer prometheus.Registerer, opts ...Option) *Recorder {
	if registerer == nil {
		registerer = prometheus.NewRegistry()
	}
	r := &Recorder{
		registerer: registerer,
		buckets:    DefaultBuckets,
		counters:   map[string]*counterVec{},
		histograms: map[string]*histogramVec{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

func (r *Recorder) IncCounter(_ context.Context, name string, value int64, tags map[string]string) {
	if r == nil || value < 0 {
		return
	}
	metric, err := r.counter(name, tags)
	if err != nil {
		return
	}
	metric.vec.WithLabelValues(labelValues(metric.labels, tags)...).Add(float64(value))
}

func (r *Recorder) ObserveHistogram(_ context.Context, name string, value float64, tags map[string]string) {
	if r == nil {
		return
	}
	metric, err := r.histogram(name, tags)
	if err != nil {
		return
	}
	metric.vec.WithLabelValues(labelValues(metric.labels, tags)...).Observe(value)
}

func (r *Recorder) counter(name string, tags map[string]string) (*counterVec, error) {
	metricName := sanitizeName(name)
	if metricName == "" {
		return nil, fmt.Errorf("prometheus: metric name is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.counters[metricName]; ok {
		return existing, nil
	}
	labels := labelNames(tags)
	vec := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: r.namespace,
		Name:      metricName,
		Help:      "Hooks counter " + strings.TrimSpace(name),
	}, labels)
	registered, err := register(r.registerer, vec)
	if err != nil {
		return nil, err
	}
	metric := &counterVec{labels: labels, vec: registered.(*prometheus.CounterVec)}
	r.counters[metricName] = metric
	return metric, nil
}

func (r *Recorder) histogram(name string, tags map[string]string) (*histogramVec, error) {
	metricName := sanitizeName(name)
	if metricName == "" {
		return nil, fmt.Errorf("prometheus: metric name is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.histograms[metricName]; ok {
		return existing, nil
	}
	labels := labelNames(tags)
	vec := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: r.namespace,
		Name:      metricName,
		Help:      "Hooks histogram " + strings.TrimSpace(name),
		Buckets:   r.buckets,
	}, labels)
	registered, err := register(r.registerer, vec)
	if err != nil {
		return nil, err
	}
	metric := &histogramVec{labels: labels, vec: registered.(*prometheus.HistogramVec)}
	r.histograms[metricName] = metric
	return metric, nil
}

// register reuses a collector another recorder already registered under the
// same descriptor.
func register(registerer prometheus.Registerer, collector prometheus.Collector) (prometheus.Collector, error) {
	if err := registerer.Register(collector); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			return already.ExistingCollector, nil
		}
		return nil, err
	}
	return collector, nil
}

func labelNames(tags map[string]string) []string {
	names := make([]string, 0, len(tags))
	for key := range tags {
		if name := sanitizeName(key); name != "" {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func labelValues(labels []string, tags map[string]string) []string {
	normalized := make(map[string]string, len(tags))
	for key, value := range tags {
		normalized[sanitizeName(key)] = value
	}
	values := make([]string, len(labels))
	for i, label := range labels {
		values[i] = normalized[label]
	}
	return values
}

// sanitizeName maps dotted metric names onto the Prometheus charset.
func sanitizeName(name string) string {
	name = strings.TrimSpace(name)
	var b strings.Builder
	b.Grow(len(name))
	for i, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_':
			b.WriteRune(r)
		case r >= '0' && r <= '9':
			if i == 0 {
				b.WriteRune('_')
			}
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}

var _ core.MetricsRecorder = (*Recorder)(nil)
