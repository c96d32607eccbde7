// Package metrics records catalog operation outcomes.
package metrics

import (
	"context"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/roach88/specatalog/internal/catalogerr"
)

// Recorder observes one completed operation.
type Recorder interface {
	Observe(ctx context.Context, operation string, err error, duration time.Duration)
}

// Nop discards observations.
type Nop struct{}

// Observe implements Recorder.
func (Nop) Observe(context.Context, string, error, time.Duration) {}

// Prometheus counts operations by outcome and tracks their latency.
type Prometheus struct {
	registry   *prometheus.Registry
	operations *prometheus.CounterVec
	durations  *prometheus.HistogramVec
}

// NewPrometheus registers the catalog collectors on a fresh registry.
func NewPrometheus() *Prometheus {
	p := &Prometheus{
		registry: prometheus.NewRegistry(),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "specatalog",
			Name:      "operations_total",
			Help:      "Catalog operations by outcome. result is ok or an error code.",
		}, []string{"operation", "result"}),
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "specatalog",
			Name:      "operation_duration_seconds",
			Help:      "Catalog operation latency.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}, []string{"operation"}),
	}
	p.registry.MustRegister(p.operations, p.durations)
	return p
}

// Observe implements Recorder.
func (p *Prometheus) Observe(_ context.Context, operation string, err error, duration time.Duration) {
	if operation == "" {
		return
	}
	p.operations.WithLabelValues(operation, Result(err)).Inc()
	p.durations.WithLabelValues(operation).Observe(duration.Seconds())
}

// Gatherer exposes the registry.
func (p *Prometheus) Gatherer() prometheus.Gatherer {
	return p.registry
}

// WriteTextfile writes the current values in the node-exporter textfile
// format.
func (p *Prometheus) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, p.registry)
}

// Result labels an outcome: "ok", the catalog error code in lower case, or
// "error" for anything else.
func Result(err error) string {
	if err == nil {
		return "ok"
	}
	if code := catalogerr.CodeOf(err); code != "" {
		return strings.ToLower(string(code))
	}
	return "error"
}
