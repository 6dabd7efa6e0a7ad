// Package metrics exposes upload activity as Prometheus metrics.
//
// Collector implements form.Observer, so handing it to form.Config is all
// the wiring a request needs. The active parse gauge is fed by the
// limiter rather than by the observer callbacks.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/JonMunkholm/formstage/internal/form"
)

// Config controls metric naming.
type Config struct {
	Namespace string
	Subsystem string
}

// Collector owns a private registry with the upload metrics.
type Collector struct {
	registry *prometheus.Registry

	parts        *prometheus.CounterVec
	filesStored  prometheus.Counter
	fileBytes    prometheus.Counter
	fileSize     prometheus.Histogram
	filesRemoved prometheus.Counter
	failures     *prometheus.CounterVec
	activeParses prometheus.Gauge
}

// NewCollector creates the metrics and registers them, along with the Go
// runtime and process collectors, on a fresh registry.
func NewCollector(cfg Config) (*Collector, error) {
	c := &Collector{registry: prometheus.NewRegistry()}

	c.parts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "parts_total",
			Help:      "Multipart parts read, by class",
		},
		[]string{"class"},
	)
	c.filesStored = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: cfg.Namespace,
		Subsystem: cfg.Subsystem,
		Name:      "files_stored_total",
		Help:      "Files fully written to the staging directory",
	})
	c.fileBytes = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: cfg.Namespace,
		Subsystem: cfg.Subsystem,
		Name:      "file_bytes_total",
		Help:      "Bytes written to staged files",
	})
	c.fileSize = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: cfg.Namespace,
		Subsystem: cfg.Subsystem,
		Name:      "file_size_bytes",
		Help:      "Size of staged files in bytes",
		Buckets:   prometheus.ExponentialBuckets(1024, 4, 10), // 1KiB to 256MiB
	})
	c.filesRemoved = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: cfg.Namespace,
		Subsystem: cfg.Subsystem,
		Name:      "files_removed_total",
		Help:      "Staged files removed by cleanup",
	})
	c.failures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "failures_total",
			Help:      "Failed multipart requests, by error code",
		},
		[]string{"code"},
	)
	c.activeParses = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: cfg.Namespace,
		Subsystem: cfg.Subsystem,
		Name:      "active_parses",
		Help:      "Multipart bodies currently being parsed",
	})

	metrics := []prometheus.Collector{
		c.parts,
		c.filesStored,
		c.fileBytes,
		c.fileSize,
		c.filesRemoved,
		c.failures,
		c.activeParses,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	}
	for _, m := range metrics {
		if err := c.registry.Register(m); err != nil {
			return nil, fmt.Errorf("register metric: %w", err)
		}
	}

	return c, nil
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// ActiveParses is the gauge handed to the limiter.
func (c *Collector) ActiveParses() prometheus.Gauge {
	return c.activeParses
}

func (c *Collector) PartRead(_ context.Context, class form.Class) {
	c.parts.WithLabelValues(class.String()).Inc()
}

func (c *Collector) FileStored(_ context.Context, rec form.FileRecord) {
	c.filesStored.Inc()
	c.fileBytes.Add(float64(rec.Size))
	c.fileSize.Observe(float64(rec.Size))
}

func (c *Collector) FileRemoved(context.Context, string) {
	c.filesRemoved.Inc()
}

func (c *Collector) Failed(_ context.Context, err error) {
	c.failures.WithLabelValues(failureCode(err)).Inc()
}

func failureCode(err error) string {
	if code := form.CodeOf(err); code != "" {
		return string(code)
	}
	switch {
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return "deadline_exceeded"
	}
	return "unknown"
}

var _ form.Observer = (*Collector)(nil)
