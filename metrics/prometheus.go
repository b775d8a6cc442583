// Package metrics exports message processing metrics to Prometheus.
package metrics

import (
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/miladsoleymani/qmux/core"
)

const namespace = "qmux"

// Collector records processed messages per queue and result status.
// It satisfies middleware.MetricsCollector.
type Collector struct {
	mu         sync.Mutex
	registerer prometheus.Registerer
	registered bool

	processed *prometheus.CounterVec
	failed    *prometheus.CounterVec
	duration  *prometheus.HistogramVec
}

// NewCollector creates a Collector. A nil registerer uses
// prometheus.DefaultRegisterer.
func NewCollector(registerer prometheus.Registerer) *Collector {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	return &Collector{
		registerer: registerer,
		processed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_processed_total",
			Help:      "Messages settled by a processor, by queue and result status.",
		}, []string{"queue", "status"}),
		failed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_failed_total",
			Help:      "Messages whose processor returned an error, by queue.",
		}, []string{"queue"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "processing_duration_seconds",
			Help:      "Time spent in the processor chain.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"queue"}),
	}
}

// Register registers the Prometheus collectors. Safe to call multiple times.
// When an identical collector is already registered, c records into that one
// instead. Call it before the first MessageProcessed.
func (c *Collector) Register() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.registered {
		return nil
	}
	processed, err := register(c.registerer, c.processed)
	if err != nil {
		return err
	}
	failed, err := register(c.registerer, c.failed)
	if err != nil {
		return err
	}
	duration, err := register(c.registerer, c.duration)
	if err != nil {
		return err
	}
	c.processed, c.failed, c.duration = processed, failed, duration
	c.registered = true
	return nil
}

func register[T prometheus.Collector](r prometheus.Registerer, col T) (T, error) {
	err := r.Register(col)
	if err == nil {
		return col, nil
	}
	var are prometheus.AlreadyRegisteredError
	if !errors.As(err, &are) {
		return col, err
	}
	existing, ok := are.ExistingCollector.(T)
	if !ok {
		return col, err
	}
	return existing, nil
}

// MessageProcessed records one processed message.
func (c *Collector) MessageProcessed(queue string, status core.Status, duration time.Duration, err error) {
	c.duration.WithLabelValues(queue).Observe(duration.Seconds())
	if err != nil {
		c.failed.WithLabelValues(queue).Inc()
		return
	}
	c.processed.WithLabelValues(queue, string(status)).Inc()
}
