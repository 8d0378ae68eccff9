// Package telemetry exports co-training progress as Prometheus metrics.
package telemetry

import (
	"github.com/YuminosukeSato/bgnn/bgnn"
	"github.com/YuminosukeSato/bgnn/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Config configures an Observer.
type Config struct {
	// Namespace prefixes every metric name. Required.
	Namespace string

	// Registry receives the collectors, prometheus.DefaultRegisterer when nil.
	Registry prometheus.Registerer

	// DurationBuckets are the epoch duration histogram buckets in seconds.
	DurationBuckets []float64

	// ConstLabels are attached to every metric, e.g. a run identifier.
	ConstLabels prometheus.Labels
}

// DefaultConfig returns the "bgnn" namespace with buckets from 10ms to 5 minutes.
func DefaultConfig() Config {
	return Config{
		Namespace:       "bgnn",
		DurationBuckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 300},
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.Namespace == "" {
		return errors.NewValidationError("namespace", "is required", c.Namespace)
	}
	return nil
}

// Observer implements bgnn.EpochObserver.
//
// Metrics:
//
//	<ns>_metric{metric,split}        last evaluated value
//	<ns>_epoch                       last finished epoch
//	<ns>_epochs_total                finished epochs
//	<ns>_epoch_duration_seconds      epoch wall time
//	<ns>_train_loss{stage}           last backpropagation loss
type Observer struct {
	metric    *prometheus.GaugeVec
	epoch     prometheus.Gauge
	epochs    prometheus.Counter
	duration  prometheus.Histogram
	trainLoss *prometheus.GaugeVec
}

var _ bgnn.EpochObserver = (*Observer)(nil)

// NewObserver registers the collectors described by cfg.
func NewObserver(cfg Config) (o *Observer, err error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	reg := cfg.Registry
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if len(cfg.DurationBuckets) == 0 {
		cfg.DurationBuckets = DefaultConfig().DurationBuckets
	}

	// promauto panics on duplicate registration
	defer func() {
		if r := recover(); r != nil {
			o = nil
			if e, ok := r.(error); ok {
				err = errors.Wrap(e, "register telemetry collectors")
				return
			}
			err = errors.Newf("register telemetry collectors: %v", r)
		}
	}()

	factory := promauto.With(reg)
	return &Observer{
		metric: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   cfg.Namespace,
			Name:        "metric",
			Help:        "Last evaluated metric value per split.",
			ConstLabels: cfg.ConstLabels,
		}, []string{"metric", "split"}),
		epoch: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   cfg.Namespace,
			Name:        "epoch",
			Help:        "Last finished epoch.",
			ConstLabels: cfg.ConstLabels,
		}),
		epochs: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Name:        "epochs_total",
			Help:        "Number of finished epochs.",
			ConstLabels: cfg.ConstLabels,
		}),
		duration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   cfg.Namespace,
			Name:        "epoch_duration_seconds",
			Help:        "Wall time of one epoch in seconds.",
			Buckets:     cfg.DurationBuckets,
			ConstLabels: cfg.ConstLabels,
		}),
		trainLoss: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   cfg.Namespace,
			Name:        "train_loss",
			Help:        "Loss of the last backpropagation pass per tree stage.",
			ConstLabels: cfg.ConstLabels,
		}, []string{"stage"}),
	}, nil
}

// ObserveEpoch implements bgnn.EpochObserver.
func (o *Observer) ObserveEpoch(r bgnn.EpochReport) {
	for name, t := range r.Metrics {
		o.metric.WithLabelValues(name, "train").Set(t.Train)
		o.metric.WithLabelValues(name, "val").Set(t.Val)
		o.metric.WithLabelValues(name, "test").Set(t.Test)
	}
	o.epoch.Set(float64(r.Epoch))
	o.epochs.Inc()
	o.duration.Observe(r.Duration.Seconds())
	o.trainLoss.WithLabelValues(r.Stage).Set(r.Loss)
}

// WriteTextfile writes every metric gathered by g to path in the text exposition
// format, for the node exporter textfile collector.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	if err := prometheus.WriteToTextfile(path, g); err != nil {
		return errors.Wrapf(err, "write metrics %s", path)
	}
	return nil
}
