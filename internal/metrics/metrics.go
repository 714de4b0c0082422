// Package metrics counts fetch outcomes and exports them in the Prometheus
// text format.
package metrics

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/spigell/profile-extractor/internal/fetch"
)

const namespace = "profile_extractor"

const (
	outcomeSuccess = "success"
	outcomeFailure = "failure"
)

// Recorder is a fetch.Listener backed by Prometheus collectors.
type Recorder struct {
	registry *prometheus.Registry

	fetches  *prometheus.CounterVec
	attempts prometheus.Histogram
	duration *prometheus.HistogramVec
	total    prometheus.Gauge
	done     prometheus.Gauge
	written  prometheus.Gauge
}

// New registers the collectors on a dedicated registry.
func New() (*Recorder, error) {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "profile_fetch_total",
			Help:      "Profiles fetched partitioned by outcome.",
		}, []string{"outcome"}),
		attempts: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "profile_fetch_attempts",
			Help:      "Attempts spent per profile.",
			Buckets:   []float64{1, 2, 3, 4, 5},
		}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "profile_fetch_duration_seconds",
			Help:      "Time spent per profile including retries.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		}, []string{"outcome"}),
		total: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "profiles_queued",
			Help:      "Profiles queued for fetching in this run.",
		}),
		done: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "profiles_done",
			Help:      "Profiles handled so far in this run.",
		}),
		written: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "records_written",
			Help:      "Records written to the sink in this run.",
		}),
	}

	for _, c := range []prometheus.Collector{r.fetches, r.attempts, r.duration, r.total, r.done, r.written} {
		if err := r.registry.Register(c); err != nil {
			return nil, fmt.Errorf("register collector: %w", err)
		}
	}

	return r, nil
}

func (r *Recorder) OnProgress(_ context.Context, ev fetch.Event) error {
	outcome := outcomeSuccess
	if !ev.Result.Success() {
		outcome = outcomeFailure
	}

	r.fetches.WithLabelValues(outcome).Inc()
	r.attempts.Observe(float64(ev.Result.Attempts))
	if ev.Result.Duration > 0 {
		r.duration.WithLabelValues(outcome).Observe(ev.Result.Duration.Seconds())
	}
	r.total.Set(float64(ev.Total))
	r.done.Set(float64(ev.Index))
	return nil
}

// SetWritten records the number of records persisted by the run.
func (r *Recorder) SetWritten(n int) {
	r.written.Set(float64(n))
}

// Gatherer exposes the registry, for tests and HTTP handlers.
func (r *Recorder) Gatherer() prometheus.Gatherer {
	return r.registry
}

// WriteTextfile writes the current values in the node exporter textfile format.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("writing metrics to %s: %w", path, err)
	}
	return nil
}
