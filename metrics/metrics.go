// Package metrics exposes transport activity to prometheus.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robmorgan/pulse/logger"
	"github.com/robmorgan/pulse/timeline"
	"github.com/robmorgan/pulse/transport"
)

const namespace = "pulse"

// Collector records transport activity. It implements transport.Recorder.
type Collector struct {
	registry *prometheus.Registry

	ticks    prometheus.Counter
	events   *prometheus.CounterVec
	changes  *prometheus.CounterVec
	state    prometheus.Gauge
	loops    prometheus.Counter
	failures prometheus.Counter
}

var _ transport.Recorder = (*Collector)(nil)

// NewCollector creates a collector with its own registry, so several can coexist.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticks_total",
			Help:      "Transport ticks processed.",
		}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_fired_total",
			Help:      "Scheduled callbacks fired, by kind.",
		}, []string{"kind"}),
		changes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "state_changes_total",
			Help:      "Transport state changes, by new state.",
		}, []string{"state"}),
		state: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "transport_state",
			Help:      "Current transport state: 0 stopped, 1 started, 2 paused.",
		}),
		loops: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "loops_total",
			Help:      "Times the transport jumped back to the loop start.",
		}),
		failures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "heartbeat_failures_total",
			Help:      "Heartbeat passes that ended with an error.",
		}),
	}

	c.registry.MustRegister(c.ticks, c.events, c.changes, c.state, c.loops, c.failures)
	return c
}

func (c *Collector) TickProcessed() {
	c.ticks.Inc()
}

func (c *Collector) EventFired(kind transport.Kind) {
	c.events.WithLabelValues(kind.String()).Inc()
}

func (c *Collector) StateChanged(state timeline.State) {
	c.changes.WithLabelValues(state.String()).Inc()
	c.state.Set(float64(state))
}

func (c *Collector) Looped() {
	c.loops.Inc()
}

// HeartbeatFailed counts a failed pass. It matches engine.WithErrorHandler.
func (c *Collector) HeartbeatFailed(error) {
	c.failures.Inc()
}

func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the collector's metrics in the prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is cancelled.
func (c *Collector) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.GetComponentLogger("metrics").WithError(err).Warn("Metrics server did not shut down cleanly")
		}
	}()

	logger.GetComponentLogger("metrics").WithField("address", addr).Info("Serving metrics")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
