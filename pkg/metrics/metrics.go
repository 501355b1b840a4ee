// Package metrics exposes wizard and live-session metrics to Prometheus.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gabrielmiguelok/stepform/pkg/forms"
	"github.com/gabrielmiguelok/stepform/pkg/wizard"
)

// Collector owns the stepform metrics and the registry they live in.
type Collector struct {
	registry *prometheus.Registry

	Transitions        *prometheus.CounterVec
	ValidationFailures *prometheus.CounterVec
	Submissions        prometheus.Counter
	LiveSessions       prometheus.Gauge
	Events             *prometheus.CounterVec
	EventDuration      *prometheus.HistogramVec
}

// New creates a Collector on a fresh registry that also carries the Go
// runtime and process collectors.
func New(namespace string) *Collector {
	if namespace == "" {
		namespace = "stepform"
	}

	c := &Collector{
		registry: prometheus.NewRegistry(),
		Transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "transitions_total",
				Help:      "Step changes by direction.",
			},
			[]string{"direction"},
		),
		ValidationFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "validation_failures_total",
				Help:      "Rejected next or submit actions by step.",
			},
			[]string{"step"},
		),
		Submissions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_total",
			Help:      "Records delivered to the sink.",
		}),
		LiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "live_sessions",
			Help:      "Open WebSocket sessions.",
		}),
		Events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_total",
				Help:      "Live component events by name and outcome.",
			},
			[]string{"event", "status"},
		),
		EventDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "event_duration_seconds",
				Help:      "Time spent handling a live component event.",
				Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
			},
			[]string{"event"},
		),
	}

	c.registry.MustRegister(
		c.Transitions,
		c.ValidationFailures,
		c.Submissions,
		c.LiveSessions,
		c.Events,
		c.EventDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Hooks returns controller hooks that feed the wizard counters. Steps
// label failures by step ID when known.
func (c *Collector) Hooks(steps *wizard.Registry) wizard.Hooks {
	return wizard.Hooks{
		OnTransition: func(_ context.Context, t wizard.Transition) {
			c.Transitions.WithLabelValues(t.Direction.String()).Inc()
		},
		OnRejected: func(_ context.Context, step int, _ forms.Errors) {
			c.ValidationFailures.WithLabelValues(stepLabel(steps, step)).Inc()
		},
		OnSubmitted: func(context.Context, forms.Record) {
			c.Submissions.Inc()
		},
	}
}

// SetLiveSessions records the open session count.
func (c *Collector) SetLiveSessions(active int) {
	c.LiveSessions.Set(float64(active))
}

// ObserveEvent records one handled live event.
func (c *Collector) ObserveEvent(event string, d time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	c.Events.WithLabelValues(event, status).Inc()
	c.EventDuration.WithLabelValues(event).Observe(d.Seconds())
}

func stepLabel(steps *wizard.Registry, i int) string {
	if steps != nil {
		if s, err := steps.Step(i); err == nil {
			return s.ID
		}
	}
	return strconv.Itoa(i)
}
