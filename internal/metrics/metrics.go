// Package metrics exposes Prometheus collectors for HTTP traffic and AI calls.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hopetreehub/innerspell/internal/ports"
)

const namespace = "innerspell"

// Metrics owns a private registry so tests can create independent instances.
type Metrics struct {
	Registry *prometheus.Registry

	httpInFlight prometheus.Gauge
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	aiCalls      *prometheus.CounterVec
	aiDuration   *prometheus.HistogramVec
}

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		httpInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		}, []string{"method", "route"}),
		aiCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ai",
			Name:      "calls_total",
			Help:      "Completion API calls by flow and outcome.",
		}, []string{"flow", "outcome"}),
		aiDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ai",
			Name:      "call_duration_seconds",
			Help:      "Duration of completion API calls.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
		}, []string{"flow"}),
	}
	m.Registry.MustRegister(
		m.httpInFlight,
		m.httpRequests,
		m.httpDuration,
		m.aiCalls,
		m.aiDuration,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
	return m
}

// Handler exposes the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// RequestStarted increments the in-flight gauge and returns its matching done func.
func (m *Metrics) RequestStarted() func() {
	m.httpInFlight.Inc()
	return m.httpInFlight.Dec
}

// ObserveRequest records one finished HTTP request. route is the router
// pattern, not the raw path.
func (m *Metrics) ObserveRequest(method, route string, status int, d time.Duration) {
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// ObserveAICall records one completion call.
func (m *Metrics) ObserveAICall(flow string, err error, d time.Duration) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.aiCalls.WithLabelValues(flow, outcome).Inc()
	m.aiDuration.WithLabelValues(flow).Observe(d.Seconds())
}

// InstrumentCompleter wraps a Completer with call metrics.
func (m *Metrics) InstrumentCompleter(next ports.Completer) ports.Completer {
	return &instrumentedCompleter{next: next, m: m}
}

type instrumentedCompleter struct {
	next ports.Completer
	m    *Metrics
}

func (c *instrumentedCompleter) Complete(ctx context.Context, req ports.CompletionRequest) (ports.CompletionResponse, error) {
	start := time.Now()
	resp, err := c.next.Complete(ctx, req)
	c.m.ObserveAICall(req.Flow, err, time.Since(start))
	return resp, err
}
