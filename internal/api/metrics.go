package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/churrosoft/deck8-hub-go/internal/bridge"
	"github.com/churrosoft/deck8-hub-go/internal/models"
)

// Metrics holds the host's Prometheus collectors on a private registry.
type Metrics struct {
	reg   *prometheus.Registry
	known map[string]bool

	commands   *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	deliveries *prometheus.CounterVec
	requests   *prometheus.CounterVec
	wsClients  prometheus.Gauge
	sseClients prometheus.Gauge
}

// NewMetrics creates and registers the collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "deck8_commands_total",
			Help: "Driver commands dispatched, by command and result code.",
		}, []string{"command", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "deck8_command_duration_seconds",
			Help:    "Driver command latency.",
			Buckets: []float64{.0005, .001, .005, .01, .05, .1, .5, 1, 3},
		}, []string{"command"}),
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "deck8_event_deliveries_total",
			Help: "Push events handed to subscribers, by event.",
		}, []string{"event"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "deck8_http_requests_total",
			Help: "HTTP requests by route and method.",
		}, []string{"route", "method"}),
		wsClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "deck8_ws_clients",
			Help: "Connected WebSocket bridge clients.",
		}),
		sseClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "deck8_sse_clients",
			Help: "Connected SSE clients.",
		}),
	}
	m.reg.MustRegister(
		m.commands, m.duration, m.deliveries, m.requests, m.wsClients, m.sseClients,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// SetCommands limits the command label to known names; anything else is
// counted as "other".
func (m *Metrics) SetCommands(cmds []string) {
	known := make(map[string]bool, len(cmds))
	for _, c := range cmds {
		known[c] = true
	}
	m.known = known
}

func (m *Metrics) label(cmd string) string {
	if m.known != nil && !m.known[cmd] {
		return "other"
	}
	return cmd
}

// Registry exposes the registry for extra collectors.
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// Instrument wraps d so every dispatch and event delivery is counted.
func (m *Metrics) Instrument(d bridge.Dispatcher) bridge.Dispatcher {
	if _, ok := d.(instrumented); ok {
		return d
	}
	return instrumented{d: d, m: m}
}

func (m *Metrics) countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r)
		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		m.requests.WithLabelValues(route, r.Method).Inc()
	})
}

func (m *Metrics) wsClient(delta float64) {
	if m != nil {
		m.wsClients.Add(delta)
	}
}

func (m *Metrics) sseClient(delta float64) {
	if m != nil {
		m.sseClients.Add(delta)
	}
}

type instrumented struct {
	d bridge.Dispatcher
	m *Metrics
}

func (i instrumented) Dispatch(ctx context.Context, cmd string, args json.RawMessage) (any, error) {
	start := time.Now()
	result, err := i.d.Dispatch(ctx, cmd, args)
	code := "OK"
	if err != nil {
		code = models.AsAppError(err).Code
	}
	label := i.m.label(cmd)
	i.m.commands.WithLabelValues(label, code).Inc()
	i.m.duration.WithLabelValues(label).Observe(time.Since(start).Seconds())
	return result, err
}

func (i instrumented) Subscribe(fn func(event string, payload any)) func() {
	return i.d.Subscribe(func(event string, payload any) {
		i.m.deliveries.WithLabelValues(event).Inc()
		fn(event, payload)
	})
}
