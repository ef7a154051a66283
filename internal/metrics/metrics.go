package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Registry holds all Prometheus metrics.
type Registry struct {
	*prometheus.Registry

	// HTTP metrics
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight prometheus.Gauge

	// Evaluation metrics
	evaluationsTotal   *prometheus.CounterVec
	evaluationDuration *prometheus.HistogramVec
	liveOrdersTotal    *prometheus.CounterVec
	panelDates         prometheus.Gauge
	panelInstruments   prometheus.Gauge
}

// NewRegistry creates a new metrics registry with all metrics registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	// Register Go runtime metrics
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &Registry{
		Registry: reg,

		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),

		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		httpRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently in flight",
			},
		),

		evaluationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "evaluations_total",
				Help: "Total number of strategy evaluations by mode and outcome",
			},
			[]string{"mode", "strategy", "status"},
		),

		evaluationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "evaluation_duration_seconds",
				Help:    "Strategy evaluation duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"mode", "strategy"},
		),

		liveOrdersTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "live_orders_total",
				Help: "Total number of live orders emitted",
			},
			[]string{"strategy"},
		),

		panelDates: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "panel_dates",
				Help: "Number of dates in the most recently evaluated panel",
			},
		),

		panelInstruments: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "panel_instruments",
				Help: "Number of instruments in the most recently evaluated panel",
			},
		),
	}

	reg.MustRegister(
		r.httpRequestsTotal,
		r.httpRequestDuration,
		r.httpRequestsInFlight,
		r.evaluationsTotal,
		r.evaluationDuration,
		r.liveOrdersTotal,
		r.panelDates,
		r.panelInstruments,
	)

	return r
}

// RecordRequest records one completed HTTP request.
func (r *Registry) RecordRequest(method, path string, status int, duration float64) {
	r.httpRequestsTotal.WithLabelValues(method, path, statusLabel(status)).Inc()
	r.httpRequestDuration.WithLabelValues(method, path).Observe(duration)
}

// InFlightInc increments the in-flight request gauge.
func (r *Registry) InFlightInc() { r.httpRequestsInFlight.Inc() }

// InFlightDec decrements the in-flight request gauge.
func (r *Registry) InFlightDec() { r.httpRequestsInFlight.Dec() }

// RecordEvaluation records one strategy evaluation.
func (r *Registry) RecordEvaluation(mode, strategy, status string, duration float64) {
	r.evaluationsTotal.WithLabelValues(mode, strategy, status).Inc()
	r.evaluationDuration.WithLabelValues(mode, strategy).Observe(duration)
}

// RecordLiveOrders records the size of an emitted order batch.
func (r *Registry) RecordLiveOrders(strategy string, orders int) {
	r.liveOrdersTotal.WithLabelValues(strategy).Add(float64(orders))
}

// RecordPanel records the shape of the panel under evaluation.
func (r *Registry) RecordPanel(dates, instruments int) {
	r.panelDates.Set(float64(dates))
	r.panelInstruments.Set(float64(instruments))
}

func statusLabel(status int) string {
	switch {
	case status < 300:
		return "2xx"
	case status < 400:
		return "3xx"
	case status < 500:
		return "4xx"
	default:
		return "5xx"
	}
}
