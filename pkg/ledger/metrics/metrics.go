// Package metrics exposes ledger activity as Prometheus metrics.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tendant/content-ledger/pkg/ledger"
)

const namespace = "content_ledger"

// Metrics owns a registry and the ledger collectors registered in it. It
// implements ledger.EventSink so it can be attached to the service directly.
type Metrics struct {
	registry *prometheus.Registry

	registrations  prometheus.Counter
	payments       prometheus.Counter
	revenueE8s     prometheus.Counter
	statusChanges  *prometheus.CounterVec
	requests       *prometheus.CounterVec
	requestSeconds *prometheus.HistogramVec
}

var _ ledger.EventSink = (*Metrics)(nil)

// New creates a registry holding the ledger collectors plus the Go runtime
// and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		registrations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "content_registrations_total",
			Help:      "Content registrations, including re-registrations of an existing ID.",
		}),
		payments: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payments_total",
			Help:      "Payments recorded.",
		}),
		revenueE8s: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "revenue_e8s_total",
			Help:      "Sum of recorded payment amounts in e8s.",
		}),
		statusChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "content_status_changes_total",
			Help:      "Content activation changes by resulting state.",
		}, []string{"active"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route pattern, method and status code.",
		}, []string{"route", "method", "code"}),
		requestSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.registrations,
		m.payments,
		m.revenueE8s,
		m.statusChanges,
		m.requests,
		m.requestSeconds,
	)
	return m
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// StatsSource reports ledger table sizes
type StatsSource interface {
	GetStats(ctx context.Context) (*ledger.Stats, error)
}

// TrackStats registers gauges that read table sizes from src at scrape time
func (m *Metrics) TrackStats(src StatsSource) {
	read := func(pick func(*ledger.Stats) uint64) func() float64 {
		return func() float64 {
			stats, err := src.GetStats(context.Background())
			if err != nil {
				return 0
			}
			return float64(pick(stats))
		}
	}

	m.registry.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "contents",
			Help:      "Number of registered content items.",
		}, read(func(s *ledger.Stats) uint64 { return s.ContentCount })),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "payments",
			Help:      "Number of recorded payments.",
		}, read(func(s *ledger.Stats) uint64 { return s.PaymentCount })),
	)
}

func (m *Metrics) ContentRegistered(ctx context.Context, content *ledger.ContentRegistration) error {
	m.registrations.Inc()
	return nil
}

func (m *Metrics) PaymentRecorded(ctx context.Context, payment *ledger.PaymentRecord, content *ledger.ContentRegistration) error {
	m.payments.Inc()
	m.revenueE8s.Add(float64(payment.AmountE8s))
	return nil
}

func (m *Metrics) ContentStatusChanged(ctx context.Context, content *ledger.ContentRegistration) error {
	m.statusChanges.WithLabelValues(strconv.FormatBool(content.IsActive)).Inc()
	return nil
}

// Middleware records request counts and latency labelled by chi route
// pattern, so path parameters do not explode label cardinality.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		m.requests.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
		m.requestSeconds.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}
