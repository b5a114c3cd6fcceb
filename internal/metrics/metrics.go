// Package metrics holds the engine's Prometheus instruments.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "techflow"

// Metrics is safe to use as a nil pointer; every method is then a no-op.
type Metrics struct {
	reg *prometheus.Registry

	RunsTotal       *prometheus.CounterVec
	RunDuration     prometheus.Histogram
	RunActive       prometheus.Gauge
	ListingsTotal   *prometheus.CounterVec
	SourceFetches   *prometheus.CounterVec
	DeliveriesTotal *prometheus.CounterVec
	ShortenerTotal  *prometheus.CounterVec
}

// New registers every instrument on a fresh registry, so tests can build
// as many as they like.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		reg: reg,
		RunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Scrape runs by terminal status",
		}, []string{"status", "trigger"}),
		RunDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of scrape runs",
			Buckets:   prometheus.ExponentialBuckets(5, 2, 10),
		}),
		RunActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_active",
			Help:      "1 while a scrape run is running or stopping",
		}),
		ListingsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "listings_total",
			Help:      "Classified listings by outcome (accept or skip reason)",
		}, []string{"source", "outcome"}),
		SourceFetches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_fetches_total",
			Help:      "Adapter fetches by result",
		}, []string{"source", "result"}),
		DeliveriesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deliveries_total",
			Help:      "Channel deliveries by result",
		}, []string{"channel", "result"}),
		ShortenerTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "shortener_requests_total",
			Help:      "Short link lookups by result (hit, created, error)",
		}, []string{"result"}),
	}
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.reg
}

func (m *Metrics) RunStarted() {
	if m == nil {
		return
	}
	m.RunActive.Set(1)
}

func (m *Metrics) RunFinished(status, trigger string, seconds float64) {
	if m == nil {
		return
	}
	m.RunActive.Set(0)
	m.RunsTotal.WithLabelValues(status, trigger).Inc()
	m.RunDuration.Observe(seconds)
}

func (m *Metrics) Listing(source, outcome string) {
	if m == nil {
		return
	}
	m.ListingsTotal.WithLabelValues(source, outcome).Inc()
}

func (m *Metrics) SourceFetch(source string, err error) {
	if m == nil {
		return
	}
	m.SourceFetches.WithLabelValues(source, result(err)).Inc()
}

func (m *Metrics) Delivery(channel string, err error) {
	if m == nil {
		return
	}
	m.DeliveriesTotal.WithLabelValues(channel, result(err)).Inc()
}

func (m *Metrics) Shortener(outcome string) {
	if m == nil {
		return
	}
	m.ShortenerTotal.WithLabelValues(outcome).Inc()
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
