// Package metrics exposes Prometheus collectors for pricing and shipment work.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the server's collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	RepricingRequests     *prometheus.CounterVec
	RepricingItemsUpdated prometheus.Counter
	ShipmentTransitions   *prometheus.CounterVec
	HTTPRequests          *prometheus.CounterVec
	HTTPDuration          *prometheus.HistogramVec
}

// New creates and registers all collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		RepricingRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "zaloga_repricing_requests_total",
				Help: "Bulk repricing requests by phase (preview or apply)",
			},
			[]string{"phase"},
		),
		RepricingItemsUpdated: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "zaloga_repricing_items_updated_total",
				Help: "Items whose effective price changed through bulk apply",
			},
		),
		ShipmentTransitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "zaloga_shipment_transitions_total",
				Help: "Completed shipment transitions by action",
			},
			[]string{"action"},
		),
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "zaloga_http_requests_total",
				Help: "HTTP requests by method and status",
			},
			[]string{"method", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "zaloga_http_request_duration_seconds",
				Help:    "HTTP request latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method"},
		),
	}

	m.registry.MustRegister(
		m.RepricingRequests,
		m.RepricingItemsUpdated,
		m.ShipmentTransitions,
		m.HTTPRequests,
		m.HTTPDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveRequest records one served HTTP request.
func (m *Metrics) ObserveRequest(method string, status int, elapsed time.Duration) {
	m.HTTPRequests.WithLabelValues(method, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(method).Observe(elapsed.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
