// Package metrics exposes replay counters over prometheus.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	collector *Collector
	once      sync.Once
)

// Collector holds the replay metrics.
type Collector struct {
	registry *prometheus.Registry

	MessagesTotal  *prometheus.CounterVec
	TradesTotal    prometheus.Counter
	PriceClamps    prometheus.Counter
	MalformedTotal prometheus.Counter
	BooksActive    prometheus.Gauge
}

// Get returns the process-wide collector.
func Get() *Collector {
	once.Do(func() {
		collector = newCollector()
	})
	return collector
}

func newCollector() *Collector {
	c := &Collector{registry: prometheus.NewRegistry()}

	c.MessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "huginn",
			Subsystem: "replay",
			Name:      "messages_total",
			Help:      "ITCH messages dispatched, by message type",
		},
		[]string{"type"},
	)
	c.TradesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "huginn",
			Subsystem: "replay",
			Name:      "trades_total",
			Help:      "Fills emitted by the matching engines",
		},
	)
	c.PriceClamps = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "huginn",
			Subsystem: "replay",
			Name:      "price_clamps_total",
			Help:      "Admitted orders whose price was snapped to a ladder boundary",
		},
	)
	c.MalformedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "huginn",
			Subsystem: "replay",
			Name:      "malformed_messages_total",
			Help:      "Messages skipped because framing or decoding failed",
		},
	)
	c.BooksActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "huginn",
			Subsystem: "replay",
			Name:      "books_active",
			Help:      "Order books allocated for tracked instruments",
		},
	)

	c.registry.MustRegister(
		c.MessagesTotal,
		c.TradesTotal,
		c.PriceClamps,
		c.MalformedTotal,
		c.BooksActive,
	)
	return c
}

// Handler serves the collector's registry in prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
