package obs

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the service's Prometheus collectors.
type Metrics struct {
	HTTPRequests      *prometheus.CounterVec
	HTTPDuration      *prometheus.HistogramVec
	PriceCalculations *prometheus.CounterVec
	RepriceRuns       *prometheus.CounterVec
	RepricedItems     *prometheus.CounterVec
	MetalRate         *prometheus.GaugeVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests processed",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latencies in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		PriceCalculations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "price_calculations_total",
				Help: "Price calculations by call site and outcome",
			},
			[]string{"site", "outcome"},
		),
		RepriceRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reprice_runs_total",
				Help: "Repricing passes by outcome",
			},
			[]string{"outcome"},
		),
		RepricedItems: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "repriced_items_total",
				Help: "Inventory items visited by repricing, by result",
			},
			[]string{"result"},
		),
		MetalRate: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "metal_rate_per_gram",
				Help: "Metal rate per gram last used for pricing",
			},
			[]string{"metal"},
		),
	}
	reg.MustRegister(m.HTTPRequests, m.HTTPDuration, m.PriceCalculations, m.RepriceRuns, m.RepricedItems, m.MetalRate)
	return m
}

// ObservePrice counts one engine call from site.
func (m *Metrics) ObservePrice(site string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "invalid"
	}
	m.PriceCalculations.WithLabelValues(site, outcome).Inc()
}

// ObserveRates records the metal rates in force.
func (m *Metrics) ObserveRates(gold, silver float64) {
	if m == nil {
		return
	}
	m.MetalRate.WithLabelValues("gold").Set(gold)
	m.MetalRate.WithLabelValues("silver").Set(silver)
}
