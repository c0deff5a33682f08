// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	namespace    = "qrgen"
	OutcomeLabel = "outcome"
)

type SessionStats interface {
	Len() int
	InFlight() int
}

type Metrics struct {
	registry *prometheus.Registry

	// Generations counts settled generations, labelled by outcome.
	Generations *prometheus.CounterVec
}

func New() *Metrics {
	registry := prometheus.NewRegistry()

	up := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "up",
		Help:      "Is the server up",
	})
	up.Set(1)

	generations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "generations_total",
		Help:      "Settled QR generations by outcome",
	}, []string{OutcomeLabel})
	generations.WithLabelValues("success")
	generations.WithLabelValues("failure")

	registry.MustRegister(up, generations)

	return &Metrics{registry: registry, Generations: generations}
}

// ObserveSessions exports live session and in-flight generation gauges read
// from s at scrape time.
func (m *Metrics) ObserveSessions(s SessionStats) {
	m.registry.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions",
			Help:      "Live browser sessions",
		}, func() float64 { return float64(s.Len()) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "generations_in_flight",
			Help:      "Sessions with a generation running",
		}, func() float64 { return float64(s.InFlight()) }),
	)
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
