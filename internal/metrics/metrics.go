package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics holds the service registry and the wallet business counters
type Metrics struct {
	Registry *prometheus.Registry

	RequestDuration *prometheus.HistogramVec
	CreditsTotal    *prometheus.CounterVec
	PayoutsTotal    prometheus.Counter
	ResolvedTotal   *prometheus.CounterVec
}

func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		Registry: registry,
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "walletd_http_request_duration_seconds",
			Help:    "HTTP request latency by method and status",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "status"}),
		CreditsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "walletd_credits_total",
			Help: "Wallet credits applied, by source",
		}, []string{"source"}),
		PayoutsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "walletd_payout_requests_total",
			Help: "Payout requests accepted",
		}),
		ResolvedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "walletd_payouts_resolved_total",
			Help: "Payout requests resolved, by outcome",
		}, []string{"outcome"}),
	}

	registry.MustRegister(m.RequestDuration, m.CreditsTotal, m.PayoutsTotal, m.ResolvedTotal)

	return m
}
