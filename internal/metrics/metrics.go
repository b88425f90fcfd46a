// Package metrics declares the Prometheus collectors exported at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fleetrent_http_requests_total",
		Help: "HTTP requests by method, route and status",
	}, []string{"method", "route", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fleetrent_http_request_duration_seconds",
		Help:    "HTTP request latency by method and route",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	CancellationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fleetrent_cancellations_total",
		Help: "Rental cancellations by refund outcome",
	}, []string{"outcome"})

	AllocationConflictsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fleetrent_allocation_conflicts_total",
		Help: "Payment allocations retried after a concurrent balance change",
	})

	InstallmentChargesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fleetrent_installment_charges_total",
		Help: "Installment charge attempts by result",
	}, []string{"result"})

	ESignEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fleetrent_esign_events_total",
		Help: "E-signature status updates by mapped status",
	}, []string{"status"})

	DashboardCacheTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fleetrent_dashboard_cache_total",
		Help: "Dashboard KPI cache lookups by result",
	}, []string{"result"})

	RealtimeClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "fleetrent_realtime_clients",
		Help: "Connected realtime websocket clients",
	})
)
