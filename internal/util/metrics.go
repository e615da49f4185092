package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PurchaseOrdersCreatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "purchase_orders_created_total",
		Help: "Total number of purchase orders created",
	}, []string{"source"})

	PurchaseOrderTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "purchase_order_transitions_total",
		Help: "Total number of purchase order status changes applied",
	}, []string{"status"})

	ReplenishmentCyclesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "replenishment_cycles_total",
		Help: "Total number of replenishment cycle triggers",
	}, []string{"outcome"})

	ReplenishmentCycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "replenishment_cycle_duration_seconds",
		Help:    "Duration of completed replenishment cycles",
		Buckets: prometheus.DefBuckets,
	})

	ReplenishmentItemsSkippedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "replenishment_items_skipped_total",
		Help: "Total number of items skipped during replenishment",
	}, []string{"reason"})

	ReplenishmentItemFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "replenishment_item_failures_total",
		Help: "Total number of items whose evaluation failed",
	})

	MaintenanceTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "maintenance_transitions_total",
		Help: "Total number of maintenance request transitions",
	}, []string{"status"})

	EventPublishFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "event_publish_failures_total",
		Help: "Total number of domain events that failed to publish",
	}, []string{"event_type"})

	CircuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "circuit_breaker_state",
		Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
	}, []string{"name"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
