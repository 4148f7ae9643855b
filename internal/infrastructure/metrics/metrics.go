package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shares_http_requests_total",
		Help: "Total HTTP requests processed, labeled by status code",
	}, []string{"method", "route", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "shares_http_request_duration_seconds",
		Help:    "Latency distribution of HTTP requests",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	}, []string{"method", "route"})

	// SettlementsTotal counts confirm attempts by outcome:
	// confirmed, already_confirmed, insufficient_balance, invalid_transition, error.
	SettlementsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shares_settlements_total",
		Help: "Trade request confirmations by outcome",
	}, []string{"outcome"})

	SharesSettled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shares_settled_total",
		Help: "Shares moved by confirmed trades",
	}, []string{"asset_type"})

	IssuancesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shares_issuances_total",
		Help: "Completed share issuances",
	}, []string{"asset_type"})

	ReconcileMismatches = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "shares_reconcile_mismatches",
		Help: "Assets whose holdings did not match issued shares at the last reconciliation",
	})

	StripeWebhookEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shares_stripe_webhook_events_total",
		Help: "Verified Stripe webhook events by type and outcome",
	}, []string{"type", "outcome"})

	NotificationFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shares_notification_failures_total",
		Help: "Notifications that failed after the triggering change committed",
	})
)
