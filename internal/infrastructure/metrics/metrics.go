// Package metrics provides Prometheus instrumentation for the escrow engine.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "sme_escrow"

var (
	// GatewayCallsTotal counts payment gateway calls by operation and result.
	GatewayCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gateway_calls_total",
			Help:      "Payment gateway calls by operation and result.",
		},
		[]string{"op", "result"},
	)

	// GatewayCallDuration observes gateway latency by operation.
	GatewayCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "gateway_call_duration_seconds",
			Help:      "Payment gateway call duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"op"},
	)

	// EscrowTransitionsTotal counts escrow account status changes.
	EscrowTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "escrow_transitions_total",
			Help:      "Escrow account transitions by target status.",
		},
		[]string{"to"},
	)

	// NegotiationActionsTotal counts negotiation operations by action and outcome.
	NegotiationActionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "negotiation_actions_total",
			Help:      "Negotiation actions by action and outcome.",
		},
		[]string{"action", "outcome"},
	)

	// WebhookEventsTotal counts inbound payment confirmations by outcome.
	WebhookEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_events_total",
			Help:      "Payment webhook events by outcome.",
		},
		[]string{"outcome"},
	)

	// InstallmentsOverdueTotal counts installments flipped to overdue by the sweeper.
	InstallmentsOverdueTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "installments_overdue_total",
			Help:      "Installments marked overdue by the sweeper.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		GatewayCallsTotal,
		GatewayCallDuration,
		EscrowTransitionsTotal,
		NegotiationActionsTotal,
		WebhookEventsTotal,
		InstallmentsOverdueTotal,
	)
}

// ObserveGateway records one gateway call.
func ObserveGateway(op string, started time.Time, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	GatewayCallsTotal.WithLabelValues(op, result).Inc()
	GatewayCallDuration.WithLabelValues(op).Observe(time.Since(started).Seconds())
}

// Outcome maps an error to a low-cardinality label.
func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// Handler serves the default registry.
func Handler() http.Handler { return promhttp.Handler() }
