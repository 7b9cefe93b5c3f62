package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// CheckoutMetrics counts order and payment outcomes.
type CheckoutMetrics struct {
	ordersCreated    *prometheus.CounterVec
	checkoutFailures *prometheus.CounterVec
	payments         *prometheus.CounterVec
}

// NewCheckoutMetrics registers the checkout metrics on the provided registerer.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	ordersCreated := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "orders_created_total",
		Help:      "Orders created from carts, by currency.",
	}, []string{"currency"})
	checkoutFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "checkout_failures_total",
		Help:      "Checkout attempts rejected, by error code.",
	}, []string{"reason"})
	payments := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "payments_total",
		Help:      "Payment state transitions, by resulting status.",
	}, []string{"status"})
	reg.MustRegister(ordersCreated, checkoutFailures, payments)
	return &CheckoutMetrics{
		ordersCreated:    ordersCreated,
		checkoutFailures: checkoutFailures,
		payments:         payments,
	}
}

// IncOrderCreated counts one created order.
func (m *CheckoutMetrics) IncOrderCreated(currency string) {
	if m == nil || m.ordersCreated == nil {
		return
	}
	m.ordersCreated.WithLabelValues(normalizeLabel(currency)).Inc()
}

// IncCheckoutFailure counts one rejected checkout.
func (m *CheckoutMetrics) IncCheckoutFailure(reason string) {
	if m == nil || m.checkoutFailures == nil {
		return
	}
	m.checkoutFailures.WithLabelValues(normalizeLabel(reason)).Inc()
}

// IncPayment counts one payment reaching status.
func (m *CheckoutMetrics) IncPayment(status string) {
	if m == nil || m.payments == nil {
		return
	}
	m.payments.WithLabelValues(normalizeLabel(status)).Inc()
}
