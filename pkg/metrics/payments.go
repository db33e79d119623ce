package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PaymentMetrics records processor round trips and settlement outcomes.
type PaymentMetrics struct {
	processorDuration *prometheus.HistogramVec
	settlements       *prometheus.CounterVec
}

// NewPaymentMetrics registers the payment metrics on the provided registerer.
func NewPaymentMetrics(reg prometheus.Registerer) *PaymentMetrics {
	if reg == nil {
		return &PaymentMetrics{}
	}
	processorDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "payment_processor_duration_seconds",
		Help:    "Duration of payment processor calls in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
	settlements := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_settlements_total",
		Help: "Auction settlement attempts by outcome.",
	}, []string{"outcome"})
	reg.MustRegister(processorDuration, settlements)
	return &PaymentMetrics{
		processorDuration: processorDuration,
		settlements:       settlements,
	}
}

// ObserveProcessorCall records the duration of the named processor operation.
func (m *PaymentMetrics) ObserveProcessorCall(operation string, duration time.Duration) {
	if m == nil || m.processorDuration == nil {
		return
	}
	m.processorDuration.WithLabelValues(normalizeLabel(operation)).Observe(duration.Seconds())
}

// IncSettlement increments the settlement counter for the given outcome.
func (m *PaymentMetrics) IncSettlement(outcome string) {
	if m == nil || m.settlements == nil {
		return
	}
	m.settlements.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
