package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records reconciliation and billing counters.
type Metrics struct {
	paymentsConfirmed  *prometheus.CounterVec
	duplicateCallbacks prometheus.Counter
	billsGenerated     prometheus.Counter
	leaseTransitions   *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		paymentsConfirmed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "leaseledger_payments_confirmed_total",
			Help: "Confirmed payments by payment type.",
		}, []string{"payment_type"}),
		duplicateCallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "leaseledger_duplicate_callbacks_total",
			Help: "Gateway confirmation callbacks ignored as duplicates.",
		}),
		billsGenerated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "leaseledger_bills_generated_total",
			Help: "Monthly billing records created.",
		}),
		leaseTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "leaseledger_lease_transitions_total",
			Help: "Lease agreement status transitions.",
		}, []string{"to"}),
	}
	reg.MustRegister(m.paymentsConfirmed, m.duplicateCallbacks, m.billsGenerated, m.leaseTransitions)
	return m
}

func (m *Metrics) RecordPaymentConfirmed(paymentType string) {
	if m == nil {
		return
	}
	m.paymentsConfirmed.WithLabelValues(paymentType).Inc()
}

func (m *Metrics) RecordDuplicateCallback() {
	if m == nil {
		return
	}
	m.duplicateCallbacks.Inc()
}

func (m *Metrics) RecordBillGenerated() {
	if m == nil {
		return
	}
	m.billsGenerated.Inc()
}

func (m *Metrics) RecordLeaseTransition(to string) {
	if m == nil {
		return
	}
	m.leaseTransitions.WithLabelValues(to).Inc()
}
