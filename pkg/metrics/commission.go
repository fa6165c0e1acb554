package metrics

import "github.com/prometheus/client_golang/prometheus"

// CommissionMetrics tracks commission engine outcomes.
type CommissionMetrics struct {
	computed *prometheus.CounterVec
	skipped  prometheus.Counter
	amounts  prometheus.Histogram
}

// NewCommissionMetrics registers commission metrics on the provided registerer.
func NewCommissionMetrics(reg prometheus.Registerer) *CommissionMetrics {
	if reg == nil {
		return &CommissionMetrics{}
	}
	computed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "commission_computed_total",
		Help: "Finalized commission computations by outcome.",
	}, []string{"outcome"})
	skipped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "commission_idempotent_skips_total",
		Help: "Order completions skipped because the referral was already completed.",
	})
	amounts := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "commission_total_chf",
		Help:    "Total payable commission per order in CHF.",
		Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500},
	})
	reg.MustRegister(computed, skipped, amounts)
	return &CommissionMetrics{computed: computed, skipped: skipped, amounts: amounts}
}

// IncComputed counts a finalized computation with the given outcome label.
func (c *CommissionMetrics) IncComputed(outcome string) {
	if c == nil || c.computed == nil {
		return
	}
	c.computed.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncIdempotentSkip counts a redelivered completion that was safely ignored.
func (c *CommissionMetrics) IncIdempotentSkip() {
	if c == nil || c.skipped == nil {
		return
	}
	c.skipped.Inc()
}

// ObserveTotal records the payable total for one order.
func (c *CommissionMetrics) ObserveTotal(amount float64) {
	if c == nil || c.amounts == nil {
		return
	}
	c.amounts.Observe(amount)
}
