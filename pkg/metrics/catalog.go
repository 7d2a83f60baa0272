package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// WishlistMetrics counts wishlist mutations by operation and outcome.
type WishlistMetrics struct {
	mutations *prometheus.CounterVec
}

// NewWishlistMetrics registers the wishlist counters on the provided registerer.
func NewWishlistMetrics(reg prometheus.Registerer) *WishlistMetrics {
	if reg == nil {
		return &WishlistMetrics{}
	}
	mutations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "wishlist_mutations_total",
		Help: "Wishlist add and remove attempts by outcome.",
	}, []string{"op", "outcome"})
	reg.MustRegister(mutations)
	return &WishlistMetrics{mutations: mutations}
}

// Record increments the counter for one add or remove attempt.
func (m *WishlistMetrics) Record(op, outcome string) {
	if m == nil || m.mutations == nil {
		return
	}
	m.mutations.WithLabelValues(normalizeLabel(op), normalizeLabel(outcome)).Inc()
}

// SubmissionMetrics counts product contributions by outcome.
type SubmissionMetrics struct {
	submissions *prometheus.CounterVec
}

// NewSubmissionMetrics registers the contribution counter on the provided registerer.
func NewSubmissionMetrics(reg prometheus.Registerer) *SubmissionMetrics {
	if reg == nil {
		return &SubmissionMetrics{}
	}
	submissions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "product_submissions_total",
		Help: "Product submissions by outcome.",
	}, []string{"outcome"})
	reg.MustRegister(submissions)
	return &SubmissionMetrics{submissions: submissions}
}

func (m *SubmissionMetrics) Record(outcome string) {
	if m == nil || m.submissions == nil {
		return
	}
	m.submissions.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
