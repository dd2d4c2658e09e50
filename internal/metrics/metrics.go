package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/simaogato/ledger-replay/internal/domain"
)

// Outcome labels
const (
	OutcomeApplied   = "applied"
	OutcomeRejected  = "rejected"
	OutcomeMalformed = "malformed"
)

// Recorder counts processed operations on its own registry
type Recorder struct {
	registry   *prometheus.Registry
	operations *prometheus.CounterVec
	rejections *prometheus.CounterVec
}

// NewRecorder creates a Recorder with freshly registered counters
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_operations_total",
				Help: "Operations read from the input, by type and outcome.",
			},
			[]string{"type", "outcome"},
		),
		rejections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_rejections_total",
				Help: "Operations refused by the ledger, by reason.",
			},
			[]string{"reason"},
		),
	}
	r.registry.MustRegister(r.operations, r.rejections)
	return r
}

// Registry exposes the underlying registry
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Applied counts an operation the ledger accepted
func (r *Recorder) Applied(opType domain.OpType) {
	r.operations.WithLabelValues(string(opType), OutcomeApplied).Inc()
}

// Rejected counts an operation the ledger refused
func (r *Recorder) Rejected(opType domain.OpType, err error) {
	r.operations.WithLabelValues(string(opType), OutcomeRejected).Inc()
	r.rejections.WithLabelValues(Reason(err)).Inc()
}

// Malformed counts an input record that could not be decoded
func (r *Recorder) Malformed() {
	r.operations.WithLabelValues("unknown", OutcomeMalformed).Inc()
}

// Totals returns every non-zero counter keyed by its label values,
// e.g. "ledger_operations_total{type=deposit,outcome=applied}"
func (r *Recorder) Totals() (map[string]float64, error) {
	families, err := r.registry.Gather()
	if err != nil {
		return nil, err
	}

	totals := make(map[string]float64)
	for _, family := range families {
		for _, m := range family.GetMetric() {
			key := family.GetName() + "{"
			for i, label := range m.GetLabel() {
				if i > 0 {
					key += ","
				}
				key += label.GetName() + "=" + label.GetValue()
			}
			key += "}"
			totals[key] = m.GetCounter().GetValue()
		}
	}
	return totals, nil
}

// Reason maps a ledger error to a short label value
func Reason(err error) string {
	switch {
	case errors.Is(err, domain.ErrAccountLocked):
		return "account_locked"
	case errors.Is(err, domain.ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, domain.ErrUnknownTransaction):
		return "unknown_transaction"
	case errors.Is(err, domain.ErrInvalidDisputeState):
		return "invalid_dispute_state"
	case errors.Is(err, domain.ErrClientMismatch):
		return "client_mismatch"
	case errors.Is(err, domain.ErrAmountOverflow):
		return "amount_overflow"
	case errors.Is(err, domain.ErrMalformedOperation):
		return "malformed_operation"
	default:
		return "other"
	}
}
