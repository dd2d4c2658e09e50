package memory

import (
	"context"

	"github.com/simaogato/ledger-replay/internal/domain"
)

// transactionLog implements domain.TransactionLog on top of a map.
// Lookup hands out the stored value itself so flag changes are visible to
// later lookups even before Update is called.
type transactionLog struct {
	history map[domain.TxID]*domain.Operation
}

// NewTransactionLog creates an empty in-memory transaction log
func NewTransactionLog() domain.TransactionLog {
	return &transactionLog{history: make(map[domain.TxID]*domain.Operation)}
}

// Record stores a copy of op under its TxID
func (l *transactionLog) Record(_ context.Context, op *domain.Operation) error {
	stored := *op
	l.history[op.Tx] = &stored
	return nil
}

// Lookup returns the stored operation for tx
func (l *transactionLog) Lookup(_ context.Context, tx domain.TxID) (*domain.Operation, bool, error) {
	op, ok := l.history[tx]
	return op, ok, nil
}

// Update copies the dispute flags of op into the stored entry
func (l *transactionLog) Update(_ context.Context, op *domain.Operation) error {
	stored, ok := l.history[op.Tx]
	if !ok {
		return domain.ErrUnknownTransaction
	}
	stored.UnderDispute = op.UnderDispute
	stored.ChargedBack = op.ChargedBack
	return nil
}
