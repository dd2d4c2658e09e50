package domain

import (
	"context"
)

// TransactionLog defines the storage used by the ledger to remember deposits
// and withdrawals so that later disputes can reference them.
type TransactionLog interface {
	// Record stores a completed deposit or withdrawal under its TxID,
	// overwriting any previous entry with the same TxID
	Record(ctx context.Context, op *Operation) error

	// Lookup retrieves a previously recorded operation.
	// Returns (nil, false, nil) when no operation was recorded under tx.
	// In-memory implementations may return the stored value itself; callers
	// must still call Update after changing it.
	Lookup(ctx context.Context, tx TxID) (*Operation, bool, error)

	// Update stores the dispute flags of an operation returned by Lookup
	Update(ctx context.Context, op *Operation) error
}
