package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/simaogato/ledger-replay/internal/domain"
)

// transactionLogRepository implements domain.TransactionLog
type transactionLogRepository struct {
	db *DB
}

// NewTransactionLogRepository creates a new transaction log repository.
// The ledger_transactions table must exist, see DB.EnsureSchema.
func NewTransactionLogRepository(db *DB) domain.TransactionLog {
	return &transactionLogRepository{db: db}
}

// Record inserts the operation, replacing any row with the same tx
func (r *transactionLogRepository) Record(ctx context.Context, op *domain.Operation) error {
	query := `
		INSERT INTO ledger_transactions (tx, type, client, amount, under_dispute, charged_back)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (tx) DO UPDATE SET
			type = EXCLUDED.type,
			client = EXCLUDED.client,
			amount = EXCLUDED.amount,
			under_dispute = EXCLUDED.under_dispute,
			charged_back = EXCLUDED.charged_back
	`

	_, err := r.db.ExecContext(ctx, query,
		int64(op.Tx),
		string(op.Type),
		int64(op.Client),
		int64(op.Amount),
		op.UnderDispute,
		op.ChargedBack,
	)
	if err != nil {
		return fmt.Errorf("failed to insert transaction %d: %w", op.Tx, err)
	}

	return nil
}

// Lookup retrieves the operation recorded under tx
func (r *transactionLogRepository) Lookup(ctx context.Context, tx domain.TxID) (*domain.Operation, bool, error) {
	query := `
		SELECT type, client, amount, under_dispute, charged_back
		FROM ledger_transactions
		WHERE tx = $1
	`

	var opType string
	var client, amount int64
	op := domain.Operation{Tx: tx, HasAmount: true}

	err := r.db.QueryRowContext(ctx, query, int64(tx)).Scan(
		&opType,
		&client,
		&amount,
		&op.UnderDispute,
		&op.ChargedBack,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get transaction %d: %w", tx, err)
	}

	op.Type, err = domain.ParseOpType(opType)
	if err != nil {
		return nil, false, fmt.Errorf("failed to parse type of transaction %d: %w", tx, err)
	}
	op.Client = domain.ClientID(client)
	op.Amount = domain.Amount(amount)

	return &op, true, nil
}

// Update persists the dispute flags of op
func (r *transactionLogRepository) Update(ctx context.Context, op *domain.Operation) error {
	query := `
		UPDATE ledger_transactions
		SET under_dispute = $2, charged_back = $3
		WHERE tx = $1
	`

	result, err := r.db.ExecContext(ctx, query, int64(op.Tx), op.UnderDispute, op.ChargedBack)
	if err != nil {
		return fmt.Errorf("failed to update transaction %d: %w", op.Tx, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update transaction %d: %w", op.Tx, err)
	}
	if affected == 0 {
		return fmt.Errorf("transaction %d: %w", op.Tx, domain.ErrUnknownTransaction)
	}

	return nil
}
