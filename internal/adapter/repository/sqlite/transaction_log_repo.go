package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/simaogato/ledger-replay/internal/domain"
)

// transactionLogRepository implements domain.TransactionLog on a SQLite file,
// for inputs whose history does not fit comfortably in memory
type transactionLogRepository struct {
	db *DB
}

// NewTransactionLogRepository creates a new transaction log repository
func NewTransactionLogRepository(db *DB) domain.TransactionLog {
	return &transactionLogRepository{db: db}
}

func (r *transactionLogRepository) Record(ctx context.Context, op *domain.Operation) error {
	query := `
		INSERT OR REPLACE INTO ledger_transactions (tx, type, client, amount, under_dispute, charged_back)
		VALUES (?, ?, ?, ?, ?, ?)
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

func (r *transactionLogRepository) Lookup(ctx context.Context, tx domain.TxID) (*domain.Operation, bool, error) {
	query := `
		SELECT type, client, amount, under_dispute, charged_back
		FROM ledger_transactions
		WHERE tx = ?
	`

	var opType string
	var client, amount int64
	op := domain.Operation{Tx: tx, HasAmount: true}

	err := r.db.QueryRowContext(ctx, query, int64(tx)).Scan(&opType, &client, &amount, &op.UnderDispute, &op.ChargedBack)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get transaction %d: %w", tx, err)
	}

	if op.Type, err = domain.ParseOpType(opType); err != nil {
		return nil, false, fmt.Errorf("failed to parse type of transaction %d: %w", tx, err)
	}
	op.Client = domain.ClientID(client)
	op.Amount = domain.Amount(amount)

	return &op, true, nil
}

func (r *transactionLogRepository) Update(ctx context.Context, op *domain.Operation) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE ledger_transactions SET under_dispute = ?, charged_back = ? WHERE tx = ?`,
		op.UnderDispute, op.ChargedBack, int64(op.Tx),
	)
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
