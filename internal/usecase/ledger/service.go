package ledger

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/simaogato/ledger-replay/internal/domain"
)

// Ledger owns the client accounts and the transaction log and applies
// operations to them one at a time. It is not safe for concurrent use.
type Ledger struct {
	TransactionLog domain.TransactionLog

	accounts map[domain.ClientID]*domain.Account
	logger   *zap.Logger
}

// Option configures a Ledger
type Option func(*Ledger)

// WithLogger sets the logger used for per-operation debug output
func WithLogger(logger *zap.Logger) Option {
	return func(l *Ledger) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// NewLedger creates an empty ledger backed by the given transaction log
func NewLedger(txLog domain.TransactionLog, opts ...Option) *Ledger {
	l := &Ledger{
		TransactionLog: txLog,
		accounts:       make(map[domain.ClientID]*domain.Account),
		logger:         zap.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Apply processes exactly one operation.
// Returns a *domain.RejectionError when the operation is refused; in that case
// no balance or log entry has changed. Any other error comes from the
// transaction log and means the ledger could not be consulted.
//
// State machine:
//   - deposit:    total += amount, record in log; refused if total would overflow
//   - withdrawal: refused if amount > available; total -= amount, record in log
//   - dispute:    held += referenced amount, mark referenced op under dispute
//   - resolve:    held -= referenced amount, clear the dispute
//   - chargeback: held -= amount, total -= amount, mark charged back, lock account
func (l *Ledger) Apply(ctx context.Context, op domain.Operation) error {
	if err := op.Validate(); err != nil {
		return domain.Reject(op, err, "")
	}

	acc := l.account(op.Client)
	if acc.Locked {
		return domain.Reject(op, domain.ErrAccountLocked, "")
	}

	var err error
	switch op.Type {
	case domain.OpTypeDeposit:
		err = l.deposit(ctx, acc, op)
	case domain.OpTypeWithdrawal:
		err = l.withdraw(ctx, acc, op)
	case domain.OpTypeDispute:
		err = l.dispute(ctx, acc, op)
	case domain.OpTypeResolve:
		err = l.resolve(ctx, acc, op)
	case domain.OpTypeChargeback:
		err = l.chargeback(ctx, acc, op)
	}
	if err != nil {
		return err
	}

	l.logger.Debug("operation applied",
		zap.Stringer("op", op),
		zap.Stringer("total", acc.Total),
		zap.Stringer("held", acc.Held),
		zap.Bool("locked", acc.Locked),
	)
	return nil
}

func (l *Ledger) deposit(ctx context.Context, acc *domain.Account, op domain.Operation) error {
	total, ok := acc.Total.Add(op.Amount)
	if !ok {
		return domain.Reject(op, domain.ErrAmountOverflow, "total "+acc.Total.String())
	}
	if err := l.TransactionLog.Record(ctx, &op); err != nil {
		return fmt.Errorf("failed to record tx %d: %w", op.Tx, err)
	}
	acc.Total = total
	return nil
}

func (l *Ledger) withdraw(ctx context.Context, acc *domain.Account, op domain.Operation) error {
	if op.Amount > acc.Available() {
		return domain.Reject(op, domain.ErrInsufficientFunds, "available "+acc.Available().String())
	}
	if err := l.TransactionLog.Record(ctx, &op); err != nil {
		return fmt.Errorf("failed to record tx %d: %w", op.Tx, err)
	}
	acc.Total -= op.Amount
	return nil
}

func (l *Ledger) dispute(ctx context.Context, acc *domain.Account, op domain.Operation) error {
	ref, err := l.lookup(ctx, op)
	if err != nil {
		return err
	}
	if ref.UnderDispute {
		return domain.Reject(op, domain.ErrInvalidDisputeState, "already under dispute")
	}
	if ref.ChargedBack {
		return domain.Reject(op, domain.ErrInvalidDisputeState, "already charged back")
	}
	if err := checkClient(op, ref); err != nil {
		return err
	}
	held, ok := acc.Held.Add(ref.Amount)
	if !ok {
		return domain.Reject(op, domain.ErrAmountOverflow, "held "+acc.Held.String())
	}

	updated := *ref
	updated.UnderDispute = true
	if err := l.store(ctx, &updated); err != nil {
		return err
	}
	acc.Held = held
	return nil
}

func (l *Ledger) resolve(ctx context.Context, acc *domain.Account, op domain.Operation) error {
	ref, err := l.lookup(ctx, op)
	if err != nil {
		return err
	}
	if !ref.UnderDispute {
		return domain.Reject(op, domain.ErrInvalidDisputeState, "not under dispute")
	}
	if err := checkClient(op, ref); err != nil {
		return err
	}

	updated := *ref
	updated.UnderDispute = false
	if err := l.store(ctx, &updated); err != nil {
		return err
	}
	acc.Held -= ref.Amount
	return nil
}

func (l *Ledger) chargeback(ctx context.Context, acc *domain.Account, op domain.Operation) error {
	ref, err := l.lookup(ctx, op)
	if err != nil {
		return err
	}
	if !ref.UnderDispute {
		return domain.Reject(op, domain.ErrInvalidDisputeState, "not under dispute")
	}
	if err := checkClient(op, ref); err != nil {
		return err
	}
	total, ok := acc.Total.Sub(ref.Amount)
	if !ok {
		return domain.Reject(op, domain.ErrAmountOverflow, "total "+acc.Total.String())
	}

	updated := *ref
	updated.UnderDispute = false
	updated.ChargedBack = true
	if err := l.store(ctx, &updated); err != nil {
		return err
	}

	// A charged back withdrawal is reversed as fraudulent, so total may go negative
	acc.Held -= ref.Amount
	acc.Total = total
	acc.Locked = true
	return nil
}

// lookup fetches the deposit or withdrawal referenced by a dispute-family op
func (l *Ledger) lookup(ctx context.Context, op domain.Operation) (*domain.Operation, error) {
	ref, ok, err := l.TransactionLog.Lookup(ctx, op.Tx)
	if err != nil {
		return nil, fmt.Errorf("failed to look up tx %d: %w", op.Tx, err)
	}
	if !ok {
		return nil, domain.Reject(op, domain.ErrUnknownTransaction, "")
	}
	if !ref.Type.CarriesAmount() {
		return nil, domain.Reject(op, domain.ErrInvalidDisputeState, "referenced "+string(ref.Type)+" cannot be disputed")
	}
	return ref, nil
}

func (l *Ledger) store(ctx context.Context, ref *domain.Operation) error {
	if err := l.TransactionLog.Update(ctx, ref); err != nil {
		return fmt.Errorf("failed to update tx %d: %w", ref.Tx, err)
	}
	return nil
}

func checkClient(op domain.Operation, ref *domain.Operation) error {
	if ref.Client != op.Client {
		return domain.Reject(op, domain.ErrClientMismatch, fmt.Sprintf("tx %d belongs to client %d", ref.Tx, ref.Client))
	}
	return nil
}

// account returns the account of client, creating an empty one on first reference
func (l *Ledger) account(client domain.ClientID) *domain.Account {
	acc, ok := l.accounts[client]
	if !ok {
		acc = &domain.Account{}
		l.accounts[client] = acc
	}
	return acc
}

// Account returns a copy of the balances of client
func (l *Ledger) Account(client domain.ClientID) (domain.Account, bool) {
	acc, ok := l.accounts[client]
	if !ok {
		return domain.Account{}, false
	}
	return *acc, true
}

// Snapshot returns a read-only view of all accounts ordered by client id
func (l *Ledger) Snapshot() []domain.AccountSnapshot {
	snapshot := make([]domain.AccountSnapshot, 0, len(l.accounts))
	for client, acc := range l.accounts {
		snapshot = append(snapshot, acc.Snapshot(client))
	}
	sort.Slice(snapshot, func(i, j int) bool {
		return snapshot[i].Client < snapshot[j].Client
	})
	return snapshot
}
