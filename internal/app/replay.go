package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/simaogato/ledger-replay/internal/adapter/csvio"
	"github.com/simaogato/ledger-replay/internal/adapter/repository/memory"
	"github.com/simaogato/ledger-replay/internal/adapter/repository/postgres"
	"github.com/simaogato/ledger-replay/internal/adapter/repository/sqlite"
	"github.com/simaogato/ledger-replay/internal/domain"
	"github.com/simaogato/ledger-replay/internal/metrics"
	"github.com/simaogato/ledger-replay/internal/usecase/ledger"
)

// TransactionLogFactory provides a fresh transaction log for one replay and a
// cleanup function to release it afterwards
type TransactionLogFactory func(ctx context.Context) (domain.TransactionLog, func() error, error)

// InMemoryTransactionLog keeps the history in a map
func InMemoryTransactionLog() TransactionLogFactory {
	return func(context.Context) (domain.TransactionLog, func() error, error) {
		return memory.NewTransactionLog(), func() error { return nil }, nil
	}
}

// SQLiteTransactionLog keeps the history in a scratch SQLite file under dir,
// removed when the replay ends
func SQLiteTransactionLog(dir string) TransactionLogFactory {
	return func(ctx context.Context) (domain.TransactionLog, func() error, error) {
		db, err := sqlite.NewScratchDB(ctx, dir)
		if err != nil {
			return nil, nil, err
		}
		return sqlite.NewTransactionLogRepository(db), db.Remove, nil
	}
}

// PostgresTransactionLog keeps the history in the ledger_transactions table
// of db. The table is emptied before and after the replay, so runs sharing a
// database must not overlap.
func PostgresTransactionLog(db *postgres.DB) TransactionLogFactory {
	return func(ctx context.Context) (domain.TransactionLog, func() error, error) {
		if err := db.EnsureSchema(ctx); err != nil {
			return nil, nil, err
		}
		if err := db.Truncate(ctx); err != nil {
			return nil, nil, err
		}
		cleanup := func() error {
			return db.Truncate(context.Background())
		}
		return postgres.NewTransactionLogRepository(db), cleanup, nil
	}
}

// Summary describes the outcome of one replay
type Summary struct {
	RunID    string
	Applied  int
	Rejected int
	Skipped  int
	Accounts int
	Duration time.Duration
}

// Replayer reads operations, folds them into a ledger and renders the result
type Replayer struct {
	newLog   TransactionLogFactory
	logger   *zap.Logger
	recorder *metrics.Recorder
}

// Option configures a Replayer
type Option func(*Replayer)

// WithTransactionLog selects the transaction log backend
func WithTransactionLog(factory TransactionLogFactory) Option {
	return func(r *Replayer) { r.newLog = factory }
}

// WithLogger sets the logger used to report rejections and skipped records
func WithLogger(logger *zap.Logger) Option {
	return func(r *Replayer) { r.logger = logger }
}

// WithRecorder sets the metrics recorder
func WithRecorder(recorder *metrics.Recorder) Option {
	return func(r *Replayer) { r.recorder = recorder }
}

// NewReplayer creates a Replayer; by default it uses an in-memory log, no
// logging and a private metrics recorder
func NewReplayer(opts ...Option) *Replayer {
	r := &Replayer{
		newLog:   InMemoryTransactionLog(),
		logger:   zap.NewNop(),
		recorder: metrics.NewRecorder(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run replays every operation of in, in order, and writes the final account
// balances to out.
// Malformed records and ledger rejections are logged and skipped. Read errors,
// transaction log failures and context cancellation abort the run.
func (r *Replayer) Run(ctx context.Context, in io.Reader, out io.Writer) (summary Summary, err error) {
	start := time.Now()
	summary.RunID = uuid.NewString()
	logger := r.logger.With(zap.String("run_id", summary.RunID))

	txLog, cleanup, err := r.newLog(ctx)
	if err != nil {
		return summary, fmt.Errorf("failed to open transaction log: %w", err)
	}
	defer func() {
		if cerr := cleanup(); cerr != nil {
			logger.Error("failed to release transaction log", zap.Error(cerr))
			if err == nil {
				err = cerr
			}
		}
	}()

	reader, err := csvio.NewReader(in)
	if err != nil {
		return summary, err
	}

	l := ledger.NewLedger(txLog, ledger.WithLogger(logger))

	for {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		op, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var parseErr *csvio.ParseError
			if errors.As(err, &parseErr) {
				summary.Skipped++
				r.recorder.Malformed()
				logger.Warn("skipping malformed record", zap.Int("line", parseErr.Line), zap.Error(parseErr.Err))
				continue
			}
			return summary, fmt.Errorf("failed to read operations: %w", err)
		}

		if err := l.Apply(ctx, op); err != nil {
			if !domain.IsRejection(err) {
				return summary, fmt.Errorf("failed to apply %s: %w", op, err)
			}
			summary.Rejected++
			r.recorder.Rejected(op.Type, err)
			logger.Warn("operation rejected",
				zap.String("type", string(op.Type)),
				zap.Uint16("client", uint16(op.Client)),
				zap.Uint32("tx", uint32(op.Tx)),
				zap.String("reason", metrics.Reason(err)),
				zap.Error(err),
			)
			continue
		}
		summary.Applied++
		r.recorder.Applied(op.Type)
	}

	accounts := l.Snapshot()
	if err := csvio.WriteAccounts(out, accounts); err != nil {
		return summary, err
	}
	summary.Accounts = len(accounts)
	summary.Duration = time.Since(start)

	logger.Info("replay finished",
		zap.Int("applied", summary.Applied),
		zap.Int("rejected", summary.Rejected),
		zap.Int("skipped", summary.Skipped),
		zap.Int("accounts", summary.Accounts),
		zap.Duration("duration", summary.Duration),
	)
	return summary, nil
}
