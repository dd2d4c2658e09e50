package app

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/simaogato/ledger-replay/internal/adapter/repository/postgres"
	"github.com/simaogato/ledger-replay/internal/domain"
	"github.com/simaogato/ledger-replay/internal/metrics"
)

func replayFile(t *testing.T, r *Replayer, name string) (Summary, string) {
	t.Helper()
	f, err := os.Open(filepath.Join("testdata", name))
	require.NoError(t, err)
	defer f.Close()

	var out bytes.Buffer
	summary, err := r.Run(context.Background(), f, &out)
	require.NoError(t, err)
	return summary, out.String()
}

func TestRun_Fixtures(t *testing.T) {
	tests := []struct {
		file         string
		want         string
		wantApplied  int
		wantRejected int
	}{
		{
			file: "basic_input.csv",
			want: "client,available,held,total,locked\n" +
				"1,1.5,0,1.5,false\n" +
				"2,2,0,2,false\n",
			wantApplied:  4,
			wantRejected: 1,
		},
		{
			file: "dispute.csv",
			want: "client,available,held,total,locked\n" +
				"1,1,3,4,false\n" +
				"2,12,0,12,false\n",
			wantApplied:  4,
			wantRejected: 1,
		},
		{
			file: "dispute_dispute.csv",
			want: "client,available,held,total,locked\n" +
				"1,10,2,12,false\n",
			wantApplied:  3,
			wantRejected: 1,
		},
		{
			file: "dispute_resolve_dispute.csv",
			want: "client,available,held,total,locked\n" +
				"1,14,2,16,false\n",
			wantApplied:  6,
			wantRejected: 0,
		},
		{
			file: "dispute_chargeback.csv",
			want: "client,available,held,total,locked\n" +
				"1,10,0,10,true\n",
			wantApplied:  4,
			wantRejected: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			for name, factory := range map[string]TransactionLogFactory{
				"memory": InMemoryTransactionLog(),
				"sqlite": SQLiteTransactionLog(t.TempDir()),
			} {
				t.Run(name, func(t *testing.T) {
					summary, out := replayFile(t, NewReplayer(WithTransactionLog(factory)), tt.file)

					assert.Equal(t, tt.want, out)
					assert.Equal(t, tt.wantApplied, summary.Applied)
					assert.Equal(t, tt.wantRejected, summary.Rejected)
					assert.Zero(t, summary.Skipped)
					assert.NotEmpty(t, summary.RunID)
				})
			}
		})
	}
}

func TestRun_SkipsMalformedRecords(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	recorder := metrics.NewRecorder()
	r := NewReplayer(WithLogger(zap.New(core)), WithRecorder(recorder))

	summary, out := replayFile(t, r, "malformed.csv")

	assert.Equal(t, "client,available,held,total,locked\n"+
		"1,5.1234,0,5.1234,false\n"+
		"2,0,0.0001,0.0001,false\n", out)
	assert.Equal(t, 3, summary.Applied)
	assert.Equal(t, 1, summary.Rejected)
	assert.Equal(t, 2, summary.Skipped)

	skipped := logs.FilterMessage("skipping malformed record").All()
	require.Len(t, skipped, 2)
	assert.Equal(t, int64(3), skipped[0].ContextMap()["line"])
	assert.Equal(t, int64(4), skipped[1].ContextMap()["line"])

	rejected := logs.FilterMessage("operation rejected").All()
	require.Len(t, rejected, 1)
	assert.Equal(t, "insufficient_funds", rejected[0].ContextMap()["reason"])
	assert.Equal(t, uint32(5), rejected[0].ContextMap()["tx"])

	finished := logs.FilterMessage("replay finished").All()
	require.Len(t, finished, 1)
	assert.Equal(t, summary.RunID, finished[0].ContextMap()["run_id"])

	totals, err := recorder.Totals()
	require.NoError(t, err)
	assert.Equal(t, float64(2), totals["ledger_operations_total{outcome=malformed,type=unknown}"])
	assert.Equal(t, float64(2), totals["ledger_operations_total{outcome=applied,type=deposit}"])
}

func TestRun_OrderMatters(t *testing.T) {
	input := "type,client,tx,amount\n" +
		"deposit,1,1,5.0\n" +
		"resolve,1,1,\n" +
		"dispute,1,1,\n"

	var out bytes.Buffer
	summary, err := NewReplayer().Run(context.Background(), strings.NewReader(input), &out)

	require.NoError(t, err)
	assert.Equal(t, 1, summary.Rejected)
	assert.Equal(t, "client,available,held,total,locked\n1,0,5,5,false\n", out.String())
}

func TestRun_EmptyInput(t *testing.T) {
	var out bytes.Buffer

	_, err := NewReplayer().Run(context.Background(), strings.NewReader(""), &out)

	assert.Error(t, err)
	assert.Empty(t, out.String())
}

func TestRun_HeaderOnly(t *testing.T) {
	var out bytes.Buffer

	summary, err := NewReplayer().Run(context.Background(), strings.NewReader("type,client,tx,amount\n"), &out)

	require.NoError(t, err)
	assert.Equal(t, 0, summary.Accounts)
	assert.Equal(t, "client,available,held,total,locked\n", out.String())
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	_, err := NewReplayer().Run(ctx, strings.NewReader("type,client,tx,amount\ndeposit,1,1,1\n"), &out)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, out.String())
}

// failingLog fails every write, standing in for a broken disk
type failingLog struct{}

func (failingLog) Record(context.Context, *domain.Operation) error { return errors.New("disk full") }

func (failingLog) Lookup(context.Context, domain.TxID) (*domain.Operation, bool, error) {
	return nil, false, nil
}

func (failingLog) Update(context.Context, *domain.Operation) error { return errors.New("disk full") }

func TestRun_StorageFailureAborts(t *testing.T) {
	cleaned := false
	factory := func(context.Context) (domain.TransactionLog, func() error, error) {
		return failingLog{}, func() error { cleaned = true; return nil }, nil
	}

	var out bytes.Buffer
	_, err := NewReplayer(WithTransactionLog(factory)).
		Run(context.Background(), strings.NewReader("type,client,tx,amount\ndeposit,1,1,1\n"), &out)

	assert.ErrorContains(t, err, "disk full")
	assert.True(t, cleaned)
	assert.Empty(t, out.String())
}

func TestRun_PostgresTransactionLog(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	// The table is emptied before the first operation and again after the last
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS ledger_transactions")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("TRUNCATE TABLE ledger_transactions")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO ledger_transactions")).
		WithArgs(int64(1), "deposit", int64(1), int64(10000), false, false).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT type, client, amount, under_dispute, charged_back")).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"type", "client", "amount", "under_dispute", "charged_back"}).
			AddRow("deposit", int64(1), int64(10000), false, false))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE ledger_transactions")).
		WithArgs(int64(1), true, false).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("TRUNCATE TABLE ledger_transactions")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	input := "type,client,tx,amount\n" +
		"deposit,1,1,1.0\n" +
		"dispute,1,1,\n"

	var out bytes.Buffer
	r := NewReplayer(WithTransactionLog(PostgresTransactionLog(&postgres.DB{DB: sqlDB})))
	summary, err := r.Run(context.Background(), strings.NewReader(input), &out)

	require.NoError(t, err)
	assert.Equal(t, 2, summary.Applied)
	assert.Equal(t, "client,available,held,total,locked\n1,0,1,1,false\n", out.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRun_PostgresTransactionLogSchemaFailure(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS ledger_transactions")).
		WillReturnError(errors.New("permission denied"))

	var out bytes.Buffer
	r := NewReplayer(WithTransactionLog(PostgresTransactionLog(&postgres.DB{DB: sqlDB})))
	_, err = r.Run(context.Background(), strings.NewReader("type,client,tx,amount\n"), &out)

	assert.ErrorContains(t, err, "failed to open transaction log")
	assert.Empty(t, out.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}
