package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/simaogato/ledger-replay/internal/app"
	"github.com/simaogato/ledger-replay/internal/logging"
	"github.com/simaogato/ledger-replay/internal/metrics"
)

const usage = "usage: ledger-replay <transactions.csv>"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run replays the CSV file named by the single argument, writing account
// balances to stdout and logs to stderr. Returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	if len(args) != 1 {
		fmt.Fprintln(stderr, usage)
		return 2
	}

	logger := logging.New(stderr, zapcore.InfoLevel)
	defer logger.Sync()

	// Stop between operations on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	f, err := os.Open(args[0])
	if err != nil {
		logger.Error("failed to open input", zap.String("path", args[0]), zap.Error(err))
		return 1
	}
	defer f.Close()

	recorder := metrics.NewRecorder()
	replayer := app.NewReplayer(
		app.WithTransactionLog(app.InMemoryTransactionLog()),
		app.WithLogger(logger.With(zap.String("input", args[0]))),
		app.WithRecorder(recorder),
	)

	out := bufio.NewWriter(stdout)
	if _, err := replayer.Run(ctx, bufio.NewReader(f), out); err != nil {
		logger.Error("replay failed", zap.Error(err))
		return 1
	}
	if err := out.Flush(); err != nil {
		logger.Error("failed to write accounts", zap.Error(err))
		return 1
	}

	if totals, err := recorder.Totals(); err == nil {
		logger.Info("operation totals", totalsFields(totals)...)
	}

	return 0
}

// totalsFields renders metric totals as log fields ordered by series name
func totalsFields(totals map[string]float64) []zap.Field {
	names := make([]string, 0, len(totals))
	for name := range totals {
		names = append(names, name)
	}
	sort.Strings(names)

	fields := make([]zap.Field, 0, len(names))
	for _, name := range names {
		fields = append(fields, zap.Float64(name, totals[name]))
	}
	return fields
}
