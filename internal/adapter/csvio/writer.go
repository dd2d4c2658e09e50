package csvio

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/simaogato/ledger-replay/internal/domain"
)

var accountsHeader = []string{"client", "available", "held", "total", "locked"}

// WriteAccounts renders one CSV row per account, in the order given
func WriteAccounts(out io.Writer, accounts []domain.AccountSnapshot) error {
	w := csv.NewWriter(out)

	if err := w.Write(accountsHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, acc := range accounts {
		row := []string{
			strconv.FormatUint(uint64(acc.Client), 10),
			acc.Available.String(),
			acc.Held.String(),
			acc.Total.String(),
			strconv.FormatBool(acc.Locked),
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("failed to write client %d: %w", acc.Client, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush accounts: %w", err)
	}
	return nil
}
