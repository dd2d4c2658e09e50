package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedOperation is raised at ingestion for records that cannot be decoded
	ErrMalformedOperation = errors.New("malformed operation")

	ErrAccountLocked       = errors.New("account locked")
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrUnknownTransaction  = errors.New("unknown transaction")
	ErrInvalidDisputeState = errors.New("invalid dispute state")
	ErrClientMismatch      = errors.New("client mismatch")
	ErrAmountOverflow      = errors.New("amount overflow")
)

// RejectionError reports an operation the ledger refused to apply.
// Balances and the transaction log are left untouched when it is returned.
type RejectionError struct {
	Op     Operation
	Reason error
	Detail string
}

func (e *RejectionError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s rejected: %v", e.Op, e.Reason)
	}
	return fmt.Sprintf("%s rejected: %v: %s", e.Op, e.Reason, e.Detail)
}

func (e *RejectionError) Unwrap() error {
	return e.Reason
}

// Reject builds a RejectionError for op
func Reject(op Operation, reason error, detail string) *RejectionError {
	return &RejectionError{Op: op, Reason: reason, Detail: detail}
}

// IsRejection reports whether err is a per-operation rejection that must not
// stop the replay
func IsRejection(err error) bool {
	var rej *RejectionError
	return errors.As(err, &rej)
}
