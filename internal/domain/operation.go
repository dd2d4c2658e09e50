package domain

import (
	"fmt"
	"strings"
)

// OpType represents the kind of ledger event
type OpType string

const (
	OpTypeDeposit    OpType = "deposit"
	OpTypeWithdrawal OpType = "withdrawal"
	OpTypeDispute    OpType = "dispute"
	OpTypeResolve    OpType = "resolve"
	OpTypeChargeback OpType = "chargeback"
)

// ClientID identifies one account
type ClientID uint16

// TxID identifies one deposit or withdrawal in the log
type TxID uint32

// ParseOpType converts the literal used in the input into an OpType
func ParseOpType(s string) (OpType, error) {
	switch t := OpType(strings.ToLower(strings.TrimSpace(s))); t {
	case OpTypeDeposit, OpTypeWithdrawal, OpTypeDispute, OpTypeResolve, OpTypeChargeback:
		return t, nil
	default:
		return "", fmt.Errorf("%w: %q is not a valid operation", ErrMalformedOperation, s)
	}
}

// CarriesAmount reports whether operations of this type move funds themselves.
// Dispute-family operations only reference an earlier transaction.
func (t OpType) CarriesAmount() bool {
	return t == OpTypeDeposit || t == OpTypeWithdrawal
}

// Operation is a single ledger event.
// UnderDispute and ChargedBack are only meaningful on operations stored in the
// TransactionLog and are changed by the ledger when a dispute references them.
type Operation struct {
	Type      OpType
	Client    ClientID
	Tx        TxID
	Amount    Amount
	HasAmount bool

	UnderDispute bool
	ChargedBack  bool
}

// NewDeposit builds a deposit operation
func NewDeposit(client ClientID, tx TxID, amount Amount) Operation {
	return Operation{Type: OpTypeDeposit, Client: client, Tx: tx, Amount: amount, HasAmount: true}
}

// NewWithdrawal builds a withdrawal operation
func NewWithdrawal(client ClientID, tx TxID, amount Amount) Operation {
	return Operation{Type: OpTypeWithdrawal, Client: client, Tx: tx, Amount: amount, HasAmount: true}
}

// NewDispute builds a dispute referencing tx
func NewDispute(client ClientID, tx TxID) Operation {
	return Operation{Type: OpTypeDispute, Client: client, Tx: tx}
}

// NewResolve builds a resolve referencing tx
func NewResolve(client ClientID, tx TxID) Operation {
	return Operation{Type: OpTypeResolve, Client: client, Tx: tx}
}

// NewChargeback builds a chargeback referencing tx
func NewChargeback(client ClientID, tx TxID) Operation {
	return Operation{Type: OpTypeChargeback, Client: client, Tx: tx}
}

// Validate ensures the operation is well formed.
// Deposits and withdrawals must carry a non-negative amount; dispute-family
// operations must not.
func (o Operation) Validate() error {
	switch o.Type {
	case OpTypeDeposit, OpTypeWithdrawal:
		if !o.HasAmount {
			return fmt.Errorf("%w: %s tx %d is missing an amount", ErrMalformedOperation, o.Type, o.Tx)
		}
		if o.Amount < 0 {
			return fmt.Errorf("%w: %s tx %d has a negative amount", ErrMalformedOperation, o.Type, o.Tx)
		}
	case OpTypeDispute, OpTypeResolve, OpTypeChargeback:
		if o.HasAmount {
			return fmt.Errorf("%w: %s tx %d must not carry an amount", ErrMalformedOperation, o.Type, o.Tx)
		}
	default:
		return fmt.Errorf("%w: unknown operation type %q", ErrMalformedOperation, o.Type)
	}

	return nil
}

func (o Operation) String() string {
	if o.HasAmount {
		return fmt.Sprintf("%s(client=%d, tx=%d, amount=%s)", o.Type, o.Client, o.Tx, o.Amount)
	}
	return fmt.Sprintf("%s(client=%d, tx=%d)", o.Type, o.Client, o.Tx)
}
