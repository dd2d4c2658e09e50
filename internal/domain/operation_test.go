package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseOpType(t *testing.T) {
	for _, literal := range []string{"deposit", "withdrawal", "dispute", "resolve", "chargeback"} {
		got, err := ParseOpType(literal)
		assert.NoError(t, err)
		assert.Equal(t, OpType(literal), got)
	}

	got, err := ParseOpType(" Deposit ")
	assert.NoError(t, err)
	assert.Equal(t, OpTypeDeposit, got)

	_, err = ParseOpType("transfer")
	assert.ErrorIs(t, err, ErrMalformedOperation)
}

func TestOperation_Validate(t *testing.T) {
	tests := []struct {
		name    string
		op      Operation
		wantErr bool
	}{
		{
			name: "Deposit with amount should pass",
			op:   NewDeposit(1, 1, 10000),
		},
		{
			name: "Withdrawal with zero amount should pass",
			op:   NewWithdrawal(1, 2, 0),
		},
		{
			name:    "Deposit without amount should fail",
			op:      Operation{Type: OpTypeDeposit, Client: 1, Tx: 1},
			wantErr: true,
		},
		{
			name:    "Withdrawal with negative amount should fail",
			op:      Operation{Type: OpTypeWithdrawal, Client: 1, Tx: 1, Amount: -5, HasAmount: true},
			wantErr: true,
		},
		{
			name: "Dispute without amount should pass",
			op:   NewDispute(1, 1),
		},
		{
			name:    "Chargeback with amount should fail",
			op:      Operation{Type: OpTypeChargeback, Client: 1, Tx: 1, Amount: 5, HasAmount: true},
			wantErr: true,
		},
		{
			name:    "Unknown type should fail",
			op:      Operation{Type: OpType("transfer"), Client: 1, Tx: 1},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.op.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrMalformedOperation)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestOperation_String(t *testing.T) {
	assert.Equal(t, "deposit(client=1, tx=7, amount=2.5)", NewDeposit(1, 7, 25000).String())
	assert.Equal(t, "resolve(client=3, tx=9)", NewResolve(3, 9).String())
}
