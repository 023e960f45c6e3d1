package models

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransactionValidateAmount(t *testing.T) {
	tx := &Transaction{
		Amount:          decimal.Zero,
		Type:            Deposit,
		Status:          Pending,
		ReceiverAccount: "0123456789",
	}
	assert.ErrorIs(t, tx.Validate(), ErrInvalidAmount)

	tx.Amount = decimal.NewFromInt(-5)
	assert.ErrorIs(t, tx.Validate(), ErrInvalidAmount)

	tx.Amount = decimal.NewFromFloat(0.01)
	assert.NoError(t, tx.Validate())
}

func TestTransactionValidatePerTypeReferences(t *testing.T) {
	amount := decimal.NewFromInt(10)

	cases := []struct {
		name string
		tx   Transaction
		want error
	}{
		{
			name: "deposit without receiver",
			tx:   Transaction{Amount: amount, Type: Deposit, Status: Pending},
			want: ErrMissingAccount,
		},
		{
			name: "interest without receiver",
			tx:   Transaction{Amount: amount, Type: Interest, Status: Pending},
			want: ErrMissingAccount,
		},
		{
			name: "withdrawal without sender",
			tx:   Transaction{Amount: amount, Type: Withdrawal, Status: Pending},
			want: ErrMissingAccount,
		},
		{
			name: "transfer without receiver",
			tx:   Transaction{Amount: amount, Type: Transfer, Status: Pending, SenderAccount: "0000000001"},
			want: ErrMissingAccount,
		},
		{
			name: "transfer to self",
			tx: Transaction{
				Amount: amount, Type: Transfer, Status: Pending,
				SenderAccount: "0000000001", ReceiverAccount: "0000000001",
			},
			want: ErrSameAccount,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.ErrorIs(t, tc.tx.Validate(), tc.want)
		})
	}
}

func TestTransactionValidateUnknownType(t *testing.T) {
	tx := Transaction{
		Amount:          decimal.NewFromInt(10),
		Type:            "refund",
		Status:          Pending,
		ReceiverAccount: "0123456789",
	}
	assert.ErrorIs(t, tx.Validate(), ErrInvalidEnumValue)
}

func TestTransactionStatusTerminal(t *testing.T) {
	assert.False(t, Pending.Terminal())
	assert.True(t, Completed.Terminal())
	assert.True(t, Failed.Terminal())
}

// The amount rides queue events as JSON; it must survive the round trip.
func TestTransactionAmountSurvivesJSON(t *testing.T) {
	tx := Transaction{
		Amount:          decimal.NewFromFloat(1234.56),
		Type:            Transfer,
		Status:          Completed,
		SenderAccount:   "0000000001",
		ReceiverAccount: "0000000002",
	}

	body, err := json.Marshal(tx)
	require.NoError(t, err)

	var got Transaction
	require.NoError(t, json.Unmarshal(body, &got))
	assert.True(t, got.Amount.Equal(tx.Amount), "amount %s round-tripped as %s", tx.Amount, got.Amount)
}
