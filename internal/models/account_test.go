package models

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func validAccount() *Account {
	return &Account{
		ID:            uuid.New(),
		UserID:        uuid.New(),
		AccountNumber: "0123456789",
		Balance:       decimal.NewFromFloat(100.50),
		Currency:      Naira,
		AccountType:   Savings,
		Status:        Inactive,
	}
}

func TestAccountValidate(t *testing.T) {
	assert.NoError(t, validAccount().Validate())
}

func TestAccountValidateNegativeBalance(t *testing.T) {
	a := validAccount()
	a.Balance = decimal.NewFromFloat(-0.01)

	assert.ErrorIs(t, a.Validate(), ErrInvalidBalance)
}

func TestAccountValidateZeroBalance(t *testing.T) {
	a := validAccount()
	a.Balance = decimal.Zero

	assert.NoError(t, a.Validate())
}

func TestAccountValidateClosedEnums(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Account)
	}{
		{"unknown currency", func(a *Account) { a.Currency = "euro" }},
		{"unknown account type", func(a *Account) { a.AccountType = "checking" }},
		{"unknown status", func(a *Account) { a.Status = "frozen" }},
		{"empty currency", func(a *Account) { a.Currency = "" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a := validAccount()
			tc.mutate(a)
			assert.ErrorIs(t, a.Validate(), ErrInvalidEnumValue)
		})
	}
}

func TestCurrencyValues(t *testing.T) {
	for _, c := range []Currency{Naira, USDollar, PoundSterling} {
		assert.NoError(t, c.Validate())
	}
}
