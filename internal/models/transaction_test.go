package models

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestStatusTransitions(t *testing.T) {
	cases := []struct {
		from, to TransactionStatus
		want     bool
	}{
		{TxnPending, TxnCompleted, true},
		{TxnPending, TxnFailed, true},
		{TxnPending, TxnCancelled, true},
		{TxnPending, TxnPending, false},
		{TxnCompleted, TxnFailed, false},
		{TxnCompleted, TxnPending, false},
		{TxnFailed, TxnCompleted, false},
		{TxnCancelled, TxnCompleted, false},
	}
	for _, c := range cases {
		if got := c.from.CanTransitionTo(c.to); got != c.want {
			t.Errorf("%s -> %s: got %v want %v", c.from, c.to, got, c.want)
		}
	}
}

func TestTransactionValidate(t *testing.T) {
	base := func() Transaction {
		return Transaction{
			Type:          TxnPayment,
			Amount:        decimal.NewFromInt(1),
			Currency:      "USD",
			PaymentMethod: MethodCard,
			Status:        TxnCompleted,
		}
	}

	tx := base()
	if err := tx.Validate(); err != nil {
		t.Fatalf("valid transaction rejected: %v", err)
	}

	tx = base()
	tx.Type = "chargeback"
	if err := tx.Validate(); err == nil {
		t.Fatal("unknown type accepted")
	}

	tx = base()
	tx.PaymentMethod = "crypto"
	if err := tx.Validate(); err == nil {
		t.Fatal("unknown payment method accepted")
	}

	tx = base()
	tx.Status = "done"
	if err := tx.Validate(); err == nil {
		t.Fatal("unknown status accepted")
	}

	tx = base()
	tx.Currency = ""
	if err := tx.Validate(); err == nil {
		t.Fatal("missing currency accepted")
	}

	tx = base()
	lastFour := "42"
	tx.CardLastFour = &lastFour
	if err := tx.Validate(); err == nil {
		t.Fatal("short card_last_four accepted")
	}

	tx = base()
	lastFour = "4242"
	tx.CardLastFour = &lastFour
	if err := tx.Validate(); err != nil {
		t.Fatalf("4-char card_last_four rejected: %v", err)
	}
}
