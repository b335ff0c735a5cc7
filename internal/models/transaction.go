package models

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TxnPayment  TransactionType = "payment"
	TxnRefund   TransactionType = "refund"
	TxnTransfer TransactionType = "transfer"
)

type PaymentMethod string

const (
	MethodCard   PaymentMethod = "card"
	MethodWallet PaymentMethod = "wallet"
	MethodCash   PaymentMethod = "cash"
)

type TransactionStatus string

const (
	TxnPending   TransactionStatus = "pending"
	TxnCompleted TransactionStatus = "completed"
	TxnFailed    TransactionStatus = "failed"
	TxnCancelled TransactionStatus = "cancelled"
)

// CanTransitionTo reports whether the status edge is allowed. Only pending
// transactions move; completed, failed and cancelled are terminal.
func (s TransactionStatus) CanTransitionTo(to TransactionStatus) bool {
	if s != TxnPending {
		return false
	}
	switch to {
	case TxnCompleted, TxnFailed, TxnCancelled:
		return true
	}
	return false
}

type Transaction struct {
	ID              string            `json:"id"`
	UserID          string            `json:"user_id"`
	Type            TransactionType   `json:"type"`
	Amount          decimal.Decimal   `json:"amount"`
	Currency        string            `json:"currency"`
	PaymentMethod   PaymentMethod     `json:"payment_method"`
	CardLastFour    *string           `json:"card_last_four,omitempty"`
	Status          TransactionStatus `json:"status"`
	Description     *string           `json:"description,omitempty"`
	ReferenceNumber string            `json:"reference_number"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

func (t *Transaction) Validate() error {
	switch t.Type {
	case TxnPayment, TxnRefund, TxnTransfer:
	default:
		return errors.New("unknown transaction type")
	}
	switch t.PaymentMethod {
	case MethodCard, MethodWallet, MethodCash:
	default:
		return errors.New("unknown payment method")
	}
	switch t.Status {
	case TxnPending, TxnCompleted, TxnFailed, TxnCancelled:
	default:
		return errors.New("unknown transaction status")
	}
	if t.Currency == "" {
		return errors.New("currency required")
	}
	if t.CardLastFour != nil && len(*t.CardLastFour) != 4 {
		return errors.New("card_last_four must be exactly 4 characters")
	}
	return nil
}
