// Package events publishes transaction lifecycle events to Kafka so that
// downstream consumers (reporting, reconciliation) can follow the ledger.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"

	"github.com/redpay/terminal-api/internal/models"
)

type transactionEvent struct {
	ID              string          `json:"id"`
	UserID          string          `json:"user_id"`
	Type            string          `json:"type"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	Status          string          `json:"status"`
	ReferenceNumber string          `json:"reference_number"`
	OccurredAt      time.Time       `json:"occurred_at"`
}

type Publisher struct {
	writer *kafka.Writer
}

func NewPublisher(addr, topic string) *Publisher {
	return &Publisher{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(addr),
			Topic:    topic,
			Balancer: &kafka.LeastBytes{},
		},
	}
}

// TransactionChanged publishes the current state of the transaction, keyed by
// owner so one user's events stay ordered within a partition.
func (p *Publisher) TransactionChanged(ctx context.Context, tx models.Transaction) error {
	b, err := json.Marshal(transactionEvent{
		ID:              tx.ID,
		UserID:          tx.UserID,
		Type:            string(tx.Type),
		Amount:          tx.Amount,
		Currency:        tx.Currency,
		Status:          string(tx.Status),
		ReferenceNumber: tx.ReferenceNumber,
		OccurredAt:      time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(tx.UserID),
		Value: b,
	})
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}
