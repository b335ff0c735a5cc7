package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/redpay/terminal-api/internal/events"
	"github.com/redpay/terminal-api/internal/metrics"
	"github.com/redpay/terminal-api/internal/models"
	"github.com/redpay/terminal-api/internal/notify"
	repo "github.com/redpay/terminal-api/internal/repository"
	"github.com/redpay/terminal-api/internal/worker"
)

var (
	ErrAuthRequired      = errors.New("authentication required")
	ErrInvalidTransition = errors.New("invalid status transition")
)

const paymentCurrency = "USD"

// CreateTransactionInput is the transaction payload without identifier and
// timestamps; those are assigned by the store.
type CreateTransactionInput struct {
	Type          models.TransactionType
	Amount        decimal.Decimal
	Currency      string
	PaymentMethod models.PaymentMethod
	CardLastFour  *string
	Status        models.TransactionStatus
	Description   *string
}

// Ledger creates transaction records, keeps a per-user ordered list of them
// and keeps the cached profile balance consistent with completed payments.
// The cached list is newest-first; a successful create prepends without
// re-sorting.
type Ledger struct {
	trx      repo.Transactions
	profiles repo.Profiles
	audit    repo.AuditLogs
	notifier notify.Notifier
	events   *events.Publisher // optional
	wp       *worker.Pool
	log      *slog.Logger

	mu     sync.RWMutex
	byUser map[string]*userLedger
}

type userLedger struct {
	txs     []models.Transaction
	loading bool
}

func NewLedger(trx repo.Transactions, profiles repo.Profiles, audit repo.AuditLogs, notifier notify.Notifier, ev *events.Publisher, wp *worker.Pool, log *slog.Logger) *Ledger {
	return &Ledger{
		trx:      trx,
		profiles: profiles,
		audit:    audit,
		notifier: notifier,
		events:   ev,
		wp:       wp,
		log:      log,
		byUser:   make(map[string]*userLedger),
	}
}

const refAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// NewReferenceNumber builds the human-facing transaction label:
// TXN-<epoch millis>-<9 uppercase alphanumerics>. It is a display label, not
// a key; lookups go through the store-assigned id.
func NewReferenceNumber() string {
	buf := make([]byte, 9)
	for i := range buf {
		buf[i] = refAlphabet[rand.IntN(len(refAlphabet))]
	}
	return fmt.Sprintf("TXN-%d-%s", time.Now().UnixMilli(), buf)
}

// Fetch loads the user's transactions newest-first and replaces the cached
// list. With no identity it is a silent no-op. On store failure the cache is
// left unchanged and a destructive notification is raised.
func (s *Ledger) Fetch(ctx context.Context, userID string) ([]models.Transaction, error) {
	if userID == "" {
		return nil, nil
	}

	s.setLoading(userID, true)
	defer s.setLoading(userID, false)

	rows, err := s.trx.ListByUser(ctx, userID, 0, 0)
	if err != nil {
		s.notifier.Notify(notify.SeverityDestructive, "Error", "Failed to load transactions")
		return nil, fmt.Errorf("fetch transactions: %w", err)
	}

	s.mu.Lock()
	s.ledgerFor(userID).txs = rows
	s.mu.Unlock()

	return append([]models.Transaction(nil), rows...), nil
}

// Create inserts a transaction for the user and prepends it to the cached
// list. A completed payment additionally applies its amount to the profile
// balance. With no identity it fails before any store call.
func (s *Ledger) Create(ctx context.Context, userID string, in CreateTransactionInput) (models.Transaction, error) {
	tx, err := s.insert(ctx, userID, in)
	if err != nil {
		return models.Transaction{}, err
	}

	if tx.Status == models.TxnCompleted && tx.Type == models.TxnPayment {
		if _, err := s.ApplyBalance(ctx, userID, tx.Amount); err != nil {
			// The transaction row already exists; surface the divergence
			// instead of logging it away.
			s.log.Error("apply balance", "transaction_id", tx.ID, "err", err)
			s.auditAsync(tx.ID, "balance_apply_failed", err.Error())
			s.notifier.Notify(notify.SeverityDestructive, "Balance Update Failed",
				fmt.Sprintf("Transaction %s completed but the balance was not updated", tx.ReferenceNumber))
			return tx, nil
		}
	}

	s.notifyProcessed(tx)
	return tx, nil
}

// ProcessPayment runs the payment pipeline: insert pending, apply the amount
// to the balance, then mark completed. If the balance increment fails the
// payment is marked failed and the operator is notified. Amount validation
// (> 0) belongs to the caller layer, not here.
func (s *Ledger) ProcessPayment(ctx context.Context, userID string, amount decimal.Decimal, method models.PaymentMethod, description, cardLastFour string) (models.Transaction, error) {
	in := CreateTransactionInput{
		Type:          models.TxnPayment,
		Amount:        amount,
		Currency:      paymentCurrency,
		PaymentMethod: method,
		Status:        models.TxnPending,
	}
	if description != "" {
		in.Description = &description
	}
	if cardLastFour != "" {
		in.CardLastFour = &cardLastFour
	}

	tx, err := s.insert(ctx, userID, in)
	if err != nil {
		return models.Transaction{}, err
	}

	if _, err := s.ApplyBalance(ctx, userID, amount); err != nil {
		metrics.TransactionsFailed.Inc()
		if terr := s.transition(ctx, &tx, models.TxnFailed); terr != nil {
			s.log.Error("mark payment failed", "transaction_id", tx.ID, "err", terr)
		}
		s.notifier.Notify(notify.SeverityDestructive, "Payment Failed",
			fmt.Sprintf("Payment %s was not applied to the balance", tx.ReferenceNumber))
		return tx, fmt.Errorf("apply balance: %w", err)
	}

	if err := s.transition(ctx, &tx, models.TxnCompleted); err != nil {
		return tx, err
	}
	s.notifyProcessed(tx)
	return tx, nil
}

// ApplyBalance adds amount to the user's cached balance as a single atomic
// increment evaluated by the store. With no identity it is a no-op.
func (s *Ledger) ApplyBalance(ctx context.Context, userID string, amount decimal.Decimal) (models.Profile, error) {
	if userID == "" {
		return models.Profile{}, nil
	}
	p, err := s.profiles.AddToBalance(ctx, userID, amount)
	if err != nil {
		return models.Profile{}, fmt.Errorf("update balance: %w", err)
	}
	return p, nil
}

func (s *Ledger) GetByID(ctx context.Context, id string) (models.Transaction, error) {
	return s.trx.GetByID(ctx, id)
}

func (s *Ledger) ListByUser(ctx context.Context, userID string, limit, offset int) ([]models.Transaction, error) {
	return s.trx.ListByUser(ctx, userID, limit, offset)
}

// Transactions returns a snapshot of the cached ledger for the user.
func (s *Ledger) Transactions(userID string) []models.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if l, ok := s.byUser[userID]; ok {
		return append([]models.Transaction(nil), l.txs...)
	}
	return nil
}

// Loading reports whether a fetch for the user is in flight.
func (s *Ledger) Loading(userID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if l, ok := s.byUser[userID]; ok {
		return l.loading
	}
	return false
}

// ----------------- internals -----------------

func (s *Ledger) insert(ctx context.Context, userID string, in CreateTransactionInput) (models.Transaction, error) {
	if userID == "" {
		s.notifier.Notify(notify.SeverityDestructive, "Authentication Required", "Please sign in to process transactions")
		return models.Transaction{}, ErrAuthRequired
	}

	tx := models.Transaction{
		UserID:          userID,
		Type:            in.Type,
		Amount:          in.Amount,
		Currency:        in.Currency,
		PaymentMethod:   in.PaymentMethod,
		CardLastFour:    in.CardLastFour,
		Status:          in.Status,
		Description:     in.Description,
		ReferenceNumber: NewReferenceNumber(),
	}
	if err := tx.Validate(); err != nil {
		s.notifier.Notify(notify.SeverityDestructive, "Transaction Failed", err.Error())
		return models.Transaction{}, err
	}

	created, err := s.trx.Create(ctx, tx)
	if err != nil {
		s.notifier.Notify(notify.SeverityDestructive, "Transaction Failed", err.Error())
		return models.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}

	s.mu.Lock()
	l := s.ledgerFor(userID)
	l.txs = append([]models.Transaction{created}, l.txs...)
	s.mu.Unlock()

	metrics.TransactionsTotal.WithLabelValues(string(created.Type)).Inc()
	s.auditAsync(created.ID, "created", string(created.Type)+" created")
	s.publishAsync(created)
	return created, nil
}

func (s *Ledger) transition(ctx context.Context, tx *models.Transaction, to models.TransactionStatus) error {
	if !tx.Status.CanTransitionTo(to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, tx.Status, to)
	}
	if err := s.trx.UpdateStatus(ctx, tx.ID, to); err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	from := tx.Status
	tx.Status = to
	tx.UpdatedAt = time.Now()

	s.mu.Lock()
	l := s.ledgerFor(tx.UserID)
	for i := range l.txs {
		if l.txs[i].ID == tx.ID {
			l.txs[i] = *tx
			break
		}
	}
	s.mu.Unlock()

	s.auditAsync(tx.ID, "status_change", fmt.Sprintf("%s -> %s", from, to))
	s.publishAsync(*tx)
	return nil
}

// ledgerFor must be called with s.mu held.
func (s *Ledger) ledgerFor(userID string) *userLedger {
	l, ok := s.byUser[userID]
	if !ok {
		l = &userLedger{}
		s.byUser[userID] = l
	}
	return l
}

func (s *Ledger) setLoading(userID string, v bool) {
	s.mu.Lock()
	s.ledgerFor(userID).loading = v
	s.mu.Unlock()
}

func (s *Ledger) notifyProcessed(tx models.Transaction) {
	label := "Transaction"
	if tx.Type == models.TxnPayment {
		label = "Payment"
	}
	s.notifier.Notify(notify.SeverityNormal, "Transaction Processed",
		fmt.Sprintf("%s of $%s processed successfully", label, tx.Amount.StringFixed(2)))
}

func (s *Ledger) auditAsync(entityID, action, message string) {
	s.wp.Submit(func() {
		var details map[string]any
		if message != "" {
			details = map[string]any{"message": message}
		}
		id := entityID
		err := s.audit.Create(context.Background(), models.AuditLog{
			EntityType: "transaction",
			EntityID:   &id,
			Action:     action,
			Details:    details,
		})
		if err != nil {
			s.log.Error("audit write", "err", err)
		}
	})
}

func (s *Ledger) publishAsync(tx models.Transaction) {
	if s.events == nil {
		return
	}
	s.wp.Submit(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.events.TransactionChanged(ctx, tx); err != nil {
			s.log.Error("publish transaction event", "err", err)
		}
	})
}
