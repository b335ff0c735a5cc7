package repository

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/redpay/terminal-api/internal/models"
)

type Users interface {
	Create(ctx context.Context, username, email, passwordHash, role string) (models.User, error)
	GetByID(ctx context.Context, id string) (models.User, error)
	GetByEmail(ctx context.Context, email string) (models.User, error)
	List(ctx context.Context) ([]models.User, error)
}

type Profiles interface {
	Create(ctx context.Context, userID, businessName string) (models.Profile, error)
	GetByUserID(ctx context.Context, userID string) (models.Profile, error)

	// AddToBalance applies the delta as a single server-side increment and
	// returns the resulting profile. Concurrent calls serialize at the row,
	// so no update is ever lost to a stale client-side read.
	AddToBalance(ctx context.Context, userID string, delta decimal.Decimal) (models.Profile, error)
}

type Transactions interface {
	// Create inserts the row and returns it with server-assigned timestamps.
	Create(ctx context.Context, tx models.Transaction) (models.Transaction, error)
	GetByID(ctx context.Context, id string) (models.Transaction, error)

	// ListByUser returns the user's rows ordered by created_at descending.
	// limit <= 0 means no limit.
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]models.Transaction, error)
	UpdateStatus(ctx context.Context, id string, status models.TransactionStatus) error
}

type AuditLogs interface {
	Create(ctx context.Context, l models.AuditLog) error
}
