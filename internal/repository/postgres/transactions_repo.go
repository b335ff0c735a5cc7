package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/redpay/terminal-api/internal/models"
)

type transactionsRepo struct{ pool *pgxpool.Pool }

const txnColumns = `id, user_id, type, amount, currency, payment_method, card_last_four, status, description, reference_number, created_at, updated_at`

func (r *transactionsRepo) Create(ctx context.Context, tx models.Transaction) (models.Transaction, error) {
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	q := fmt.Sprintf(`
INSERT INTO transactions (
  id, user_id, type, amount, currency, payment_method, card_last_four, status, description, reference_number
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
RETURNING %s`, txnColumns)

	err := r.pool.QueryRow(ctx, q,
		tx.ID, tx.UserID, tx.Type, tx.Amount, tx.Currency, tx.PaymentMethod,
		tx.CardLastFour, tx.Status, tx.Description, tx.ReferenceNumber,
	).Scan(scanTargets(&tx)...)
	return tx, err
}

func (r *transactionsRepo) GetByID(ctx context.Context, id string) (models.Transaction, error) {
	var tx models.Transaction
	err := r.pool.QueryRow(ctx,
		fmt.Sprintf(`SELECT %s FROM transactions WHERE id=$1`, txnColumns), id,
	).Scan(scanTargets(&tx)...)
	return tx, err
}

func (r *transactionsRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]models.Transaction, error) {
	q := fmt.Sprintf(`SELECT %s FROM transactions WHERE user_id=$1 ORDER BY created_at DESC`, txnColumns)
	args := []any{userID}
	if limit > 0 {
		q += ` LIMIT $2 OFFSET $3`
		args = append(args, limit, offset)
	}

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Transaction
	for rows.Next() {
		var tx models.Transaction
		if err := rows.Scan(scanTargets(&tx)...); err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}

func (r *transactionsRepo) UpdateStatus(ctx context.Context, id string, status models.TransactionStatus) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE transactions SET status=$2, updated_at=now() WHERE id=$1`,
		id, status,
	)
	return err
}

func scanTargets(tx *models.Transaction) []any {
	return []any{
		&tx.ID, &tx.UserID, &tx.Type, &tx.Amount, &tx.Currency, &tx.PaymentMethod,
		&tx.CardLastFour, &tx.Status, &tx.Description, &tx.ReferenceNumber,
		&tx.CreatedAt, &tx.UpdatedAt,
	}
}
