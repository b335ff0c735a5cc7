package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/redpay/terminal-api/internal/models"
)

type profilesRepo struct{ pool *pgxpool.Pool }

func (r *profilesRepo) Create(ctx context.Context, userID, businessName string) (models.Profile, error) {
	id := uuid.NewString()
	var p models.Profile
	err := r.pool.QueryRow(ctx,
		`INSERT INTO profiles(id, user_id, business_name, balance)
		 VALUES($1, $2, $3, 0)
		 ON CONFLICT (user_id) DO NOTHING
		 RETURNING id, user_id, business_name, balance, created_at, updated_at`,
		id, userID, businessName,
	).Scan(&p.ID, &p.UserID, &p.BusinessName, &p.Balance, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		// conflict: the profile already exists, return it
		return r.GetByUserID(ctx, userID)
	}
	if err != nil {
		return models.Profile{}, err
	}
	return p, nil
}

func (r *profilesRepo) GetByUserID(ctx context.Context, userID string) (models.Profile, error) {
	var p models.Profile
	err := r.pool.QueryRow(ctx,
		`SELECT id, user_id, business_name, balance, created_at, updated_at
		   FROM profiles
		  WHERE user_id=$1`,
		userID,
	).Scan(&p.ID, &p.UserID, &p.BusinessName, &p.Balance, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

// AddToBalance is a single atomic increment evaluated by the database, not a
// client-side read-modify-write. Concurrent payments serialize on the row.
func (r *profilesRepo) AddToBalance(ctx context.Context, userID string, delta decimal.Decimal) (models.Profile, error) {
	var p models.Profile
	err := r.pool.QueryRow(ctx,
		`UPDATE profiles
		    SET balance = balance + $2,
		        updated_at = now()
		  WHERE user_id = $1
		  RETURNING id, user_id, business_name, balance, created_at, updated_at`,
		userID, delta,
	).Scan(&p.ID, &p.UserID, &p.BusinessName, &p.Balance, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}
