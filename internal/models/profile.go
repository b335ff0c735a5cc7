package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Profile carries the merchant-facing attributes of a user. Balance is a
// cached aggregate: the sum of the user's completed payment amounts. It may
// go negative; no currency conversion is applied.
type Profile struct {
	ID           string          `json:"id"`
	UserID       string          `json:"user_id"`
	BusinessName string          `json:"business_name"`
	Balance      decimal.Decimal `json:"balance"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}
