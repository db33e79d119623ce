package models

import (
	"time"

	"github.com/google/uuid"
)

// AccountBalance holds the current BidCoin balance for a user.
// One row per user; mutations go through the ledger so the balance
// always equals the sum of the user's ledger entry deltas.
type AccountBalance struct {
	UserID       uuid.UUID `gorm:"column:user_id;type:uuid;primaryKey"`
	BalanceUnits int64     `gorm:"column:balance_units;not null;default:0"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
