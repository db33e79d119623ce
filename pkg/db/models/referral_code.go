package models

import (
	"time"

	"github.com/google/uuid"
)

// ReferralCode is a reward policy row. A code may be claimed by many
// distinct users while active and under its cap.
type ReferralCode struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Code        string    `gorm:"column:code;not null;uniqueIndex"`
	RewardUnits int64     `gorm:"column:reward_units;not null"`
	MaxClaims   *int64    `gorm:"column:max_claims"`
	ClaimCount  int64     `gorm:"column:claim_count;not null;default:0"`
	IsActive    bool      `gorm:"column:is_active;not null;default:true"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
