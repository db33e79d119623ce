package models

import (
	"time"

	"github.com/google/uuid"
)

// ReferralClaim records a user's single referral redemption. The unique
// index on user_id enforces one claim per user across all codes.
type ReferralClaim struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex:uq_referral_claims_user"`
	CodeID    uuid.UUID `gorm:"column:code_id;type:uuid;not null;index"`
	Code      string    `gorm:"column:code;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
