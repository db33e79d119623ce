package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/bidhaus/backend/pkg/enums"
)

// SellerAccount maps a seller to their processor payee account.
// Rows are never deleted; restricted accounts stay on record.
type SellerAccount struct {
	ID                 uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID             uuid.UUID              `gorm:"column:user_id;type:uuid;not null;uniqueIndex"`
	ProcessorAccountID string                 `gorm:"column:processor_account_id;not null;uniqueIndex"`
	Status             enums.OnboardingStatus `gorm:"column:status;type:onboarding_status_enum;not null;default:'pending'"`
	PayoutsEnabled     bool                   `gorm:"column:payouts_enabled;not null;default:false"`
	LastSyncedAt       *time.Time             `gorm:"column:last_synced_at"`
	CreatedAt          time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}
