package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/bidhaus/backend/pkg/enums"
)

// PaymentIntent mirrors the processor-side intent for an auction settlement.
// The processor remains the source of truth; this row tracks the last
// observed state plus the auction linkage.
type PaymentIntent struct {
	ID                uuid.UUID                 `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	AuctionID         uuid.UUID                 `gorm:"column:auction_id;type:uuid;not null;index"`
	BuyerID           uuid.UUID                 `gorm:"column:buyer_id;type:uuid;not null"`
	SellerID          uuid.UUID                 `gorm:"column:seller_id;type:uuid;not null"`
	ProcessorIntentID string                    `gorm:"column:processor_intent_id;not null;uniqueIndex"`
	Status            enums.PaymentIntentStatus `gorm:"column:status;type:payment_intent_status_enum;not null;default:'created'"`
	AmountCents       int64                     `gorm:"column:amount_cents;not null"`
	Currency          enums.Currency            `gorm:"column:currency;type:text;not null;default:'USD'"`
	RefundReason      *string                   `gorm:"column:refund_reason"`
	FailureReason     *string                   `gorm:"column:failure_reason"`
	ExpiresAt         time.Time                 `gorm:"column:expires_at;not null"`
	CreatedAt         time.Time                 `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time                 `gorm:"column:updated_at;autoUpdateTime"`
}
