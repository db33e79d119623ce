package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/bidhaus/backend/pkg/enums"
)

// Auction holds the settlement-relevant slice of an auction listing.
type Auction struct {
	ID              uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SellerID        uuid.UUID           `gorm:"column:seller_id;type:uuid;not null;index"`
	Title           string              `gorm:"column:title;not null"`
	Status          enums.AuctionStatus `gorm:"column:status;type:auction_status_enum;not null;default:'open'"`
	WinningBidderID *uuid.UUID          `gorm:"column:winning_bidder_id;type:uuid"`
	WinningBidCents int64               `gorm:"column:winning_bid_cents;not null;default:0"`
	Currency        enums.Currency      `gorm:"column:currency;type:text;not null;default:'USD'"`
	ClosedAt        *time.Time          `gorm:"column:closed_at"`
	PaidAt          *time.Time          `gorm:"column:paid_at"`
	CreatedAt       time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
