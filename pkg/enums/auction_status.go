package enums

import "fmt"

// AuctionStatus maps to the auction_status_enum enum in Postgres.
type AuctionStatus string

const (
	AuctionStatusOpen            AuctionStatus = "open"
	AuctionStatusClosed          AuctionStatus = "closed"
	AuctionStatusAwaitingPayment AuctionStatus = "awaiting_payment"
	AuctionStatusPaid            AuctionStatus = "paid"
	AuctionStatusExpired         AuctionStatus = "expired"
)

var validAuctionStatuses = []AuctionStatus{
	AuctionStatusOpen,
	AuctionStatusClosed,
	AuctionStatusAwaitingPayment,
	AuctionStatusPaid,
	AuctionStatusExpired,
}

// String implements fmt.Stringer.
func (s AuctionStatus) String() string {
	return string(s)
}

// IsValid reports whether the value matches the canonical auction enum.
func (s AuctionStatus) IsValid() bool {
	for _, candidate := range validAuctionStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseAuctionStatus converts raw input into AuctionStatus.
func ParseAuctionStatus(value string) (AuctionStatus, error) {
	for _, candidate := range validAuctionStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid auction status %q", value)
}
