package outbox

import "github.com/google/uuid"

// PaymentSucceededData is the payload for payment.succeeded events.
type PaymentSucceededData struct {
	PaymentIntentID   uuid.UUID `json:"paymentIntentId"`
	ProcessorIntentID string    `json:"processorIntentId"`
	AuctionID         uuid.UUID `json:"auctionId"`
	BuyerID           uuid.UUID `json:"buyerId"`
	SellerID          uuid.UUID `json:"sellerId"`
	AmountCents       int64     `json:"amountCents"`
	Currency          string    `json:"currency"`
}

// PaymentRefundedData is the payload for payment.refunded events.
type PaymentRefundedData struct {
	PaymentIntentID   uuid.UUID `json:"paymentIntentId"`
	ProcessorIntentID string    `json:"processorIntentId"`
	AuctionID         uuid.UUID `json:"auctionId"`
	AmountCents       int64     `json:"amountCents"`
	Reason            string    `json:"reason,omitempty"`
}

// PaymentFailedData is the payload for payment.failed events.
type PaymentFailedData struct {
	PaymentIntentID   uuid.UUID `json:"paymentIntentId"`
	ProcessorIntentID string    `json:"processorIntentId"`
	AuctionID         uuid.UUID `json:"auctionId"`
	Reason            string    `json:"reason,omitempty"`
}
