package enums

import "fmt"

// PaymentIntentStatus maps to the payment_intent_status_enum enum in Postgres.
type PaymentIntentStatus string

const (
	// Created is never persisted by the current flow: the processor intent
	// exists before the mirror row is inserted, so rows enter the table at
	// RequiresConfirmation. The value stays in the enum for imports of
	// externally created intents and for the transition table below.
	PaymentIntentStatusCreated              PaymentIntentStatus = "created"
	PaymentIntentStatusRequiresConfirmation PaymentIntentStatus = "requires_confirmation"
	PaymentIntentStatusSucceeded            PaymentIntentStatus = "succeeded"
	PaymentIntentStatusFailed               PaymentIntentStatus = "failed"
	PaymentIntentStatusRefunded             PaymentIntentStatus = "refunded"
)

var validPaymentIntentStatuses = []PaymentIntentStatus{
	PaymentIntentStatusCreated,
	PaymentIntentStatusRequiresConfirmation,
	PaymentIntentStatusSucceeded,
	PaymentIntentStatusFailed,
	PaymentIntentStatusRefunded,
}

// String implements fmt.Stringer.
func (s PaymentIntentStatus) String() string {
	return string(s)
}

// IsValid reports whether the value matches the canonical status enum.
func (s PaymentIntentStatus) IsValid() bool {
	for _, candidate := range validPaymentIntentStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further forward transitions are allowed.
// Refunds move succeeded intents to refunded, so succeeded is not terminal.
func (s PaymentIntentStatus) IsTerminal() bool {
	return s == PaymentIntentStatusFailed || s == PaymentIntentStatusRefunded
}

// CanTransitionTo reports whether the state machine allows moving to next.
func (s PaymentIntentStatus) CanTransitionTo(next PaymentIntentStatus) bool {
	switch s {
	case PaymentIntentStatusCreated:
		return next == PaymentIntentStatusRequiresConfirmation ||
			next == PaymentIntentStatusSucceeded ||
			next == PaymentIntentStatusFailed
	case PaymentIntentStatusRequiresConfirmation:
		return next == PaymentIntentStatusSucceeded || next == PaymentIntentStatusFailed
	case PaymentIntentStatusSucceeded:
		return next == PaymentIntentStatusRefunded
	default:
		return false
	}
}

// ParsePaymentIntentStatus converts raw input into PaymentIntentStatus.
func ParsePaymentIntentStatus(value string) (PaymentIntentStatus, error) {
	for _, candidate := range validPaymentIntentStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment intent status %q", value)
}
