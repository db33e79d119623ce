package enums

import "fmt"

// LedgerEntryType maps to the ledger_entry_type_enum enum in Postgres.
type LedgerEntryType string

const (
	LedgerEntryTypeReferralBonus LedgerEntryType = "referral_bonus"
	LedgerEntryTypePromoGrant    LedgerEntryType = "promo_grant"
	LedgerEntryTypeAdminGrant    LedgerEntryType = "admin_grant"
	LedgerEntryTypeBidRefund     LedgerEntryType = "bid_refund"
	LedgerEntryTypeBidFee        LedgerEntryType = "bid_fee"
	LedgerEntryTypeListingFee    LedgerEntryType = "listing_fee"
	LedgerEntryTypeFeatureBoost  LedgerEntryType = "feature_boost"
)

var validLedgerEntryTypes = []LedgerEntryType{
	LedgerEntryTypeReferralBonus,
	LedgerEntryTypePromoGrant,
	LedgerEntryTypeAdminGrant,
	LedgerEntryTypeBidRefund,
	LedgerEntryTypeBidFee,
	LedgerEntryTypeListingFee,
	LedgerEntryTypeFeatureBoost,
}

var earnLedgerEntryTypes = []LedgerEntryType{
	LedgerEntryTypeReferralBonus,
	LedgerEntryTypePromoGrant,
	LedgerEntryTypeAdminGrant,
	LedgerEntryTypeBidRefund,
}

var spendLedgerEntryTypes = []LedgerEntryType{
	LedgerEntryTypeBidFee,
	LedgerEntryTypeListingFee,
	LedgerEntryTypeFeatureBoost,
}

// String implements fmt.Stringer.
func (t LedgerEntryType) String() string {
	return string(t)
}

// IsValid reports whether the value matches the canonical ledger entry enum.
func (t LedgerEntryType) IsValid() bool {
	for _, candidate := range validLedgerEntryTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// IsEarn reports whether the entry type credits a balance.
func (t LedgerEntryType) IsEarn() bool {
	for _, candidate := range earnLedgerEntryTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// IsSpend reports whether the entry type debits a balance.
func (t LedgerEntryType) IsSpend() bool {
	for _, candidate := range spendLedgerEntryTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseLedgerEntryType converts raw input into LedgerEntryType.
func ParseLedgerEntryType(value string) (LedgerEntryType, error) {
	for _, candidate := range validLedgerEntryTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid ledger entry type %q", value)
}
