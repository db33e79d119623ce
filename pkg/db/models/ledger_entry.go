package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/bidhaus/backend/pkg/enums"
)

// LedgerEntry records an immutable BidCoin balance mutation.
type LedgerEntry struct {
	ID               uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID           uuid.UUID             `gorm:"column:user_id;type:uuid;not null;index"`
	Type             enums.LedgerEntryType `gorm:"column:type;type:ledger_entry_type_enum;not null"`
	AmountUnits      int64                 `gorm:"column:amount_units;not null"`
	ResultingBalance int64                 `gorm:"column:resulting_balance;not null"`
	ReferenceID      *string               `gorm:"column:reference_id"`
	ReferenceTable   *string               `gorm:"column:reference_table"`
	Metadata         json.RawMessage       `gorm:"column:metadata;type:jsonb"`
	CreatedAt        time.Time             `gorm:"column:created_at;autoCreateTime"`
}
