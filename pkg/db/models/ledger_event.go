package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/vendorledger-backend/pkg/enums"
)

// LedgerEvent is an append-only audit row written alongside every vendor
// balance mutation.
type LedgerEvent struct {
	ID        uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	VendorID  uuid.UUID             `gorm:"column:vendor_id;type:uuid;not null"`
	Type      enums.LedgerEventType `gorm:"column:type;type:text;not null"`
	Amount    decimal.Decimal       `gorm:"column:amount;type:numeric(14,2);not null"`
	Reference string                `gorm:"column:reference;not null"`
	Metadata  json.RawMessage       `gorm:"column:metadata;type:jsonb"`
	CreatedAt time.Time             `gorm:"column:created_at;autoCreateTime"`
}

func (LedgerEvent) TableName() string { return "ledger_events" }
