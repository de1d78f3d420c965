package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/vendorledger-backend/pkg/enums"
)

// Notification stores in-app notification payloads scoped to vendors.
type Notification struct {
	ID        uuid.UUID              `gorm:"type:uuid;primaryKey"`
	VendorID  uuid.UUID              `gorm:"type:uuid;not null"`
	Type      enums.NotificationType `gorm:"type:text;not null"`
	Title     string                 `gorm:"type:text;not null"`
	Message   string                 `gorm:"type:text;not null"`
	Link      *string                `gorm:"type:text"`
	ReadAt    *time.Time             `gorm:"type:timestamptz"`
	CreatedAt time.Time              `gorm:"type:timestamptz;autoCreateTime"`
}

func (Notification) TableName() string { return "notifications" }
