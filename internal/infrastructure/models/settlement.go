package models

import (
	"time"

	"github.com/google/uuid"
)

type SettlementRecord struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()"`
	ProviderTxID     string    `gorm:"type:varchar(255);not null;uniqueIndex"`
	UserID           uuid.UUID `gorm:"type:uuid;not null;index"`
	ProviderWalletID string    `gorm:"type:varchar(255);not null"`
	Direction        string    `gorm:"type:varchar(20);not null"`
	StablecoinAmount string    `gorm:"type:varchar(100);not null"`
	DiamondAmount    int64     `gorm:"not null"`
	Status           string    `gorm:"type:varchar(20);not null;index"`
	ChainTxHash      *string   `gorm:"type:varchar(255);index"`
	ErrorReason      *string   `gorm:"type:varchar(500)"`
	CreatedAt        time.Time `gorm:"index"`
	UpdatedAt        time.Time
}

type PurchaseRecord struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()"`
	UserID           uuid.UUID `gorm:"type:uuid;not null;index"`
	SettlementID     uuid.UUID `gorm:"type:uuid;not null;index"`
	ProviderTxID     string    `gorm:"type:varchar(255);not null"`
	DiamondAmount    int64     `gorm:"not null"`
	StablecoinAmount string    `gorm:"type:varchar(100);not null"`
	Status           string    `gorm:"type:varchar(20);not null"`
	ChainTxHash      *string   `gorm:"type:varchar(255)"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
