package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CustodialWallet struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()"`
	UserID           uuid.UUID `gorm:"type:uuid;not null;uniqueIndex"`
	ProviderWalletID string    `gorm:"type:varchar(255);not null;index"`
	Address          string    `gorm:"type:varchar(255);not null"`
	Chain            string    `gorm:"type:varchar(50);not null"`
	State            string    `gorm:"type:varchar(50);not null"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
	DeletedAt        gorm.DeletedAt `gorm:"index"`
}

type LinkedWallet struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index"`
	Address   string    `gorm:"type:varchar(255);not null"`
	Chain     string    `gorm:"type:varchar(50);not null"`
	IsPrimary bool      `gorm:"default:false"`
	CreatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}
