package models

import (
	"time"

	"github.com/google/uuid"
)

type LedgerBalance struct {
	UserID    uuid.UUID `gorm:"type:uuid;primaryKey"`
	Gold      int64     `gorm:"not null;default:0"`
	Diamond   int64     `gorm:"not null;default:0"`
	UpdatedAt time.Time
}

// LedgerEntry rows are append-only; there is no update or delete path.
type LedgerEntry struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()"`
	UserID       uuid.UUID `gorm:"type:uuid;not null;index"`
	Currency     string    `gorm:"type:varchar(20);not null"`
	Amount       int64     `gorm:"not null"`
	Reason       string    `gorm:"type:varchar(50);not null"`
	ProviderTxID *string   `gorm:"type:varchar(255);index"`
	ChainTxHash  *string   `gorm:"type:varchar(255)"`
	CreatedAt    time.Time
}
