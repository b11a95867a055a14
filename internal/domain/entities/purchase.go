package entities

import (
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
)

// PurchaseStatus mirrors the linked settlement's status for user-facing
// history queries.
type PurchaseStatus string

const (
	PurchaseStatusPending   PurchaseStatus = "PENDING"
	PurchaseStatusCompleted PurchaseStatus = "COMPLETED"
	PurchaseStatusFailed    PurchaseStatus = "FAILED"
)

// PurchaseRecord is the denormalized purchase-history view of a
// settlement: what the user bought, for how much, and where it stands.
type PurchaseRecord struct {
	ID               uuid.UUID      `json:"id"`
	UserID           uuid.UUID      `json:"userId"`
	SettlementID     uuid.UUID      `json:"settlementId"`
	ProviderTxID     string         `json:"providerTxId"`
	DiamondAmount    int64          `json:"diamondAmount"`
	StablecoinAmount string         `json:"stablecoinAmount"`
	Status           PurchaseStatus `json:"status"`
	ChainTxHash      null.String    `json:"chainTxHash,omitempty"`
	CreatedAt        time.Time      `json:"createdAt"`
	UpdatedAt        time.Time      `json:"updatedAt"`
}

// PurchaseDiamondInput represents input for initiating a purchase
type PurchaseDiamondInput struct {
	DiamondAmount    int64  `json:"diamondAmount" binding:"required"`
	StablecoinAmount string `json:"stablecoinAmount" binding:"required"`
}

// PurchaseDiamondResponse represents the purchase initiation result
type PurchaseDiamondResponse struct {
	ProviderTxID     string         `json:"providerTxId"`
	Status           PurchaseStatus `json:"status"`
	DiamondAmount    int64          `json:"diamondAmount"`
	StablecoinAmount string         `json:"stablecoinAmount"`
	ChainTxHash      string         `json:"chainTxHash,omitempty"`
}

// ExchangeInput represents input for a Diamond to stablecoin exchange
type ExchangeInput struct {
	DiamondAmount int64 `json:"diamondAmount" binding:"required"`
}

// ExchangeResponse represents the synchronous exchange result
type ExchangeResponse struct {
	StablecoinAmount string `json:"stablecoinAmount"`
	ProviderTxID     string `json:"providerTxId"`
}
