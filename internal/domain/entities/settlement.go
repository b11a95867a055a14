package entities

import (
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
)

// SettlementStatus represents the state of a settlement record.
// PENDING -> COMPLETE and PENDING -> FAILED are the only transitions;
// terminal states absorb any further event for the same provider tx id.
type SettlementStatus string

const (
	SettlementStatusPending  SettlementStatus = "PENDING"
	SettlementStatusComplete SettlementStatus = "COMPLETE"
	SettlementStatusFailed   SettlementStatus = "FAILED"
)

// IsTerminal reports whether the status absorbs further events.
func (s SettlementStatus) IsTerminal() bool {
	return s == SettlementStatusComplete || s == SettlementStatusFailed
}

// SettlementDirection represents the direction of the asset movement
type SettlementDirection string

const (
	SettlementDirectionPurchase    SettlementDirection = "PURCHASE"
	SettlementDirectionExchangeOut SettlementDirection = "EXCHANGE_OUT"
)

// SettlementRecord tracks one provider transfer from submission to its
// terminal outcome. The uniqueness of ProviderTxID is the idempotency
// key that makes dual-channel settlement safe.
type SettlementRecord struct {
	ID               uuid.UUID           `json:"id"`
	ProviderTxID     string              `json:"providerTxId"`
	UserID           uuid.UUID           `json:"userId"`
	ProviderWalletID string              `json:"providerWalletId"`
	Direction        SettlementDirection `json:"direction"`
	StablecoinAmount string              `json:"stablecoinAmount"`
	DiamondAmount    int64               `json:"diamondAmount"`
	Status           SettlementStatus    `json:"status"`
	ChainTxHash      null.String         `json:"chainTxHash,omitempty"`
	ErrorReason      null.String         `json:"errorReason,omitempty"`
	CreatedAt        time.Time           `json:"createdAt"`
	UpdatedAt        time.Time           `json:"updatedAt"`
}

// SettlementChannel identifies which ingress path delivered an event
type SettlementChannel string

const (
	SettlementChannelWebhook   SettlementChannel = "webhook"
	SettlementChannelChainPoll SettlementChannel = "chain_poll"
	SettlementChannelReconcile SettlementChannel = "reconcile"
	SettlementChannelInitiator SettlementChannel = "initiator"
)

// PurchaseConfirmedEvent is the on-chain purchase confirmation emitted
// by the purchase contract, discovered by log polling.
type PurchaseConfirmedEvent struct {
	Buyer            string
	ProviderTxID     string
	DiamondAmount    int64
	StablecoinAmount string
	BlockNumber      uint64
	TxHash           string
}
