package entities

import (
	"time"

	"github.com/google/uuid"
)

// WalletState represents the provider-reported lifecycle state of a
// custodial wallet. Only LIVE is interpreted; other provider states are
// stored opaquely.
type WalletState string

const (
	WalletStateLive WalletState = "LIVE"
)

// CustodialWallet represents a user's provider-hosted wallet. Each user
// has at most one; creation is idempotent.
type CustodialWallet struct {
	ID               uuid.UUID   `json:"id"`
	UserID           uuid.UUID   `json:"userId"`
	ProviderWalletID string      `json:"providerWalletId"`
	Address          string      `json:"address"`
	Chain            string      `json:"chain"`
	State            WalletState `json:"state"`
	CreatedAt        time.Time   `json:"createdAt"`
	UpdatedAt        time.Time   `json:"updatedAt"`
}

// LinkedWallet represents an externally-held wallet a user attached to
// their account. The primary linked wallet is the exchange fallback
// destination when no custodial wallet exists.
type LinkedWallet struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"userId"`
	Address   string    `json:"address"`
	Chain     string    `json:"chain"`
	IsPrimary bool      `json:"isPrimary"`
	CreatedAt time.Time `json:"createdAt"`
}

// BalanceCache is the last known stablecoin balance for a user's
// custodial wallet. It is a cache of the provider's authoritative value,
// served when the live read fails.
type BalanceCache struct {
	UserID           uuid.UUID `json:"userId"`
	ProviderWalletID string    `json:"providerWalletId"`
	Balance          string    `json:"balance"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// EnsureWalletInput represents input for wallet provisioning. Chain is
// optional; empty selects the configured default chain.
type EnsureWalletInput struct {
	Chain string `json:"chain"`
}

// LinkWalletInput represents input for linking an external wallet
type LinkWalletInput struct {
	Address   string `json:"address" binding:"required"`
	Chain     string `json:"chain" binding:"required"`
	IsPrimary bool   `json:"isPrimary"`
}
