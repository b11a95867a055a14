package entities

import (
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
)

// Currency represents a ledger currency
type Currency string

const (
	CurrencyGold    Currency = "GOLD"
	CurrencyDiamond Currency = "DIAMOND"
)

// LedgerReason represents the reason code of a ledger entry
type LedgerReason string

const (
	LedgerReasonDiamondPurchase LedgerReason = "DIAMOND_PURCHASE"
	LedgerReasonExchangeOut     LedgerReason = "DIAMOND_EXCHANGE_OUT"
	LedgerReasonQuestReward     LedgerReason = "QUEST_REWARD"
	LedgerReasonAdminAdjust     LedgerReason = "ADMIN_ADJUST"
)

// LedgerBalance represents a user's current Gold and Diamond balances.
// Balances never go negative; a debit that would cross zero fails before
// any write is committed.
type LedgerBalance struct {
	UserID    uuid.UUID `json:"userId"`
	Gold      int64     `json:"gold"`
	Diamond   int64     `json:"diamond"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Amount returns the balance for the given currency.
func (b *LedgerBalance) Amount(currency Currency) int64 {
	if currency == CurrencyGold {
		return b.Gold
	}
	return b.Diamond
}

// LedgerEntry is one immutable row of the transaction log. Entries are
// never updated or deleted.
type LedgerEntry struct {
	ID           uuid.UUID    `json:"id"`
	UserID       uuid.UUID    `json:"userId"`
	Currency     Currency     `json:"currency"`
	Amount       int64        `json:"amount"` // signed: credit > 0, debit < 0
	Reason       LedgerReason `json:"reason"`
	ProviderTxID null.String  `json:"providerTxId,omitempty"`
	ChainTxHash  null.String  `json:"chainTxHash,omitempty"`
	CreatedAt    time.Time    `json:"createdAt"`
}
