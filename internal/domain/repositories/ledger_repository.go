package repositories

import (
	"context"

	"github.com/google/uuid"
	"diamond-pay.backend/internal/domain/entities"
)

// LedgerBalanceRepository defines per-user balance operations. Credit
// and Debit must be called inside a unit of work together with the
// matching AppendEntry call.
type LedgerBalanceRepository interface {
	// GetOrInit returns the user's balance row, creating a zero row if
	// none exists yet.
	GetOrInit(ctx context.Context, userID uuid.UUID) (*entities.LedgerBalance, error)
	Credit(ctx context.Context, userID uuid.UUID, currency entities.Currency, amount int64) error
	// Debit subtracts amount; returns ErrInsufficientFunds without
	// writing when the balance would go negative.
	Debit(ctx context.Context, userID uuid.UUID, currency entities.Currency, amount int64) error
}

// LedgerEntryRepository defines the append-only transaction log
type LedgerEntryRepository interface {
	Append(ctx context.Context, entry *entities.LedgerEntry) error
	GetByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*entities.LedgerEntry, error)
}
