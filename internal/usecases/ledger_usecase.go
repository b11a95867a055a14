package usecases

import (
	"context"

	"github.com/google/uuid"
	"diamond-pay.backend/internal/domain/entities"
	"diamond-pay.backend/internal/domain/repositories"
	"diamond-pay.backend/pkg/utils"
)

// LedgerUsecase serves read access to balances and the transaction log
type LedgerUsecase struct {
	balanceRepo repositories.LedgerBalanceRepository
	entryRepo   repositories.LedgerEntryRepository
}

// NewLedgerUsecase creates a new ledger usecase
func NewLedgerUsecase(balanceRepo repositories.LedgerBalanceRepository, entryRepo repositories.LedgerEntryRepository) *LedgerUsecase {
	return &LedgerUsecase{
		balanceRepo: balanceRepo,
		entryRepo:   entryRepo,
	}
}

// GetBalance returns the user's current Gold and Diamond balances,
// initializing a zero row on first read.
func (u *LedgerUsecase) GetBalance(ctx context.Context, userID uuid.UUID) (*entities.LedgerBalance, error) {
	return u.balanceRepo.GetOrInit(ctx, userID)
}

// GetEntries returns a page of the user's ledger entries, newest first
func (u *LedgerUsecase) GetEntries(ctx context.Context, userID uuid.UUID, params utils.PaginationParams) ([]*entities.LedgerEntry, error) {
	return u.entryRepo.GetByUserID(ctx, userID, params.Limit, params.CalculateOffset())
}
