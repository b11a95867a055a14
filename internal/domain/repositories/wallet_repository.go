package repositories

import (
	"context"

	"github.com/google/uuid"
	"diamond-pay.backend/internal/domain/entities"
)

// CustodialWalletRepository defines custodial wallet record operations
type CustodialWalletRepository interface {
	// Create persists a new record; returns ErrAlreadyExists when the
	// user already has a wallet (unique constraint on user_id).
	Create(ctx context.Context, wallet *entities.CustodialWallet) error
	GetByUserID(ctx context.Context, userID uuid.UUID) (*entities.CustodialWallet, error)
	GetByProviderWalletID(ctx context.Context, providerWalletID string) (*entities.CustodialWallet, error)
}

// LinkedWalletRepository defines external linked wallet operations
type LinkedWalletRepository interface {
	Create(ctx context.Context, wallet *entities.LinkedWallet) error
	GetByUserID(ctx context.Context, userID uuid.UUID) ([]*entities.LinkedWallet, error)
	GetPrimaryByUserID(ctx context.Context, userID uuid.UUID) (*entities.LinkedWallet, error)
}

// BalanceCacheRepository defines the stablecoin balance cache
type BalanceCacheRepository interface {
	Get(ctx context.Context, userID uuid.UUID) (*entities.BalanceCache, error)
	Set(ctx context.Context, cache *entities.BalanceCache) error
}
