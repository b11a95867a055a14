package usecases

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"diamond-pay.backend/internal/config"
	"diamond-pay.backend/internal/domain/entities"
	domainerrors "diamond-pay.backend/internal/domain/errors"
	"diamond-pay.backend/internal/domain/repositories"
	"diamond-pay.backend/internal/infrastructure/custodial"
	"diamond-pay.backend/pkg/logger"
)

// WalletUsecase owns the user-to-custodial-wallet directory and the
// cached stablecoin balance
type WalletUsecase struct {
	custodialRepo repositories.CustodialWalletRepository
	linkedRepo    repositories.LinkedWalletRepository
	cacheRepo     repositories.BalanceCacheRepository
	provider      custodial.Client
	providerCfg   config.ProviderConfig
	chainName     string
	tokenSymbol   string
}

// NewWalletUsecase creates a new wallet usecase
func NewWalletUsecase(
	custodialRepo repositories.CustodialWalletRepository,
	linkedRepo repositories.LinkedWalletRepository,
	cacheRepo repositories.BalanceCacheRepository,
	provider custodial.Client,
	providerCfg config.ProviderConfig,
	chainCfg config.ChainConfig,
	exchangeCfg config.ExchangeConfig,
) *WalletUsecase {
	return &WalletUsecase{
		custodialRepo: custodialRepo,
		linkedRepo:    linkedRepo,
		cacheRepo:     cacheRepo,
		provider:      provider,
		providerCfg:   providerCfg,
		chainName:     chainCfg.Name,
		tokenSymbol:   exchangeCfg.StablecoinSymbol,
	}
}

// EnsureWallet returns the user's custodial wallet, creating one at the
// provider on first call. An empty chain falls back to the configured
// default. Concurrent first-time calls are resolved by the unique
// constraint on user_id: the loser re-reads and returns the winner's
// record.
func (u *WalletUsecase) EnsureWallet(ctx context.Context, userID uuid.UUID, chain string) (*entities.CustodialWallet, error) {
	if chain == "" {
		chain = u.chainName
	}

	existing, err := u.custodialRepo.GetByUserID(ctx, userID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, domainerrors.ErrNotFound) {
		return nil, err
	}

	walletSetID := u.providerCfg.WalletSetID
	if walletSetID == "" {
		walletSetID, err = u.provider.CreateWalletSet(ctx, "player-"+userID.String())
		if err != nil {
			return nil, err
		}
	}

	providerWallet, err := u.provider.CreateWallet(ctx, walletSetID, chain)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	wallet := &entities.CustodialWallet{
		UserID:           userID,
		ProviderWalletID: providerWallet.ID,
		Address:          providerWallet.Address,
		Chain:            chain,
		State:            entities.WalletState(providerWallet.State),
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := u.custodialRepo.Create(ctx, wallet); err != nil {
		if errors.Is(err, domainerrors.ErrAlreadyExists) {
			// Lost the provisioning race; the winner's record is the
			// one that counts.
			return u.custodialRepo.GetByUserID(ctx, userID)
		}
		return nil, err
	}

	if cacheErr := u.cacheRepo.Set(ctx, &entities.BalanceCache{
		UserID:           userID,
		ProviderWalletID: wallet.ProviderWalletID,
		Balance:          "0",
		UpdatedAt:        now,
	}); cacheErr != nil {
		logger.Warn(ctx, "failed to seed balance cache", zap.Error(cacheErr))
	}

	logger.Info(ctx, "custodial wallet provisioned",
		zap.String("user_id", userID.String()),
		zap.String("provider_wallet_id", wallet.ProviderWalletID))
	return wallet, nil
}

// BalanceResult is a balance read plus whether it came from the cache
type BalanceResult struct {
	Balance   string    `json:"balance"`
	Cached    bool      `json:"cached"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// GetBalance reads the live stablecoin balance, writing through to the
// cache. When the provider call fails and a cache entry exists, the
// stale value is served instead of the error.
func (u *WalletUsecase) GetBalance(ctx context.Context, userID uuid.UUID) (*BalanceResult, error) {
	wallet, err := u.custodialRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	live, liveErr := u.provider.GetTokenBalance(ctx, wallet.ProviderWalletID, u.tokenSymbol)
	if liveErr == nil {
		now := time.Now()
		if cacheErr := u.cacheRepo.Set(ctx, &entities.BalanceCache{
			UserID:           userID,
			ProviderWalletID: wallet.ProviderWalletID,
			Balance:          live.String(),
			UpdatedAt:        now,
		}); cacheErr != nil {
			logger.Warn(ctx, "failed to update balance cache", zap.Error(cacheErr))
		}
		return &BalanceResult{Balance: live.String(), UpdatedAt: now}, nil
	}

	logger.Warn(ctx, "live balance read failed, falling back to cache",
		zap.String("user_id", userID.String()), zap.Error(liveErr))

	cached, cacheErr := u.cacheRepo.Get(ctx, userID)
	if cacheErr != nil {
		return nil, liveErr
	}
	return &BalanceResult{Balance: cached.Balance, Cached: true, UpdatedAt: cached.UpdatedAt}, nil
}

// LinkExternalWallet attaches an externally-held wallet to the user
func (u *WalletUsecase) LinkExternalWallet(ctx context.Context, userID uuid.UUID, input *entities.LinkWalletInput) (*entities.LinkedWallet, error) {
	if input.Address == "" || input.Chain == "" {
		return nil, domainerrors.ErrInvalidInput
	}

	existing, err := u.linkedRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	// First linked wallet becomes primary regardless of the flag.
	isPrimary := input.IsPrimary || len(existing) == 0

	wallet := &entities.LinkedWallet{
		UserID:    userID,
		Address:   input.Address,
		Chain:     input.Chain,
		IsPrimary: isPrimary,
		CreatedAt: time.Now(),
	}
	if err := u.linkedRepo.Create(ctx, wallet); err != nil {
		return nil, err
	}
	return wallet, nil
}

// ListWallets returns the user's custodial wallet (if any) and linked
// wallets
func (u *WalletUsecase) ListWallets(ctx context.Context, userID uuid.UUID) (*entities.CustodialWallet, []*entities.LinkedWallet, error) {
	custodialWallet, err := u.custodialRepo.GetByUserID(ctx, userID)
	if err != nil && !errors.Is(err, domainerrors.ErrNotFound) {
		return nil, nil, err
	}
	linked, err := u.linkedRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	return custodialWallet, linked, nil
}
