package usecases

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"diamond-pay.backend/internal/config"
	"diamond-pay.backend/internal/domain/entities"
	domainerrors "diamond-pay.backend/internal/domain/errors"
	"diamond-pay.backend/internal/domain/repositories"
	"diamond-pay.backend/internal/infrastructure/custodial"
	"diamond-pay.backend/pkg/logger"
)

const defaultHistoryLimit = 20

// PurchaseUsecase initiates stablecoin-to-Diamond purchases and serves
// purchase history. The purchase itself settles asynchronously through
// the SettlementUsecase once the provider or the chain confirms it.
type PurchaseUsecase struct {
	walletUsecase *WalletUsecase
	settlement    *SettlementUsecase
	purchaseRepo  repositories.PurchaseRepository
	provider      custodial.Client
	contractAddr  string
	tokenSymbol   string
}

// NewPurchaseUsecase creates a new purchase usecase
func NewPurchaseUsecase(
	walletUsecase *WalletUsecase,
	settlement *SettlementUsecase,
	purchaseRepo repositories.PurchaseRepository,
	provider custodial.Client,
	chainCfg config.ChainConfig,
	exchangeCfg config.ExchangeConfig,
) *PurchaseUsecase {
	return &PurchaseUsecase{
		walletUsecase: walletUsecase,
		settlement:    settlement,
		purchaseRepo:  purchaseRepo,
		provider:      provider,
		contractAddr:  chainCfg.PurchaseContractAddress,
		tokenSymbol:   exchangeCfg.StablecoinSymbol,
	}
}

// PurchaseDiamond initiates a purchase: ensures the user has a
// custodial wallet, submits the stablecoin transfer to the purchase
// contract, and records the PENDING settlement. The response status is
// PENDING unless the provider already reported a terminal state.
func (u *PurchaseUsecase) PurchaseDiamond(ctx context.Context, userID uuid.UUID, input *entities.PurchaseDiamondInput) (*entities.PurchaseDiamondResponse, error) {
	if input.DiamondAmount <= 0 {
		return nil, domainerrors.BadRequest("diamond amount must be positive")
	}
	stablecoinAmount, err := decimal.NewFromString(input.StablecoinAmount)
	if err != nil || !stablecoinAmount.IsPositive() {
		return nil, domainerrors.BadRequest("invalid stablecoin amount")
	}

	wallet, err := u.walletUsecase.EnsureWallet(ctx, userID, "")
	if err != nil {
		return nil, err
	}

	transfer, err := u.provider.CreateTransfer(ctx, custodial.TransferRequest{
		WalletID:           wallet.ProviderWalletID,
		DestinationAddress: u.contractAddr,
		Amount:             stablecoinAmount.String(),
		TokenSymbol:        u.tokenSymbol,
		RefID:              uuid.NewString(),
	})
	if err != nil {
		return nil, domainerrors.ServiceUnavailable("purchase transfer could not be submitted", err)
	}

	record := &entities.SettlementRecord{
		ProviderTxID:     transfer.ID,
		UserID:           userID,
		ProviderWalletID: wallet.ProviderWalletID,
		Direction:        entities.SettlementDirectionPurchase,
		StablecoinAmount: stablecoinAmount.String(),
		DiamondAmount:    input.DiamondAmount,
	}
	if err := u.settlement.RecordPending(ctx, record); err != nil {
		return nil, err
	}

	logger.Info(ctx, "diamond purchase initiated",
		zap.String("user_id", userID.String()),
		zap.String("provider_tx_id", transfer.ID),
		zap.Int64("diamond_amount", input.DiamondAmount))

	status := entities.PurchaseStatusPending
	switch transfer.State {
	case custodial.TransferStateComplete:
		// Provider settled synchronously; apply right away instead of
		// waiting for a webhook that may never need to be processed.
		if err := u.settlement.ApplyConfirmed(ctx, transfer.ID, transfer.ChainTxHash, entities.SettlementChannelInitiator); err != nil {
			logger.Error(ctx, "failed to apply synchronous confirmation", zap.Error(err))
		} else {
			status = entities.PurchaseStatusCompleted
		}
	case custodial.TransferStateFailed:
		if err := u.settlement.ApplyFailed(ctx, transfer.ID, transfer.ErrorReason, entities.SettlementChannelInitiator); err != nil {
			logger.Error(ctx, "failed to apply synchronous failure", zap.Error(err))
		} else {
			status = entities.PurchaseStatusFailed
		}
	}

	return &entities.PurchaseDiamondResponse{
		ProviderTxID:     transfer.ID,
		Status:           status,
		DiamondAmount:    input.DiamondAmount,
		StablecoinAmount: stablecoinAmount.String(),
		ChainTxHash:      transfer.ChainTxHash,
	}, nil
}

// GetPaymentHistory lists the user's purchases, newest first
func (u *PurchaseUsecase) GetPaymentHistory(ctx context.Context, userID uuid.UUID, limit int) ([]*entities.PurchaseRecord, error) {
	if limit <= 0 || limit > 100 {
		limit = defaultHistoryLimit
	}
	return u.purchaseRepo.GetByUserID(ctx, userID, limit)
}
