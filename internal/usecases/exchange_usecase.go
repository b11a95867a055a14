package usecases

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"
	"go.uber.org/zap"
	"diamond-pay.backend/internal/config"
	"diamond-pay.backend/internal/domain/entities"
	domainerrors "diamond-pay.backend/internal/domain/errors"
	"diamond-pay.backend/internal/domain/repositories"
	"diamond-pay.backend/internal/infrastructure/custodial"
	"diamond-pay.backend/pkg/logger"
	"diamond-pay.backend/pkg/metrics"
)

// ExchangeUsecase converts Diamond back into stablecoin paid out from
// the treasury wallet. The exchange is synchronous from the caller's
// point of view: the Diamond debit and the settlement record commit in
// one transaction once the provider has accepted the payout.
type ExchangeUsecase struct {
	custodialRepo  repositories.CustodialWalletRepository
	linkedRepo     repositories.LinkedWalletRepository
	balanceRepo    repositories.LedgerBalanceRepository
	entryRepo      repositories.LedgerEntryRepository
	settlementRepo repositories.SettlementRepository
	cacheRepo      repositories.BalanceCacheRepository
	uow            repositories.UnitOfWork
	provider       custodial.Client

	providerCfg config.ProviderConfig
	rate        decimal.Decimal
	minDiamond  int64
	decimals    int32
	tokenSymbol string
}

// NewExchangeUsecase creates a new exchange usecase. It panics if the
// configured exchange rate is not a valid positive decimal, since no
// exchange could ever succeed with it.
func NewExchangeUsecase(
	custodialRepo repositories.CustodialWalletRepository,
	linkedRepo repositories.LinkedWalletRepository,
	balanceRepo repositories.LedgerBalanceRepository,
	entryRepo repositories.LedgerEntryRepository,
	settlementRepo repositories.SettlementRepository,
	cacheRepo repositories.BalanceCacheRepository,
	uow repositories.UnitOfWork,
	provider custodial.Client,
	providerCfg config.ProviderConfig,
	exchangeCfg config.ExchangeConfig,
) *ExchangeUsecase {
	rate, err := decimal.NewFromString(exchangeCfg.DiamondRate)
	if err != nil || !rate.IsPositive() {
		panic("invalid diamond exchange rate: " + exchangeCfg.DiamondRate)
	}
	return &ExchangeUsecase{
		custodialRepo:  custodialRepo,
		linkedRepo:     linkedRepo,
		balanceRepo:    balanceRepo,
		entryRepo:      entryRepo,
		settlementRepo: settlementRepo,
		cacheRepo:      cacheRepo,
		uow:            uow,
		provider:       provider,
		providerCfg:    providerCfg,
		rate:           rate,
		minDiamond:     exchangeCfg.MinExchangeDiamond,
		decimals:       exchangeCfg.StablecoinDecimals,
		tokenSymbol:    exchangeCfg.StablecoinSymbol,
	}
}

// Quote returns the stablecoin amount the given Diamond amount converts
// to, truncated to the token's decimal precision.
func (u *ExchangeUsecase) Quote(diamondAmount int64) decimal.Decimal {
	return decimal.NewFromInt(diamondAmount).Mul(u.rate).Truncate(u.decimals)
}

// ExchangeToStablecoin debits Diamond and pays out stablecoin from the
// treasury. Order of operations matters: the balance is checked before
// any external call, the provider transfer is submitted next, and only
// after the provider accepts it do the debit, the ledger entry and the
// settlement record commit together. A provider rejection therefore
// leaves the ledger untouched.
func (u *ExchangeUsecase) ExchangeToStablecoin(ctx context.Context, userID uuid.UUID, input *entities.ExchangeInput) (*entities.ExchangeResponse, error) {
	if input.DiamondAmount < u.minDiamond {
		return nil, domainerrors.BadRequest("exchange amount below minimum")
	}

	balance, err := u.balanceRepo.GetOrInit(ctx, userID)
	if err != nil {
		return nil, err
	}
	if balance.Diamond < input.DiamondAmount {
		return nil, domainerrors.InsufficientFunds("not enough diamonds to exchange")
	}

	destAddress, custodialDest, err := u.resolveDestination(ctx, userID)
	if err != nil {
		return nil, err
	}

	treasuryWalletID, err := u.resolveTreasury(ctx)
	if err != nil {
		return nil, err
	}

	stablecoinAmount := u.Quote(input.DiamondAmount)
	if !stablecoinAmount.IsPositive() {
		return nil, domainerrors.BadRequest("exchange amount converts to zero")
	}

	transfer, err := u.provider.CreateTransfer(ctx, custodial.TransferRequest{
		WalletID:           treasuryWalletID,
		DestinationAddress: destAddress,
		Amount:             stablecoinAmount.String(),
		TokenSymbol:        u.tokenSymbol,
	})
	if err != nil {
		return nil, domainerrors.ServiceUnavailable("exchange payout could not be submitted", err)
	}

	now := time.Now()
	err = u.uow.Do(ctx, func(txCtx context.Context) error {
		if err := u.balanceRepo.Debit(txCtx, userID, entities.CurrencyDiamond, input.DiamondAmount); err != nil {
			return err
		}
		if err := u.entryRepo.Append(txCtx, &entities.LedgerEntry{
			UserID:       userID,
			Currency:     entities.CurrencyDiamond,
			Amount:       -input.DiamondAmount,
			Reason:       entities.LedgerReasonExchangeOut,
			ProviderTxID: null.StringFrom(transfer.ID),
			CreatedAt:    now,
		}); err != nil {
			return err
		}
		status := entities.SettlementStatusPending
		if transfer.State == custodial.TransferStateComplete {
			status = entities.SettlementStatusComplete
		}
		return u.settlementRepo.Create(txCtx, &entities.SettlementRecord{
			ProviderTxID:     transfer.ID,
			UserID:           userID,
			ProviderWalletID: treasuryWalletID,
			Direction:        entities.SettlementDirectionExchangeOut,
			StablecoinAmount: stablecoinAmount.String(),
			DiamondAmount:    input.DiamondAmount,
			Status:           status,
			ChainTxHash:      null.NewString(transfer.ChainTxHash, transfer.ChainTxHash != ""),
			CreatedAt:        now,
			UpdatedAt:        now,
		})
	})
	if err != nil {
		// The payout is already on its way at the provider; this is the
		// one place the sweep has to repair from the provider's state.
		logger.Error(ctx, "exchange debit failed after payout submission",
			zap.String("provider_tx_id", transfer.ID),
			zap.String("user_id", userID.String()),
			zap.Error(err))
		return nil, err
	}

	metrics.SettlementsApplied.WithLabelValues("exchange_out", string(entities.SettlementChannelInitiator)).Inc()
	logger.Info(ctx, "diamond exchange submitted",
		zap.String("user_id", userID.String()),
		zap.String("provider_tx_id", transfer.ID),
		zap.Int64("diamond_amount", input.DiamondAmount),
		zap.String("stablecoin_amount", stablecoinAmount.String()))

	if custodialDest != nil {
		u.bumpCachedBalance(ctx, custodialDest, stablecoinAmount)
	}

	return &entities.ExchangeResponse{
		StablecoinAmount: stablecoinAmount.String(),
		ProviderTxID:     transfer.ID,
	}, nil
}

// resolveDestination picks where the payout goes: the user's custodial
// wallet when one exists, otherwise the primary linked wallet.
func (u *ExchangeUsecase) resolveDestination(ctx context.Context, userID uuid.UUID) (string, *entities.CustodialWallet, error) {
	wallet, err := u.custodialRepo.GetByUserID(ctx, userID)
	if err == nil {
		return wallet.Address, wallet, nil
	}
	if !errors.Is(err, domainerrors.ErrNotFound) {
		return "", nil, err
	}

	linked, err := u.linkedRepo.GetPrimaryByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, domainerrors.ErrNotFound) {
			return "", nil, domainerrors.ErrNoReceivingWallet
		}
		return "", nil, err
	}
	return linked.Address, nil, nil
}

// resolveTreasury returns the provider wallet id holding the payout
// funds, looking it up by address when only the address is configured.
func (u *ExchangeUsecase) resolveTreasury(ctx context.Context) (string, error) {
	if u.providerCfg.TreasuryWalletID != "" {
		return u.providerCfg.TreasuryWalletID, nil
	}
	if u.providerCfg.TreasuryAddress == "" {
		return "", domainerrors.ErrTreasuryMisconfigured
	}
	wallet, err := u.provider.LookupWalletByAddress(ctx, u.providerCfg.TreasuryAddress)
	if err != nil {
		return "", domainerrors.ErrTreasuryMisconfigured
	}
	return wallet.ID, nil
}

// bumpCachedBalance optimistically adds the payout to the recipient's
// cached stablecoin balance so the UI reflects it before the next live
// read. Best effort only.
func (u *ExchangeUsecase) bumpCachedBalance(ctx context.Context, wallet *entities.CustodialWallet, amount decimal.Decimal) {
	cached, err := u.cacheRepo.Get(ctx, wallet.UserID)
	if err != nil {
		return
	}
	current, err := decimal.NewFromString(cached.Balance)
	if err != nil {
		return
	}
	if err := u.cacheRepo.Set(ctx, &entities.BalanceCache{
		UserID:           wallet.UserID,
		ProviderWalletID: wallet.ProviderWalletID,
		Balance:          current.Add(amount).String(),
		UpdatedAt:        time.Now(),
	}); err != nil {
		logger.Warn(ctx, "failed to bump cached balance", zap.Error(err))
	}
}
