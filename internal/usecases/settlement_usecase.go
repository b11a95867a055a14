package usecases

import (
	"context"
	"errors"
	"time"

	"github.com/volatiletech/null/v8"
	"go.uber.org/zap"
	"diamond-pay.backend/internal/domain/entities"
	domainerrors "diamond-pay.backend/internal/domain/errors"
	"diamond-pay.backend/internal/domain/repositories"
	"diamond-pay.backend/pkg/logger"
	"diamond-pay.backend/pkg/metrics"
)

const (
	// pendingRaceRetries bounds how often a confirmation that arrived
	// before the initiator's RecordPending commit is retried.
	pendingRaceRetries = 3
	pendingRaceDelay   = 100 * time.Millisecond
)

// SettlementUsecase is the single writer that moves settlement records
// to their terminal state and applies the ledger effect. Both delivery
// channels (provider webhook and chain log polling) funnel into it; the
// PENDING status guard inside one database transaction is what makes
// duplicated, unordered delivery credit the user exactly once.
type SettlementUsecase struct {
	settlementRepo repositories.SettlementRepository
	purchaseRepo   repositories.PurchaseRepository
	balanceRepo    repositories.LedgerBalanceRepository
	entryRepo      repositories.LedgerEntryRepository
	linkedRepo     repositories.LinkedWalletRepository
	uow            repositories.UnitOfWork
	notifier       QuestNotifier

	retries    int
	retryDelay time.Duration
}

// NewSettlementUsecase creates a new settlement usecase
func NewSettlementUsecase(
	settlementRepo repositories.SettlementRepository,
	purchaseRepo repositories.PurchaseRepository,
	balanceRepo repositories.LedgerBalanceRepository,
	entryRepo repositories.LedgerEntryRepository,
	linkedRepo repositories.LinkedWalletRepository,
	uow repositories.UnitOfWork,
	notifier QuestNotifier,
) *SettlementUsecase {
	return &SettlementUsecase{
		settlementRepo: settlementRepo,
		purchaseRepo:   purchaseRepo,
		balanceRepo:    balanceRepo,
		entryRepo:      entryRepo,
		linkedRepo:     linkedRepo,
		uow:            uow,
		notifier:       notifier,
		retries:        pendingRaceRetries,
		retryDelay:     pendingRaceDelay,
	}
}

// RecordPending creates the PENDING settlement record at submission
// time, before the provider transfer call returns to the caller. For
// purchases it also creates the history mirror row.
func (u *SettlementUsecase) RecordPending(ctx context.Context, record *entities.SettlementRecord) error {
	now := time.Now()
	record.Status = entities.SettlementStatusPending
	record.CreatedAt = now
	record.UpdatedAt = now

	return u.uow.Do(ctx, func(txCtx context.Context) error {
		if err := u.settlementRepo.Create(txCtx, record); err != nil {
			return err
		}
		if record.Direction != entities.SettlementDirectionPurchase {
			return nil
		}
		return u.purchaseRepo.Create(txCtx, &entities.PurchaseRecord{
			UserID:           record.UserID,
			SettlementID:     record.ID,
			ProviderTxID:     record.ProviderTxID,
			DiamondAmount:    record.DiamondAmount,
			StablecoinAmount: record.StablecoinAmount,
			Status:           entities.PurchaseStatusPending,
			ChainTxHash:      record.ChainTxHash,
			CreatedAt:        now,
			UpdatedAt:        now,
		})
	})
}

// ApplyConfirmed applies a confirmation event. Safe to call any number
// of times from any channel: the first call through the PENDING guard
// credits the ledger, every later call is absorbed as a no-op.
//
// A confirmation can outrun the initiator's own RecordPending commit
// (chain polling catching up faster than the purchase call path); in
// that case the record is not found yet and the apply is retried a few
// times before the error is surfaced for redelivery.
func (u *SettlementUsecase) ApplyConfirmed(ctx context.Context, providerTxID, chainTxHash string, channel entities.SettlementChannel) error {
	return u.withPendingRaceRetry(ctx, providerTxID, func() error {
		return u.applyConfirmedOnce(ctx, providerTxID, chainTxHash, channel)
	})
}

// ApplyFailed applies a failure event under the same dedup rule. No
// balance is mutated: for purchases the funds never moved, and for
// exchange-out the provider-side debit is not this ledger's concern.
func (u *SettlementUsecase) ApplyFailed(ctx context.Context, providerTxID, reason string, channel entities.SettlementChannel) error {
	return u.withPendingRaceRetry(ctx, providerTxID, func() error {
		return u.applyFailedOnce(ctx, providerTxID, reason, channel)
	})
}

func (u *SettlementUsecase) withPendingRaceRetry(ctx context.Context, providerTxID string, apply func() error) error {
	var err error
	for attempt := 0; attempt <= u.retries; attempt++ {
		err = apply()
		if !errors.Is(err, domainerrors.ErrNotFound) {
			return err
		}
		if attempt < u.retries {
			logger.Debug(ctx, "settlement record not visible yet, retrying",
				zap.String("provider_tx_id", providerTxID),
				zap.Int("attempt", attempt+1))
			time.Sleep(u.retryDelay * time.Duration(attempt+1))
		}
	}
	return err
}

func (u *SettlementUsecase) applyConfirmedOnce(ctx context.Context, providerTxID, chainTxHash string, channel entities.SettlementChannel) error {
	var (
		settled *entities.SettlementRecord
		deduped bool
	)

	err := u.uow.Do(ctx, func(txCtx context.Context) error {
		record, err := u.settlementRepo.GetByProviderTxID(txCtx, providerTxID)
		if err != nil {
			return err
		}
		if record.Status.IsTerminal() {
			deduped = true
			return nil
		}

		transitioned, err := u.settlementRepo.MarkCompleted(txCtx, providerTxID, chainTxHash)
		if err != nil {
			return err
		}
		if !transitioned {
			// A concurrent delivery won the PENDING guard.
			deduped = true
			return nil
		}

		if record.Direction == entities.SettlementDirectionPurchase {
			if err := u.balanceRepo.Credit(txCtx, record.UserID, entities.CurrencyDiamond, record.DiamondAmount); err != nil {
				return err
			}
			if err := u.entryRepo.Append(txCtx, &entities.LedgerEntry{
				UserID:       record.UserID,
				Currency:     entities.CurrencyDiamond,
				Amount:       record.DiamondAmount,
				Reason:       entities.LedgerReasonDiamondPurchase,
				ProviderTxID: null.StringFrom(record.ProviderTxID),
				ChainTxHash:  null.NewString(chainTxHash, chainTxHash != ""),
				CreatedAt:    time.Now(),
			}); err != nil {
				return err
			}
			if err := u.purchaseRepo.UpdateStatusBySettlementID(txCtx, record.ID, entities.PurchaseStatusCompleted, chainTxHash); err != nil {
				return err
			}
		}

		settled = record
		return nil
	})
	if err != nil {
		return err
	}

	if deduped {
		metrics.SettlementsDeduped.WithLabelValues(string(channel)).Inc()
		logger.Debug(ctx, "duplicate settlement confirmation absorbed",
			zap.String("provider_tx_id", providerTxID),
			zap.String("channel", string(channel)))
		return nil
	}

	metrics.SettlementsApplied.WithLabelValues("complete", string(channel)).Inc()
	logger.Info(ctx, "settlement completed",
		zap.String("provider_tx_id", providerTxID),
		zap.String("direction", string(settled.Direction)),
		zap.String("channel", string(channel)))

	if settled.Direction == entities.SettlementDirectionPurchase {
		u.notifyPurchase(ctx, settled)
	}
	return nil
}

func (u *SettlementUsecase) applyFailedOnce(ctx context.Context, providerTxID, reason string, channel entities.SettlementChannel) error {
	var deduped bool

	err := u.uow.Do(ctx, func(txCtx context.Context) error {
		record, err := u.settlementRepo.GetByProviderTxID(txCtx, providerTxID)
		if err != nil {
			return err
		}
		if record.Status.IsTerminal() {
			deduped = true
			return nil
		}

		transitioned, err := u.settlementRepo.MarkFailed(txCtx, providerTxID, reason)
		if err != nil {
			return err
		}
		if !transitioned {
			deduped = true
			return nil
		}

		if record.Direction == entities.SettlementDirectionPurchase {
			return u.purchaseRepo.UpdateStatusBySettlementID(txCtx, record.ID, entities.PurchaseStatusFailed, "")
		}
		return nil
	})
	if err != nil {
		return err
	}

	if deduped {
		metrics.SettlementsDeduped.WithLabelValues(string(channel)).Inc()
		logger.Debug(ctx, "duplicate settlement failure absorbed",
			zap.String("provider_tx_id", providerTxID))
		return nil
	}

	metrics.SettlementsApplied.WithLabelValues("failed", string(channel)).Inc()
	logger.Warn(ctx, "settlement failed",
		zap.String("provider_tx_id", providerTxID),
		zap.String("reason", reason),
		zap.String("channel", string(channel)))
	return nil
}

// notifyPurchase tells the quest service about a completed purchase.
// Runs after the transaction committed; failures stay inside the
// notifier.
func (u *SettlementUsecase) notifyPurchase(ctx context.Context, record *entities.SettlementRecord) {
	isPlatformLinked := false
	if linked, err := u.linkedRepo.GetByUserID(ctx, record.UserID); err == nil && len(linked) > 0 {
		isPlatformLinked = true
	}
	u.notifier.NotifyDiamondPurchase(ctx, record.UserID, record.DiamondAmount, isPlatformLinked)
}
