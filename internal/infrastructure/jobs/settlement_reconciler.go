package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"
	"diamond-pay.backend/internal/config"
	"diamond-pay.backend/internal/domain/entities"
	"diamond-pay.backend/internal/domain/repositories"
	"diamond-pay.backend/internal/infrastructure/custodial"
	"diamond-pay.backend/internal/usecases"
	"diamond-pay.backend/pkg/logger"
)

// SettlementReconciler is the safety net behind both delivery channels:
// it periodically sweeps settlements stuck in PENDING past a cutoff,
// asks the provider for their real state, and applies whatever terminal
// outcome it finds. Still-in-flight transfers are left alone for the
// next sweep.
type SettlementReconciler struct {
	settlementRepo repositories.SettlementRepository
	settlement     *usecases.SettlementUsecase
	provider       custodial.Client

	interval time.Duration
	maxAge   time.Duration
	batch    int
}

// NewSettlementReconciler creates a new settlement reconciler
func NewSettlementReconciler(
	settlementRepo repositories.SettlementRepository,
	settlement *usecases.SettlementUsecase,
	provider custodial.Client,
	cfg config.ReconcileConfig,
) *SettlementReconciler {
	return &SettlementReconciler{
		settlementRepo: settlementRepo,
		settlement:     settlement,
		provider:       provider,
		interval:       cfg.Interval,
		maxAge:         cfg.PendingMaxAge,
		batch:          cfg.BatchSize,
	}
}

// Start runs the sweep loop until the context is cancelled
func (r *SettlementReconciler) Start(ctx context.Context) {
	logger.Info(ctx, "settlement reconciler started",
		zap.Duration("interval", r.interval),
		zap.Duration("pending_max_age", r.maxAge))

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info(ctx, "settlement reconciler stopped")
			return
		case <-ticker.C:
			r.sweepOnce(ctx)
		}
	}
}

// sweepOnce processes one batch of stale PENDING settlements. Errors on
// individual records are logged and skipped so one bad record can't
// starve the rest of the batch.
func (r *SettlementReconciler) sweepOnce(ctx context.Context) {
	cutoff := time.Now().Add(-r.maxAge)
	stale, err := r.settlementRepo.ListStalePending(ctx, cutoff, r.batch)
	if err != nil {
		logger.Error(ctx, "failed to list stale pending settlements", zap.Error(err))
		return
	}
	if len(stale) == 0 {
		return
	}

	logger.Info(ctx, "reconciling stale pending settlements", zap.Int("count", len(stale)))

	for _, record := range stale {
		if err := r.reconcileOne(ctx, record); err != nil {
			logger.Error(ctx, "failed to reconcile settlement",
				zap.String("provider_tx_id", record.ProviderTxID),
				zap.Error(err))
		}
	}
}

func (r *SettlementReconciler) reconcileOne(ctx context.Context, record *entities.SettlementRecord) error {
	transfer, err := r.provider.GetTransaction(ctx, record.ProviderTxID)
	if err != nil {
		return err
	}

	switch transfer.State {
	case custodial.TransferStateComplete:
		return r.settlement.ApplyConfirmed(ctx, record.ProviderTxID, transfer.ChainTxHash, entities.SettlementChannelReconcile)
	case custodial.TransferStateFailed:
		return r.settlement.ApplyFailed(ctx, record.ProviderTxID, transfer.ErrorReason, entities.SettlementChannelReconcile)
	default:
		// Still in flight at the provider; check again next sweep.
		logger.Debug(ctx, "settlement still in flight at provider",
			zap.String("provider_tx_id", record.ProviderTxID),
			zap.String("state", string(transfer.State)))
		return nil
	}
}
