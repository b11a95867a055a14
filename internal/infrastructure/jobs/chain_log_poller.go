package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"
	"diamond-pay.backend/internal/config"
	"diamond-pay.backend/internal/domain/entities"
	"diamond-pay.backend/internal/infrastructure/blockchain"
	"diamond-pay.backend/internal/usecases"
	"diamond-pay.backend/pkg/logger"
	"diamond-pay.backend/pkg/metrics"
)

// maxBlocksPerScan caps one FilterLogs range so a poller that fell far
// behind catches up in bounded chunks instead of one oversized query.
const maxBlocksPerScan = 2000

// ChainLogPoller tails PurchaseConfirmed logs from the purchase
// contract and feeds them into settlement as the second delivery
// channel. The cursor only advances after every event in the scanned
// range was submitted, so a crash re-scans rather than skips; the
// settlement layer absorbs the resulting duplicates.
type ChainLogPoller struct {
	chain      blockchain.ReadClient
	settlement *usecases.SettlementUsecase

	interval time.Duration
	lookback uint64

	// nextBlock is the first block not yet scanned. Zero means the
	// cursor has not been seeded from the chain head yet.
	nextBlock uint64
}

// NewChainLogPoller creates a new chain log poller
func NewChainLogPoller(chain blockchain.ReadClient, settlement *usecases.SettlementUsecase, cfg config.ChainConfig) *ChainLogPoller {
	return &ChainLogPoller{
		chain:      chain,
		settlement: settlement,
		interval:   cfg.PollInterval,
		lookback:   cfg.LookbackBlocks,
	}
}

// Start runs the poll loop until the context is cancelled
func (p *ChainLogPoller) Start(ctx context.Context) {
	logger.Info(ctx, "chain log poller started",
		zap.Duration("interval", p.interval),
		zap.Uint64("lookback_blocks", p.lookback))

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info(ctx, "chain log poller stopped")
			return
		case <-ticker.C:
			if err := p.pollOnce(ctx); err != nil {
				metrics.PollerErrors.Inc()
				logger.Error(ctx, "chain poll failed", zap.Error(err))
			}
		}
	}
}

// pollOnce scans one block range. On the first run the cursor is
// seeded lookback blocks behind the head, which re-covers anything
// missed while the process was down.
func (p *ChainLogPoller) pollOnce(ctx context.Context) error {
	head, err := p.chain.HeadBlockNumber(ctx)
	if err != nil {
		return err
	}

	if p.nextBlock == 0 {
		if head > p.lookback {
			p.nextBlock = head - p.lookback
		} else {
			p.nextBlock = 1
		}
		logger.Info(ctx, "chain cursor seeded",
			zap.Uint64("from_block", p.nextBlock),
			zap.Uint64("head", head))
	}

	if p.nextBlock > head {
		return nil
	}

	toBlock := head
	if toBlock-p.nextBlock+1 > maxBlocksPerScan {
		toBlock = p.nextBlock + maxBlocksPerScan - 1
	}

	events, err := p.chain.FilterPurchaseConfirmed(ctx, p.nextBlock, toBlock)
	if err != nil {
		return err
	}

	for _, event := range events {
		if err := p.settlement.ApplyConfirmed(ctx, event.ProviderTxID, event.TxHash, entities.SettlementChannelChainPoll); err != nil {
			// Leave the cursor where it is; the range is re-scanned next
			// tick and already-applied events dedup away.
			logger.Error(ctx, "failed to apply chain-discovered confirmation",
				zap.String("provider_tx_id", event.ProviderTxID),
				zap.Uint64("block", event.BlockNumber),
				zap.Error(err))
			return err
		}
	}

	metrics.PollerBlocksScanned.Add(float64(toBlock - p.nextBlock + 1))
	p.nextBlock = toBlock + 1
	return nil
}
