package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"diamond-pay.backend/internal/domain/entities"
)

// SettlementRepository defines settlement record operations.
//
// MarkCompleted and MarkFailed are conditional updates guarded on the
// record still being PENDING; they report whether a row was actually
// transitioned. A false return with a nil error is the dedup signal for
// duplicate or cross-channel deliveries.
type SettlementRepository interface {
	Create(ctx context.Context, record *entities.SettlementRecord) error
	GetByProviderTxID(ctx context.Context, providerTxID string) (*entities.SettlementRecord, error)
	MarkCompleted(ctx context.Context, providerTxID, chainTxHash string) (bool, error)
	MarkFailed(ctx context.Context, providerTxID, reason string) (bool, error)
	// ListStalePending returns PENDING records created before the cutoff,
	// oldest first, for the reconciliation sweep.
	ListStalePending(ctx context.Context, cutoff time.Time, limit int) ([]*entities.SettlementRecord, error)
}

// PurchaseRepository defines the user-facing purchase history mirror
type PurchaseRepository interface {
	Create(ctx context.Context, record *entities.PurchaseRecord) error
	GetByUserID(ctx context.Context, userID uuid.UUID, limit int) ([]*entities.PurchaseRecord, error)
	UpdateStatusBySettlementID(ctx context.Context, settlementID uuid.UUID, status entities.PurchaseStatus, chainTxHash string) error
}
