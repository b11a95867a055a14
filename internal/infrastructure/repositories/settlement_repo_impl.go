package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
	"gorm.io/gorm"
	"diamond-pay.backend/internal/domain/entities"
	domainerrors "diamond-pay.backend/internal/domain/errors"
	"diamond-pay.backend/internal/infrastructure/models"
)

// SettlementRepository implements settlement record persistence
type SettlementRepository struct {
	db *gorm.DB
}

// NewSettlementRepository creates a new settlement repository
func NewSettlementRepository(db *gorm.DB) *SettlementRepository {
	return &SettlementRepository{db: db}
}

// Create persists a new settlement record in PENDING state. The unique
// index on provider_tx_id rejects duplicate submissions.
func (r *SettlementRepository) Create(ctx context.Context, record *entities.SettlementRecord) error {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if record.Status == "" {
		record.Status = entities.SettlementStatusPending
	}
	m := &models.SettlementRecord{
		ID:               record.ID,
		ProviderTxID:     record.ProviderTxID,
		UserID:           record.UserID,
		ProviderWalletID: record.ProviderWalletID,
		Direction:        string(record.Direction),
		StablecoinAmount: record.StablecoinAmount,
		DiamondAmount:    record.DiamondAmount,
		Status:           string(record.Status),
		ChainTxHash:      record.ChainTxHash.Ptr(),
		ErrorReason:      record.ErrorReason.Ptr(),
		CreatedAt:        record.CreatedAt,
		UpdatedAt:        record.UpdatedAt,
	}
	db := GetDB(ctx, r.db)
	if err := db.WithContext(ctx).Create(m).Error; err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// GetByProviderTxID gets a settlement record by provider transaction id
func (r *SettlementRepository) GetByProviderTxID(ctx context.Context, providerTxID string) (*entities.SettlementRecord, error) {
	var m models.SettlementRecord
	db := GetDB(ctx, r.db)
	if err := db.WithContext(ctx).Where("provider_tx_id = ?", providerTxID).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, err
	}
	return settlementToEntity(&m), nil
}

// MarkCompleted transitions PENDING -> COMPLETE. The status guard in the
// WHERE clause means a record already in a terminal state is left
// untouched; the false return is the caller's dedup signal.
func (r *SettlementRepository) MarkCompleted(ctx context.Context, providerTxID, chainTxHash string) (bool, error) {
	updates := map[string]interface{}{
		"status":     string(entities.SettlementStatusComplete),
		"updated_at": time.Now(),
	}
	if chainTxHash != "" {
		updates["chain_tx_hash"] = chainTxHash
	}
	db := GetDB(ctx, r.db)
	result := db.WithContext(ctx).Model(&models.SettlementRecord{}).
		Where("provider_tx_id = ? AND status = ?", providerTxID, string(entities.SettlementStatusPending)).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// MarkFailed transitions PENDING -> FAILED under the same status guard
func (r *SettlementRepository) MarkFailed(ctx context.Context, providerTxID, reason string) (bool, error) {
	updates := map[string]interface{}{
		"status":     string(entities.SettlementStatusFailed),
		"updated_at": time.Now(),
	}
	if reason != "" {
		updates["error_reason"] = reason
	}
	db := GetDB(ctx, r.db)
	result := db.WithContext(ctx).Model(&models.SettlementRecord{}).
		Where("provider_tx_id = ? AND status = ?", providerTxID, string(entities.SettlementStatusPending)).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ListStalePending returns PENDING records created before the cutoff,
// oldest first, for the reconciliation sweep.
func (r *SettlementRepository) ListStalePending(ctx context.Context, cutoff time.Time, limit int) ([]*entities.SettlementRecord, error) {
	var ms []models.SettlementRecord
	db := GetDB(ctx, r.db)
	if err := db.WithContext(ctx).
		Where("status = ? AND created_at < ?", string(entities.SettlementStatusPending), cutoff).
		Order("created_at ASC").
		Limit(limit).
		Find(&ms).Error; err != nil {
		return nil, err
	}
	records := make([]*entities.SettlementRecord, 0, len(ms))
	for i := range ms {
		records = append(records, settlementToEntity(&ms[i]))
	}
	return records, nil
}

func settlementToEntity(m *models.SettlementRecord) *entities.SettlementRecord {
	return &entities.SettlementRecord{
		ID:               m.ID,
		ProviderTxID:     m.ProviderTxID,
		UserID:           m.UserID,
		ProviderWalletID: m.ProviderWalletID,
		Direction:        entities.SettlementDirection(m.Direction),
		StablecoinAmount: m.StablecoinAmount,
		DiamondAmount:    m.DiamondAmount,
		Status:           entities.SettlementStatus(m.Status),
		ChainTxHash:      null.StringFromPtr(m.ChainTxHash),
		ErrorReason:      null.StringFromPtr(m.ErrorReason),
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}

// PurchaseRepository implements the purchase history mirror
type PurchaseRepository struct {
	db *gorm.DB
}

// NewPurchaseRepository creates a new purchase repository
func NewPurchaseRepository(db *gorm.DB) *PurchaseRepository {
	return &PurchaseRepository{db: db}
}

// Create persists a purchase history row
func (r *PurchaseRepository) Create(ctx context.Context, record *entities.PurchaseRecord) error {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	m := &models.PurchaseRecord{
		ID:               record.ID,
		UserID:           record.UserID,
		SettlementID:     record.SettlementID,
		ProviderTxID:     record.ProviderTxID,
		DiamondAmount:    record.DiamondAmount,
		StablecoinAmount: record.StablecoinAmount,
		Status:           string(record.Status),
		ChainTxHash:      record.ChainTxHash.Ptr(),
		CreatedAt:        record.CreatedAt,
		UpdatedAt:        record.UpdatedAt,
	}
	db := GetDB(ctx, r.db)
	return db.WithContext(ctx).Create(m).Error
}

// GetByUserID lists a user's purchases, newest first
func (r *PurchaseRepository) GetByUserID(ctx context.Context, userID uuid.UUID, limit int) ([]*entities.PurchaseRecord, error) {
	var ms []models.PurchaseRecord
	db := GetDB(ctx, r.db)
	if err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&ms).Error; err != nil {
		return nil, err
	}
	records := make([]*entities.PurchaseRecord, 0, len(ms))
	for i := range ms {
		m := ms[i]
		records = append(records, &entities.PurchaseRecord{
			ID:               m.ID,
			UserID:           m.UserID,
			SettlementID:     m.SettlementID,
			ProviderTxID:     m.ProviderTxID,
			DiamondAmount:    m.DiamondAmount,
			StablecoinAmount: m.StablecoinAmount,
			Status:           entities.PurchaseStatus(m.Status),
			ChainTxHash:      null.StringFromPtr(m.ChainTxHash),
			CreatedAt:        m.CreatedAt,
			UpdatedAt:        m.UpdatedAt,
		})
	}
	return records, nil
}

// UpdateStatusBySettlementID updates the history mirror when the linked
// settlement reaches a terminal state
func (r *PurchaseRepository) UpdateStatusBySettlementID(ctx context.Context, settlementID uuid.UUID, status entities.PurchaseStatus, chainTxHash string) error {
	updates := map[string]interface{}{
		"status":     string(status),
		"updated_at": time.Now(),
	}
	if chainTxHash != "" {
		updates["chain_tx_hash"] = chainTxHash
	}
	db := GetDB(ctx, r.db)
	return db.WithContext(ctx).Model(&models.PurchaseRecord{}).
		Where("settlement_id = ?", settlementID).
		Updates(updates).Error
}
