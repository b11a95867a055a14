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

// LedgerBalanceRepository implements per-user balance persistence
type LedgerBalanceRepository struct {
	db *gorm.DB
}

// NewLedgerBalanceRepository creates a new ledger balance repository
func NewLedgerBalanceRepository(db *gorm.DB) *LedgerBalanceRepository {
	return &LedgerBalanceRepository{db: db}
}

func balanceColumn(currency entities.Currency) (string, error) {
	switch currency {
	case entities.CurrencyGold:
		return "gold", nil
	case entities.CurrencyDiamond:
		return "diamond", nil
	default:
		return "", domainerrors.ErrInvalidInput
	}
}

// GetOrInit returns the user's balance row, creating a zero row if none
// exists yet.
func (r *LedgerBalanceRepository) GetOrInit(ctx context.Context, userID uuid.UUID) (*entities.LedgerBalance, error) {
	db := GetDB(ctx, r.db)
	var m models.LedgerBalance
	err := db.WithContext(ctx).Where("user_id = ?", userID).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		m = models.LedgerBalance{UserID: userID, UpdatedAt: time.Now()}
		if createErr := db.WithContext(ctx).Create(&m).Error; createErr != nil {
			// Lost an init race: the row exists now, re-read it.
			if isUniqueViolation(createErr) {
				if err := db.WithContext(ctx).Where("user_id = ?", userID).First(&m).Error; err != nil {
					return nil, err
				}
			} else {
				return nil, createErr
			}
		}
	} else if err != nil {
		return nil, err
	}
	return &entities.LedgerBalance{
		UserID:    m.UserID,
		Gold:      m.Gold,
		Diamond:   m.Diamond,
		UpdatedAt: m.UpdatedAt,
	}, nil
}

// Credit adds amount to the user's balance for the currency
func (r *LedgerBalanceRepository) Credit(ctx context.Context, userID uuid.UUID, currency entities.Currency, amount int64) error {
	if amount <= 0 {
		return domainerrors.ErrInvalidInput
	}
	col, err := balanceColumn(currency)
	if err != nil {
		return err
	}
	if _, err := r.GetOrInit(ctx, userID); err != nil {
		return err
	}
	db := GetDB(ctx, r.db)
	return db.WithContext(ctx).Model(&models.LedgerBalance{}).
		Where("user_id = ?", userID).
		Updates(map[string]interface{}{
			col:          gorm.Expr(col+" + ?", amount),
			"updated_at": time.Now(),
		}).Error
}

// Debit subtracts amount from the user's balance for the currency. The
// WHERE clause floors the balance at zero; zero rows affected means the
// debit would have gone negative and nothing was written.
func (r *LedgerBalanceRepository) Debit(ctx context.Context, userID uuid.UUID, currency entities.Currency, amount int64) error {
	if amount <= 0 {
		return domainerrors.ErrInvalidInput
	}
	col, err := balanceColumn(currency)
	if err != nil {
		return err
	}
	db := GetDB(ctx, r.db)
	result := db.WithContext(ctx).Model(&models.LedgerBalance{}).
		Where("user_id = ? AND "+col+" >= ?", userID, amount).
		Updates(map[string]interface{}{
			col:          gorm.Expr(col+" - ?", amount),
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrInsufficientFunds
	}
	return nil
}

// LedgerEntryRepository implements the append-only transaction log
type LedgerEntryRepository struct {
	db *gorm.DB
}

// NewLedgerEntryRepository creates a new ledger entry repository
func NewLedgerEntryRepository(db *gorm.DB) *LedgerEntryRepository {
	return &LedgerEntryRepository{db: db}
}

// Append writes one immutable log row
func (r *LedgerEntryRepository) Append(ctx context.Context, entry *entities.LedgerEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	m := &models.LedgerEntry{
		ID:           entry.ID,
		UserID:       entry.UserID,
		Currency:     string(entry.Currency),
		Amount:       entry.Amount,
		Reason:       string(entry.Reason),
		ProviderTxID: entry.ProviderTxID.Ptr(),
		ChainTxHash:  entry.ChainTxHash.Ptr(),
		CreatedAt:    entry.CreatedAt,
	}
	db := GetDB(ctx, r.db)
	return db.WithContext(ctx).Create(m).Error
}

// GetByUserID lists a user's ledger entries, newest first
func (r *LedgerEntryRepository) GetByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*entities.LedgerEntry, error) {
	var ms []models.LedgerEntry
	db := GetDB(ctx, r.db)
	if err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&ms).Error; err != nil {
		return nil, err
	}
	entries := make([]*entities.LedgerEntry, 0, len(ms))
	for i := range ms {
		entries = append(entries, ledgerEntryToEntity(&ms[i]))
	}
	return entries, nil
}

func ledgerEntryToEntity(m *models.LedgerEntry) *entities.LedgerEntry {
	return &entities.LedgerEntry{
		ID:           m.ID,
		UserID:       m.UserID,
		Currency:     entities.Currency(m.Currency),
		Amount:       m.Amount,
		Reason:       entities.LedgerReason(m.Reason),
		ProviderTxID: null.StringFromPtr(m.ProviderTxID),
		ChainTxHash:  null.StringFromPtr(m.ChainTxHash),
		CreatedAt:    m.CreatedAt,
	}
}
