package repositories

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"diamond-pay.backend/internal/domain/entities"
	domainerrors "diamond-pay.backend/internal/domain/errors"
	"diamond-pay.backend/internal/infrastructure/models"
)

// isUniqueViolation detects a unique-constraint failure from either the
// postgres or the sqlite driver.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "UNIQUE constraint")
}

// CustodialWalletRepository implements custodial wallet persistence
type CustodialWalletRepository struct {
	db *gorm.DB
}

// NewCustodialWalletRepository creates a new custodial wallet repository
func NewCustodialWalletRepository(db *gorm.DB) *CustodialWalletRepository {
	return &CustodialWalletRepository{db: db}
}

// Create persists a new wallet record. The unique index on user_id is
// the tie-breaker for concurrent first-time provisioning.
func (r *CustodialWalletRepository) Create(ctx context.Context, wallet *entities.CustodialWallet) error {
	if wallet.ID == uuid.Nil {
		wallet.ID = uuid.New()
	}
	m := &models.CustodialWallet{
		ID:               wallet.ID,
		UserID:           wallet.UserID,
		ProviderWalletID: wallet.ProviderWalletID,
		Address:          wallet.Address,
		Chain:            wallet.Chain,
		State:            string(wallet.State),
		CreatedAt:        wallet.CreatedAt,
		UpdatedAt:        wallet.UpdatedAt,
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

// GetByUserID gets the wallet for a user
func (r *CustodialWalletRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*entities.CustodialWallet, error) {
	var m models.CustodialWallet
	db := GetDB(ctx, r.db)
	if err := db.WithContext(ctx).Where("user_id = ?", userID).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, err
	}
	return custodialWalletToEntity(&m), nil
}

// GetByProviderWalletID gets a wallet by its provider-assigned id
func (r *CustodialWalletRepository) GetByProviderWalletID(ctx context.Context, providerWalletID string) (*entities.CustodialWallet, error) {
	var m models.CustodialWallet
	db := GetDB(ctx, r.db)
	if err := db.WithContext(ctx).Where("provider_wallet_id = ?", providerWalletID).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, err
	}
	return custodialWalletToEntity(&m), nil
}

func custodialWalletToEntity(m *models.CustodialWallet) *entities.CustodialWallet {
	return &entities.CustodialWallet{
		ID:               m.ID,
		UserID:           m.UserID,
		ProviderWalletID: m.ProviderWalletID,
		Address:          m.Address,
		Chain:            m.Chain,
		State:            entities.WalletState(m.State),
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}

// LinkedWalletRepository implements external linked wallet persistence
type LinkedWalletRepository struct {
	db *gorm.DB
}

// NewLinkedWalletRepository creates a new linked wallet repository
func NewLinkedWalletRepository(db *gorm.DB) *LinkedWalletRepository {
	return &LinkedWalletRepository{db: db}
}

// Create persists a linked wallet. Setting a new primary unsets any
// previous primary for the user.
func (r *LinkedWalletRepository) Create(ctx context.Context, wallet *entities.LinkedWallet) error {
	if wallet.ID == uuid.Nil {
		wallet.ID = uuid.New()
	}
	m := &models.LinkedWallet{
		ID:        wallet.ID,
		UserID:    wallet.UserID,
		Address:   wallet.Address,
		Chain:     wallet.Chain,
		IsPrimary: wallet.IsPrimary,
		CreatedAt: wallet.CreatedAt,
	}
	db := GetDB(ctx, r.db)
	if wallet.IsPrimary {
		if err := db.WithContext(ctx).Model(&models.LinkedWallet{}).
			Where("user_id = ?", wallet.UserID).
			Update("is_primary", false).Error; err != nil {
			return err
		}
	}
	return db.WithContext(ctx).Create(m).Error
}

// GetByUserID lists a user's linked wallets
func (r *LinkedWalletRepository) GetByUserID(ctx context.Context, userID uuid.UUID) ([]*entities.LinkedWallet, error) {
	var ms []models.LinkedWallet
	db := GetDB(ctx, r.db)
	if err := db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at ASC").Find(&ms).Error; err != nil {
		return nil, err
	}
	wallets := make([]*entities.LinkedWallet, 0, len(ms))
	for i := range ms {
		wallets = append(wallets, linkedWalletToEntity(&ms[i]))
	}
	return wallets, nil
}

// GetPrimaryByUserID gets the user's primary linked wallet
func (r *LinkedWalletRepository) GetPrimaryByUserID(ctx context.Context, userID uuid.UUID) (*entities.LinkedWallet, error) {
	var m models.LinkedWallet
	db := GetDB(ctx, r.db)
	if err := db.WithContext(ctx).Where("user_id = ? AND is_primary = ?", userID, true).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, err
	}
	return linkedWalletToEntity(&m), nil
}

func linkedWalletToEntity(m *models.LinkedWallet) *entities.LinkedWallet {
	return &entities.LinkedWallet{
		ID:        m.ID,
		UserID:    m.UserID,
		Address:   m.Address,
		Chain:     m.Chain,
		IsPrimary: m.IsPrimary,
		CreatedAt: m.CreatedAt,
	}
}
