package usecases_test

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"diamond-pay.backend/internal/domain/entities"
	"diamond-pay.backend/internal/infrastructure/custodial"
)

// Mock UnitOfWork
type MockUnitOfWork struct {
	mock.Mock
}

func (m *MockUnitOfWork) Do(ctx context.Context, f func(context.Context) error) error {
	m.Called(ctx, f)
	return f(ctx)
}

// Mock CustodialWalletRepository
type MockCustodialWalletRepository struct {
	mock.Mock
}

func (m *MockCustodialWalletRepository) Create(ctx context.Context, wallet *entities.CustodialWallet) error {
	args := m.Called(ctx, wallet)
	return args.Error(0)
}

func (m *MockCustodialWalletRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*entities.CustodialWallet, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.CustodialWallet), args.Error(1)
}

func (m *MockCustodialWalletRepository) GetByProviderWalletID(ctx context.Context, providerWalletID string) (*entities.CustodialWallet, error) {
	args := m.Called(ctx, providerWalletID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.CustodialWallet), args.Error(1)
}

// Mock LinkedWalletRepository
type MockLinkedWalletRepository struct {
	mock.Mock
}

func (m *MockLinkedWalletRepository) Create(ctx context.Context, wallet *entities.LinkedWallet) error {
	args := m.Called(ctx, wallet)
	return args.Error(0)
}

func (m *MockLinkedWalletRepository) GetByUserID(ctx context.Context, userID uuid.UUID) ([]*entities.LinkedWallet, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.LinkedWallet), args.Error(1)
}

func (m *MockLinkedWalletRepository) GetPrimaryByUserID(ctx context.Context, userID uuid.UUID) (*entities.LinkedWallet, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.LinkedWallet), args.Error(1)
}

// Mock BalanceCacheRepository
type MockBalanceCacheRepository struct {
	mock.Mock
}

func (m *MockBalanceCacheRepository) Get(ctx context.Context, userID uuid.UUID) (*entities.BalanceCache, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.BalanceCache), args.Error(1)
}

func (m *MockBalanceCacheRepository) Set(ctx context.Context, cache *entities.BalanceCache) error {
	args := m.Called(ctx, cache)
	return args.Error(0)
}

// Mock LedgerBalanceRepository
type MockLedgerBalanceRepository struct {
	mock.Mock
}

func (m *MockLedgerBalanceRepository) GetOrInit(ctx context.Context, userID uuid.UUID) (*entities.LedgerBalance, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.LedgerBalance), args.Error(1)
}

func (m *MockLedgerBalanceRepository) Credit(ctx context.Context, userID uuid.UUID, currency entities.Currency, amount int64) error {
	args := m.Called(ctx, userID, currency, amount)
	return args.Error(0)
}

func (m *MockLedgerBalanceRepository) Debit(ctx context.Context, userID uuid.UUID, currency entities.Currency, amount int64) error {
	args := m.Called(ctx, userID, currency, amount)
	return args.Error(0)
}

// Mock LedgerEntryRepository
type MockLedgerEntryRepository struct {
	mock.Mock
}

func (m *MockLedgerEntryRepository) Append(ctx context.Context, entry *entities.LedgerEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockLedgerEntryRepository) GetByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*entities.LedgerEntry, error) {
	args := m.Called(ctx, userID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.LedgerEntry), args.Error(1)
}

// Mock SettlementRepository
type MockSettlementRepository struct {
	mock.Mock
}

func (m *MockSettlementRepository) Create(ctx context.Context, record *entities.SettlementRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockSettlementRepository) GetByProviderTxID(ctx context.Context, providerTxID string) (*entities.SettlementRecord, error) {
	args := m.Called(ctx, providerTxID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.SettlementRecord), args.Error(1)
}

func (m *MockSettlementRepository) MarkCompleted(ctx context.Context, providerTxID, chainTxHash string) (bool, error) {
	args := m.Called(ctx, providerTxID, chainTxHash)
	return args.Bool(0), args.Error(1)
}

func (m *MockSettlementRepository) MarkFailed(ctx context.Context, providerTxID, reason string) (bool, error) {
	args := m.Called(ctx, providerTxID, reason)
	return args.Bool(0), args.Error(1)
}

func (m *MockSettlementRepository) ListStalePending(ctx context.Context, cutoff time.Time, limit int) ([]*entities.SettlementRecord, error) {
	args := m.Called(ctx, cutoff, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.SettlementRecord), args.Error(1)
}

// Mock PurchaseRepository
type MockPurchaseRepository struct {
	mock.Mock
}

func (m *MockPurchaseRepository) Create(ctx context.Context, record *entities.PurchaseRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockPurchaseRepository) GetByUserID(ctx context.Context, userID uuid.UUID, limit int) ([]*entities.PurchaseRecord, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.PurchaseRecord), args.Error(1)
}

func (m *MockPurchaseRepository) UpdateStatusBySettlementID(ctx context.Context, settlementID uuid.UUID, status entities.PurchaseStatus, chainTxHash string) error {
	args := m.Called(ctx, settlementID, status, chainTxHash)
	return args.Error(0)
}

// Mock custodial provider client
type MockProviderClient struct {
	mock.Mock
}

func (m *MockProviderClient) CreateWalletSet(ctx context.Context, name string) (string, error) {
	args := m.Called(ctx, name)
	return args.String(0), args.Error(1)
}

func (m *MockProviderClient) CreateWallet(ctx context.Context, walletSetID, chain string) (*custodial.Wallet, error) {
	args := m.Called(ctx, walletSetID, chain)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*custodial.Wallet), args.Error(1)
}

func (m *MockProviderClient) GetTokenBalance(ctx context.Context, walletID, tokenSymbol string) (decimal.Decimal, error) {
	args := m.Called(ctx, walletID, tokenSymbol)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockProviderClient) CreateTransfer(ctx context.Context, req custodial.TransferRequest) (*custodial.Transfer, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*custodial.Transfer), args.Error(1)
}

func (m *MockProviderClient) GetTransaction(ctx context.Context, providerTxID string) (*custodial.Transfer, error) {
	args := m.Called(ctx, providerTxID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*custodial.Transfer), args.Error(1)
}

func (m *MockProviderClient) LookupWalletByAddress(ctx context.Context, address string) (*custodial.Wallet, error) {
	args := m.Called(ctx, address)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*custodial.Wallet), args.Error(1)
}

// Mock QuestNotifier
type MockQuestNotifier struct {
	mock.Mock
}

func (m *MockQuestNotifier) NotifyDiamondPurchase(ctx context.Context, userID uuid.UUID, amount int64, isPlatformLinked bool) {
	m.Called(ctx, userID, amount, isPlatformLinked)
}

func (m *MockQuestNotifier) NotifyGoldPurchase(ctx context.Context, userID uuid.UUID, amount int64, isPlatformLinked bool) {
	m.Called(ctx, userID, amount, isPlatformLinked)
}
