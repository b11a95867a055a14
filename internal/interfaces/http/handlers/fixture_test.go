package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"diamond-pay.backend/internal/config"
	"diamond-pay.backend/internal/domain/entities"
	domainerrors "diamond-pay.backend/internal/domain/errors"
	"diamond-pay.backend/internal/infrastructure/custodial"
	"diamond-pay.backend/internal/interfaces/http/handlers"
	"diamond-pay.backend/internal/interfaces/http/middleware"
	"diamond-pay.backend/internal/usecases"
)

// world is an in-memory backing store shared by all the repository
// fakes, so handler tests run the real usecase stack end to end.
type world struct {
	mu sync.Mutex

	custodialWallets map[uuid.UUID]*entities.CustodialWallet
	linkedWallets    map[uuid.UUID][]*entities.LinkedWallet
	caches           map[uuid.UUID]*entities.BalanceCache
	balances         map[uuid.UUID]*entities.LedgerBalance
	entries          []*entities.LedgerEntry
	settlements      map[string]*entities.SettlementRecord
	purchases        []*entities.PurchaseRecord

	transfers     map[string]*custodial.Transfer
	transferState custodial.TransferState
	tokenBalance  decimal.Decimal
	nextTransfer  int
	nextWallet    int
}

func newWorld() *world {
	return &world{
		custodialWallets: make(map[uuid.UUID]*entities.CustodialWallet),
		linkedWallets:    make(map[uuid.UUID][]*entities.LinkedWallet),
		caches:           make(map[uuid.UUID]*entities.BalanceCache),
		balances:         make(map[uuid.UUID]*entities.LedgerBalance),
		settlements:      make(map[string]*entities.SettlementRecord),
		transfers:        make(map[string]*custodial.Transfer),
		transferState:    custodial.TransferStateInitiated,
		tokenBalance:     decimal.RequireFromString("10"),
	}
}

func (w *world) seedDiamonds(userID uuid.UUID, amount int64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.balances[userID] = &entities.LedgerBalance{UserID: userID, Diamond: amount}
}

func (w *world) seedCustodialWallet(userID uuid.UUID) *entities.CustodialWallet {
	w.mu.Lock()
	defer w.mu.Unlock()
	wallet := &entities.CustodialWallet{
		ID: uuid.New(), UserID: userID,
		ProviderWalletID: "pw-seeded", Address: "0xseeded",
		Chain: "BASE-SEPOLIA", State: entities.WalletStateLive,
	}
	w.custodialWallets[userID] = wallet
	return wallet
}

func (w *world) diamondsOf(userID uuid.UUID) int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	if b, ok := w.balances[userID]; ok {
		return b.Diamond
	}
	return 0
}

type custodialWalletRepo struct{ w *world }

func (r custodialWalletRepo) Create(ctx context.Context, wallet *entities.CustodialWallet) error {
	r.w.mu.Lock()
	defer r.w.mu.Unlock()
	if _, ok := r.w.custodialWallets[wallet.UserID]; ok {
		return domainerrors.ErrAlreadyExists
	}
	wallet.ID = uuid.New()
	r.w.custodialWallets[wallet.UserID] = wallet
	return nil
}

func (r custodialWalletRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*entities.CustodialWallet, error) {
	r.w.mu.Lock()
	defer r.w.mu.Unlock()
	wallet, ok := r.w.custodialWallets[userID]
	if !ok {
		return nil, domainerrors.ErrNotFound
	}
	return wallet, nil
}

func (r custodialWalletRepo) GetByProviderWalletID(ctx context.Context, providerWalletID string) (*entities.CustodialWallet, error) {
	r.w.mu.Lock()
	defer r.w.mu.Unlock()
	for _, wallet := range r.w.custodialWallets {
		if wallet.ProviderWalletID == providerWalletID {
			return wallet, nil
		}
	}
	return nil, domainerrors.ErrNotFound
}

type linkedWalletRepo struct{ w *world }

func (r linkedWalletRepo) Create(ctx context.Context, wallet *entities.LinkedWallet) error {
	r.w.mu.Lock()
	defer r.w.mu.Unlock()
	wallet.ID = uuid.New()
	r.w.linkedWallets[wallet.UserID] = append(r.w.linkedWallets[wallet.UserID], wallet)
	return nil
}

func (r linkedWalletRepo) GetByUserID(ctx context.Context, userID uuid.UUID) ([]*entities.LinkedWallet, error) {
	r.w.mu.Lock()
	defer r.w.mu.Unlock()
	return r.w.linkedWallets[userID], nil
}

func (r linkedWalletRepo) GetPrimaryByUserID(ctx context.Context, userID uuid.UUID) (*entities.LinkedWallet, error) {
	r.w.mu.Lock()
	defer r.w.mu.Unlock()
	for _, wallet := range r.w.linkedWallets[userID] {
		if wallet.IsPrimary {
			return wallet, nil
		}
	}
	return nil, domainerrors.ErrNotFound
}

type balanceCacheRepo struct{ w *world }

func (r balanceCacheRepo) Get(ctx context.Context, userID uuid.UUID) (*entities.BalanceCache, error) {
	r.w.mu.Lock()
	defer r.w.mu.Unlock()
	cache, ok := r.w.caches[userID]
	if !ok {
		return nil, domainerrors.ErrNotFound
	}
	return cache, nil
}

func (r balanceCacheRepo) Set(ctx context.Context, cache *entities.BalanceCache) error {
	r.w.mu.Lock()
	defer r.w.mu.Unlock()
	r.w.caches[cache.UserID] = cache
	return nil
}

type ledgerBalanceRepo struct{ w *world }

func (r ledgerBalanceRepo) GetOrInit(ctx context.Context, userID uuid.UUID) (*entities.LedgerBalance, error) {
	r.w.mu.Lock()
	defer r.w.mu.Unlock()
	balance, ok := r.w.balances[userID]
	if !ok {
		balance = &entities.LedgerBalance{UserID: userID}
		r.w.balances[userID] = balance
	}
	copied := *balance
	return &copied, nil
}

func (r ledgerBalanceRepo) Credit(ctx context.Context, userID uuid.UUID, currency entities.Currency, amount int64) error {
	r.w.mu.Lock()
	defer r.w.mu.Unlock()
	balance, ok := r.w.balances[userID]
	if !ok {
		balance = &entities.LedgerBalance{UserID: userID}
		r.w.balances[userID] = balance
	}
	if currency == entities.CurrencyGold {
		balance.Gold += amount
	} else {
		balance.Diamond += amount
	}
	return nil
}

func (r ledgerBalanceRepo) Debit(ctx context.Context, userID uuid.UUID, currency entities.Currency, amount int64) error {
	r.w.mu.Lock()
	defer r.w.mu.Unlock()
	balance, ok := r.w.balances[userID]
	if !ok || balance.Amount(currency) < amount {
		return domainerrors.ErrInsufficientFunds
	}
	if currency == entities.CurrencyGold {
		balance.Gold -= amount
	} else {
		balance.Diamond -= amount
	}
	return nil
}

type ledgerEntryRepo struct{ w *world }

func (r ledgerEntryRepo) Append(ctx context.Context, entry *entities.LedgerEntry) error {
	r.w.mu.Lock()
	defer r.w.mu.Unlock()
	entry.ID = uuid.New()
	r.w.entries = append(r.w.entries, entry)
	return nil
}

func (r ledgerEntryRepo) GetByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*entities.LedgerEntry, error) {
	r.w.mu.Lock()
	defer r.w.mu.Unlock()
	var out []*entities.LedgerEntry
	for _, entry := range r.w.entries {
		if entry.UserID == userID {
			out = append(out, entry)
		}
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type settlementRepo struct{ w *world }

func (r settlementRepo) Create(ctx context.Context, record *entities.SettlementRecord) error {
	r.w.mu.Lock()
	defer r.w.mu.Unlock()
	if _, ok := r.w.settlements[record.ProviderTxID]; ok {
		return domainerrors.ErrAlreadyExists
	}
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	r.w.settlements[record.ProviderTxID] = record
	return nil
}

func (r settlementRepo) GetByProviderTxID(ctx context.Context, providerTxID string) (*entities.SettlementRecord, error) {
	r.w.mu.Lock()
	defer r.w.mu.Unlock()
	record, ok := r.w.settlements[providerTxID]
	if !ok {
		return nil, domainerrors.ErrNotFound
	}
	copied := *record
	return &copied, nil
}

func (r settlementRepo) MarkCompleted(ctx context.Context, providerTxID, chainTxHash string) (bool, error) {
	r.w.mu.Lock()
	defer r.w.mu.Unlock()
	record, ok := r.w.settlements[providerTxID]
	if !ok || record.Status != entities.SettlementStatusPending {
		return false, nil
	}
	record.Status = entities.SettlementStatusComplete
	return true, nil
}

func (r settlementRepo) MarkFailed(ctx context.Context, providerTxID, reason string) (bool, error) {
	r.w.mu.Lock()
	defer r.w.mu.Unlock()
	record, ok := r.w.settlements[providerTxID]
	if !ok || record.Status != entities.SettlementStatusPending {
		return false, nil
	}
	record.Status = entities.SettlementStatusFailed
	return true, nil
}

func (r settlementRepo) ListStalePending(ctx context.Context, cutoff time.Time, limit int) ([]*entities.SettlementRecord, error) {
	return nil, nil
}

type purchaseRepo struct{ w *world }

func (r purchaseRepo) Create(ctx context.Context, record *entities.PurchaseRecord) error {
	r.w.mu.Lock()
	defer r.w.mu.Unlock()
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	r.w.purchases = append(r.w.purchases, record)
	return nil
}

func (r purchaseRepo) GetByUserID(ctx context.Context, userID uuid.UUID, limit int) ([]*entities.PurchaseRecord, error) {
	r.w.mu.Lock()
	defer r.w.mu.Unlock()
	var out []*entities.PurchaseRecord
	for _, record := range r.w.purchases {
		if record.UserID == userID {
			out = append(out, record)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r purchaseRepo) UpdateStatusBySettlementID(ctx context.Context, settlementID uuid.UUID, status entities.PurchaseStatus, chainTxHash string) error {
	r.w.mu.Lock()
	defer r.w.mu.Unlock()
	for _, record := range r.w.purchases {
		if record.SettlementID == settlementID {
			record.Status = status
		}
	}
	return nil
}

type passthroughUoW struct{}

func (passthroughUoW) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type nopNotifier struct{}

func (nopNotifier) NotifyDiamondPurchase(ctx context.Context, userID uuid.UUID, amount int64, isPlatformLinked bool) {
}
func (nopNotifier) NotifyGoldPurchase(ctx context.Context, userID uuid.UUID, amount int64, isPlatformLinked bool) {
}

type fakeProvider struct{ w *world }

func (p fakeProvider) CreateWalletSet(ctx context.Context, name string) (string, error) {
	return "ws-dyn", nil
}

func (p fakeProvider) CreateWallet(ctx context.Context, walletSetID, chain string) (*custodial.Wallet, error) {
	p.w.mu.Lock()
	defer p.w.mu.Unlock()
	p.w.nextWallet++
	return &custodial.Wallet{
		ID:      fmt.Sprintf("pw-%d", p.w.nextWallet),
		Address: fmt.Sprintf("0xwallet%d", p.w.nextWallet),
		Chain:   chain,
		State:   "LIVE",
	}, nil
}

func (p fakeProvider) GetTokenBalance(ctx context.Context, walletID, tokenSymbol string) (decimal.Decimal, error) {
	p.w.mu.Lock()
	defer p.w.mu.Unlock()
	return p.w.tokenBalance, nil
}

func (p fakeProvider) CreateTransfer(ctx context.Context, req custodial.TransferRequest) (*custodial.Transfer, error) {
	p.w.mu.Lock()
	defer p.w.mu.Unlock()
	p.w.nextTransfer++
	transfer := &custodial.Transfer{
		ID:    fmt.Sprintf("tx-%d", p.w.nextTransfer),
		State: p.w.transferState,
	}
	p.w.transfers[transfer.ID] = transfer
	return transfer, nil
}

func (p fakeProvider) GetTransaction(ctx context.Context, providerTxID string) (*custodial.Transfer, error) {
	p.w.mu.Lock()
	defer p.w.mu.Unlock()
	transfer, ok := p.w.transfers[providerTxID]
	if !ok {
		return nil, domainerrors.ErrNotFound
	}
	return transfer, nil
}

func (p fakeProvider) LookupWalletByAddress(ctx context.Context, address string) (*custodial.Wallet, error) {
	return &custodial.Wallet{ID: "tw-by-addr", Address: address}, nil
}

const testWebhookSecret = "whsec-test"

// newTestRouter wires the full handler stack over the in-memory world.
// Requests carry the authenticated user via X-Test-User instead of a
// real JWT; the auth middleware itself is covered separately.
func newTestRouter(t *testing.T) (*gin.Engine, *world) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	w := newWorld()
	provider := fakeProvider{w: w}

	providerCfg := config.ProviderConfig{
		WalletSetID:      "ws-1",
		TreasuryWalletID: "tw-1",
		WebhookSecret:    testWebhookSecret,
	}
	chainCfg := config.ChainConfig{Name: "BASE-SEPOLIA", PurchaseContractAddress: "0xcontract"}
	exchangeCfg := config.ExchangeConfig{
		StablecoinSymbol:   "USDC",
		StablecoinDecimals: 6,
		DiamondRate:        "0.00008",
		MinExchangeDiamond: 100,
	}
	serverCfg := config.ServerConfig{Env: "test"}

	walletUC := usecases.NewWalletUsecase(custodialWalletRepo{w}, linkedWalletRepo{w}, balanceCacheRepo{w}, provider, providerCfg, chainCfg, exchangeCfg)
	settlementUC := usecases.NewSettlementUsecase(settlementRepo{w}, purchaseRepo{w}, ledgerBalanceRepo{w}, ledgerEntryRepo{w}, linkedWalletRepo{w}, passthroughUoW{}, nopNotifier{})
	purchaseUC := usecases.NewPurchaseUsecase(walletUC, settlementUC, purchaseRepo{w}, provider, chainCfg, exchangeCfg)
	exchangeUC := usecases.NewExchangeUsecase(custodialWalletRepo{w}, linkedWalletRepo{w}, ledgerBalanceRepo{w}, ledgerEntryRepo{w}, settlementRepo{w}, balanceCacheRepo{w}, passthroughUoW{}, provider, providerCfg, exchangeCfg)
	ledgerUC := usecases.NewLedgerUsecase(ledgerBalanceRepo{w}, ledgerEntryRepo{w})
	webhookUC := usecases.NewWebhookUsecase(settlementUC, providerCfg, serverCfg)

	paymentHandler := handlers.NewPaymentHandler(purchaseUC, exchangeUC, ledgerUC)
	walletHandler := handlers.NewWalletHandler(walletUC)
	webhookHandler := handlers.NewWebhookHandler(webhookUC)

	router := gin.New()
	router.Use(func(c *gin.Context) {
		if header := c.GetHeader("X-Test-User"); header != "" {
			userID, err := uuid.Parse(header)
			require.NoError(t, err)
			c.Set(middleware.UserIDKey, userID)
		}
		c.Next()
	})

	api := router.Group("/api/v1")
	api.POST("/payments/purchase", paymentHandler.PurchaseDiamond)
	api.POST("/payments/exchange", paymentHandler.Exchange)
	api.GET("/payments/history", paymentHandler.GetHistory)
	api.GET("/ledger/balance", paymentHandler.GetBalance)
	api.GET("/ledger/entries", paymentHandler.GetLedgerEntries)
	api.POST("/wallets", walletHandler.EnsureWallet)
	api.GET("/wallets", walletHandler.ListWallets)
	api.GET("/wallets/balance", walletHandler.GetBalance)
	api.POST("/wallets/link", walletHandler.LinkWallet)
	api.POST("/webhooks/provider", webhookHandler.HandleProviderWebhook)

	return router, w
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, userID uuid.UUID, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if userID != uuid.Nil {
		req.Header.Set("X-Test-User", userID.String())
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), "body: %s", rec.Body.String())
	return out
}
