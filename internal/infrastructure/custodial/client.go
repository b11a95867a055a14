package custodial

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/shopspring/decimal"
	"diamond-pay.backend/internal/config"
	domainerrors "diamond-pay.backend/internal/domain/errors"
)

// TransferState represents the provider-reported state of a transfer
type TransferState string

const (
	TransferStateInitiated TransferState = "INITIATED"
	TransferStateSent      TransferState = "SENT"
	TransferStateComplete  TransferState = "COMPLETE"
	TransferStateFailed    TransferState = "FAILED"
)

// IsTerminal reports whether the provider will not change this state again
func (s TransferState) IsTerminal() bool {
	return s == TransferStateComplete || s == TransferStateFailed
}

// Wallet is a provider-hosted wallet
type Wallet struct {
	ID          string
	WalletSetID string
	Address     string
	Chain       string
	State       string
}

// Transfer is a provider transfer and its lifecycle state
type Transfer struct {
	ID          string
	State       TransferState
	ChainTxHash string
	ErrorReason string
}

// TransferRequest describes an outbound token transfer
type TransferRequest struct {
	WalletID           string
	DestinationAddress string
	Amount             string
	TokenSymbol        string
	RefID              string
}

// Client is the narrow contract this engine depends on from the
// wallet-as-a-service provider.
type Client interface {
	CreateWalletSet(ctx context.Context, name string) (string, error)
	CreateWallet(ctx context.Context, walletSetID, chain string) (*Wallet, error)
	GetTokenBalance(ctx context.Context, walletID, tokenSymbol string) (decimal.Decimal, error)
	CreateTransfer(ctx context.Context, req TransferRequest) (*Transfer, error)
	GetTransaction(ctx context.Context, providerTxID string) (*Transfer, error)
	LookupWalletByAddress(ctx context.Context, address string) (*Wallet, error)
}

// HTTPClient implements Client against the provider's REST API. Every
// response is decoded into an explicit struct and validated; anything
// with a missing id or state is treated as ErrProviderUnavailable
// rather than read optimistically.
type HTTPClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewHTTPClient creates a provider client from configuration
func NewHTTPClient(cfg config.ProviderConfig) *HTTPClient {
	return &HTTPClient{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: cfg.Timeout},
	}
}

type walletSetResponse struct {
	WalletSet struct {
		ID string `json:"id"`
	} `json:"walletSet"`
}

type walletResponse struct {
	Wallet walletPayload `json:"wallet"`
}

type walletListResponse struct {
	Wallets []walletPayload `json:"wallets"`
}

type walletPayload struct {
	ID          string `json:"id"`
	WalletSetID string `json:"walletSetId"`
	Address     string `json:"address"`
	Blockchain  string `json:"blockchain"`
	State       string `json:"state"`
}

type balanceResponse struct {
	TokenBalances []struct {
		Token struct {
			Symbol string `json:"symbol"`
		} `json:"token"`
		Amount string `json:"amount"`
	} `json:"tokenBalances"`
}

type transferResponse struct {
	Transaction transactionPayload `json:"transaction"`
}

type transactionPayload struct {
	ID          string `json:"id"`
	State       string `json:"state"`
	TxHash      string `json:"txHash"`
	ErrorReason string `json:"errorReason"`
}

// CreateWalletSet creates a wallet set and returns its id
func (c *HTTPClient) CreateWalletSet(ctx context.Context, name string) (string, error) {
	var resp walletSetResponse
	if err := c.do(ctx, http.MethodPost, "/v1/walletSets", map[string]string{"name": name}, &resp); err != nil {
		return "", err
	}
	if resp.WalletSet.ID == "" {
		return "", fmt.Errorf("%w: wallet set response missing id", domainerrors.ErrProviderUnavailable)
	}
	return resp.WalletSet.ID, nil
}

// CreateWallet creates a wallet inside a wallet set
func (c *HTTPClient) CreateWallet(ctx context.Context, walletSetID, chain string) (*Wallet, error) {
	body := map[string]interface{}{
		"walletSetId": walletSetID,
		"blockchains": []string{chain},
	}
	var resp walletResponse
	if err := c.do(ctx, http.MethodPost, "/v1/wallets", body, &resp); err != nil {
		return nil, err
	}
	return walletFromPayload(resp.Wallet)
}

// GetTokenBalance reads the live token balance of a wallet
func (c *HTTPClient) GetTokenBalance(ctx context.Context, walletID, tokenSymbol string) (decimal.Decimal, error) {
	var resp balanceResponse
	path := "/v1/wallets/" + url.PathEscape(walletID) + "/balances"
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return decimal.Zero, err
	}
	for _, tb := range resp.TokenBalances {
		if tb.Token.Symbol != tokenSymbol {
			continue
		}
		amount, err := decimal.NewFromString(tb.Amount)
		if err != nil {
			return decimal.Zero, fmt.Errorf("%w: unparseable balance %q", domainerrors.ErrProviderUnavailable, tb.Amount)
		}
		return amount, nil
	}
	// The provider omits tokens the wallet never held.
	return decimal.Zero, nil
}

// CreateTransfer initiates an outbound transfer and returns the
// provider transaction
func (c *HTTPClient) CreateTransfer(ctx context.Context, req TransferRequest) (*Transfer, error) {
	body := map[string]interface{}{
		"walletId":           req.WalletID,
		"destinationAddress": req.DestinationAddress,
		"amounts":            []string{req.Amount},
		"tokenSymbol":        req.TokenSymbol,
	}
	if req.RefID != "" {
		body["refId"] = req.RefID
	}
	var resp transferResponse
	if err := c.do(ctx, http.MethodPost, "/v1/transfers", body, &resp); err != nil {
		return nil, err
	}
	return transferFromPayload(resp.Transaction)
}

// GetTransaction reads the current state of a provider transaction
func (c *HTTPClient) GetTransaction(ctx context.Context, providerTxID string) (*Transfer, error) {
	var resp transferResponse
	path := "/v1/transactions/" + url.PathEscape(providerTxID)
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return transferFromPayload(resp.Transaction)
}

// LookupWalletByAddress resolves a provider wallet from its chain
// address (used for treasury resolution)
func (c *HTTPClient) LookupWalletByAddress(ctx context.Context, address string) (*Wallet, error) {
	var resp walletListResponse
	path := "/v1/wallets?address=" + url.QueryEscape(address)
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	if len(resp.Wallets) == 0 {
		return nil, domainerrors.ErrNotFound
	}
	return walletFromPayload(resp.Wallets[0])
}

func walletFromPayload(p walletPayload) (*Wallet, error) {
	if p.ID == "" || p.Address == "" {
		return nil, fmt.Errorf("%w: wallet response missing id or address", domainerrors.ErrProviderUnavailable)
	}
	return &Wallet{
		ID:          p.ID,
		WalletSetID: p.WalletSetID,
		Address:     p.Address,
		Chain:       p.Blockchain,
		State:       p.State,
	}, nil
}

func transferFromPayload(p transactionPayload) (*Transfer, error) {
	if p.ID == "" || p.State == "" {
		return nil, fmt.Errorf("%w: transaction response missing id or state", domainerrors.ErrProviderUnavailable)
	}
	return &Transfer{
		ID:          p.ID,
		State:       TransferState(p.State),
		ChainTxHash: p.TxHash,
		ErrorReason: p.ErrorReason,
	}, nil
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domainerrors.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%w: %v", domainerrors.ErrProviderUnavailable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: provider returned %d: %s", domainerrors.ErrProviderUnavailable, resp.StatusCode, truncate(string(raw), 200))
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("%w: undecodable response: %v", domainerrors.ErrProviderUnavailable, err)
		}
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

var _ Client = (*HTTPClient)(nil)
