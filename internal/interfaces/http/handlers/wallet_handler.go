package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"diamond-pay.backend/internal/domain/entities"
	domainerrors "diamond-pay.backend/internal/domain/errors"
	"diamond-pay.backend/internal/interfaces/http/middleware"
	"diamond-pay.backend/internal/interfaces/http/response"
	"diamond-pay.backend/internal/usecases"
)

// WalletHandler handles wallet provisioning, balance and linking
type WalletHandler struct {
	walletUsecase *usecases.WalletUsecase
}

// NewWalletHandler creates a new wallet handler
func NewWalletHandler(walletUsecase *usecases.WalletUsecase) *WalletHandler {
	return &WalletHandler{walletUsecase: walletUsecase}
}

// EnsureWallet handles POST /api/v1/wallets
func (h *WalletHandler) EnsureWallet(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Error(c, domainerrors.Unauthorized("authentication required"))
		return
	}

	// The body is optional; an empty one provisions on the default chain.
	var input entities.EnsureWalletInput
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&input); err != nil {
			response.Error(c, domainerrors.BadRequest("invalid request body"))
			return
		}
	}

	wallet, err := h.walletUsecase.EnsureWallet(c.Request.Context(), userID, input.Chain)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, wallet)
}

// GetBalance handles GET /api/v1/wallets/balance
func (h *WalletHandler) GetBalance(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Error(c, domainerrors.Unauthorized("authentication required"))
		return
	}

	balance, err := h.walletUsecase.GetBalance(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, balance)
}

// LinkWallet handles POST /api/v1/wallets/link
func (h *WalletHandler) LinkWallet(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Error(c, domainerrors.Unauthorized("authentication required"))
		return
	}

	var input entities.LinkWalletInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, domainerrors.BadRequest("invalid request body"))
		return
	}

	wallet, err := h.walletUsecase.LinkExternalWallet(c.Request.Context(), userID, &input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, wallet)
}

// ListWallets handles GET /api/v1/wallets
func (h *WalletHandler) ListWallets(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Error(c, domainerrors.Unauthorized("authentication required"))
		return
	}

	custodialWallet, linked, err := h.walletUsecase.ListWallets(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{
		"custodialWallet": custodialWallet,
		"linkedWallets":   linked,
	})
}
