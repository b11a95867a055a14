package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"diamond-pay.backend/internal/domain/entities"
	domainerrors "diamond-pay.backend/internal/domain/errors"
	"diamond-pay.backend/internal/interfaces/http/middleware"
	"diamond-pay.backend/internal/interfaces/http/response"
	"diamond-pay.backend/internal/usecases"
	"diamond-pay.backend/pkg/utils"
)

// PaymentHandler handles purchase, exchange and history endpoints
type PaymentHandler struct {
	purchaseUsecase *usecases.PurchaseUsecase
	exchangeUsecase *usecases.ExchangeUsecase
	ledgerUsecase   *usecases.LedgerUsecase
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(
	purchaseUsecase *usecases.PurchaseUsecase,
	exchangeUsecase *usecases.ExchangeUsecase,
	ledgerUsecase *usecases.LedgerUsecase,
) *PaymentHandler {
	return &PaymentHandler{
		purchaseUsecase: purchaseUsecase,
		exchangeUsecase: exchangeUsecase,
		ledgerUsecase:   ledgerUsecase,
	}
}

// PurchaseDiamond handles POST /api/v1/payments/purchase
func (h *PaymentHandler) PurchaseDiamond(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Error(c, domainerrors.Unauthorized("authentication required"))
		return
	}

	var input entities.PurchaseDiamondInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, domainerrors.BadRequest("invalid request body"))
		return
	}

	result, err := h.purchaseUsecase.PurchaseDiamond(c.Request.Context(), userID, &input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusAccepted, result)
}

// Exchange handles POST /api/v1/payments/exchange
func (h *PaymentHandler) Exchange(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Error(c, domainerrors.Unauthorized("authentication required"))
		return
	}

	var input entities.ExchangeInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, domainerrors.BadRequest("invalid request body"))
		return
	}

	result, err := h.exchangeUsecase.ExchangeToStablecoin(c.Request.Context(), userID, &input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, result)
}

// GetHistory handles GET /api/v1/payments/history
func (h *PaymentHandler) GetHistory(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Error(c, domainerrors.Unauthorized("authentication required"))
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	records, err := h.purchaseUsecase.GetPaymentHistory(c.Request.Context(), userID, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"purchases": records})
}

// GetBalance handles GET /api/v1/ledger/balance
func (h *PaymentHandler) GetBalance(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Error(c, domainerrors.Unauthorized("authentication required"))
		return
	}

	balance, err := h.ledgerUsecase.GetBalance(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, balance)
}

// GetLedgerEntries handles GET /api/v1/ledger/entries
func (h *PaymentHandler) GetLedgerEntries(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Error(c, domainerrors.Unauthorized("authentication required"))
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	params := utils.GetPaginationParams(page, limit)

	entries, err := h.ledgerUsecase.GetEntries(c.Request.Context(), userID, params)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{
		"entries": entries,
		"page":    params.Page,
		"limit":   params.Limit,
	})
}
