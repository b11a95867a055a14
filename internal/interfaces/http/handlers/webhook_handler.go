package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"diamond-pay.backend/internal/interfaces/http/response"
	"diamond-pay.backend/internal/usecases"
	"diamond-pay.backend/pkg/logger"
)

// maxWebhookBody caps how much of a webhook request body is read
const maxWebhookBody = 1 << 20

// SignatureHeader carries the provider's HMAC-SHA256 hex signature
const SignatureHeader = "X-Provider-Signature"

// WebhookHandler receives provider webhook deliveries
type WebhookHandler struct {
	webhookUsecase *usecases.WebhookUsecase
}

// NewWebhookHandler creates a new webhook handler
func NewWebhookHandler(webhookUsecase *usecases.WebhookUsecase) *WebhookHandler {
	return &WebhookHandler{webhookUsecase: webhookUsecase}
}

// HandleProviderWebhook handles POST /webhooks/provider.
//
// Verified deliveries are always acknowledged with 200, even when the
// payload is malformed, the referenced settlement is unknown, or
// processing fails: the provider retries on non-2xx, processing is
// idempotent, and a payload that cannot be parsed today cannot be
// parsed on redelivery either, so failures are logged and recovered by
// the reconciliation sweep instead of a retry storm.
func (h *WebhookHandler) HandleProviderWebhook(c *gin.Context) {
	rawBody, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "unreadable request body")
		return
	}

	signature := c.GetHeader(SignatureHeader)
	if err := h.webhookUsecase.VerifySignature(rawBody, signature); err != nil {
		logger.Warn(c.Request.Context(), "webhook signature rejected", zap.Error(err))
		response.Error(c, err)
		return
	}

	if err := h.webhookUsecase.ProcessEvent(c.Request.Context(), rawBody); err != nil {
		logger.Error(c.Request.Context(), "webhook processing failed", zap.Error(err))
	}

	response.Success(c, http.StatusOK, gin.H{"received": true})
}
