package usecases

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"

	"go.uber.org/zap"
	"diamond-pay.backend/internal/config"
	"diamond-pay.backend/internal/domain/entities"
	domainerrors "diamond-pay.backend/internal/domain/errors"
	"diamond-pay.backend/pkg/logger"
	"diamond-pay.backend/pkg/metrics"
)

// Provider webhook notification types this engine reacts to, in
// canonical singular form. Deliveries also arrive with pluralized types
// ("transactions.confirmed"); eventType folds those in. Anything else
// is acknowledged and dropped.
const (
	webhookTypeConfirmed = "transaction.confirmed"
	webhookTypeFailed    = "transaction.failed"
	webhookTypeSent      = "transaction.sent"
)

type webhookTransaction struct {
	ID          string `json:"id"`
	State       string `json:"state"`
	TxHash      string `json:"txHash"`
	ErrorReason string `json:"errorReason"`
}

type webhookPayload struct {
	Transaction webhookTransaction `json:"transaction"`
}

// webhookEnvelope is the provider's notification payload. The provider
// has shipped two key spellings of the same envelope, `{type, data}`
// and `{notificationType, notification}`; both are bound and the
// accessors below pick whichever is populated.
type webhookEnvelope struct {
	Type             string         `json:"type"`
	NotificationType string         `json:"notificationType"`
	Data             webhookPayload `json:"data"`
	Notification     webhookPayload `json:"notification"`
}

func (e *webhookEnvelope) eventType() string {
	t := e.Type
	if t == "" {
		t = e.NotificationType
	}
	return strings.Replace(t, "transactions.", "transaction.", 1)
}

func (e *webhookEnvelope) transaction() webhookTransaction {
	if e.Data.Transaction.ID != "" {
		return e.Data.Transaction
	}
	return e.Notification.Transaction
}

// WebhookUsecase verifies and processes provider webhook deliveries.
// Processing is idempotent end to end, so the provider may redeliver
// freely; the handler always acknowledges verified payloads even when
// the referenced settlement is unknown.
type WebhookUsecase struct {
	settlement    *SettlementUsecase
	webhookSecret string
	enforce       bool
}

// NewWebhookUsecase creates a new webhook usecase. Signature
// verification is skipped outside production when no secret is set, so
// local setups can post test events by hand.
func NewWebhookUsecase(settlement *SettlementUsecase, providerCfg config.ProviderConfig, serverCfg config.ServerConfig) *WebhookUsecase {
	enforce := providerCfg.WebhookSecret != "" || serverCfg.IsProduction()
	return &WebhookUsecase{
		settlement:    settlement,
		webhookSecret: providerCfg.WebhookSecret,
		enforce:       enforce,
	}
}

// VerifySignature checks the HMAC-SHA256 signature of the raw request
// body. The comparison is constant-time.
func (u *WebhookUsecase) VerifySignature(rawBody []byte, signature string) error {
	if !u.enforce {
		return nil
	}
	if signature == "" || u.webhookSecret == "" {
		return domainerrors.ErrInvalidSignature
	}

	mac := hmac.New(sha256.New, []byte(u.webhookSecret))
	mac.Write(rawBody)
	expected := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return domainerrors.ErrInvalidSignature
	}
	return nil
}

// ProcessEvent parses and applies one webhook delivery. Unknown
// notification types, non-terminal states and malformed payloads all
// return nil so the provider gets its ack and stops redelivering;
// redelivery cannot fix a payload the parser rejects.
func (u *WebhookUsecase) ProcessEvent(ctx context.Context, rawBody []byte) error {
	var envelope webhookEnvelope
	if err := json.Unmarshal(rawBody, &envelope); err != nil {
		logger.Warn(ctx, "undecodable webhook payload", zap.Error(err))
		metrics.WebhookEvents.WithLabelValues("undecodable").Inc()
		return nil
	}

	eventType := envelope.eventType()
	tx := envelope.transaction()
	if tx.ID == "" {
		logger.Warn(ctx, "webhook payload missing transaction id",
			zap.String("type", eventType))
		metrics.WebhookEvents.WithLabelValues("missing_tx_id").Inc()
		return nil
	}

	metrics.WebhookEvents.WithLabelValues(eventType).Inc()

	switch eventType {
	case webhookTypeConfirmed:
		return u.settlement.ApplyConfirmed(ctx, tx.ID, tx.TxHash, entities.SettlementChannelWebhook)
	case webhookTypeFailed:
		return u.settlement.ApplyFailed(ctx, tx.ID, tx.ErrorReason, entities.SettlementChannelWebhook)
	case webhookTypeSent:
		// Intermediate state; the settlement stays PENDING until a
		// terminal notification or the chain poller sees the log.
		logger.Debug(ctx, "transfer sent on chain",
			zap.String("provider_tx_id", tx.ID),
			zap.String("chain_tx_hash", tx.TxHash))
		return nil
	default:
		logger.Debug(ctx, "ignoring webhook notification type",
			zap.String("type", eventType))
		return nil
	}
}
