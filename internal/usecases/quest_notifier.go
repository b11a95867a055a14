package usecases

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"diamond-pay.backend/internal/config"
	"diamond-pay.backend/pkg/logger"
)

// QuestNotifier notifies the quest-progress service about currency
// purchases. Calls are fire-and-forget: implementations log failures
// and never return them, so a quest outage can't roll back a
// settlement.
type QuestNotifier interface {
	NotifyDiamondPurchase(ctx context.Context, userID uuid.UUID, amount int64, isPlatformLinked bool)
	NotifyGoldPurchase(ctx context.Context, userID uuid.UUID, amount int64, isPlatformLinked bool)
}

// HTTPQuestNotifier posts purchase notifications to the quest service
type HTTPQuestNotifier struct {
	baseURL string
	http    *http.Client
}

// NewHTTPQuestNotifier creates a quest notifier from configuration
func NewHTTPQuestNotifier(cfg config.QuestConfig) *HTTPQuestNotifier {
	return &HTTPQuestNotifier{
		baseURL: cfg.BaseURL,
		http:    &http.Client{Timeout: cfg.Timeout},
	}
}

type questNotification struct {
	UserID           string `json:"userId"`
	Amount           int64  `json:"amount"`
	IsPlatformLinked bool   `json:"isPlatformLinked"`
}

// NotifyDiamondPurchase reports a completed Diamond purchase
func (n *HTTPQuestNotifier) NotifyDiamondPurchase(ctx context.Context, userID uuid.UUID, amount int64, isPlatformLinked bool) {
	n.post(ctx, "/internal/v1/quests/diamond-purchase", questNotification{
		UserID:           userID.String(),
		Amount:           amount,
		IsPlatformLinked: isPlatformLinked,
	})
}

// NotifyGoldPurchase reports a completed Gold purchase
func (n *HTTPQuestNotifier) NotifyGoldPurchase(ctx context.Context, userID uuid.UUID, amount int64, isPlatformLinked bool) {
	n.post(ctx, "/internal/v1/quests/gold-purchase", questNotification{
		UserID:           userID.String(),
		Amount:           amount,
		IsPlatformLinked: isPlatformLinked,
	})
}

func (n *HTTPQuestNotifier) post(ctx context.Context, path string, payload questNotification) {
	raw, err := json.Marshal(payload)
	if err != nil {
		logger.Warn(ctx, "quest notification marshal failed", zap.Error(err))
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		logger.Warn(ctx, "quest notification request failed", zap.Error(err))
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.http.Do(req)
	if err != nil {
		logger.Warn(ctx, "quest notification delivery failed",
			zap.String("path", path), zap.Error(err))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		logger.Warn(ctx, "quest service rejected notification",
			zap.String("path", path), zap.Int("status", resp.StatusCode))
	}
}

var _ QuestNotifier = (*HTTPQuestNotifier)(nil)
