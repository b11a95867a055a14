package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/google/uuid"
	"diamond-pay.backend/internal/domain/entities"
	domainerrors "diamond-pay.backend/internal/domain/errors"
	"diamond-pay.backend/pkg/redis"
)

const balanceCacheKeyPrefix = "balance:"

// BalanceCacheRepository stores the last known stablecoin balance per
// user in Redis. Entries never expire: a stale balance is still the
// fallback when the provider is down.
type BalanceCacheRepository struct{}

// NewBalanceCacheRepository creates a new balance cache repository
func NewBalanceCacheRepository() *BalanceCacheRepository {
	return &BalanceCacheRepository{}
}

type balanceCachePayload struct {
	ProviderWalletID string    `json:"providerWalletId"`
	Balance          string    `json:"balance"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// Get returns the cached balance for a user, or ErrNotFound
func (r *BalanceCacheRepository) Get(ctx context.Context, userID uuid.UUID) (*entities.BalanceCache, error) {
	raw, err := redis.Get(ctx, balanceCacheKeyPrefix+userID.String())
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, err
	}
	var payload balanceCachePayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, err
	}
	return &entities.BalanceCache{
		UserID:           userID,
		ProviderWalletID: payload.ProviderWalletID,
		Balance:          payload.Balance,
		UpdatedAt:        payload.UpdatedAt,
	}, nil
}

// Set overwrites the cached balance for a user
func (r *BalanceCacheRepository) Set(ctx context.Context, cache *entities.BalanceCache) error {
	payload := balanceCachePayload{
		ProviderWalletID: cache.ProviderWalletID,
		Balance:          cache.Balance,
		UpdatedAt:        cache.UpdatedAt,
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return redis.Set(ctx, balanceCacheKeyPrefix+cache.UserID.String(), string(raw), 0)
}
