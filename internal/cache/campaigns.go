// Package cache provides the redis-backed view of currently active
// campaigns used on the pricing path.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dipta-sdd/campaignbay-sub001/internal/domain"
)

const activeCampaignsKey = "campaignbay:campaigns:active"

// ActiveCampaignCache caches the active-campaign list with a TTL. The
// lifecycle scheduler invalidates it on every status transition.
type ActiveCampaignCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewActiveCampaignCache builds the cache. A non-positive ttl defaults to
// one minute.
func NewActiveCampaignCache(client *redis.Client, ttl time.Duration, logger *slog.Logger) *ActiveCampaignCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &ActiveCampaignCache{client: client, ttl: ttl, logger: logger}
}

// Get returns the cached active-campaign list. The second return is false
// on a miss; a corrupt cached payload counts as a miss.
func (c *ActiveCampaignCache) Get(ctx context.Context) ([]domain.Campaign, bool, error) {
	raw, err := c.client.Get(ctx, activeCampaignsKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("get active campaigns from cache: %w", err)
	}

	var campaigns []domain.Campaign
	if err := json.Unmarshal(raw, &campaigns); err != nil {
		c.logger.WarnContext(ctx, "dropping corrupt active-campaign cache entry",
			slog.String("error", err.Error()))
		_ = c.client.Del(ctx, activeCampaignsKey).Err()
		return nil, false, nil
	}
	return campaigns, true, nil
}

// Set stores the active-campaign list with the configured TTL.
func (c *ActiveCampaignCache) Set(ctx context.Context, campaigns []domain.Campaign) error {
	raw, err := json.Marshal(campaigns)
	if err != nil {
		return fmt.Errorf("marshal active campaigns: %w", err)
	}
	if err := c.client.Set(ctx, activeCampaignsKey, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("set active campaigns in cache: %w", err)
	}
	return nil
}

// Invalidate drops the cached list.
func (c *ActiveCampaignCache) Invalidate(ctx context.Context) error {
	if err := c.client.Del(ctx, activeCampaignsKey).Err(); err != nil {
		return fmt.Errorf("invalidate active campaigns cache: %w", err)
	}
	return nil
}
