package storage

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/azero-feed/internal/config"
	"github.com/azero-feed/internal/types"
)

// priceTTL keeps cached spot prices fresh enough for USD valuation while
// sparing a store round-trip on every enrichment cycle.
const priceTTL = time.Minute

// PriceCache is a Redis-backed cache of the latest spot price per pair.
type PriceCache struct {
	client *redis.Client
}

// NewPriceCache connects to Redis and verifies connectivity.
func NewPriceCache(cfg config.RedisConfig) (*PriceCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &PriceCache{client: client}, nil
}

// Close closes the Redis connection.
func (c *PriceCache) Close() error {
	return c.client.Close()
}

// Get returns the cached price for the pair; the second return is false on a
// cache miss.
func (c *PriceCache) Get(ctx context.Context, primary types.PrimaryToken, secondary types.SecondaryToken) (float64, bool) {
	raw, err := c.client.Get(ctx, priceKey(primary, secondary)).Result()
	if err != nil {
		return 0, false
	}
	price, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return price, true
}

// Set caches the price for the pair with the standard TTL.
func (c *PriceCache) Set(ctx context.Context, primary types.PrimaryToken, secondary types.SecondaryToken, price float64) error {
	return c.client.Set(ctx, priceKey(primary, secondary), strconv.FormatFloat(price, 'f', -1, 64), priceTTL).Err()
}

func priceKey(primary types.PrimaryToken, secondary types.SecondaryToken) string {
	return fmt.Sprintf("price:spot:%s_%s", primary, secondary)
}
