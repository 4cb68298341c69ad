package pipeline

import (
	"context"

	"github.com/azero-feed/internal/types"
)

// PriceCache is the optional short-lived cache in front of the trades store.
type PriceCache interface {
	Get(ctx context.Context, primary types.PrimaryToken, secondary types.SecondaryToken) (float64, bool)
	Set(ctx context.Context, primary types.PrimaryToken, secondary types.SecondaryToken, price float64) error
}

// CachedPrices reads through a cache before falling back to the trades store.
// A nil cache degrades to plain store reads.
type CachedPrices struct {
	source PriceSource
	cache  PriceCache
}

// NewCachedPrices wraps source with cache.
func NewCachedPrices(source PriceSource, cache PriceCache) *CachedPrices {
	return &CachedPrices{source: source, cache: cache}
}

// LatestPrice implements PriceSource.
func (p *CachedPrices) LatestPrice(ctx context.Context, primary types.PrimaryToken, secondary types.SecondaryToken) (float64, bool, error) {
	if p.cache != nil {
		if price, ok := p.cache.Get(ctx, primary, secondary); ok {
			return price, true, nil
		}
	}

	price, ok, err := p.source.LatestPrice(ctx, primary, secondary)
	if err != nil || !ok {
		return 0, false, err
	}

	if p.cache != nil {
		// cache write failures are harmless, next read falls through again
		_ = p.cache.Set(ctx, primary, secondary, price)
	}
	return price, true, nil
}
