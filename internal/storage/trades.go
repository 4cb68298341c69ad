// Package storage provides per-entity repositories over the document store,
// plus the Redis spot-price cache.
package storage

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/azero-feed/internal/models"
	"github.com/azero-feed/internal/store"
	"github.com/azero-feed/internal/types"
)

// RecordsTTL is the retention window for the time-series collections.
const RecordsTTL = 90 * 24 * time.Hour

// TradeRepository persists normalized exchange trades.
type TradeRepository struct {
	col *store.Collection[models.Trade]
}

// NewTradeRepository opens the trades collection.
func NewTradeRepository(c *store.Client, collection string, retry store.RetryPolicy, log *logrus.Logger) *TradeRepository {
	return &TradeRepository{col: store.NewCollection[models.Trade](c, collection, retry, log)}
}

// EnsureIndexes creates the unique hash index, the retention TTL index and
// the query indexes. Idempotent.
func (r *TradeRepository) EnsureIndexes(ctx context.Context) error {
	if err := r.col.EnsureIndex(ctx, bson.D{{Key: "hash", Value: 1}}, true, 0); err != nil {
		return err
	}
	if err := r.col.EnsureIndex(ctx, bson.D{{Key: "trade_timestamp", Value: 1}}, false, RecordsTTL); err != nil {
		return err
	}
	for _, field := range []string{"trade_side", "primary_token", "secondary_token", "exchange"} {
		if err := r.col.EnsureIndex(ctx, bson.D{{Key: field, Value: 1}}, false, 0); err != nil {
			return err
		}
	}
	return nil
}

// Import stores trades one by one; duplicates are dropped by the unique index.
func (r *TradeRepository) Import(ctx context.Context, trades []models.Trade) error {
	for _, t := range trades {
		if err := r.col.InsertOne(ctx, t); err != nil {
			return err
		}
	}
	return nil
}

// Window returns trades for the primary token inside [from, to), oldest first.
func (r *TradeRepository) Window(ctx context.Context, primary types.PrimaryToken, from, to time.Time) ([]models.Trade, error) {
	filter := bson.M{
		"primary_token": primary,
		"trade_timestamp": bson.M{
			"$gte": from,
			"$lt":  to,
		},
	}
	return r.col.Find(ctx, filter, bson.D{{Key: "trade_timestamp", Value: 1}})
}

// LatestPrice returns the most recent trade price for the pair. The second
// return is false when no trade for the pair is stored.
func (r *TradeRepository) LatestPrice(ctx context.Context, primary types.PrimaryToken, secondary types.SecondaryToken) (float64, bool, error) {
	filter := bson.M{
		"primary_token":   primary,
		"secondary_token": secondary,
	}
	trade, err := r.col.FindOne(ctx, filter, bson.D{{Key: "trade_timestamp", Value: -1}})
	if err != nil || trade == nil {
		return 0, false, err
	}
	return trade.Price, true, nil
}
