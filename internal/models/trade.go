// Package models defines the persisted record shapes and their content hashes.
package models

import (
	"fmt"
	"time"

	"github.com/azero-feed/internal/types"
)

// Trade is one exchange market trade, normalized from an exchange-specific payload.
// Records are immutable once the hash is set; the trades collection enforces
// uniqueness on Hash and expires records via a TTL index on Timestamp.
type Trade struct {
	Hash           string               `bson:"hash" json:"hash"`
	Timestamp      time.Time            `bson:"trade_timestamp" json:"tradeTimestamp"`
	Quantity       float64              `bson:"trade_quantity" json:"tradeQuantity"`
	Price          float64              `bson:"trade_price" json:"tradePrice"`
	Side           types.TradeSide      `bson:"trade_side" json:"tradeSide"`
	PrimaryToken   types.PrimaryToken   `bson:"primary_token" json:"primaryToken"`
	SecondaryToken types.SecondaryToken `bson:"secondary_token" json:"secondaryToken"`
	Exchange       types.Exchange       `bson:"exchange" json:"exchange"`
}

// ComputeHash returns the deterministic digest of the trade identity tuple.
// Two trades with equal timestamp, quantity, price, side, pair and exchange
// always hash identically, which is what the unique index dedups on.
func (t *Trade) ComputeHash() string {
	return digest(fmt.Sprintf("%d_%s_%s_%s_%s_%s_%s",
		t.Timestamp.UTC().UnixMilli(),
		formatAmount(t.Quantity),
		formatAmount(t.Price),
		t.Side,
		t.PrimaryToken,
		t.SecondaryToken,
		t.Exchange,
	))
}

// SetHash stamps the record with its content hash.
func (t *Trade) SetHash() {
	t.Hash = t.ComputeHash()
}

// AmountUSD returns the trade's quote-side notional value.
func (t *Trade) AmountUSD() float64 {
	return t.Quantity * t.Price
}
