package models

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/azero-feed/internal/types"
)

func TestTradeHashProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("hash is stable under recomputation", prop.ForAll(
		func(millis int64, quantity, price float64) bool {
			tr := Trade{
				Timestamp:      time.UnixMilli(millis).UTC(),
				Quantity:       quantity,
				Price:          price,
				Side:           types.SideBuy,
				PrimaryToken:   types.TokenAzero,
				SecondaryToken: types.TokenUsdt,
				Exchange:       types.ExchangeKucoin,
			}
			return tr.ComputeHash() == tr.ComputeHash()
		},
		gen.Int64Range(0, 4102444800000),
		gen.Float64Range(0.000001, 1e9),
		gen.Float64Range(0.000001, 1e6),
	))

	properties.Property("quantity change always changes the hash", prop.ForAll(
		func(millis int64, quantity float64) bool {
			tr := Trade{
				Timestamp:      time.UnixMilli(millis).UTC(),
				Quantity:       quantity,
				Price:          1.5,
				Side:           types.SideSell,
				PrimaryToken:   types.TokenAzero,
				SecondaryToken: types.TokenUsdt,
				Exchange:       types.ExchangeGate,
			}
			other := tr
			other.Quantity = quantity + 1
			return tr.ComputeHash() != other.ComputeHash()
		},
		gen.Int64Range(0, 4102444800000),
		gen.Float64Range(0.000001, 1e9),
	))

	properties.TestingRun(t)
}
