package feed

import (
	"github.com/azero-feed/internal/models"
	"github.com/azero-feed/internal/types"
)

type tradeKey struct {
	unixMilli int64
	side      types.TradeSide
	exchange  types.Exchange
	secondary types.SecondaryToken
}

// aggregateTrades folds trades that landed in the same millisecond on the
// same exchange, side and quote token into one trade. The price of a group
// is the quantity-weighted mean, so the USD notional of the group equals the
// sum of its parts. Group order follows first appearance.
func aggregateTrades(trades []models.Trade) []models.Trade {
	index := make(map[tradeKey]int, len(trades))
	out := make([]models.Trade, 0, len(trades))

	for _, t := range trades {
		key := tradeKey{
			unixMilli: t.Timestamp.UTC().UnixMilli(),
			side:      t.Side,
			exchange:  t.Exchange,
			secondary: t.SecondaryToken,
		}

		i, ok := index[key]
		if !ok {
			index[key] = len(out)
			out = append(out, t)
			continue
		}

		group := &out[i]
		total := group.Quantity + t.Quantity
		if total > 0 {
			group.Price = (group.Price*group.Quantity + t.Price*t.Quantity) / total
		}
		group.Quantity = total
	}
	return out
}
