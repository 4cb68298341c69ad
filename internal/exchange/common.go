// Package exchange polls public trade-history endpoints of centralized
// exchanges and normalizes their payloads into trade records. Each parser
// tolerates malformed elements: a trade that fails to decode is dropped and
// logged, the rest of the batch survives.
package exchange

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/azero-feed/internal/httpx"
	"github.com/azero-feed/internal/models"
	"github.com/azero-feed/internal/types"
)

// Pair is one market pair a parser polls.
type Pair struct {
	Primary   types.PrimaryToken
	Secondary types.SecondaryToken
}

// Parser fetches the recent public trades of one exchange. The boolean result
// is false when the exchange answered with a malformed or failed envelope, in
// which case the whole batch is discarded.
type Parser interface {
	Exchange() types.Exchange
	Pairs() []Pair
	Parse(ctx context.Context, pair Pair) ([]models.Trade, bool)
}

// All returns every supported parser. The httpx options are shared across
// parsers so callers can bound retries or inject a rate limit.
func All(log *logrus.Logger, opts ...httpx.Option) []Parser {
	return []Parser{
		NewMexc(log, opts...),
		NewKucoin(log, opts...),
		NewGate(log, opts...),
		NewCoinDCX(log, opts...),
	}
}

func parseAmount(s string) (float64, error) {
	return strconv.ParseFloat(s, 64)
}

// mapElements decodes each raw element with f, dropping elements that fail.
func mapElements(log *logrus.Entry, raw []json.RawMessage, f func(json.RawMessage) (models.Trade, error)) []models.Trade {
	trades := make([]models.Trade, 0, len(raw))
	for _, elem := range raw {
		trade, err := f(elem)
		if err != nil {
			log.WithError(err).Debug("skipping malformed trade element")
			continue
		}
		trade.SetHash()
		trades = append(trades, trade)
	}
	return trades
}
