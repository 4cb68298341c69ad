package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/azero-feed/internal/httpx"
	"github.com/azero-feed/internal/logging"
	"github.com/azero-feed/internal/models"
	"github.com/azero-feed/internal/types"
)

const defaultKucoinBaseURL = "https://api.kucoin.com"

// Kucoin parses the KuCoin market histories endpoint.
type Kucoin struct {
	client  *httpx.Client
	baseURL string
	log     *logrus.Entry
}

// NewKucoin creates the KuCoin parser.
func NewKucoin(log *logrus.Logger, opts ...httpx.Option) *Kucoin {
	return &Kucoin{
		client:  httpx.New(string(types.ExchangeKucoin), log, opts...),
		baseURL: defaultKucoinBaseURL,
		log:     logging.Component(log, "kucoin_parser"),
	}
}

// Exchange implements Parser.
func (p *Kucoin) Exchange() types.Exchange { return types.ExchangeKucoin }

// Pairs implements Parser.
func (p *Kucoin) Pairs() []Pair {
	return []Pair{{Primary: types.TokenAzero, Secondary: types.TokenUsdt}}
}

type kucoinEnvelope struct {
	Code string            `json:"code"`
	Data []json.RawMessage `json:"data"`
}

type kucoinTrade struct {
	Side  string `json:"side"`
	Size  string `json:"size"`
	Price string `json:"price"`
	Time  int64  `json:"time"`
}

// Parse implements Parser. The symbol is uppercase with a dash, e.g.
// AZERO-USDT. KuCoin reports trade time in nanoseconds.
func (p *Kucoin) Parse(ctx context.Context, pair Pair) ([]models.Trade, bool) {
	symbol := strings.ToUpper(fmt.Sprintf("%s-%s", pair.Primary, pair.Secondary))
	params := url.Values{"symbol": {symbol}}

	var envelope kucoinEnvelope
	if err := p.client.GetJSON(ctx, p.baseURL+"/api/v1/market/histories", params, &envelope); err != nil {
		p.log.WithError(err).WithField("symbol", symbol).Warn("histories request failed")
		return nil, false
	}
	if envelope.Code != "200000" {
		p.log.WithField("code", envelope.Code).WithField("symbol", symbol).Warn("histories request rejected")
		return nil, false
	}

	trades := mapElements(p.log, envelope.Data, func(raw json.RawMessage) (models.Trade, error) {
		var elem kucoinTrade
		if err := json.Unmarshal(raw, &elem); err != nil {
			return models.Trade{}, err
		}
		quantity, err := parseAmount(elem.Size)
		if err != nil {
			return models.Trade{}, fmt.Errorf("size: %w", err)
		}
		price, err := parseAmount(elem.Price)
		if err != nil {
			return models.Trade{}, fmt.Errorf("price: %w", err)
		}

		side := types.SideSell
		if elem.Side == "buy" {
			side = types.SideBuy
		}

		return models.Trade{
			Timestamp:      time.UnixMilli(elem.Time / int64(time.Millisecond)).UTC(),
			Quantity:       quantity,
			Price:          price,
			Side:           side,
			PrimaryToken:   pair.Primary,
			SecondaryToken: pair.Secondary,
			Exchange:       types.ExchangeKucoin,
		}, nil
	})
	return trades, true
}
