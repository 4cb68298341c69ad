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

const (
	defaultCoinDCXBaseURL = "https://public.coindcx.com"
	coinDCXHistoryLimit   = "500"
)

// CoinDCX parses the CoinDCX public trade history endpoint. CoinDCX routes
// the AZERO market through KuCoin, hence the KC- pair prefix.
type CoinDCX struct {
	client  *httpx.Client
	baseURL string
	log     *logrus.Entry
}

// NewCoinDCX creates the CoinDCX parser.
func NewCoinDCX(log *logrus.Logger, opts ...httpx.Option) *CoinDCX {
	return &CoinDCX{
		client:  httpx.New(string(types.ExchangeCoinDCX), log, opts...),
		baseURL: defaultCoinDCXBaseURL,
		log:     logging.Component(log, "coindcx_parser"),
	}
}

// Exchange implements Parser.
func (p *CoinDCX) Exchange() types.Exchange { return types.ExchangeCoinDCX }

// Pairs implements Parser.
func (p *CoinDCX) Pairs() []Pair {
	return []Pair{{Primary: types.TokenAzero, Secondary: types.TokenUsdt}}
}

type coinDCXTrade struct {
	Price    string `json:"p"`
	Quantity string `json:"q"`
	Time     int64  `json:"T"`
	IsSell   bool   `json:"m"`
}

// Parse implements Parser.
func (p *CoinDCX) Parse(ctx context.Context, pair Pair) ([]models.Trade, bool) {
	pairSymbol := strings.ToUpper(fmt.Sprintf("KC-%s-%s", pair.Primary, pair.Secondary))
	params := url.Values{
		"pair":  {pairSymbol},
		"limit": {coinDCXHistoryLimit},
	}

	var data []json.RawMessage
	if err := p.client.GetJSON(ctx, p.baseURL+"/market_data/trade_history", params, &data); err != nil {
		p.log.WithError(err).WithField("pair", pairSymbol).Warn("trade history request failed")
		return nil, false
	}

	trades := mapElements(p.log, data, func(raw json.RawMessage) (models.Trade, error) {
		var elem coinDCXTrade
		if err := json.Unmarshal(raw, &elem); err != nil {
			return models.Trade{}, err
		}
		quantity, err := parseAmount(elem.Quantity)
		if err != nil {
			return models.Trade{}, fmt.Errorf("q: %w", err)
		}
		price, err := parseAmount(elem.Price)
		if err != nil {
			return models.Trade{}, fmt.Errorf("p: %w", err)
		}

		side := types.SideBuy
		if elem.IsSell {
			side = types.SideSell
		}

		return models.Trade{
			Timestamp:      time.UnixMilli(elem.Time).UTC(),
			Quantity:       quantity,
			Price:          price,
			Side:           side,
			PrimaryToken:   pair.Primary,
			SecondaryToken: pair.Secondary,
			Exchange:       types.ExchangeCoinDCX,
		}, nil
	})
	return trades, true
}
