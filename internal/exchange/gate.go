package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/azero-feed/internal/httpx"
	"github.com/azero-feed/internal/logging"
	"github.com/azero-feed/internal/models"
	"github.com/azero-feed/internal/types"
)

const defaultGateBaseURL = "https://api.gateio.ws"

// Gate parses the Gate.io spot trades endpoint. The endpoint answers with a
// bare array; an empty array is treated as a failed poll so the cycle retries
// later instead of importing nothing.
type Gate struct {
	client  *httpx.Client
	baseURL string
	log     *logrus.Entry
}

// NewGate creates the Gate.io parser.
func NewGate(log *logrus.Logger, opts ...httpx.Option) *Gate {
	return &Gate{
		client:  httpx.New(string(types.ExchangeGate), log, opts...),
		baseURL: defaultGateBaseURL,
		log:     logging.Component(log, "gate_parser"),
	}
}

// Exchange implements Parser.
func (p *Gate) Exchange() types.Exchange { return types.ExchangeGate }

// Pairs implements Parser.
func (p *Gate) Pairs() []Pair {
	return []Pair{{Primary: types.TokenAzero, Secondary: types.TokenUsdt}}
}

type gateTrade struct {
	Side         string `json:"side"`
	Amount       string `json:"amount"`
	Price        string `json:"price"`
	CreateTimeMs string `json:"create_time_ms"`
}

// Parse implements Parser. The currency pair is uppercase with an underscore,
// e.g. AZERO_USDT. create_time_ms is a stringified float of milliseconds.
func (p *Gate) Parse(ctx context.Context, pair Pair) ([]models.Trade, bool) {
	currencyPair := strings.ToUpper(fmt.Sprintf("%s_%s", pair.Primary, pair.Secondary))
	params := url.Values{"currency_pair": {currencyPair}}

	var data []json.RawMessage
	if err := p.client.GetJSON(ctx, p.baseURL+"/api/v4/spot/trades", params, &data); err != nil {
		p.log.WithError(err).WithField("currency_pair", currencyPair).Warn("trades request failed")
		return nil, false
	}
	if len(data) == 0 {
		p.log.WithField("currency_pair", currencyPair).Warn("trades response empty")
		return nil, false
	}

	trades := mapElements(p.log, data, func(raw json.RawMessage) (models.Trade, error) {
		var elem gateTrade
		if err := json.Unmarshal(raw, &elem); err != nil {
			return models.Trade{}, err
		}
		millis, err := parseAmount(elem.CreateTimeMs)
		if err != nil {
			return models.Trade{}, fmt.Errorf("create_time_ms: %w", err)
		}
		quantity, err := parseAmount(elem.Amount)
		if err != nil {
			return models.Trade{}, fmt.Errorf("amount: %w", err)
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
			Timestamp:      time.UnixMilli(int64(math.Round(millis))).UTC(),
			Quantity:       quantity,
			Price:          price,
			Side:           side,
			PrimaryToken:   pair.Primary,
			SecondaryToken: pair.Secondary,
			Exchange:       types.ExchangeGate,
		}, nil
	})
	return trades, true
}
