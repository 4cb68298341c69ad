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

const defaultMexcBaseURL = "https://www.mexc.com"

// Mexc parses the MEXC open API market deals endpoint. MEXC is the only
// exchange where the AZERO/USDC pair trades, so it polls two pairs.
type Mexc struct {
	client  *httpx.Client
	baseURL string
	log     *logrus.Entry
}

// NewMexc creates the MEXC parser.
func NewMexc(log *logrus.Logger, opts ...httpx.Option) *Mexc {
	return &Mexc{
		client:  httpx.New(string(types.ExchangeMexc), log, opts...),
		baseURL: defaultMexcBaseURL,
		log:     logging.Component(log, "mexc_parser"),
	}
}

// Exchange implements Parser.
func (p *Mexc) Exchange() types.Exchange { return types.ExchangeMexc }

// Pairs implements Parser.
func (p *Mexc) Pairs() []Pair {
	return []Pair{
		{Primary: types.TokenAzero, Secondary: types.TokenUsdt},
		{Primary: types.TokenAzero, Secondary: types.TokenUsdc},
	}
}

type mexcEnvelope struct {
	Code int               `json:"code"`
	Data []json.RawMessage `json:"data"`
}

type mexcTrade struct {
	TradeTime     int64  `json:"trade_time"`
	TradeQuantity string `json:"trade_quantity"`
	TradePrice    string `json:"trade_price"`
	TradeType     string `json:"trade_type"`
}

// Parse implements Parser. The symbol is lowercase with an underscore, e.g.
// azero_usdt.
func (p *Mexc) Parse(ctx context.Context, pair Pair) ([]models.Trade, bool) {
	symbol := strings.ToLower(fmt.Sprintf("%s_%s", pair.Primary, pair.Secondary))
	params := url.Values{"symbol": {symbol}}

	var envelope mexcEnvelope
	if err := p.client.GetJSON(ctx, p.baseURL+"/open/api/v2/market/deals", params, &envelope); err != nil {
		p.log.WithError(err).WithField("symbol", symbol).Warn("deals request failed")
		return nil, false
	}
	if envelope.Code != 200 {
		p.log.WithField("code", envelope.Code).WithField("symbol", symbol).Warn("deals request rejected")
		return nil, false
	}

	trades := mapElements(p.log, envelope.Data, func(raw json.RawMessage) (models.Trade, error) {
		var elem mexcTrade
		if err := json.Unmarshal(raw, &elem); err != nil {
			return models.Trade{}, err
		}
		quantity, err := parseAmount(elem.TradeQuantity)
		if err != nil {
			return models.Trade{}, fmt.Errorf("trade_quantity: %w", err)
		}
		price, err := parseAmount(elem.TradePrice)
		if err != nil {
			return models.Trade{}, fmt.Errorf("trade_price: %w", err)
		}

		side := types.SideSell
		if elem.TradeType == "BID" {
			side = types.SideBuy
		}

		return models.Trade{
			Timestamp:      time.UnixMilli(elem.TradeTime).UTC(),
			Quantity:       quantity,
			Price:          price,
			Side:           side,
			PrimaryToken:   pair.Primary,
			SecondaryToken: pair.Secondary,
			Exchange:       types.ExchangeMexc,
		}, nil
	})
	return trades, true
}
