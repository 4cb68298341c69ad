package feed

import (
	"fmt"
	"math"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/azero-feed/internal/models"
	"github.com/azero-feed/internal/types"
)

const (
	explorerAccountURL   = "https://alephzero.subscan.io/account/"
	explorerExtrinsicURL = "https://alephzero.subscan.io/extrinsic/"

	advertisement = "[🅰️ Stake with Azero Is Life Validator to support the feed development](https://azero.live/validator?address=5DEu6VG3WkJ1rdPadU4SffSse4sodA5PUE4apnw74c451Lak)"

	circlesPerUSD = 1000.0
	minCircles    = 1
	maxCircles    = 500
)

var printer = message.NewPrinter(language.English)

// formatWhole renders a floored amount with thousand separators.
func formatWhole(f float64) string {
	return printer.Sprintf("%d", int64(math.Floor(f)))
}

// circles renders one emoji per thousand dollars, clamped so small trades
// still show a dot and huge ones stay within message limits.
func circles(circle string, amountUSD float64) string {
	n := int(math.Floor(amountUSD / circlesPerUSD))
	if n < minCircles {
		n = minCircles
	}
	if n > maxCircles {
		n = maxCircles
	}
	return strings.Repeat(circle, n)
}

func operationCircle(t types.OperationType) string {
	switch t {
	case types.OperationStake:
		return "🔵"
	case types.OperationReStake:
		return "🟡"
	case types.OperationRequestUnstake:
		return "🟣"
	case types.OperationWithdrawUnstaked:
		return "⚫"
	default:
		return "⚪"
	}
}

func exchangeLabel(e types.Exchange) string {
	switch e {
	case types.ExchangeMexc:
		return "🚹 Mexc"
	case types.ExchangeKucoin:
		return "🦚 Kucoin"
	case types.ExchangeGate:
		return "🚪 Gate"
	case types.ExchangeCoinDCX:
		return "🪙 CoinDCX"
	default:
		return string(e)
	}
}

// renderOperation builds the channel message for one on-chain operation.
// fromName and toName are display names, falling back to the raw addresses.
func renderOperation(op models.Operation, fromName, toName string) string {
	var headline, toLabel string
	switch op.Type {
	case types.OperationStake:
		headline = "📘 Started stake of %s AZERO ($%s)"
		toLabel = "To validator"
	case types.OperationReStake:
		headline = "📒 Re-staked stake of %s AZERO ($%s)"
		toLabel = "To validator"
	case types.OperationRequestUnstake:
		headline = "👿 Requested unstake of %s AZERO ($%s)"
		toLabel = "From validator"
	case types.OperationWithdrawUnstaked:
		headline = "🤬 Withdraw unstaked of %s AZERO ($%s)"
		toLabel = "From validator"
	case types.OperationDepositToExchange:
		headline = "📥 Deposited %s AZERO ($%s) to an exchange"
		toLabel = "To address"
	case types.OperationWithdrawFromExchange:
		headline = "📤 Withdrew %s AZERO ($%s) from an exchange"
		toLabel = "To address"
	default:
		headline = "🔀 Transferred %s AZERO ($%s)"
		toLabel = "To address"
	}

	return fmt.Sprintf(headline, formatWhole(op.Quantity), formatWhole(op.AmountUSD)) +
		"\n\n" + circles(operationCircle(op.Type), op.AmountUSD) + "\n\n" +
		fmt.Sprintf("From address: [%s](%s%s)\n", fromName, explorerAccountURL, op.FromWallet) +
		fmt.Sprintf("%s: [%s](%s%s)\n", toLabel, toName, explorerAccountURL, op.ToWallet) +
		"\n" +
		fmt.Sprintf("[📶 Tx Hash](%s%s) | %s", explorerExtrinsicURL, op.ExtrinsicIndex, advertisement)
}

// renderTrade builds the channel message for one aggregated exchange trade.
func renderTrade(t models.Trade) string {
	circle, headline, verb := "🔴", "👹", "Sold"
	if t.Side == types.SideBuy {
		circle, headline, verb = "🟢", "🚀", "Bought"
	}

	return fmt.Sprintf("%s 1 AZERO = %.4f USDT\n", headline, t.Price) +
		fmt.Sprintf("%s %s AZERO for %s %s on %s",
			verb,
			formatWhole(t.Quantity),
			formatWhole(t.AmountUSD()),
			strings.ToUpper(string(t.SecondaryToken)),
			exchangeLabel(t.Exchange),
		) +
		"\n\n" + circles(circle, t.AmountUSD()) + "\n\n" + advertisement
}
