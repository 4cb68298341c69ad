package subscan

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/azero-feed/internal/models"
	"github.com/azero-feed/internal/types"
)

type transfersRequest struct {
	Row         int    `json:"row"`
	Page        int    `json:"page"`
	Success     bool   `json:"success"`
	AssetSymbol string `json:"asset_symbol"`
}

type transferList struct {
	Transfers []json.RawMessage `json:"transfers"`
}

type transferRow struct {
	Success        bool           `json:"success"`
	BlockTimestamp int64          `json:"block_timestamp"`
	From           string         `json:"from"`
	To             string         `json:"to"`
	BlockNum       uint64         `json:"block_num"`
	ExtrinsicIndex string         `json:"extrinsic_index"`
	Amount         string         `json:"amount"`
	FromDisplay    accountDisplay `json:"from_account_display"`
	ToDisplay      accountDisplay `json:"to_account_display"`
}

// ParseTransfers lists successful AZERO balance transfers, newest pages
// first, and also collects any display names the explorer already resolved
// for the counterparties. The transfer amount arrives as whole AZERO.
func (c *Client) ParseTransfers(ctx context.Context, page, rows int) ([]models.Operation, []models.Identity, error) {
	payload := transfersRequest{
		Row:         rows,
		Page:        page,
		Success:     true,
		AssetSymbol: "AZERO",
	}

	var list transferList
	if err := c.postScan(ctx, "/api/scan/transfers", payload, &list); err != nil {
		return nil, nil, err
	}

	ops := make([]models.Operation, 0, len(list.Transfers))
	var identities []models.Identity
	for i := len(list.Transfers) - 1; i >= 0; i-- {
		var row transferRow
		if err := json.Unmarshal(list.Transfers[i], &row); err != nil {
			c.log.WithError(err).Debug("skipping malformed transfer row")
			continue
		}
		if !row.Success {
			continue
		}

		quantity, err := strconv.ParseFloat(row.Amount, 64)
		if err != nil {
			c.log.WithError(err).WithField("extrinsic_index", row.ExtrinsicIndex).Debug("skipping transfer")
			continue
		}

		ops = append(ops, models.Operation{
			BlockNumber:      row.BlockNum,
			ExtrinsicIndex:   row.ExtrinsicIndex,
			Timestamp:        time.Unix(row.BlockTimestamp, 0).UTC(),
			Quantity:         quantity,
			Type:             types.OperationTransfer,
			FromWallet:       row.From,
			ToWallet:         row.To,
			ControllerWallet: types.EmptyAddress,
		})

		if row.FromDisplay.Display != "" {
			identities = append(identities, models.Identity{Address: row.From, Identity: row.FromDisplay.Display})
		}
		if row.ToDisplay.Display != "" {
			identities = append(identities, models.Identity{Address: row.To, Identity: row.ToDisplay.Display})
		}
	}
	return ops, identities, nil
}
