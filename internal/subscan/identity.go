package subscan

import (
	"context"
	"encoding/json"

	"github.com/azero-feed/internal/models"
	"github.com/azero-feed/internal/types"
)

type accountDisplay struct {
	Address  string `json:"address"`
	Display  string `json:"display"`
	Identity bool   `json:"identity"`
}

type identityRow struct {
	Success        bool           `json:"success"`
	AccountDisplay accountDisplay `json:"account_display"`
}

// ParseIdentities lists identity.set_identity extrinsics at the address and
// maps each to the registered display name. The empty-address sentinel never
// has an identity, so it short-circuits without a request.
func (c *Client) ParseIdentities(ctx context.Context, address string, page, rows int) ([]models.Identity, error) {
	if types.IsEmptyAddress(address) {
		return nil, nil
	}

	payload := extrinsicsRequest{
		Address: address,
		Row:     rows,
		Page:    page,
		Module:  string(types.ModuleIdentity),
		Call:    "set_identity",
		Success: true,
	}

	var list extrinsicList
	if err := c.postScan(ctx, "/api/scan/extrinsics", payload, &list); err != nil {
		return nil, err
	}

	identities := make([]models.Identity, 0, len(list.Extrinsics))
	for i := len(list.Extrinsics) - 1; i >= 0; i-- {
		var row identityRow
		if err := json.Unmarshal(list.Extrinsics[i], &row); err != nil {
			c.log.WithError(err).Debug("skipping malformed identity row")
			continue
		}
		if !row.Success || !row.AccountDisplay.Identity {
			continue
		}
		identities = append(identities, models.Identity{
			Address:  row.AccountDisplay.Address,
			Identity: row.AccountDisplay.Display,
		})
	}
	return identities, nil
}
