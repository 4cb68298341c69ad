package subscan

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/azero-feed/internal/models"
	"github.com/azero-feed/internal/ss58"
	"github.com/azero-feed/internal/types"
)

type extrinsicsRequest struct {
	Address string `json:"address"`
	Row     int    `json:"row"`
	Page    int    `json:"page"`
	Module  string `json:"module"`
	Call    string `json:"call"`
	Success bool   `json:"success"`
}

type extrinsicList struct {
	Extrinsics []json.RawMessage `json:"extrinsics"`
}

type extrinsicRow struct {
	Success        bool   `json:"success"`
	BlockTimestamp int64  `json:"block_timestamp"`
	AccountID      string `json:"account_id"`
	BlockNum       uint64 `json:"block_num"`
	ExtrinsicIndex string `json:"extrinsic_index"`
	// Params is a stringified JSON array of call parameters.
	Params string `json:"params"`
}

// callParam is one decoded call parameter. Value stays raw because its shape
// depends on the parameter: account ids arrive as {"Id": "0x.."} objects,
// amounts as stringified integers, nominate targets as arrays.
type callParam struct {
	Name  string          `json:"name"`
	Value json.RawMessage `json:"value"`
}

type accountID struct {
	ID string `json:"Id"`
}

type batchCall struct {
	CallName string      `json:"call_name"`
	Params   []callParam `json:"params"`
}

func decodeCallParams(s string) ([]callParam, error) {
	var params []callParam
	if err := json.Unmarshal([]byte(s), &params); err != nil {
		return nil, fmt.Errorf("decoding call params: %w", err)
	}
	return params, nil
}

// nominateTarget extracts the first validator target of a nominate call and
// re-encodes it from the raw public key.
func nominateTarget(params []callParam) (string, error) {
	if len(params) == 0 {
		return "", fmt.Errorf("nominate call has no params")
	}
	var targets []accountID
	if err := json.Unmarshal(params[0].Value, &targets); err != nil {
		return "", fmt.Errorf("decoding nominate targets: %w", err)
	}
	if len(targets) == 0 {
		return "", fmt.Errorf("nominate call has no targets")
	}
	return ss58.FromHex(targets[0].ID, ss58.FormatGeneric)
}

// controllerAccount extracts the controller parameter of a bond call.
func controllerAccount(params []callParam) (string, error) {
	for _, p := range params {
		if p.Name != "controller" {
			continue
		}
		var acct accountID
		if err := json.Unmarshal(p.Value, &acct); err != nil {
			return "", fmt.Errorf("decoding controller: %w", err)
		}
		return ss58.FromHex(acct.ID, ss58.FormatGeneric)
	}
	return "", fmt.Errorf("bond call has no controller param")
}

// plancksAmount finds the named amount parameter and converts it to whole
// AZERO.
func plancksAmount(params []callParam, name string) (float64, error) {
	for _, p := range params {
		if p.Name != name {
			continue
		}
		var raw string
		if err := json.Unmarshal(p.Value, &raw); err != nil {
			return 0, fmt.Errorf("decoding %s: %w", name, err)
		}
		plancks, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return 0, fmt.Errorf("parsing %s: %w", name, err)
		}
		return plancks / types.AzeroDenominator, nil
	}
	return 0, fmt.Errorf("call has no %s param", name)
}

// ParseOperations lists successful extrinsics of one call at the given
// address and maps them to bare operations: quantities stay zero until the
// event-detail stage fills them in. Results come back oldest first.
func (c *Client) ParseOperations(ctx context.Context, address string, module types.Module, call types.ExtrinsicType, rows int) ([]models.Operation, error) {
	payload := extrinsicsRequest{
		Address: address,
		Row:     rows,
		Page:    0,
		Module:  string(module),
		Call:    string(call),
		Success: true,
	}

	var list extrinsicList
	if err := c.postScan(ctx, "/api/scan/extrinsics", payload, &list); err != nil {
		return nil, err
	}

	ops := make([]models.Operation, 0, len(list.Extrinsics))
	for i := len(list.Extrinsics) - 1; i >= 0; i-- {
		var row extrinsicRow
		if err := json.Unmarshal(list.Extrinsics[i], &row); err != nil {
			c.log.WithError(err).Debug("skipping malformed extrinsic row")
			continue
		}
		if !row.Success {
			continue
		}

		toWallet := types.EmptyAddress
		if call == types.ExtrinsicNominate {
			params, err := decodeCallParams(row.Params)
			if err != nil {
				c.log.WithError(err).WithField("extrinsic_index", row.ExtrinsicIndex).Debug("skipping extrinsic")
				continue
			}
			if toWallet, err = nominateTarget(params); err != nil {
				c.log.WithError(err).WithField("extrinsic_index", row.ExtrinsicIndex).Debug("skipping extrinsic")
				continue
			}
		}

		controllerWallet := types.EmptyAddress
		if call == types.ExtrinsicBond {
			params, err := decodeCallParams(row.Params)
			if err != nil {
				c.log.WithError(err).WithField("extrinsic_index", row.ExtrinsicIndex).Debug("skipping extrinsic")
				continue
			}
			if controllerWallet, err = controllerAccount(params); err != nil {
				c.log.WithError(err).WithField("extrinsic_index", row.ExtrinsicIndex).Debug("skipping extrinsic")
				continue
			}
		}

		ops = append(ops, models.Operation{
			BlockNumber:      row.BlockNum,
			ExtrinsicIndex:   row.ExtrinsicIndex,
			Timestamp:        time.Unix(row.BlockTimestamp, 0).UTC(),
			Type:             types.OperationTypeForExtrinsic(call),
			FromWallet:       row.AccountID,
			ToWallet:         toWallet,
			ControllerWallet: controllerWallet,
		})
	}
	return ops, nil
}

// ParseBatchAll lists successful utility.batch_all extrinsics and folds the
// inner staking calls of each batch into one operation. The quantity sums the
// bond, bond_extra and unbond amounts; the type is picked from whichever
// inner call dominates.
func (c *Client) ParseBatchAll(ctx context.Context, address string, page, rows int) ([]models.Operation, error) {
	payload := extrinsicsRequest{
		Address: address,
		Row:     rows,
		Page:    page,
		Module:  string(types.ModuleUtility),
		Call:    "batch_all",
		Success: true,
	}

	var list extrinsicList
	if err := c.postScan(ctx, "/api/scan/extrinsics", payload, &list); err != nil {
		return nil, err
	}

	ops := make([]models.Operation, 0, len(list.Extrinsics))
	for i := len(list.Extrinsics) - 1; i >= 0; i-- {
		var row extrinsicRow
		if err := json.Unmarshal(list.Extrinsics[i], &row); err != nil {
			c.log.WithError(err).Debug("skipping malformed extrinsic row")
			continue
		}
		if !row.Success {
			continue
		}

		op, err := c.foldBatch(row)
		if err != nil {
			c.log.WithError(err).WithField("extrinsic_index", row.ExtrinsicIndex).Debug("skipping batch extrinsic")
			continue
		}
		ops = append(ops, op)
	}
	return ops, nil
}

func (c *Client) foldBatch(row extrinsicRow) (models.Operation, error) {
	params, err := decodeCallParams(row.Params)
	if err != nil {
		return models.Operation{}, err
	}
	if len(params) == 0 {
		return models.Operation{}, fmt.Errorf("batch has no params")
	}

	var calls []batchCall
	if err := json.Unmarshal(params[0].Value, &calls); err != nil {
		return models.Operation{}, fmt.Errorf("decoding batch calls: %w", err)
	}

	byName := make(map[string]batchCall, len(calls))
	for _, call := range calls {
		byName[call.CallName] = call
	}

	var quantity, unbondAmount float64
	if call, ok := byName["bond"]; ok {
		amount, err := plancksAmount(call.Params, "value")
		if err != nil {
			return models.Operation{}, err
		}
		quantity += amount
	}
	if call, ok := byName["bond_extra"]; ok {
		amount, err := plancksAmount(call.Params, "max_additional")
		if err != nil {
			return models.Operation{}, err
		}
		quantity += amount
	}
	if call, ok := byName["unbond"]; ok {
		amount, err := plancksAmount(call.Params, "value")
		if err != nil {
			return models.Operation{}, err
		}
		quantity += amount
		unbondAmount = amount
	}

	toWallet := types.EmptyAddress
	if call, ok := byName["nominate"]; ok {
		if toWallet, err = nominateTarget(call.Params); err != nil {
			return models.Operation{}, err
		}
	}

	controllerWallet := types.EmptyAddress
	if call, ok := byName["bond"]; ok {
		if controllerWallet, err = controllerAccount(call.Params); err != nil {
			return models.Operation{}, err
		}
	}

	opType := types.OperationStake
	switch {
	case unbondAmount > 1/types.AzeroDenominator:
		opType = types.OperationRequestUnstake
	case !types.IsEmptyAddress(toWallet):
		opType = types.OperationReStake
	}

	return models.Operation{
		BlockNumber:      row.BlockNum,
		ExtrinsicIndex:   row.ExtrinsicIndex,
		Timestamp:        time.Unix(row.BlockTimestamp, 0).UTC(),
		Quantity:         quantity,
		Type:             opType,
		FromWallet:       row.AccountID,
		ToWallet:         toWallet,
		ControllerWallet: controllerWallet,
	}, nil
}
