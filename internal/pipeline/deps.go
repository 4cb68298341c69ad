// Package pipeline turns raw explorer rows into enriched operations ready
// for import: quantities from event logs, validators resolved per nominator,
// USD amounts from the latest spot price, identities for every wallet seen.
package pipeline

import (
	"context"

	"github.com/azero-feed/internal/models"
	"github.com/azero-feed/internal/types"
)

// Chain is the explorer surface the pipelines consume.
type Chain interface {
	ParseOperations(ctx context.Context, address string, module types.Module, call types.ExtrinsicType, rows int) ([]models.Operation, error)
	ParseBatchAll(ctx context.Context, address string, page, rows int) ([]models.Operation, error)
	ParseExtrinsicDetails(ctx context.Context, extrinsicIndex string) ([]models.Event, error)
	ParseIdentities(ctx context.Context, address string, page, rows int) ([]models.Identity, error)
	ParseTransfers(ctx context.Context, page, rows int) ([]models.Operation, []models.Identity, error)
}

// OperationFilter drops operations whose extrinsic index was already imported.
type OperationFilter interface {
	FilterNew(ctx context.Context, ops []models.Operation) ([]models.Operation, error)
}

// ValidatorStore persists nominator-to-validator mappings.
type ValidatorStore interface {
	Upsert(ctx context.Context, validators []models.Validator) error
	ByNominator(ctx context.Context, nominator string) (*models.Validator, error)
	MissingNominators(ctx context.Context, nominators []string) ([]string, error)
}

// IdentityStore persists wallet display names.
type IdentityStore interface {
	Upsert(ctx context.Context, identities []models.Identity) error
	MissingAddresses(ctx context.Context, addresses []string) ([]string, error)
}

// PriceSource answers the latest known spot price of a pair.
type PriceSource interface {
	LatestPrice(ctx context.Context, primary types.PrimaryToken, secondary types.SecondaryToken) (float64, bool, error)
}

// validatorsFrom derives nominator-to-validator mappings from operations that
// carry a resolved target wallet.
func validatorsFrom(ops []models.Operation) []models.Validator {
	validators := make([]models.Validator, 0, len(ops))
	for _, op := range ops {
		if types.IsEmptyAddress(op.ToWallet) || types.IsEmptyAddress(op.FromWallet) {
			continue
		}
		validators = append(validators, models.Validator{Nominator: op.FromWallet, Validator: op.ToWallet})
	}
	return validators
}

// filterQuantity keeps operations above the dust floor.
func filterQuantity(ops []models.Operation, floor float64) []models.Operation {
	kept := ops[:0]
	for _, op := range ops {
		if op.Quantity > floor {
			kept = append(kept, op)
		}
	}
	return kept
}
