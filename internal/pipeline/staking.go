package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/azero-feed/internal/config"
	"github.com/azero-feed/internal/models"
	"github.com/azero-feed/internal/ss58"
	"github.com/azero-feed/internal/types"
	"github.com/azero-feed/internal/worker"
)

const (
	stakingFetchRows  = 100
	batchAllFetchRows = 20
	nominatorScanRows = 100
)

// Staking assembles enriched staking operations out of the raw extrinsic
// listings. Stages run in a fixed order; the content hash is stamped only
// after every wallet field has settled.
type Staking struct {
	chain      Chain
	seen       OperationFilter
	validators ValidatorStore
	identities IdentityStore
	prices     PriceSource
	cfg        config.SubscanConfig
}

// NewStaking wires the staking pipeline.
func NewStaking(chain Chain, seen OperationFilter, validators ValidatorStore, identities IdentityStore, prices PriceSource, cfg config.SubscanConfig) *Staking {
	return &Staking{
		chain:      chain,
		seen:       seen,
		validators: validators,
		identities: identities,
		prices:     prices,
		cfg:        cfg,
	}
}

// Run executes one full enrichment cycle and returns the operations ready
// for import. The spot price is fetched concurrently with the extrinsic
// listing and joined at the USD valuation stage.
func (p *Staking) Run(ctx context.Context, log *logrus.Entry) ([]models.Operation, error) {
	type spotPrice struct {
		price float64
		ok    bool
		err   error
	}
	priceCh := make(chan spotPrice, 1)
	go func() {
		price, ok, err := p.prices.LatestPrice(ctx, types.TokenAzero, types.TokenUsdt)
		priceCh <- spotPrice{price: price, ok: ok, err: err}
	}()

	fetched := p.fetchStakingExtrinsics(ctx, log)
	ops, err := p.seen.FilterNew(ctx, fetched)
	if err != nil {
		return nil, fmt.Errorf("filtering known operations: %w", err)
	}

	ops = p.enrichFromEvents(ctx, log, ops)

	batch, err := p.chain.ParseBatchAll(ctx, p.cfg.TargetAddress, 0, batchAllFetchRows)
	if err != nil {
		return nil, fmt.Errorf("listing batch extrinsics: %w", err)
	}
	batch, err = p.seen.FilterNew(ctx, batch)
	if err != nil {
		return nil, fmt.Errorf("filtering known batch operations: %w", err)
	}
	ops = append(ops, batch...)

	if err := p.validators.Upsert(ctx, validatorsFrom(ops)); err != nil {
		return nil, fmt.Errorf("saving validators: %w", err)
	}

	spot := <-priceCh
	if spot.err != nil {
		return nil, fmt.Errorf("fetching spot price: %w", spot.err)
	}
	if !spot.ok {
		return nil, errors.New("no spot price available yet")
	}

	ops = filterQuantity(ops, p.cfg.MinStakeQuantity)
	for i := range ops {
		ops[i].AmountUSD = ops[i].Quantity * spot.price
	}

	if err := p.resolveMissingValidators(ctx, log, ops); err != nil {
		return nil, err
	}
	p.applyValidators(ctx, log, ops)

	p.resolveViaControllers(ctx, log, ops)
	p.applyValidators(ctx, log, ops)

	for i := range ops {
		ops[i].SetHash()
	}
	ops = filterQuantity(ops, p.cfg.MinStakeQuantity)

	if err := p.registerIdentities(ctx, log, ops); err != nil {
		return nil, err
	}
	return ops, nil
}

// fetchStakingExtrinsics lists recent extrinsics for every staking call
// concurrently and flattens the results.
func (p *Staking) fetchStakingExtrinsics(ctx context.Context, log *logrus.Entry) []models.Operation {
	fns := make([]func(context.Context) ([]models.Operation, error), 0, len(types.StakingExtrinsicTypes))
	for _, call := range types.StakingExtrinsicTypes {
		call := call
		fns = append(fns, func(ctx context.Context) ([]models.Operation, error) {
			return p.chain.ParseOperations(ctx, p.cfg.TargetAddress, types.ModuleStaking, call, stakingFetchRows)
		})
	}

	var ops []models.Operation
	for _, batch := range worker.Gather(ctx, log, fns) {
		ops = append(ops, batch...)
	}
	return ops
}

// enrichFromEvents fills FromWallet and Quantity from the staking event of
// each extrinsic. Operations whose event log does not carry a usable staking
// event are dropped.
func (p *Staking) enrichFromEvents(ctx context.Context, log *logrus.Entry, ops []models.Operation) []models.Operation {
	fns := make([]func(context.Context) (models.Operation, error), 0, len(ops))
	for _, op := range ops {
		op := op
		fns = append(fns, func(ctx context.Context) (models.Operation, error) {
			return p.enrichOne(ctx, op)
		})
	}
	return worker.Gather(ctx, log, fns)
}

func (p *Staking) enrichOne(ctx context.Context, op models.Operation) (models.Operation, error) {
	events, err := p.chain.ParseExtrinsicDetails(ctx, op.ExtrinsicIndex)
	if err != nil {
		return models.Operation{}, err
	}

	var stakeEvent *models.Event
	for i := range events {
		if events[i].ModuleID == string(types.ModuleStaking) {
			stakeEvent = &events[i]
			break
		}
	}
	if stakeEvent == nil {
		return models.Operation{}, fmt.Errorf("extrinsic %s has no staking event", op.ExtrinsicIndex)
	}
	if len(stakeEvent.Params) < 2 {
		return models.Operation{}, fmt.Errorf("extrinsic %s staking event has %d params", op.ExtrinsicIndex, len(stakeEvent.Params))
	}

	stash := stakeEvent.Params[0]
	if stash.Name != "stash" && stash.Name != "who" {
		return models.Operation{}, fmt.Errorf("extrinsic %s staking event starts with %q", op.ExtrinsicIndex, stash.Name)
	}
	amount := stakeEvent.Params[len(stakeEvent.Params)-1]
	if amount.Name != "amount" {
		return models.Operation{}, fmt.Errorf("extrinsic %s staking event ends with %q", op.ExtrinsicIndex, amount.Name)
	}

	from, err := ss58.FromHex(stash.Value, ss58.FormatGeneric)
	if err != nil {
		return models.Operation{}, fmt.Errorf("extrinsic %s stash: %w", op.ExtrinsicIndex, err)
	}
	plancks, err := strconv.ParseFloat(amount.Value, 64)
	if err != nil {
		return models.Operation{}, fmt.Errorf("extrinsic %s amount: %w", op.ExtrinsicIndex, err)
	}

	op.FromWallet = from
	op.Quantity = plancks / types.AzeroDenominator
	return op, nil
}

// resolveMissingValidators scans the staking history of nominators the
// validators collection does not know yet and saves what it finds.
func (p *Staking) resolveMissingValidators(ctx context.Context, log *logrus.Entry, ops []models.Operation) error {
	seen := make(map[string]struct{}, len(ops))
	nominators := make([]string, 0, len(ops))
	for _, op := range ops {
		if _, ok := seen[op.FromWallet]; ok {
			continue
		}
		seen[op.FromWallet] = struct{}{}
		nominators = append(nominators, op.FromWallet)
	}

	missing, err := p.validators.MissingNominators(ctx, nominators)
	if err != nil {
		return fmt.Errorf("listing unknown nominators: %w", err)
	}

	fns := make([]func(context.Context) ([]models.Operation, error), 0, 2*len(missing))
	for _, nominator := range missing {
		nominator := nominator
		fns = append(fns, func(ctx context.Context) ([]models.Operation, error) {
			return p.chain.ParseBatchAll(ctx, nominator, 0, nominatorScanRows)
		})
		fns = append(fns, func(ctx context.Context) ([]models.Operation, error) {
			return p.chain.ParseOperations(ctx, nominator, types.ModuleStaking, types.ExtrinsicNominate, 1)
		})
	}

	var validators []models.Validator
	for _, batch := range worker.Gather(ctx, log, fns) {
		validators = append(validators, validatorsFrom(batch)...)
	}
	if err := p.validators.Upsert(ctx, validators); err != nil {
		return fmt.Errorf("saving resolved validators: %w", err)
	}
	return nil
}

// applyValidators fills ToWallet from the validators collection wherever a
// mapping for the nominator exists.
func (p *Staking) applyValidators(ctx context.Context, log *logrus.Entry, ops []models.Operation) {
	for i := range ops {
		v, err := p.validators.ByNominator(ctx, ops[i].FromWallet)
		if err != nil {
			log.WithError(err).WithField("nominator", ops[i].FromWallet).Warn("validator lookup failed")
			continue
		}
		if v == nil {
			continue
		}
		ops[i].ToWallet = v.Validator
	}
}

// resolveViaControllers handles stakes driven through a separate controller
// account: the nominate call is signed by the controller, so the validator is
// found in the controller's history and recorded under the original stash.
func (p *Staking) resolveViaControllers(ctx context.Context, log *logrus.Entry, ops []models.Operation) {
	for _, op := range ops {
		if !types.IsEmptyAddress(op.ToWallet) || types.IsEmptyAddress(op.ControllerWallet) {
			continue
		}

		ctrlOps, err := p.chain.ParseOperations(ctx, op.ControllerWallet, types.ModuleStaking, types.ExtrinsicNominate, 1)
		if err != nil {
			log.WithError(err).WithField("controller", op.ControllerWallet).Warn("controller scan failed")
			continue
		}
		for i := range ctrlOps {
			ctrlOps[i].FromWallet = op.FromWallet
		}

		if err := p.validators.Upsert(ctx, validatorsFrom(ctrlOps)); err != nil {
			log.WithError(err).Warn("saving controller validators failed")
		}
	}
}

// registerIdentities fetches display names for wallets the identities
// collection does not know yet.
func (p *Staking) registerIdentities(ctx context.Context, log *logrus.Entry, ops []models.Operation) error {
	seen := make(map[string]struct{}, 2*len(ops))
	addresses := make([]string, 0, 2*len(ops))
	for _, op := range ops {
		for _, addr := range []string{op.FromWallet, op.ToWallet} {
			if _, ok := seen[addr]; ok {
				continue
			}
			seen[addr] = struct{}{}
			addresses = append(addresses, addr)
		}
	}

	missing, err := p.identities.MissingAddresses(ctx, addresses)
	if err != nil {
		return fmt.Errorf("listing unknown addresses: %w", err)
	}

	fns := make([]func(context.Context) ([]models.Identity, error), 0, len(missing))
	for _, addr := range missing {
		addr := addr
		fns = append(fns, func(ctx context.Context) ([]models.Identity, error) {
			return p.chain.ParseIdentities(ctx, addr, 0, 1)
		})
	}

	var identities []models.Identity
	for _, batch := range worker.Gather(ctx, log, fns) {
		identities = append(identities, batch...)
	}
	if err := p.identities.Upsert(ctx, identities); err != nil {
		return fmt.Errorf("saving identities: %w", err)
	}
	return nil
}
