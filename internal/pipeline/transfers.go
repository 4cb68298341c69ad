package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/azero-feed/internal/config"
	"github.com/azero-feed/internal/models"
	"github.com/azero-feed/internal/types"
	"github.com/azero-feed/internal/worker"
)

const (
	transferFetchPages = 10
	transferFetchRows  = 100
)

// Transfers assembles large balance transfers from the explorer's transfer
// listing. Transfers touching a known exchange wallet are reclassified as
// deposits or withdrawals.
type Transfers struct {
	chain      Chain
	identities IdentityStore
	prices     PriceSource
	cfg        config.SubscanConfig

	exchangeWallets map[string]struct{}
}

// NewTransfers wires the transfer pipeline.
func NewTransfers(chain Chain, identities IdentityStore, prices PriceSource, cfg config.SubscanConfig) *Transfers {
	wallets := make(map[string]struct{}, len(cfg.ExchangeWallets))
	for _, w := range cfg.ExchangeWallets {
		wallets[w] = struct{}{}
	}
	return &Transfers{
		chain:           chain,
		identities:      identities,
		prices:          prices,
		cfg:             cfg,
		exchangeWallets: wallets,
	}
}

type transfersPage struct {
	ops        []models.Operation
	identities []models.Identity
}

// Run executes one transfer cycle and returns the operations ready for
// import.
func (p *Transfers) Run(ctx context.Context, log *logrus.Entry) ([]models.Operation, error) {
	price, ok, err := p.prices.LatestPrice(ctx, types.TokenAzero, types.TokenUsdt)
	if err != nil {
		return nil, fmt.Errorf("fetching spot price: %w", err)
	}
	if !ok {
		return nil, errors.New("no spot price available yet")
	}

	fns := make([]func(context.Context) (transfersPage, error), 0, transferFetchPages)
	for page := 0; page < transferFetchPages; page++ {
		page := page
		fns = append(fns, func(ctx context.Context) (transfersPage, error) {
			ops, identities, err := p.chain.ParseTransfers(ctx, page, transferFetchRows)
			return transfersPage{ops: ops, identities: identities}, err
		})
	}

	var ops []models.Operation
	identitySet := make(map[models.Identity]struct{})
	for _, page := range worker.Gather(ctx, log, fns) {
		ops = append(ops, page.ops...)
		for _, id := range page.identities {
			identitySet[id] = struct{}{}
		}
	}

	ops = filterQuantity(ops, p.cfg.MinTransferQuantity)
	for i := range ops {
		ops[i].Type = p.classify(ops[i])
		ops[i].AmountUSD = ops[i].Quantity * price
		ops[i].SetHash()
	}

	identities := make([]models.Identity, 0, len(identitySet))
	for id := range identitySet {
		identities = append(identities, id)
	}
	if err := p.identities.Upsert(ctx, identities); err != nil {
		return nil, fmt.Errorf("saving identities: %w", err)
	}
	return ops, nil
}

func (p *Transfers) classify(op models.Operation) types.OperationType {
	if _, ok := p.exchangeWallets[op.ToWallet]; ok {
		return types.OperationDepositToExchange
	}
	if _, ok := p.exchangeWallets[op.FromWallet]; ok {
		return types.OperationWithdrawFromExchange
	}
	return types.OperationTransfer
}
