package feed

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/azero-feed/internal/config"
	"github.com/azero-feed/internal/models"
	"github.com/azero-feed/internal/types"
)

// OperationWindow reads persisted operations inside a time range.
type OperationWindow interface {
	Window(ctx context.Context, from, to time.Time) ([]models.Operation, error)
}

// TradeWindow reads persisted trades of one token inside a time range.
type TradeWindow interface {
	Window(ctx context.Context, primary types.PrimaryToken, from, to time.Time) ([]models.Trade, error)
}

// IdentityLookup resolves a wallet to its display name, if registered.
type IdentityLookup interface {
	ByAddress(ctx context.Context, address string) (*models.Identity, error)
}

// PostedLog remembers delivered message hashes.
type PostedLog interface {
	Record(ctx context.Context, hash string) error
	FilterNew(ctx context.Context, hashes []string) ([]string, error)
}

// Poster delivers one message to the channel.
type Poster interface {
	Post(ctx context.Context, message string) error
}

// Feed is one posting cycle: read the recent window, render everything above
// the USD floor, drop what was already posted, deliver the rest with pacing.
type Feed struct {
	ops        OperationWindow
	trades     TradeWindow
	identities IdentityLookup
	posted     PostedLog
	poster     Poster
	cfg        config.FeedConfig

	now func() time.Time
}

// New wires the feed cycle.
func New(ops OperationWindow, trades TradeWindow, identities IdentityLookup, posted PostedLog, poster Poster, cfg config.FeedConfig) *Feed {
	return &Feed{
		ops:        ops,
		trades:     trades,
		identities: identities,
		posted:     posted,
		poster:     poster,
		cfg:        cfg,
		now:        time.Now,
	}
}

// Run executes one posting cycle.
func (f *Feed) Run(ctx context.Context, log *logrus.Entry) error {
	to := f.now()
	from := to.Add(-f.cfg.Lookback)

	messages, opCount, tradeCount, err := f.collectMessages(ctx, from, to)
	if err != nil {
		return err
	}

	hashes := make([]string, len(messages))
	for i, m := range messages {
		hashes[i] = models.HashMessage(m)
	}
	fresh, err := f.posted.FilterNew(ctx, hashes)
	if err != nil {
		return fmt.Errorf("filtering posted messages: %w", err)
	}
	freshSet := make(map[string]struct{}, len(fresh))
	for _, h := range fresh {
		freshSet[h] = struct{}{}
	}

	postedCount := 0
	for i, m := range messages {
		if _, ok := freshSet[hashes[i]]; !ok {
			continue
		}
		// two records in one cycle can render to the same text
		delete(freshSet, hashes[i])

		if err := f.poster.Post(ctx, m); err != nil {
			return fmt.Errorf("posting message: %w", err)
		}
		if err := f.posted.Record(ctx, hashes[i]); err != nil {
			return fmt.Errorf("recording posted message: %w", err)
		}
		postedCount++

		select {
		case <-time.After(f.cfg.MessagePacing):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	log.WithFields(logrus.Fields{
		"operations": opCount,
		"trades":     tradeCount,
		"posted":     postedCount,
	}).Info("posting cycle finished")
	return nil
}

func (f *Feed) collectMessages(ctx context.Context, from, to time.Time) ([]string, int, int, error) {
	ops, err := f.ops.Window(ctx, from, to)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("reading operations: %w", err)
	}

	var messages []string
	opCount := 0
	for _, op := range ops {
		if op.AmountUSD <= f.cfg.MinUSD {
			continue
		}
		messages = append(messages, renderOperation(op,
			f.displayName(ctx, op.FromWallet),
			f.displayName(ctx, op.ToWallet),
		))
		opCount++
	}

	trades, err := f.trades.Window(ctx, types.TokenAzero, from, to)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("reading trades: %w", err)
	}

	tradeCount := 0
	for _, t := range aggregateTrades(trades) {
		if t.AmountUSD() <= f.cfg.MinUSD {
			continue
		}
		messages = append(messages, renderTrade(t))
		tradeCount++
	}
	return messages, opCount, tradeCount, nil
}

// displayName substitutes a registered identity for the raw address.
func (f *Feed) displayName(ctx context.Context, address string) string {
	identity, err := f.identities.ByAddress(ctx, address)
	if err != nil || identity == nil {
		return address
	}
	return identity.Identity
}
