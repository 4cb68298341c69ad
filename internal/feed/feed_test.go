package feed

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/azero-feed/internal/config"
	"github.com/azero-feed/internal/models"
	"github.com/azero-feed/internal/types"
)

func testEntry() *logrus.Entry {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return logrus.NewEntry(log)
}

type fakeOperationWindow struct {
	ops []models.Operation
}

func (f *fakeOperationWindow) Window(_ context.Context, _, _ time.Time) ([]models.Operation, error) {
	return f.ops, nil
}

type fakeTradeWindow struct {
	trades []models.Trade
}

func (f *fakeTradeWindow) Window(_ context.Context, _ types.PrimaryToken, _, _ time.Time) ([]models.Trade, error) {
	return f.trades, nil
}

type fakeIdentityLookup struct {
	byAddress map[string]string
}

func (f *fakeIdentityLookup) ByAddress(_ context.Context, address string) (*models.Identity, error) {
	name, ok := f.byAddress[address]
	if !ok {
		return nil, nil
	}
	return &models.Identity{Address: address, Identity: name}, nil
}

type fakePostedLog struct {
	recorded map[string]bool
}

func (f *fakePostedLog) Record(_ context.Context, hash string) error {
	f.recorded[hash] = true
	return nil
}

func (f *fakePostedLog) FilterNew(_ context.Context, hashes []string) ([]string, error) {
	var fresh []string
	for _, h := range hashes {
		if !f.recorded[h] {
			fresh = append(fresh, h)
		}
	}
	return fresh, nil
}

type fakePoster struct {
	posted []string
}

func (f *fakePoster) Post(_ context.Context, message string) error {
	f.posted = append(f.posted, message)
	return nil
}

func feedConfig() config.FeedConfig {
	return config.FeedConfig{
		MinUSD:        1000,
		Lookback:      30 * time.Minute,
		MessagePacing: time.Millisecond,
		PollInterval:  time.Second,
	}
}

func whaleOperation(usd float64) models.Operation {
	return models.Operation{
		ExtrinsicIndex: "100-1",
		Timestamp:      time.Unix(1700000000, 0).UTC(),
		Quantity:       10000,
		AmountUSD:      usd,
		Type:           types.OperationStake,
		FromWallet:     "from-wallet",
		ToWallet:       "to-wallet",
	}
}

func whaleTrade(quantity, price float64) models.Trade {
	return models.Trade{
		Timestamp:      time.UnixMilli(1700000000123).UTC(),
		Quantity:       quantity,
		Price:          price,
		Side:           types.SideBuy,
		PrimaryToken:   types.TokenAzero,
		SecondaryToken: types.TokenUsdt,
		Exchange:       types.ExchangeMexc,
	}
}

func TestFeedPostsWhaleActivity(t *testing.T) {
	poster := &fakePoster{}
	posted := &fakePostedLog{recorded: map[string]bool{}}
	f := New(
		&fakeOperationWindow{ops: []models.Operation{whaleOperation(5000)}},
		&fakeTradeWindow{trades: []models.Trade{whaleTrade(3000, 1.1)}},
		&fakeIdentityLookup{byAddress: map[string]string{"from-wallet": "Alice"}},
		posted, poster, feedConfig(),
	)

	require.NoError(t, f.Run(context.Background(), testEntry()))
	require.Len(t, poster.posted, 2)

	assert.Contains(t, poster.posted[0], "Started stake of")
	assert.Contains(t, poster.posted[0], "[Alice]", "registered identity replaces the address")
	assert.Contains(t, poster.posted[0], "[to-wallet]", "unknown wallets fall back to the address")
	assert.Contains(t, poster.posted[1], "Bought 3,000 AZERO")
	assert.Len(t, posted.recorded, 2)
}

func TestFeedSkipsBelowFloor(t *testing.T) {
	poster := &fakePoster{}
	f := New(
		&fakeOperationWindow{ops: []models.Operation{whaleOperation(999)}},
		&fakeTradeWindow{trades: []models.Trade{whaleTrade(500, 1.0)}},
		&fakeIdentityLookup{byAddress: map[string]string{}},
		&fakePostedLog{recorded: map[string]bool{}},
		poster, feedConfig(),
	)

	require.NoError(t, f.Run(context.Background(), testEntry()))
	assert.Empty(t, poster.posted)
}

func TestFeedSuppressesDuplicates(t *testing.T) {
	poster := &fakePoster{}
	posted := &fakePostedLog{recorded: map[string]bool{}}
	f := New(
		&fakeOperationWindow{ops: []models.Operation{whaleOperation(5000)}},
		&fakeTradeWindow{},
		&fakeIdentityLookup{byAddress: map[string]string{}},
		posted, poster, feedConfig(),
	)

	require.NoError(t, f.Run(context.Background(), testEntry()))
	require.Len(t, poster.posted, 1)

	// second cycle sees the same window; nothing new to post
	require.NoError(t, f.Run(context.Background(), testEntry()))
	assert.Len(t, poster.posted, 1)
}

func TestFeedPostsIdenticalTextOnce(t *testing.T) {
	// trade messages carry no timestamp, so two aggregate groups at
	// different minutes can render to the same text
	first := whaleTrade(3000, 1.1)
	second := whaleTrade(3000, 1.1)
	second.Timestamp = first.Timestamp.Add(time.Minute)

	poster := &fakePoster{}
	f := New(
		&fakeOperationWindow{},
		&fakeTradeWindow{trades: []models.Trade{first, second}},
		&fakeIdentityLookup{byAddress: map[string]string{}},
		&fakePostedLog{recorded: map[string]bool{}},
		poster, feedConfig(),
	)

	require.NoError(t, f.Run(context.Background(), testEntry()))
	require.Len(t, poster.posted, 1, "identical text must be posted exactly once")
	assert.Contains(t, poster.posted[0], "Bought 3,000 AZERO")
}

func TestFeedAggregatesTradesBeforeFiltering(t *testing.T) {
	// each trade alone is below the floor, together they clear it
	poster := &fakePoster{}
	f := New(
		&fakeOperationWindow{},
		&fakeTradeWindow{trades: []models.Trade{
			whaleTrade(400, 1.5),
			whaleTrade(400, 1.5),
		}},
		&fakeIdentityLookup{byAddress: map[string]string{}},
		&fakePostedLog{recorded: map[string]bool{}},
		poster, feedConfig(),
	)

	require.NoError(t, f.Run(context.Background(), testEntry()))
	require.Len(t, poster.posted, 1)
	assert.Contains(t, poster.posted[0], "Bought 800 AZERO")
}
