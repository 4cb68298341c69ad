package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/azero-feed/internal/types"
)

func sampleTrade() Trade {
	return Trade{
		Timestamp:      time.UnixMilli(1700000000123).UTC(),
		Quantity:       1250.5,
		Price:          1.0425,
		Side:           types.SideBuy,
		PrimaryToken:   types.TokenAzero,
		SecondaryToken: types.TokenUsdt,
		Exchange:       types.ExchangeMexc,
	}
}

func TestTradeHashDeterministic(t *testing.T) {
	a := sampleTrade()
	b := sampleTrade()
	a.SetHash()
	b.SetHash()

	require.NotEmpty(t, a.Hash)
	assert.Equal(t, a.Hash, b.Hash)
}

func TestTradeHashSensitivity(t *testing.T) {
	base := sampleTrade()
	base.SetHash()

	mutations := map[string]func(*Trade){
		"timestamp": func(tr *Trade) { tr.Timestamp = tr.Timestamp.Add(time.Millisecond) },
		"quantity":  func(tr *Trade) { tr.Quantity += 0.000001 },
		"price":     func(tr *Trade) { tr.Price += 0.0001 },
		"side":      func(tr *Trade) { tr.Side = types.SideSell },
		"secondary": func(tr *Trade) { tr.SecondaryToken = types.TokenUsdc },
		"exchange":  func(tr *Trade) { tr.Exchange = types.ExchangeGate },
	}

	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			mutated := sampleTrade()
			mutate(&mutated)
			mutated.SetHash()
			assert.NotEqual(t, base.Hash, mutated.Hash)
		})
	}
}

func TestTradeHashIgnoresStoredHash(t *testing.T) {
	a := sampleTrade()
	a.Hash = "something-else"
	b := sampleTrade()
	assert.Equal(t, b.ComputeHash(), a.ComputeHash())
}

func TestTradeAmountUSD(t *testing.T) {
	tr := Trade{Quantity: 40, Price: 1.75}
	assert.InDelta(t, 70.0, tr.AmountUSD(), 1e-9)
}

func sampleOperation() Operation {
	return Operation{
		BlockNumber:      123456,
		ExtrinsicIndex:   "123456-2",
		Timestamp:        time.Unix(1700000000, 0).UTC(),
		Quantity:         600.25,
		Type:             types.OperationStake,
		FromWallet:       "5GrwvaEF5zXb26Fz9rcQpDWS57CtERHpNehXCPcNoHGKutQY",
		ToWallet:         "5FHneW46xGXgs5mUiveU4sbTyGBzmstUspZC92UhjJM694ty",
		ControllerWallet: types.EmptyAddress,
	}
}

func TestOperationHashDeterministic(t *testing.T) {
	a := sampleOperation()
	b := sampleOperation()
	a.SetHash()
	b.SetHash()

	require.NotEmpty(t, a.Hash)
	assert.Equal(t, a.Hash, b.Hash)
}

func TestOperationHashExcludesEnrichmentOnlyFields(t *testing.T) {
	a := sampleOperation()
	b := sampleOperation()
	// USD amount, block number and extrinsic index do not change identity
	b.AmountUSD = 999
	b.BlockNumber = 1
	b.ExtrinsicIndex = "1-1"
	b.ControllerWallet = "5FHneW46xGXgs5mUiveU4sbTyGBzmstUspZC92UhjJM694ty"

	assert.Equal(t, a.ComputeHash(), b.ComputeHash())
}

func TestOperationHashSensitivity(t *testing.T) {
	base := sampleOperation()
	base.SetHash()

	mutations := map[string]func(*Operation){
		"timestamp": func(op *Operation) { op.Timestamp = op.Timestamp.Add(time.Second) },
		"quantity":  func(op *Operation) { op.Quantity += 0.000001 },
		"type":      func(op *Operation) { op.Type = types.OperationRequestUnstake },
		"from":      func(op *Operation) { op.FromWallet = "other" },
		"to":        func(op *Operation) { op.ToWallet = "other" },
	}

	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			mutated := sampleOperation()
			mutate(&mutated)
			mutated.SetHash()
			assert.NotEqual(t, base.Hash, mutated.Hash)
		})
	}
}

func TestHashMessage(t *testing.T) {
	assert.Equal(t, HashMessage("hello"), HashMessage("hello"))
	assert.NotEqual(t, HashMessage("hello"), HashMessage("hello "))
	assert.Len(t, HashMessage("hello"), 64)
}
