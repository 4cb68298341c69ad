package subscan

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/azero-feed/internal/httpx"
	"github.com/azero-feed/internal/keypool"
	"github.com/azero-feed/internal/types"
)

// Well-known dev account (Alice) used in fixtures.
const (
	alicePubHex  = "0xd43593c715fdd31c61141abd04a99fd6822c8558854ccde39a5684e7a56da27d"
	aliceAddress = "5GrwvaEF5zXb26Fz9rcQpDWS57CtERHpNehXCPcNoHGKutQY"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func testClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	pool, err := keypool.New([]string{"k1", "k2"}, keypool.StrategyRoundRobin)
	require.NoError(t, err)
	return New(types.NetworkAlephZero, pool, testLogger(),
		WithBaseURL(baseURL),
		WithScanRetryPolicy(httpx.RetryPolicy{Delay: time.Millisecond, MaxAttempts: 3}),
	)
}

func TestPostScanResubmitsRejectedEnvelopes(t *testing.T) {
	var calls atomic.Int32
	var keysSeen []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		keysSeen = append(keysSeen, r.Header.Get("X-API-Key"))
		if calls.Add(1) == 1 {
			_, _ = w.Write([]byte(`{"code": 10002, "message": "rate limited"}`))
			return
		}
		_, _ = w.Write([]byte(`{"code": 0, "message": "Success", "data": {"extrinsics": []}}`))
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	ops, err := c.ParseOperations(context.Background(), "", types.ModuleStaking, types.ExtrinsicBond, 10)
	require.NoError(t, err)
	assert.Empty(t, ops)
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, []string{"k1", "k2"}, keysSeen, "each resubmission draws a fresh key")
}

func TestPostScanGivesUpAfterMaxAttempts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"code": 10002, "message": "rate limited"}`))
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	_, err := c.ParseOperations(context.Background(), "", types.ModuleStaking, types.ExtrinsicBond, 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")
}

func TestParseOperationsMapsRowsOldestFirst(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req extrinsicsRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "staking", req.Module)
		assert.Equal(t, "unbond", req.Call)
		assert.True(t, req.Success)
		assert.Equal(t, 100, req.Row)

		_, _ = w.Write([]byte(`{"code": 0, "data": {"extrinsics": [
			{"success": true, "block_timestamp": 1700000100, "account_id": "wallet-new", "block_num": 101, "extrinsic_index": "101-2", "params": "[]"},
			{"success": false, "block_timestamp": 1700000050, "account_id": "wallet-failed", "block_num": 100, "extrinsic_index": "100-9", "params": "[]"},
			{"success": true, "block_timestamp": 1700000000, "account_id": "wallet-old", "block_num": 99, "extrinsic_index": "99-1", "params": "[]"}
		]}}`))
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	ops, err := c.ParseOperations(context.Background(), "", types.ModuleStaking, types.ExtrinsicUnbond, 100)
	require.NoError(t, err)
	require.Len(t, ops, 2, "failed extrinsics are skipped")

	assert.Equal(t, "wallet-old", ops[0].FromWallet, "results come back oldest first")
	assert.Equal(t, "wallet-new", ops[1].FromWallet)
	assert.Equal(t, uint64(99), ops[0].BlockNumber)
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), ops[0].Timestamp)
	assert.Equal(t, types.OperationRequestUnstake, ops[0].Type)
	assert.Equal(t, types.EmptyAddress, ops[0].ToWallet)
	assert.Equal(t, types.EmptyAddress, ops[0].ControllerWallet)
	assert.Zero(t, ops[0].Quantity, "quantity is filled later from the event log")
}

func TestParseOperationsResolvesNominateTarget(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"code": 0, "data": {"extrinsics": [
			{"success": true, "block_timestamp": 1700000000, "account_id": "nominator", "block_num": 50, "extrinsic_index": "50-3",
			 "params": "[{\"name\":\"targets\",\"value\":[{\"Id\":\"` + alicePubHex + `\"}]}]"}
		]}}`))
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	ops, err := c.ParseOperations(context.Background(), "", types.ModuleStaking, types.ExtrinsicNominate, 1)
	require.NoError(t, err)
	require.Len(t, ops, 1)

	assert.Equal(t, aliceAddress, ops[0].ToWallet)
	assert.Equal(t, types.OperationReStake, ops[0].Type)
}

func TestParseOperationsResolvesBondController(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"code": 0, "data": {"extrinsics": [
			{"success": true, "block_timestamp": 1700000000, "account_id": "stash", "block_num": 51, "extrinsic_index": "51-1",
			 "params": "[{\"name\":\"controller\",\"value\":{\"Id\":\"` + alicePubHex + `\"}},{\"name\":\"value\",\"value\":\"100\"}]"}
		]}}`))
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	ops, err := c.ParseOperations(context.Background(), "", types.ModuleStaking, types.ExtrinsicBond, 1)
	require.NoError(t, err)
	require.Len(t, ops, 1)

	assert.Equal(t, aliceAddress, ops[0].ControllerWallet)
	assert.Equal(t, types.EmptyAddress, ops[0].ToWallet)
	assert.Equal(t, types.OperationStake, ops[0].Type)
}

func TestParseBatchAllFoldsInnerCalls(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req extrinsicsRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "utility", req.Module)
		assert.Equal(t, "batch_all", req.Call)

		_, _ = w.Write([]byte(`{"code": 0, "data": {"extrinsics": [
			{"success": true, "block_timestamp": 1700000000, "account_id": "staker", "block_num": 60, "extrinsic_index": "60-4",
			 "params": "[{\"name\":\"calls\",\"value\":[{\"call_name\":\"bond\",\"params\":[{\"name\":\"controller\",\"value\":{\"Id\":\"` + alicePubHex + `\"}},{\"name\":\"value\",\"value\":\"500000000000000\"}]},{\"call_name\":\"nominate\",\"params\":[{\"name\":\"targets\",\"value\":[{\"Id\":\"` + alicePubHex + `\"}]}]}]}]"}
		]}}`))
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	ops, err := c.ParseBatchAll(context.Background(), "", 0, 20)
	require.NoError(t, err)
	require.Len(t, ops, 1)

	assert.InDelta(t, 500.0, ops[0].Quantity, 1e-9)
	assert.Equal(t, aliceAddress, ops[0].ToWallet)
	assert.Equal(t, aliceAddress, ops[0].ControllerWallet)
	assert.Equal(t, types.OperationReStake, ops[0].Type, "a batch with nominate and no unbond is a re-stake")
}

func TestParseBatchAllClassifiesUnbond(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"code": 0, "data": {"extrinsics": [
			{"success": true, "block_timestamp": 1700000000, "account_id": "staker", "block_num": 61, "extrinsic_index": "61-2",
			 "params": "[{\"name\":\"calls\",\"value\":[{\"call_name\":\"unbond\",\"params\":[{\"name\":\"value\",\"value\":\"750000000000000\"}]}]}]"}
		]}}`))
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	ops, err := c.ParseBatchAll(context.Background(), "", 0, 20)
	require.NoError(t, err)
	require.Len(t, ops, 1)

	assert.InDelta(t, 750.0, ops[0].Quantity, 1e-9)
	assert.Equal(t, types.OperationRequestUnstake, ops[0].Type)
}

func TestParseExtrinsicDetails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req extrinsicDetailRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "60-4", req.ExtrinsicIndex)
		assert.True(t, req.OnlyExtrinsicEvent)

		_, _ = w.Write([]byte(`{"code": 0, "data": {"event": [
			{"module_id": "balances", "event_index": "60-0", "params": "[]"},
			{"module_id": "staking", "event_index": "60-1",
			 "params": "[{\"type_name\":\"AccountId\",\"value\":\"` + alicePubHex + `\",\"name\":\"stash\"},{\"type_name\":\"Balance\",\"value\":\"600000000000000\",\"name\":\"amount\"}]"}
		]}}`))
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	events, err := c.ParseExtrinsicDetails(context.Background(), "60-4")
	require.NoError(t, err)
	require.Len(t, events, 2)

	assert.Equal(t, "staking", events[1].ModuleID)
	require.Len(t, events[1].Params, 2)
	assert.Equal(t, "stash", events[1].Params[0].Name)
	assert.Equal(t, "600000000000000", events[1].Params[1].Value)
}

func TestParseIdentities(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req extrinsicsRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "identity", req.Module)
		assert.Equal(t, "set_identity", req.Call)

		_, _ = w.Write([]byte(`{"code": 0, "data": {"extrinsics": [
			{"success": true, "account_display": {"address": "addr-1", "display": "Validator One", "identity": true}},
			{"success": true, "account_display": {"address": "addr-2", "display": "", "identity": false}}
		]}}`))
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	identities, err := c.ParseIdentities(context.Background(), "addr-1", 0, 1)
	require.NoError(t, err)
	require.Len(t, identities, 1, "unregistered identities are skipped")

	assert.Equal(t, "addr-1", identities[0].Address)
	assert.Equal(t, "Validator One", identities[0].Identity)
}

func TestParseIdentitiesSkipsEmptyAddress(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected for the empty-address sentinel")
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	identities, err := c.ParseIdentities(context.Background(), types.EmptyAddress, 0, 1)
	require.NoError(t, err)
	assert.Empty(t, identities)
}

func TestParseTransfers(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req transfersRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "AZERO", req.AssetSymbol)
		assert.True(t, req.Success)

		_, _ = w.Write([]byte(`{"code": 0, "data": {"transfers": [
			{"success": true, "block_timestamp": 1700000100, "from": "sender-b", "to": "receiver-b", "block_num": 71, "extrinsic_index": "71-1", "amount": "2500.5",
			 "from_account_display": {"address": "sender-b", "display": "Whale"}, "to_account_display": {"address": "receiver-b"}},
			{"success": true, "block_timestamp": 1700000000, "from": "sender-a", "to": "receiver-a", "block_num": 70, "extrinsic_index": "70-1", "amount": "3000"}
		]}}`))
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	ops, identities, err := c.ParseTransfers(context.Background(), 0, 100)
	require.NoError(t, err)
	require.Len(t, ops, 2)

	assert.Equal(t, "sender-a", ops[0].FromWallet, "oldest first")
	assert.InDelta(t, 3000.0, ops[0].Quantity, 1e-9)
	assert.Equal(t, types.OperationTransfer, ops[0].Type)
	assert.Equal(t, "receiver-b", ops[1].ToWallet)

	require.Len(t, identities, 1, "only resolved display names are collected")
	assert.Equal(t, "sender-b", identities[0].Address)
	assert.Equal(t, "Whale", identities[0].Identity)
}
