package models

import (
	"fmt"
	"time"

	"github.com/azero-feed/internal/types"
)

// Operation is one on-chain staking or transfer event. Records pass through
// several enrichment stages (event detail, validator resolution, USD pricing)
// before the hash is stamped; the operations collection enforces uniqueness on
// Hash and expires records via a TTL index on Timestamp.
type Operation struct {
	Hash           string              `bson:"hash" json:"hash"`
	BlockNumber    uint64              `bson:"block_number" json:"blockNumber"`
	ExtrinsicIndex string              `bson:"extrinsic_index" json:"extrinsicIndex"`
	Timestamp      time.Time           `bson:"operation_timestamp" json:"operationTimestamp"`
	Quantity       float64             `bson:"operation_quantity" json:"operationQuantity"`
	AmountUSD      float64             `bson:"operation_usd" json:"operationUSD"`
	Type           types.OperationType `bson:"operation_type" json:"operationType"`
	FromWallet     string              `bson:"from_wallet" json:"fromWallet"`
	ToWallet       string              `bson:"to_wallet" json:"toWallet"`
	// ControllerWallet is the secondary signer when staking is driven through a
	// separate controller account; empty-address sentinel otherwise.
	ControllerWallet string `bson:"controller_wallet" json:"controllerWallet"`
}

// ComputeHash returns the deterministic digest of the operation identity tuple.
// Must only be called after all enrichment mutations have settled.
func (o *Operation) ComputeHash() string {
	return digest(fmt.Sprintf("%d_%s_%s_%s_%s",
		o.Timestamp.UTC().UnixMilli(),
		formatAmount(o.Quantity),
		o.Type,
		o.FromWallet,
		o.ToWallet,
	))
}

// SetHash stamps the record with its content hash.
func (o *Operation) SetHash() {
	o.Hash = o.ComputeHash()
}

// Validator maps a nominator wallet to the validator it stakes toward.
// One validator per nominator; upserts are keyed on Nominator.
type Validator struct {
	Nominator string `bson:"nominator" json:"nominator"`
	Validator string `bson:"validator" json:"validator"`
}

// Identity maps a wallet address to its on-chain display name.
type Identity struct {
	Address  string `bson:"address" json:"address"`
	Identity string `bson:"identity" json:"identity"`
}

// PostedMessage records the content hash of a message already delivered to the
// feed channel, used purely for duplicate suppression.
type PostedMessage struct {
	Hash string `bson:"already_posted_hash" json:"alreadyPostedHash"`
}

// Event is the decoded event log entry of one extrinsic.
type Event struct {
	ModuleID   string       `json:"moduleId"`
	EventIndex string       `json:"eventIndex"`
	Params     []EventParam `json:"params"`
}

// EventParam is a single named parameter of an event.
type EventParam struct {
	TypeName string `json:"typeName"`
	Value    string `json:"value"`
	Name     string `json:"name"`
}
