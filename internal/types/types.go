// Package types provides common type definitions shared across the feed workers.
package types

// Exchange identifies a centralized exchange whose public trade history is polled.
type Exchange string

const (
	// ExchangeMexc represents the MEXC exchange
	ExchangeMexc Exchange = "Mexc"
	// ExchangeKucoin represents the KuCoin exchange
	ExchangeKucoin Exchange = "Kucoin"
	// ExchangeGate represents the Gate.io exchange
	ExchangeGate Exchange = "Gate"
	// ExchangeCoinDCX represents the CoinDCX exchange
	ExchangeCoinDCX Exchange = "CoinDCX"
)

// TradeSide represents the taker side of an exchange trade
type TradeSide string

const (
	// SideBuy represents a taker buy
	SideBuy TradeSide = "buy"
	// SideSell represents a taker sell
	SideSell TradeSide = "sell"
)

// PrimaryToken is the token whose market activity is being tracked
type PrimaryToken string

// SecondaryToken is the quote token of a market pair
type SecondaryToken string

const (
	// TokenAzero is the Aleph Zero native token
	TokenAzero PrimaryToken = "Azero"
	// TokenUsdt is the Tether quote token
	TokenUsdt SecondaryToken = "Usdt"
	// TokenUsdc is the USD Coin quote token
	TokenUsdc SecondaryToken = "Usdc"
)

// OperationType classifies an on-chain operation for filtering and rendering
type OperationType string

const (
	// OperationStake covers bond, bond_extra and rebond calls
	OperationStake OperationType = "Stake"
	// OperationReStake covers nominate calls (moving stake to a validator)
	OperationReStake OperationType = "ReStake"
	// OperationRequestUnstake covers unbond calls
	OperationRequestUnstake OperationType = "RequestUnstake"
	// OperationWithdrawUnstaked covers withdraw_unbonded calls
	OperationWithdrawUnstaked OperationType = "WithdrawUnstaked"
	// OperationTransfer is a plain balance transfer
	OperationTransfer OperationType = "Transfer"
	// OperationDepositToExchange is a transfer into a known exchange wallet
	OperationDepositToExchange OperationType = "DepositToExchange"
	// OperationWithdrawFromExchange is a transfer out of a known exchange wallet
	OperationWithdrawFromExchange OperationType = "WithdrawFromExchange"
)

// ExtrinsicType is the on-chain call name used when listing extrinsics
type ExtrinsicType string

const (
	// ExtrinsicBond is the staking.bond call
	ExtrinsicBond ExtrinsicType = "bond"
	// ExtrinsicBondExtra is the staking.bond_extra call
	ExtrinsicBondExtra ExtrinsicType = "bond_extra"
	// ExtrinsicNominate is the staking.nominate call
	ExtrinsicNominate ExtrinsicType = "nominate"
	// ExtrinsicRebond is the staking.rebond call
	ExtrinsicRebond ExtrinsicType = "rebond"
	// ExtrinsicUnbond is the staking.unbond call
	ExtrinsicUnbond ExtrinsicType = "unbond"
	// ExtrinsicWithdrawUnbonded is the staking.withdraw_unbonded call
	ExtrinsicWithdrawUnbonded ExtrinsicType = "withdraw_unbonded"
)

// StakingExtrinsicTypes lists every staking call the chain ingester polls.
var StakingExtrinsicTypes = []ExtrinsicType{
	ExtrinsicBond,
	ExtrinsicBondExtra,
	ExtrinsicNominate,
	ExtrinsicRebond,
	ExtrinsicUnbond,
	ExtrinsicWithdrawUnbonded,
}

// OperationTypeForExtrinsic maps a staking call to its coarse operation type.
func OperationTypeForExtrinsic(ext ExtrinsicType) OperationType {
	switch ext {
	case ExtrinsicNominate:
		return OperationReStake
	case ExtrinsicUnbond:
		return OperationRequestUnstake
	case ExtrinsicWithdrawUnbonded:
		return OperationWithdrawUnstaked
	default:
		// bond, bond_extra and rebond all add to the active stake
		return OperationStake
	}
}

// Module is the runtime pallet queried when listing extrinsics
type Module string

const (
	// ModuleStaking is the staking pallet
	ModuleStaking Module = "staking"
	// ModuleUtility is the utility pallet (batch calls)
	ModuleUtility Module = "utility"
	// ModuleIdentity is the identity pallet
	ModuleIdentity Module = "identity"
)

// Network identifies the chain served by the block-explorer API
type Network string

// NetworkAlephZero is the Aleph Zero mainnet.
const NetworkAlephZero Network = "alephzero"

// EmptyAddress is the sentinel used when a counterparty wallet is unknown.
const EmptyAddress = "0x0"

// IsEmptyAddress reports whether addr is the unknown-wallet sentinel.
func IsEmptyAddress(addr string) bool {
	return addr == EmptyAddress || addr == ""
}

// AzeroDenominator converts on-chain plancks into whole AZERO.
const AzeroDenominator = 1e12
