// internal/ledger/types.go
package ledger

import (
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/launchpad-settlement/internal/domain"
)

// OperationKind identifies what an on-chain operation does, independent of venue layout.
type OperationKind string

const (
	OpClaimTradingFee      OperationKind = "claim-trading-fee"
	OpWithdrawMigrationFee OperationKind = "withdraw-migration-fee"
	OpClaimPoolFee         OperationKind = "claim-pool-fee"
	OpLaunch               OperationKind = "launch"
	OpBuy                  OperationKind = "buy"
	OpSell                 OperationKind = "sell"
	OpBurn                 OperationKind = "burn"
)

var claimKinds = map[domain.FeeType]OperationKind{
	domain.FeeTrading:   OpClaimTradingFee,
	domain.FeeMigration: OpWithdrawMigrationFee,
	domain.FeePool:      OpClaimPoolFee,
}

// ClaimKind returns the operation that claims fee type t.
func ClaimKind(t domain.FeeType) (OperationKind, bool) {
	k, ok := claimKinds[t]
	return k, ok
}

// FeeType returns the fee type a claim operation settles.
func (k OperationKind) FeeType() (domain.FeeType, bool) {
	for t, kind := range claimKinds {
		if kind == k {
			return t, true
		}
	}
	return "", false
}

// AmmFeeView is the AMM-venue state relevant to pool fees of one migrated asset.
type AmmFeeView struct {
	Pool          solana.PublicKey
	Asset         solana.PublicKey
	ReferenceMint solana.PublicKey
	LPFeeBps      uint64
}

// LiquidityPosition is a wallet's share of an AMM pool with its reference-asset fee leg.
type LiquidityPosition struct {
	Address            solana.PublicKey
	Pool               solana.PublicKey
	Owner              solana.PublicKey
	Liquidity          uint64
	NativeFeeClaimed   uint64
	NativeFeeUnclaimed uint64
}

// NativeFee returns claimed plus unclaimed reference-asset fees.
func (p LiquidityPosition) NativeFee() uint64 {
	return p.NativeFeeClaimed + p.NativeFeeUnclaimed
}

// TokenKey addresses a token balance by owner and mint.
type TokenKey struct {
	Owner solana.PublicKey
	Mint  solana.PublicKey
}

// TxOutcome is the ledger truth about one transaction signature.
type TxOutcome struct {
	Signature solana.Signature
	// Finalized is false when the transaction never became visible at finalized commitment.
	Finalized bool
	// Err is the rendered on-chain error; empty when the transaction succeeded.
	Err       string
	Signer    solana.PublicKey // fee payer, account index 0
	Fee       uint64
	Slot      uint64
	BlockTime time.Time

	NativeDeltas   map[solana.PublicKey]int64 // post - pre, lamports
	TokenDeltas    map[TokenKey]int64         // post - pre, raw token units
	InvolvedAssets []solana.PublicKey         // mints with a pre or post token balance
	Kinds          []OperationKind            // classified top-level instructions
}

// Succeeded reports whether the transaction finalized without error.
func (o *TxOutcome) Succeeded() bool {
	return o != nil && o.Finalized && o.Err == ""
}

// NativeDelta returns the lamport balance change of account.
func (o *TxOutcome) NativeDelta(account solana.PublicKey) int64 {
	return o.NativeDeltas[account]
}

// TokenDelta returns the raw token balance change of owner for mint.
func (o *TxOutcome) TokenDelta(owner, mint solana.PublicKey) int64 {
	return o.TokenDeltas[TokenKey{Owner: owner, Mint: mint}]
}

// Involves reports whether mint appears among the transaction's token balances.
func (o *TxOutcome) Involves(mint solana.PublicKey) bool {
	for _, m := range o.InvolvedAssets {
		if m.Equals(mint) {
			return true
		}
	}
	return false
}

// HasKind reports whether an instruction of kind k was executed.
func (o *TxOutcome) HasKind(k OperationKind) bool {
	for _, kind := range o.Kinds {
		if kind == k {
			return true
		}
	}
	return false
}

// PositionResult pairs an asset with its position or lookup error.
type PositionResult struct {
	Asset    solana.PublicKey
	Position *domain.Position
	Err      error
}

// OutcomeResult pairs a signature with its outcome or lookup error.
type OutcomeResult struct {
	Signature solana.Signature
	Outcome   *TxOutcome
	Err       error
}

// LaunchParams are the metadata arguments of a launch operation.
type LaunchParams struct {
	Name           string
	Symbol         string
	MetadataURI    string
	TaggedClaimant solana.PublicKey
}

// OperationParams carries the inputs of BuildOperation. Which fields are required
// depends on the kind.
type OperationParams struct {
	FeePayer solana.PublicKey
	Asset    solana.PublicKey

	// Position is the bonding-curve account; derived from Asset when zero.
	Position           solana.PublicKey
	AmmPool            solana.PublicKey
	LiquidityPositions []solana.PublicKey

	// Amount is the expected claim in lamports, the lamports to spend on a buy,
	// or the raw tokens to burn.
	Amount uint64

	Launch *LaunchParams
}

// PreparedOperation is one independently submittable unsigned transaction.
type PreparedOperation struct {
	Kind           OperationKind  `json:"kind"`
	FeeType        domain.FeeType `json:"feeType,omitempty"`
	Step           string         `json:"step,omitempty"`
	FeePayer       string         `json:"feePayer"`
	Transaction    string         `json:"transaction"` // base64 wire format
	Blockhash      string         `json:"recentBlockhash"`
	AmountLamports uint64         `json:"amountLamports,omitempty"`
	TokenAmount    uint64         `json:"tokenAmount,omitempty"`
	Mint           string         `json:"mint,omitempty"`
}
