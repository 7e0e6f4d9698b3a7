// =============================
// File: internal/dex/pumpswap/instructions.go
// =============================
package pumpswap

import (
	"fmt"

	"github.com/gagliardetto/solana-go"

	binutil "github.com/rovshanmuradov/launchpad-settlement/internal/utils/binary"
)

// Instruction discriminators extracted from the IDL
var (
	buyDiscriminator  = binutil.Discriminator{102, 6, 61, 18, 1, 218, 235, 234}
	sellDiscriminator = binutil.Discriminator{51, 230, 133, 164, 1, 127, 131, 173}

	claimPositionFeeDiscriminator = binutil.InstructionDiscriminator(InstructionClaimPositionFee)
)

const (
	InstructionBuy              = "buy"
	InstructionSell             = "sell"
	InstructionClaimPositionFee = "claim_position_fee"
)

var discriminators = map[binutil.Discriminator]string{
	buyDiscriminator:              InstructionBuy,
	sellDiscriminator:             InstructionSell,
	claimPositionFeeDiscriminator: InstructionClaimPositionFee,
}

// ClassifyInstruction returns the instruction name encoded in data, or "" if unknown.
func ClassifyInstruction(data []byte) string {
	if len(data) < binutil.DiscriminatorSize {
		return ""
	}
	var d binutil.Discriminator
	copy(d[:], data[:binutil.DiscriminatorSize])
	return discriminators[d]
}

// ClaimPositionFeeParams contains all parameters needed to claim a position's fees
type ClaimPositionFeeParams struct {
	Pool        solana.PublicKey
	PoolState   *Pool
	Position    solana.PublicKey
	Owner       solana.PublicKey
	BaseProgram solana.PublicKey // defaults to the SPL token program
}

// ClaimPositionFee builds the instruction paying both pending fee legs to the owner's
// associated token accounts, which must exist.
func ClaimPositionFee(cfg *Config, params ClaimPositionFeeParams) (solana.Instruction, error) {
	if params.PoolState == nil {
		return nil, fmt.Errorf("claim position fee: pool state is required")
	}
	if params.Owner.IsZero() || params.Position.IsZero() || params.Pool.IsZero() {
		return nil, fmt.Errorf("claim position fee: pool, position and owner are required")
	}
	baseProgram := params.BaseProgram
	if baseProgram.IsZero() {
		baseProgram = solana.TokenProgramID
	}
	pool := params.PoolState

	ownerBase, _, err := solana.FindAssociatedTokenAddress(params.Owner, pool.BaseMint)
	if err != nil {
		return nil, fmt.Errorf("failed to derive owner base account: %w", err)
	}
	ownerQuote, _, err := solana.FindAssociatedTokenAddress(params.Owner, pool.QuoteMint)
	if err != nil {
		return nil, fmt.Errorf("failed to derive owner quote account: %w", err)
	}
	data, err := binutil.EncodeInstruction(claimPositionFeeDiscriminator, nil)
	if err != nil {
		return nil, err
	}

	// Create accounts list in the required order
	accountMetas := []*solana.AccountMeta{
		solana.NewAccountMeta(params.Pool, false, false),
		solana.NewAccountMeta(params.Position, true, false),
		solana.NewAccountMeta(params.Owner, true, true),
		solana.NewAccountMeta(pool.BaseMint, false, false),
		solana.NewAccountMeta(pool.QuoteMint, false, false),
		solana.NewAccountMeta(ownerBase, true, false),
		solana.NewAccountMeta(ownerQuote, true, false),
		solana.NewAccountMeta(pool.PoolBaseTokenAccount, true, false),
		solana.NewAccountMeta(pool.PoolQuoteTokenAccount, true, false),
		solana.NewAccountMeta(baseProgram, false, false),
		solana.NewAccountMeta(solana.TokenProgramID, false, false),
		solana.NewAccountMeta(cfg.EventAuthority, false, false),
		solana.NewAccountMeta(cfg.ProgramID, false, false),
	}
	return solana.NewInstruction(cfg.ProgramID, accountMetas, data), nil
}
