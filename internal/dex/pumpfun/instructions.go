// ==============================================
// File: internal/dex/pumpfun/instructions.go
// ==============================================
package pumpfun

import (
	"fmt"

	"github.com/gagliardetto/solana-go"

	binutil "github.com/rovshanmuradov/launchpad-settlement/internal/utils/binary"
)

// Instruction names as declared by the program. Their discriminators are
// sha256("global:<name>")[:8].
const (
	InstructionCreate               = "create"
	InstructionBuy                  = "buy"
	InstructionSell                 = "sell"
	InstructionClaimTradingFee      = "claim_trading_fee"
	InstructionWithdrawMigrationFee = "withdraw_migration_fee"
)

var discriminators = map[binutil.Discriminator]string{
	binutil.InstructionDiscriminator(InstructionCreate):               InstructionCreate,
	binutil.InstructionDiscriminator(InstructionBuy):                  InstructionBuy,
	binutil.InstructionDiscriminator(InstructionSell):                 InstructionSell,
	binutil.InstructionDiscriminator(InstructionClaimTradingFee):      InstructionClaimTradingFee,
	binutil.InstructionDiscriminator(InstructionWithdrawMigrationFee): InstructionWithdrawMigrationFee,
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

// SysvarRentPubkey is the rent sysvar
var SysvarRentPubkey = solana.SysVarRentPubkey

// ClaimAccounts are the accounts of a fee claim against one curve.
type ClaimAccounts struct {
	Claimant     solana.PublicKey
	Mint         solana.PublicKey
	BondingCurve solana.PublicKey
}

// ClaimTradingFee builds the instruction sweeping accrued trading fees to the claimant.
func ClaimTradingFee(cfg *Config, accounts ClaimAccounts) (solana.Instruction, error) {
	return buildClaim(cfg, InstructionClaimTradingFee, accounts)
}

// WithdrawMigrationFee builds the instruction paying the migration fee to the creator.
func WithdrawMigrationFee(cfg *Config, accounts ClaimAccounts) (solana.Instruction, error) {
	return buildClaim(cfg, InstructionWithdrawMigrationFee, accounts)
}

func buildClaim(cfg *Config, name string, accounts ClaimAccounts) (solana.Instruction, error) {
	if accounts.Claimant.IsZero() || accounts.Mint.IsZero() || accounts.BondingCurve.IsZero() {
		return nil, fmt.Errorf("%s: claimant, mint and bonding curve are required", name)
	}
	vault, err := DeriveFeeVault(cfg.ProgramID, accounts.BondingCurve)
	if err != nil {
		return nil, err
	}
	data, err := binutil.EncodeInstruction(binutil.InstructionDiscriminator(name), nil)
	if err != nil {
		return nil, err
	}

	metas := []*solana.AccountMeta{
		solana.NewAccountMeta(cfg.Global, false, false),
		solana.NewAccountMeta(accounts.BondingCurve, true, false),
		solana.NewAccountMeta(vault, true, false),
		solana.NewAccountMeta(accounts.Mint, false, false),
		solana.NewAccountMeta(accounts.Claimant, true, true),
		solana.NewAccountMeta(solana.SystemProgramID, false, false),
		solana.NewAccountMeta(cfg.EventAuthority, false, false),
		solana.NewAccountMeta(cfg.ProgramID, false, false),
	}
	return solana.NewInstruction(cfg.ProgramID, metas, data), nil
}

// CreateArgs are the borsh-encoded arguments of the create instruction.
type CreateArgs struct {
	Name           string
	Symbol         string
	URI            string
	Creator        solana.PublicKey
	TaggedClaimant solana.PublicKey
}

// CreateAccounts are the accounts of a launch.
type CreateAccounts struct {
	Mint    solana.PublicKey // fresh keypair, signs the transaction
	Creator solana.PublicKey // fee payer
}

// Create builds the instruction minting a new asset and initialising its curve.
func Create(cfg *Config, accounts CreateAccounts, args CreateArgs) (solana.Instruction, error) {
	if accounts.Mint.IsZero() || accounts.Creator.IsZero() {
		return nil, fmt.Errorf("create: mint and creator are required")
	}
	if args.Name == "" || args.Symbol == "" || args.URI == "" {
		return nil, fmt.Errorf("create: name, symbol and uri are required")
	}
	if cfg.VenueConfig.IsZero() {
		return nil, fmt.Errorf("create: venue config is not set")
	}

	mintAuthority, err := DeriveMintAuthority(cfg.ProgramID)
	if err != nil {
		return nil, err
	}
	curve, err := DeriveBondingCurve(cfg.ProgramID, accounts.Mint)
	if err != nil {
		return nil, err
	}
	associatedCurve, err := DeriveAssociatedBondingCurve(curve, accounts.Mint)
	if err != nil {
		return nil, err
	}
	metadata, err := DeriveMetadata(accounts.Mint)
	if err != nil {
		return nil, err
	}
	data, err := binutil.EncodeInstruction(binutil.InstructionDiscriminator(InstructionCreate), args)
	if err != nil {
		return nil, err
	}

	// Account list must be in the exact order expected by the program
	metas := []*solana.AccountMeta{
		solana.NewAccountMeta(accounts.Mint, true, true),
		solana.NewAccountMeta(mintAuthority, false, false),
		solana.NewAccountMeta(curve, true, false),
		solana.NewAccountMeta(associatedCurve, true, false),
		solana.NewAccountMeta(cfg.Global, false, false),
		solana.NewAccountMeta(cfg.VenueConfig, false, false),
		solana.NewAccountMeta(TokenMetadataProgramID, false, false),
		solana.NewAccountMeta(metadata, true, false),
		solana.NewAccountMeta(accounts.Creator, true, true),
		solana.NewAccountMeta(solana.SystemProgramID, false, false),
		solana.NewAccountMeta(solana.TokenProgramID, false, false),
		solana.NewAccountMeta(solana.SPLAssociatedTokenAccountProgramID, false, false),
		solana.NewAccountMeta(SysvarRentPubkey, false, false),
		solana.NewAccountMeta(cfg.EventAuthority, false, false),
		solana.NewAccountMeta(cfg.ProgramID, false, false),
	}
	return solana.NewInstruction(cfg.ProgramID, metas, data), nil
}

// BuyArgs are the borsh-encoded arguments of the buy instruction.
type BuyArgs struct {
	Amount     uint64 // tokens out
	MaxSolCost uint64 // lamports
}

// Buy builds an exact-token buy. The user's associated token account must exist.
func Buy(cfg *Config, user, mint solana.PublicKey, args BuyArgs) (solana.Instruction, error) {
	if user.IsZero() || mint.IsZero() {
		return nil, fmt.Errorf("buy: user and mint are required")
	}
	if cfg.FeeRecipient.IsZero() {
		return nil, fmt.Errorf("buy: fee recipient is not set")
	}
	curve, err := DeriveBondingCurve(cfg.ProgramID, mint)
	if err != nil {
		return nil, err
	}
	associatedCurve, err := DeriveAssociatedBondingCurve(curve, mint)
	if err != nil {
		return nil, err
	}
	associatedUser, _, err := solana.FindAssociatedTokenAddress(user, mint)
	if err != nil {
		return nil, fmt.Errorf("failed to get associated token account: %w", err)
	}
	data, err := binutil.EncodeInstruction(binutil.InstructionDiscriminator(InstructionBuy), args)
	if err != nil {
		return nil, err
	}

	// Account list must be in the exact order expected by the program
	metas := []*solana.AccountMeta{
		{PublicKey: cfg.Global, IsSigner: false, IsWritable: false},
		{PublicKey: cfg.FeeRecipient, IsSigner: false, IsWritable: true},
		{PublicKey: mint, IsSigner: false, IsWritable: false},
		{PublicKey: curve, IsSigner: false, IsWritable: true},
		{PublicKey: associatedCurve, IsSigner: false, IsWritable: true},
		{PublicKey: associatedUser, IsSigner: false, IsWritable: true},
		{PublicKey: user, IsSigner: true, IsWritable: true},
		{PublicKey: solana.SystemProgramID, IsSigner: false, IsWritable: false},
		{PublicKey: solana.TokenProgramID, IsSigner: false, IsWritable: false},
		{PublicKey: SysvarRentPubkey, IsSigner: false, IsWritable: false},
		{PublicKey: cfg.EventAuthority, IsSigner: false, IsWritable: false},
		{PublicKey: cfg.ProgramID, IsSigner: false, IsWritable: false},
	}
	return solana.NewInstruction(cfg.ProgramID, metas, data), nil
}
