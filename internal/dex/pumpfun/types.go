// =============================
// File: internal/dex/pumpfun/types.go
// =============================
package pumpfun

import (
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/launchpad-settlement/internal/domain"
	binutil "github.com/rovshanmuradov/launchpad-settlement/internal/utils/binary"
)

var (
	GlobalAccountDiscriminator = binutil.AccountDiscriminator("Global")
	BondingCurveDiscriminator  = binutil.AccountDiscriminator("BondingCurve")
)

// GlobalAccount represents the structure of the venue global account data
type GlobalAccount struct {
	Initialized                 bool
	Authority                   solana.PublicKey
	FeeRecipient                solana.PublicKey
	InitialVirtualTokenReserves uint64
	InitialVirtualSolReserves   uint64
	InitialRealTokenReserves    uint64
	TokenTotalSupply            uint64
	FeeBasisPoints              uint64
}

// BondingCurve is the per-asset curve account. It doubles as the fee-bearing
// position: accrued creator fees and the migration flags live here.
type BondingCurve struct {
	VirtualTokenReserves  uint64
	VirtualSolReserves    uint64
	RealTokenReserves     uint64
	RealSolReserves       uint64
	TokenTotalSupply      uint64
	Complete              bool
	Creator               solana.PublicKey
	Mint                  solana.PublicKey
	Config                solana.PublicKey
	TaggedClaimant        solana.PublicKey
	CreatorTradingFee     uint64
	MigrationFeeWithdrawn bool
}

// ParseGlobalAccount decodes global account data.
func ParseGlobalAccount(data []byte) (*GlobalAccount, error) {
	var g GlobalAccount
	if err := binutil.DecodeAccount(data, GlobalAccountDiscriminator, &g); err != nil {
		return nil, fmt.Errorf("pumpfun global: %w", err)
	}
	return &g, nil
}

// ParseBondingCurve decodes bonding curve account data.
func ParseBondingCurve(data []byte) (*BondingCurve, error) {
	var bc BondingCurve
	if err := binutil.DecodeAccount(data, BondingCurveDiscriminator, &bc); err != nil {
		return nil, fmt.Errorf("pumpfun bonding curve: %w", err)
	}
	return &bc, nil
}

// Encode serialises the curve with its discriminator.
func (bc *BondingCurve) Encode() ([]byte, error) {
	return binutil.EncodeAccount(BondingCurveDiscriminator, bc)
}

// Encode serialises the global account with its discriminator.
func (g *GlobalAccount) Encode() ([]byte, error) {
	return binutil.EncodeAccount(GlobalAccountDiscriminator, g)
}

// ToPosition projects the curve onto the venue-neutral Position.
// A completed curve has migrated to the AMM venue.
func (bc *BondingCurve) ToPosition(address solana.PublicKey) domain.Position {
	return domain.Position{
		Address:               address,
		Asset:                 bc.Mint,
		Creator:               bc.Creator,
		TaggedClaimant:        bc.TaggedClaimant,
		VenueConfig:           bc.Config,
		Migrated:              bc.Complete,
		MigrationFeeWithdrawn: bc.MigrationFeeWithdrawn,
		AccumulatedTradingFee: bc.CreatorTradingFee,
	}
}
