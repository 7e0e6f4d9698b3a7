// internal/domain/entitlement.go
package domain

import (
	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
)

// Entitlement is a point-in-time view of what a wallet may claim for one asset.
// Only fee types present in Fees are claimable; the map never holds zero values.
type Entitlement struct {
	Asset  solana.PublicKey
	Wallet solana.PublicKey

	// Fees holds lamport amounts keyed by fee type.
	Fees map[FeeType]uint64

	// Claimants recorded on the position; zero when the asset is unknown.
	Creator        solana.PublicKey
	TaggedClaimant solana.PublicKey

	Found                 bool // false when the asset has no bonding-curve record
	Migrated              bool
	MigrationFeeWithdrawn bool

	// Venue references needed to build claim operations.
	Position           solana.PublicKey
	VenueConfig        solana.PublicKey
	AmmPool            solana.PublicKey
	LiquidityPositions []solana.PublicKey
}

// NewEntitlement returns an empty entitlement for the pair.
func NewEntitlement(asset, wallet solana.PublicKey) *Entitlement {
	return &Entitlement{
		Asset:  asset,
		Wallet: wallet,
		Fees:   make(map[FeeType]uint64),
	}
}

// Amount returns the lamport amount of a fee type and whether it is present.
func (e *Entitlement) Amount(t FeeType) (uint64, bool) {
	if e == nil || e.Fees == nil {
		return 0, false
	}
	v, ok := e.Fees[t]
	return v, ok
}

// HeldBy reports whether wallet is the position's claimant for role.
func (e *Entitlement) HeldBy(wallet solana.PublicKey, role Role) bool {
	if e == nil || wallet.IsZero() {
		return false
	}
	switch role {
	case RoleCreator:
		return wallet == e.Creator
	case RoleTagged:
		return !e.TaggedClaimant.IsZero() && wallet == e.TaggedClaimant
	}
	return false
}

// Empty reports whether nothing is claimable.
func (e *Entitlement) Empty() bool {
	return e == nil || len(e.Fees) == 0
}

// Display returns the present fee amounts in display units.
func (e *Entitlement) Display() map[FeeType]decimal.Decimal {
	out := make(map[FeeType]decimal.Decimal, len(e.Fees))
	for t, v := range e.Fees {
		out[t] = LamportsToSOL(v)
	}
	return out
}
