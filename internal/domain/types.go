// internal/domain/types.go
package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
)

// FeeType identifies one claimable fee stream.
type FeeType string

const (
	FeeTrading   FeeType = "trading"
	FeeMigration FeeType = "migration"
	FeePool      FeeType = "pool"
)

// ClaimOrder is the fixed order in which claim operations are returned to the client.
var ClaimOrder = []FeeType{FeeTrading, FeeMigration, FeePool}

// ParseFeeType converts a wire value into a FeeType.
func ParseFeeType(s string) (FeeType, error) {
	switch FeeType(strings.ToLower(s)) {
	case FeeTrading:
		return FeeTrading, nil
	case FeeMigration:
		return FeeMigration, nil
	case FeePool:
		return FeePool, nil
	}
	return "", fmt.Errorf("unknown fee type %q", s)
}

// Role gates which entitlements a wallet may claim.
type Role string

const (
	RoleCreator Role = "creator"
	RoleTagged  Role = "tagged"
)

// ParseRole converts a wire value into a Role. Empty input defaults to creator.
func ParseRole(s string) (Role, error) {
	switch Role(strings.ToLower(s)) {
	case "", RoleCreator:
		return RoleCreator, nil
	case RoleTagged:
		return RoleTagged, nil
	}
	return "", fmt.Errorf("unknown claimant role %q", s)
}

// Eligible reports whether the role may claim the given fee type.
// The migration fee belongs to the creator only.
func (r Role) Eligible(t FeeType) bool {
	if t == FeeMigration {
		return r == RoleCreator
	}
	return true
}

// Direction of a reported trade.
type Direction string

const (
	DirectionBuy  Direction = "buy"
	DirectionSell Direction = "sell"
)

// ParseDirection converts a wire value into a Direction.
func ParseDirection(s string) (Direction, error) {
	switch Direction(strings.ToLower(s)) {
	case DirectionBuy:
		return DirectionBuy, nil
	case DirectionSell:
		return DirectionSell, nil
	}
	return "", fmt.Errorf("unknown trade direction %q", s)
}

// Position is the fee-bearing bonding-curve record of one launched asset.
type Position struct {
	Address               solana.PublicKey // bonding-curve account
	Asset                 solana.PublicKey // launched mint
	Creator               solana.PublicKey
	TaggedClaimant        solana.PublicKey // zero when no tagged wallet was set
	VenueConfig           solana.PublicKey
	Migrated              bool
	MigrationFeeWithdrawn bool
	AccumulatedTradingFee uint64 // lamports
}

// HasTaggedClaimant reports whether a tagged wallet is set.
func (p *Position) HasTaggedClaimant() bool {
	return !p.TaggedClaimant.IsZero()
}

// ClaimRequest asks for the operations needed to claim everything available.
type ClaimRequest struct {
	Wallet solana.PublicKey
	Asset  solana.PublicKey
	Role   Role
}

// TradeSettlement is the committed fact of a verified trade.
type TradeSettlement struct {
	Wallet          string    `json:"wallet"`
	Asset           string    `json:"asset"`
	Direction       Direction `json:"direction"`
	SettledLamports uint64    `json:"settledLamports"`
	Signature       string    `json:"signature"`
	CreatedAt       time.Time `json:"createdAt"`
}

// ClaimSettlement is the committed fact of a finalized fee claim.
type ClaimSettlement struct {
	Asset          string    `json:"asset"`
	Wallet         string    `json:"wallet"`
	FeeType        FeeType   `json:"feeType"`
	AmountLamports uint64    `json:"amountLamports"`
	Signature      string    `json:"signature"`
	CreatedAt      time.Time `json:"createdAt"`
}
