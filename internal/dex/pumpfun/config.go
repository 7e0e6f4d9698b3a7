// =============================
// File: internal/dex/pumpfun/config.go
// =============================
package pumpfun

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// Known bonding-curve program addresses
var (
	// Program ID of the bonding-curve venue
	ProgramID = solana.MustPublicKeyFromBase58("6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P")

	// Event authority of the bonding-curve venue
	EventAuthority = solana.MustPublicKeyFromBase58("Ce6TQqeHC9p8KetsN6JsjHK7UTZk7nasjjnr7XxXp9F1")

	// TokenMetadataProgramID is the Metaplex token metadata program
	TokenMetadataProgramID = solana.MustPublicKeyFromBase58("metaqbxxUerdq28cj1RbAWkYQm3ybzjb6a8bt518x1s")
)

// Config holds the venue addresses every builder needs.
type Config struct {
	ProgramID      solana.PublicKey
	EventAuthority solana.PublicKey
	Global         solana.PublicKey
	FeeRecipient   solana.PublicKey
	// VenueConfig is the platform config account new curves are bound to.
	VenueConfig solana.PublicKey
}

// DefaultConfig returns mainnet addresses with the global PDA derived.
func DefaultConfig() *Config {
	cfg := &Config{
		ProgramID:      ProgramID,
		EventAuthority: EventAuthority,
	}
	cfg.Global, _ = DeriveGlobal(cfg.ProgramID)
	return cfg
}

// Validate fills derivable addresses and checks the rest.
func (cfg *Config) Validate() error {
	if cfg.ProgramID.IsZero() {
		cfg.ProgramID = ProgramID
	}
	if cfg.EventAuthority.IsZero() {
		cfg.EventAuthority = EventAuthority
	}
	if cfg.Global.IsZero() {
		global, err := DeriveGlobal(cfg.ProgramID)
		if err != nil {
			return err
		}
		cfg.Global = global
	}
	if cfg.FeeRecipient.IsZero() {
		return fmt.Errorf("pumpfun: fee recipient is required")
	}
	return nil
}
