// =============================
// File: internal/dex/pumpswap/config.go
// =============================
package pumpswap

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

var (
	// ProgramID of the AMM venue
	ProgramID = solana.MustPublicKeyFromBase58("pAMMBay6oceH9fJKBRHGP5D4bD4sWpmSwMn52FMfXEA")

	// WSOLMint is the reference asset every launched pool is paired against
	WSOLMint = solana.SolMint
)

const WSOLDecimals = 9

// Config holds the AMM venue addresses.
type Config struct {
	ProgramID      solana.PublicKey
	GlobalConfig   solana.PublicKey
	EventAuthority solana.PublicKey
	// CurveProgramID owns the pool-authority PDA that creates canonical pools at migration.
	CurveProgramID solana.PublicKey
}

// DefaultConfig returns the mainnet configuration for curveProgram.
func DefaultConfig(curveProgram solana.PublicKey) (*Config, error) {
	cfg := &Config{ProgramID: ProgramID, CurveProgramID: curveProgram}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate derives the PDAs that depend on the program id.
func (cfg *Config) Validate() error {
	if cfg.ProgramID.IsZero() {
		cfg.ProgramID = ProgramID
	}
	if cfg.CurveProgramID.IsZero() {
		return fmt.Errorf("pumpswap: curve program id is required")
	}
	var err error
	if cfg.GlobalConfig.IsZero() {
		cfg.GlobalConfig, _, err = cfg.DeriveGlobalConfigAddress()
		if err != nil {
			return fmt.Errorf("failed to derive global config address: %w", err)
		}
	}
	if cfg.EventAuthority.IsZero() {
		cfg.EventAuthority, _, err = solana.FindProgramAddress(
			[][]byte{[]byte("__event_authority")},
			cfg.ProgramID,
		)
		if err != nil {
			return fmt.Errorf("failed to derive event authority: %w", err)
		}
	}
	return nil
}

// DeriveGlobalConfigAddress derives the PDA of the global config account.
func (cfg *Config) DeriveGlobalConfigAddress() (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress(
		[][]byte{[]byte("global_config")},
		cfg.ProgramID,
	)
}
