package pumpswap

import (
	"fmt"

	"github.com/gagliardetto/solana-go"

	binutil "github.com/rovshanmuradov/launchpad-settlement/internal/utils/binary"
)

// Account discriminators extracted from the IDL
var (
	// GlobalConfigDiscriminator is the discriminator for GlobalConfig accounts
	GlobalConfigDiscriminator = binutil.Discriminator{149, 8, 156, 202, 160, 252, 176, 217}

	// PoolDiscriminator is the discriminator for Pool accounts
	PoolDiscriminator = binutil.Discriminator{241, 154, 109, 4, 17, 177, 109, 188}

	// LiquidityPositionDiscriminator is the discriminator for LiquidityPosition accounts
	LiquidityPositionDiscriminator = binutil.AccountDiscriminator("LiquidityPosition")
)

// GlobalConfig represents the global configuration for the AMM venue
type GlobalConfig struct {
	Admin                  solana.PublicKey    // The admin public key
	LPFeeBasisPoints       uint64              // LP fee in basis points (0.01%)
	ProtocolFeeBasisPoints uint64              // Protocol fee in basis points (0.01%)
	DisableFlags           uint8               // Flags to disable certain functionality
	ProtocolFeeRecipients  [8]solana.PublicKey // Addresses of protocol fee recipients
}

// Pool represents a liquidity pool
type Pool struct {
	PoolBump              uint8            // PDA bump
	Index                 uint16           // Pool index
	Creator               solana.PublicKey // Creator of the pool
	BaseMint              solana.PublicKey // Launched asset for migrated pools
	QuoteMint             solana.PublicKey // WSOL for migrated pools
	LPMint                solana.PublicKey // LP token mint
	PoolBaseTokenAccount  solana.PublicKey // Pool's base token account
	PoolQuoteTokenAccount solana.PublicKey // Pool's quote token account
	LPSupply              uint64           // True circulating supply of LP tokens
	CoinCreator           solana.PublicKey // Creator of the launched asset
}

// LiquidityPosition tracks one owner's share of a pool and its fee accounting.
// Claimed counters are cumulative; pending counters reset on every claim.
type LiquidityPosition struct {
	Pool            solana.PublicKey
	Owner           solana.PublicKey
	Liquidity       uint64
	FeeBaseClaimed  uint64
	FeeQuoteClaimed uint64
	FeeBasePending  uint64
	FeeQuotePending uint64
	LastUpdatedSlot uint64
}

// Offsets used by memcmp filters.
const (
	PositionPoolOffset  = binutil.DiscriminatorSize
	PositionOwnerOffset = PositionPoolOffset + 32
)

// ParseGlobalConfig parses account data into GlobalConfig structure
func ParseGlobalConfig(data []byte) (*GlobalConfig, error) {
	var cfg GlobalConfig
	if err := binutil.DecodeAccount(data, GlobalConfigDiscriminator, &cfg); err != nil {
		return nil, fmt.Errorf("pumpswap global config: %w", err)
	}
	return &cfg, nil
}

// ParsePool parses account data into Pool structure
func ParsePool(data []byte) (*Pool, error) {
	var pool Pool
	if err := binutil.DecodeAccount(data, PoolDiscriminator, &pool); err != nil {
		return nil, fmt.Errorf("pumpswap pool: %w", err)
	}
	return &pool, nil
}

// ParseLiquidityPosition parses account data into LiquidityPosition structure
func ParseLiquidityPosition(data []byte) (*LiquidityPosition, error) {
	var pos LiquidityPosition
	if err := binutil.DecodeAccount(data, LiquidityPositionDiscriminator, &pos); err != nil {
		return nil, fmt.Errorf("pumpswap liquidity position: %w", err)
	}
	return &pos, nil
}

// Encode serialises the pool with its discriminator.
func (p *Pool) Encode() ([]byte, error) {
	return binutil.EncodeAccount(PoolDiscriminator, p)
}

// Encode serialises the position with its discriminator.
func (p *LiquidityPosition) Encode() ([]byte, error) {
	return binutil.EncodeAccount(LiquidityPositionDiscriminator, p)
}

// Encode serialises the global config with its discriminator.
func (c *GlobalConfig) Encode() ([]byte, error) {
	return binutil.EncodeAccount(GlobalConfigDiscriminator, c)
}
