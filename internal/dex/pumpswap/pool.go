// =============================
// File: internal/dex/pumpswap/pool.go
// =============================
package pumpswap

import (
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// CanonicalPoolIndex is the index used by the migration that creates a pool.
const CanonicalPoolIndex uint16 = 0

// DerivePoolAuthority returns the curve-program PDA that creates the pool of mint.
func DerivePoolAuthority(curveProgram, mint solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress(
		[][]byte{[]byte("pool-authority"), mint.Bytes()},
		curveProgram,
	)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to derive pool authority: %w", err)
	}
	return addr, nil
}

// DerivePool returns the pool PDA for (index, creator, base, quote).
func DerivePool(programID solana.PublicKey, index uint16, creator, baseMint, quoteMint solana.PublicKey) (solana.PublicKey, error) {
	idx := make([]byte, 2)
	binary.LittleEndian.PutUint16(idx, index)
	addr, _, err := solana.FindProgramAddress(
		[][]byte{[]byte("pool"), idx, creator.Bytes(), baseMint.Bytes(), quoteMint.Bytes()},
		programID,
	)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to derive pool: %w", err)
	}
	return addr, nil
}

// CanonicalPool returns the pool created when mint migrated off its curve:
// the launched asset as base, WSOL as quote.
func (cfg *Config) CanonicalPool(mint solana.PublicKey) (solana.PublicKey, error) {
	authority, err := DerivePoolAuthority(cfg.CurveProgramID, mint)
	if err != nil {
		return solana.PublicKey{}, err
	}
	return DerivePool(cfg.ProgramID, CanonicalPoolIndex, authority, mint, WSOLMint)
}

// PositionFilters selects the liquidity positions of owner on pool.
func PositionFilters(pool, owner solana.PublicKey) []rpc.RPCFilter {
	return []rpc.RPCFilter{
		{Memcmp: &rpc.RPCFilterMemcmp{Offset: 0, Bytes: LiquidityPositionDiscriminator[:]}},
		{Memcmp: &rpc.RPCFilterMemcmp{Offset: PositionPoolOffset, Bytes: pool.Bytes()}},
		{Memcmp: &rpc.RPCFilterMemcmp{Offset: PositionOwnerOffset, Bytes: owner.Bytes()}},
	}
}

// FeeView is the WSOL-denominated fee leg of one liquidity position.
type FeeView struct {
	Claimed   uint64
	Unclaimed uint64
}

// Total returns claimed plus unclaimed.
func (f FeeView) Total() uint64 {
	return f.Claimed + f.Unclaimed
}

// PositionFee returns the reference-asset fee leg of pos. The token leg is ignored.
func PositionFee(pool *Pool, pos *LiquidityPosition) (FeeView, error) {
	switch {
	case pool.QuoteMint.Equals(WSOLMint):
		return FeeView{Claimed: pos.FeeQuoteClaimed, Unclaimed: pos.FeeQuotePending}, nil
	case pool.BaseMint.Equals(WSOLMint):
		return FeeView{Claimed: pos.FeeBaseClaimed, Unclaimed: pos.FeeBasePending}, nil
	}
	return FeeView{}, fmt.Errorf("pool %s/%s has no WSOL leg", pool.BaseMint, pool.QuoteMint)
}
