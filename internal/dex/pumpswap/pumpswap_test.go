package pumpswap

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *Config {
	t.Helper()
	cfg, err := DefaultConfig(solana.NewWallet().PublicKey())
	require.NoError(t, err)
	return cfg
}

func TestParsePool(t *testing.T) {
	pool := &Pool{
		PoolBump:    254,
		Index:       0,
		Creator:     solana.NewWallet().PublicKey(),
		BaseMint:    solana.NewWallet().PublicKey(),
		QuoteMint:   WSOLMint,
		LPMint:      solana.NewWallet().PublicKey(),
		LPSupply:    1_000_000,
		CoinCreator: solana.NewWallet().PublicKey(),
	}
	data, err := pool.Encode()
	require.NoError(t, err)
	assert.Equal(t, PoolDiscriminator[:], data[:8])

	parsed, err := ParsePool(data)
	require.NoError(t, err)
	assert.Equal(t, pool, parsed)

	_, err = ParseLiquidityPosition(data)
	assert.Error(t, err)
}

func TestParseLiquidityPosition_OwnerOffset(t *testing.T) {
	pos := &LiquidityPosition{
		Pool:  solana.NewWallet().PublicKey(),
		Owner: solana.NewWallet().PublicKey(),
	}
	data, err := pos.Encode()
	require.NoError(t, err)
	assert.Equal(t, pos.Pool.Bytes(), data[PositionPoolOffset:PositionPoolOffset+32])
	assert.Equal(t, pos.Owner.Bytes(), data[PositionOwnerOffset:PositionOwnerOffset+32])

	filters := PositionFilters(pos.Pool, pos.Owner)
	require.Len(t, filters, 3)
	assert.Equal(t, uint64(PositionOwnerOffset), filters[2].Memcmp.Offset)
}

func TestPositionFee(t *testing.T) {
	mint := solana.NewWallet().PublicKey()
	pos := &LiquidityPosition{
		FeeBaseClaimed:  111,
		FeeBasePending:  222,
		FeeQuoteClaimed: 7_000_000,
		FeeQuotePending: 3_000_000,
	}

	fee, err := PositionFee(&Pool{BaseMint: mint, QuoteMint: WSOLMint}, pos)
	require.NoError(t, err)
	assert.Equal(t, FeeView{Claimed: 7_000_000, Unclaimed: 3_000_000}, fee)
	assert.Equal(t, uint64(10_000_000), fee.Total())

	reversed, err := PositionFee(&Pool{BaseMint: WSOLMint, QuoteMint: mint}, pos)
	require.NoError(t, err)
	assert.Equal(t, uint64(333), reversed.Total())

	_, err = PositionFee(&Pool{BaseMint: mint, QuoteMint: solana.NewWallet().PublicKey()}, pos)
	assert.Error(t, err)
}

func TestCanonicalPool(t *testing.T) {
	cfg := testConfig(t)
	mint := solana.NewWallet().PublicKey()

	a, err := cfg.CanonicalPool(mint)
	require.NoError(t, err)
	b, err := cfg.CanonicalPool(mint)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	authority, err := DerivePoolAuthority(cfg.CurveProgramID, mint)
	require.NoError(t, err)
	direct, err := DerivePool(cfg.ProgramID, CanonicalPoolIndex, authority, mint, WSOLMint)
	require.NoError(t, err)
	assert.Equal(t, direct, a)
}

func TestClaimPositionFee(t *testing.T) {
	cfg := testConfig(t)
	owner := solana.NewWallet().PublicKey()
	pool := &Pool{BaseMint: solana.NewWallet().PublicKey(), QuoteMint: WSOLMint}
	params := ClaimPositionFeeParams{
		Pool:      solana.NewWallet().PublicKey(),
		PoolState: pool,
		Position:  solana.NewWallet().PublicKey(),
		Owner:     owner,
	}

	ix, err := ClaimPositionFee(cfg, params)
	require.NoError(t, err)
	data, err := ix.Data()
	require.NoError(t, err)
	assert.Equal(t, InstructionClaimPositionFee, ClassifyInstruction(data))

	metas := ix.Accounts()
	assert.Equal(t, owner, metas[2].PublicKey)
	assert.True(t, metas[2].IsSigner)

	params.PoolState = nil
	_, err = ClaimPositionFee(cfg, params)
	assert.Error(t, err)
}

func TestClassifyInstruction(t *testing.T) {
	assert.Equal(t, InstructionBuy, ClassifyInstruction(buyDiscriminator[:]))
	assert.Equal(t, InstructionSell, ClassifyInstruction(append(sellDiscriminator[:], 1, 2)))
	assert.Equal(t, "", ClassifyInstruction([]byte{0}))
}
