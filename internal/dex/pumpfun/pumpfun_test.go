package pumpfun

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *Config {
	t.Helper()
	cfg := DefaultConfig()
	cfg.FeeRecipient = solana.NewWallet().PublicKey()
	cfg.VenueConfig = solana.NewWallet().PublicKey()
	require.NoError(t, cfg.Validate())
	return cfg
}

func TestParseBondingCurve(t *testing.T) {
	mint := solana.NewWallet().PublicKey()
	creator := solana.NewWallet().PublicKey()
	curve := &BondingCurve{
		VirtualTokenReserves: 1_073_000_000_000_000,
		VirtualSolReserves:   30_000_000_000,
		TokenTotalSupply:     1_000_000_000_000_000,
		Creator:              creator,
		Mint:                 mint,
		CreatorTradingFee:    50_000_000,
	}
	data, err := curve.Encode()
	require.NoError(t, err)

	parsed, err := ParseBondingCurve(data)
	require.NoError(t, err)
	assert.Equal(t, curve, parsed)

	addr, err := DeriveBondingCurve(ProgramID, mint)
	require.NoError(t, err)
	pos := parsed.ToPosition(addr)
	assert.Equal(t, mint, pos.Asset)
	assert.Equal(t, creator, pos.Creator)
	assert.Equal(t, uint64(50_000_000), pos.AccumulatedTradingFee)
	assert.False(t, pos.Migrated)
	assert.False(t, pos.HasTaggedClaimant())
}

func TestParseBondingCurve_WrongDiscriminator(t *testing.T) {
	g := &GlobalAccount{Initialized: true}
	data, err := g.Encode()
	require.NoError(t, err)

	_, err = ParseBondingCurve(data)
	assert.Error(t, err)

	parsed, err := ParseGlobalAccount(data)
	require.NoError(t, err)
	assert.True(t, parsed.Initialized)
}

func TestDeriveBondingCurve_Deterministic(t *testing.T) {
	mint := solana.NewWallet().PublicKey()
	a, err := DeriveBondingCurve(ProgramID, mint)
	require.NoError(t, err)
	b, err := DeriveBondingCurve(ProgramID, mint)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	other, err := DeriveBondingCurve(ProgramID, solana.NewWallet().PublicKey())
	require.NoError(t, err)
	assert.NotEqual(t, a, other)
}

func TestClaimBuilders(t *testing.T) {
	cfg := testConfig(t)
	mint := solana.NewWallet().PublicKey()
	curve, err := DeriveBondingCurve(cfg.ProgramID, mint)
	require.NoError(t, err)
	claimant := solana.NewWallet().PublicKey()
	accounts := ClaimAccounts{Claimant: claimant, Mint: mint, BondingCurve: curve}

	tests := []struct {
		name  string
		build func(*Config, ClaimAccounts) (solana.Instruction, error)
		want  string
	}{
		{"trading", ClaimTradingFee, InstructionClaimTradingFee},
		{"migration", WithdrawMigrationFee, InstructionWithdrawMigrationFee},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ix, err := tt.build(cfg, accounts)
			require.NoError(t, err)

			data, err := ix.Data()
			require.NoError(t, err)
			assert.Equal(t, tt.want, ClassifyInstruction(data))
			assert.Equal(t, cfg.ProgramID, ix.ProgramID())

			metas := ix.Accounts()
			require.Len(t, metas, 8)
			assert.Equal(t, claimant, metas[4].PublicKey)
			assert.True(t, metas[4].IsSigner)
		})
	}

	_, err = ClaimTradingFee(cfg, ClaimAccounts{Mint: mint, BondingCurve: curve})
	assert.Error(t, err)
}

func TestCreate(t *testing.T) {
	cfg := testConfig(t)
	mint := solana.NewWallet().PublicKey()
	creator := solana.NewWallet().PublicKey()
	args := CreateArgs{Name: "Token", Symbol: "TKN", URI: "https://example.org/t.json", Creator: creator}

	ix, err := Create(cfg, CreateAccounts{Mint: mint, Creator: creator}, args)
	require.NoError(t, err)
	data, err := ix.Data()
	require.NoError(t, err)
	assert.Equal(t, InstructionCreate, ClassifyInstruction(data))

	signers := 0
	for _, m := range ix.Accounts() {
		if m.IsSigner {
			signers++
		}
	}
	assert.Equal(t, 2, signers)

	noVenue := *cfg
	noVenue.VenueConfig = solana.PublicKey{}
	_, err = Create(&noVenue, CreateAccounts{Mint: mint, Creator: creator}, args)
	assert.Error(t, err)

	_, err = Create(cfg, CreateAccounts{Mint: mint, Creator: creator}, CreateArgs{Name: "x"})
	assert.Error(t, err)
}

func TestBuy(t *testing.T) {
	cfg := testConfig(t)
	user := solana.NewWallet().PublicKey()
	mint := solana.NewWallet().PublicKey()

	ix, err := Buy(cfg, user, mint, BuyArgs{Amount: 1000, MaxSolCost: 2000})
	require.NoError(t, err)
	data, err := ix.Data()
	require.NoError(t, err)
	assert.Equal(t, InstructionBuy, ClassifyInstruction(data))
	assert.Len(t, data, 8+16)

	metas := ix.Accounts()
	require.Len(t, metas, 12)
	assert.Equal(t, user, metas[6].PublicKey)
	assert.True(t, metas[6].IsSigner)
	assert.Equal(t, cfg.FeeRecipient, metas[1].PublicKey)
}

func TestClassifyInstruction_Unknown(t *testing.T) {
	assert.Equal(t, "", ClassifyInstruction(nil))
	assert.Equal(t, "", ClassifyInstruction([]byte{1, 2, 3, 4, 5, 6, 7, 8}))
}

func TestBuyQuote(t *testing.T) {
	g := &GlobalAccount{
		InitialVirtualTokenReserves: 1_073_000_000_000_000,
		InitialVirtualSolReserves:   30_000_000_000,
		InitialRealTokenReserves:    793_100_000_000_000,
		FeeBasisPoints:              100,
	}
	small, err := g.InitialBuyQuote(100_000_000)
	require.NoError(t, err)
	large, err := g.InitialBuyQuote(1_000_000_000)
	require.NoError(t, err)
	assert.Greater(t, small, uint64(0))
	assert.Greater(t, large, small)

	capped, err := g.InitialBuyQuote(10_000_000_000_000)
	require.NoError(t, err)
	assert.Equal(t, g.InitialRealTokenReserves, capped)

	_, err = BuyQuote(0, 1, 1, 0)
	assert.Error(t, err)
	_, err = BuyQuote(1, 1, 1, 10_000)
	assert.Error(t, err)
}
