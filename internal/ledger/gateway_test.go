package ledger

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rovshanmuradov/launchpad-settlement/internal/dex/pumpfun"
	"github.com/rovshanmuradov/launchpad-settlement/internal/dex/pumpswap"
	"github.com/rovshanmuradov/launchpad-settlement/internal/domain"
)

func TestGetPosition(t *testing.T) {
	client := newFakeClient()
	g := newTestGateway(t, client)
	ctx := context.Background()

	mint := solana.NewWallet().PublicKey()
	creator := solana.NewWallet().PublicKey()
	addr := putCurve(t, client, g, &pumpfun.BondingCurve{
		Mint:              mint,
		Creator:           creator,
		CreatorTradingFee: 50_000_000,
	})

	pos, err := g.GetPosition(ctx, mint)
	require.NoError(t, err)
	assert.Equal(t, addr, pos.Address)
	assert.Equal(t, creator, pos.Creator)
	assert.Equal(t, uint64(50_000_000), pos.AccumulatedTradingFee)
	assert.False(t, pos.Migrated)

	t.Run("missing asset is rejected", func(t *testing.T) {
		_, err := g.GetPosition(ctx, solana.NewWallet().PublicKey())
		assert.ErrorIs(t, err, domain.ErrLedgerRejected)
	})

	t.Run("foreign owner is rejected", func(t *testing.T) {
		other := solana.NewWallet().PublicKey()
		otherAddr, err := pumpfun.DeriveBondingCurve(g.opts.Curve.ProgramID, other)
		require.NoError(t, err)
		client.setAccount(otherAddr, solana.SystemProgramID, []byte{1, 2, 3})
		_, err = g.GetPosition(ctx, other)
		assert.ErrorIs(t, err, domain.ErrLedgerRejected)
	})

	t.Run("transport failure is unavailable", func(t *testing.T) {
		client.accountErr = fmt.Errorf("%w: timeout", domain.ErrLedgerUnavailable)
		defer func() { client.accountErr = nil }()
		_, err := g.GetPosition(ctx, mint)
		assert.ErrorIs(t, err, domain.ErrLedgerUnavailable)
	})
}

func TestGetPositions(t *testing.T) {
	client := newFakeClient()
	g := newTestGateway(t, client)
	ctx := context.Background()

	creator := solana.NewWallet().PublicKey()
	assets := make([]solana.PublicKey, 0, maxMultipleAccounts+5)
	for i := 0; i < maxMultipleAccounts+3; i++ {
		mint := solana.NewWallet().PublicKey()
		putCurve(t, client, g, &pumpfun.BondingCurve{Mint: mint, Creator: creator, CreatorTradingFee: uint64(i)})
		assets = append(assets, mint)
	}
	missing := solana.NewWallet().PublicKey()
	foreign := solana.NewWallet().PublicKey()
	foreignAddr, err := pumpfun.DeriveBondingCurve(g.opts.Curve.ProgramID, foreign)
	require.NoError(t, err)
	client.setAccount(foreignAddr, solana.SystemProgramID, []byte{1, 2, 3})
	assets = append(assets, missing, foreign)

	results := g.GetPositions(ctx, assets)
	require.Len(t, results, len(assets))
	assert.Equal(t, []int{maxMultipleAccounts, 5}, client.batches)
	for i := 0; i < maxMultipleAccounts+3; i++ {
		require.NoError(t, results[i].Err)
		assert.Equal(t, assets[i], results[i].Asset)
		assert.Equal(t, uint64(i), results[i].Position.AccumulatedTradingFee)
		assert.Equal(t, creator, results[i].Position.Creator)
	}
	assert.ErrorIs(t, results[len(assets)-2].Err, domain.ErrLedgerRejected)
	assert.ErrorIs(t, results[len(assets)-1].Err, domain.ErrLedgerRejected)

	t.Run("transport failure marks the batch", func(t *testing.T) {
		client.accountErr = fmt.Errorf("%w: timeout", domain.ErrLedgerUnavailable)
		defer func() { client.accountErr = nil }()
		for _, r := range g.GetPositions(ctx, assets[:2]) {
			assert.ErrorIs(t, r.Err, domain.ErrLedgerUnavailable)
			assert.Nil(t, r.Position)
		}
	})
}

func TestGetAmmFeeState(t *testing.T) {
	client := newFakeClient()
	g := newTestGateway(t, client)
	ctx := context.Background()
	mint := solana.NewWallet().PublicKey()

	_, err := g.GetAmmFeeState(ctx, &domain.Position{Asset: mint})
	assert.True(t, errors.Is(err, ErrUnmigrated))

	poolAddr, err := g.opts.Amm.CanonicalPool(mint)
	require.NoError(t, err)
	pool := &pumpswap.Pool{BaseMint: mint, QuoteMint: pumpswap.WSOLMint}
	data, err := pool.Encode()
	require.NoError(t, err)
	client.setAccount(poolAddr, g.opts.Amm.ProgramID, data)

	cfgData, err := (&pumpswap.GlobalConfig{LPFeeBasisPoints: 20}).Encode()
	require.NoError(t, err)
	client.setAccount(g.opts.Amm.GlobalConfig, g.opts.Amm.ProgramID, cfgData)

	view, err := g.GetAmmFeeState(ctx, &domain.Position{Asset: mint, Migrated: true})
	require.NoError(t, err)
	assert.Equal(t, poolAddr, view.Pool)
	assert.Equal(t, pumpswap.WSOLMint, view.ReferenceMint)
	assert.Equal(t, uint64(20), view.LPFeeBps)
}

func TestGetUserLiquidityPositions(t *testing.T) {
	client := newFakeClient()
	g := newTestGateway(t, client)
	ctx := context.Background()

	mint := solana.NewWallet().PublicKey()
	wallet := solana.NewWallet().PublicKey()
	poolAddr := solana.NewWallet().PublicKey()
	poolData, err := (&pumpswap.Pool{BaseMint: mint, QuoteMint: pumpswap.WSOLMint}).Encode()
	require.NoError(t, err)
	client.setAccount(poolAddr, g.opts.Amm.ProgramID, poolData)

	positionData, err := (&pumpswap.LiquidityPosition{
		Pool:            poolAddr,
		Owner:           wallet,
		Liquidity:       10,
		FeeQuoteClaimed: 4_000_000,
		FeeQuotePending: 6_000_000,
		FeeBasePending:  999,
	}).Encode()
	require.NoError(t, err)
	positionAddr := solana.NewWallet().PublicKey()
	client.programAccounts = rpc.GetProgramAccountsResult{
		{Pubkey: positionAddr, Account: &rpc.Account{Data: rpc.DataBytesOrJSONFromBytes(positionData)}},
		{Pubkey: solana.NewWallet().PublicKey(), Account: &rpc.Account{Data: rpc.DataBytesOrJSONFromBytes([]byte{0})}},
	}

	positions, err := g.GetUserLiquidityPositions(ctx, poolAddr, wallet)
	require.NoError(t, err)
	require.Len(t, positions, 1)
	assert.Equal(t, positionAddr, positions[0].Address)
	assert.Equal(t, uint64(10_000_000), positions[0].NativeFee())
}

func TestCache(t *testing.T) {
	c := NewCache(8, 0)
	loads := 0
	load := func() (int, error) {
		loads++
		return 7, nil
	}
	for i := 0; i < 3; i++ {
		v, err := cached(c, "k", load)
		require.NoError(t, err)
		assert.Equal(t, 7, v)
	}
	assert.Equal(t, 1, loads)

	_, err := cached(c, "err", func() (int, error) { return 0, errors.New("boom") })
	assert.Error(t, err)
	_, ok := c.Get("err")
	assert.False(t, ok)

	n := NopCache()
	n.Add("k", 1)
	_, ok = n.Get("k")
	assert.False(t, ok)
}
