// internal/ledger/positions.go
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/launchpad-settlement/internal/dex/pumpfun"
	"github.com/rovshanmuradov/launchpad-settlement/internal/dex/pumpswap"
	"github.com/rovshanmuradov/launchpad-settlement/internal/domain"
)

// curveAddress returns the cached bonding-curve PDA of asset.
func (g *SolanaGateway) curveAddress(asset solana.PublicKey) (solana.PublicKey, error) {
	return cached(g.cache, "curve:"+asset.String(), func() (solana.PublicKey, error) {
		return pumpfun.DeriveBondingCurve(g.opts.Curve.ProgramID, asset)
	})
}

// poolAddress returns the cached canonical AMM pool of asset.
func (g *SolanaGateway) poolAddress(asset solana.PublicKey) (solana.PublicKey, error) {
	return cached(g.cache, "pool:"+asset.String(), func() (solana.PublicKey, error) {
		return g.opts.Amm.CanonicalPool(asset)
	})
}

// maxMultipleAccounts is the getMultipleAccounts batch limit.
const maxMultipleAccounts = 100

// GetPosition fetches and decodes the bonding-curve record of asset.
func (g *SolanaGateway) GetPosition(ctx context.Context, asset solana.PublicKey) (pos *domain.Position, err error) {
	defer g.observe("GetPosition", time.Now(), &err)

	addr, err := g.curveAddress(asset)
	if err != nil {
		return nil, err
	}
	data, err := g.fetchOwned(ctx, addr, g.opts.Curve.ProgramID)
	if err != nil {
		return nil, err
	}
	return decodePosition(asset, addr, data)
}

// GetPositions reads the bonding-curve records of several assets in batches of
// getMultipleAccounts. Results keep input order; a transport failure is reported on
// every asset of the affected batch.
func (g *SolanaGateway) GetPositions(ctx context.Context, assets []solana.PublicKey) []PositionResult {
	start := time.Now()
	results := make([]PositionResult, len(assets))
	addrs := make([]solana.PublicKey, 0, len(assets))
	slots := make([]int, 0, len(assets))

	for i, asset := range assets {
		results[i].Asset = asset
		addr, err := g.curveAddress(asset)
		if err != nil {
			results[i].Err = err
			continue
		}
		addrs = append(addrs, addr)
		slots = append(slots, i)
	}

	var failed error
	for lo := 0; lo < len(addrs); lo += maxMultipleAccounts {
		hi := min(lo+maxMultipleAccounts, len(addrs))
		res, err := g.client.GetMultipleAccounts(ctx, addrs[lo:hi])
		for j := lo; j < hi; j++ {
			r := &results[slots[j]]
			if err != nil {
				r.Err = fmt.Errorf("positions batch: %w", err)
				failed = err
				continue
			}
			r.Position, r.Err = g.positionFromAccount(r.Asset, addrs[j], accountAt(res, j-lo))
		}
	}
	g.metrics.RecordLedgerCall("GetPositions", time.Since(start), failed)
	return results
}

func accountAt(res *rpc.GetMultipleAccountsResult, i int) *rpc.Account {
	if res == nil || i >= len(res.Value) {
		return nil
	}
	return res.Value[i]
}

func (g *SolanaGateway) positionFromAccount(asset, addr solana.PublicKey, acc *rpc.Account) (*domain.Position, error) {
	if acc == nil {
		return nil, fmt.Errorf("%w: account %s does not exist", domain.ErrLedgerRejected, addr)
	}
	if !acc.Owner.Equals(g.opts.Curve.ProgramID) {
		return nil, fmt.Errorf("%w: account %s has incorrect owner: expected %s, got %s",
			domain.ErrLedgerRejected, addr, g.opts.Curve.ProgramID, acc.Owner)
	}
	return decodePosition(asset, addr, acc.Data.GetBinary())
}

func decodePosition(asset, addr solana.PublicKey, data []byte) (*domain.Position, error) {
	curve, err := pumpfun.ParseBondingCurve(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrLedgerRejected, err)
	}
	if !curve.Mint.IsZero() && !curve.Mint.Equals(asset) {
		return nil, fmt.Errorf("%w: curve %s belongs to mint %s", domain.ErrLedgerRejected, addr, curve.Mint)
	}
	if curve.Mint.IsZero() {
		curve.Mint = asset
	}
	p := curve.ToPosition(addr)
	return &p, nil
}

// GetAmmFeeState returns the AMM pool view of a migrated position.
func (g *SolanaGateway) GetAmmFeeState(ctx context.Context, position *domain.Position) (view *AmmFeeView, err error) {
	defer g.observe("GetAmmFeeState", time.Now(), &err)

	if position == nil || !position.Migrated {
		return nil, ErrUnmigrated
	}
	poolAddr, err := g.poolAddress(position.Asset)
	if err != nil {
		return nil, err
	}
	pool, err := g.fetchPool(ctx, poolAddr)
	if err != nil {
		return nil, err
	}
	if !pool.QuoteMint.Equals(pumpswap.WSOLMint) && !pool.BaseMint.Equals(pumpswap.WSOLMint) {
		return nil, fmt.Errorf("%w: pool %s has no WSOL leg", domain.ErrLedgerRejected, poolAddr)
	}
	cfg, cfgErr := g.ammGlobalConfig(ctx)
	if cfgErr != nil {
		g.logger.Debug("AMM global config unavailable, reporting zero LP fee", zap.Error(cfgErr))
	}

	view = &AmmFeeView{
		Pool:          poolAddr,
		Asset:         position.Asset,
		ReferenceMint: pumpswap.WSOLMint,
	}
	if cfg != nil {
		view.LPFeeBps = cfg.LPFeeBasisPoints
	}
	return view, nil
}

// GetUserLiquidityPositions lists wallet's positions on ammPool with their WSOL fee leg.
func (g *SolanaGateway) GetUserLiquidityPositions(ctx context.Context, ammPool, wallet solana.PublicKey) (out []LiquidityPosition, err error) {
	defer g.observe("GetUserLiquidityPositions", time.Now(), &err)

	pool, err := g.fetchPool(ctx, ammPool)
	if err != nil {
		return nil, err
	}

	accounts, err := g.client.GetProgramAccountsWithOpts(ctx, g.opts.Amm.ProgramID, &rpc.GetProgramAccountsOpts{
		Commitment: rpc.CommitmentConfirmed,
		Encoding:   solana.EncodingBase64,
		Filters:    pumpswap.PositionFilters(ammPool, wallet),
	})
	if err != nil {
		return nil, fmt.Errorf("liquidity positions of %s: %w", wallet, err)
	}

	for _, acc := range accounts {
		if acc == nil || acc.Account == nil {
			continue
		}
		lp, err := pumpswap.ParseLiquidityPosition(acc.Account.Data.GetBinary())
		if err != nil {
			g.logger.Debug("Skipping undecodable liquidity position",
				zap.String("address", acc.Pubkey.String()), zap.Error(err))
			continue
		}
		fee, err := pumpswap.PositionFee(pool, lp)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrLedgerRejected, err)
		}
		out = append(out, LiquidityPosition{
			Address:            acc.Pubkey,
			Pool:               lp.Pool,
			Owner:              lp.Owner,
			Liquidity:          lp.Liquidity,
			NativeFeeClaimed:   fee.Claimed,
			NativeFeeUnclaimed: fee.Unclaimed,
		})
	}
	return out, nil
}

// fetchPool reads the pool account. Only its immutable fields are used, so it is
// served from the cache.
func (g *SolanaGateway) fetchPool(ctx context.Context, addr solana.PublicKey) (*pumpswap.Pool, error) {
	return cached(g.cache, "pool-state:"+addr.String(), func() (*pumpswap.Pool, error) {
		data, err := g.fetchOwned(ctx, addr, g.opts.Amm.ProgramID)
		if err != nil {
			return nil, err
		}
		pool, err := pumpswap.ParsePool(data)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrLedgerRejected, err)
		}
		return pool, nil
	})
}

func (g *SolanaGateway) ammGlobalConfig(ctx context.Context) (*pumpswap.GlobalConfig, error) {
	return cached(g.cache, "amm-global", func() (*pumpswap.GlobalConfig, error) {
		data, err := g.fetchOwned(ctx, g.opts.Amm.GlobalConfig, g.opts.Amm.ProgramID)
		if err != nil {
			return nil, err
		}
		return pumpswap.ParseGlobalConfig(data)
	})
}

func (g *SolanaGateway) curveGlobal(ctx context.Context) (*pumpfun.GlobalAccount, error) {
	return cached(g.cache, "curve-global", func() (*pumpfun.GlobalAccount, error) {
		data, err := g.fetchOwned(ctx, g.opts.Curve.Global, g.opts.Curve.ProgramID)
		if err != nil {
			return nil, err
		}
		return pumpfun.ParseGlobalAccount(data)
	})
}
