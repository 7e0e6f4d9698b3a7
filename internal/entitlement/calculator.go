// internal/entitlement/calculator.go
package entitlement

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rovshanmuradov/launchpad-settlement/internal/domain"
	"github.com/rovshanmuradov/launchpad-settlement/internal/ledger"
)

const (
	// DefaultMinClaimFloor is 0.01 SOL.
	DefaultMinClaimFloor uint64 = 10_000_000
	// DefaultMigrationFee is the fixed creator share paid out of the migration.
	DefaultMigrationFee uint64 = 500_000_000
	DefaultConcurrency         = 8
)

// Config holds the platform constants used by the calculator. Amounts are lamports.
type Config struct {
	MinClaimFloor uint64
	MigrationFee  uint64
	Concurrency   int
}

func DefaultConfig() Config {
	return Config{
		MinClaimFloor: DefaultMinClaimFloor,
		MigrationFee:  DefaultMigrationFee,
		Concurrency:   DefaultConcurrency,
	}
}

// Calculator computes claimable fees per asset and wallet.
type Calculator struct {
	gateway ledger.Gateway
	logger  *zap.Logger
	config  Config
}

func NewCalculator(gateway ledger.Gateway, logger *zap.Logger, config Config) *Calculator {
	if config.MinClaimFloor == 0 {
		config.MinClaimFloor = DefaultMinClaimFloor
	}
	if config.Concurrency <= 0 {
		config.Concurrency = DefaultConcurrency
	}
	return &Calculator{
		gateway: gateway,
		logger:  logger.Named("entitlement"),
		config:  config,
	}
}

// MinClaimFloor returns the configured floor in lamports.
func (c *Calculator) MinClaimFloor() uint64 {
	return c.config.MinClaimFloor
}

// Calculate returns the entitlement of wallet for asset. A zero wallet defaults to the
// position's creator. Unknown assets yield an empty entitlement with Found=false.
// Only a failing position lookup is returned as an error; AMM lookups degrade the pool
// fee to absent.
func (c *Calculator) Calculate(ctx context.Context, asset, wallet solana.PublicKey) (*domain.Entitlement, error) {
	pos, err := c.gateway.GetPosition(ctx, asset)
	return c.fromPosition(ctx, asset, wallet, pos, err)
}

// fromPosition builds the entitlement from a position lookup result.
func (c *Calculator) fromPosition(ctx context.Context, asset, wallet solana.PublicKey, pos *domain.Position, err error) (*domain.Entitlement, error) {
	if err != nil {
		if errors.Is(err, domain.ErrLedgerRejected) {
			c.logger.Debug("No position for asset",
				zap.String("asset", asset.String()),
				zap.Error(err))
			return domain.NewEntitlement(asset, wallet), nil
		}
		return nil, fmt.Errorf("entitlement for %s: %w", asset, err)
	}

	if wallet.IsZero() {
		wallet = pos.Creator
	}
	ent := domain.NewEntitlement(asset, wallet)
	ent.Found = true
	ent.Creator = pos.Creator
	ent.TaggedClaimant = pos.TaggedClaimant
	ent.Migrated = pos.Migrated
	ent.MigrationFeeWithdrawn = pos.MigrationFeeWithdrawn
	ent.Position = pos.Address
	ent.VenueConfig = pos.VenueConfig

	if pos.AccumulatedTradingFee >= c.config.MinClaimFloor {
		ent.Fees[domain.FeeTrading] = pos.AccumulatedTradingFee
	}

	if pos.Migrated {
		c.addPoolFee(ctx, pos, ent)
		if !pos.MigrationFeeWithdrawn && c.config.MigrationFee > 0 {
			ent.Fees[domain.FeeMigration] = c.config.MigrationFee
		}
	}

	c.logger.Debug("Entitlement calculated",
		zap.String("asset", asset.String()),
		zap.String("wallet", wallet.String()),
		zap.Bool("migrated", pos.Migrated),
		zap.Int("fee_types", len(ent.Fees)))
	return ent, nil
}

func (c *Calculator) addPoolFee(ctx context.Context, pos *domain.Position, ent *domain.Entitlement) {
	view, err := c.gateway.GetAmmFeeState(ctx, pos)
	if err != nil {
		c.logger.Warn("AMM fee state unavailable, pool fee omitted",
			zap.String("asset", pos.Asset.String()),
			zap.Error(err))
		return
	}
	ent.AmmPool = view.Pool

	positions, err := c.gateway.GetUserLiquidityPositions(ctx, view.Pool, ent.Wallet)
	if err != nil {
		c.logger.Warn("Liquidity positions unavailable, pool fee omitted",
			zap.String("pool", view.Pool.String()),
			zap.String("wallet", ent.Wallet.String()),
			zap.Error(err))
		return
	}
	if len(positions) == 0 {
		return
	}

	var total uint64
	for _, p := range positions {
		total += p.NativeFee()
		ent.LiquidityPositions = append(ent.LiquidityPositions, p.Address)
	}
	if total >= c.config.MinClaimFloor {
		ent.Fees[domain.FeePool] = total
	}
}

// Result is one entry of CalculateMany.
type Result struct {
	Asset       solana.PublicKey
	Entitlement *domain.Entitlement
	Err         error
}

// CalculateMany computes entitlements of wallet for several assets. Positions are
// read in one batch; the AMM lookups of migrated assets then run concurrently.
// Results keep input order; a failing asset does not affect the others.
func (c *Calculator) CalculateMany(ctx context.Context, assets []solana.PublicKey, wallet solana.PublicKey) []Result {
	results := make([]Result, len(assets))
	positions := c.gateway.GetPositions(ctx, assets)

	var eg errgroup.Group
	eg.SetLimit(c.config.Concurrency)
	for i, asset := range assets {
		eg.Go(func() error {
			var (
				pos *domain.Position
				err = fmt.Errorf("%w: no position result for %s", domain.ErrLedgerUnavailable, asset)
			)
			if i < len(positions) {
				pos, err = positions[i].Position, positions[i].Err
			}
			ent, err := c.fromPosition(ctx, asset, wallet, pos, err)
			results[i] = Result{Asset: asset, Entitlement: ent, Err: err}
			return nil
		})
	}
	_ = eg.Wait()
	return results
}
