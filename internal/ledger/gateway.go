// internal/ledger/gateway.go
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/launchpad-settlement/internal/blockchain"
	"github.com/rovshanmuradov/launchpad-settlement/internal/blockchain/solbc/transaction"
	"github.com/rovshanmuradov/launchpad-settlement/internal/dex/pumpfun"
	"github.com/rovshanmuradov/launchpad-settlement/internal/dex/pumpswap"
	"github.com/rovshanmuradov/launchpad-settlement/internal/domain"
	"github.com/rovshanmuradov/launchpad-settlement/internal/utils/metrics"
)

// ErrUnmigrated is returned by GetAmmFeeState for assets still on the bonding curve.
var ErrUnmigrated = errors.New("asset has not migrated")

// ErrUnsupportedOperation is returned by BuildOperation for unknown kinds.
var ErrUnsupportedOperation = errors.New("unsupported operation kind")

// Gateway is the typed read/write surface over both venues and the base ledger.
// Errors wrap domain.ErrLedgerUnavailable (transient) or domain.ErrLedgerRejected
// (the requested state does not exist).
type Gateway interface {
	GetPosition(ctx context.Context, asset solana.PublicKey) (*domain.Position, error)
	GetPositions(ctx context.Context, assets []solana.PublicKey) []PositionResult
	GetAmmFeeState(ctx context.Context, position *domain.Position) (*AmmFeeView, error)
	GetUserLiquidityPositions(ctx context.Context, ammPool, wallet solana.PublicKey) ([]LiquidityPosition, error)
	GetTransactionOutcome(ctx context.Context, signature solana.Signature) (*TxOutcome, error)
	GetTransactionOutcomes(ctx context.Context, signatures []solana.Signature) []OutcomeResult
	BuildOperation(ctx context.Context, kind OperationKind, params OperationParams) (*PreparedOperation, error)
	Submit(ctx context.Context, signedTx string) (solana.Signature, error)
}

// Options configures SolanaGateway.
type Options struct {
	Curve   *pumpfun.Config
	Amm     *pumpswap.Config
	Cache   Cache
	Tx      transaction.Config
	Metrics *metrics.Collector

	ComputeUnitLimit   uint32
	PriorityFeeMicro   uint64 // micro-lamports per compute unit
	PreBuySlippageBps  uint64
	OutcomeConcurrency int
}

// DefaultOptions returns mainnet venue addresses and conservative limits.
func DefaultOptions() Options {
	curve := pumpfun.DefaultConfig()
	amm, _ := pumpswap.DefaultConfig(curve.ProgramID)
	return Options{
		Curve:              curve,
		Amm:                amm,
		Tx:                 transaction.DefaultConfig(),
		ComputeUnitLimit:   200_000,
		PriorityFeeMicro:   5_000,
		PreBuySlippageBps:  100,
		OutcomeConcurrency: 8,
	}
}

// SolanaGateway implements Gateway on top of blockchain.Client.
type SolanaGateway struct {
	client  blockchain.Client
	logger  *zap.Logger
	opts    Options
	cache   Cache
	monitor *transaction.Monitor
	manager *transaction.Manager
	metrics *metrics.Collector
}

var _ Gateway = (*SolanaGateway)(nil)

// NewSolanaGateway wires the gateway. Zero-valued options fall back to DefaultOptions.
func NewSolanaGateway(client blockchain.Client, logger *zap.Logger, opts Options) (*SolanaGateway, error) {
	def := DefaultOptions()
	if opts.Curve == nil {
		opts.Curve = def.Curve
	}
	if opts.Amm == nil {
		opts.Amm = def.Amm
	}
	if opts.Tx.MaxTries == 0 {
		opts.Tx = def.Tx
	}
	if opts.ComputeUnitLimit == 0 {
		opts.ComputeUnitLimit = def.ComputeUnitLimit
	}
	if opts.PreBuySlippageBps == 0 {
		opts.PreBuySlippageBps = def.PreBuySlippageBps
	}
	if opts.OutcomeConcurrency <= 0 {
		opts.OutcomeConcurrency = def.OutcomeConcurrency
	}
	if opts.Cache == nil {
		opts.Cache = NopCache()
	}
	if opts.Amm.CurveProgramID.IsZero() {
		opts.Amm.CurveProgramID = opts.Curve.ProgramID
	}
	if err := opts.Amm.Validate(); err != nil {
		return nil, err
	}

	logger = logger.Named("ledger")
	logger.Info("Ledger gateway configured",
		zap.String("curve_program", opts.Curve.ProgramID.String()),
		zap.String("amm_program", opts.Amm.ProgramID.String()),
		zap.Uint("outcome_max_tries", opts.Tx.MaxTries))

	return &SolanaGateway{
		client:  client,
		logger:  logger,
		opts:    opts,
		cache:   opts.Cache,
		monitor: transaction.NewMonitor(client, logger, opts.Tx),
		manager: transaction.NewManager(client, logger, opts.Tx),
		metrics: opts.Metrics,
	}, nil
}

// observe records the latency of one gateway call. Pass the address of the named
// error result so the deferred call sees its final value.
func (g *SolanaGateway) observe(method string, start time.Time, err *error) {
	g.metrics.RecordLedgerCall(method, time.Since(start), *err)
}

// fetchOwned reads an account and checks its owner. A missing account or foreign
// owner is a rejection.
func (g *SolanaGateway) fetchOwned(ctx context.Context, addr, owner solana.PublicKey) ([]byte, error) {
	info, err := g.client.GetAccountInfo(ctx, addr)
	if err != nil {
		return nil, fmt.Errorf("account %s: %w", addr, err)
	}
	if info == nil || info.Value == nil {
		return nil, fmt.Errorf("%w: account %s does not exist", domain.ErrLedgerRejected, addr)
	}
	if !info.Value.Owner.Equals(owner) {
		return nil, fmt.Errorf("%w: account %s has incorrect owner: expected %s, got %s",
			domain.ErrLedgerRejected, addr, owner, info.Value.Owner)
	}
	return info.Value.Data.GetBinary(), nil
}
