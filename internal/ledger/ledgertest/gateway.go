// Package ledgertest provides an in-memory ledger.Gateway for tests.
package ledgertest

import (
	"context"
	"fmt"
	"sync"

	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/launchpad-settlement/internal/domain"
	"github.com/rovshanmuradov/launchpad-settlement/internal/ledger"
)

// Gateway is a programmable fake. Zero-valued maps are allocated by New.
type Gateway struct {
	mu sync.Mutex

	Positions   map[solana.PublicKey]*domain.Position
	PositionErr error

	// AmmViews is keyed by asset.
	AmmViews map[solana.PublicKey]*ledger.AmmFeeView
	AmmErr   error

	// Liquidity is keyed by owner.
	Liquidity    map[solana.PublicKey][]ledger.LiquidityPosition
	LiquidityErr error

	Outcomes    map[solana.Signature]*ledger.TxOutcome
	OutcomeErrs map[solana.Signature]error

	BuildErrs map[ledger.OperationKind]error
	SubmitErr error

	Built        []ledger.OperationParams
	BuiltKinds   []ledger.OperationKind
	Submitted    []string
	OutcomeCalls int
	// PositionCalls counts single reads, PositionBatches batched ones.
	PositionCalls   int
	PositionBatches int
}

var _ ledger.Gateway = (*Gateway)(nil)

func New() *Gateway {
	return &Gateway{
		Positions:   make(map[solana.PublicKey]*domain.Position),
		AmmViews:    make(map[solana.PublicKey]*ledger.AmmFeeView),
		Liquidity:   make(map[solana.PublicKey][]ledger.LiquidityPosition),
		Outcomes:    make(map[solana.Signature]*ledger.TxOutcome),
		OutcomeErrs: make(map[solana.Signature]error),
		BuildErrs:   make(map[ledger.OperationKind]error),
	}
}

// AddPosition stores pos under its asset, deriving an address when unset.
func (g *Gateway) AddPosition(pos domain.Position) *domain.Position {
	g.mu.Lock()
	defer g.mu.Unlock()
	if pos.Address.IsZero() {
		pos.Address = solana.NewWallet().PublicKey()
	}
	g.Positions[pos.Asset] = &pos
	return &pos
}

// AddPool registers the AMM pool of asset and returns its address.
func (g *Gateway) AddPool(asset solana.PublicKey) solana.PublicKey {
	g.mu.Lock()
	defer g.mu.Unlock()
	pool := solana.NewWallet().PublicKey()
	g.AmmViews[asset] = &ledger.AmmFeeView{Pool: pool, Asset: asset, ReferenceMint: solana.SolMint}
	return pool
}

// AddLiquidity gives owner a position on pool with the given reference-asset fees.
func (g *Gateway) AddLiquidity(pool, owner solana.PublicKey, claimed, unclaimed uint64) solana.PublicKey {
	g.mu.Lock()
	defer g.mu.Unlock()
	addr := solana.NewWallet().PublicKey()
	g.Liquidity[owner] = append(g.Liquidity[owner], ledger.LiquidityPosition{
		Address:            addr,
		Pool:               pool,
		Owner:              owner,
		Liquidity:          1,
		NativeFeeClaimed:   claimed,
		NativeFeeUnclaimed: unclaimed,
	})
	return addr
}

// SetOutcome stores the outcome returned for its signature.
func (g *Gateway) SetOutcome(out *ledger.TxOutcome) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Outcomes[out.Signature] = out
}

// Succeeded builds a finalized, error-free outcome signed by signer.
func Succeeded(sig solana.Signature, signer solana.PublicKey, kinds ...ledger.OperationKind) *ledger.TxOutcome {
	return &ledger.TxOutcome{
		Signature:    sig,
		Finalized:    true,
		Signer:       signer,
		Fee:          5000,
		NativeDeltas: make(map[solana.PublicKey]int64),
		TokenDeltas:  make(map[ledger.TokenKey]int64),
		Kinds:        kinds,
	}
}

// RandomSignature returns a unique non-zero signature.
func RandomSignature() solana.Signature {
	var sig solana.Signature
	copy(sig[:], solana.NewWallet().PublicKey().Bytes())
	copy(sig[32:], solana.NewWallet().PublicKey().Bytes())
	return sig
}

func (g *Gateway) GetPosition(_ context.Context, asset solana.PublicKey) (*domain.Position, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.PositionCalls++
	return g.position(asset)
}

func (g *Gateway) GetPositions(_ context.Context, assets []solana.PublicKey) []ledger.PositionResult {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.PositionBatches++
	out := make([]ledger.PositionResult, len(assets))
	for i, asset := range assets {
		pos, err := g.position(asset)
		out[i] = ledger.PositionResult{Asset: asset, Position: pos, Err: err}
	}
	return out
}

func (g *Gateway) position(asset solana.PublicKey) (*domain.Position, error) {
	if g.PositionErr != nil {
		return nil, g.PositionErr
	}
	pos, ok := g.Positions[asset]
	if !ok {
		return nil, fmt.Errorf("%w: no bonding curve for %s", domain.ErrLedgerRejected, asset)
	}
	p := *pos
	return &p, nil
}

func (g *Gateway) GetAmmFeeState(_ context.Context, position *domain.Position) (*ledger.AmmFeeView, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if position == nil || !position.Migrated {
		return nil, ledger.ErrUnmigrated
	}
	if g.AmmErr != nil {
		return nil, g.AmmErr
	}
	view, ok := g.AmmViews[position.Asset]
	if !ok {
		return nil, fmt.Errorf("%w: no pool for %s", domain.ErrLedgerRejected, position.Asset)
	}
	v := *view
	return &v, nil
}

func (g *Gateway) GetUserLiquidityPositions(_ context.Context, ammPool, wallet solana.PublicKey) ([]ledger.LiquidityPosition, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.LiquidityErr != nil {
		return nil, g.LiquidityErr
	}
	var out []ledger.LiquidityPosition
	for _, lp := range g.Liquidity[wallet] {
		if lp.Pool.Equals(ammPool) {
			out = append(out, lp)
		}
	}
	return out, nil
}

func (g *Gateway) GetTransactionOutcome(_ context.Context, signature solana.Signature) (*ledger.TxOutcome, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.OutcomeCalls++
	if err, ok := g.OutcomeErrs[signature]; ok {
		return nil, err
	}
	if out, ok := g.Outcomes[signature]; ok {
		return out, nil
	}
	return &ledger.TxOutcome{Signature: signature}, nil
}

func (g *Gateway) GetTransactionOutcomes(ctx context.Context, signatures []solana.Signature) []ledger.OutcomeResult {
	out := make([]ledger.OutcomeResult, len(signatures))
	for i, sig := range signatures {
		res, err := g.GetTransactionOutcome(ctx, sig)
		out[i] = ledger.OutcomeResult{Signature: sig, Outcome: res, Err: err}
	}
	return out
}

func (g *Gateway) BuildOperation(_ context.Context, kind ledger.OperationKind, params ledger.OperationParams) (*ledger.PreparedOperation, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Built = append(g.Built, params)
	g.BuiltKinds = append(g.BuiltKinds, kind)
	if err := g.BuildErrs[kind]; err != nil {
		return nil, err
	}
	if params.FeePayer.IsZero() {
		return nil, fmt.Errorf("%w: fee payer is required", domain.ErrInvalidRequest)
	}

	op := &ledger.PreparedOperation{
		Kind:           kind,
		FeePayer:       params.FeePayer.String(),
		Transaction:    "AQ==",
		Blockhash:      solana.Hash{1}.String(),
		AmountLamports: params.Amount,
		Mint:           params.Asset.String(),
	}
	if t, ok := kind.FeeType(); ok {
		op.FeeType = t
	}
	switch kind {
	case ledger.OpLaunch:
		op.Mint = solana.NewWallet().PublicKey().String()
	case ledger.OpBurn:
		op.AmountLamports = 0
		op.TokenAmount = params.Amount
	case ledger.OpBuy:
		op.TokenAmount = params.Amount * 10
	}
	return op, nil
}

func (g *Gateway) Submit(_ context.Context, signedTx string) (solana.Signature, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.SubmitErr != nil {
		return solana.Signature{}, g.SubmitErr
	}
	g.Submitted = append(g.Submitted, signedTx)
	return RandomSignature(), nil
}
