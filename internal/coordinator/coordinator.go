// Package coordinator drives the settlement flows end to end: entitlement previews,
// claim building and verification, trade settlement and the launch saga.
package coordinator

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/launchpad-settlement/internal/claim"
	"github.com/rovshanmuradov/launchpad-settlement/internal/domain"
	"github.com/rovshanmuradov/launchpad-settlement/internal/entitlement"
	"github.com/rovshanmuradov/launchpad-settlement/internal/events"
	"github.com/rovshanmuradov/launchpad-settlement/internal/ledger"
	"github.com/rovshanmuradov/launchpad-settlement/internal/storage"
	"github.com/rovshanmuradov/launchpad-settlement/internal/verify"
)

// Deps are the collaborators of a Coordinator. Events may be nil.
type Deps struct {
	Gateway     ledger.Gateway
	Calculator  *entitlement.Calculator
	Builder     *claim.Builder
	Verifier    *verify.Verifier
	Settlements storage.SettlementStore
	Workflows   storage.WorkflowStore
	Events      events.Publisher

	// VenueConfig is recorded on every launch state.
	VenueConfig solana.PublicKey
}

// Coordinator is safe for concurrent use; all state lives in the stores.
type Coordinator struct {
	gateway     ledger.Gateway
	calculator  *entitlement.Calculator
	builder     *claim.Builder
	verifier    *verify.Verifier
	settlements storage.SettlementStore
	workflows   storage.WorkflowStore
	events      events.Publisher
	venueConfig solana.PublicKey
	logger      *zap.Logger

	// unrecorded remembers claim signatures announced without a stored record.
	unrecorded *lru.Cache[string, struct{}]

	newID func() string
}

const unrecordedMemory = 4096

func New(deps Deps, logger *zap.Logger) (*Coordinator, error) {
	switch {
	case deps.Gateway == nil:
		return nil, errors.New("coordinator: gateway is required")
	case deps.Calculator == nil || deps.Builder == nil || deps.Verifier == nil:
		return nil, errors.New("coordinator: calculator, builder and verifier are required")
	case deps.Settlements == nil || deps.Workflows == nil:
		return nil, errors.New("coordinator: settlement and workflow stores are required")
	}
	unrecorded, err := lru.New[string, struct{}](unrecordedMemory)
	if err != nil {
		return nil, fmt.Errorf("coordinator: %w", err)
	}
	return &Coordinator{
		gateway:     deps.Gateway,
		calculator:  deps.Calculator,
		builder:     deps.Builder,
		verifier:    deps.Verifier,
		settlements: deps.Settlements,
		workflows:   deps.Workflows,
		events:      deps.Events,
		venueConfig: deps.VenueConfig,
		logger:      logger.Named("coordinator"),
		unrecorded:  unrecorded,
		newID:       uuid.NewString,
	}, nil
}

// Preview is a display-only entitlement: every present fee is listed, with the
// fee types the role may actually claim marked eligible.
type Preview struct {
	Entitlement *domain.Entitlement
	Role        domain.Role
	Eligible    []domain.FeeType
}

// Entitlement computes the current entitlement of wallet for asset.
func (c *Coordinator) Entitlement(ctx context.Context, asset, wallet solana.PublicKey, role domain.Role) (*Preview, error) {
	ent, err := c.calculator.Calculate(ctx, asset, wallet)
	if err != nil {
		return nil, err
	}
	req := domain.ClaimRequest{Wallet: ent.Wallet, Asset: asset, Role: role}
	return &Preview{Entitlement: ent, Role: role, Eligible: c.builder.Eligible(req, ent)}, nil
}

// MaxPreviewAssets bounds one Entitlements call.
const MaxPreviewAssets = 50

// PreviewResult is one entry of Entitlements.
type PreviewResult struct {
	Asset   solana.PublicKey
	Preview *Preview
	Err     error
}

// Entitlements previews the entitlements of wallet across several assets, in input
// order. A failing asset carries its error; the call itself fails only on bad input.
func (c *Coordinator) Entitlements(ctx context.Context, assets []solana.PublicKey, wallet solana.PublicKey, role domain.Role) ([]PreviewResult, error) {
	if len(assets) == 0 || len(assets) > MaxPreviewAssets {
		return nil, fmt.Errorf("%w: between 1 and %d assets required, got %d",
			domain.ErrInvalidRequest, MaxPreviewAssets, len(assets))
	}
	results := c.calculator.CalculateMany(ctx, assets, wallet)
	out := make([]PreviewResult, len(results))
	for i, r := range results {
		out[i] = PreviewResult{Asset: r.Asset, Err: r.Err}
		if r.Err != nil {
			continue
		}
		req := domain.ClaimRequest{Wallet: r.Entitlement.Wallet, Asset: r.Asset, Role: role}
		out[i].Preview = &Preview{Entitlement: r.Entitlement, Role: role, Eligible: c.builder.Eligible(req, r.Entitlement)}
	}
	return out, nil
}

// BuildClaim recomputes the entitlement and prepares the claim operations for it.
// A partial build is returned with a nil error; inspect Result.Failures.
func (c *Coordinator) BuildClaim(ctx context.Context, req domain.ClaimRequest) (*claim.Result, error) {
	if req.Wallet.IsZero() || req.Asset.IsZero() {
		return nil, fmt.Errorf("%w: wallet and asset are required", domain.ErrInvalidRequest)
	}
	ent, err := c.calculator.Calculate(ctx, req.Asset, req.Wallet)
	if err != nil {
		return nil, err
	}
	return c.builder.Build(ctx, req, ent)
}

// VerifyClaim checks every reported claim signature and emits a bookkeeping event
// for each one that settled a fee. A claim whose record could not be written is
// announced once, not on every re-report.
func (c *Coordinator) VerifyClaim(ctx context.Context, report verify.ClaimReport) ([]verify.ClaimCheck, error) {
	if len(report.Signatures) == 0 {
		return nil, fmt.Errorf("%w: no signatures reported", domain.ErrInvalidRequest)
	}
	checks := c.verifier.VerifyClaim(ctx, report)
	for _, chk := range checks {
		if !chk.Success || chk.FeeType == "" {
			continue
		}
		if chk.Settlement == nil {
			if seen, _ := c.unrecorded.ContainsOrAdd(chk.Signature, struct{}{}); seen {
				continue
			}
		}
		rec := domain.ClaimSettlement{
			Asset:          report.Asset.String(),
			Wallet:         report.Wallet.String(),
			FeeType:        chk.FeeType,
			AmountLamports: chk.AmountLamports,
			Signature:      chk.Signature,
		}
		if chk.Settlement != nil {
			rec = *chk.Settlement
		}
		c.publish(events.NewClaimSettled(rec, chk.Settlement != nil))
	}
	return checks, nil
}

// VerifyTrade settles one reported trade.
func (c *Coordinator) VerifyTrade(ctx context.Context, report verify.TradeReport) (*verify.TradeResult, error) {
	res, err := c.verifier.VerifyTrade(ctx, report)
	if err != nil {
		return nil, err
	}
	c.publish(events.NewTradeSettled(*res.Settlement))
	return res, nil
}

// ClaimHistory lists committed claim records, newest first. Asset may be empty.
func (c *Coordinator) ClaimHistory(ctx context.Context, wallet, asset string, limit int) ([]domain.ClaimSettlement, error) {
	if wallet == "" {
		return nil, fmt.Errorf("%w: wallet is required", domain.ErrInvalidRequest)
	}
	recs, err := c.settlements.ListClaims(ctx, wallet, asset, storage.NormalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list claims: %w", err)
	}
	return recs, nil
}

// TradeHistory lists committed trade records of wallet, newest first.
func (c *Coordinator) TradeHistory(ctx context.Context, wallet string, limit int) ([]domain.TradeSettlement, error) {
	if wallet == "" {
		return nil, fmt.Errorf("%w: wallet is required", domain.ErrInvalidRequest)
	}
	recs, err := c.settlements.ListTrades(ctx, wallet, storage.NormalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list trades: %w", err)
	}
	return recs, nil
}

// Submit relays a client-signed operation to the ledger.
func (c *Coordinator) Submit(ctx context.Context, signedTx string) (string, error) {
	sig, err := c.gateway.Submit(ctx, signedTx)
	if err != nil {
		return "", err
	}
	c.logger.Info("Relayed signed operation", zap.String("signature", sig.String()))
	return sig.String(), nil
}

func (c *Coordinator) publish(event events.Event) {
	if c.events == nil {
		return
	}
	if err := c.events.Publish(event); err != nil {
		c.logger.Warn("Bookkeeping event not published",
			zap.String("type", string(event.Type())),
			zap.Error(err))
	}
}
