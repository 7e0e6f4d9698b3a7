// internal/claim/builder.go
package claim

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rovshanmuradov/launchpad-settlement/internal/domain"
	"github.com/rovshanmuradov/launchpad-settlement/internal/ledger"
	"github.com/rovshanmuradov/launchpad-settlement/internal/utils/metrics"
)

// Failure records one fee type whose operation could not be built.
type Failure struct {
	FeeType domain.FeeType
	Err     error
}

// Result is the ordered output of Build.
type Result struct {
	Operations []*ledger.PreparedOperation
	Failures   []Failure
}

// Partial reports whether some but not all eligible operations were built.
func (r *Result) Partial() bool {
	return len(r.Failures) > 0 && len(r.Operations) > 0
}

// Err returns ErrPartialBuildFailure joined with the individual failures, or nil.
func (r *Result) Err() error {
	if len(r.Failures) == 0 {
		return nil
	}
	errs := []error{domain.ErrPartialBuildFailure}
	for _, f := range r.Failures {
		errs = append(errs, fmt.Errorf("%s: %w", f.FeeType, f.Err))
	}
	return errors.Join(errs...)
}

// Builder turns entitlements into independently submittable claim operations.
type Builder struct {
	gateway       ledger.Gateway
	logger        *zap.Logger
	metrics       *metrics.Collector
	minClaimFloor uint64
}

func NewBuilder(gateway ledger.Gateway, logger *zap.Logger, collector *metrics.Collector, minClaimFloor uint64) *Builder {
	return &Builder{
		gateway:       gateway,
		logger:        logger.Named("claim-builder"),
		metrics:       collector,
		minClaimFloor: minClaimFloor,
	}
}

// Eligible returns the fee types req may claim from ent, in claim order. A wallet
// that is not the position's claimant for the requested role gets nothing.
func (b *Builder) Eligible(req domain.ClaimRequest, ent *domain.Entitlement) []domain.FeeType {
	if !ent.HeldBy(req.Wallet, req.Role) {
		return nil
	}
	var out []domain.FeeType
	for _, t := range domain.ClaimOrder {
		amount, ok := ent.Amount(t)
		if !ok || amount < b.minClaimFloor {
			continue
		}
		if !req.Role.Eligible(t) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// Build prepares one operation per eligible fee type. Operations are built
// concurrently; a failing build is logged and omitted. When nothing is eligible the
// error wraps ErrNoClaimableEntitlement; when every build failed it wraps ErrBuildFailed.
func (b *Builder) Build(ctx context.Context, req domain.ClaimRequest, ent *domain.Entitlement) (*Result, error) {
	types := b.Eligible(req, ent)
	if len(types) == 0 {
		return nil, fmt.Errorf("%w: asset %s, wallet %s, role %s",
			domain.ErrNoClaimableEntitlement, req.Asset, req.Wallet, req.Role)
	}

	ops := make([]*ledger.PreparedOperation, len(types))
	errs := make([]error, len(types))

	var eg errgroup.Group
	for i, t := range types {
		eg.Go(func() error {
			ops[i], errs[i] = b.buildOne(ctx, req, ent, t)
			return nil
		})
	}
	_ = eg.Wait()

	res := &Result{}
	for i, t := range types {
		kind, _ := ledger.ClaimKind(t)
		if errs[i] != nil {
			b.metrics.RecordOperation(string(kind), false)
			b.logger.Warn("Claim operation could not be built",
				zap.String("fee_type", string(t)),
				zap.String("asset", req.Asset.String()),
				zap.String("wallet", req.Wallet.String()),
				zap.Error(errs[i]))
			res.Failures = append(res.Failures, Failure{FeeType: t, Err: errs[i]})
			continue
		}
		b.metrics.RecordOperation(string(kind), true)
		res.Operations = append(res.Operations, ops[i])
	}

	if len(res.Operations) == 0 {
		return res, fmt.Errorf("%w: %w", domain.ErrBuildFailed, res.Err())
	}
	if res.Partial() {
		b.logger.Info("Claim prepared partially",
			zap.Int("built", len(res.Operations)),
			zap.Int("failed", len(res.Failures)))
	}
	return res, nil
}

func (b *Builder) buildOne(ctx context.Context, req domain.ClaimRequest, ent *domain.Entitlement, t domain.FeeType) (*ledger.PreparedOperation, error) {
	kind, ok := ledger.ClaimKind(t)
	if !ok {
		return nil, fmt.Errorf("no claim operation for fee type %s", t)
	}
	amount, _ := ent.Amount(t)
	params := ledger.OperationParams{
		FeePayer: req.Wallet,
		Asset:    req.Asset,
		Position: ent.Position,
		Amount:   amount,
	}
	if t == domain.FeePool {
		params.AmmPool = ent.AmmPool
		params.LiquidityPositions = ent.LiquidityPositions
	}
	return b.gateway.BuildOperation(ctx, kind, params)
}
