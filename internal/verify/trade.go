// internal/verify/trade.go
package verify

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/launchpad-settlement/internal/domain"
	"github.com/rovshanmuradov/launchpad-settlement/internal/storage"
)

// TradeReport is a client-reported trade fill.
type TradeReport struct {
	Wallet        solana.PublicKey
	Asset         solana.PublicKey
	ClaimedAmount decimal.Decimal // display units
	Direction     domain.Direction
	Signature     string
}

// TradeResult is an accepted trade. SettledAmount is the ledger amount, not the
// claimed one.
type TradeResult struct {
	Settlement    *domain.TradeSettlement
	SettledAmount decimal.Decimal
}

// VerifyTrade checks a reported trade against its transaction and commits it.
// Rejections are *RejectionError values; ledger and store failures are returned
// as-is and are retryable.
func (v *Verifier) VerifyTrade(ctx context.Context, r TradeReport) (res *TradeResult, err error) {
	defer func() { v.record(flowTrade, err) }()

	logger := v.logger.With(
		zap.String("signature", r.Signature),
		zap.String("wallet", r.Wallet.String()),
		zap.String("asset", r.Asset.String()))

	if !r.ClaimedAmount.IsPositive() {
		return nil, reject(domain.ErrInvalidRequest, r.Signature, "claimed amount must be positive")
	}
	sig, err := solana.SignatureFromBase58(r.Signature)
	if err != nil {
		return nil, reject(domain.ErrInvalidRequest, r.Signature, fmt.Sprintf("malformed signature: %v", err))
	}

	exists, err := v.settlements.TradeExists(ctx, r.Signature)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCommitFailed, err)
	}
	if exists {
		return nil, reject(domain.ErrDuplicateSignature, r.Signature, "trade already settled")
	}

	out, err := v.gateway.GetTransactionOutcome(ctx, sig)
	if err != nil {
		return nil, err
	}
	if !out.Finalized {
		return nil, reject(domain.ErrNotFinalized, r.Signature, "transaction is not finalized")
	}
	if out.Err != "" {
		return nil, reject(domain.ErrOnchainFailure, r.Signature, out.Err)
	}

	if !out.Signer.Equals(r.Wallet) {
		return nil, &RejectionError{
			Kind:      domain.ErrSignerMismatch,
			Signature: r.Signature,
			Expected:  r.Wallet.String(),
			Actual:    out.Signer.String(),
		}
	}
	if !out.Involves(r.Asset) {
		return nil, &RejectionError{
			Kind:      domain.ErrAssetMismatch,
			Signature: r.Signature,
			Reason:    "asset has no balance change in transaction",
			Expected:  r.Asset.String(),
			Actual:    fmt.Sprintf("%d other assets", len(out.InvolvedAssets)),
		}
	}

	delta := out.NativeDelta(r.Wallet)
	if r.Direction == domain.DirectionBuy {
		delta = -delta
	}
	actual := domain.SignedLamportsToSOL(delta)
	if delta < 0 || !WithinTolerance(r.ClaimedAmount, actual, v.tolerance) {
		return nil, &RejectionError{
			Kind:      domain.ErrAmountOutOfTolerance,
			Signature: r.Signature,
			Reason:    fmt.Sprintf("%s differs from ledger by more than %s", r.Direction, v.tolerance.Shift(2).String()+"%"),
			Expected:  r.ClaimedAmount.String(),
			Actual:    actual.String(),
		}
	}

	rec := &domain.TradeSettlement{
		Wallet:          r.Wallet.String(),
		Asset:           r.Asset.String(),
		Direction:       r.Direction,
		SettledLamports: uint64(delta),
		Signature:       r.Signature,
	}
	if err := v.settlements.InsertTrade(ctx, rec); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			return nil, reject(domain.ErrDuplicateSignature, r.Signature, "trade already settled")
		}
		logger.Error("Failed to commit verified trade", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", domain.ErrCommitFailed, err)
	}

	logger.Info("Trade settled",
		zap.String("direction", string(r.Direction)),
		zap.String("claimed", r.ClaimedAmount.String()),
		zap.String("settled", actual.String()))
	return &TradeResult{Settlement: rec, SettledAmount: actual}, nil
}
