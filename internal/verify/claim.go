// internal/verify/claim.go
package verify

import (
	"context"
	"errors"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/launchpad-settlement/internal/domain"
	"github.com/rovshanmuradov/launchpad-settlement/internal/ledger"
	"github.com/rovshanmuradov/launchpad-settlement/internal/storage"
)

// ClaimReport lists the signatures a client obtained by submitting claim operations.
type ClaimReport struct {
	Wallet     solana.PublicKey
	Asset      solana.PublicKey
	Role       domain.Role
	Signatures []string
}

// ClaimCheck is the verdict for one reported claim signature.
type ClaimCheck struct {
	Signature string
	Success   bool
	Err       error

	// Set on success when the transaction executed a claim instruction.
	FeeType        domain.FeeType
	AmountLamports uint64
	Settlement     *domain.ClaimSettlement
}

// VerifyClaim checks each signature on its own; any subset may succeed. A successful
// claim is recorded best-effort: a failing write is logged and counted and the
// check stays successful.
func (v *Verifier) VerifyClaim(ctx context.Context, r ClaimReport) []ClaimCheck {
	checks := make([]ClaimCheck, len(r.Signatures))
	pending := make([]string, 0, len(r.Signatures))
	slot := make([]int, 0, len(r.Signatures))

	for i, s := range r.Signatures {
		checks[i].Signature = s
		exists, err := v.settlements.ClaimExists(ctx, s)
		if err != nil {
			v.bookkeepingFailed("claim-precheck", s, err)
		}
		if exists {
			checks[i].Err = reject(domain.ErrDuplicateSignature, s, "claim already recorded")
			v.record(flowClaim, checks[i].Err)
			continue
		}
		pending = append(pending, s)
		slot = append(slot, i)
	}

	for j, fc := range v.CheckFinality(ctx, pending) {
		c := &checks[slot[j]]
		if !fc.Succeeded() {
			c.Err = fc.Err
			v.record(flowClaim, c.Err)
			continue
		}
		c.Success = true
		c.FeeType, c.AmountLamports = claimedFee(fc.Outcome, r.Wallet)
		v.commitClaim(ctx, r, c)
		v.record(flowClaim, nil)
	}
	return checks
}

func (v *Verifier) commitClaim(ctx context.Context, r ClaimReport, c *ClaimCheck) {
	if c.FeeType == "" {
		v.logger.Warn("Finalized claim signature carries no claim instruction, not recorded",
			zap.String("signature", c.Signature))
		return
	}
	rec := &domain.ClaimSettlement{
		Asset:          r.Asset.String(),
		Wallet:         r.Wallet.String(),
		FeeType:        c.FeeType,
		AmountLamports: c.AmountLamports,
		Signature:      c.Signature,
	}
	if err := v.settlements.InsertClaim(ctx, rec); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			// a concurrent report recorded it first
			c.Success = false
			c.Err = reject(domain.ErrDuplicateSignature, c.Signature, "claim already recorded")
			return
		}
		v.bookkeepingFailed("claim-settlements", c.Signature, err)
		return
	}
	c.Settlement = rec
	v.logger.Info("Claim settled",
		zap.String("signature", c.Signature),
		zap.String("fee_type", string(c.FeeType)),
		zap.Uint64("amount_lamports", c.AmountLamports))
}

func (v *Verifier) bookkeepingFailed(sink, signature string, err error) {
	v.metrics.RecordBookkeepingFailure(sink)
	v.logger.Error("Bookkeeping write failed",
		zap.String("sink", sink),
		zap.String("signature", signature),
		zap.Error(errors.Join(domain.ErrBookkeepingFailure, err)))
}

// claimedFee returns the fee type of the first claim instruction and the amount the
// wallet received: its native delta plus the fee it paid plus any wrapped SOL received.
func claimedFee(out *ledger.TxOutcome, wallet solana.PublicKey) (domain.FeeType, uint64) {
	var feeType domain.FeeType
	for _, k := range out.Kinds {
		if t, ok := k.FeeType(); ok {
			feeType = t
			break
		}
	}

	received := out.NativeDelta(wallet) + out.TokenDelta(wallet, solana.SolMint)
	if out.Signer.Equals(wallet) {
		received += int64(out.Fee)
	}
	if received < 0 {
		received = 0
	}
	return feeType, uint64(received)
}
