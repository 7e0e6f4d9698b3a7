package verify

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/launchpad-settlement/internal/domain"
	"github.com/rovshanmuradov/launchpad-settlement/internal/ledger"
)

// LaunchReport lists the signatures a creator obtained by submitting the prepared
// launch operations.
type LaunchReport struct {
	Creator    solana.PublicKey
	Mint       solana.PublicKey
	Signatures []string
}

// VerifyLaunch requires every reported signature to have finalized without error
// and to be signed by the creator, and at least one of them to have created Mint.
// The returned error joins all failures.
func (v *Verifier) VerifyLaunch(ctx context.Context, r LaunchReport) (checks []FinalityCheck, err error) {
	defer func() { v.record(flowLaunch, err) }()

	if len(r.Signatures) == 0 {
		return nil, reject(domain.ErrInvalidRequest, "", "no signatures reported")
	}
	checks = v.CheckFinality(ctx, r.Signatures)

	var (
		errs    []error
		created bool
	)
	for i := range checks {
		c := &checks[i]
		if c.Err == nil && !c.Outcome.Signer.Equals(r.Creator) {
			c.Err = &RejectionError{
				Kind:      domain.ErrSignerMismatch,
				Signature: c.Signature,
				Expected:  r.Creator.String(),
				Actual:    c.Outcome.Signer.String(),
				Reason:    "launch operation not signed by creator",
			}
		}
		if c.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", c.Signature, c.Err))
			continue
		}
		if c.Outcome.HasKind(ledger.OpLaunch) && (r.Mint.IsZero() || c.Outcome.Involves(r.Mint)) {
			created = true
		}
	}
	if !created {
		reason := "no reported signature created the launch mint"
		if !r.Mint.IsZero() {
			reason += " " + r.Mint.String()
		}
		errs = append(errs, reject(domain.ErrAssetMismatch, "", reason))
	}
	return checks, errors.Join(errs...)
}
