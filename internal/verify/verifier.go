// internal/verify/verifier.go
package verify

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/launchpad-settlement/internal/domain"
	"github.com/rovshanmuradov/launchpad-settlement/internal/ledger"
	"github.com/rovshanmuradov/launchpad-settlement/internal/storage"
	"github.com/rovshanmuradov/launchpad-settlement/internal/utils/metrics"
)

// DefaultTradeTolerance accepts reported trade amounts within 25% of the ledger delta.
var DefaultTradeTolerance = decimal.RequireFromString("0.25")

const (
	flowTrade  = "trade"
	flowClaim  = "claim"
	flowLaunch = "launch"

	outcomeAccepted = "accepted"
)

// Verifier checks client-reported outcomes against the ledger before they are committed.
type Verifier struct {
	gateway     ledger.Gateway
	settlements storage.SettlementStore
	logger      *zap.Logger
	metrics     *metrics.Collector
	tolerance   decimal.Decimal
}

func NewVerifier(gateway ledger.Gateway, settlements storage.SettlementStore, logger *zap.Logger, collector *metrics.Collector, tolerance decimal.Decimal) *Verifier {
	if tolerance.IsNegative() || tolerance.IsZero() {
		tolerance = DefaultTradeTolerance
	}
	return &Verifier{
		gateway:     gateway,
		settlements: settlements,
		logger:      logger.Named("verifier"),
		metrics:     collector,
		tolerance:   tolerance,
	}
}

// Tolerance returns the configured trade tolerance.
func (v *Verifier) Tolerance() decimal.Decimal {
	return v.tolerance
}

// WithinTolerance reports whether |actual-claimed| <= tolerance*claimed.
func WithinTolerance(claimed, actual, tolerance decimal.Decimal) bool {
	return actual.Sub(claimed).Abs().LessThanOrEqual(claimed.Mul(tolerance))
}

func (v *Verifier) record(flow string, err error) {
	outcome := outcomeAccepted
	if err != nil {
		outcome = domain.Kind(err)
	}
	v.metrics.RecordVerification(flow, outcome)
}

// FinalityCheck is the per-signature result of CheckFinality.
type FinalityCheck struct {
	Signature string
	Outcome   *ledger.TxOutcome
	Err       error // nil when the transaction finalized without error
}

// Succeeded reports whether the signature finalized without error.
func (c FinalityCheck) Succeeded() bool {
	return c.Err == nil
}

// CheckFinality verifies independently that each signature finalized without error.
// Results keep input order.
func (v *Verifier) CheckFinality(ctx context.Context, signatures []string) []FinalityCheck {
	checks := make([]FinalityCheck, len(signatures))
	var (
		parsed []solana.Signature
		index  []int
	)
	for i, s := range signatures {
		checks[i].Signature = s
		sig, err := solana.SignatureFromBase58(s)
		if err != nil {
			checks[i].Err = reject(domain.ErrInvalidRequest, s, fmt.Sprintf("malformed signature: %v", err))
			continue
		}
		parsed = append(parsed, sig)
		index = append(index, i)
	}

	for j, res := range v.gateway.GetTransactionOutcomes(ctx, parsed) {
		i := index[j]
		checks[i].Outcome = res.Outcome
		switch {
		case res.Err != nil:
			checks[i].Err = res.Err
		case res.Outcome == nil || !res.Outcome.Finalized:
			checks[i].Err = reject(domain.ErrNotFinalized, checks[i].Signature, "transaction is not finalized")
		case res.Outcome.Err != "":
			checks[i].Err = reject(domain.ErrOnchainFailure, checks[i].Signature, res.Outcome.Err)
		}
	}
	return checks
}
