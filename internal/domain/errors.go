// internal/domain/errors.go
package domain

import "errors"

// Settlement error taxonomy. Every user-visible rejection wraps one of these.
var (
	// ErrLedgerUnavailable is transient; the caller may retry with backoff.
	ErrLedgerUnavailable = errors.New("ledger unavailable")

	// ErrLedgerRejected means the requested ledger state does not exist.
	ErrLedgerRejected = errors.New("ledger rejected request")

	// ErrNotFound is returned by explicit lookups (workflow state, records).
	ErrNotFound = errors.New("not found")

	ErrSignerMismatch       = errors.New("signer mismatch")
	ErrAssetMismatch        = errors.New("asset mismatch")
	ErrOnchainFailure       = errors.New("transaction failed on-chain")
	ErrNotFinalized         = errors.New("transaction not finalized")
	ErrAmountOutOfTolerance = errors.New("amount out of tolerance")
	ErrDuplicateSignature   = errors.New("duplicate signature")

	// ErrNoClaimableEntitlement means nothing is available to claim.
	ErrNoClaimableEntitlement = errors.New("no claimable entitlement")

	// ErrBuildFailed means entitlements exist but no operation could be prepared.
	ErrBuildFailed = errors.New("claim operations could not be prepared")

	// ErrPartialBuildFailure is informational: some operations were built.
	ErrPartialBuildFailure = errors.New("partial build failure")

	// ErrBookkeepingFailure is logged and counted, never returned to users.
	ErrBookkeepingFailure = errors.New("bookkeeping failure")

	// ErrCommitFailed means a verified outcome could not be recorded. Retryable.
	ErrCommitFailed = errors.New("settlement commit failed")

	ErrInvalidRequest = errors.New("invalid request")
)

// Kind maps an error onto its taxonomy name.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrLedgerUnavailable):
		return "ledger_unavailable"
	case errors.Is(err, ErrLedgerRejected):
		return "ledger_rejected"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrSignerMismatch):
		return "signer_mismatch"
	case errors.Is(err, ErrAssetMismatch):
		return "asset_mismatch"
	case errors.Is(err, ErrOnchainFailure):
		return "onchain_failure"
	case errors.Is(err, ErrNotFinalized):
		return "not_finalized"
	case errors.Is(err, ErrAmountOutOfTolerance):
		return "amount_out_of_tolerance"
	case errors.Is(err, ErrDuplicateSignature):
		return "duplicate_signature"
	case errors.Is(err, ErrNoClaimableEntitlement):
		return "no_claimable_entitlement"
	case errors.Is(err, ErrBuildFailed):
		return "build_failed"
	case errors.Is(err, ErrPartialBuildFailure):
		return "partial_build_failure"
	case errors.Is(err, ErrBookkeepingFailure):
		return "bookkeeping_failure"
	case errors.Is(err, ErrCommitFailed):
		return "commit_failed"
	case errors.Is(err, ErrInvalidRequest):
		return "invalid_request"
	}
	return "internal"
}
