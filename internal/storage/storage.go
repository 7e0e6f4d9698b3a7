// internal/storage/storage.go
package storage

import (
	"context"
	"errors"

	"github.com/rovshanmuradov/launchpad-settlement/internal/domain"
)

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when a signature or state id is already recorded.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")

	// ErrStateConflict is returned when a workflow transition finds the state in a
	// status it may not leave.
	ErrStateConflict = errors.New("workflow state conflict")
)

// SettlementStore holds committed trade and claim records. Inserts are atomic
// uniqueness-constrained writes keyed by signature; records are never updated.
type SettlementStore interface {
	TradeExists(ctx context.Context, signature string) (bool, error)
	InsertTrade(ctx context.Context, rec *domain.TradeSettlement) error
	ListTrades(ctx context.Context, wallet string, limit int) ([]domain.TradeSettlement, error)

	ClaimExists(ctx context.Context, signature string) (bool, error)
	InsertClaim(ctx context.Context, rec *domain.ClaimSettlement) error
	ListClaims(ctx context.Context, wallet, asset string, limit int) ([]domain.ClaimSettlement, error)
}

// WorkflowStore holds launch saga state keyed by state id.
type WorkflowStore interface {
	// CreateWorkflow inserts a new state. Returns ErrDuplicateKey if the id exists.
	CreateWorkflow(ctx context.Context, state *domain.WorkflowState) error

	// GetWorkflow returns a copy of the state or ErrNotFound.
	GetWorkflow(ctx context.Context, stateID string) (*domain.WorkflowState, error)

	// UpdateWorkflow replaces the mutable fields of the state if its current status is
	// one of from, in a single atomic step. Returns ErrStateConflict otherwise.
	UpdateWorkflow(ctx context.Context, next *domain.WorkflowState, from ...domain.WorkflowStatus) (*domain.WorkflowState, error)

	// AppendWorkflowError appends msg to the error of a failed state.
	// Returns ErrStateConflict if the state is not failed.
	AppendWorkflowError(ctx context.Context, stateID, msg string) (*domain.WorkflowState, error)
}

// DefaultListLimit bounds list queries without an explicit limit.
const DefaultListLimit = 100

// NormalizeLimit clamps limit to (0, DefaultListLimit*10].
func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	if limit > DefaultListLimit*10 {
		return DefaultListLimit * 10
	}
	return limit
}

// AppendError joins workflow error texts.
func AppendError(existing, msg string) string {
	if existing == "" {
		return msg
	}
	if msg == "" {
		return existing
	}
	return existing + "; " + msg
}
