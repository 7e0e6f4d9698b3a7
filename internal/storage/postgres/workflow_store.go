// internal/storage/postgres/workflow_store.go
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/rovshanmuradov/launchpad-settlement/internal/domain"
	"github.com/rovshanmuradov/launchpad-settlement/internal/storage"
)

// WorkflowStore implements storage.WorkflowStore using PostgreSQL. Transitions are
// single conditional UPDATE statements, so concurrent writers are serialized by the
// row lock and only one of them observes the expected status.
type WorkflowStore struct {
	pool *Pool
}

func NewWorkflowStore(pool *Pool) *WorkflowStore {
	return &WorkflowStore{pool: pool}
}

var _ storage.WorkflowStore = (*WorkflowStore)(nil)

const workflowColumns = `state_id, status, creator, mint_address, config_address, metadata_url,
	image_url, error, prepared_steps, completed_steps, failed_steps, signatures, created_at, updated_at`

func scanWorkflow(row pgx.Row) (*domain.WorkflowState, error) {
	var (
		w      domain.WorkflowState
		status string
	)
	err := row.Scan(&w.StateID, &status, &w.Creator, &w.MintAddress, &w.ConfigAddress, &w.MetadataURL,
		&w.ImageURL, &w.Error, &w.PreparedSteps, &w.CompletedSteps, &w.FailedSteps, &w.Signatures,
		&w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return nil, err
	}
	w.Status = domain.WorkflowStatus(status)
	return &w, nil
}

func (s *WorkflowStore) CreateWorkflow(ctx context.Context, state *domain.WorkflowState) error {
	if state == nil || state.StateID == "" {
		return storage.ErrInvalidInput
	}
	query := `
		INSERT INTO workflow_states (state_id, status, creator, mint_address, config_address,
			metadata_url, image_url, error, prepared_steps, completed_steps, failed_steps, signatures)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at, updated_at
	`
	err := s.pool.QueryRow(ctx, query,
		state.StateID,
		string(state.Status),
		state.Creator,
		state.MintAddress,
		state.ConfigAddress,
		state.MetadataURL,
		state.ImageURL,
		state.Error,
		orEmpty(state.PreparedSteps),
		orEmpty(state.CompletedSteps),
		orEmpty(state.FailedSteps),
		orEmpty(state.Signatures),
	).Scan(&state.CreatedAt, &state.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert workflow state: %w", err)
	}
	return nil
}

func (s *WorkflowStore) GetWorkflow(ctx context.Context, stateID string) (*domain.WorkflowState, error) {
	w, err := scanWorkflow(s.pool.QueryRow(ctx,
		`SELECT `+workflowColumns+` FROM workflow_states WHERE state_id = $1`, stateID))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get workflow state: %w", err)
	}
	return w, nil
}

func (s *WorkflowStore) UpdateWorkflow(ctx context.Context, next *domain.WorkflowState, from ...domain.WorkflowStatus) (*domain.WorkflowState, error) {
	if next == nil || next.StateID == "" {
		return nil, storage.ErrInvalidInput
	}
	allowed := make([]string, 0, len(from))
	for _, st := range from {
		allowed = append(allowed, string(st))
	}

	query := `
		UPDATE workflow_states SET
			status = $2, mint_address = $3, config_address = $4, metadata_url = $5,
			image_url = $6, error = $7, prepared_steps = $8, completed_steps = $9,
			failed_steps = $10, signatures = $11, updated_at = now()
		WHERE state_id = $1 AND status = ANY($12)
		RETURNING ` + workflowColumns
	w, err := scanWorkflow(s.pool.QueryRow(ctx, query,
		next.StateID,
		string(next.Status),
		next.MintAddress,
		next.ConfigAddress,
		next.MetadataURL,
		next.ImageURL,
		next.Error,
		orEmpty(next.PreparedSteps),
		orEmpty(next.CompletedSteps),
		orEmpty(next.FailedSteps),
		orEmpty(next.Signatures),
		allowed,
	))
	if err != nil {
		if isNotFoundError(err) {
			return nil, s.missOrConflict(ctx, next.StateID)
		}
		return nil, fmt.Errorf("update workflow state: %w", err)
	}
	return w, nil
}

func (s *WorkflowStore) AppendWorkflowError(ctx context.Context, stateID, msg string) (*domain.WorkflowState, error) {
	query := `
		UPDATE workflow_states SET
			error = CASE WHEN error = '' THEN $2::text WHEN $2::text = '' THEN error ELSE error || '; ' || $2::text END,
			updated_at = now()
		WHERE state_id = $1 AND status = 'failed'
		RETURNING ` + workflowColumns
	w, err := scanWorkflow(s.pool.QueryRow(ctx, query, stateID, msg))
	if err != nil {
		if isNotFoundError(err) {
			return nil, s.missOrConflict(ctx, stateID)
		}
		return nil, fmt.Errorf("append workflow error: %w", err)
	}
	return w, nil
}

// missOrConflict tells a missing row from one whose status did not match.
func (s *WorkflowStore) missOrConflict(ctx context.Context, stateID string) error {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM workflow_states WHERE state_id = $1)`, stateID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check workflow state: %w", err)
	}
	if !exists {
		return storage.ErrNotFound
	}
	return storage.ErrStateConflict
}
