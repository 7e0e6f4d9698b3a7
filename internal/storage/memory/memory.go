// Package memory implements the storage interfaces with mutex-guarded maps.
package memory

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/rovshanmuradov/launchpad-settlement/internal/domain"
	"github.com/rovshanmuradov/launchpad-settlement/internal/storage"
)

// Store is an in-memory SettlementStore and WorkflowStore.
type Store struct {
	mu        sync.RWMutex
	trades    map[string]domain.TradeSettlement
	claims    map[string]domain.ClaimSettlement
	workflows map[string]*domain.WorkflowState
	now       func() time.Time
}

var (
	_ storage.SettlementStore = (*Store)(nil)
	_ storage.WorkflowStore   = (*Store)(nil)
)

func New() *Store {
	return &Store{
		trades:    make(map[string]domain.TradeSettlement),
		claims:    make(map[string]domain.ClaimSettlement),
		workflows: make(map[string]*domain.WorkflowState),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) TradeExists(_ context.Context, signature string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.trades[signature]
	return ok, nil
}

// InsertTrade returns ErrDuplicateKey if the signature is already recorded.
func (s *Store) InsertTrade(_ context.Context, rec *domain.TradeSettlement) error {
	if rec == nil || rec.Signature == "" {
		return storage.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.trades[rec.Signature]; ok {
		return storage.ErrDuplicateKey
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.now()
	}
	s.trades[rec.Signature] = *rec
	return nil
}

// ListTrades returns the newest trades of wallet first.
func (s *Store) ListTrades(_ context.Context, wallet string, limit int) ([]domain.TradeSettlement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.TradeSettlement
	for _, t := range s.trades {
		if t.Wallet == wallet {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Signature < out[j].Signature
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return truncate(out, storage.NormalizeLimit(limit)), nil
}

func (s *Store) ClaimExists(_ context.Context, signature string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.claims[signature]
	return ok, nil
}

// InsertClaim returns ErrDuplicateKey if the signature is already recorded.
func (s *Store) InsertClaim(_ context.Context, rec *domain.ClaimSettlement) error {
	if rec == nil || rec.Signature == "" {
		return storage.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.claims[rec.Signature]; ok {
		return storage.ErrDuplicateKey
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.now()
	}
	s.claims[rec.Signature] = *rec
	return nil
}

// ListClaims returns the newest claims of wallet first. An empty asset matches all.
func (s *Store) ListClaims(_ context.Context, wallet, asset string, limit int) ([]domain.ClaimSettlement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.ClaimSettlement
	for _, c := range s.claims {
		if c.Wallet == wallet && (asset == "" || c.Asset == asset) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Signature < out[j].Signature
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return truncate(out, storage.NormalizeLimit(limit)), nil
}

func (s *Store) CreateWorkflow(_ context.Context, state *domain.WorkflowState) error {
	if state == nil || state.StateID == "" {
		return storage.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.workflows[state.StateID]; ok {
		return storage.ErrDuplicateKey
	}
	now := s.now()
	if state.CreatedAt.IsZero() {
		state.CreatedAt = now
	}
	state.UpdatedAt = state.CreatedAt
	s.workflows[state.StateID] = state.Clone()
	return nil
}

func (s *Store) GetWorkflow(_ context.Context, stateID string) (*domain.WorkflowState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.workflows[stateID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return w.Clone(), nil
}

func (s *Store) UpdateWorkflow(_ context.Context, next *domain.WorkflowState, from ...domain.WorkflowStatus) (*domain.WorkflowState, error) {
	if next == nil {
		return nil, storage.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.workflows[next.StateID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	if !slices.Contains(from, cur.Status) {
		return nil, storage.ErrStateConflict
	}

	updated := next.Clone()
	updated.Creator = cur.Creator
	updated.CreatedAt = cur.CreatedAt
	updated.UpdatedAt = s.now()
	s.workflows[next.StateID] = updated
	return updated.Clone(), nil
}

func (s *Store) AppendWorkflowError(_ context.Context, stateID, msg string) (*domain.WorkflowState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.workflows[stateID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	if cur.Status != domain.StatusFailed {
		return nil, storage.ErrStateConflict
	}
	cur.Error = storage.AppendError(cur.Error, msg)
	cur.UpdatedAt = s.now()
	return cur.Clone(), nil
}

func truncate[T any](in []T, limit int) []T {
	if len(in) > limit {
		return in[:limit]
	}
	return in
}
