// internal/storage/postgres/settlement_store.go
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/rovshanmuradov/launchpad-settlement/internal/domain"
	"github.com/rovshanmuradov/launchpad-settlement/internal/storage"
)

// SettlementStore implements storage.SettlementStore using PostgreSQL.
type SettlementStore struct {
	pool *Pool
}

func NewSettlementStore(pool *Pool) *SettlementStore {
	return &SettlementStore{pool: pool}
}

var _ storage.SettlementStore = (*SettlementStore)(nil)

func (s *SettlementStore) TradeExists(ctx context.Context, signature string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM trade_settlements WHERE signature = $1)`, signature).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check trade signature: %w", err)
	}
	return exists, nil
}

// InsertTrade adds a trade record. Returns ErrDuplicateKey if the signature exists.
func (s *SettlementStore) InsertTrade(ctx context.Context, rec *domain.TradeSettlement) error {
	if rec == nil || rec.Signature == "" {
		return storage.ErrInvalidInput
	}
	query := `
		INSERT INTO trade_settlements (signature, wallet, asset, direction, settled_lamports)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`
	err := s.pool.QueryRow(ctx, query,
		rec.Signature,
		rec.Wallet,
		rec.Asset,
		string(rec.Direction),
		int64(rec.SettledLamports),
	).Scan(&rec.CreatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert trade settlement: %w", err)
	}
	return nil
}

// ListTrades returns the newest trades of wallet first.
func (s *SettlementStore) ListTrades(ctx context.Context, wallet string, limit int) ([]domain.TradeSettlement, error) {
	query := `
		SELECT signature, wallet, asset, direction, settled_lamports, created_at
		FROM trade_settlements
		WHERE wallet = $1
		ORDER BY created_at DESC, signature
		LIMIT $2
	`
	rows, err := s.pool.Query(ctx, query, wallet, storage.NormalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("query trade settlements: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.TradeSettlement, error) {
		var (
			t         domain.TradeSettlement
			direction string
			lamports  int64
		)
		if err := row.Scan(&t.Signature, &t.Wallet, &t.Asset, &direction, &lamports, &t.CreatedAt); err != nil {
			return t, fmt.Errorf("scan trade settlement: %w", err)
		}
		t.Direction = domain.Direction(direction)
		t.SettledLamports = uint64(lamports)
		return t, nil
	})
}

func (s *SettlementStore) ClaimExists(ctx context.Context, signature string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM claim_settlements WHERE signature = $1)`, signature).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check claim signature: %w", err)
	}
	return exists, nil
}

// InsertClaim adds a claim record. Returns ErrDuplicateKey if the signature exists.
func (s *SettlementStore) InsertClaim(ctx context.Context, rec *domain.ClaimSettlement) error {
	if rec == nil || rec.Signature == "" {
		return storage.ErrInvalidInput
	}
	query := `
		INSERT INTO claim_settlements (signature, asset, wallet, fee_type, amount_lamports)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`
	err := s.pool.QueryRow(ctx, query,
		rec.Signature,
		rec.Asset,
		rec.Wallet,
		string(rec.FeeType),
		int64(rec.AmountLamports),
	).Scan(&rec.CreatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert claim settlement: %w", err)
	}
	return nil
}

// ListClaims returns the newest claims of wallet first. An empty asset matches all.
func (s *SettlementStore) ListClaims(ctx context.Context, wallet, asset string, limit int) ([]domain.ClaimSettlement, error) {
	query := `
		SELECT signature, asset, wallet, fee_type, amount_lamports, created_at
		FROM claim_settlements
		WHERE wallet = $1 AND ($2::text = '' OR asset = $2::text)
		ORDER BY created_at DESC, signature
		LIMIT $3
	`
	rows, err := s.pool.Query(ctx, query, wallet, asset, storage.NormalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("query claim settlements: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.ClaimSettlement, error) {
		var (
			c       domain.ClaimSettlement
			feeType string
			amount  int64
		)
		if err := row.Scan(&c.Signature, &c.Asset, &c.Wallet, &feeType, &amount, &c.CreatedAt); err != nil {
			return c, fmt.Errorf("scan claim settlement: %w", err)
		}
		c.FeeType = domain.FeeType(feeType)
		c.AmountLamports = uint64(amount)
		return c, nil
	})
}
