package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/streetconsensus/settlement/internal/domain"
)

// PositionRepository handles all database operations for Positions.
type PositionRepository struct {
	db *sqlx.DB
}

// NewPositionRepository creates a new PositionRepository.
func NewPositionRepository(db *sqlx.DB) *PositionRepository {
	return &PositionRepository{db: db}
}

// GetForUpdate returns the (market, address) position, locked for the
// duration of tx. Absent rows return the zero-value Position rather than an
// error (spec §4.2 "default-zero semantics") — callers treat a never-traded
// position exactly like one with a zero balance.
func (r *PositionRepository) GetForUpdate(ctx context.Context, tx *sqlx.Tx, marketID uint64, address string) (*domain.Position, error) {
	var p domain.Position
	err := tx.GetContext(ctx, &p,
		`SELECT * FROM positions WHERE market_id = $1 AND address = $2 FOR UPDATE`,
		marketID, address)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ZeroPosition(marketID, address), nil
		}
		return nil, fmt.Errorf("position_repo.GetForUpdate: %w", err)
	}
	return &p, nil
}

// Get returns the position without locking, for read-only views.
func (r *PositionRepository) Get(ctx context.Context, marketID uint64, address string) (*domain.Position, error) {
	var p domain.Position
	err := r.db.GetContext(ctx, &p,
		`SELECT * FROM positions WHERE market_id = $1 AND address = $2`, marketID, address)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ZeroPosition(marketID, address), nil
		}
		return nil, fmt.Errorf("position_repo.Get: %w", err)
	}
	return &p, nil
}

// Upsert inserts or updates the position row inside tx.
func (r *PositionRepository) Upsert(ctx context.Context, tx *sqlx.Tx, p *domain.Position) error {
	query := `
		INSERT INTO positions
			(market_id, address, yes_shares, no_shares, total_invested,
			 avg_yes_price, avg_no_price, claimed, refunded, voted, vote_choice)
		VALUES
			(:market_id, :address, :yes_shares, :no_shares, :total_invested,
			 :avg_yes_price, :avg_no_price, :claimed, :refunded, :voted, :vote_choice)
		ON CONFLICT (market_id, address) DO UPDATE SET
			yes_shares     = EXCLUDED.yes_shares,
			no_shares      = EXCLUDED.no_shares,
			total_invested = EXCLUDED.total_invested,
			avg_yes_price  = EXCLUDED.avg_yes_price,
			avg_no_price   = EXCLUDED.avg_no_price,
			claimed        = EXCLUDED.claimed,
			refunded       = EXCLUDED.refunded,
			voted          = EXCLUDED.voted,
			vote_choice    = EXCLUDED.vote_choice`
	if _, err := tx.NamedExecContext(ctx, query, p); err != nil {
		return fmt.Errorf("position_repo.Upsert: %w", err)
	}
	return nil
}

// ListByMarket returns every position with non-zero shares in a market. No
// service calls it; claim and emergency_refund each read only the caller's
// own position.
func (r *PositionRepository) ListByMarket(ctx context.Context, tx *sqlx.Tx, marketID uint64) ([]*domain.Position, error) {
	var positions []*domain.Position
	err := tx.SelectContext(ctx, &positions,
		`SELECT * FROM positions WHERE market_id = $1 AND (yes_shares > 0 OR no_shares > 0)`,
		marketID)
	if err != nil {
		return nil, fmt.Errorf("position_repo.ListByMarket: %w", err)
	}
	return positions, nil
}

// ListVotersByMarket returns positions that voted in a market's dispute,
// used to pay out the jury fee pool.
func (r *PositionRepository) ListVotersByMarket(ctx context.Context, tx *sqlx.Tx, marketID uint64) ([]*domain.Position, error) {
	var positions []*domain.Position
	err := tx.SelectContext(ctx, &positions,
		`SELECT * FROM positions WHERE market_id = $1 AND voted = true`, marketID)
	if err != nil {
		return nil, fmt.Errorf("position_repo.ListVotersByMarket: %w", err)
	}
	return positions, nil
}
