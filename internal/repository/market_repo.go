package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/streetconsensus/settlement/internal/domain"
)

// MarketRepository handles all database operations for Markets.
type MarketRepository struct {
	db *sqlx.DB
}

// NewMarketRepository creates a new MarketRepository.
func NewMarketRepository(db *sqlx.DB) *MarketRepository {
	return &MarketRepository{db: db}
}

// Create inserts a new market row and writes its allocated id into m.ID, drawn from
// the markets_id_seq sequence so ids stay strictly monotone (spec §4.2).
func (r *MarketRepository) Create(ctx context.Context, m *domain.Market) error {
	query := `
		INSERT INTO markets
			(creator, question, evidence, rules, image_url, expiry_ts, heat,
			 virtual_liquidity, yes_supply, no_supply, pool_balance,
			 status, proposer_votes, disputer_votes, creator_fees_accrued,
			 created_at, updated_at)
		VALUES
			(:creator, :question, :evidence, :rules, :image_url, :expiry_ts, :heat,
			 :virtual_liquidity, :yes_supply, :no_supply, :pool_balance,
			 :status, :proposer_votes, :disputer_votes, :creator_fees_accrued,
			 :created_at, :updated_at)
		RETURNING id`
	rows, err := r.db.NamedQueryContext(ctx, query, m)
	if err != nil {
		return fmt.Errorf("market_repo.Create: %w", err)
	}
	defer rows.Close()
	if rows.Next() {
		if err := rows.Scan(&m.ID); err != nil {
			return fmt.Errorf("market_repo.Create scan id: %w", err)
		}
	}
	return nil
}

// GetByID fetches a market by its primary key.
func (r *MarketRepository) GetByID(ctx context.Context, id uint64) (*domain.Market, error) {
	var m domain.Market
	err := r.db.GetContext(ctx, &m, `SELECT * FROM markets WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrMarketNotFound
		}
		return nil, fmt.Errorf("market_repo.GetByID: %w", err)
	}
	return &m, nil
}

// GetForUpdate locks the market row for the duration of tx and returns it.
// Every state-changing operation in C3/C4 starts here: the lock gives the
// per-market serial-linearizable ordering spec §5 requires, while unrelated
// markets proceed concurrently.
func (r *MarketRepository) GetForUpdate(ctx context.Context, tx *sqlx.Tx, id uint64) (*domain.Market, error) {
	var m domain.Market
	err := tx.GetContext(ctx, &m, `SELECT * FROM markets WHERE id = $1 FOR UPDATE`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrMarketNotFound
		}
		return nil, fmt.Errorf("market_repo.GetForUpdate: %w", err)
	}
	return &m, nil
}

// Save persists the full market row inside tx. Every C3/C4 transition
// re-reads the row via GetForUpdate, mutates the in-memory struct, then
// calls Save once — mirroring the teacher's lock-then-update shape but
// generalized to the many columns a resolution transition can touch at once.
func (r *MarketRepository) Save(ctx context.Context, tx *sqlx.Tx, m *domain.Market) error {
	query := `
		UPDATE markets SET
			status = :status,
			yes_supply = :yes_supply,
			no_supply = :no_supply,
			pool_balance = :pool_balance,
			proposer = :proposer,
			disputer = :disputer,
			proposer_bond = :proposer_bond,
			disputer_bond = :disputer_bond,
			proposed_outcome = :proposed_outcome,
			proposal_ts = :proposal_ts,
			dispute_ts = :dispute_ts,
			proposer_votes = :proposer_votes,
			disputer_votes = :disputer_votes,
			outcome = :outcome,
			paid_out = :paid_out,
			creator_fees_accrued = :creator_fees_accrued,
			resolved_pool_snapshot = :resolved_pool_snapshot,
			winning_side_supply = :winning_side_supply,
			updated_at = now()
		WHERE id = :id`
	res, err := tx.NamedExecContext(ctx, query, m)
	if err != nil {
		return fmt.Errorf("market_repo.Save: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrMarketNotFound
	}
	return nil
}

// GetExpiredActive returns markets still StatusActive whose expiry has
// passed — candidates for the scheduler's sweep and for propose_outcome.
func (r *MarketRepository) GetExpiredActive(ctx context.Context, now time.Time) ([]*domain.Market, error) {
	var markets []*domain.Market
	err := r.db.SelectContext(ctx, &markets,
		`SELECT * FROM markets WHERE status = 'active' AND expiry_ts <= $1 ORDER BY expiry_ts ASC`,
		now)
	if err != nil {
		return nil, fmt.Errorf("market_repo.GetExpiredActive: %w", err)
	}
	return markets, nil
}

// List returns a paginated slice of markets filtered by optional status.
func (r *MarketRepository) List(ctx context.Context, limit, offset int, status string) ([]*domain.Market, int, error) {
	var markets []*domain.Market
	var total int

	if status != "" {
		if err := r.db.GetContext(ctx, &total,
			`SELECT COUNT(*) FROM markets WHERE status = $1`, status); err != nil {
			return nil, 0, fmt.Errorf("market_repo.List count: %w", err)
		}
		if err := r.db.SelectContext(ctx, &markets,
			`SELECT * FROM markets WHERE status = $1 ORDER BY id DESC LIMIT $2 OFFSET $3`,
			status, limit, offset); err != nil {
			return nil, 0, fmt.Errorf("market_repo.List select: %w", err)
		}
	} else {
		if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM markets`); err != nil {
			return nil, 0, fmt.Errorf("market_repo.List count: %w", err)
		}
		if err := r.db.SelectContext(ctx, &markets,
			`SELECT * FROM markets ORDER BY id DESC LIMIT $1 OFFSET $2`,
			limit, offset); err != nil {
			return nil, 0, fmt.Errorf("market_repo.List select: %w", err)
		}
	}
	return markets, total, nil
}
