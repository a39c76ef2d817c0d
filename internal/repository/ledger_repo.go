package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/streetconsensus/settlement/internal/domain"
	"github.com/streetconsensus/settlement/internal/mathx"
)

// LedgerRepository implements the pull-pattern payout ledgers of spec §4.5:
// every credit is additive, every withdrawal locks the slot's row, reads it
// and zeroes it inside one transaction, so a concurrent second withdrawal
// call waits for the first to commit and then observes a zero balance
// (spec §5(3)).
type LedgerRepository struct {
	db *sqlx.DB
}

// NewLedgerRepository creates a LedgerRepository.
func NewLedgerRepository(db *sqlx.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// Credit adds amount to the (kind, address, marketID) ledger slot inside tx,
// creating the row on first credit.
func (r *LedgerRepository) Credit(ctx context.Context, tx *sqlx.Tx, kind domain.LedgerKind, address string, marketID uint64, amount mathx.U256) error {
	if amount.Int.IsZero() {
		return nil
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO ledger_entries (kind, address, market_id, amount)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (kind, address, market_id) DO UPDATE
		SET amount = (ledger_entries.amount::numeric + EXCLUDED.amount::numeric)::text`,
		string(kind), address, marketID, amount)
	if err != nil {
		return fmt.Errorf("ledger_repo.Credit: %w", err)
	}
	return nil
}

// Balance returns the current balance of a ledger slot, without locking.
func (r *LedgerRepository) Balance(ctx context.Context, kind domain.LedgerKind, address string, marketID uint64) (mathx.U256, error) {
	var amount mathx.U256
	err := r.db.GetContext(ctx, &amount, `
		SELECT amount FROM ledger_entries
		WHERE kind = $1 AND address = $2 AND market_id = $3`,
		string(kind), address, marketID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return mathx.ZeroU256(), nil
		}
		return mathx.U256{}, fmt.Errorf("ledger_repo.Balance: %w", err)
	}
	return amount, nil
}

// Withdraw atomically reads and zeroes a ledger slot's balance, returning
// what was there. A slot with no row, or a balance of zero, returns a zero
// amount and domain.ErrZeroBalance — the withdraw entry point's own
// idempotence guard, realizing spec §8's "consecutive withdraw calls: the
// second returns zero and does not transfer".
func (r *LedgerRepository) Withdraw(ctx context.Context, address string, kind domain.LedgerKind, marketID uint64) (mathx.U256, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return mathx.U256{}, fmt.Errorf("ledger_repo.Withdraw begin: %w", err)
	}
	defer tx.Rollback()

	var amount mathx.U256
	err = tx.GetContext(ctx, &amount, `
		SELECT amount FROM ledger_entries
		WHERE kind = $1 AND address = $2 AND market_id = $3 FOR UPDATE`,
		string(kind), address, marketID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return mathx.ZeroU256(), domain.ErrZeroBalance
		}
		return mathx.U256{}, fmt.Errorf("ledger_repo.Withdraw lock: %w", err)
	}
	if amount.Int.IsZero() {
		return mathx.ZeroU256(), domain.ErrZeroBalance
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE ledger_entries SET amount = '0'
		WHERE kind = $1 AND address = $2 AND market_id = $3`,
		string(kind), address, marketID); err != nil {
		return mathx.U256{}, fmt.Errorf("ledger_repo.Withdraw zero: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return mathx.U256{}, fmt.Errorf("ledger_repo.Withdraw commit: %w", err)
	}
	return amount, nil
}
