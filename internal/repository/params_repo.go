package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/streetconsensus/settlement/internal/domain"
	"github.com/streetconsensus/settlement/internal/mathx"
)

// paramsRow is the single-row wire format for the params table (id is
// always 1 — there is exactly one global parameter set, spec §3).
type paramsRow struct {
	PlatformFeeBps     uint64     `db:"platform_fee_bps"`
	ResolutionFeeBps   uint64     `db:"resolution_fee_bps"`
	BondFloor          mathx.U256 `db:"bond_floor"`
	DynamicBondBps     uint64     `db:"dynamic_bond_bps"`
	BondWinnerShareBps uint64     `db:"bond_winner_share_bps"`
	MinBet             mathx.U256 `db:"min_bet"`
	Paused             bool       `db:"paused"`
	Treasury           string     `db:"treasury"`
}

// ParamsRepository persists the single global Params row.
type ParamsRepository struct {
	db *sqlx.DB
}

// NewParamsRepository creates a ParamsRepository.
func NewParamsRepository(db *sqlx.DB) *ParamsRepository {
	return &ParamsRepository{db: db}
}

// Get reads the current parameter set without locking.
func (r *ParamsRepository) Get(ctx context.Context) (domain.Params, error) {
	var row paramsRow
	err := r.db.GetContext(ctx, &row, `SELECT * FROM params WHERE id = 1`)
	if err != nil {
		return domain.Params{}, fmt.Errorf("params_repo.Get: %w", err)
	}
	return fromRow(row), nil
}

// GetForUpdate locks the params row for a governance execute_action transition.
func (r *ParamsRepository) GetForUpdate(ctx context.Context, tx *sqlx.Tx) (domain.Params, error) {
	var row paramsRow
	err := tx.GetContext(ctx, &row, `SELECT * FROM params WHERE id = 1 FOR UPDATE`)
	if err != nil {
		return domain.Params{}, fmt.Errorf("params_repo.GetForUpdate: %w", err)
	}
	return fromRow(row), nil
}

// Save writes the parameter set back inside tx.
func (r *ParamsRepository) Save(ctx context.Context, tx *sqlx.Tx, p domain.Params) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE params SET
			platform_fee_bps = $1, resolution_fee_bps = $2, bond_floor = $3,
			dynamic_bond_bps = $4, bond_winner_share_bps = $5, min_bet = $6,
			paused = $7, treasury = $8
		WHERE id = 1`,
		p.PlatformFeeBps, p.ResolutionFeeBps, p.BondFloor, p.DynamicBondBps,
		p.BondWinnerShareBps, p.MinBet, p.Paused, p.Treasury)
	if err != nil {
		return fmt.Errorf("params_repo.Save: %w", err)
	}
	return nil
}

func fromRow(row paramsRow) domain.Params {
	return domain.Params{
		PlatformFeeBps:     row.PlatformFeeBps,
		ResolutionFeeBps:   row.ResolutionFeeBps,
		BondFloor:          row.BondFloor,
		DynamicBondBps:     row.DynamicBondBps,
		BondWinnerShareBps: row.BondWinnerShareBps,
		MinBet:             row.MinBet,
		Paused:             row.Paused,
		Treasury:           row.Treasury,
	}
}
