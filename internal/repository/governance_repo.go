package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/streetconsensus/settlement/internal/domain"
)

// GovernanceRepository persists queued governance actions and their signer
// approval sets (spec §3/§4.6).
type GovernanceRepository struct {
	db *sqlx.DB
}

// NewGovernanceRepository creates a GovernanceRepository.
func NewGovernanceRepository(db *sqlx.DB) *GovernanceRepository {
	return &GovernanceRepository{db: db}
}

// Create inserts a new queued action.
func (r *GovernanceRepository) Create(ctx context.Context, a *domain.GovernanceAction) error {
	query := `
		INSERT INTO governance_actions (id, kind, args, proposer, expiry_ts, executed, created_at)
		VALUES (:id, :kind, :args, :proposer, :expiry_ts, :executed, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, a); err != nil {
		return fmt.Errorf("governance_repo.Create: %w", err)
	}
	return r.addApproval(ctx, nil, a.ID, a.Proposer)
}

// GetForUpdate locks and returns an action by id, with its approval set.
func (r *GovernanceRepository) GetForUpdate(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*domain.GovernanceAction, error) {
	var a domain.GovernanceAction
	err := tx.GetContext(ctx, &a, `SELECT * FROM governance_actions WHERE id = $1 FOR UPDATE`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrMarketNotFound // reuse: generic "not found" has no governance-specific sentinel
		}
		return nil, fmt.Errorf("governance_repo.GetForUpdate: %w", err)
	}
	approvals, err := r.approvals(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	a.Approvals = approvals
	return &a, nil
}

// AddApproval records signer's confirmation of action id inside tx.
func (r *GovernanceRepository) AddApproval(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, signer string) error {
	return r.addApproval(ctx, tx, id, signer)
}

func (r *GovernanceRepository) addApproval(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, signer string) error {
	const query = `
		INSERT INTO governance_approvals (action_id, signer)
		VALUES ($1, $2) ON CONFLICT DO NOTHING`
	var err error
	if tx != nil {
		_, err = tx.ExecContext(ctx, query, id, signer)
	} else {
		_, err = r.db.ExecContext(ctx, query, id, signer)
	}
	if err != nil {
		return fmt.Errorf("governance_repo.addApproval: %w", err)
	}
	return nil
}

func (r *GovernanceRepository) approvals(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) ([]string, error) {
	var signers []string
	err := tx.SelectContext(ctx, &signers,
		`SELECT signer FROM governance_approvals WHERE action_id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("governance_repo.approvals: %w", err)
	}
	return signers, nil
}

// MarkExecuted sets executed=true inside tx.
func (r *GovernanceRepository) MarkExecuted(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) error {
	res, err := tx.ExecContext(ctx, `UPDATE governance_actions SET executed = true WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("governance_repo.MarkExecuted: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrMarketNotFound
	}
	return nil
}

// ListPending returns queued, unexecuted actions for the governance dashboard.
func (r *GovernanceRepository) ListPending(ctx context.Context) ([]*domain.GovernanceAction, error) {
	var actions []*domain.GovernanceAction
	err := r.db.SelectContext(ctx, &actions,
		`SELECT * FROM governance_actions WHERE executed = false ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("governance_repo.ListPending: %w", err)
	}
	for _, a := range actions {
		signers, err := r.approvalsNoTx(ctx, a.ID)
		if err != nil {
			return nil, err
		}
		a.Approvals = signers
	}
	return actions, nil
}

func (r *GovernanceRepository) approvalsNoTx(ctx context.Context, id uuid.UUID) ([]string, error) {
	var signers []string
	err := r.db.SelectContext(ctx, &signers,
		`SELECT signer FROM governance_approvals WHERE action_id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("governance_repo.approvalsNoTx: %w", err)
	}
	return signers, nil
}
