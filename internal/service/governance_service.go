package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/streetconsensus/settlement/internal/domain"
	"github.com/streetconsensus/settlement/internal/events"
	"github.com/streetconsensus/settlement/internal/mathx"
	"github.com/streetconsensus/settlement/internal/repository"
)

// GovernanceService implements C6 (spec §4.6): a fixed M-of-N signer set
// proposes, confirms and executes bounded parameter changes and the
// pause/unpause switch. Missing quorum before an action's expiry leaves it
// permanently dead — there is no retry, only a fresh ProposeAction call.
type GovernanceService struct {
	db             *sqlx.DB
	governanceRepo *repository.GovernanceRepository
	paramsRepo     *repository.ParamsRepository
	accountRepo    *repository.AccountRepository
	params         *paramsCache
	quorum         int
	log            *slog.Logger
	broadcaster    Broadcaster
}

// NewGovernanceService constructs a GovernanceService. quorum is the fixed
// M in the M-of-N signer set (spec §4.6).
func NewGovernanceService(
	db *sqlx.DB,
	governanceRepo *repository.GovernanceRepository,
	paramsRepo *repository.ParamsRepository,
	accountRepo *repository.AccountRepository,
	quorum int,
	log *slog.Logger,
) *GovernanceService {
	return &GovernanceService{
		db:             db,
		governanceRepo: governanceRepo,
		paramsRepo:     paramsRepo,
		accountRepo:    accountRepo,
		params:         newParamsCache(paramsRepo),
		quorum:         quorum,
		log:            log,
	}
}

// SetBroadcaster wires the WS hub after construction.
func (s *GovernanceService) SetBroadcaster(b Broadcaster) { s.broadcaster = b }

func (s *GovernanceService) publish(kind events.Kind) {
	if s.broadcaster != nil {
		s.broadcaster.BroadcastEvent(string(kind), "{}")
	}
}

func (s *GovernanceService) requireSigner(ctx context.Context, address string) error {
	signers, err := s.accountRepo.ListSigners(ctx)
	if err != nil {
		return fmt.Errorf("governance_service.requireSigner: %w", err)
	}
	for _, addr := range signers {
		if addr == address {
			return nil
		}
	}
	return domain.ErrNotSigner
}

// ProposeAction implements propose_action (spec §4.6): the proposer's own
// confirmation is recorded immediately, counting toward quorum.
func (s *GovernanceService) ProposeAction(ctx context.Context, proposer string, kind domain.ActionKind, args any) (*domain.GovernanceAction, error) {
	if err := s.requireSigner(ctx, proposer); err != nil {
		return nil, err
	}
	body, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("governance_service.ProposeAction marshal args: %w", err)
	}
	now := time.Now()
	a := &domain.GovernanceAction{
		ID:        uuid.New(),
		Kind:      kind,
		Args:      string(body),
		Proposer:  proposer,
		ExpiryTS:  now.Add(domain.ActionExpiry),
		CreatedAt: now,
	}
	if err := s.governanceRepo.Create(ctx, a); err != nil {
		return nil, err
	}
	a.Approvals = []string{proposer}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("governance_service.ProposeAction begin: %w", err)
	}
	defer tx.Rollback()
	if err := events.Emit(ctx, tx, events.ActionProposed, 0, proposer, map[string]any{
		"action_id": a.ID, "kind": kind, "args": args,
	}); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("governance_service.ProposeAction commit: %w", err)
	}
	s.log.Info("governance action proposed", "action_id", a.ID, "kind", kind, "proposer", proposer)
	s.publish(events.ActionProposed)
	return a, nil
}

// ConfirmAction implements confirm_action (spec §4.6): any other signer's
// approval counts once toward quorum; confirming twice is a no-op.
func (s *GovernanceService) ConfirmAction(ctx context.Context, id uuid.UUID, signer string) (*domain.GovernanceAction, error) {
	if err := s.requireSigner(ctx, signer); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("governance_service.ConfirmAction begin: %w", err)
	}
	defer tx.Rollback()

	a, err := s.governanceRepo.GetForUpdate(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if a.Executed {
		return nil, domain.ErrAlreadyExecuted
	}
	now := time.Now()
	if a.IsExpired(now) {
		return nil, domain.ErrActionExpired
	}
	if !a.HasApproved(signer) {
		if err := s.governanceRepo.AddApproval(ctx, tx, id, signer); err != nil {
			return nil, err
		}
		a.Approvals = append(a.Approvals, signer)
	}
	if err := events.Emit(ctx, tx, events.ActionConfirmed, 0, signer, map[string]any{"action_id": id}); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("governance_service.ConfirmAction commit: %w", err)
	}
	s.log.Info("governance action confirmed", "action_id", id, "signer", signer, "approvals", a.ApprovalCount())
	s.publish(events.ActionConfirmed)
	return a, nil
}

// ExecuteAction implements execute_action (spec §4.6): applies the action's
// effect exactly once, only while approvals >= quorum and now < expiry.
func (s *GovernanceService) ExecuteAction(ctx context.Context, id uuid.UUID) (*domain.GovernanceAction, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("governance_service.ExecuteAction begin: %w", err)
	}
	defer tx.Rollback()

	a, err := s.governanceRepo.GetForUpdate(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if a.Executed {
		return nil, domain.ErrAlreadyExecuted
	}
	now := time.Now()
	if a.IsExpired(now) {
		return nil, domain.ErrActionExpired
	}
	if a.ApprovalCount() < s.quorum {
		return nil, domain.ErrQuorumNotMet
	}

	params, err := s.paramsRepo.GetForUpdate(ctx, tx)
	if err != nil {
		return nil, err
	}
	if err := applyGovernanceAction(&params, a); err != nil {
		return nil, err
	}
	if err := s.paramsRepo.Save(ctx, tx, params); err != nil {
		return nil, err
	}
	if err := s.governanceRepo.MarkExecuted(ctx, tx, id); err != nil {
		return nil, err
	}
	a.Executed = true

	kind := events.ActionExecuted
	if a.Kind == domain.ActionPause {
		kind = events.Paused
	} else if a.Kind == domain.ActionUnpause {
		kind = events.Unpaused
	}
	if err := events.Emit(ctx, tx, kind, 0, "", map[string]any{"action_id": id, "kind": a.Kind}); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("governance_service.ExecuteAction commit: %w", err)
	}
	s.params.Invalidate()
	s.log.Info("governance action executed", "action_id", id, "kind", a.Kind)
	s.publish(kind)
	return a, nil
}

// applyGovernanceAction mutates params in place per a's kind/args, bounds
// checked against the domain package's min/max consts (spec §8 "governance
// safety: no execute... out of range").
func applyGovernanceAction(params *domain.Params, a *domain.GovernanceAction) error {
	switch a.Kind {
	case domain.ActionSetPlatformFeeBps:
		var v struct{ Bps uint64 }
		if err := json.Unmarshal([]byte(a.Args), &v); err != nil {
			return err
		}
		if v.Bps < domain.MinPlatformFeeBps || v.Bps > domain.MaxPlatformFeeBps {
			return domain.ErrOutOfRange
		}
		params.PlatformFeeBps = v.Bps
	case domain.ActionSetResolutionFeeBps:
		var v struct{ Bps uint64 }
		if err := json.Unmarshal([]byte(a.Args), &v); err != nil {
			return err
		}
		if v.Bps < domain.MinResolutionFeeBps || v.Bps > domain.MaxResolutionFeeBps {
			return domain.ErrOutOfRange
		}
		params.ResolutionFeeBps = v.Bps
	case domain.ActionSetDynamicBondBps:
		var v struct{ Bps uint64 }
		if err := json.Unmarshal([]byte(a.Args), &v); err != nil {
			return err
		}
		if v.Bps < domain.MinDynamicBondBps || v.Bps > domain.MaxDynamicBondBps {
			return domain.ErrOutOfRange
		}
		params.DynamicBondBps = v.Bps
	case domain.ActionSetBondWinnerShare:
		var v struct{ Bps uint64 }
		if err := json.Unmarshal([]byte(a.Args), &v); err != nil {
			return err
		}
		if v.Bps < domain.MinBondWinnerShareBps || v.Bps > domain.MaxBondWinnerShareBps {
			return domain.ErrOutOfRange
		}
		params.BondWinnerShareBps = v.Bps
	case domain.ActionSetMinBet:
		var v struct{ Amount string }
		if err := json.Unmarshal([]byte(a.Args), &v); err != nil {
			return err
		}
		var amount mathx.U256
		if err := amount.UnmarshalJSON([]byte(`"` + v.Amount + `"`)); err != nil {
			return err
		}
		params.MinBet = amount
	case domain.ActionSetBondFloor:
		var v struct{ Amount string }
		if err := json.Unmarshal([]byte(a.Args), &v); err != nil {
			return err
		}
		var amount mathx.U256
		if err := amount.UnmarshalJSON([]byte(`"` + v.Amount + `"`)); err != nil {
			return err
		}
		if mathx.LessThan(amount.Int, domain.MinBondFloor.Int) || mathx.GreaterThan(amount.Int, domain.MaxBondFloor.Int) {
			return domain.ErrOutOfRange
		}
		params.BondFloor = amount
	case domain.ActionSetTreasury:
		var v struct{ Address string }
		if err := json.Unmarshal([]byte(a.Args), &v); err != nil {
			return err
		}
		if v.Address == "" {
			return domain.ErrInvalidAddress
		}
		params.Treasury = v.Address
	case domain.ActionPause:
		params.Paused = true
	case domain.ActionUnpause:
		params.Paused = false
	default:
		return domain.ErrOutOfRange
	}
	return nil
}
