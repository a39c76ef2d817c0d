package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/streetconsensus/settlement/internal/domain"
	"github.com/streetconsensus/settlement/internal/events"
	"github.com/streetconsensus/settlement/internal/mathx"
	"github.com/streetconsensus/settlement/internal/repository"
)

// ResolutionService implements C4, the Street-Consensus resolution FSM
// (spec §4.4): propose_outcome, dispute, vote, finalize_market, claim,
// emergency_refund and claim_creator_fees. Every transition locks the market
// row for the duration of its transaction, matching the teacher's
// resolution_service.go's lock-then-transition shape but generalized from a
// single operator-resolve call to the full propose/dispute/vote bonded FSM.
type ResolutionService struct {
	db           *sqlx.DB
	marketRepo   *repository.MarketRepository
	positionRepo *repository.PositionRepository
	ledgerRepo   *repository.LedgerRepository
	params       *paramsCache
	log          *slog.Logger
	broadcaster  Broadcaster
}

// NewResolutionService constructs a ResolutionService.
func NewResolutionService(
	db *sqlx.DB,
	marketRepo *repository.MarketRepository,
	positionRepo *repository.PositionRepository,
	ledgerRepo *repository.LedgerRepository,
	paramsRepo *repository.ParamsRepository,
	log *slog.Logger,
) *ResolutionService {
	return &ResolutionService{
		db:           db,
		marketRepo:   marketRepo,
		positionRepo: positionRepo,
		ledgerRepo:   ledgerRepo,
		params:       newParamsCache(paramsRepo),
		log:          log,
	}
}

// SetBroadcaster wires the WS hub after construction.
func (s *ResolutionService) SetBroadcaster(b Broadcaster) { s.broadcaster = b }

func (s *ResolutionService) publish(kind events.Kind, marketID uint64) {
	if s.broadcaster == nil {
		return
	}
	s.broadcaster.BroadcastEvent(string(kind), fmt.Sprintf(`{"market_id":%d}`, marketID))
}

// ProposeOutcomeInput bundles propose_outcome's inputs.
type ProposeOutcomeInput struct {
	MarketID uint64
	Proposer string
	Outcome  bool
	// Sent is the total value sent alongside the proposal: resolution_fee_bps
	// of it is peeled to treasury, the remainder must cover the bond.
	Sent mathx.U256
}

// ProposeOutcome implements propose_outcome (spec §4.4 transition 2). Open
// Question (c): expiry is inclusive, so proposing is only valid once
// now >= expiry_ts (DESIGN.md).
func (s *ResolutionService) ProposeOutcome(ctx context.Context, in ProposeOutcomeInput) (*domain.Market, error) {
	params, err := s.params.Get(ctx)
	if err != nil {
		return nil, err
	}
	if params.Paused {
		return nil, domain.ErrPaused
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("resolution_service.ProposeOutcome begin: %w", err)
	}
	defer tx.Rollback()

	m, err := s.marketRepo.GetForUpdate(ctx, tx, in.MarketID)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	if now.Before(m.ExpiryTS) {
		return nil, domain.ErrNotExpired
	}
	if m.Status != domain.StatusActive && m.Status != domain.StatusExpired {
		return nil, domain.ErrResolved
	}
	if now.Before(m.ExpiryTS.Add(domain.CreatorPriorityWindow)) && in.Proposer != m.Creator {
		return nil, domain.ErrNotCreatorInWindow
	}
	if m.YesSupply.Int.IsZero() && m.NoSupply.Int.IsZero() {
		return nil, domain.ErrNoActivity
	}
	if m.YesSupply.Int.IsZero() || m.NoSupply.Int.IsZero() {
		return nil, domain.ErrOneSidedMarket
	}

	requiredBond, err := requiredBondFor(m, params)
	if err != nil {
		return nil, err
	}
	resolutionFee, err := mathx.BpsOf(in.Sent.Int, params.ResolutionFeeBps)
	if err != nil {
		return nil, err
	}
	bondPortion := mathx.SubBounded(in.Sent.Int, resolutionFee)
	if mathx.LessThan(bondPortion, requiredBond) {
		return nil, domain.ErrInsufficientBond
	}

	m.Status = domain.StatusProposed
	m.Proposer = in.Proposer
	m.ProposerBond = mathx.NewU256(bondPortion)
	m.ProposedOutcome = in.Outcome
	m.ProposalTS = now
	if err := s.marketRepo.Save(ctx, tx, m); err != nil {
		return nil, err
	}
	if err := s.ledgerRepo.Credit(ctx, tx, domain.LedgerTreasury, params.Treasury, 0, mathx.NewU256(resolutionFee)); err != nil {
		return nil, err
	}
	if err := events.Emit(ctx, tx, events.WithdrawalCredited, m.ID, params.Treasury, map[string]any{
		"kind": domain.LedgerTreasury, "amount": resolutionFee.Dec(),
	}); err != nil {
		return nil, err
	}
	if err := events.Emit(ctx, tx, events.OutcomeProposed, m.ID, in.Proposer, map[string]any{
		"outcome": in.Outcome, "bond": bondPortion.Dec(),
	}); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("resolution_service.ProposeOutcome commit: %w", err)
	}
	s.log.Info("outcome proposed", "market_id", m.ID, "proposer", in.Proposer, "outcome", in.Outcome)
	s.publish(events.OutcomeProposed, m.ID)
	return m, nil
}

// requiredBondFor computes max(bond_floor, pool_balance*dynamic_bond_bps/10000).
func requiredBondFor(m *domain.Market, params domain.Params) (*mathx.Int, error) {
	dynamic, err := mathx.BpsOf(m.PoolBalance.Int, params.DynamicBondBps)
	if err != nil {
		return nil, err
	}
	if mathx.GreaterThan(dynamic, params.BondFloor.Int) {
		return dynamic, nil
	}
	return params.BondFloor.Int, nil
}

// DisputeInput bundles dispute's inputs.
type DisputeInput struct {
	MarketID uint64
	Disputer string
	Bond     mathx.U256
}

// Dispute implements dispute (spec §4.4 transition 3).
func (s *ResolutionService) Dispute(ctx context.Context, in DisputeInput) (*domain.Market, error) {
	params, err := s.params.Get(ctx)
	if err != nil {
		return nil, err
	}
	if params.Paused {
		return nil, domain.ErrPaused
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("resolution_service.Dispute begin: %w", err)
	}
	defer tx.Rollback()

	m, err := s.marketRepo.GetForUpdate(ctx, tx, in.MarketID)
	if err != nil {
		return nil, err
	}
	if m.Status != domain.StatusProposed {
		return nil, domain.ErrNotProposed
	}
	if in.Disputer == m.Proposer {
		return nil, domain.ErrSelfDispute
	}
	now := time.Now()
	if !now.Before(m.ProposalTS.Add(domain.DisputeWindow)) {
		return nil, domain.ErrWindowClosed
	}
	required := mathx.Mul(m.ProposerBond.Int, mathx.FromUint64(2))
	if mathx.LessThan(in.Bond.Int, required) {
		return nil, domain.ErrInsufficientBond
	}

	m.Status = domain.StatusDisputed
	m.Disputer = in.Disputer
	m.DisputerBond = mathx.NewU256(required)
	m.DisputeTS = now
	if err := s.marketRepo.Save(ctx, tx, m); err != nil {
		return nil, err
	}
	if err := events.Emit(ctx, tx, events.ProposalDisputed, m.ID, in.Disputer, map[string]any{
		"bond": required.Dec(),
	}); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("resolution_service.Dispute commit: %w", err)
	}
	s.log.Info("proposal disputed", "market_id", m.ID, "disputer", in.Disputer)
	s.publish(events.ProposalDisputed, m.ID)
	return m, nil
}

// Vote implements vote (spec §4.4): only while Disputed and within the
// voting window; vote weight is yes_shares+no_shares at the time of voting.
func (s *ResolutionService) Vote(ctx context.Context, marketID uint64, voter string, outcome bool) (*domain.Market, error) {
	params, err := s.params.Get(ctx)
	if err != nil {
		return nil, err
	}
	if params.Paused {
		return nil, domain.ErrPaused
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("resolution_service.Vote begin: %w", err)
	}
	defer tx.Rollback()

	m, err := s.marketRepo.GetForUpdate(ctx, tx, marketID)
	if err != nil {
		return nil, err
	}
	if m.Status != domain.StatusDisputed {
		return nil, domain.ErrNotDisputed
	}
	if !time.Now().Before(m.DisputeTS.Add(domain.VotingWindow)) {
		return nil, domain.ErrWindowClosed
	}

	pos, err := s.positionRepo.GetForUpdate(ctx, tx, marketID, voter)
	if err != nil {
		return nil, err
	}
	if !pos.HasShares() {
		return nil, domain.ErrNoShares
	}
	if pos.Voted {
		return nil, domain.ErrAlreadyVoted
	}

	weight := pos.VoteWeight()
	if outcome == m.ProposedOutcome {
		m.ProposerVotes = mathx.NewU256(mathx.Add(m.ProposerVotes.Int, weight.Int))
	} else {
		m.DisputerVotes = mathx.NewU256(mathx.Add(m.DisputerVotes.Int, weight.Int))
	}
	if err := s.marketRepo.Save(ctx, tx, m); err != nil {
		return nil, err
	}
	pos.Voted = true
	pos.VoteChoice = outcome
	if err := s.positionRepo.Upsert(ctx, tx, pos); err != nil {
		return nil, err
	}
	if err := events.Emit(ctx, tx, events.VoteCast, m.ID, voter, map[string]any{
		"outcome": outcome, "weight": weight.String(),
	}); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("resolution_service.Vote commit: %w", err)
	}
	s.log.Info("vote cast", "market_id", m.ID, "voter", voter, "outcome", outcome)
	s.publish(events.VoteCast, m.ID)
	return m, nil
}

// FinalizeMarket implements finalize_market (spec §4.4 transitions 4-7):
// the undisputed, disputed-vote, tie, and emergency-refund paths. Which path
// applies is determined purely from the market's current status and clock.
func (s *ResolutionService) FinalizeMarket(ctx context.Context, marketID uint64) (*domain.Market, error) {
	params, err := s.params.Get(ctx)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("resolution_service.FinalizeMarket begin: %w", err)
	}
	defer tx.Rollback()

	m, err := s.marketRepo.GetForUpdate(ctx, tx, marketID)
	if err != nil {
		return nil, err
	}
	now := time.Now()

	switch m.Status {
	case domain.StatusProposed:
		if err := s.finalizeProposed(ctx, tx, m, params, now); err != nil {
			return nil, err
		}
	case domain.StatusDisputed:
		if err := s.finalizeDisputed(ctx, tx, m, params, now); err != nil {
			return nil, err
		}
	case domain.StatusExpired:
		if err := s.finalizeEmergency(ctx, tx, m, params, now); err != nil {
			return nil, err
		}
	case domain.StatusActive:
		// Active->Expired is a pure clock transition (spec §4.4 transition
		// 1): a market whose expiry has passed is Expired for every purpose
		// even though nothing writes that status to the row (the scheduler's
		// sweep only broadcasts), so finalize_market treats it identically to
		// a persisted Expired row.
		if now.Before(m.ExpiryTS) {
			return nil, domain.ErrNotExpired
		}
		if err := s.finalizeEmergency(ctx, tx, m, params, now); err != nil {
			return nil, err
		}
	default:
		return nil, domain.ErrAlreadyResolved
	}

	if err := s.marketRepo.Save(ctx, tx, m); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("resolution_service.FinalizeMarket commit: %w", err)
	}
	s.log.Info("market finalized", "market_id", m.ID, "status", m.Status)
	s.publish(events.MarketResolved, m.ID)
	return m, nil
}

// finalizeProposed handles the undisputed-win path (transition 4) and the
// emergency-refund path for a lingering proposer whose window has elapsed
// without a dispute (transition 7, Open Question (d)).
func (s *ResolutionService) finalizeProposed(ctx context.Context, tx *sqlx.Tx, m *domain.Market, params domain.Params, now time.Time) error {
	disputeOpen := now.Before(m.ProposalTS.Add(domain.DisputeWindow))
	emergencyElapsed := !now.Before(m.ExpiryTS.Add(domain.EmergencyRefundDelay))

	winningSideEmpty := (m.ProposedOutcome && m.YesSupply.Int.IsZero()) || (!m.ProposedOutcome && m.NoSupply.Int.IsZero())
	if emergencyElapsed && (params.Paused || winningSideEmpty) {
		return s.releaseToRefundable(ctx, tx, m)
	}
	if disputeOpen {
		return domain.ErrWindowOpen
	}

	winningSupply := m.YesSupply.Int
	if !m.ProposedOutcome {
		winningSupply = m.NoSupply.Int
	}
	if winningSupply.IsZero() {
		// Clock alone can't resolve an empty winning side; the proposer's
		// bond is released and the market waits for emergency_refund.
		return s.releaseToRefundable(ctx, tx, m)
	}
	if params.Paused {
		// §4.6: pause disables finalize_market for winnings; the emergency
		// paths above (which pause itself unlocks) remain reachable.
		return domain.ErrPaused
	}

	reward, err := mathx.BpsOf(m.PoolBalance.Int, domain.CreatorFeeBps)
	if err != nil {
		return err
	}
	if err := s.ledgerRepo.Credit(ctx, tx, domain.LedgerWithdrawable, m.Proposer, 0,
		mathx.NewU256(mathx.Add(m.ProposerBond.Int, reward))); err != nil {
		return err
	}
	if err := events.Emit(ctx, tx, events.ProposerRewardPaid, m.ID, m.Proposer, map[string]any{
		"reward": reward.Dec(),
	}); err != nil {
		return err
	}

	m.Outcome = m.ProposedOutcome
	m.Status = domain.StatusResolved
	m.PaidOut = true
	m.ResolvedPoolSnapshot = m.PoolBalance
	m.WinningSideSupply = mathx.NewU256(winningSupply)
	return events.Emit(ctx, tx, events.MarketResolved, m.ID, "", map[string]any{"outcome": m.Outcome})
}

// finalizeDisputed handles the disputed-vote win path (transition 5) and the
// tie path (transition 6).
func (s *ResolutionService) finalizeDisputed(ctx context.Context, tx *sqlx.Tx, m *domain.Market, params domain.Params, now time.Time) error {
	if now.Before(m.DisputeTS.Add(domain.VotingWindow)) {
		return domain.ErrWindowOpen
	}
	if params.Paused {
		// §4.6: pause disables finalize_market for winnings, covering both
		// the win and tie paths below.
		return domain.ErrPaused
	}

	cmp := m.ProposerVotes.Int.Cmp(m.DisputerVotes.Int)
	if cmp == 0 {
		// Tie (including 0=0): both bonds returned in full, no jury payout,
		// no proposer reward. Open Question (a) does not apply here — a tie
		// has no winner to split a losing bond with.
		if err := s.ledgerRepo.Credit(ctx, tx, domain.LedgerWithdrawable, m.Proposer, 0, m.ProposerBond); err != nil {
			return err
		}
		if err := s.ledgerRepo.Credit(ctx, tx, domain.LedgerWithdrawable, m.Disputer, 0, m.DisputerBond); err != nil {
			return err
		}
		m.Status = domain.StatusRefundable
		m.Proposer = ""
		m.Disputer = ""
		m.ProposerBond = mathx.ZeroU256()
		m.DisputerBond = mathx.ZeroU256()
		m.ResolvedPoolSnapshot = m.PoolBalance
		return events.Emit(ctx, tx, events.TieFinalized, m.ID, "", nil)
	}

	proposerWins := cmp > 0
	outcome := m.ProposedOutcome
	if !proposerWins {
		outcome = !m.ProposedOutcome
	}

	winnerAddr, winnerBond := m.Proposer, m.ProposerBond
	loserBond := m.DisputerBond
	if !proposerWins {
		winnerAddr, winnerBond = m.Disputer, m.DisputerBond
		loserBond = m.ProposerBond
	}

	// Open Question (a): bond_winner_share_bps of the losing bond goes to the
	// winner alongside their own bond; the remainder funds the jury pool.
	winnerShare, err := mathx.BpsOf(loserBond.Int, params.BondWinnerShareBps)
	if err != nil {
		return err
	}
	juryPool := mathx.SubBounded(loserBond.Int, winnerShare)

	if err := s.ledgerRepo.Credit(ctx, tx, domain.LedgerWithdrawable, winnerAddr, 0,
		mathx.NewU256(mathx.Add(winnerBond.Int, winnerShare))); err != nil {
		return err
	}
	if err := events.Emit(ctx, tx, events.ProposerRewardPaid, m.ID, winnerAddr, map[string]any{
		"winner_share": winnerShare.Dec(),
	}); err != nil {
		return err
	}

	if !juryPool.IsZero() {
		if err := s.payJuryPool(ctx, tx, m, proposerWins, juryPool); err != nil {
			return err
		}
	}

	winningSupply := m.YesSupply.Int
	if !outcome {
		winningSupply = m.NoSupply.Int
	}
	m.Outcome = outcome
	m.Status = domain.StatusResolved
	m.PaidOut = true
	m.ResolvedPoolSnapshot = m.PoolBalance
	m.WinningSideSupply = mathx.NewU256(winningSupply)
	m.Proposer, m.Disputer = "", ""
	return events.Emit(ctx, tx, events.MarketResolved, m.ID, "", map[string]any{"outcome": outcome})
}

// payJuryPool distributes juryPool pro-rata by vote weight to voters who
// backed the winning side of the dispute.
func (s *ResolutionService) payJuryPool(ctx context.Context, tx *sqlx.Tx, m *domain.Market, proposerWon bool, juryPool *mathx.Int) error {
	voters, err := s.positionRepo.ListVotersByMarket(ctx, tx, m.ID)
	if err != nil {
		return err
	}
	totalWeight := mathx.Zero()
	var winners []*domain.Position
	for _, v := range voters {
		votedForProposer := v.VoteChoice == m.ProposedOutcome
		if votedForProposer == proposerWon {
			winners = append(winners, v)
			totalWeight = mathx.Add(totalWeight, v.VoteWeight().Int)
		}
	}
	if totalWeight.IsZero() {
		// No voter backed the winning side: the jury pool has no eligible payee,
		// so it is folded into the winner's own reward instead of stranding
		// it in the ledger.
		winnerAddr := m.Proposer
		if !proposerWon {
			winnerAddr = m.Disputer
		}
		return s.ledgerRepo.Credit(ctx, tx, domain.LedgerJuryFees, winnerAddr, 0, mathx.NewU256(juryPool))
	}
	if err := events.Emit(ctx, tx, events.JuryFeesPoolCreated, m.ID, "", map[string]any{"pool": juryPool.Dec()}); err != nil {
		return err
	}
	for _, v := range winners {
		share, err := mathx.MulDivFloor(juryPool, v.VoteWeight().Int, totalWeight)
		if err != nil {
			return err
		}
		if share.IsZero() {
			continue
		}
		if err := s.ledgerRepo.Credit(ctx, tx, domain.LedgerJuryFees, v.Address, 0, mathx.NewU256(share)); err != nil {
			return err
		}
	}
	return nil
}

// finalizeEmergency handles transition 7 for a market that never had a
// proposer at all (sat Expired the whole time): elapsed time is the only
// condition here, since pause and winning-side-empty only ever substitute
// for elapsed time when a proposer is present to release (spec §4.4
// transition 7) — there is none in this branch.
func (s *ResolutionService) finalizeEmergency(ctx context.Context, tx *sqlx.Tx, m *domain.Market, params domain.Params, now time.Time) error {
	emergencyElapsed := !now.Before(m.ExpiryTS.Add(domain.EmergencyRefundDelay))
	if !emergencyElapsed {
		return domain.ErrWindowOpen
	}
	return s.releaseToRefundable(ctx, tx, m)
}

func (s *ResolutionService) releaseToRefundable(ctx context.Context, tx *sqlx.Tx, m *domain.Market) error {
	if m.Proposer != "" {
		if err := s.ledgerRepo.Credit(ctx, tx, domain.LedgerWithdrawable, m.Proposer, 0, m.ProposerBond); err != nil {
			return err
		}
		m.Proposer = ""
		m.ProposerBond = mathx.ZeroU256()
	}
	if m.Disputer != "" {
		if err := s.ledgerRepo.Credit(ctx, tx, domain.LedgerWithdrawable, m.Disputer, 0, m.DisputerBond); err != nil {
			return err
		}
		m.Disputer = ""
		m.DisputerBond = mathx.ZeroU256()
	}
	m.Status = domain.StatusRefundable
	m.ResolvedPoolSnapshot = m.PoolBalance
	return events.Emit(ctx, tx, events.MarketResolutionFailed, m.ID, "", nil)
}

// Claim implements claim (spec §4.4/§6): payout is the caller's winning
// shares' pro-rata slice of the pool snapshot taken at finalize, minus
// resolution_fee_bps (Open Question (b): the fee applies here and only here
// besides the propose_outcome peel-off).
func (s *ResolutionService) Claim(ctx context.Context, marketID uint64, address string) (mathx.U256, error) {
	params, err := s.params.Get(ctx)
	if err != nil {
		return mathx.U256{}, err
	}
	if params.Paused {
		return mathx.U256{}, domain.ErrPaused
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return mathx.U256{}, fmt.Errorf("resolution_service.Claim begin: %w", err)
	}
	defer tx.Rollback()

	m, err := s.marketRepo.GetForUpdate(ctx, tx, marketID)
	if err != nil {
		return mathx.U256{}, err
	}
	if m.Status != domain.StatusResolved {
		return mathx.U256{}, domain.ErrNotResolved
	}

	pos, err := s.positionRepo.GetForUpdate(ctx, tx, marketID, address)
	if err != nil {
		return mathx.U256{}, err
	}
	if pos.Claimed {
		return mathx.U256{}, domain.ErrAlreadyClaimed
	}
	winningShares := pos.WinningShares(m.Outcome)
	if winningShares.Int.IsZero() {
		return mathx.U256{}, domain.ErrNoWinningShares
	}
	if m.WinningSideSupply.Int.IsZero() {
		return mathx.U256{}, domain.ErrNoWinningShares
	}

	gross, err := mathx.MulDivFloor(winningShares.Int, m.ResolvedPoolSnapshot.Int, m.WinningSideSupply.Int)
	if err != nil {
		return mathx.U256{}, err
	}
	fee, err := mathx.BpsOf(gross, params.ResolutionFeeBps)
	if err != nil {
		return mathx.U256{}, err
	}
	net := mathx.SubBounded(gross, fee)

	pos.Claimed = true
	if err := s.positionRepo.Upsert(ctx, tx, pos); err != nil {
		return mathx.U256{}, err
	}
	if err := s.ledgerRepo.Credit(ctx, tx, domain.LedgerWithdrawable, address, marketID, mathx.NewU256(net)); err != nil {
		return mathx.U256{}, err
	}
	if err := s.ledgerRepo.Credit(ctx, tx, domain.LedgerTreasury, params.Treasury, 0, mathx.NewU256(fee)); err != nil {
		return mathx.U256{}, err
	}
	if err := events.Emit(ctx, tx, events.WithdrawalCredited, m.ID, params.Treasury, map[string]any{
		"kind": domain.LedgerTreasury, "amount": fee.Dec(),
	}); err != nil {
		return mathx.U256{}, err
	}
	if err := events.Emit(ctx, tx, events.Claimed, m.ID, address, map[string]any{
		"shares": winningShares.String(), "payout": net.Dec(),
	}); err != nil {
		return mathx.U256{}, err
	}
	if err := tx.Commit(); err != nil {
		return mathx.U256{}, fmt.Errorf("resolution_service.Claim commit: %w", err)
	}
	s.log.Info("claimed", "market_id", m.ID, "address", address, "payout", net.Dec())
	s.publish(events.Claimed, m.ID)
	return mathx.NewU256(net), nil
}

// EmergencyRefund implements emergency_refund (spec §4.4/§6): pro-rata
// return of the pool snapshot across both sides' combined supply.
func (s *ResolutionService) EmergencyRefund(ctx context.Context, marketID uint64, address string) (mathx.U256, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return mathx.U256{}, fmt.Errorf("resolution_service.EmergencyRefund begin: %w", err)
	}
	defer tx.Rollback()

	m, err := s.marketRepo.GetForUpdate(ctx, tx, marketID)
	if err != nil {
		return mathx.U256{}, err
	}
	if m.Status != domain.StatusRefundable {
		return mathx.U256{}, domain.ErrNotEligible
	}

	pos, err := s.positionRepo.GetForUpdate(ctx, tx, marketID, address)
	if err != nil {
		return mathx.U256{}, err
	}
	if pos.Refunded {
		return mathx.U256{}, domain.ErrAlreadyRefunded
	}
	if !pos.HasShares() {
		return mathx.U256{}, domain.ErrNoShares
	}

	totalShares := mathx.Add(m.YesSupply.Int, m.NoSupply.Int)
	if totalShares.IsZero() {
		return mathx.U256{}, domain.ErrNoActivity
	}
	held := mathx.Add(pos.YesShares.Int, pos.NoShares.Int)
	payout, err := mathx.MulDivFloor(held, m.ResolvedPoolSnapshot.Int, totalShares)
	if err != nil {
		return mathx.U256{}, err
	}

	pos.Refunded = true
	if err := s.positionRepo.Upsert(ctx, tx, pos); err != nil {
		return mathx.U256{}, err
	}
	if err := s.ledgerRepo.Credit(ctx, tx, domain.LedgerWithdrawable, address, marketID, mathx.NewU256(payout)); err != nil {
		return mathx.U256{}, err
	}
	if err := events.Emit(ctx, tx, events.EmergencyRefunded, m.ID, address, map[string]any{
		"payout": payout.Dec(),
	}); err != nil {
		return mathx.U256{}, err
	}
	if err := tx.Commit(); err != nil {
		return mathx.U256{}, fmt.Errorf("resolution_service.EmergencyRefund commit: %w", err)
	}
	s.log.Info("emergency refund", "market_id", m.ID, "address", address, "payout", payout.Dec())
	s.publish(events.EmergencyRefunded, m.ID)
	return mathx.NewU256(payout), nil
}

// ClaimCreatorFees implements claim_creator_fees (spec §4.4/§6): zeroes a
// market's accrued creator fees into the creator's ledger slot. Only the
// market's creator may call this (spec §6's interface table); the actual
// payout happens on a later ledger withdraw call.
func (s *ResolutionService) ClaimCreatorFees(ctx context.Context, marketID uint64, address string) (mathx.U256, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return mathx.U256{}, fmt.Errorf("resolution_service.ClaimCreatorFees begin: %w", err)
	}
	defer tx.Rollback()

	m, err := s.marketRepo.GetForUpdate(ctx, tx, marketID)
	if err != nil {
		return mathx.U256{}, err
	}
	if m.Creator != address {
		return mathx.U256{}, domain.ErrNotCreator
	}
	if m.CreatorFeesAccrued.Int.IsZero() {
		return mathx.U256{}, domain.ErrZeroBalance
	}
	amount := m.CreatorFeesAccrued
	m.CreatorFeesAccrued = mathx.ZeroU256()
	if err := s.marketRepo.Save(ctx, tx, m); err != nil {
		return mathx.U256{}, err
	}
	if err := s.ledgerRepo.Credit(ctx, tx, domain.LedgerCreatorFees, m.Creator, m.ID, amount); err != nil {
		return mathx.U256{}, err
	}
	// The actual transfer waits on a separate ledger withdraw call (spec
	// §4.5's pull pattern); this op only moves the accrual into the
	// creator's creator_fees ledger slot, so it emits the credit event, not
	// the claim event.
	if err := events.Emit(ctx, tx, events.CreatorFeesCredited, m.ID, m.Creator, map[string]any{
		"amount": amount.String(),
	}); err != nil {
		return mathx.U256{}, err
	}
	if err := tx.Commit(); err != nil {
		return mathx.U256{}, fmt.Errorf("resolution_service.ClaimCreatorFees commit: %w", err)
	}
	s.log.Info("creator fees credited", "market_id", m.ID, "creator", m.Creator, "amount", amount.String())
	s.publish(events.CreatorFeesCredited, m.ID)
	return amount, nil
}
