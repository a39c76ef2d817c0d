package service

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/streetconsensus/settlement/internal/domain"
	"github.com/streetconsensus/settlement/internal/events"
	"github.com/streetconsensus/settlement/internal/mathx"
	"github.com/streetconsensus/settlement/internal/repository"
)

// LedgerService implements C5's single public operation, withdraw (spec
// §4.5/§6): every credit into a pull-pattern ledger slot (sell proceeds,
// bond returns, jury fees, creator fees) sits there until the holder calls
// withdraw, which is the only place money actually leaves the ledger.
type LedgerService struct {
	db         *sql.DB
	ledgerRepo *repository.LedgerRepository
	log        *slog.Logger
}

// NewLedgerService constructs a LedgerService.
func NewLedgerService(db *sql.DB, ledgerRepo *repository.LedgerRepository, log *slog.Logger) *LedgerService {
	return &LedgerService{db: db, ledgerRepo: ledgerRepo, log: log}
}

// claimedEventFor picks the Claimed-taxonomy event matching a ledger kind,
// so an indexer can tell a jury payout or a creator-fee payout apart from an
// ordinary withdrawable claim without inspecting the payload's kind field.
func claimedEventFor(kind domain.LedgerKind) events.Kind {
	switch kind {
	case domain.LedgerCreatorFees:
		return events.CreatorFeesClaimed
	case domain.LedgerJuryFees:
		return events.JuryFeesClaimed
	default:
		return events.WithdrawalClaimed
	}
}

// Withdraw implements withdraw (spec §4.5/§6): atomically reads and zeroes
// the caller's balance for the given ledger kind and market scope, and
// reports the amount transferred. A second concurrent or sequential call on
// an already-drained slot returns domain.ErrZeroBalance without touching
// storage again — the idempotence law spec §8 requires. The Claimed event is
// recorded in its own statement after the transfer commits: losing it would
// only cost an indexer a notification, never a double-payout, unlike the
// transfer itself which stays inside ledgerRepo.Withdraw's tx.
func (s *LedgerService) Withdraw(ctx context.Context, address string, kind domain.LedgerKind, marketID uint64) (mathx.U256, error) {
	amount, err := s.ledgerRepo.Withdraw(ctx, address, kind, marketID)
	if err != nil {
		return mathx.U256{}, err
	}
	claimedEvent := claimedEventFor(kind)
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO events (kind, market_id, actor, payload, created_at)
		VALUES ($1, $2, $3, $4, now())`,
		string(claimedEvent), marketID, address,
		fmt.Sprintf(`{"kind":%q,"amount":%q}`, kind, amount.String())); err != nil {
		s.log.Warn("withdrawal claimed event not recorded", "address", address, "err", err)
	}
	s.log.Info("withdrawal claimed", "address", address, "kind", kind, "market_id", marketID, "amount", amount.String())
	return amount, nil
}

// Balance reports the current balance of a ledger slot without claiming it,
// for read-only views (spec §4.7).
func (s *LedgerService) Balance(ctx context.Context, address string, kind domain.LedgerKind, marketID uint64) (mathx.U256, error) {
	amount, err := s.ledgerRepo.Balance(ctx, kind, address, marketID)
	if err != nil {
		return mathx.U256{}, fmt.Errorf("ledger_service.Balance: %w", err)
	}
	return amount, nil
}
