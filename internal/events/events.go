// Package events implements the canonical, append-only event log described
// in spec §4.7/§6: every state-changing operation commits exactly one
// primary event (plus any ledger-credit events) in the same transaction as
// its state writes, so the log can never diverge from the store it
// describes. It is the sole durable, public format external consumers (an
// indexer, the WS hub) are meant to rely on.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// Kind enumerates the bit-exact event taxonomy from spec §6.
type Kind string

const (
	MarketCreated         Kind = "MarketCreated"
	Trade                 Kind = "Trade"
	OutcomeProposed       Kind = "OutcomeProposed"
	ProposalDisputed      Kind = "ProposalDisputed"
	VoteCast              Kind = "VoteCast"
	MarketResolved        Kind = "MarketResolved"
	TieFinalized          Kind = "TieFinalized"
	Claimed               Kind = "Claimed"
	EmergencyRefunded     Kind = "EmergencyRefunded"
	CreatorFeesCredited   Kind = "CreatorFeesCredited"
	CreatorFeesClaimed    Kind = "CreatorFeesClaimed"
	WithdrawalCredited    Kind = "WithdrawalCredited"
	WithdrawalClaimed     Kind = "WithdrawalClaimed"
	JuryFeesPoolCreated   Kind = "JuryFeesPoolCreated"
	JuryFeesClaimed       Kind = "JuryFeesClaimed"
	ProposerRewardPaid    Kind = "ProposerRewardPaid"
	MarketResolutionFailed Kind = "MarketResolutionFailed"
	Paused                Kind = "Paused"
	Unpaused              Kind = "Unpaused"
	ActionProposed        Kind = "ActionProposed"
	ActionConfirmed       Kind = "ActionConfirmed"
	ActionExecuted        Kind = "ActionExecuted"
)

// Event is one row of the append-only log. Payload carries every value
// field needed to reconstruct the state change without reading storage
// (spec §6), JSON-encoded so the schema can grow per-kind without migrations.
type Event struct {
	ID        uint64    `db:"id" json:"id"`
	Kind      Kind      `db:"kind" json:"kind"`
	MarketID  uint64    `db:"market_id" json:"market_id,omitempty"`
	Actor     string    `db:"actor" json:"actor,omitempty"`
	Payload   string    `db:"payload" json:"payload"` // JSON object
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Emit inserts one event row inside tx, so it commits atomically with the
// state transition that produced it. payload is marshaled to JSON here so
// callers pass plain structs, keeping serialization separate from the call
// sites that build event data (spec §9 re-architecting note).
func Emit(ctx context.Context, tx *sqlx.Tx, kind Kind, marketID uint64, actor string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("events.Emit: marshal payload: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO events (kind, market_id, actor, payload, created_at)
		VALUES ($1, $2, $3, $4, now())`,
		string(kind), marketID, actor, body)
	if err != nil {
		return fmt.Errorf("events.Emit: %w", err)
	}
	return nil
}

// Store provides read access to the committed event log, used by the WS hub
// and the indexer-facing API to tail new rows.
type Store struct {
	db *sqlx.DB
}

// NewStore creates an event Store.
func NewStore(db *sqlx.DB) *Store { return &Store{db: db} }

// Since returns events with id > afterID, ascending, for tailing.
func (s *Store) Since(ctx context.Context, afterID uint64, limit int) ([]*Event, error) {
	var rows []*Event
	err := s.db.SelectContext(ctx, &rows,
		`SELECT * FROM events WHERE id > $1 ORDER BY id ASC LIMIT $2`, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("events.Store.Since: %w", err)
	}
	return rows, nil
}

// ByMarket returns every event recorded for a market, ascending, for the
// market detail view.
func (s *Store) ByMarket(ctx context.Context, marketID uint64) ([]*Event, error) {
	var rows []*Event
	err := s.db.SelectContext(ctx, &rows,
		`SELECT * FROM events WHERE market_id = $1 ORDER BY id ASC`, marketID)
	if err != nil {
		return nil, fmt.Errorf("events.Store.ByMarket: %w", err)
	}
	return rows, nil
}
