// Package domain defines the settlement engine's core entities: markets,
// positions, payout ledger entries, governance actions and the global
// parameter set, plus the sentinel error taxonomy shared by every service.
package domain

import (
	"time"

	"github.com/streetconsensus/settlement/internal/mathx"
)

// HeatLevel is a named preset fixing a market's virtual liquidity at
// creation. Larger VL means less price movement per unit of bnb traded.
type HeatLevel string

const (
	HeatCold   HeatLevel = "cold"   // largest VL, least volatile
	HeatNormal HeatLevel = "normal"
	HeatHot    HeatLevel = "hot" // smallest VL, most volatile
)

// MarketStatus enumerates the resolution FSM states (spec §4.4).
type MarketStatus string

const (
	StatusActive     MarketStatus = "active"
	StatusExpired    MarketStatus = "expired"
	StatusProposed   MarketStatus = "proposed"
	StatusDisputed   MarketStatus = "disputed"
	StatusResolved   MarketStatus = "resolved"
	StatusRefundable MarketStatus = "refundable"
)

// Market is the per-market record described in spec §3.
type Market struct {
	ID       uint64    `db:"id" json:"id"`
	Creator  string    `db:"creator" json:"creator"`
	Question string    `db:"question" json:"question"`
	Evidence string    `db:"evidence" json:"evidence"`
	Rules    string    `db:"rules" json:"rules"`
	ImageURL string    `db:"image_url" json:"image_url"`
	ExpiryTS time.Time `db:"expiry_ts" json:"expiry_ts"`
	Heat     HeatLevel `db:"heat" json:"heat"`

	VirtualLiquidity mathx.U256 `db:"virtual_liquidity" json:"virtual_liquidity"`
	YesSupply        mathx.U256 `db:"yes_supply" json:"yes_supply"`
	NoSupply         mathx.U256 `db:"no_supply" json:"no_supply"`
	PoolBalance      mathx.U256 `db:"pool_balance" json:"pool_balance"`

	Status MarketStatus `db:"status" json:"status"`

	Proposer        string     `db:"proposer" json:"proposer,omitempty"`
	Disputer        string     `db:"disputer" json:"disputer,omitempty"`
	ProposerBond    mathx.U256 `db:"proposer_bond" json:"proposer_bond,omitempty"`
	DisputerBond    mathx.U256 `db:"disputer_bond" json:"disputer_bond,omitempty"`
	ProposedOutcome bool       `db:"proposed_outcome" json:"proposed_outcome"`
	ProposalTS      time.Time  `db:"proposal_ts" json:"proposal_ts,omitempty"`
	DisputeTS       time.Time  `db:"dispute_ts" json:"dispute_ts,omitempty"`
	ProposerVotes   mathx.U256 `db:"proposer_votes" json:"proposer_votes"`
	DisputerVotes   mathx.U256 `db:"disputer_votes" json:"disputer_votes"`

	Outcome            bool       `db:"outcome" json:"outcome"`
	PaidOut            bool       `db:"paid_out" json:"paid_out"`
	CreatorFeesAccrued mathx.U256 `db:"creator_fees_accrued" json:"creator_fees_accrued"`

	// ResolvedPoolSnapshot freezes pool_balance at finalize time so claims
	// divide against a stable denominator fixed the moment the market was
	// resolved, per spec §4.4's claim note.
	ResolvedPoolSnapshot mathx.U256 `db:"resolved_pool_snapshot" json:"resolved_pool_snapshot,omitempty"`
	WinningSideSupply    mathx.U256 `db:"winning_side_supply" json:"winning_side_supply,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// SideWon reports whether side (true=Yes) matches the market's resolved outcome.
func (m *Market) SideWon(side bool) bool {
	return m.Status == StatusResolved && m.Outcome == side
}

// Curve projects the fields mathx's pure AMM functions need out of a Market.
func (m *Market) Curve() mathx.CurveState {
	return mathx.CurveState{
		YesSupply:        m.YesSupply.Int,
		NoSupply:         m.NoSupply.Int,
		VirtualLiquidity: m.VirtualLiquidity.Int,
		PoolBalance:      m.PoolBalance.Int,
	}
}

// MarketSummary is the read-model projection returned by list/history views,
// mirroring the teacher's MarketSummary but over the new domain fields.
type MarketSummary struct {
	ID       uint64       `json:"id"`
	Question string       `json:"question"`
	Status   MarketStatus `json:"status"`
	ExpiryTS time.Time    `json:"expiry_ts"`
	PriceYes string       `json:"price_yes"` // decimal string, see ViewService
	PriceNo  string       `json:"price_no"`
}
