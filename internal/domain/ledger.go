package domain

import "github.com/streetconsensus/settlement/internal/mathx"

// LedgerKind distinguishes the independent pull-pattern balances described
// in spec §4.5. Each kind has its own withdraw entry point so crediting one
// kind (e.g. a jury fee) never touches another user's or another kind's
// balance.
type LedgerKind string

const (
	LedgerWithdrawable LedgerKind = "withdrawable" // sell proceeds, bond returns
	LedgerCreatorFees  LedgerKind = "creator_fees"  // per-(creator, market) accrued fee
	LedgerTreasury     LedgerKind = "treasury"      // platform fee accrual
	LedgerJuryFees     LedgerKind = "jury_fees"     // pro-rata dispute jury payouts
)

// LedgerEntry is a single pull-pattern balance slot. Credits accumulate into
// Amount; a withdraw zeroes it and returns the amount that was there,
// atomically, so a concurrent second withdraw call observes zero (spec §5(3)).
type LedgerEntry struct {
	ID      uint64     `db:"id" json:"id"`
	Kind    LedgerKind `db:"kind" json:"kind"`
	Address string     `db:"address" json:"address"`
	// MarketID is the market's id for creator-fee credits and for claim and
	// emergency-refund payouts; every other credit (sell proceeds, bond
	// returns, jury fees, treasury fees) is recorded under 0.
	MarketID uint64     `db:"market_id" json:"market_id,omitempty"`
	Amount   mathx.U256 `db:"amount" json:"amount"`
}
