package domain

import "github.com/streetconsensus/settlement/internal/mathx"

// Position is the per-(market, address) record described in spec §3.
// Absent rows behave as a zero-value Position — repositories return this
// zero value rather than a not-found error for positions that were never
// created (default-zero semantics).
type Position struct {
	MarketID uint64 `db:"market_id" json:"market_id"`
	Address  string `db:"address" json:"address"`

	YesShares     mathx.U256 `db:"yes_shares" json:"yes_shares"`
	NoShares      mathx.U256 `db:"no_shares" json:"no_shares"`
	TotalInvested mathx.U256 `db:"total_invested" json:"total_invested"`
	AvgYesPrice   mathx.U256 `db:"avg_yes_price" json:"avg_yes_price"`
	AvgNoPrice    mathx.U256 `db:"avg_no_price" json:"avg_no_price"`

	Claimed  bool `db:"claimed" json:"claimed"`
	Refunded bool `db:"refunded" json:"refunded"`
	Voted    bool `db:"voted" json:"voted"`
	// VoteChoice is valid only when Voted is true.
	VoteChoice bool `db:"vote_choice" json:"vote_choice,omitempty"`
}

// VoteWeight is the voting power a position carries while the market it
// belongs to is Disputed: the sum of both share sides, per spec §4.4.
func (p *Position) VoteWeight() mathx.U256 {
	return mathx.NewU256(mathx.Add(p.YesShares.Int, p.NoShares.Int))
}

// HasShares reports whether the position holds any shares on either side.
func (p *Position) HasShares() bool {
	return p.YesShares.Int.Sign() > 0 || p.NoShares.Int.Sign() > 0
}

// WinningShares returns the shares on the winning side of a resolved market.
func (p *Position) WinningShares(outcome bool) mathx.U256 {
	if outcome {
		return p.YesShares
	}
	return p.NoShares
}

// ZeroPosition returns the default-zero position for a (market, address)
// pair that has never traded.
func ZeroPosition(marketID uint64, address string) *Position {
	return &Position{
		MarketID:      marketID,
		Address:       address,
		YesShares:     mathx.ZeroU256(),
		NoShares:      mathx.ZeroU256(),
		TotalInvested: mathx.ZeroU256(),
		AvgYesPrice:   mathx.ZeroU256(),
		AvgNoPrice:    mathx.ZeroU256(),
	}
}
