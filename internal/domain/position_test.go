package domain_test

import (
	"testing"

	"github.com/streetconsensus/settlement/internal/domain"
	"github.com/streetconsensus/settlement/internal/mathx"
)

// TestZeroPositionHasNoShares confirms the default-zero position returned
// for a never-traded (market, address) pair carries no voting weight and no
// winnings on either side.
func TestZeroPositionHasNoShares(t *testing.T) {
	p := domain.ZeroPosition(1, "0xabc")

	if p.HasShares() {
		t.Errorf("ZeroPosition.HasShares() = true, want false")
	}
	if !p.VoteWeight().Int.IsZero() {
		t.Errorf("ZeroPosition.VoteWeight() = %s, want 0", p.VoteWeight())
	}
	if !p.WinningShares(true).Int.IsZero() || !p.WinningShares(false).Int.IsZero() {
		t.Errorf("ZeroPosition.WinningShares should be 0 for either outcome")
	}
}

// TestVoteWeightSumsBothSides checks VoteWeight is the sum of yes and no
// shares regardless of how lopsided the position is, since a disputer who
// straddles both sides still votes with their full stake (spec §4.4).
func TestVoteWeightSumsBothSides(t *testing.T) {
	cases := []struct {
		name      string
		yes, no   uint64
		wantTotal uint64
	}{
		{"yes only", 500, 0, 500},
		{"no only", 0, 700, 700},
		{"both sides", 300, 400, 700},
		{"zero", 0, 0, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := &domain.Position{
				YesShares: mathx.NewU256(mathx.FromUint64(tc.yes)),
				NoShares:  mathx.NewU256(mathx.FromUint64(tc.no)),
			}
			want := mathx.FromUint64(tc.wantTotal)
			if p.VoteWeight().Int.Cmp(want) != 0 {
				t.Errorf("VoteWeight() = %s, want %s", p.VoteWeight(), want)
			}
		})
	}
}

// TestHasSharesDetectsEitherSide checks a position with shares on only one
// side still counts as holding shares.
func TestHasSharesDetectsEitherSide(t *testing.T) {
	cases := []struct {
		name    string
		yes, no uint64
		wantHas bool
	}{
		{"none", 0, 0, false},
		{"yes only", 1, 0, true},
		{"no only", 0, 1, true},
		{"both", 5, 5, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := &domain.Position{
				YesShares: mathx.NewU256(mathx.FromUint64(tc.yes)),
				NoShares:  mathx.NewU256(mathx.FromUint64(tc.no)),
			}
			if got := p.HasShares(); got != tc.wantHas {
				t.Errorf("HasShares() = %v, want %v", got, tc.wantHas)
			}
		})
	}
}

// TestWinningSharesSelectsOutcomeSide checks WinningShares picks the yes
// side when the market resolved true and the no side otherwise, with no
// mixing between the two.
func TestWinningSharesSelectsOutcomeSide(t *testing.T) {
	p := &domain.Position{
		YesShares: mathx.NewU256(mathx.FromUint64(111)),
		NoShares:  mathx.NewU256(mathx.FromUint64(222)),
	}

	if got := p.WinningShares(true); got.Int.Cmp(mathx.FromUint64(111)) != 0 {
		t.Errorf("WinningShares(true) = %s, want 111", got)
	}
	if got := p.WinningShares(false); got.Int.Cmp(mathx.FromUint64(222)) != 0 {
		t.Errorf("WinningShares(false) = %s, want 222", got)
	}
}
